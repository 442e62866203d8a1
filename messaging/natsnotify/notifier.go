// Package natsnotify 把批量插入的刷新事件发布到 NATS
//
// 用法：
//
//	n, _ := natsnotify.New(natsnotify.Config{URL: nats.DefaultURL})
//	defer n.Close()
//	b := sess.NewBatchInsert("orders", 500, sql.WithFlushHook(n.Hook()))
//
// 发布是尽力而为的：失败只记录日志，不会影响已经成功的插入。
package natsnotify

import (
	"context"
	"encoding/json"

	"github.com/nats-io/nats.go"

	dbsql "rowkit/data/db/sql"
	"rowkit/errors"
	"rowkit/logging"
)

// DefaultSubject 默认发布主题
const DefaultSubject = "rowkit.flush"

// publisher nats.Conn 中用到的方法（便于测试替换）
type publisher interface {
	Publish(subj string, data []byte) error
}

// Config 通知器配置
type Config struct {
	URL     string
	Conn    *nats.Conn
	Subject string
	Logger  logging.Logger
}

// Notifier 发布 sql.FlushEvent
type Notifier struct {
	cfg      Config
	pub      publisher
	conn     *nats.Conn
	ownsConn bool
	logger   logging.Logger
}

// New 创建通知器，未提供 Conn 时按 URL 建立连接
func New(cfg Config) (*Notifier, error) {
	if cfg.Conn != nil {
		n := newNotifier(cfg.Conn, cfg)
		n.conn = cfg.Conn
		return n, nil
	}
	if cfg.URL == "" {
		cfg.URL = nats.DefaultURL
	}
	conn, err := nats.Connect(cfg.URL, nats.Name("rowkit-notifier"))
	if err != nil {
		return nil, errors.NewErrorWithCause(errors.ErrCodeQueue, "连接 NATS 失败", err)
	}
	n := newNotifier(conn, cfg)
	n.conn = conn
	n.ownsConn = true
	return n, nil
}

func newNotifier(pub publisher, cfg Config) *Notifier {
	if cfg.Subject == "" {
		cfg.Subject = DefaultSubject
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.GetLogger().WithFields(logging.String("component", "notify.nats"))
	}
	return &Notifier{cfg: cfg, pub: pub, logger: cfg.Logger}
}

// Subject 发布主题
func (n *Notifier) Subject() string {
	return n.cfg.Subject
}

// Notify 发布一个刷新事件
func (n *Notifier) Notify(ctx context.Context, ev dbsql.FlushEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return errors.WrapWithLog(ctx, err, errors.ErrCodeQueue, "flush event encode failed", logging.String("event_id", ev.ID))
	}
	if err := n.pub.Publish(n.cfg.Subject, data); err != nil {
		return errors.WrapWithLog(ctx, err, errors.ErrCodeQueue, "flush event publish failed",
			logging.String("event_id", ev.ID),
			logging.String("subject", n.cfg.Subject),
		)
	}
	n.logger.Debug(ctx, "flush event published",
		logging.String("event_id", ev.ID),
		logging.String("table", ev.Table),
		logging.Int("rows", ev.Rows),
	)
	return nil
}

// Hook 返回可传给 sql.WithFlushHook 的回调
func (n *Notifier) Hook() dbsql.FlushHook {
	return func(ctx context.Context, ev dbsql.FlushEvent) {
		_ = n.Notify(ctx, ev)
	}
}

// Close 关闭自行建立的连接
func (n *Notifier) Close() error {
	if n.ownsConn && n.conn != nil {
		n.conn.Close()
	}
	return nil
}

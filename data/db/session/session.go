// Package session 基于 database/sql 的单连接会话
//
// 每个 Session 独占一个 *sql.Conn（底层 *sql.DB 最多一个连接，不做连接池），
// 语句以纯文本发送，结果一次性物化为 db.Snapshot。
//
// 错误分类：
//   - 建连失败、连接断开返回 *db.ConnectionError，会话随之不可用；
//   - 语句执行失败返回 *db.QueryError（驱动错误码、错误文本、原始语句），会话仍可用。
//
// Session 不是并发安全的，同一时刻只能进行一个操作。
package session

import (
	"context"
	"database/sql"
	stdErrors "errors"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"

	core "rowkit/data/db"
	"rowkit/data/db/dialect"
	"rowkit/data/db/result"
	dbsql "rowkit/data/db/sql"
	"rowkit/errors"
	"rowkit/logging"
)

// Session 一个数据库会话
type Session struct {
	id      string
	cfg     core.DBConfig
	dialect dialect.Dialect
	loc     *time.Location

	db   *sql.DB
	conn *sql.Conn

	logger logging.Logger
	cache  core.IResultCache

	lastInsertID uint64
	rowsAffected int64
	lastErr      error
	broken       *core.ConnectionError
	closed       bool
}

// Connect 直接使用配置建立会话
func Connect(ctx context.Context, cfg core.DBConfig, opts ...Option) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return connect(ctx, cfg, opts)
}

func connect(ctx context.Context, cfg core.DBConfig, opts []Option) (*Session, error) {
	o := buildOptions(opts)
	loc, err := cfg.Loc()
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()
	logger := o.logger.WithFields(
		logging.String("component", "db.session"),
		logging.String("session_id", id),
	)

	d := dialect.New(cfg.Driver)
	db, err := openDB(cfg, d, loc)
	if err != nil {
		return nil, &core.ConnectionError{Message: "open " + cfg.String(), Cause: err}
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.ConnectTimeout)
		defer cancel()
	}

	conn, err := db.Conn(ctx)
	if err != nil {
		_ = db.Close()
		logger.Warn(ctx, "db connect failed", logging.String("target", cfg.String()), logging.Error(err))
		return nil, &core.ConnectionError{Message: "connect " + cfg.String(), Cause: err}
	}
	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		_ = db.Close()
		logger.Warn(ctx, "db ping failed", logging.String("target", cfg.String()), logging.Error(err))
		return nil, &core.ConnectionError{Message: "ping " + cfg.String(), Cause: err}
	}

	logger.Info(ctx, "db session opened", logging.String("target", cfg.String()))
	return &Session{
		id:      id,
		cfg:     cfg,
		dialect: d,
		loc:     loc,
		db:      db,
		conn:    conn,
		logger:  logger,
		cache:   o.cache,
	}, nil
}

// ID 会话标识（uuid），出现在该会话的所有日志中
func (s *Session) ID() string { return s.id }

// Config 返回配置副本
func (s *Session) Config() core.DBConfig { return s.cfg }

// Dialect 会话方言
func (s *Session) Dialect() dialect.Dialect { return s.dialect }

// DialectName 实现 db.IExecer
func (s *Session) DialectName() string { return string(s.dialect.Name()) }

// Location 时间字段解析时区，实现 db.IQuerier
func (s *Session) Location() *time.Location { return s.loc }

// IsConnected 探测连接是否存活
func (s *Session) IsConnected(ctx context.Context) bool {
	if s.usable() != nil {
		return false
	}
	return s.conn.PingContext(ctx) == nil
}

// Materialize 执行语句并把全部结果读入内存，实现 db.IQuerier
func (s *Session) Materialize(ctx context.Context, statement string) (*core.Snapshot, error) {
	if err := s.usable(); err != nil {
		return nil, err
	}
	start := time.Now()

	rows, err := s.conn.QueryContext(ctx, statement)
	if err != nil {
		return nil, s.fail(ctx, statement, err)
	}
	defer rows.Close()

	fields, err := rows.Columns()
	if err != nil {
		return nil, s.fail(ctx, statement, err)
	}

	snap := &core.Snapshot{Fields: fields, Rows: [][]sql.NullString{}}
	dest := make([]any, len(fields))
	for rows.Next() {
		vals := make([]sql.NullString, len(fields))
		for i := range vals {
			dest[i] = textCell{dst: &vals[i], loc: s.loc}
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, s.fail(ctx, statement, err)
		}
		snap.Rows = append(snap.Rows, vals)
	}
	if err := rows.Err(); err != nil {
		return nil, s.fail(ctx, statement, err)
	}

	s.lastErr = nil
	s.logger.Debug(ctx, "db query",
		logging.String("statement", statement),
		logging.Int("rows", len(snap.Rows)),
		logging.Duration("duration", time.Since(start)),
	)
	return snap, nil
}

// ExecuteQuery 执行查询并返回已物化的结果集
func (s *Session) ExecuteQuery(ctx context.Context, statement string) (*result.ResultSet, error) {
	rs := result.New(s, statement)
	if err := rs.Send(ctx); err != nil {
		return nil, err
	}
	return rs, nil
}

// NewQuery 返回待执行的结果集，调用其 Send 时才执行
func (s *Session) NewQuery(statement string) *result.ResultSet {
	return result.New(s, statement)
}

// CachedQuery 与 ExecuteQuery 相同，但优先读取结果缓存。
//
// 未配置缓存时等同于 ExecuteQuery。写语句不会使缓存失效，需要时调用 PurgeCache。
func (s *Session) CachedQuery(ctx context.Context, statement string) (*result.ResultSet, error) {
	if s.cache == nil {
		return s.ExecuteQuery(ctx, statement)
	}
	key := s.cacheKey(statement)
	if snap, ok := s.cache.Get(ctx, key); ok {
		s.logger.Debug(ctx, "db cached query", logging.String("statement", statement), logging.Bool("hit", true))
		return result.Preloaded(s, statement, snap)
	}

	snap, err := s.Materialize(ctx, statement)
	if err != nil {
		return nil, err
	}
	s.cache.Set(ctx, key, snap)
	s.logger.Debug(ctx, "db cached query", logging.String("statement", statement), logging.Bool("hit", false))
	return result.Preloaded(s, statement, snap)
}

// PurgeCache 清空结果缓存
func (s *Session) PurgeCache(ctx context.Context) {
	if s.cache != nil {
		s.cache.Purge(ctx)
	}
}

func (s *Session) cacheKey(statement string) string {
	return s.cfg.String() + "\n" + statement
}

// ExecuteStatement 执行无结果集的语句（INSERT/UPDATE/DELETE/DDL），实现 db.IExecer
func (s *Session) ExecuteStatement(ctx context.Context, statement string) error {
	if err := s.usable(); err != nil {
		return err
	}
	start := time.Now()

	res, err := s.conn.ExecContext(ctx, statement)
	if err != nil {
		return s.fail(ctx, statement, err)
	}
	if id, err := res.LastInsertId(); err == nil {
		s.lastInsertID = uint64(id)
	}
	if n, err := res.RowsAffected(); err == nil {
		s.rowsAffected = n
	}

	s.lastErr = nil
	s.logger.Debug(ctx, "db exec",
		logging.String("statement", statement),
		logging.Int64("rows_affected", s.rowsAffected),
		logging.Uint64("last_insert_id", s.lastInsertID),
		logging.Duration("duration", time.Since(start)),
	)
	return nil
}

// LastInsertID 最近一次语句产生的自增 ID
func (s *Session) LastInsertID() uint64 { return s.lastInsertID }

// RowsAffected 最近一次语句影响的行数
func (s *Session) RowsAffected() int64 { return s.rowsAffected }

// ListTables 列出当前库中的表
func (s *Session) ListTables(ctx context.Context) ([]string, error) {
	snap, err := s.Materialize(ctx, s.dialect.ListTablesQuery())
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(snap.Rows))
	for _, row := range snap.Rows {
		if len(row) > 0 {
			names = append(names, row[0].String)
		}
	}
	return names, nil
}

// ReportError 把最近一次驱动错误记录到 Error 日志，msg 作为上下文前缀；
// 没有错误时不输出。只产生日志，不返回错误。
func (s *Session) ReportError(ctx context.Context, msg string) {
	if s.lastErr == nil {
		return
	}
	text := s.lastErr.Error()
	if msg != "" {
		text = msg + ": " + text
	}
	s.logger.Error(ctx, text,
		logging.String("error_code", string(errors.GetErrorCode(errors.Normalize(s.lastErr)))),
		logging.Int("driver_code", driverCode(s.lastErr)),
	)
}

// LastError 最近一次操作的错误，成功的操作会清空它
func (s *Session) LastError() error { return s.lastErr }

// EscapeValue 按会话方言转义字符串，结果可以嵌入单引号字面量
func (s *Session) EscapeValue(v string) string { return s.dialect.Escape(v) }

// EscapeAndQuote 转义并加单引号
func (s *Session) EscapeAndQuote(v string) string { return s.dialect.EscapeAndQuote(v) }

// NewBatchInsert 创建绑定到本会话的批量插入构建器
func (s *Session) NewBatchInsert(table string, insertsPerFlush int, opts ...dbsql.Option) *dbsql.BatchInsert {
	return dbsql.NewBatchInsert(s, table, insertsPerFlush, opts...)
}

// Close 释放连接，可重复调用
func (s *Session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	err := stdErrors.Join(s.conn.Close(), s.db.Close())
	s.logger.Info(context.Background(), "db session closed")
	return err
}

func (s *Session) usable() error {
	if s.closed {
		return &core.ConnectionError{Message: "session closed", Cause: core.ErrSessionClosed}
	}
	if s.broken != nil {
		return s.broken
	}
	return nil
}

// fail 把驱动错误归类为 ConnectionError 或 QueryError 并记录
func (s *Session) fail(ctx context.Context, statement string, err error) error {
	if dialect.IsConnectionLoss(err) {
		connErr := &core.ConnectionError{Message: "connection lost", Cause: err}
		s.broken = connErr
		s.lastErr = connErr
		s.logger.Warn(ctx, "db connection lost", logging.String("statement", statement), logging.Error(err))
		return connErr
	}

	queryErr := &core.QueryError{
		Code:      dialect.ErrorCode(err),
		Message:   driverMessage(err),
		Statement: statement,
		Duplicate: s.dialect.IsUniqueViolation(err),
		Cause:     err,
	}
	s.lastErr = queryErr
	s.logger.Warn(ctx, "db statement failed",
		logging.String("statement", statement),
		logging.Int("code", queryErr.Code),
		logging.Error(err),
	)
	return queryErr
}

func driverMessage(err error) string {
	var myErr *mysql.MySQLError
	if stdErrors.As(err, &myErr) {
		return myErr.Message
	}
	return err.Error()
}

func driverCode(err error) int {
	var queryErr *core.QueryError
	if stdErrors.As(err, &queryErr) {
		return queryErr.Code
	}
	return dialect.NoErrorCode
}

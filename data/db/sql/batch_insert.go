package sql

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	core "rowkit/data/db"
	"rowkit/data/db/dialect"
)

// FlushEvent 一次成功刷新的描述
type FlushEvent struct {
	ID        string    `json:"id"`
	Table     string    `json:"table"`
	Rows      int       `json:"rows"`
	Statement string    `json:"statement"`
	FlushedAt time.Time `json:"flushed_at"`
}

// FlushHook 每次刷新成功后调用
type FlushHook func(ctx context.Context, ev FlushEvent)

// Option 批量插入选项
type Option func(*BatchInsert)

// WithInsertIgnore 使用 INSERT IGNORE（SQLite 为 INSERT OR IGNORE）
func WithInsertIgnore() Option {
	return func(b *BatchInsert) { b.ignore = true }
}

// WithFlushHook 设置刷新回调
func WithFlushHook(hook FlushHook) Option {
	return func(b *BatchInsert) { b.hook = hook }
}

type buildState int

const (
	stateNotStarted buildState = iota
	stateDeclaring
	stateAwaitingEntry
	stateInEntry
	stateFinished
)

func (s buildState) String() string {
	switch s {
	case stateNotStarted:
		return "not started"
	case stateDeclaring:
		return "declaring"
	case stateAwaitingEntry:
		return "awaiting entry"
	case stateInEntry:
		return "in entry"
	case stateFinished:
		return "finished"
	default:
		return "unknown"
	}
}

// locator 能提供时区的执行器（session.Session 实现）
type locator interface {
	Location() *time.Location
}

// BatchInsert 多行 INSERT 语句构建器
//
// 调用顺序：
//
//	b := sql.NewBatchInsert(sess, "users", 500)
//	b.AddField("id"); b.AddField("name")
//	b.Start()
//	for ... {
//	    b.BeginEntry()
//	    b.PutLong(id); b.PutString(name)
//	    b.EndEntry(ctx)   // 缓冲条目达到 insertsPerFlush 时自动刷新
//	}
//	b.Finish(ctx)        // 刷新剩余条目
//
// 顺序错误的调用返回 *db.FieldError，不会生成残缺的语句。
// 不是并发安全的。
type BatchInsert struct {
	execer  core.IExecer
	dialect dialect.Dialect

	table    string
	perFlush int
	ignore   bool
	hook     FlushHook

	state   buildState
	columns []string
	header  string

	tuples  []string
	current []string

	bindErr error
}

// NewBatchInsert 创建并绑定目标表的构建器
//
// 参数不合法时构建器保持未绑定状态，后续调用都会返回 Bind 时的错误原因。
func NewBatchInsert(execer core.IExecer, table string, insertsPerFlush int, opts ...Option) *BatchInsert {
	b := &BatchInsert{}
	b.bindErr = b.Bind(execer, table, insertsPerFlush, opts...)
	return b
}

// Bind 绑定会话与目标表，只能在未开始状态调用一次
func (b *BatchInsert) Bind(execer core.IExecer, table string, insertsPerFlush int, opts ...Option) error {
	if b.state != stateNotStarted {
		return b.outOfOrder("Bind")
	}
	if execer == nil {
		return &core.FieldError{Name: table, Reason: "no session bound"}
	}
	if !isSafeIdentifier(table) {
		return &core.FieldError{Name: table, Reason: "unsafe table name"}
	}
	if insertsPerFlush < 1 {
		return &core.FieldError{Name: table, Reason: fmt.Sprintf("insertsPerFlush must be at least 1, got %d", insertsPerFlush)}
	}

	b.execer = execer
	b.dialect = dialect.New(execer.DialectName())
	b.table = table
	b.perFlush = insertsPerFlush
	for _, opt := range opts {
		opt(b)
	}
	b.state = stateDeclaring
	return nil
}

// AddField 声明一列，只能在 Start 之前调用
func (b *BatchInsert) AddField(name string) error {
	if b.state != stateDeclaring {
		return b.outOfOrder("AddField")
	}
	if !isSafeIdentifier(name) {
		return &core.FieldError{Name: name, Reason: "unsafe column name"}
	}
	b.columns = append(b.columns, name)
	return nil
}

// Start 固定列清单并生成语句头
func (b *BatchInsert) Start() error {
	if b.state != stateDeclaring {
		return b.outOfOrder("Start")
	}
	if len(b.columns) == 0 {
		return &core.FieldError{Name: b.table, Reason: "no fields declared"}
	}

	var sb strings.Builder
	sb.WriteString(b.dialect.InsertKeyword(b.ignore))
	sb.WriteString(" INTO ")
	sb.WriteString(b.dialect.QuoteIdentifier(b.table))
	sb.WriteString(" (")
	for i, col := range b.columns {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(b.dialect.QuoteIdentifier(col))
	}
	sb.WriteString(") VALUES ")
	b.header = sb.String()
	b.tuples = make([]string, 0, b.perFlush)
	b.state = stateAwaitingEntry
	return nil
}

// BeginEntry 开始一行
//
// 上一次自动刷新失败时缓冲区已满，需要先成功调用 Flush。
func (b *BatchInsert) BeginEntry() error {
	if b.state != stateAwaitingEntry {
		return b.outOfOrder("BeginEntry")
	}
	if len(b.tuples) >= b.perFlush {
		return &core.FieldError{Name: b.table, Reason: "buffer full, flush required"}
	}
	b.current = make([]string, 0, len(b.columns))
	b.state = stateInEntry
	return nil
}

// AddValue 追加一个已经格式化好的字面量，原样写入语句
func (b *BatchInsert) AddValue(literal string) error {
	if b.state != stateInEntry {
		return b.outOfOrder("AddValue")
	}
	if len(b.current) >= len(b.columns) {
		return &core.FieldError{
			Name:   b.table,
			Reason: fmt.Sprintf("too many values in entry, want %d", len(b.columns)),
		}
	}
	b.current = append(b.current, literal)
	return nil
}

// PutString 追加转义并加引号的字符串
func (b *BatchInsert) PutString(v string) error {
	return b.AddValue(b.dialect.EscapeAndQuote(v))
}

// PutInt 追加整数
func (b *BatchInsert) PutInt(v int) error {
	return b.AddValue(strconv.Itoa(v))
}

// PutLong 追加 64 位整数
func (b *BatchInsert) PutLong(v int64) error {
	return b.AddValue(strconv.FormatInt(v, 10))
}

// PutChar 追加单个字符（按字符串字面量写入）
func (b *BatchInsert) PutChar(v byte) error {
	return b.AddValue(b.dialect.EscapeAndQuote(string([]byte{v})))
}

// PutBool 追加布尔值（0 / 1）
func (b *BatchInsert) PutBool(v bool) error {
	return b.AddValue(dialect.EncodeBooleanLiteral(v))
}

// PutDouble 追加浮点数，NaN 与 ±Inf 没有对应的 SQL 字面量
func (b *BatchInsert) PutDouble(v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return &core.FieldError{Name: b.table, Reason: fmt.Sprintf("%v has no sql literal", v)}
	}
	return b.AddValue(strconv.FormatFloat(v, 'g', -1, 64))
}

// PutNull 追加 NULL
func (b *BatchInsert) PutNull() error {
	return b.AddValue("NULL")
}

// PutTime 追加日期时间字面量，先换算到会话时区
func (b *BatchInsert) PutTime(v time.Time) error {
	if l, ok := b.execer.(locator); ok {
		v = v.In(l.Location())
	}
	return b.AddValue(dialect.EncodeQuotedDateLiteral(v))
}

// EndEntry 结束一行；值个数与列数不一致时丢弃该行并返回 *db.FieldError。
// 缓冲条目数达到 insertsPerFlush 时自动刷新，刷新失败的错误原样返回。
func (b *BatchInsert) EndEntry(ctx context.Context) error {
	if b.state != stateInEntry {
		return b.outOfOrder("EndEntry")
	}
	values := b.current
	b.current = nil
	b.state = stateAwaitingEntry
	if len(values) != len(b.columns) {
		return &core.FieldError{
			Name:   b.table,
			Reason: fmt.Sprintf("entry has %d values, want %d", len(values), len(b.columns)),
		}
	}

	b.tuples = append(b.tuples, "("+strings.Join(values, ",")+")")
	if len(b.tuples) >= b.perFlush {
		return b.Flush(ctx)
	}
	return nil
}

// Flush 发送缓冲的条目；没有条目时不做任何事。
//
// 失败时缓冲区保持不变（语句整体未生效），可以重试。
func (b *BatchInsert) Flush(ctx context.Context) error {
	if b.state != stateAwaitingEntry {
		return b.outOfOrder("Flush")
	}
	if len(b.tuples) == 0 {
		return nil
	}

	statement := b.Statement()
	if err := b.execer.ExecuteStatement(ctx, statement); err != nil {
		return err
	}

	rows := len(b.tuples)
	b.tuples = b.tuples[:0]
	if b.hook != nil {
		b.hook(ctx, FlushEvent{
			ID:        uuid.NewString(),
			Table:     b.table,
			Rows:      rows,
			Statement: statement,
			FlushedAt: time.Now(),
		})
	}
	return nil
}

// Finish 刷新剩余条目并结束构建，之后的操作都会失败。
// 尚未 Start 的构建器直接结束；刷新失败时保持可重试状态。
func (b *BatchInsert) Finish(ctx context.Context) error {
	switch b.state {
	case stateAwaitingEntry:
		if err := b.Flush(ctx); err != nil {
			return err
		}
	case stateNotStarted, stateDeclaring:
	default:
		return b.outOfOrder("Finish")
	}
	b.state = stateFinished
	return nil
}

// Buffered 当前缓冲的条目数
func (b *BatchInsert) Buffered() int {
	return len(b.tuples)
}

// Statement 返回当前缓冲内容对应的完整语句；没有条目时返回空串
func (b *BatchInsert) Statement() string {
	if len(b.tuples) == 0 {
		return ""
	}
	return b.header + strings.Join(b.tuples, ",")
}

func (b *BatchInsert) outOfOrder(op string) error {
	if b.state == stateNotStarted && b.bindErr != nil {
		return b.bindErr
	}
	return &core.FieldError{Name: op, Reason: "not allowed while " + b.state.String()}
}

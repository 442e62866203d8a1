// Package result 提供物化结果集与类型化行视图
//
// ResultSet 持有一次语句执行的全部行数据与字段名到位置的映射，并维护一个
// 只进游标；Row 是指向其中一行的轻量视图，可以随意复制。
//
// 生命周期：
//   - 每次 Send 都会生成一份新的物化数据（frame），旧 frame 不会被修改；
//   - Row 持有它所属 frame 的引用，因此永远不会读到被释放或被替换的内存；
//   - 重新 Send 之后，之前取出的 Row 仍读取旧数据，Stale() 返回 true。
//
// ResultSet 不是并发安全的：游标位置是可变状态，跨 goroutine 共享需要外部同步。
package result

import (
	"context"
	"database/sql"
	"iter"
	"time"

	core "rowkit/data/db"
)

// frame 一次物化的不可变数据
type frame struct {
	names  []string
	fields map[string]int
	loc    *time.Location
}

func newFrame(names []string, loc *time.Location) *frame {
	if loc == nil {
		loc = time.Local
	}
	fields := make(map[string]int, len(names))
	for i, name := range names {
		// 重名列以第一次出现的位置为准
		if _, dup := fields[name]; !dup {
			fields[name] = i
		}
	}
	return &frame{names: names, fields: fields, loc: loc}
}

func (f *frame) index(name string) (int, error) {
	if i, ok := f.fields[name]; ok {
		return i, nil
	}
	return -1, core.UnknownField(name)
}

// ResultSet 物化结果集
type ResultSet struct {
	querier   core.IQuerier
	statement string

	frame *frame
	rows  [][]sql.NullString
	pos   int
	sent  bool
}

// New 创建一个待执行的结果集，调用 Send 后才会真正执行语句
func New(q core.IQuerier, statement string) *ResultSet {
	return &ResultSet{querier: q, statement: statement}
}

// FromSnapshot 用已物化的数据（例如来自缓存）构建结果集
//
// snap 不会被修改；loc 为 nil 时使用 time.Local。
func FromSnapshot(statement string, snap *core.Snapshot, loc *time.Location) (*ResultSet, error) {
	rs := &ResultSet{statement: statement}
	if err := rs.load(snap, loc); err != nil {
		return nil, err
	}
	return rs, nil
}

// Preloaded 用已物化的数据构建结果集，之后的 Send 会通过 q 重新执行语句
func Preloaded(q core.IQuerier, statement string, snap *core.Snapshot) (*ResultSet, error) {
	rs := New(q, statement)
	if err := rs.load(snap, q.Location()); err != nil {
		return nil, err
	}
	return rs, nil
}

// Send 执行语句并物化全部结果，替换之前的内容并把游标重置到第一行。
//
// 失败时保留之前的内容不变。之前取出的 Row 继续读取旧数据。
func (rs *ResultSet) Send(ctx context.Context) error {
	if rs.querier == nil {
		return &core.QueryError{Code: -1, Message: "result set has no session", Statement: rs.statement}
	}
	snap, err := rs.querier.Materialize(ctx, rs.statement)
	if err != nil {
		return err
	}
	return rs.load(snap, rs.querier.Location())
}

func (rs *ResultSet) load(snap *core.Snapshot, loc *time.Location) error {
	if err := snap.Validate(); err != nil {
		return err
	}
	// 复制外层切片，ReverseRows 只改变本结果集的顺序，不影响共享的 snapshot
	rows := make([][]sql.NullString, len(snap.Rows))
	copy(rows, snap.Rows)

	rs.frame = newFrame(snap.Fields, loc)
	rs.rows = rows
	rs.pos = 0
	rs.sent = true
	return nil
}

// Statement 返回原始语句文本
func (rs *ResultSet) Statement() string {
	return rs.statement
}

// Sent 是否已经执行并物化
func (rs *ResultSet) Sent() bool {
	return rs.sent
}

// RowCount 行数
func (rs *ResultSet) RowCount() int {
	return len(rs.rows)
}

// FieldCount 列数
func (rs *ResultSet) FieldCount() int {
	if rs.frame == nil {
		return 0
	}
	return len(rs.frame.names)
}

// Fields 返回列名（副本），顺序即列位置
func (rs *ResultSet) Fields() []string {
	if rs.frame == nil {
		return nil
	}
	out := make([]string, len(rs.frame.names))
	copy(out, rs.frame.names)
	return out
}

// FieldIndex 把列名解析为位置，未知列名返回 *db.FieldError
func (rs *ResultSet) FieldIndex(name string) (int, error) {
	if rs.frame == nil {
		return -1, core.UnknownField(name)
	}
	return rs.frame.index(name)
}

// Reset 把游标移回第一行
func (rs *ResultSet) Reset() {
	rs.pos = 0
}

// HasNext 游标处是否还有行
func (rs *ResultSet) HasNext() bool {
	return rs.pos < len(rs.rows)
}

// NextRow 返回游标处的行并前移游标；没有更多行时 ok 为 false
func (rs *ResultSet) NextRow() (row Row, ok bool) {
	row, ok = rs.PeekRow()
	if ok {
		rs.pos++
	}
	return row, ok
}

// PeekRow 返回游标处的行但不移动游标
func (rs *ResultSet) PeekRow() (Row, bool) {
	if !rs.HasNext() {
		return Row{}, false
	}
	return rs.rowAt(rs.pos), true
}

// SkipRow 前移游标但不生成行视图；已到末尾时不做任何事
func (rs *ResultSet) SkipRow() {
	if rs.HasNext() {
		rs.pos++
	}
}

// ReverseRows 原地反转行顺序，之后的游标操作按新顺序遍历。
// 游标位置不变，通常需要随后调用 Reset。
func (rs *ResultSet) ReverseRows() {
	for i, j := 0, len(rs.rows)-1; i < j; i, j = i+1, j-1 {
		rs.rows[i], rs.rows[j] = rs.rows[j], rs.rows[i]
	}
}

// FieldAt 返回游标当前行第 i 列的文本，与 Row.FieldAt 一致：NULL 返回 "NULL"。
// 没有当前行时返回空串。
func (rs *ResultSet) FieldAt(i int) string {
	row, ok := rs.PeekRow()
	if !ok {
		return ""
	}
	return row.FieldAt(i)
}

// All 从第一行开始遍历全部行，不影响游标
func (rs *ResultSet) All() iter.Seq[Row] {
	return func(yield func(Row) bool) {
		for i := range rs.rows {
			if !yield(rs.rowAt(i)) {
				return
			}
		}
	}
}

// Close 释放结果集持有的行数据。
//
// 已取出的 Row 仍可读取（它们持有各自的数据引用），但 Stale() 返回 true。
func (rs *ResultSet) Close() error {
	rs.frame = nil
	rs.rows = nil
	rs.pos = 0
	rs.sent = false
	return nil
}

func (rs *ResultSet) rowAt(i int) Row {
	return Row{rs: rs, frame: rs.frame, vals: rs.rows[i]}
}

// Package logtest 提供把日志记录在内存中的 logging.Logger，用于测试断言
package logtest

import (
	"context"
	"sync"

	"rowkit/logging"
)

// Entry 记录下来的一条日志
type Entry struct {
	Level   logging.Level
	Message string
	Fields  []logging.Field
}

// Field 按 key 查找字段值，同名字段以后添加的为准
func (e Entry) Field(key string) (any, bool) {
	for i := len(e.Fields) - 1; i >= 0; i-- {
		if e.Fields[i].Key == key {
			return e.Fields[i].Value, true
		}
	}
	return nil, false
}

// Recorder 内存日志记录器
type Recorder struct {
	mu      *sync.Mutex
	entries *[]Entry
	fields  []logging.Field
}

var _ logging.Logger = (*Recorder)(nil)

// NewRecorder 创建内存日志记录器
func NewRecorder() *Recorder {
	return &Recorder{mu: &sync.Mutex{}, entries: &[]Entry{}}
}

func (r *Recorder) record(level logging.Level, msg string, fields []logging.Field) {
	all := make([]logging.Field, 0, len(r.fields)+len(fields))
	all = append(all, r.fields...)
	all = append(all, fields...)
	r.mu.Lock()
	*r.entries = append(*r.entries, Entry{Level: level, Message: msg, Fields: all})
	r.mu.Unlock()
}

func (r *Recorder) Debug(ctx context.Context, msg string, fields ...logging.Field) {
	r.record(logging.DebugLevel, msg, fields)
}

func (r *Recorder) Info(ctx context.Context, msg string, fields ...logging.Field) {
	r.record(logging.InfoLevel, msg, fields)
}

func (r *Recorder) Warn(ctx context.Context, msg string, fields ...logging.Field) {
	r.record(logging.WarnLevel, msg, fields)
}

func (r *Recorder) Error(ctx context.Context, msg string, fields ...logging.Field) {
	r.record(logging.ErrorLevel, msg, fields)
}

// WithFields 派生的 Recorder 与原实例共享同一份记录
func (r *Recorder) WithFields(fields ...logging.Field) logging.Logger {
	merged := make([]logging.Field, len(r.fields)+len(fields))
	copy(merged, r.fields)
	copy(merged[len(r.fields):], fields)
	return &Recorder{mu: r.mu, entries: r.entries, fields: merged}
}

// Entries 返回所有记录（副本）
func (r *Recorder) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Entry, len(*r.entries))
	copy(out, *r.entries)
	return out
}

// EntriesAt 返回指定级别的记录
func (r *Recorder) EntriesAt(level logging.Level) []Entry {
	var out []Entry
	for _, e := range r.Entries() {
		if e.Level == level {
			out = append(out, e)
		}
	}
	return out
}

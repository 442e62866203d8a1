package db

import (
	"errors"
	"fmt"
)

// ErrSessionClosed 表示会话已关闭
var ErrSessionClosed = errors.New("db: session is closed")

// ConnectionError 建立或维持会话失败（认证失败、主机不可达、连接断开）。
// 对会话是致命的，调用方需要重新连接。
type ConnectionError struct {
	Message string
	Cause   error
}

func (e *ConnectionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("db: connection error: %s: %v", e.Message, e.Cause)
	}
	return "db: connection error: " + e.Message
}

func (e *ConnectionError) Unwrap() error { return e.Cause }

// ErrorCode 对应 rowkit/errors 的 CONNECTION_ERROR
func (e *ConnectionError) ErrorCode() string { return "CONNECTION_ERROR" }

// QueryError 语句执行失败，携带驱动错误码、错误文本与原始语句。
// 会话在此之后仍然可用。
type QueryError struct {
	Code      int
	Message   string
	Statement string
	// Duplicate 驱动报告唯一键/主键冲突
	Duplicate bool
	Cause     error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("db: query error: %s (#%d); statement: %s", e.Message, e.Code, e.Statement)
}

func (e *QueryError) Unwrap() error { return e.Cause }

// ErrorCode 对应 rowkit/errors 的 QUERY_ERROR
func (e *QueryError) ErrorCode() string { return "QUERY_ERROR" }

// IsDuplicate 规范化时据此归为 rowkit/errors 的 DUPLICATE_ERROR
func (e *QueryError) IsDuplicate() bool { return e.Duplicate }

// FieldError 字段名无法解析，或批量插入条目的值个数与声明列数不一致，
// 或构建器调用顺序不合法。只影响当前操作。
type FieldError struct {
	Name   string
	Reason string
}

func (e *FieldError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("db: field error: %q", e.Name)
	}
	return fmt.Sprintf("db: field error: %q: %s", e.Name, e.Reason)
}

// ErrorCode 对应 rowkit/errors 的 FIELD_ERROR
func (e *FieldError) ErrorCode() string { return "FIELD_ERROR" }

// UnknownField 构造未知字段错误
func UnknownField(name string) *FieldError {
	return &FieldError{Name: name, Reason: "unknown field"}
}

package errors

import (
	stdErrors "errors"
	"fmt"
)

// ErrorCode 错误代码类型
type ErrorCode string

// 预定义错误代码
const (
	ErrCodeInternal   ErrorCode = "INTERNAL_ERROR"
	ErrCodeValidation ErrorCode = "VALIDATION_ERROR"
	ErrCodeTimeout    ErrorCode = "TIMEOUT"

	// 数据库访问层错误代码（与 data/db 的三类错误一一对应）
	ErrCodeConnection ErrorCode = "CONNECTION_ERROR"
	ErrCodeQuery      ErrorCode = "QUERY_ERROR"
	ErrCodeField      ErrorCode = "FIELD_ERROR"
	// ErrCodeDuplicate 唯一键冲突，是 QUERY_ERROR 的细分
	ErrCodeDuplicate ErrorCode = "DUPLICATE_ERROR"

	// 基础设施错误代码
	ErrCodeDatabase ErrorCode = "DATABASE_ERROR"
	ErrCodeCache    ErrorCode = "CACHE_ERROR"
	ErrCodeQueue    ErrorCode = "QUEUE_ERROR"
)

// IError 错误接口
type IError interface {
	error

	// 获取错误代码
	Code() ErrorCode

	// 包装错误，保留错误代码
	Wrap(msg string) IError
}

// AppError 应用错误实现
type AppError struct {
	code    ErrorCode
	message string
	cause   error
}

// NewError 创建新错误
func NewError(code ErrorCode, message string) IError {
	return &AppError{code: code, message: message}
}

// NewErrorWithCause 创建带原因的错误
func NewErrorWithCause(code ErrorCode, message string, cause error) IError {
	return &AppError{code: code, message: message, cause: cause}
}

// WrapError 包装错误
func WrapError(err error, code ErrorCode, message string) IError {
	if err == nil {
		return nil
	}
	return &AppError{code: code, message: message, cause: err}
}

// Error 实现 error 接口
func (e *AppError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.code, e.message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.code, e.message)
}

// Code 获取错误代码
func (e *AppError) Code() ErrorCode {
	return e.code
}

// Is 错误代码相同的 AppError 视为同一类错误
func (e *AppError) Is(target error) bool {
	if appErr, ok := target.(*AppError); ok {
		return e.code == appErr.code
	}
	return false
}

// Unwrap 解包错误（支持 errors.Unwrap）
func (e *AppError) Unwrap() error {
	return e.cause
}

// Wrap 包装错误
func (e *AppError) Wrap(msg string) IError {
	return &AppError{
		code:    e.code,
		message: fmt.Sprintf("%s: %s", msg, e.message),
		cause:   e,
	}
}

// IsValidation 检查是否为验证错误
func IsValidation(err error) bool {
	return IsErrorCode(err, ErrCodeValidation)
}

// IsConnection 检查是否为连接错误
func IsConnection(err error) bool {
	return IsErrorCode(err, ErrCodeConnection)
}

// IsDuplicate 检查是否为唯一键冲突，未规范化的 db.QueryError 也能识别
func IsDuplicate(err error) bool {
	return IsErrorCode(Normalize(err), ErrCodeDuplicate)
}

// IsTimeout 检查是否因超时失败，未规范化的 context.DeadlineExceeded 也能识别
func IsTimeout(err error) bool {
	return IsErrorCode(Normalize(err), ErrCodeTimeout)
}

// IsErrorCode 检查是否为指定错误代码
func IsErrorCode(err error, code ErrorCode) bool {
	if err == nil {
		return false
	}

	var appErr *AppError
	if stdErrors.As(err, &appErr) {
		return appErr.code == code
	}

	var coded codedError
	if stdErrors.As(err, &coded) {
		return ErrorCode(coded.ErrorCode()) == code
	}

	return false
}

// GetErrorCode 获取错误代码
func GetErrorCode(err error) ErrorCode {
	if err == nil {
		return ""
	}

	var appErr *AppError
	if stdErrors.As(err, &appErr) {
		return appErr.code
	}

	var coded codedError
	if stdErrors.As(err, &coded) {
		return ErrorCode(coded.ErrorCode())
	}

	return ErrCodeInternal
}

package errors

import (
	"context"
	stdErrors "errors"
)

// codedError 由自带错误分类的底层错误实现。
//
// data/db 的 ConnectionError / QueryError / FieldError 都实现了该接口，
// 这里只依赖方法集合，避免 errors 包反向依赖 data/db。
type codedError interface {
	error
	ErrorCode() string
}

// duplicateError 由能识别唯一键冲突的错误实现（db.QueryError）
type duplicateError interface {
	IsDuplicate() bool
}

// Normalize 将数据库访问层/基础设施层的错误规范化为 AppError。
//
// 规则：
//   - 已经是 IError 的原样返回；
//   - 超时（context.DeadlineExceeded）归为 TIMEOUT，不论外层是哪类 db 错误；
//   - 唯一键冲突的 QueryError 归为 DUPLICATE_ERROR，其余按 ErrorCode() 归类；
//   - 原始错误保留为 cause，errors.As 仍能取回 *db.QueryError 等具体类型；
//   - 未识别的错误保持原样，交由调用方决定是否 Wrap。
func Normalize(err error) error {
	if err == nil {
		return nil
	}

	if _, ok := err.(IError); ok {
		return err
	}

	if stdErrors.Is(err, context.DeadlineExceeded) {
		return WrapError(err, ErrCodeTimeout, "操作超时")
	}

	var coded codedError
	if stdErrors.As(err, &coded) {
		code := ErrorCode(coded.ErrorCode())
		switch code {
		case ErrCodeConnection:
			return WrapError(err, code, "数据库连接失败")
		case ErrCodeQuery:
			if dup, ok := coded.(duplicateError); ok && dup.IsDuplicate() {
				return WrapError(err, ErrCodeDuplicate, "唯一键冲突")
			}
			return WrapError(err, code, "语句执行失败")
		case ErrCodeField:
			return WrapError(err, code, "字段解析失败")
		default:
			return WrapError(err, code, coded.Error())
		}
	}

	return err
}

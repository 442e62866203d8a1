// Package db 定义类型化结果集访问层的核心契约
//
// 设计目标：
// 1. 底层数据库客户端（database/sql + 驱动）只通过窄接口暴露给上层
// 2. 结果集一次性物化到客户端内存，不提供服务端游标
// 3. 错误分类固定为 ConnectionError / QueryError / FieldError 三种
// 4. 便于单元测试（结果集与批量插入构建器只依赖接口）
package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Snapshot 一次语句执行物化得到的完整结果
//
// 约定：
//   - Fields 为列名，顺序即列位置；
//   - Rows 中每一行的长度必须等于 len(Fields)；
//   - 构建完成后不可修改，可以被多个结果集/缓存共享。
type Snapshot struct {
	Fields []string           `json:"fields"`
	Rows   [][]sql.NullString `json:"rows"`
}

// Validate 校验每一行的值个数与列数一致
func (s *Snapshot) Validate() error {
	if s == nil {
		return fmt.Errorf("db: nil snapshot")
	}
	for i, row := range s.Rows {
		if len(row) != len(s.Fields) {
			return fmt.Errorf("db: snapshot row %d has %d values, want %d", i, len(row), len(s.Fields))
		}
	}
	return nil
}

// IQuerier 物化查询的能力，由 session.Session 实现
type IQuerier interface {
	// Materialize 执行语句并把全部结果拉取到内存
	Materialize(ctx context.Context, statement string) (*Snapshot, error)

	// Location 时间字段解析所使用的时区
	Location() *time.Location
}

// IExecer 执行无结果语句的能力，批量插入构建器依赖它
type IExecer interface {
	ExecuteStatement(ctx context.Context, statement string) error
	DialectName() string
}

// IResultCache 物化结果缓存
//
// key 为调用方给出的语句标识（通常包含库名与语句文本），实现方自行做哈希。
type IResultCache interface {
	Get(ctx context.Context, key string) (*Snapshot, bool)
	Set(ctx context.Context, key string, snap *Snapshot)
	Purge(ctx context.Context)
}

package session

import (
	"context"

	core "rowkit/data/db"
)

// Factory 保存一份校验过的连接配置，用于创建会话
//
// 创建后不可修改，可以在多个 goroutine 间共享；每个 goroutine 应使用自己的 Session。
type Factory struct {
	cfg  core.DBConfig
	opts []Option
}

// NewFactory 校验配置并创建会话工厂，opts 作为每个会话的默认选项
func NewFactory(cfg core.DBConfig, opts ...Option) (*Factory, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Factory{cfg: cfg, opts: append([]Option(nil), opts...)}, nil
}

// Config 返回配置副本
func (f *Factory) Config() core.DBConfig {
	return f.cfg
}

// Connect 建立新会话，opts 追加在工厂默认选项之后
func (f *Factory) Connect(ctx context.Context, opts ...Option) (*Session, error) {
	all := make([]Option, 0, len(f.opts)+len(opts))
	all = append(all, f.opts...)
	all = append(all, opts...)
	return connect(ctx, f.cfg, all)
}

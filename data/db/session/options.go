package session

import (
	core "rowkit/data/db"
	"rowkit/logging"
)

type options struct {
	logger logging.Logger
	cache  core.IResultCache
}

// Option 会话选项
type Option func(*options)

// WithLogger 设置会话日志（会话会在其上附加 component 与 session_id 字段）
func WithLogger(logger logging.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithResultCache 为 CachedQuery 设置结果缓存
func WithResultCache(cache core.IResultCache) Option {
	return func(o *options) { o.cache = cache }
}

func buildOptions(opts []Option) options {
	o := options{logger: logging.GetLogger()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

package db

import (
	"fmt"
	"strings"
	"time"

	"rowkit/validation"
)

// Flags 连接选项位掩码
type Flags uint32

const (
	// FlagFoundRows UPDATE 返回匹配行数而不是实际修改的行数
	FlagFoundRows Flags = 1 << iota
	// FlagMultiStatements 允许一次发送多条以分号分隔的语句
	FlagMultiStatements
	// FlagAllowCleartextPasswords 允许明文密码认证插件
	FlagAllowCleartextPasswords
)

// Has 判断是否包含指定选项
func (f Flags) Has(flag Flags) bool {
	return f&flag != 0
}

// DBConfig 数据库配置
//
// 构建会话工厂后不可修改（工厂保存副本）。
type DBConfig struct {
	Driver   string // mysql, sqlite
	Host     string
	Port     int
	Database string // sqlite 下为数据库文件路径或 :memory:
	Username string
	Password string
	Flags    Flags

	// 其他选项
	Charset  string
	Location string // 时间字段解析时区，IANA 名称，默认 Local

	// 超时（0 表示使用驱动默认值）
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
}

// DefaultConfig 返回默认配置（MySQL，本机 3306）
func DefaultConfig() DBConfig {
	return DBConfig{
		Driver:         "mysql",
		Host:           "127.0.0.1",
		Port:           3306,
		Charset:        "utf8mb4",
		Location:       "Local",
		ConnectTimeout: 5 * time.Second,
	}
}

// Validate 校验配置
func (c DBConfig) Validate() error {
	driver := strings.ToLower(c.Driver)
	if err := validation.ValidateEnum(driver, "驱动", []string{"mysql", "sqlite"}); err != nil {
		return err
	}
	switch driver {
	case "mysql":
		if err := validation.ValidateHost(c.Host); err != nil {
			return err
		}
		if err := validation.ValidateRequired(c.Username, "用户名"); err != nil {
			return err
		}
		if err := validation.ValidateIntRange(c.Port, "端口", 0, 65535); err != nil {
			return err
		}
	case "sqlite":
		if err := validation.ValidateRequired(c.Database, "数据库路径"); err != nil {
			return err
		}
	}
	if err := validation.ValidateNonNegativeDuration(c.ConnectTimeout, "连接超时"); err != nil {
		return err
	}
	if err := validation.ValidateNonNegativeDuration(c.ReadTimeout, "读超时"); err != nil {
		return err
	}
	if err := validation.ValidateNonNegativeDuration(c.WriteTimeout, "写超时"); err != nil {
		return err
	}
	if _, err := c.Loc(); err != nil {
		return err
	}
	return nil
}

// Loc 解析 Location 为 *time.Location，空值视为 Local
func (c DBConfig) Loc() (*time.Location, error) {
	switch c.Location {
	case "", "Local":
		return time.Local, nil
	case "UTC":
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.Location)
	if err != nil {
		return nil, fmt.Errorf("db: invalid location %q: %w", c.Location, err)
	}
	return loc, nil
}

// Addr 返回 host:port，端口为 0 时使用 3306
func (c DBConfig) Addr() string {
	port := c.Port
	if port == 0 {
		port = 3306
	}
	host := c.Host
	if strings.Contains(host, ":") && !strings.HasPrefix(host, "[") {
		host = "[" + host + "]"
	}
	return fmt.Sprintf("%s:%d", host, port)
}

// String 输出配置摘要（不含密码），用于日志
func (c DBConfig) String() string {
	if strings.EqualFold(c.Driver, "sqlite") {
		return "sqlite:" + c.Database
	}
	return fmt.Sprintf("%s://%s@%s/%s", c.Driver, c.Username, c.Addr(), c.Database)
}

package session

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "modernc.org/sqlite"

	core "rowkit/data/db"
	"rowkit/data/db/dialect"
)

// mysqlConfig 把 DBConfig 映射为驱动配置
//
// 结果以文本形式读取（ParseTime 关闭），时间由 result.Row 按会话时区解析。
func mysqlConfig(cfg core.DBConfig, loc *time.Location) *mysql.Config {
	mc := mysql.NewConfig()
	mc.User = cfg.Username
	mc.Passwd = cfg.Password
	mc.Net = "tcp"
	mc.Addr = cfg.Addr()
	mc.DBName = cfg.Database
	mc.Loc = loc
	mc.Timeout = cfg.ConnectTimeout
	mc.ReadTimeout = cfg.ReadTimeout
	mc.WriteTimeout = cfg.WriteTimeout
	mc.ClientFoundRows = cfg.Flags.Has(core.FlagFoundRows)
	mc.MultiStatements = cfg.Flags.Has(core.FlagMultiStatements)
	mc.AllowCleartextPasswords = cfg.Flags.Has(core.FlagAllowCleartextPasswords)
	if cfg.Charset != "" {
		mc.Params = map[string]string{"charset": cfg.Charset}
	}
	return mc
}

// openDB 按方言打开 *sql.DB，不建立连接
func openDB(cfg core.DBConfig, d dialect.Dialect, loc *time.Location) (*sql.DB, error) {
	switch d.Name() {
	case dialect.NameMySQL:
		// charset 只有经过 DSN 解析才会进入握手参数
		mc, err := mysql.ParseDSN(mysqlConfig(cfg, loc).FormatDSN())
		if err != nil {
			return nil, err
		}
		mc.Loc = loc
		connector, err := mysql.NewConnector(mc)
		if err != nil {
			return nil, err
		}
		return sql.OpenDB(connector), nil
	case dialect.NameSQLite:
		return sql.Open(d.DriverName(), cfg.Database)
	default:
		return nil, fmt.Errorf("unsupported driver %q", cfg.Driver)
	}
}

// textCell 把驱动返回的单元格读成文本。
//
// 对声明为 DATE/DATETIME/TIMESTAMP 的列，SQLite 驱动返回 time.Time，
// 这里按 DateLayout 输出，使其与 MySQL 文本结果一致。
type textCell struct {
	dst *sql.NullString
	loc *time.Location
}

func (c textCell) Scan(src any) error {
	t, ok := src.(time.Time)
	if !ok {
		return c.dst.Scan(src)
	}
	*c.dst = sql.NullString{String: dialect.EncodeDateLiteral(wallClock(t, c.loc)), Valid: true}
	return nil
}

// wallClock 不带时区的文本被驱动解析为 UTC，保留其墙上时间；
// 带时区偏移的值换算到会话时区
func wallClock(t time.Time, loc *time.Location) time.Time {
	if loc == nil || t.Location() == time.UTC {
		return t
	}
	return t.In(loc)
}

package dialect

import (
	"database/sql/driver"
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
	"modernc.org/sqlite"
)

// Name 标准化的数据库方言名称
type Name string

const (
	NameMySQL   Name = "mysql"
	NameSQLite  Name = "sqlite"
	NameUnknown Name = ""
)

// NoErrorCode 驱动没有给出错误码时使用的值
const NoErrorCode = -1

// Dialect 表示当前数据库的方言能力
//
// 只抽象本项目实际用到的能力：
//   - 标识符加引号、字符串字面量转义；
//   - INSERT IGNORE 关键字；
//   - 列出当前库中的表；
//   - 驱动错误码提取、连接断开识别、唯一键冲突识别。
type Dialect struct {
	name Name
}

// New 根据字符串构造方言（大小写不敏感）
func New(name string) Dialect {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "mysql", "mariadb":
		return Dialect{name: NameMySQL}
	case "sqlite", "sqlite3":
		return Dialect{name: NameSQLite}
	default:
		return Dialect{name: NameUnknown}
	}
}

// Name 返回标准化方言名
func (d Dialect) Name() Name {
	return d.name
}

// DriverName 返回 database/sql 注册的驱动名
func (d Dialect) DriverName() string {
	switch d.name {
	case NameMySQL:
		return "mysql"
	case NameSQLite:
		return "sqlite"
	default:
		return ""
	}
}

// QuoteIdentifier 根据方言对标识符进行转义（如表名/列名）。
//
// 约定：
//   - 支持 schema.table、table.column 等带点形式，会对每一段分别加引号；
//   - MySQL 使用反引号 `name`，SQLite 使用双引号 "name"；
//   - Unknown 方言返回原始字符串，不做修改。
//   - 该方法不负责校验标识符语法，仅负责按方言加引号。
func (d Dialect) QuoteIdentifier(name string) string {
	if name == "" {
		return ""
	}
	parts := strings.Split(name, ".")
	for i, p := range parts {
		if p == "" {
			continue
		}
		switch d.name {
		case NameMySQL:
			parts[i] = "`" + p + "`"
		case NameSQLite:
			parts[i] = `"` + p + `"`
		default:
			// 未知方言：保持原样
		}
	}
	return strings.Join(parts, ".")
}

// Escape 返回可直接嵌入单引号字符串字面量的文本
//
// MySQL 与 mysql_real_escape_string 的行为一致（反斜杠转义
// \0 \n \r \\ ' " 以及 Ctrl-Z）；SQLite 和未知方言只把单引号加倍，
// 反斜杠在标准 SQL 字符串中没有特殊含义。
func (d Dialect) Escape(s string) string {
	if d.name != NameMySQL {
		return strings.ReplaceAll(s, "'", "''")
	}
	var sb strings.Builder
	sb.Grow(len(s) + 8)
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case 0:
			sb.WriteString(`\0`)
		case '\n':
			sb.WriteString(`\n`)
		case '\r':
			sb.WriteString(`\r`)
		case '\\':
			sb.WriteString(`\\`)
		case '\'':
			sb.WriteString(`\'`)
		case '"':
			sb.WriteString(`\"`)
		case '\x1a':
			sb.WriteString(`\Z`)
		default:
			sb.WriteByte(c)
		}
	}
	return sb.String()
}

// EscapeAndQuote 转义并加上单引号
func (d Dialect) EscapeAndQuote(s string) string {
	return "'" + d.Escape(s) + "'"
}

// InsertKeyword 返回 INSERT 语句的起始关键字
func (d Dialect) InsertKeyword(ignore bool) string {
	if !ignore {
		return "INSERT"
	}
	switch d.name {
	case NameSQLite:
		return "INSERT OR IGNORE"
	default:
		return "INSERT IGNORE"
	}
}

// ListTablesQuery 返回列出当前库中所有表的语句，结果集第一列为表名
func (d Dialect) ListTablesQuery() string {
	switch d.name {
	case NameSQLite:
		return "SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name"
	default:
		return "SHOW TABLES"
	}
}

// ErrorCode 提取驱动错误码
//
//   - MySQL: MySQLError.Number（如 1146 表不存在、1062 唯一键冲突）；
//   - SQLite: 扩展结果码（如 1 SQLITE_ERROR、2067 SQLITE_CONSTRAINT_UNIQUE）；
//   - 其他错误返回 NoErrorCode。
func ErrorCode(err error) int {
	if err == nil {
		return 0
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return int(myErr.Number)
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		return liteErr.Code()
	}
	return NoErrorCode
}

// IsConnectionLoss 判断错误是否意味着底层连接已经不可用
func IsConnectionLoss(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, mysql.ErrInvalidConn)
}

// IsUniqueViolation 判断错误是否为唯一键/主键冲突
//
// 优先使用驱动错误码，识别不到时回退到错误消息关键字匹配。
//   - MySQL: 1062 (ER_DUP_ENTRY), 1586 (ER_DUP_ENTRY_WITH_KEY_NAME)
//   - SQLite: 2067 (SQLITE_CONSTRAINT_UNIQUE), 1555 (SQLITE_CONSTRAINT_PRIMARYKEY)
func (d Dialect) IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	switch ErrorCode(err) {
	case 1062, 1586, 2067, 1555:
		return true
	}
	msg := strings.ToLower(err.Error())
	switch d.name {
	case NameMySQL:
		return strings.Contains(msg, "duplicate entry") ||
			strings.Contains(msg, "duplicate key")
	case NameSQLite:
		return strings.Contains(msg, "unique constraint failed")
	default:
		// 对未知方言做宽松匹配，尽量不误判但宁可返回 false
		return strings.Contains(msg, "duplicate key") ||
			strings.Contains(msg, "unique constraint")
	}
}

package dialect

import "time"

// DateLayout 数据库日期时间字面量格式（YYYY-MM-DD HH:MM:SS）
const DateLayout = "2006-01-02 15:04:05"

// EncodeDateLiteral 按 DateLayout 格式化时间。
//
// 使用 t 自身的时区；读取端（result.Row.Time）按会话时区解析，
// 两端时区一致时往返结果精确到秒。
func EncodeDateLiteral(t time.Time) string {
	return t.Format(DateLayout)
}

// EncodeQuotedDateLiteral 同 EncodeDateLiteral，外加单引号
func EncodeQuotedDateLiteral(t time.Time) string {
	return "'" + EncodeDateLiteral(t) + "'"
}

// EncodeBooleanLiteral 布尔值编码为 "0" / "1"
func EncodeBooleanLiteral(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

// ParseDateLiteral 按 DateLayout 在 loc 中解析时间；
// 格式不符（包括 MySQL 的零值日期 0000-00-00 00:00:00）时 ok 为 false
func ParseDateLiteral(s string, loc *time.Location) (t time.Time, ok bool) {
	if loc == nil {
		loc = time.Local
	}
	t, err := time.ParseInLocation(DateLayout, s, loc)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

package result

import (
	"database/sql"
	"strconv"
	"strings"
	"time"

	core "rowkit/data/db"
	"rowkit/data/db/dialect"
)

// Epoch 时间字段为 NULL 或格式不符时返回的值
var Epoch = time.Unix(0, 0).UTC()

// NullText FieldAt 对 NULL 字段返回的显示文本
const NullText = "NULL"

// Row 结果集中一行的只读视图
//
// 复制 Row 不会复制行数据，副本共享同一份底层存储。
// 按位置访问的方法在位置越界时会 panic（与切片下标一致）；
// 按列名访问的方法（...By）在列名未知时返回 *db.FieldError。
//
// 非空访问器把 NULL 当作“没有信息”，返回类型零值（时间为 Epoch）；
// 可空访问器（Null...）当且仅当字段为 NULL 时返回 Valid=false，
// 否则返回与非空访问器相同的值。
type Row struct {
	rs    *ResultSet
	frame *frame
	vals  []sql.NullString
}

// Len 列数
func (r Row) Len() int {
	return len(r.vals)
}

// Values 返回本行全部原始值（副本）
func (r Row) Values() []sql.NullString {
	out := make([]sql.NullString, len(r.vals))
	copy(out, r.vals)
	return out
}

// Stale 所属结果集是否已重新执行或关闭；陈旧的 Row 仍读取取出时的数据
func (r Row) Stale() bool {
	return r.rs == nil || r.rs.frame != r.frame
}

// FieldIndex 把列名解析为位置
func (r Row) FieldIndex(name string) (int, error) {
	if r.frame == nil {
		return -1, core.UnknownField(name)
	}
	return r.frame.index(name)
}

// IsNull 第 i 列是否为 NULL
func (r Row) IsNull(i int) bool {
	return !r.vals[i].Valid
}

// IsNullBy 指定列是否为 NULL
func (r Row) IsNullBy(name string) (bool, error) {
	return byName(r, name, r.IsNull)
}

// FieldAt 返回第 i 列的原始文本，NULL 返回 "NULL"（用于展示）。
// 需要区分 NULL 与字面文本 "NULL" 时使用 IsNull 或 NullString。
func (r Row) FieldAt(i int) string {
	if !r.vals[i].Valid {
		return NullText
	}
	return r.vals[i].String
}

// FieldAtBy 按列名返回原始文本，NULL 返回 "NULL"
func (r Row) FieldAtBy(name string) (string, error) {
	return byName(r, name, r.FieldAt)
}

// ---- 转换规则 ----
//
// NULL 以空串参与转换：空串对数值类型是非法输入（得到 0），
// 对时间是非法输入（得到 Epoch），对字符串就是零值，
// 因此非空访问器对 NULL 的处理与对非法文本一致。

// integerText 只接受 0x 十六进制、前导 0 八进制与十进制写法。
// strconv 在基数 0 下还接受 0b、0o 前缀和 _ 分隔符，这些按非法输入处理。
func integerText(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if strings.ContainsRune(s, '_') {
		return "", false
	}
	digits := strings.TrimPrefix(strings.TrimPrefix(s, "-"), "+")
	if len(digits) > 1 && digits[0] == '0' {
		switch digits[1] {
		case 'b', 'B', 'o', 'O':
			return "", false
		}
	}
	return s, true
}

func parseSigned[T ~int16 | ~int32 | ~int64](bits int) func(string) T {
	return func(s string) T {
		s, ok := integerText(s)
		if !ok {
			return 0
		}
		v, err := strconv.ParseInt(s, 0, bits)
		if err != nil {
			return 0
		}
		return T(v)
	}
}

func parseUnsigned[T ~uint16 | ~uint32 | ~uint64](bits int) func(string) T {
	return func(s string) T {
		s, ok := integerText(s)
		if !ok {
			return 0
		}
		v, err := strconv.ParseUint(s, 0, bits)
		if err != nil {
			return 0
		}
		return T(v)
	}
}

var (
	toInt16  = parseSigned[int16](16)
	toInt32  = parseSigned[int32](32)
	toInt64  = parseSigned[int64](64)
	toUint16 = parseUnsigned[uint16](16)
	toUint32 = parseUnsigned[uint32](32)
	toUint64 = parseUnsigned[uint64](64)
)

func toChar(s string) byte {
	if s == "" {
		return 0
	}
	return s[0]
}

func toString(s string) string { return s }

func toFloat32(s string) float32 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 32)
	if err != nil {
		return 0
	}
	return float32(v)
}

func toFloat64(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return v
}

func (r Row) toTime(s string) time.Time {
	var loc *time.Location
	if r.frame != nil {
		loc = r.frame.loc
	}
	if t, ok := dialect.ParseDateLiteral(s, loc); ok {
		return t
	}
	return Epoch
}

func value[T any](r Row, i int, conv func(string) T) T {
	return conv(r.vals[i].String)
}

func nullable[T any](r Row, i int, conv func(string) T) sql.Null[T] {
	if !r.vals[i].Valid {
		return sql.Null[T]{}
	}
	return sql.Null[T]{V: value(r, i, conv), Valid: true}
}

func byName[T any](r Row, name string, get func(int) T) (T, error) {
	i, err := r.FieldIndex(name)
	if err != nil {
		var zero T
		return zero, err
	}
	return get(i), nil
}

// ---- int32 ----

func (r Row) Int32(i int) int32                  { return value(r, i, toInt32) }
func (r Row) NullInt32(i int) sql.Null[int32]    { return nullable(r, i, toInt32) }
func (r Row) Int32By(name string) (int32, error) { return byName(r, name, r.Int32) }
func (r Row) NullInt32By(name string) (sql.Null[int32], error) {
	return byName(r, name, r.NullInt32)
}

// ---- uint32 ----

func (r Row) Uint32(i int) uint32                  { return value(r, i, toUint32) }
func (r Row) NullUint32(i int) sql.Null[uint32]    { return nullable(r, i, toUint32) }
func (r Row) Uint32By(name string) (uint32, error) { return byName(r, name, r.Uint32) }
func (r Row) NullUint32By(name string) (sql.Null[uint32], error) {
	return byName(r, name, r.NullUint32)
}

// ---- int16 ----

func (r Row) Int16(i int) int16                  { return value(r, i, toInt16) }
func (r Row) NullInt16(i int) sql.Null[int16]    { return nullable(r, i, toInt16) }
func (r Row) Int16By(name string) (int16, error) { return byName(r, name, r.Int16) }
func (r Row) NullInt16By(name string) (sql.Null[int16], error) {
	return byName(r, name, r.NullInt16)
}

// ---- uint16 ----

func (r Row) Uint16(i int) uint16                  { return value(r, i, toUint16) }
func (r Row) NullUint16(i int) sql.Null[uint16]    { return nullable(r, i, toUint16) }
func (r Row) Uint16By(name string) (uint16, error) { return byName(r, name, r.Uint16) }
func (r Row) NullUint16By(name string) (sql.Null[uint16], error) {
	return byName(r, name, r.NullUint16)
}

// ---- char ----

// Char 返回文本的第一个字节
func (r Row) Char(i int) byte                  { return value(r, i, toChar) }
func (r Row) NullChar(i int) sql.Null[byte]    { return nullable(r, i, toChar) }
func (r Row) CharBy(name string) (byte, error) { return byName(r, name, r.Char) }
func (r Row) NullCharBy(name string) (sql.Null[byte], error) {
	return byName(r, name, r.NullChar)
}

// ---- int64 ----

func (r Row) Int64(i int) int64                  { return value(r, i, toInt64) }
func (r Row) NullInt64(i int) sql.Null[int64]    { return nullable(r, i, toInt64) }
func (r Row) Int64By(name string) (int64, error) { return byName(r, name, r.Int64) }
func (r Row) NullInt64By(name string) (sql.Null[int64], error) {
	return byName(r, name, r.NullInt64)
}

// ---- uint64 ----

func (r Row) Uint64(i int) uint64                  { return value(r, i, toUint64) }
func (r Row) NullUint64(i int) sql.Null[uint64]    { return nullable(r, i, toUint64) }
func (r Row) Uint64By(name string) (uint64, error) { return byName(r, name, r.Uint64) }
func (r Row) NullUint64By(name string) (sql.Null[uint64], error) {
	return byName(r, name, r.NullUint64)
}

// ---- string ----

// String 返回文本，NULL 返回空串
func (r Row) String(i int) string                  { return value(r, i, toString) }
func (r Row) NullString(i int) sql.Null[string]    { return nullable(r, i, toString) }
func (r Row) StringBy(name string) (string, error) { return byName(r, name, r.String) }
func (r Row) NullStringBy(name string) (sql.Null[string], error) {
	return byName(r, name, r.NullString)
}

// ---- float32 ----

func (r Row) Float32(i int) float32                  { return value(r, i, toFloat32) }
func (r Row) NullFloat32(i int) sql.Null[float32]    { return nullable(r, i, toFloat32) }
func (r Row) Float32By(name string) (float32, error) { return byName(r, name, r.Float32) }
func (r Row) NullFloat32By(name string) (sql.Null[float32], error) {
	return byName(r, name, r.NullFloat32)
}

// ---- float64 ----

func (r Row) Float64(i int) float64                  { return value(r, i, toFloat64) }
func (r Row) NullFloat64(i int) sql.Null[float64]    { return nullable(r, i, toFloat64) }
func (r Row) Float64By(name string) (float64, error) { return byName(r, name, r.Float64) }
func (r Row) NullFloat64By(name string) (sql.Null[float64], error) {
	return byName(r, name, r.NullFloat64)
}

// ---- time ----

// Time 按 YYYY-MM-DD HH:MM:SS 在会话时区中解析，NULL 或格式不符返回 Epoch
func (r Row) Time(i int) time.Time                  { return value(r, i, r.toTime) }
func (r Row) NullTime(i int) sql.Null[time.Time]    { return nullable(r, i, r.toTime) }
func (r Row) TimeBy(name string) (time.Time, error) { return byName(r, name, r.Time) }
func (r Row) NullTimeBy(name string) (sql.Null[time.Time], error) {
	return byName(r, name, r.NullTime)
}

package sql

import "strings"

// maxIdentifierLen MySQL 表名/列名的最大长度
const maxIdentifierLen = 64

// isSafeIdentifier 判断表名或列名能否不经转义直接加引号使用
//
// 接受 foo、bar_1 以及 schema.table 形式；每段以字母或下划线开头，
// 其余为字母、数字、下划线，且不超过 64 个字符。
// 引号、空格、分号等都会被拒绝，因此加引号后不可能逃逸出标识符。
func isSafeIdentifier(name string) bool {
	if name == "" {
		return false
	}
	for _, part := range strings.Split(name, ".") {
		if part == "" || len(part) > maxIdentifierLen || !isIdentStart(part[0]) {
			return false
		}
		for i := 1; i < len(part); i++ {
			if !isIdentStart(part[i]) && !(part[i] >= '0' && part[i] <= '9') {
				return false
			}
		}
	}
	return true
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

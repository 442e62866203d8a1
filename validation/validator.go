package validation

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"rowkit/errors"
)

// hostRegex 主机名或 IPv4/IPv6 字面量（宽松匹配，只拦截明显错误的输入）
var hostRegex = regexp.MustCompile(`^[a-zA-Z0-9._:\-\[\]]+$`)

// ValidateRequired 验证必填字段
func ValidateRequired(value, fieldName string) error {
	if strings.TrimSpace(value) == "" {
		return errors.NewError(errors.ErrCodeValidation,
			fmt.Sprintf("%s不能为空", fieldName))
	}
	return nil
}

// ValidateIntRange 验证整数范围
func ValidateIntRange(value int, fieldName string, min, max int) error {
	if value < min {
		return errors.NewError(errors.ErrCodeValidation,
			fmt.Sprintf("%s不能小于%d（当前%d）", fieldName, min, value))
	}
	if value > max {
		return errors.NewError(errors.ErrCodeValidation,
			fmt.Sprintf("%s不能大于%d（当前%d）", fieldName, max, value))
	}
	return nil
}

// ValidateNonNegativeDuration 验证时长不为负
func ValidateNonNegativeDuration(value time.Duration, fieldName string) error {
	if value < 0 {
		return errors.NewError(errors.ErrCodeValidation,
			fmt.Sprintf("%s不能为负数（当前%s）", fieldName, value))
	}
	return nil
}

// ValidateHost 验证主机名格式
func ValidateHost(host string) error {
	if err := ValidateRequired(host, "主机"); err != nil {
		return err
	}
	if !hostRegex.MatchString(host) {
		return errors.NewError(errors.ErrCodeValidation,
			fmt.Sprintf("主机格式不正确: %q", host))
	}
	return nil
}

// ValidateEnum 验证枚举值
func ValidateEnum(value, fieldName string, validValues []string) error {
	for _, valid := range validValues {
		if value == valid {
			return nil
		}
	}
	return errors.NewError(errors.ErrCodeValidation,
		fmt.Sprintf("%s的值无效，必须是以下之一: %v", fieldName, validValues))
}

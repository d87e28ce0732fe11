package utils

import (
	"net/mail"
	"regexp"
	"strings"
	"unicode"
)

const (
	// MaxTitleLength 任务标题最大长度
	MaxTitleLength = 255
	// MaxTextLength 描述、评论等长文本最大长度
	MaxTextLength = 10000
	// MinEstimatedHours 预估工时下限
	MinEstimatedHours = 0.5
	// MaxEstimatedHours 预估工时上限 (一周)
	MaxEstimatedHours = 168
	// MinPasswordLength 密码最短长度
	MinPasswordLength = 8
)

var idPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// SanitizeString 移除控制字符（保留换行符和制表符）
func SanitizeString(input string) string {
	var result strings.Builder
	for _, r := range input {
		if unicode.IsControl(r) && r != '\n' && r != '\t' {
			continue
		}
		result.WriteRune(r)
	}
	return result.String()
}

// ValidateTaskID 验证任务 ID 格式
func ValidateTaskID(id string) error {
	// 1. 检查是否为空
	if id == "" {
		return ErrEmptyID
	}

	// 2. 检查格式（只允许字母、数字、连字符、下划线）
	if !idPattern.MatchString(id) {
		return ErrInvalidIDFormat
	}

	// 3. 检查长度（最大 64 字符）
	if len(id) > 64 {
		return ErrIDTooLong
	}

	return nil
}

// ValidateTitle 清理并验证任务标题
func ValidateTitle(title string) (string, error) {
	trimmed, err := TrimAndValidate(title, MaxTitleLength)
	if err != nil {
		return "", &ValidationError{Code: "INVALID_TITLE", Field: "title", Message: "title " + err.Error()}
	}
	return trimmed, nil
}

// ValidateEstimatedHours 预估工时必须在 [0.5, 168] 范围内
func ValidateEstimatedHours(hours *float64) error {
	if hours == nil {
		return nil
	}
	if *hours < MinEstimatedHours || *hours > MaxEstimatedHours {
		return ErrInvalidHours
	}
	return nil
}

// ValidateEmail 验证邮箱格式
func ValidateEmail(email string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return ErrInvalidEmail
	}
	return nil
}

// ValidatePassword 验证密码强度
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return ErrWeakPassword
	}
	return nil
}

// TrimAndValidate 清理并验证字符串
func TrimAndValidate(s string, maxLen int) (string, error) {
	// 1. 去除首尾空白字符
	trimmed := strings.TrimSpace(s)

	// 2. 检查是否为空
	if trimmed == "" {
		return "", ErrEmptyString
	}

	// 3. 检查长度
	if maxLen > 0 && len([]rune(trimmed)) > maxLen {
		return "", ErrStringTooLong
	}

	// 4. 清理控制字符
	return SanitizeString(trimmed), nil
}

// 错误定义
var (
	ErrEmptyID         = &ValidationError{Code: "EMPTY_ID", Field: "id", Message: "id cannot be empty"}
	ErrInvalidIDFormat = &ValidationError{Code: "INVALID_ID_FORMAT", Field: "id", Message: "id contains invalid characters"}
	ErrIDTooLong       = &ValidationError{Code: "ID_TOO_LONG", Field: "id", Message: "id exceeds maximum length"}
	ErrEmptyString     = &ValidationError{Code: "EMPTY_STRING", Message: "cannot be empty"}
	ErrStringTooLong   = &ValidationError{Code: "STRING_TOO_LONG", Message: "exceeds maximum length"}
	ErrInvalidHours    = &ValidationError{Code: "INVALID_HOURS", Field: "estimatedHours", Message: "estimated hours must be between 0.5 and 168"}
	ErrInvalidEmail    = &ValidationError{Code: "INVALID_EMAIL", Field: "email", Message: "invalid email address"}
	ErrWeakPassword    = &ValidationError{Code: "WEAK_PASSWORD", Field: "password", Message: "password must be at least 8 characters"}
)

// ValidationError 验证错误
type ValidationError struct {
	Code    string
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

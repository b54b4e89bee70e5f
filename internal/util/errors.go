package util

import (
	"errors"
	"fmt"
)

// 错误类别哨兵：controller 通过 errors.Is 映射为 HTTP 状态码
var (
	ErrValidation       = errors.New("invalid input")
	ErrPermissionDenied = errors.New("permission denied")
	ErrNotFound         = errors.New("not found")
	ErrStorage          = errors.New("storage failure")
)

var (
	ErrQuizNotFound  = fmt.Errorf("quiz %w", ErrNotFound)
	ErrClassNotFound = fmt.Errorf("class %w", ErrNotFound)
	ErrUserNotFound  = fmt.Errorf("user %w", ErrNotFound)
)

func Validationf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// Storagef 包装底层数据库错误，调用方已完成回滚
func Storagef(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrStorage, op, err)
}

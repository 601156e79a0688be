package errors

import (
	"errors"
	"strings"
)

// ErrOptimisticLock 乐观锁冲突：条件更新未命中任何行（记录已被其他操作修改）
var ErrOptimisticLock = errors.New("数据已被其他操作修改，请刷新后重试")

// Kind 业务错误类别，由调用层映射为传输层状态码
type Kind string

const (
	KindNotFound   Kind = "not_found"
	KindConflict   Kind = "conflict"
	KindForbidden  Kind = "forbidden"
	KindValidation Kind = "validation"
)

// Error 带类别与稳定业务码的错误
// 同一业务码的错误通过 errors.Is 视为相等，WithFields 派生出的副本仍可匹配原哨兵
type Error struct {
	Kind    Kind
	Code    int
	Message string
	Fields  []string
}

// New 创建业务错误（通常作为包级哨兵变量）
func New(kind Kind, code int, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

func (e *Error) Error() string {
	if len(e.Fields) == 0 {
		return e.Message
	}
	return e.Message + ": " + strings.Join(e.Fields, ", ")
}

// Is 按业务码比较
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// WithFields 返回附带字段列表的副本，原哨兵不被修改
func (e *Error) WithFields(fields ...string) *Error {
	cp := *e
	cp.Fields = append([]string(nil), fields...)
	return &cp
}

// As 提取错误链中的业务错误
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf 返回错误类别；非业务错误返回 ok=false
func KindOf(err error) (Kind, bool) {
	if e, ok := As(err); ok {
		return e.Kind, true
	}
	return "", false
}

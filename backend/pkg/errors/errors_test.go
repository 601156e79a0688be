package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestError_IsMatchesByCode(t *testing.T) {
	sentinel := New(KindForbidden, 20003, "无权修改字段")
	derived := sentinel.WithFields("full_name", "email")

	if !errors.Is(derived, sentinel) {
		t.Fatal("带字段的副本应匹配原哨兵")
	}
	if len(sentinel.Fields) != 0 {
		t.Errorf("原哨兵不应被修改，实际 Fields=%v", sentinel.Fields)
	}
	if derived.Error() != "无权修改字段: full_name, email" {
		t.Errorf("错误文本不符: %s", derived.Error())
	}

	other := New(KindForbidden, 20004, "另一个错误")
	if errors.Is(derived, other) {
		t.Error("不同业务码不应匹配")
	}
}

func TestKindOf_Wrapped(t *testing.T) {
	sentinel := New(KindConflict, 21002, "时间段已被预约")
	wrapped := fmt.Errorf("book: %w", sentinel)

	kind, ok := KindOf(wrapped)
	if !ok || kind != KindConflict {
		t.Errorf("期望 KindConflict，实际=%s ok=%v", kind, ok)
	}

	if _, ok := KindOf(errors.New("plain")); ok {
		t.Error("普通错误不应有类别")
	}
}

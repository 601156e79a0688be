package validate

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

const (
	DateLayout  = "2006-01-02"
	ClockLayout = "15:04"
)

// IsDate 校验 YYYY-MM-DD 且为真实日期
func IsDate(s string) bool {
	if len(s) != len(DateLayout) {
		return false
	}
	_, err := time.Parse(DateLayout, s)
	return err == nil
}

// IsClock 校验 HH:MM（24 小时制）
func IsClock(s string) bool {
	if len(s) != len(ClockLayout) {
		return false
	}
	_, err := time.Parse(ClockLayout, s)
	return err == nil
}

// ClockBefore a 早于 b（两者均须为合法 HH:MM）
func ClockBefore(a, b string) bool {
	return IsClock(a) && IsClock(b) && a < b
}

// Register 向 gin 的 validator 注册自定义标签：slotdate、clock
func Register() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return fmt.Errorf("gin 校验引擎不是 validator/v10")
	}
	return RegisterOn(v)
}

// RegisterOn 在指定 validator 实例上注册自定义标签
func RegisterOn(v *validator.Validate) error {
	if err := v.RegisterValidation("slotdate", func(fl validator.FieldLevel) bool {
		return IsDate(fl.Field().String())
	}); err != nil {
		return err
	}
	return v.RegisterValidation("clock", func(fl validator.FieldLevel) bool {
		return IsClock(fl.Field().String())
	})
}

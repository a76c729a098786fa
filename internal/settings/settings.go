// Package settings 解析活动的模式配置。配置以 JSON 存储，加载时一次性校验为强类型结构。
package settings

import (
	"assessment_engine_backend/internal/model"
	"assessment_engine_backend/internal/util"
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Settings 三种模式配置的公共视图
type Settings interface {
	Mode() model.ActivityMode
	// TimeLimit 为 0 表示不限时
	TimeLimit() time.Duration
	AttemptLimit() int
	PassMark() float64
}

var validate = validator.New()

// Parse 按模式解析并校验配置，缺省值在校验前填充
func Parse(mode model.ActivityMode, raw []byte) (Settings, error) {
	if len(bytes.TrimSpace(raw)) == 0 || string(bytes.TrimSpace(raw)) == "null" {
		return nil, util.ValidationError("missing %s settings", mode)
	}

	var s interface {
		Settings
		applyDefaults()
		check() error
	}
	switch mode {
	case model.ModeExam:
		s = &ExamSettings{}
	case model.ModeCase:
		s = &CaseSettings{}
	case model.ModeInquiry:
		s = &InquirySettings{}
	default:
		return nil, util.ValidationError("unknown activity mode %q", mode)
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(s); err != nil {
		return nil, util.WrapValidation(fmt.Sprintf("malformed %s settings", mode), err)
	}

	s.applyDefaults()
	if err := validate.Struct(s); err != nil {
		return nil, util.WrapValidation(describe(mode, err), err)
	}
	if err := s.check(); err != nil {
		return nil, err
	}
	return s, nil
}

// MustParse 仅用于测试和内置数据
func MustParse(mode model.ActivityMode, raw string) Settings {
	s, err := Parse(mode, []byte(raw))
	if err != nil {
		panic(err)
	}
	return s
}

// ForActivity 解析活动上存储的配置
func ForActivity(a *model.Activity) (Settings, error) {
	return Parse(a.Mode, a.Settings)
}

func describe(mode model.ActivityMode, err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return fmt.Sprintf("invalid %s settings", mode)
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fmt.Sprintf("%s(%s)", fe.Namespace(), fe.Tag()))
	}
	return fmt.Sprintf("invalid %s settings: %s", mode, strings.Join(fields, ", "))
}

func minutes(n int) time.Duration {
	return time.Duration(n) * time.Minute
}

func boolOr(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}

func floatPtr(f float64) *float64 {
	return &f
}

package ez

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"regexp"
	"strings"
	"sync"
	"unicode"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"ons-backend/internal/domain"
	"ons-backend/pkg/utils"
)

var (
	registerOnce sync.Once
	hhmmPattern  = regexp.MustCompile(`^([0-1]?[0-9]|2[0-3]):[0-5][0-9]$`)
)

// RegisterValidators 给 gin 的校验器挂自定义标签，字段名取 json/form 标签
func RegisterValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(fieldName)
		_ = v.RegisterValidation("hhmm", func(fl validator.FieldLevel) bool {
			return hhmmPattern.MatchString(fl.Field().String())
		})
		_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
			s := fl.Field().String()
			return s == "" || utils.LooksLikePhone(s)
		})
		_ = v.RegisterValidation("password", func(fl validator.FieldLevel) bool {
			return strongPassword(fl.Field().String())
		})
		_ = v.RegisterValidation("contenttype", func(fl validator.FieldLevel) bool {
			return domain.ValidContentType(strings.ToUpper(fl.Field().String()))
		})
		_ = v.RegisterValidation("mediatype", func(fl validator.FieldLevel) bool {
			switch strings.ToUpper(fl.Field().String()) {
			case domain.MediaImage, domain.MediaVideo, domain.MediaDocument:
				return true
			}
			return false
		})
	})
}

func fieldName(f reflect.StructField) string {
	for _, tag := range []string{"json", "form", "uri"} {
		name := strings.SplitN(f.Tag.Get(tag), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name != "" {
			return name
		}
	}
	return f.Name
}

// strongPassword 至少一个字母和一个数字
func strongPassword(s string) bool {
	var letter, digit bool
	for _, r := range s {
		switch {
		case unicode.IsLetter(r):
			letter = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	return letter && digit
}

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Tag     string `json:"tag"`
}

// bindError 绑定/校验失败统一转成 400 VALIDATION_ERROR
func bindError(err error) error {
	var mbe *http.MaxBytesError
	if errors.As(err, &mbe) {
		return err
	}
	var ves validator.ValidationErrors
	if errors.As(err, &ves) {
		details := make([]FieldError, 0, len(ves))
		for _, fe := range ves {
			details = append(details, FieldError{Field: fe.Field(), Message: fieldMessage(fe), Tag: fe.Tag()})
		}
		return Invalid("Validation failed", details)
	}
	var te *json.UnmarshalTypeError
	if errors.As(err, &te) {
		return Invalid("Validation failed", []FieldError{{
			Field: te.Field, Message: fmt.Sprintf("%s must be of type %s", te.Field, te.Type.String()), Tag: "type",
		}})
	}
	return Invalid("Invalid request: "+err.Error(), nil)
}

func fieldMessage(fe validator.FieldError) string {
	f := fe.Field()
	isText := fe.Kind() == reflect.String
	switch fe.Tag() {
	case "required":
		return f + " is required"
	case "email":
		return f + " must be a valid email address"
	case "min":
		if isText {
			return fmt.Sprintf("%s must be at least %s characters", f, fe.Param())
		}
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("%s must contain at least %s items", f, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", f, fe.Param())
	case "max":
		if isText {
			return fmt.Sprintf("%s must be at most %s characters", f, fe.Param())
		}
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("%s must contain at most %s items", f, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s", f, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", f, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", f, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "url":
		return f + " must be a valid URL"
	case "uuid":
		return f + " must be a valid UUID"
	case "hhmm":
		return f + " must be in HH:MM format"
	case "phone":
		return f + " must be a valid phone number"
	case "password":
		return f + " must contain at least one letter and one number"
	case "contenttype":
		return f + " must be one of: ANNOUNCEMENT, NEWS, EVENT"
	case "mediatype":
		return f + " must be one of: image, video, document"
	default:
		return fmt.Sprintf("%s failed on %s", f, fe.Tag())
	}
}

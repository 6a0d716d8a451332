package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"ons-backend/internal/domain"
	"ons-backend/internal/transport/http/ez"
)

// Guards 路由级中间件，由 router 组装后注入；为 nil 的项跳过
type Guards struct {
	Auth              gin.HandlerFunc
	OptionalAuth      gin.HandlerFunc
	AuthLimit         gin.HandlerFunc
	UploadLimit       gin.HandlerFunc
	RegistrationLimit gin.HandlerFunc
}

func chain(hs ...gin.HandlerFunc) []gin.HandlerFunc {
	out := make([]gin.HandlerFunc, 0, len(hs))
	for _, h := range hs {
		if h != nil {
			out = append(out, h)
		}
	}
	return out
}

var staff = []string{domain.RoleEditor, domain.RoleAdmin}

type pageQ struct {
	Page  int `form:"page" binding:"omitempty,min=1"`
	Limit int `form:"limit" binding:"omitempty,min=1,max=100"`
}

func (q pageQ) page(def int) domain.Page { return domain.NewPage(q.Page, q.Limit, def) }

// parseDate 接受 RFC3339 或 YYYY-MM-DD（按本地零点），统一转成 UTC
func parseDate(field, s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, ez.Invalid("Validation failed", []ez.FieldError{{Field: field, Message: field + " must be a valid date", Tag: "date"}})
}

type idOut struct {
	ID string `json:"id"`
}

package response

import (
	"time"

	"ons-backend/internal/domain"
)

type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
	HasNext    bool  `json:"hasNext"`
	HasPrev    bool  `json:"hasPrev"`
}

func NewPagination(p domain.Page, total int64) *Pagination {
	return &Pagination{
		Page:       p.Page,
		Limit:      p.Limit,
		Total:      total,
		TotalPages: p.TotalPages(total),
		HasNext:    p.HasNext(total),
		HasPrev:    p.HasPrev(),
	}
}

type Resp struct {
	Success    bool        `json:"success"`
	Data       any         `json:"data,omitempty"`
	Pagination *Pagination `json:"pagination,omitempty"`
	Message    string      `json:"message,omitempty"`
	Error      *ErrorBody  `json:"error,omitempty"`
	Timestamp  string      `json:"timestamp"`
}

func now() string { return time.Now().UTC().Format(time.RFC3339Nano) }

// OK 成功响应（保证 data 不为 null）
func OK(data any) Resp {
	if data == nil {
		data = struct{}{}
	}
	return Resp{Success: true, Data: data, Timestamp: now()}
}

// Paged 列表响应，data 为条目数组
func Paged(items any, p domain.Page, total int64) Resp {
	r := OK(items)
	r.Pagination = NewPagination(p, total)
	return r
}

func Message(msg string) Resp {
	r := OK(nil)
	r.Message = msg
	return r
}

// Error 失败响应（msg 为空时用默认提示）
func Error(code, msg string) Resp {
	return ErrorWithDetails(code, msg, nil)
}

func ErrorWithDetails(code, msg string, details any) Resp {
	if msg == "" {
		msg = CodeMsgMap[code]
	}
	return Resp{Error: &ErrorBody{Code: code, Message: msg, Details: details}, Timestamp: now()}
}

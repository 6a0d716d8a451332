package ez

import (
	"errors"
	"net/http"

	"ons-backend/internal/domain"
	resp "ons-backend/internal/transport/http/response"
)

// AErr 动作错误：HTTP 状态 + 字符串错误码
type AErr struct {
	Status  int
	Code    string
	Msg     string
	Details any
	Err     error
}

func (e *AErr) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "action error"
}

func (e *AErr) Unwrap() error { return e.Err }

func (e *AErr) Body() resp.Resp {
	msg := e.Msg
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	return resp.ErrorWithDetails(e.Code, msg, e.Details)
}

func New(status int, code, msg string) *AErr { return &AErr{Status: status, Code: code, Msg: msg} }

func BadRequest(code, msg string) error { return New(http.StatusBadRequest, code, msg) }
func Unauthorized(msg string) error     { return New(http.StatusUnauthorized, resp.CodeUnauthorized, msg) }
func Forbidden(msg string) error        { return New(http.StatusForbidden, resp.CodeForbidden, msg) }
func NotFound(msg string) error         { return New(http.StatusNotFound, resp.CodeNotFound, msg) }
func Invalid(msg string, details any) error {
	return &AErr{Status: http.StatusBadRequest, Code: resp.CodeValidation, Msg: msg, Details: details}
}
func Internal(msg string, err error) error {
	return &AErr{Status: http.StatusInternalServerError, Code: resp.CodeInternal, Msg: msg, Err: err}
}

type mapping struct {
	target error
	status int
	code   string
}

// 顺序有意义：更具体的哨兵放在前面
var domainErrors = []mapping{
	{domain.ErrTokenExpired, http.StatusUnauthorized, resp.CodeTokenExpired},
	{domain.ErrInvalidToken, http.StatusUnauthorized, resp.CodeInvalidToken},
	{domain.ErrInvalidCredentials, http.StatusUnauthorized, resp.CodeUnauthorized},
	{domain.ErrAccountInactive, http.StatusUnauthorized, resp.CodeAccountDeactivated},
	{domain.ErrPasswordlessAccount, http.StatusUnauthorized, resp.CodeUnauthorized},
	{domain.ErrUnauthorized, http.StatusUnauthorized, resp.CodeUnauthorized},
	{domain.ErrForbidden, http.StatusForbidden, resp.CodeForbidden},
	{domain.ErrAccessDenied, http.StatusForbidden, resp.CodeAccessDenied},
	{domain.ErrNotFound, http.StatusNotFound, resp.CodeNotFound},
	{domain.ErrAlreadyRegistered, http.StatusConflict, resp.CodeAlreadyRegistered},
	{domain.ErrEmailTaken, http.StatusConflict, resp.CodeConflict},
	{domain.ErrConflict, http.StatusConflict, resp.CodeConflict},
	{domain.ErrEventFull, http.StatusBadRequest, resp.CodeEventFull},
	{domain.ErrRegistrationDisabled, http.StatusBadRequest, resp.CodeRegistrationDisabled},
	{domain.ErrRegistrationClosed, http.StatusBadRequest, resp.CodeRegistrationClosed},
	{domain.ErrUnsupportedType, http.StatusBadRequest, resp.CodeUnsupportedType},
	{domain.ErrFileTooLarge, http.StatusBadRequest, resp.CodeFileTooLarge},
	{domain.ErrValidation, http.StatusBadRequest, resp.CodeValidation},
	{domain.ErrStorageNotConfigured, http.StatusServiceUnavailable, resp.CodeStorageNotConfigured},
	{domain.ErrIdentityUnavailable, http.StatusServiceUnavailable, resp.CodeInternal},
}

// FromDomain 把业务错误映射为 AErr；无法识别的一律 500，且不向外暴露原始信息
func FromDomain(err error) *AErr {
	var ae *AErr
	if errors.As(err, &ae) {
		return ae
	}
	var mbe *http.MaxBytesError
	if errors.As(err, &mbe) {
		return &AErr{Status: http.StatusRequestEntityTooLarge, Code: resp.CodePayloadTooLarge, Msg: resp.CodeMsgMap[resp.CodePayloadTooLarge], Err: err}
	}
	for _, m := range domainErrors {
		if errors.Is(err, m.target) {
			return &AErr{Status: m.status, Code: m.code, Msg: err.Error(), Err: err}
		}
	}
	return &AErr{Status: http.StatusInternalServerError, Code: resp.CodeInternal, Msg: resp.CodeMsgMap[resp.CodeInternal], Err: err}
}

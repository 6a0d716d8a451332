package domain

import "errors"

// 业务层哨兵错误，HTTP 层统一映射为状态码 + 错误码
var (
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
	ErrConflict     = errors.New("conflict")
	ErrValidation   = errors.New("validation failed")

	ErrInvalidCredentials  = errors.New("invalid email or password")
	ErrAccountInactive     = errors.New("account is deactivated")
	ErrPasswordlessAccount = errors.New("please use social login for this account")
	ErrEmailTaken          = errors.New("user with this email already exists")
	ErrTokenExpired        = errors.New("token expired")
	ErrInvalidToken        = errors.New("invalid token")

	ErrRegistrationDisabled = errors.New("registration is not enabled for this event")
	ErrRegistrationClosed   = errors.New("registration deadline has passed")
	ErrEventFull            = errors.New("event is full")
	ErrAlreadyRegistered    = errors.New("email is already registered for this event")

	ErrUnsupportedType      = errors.New("unsupported file type")
	ErrFileTooLarge         = errors.New("file too large")
	ErrAccessDenied         = errors.New("access denied")
	ErrStorageNotConfigured = errors.New("object storage is not configured")
	ErrIdentityUnavailable  = errors.New("identity provider is not configured")
)

// InvalidError 携带面向调用方的描述，errors.Is(err, ErrValidation) 成立
type InvalidError struct {
	Msg string
}

func (e *InvalidError) Error() string { return e.Msg }
func (e *InvalidError) Unwrap() error { return ErrValidation }

func Invalid(msg string) error { return &InvalidError{Msg: msg} }

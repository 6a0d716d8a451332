package response

// 错误码（字符串，前端按码分支）
const (
	CodeValidation           = "VALIDATION_ERROR"
	CodeUnauthorized         = "UNAUTHORIZED"
	CodeTokenExpired         = "TOKEN_EXPIRED"
	CodeInvalidToken         = "INVALID_TOKEN"
	CodeAccountDeactivated   = "ACCOUNT_DEACTIVATED"
	CodeForbidden            = "FORBIDDEN"
	CodeAccessDenied         = "ACCESS_DENIED"
	CodeNotFound             = "NOT_FOUND"
	CodeConflict             = "CONFLICT"
	CodeAlreadyRegistered    = "ALREADY_REGISTERED"
	CodeEventFull            = "EVENT_FULL"
	CodeRegistrationDisabled = "REGISTRATION_DISABLED"
	CodeRegistrationClosed   = "REGISTRATION_CLOSED"
	CodeUnsupportedType      = "UNSUPPORTED_TYPE"
	CodeFileTooLarge         = "FILE_TOO_LARGE"
	CodeStorageNotConfigured = "STORAGE_NOT_CONFIGURED"
	CodeRateLimited          = "RATE_LIMIT_EXCEEDED"
	CodePayloadTooLarge      = "PAYLOAD_TOO_LARGE"
	CodeServiceBusy          = "SERVICE_BUSY"
	CodeTimeout              = "TIMEOUT"
	CodeInternal             = "INTERNAL_ERROR"
)

// CodeMsgMap 各错误码的默认提示
var CodeMsgMap = map[string]string{
	CodeValidation:           "Validation failed",
	CodeUnauthorized:         "Authentication required",
	CodeTokenExpired:         "Token has expired",
	CodeInvalidToken:         "Invalid token",
	CodeAccountDeactivated:   "Account is deactivated",
	CodeForbidden:            "Insufficient permissions",
	CodeAccessDenied:         "Access denied",
	CodeNotFound:             "Resource not found",
	CodeConflict:             "Resource already exists",
	CodeRateLimited:          "Too many requests, please try again later",
	CodePayloadTooLarge:      "Request body too large",
	CodeServiceBusy:          "Server busy",
	CodeTimeout:              "Request timed out",
	CodeInternal:             "Internal server error",
	CodeStorageNotConfigured: "Object storage is not configured",
}

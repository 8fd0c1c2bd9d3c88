package agent

import (
	internaljwt "support-hub-backend/internal/jwt"
	"support-hub-backend/internal/model"
)

type ErrorCode string

const (
	ErrorCodeValidation   ErrorCode = "validation_error"
	ErrorCodeUnauthorized ErrorCode = "unauthorized"
	ErrorCodeNotFound     ErrorCode = "not_found"
	ErrorCodeConflict     ErrorCode = "conflict"
	ErrorCodeInternal     ErrorCode = "internal_error"
)

type Error struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(code ErrorCode, message string, err error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

type RegisterParams struct {
	TenantID      string
	Name          string
	Email         string
	Password      string
	MaxConcurrent int
	Priority      int
	Skills        []string
}

type LoginParams struct {
	TenantID string
	Email    string
	Password string
}

type Identity struct {
	AgentID  string
	TenantID string
	Email    string
}

type AuthResult struct {
	Agent  model.AgentItem
	Tenant model.TenantItem
	Tokens internaljwt.TokenResponse
}

type PreferencesInput struct {
	NotifyOnStandard *bool
	NotifyOnHigh     *bool
	NotifyOnCritical *bool
	PushEnabled      *bool
	AudioEnabled     *bool
	EmailEnabled     *bool
}

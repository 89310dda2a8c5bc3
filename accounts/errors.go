package accounts

import (
	"context"
	"errors"

	"github.com/warp/finhub/generic"
)

// Code identifies an authentication failure.
type Code string

const (
	CodeEmailInUse        Code = "auth/email-already-in-use"
	CodeMaxUsers          Code = "auth/max-users"
	CodeInvalidCredential Code = "auth/invalid-credential"
	CodeUserNotFound      Code = "auth/user-not-found"
	CodeTooManyRequests   Code = "auth/too-many-requests"
	CodeNetworkFailed     Code = "auth/network-request-failed"
	CodeUnauthenticated   Code = "auth/unauthenticated"
)

// Error is an auth failure. Two Errors match under errors.Is when their
// codes are equal.
type Error struct {
	Code Code
}

func (e *Error) Error() string {
	return string(e.Code)
}

func (e *Error) Is(target error) bool {
	var other *Error
	return errors.As(target, &other) && other.Code == e.Code
}

var (
	ErrEmailInUse        = &Error{Code: CodeEmailInUse}
	ErrMaxUsers          = &Error{Code: CodeMaxUsers}
	ErrInvalidCredential = &Error{Code: CodeInvalidCredential}
	ErrUserNotFound      = &Error{Code: CodeUserNotFound}
	ErrTooManyRequests   = &Error{Code: CodeTooManyRequests}
	ErrNetworkFailed     = &Error{Code: CodeNetworkFailed}
	ErrUnauthenticated   = &Error{Code: CodeUnauthenticated}
)

// CodeOf extracts the auth code, or "" for other errors.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return CodeNetworkFailed
	}
	return ""
}

// Operation names the form an error message is for.
type Operation string

const (
	OpSignup Operation = "signup"
	OpLogin  Operation = "login"
	OpReset  Operation = "reset"
)

var fallbackMessages = map[Operation]string{
	OpSignup: "Sign up failed.",
	OpLogin:  "Login failed.",
	OpReset:  "Failed to send reset email.",
}

// MessageFor returns the sentence to show for err on the given form.
func MessageFor(op Operation, err error) string {
	if err == nil {
		return ""
	}
	var ve *generic.ValidationError
	if errors.As(err, &ve) {
		return ve.Message
	}

	switch CodeOf(err) {
	case CodeTooManyRequests:
		return "Too many attempts. Please try again later."
	case CodeNetworkFailed:
		return "Network error. Check your connection."
	case CodeEmailInUse:
		if op == OpSignup {
			return "This email is already registered."
		}
	case CodeMaxUsers:
		if op == OpSignup {
			return "Maximum number of accounts reached."
		}
	case CodeInvalidCredential:
		if op == OpLogin {
			return "Invalid email or password."
		}
	case CodeUserNotFound:
		switch op {
		case OpLogin:
			return "Invalid email or password."
		case OpReset:
			return "No account found for this email."
		}
	}

	if msg, ok := fallbackMessages[op]; ok {
		return msg
	}
	return "Something went wrong."
}

package auth

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingField is returned when a required request field is absent.
	ErrMissingField = errors.New("missing required field")
	// ErrInvalidCredentials is returned when the password does not match.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidOTP is returned when a code is wrong, expired or not pending.
	ErrInvalidOTP = errors.New("invalid or expired OTP")
	// ErrAlreadyVerified is returned when verification is requested for an
	// already verified destination.
	ErrAlreadyVerified = errors.New("already verified")
	// ErrDispatchFailed is returned when the notification collaborator could
	// not deliver a code.
	ErrDispatchFailed = errors.New("failed to send OTP")
)

// ThrottledError signals that an OTP resend came too soon after the previous
// issuance, with a hint for when to retry.
type ThrottledError struct {
	RetryAfterSeconds int64
}

func (e *ThrottledError) Error() string {
	return fmt.Sprintf("please wait before requesting another OTP (retry in %ds)", e.RetryAfterSeconds)
}

package account

import "errors"

var (
	// ErrDuplicateIdentity is returned when the email or mobile number is
	// already registered.
	ErrDuplicateIdentity = errors.New("email or mobile number already registered")
	// ErrInvalidReferral is returned when a supplied referral code does not
	// resolve to an existing account.
	ErrInvalidReferral = errors.New("invalid referral code")
	// ErrNotFound is returned when no account matches the lookup key.
	ErrNotFound = errors.New("account not found")
)

// Package otp issues and checks the short-lived numeric codes used for mobile
// verification and OTP login. Codes live on the account record; this package
// is pure over that state and leaves persistence to the caller.
package otp

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/coursemart/coursemart/internal/account"
)

const (
	codeMin = 100000
	codeMax = 999999

	// DefaultTTL is how long an issued code stays valid.
	DefaultTTL = 15 * time.Minute
	// DefaultResendWait is the minimum gap between two issuances for the
	// same account.
	DefaultResendWait = 60 * time.Second
)

// Issuer generates and verifies single-use codes with a fixed TTL.
type Issuer struct {
	ttl        time.Duration
	resendWait time.Duration
	now        func() time.Time
}

// NewIssuer builds an issuer. Zero durations fall back to the defaults.
func NewIssuer(ttl, resendWait time.Duration) *Issuer {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if resendWait <= 0 {
		resendWait = DefaultResendWait
	}
	return &Issuer{ttl: ttl, resendWait: resendWait, now: time.Now}
}

// Issue produces a fresh 6-digit code with an absolute expiry. The returned
// state overwrites any previously pending code.
func (i *Issuer) Issue() (account.OTPState, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(codeMax-codeMin+1))
	if err != nil {
		return account.OTPState{}, fmt.Errorf("generate otp: %w", err)
	}
	return account.OTPState{
		Code:      fmt.Sprintf("%06d", n.Int64()+codeMin),
		ExpiresAt: i.now().Add(i.ttl).UTC(),
	}, nil
}

// Verify reports whether candidate matches the pending code and the code is
// still live. It mutates nothing; on success the caller clears the state.
func (i *Issuer) Verify(state account.OTPState, candidate string) bool {
	if !state.Pending() || candidate == "" {
		return false
	}
	if !i.now().Before(state.ExpiresAt) {
		return false
	}
	return state.Code == candidate
}

// RetryAfter reports whether a resend is throttled and, if so, how many
// seconds remain. Issue time is reconstructed as expiry minus TTL. With no
// pending code the throttle does not apply.
func (i *Issuer) RetryAfter(state account.OTPState) (int64, bool) {
	if !state.Pending() {
		return 0, false
	}
	issuedAt := state.ExpiresAt.Add(-i.ttl)
	elapsed := i.now().Sub(issuedAt)
	if elapsed >= i.resendWait {
		return 0, false
	}
	remaining := i.resendWait - elapsed
	secs := int64(remaining / time.Second)
	if remaining%time.Second != 0 {
		secs++
	}
	return secs, true
}

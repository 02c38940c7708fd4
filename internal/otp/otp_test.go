package otp

import (
	"testing"
	"time"

	"github.com/coursemart/coursemart/internal/account"
)

func fixedIssuer(t *testing.T, now time.Time) *Issuer {
	t.Helper()
	i := NewIssuer(DefaultTTL, DefaultResendWait)
	i.now = func() time.Time { return now }
	return i
}

func TestIssueProducesSixDigitCode(t *testing.T) {
	i := NewIssuer(0, 0)
	for n := 0; n < 50; n++ {
		state, err := i.Issue()
		if err != nil {
			t.Fatalf("issue: %v", err)
		}
		if len(state.Code) != 6 {
			t.Fatalf("expected 6-digit code, got %q", state.Code)
		}
		if state.Code < "100000" || state.Code > "999999" {
			t.Fatalf("code %q outside [100000, 999999]", state.Code)
		}
		if !state.Pending() {
			t.Fatal("issued state should be pending")
		}
	}
}

func TestIssueSetsExpiry(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	i := fixedIssuer(t, now)

	state, err := i.Issue()
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if !state.ExpiresAt.Equal(now.Add(15 * time.Minute)) {
		t.Fatalf("expected expiry %v, got %v", now.Add(15*time.Minute), state.ExpiresAt)
	}
}

func TestVerify(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	state := account.OTPState{Code: "123456", ExpiresAt: now.Add(15 * time.Minute)}

	cases := []struct {
		name      string
		state     account.OTPState
		candidate string
		at        time.Time
		want      bool
	}{
		{"match within window", state, "123456", now, true},
		{"match just before expiry", state, "123456", state.ExpiresAt.Add(-time.Second), true},
		{"wrong code", state, "654321", now, false},
		{"empty candidate", state, "", now, false},
		{"at expiry", state, "123456", state.ExpiresAt, false},
		{"after expiry", state, "123456", state.ExpiresAt.Add(time.Minute), false},
		{"no pending code", account.OTPState{}, "123456", now, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			i := fixedIssuer(t, tc.at)
			if got := i.Verify(tc.state, tc.candidate); got != tc.want {
				t.Fatalf("Verify = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestVerifyIsSideEffectFree(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	i := fixedIssuer(t, now)
	state := account.OTPState{Code: "123456", ExpiresAt: now.Add(15 * time.Minute)}

	if !i.Verify(state, "123456") {
		t.Fatal("first verify should succeed")
	}
	// State is untouched; single-use is enforced by the caller clearing it.
	if !i.Verify(state, "123456") {
		t.Fatal("verify must not mutate state")
	}
	if i.Verify(account.OTPState{}, "123456") {
		t.Fatal("cleared state must not verify")
	}
}

func TestRetryAfter(t *testing.T) {
	issued := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	state := account.OTPState{Code: "123456", ExpiresAt: issued.Add(15 * time.Minute)}

	cases := []struct {
		name          string
		at            time.Time
		wantSecs      int64
		wantThrottled bool
	}{
		{"immediately after issue", issued, 60, true},
		{"10s after issue", issued.Add(10 * time.Second), 50, true},
		{"59s after issue", issued.Add(59 * time.Second), 1, true},
		{"exactly at cooldown", issued.Add(60 * time.Second), 0, false},
		{"well past cooldown", issued.Add(5 * time.Minute), 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			i := fixedIssuer(t, tc.at)
			secs, throttled := i.RetryAfter(state)
			if throttled != tc.wantThrottled || secs != tc.wantSecs {
				t.Fatalf("RetryAfter = (%d, %v), want (%d, %v)", secs, throttled, tc.wantSecs, tc.wantThrottled)
			}
		})
	}
}

func TestRetryAfterNoPendingCode(t *testing.T) {
	i := fixedIssuer(t, time.Now())
	if secs, throttled := i.RetryAfter(account.OTPState{}); throttled || secs != 0 {
		t.Fatalf("expected no throttle without a pending code, got (%d, %v)", secs, throttled)
	}
}

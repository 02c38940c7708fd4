package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/coursemart/coursemart/internal/account"
	"github.com/coursemart/coursemart/internal/notification"
	"github.com/coursemart/coursemart/internal/otp"
	"github.com/coursemart/coursemart/internal/token"
)

// captureNotifier records dispatched messages so tests can read issued codes.
type captureNotifier struct {
	mu       sync.Mutex
	messages []notification.Message
	fail     bool
}

func (n *captureNotifier) Send(_ context.Context, msg notification.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fail {
		return errors.New("gateway unreachable")
	}
	n.messages = append(n.messages, msg)
	return nil
}

func (n *captureNotifier) last() notification.Message {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.messages) == 0 {
		return notification.Message{}
	}
	return n.messages[len(n.messages)-1]
}

type fixture struct {
	svc      *Service
	repo     account.Repository
	notifier *captureNotifier
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repo := account.NewMemoryRepository()
	notifier := &captureNotifier{}
	svc := NewService(
		repo,
		account.NewService(repo, 4),
		otp.NewIssuer(15*time.Minute, time.Minute),
		token.NewIssuer("test-secret", time.Hour),
		notifier,
	)
	return &fixture{svc: svc, repo: repo, notifier: notifier}
}

// seedReferrer registers a verified account whose referral code unlocks
// further registrations.
func (f *fixture) seedReferrer(t *testing.T) account.Account {
	t.Helper()
	accounts := account.NewService(f.repo, 4)
	acc, err := accounts.Create(context.Background(), account.CreateInput{
		Name: "Referrer", Email: "ref@x.com", MobileNumber: "100", Password: "secret0",
	})
	if err != nil {
		t.Fatalf("seed referrer: %v", err)
	}
	acc.MobileVerified = true
	if err := f.repo.Update(context.Background(), acc); err != nil {
		t.Fatalf("seed referrer: %v", err)
	}
	return acc
}

func (f *fixture) register(t *testing.T, referralCode string) string {
	t.Helper()
	userID, err := f.svc.Register(context.Background(), RegisterInput{
		Name: "A", Email: "a@x.com", MobileNumber: "111", Password: "secret1",
		ReferralCode: referralCode,
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	return userID
}

func TestRegisterRequiresAllFields(t *testing.T) {
	f := newFixture(t)

	inputs := []RegisterInput{
		{Email: "a@x.com", MobileNumber: "111", Password: "p", ReferralCode: "R"},
		{Name: "A", MobileNumber: "111", Password: "p", ReferralCode: "R"},
		{Name: "A", Email: "a@x.com", Password: "p", ReferralCode: "R"},
		{Name: "A", Email: "a@x.com", MobileNumber: "111", ReferralCode: "R"},
		{Name: "A", Email: "a@x.com", MobileNumber: "111", Password: "p"},
	}
	for _, input := range inputs {
		if _, err := f.svc.Register(context.Background(), input); !errors.Is(err, ErrMissingField) {
			t.Fatalf("expected ErrMissingField for %+v, got %v", input, err)
		}
	}
}

func TestRegisterIssuesVerificationOTP(t *testing.T) {
	f := newFixture(t)
	referrer := f.seedReferrer(t)

	userID := f.register(t, referrer.ReferralCode)

	acc, err := f.repo.FindByID(context.Background(), userID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if acc.MobileVerified {
		t.Fatal("fresh registration must be unverified")
	}
	if !acc.OTP.Pending() {
		t.Fatal("registration must leave a pending OTP")
	}
	if acc.ReferredBy != referrer.ID {
		t.Fatalf("referral edge %q does not point at %q", acc.ReferredBy, referrer.ID)
	}

	msg := f.notifier.last()
	if msg.Kind != notification.KindOTPSMS || msg.Destination != "111" || msg.Body != acc.OTP.Code {
		t.Fatalf("unexpected dispatch %+v", msg)
	}
}

func TestRegisterDispatchFailure(t *testing.T) {
	f := newFixture(t)
	referrer := f.seedReferrer(t)
	f.notifier.fail = true

	input := RegisterInput{
		Name: "A", Email: "a@x.com", MobileNumber: "111", Password: "secret1",
		ReferralCode: referrer.ReferralCode,
	}
	if _, err := f.svc.Register(context.Background(), input); !errors.Is(err, ErrDispatchFailed) {
		t.Fatalf("expected ErrDispatchFailed, got %v", err)
	}

	// Nothing is persisted when the send fails, so the same registration
	// succeeds once the gateway recovers.
	if _, err := f.repo.FindByMobile(context.Background(), "111"); !errors.Is(err, account.ErrNotFound) {
		t.Fatalf("failed dispatch must not leave an account behind, got %v", err)
	}
	f.notifier.fail = false
	if _, err := f.svc.Register(context.Background(), input); err != nil {
		t.Fatalf("retry after transient dispatch failure: %v", err)
	}
}

func TestVerifyOTPFlow(t *testing.T) {
	f := newFixture(t)
	referrer := f.seedReferrer(t)
	f.register(t, referrer.ReferralCode)
	code := f.notifier.last().Body

	session, err := f.svc.VerifyOTP(context.Background(), "111", code)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if session.Token == "" {
		t.Fatal("expected a session token")
	}
	if !session.User.MobileVerified {
		t.Fatal("projection should show mobileVerified")
	}

	// The code is single-use: a second verification must fail.
	if _, err := f.svc.VerifyOTP(context.Background(), "111", code); !errors.Is(err, ErrInvalidOTP) {
		t.Fatalf("expected ErrInvalidOTP on reuse, got %v", err)
	}
}

func TestVerifyOTPRejectsWrongAndExpiredCodes(t *testing.T) {
	f := newFixture(t)
	referrer := f.seedReferrer(t)
	userID := f.register(t, referrer.ReferralCode)
	code := f.notifier.last().Body

	if _, err := f.svc.VerifyOTP(context.Background(), "999", code); !errors.Is(err, account.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown mobile, got %v", err)
	}
	if _, err := f.svc.VerifyOTP(context.Background(), "111", "000000"); !errors.Is(err, ErrInvalidOTP) {
		t.Fatalf("expected ErrInvalidOTP for wrong code, got %v", err)
	}

	// Force the pending code past its expiry.
	acc, err := f.repo.FindByID(context.Background(), userID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	acc.OTP.ExpiresAt = time.Now().UTC().Add(-time.Minute)
	if err := f.repo.Update(context.Background(), acc); err != nil {
		t.Fatalf("update: %v", err)
	}
	if _, err := f.svc.VerifyOTP(context.Background(), "111", code); !errors.Is(err, ErrInvalidOTP) {
		t.Fatalf("expected ErrInvalidOTP for expired code, got %v", err)
	}
}

func TestLoginWithPassword(t *testing.T) {
	f := newFixture(t)
	referrer := f.seedReferrer(t)
	f.register(t, referrer.ReferralCode)
	code := f.notifier.last().Body
	if _, err := f.svc.VerifyOTP(context.Background(), "111", code); err != nil {
		t.Fatalf("verify: %v", err)
	}

	session, err := f.svc.Login(context.Background(), "", "111", "secret1")
	if err != nil {
		t.Fatalf("login by mobile: %v", err)
	}
	if session.Token == "" || !session.User.MobileVerified {
		t.Fatalf("unexpected session %+v", session)
	}

	if _, err := f.svc.Login(context.Background(), "a@x.com", "", "secret1"); err != nil {
		t.Fatalf("login by email: %v", err)
	}

	if _, err := f.svc.Login(context.Background(), "", "111", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := f.svc.Login(context.Background(), "", "404", "secret1"); !errors.Is(err, account.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := f.svc.Login(context.Background(), "", "", "secret1"); !errors.Is(err, ErrMissingField) {
		t.Fatalf("expected ErrMissingField, got %v", err)
	}

	acc, err := f.repo.FindByMobile(context.Background(), "111")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if acc.LastLogin.IsZero() {
		t.Fatal("login must stamp lastLogin")
	}
}

func TestLoginMatchesRegistrationCasedEmail(t *testing.T) {
	f := newFixture(t)
	referrer := f.seedReferrer(t)

	_, err := f.svc.Register(context.Background(), RegisterInput{
		Name: "Bea", Email: "Bea@X.com", MobileNumber: "222", Password: "secret2",
		ReferralCode: referrer.ReferralCode,
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	code := f.notifier.last().Body
	if _, err := f.svc.VerifyOTP(context.Background(), "222", code); err != nil {
		t.Fatalf("verify: %v", err)
	}

	// The stored email is lowercased; login must accept the casing the
	// user registered with.
	if _, err := f.svc.Login(context.Background(), "Bea@X.com", "", "secret2"); err != nil {
		t.Fatalf("login with registration-cased email: %v", err)
	}
	if _, err := f.svc.Login(context.Background(), "bea@x.com", "", "secret2"); err != nil {
		t.Fatalf("login with lowercased email: %v", err)
	}
}

func TestLoginWithOTPFlow(t *testing.T) {
	f := newFixture(t)
	referrer := f.seedReferrer(t)

	userID, err := f.svc.RequestLoginOTP(context.Background(), referrer.MobileNumber)
	if err != nil {
		t.Fatalf("request login otp: %v", err)
	}
	if userID != referrer.ID {
		t.Fatalf("expected userId %s, got %s", referrer.ID, userID)
	}
	code := f.notifier.last().Body

	session, err := f.svc.LoginWithOTP(context.Background(), userID, code)
	if err != nil {
		t.Fatalf("login with otp: %v", err)
	}
	if session.Token == "" {
		t.Fatal("expected a session token")
	}

	// Consumed on success.
	if _, err := f.svc.LoginWithOTP(context.Background(), userID, code); !errors.Is(err, ErrInvalidOTP) {
		t.Fatalf("expected ErrInvalidOTP on reuse, got %v", err)
	}
}

func TestResendOTPThrottling(t *testing.T) {
	f := newFixture(t)
	referrer := f.seedReferrer(t)
	userID := f.register(t, referrer.ReferralCode)

	firstCode := f.notifier.last().Body

	// Immediately after registration the cooldown is still running.
	_, err := f.svc.ResendOTP(context.Background(), userID, ResendVerification)
	var throttled *ThrottledError
	if !errors.As(err, &throttled) {
		t.Fatalf("expected ThrottledError, got %v", err)
	}
	if throttled.RetryAfterSeconds <= 0 || throttled.RetryAfterSeconds > 60 {
		t.Fatalf("retryAfterSeconds %d outside (0, 60]", throttled.RetryAfterSeconds)
	}

	// Age the pending code past the cooldown; a resend then overwrites it.
	acc, err := f.repo.FindByID(context.Background(), userID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	acc.OTP.ExpiresAt = acc.OTP.ExpiresAt.Add(-2 * time.Minute)
	if err := f.repo.Update(context.Background(), acc); err != nil {
		t.Fatalf("update: %v", err)
	}

	if _, err := f.svc.ResendOTP(context.Background(), userID, ResendVerification); err != nil {
		t.Fatalf("resend after cooldown: %v", err)
	}
	acc, _ = f.repo.FindByID(context.Background(), userID)
	if acc.OTP.Code == firstCode {
		t.Fatal("resend must overwrite the previous code")
	}
}

func TestResendOTPValidation(t *testing.T) {
	f := newFixture(t)
	referrer := f.seedReferrer(t)

	if _, err := f.svc.ResendOTP(context.Background(), referrer.ID, "bogus"); !errors.Is(err, ErrMissingField) {
		t.Fatalf("expected ErrMissingField for bad type, got %v", err)
	}
	if _, err := f.svc.ResendOTP(context.Background(), "", ResendLogin); !errors.Is(err, ErrMissingField) {
		t.Fatalf("expected ErrMissingField for missing user, got %v", err)
	}
	if _, err := f.svc.ResendOTP(context.Background(), referrer.ID, ResendVerification); !errors.Is(err, ErrAlreadyVerified) {
		t.Fatalf("expected ErrAlreadyVerified, got %v", err)
	}
	// Login-type resends are allowed for verified accounts.
	if _, err := f.svc.ResendOTP(context.Background(), referrer.ID, ResendLogin); err != nil {
		t.Fatalf("login resend: %v", err)
	}
}

func TestEmailVerificationFlow(t *testing.T) {
	f := newFixture(t)
	referrer := f.seedReferrer(t)

	if err := f.svc.SendEmailVerification(context.Background(), referrer.ID); err != nil {
		t.Fatalf("send email verification: %v", err)
	}
	msg := f.notifier.last()
	if msg.Kind != notification.KindVerificationEmail || msg.Destination != referrer.Email {
		t.Fatalf("unexpected dispatch %+v", msg)
	}

	if err := f.svc.VerifyEmail(context.Background(), referrer.ID, "wrong"); !errors.Is(err, ErrInvalidOTP) {
		t.Fatalf("expected ErrInvalidOTP for wrong token, got %v", err)
	}
	if err := f.svc.VerifyEmail(context.Background(), referrer.ID, msg.Body); err != nil {
		t.Fatalf("verify email: %v", err)
	}

	acc, _ := f.repo.FindByID(context.Background(), referrer.ID)
	if !acc.EmailVerified || acc.EmailVerifyToken != "" {
		t.Fatal("verification must set the flag and clear the token")
	}

	if err := f.svc.SendEmailVerification(context.Background(), referrer.ID); !errors.Is(err, ErrAlreadyVerified) {
		t.Fatalf("expected ErrAlreadyVerified, got %v", err)
	}
}

func TestSendEmailVerificationRollsBackOnDispatchFailure(t *testing.T) {
	f := newFixture(t)
	referrer := f.seedReferrer(t)
	f.notifier.fail = true

	if err := f.svc.SendEmailVerification(context.Background(), referrer.ID); !errors.Is(err, ErrDispatchFailed) {
		t.Fatalf("expected ErrDispatchFailed, got %v", err)
	}
	acc, _ := f.repo.FindByID(context.Background(), referrer.ID)
	if acc.EmailVerifyToken != "" {
		t.Fatal("token must be rolled back when dispatch fails")
	}
}

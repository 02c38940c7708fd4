package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/coursemart/coursemart/internal/account"
	"github.com/coursemart/coursemart/internal/notification"
	"github.com/coursemart/coursemart/internal/otp"
	"github.com/coursemart/coursemart/internal/token"
)

// Resend type tags.
const (
	ResendVerification = "verification"
	ResendLogin        = "login"
)

const emailVerifyTTL = 24 * time.Hour

// Service drives the account lifecycle: registration, OTP verification,
// password and OTP login, resends and email verification.
type Service struct {
	repo     account.Repository
	accounts *account.Service
	otp      *otp.Issuer
	tokens   *token.Issuer
	notifier notification.Notifier
}

// NewService wires the lifecycle service.
func NewService(repo account.Repository, accounts *account.Service, otpIssuer *otp.Issuer, tokens *token.Issuer, notifier notification.Notifier) *Service {
	return &Service{repo: repo, accounts: accounts, otp: otpIssuer, tokens: tokens, notifier: notifier}
}

// RegisterInput carries the registration request fields. All are required,
// including the referral code.
type RegisterInput struct {
	Name         string
	Email        string
	MobileNumber string
	Password     string
	ReferralCode string
}

// Session is the result of a successful verification or login.
type Session struct {
	Token string             `json:"token"`
	User  account.Projection `json:"user"`
}

// Register creates an unverified account and dispatches a verification OTP.
// No session token is returned; the mobile number must be verified first.
// The code is dispatched before anything is persisted, so a failed send
// leaves no half-registered account and the caller can simply retry.
func (s *Service) Register(ctx context.Context, input RegisterInput) (string, error) {
	if input.Name == "" || input.Email == "" || input.MobileNumber == "" || input.Password == "" {
		return "", fmt.Errorf("%w: name, email, mobile number and password are required", ErrMissingField)
	}
	if input.ReferralCode == "" {
		return "", fmt.Errorf("%w: referral code is required for registration", ErrMissingField)
	}

	state, err := s.otp.Issue()
	if err != nil {
		return "", err
	}
	msg := notification.Message{Kind: notification.KindOTPSMS, Destination: input.MobileNumber, Body: state.Code}
	if err := s.notifier.Send(ctx, msg); err != nil {
		return "", ErrDispatchFailed
	}

	acc, err := s.accounts.Create(ctx, account.CreateInput{
		Name:         input.Name,
		Email:        input.Email,
		MobileNumber: input.MobileNumber,
		Password:     input.Password,
		ReferrerCode: input.ReferralCode,
	})
	if err != nil {
		return "", err
	}

	acc.OTP = state
	if err := s.repo.Update(ctx, acc); err != nil {
		return "", err
	}
	return acc.ID, nil
}

// VerifyOTP marks the mobile number verified and opens the first session.
func (s *Service) VerifyOTP(ctx context.Context, mobile, code string) (Session, error) {
	if mobile == "" || code == "" {
		return Session{}, fmt.Errorf("%w: mobile number and OTP are required", ErrMissingField)
	}
	acc, err := s.repo.FindByMobile(ctx, mobile)
	if err != nil {
		return Session{}, err
	}
	if !s.otp.Verify(acc.OTP, code) {
		return Session{}, ErrInvalidOTP
	}

	acc.MobileVerified = true
	acc.OTP = account.OTPState{}
	if err := s.repo.Update(ctx, acc); err != nil {
		return Session{}, err
	}
	return s.openSession(acc)
}

// Login authenticates with email or mobile number plus password.
func (s *Service) Login(ctx context.Context, email, mobile, password string) (Session, error) {
	if password == "" || (email == "" && mobile == "") {
		return Session{}, fmt.Errorf("%w: mobile number/email and password are required", ErrMissingField)
	}
	// Emails are stored lowercased; match lookups the same way.
	acc, err := s.repo.FindByEmailOrMobile(ctx, strings.ToLower(email), mobile)
	if err != nil {
		return Session{}, err
	}
	if !account.MatchPassword(acc, password) {
		return Session{}, ErrInvalidCredentials
	}

	acc.LastLogin = time.Now().UTC()
	if err := s.repo.Update(ctx, acc); err != nil {
		return Session{}, err
	}
	return s.openSession(acc)
}

// RequestLoginOTP issues and dispatches a login code for the mobile number.
func (s *Service) RequestLoginOTP(ctx context.Context, mobile string) (string, error) {
	if mobile == "" {
		return "", fmt.Errorf("%w: mobile number is required", ErrMissingField)
	}
	acc, err := s.repo.FindByMobile(ctx, mobile)
	if err != nil {
		return "", err
	}
	if err := s.issueAndDispatch(ctx, &acc); err != nil {
		return "", err
	}
	return acc.ID, nil
}

// LoginWithOTP authenticates with a previously requested login code.
func (s *Service) LoginWithOTP(ctx context.Context, userID, code string) (Session, error) {
	if userID == "" || code == "" {
		return Session{}, fmt.Errorf("%w: user ID and OTP are required", ErrMissingField)
	}
	acc, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return Session{}, err
	}
	if !s.otp.Verify(acc.OTP, code) {
		return Session{}, ErrInvalidOTP
	}

	acc.OTP = account.OTPState{}
	acc.LastLogin = time.Now().UTC()
	if err := s.repo.Update(ctx, acc); err != nil {
		return Session{}, err
	}
	return s.openSession(acc)
}

// ResendOTP issues a fresh code of the given type, subject to the resend
// cooldown. A fresh code overwrites the pending one.
func (s *Service) ResendOTP(ctx context.Context, userID, resendType string) (string, error) {
	if userID == "" {
		return "", fmt.Errorf("%w: user ID is required", ErrMissingField)
	}
	if resendType != ResendVerification && resendType != ResendLogin {
		return "", fmt.Errorf("%w: valid type is required (verification or login)", ErrMissingField)
	}
	acc, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return "", err
	}
	if resendType == ResendVerification && acc.MobileVerified {
		return "", fmt.Errorf("%w: mobile number is already verified", ErrAlreadyVerified)
	}
	if retryAfter, throttled := s.otp.RetryAfter(acc.OTP); throttled {
		return "", &ThrottledError{RetryAfterSeconds: retryAfter}
	}
	if err := s.issueAndDispatch(ctx, &acc); err != nil {
		return "", err
	}
	return acc.ID, nil
}

// SendEmailVerification stores a fresh verification token on the account and
// dispatches it. On dispatch failure the token is rolled back.
func (s *Service) SendEmailVerification(ctx context.Context, userID string) error {
	if userID == "" {
		return fmt.Errorf("%w: user ID is required", ErrMissingField)
	}
	acc, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if acc.EmailVerified {
		return fmt.Errorf("%w: email is already verified", ErrAlreadyVerified)
	}

	verifyToken, err := generateEmailToken()
	if err != nil {
		return err
	}
	acc.EmailVerifyToken = verifyToken
	acc.EmailVerifyUntil = time.Now().UTC().Add(emailVerifyTTL)
	if err := s.repo.Update(ctx, acc); err != nil {
		return err
	}

	msg := notification.Message{Kind: notification.KindVerificationEmail, Destination: acc.Email, Body: verifyToken}
	if err := s.notifier.Send(ctx, msg); err != nil {
		acc.EmailVerifyToken = ""
		acc.EmailVerifyUntil = time.Time{}
		_ = s.repo.Update(ctx, acc)
		return ErrDispatchFailed
	}
	return nil
}

// VerifyEmail consumes a pending email verification token.
func (s *Service) VerifyEmail(ctx context.Context, userID, verifyToken string) error {
	if userID == "" || verifyToken == "" {
		return fmt.Errorf("%w: user ID and token are required", ErrMissingField)
	}
	acc, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if acc.EmailVerifyToken == "" || acc.EmailVerifyToken != verifyToken ||
		!time.Now().UTC().Before(acc.EmailVerifyUntil) {
		return ErrInvalidOTP
	}

	acc.EmailVerified = true
	acc.EmailVerifyToken = ""
	acc.EmailVerifyUntil = time.Time{}
	return s.repo.Update(ctx, acc)
}

// Me returns the safe projection of the authenticated account.
func (s *Service) Me(ctx context.Context, userID string) (account.Projection, error) {
	acc, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return account.Projection{}, err
	}
	return acc.Project(), nil
}

func (s *Service) issueAndDispatch(ctx context.Context, acc *account.Account) error {
	state, err := s.otp.Issue()
	if err != nil {
		return err
	}
	msg := notification.Message{Kind: notification.KindOTPSMS, Destination: acc.MobileNumber, Body: state.Code}
	if err := s.notifier.Send(ctx, msg); err != nil {
		return ErrDispatchFailed
	}
	acc.OTP = state
	return s.repo.Update(ctx, *acc)
}

func (s *Service) openSession(acc account.Account) (Session, error) {
	signed, err := s.tokens.Mint(acc.ID)
	if err != nil {
		return Session{}, err
	}
	return Session{Token: signed, User: acc.Project()}, nil
}

func generateEmailToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate verification token: %w", err)
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

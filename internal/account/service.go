package account

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// referral codes are 4 random bytes rendered as 8 uppercase hex chars.
const referralCodeBytes = 4

// A generated referral code can collide with an existing one; creation retries
// with a fresh code a few times before giving up.
const referralCodeRetries = 3

// Service owns credential hashing and account creation.
type Service struct {
	repo Repository
	cost int
}

// NewService creates an account service hashing at the given bcrypt cost.
func NewService(repo Repository, bcryptCost int) *Service {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &Service{repo: repo, cost: bcryptCost}
}

// CreateInput captures data required to register an account.
type CreateInput struct {
	Name         string
	Email        string
	MobileNumber string
	Password     string
	ReferrerCode string
}

// Create registers an unverified account. The raw password is hashed and
// discarded; it is never stored or logged. When a referrer code is supplied it
// must resolve to an existing account.
func (s *Service) Create(ctx context.Context, input CreateInput) (Account, error) {
	var referredBy string
	if input.ReferrerCode != "" {
		referrer, err := s.repo.FindByReferralCode(ctx, strings.ToUpper(input.ReferrerCode))
		if errors.Is(err, ErrNotFound) {
			return Account{}, ErrInvalidReferral
		}
		if err != nil {
			return Account{}, err
		}
		referredBy = referrer.ID
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), s.cost)
	if err != nil {
		return Account{}, err
	}

	acc := Account{
		ID:               uuid.New().String(),
		Name:             input.Name,
		Email:            strings.ToLower(input.Email),
		MobileNumber:     input.MobileNumber,
		PasswordHash:     hash,
		ReferredBy:       referredBy,
		Level:            LevelUser,
		Status:           StatusActive,
		KYCStatus:        KYCNotSubmitted,
		RegistrationDate: time.Now().UTC(),
	}

	for attempt := 0; ; attempt++ {
		acc.ReferralCode, err = generateReferralCode()
		if err != nil {
			return Account{}, err
		}
		err = s.repo.Create(ctx, acc)
		if err == nil {
			return acc, nil
		}
		if !errors.Is(err, ErrDuplicateIdentity) || attempt >= referralCodeRetries {
			return Account{}, err
		}
		// The duplicate may be the email/mobile rather than the generated
		// code; re-check so identity conflicts are not masked by retries.
		if _, findErr := s.repo.FindByEmailOrMobile(ctx, acc.Email, acc.MobileNumber); findErr == nil {
			return Account{}, ErrDuplicateIdentity
		}
	}
}

// SetPassword replaces the account's stored hash with one derived from raw.
func (s *Service) SetPassword(acc *Account, raw string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(raw), s.cost)
	if err != nil {
		return err
	}
	acc.PasswordHash = hash
	return nil
}

// MatchPassword compares raw against the stored hash. bcrypt performs the
// comparison in constant time.
func MatchPassword(acc Account, raw string) bool {
	return bcrypt.CompareHashAndPassword(acc.PasswordHash, []byte(raw)) == nil
}

func generateReferralCode() (string, error) {
	b := make([]byte, referralCodeBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate referral code: %w", err)
	}
	return strings.ToUpper(hex.EncodeToString(b)), nil
}

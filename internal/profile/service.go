// Package profile manages the mutable, non-credential parts of an account:
// display name, secondary contact and the KYC bank-detail block.
package profile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/coursemart/coursemart/internal/account"
)

// ErrMissingField is returned when a required bank-detail field is absent.
var ErrMissingField = errors.New("missing required field")

// Service mutates account profile and KYC state.
type Service struct {
	repo account.Repository
}

// NewService builds the profile service.
func NewService(repo account.Repository) *Service {
	return &Service{repo: repo}
}

// UpdateInput carries optional profile mutations. Absent fields are no-ops;
// identity-unique fields (email, mobile) are never touched here.
type UpdateInput struct {
	Name           string
	WhatsappNumber string
}

// Update applies the provided profile fields.
func (s *Service) Update(ctx context.Context, userID string, input UpdateInput) (account.Projection, error) {
	acc, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return account.Projection{}, err
	}
	if input.Name != "" {
		acc.Name = input.Name
	}
	if input.WhatsappNumber != "" {
		acc.WhatsappNumber = input.WhatsappNumber
	}
	if err := s.repo.Update(ctx, acc); err != nil {
		return account.Projection{}, err
	}
	return acc.Project(), nil
}

// BankDetails is the bank slice of the KYC block exchanged with the API.
type BankDetails struct {
	BankName          string `json:"bankName"`
	AccountHolderName string `json:"accountHolderName"`
	AccountNumber     string `json:"accountNumber"`
	IFSCCode          string `json:"ifscCode"`
	UPIID             string `json:"upiId,omitempty"`
}

// UpdateBankDetails merges bank fields into the KYC block. The first
// submission stamps the submission date and advances kycStatus from
// not_submitted to pending. Fields are checked for presence only.
func (s *Service) UpdateBankDetails(ctx context.Context, userID string, details BankDetails) (BankDetails, error) {
	if details.BankName == "" || details.AccountHolderName == "" ||
		details.AccountNumber == "" || details.IFSCCode == "" {
		return BankDetails{}, fmt.Errorf("%w: please provide all required bank details", ErrMissingField)
	}

	acc, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return BankDetails{}, err
	}

	acc.KYC.BankName = details.BankName
	acc.KYC.AccountHolderName = details.AccountHolderName
	acc.KYC.AccountNumber = details.AccountNumber
	acc.KYC.IFSCCode = details.IFSCCode
	if details.UPIID != "" {
		acc.KYC.UPIID = details.UPIID
	}
	if acc.KYC.SubmissionDate == nil {
		now := time.Now().UTC()
		acc.KYC.SubmissionDate = &now
	}
	if acc.KYCStatus == account.KYCNotSubmitted {
		acc.KYCStatus = account.KYCPending
	}

	if err := s.repo.Update(ctx, acc); err != nil {
		return BankDetails{}, err
	}
	return bankDetailsOf(acc), nil
}

// GetBankDetails returns the stored bank fields and the current KYC status.
func (s *Service) GetBankDetails(ctx context.Context, userID string) (BankDetails, string, error) {
	acc, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return BankDetails{}, "", err
	}
	return bankDetailsOf(acc), acc.KYCStatus, nil
}

func bankDetailsOf(acc account.Account) BankDetails {
	return BankDetails{
		BankName:          acc.KYC.BankName,
		AccountHolderName: acc.KYC.AccountHolderName,
		AccountNumber:     acc.KYC.AccountNumber,
		IFSCCode:          acc.KYC.IFSCCode,
		UPIID:             acc.KYC.UPIID,
	}
}

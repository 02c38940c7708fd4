package account

import (
	"context"
	"sync"
)

type memoryRepository struct {
	mu       sync.RWMutex
	accounts map[string]Account // keyed by ID
}

// NewMemoryRepository builds an in-memory account store for testing.
func NewMemoryRepository() Repository {
	return &memoryRepository{accounts: make(map[string]Account)}
}

func (r *memoryRepository) Create(_ context.Context, acc Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.accounts {
		if existing.Email == acc.Email || existing.MobileNumber == acc.MobileNumber ||
			existing.ReferralCode == acc.ReferralCode {
			return ErrDuplicateIdentity
		}
	}
	r.accounts[acc.ID] = acc
	return nil
}

func (r *memoryRepository) FindByID(_ context.Context, id string) (Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	acc, ok := r.accounts[id]
	if !ok {
		return Account{}, ErrNotFound
	}
	return acc, nil
}

func (r *memoryRepository) FindByMobile(_ context.Context, mobile string) (Account, error) {
	return r.findBy(func(a Account) bool { return a.MobileNumber == mobile })
}

func (r *memoryRepository) FindByEmailOrMobile(_ context.Context, email, mobile string) (Account, error) {
	return r.findBy(func(a Account) bool {
		return (email != "" && a.Email == email) || (mobile != "" && a.MobileNumber == mobile)
	})
}

func (r *memoryRepository) FindByReferralCode(_ context.Context, code string) (Account, error) {
	return r.findBy(func(a Account) bool { return a.ReferralCode == code })
}

func (r *memoryRepository) Update(_ context.Context, acc Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.accounts[acc.ID]; !ok {
		return ErrNotFound
	}
	r.accounts[acc.ID] = acc
	return nil
}

func (r *memoryRepository) findBy(match func(Account) bool) (Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, acc := range r.accounts {
		if match(acc) {
			return acc, nil
		}
	}
	return Account{}, ErrNotFound
}

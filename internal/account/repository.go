package account

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists accounts. Update saves the whole record; concurrent
// writers are last-write-wins, there is no revision check.
type Repository interface {
	Create(ctx context.Context, acc Account) error
	FindByID(ctx context.Context, id string) (Account, error)
	FindByMobile(ctx context.Context, mobile string) (Account, error)
	FindByEmailOrMobile(ctx context.Context, email, mobile string) (Account, error)
	FindByReferralCode(ctx context.Context, code string) (Account, error)
	Update(ctx context.Context, acc Account) error
}

const accountColumns = `id, name, email, mobile_number, whatsapp_number, password_hash,
	mobile_verified, email_verified, email_verify_token, email_verify_until,
	referral_code, referred_by, level, status,
	wallet_balance, wallet_earned, wallet_withdrawn,
	kyc_status, kyc_details, purchased_courses,
	otp_code, otp_expires_at, registration_date, last_login`

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed account repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a new account. Unique violations on email, mobile number or
// referral code surface as ErrDuplicateIdentity.
func (r *PostgresRepository) Create(ctx context.Context, acc Account) error {
	id, err := uuid.Parse(acc.ID)
	if err != nil {
		return err
	}
	kycJSON, err := json.Marshal(acc.KYC)
	if err != nil {
		return err
	}
	courses := acc.PurchasedCourses
	if courses == nil {
		courses = []string{}
	}
	_, err = r.db.Exec(ctx, `INSERT INTO accounts (`+accountColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
		        $15, $16, $17, $18, $19, $20, $21, $22, $23, $24)`,
		id, acc.Name, acc.Email, acc.MobileNumber, acc.WhatsappNumber, acc.PasswordHash,
		acc.MobileVerified, acc.EmailVerified, nullStr(acc.EmailVerifyToken), nullTime(acc.EmailVerifyUntil),
		acc.ReferralCode, nullStr(acc.ReferredBy), acc.Level, acc.Status,
		acc.Wallet.Balance, acc.Wallet.TotalEarned, acc.Wallet.TotalWithdrawn,
		acc.KYCStatus, kycJSON, courses,
		nullStr(acc.OTP.Code), nullTime(acc.OTP.ExpiresAt), acc.RegistrationDate.UTC(), nullTime(acc.LastLogin))
	if isUniqueViolation(err) {
		return ErrDuplicateIdentity
	}
	return err
}

// FindByID fetches an account by identifier.
func (r *PostgresRepository) FindByID(ctx context.Context, id string) (Account, error) {
	accID, err := uuid.Parse(id)
	if err != nil {
		return Account{}, ErrNotFound
	}
	return r.findOne(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, accID)
}

// FindByMobile fetches an account by mobile number.
func (r *PostgresRepository) FindByMobile(ctx context.Context, mobile string) (Account, error) {
	return r.findOne(ctx, `SELECT `+accountColumns+` FROM accounts WHERE mobile_number = $1`, mobile)
}

// FindByEmailOrMobile fetches the account matching either unique field.
func (r *PostgresRepository) FindByEmailOrMobile(ctx context.Context, email, mobile string) (Account, error) {
	return r.findOne(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE (email = $1 AND $1 <> '') OR (mobile_number = $2 AND $2 <> '')`,
		email, mobile)
}

// FindByReferralCode resolves a referral code to its owner.
func (r *PostgresRepository) FindByReferralCode(ctx context.Context, code string) (Account, error) {
	return r.findOne(ctx, `SELECT `+accountColumns+` FROM accounts WHERE referral_code = $1`, code)
}

// Update saves the whole account record.
func (r *PostgresRepository) Update(ctx context.Context, acc Account) error {
	id, err := uuid.Parse(acc.ID)
	if err != nil {
		return ErrNotFound
	}
	kycJSON, err := json.Marshal(acc.KYC)
	if err != nil {
		return err
	}
	courses := acc.PurchasedCourses
	if courses == nil {
		courses = []string{}
	}
	cmd, err := r.db.Exec(ctx, `UPDATE accounts SET
		name = $2, email = $3, mobile_number = $4, whatsapp_number = $5, password_hash = $6,
		mobile_verified = $7, email_verified = $8, email_verify_token = $9, email_verify_until = $10,
		referral_code = $11, referred_by = $12, level = $13, status = $14,
		wallet_balance = $15, wallet_earned = $16, wallet_withdrawn = $17,
		kyc_status = $18, kyc_details = $19, purchased_courses = $20,
		otp_code = $21, otp_expires_at = $22, last_login = $23
		WHERE id = $1`,
		id, acc.Name, acc.Email, acc.MobileNumber, acc.WhatsappNumber, acc.PasswordHash,
		acc.MobileVerified, acc.EmailVerified, nullStr(acc.EmailVerifyToken), nullTime(acc.EmailVerifyUntil),
		acc.ReferralCode, nullStr(acc.ReferredBy), acc.Level, acc.Status,
		acc.Wallet.Balance, acc.Wallet.TotalEarned, acc.Wallet.TotalWithdrawn,
		acc.KYCStatus, kycJSON, courses,
		nullStr(acc.OTP.Code), nullTime(acc.OTP.ExpiresAt), nullTime(acc.LastLogin))
	if isUniqueViolation(err) {
		return ErrDuplicateIdentity
	}
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) findOne(ctx context.Context, query string, args ...any) (Account, error) {
	row := r.db.QueryRow(ctx, query, args...)

	var (
		acc              Account
		id               uuid.UUID
		whatsapp         *string
		emailVerifyToken *string
		emailVerifyUntil *time.Time
		referredBy       *string
		kycJSON          []byte
		otpCode          *string
		otpExpires       *time.Time
		lastLogin        *time.Time
	)
	err := row.Scan(&id, &acc.Name, &acc.Email, &acc.MobileNumber, &whatsapp, &acc.PasswordHash,
		&acc.MobileVerified, &acc.EmailVerified, &emailVerifyToken, &emailVerifyUntil,
		&acc.ReferralCode, &referredBy, &acc.Level, &acc.Status,
		&acc.Wallet.Balance, &acc.Wallet.TotalEarned, &acc.Wallet.TotalWithdrawn,
		&acc.KYCStatus, &kycJSON, &acc.PurchasedCourses,
		&otpCode, &otpExpires, &acc.RegistrationDate, &lastLogin)
	if errors.Is(err, pgx.ErrNoRows) {
		return Account{}, ErrNotFound
	}
	if err != nil {
		return Account{}, err
	}

	acc.ID = id.String()
	acc.WhatsappNumber = deref(whatsapp)
	acc.EmailVerifyToken = deref(emailVerifyToken)
	acc.EmailVerifyUntil = derefTime(emailVerifyUntil)
	acc.ReferredBy = deref(referredBy)
	if len(kycJSON) > 0 {
		if err := json.Unmarshal(kycJSON, &acc.KYC); err != nil {
			return Account{}, err
		}
	}
	acc.OTP = OTPState{Code: deref(otpCode), ExpiresAt: derefTime(otpExpires)}
	acc.RegistrationDate = acc.RegistrationDate.UTC()
	acc.LastLogin = derefTime(lastLogin)
	return acc, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func nullStr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	u := t.UTC()
	return &u
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefTime(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return t.UTC()
}

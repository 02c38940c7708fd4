package account

import "time"

// Account levels and statuses. Neither is enforced by an authorization engine
// here; they gate future admin surfaces.
const (
	LevelUser  = "user"
	LevelAdmin = "admin"

	StatusActive    = "active"
	StatusInactive  = "inactive"
	StatusSuspended = "suspended"
)

// KYC status transitions: not_submitted -> pending -> approved|rejected.
const (
	KYCNotSubmitted = "not_submitted"
	KYCPending      = "pending"
	KYCApproved     = "approved"
	KYCRejected     = "rejected"
)

// Wallet is a financial summary maintained by collaborators outside this
// service; it is carried and serialized but never computed here.
type Wallet struct {
	Balance        int64 `json:"balance"`
	TotalEarned    int64 `json:"totalEarned"`
	TotalWithdrawn int64 `json:"totalWithdrawn"`
}

// KYCDetails holds the bank and document fields submitted for review.
// Content is validated for presence only.
type KYCDetails struct {
	DocumentType      string     `json:"documentType,omitempty"`
	PANNumber         string     `json:"panNumber,omitempty"`
	BankName          string     `json:"bankName,omitempty"`
	AccountHolderName string     `json:"accountHolderName,omitempty"`
	AccountNumber     string     `json:"accountNumber,omitempty"`
	IFSCCode          string     `json:"ifscCode,omitempty"`
	UPIID             string     `json:"upiId,omitempty"`
	SubmissionDate    *time.Time `json:"submissionDate,omitempty"`
	ApprovalDate      *time.Time `json:"approvalDate,omitempty"`
	RejectionReason   string     `json:"rejectionReason,omitempty"`
}

// OTPState is the single pending one-time code for an account. A zero value
// means no code is pending.
type OTPState struct {
	Code      string
	ExpiresAt time.Time
}

// Pending reports whether a code is currently attached.
func (o OTPState) Pending() bool {
	return o.Code != ""
}

// Account is a registered marketplace user. PasswordHash and OTP never leave
// the package through Projection.
type Account struct {
	ID               string
	Name             string
	Email            string
	MobileNumber     string
	WhatsappNumber   string
	PasswordHash     []byte
	MobileVerified   bool
	EmailVerified    bool
	EmailVerifyToken string
	EmailVerifyUntil time.Time
	ReferralCode     string
	ReferredBy       string
	Level            string
	Status           string
	Wallet           Wallet
	KYCStatus        string
	KYC              KYCDetails
	PurchasedCourses []string
	OTP              OTPState
	RegistrationDate time.Time
	LastLogin        time.Time
}

// Projection is the safe view of an account returned by the API. It carries
// no credential or OTP material.
type Projection struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	Email            string    `json:"email"`
	MobileNumber     string    `json:"mobileNumber"`
	MobileVerified   bool      `json:"mobileVerified"`
	WhatsappNumber   string    `json:"whatsappNumber,omitempty"`
	ReferralCode     string    `json:"referralCode"`
	UserLevel        string    `json:"userLevel"`
	Wallet           Wallet    `json:"wallet"`
	KYCStatus        string    `json:"kycStatus"`
	PurchasedCourses []string  `json:"purchasedCourses"`
	RegistrationDate time.Time `json:"registrationDate"`
}

// Project builds the safe API view of the account.
func (a Account) Project() Projection {
	courses := a.PurchasedCourses
	if courses == nil {
		courses = []string{}
	}
	return Projection{
		ID:               a.ID,
		Name:             a.Name,
		Email:            a.Email,
		MobileNumber:     a.MobileNumber,
		MobileVerified:   a.MobileVerified,
		WhatsappNumber:   a.WhatsappNumber,
		ReferralCode:     a.ReferralCode,
		UserLevel:        a.Level,
		Wallet:           a.Wallet,
		KYCStatus:        a.KYCStatus,
		PurchasedCourses: courses,
		RegistrationDate: a.RegistrationDate,
	}
}

package auth

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/coursemart/coursemart/internal/account"
	"github.com/coursemart/coursemart/internal/api"
)

// Handler exposes the authentication endpoints.
type Handler struct {
	svc *Service
}

// NewHandler builds the auth handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

type registerRequest struct {
	Name         string `json:"name"`
	Email        string `json:"email"`
	MobileNumber string `json:"mobileNumber"`
	Password     string `json:"password"`
	ReferralCode string `json:"referralCode"`
}

// Register creates an account and dispatches a verification OTP.
func (h *Handler) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	userID, err := h.svc.Register(c.UserContext(), RegisterInput{
		Name:         req.Name,
		Email:        req.Email,
		MobileNumber: req.MobileNumber,
		Password:     req.Password,
		ReferralCode: req.ReferralCode,
	})
	if err != nil {
		return mapError(c, err)
	}
	return api.Success(c, http.StatusCreated,
		"User registered successfully. Please verify your mobile number with the OTP sent.",
		fiber.Map{"userId": userID})
}

type verifyOTPRequest struct {
	MobileNumber string `json:"mobileNumber"`
	OTP          string `json:"otp"`
}

// VerifyOTP confirms the mobile number and returns the first session token.
func (h *Handler) VerifyOTP(c *fiber.Ctx) error {
	var req verifyOTPRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	session, err := h.svc.VerifyOTP(c.UserContext(), req.MobileNumber, req.OTP)
	if err != nil {
		return mapError(c, err)
	}
	return api.Success(c, http.StatusOK, "Mobile number verified successfully", session)
}

type loginRequest struct {
	Email        string `json:"email"`
	MobileNumber string `json:"mobileNumber"`
	Password     string `json:"password"`
}

// Login authenticates with email or mobile number plus password.
func (h *Handler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	session, err := h.svc.Login(c.UserContext(), req.Email, req.MobileNumber, req.Password)
	if err != nil {
		return mapError(c, err)
	}
	return api.Success(c, http.StatusOK, "Login successful", session)
}

type requestLoginOTPRequest struct {
	MobileNumber string `json:"mobileNumber"`
}

// RequestLoginOTP issues a login code for the given mobile number.
func (h *Handler) RequestLoginOTP(c *fiber.Ctx) error {
	var req requestLoginOTPRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	userID, err := h.svc.RequestLoginOTP(c.UserContext(), req.MobileNumber)
	if err != nil {
		return mapError(c, err)
	}
	return api.Success(c, http.StatusOK, "OTP sent successfully", fiber.Map{"userId": userID})
}

type loginOTPRequest struct {
	UserID string `json:"userId"`
	OTP    string `json:"otp"`
}

// LoginWithOTP authenticates with a previously requested login code.
func (h *Handler) LoginWithOTP(c *fiber.Ctx) error {
	var req loginOTPRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	session, err := h.svc.LoginWithOTP(c.UserContext(), req.UserID, req.OTP)
	if err != nil {
		return mapError(c, err)
	}
	return api.Success(c, http.StatusOK, "Login successful", session)
}

type resendOTPRequest struct {
	UserID string `json:"userId"`
	Type   string `json:"type"`
}

// ResendOTP issues a fresh code, subject to the resend cooldown.
func (h *Handler) ResendOTP(c *fiber.Ctx) error {
	var req resendOTPRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	userID, err := h.svc.ResendOTP(c.UserContext(), req.UserID, req.Type)
	if err != nil {
		var throttled *ThrottledError
		if errors.As(err, &throttled) {
			return api.Fail(c, http.StatusTooManyRequests,
				"Please wait 1 minute before requesting another OTP",
				fiber.Map{"retryAfterSeconds": throttled.RetryAfterSeconds})
		}
		return mapError(c, err)
	}
	return api.Success(c, http.StatusOK, "OTP resent successfully", fiber.Map{"userId": userID})
}

type emailVerificationRequest struct {
	UserID string `json:"userId"`
	Token  string `json:"token"`
}

// SendEmailVerification dispatches an email verification token.
func (h *Handler) SendEmailVerification(c *fiber.Ctx) error {
	var req emailVerificationRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.SendEmailVerification(c.UserContext(), req.UserID); err != nil {
		return mapError(c, err)
	}
	return api.Success(c, http.StatusOK, "Verification email sent successfully", nil)
}

// VerifyEmail consumes a pending email verification token.
func (h *Handler) VerifyEmail(c *fiber.Ctx) error {
	var req emailVerificationRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.VerifyEmail(c.UserContext(), req.UserID, req.Token); err != nil {
		return mapError(c, err)
	}
	return api.Success(c, http.StatusOK, "Email verified successfully", nil)
}

// Me returns the authenticated account's profile.
func (h *Handler) Me(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	if userID == "" {
		return fiber.NewError(http.StatusUnauthorized, "unauthorized")
	}
	user, err := h.svc.Me(c.UserContext(), userID)
	if err != nil {
		return mapError(c, err)
	}
	return api.Success(c, http.StatusOK, "Profile fetched successfully", fiber.Map{"user": user})
}

func mapError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, ErrMissingField),
		errors.Is(err, account.ErrDuplicateIdentity),
		errors.Is(err, account.ErrInvalidReferral),
		errors.Is(err, ErrInvalidOTP),
		errors.Is(err, ErrAlreadyVerified):
		return api.Fail(c, http.StatusBadRequest, err.Error(), nil)
	case errors.Is(err, ErrInvalidCredentials):
		return api.Fail(c, http.StatusUnauthorized, err.Error(), nil)
	case errors.Is(err, account.ErrNotFound):
		return api.Fail(c, http.StatusNotFound, "User not found", nil)
	case errors.Is(err, ErrDispatchFailed):
		return api.Fail(c, http.StatusInternalServerError, err.Error(), nil)
	default:
		return err
	}
}

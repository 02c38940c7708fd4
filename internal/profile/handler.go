package profile

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/coursemart/coursemart/internal/account"
	"github.com/coursemart/coursemart/internal/api"
)

// Handler exposes the authenticated profile and bank-detail endpoints.
type Handler struct {
	svc *Service
}

// NewHandler builds the profile handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

type updateProfileRequest struct {
	Name           string `json:"name"`
	WhatsappNumber string `json:"whatsappNumber"`
}

// Update applies optional name/whatsapp changes to the caller's profile.
func (h *Handler) Update(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	var req updateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	user, err := h.svc.Update(c.UserContext(), userID, UpdateInput{
		Name:           req.Name,
		WhatsappNumber: req.WhatsappNumber,
	})
	if err != nil {
		return mapError(c, err)
	}
	return api.Success(c, http.StatusOK, "Profile updated successfully", fiber.Map{
		"user": fiber.Map{
			"id":           user.ID,
			"name":         user.Name,
			"email":        user.Email,
			"mobileNumber": user.MobileNumber,
		},
	})
}

// UpdateBankDetails merges submitted bank fields into the caller's KYC block.
func (h *Handler) UpdateBankDetails(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	var req BankDetails
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	details, err := h.svc.UpdateBankDetails(c.UserContext(), userID, req)
	if err != nil {
		return mapError(c, err)
	}
	return api.Success(c, http.StatusOK, "Bank details updated successfully", fiber.Map{"bankDetails": details})
}

// GetBankDetails returns the caller's stored bank fields and KYC status.
func (h *Handler) GetBankDetails(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	details, kycStatus, err := h.svc.GetBankDetails(c.UserContext(), userID)
	if err != nil {
		return mapError(c, err)
	}
	return api.Success(c, http.StatusOK, "Bank details fetched successfully", fiber.Map{
		"bankDetails": details,
		"kycStatus":   kycStatus,
	})
}

func mapError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, ErrMissingField):
		return api.Fail(c, http.StatusBadRequest, err.Error(), nil)
	case errors.Is(err, account.ErrNotFound):
		return api.Fail(c, http.StatusNotFound, "User not found", nil)
	default:
		return err
	}
}

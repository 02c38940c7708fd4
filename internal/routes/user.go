package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/coursemart/coursemart/internal/profile"
)

// RegisterUserRoutes wires the authenticated profile and KYC endpoints.
func RegisterUserRoutes(r fiber.Router, h *profile.Handler, jwtmw fiber.Handler) {
	group := r.Group("/user", jwtmw)

	group.Put("/profile", h.Update)
	group.Put("/bank-details", h.UpdateBankDetails)
	group.Get("/bank-details", h.GetBankDetails)
}

package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/coursemart/coursemart/internal/auth"
)

// RegisterAuthRoutes wires the registration, verification and login endpoints.
func RegisterAuthRoutes(r fiber.Router, h *auth.Handler, jwtmw, rateLimiter fiber.Handler) {
	group := r.Group("/auth")

	group.Post("/register", h.Register)
	group.Post("/verify-otp", h.VerifyOTP)
	group.Post("/send-email-verification", h.SendEmailVerification)
	group.Post("/verify-email", h.VerifyEmail)

	if rateLimiter != nil {
		group.Post("/login", rateLimiter, h.Login)
		group.Post("/request-login-otp", rateLimiter, h.RequestLoginOTP)
		group.Post("/resend-otp", rateLimiter, h.ResendOTP)
	} else {
		group.Post("/login", h.Login)
		group.Post("/request-login-otp", h.RequestLoginOTP)
		group.Post("/resend-otp", h.ResendOTP)
	}
	group.Post("/login-otp", h.LoginWithOTP)

	group.Get("/me", jwtmw, h.Me)
}

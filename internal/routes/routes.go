package routes

import (
	"fmt"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/coursemart/coursemart/internal/account"
	"github.com/coursemart/coursemart/internal/auth"
	"github.com/coursemart/coursemart/internal/config"
	"github.com/coursemart/coursemart/internal/middleware"
	"github.com/coursemart/coursemart/internal/notification"
	"github.com/coursemart/coursemart/internal/otp"
	"github.com/coursemart/coursemart/internal/profile"
	"github.com/coursemart/coursemart/internal/token"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Logger *slog.Logger
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	if !d.Cfg.IsDev() {
		if d.DB == nil {
			return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Cache == nil {
			return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
	}

	// Middlewares
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(logger.New(logger.Config{
		Format:     "[${time}] ${status} -  ${latency} ${method} ${path}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "Local",
	}))
	app.Use(middleware.Audit(d.Logger))
	if d.Cache != nil {
		app.Use(middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger))
	}

	// Health
	RegisterHealthRoutes(app, d)

	// Services and handlers
	var repo account.Repository
	if d.DB != nil {
		repo = account.NewPostgresRepository(d.DB)
	} else {
		repo = account.NewMemoryRepository()
	}

	accountSvc := account.NewService(repo, d.Cfg.BcryptCost)
	otpIssuer := otp.NewIssuer(d.Cfg.OTPTTL, d.Cfg.OTPResendWait)
	tokenIssuer := token.NewIssuer(d.Cfg.JWTSecret, d.Cfg.TokenTTL)
	notifier := notification.NewLoggerNotifier(d.Logger)

	authSvc := auth.NewService(repo, accountSvc, otpIssuer, tokenIssuer, notifier)
	authHandler := auth.NewHandler(authSvc)
	profileHandler := profile.NewHandler(profile.NewService(repo))

	jwtmw := middleware.JWTAuth(tokenIssuer, repo)
	rateLimiter := middleware.OTPRateLimit(d.Cache, 5)

	api := app.Group("/api")
	RegisterAuthRoutes(api, authHandler, jwtmw, rateLimiter)
	RegisterUserRoutes(api, profileHandler, jwtmw)

	return nil
}

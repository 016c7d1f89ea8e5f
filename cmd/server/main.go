package main

import (
	"log"

	"github.com/joho/godotenv" // loads .env files in development
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/user-management/internal/auth"
	"github.com/iliyamo/user-management/internal/cache"
	"github.com/iliyamo/user-management/internal/config"
	"github.com/iliyamo/user-management/internal/database"
	"github.com/iliyamo/user-management/internal/email"
	"github.com/iliyamo/user-management/internal/handler"
	"github.com/iliyamo/user-management/internal/middleware"
	"github.com/iliyamo/user-management/internal/queue"
	"github.com/iliyamo/user-management/internal/repository"
	"github.com/iliyamo/user-management/internal/router"
	"github.com/iliyamo/user-management/internal/service"
)

func main() {
	_ = godotenv.Load() // .env is optional; real deployments use the environment

	cfg := config.Load() // exits the process on missing or weak configuration

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}

	rdb := config.NewRedisClient()
	if rdb == nil {
		// The OTP cache backs password recovery; without it the service
		// cannot honor its surface, so refuse to start.
		log.Fatal("redis unavailable: password recovery requires the OTP cache")
	}

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	signer := auth.NewSigner(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience)
	otps := cache.NewRedisOTPCache(rdb, "otp")
	mailer := email.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPFrom)

	sessions := service.NewSessionService(users, tokens, signer, cfg.AccessTTL, cfg.RefreshTTL, cfg.BcryptCost)
	recovery := service.NewRecoveryService(users, tokens, otps, mailer, cfg.OTPTTL, cfg.BcryptCost)
	accounts := service.NewAccountService(users, tokens, cfg.BcryptCost)

	// Audit trail: consume auth events published by the services.
	go func() {
		if err := queue.StartAuditConsumer(); err != nil {
			log.Printf("audit consumer stopped: %v", err)
		}
	}()

	e := echo.New()
	e.Use(middleware.RequestLogger())
	e.Use(middleware.APIKey(cfg.APIKey))

	router.RegisterRoutes(e)
	router.RegisterAuth(e, handler.NewAuthHandler(sessions, recovery), signer, config.LoadRateLimitConfig(), rdb)
	router.RegisterUsers(e, handler.NewUserHandler(accounts), signer)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}

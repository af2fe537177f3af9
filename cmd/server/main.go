package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/zesthaus/event-booking/internal/config"
	"github.com/zesthaus/event-booking/internal/credential"
	"github.com/zesthaus/event-booking/internal/database"
	"github.com/zesthaus/event-booking/internal/handler"
	"github.com/zesthaus/event-booking/internal/logger"
	"github.com/zesthaus/event-booking/internal/middleware"
	"github.com/zesthaus/event-booking/internal/notify"
	"github.com/zesthaus/event-booking/internal/otp"
	"github.com/zesthaus/event-booking/internal/queue"
	"github.com/zesthaus/event-booking/internal/repository"
	"github.com/zesthaus/event-booking/internal/router"
	"github.com/zesthaus/event-booking/internal/service"
)

// dispatcher is a confirmation pipeline that can be drained on shutdown.
type dispatcher interface {
	service.Dispatcher
	Wait()
}

func main() {
	_ = godotenv.Load()
	logger.Init()
	lg := logger.Logger

	cfg := config.Load()
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName, database.Options{})
	if err != nil {
		lg.Fatal().Err(err).Msg("connect database")
	}
	defer db.Close()
	if err := database.Migrate(ctx, db); err != nil {
		lg.Fatal().Err(err).Msg("migrate database")
	}

	rdb := config.NewRedisClient(cfg.Redis)
	if rdb != nil {
		defer rdb.Close()
	}

	mailer, err := notify.NewMailer(ctx, cfg.Mail, lg)
	if err != nil {
		lg.Fatal().Err(err).Msg("configure mailer")
	}
	composer := notify.NewComposer(cfg.Mail)
	reporter := notify.NewLogReporter(lg)

	var confirmations dispatcher
	switch cfg.Notify.Transport {
	case "queue":
		confirmations = queue.NewPublisher(cfg.Notify.AMQPURL, cfg.Notify.Queue, reporter, lg)
		if cfg.Notify.Consume {
			consumer := queue.NewConsumer(cfg.Notify.AMQPURL, cfg.Notify.Queue, mailer, composer, reporter, lg)
			go func() {
				if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
					lg.Error().Err(err).Msg("confirmation consumer stopped")
				}
			}()
		}
	default:
		confirmations = notify.NewAsyncDispatcher(mailer, composer, reporter, 30*time.Second)
	}

	bookingRepo := repository.NewBookingRepo(db)
	userRepo := repository.NewUserRepo(db)

	bookings := service.NewBookingService(bookingRepo, credential.NewQREncoder(8), confirmations, lg)
	redemption := service.NewRedemptionService(bookingRepo, lg)
	auth := service.NewAuthService(otp.NewStore(rdb), userRepo, mailer, composer, service.AuthConfig{
		JWTSecret:   cfg.JWTSecret,
		SessionTTL:  cfg.SessionTTL,
		CodeTTL:     cfg.OTPTTL,
		BcryptCost:  cfg.BcryptCost,
		MaxAttempts: cfg.OTPMaxAttempts,
	}, lg)

	cache := middleware.NewResponseCache(config.LoadCacheConfig(), rdb)
	bookingLimit := middleware.NewTokenBucket(config.LoadRateLimitConfig("bookings", 10, 6*time.Second), rdb)
	otpLimit := middleware.NewTokenBucket(config.LoadRateLimitConfig("otp", 3, 20*time.Second), rdb)
	loginLimit := middleware.NewTokenBucket(config.LoadRateLimitConfig("login", 10, 6*time.Second), rdb)

	e := router.New(lg, cfg.CORSOrigins)
	router.RegisterRoutes(e, &handler.HealthHandler{DB: db, Redis: rdb})
	router.RegisterPublic(e, handler.NewBookingHandler(bookings, cfg.RequestTimeout), bookingLimit, cache)
	router.RegisterAuth(e, handler.NewAuthHandler(auth, bookings, cfg.RequestTimeout), otpLimit, loginLimit, cfg.JWTSecret)
	router.RegisterAdmin(e, handler.NewAdminHandler(bookings, redemption, cfg.RequestTimeout), middleware.NewAccessGuard(cfg.AdminToken), cache)

	go func() {
		addr := ":" + cfg.Port
		lg.Info().Str("addr", addr).Str("env", cfg.Env).Str("notify", cfg.Notify.Transport).Bool("redis", rdb != nil).Msg("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			lg.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	lg.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		lg.Error().Err(err).Msg("http shutdown")
	}
	confirmations.Wait()
}

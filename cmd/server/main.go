package main

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/avierra/space-reservation/internal/booking"
	"github.com/avierra/space-reservation/internal/config"
	"github.com/avierra/space-reservation/internal/database"
	"github.com/avierra/space-reservation/internal/handler"
	appmw "github.com/avierra/space-reservation/internal/middleware"
	"github.com/avierra/space-reservation/internal/pricing"
	"github.com/avierra/space-reservation/internal/queue"
	"github.com/avierra/space-reservation/internal/repository"
	"github.com/avierra/space-reservation/internal/router"
	queue_publisher "github.com/avierra/space-reservation/internal/service"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.Load()

	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", "space-reservation").Logger()
	if cfg.Env == "dev" {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen})
	}

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		logger.Fatal().Err(err).Msg("database connection failed")
	}
	defer db.Close()

	loc, err := time.LoadLocation(cfg.BookingTZ)
	if err != nil {
		logger.Fatal().Err(err).Str("tz", cfg.BookingTZ).Msg("invalid BOOKING_TZ")
	}

	// Lifecycle events are optional: without a broker URL the service runs
	// with events disabled rather than against a stand-in.
	var events booking.EventPublisher
	if cfg.AMQPURL != "" {
		events = queue_publisher.NewPublisher(cfg.AMQPURL, logger)
		go func() {
			if err := queue.StartEventsConsumer(cfg.AMQPURL); err != nil {
				logger.Error().Err(err).Msg("events consumer stopped")
			}
		}()
	} else {
		logger.Warn().Msg("no RABBITMQ_URL configured, reservation events disabled")
	}

	store := repository.NewStore(db)
	svc := booking.NewService(store, pricing.NewCalculator(int64(cfg.ServiceFeeBps)), booking.Options{
		Events:   events,
		Logger:   &logger,
		Location: loc,
	})

	userRepo := repository.NewUserRepo(db)
	tokenRepo := repository.NewTokenRepo(db)

	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()

	// Redis-backed rate limiting and response caching degrade to no-ops
	// when Redis is unreachable.
	rdb := config.NewRedisClient()
	if rdb == nil {
		logger.Warn().Msg("redis unavailable, rate limiting and response cache disabled")
	}
	e.Use(appmw.NewTokenBucket(config.LoadRateLimitConfig(), rdb))
	e.Use(appmw.NewRedisCache(config.LoadCacheConfig(), rdb))

	router.RegisterRoutes(e, db)
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, userRepo, tokenRepo), cfg.JWTSecret)
	router.RegisterSpaces(e, handler.NewSpaceHandler(svc))
	router.RegisterReservations(e, handler.NewReservationHandler(svc), cfg.JWTSecret)

	addr := ":" + cfg.Port
	logger.Info().Str("addr", addr).Str("env", cfg.Env).Msg("listening")
	if err := e.Start(addr); err != nil {
		logger.Fatal().Err(err).Msg("server stopped")
	}
}

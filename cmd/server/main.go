package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/cinema-ticket-checkout/internal/catalog"
	"github.com/iliyamo/cinema-ticket-checkout/internal/config"
	"github.com/iliyamo/cinema-ticket-checkout/internal/database"
	"github.com/iliyamo/cinema-ticket-checkout/internal/handler"
	"github.com/iliyamo/cinema-ticket-checkout/internal/holds"
	"github.com/iliyamo/cinema-ticket-checkout/internal/logging"
	"github.com/iliyamo/cinema-ticket-checkout/internal/middleware"
	"github.com/iliyamo/cinema-ticket-checkout/internal/queue"
	"github.com/iliyamo/cinema-ticket-checkout/internal/repository"
	"github.com/iliyamo/cinema-ticket-checkout/internal/router"
	"github.com/iliyamo/cinema-ticket-checkout/internal/service"
)

func main() {
	cfg := config.Load()
	log := logging.New(cfg.Env, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cat, err := loadCatalog(cfg.CatalogDir)
	if err != nil {
		log.WithError(err).Fatal("load catalog")
	}

	checks := map[string]handler.HealthCheck{}

	// Redis holds the session slots; without it they live in process memory.
	rdb := config.NewRedisClient()
	var slots repository.SlotStore
	if rdb != nil {
		defer rdb.Close()
		slots = repository.NewRedisSlotStore(rdb, "booking:")
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
		log.Info("session slots in redis")
	} else {
		slots = repository.NewMemorySlotStore()
		log.Warn("redis unavailable; session slots kept in memory")
	}
	drafts := repository.NewDraftRepo(slots, cfg.DraftTTL)
	confirmations := repository.NewConfirmationRepo(slots, cfg.DraftTTL)

	var auth holds.Authority
	if cfg.UseMySQL() {
		db, err := database.Open(ctx, database.Options{
			User: cfg.DBUser, Pass: cfg.DBPass, Host: cfg.DBHost, Port: cfg.DBPort, Name: cfg.DBName,
		})
		if err != nil {
			log.WithError(err).Fatal("connect mysql")
		}
		defer db.Close()
		repo := repository.NewSeatHoldRepo(db, cfg.HoldTTL)
		if err := repo.EnsureSchema(ctx); err != nil {
			log.WithError(err).Fatal("create seat_holds table")
		}
		auth = repo
		checks["mysql"] = pingDB(db)
		log.WithField("host", cfg.DBHost).Info("seat holds in mysql")
	} else {
		auth = holds.NewMemoryAuthority(holds.WithTTL(cfg.HoldTTL))
		log.Info("seat holds in memory")
	}

	var publisher service.EventPublisher = service.NopPublisher{}
	if cfg.EventsEnabled {
		publisher = service.NewAMQPPublisher(cfg.RabbitURL, log)
		consumer := queue.NewConsumer(cfg.RabbitURL, "logs", log)
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.WithError(err).Error("booking consumer stopped")
			}
		}()
	}

	bookings := service.NewBookingService(cat, drafts, auth, log)
	checkout := service.NewCheckoutService(drafts, confirmations,
		service.NewSimulatedGateway(cfg.PaymentDelay, cfg.PaymentDeclineRate),
		service.WithHoldAuthority(auth),
		service.WithEventPublisher(publisher),
		service.WithCheckoutLogger(log),
	)

	sweeper, err := holds.NewSweeper(auth, cfg.HoldSweepInterval, log)
	if err != nil {
		log.WithError(err).Fatal("create hold sweeper")
	}
	sweeper.AfterSweep(func() {
		if n := bookings.Prune(cfg.ViewIdleTTL); n > 0 {
			log.WithField("dropped", n).Debug("idle seat maps dropped")
		}
	})
	if err := sweeper.Start(); err != nil {
		log.WithError(err).Fatal("start hold sweeper")
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.RequestLog(log))
	router.RegisterRoutes(e, router.Handlers{
		Health:   handler.NewHealthHandler(checks),
		Catalog:  handler.NewCatalogHandler(cat),
		Booking:  handler.NewBookingHandler(bookings, log),
		Checkout: handler.NewCheckoutHandler(checkout, bookings, log),
	}, routeMiddleware(cfg, rdb, log))

	go func() {
		addr := ":" + cfg.Port
		log.WithFields(logrus.Fields{"addr": addr, "env": cfg.Env}).Info("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("http server")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("http shutdown")
	}
	if err := sweeper.Stop(); err != nil {
		log.WithError(err).Warn("stop hold sweeper")
	}
	checkout.Wait()
}

func loadCatalog(dir string) (*catalog.Catalog, error) {
	if dir != "" {
		return catalog.FromDir(dir)
	}
	return catalog.Default()
}

func pingDB(db *sql.DB) handler.HealthCheck {
	return func(ctx context.Context) error { return db.PingContext(ctx) }
}

// routeMiddleware builds the session, rate limit and cache middleware.
// A nil client must reach the constructors as a nil interface so that
// they fall back to pass-through.
func routeMiddleware(cfg config.Config, rdb *redis.Client, log logrus.FieldLogger) router.Middleware {
	var (
		scripter redis.Scripter
		store    middleware.CacheStore
	)
	if rdb != nil {
		scripter, store = rdb, rdb
	}
	return router.Middleware{
		Session:   middleware.Session(cfg.SessionSecret, cfg.SessionTTL, cfg.SecureCookies(), log),
		RateLimit: middleware.NewTokenBucket(config.LoadRateLimitConfig(), scripter, log),
		Cache:     middleware.NewRedisCache(config.LoadCacheConfig(), store),
	}
}

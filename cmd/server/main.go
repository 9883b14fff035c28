package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/backend"
	"github.com/Skotchmaster/storefront/internal/checkout"
	"github.com/Skotchmaster/storefront/internal/config"
	"github.com/Skotchmaster/storefront/internal/guard"
	"github.com/Skotchmaster/storefront/internal/handlers"
	"github.com/Skotchmaster/storefront/internal/kvstore"
	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/notify"
	"github.com/Skotchmaster/storefront/internal/profile"
	"github.com/Skotchmaster/storefront/internal/search"
	"github.com/Skotchmaster/storefront/internal/session"
	httpserver "github.com/Skotchmaster/storefront/internal/transport/http"
)

func main() {
	cfg := config.Load()
	log := logging.New(cfg.LogLevel)
	slog.SetDefault(log)

	var (
		db     *gorm.DB
		stores profile.StoreFunc
	)
	switch cfg.StoreDriver {
	case "memory":
		stores = kvstore.NewSpaces().For
		log.Warn("using in-memory store, carts are lost on restart")
	default:
		initCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		var err error
		db, err = config.OpenProfileDB(initCtx, cfg.DB, log)
		cancel()
		if err != nil {
			log.Error("db init error", "error", err)
			os.Exit(1)
		}
		stores = func(id string) kvstore.Store { return kvstore.NewGorm(db, id) }
	}

	var publisher notify.Publisher = notify.Nop{}
	if len(cfg.KafkaBrokers) > 0 {
		if err := notify.EnsureTopics(cfg.KafkaBrokers[0], notify.TopicCartEvents, notify.TopicOrderEvents); err != nil {
			log.Warn("kafka topics not ensured", "error", err)
		}
		kp, err := notify.NewKafkaPublisher(cfg.KafkaBrokers, log)
		if err != nil {
			log.Error("kafka init error", "error", err)
			os.Exit(1)
		}
		publisher = kp
	}

	searchClient, err := search.NewClient(search.Config{
		URL:      cfg.ESURL,
		Username: cfg.ESUser,
		Password: cfg.ESPassword,
		Index:    cfg.ESIndex,
	}, log)
	if err != nil {
		log.Warn("search disabled", "error", err)
		searchClient = nil
	}

	api := backend.NewClient(cfg.BackendURL)
	profiles := profile.NewRegistry(profile.Options{
		Stores:    stores,
		Fetcher:   api,
		Verifier:  session.NewIdentityVerifier(cfg.IdentitySecret),
		Publisher: publisher,
		Debounce:  cfg.CartDebounce,
		IdleTTL:   cfg.ProfileIdleTTL,
		Log:       log,
	})

	h := handlers.New(profiles, api, guard.Paths{
		SignIn:    cfg.SignInPath,
		Landing:   cfg.LandingPath,
		Forbidden: cfg.ForbiddenPath,
	}, cfg.CookieSecure)
	h.Search = searchClient
	if cfg.PaymentURL != "" {
		h.Payments = checkout.NewService(api, checkout.NewHTTPProcessor(cfg.PaymentURL), publisher, log)
	} else {
		log.Warn("PAYMENT_URL not set, checkout disabled")
	}

	e := echo.New()
	e.HideBanner = true
	e.Pre(middleware.RemoveTrailingSlash())
	httpserver.Register(e, &httpserver.Deps{
		Handler:      h,
		Log:          log,
		AllowOrigins: cfg.AllowOrigins,
		CookieSecure: cfg.CookieSecure,
	})

	sweepCtx, stopSweep := context.WithCancel(context.Background())
	go profiles.Run(sweepCtx, cfg.ProfileIdleTTL/4)

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           e,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 3 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	go func() {
		log.Info("starting storefront", "addr", cfg.ListenAddr, "store", cfg.StoreDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down")

	go func() {
		<-quit
		log.Warn("force exit")
		os.Exit(1)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("server shutdown error", "error", err)
	}

	stopSweep()
	profiles.Shutdown()

	if err := publisher.Close(); err != nil {
		log.Error("kafka close error", "error", err)
	}
	if db != nil {
		if sqlDB, err := db.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				log.Error("db close error", "error", err)
			}
		}
	}
	log.Info("shutdown complete")
}

package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/tradepost/storefront/internal/config"
	"github.com/tradepost/storefront/internal/events"
	"github.com/tradepost/storefront/internal/handlers"
	"github.com/tradepost/storefront/internal/logging"
	"github.com/tradepost/storefront/internal/mail"
	authmw "github.com/tradepost/storefront/internal/middleware"
	"github.com/tradepost/storefront/internal/search"
	httpserver "github.com/tradepost/storefront/internal/transport/http"
	"github.com/tradepost/storefront/internal/validation"
)

func main() {
	configuration, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	logger := logging.New(configuration.LOG_LEVEL)

	db, err := config.InitDB(configuration)
	if err != nil {
		log.Fatalf("database init error: %v", err)
	}

	jwtSecret := []byte(configuration.JWT_SECRET)

	producer := events.NewProducer([]string{configuration.KAFKA_ADDRESS})

	esClient, err := search.NewClient(configuration)
	if err != nil {
		logger.Warn("elasticsearch unavailable, search disabled", "error", err)
		esClient = nil
	}

	mailer := mail.NewSMTPMailer(
		configuration.SMTP_HOST,
		configuration.SMTP_PORT,
		configuration.SMTP_USER,
		configuration.SMTP_PASSWORD,
		configuration.MAIL_FROM,
	)

	e := echo.New()
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover(), middleware.RequestID())
	e.Validator = validation.New()

	deps := httpserver.Deps{
		DB:   db,
		Auth: &authmw.Auth{DB: db, JWTSecret: jwtSecret},
		AuthHandler: &handlers.AuthHandler{
			DB:        db,
			JWTSecret: jwtSecret,
		},
		MerchantHandler: &handlers.MerchantHandler{
			DB:     db,
			Mailer: mailer,
			Events: producer,
			AppURL: configuration.APP_URL,
		},
		StoreHandler: &handlers.StoreHandler{
			DB:     db,
			Events: producer,
		},
		ProductHandler: &handlers.ProductHandler{
			DB:     db,
			Events: producer,
			ES:     esClient,
		},
		OrderHandler: &handlers.OrderHandler{
			DB:     db,
			Mailer: mailer,
			Events: producer,
			AppURL: configuration.APP_URL,
		},
	}

	httpserver.Register(e, &deps)

	srv := &http.Server{
		Addr:         ":" + configuration.PORT,
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()
	logger.Info("server started", "port", configuration.PORT)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	if sqlDB, err := db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			logger.Error("db close error", "error", err)
		}
	}

	if err := producer.Close(); err != nil {
		logger.Error("producer close error", "error", err)
	}

	logger.Info("shutdown complete")
}

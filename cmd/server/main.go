// @title                      MPT Warrior Registration & Access API
// @version                    1.0
// @description                Invitation-code gated registration, account lifecycle and bearer tokens.
// @BasePath                   /
// @securityDefinitions.apikey BearerAuth
// @in                         header
// @name                       Authorization
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/multierr"

	"github.com/Hdiignna-DEV/mpt-warrior-sub003/internal/api"
	"github.com/Hdiignna-DEV/mpt-warrior-sub003/internal/api/handler"
	"github.com/Hdiignna-DEV/mpt-warrior-sub003/internal/core/service"
	"github.com/Hdiignna-DEV/mpt-warrior-sub003/internal/infrastructure/config"
	mongodb "github.com/Hdiignna-DEV/mpt-warrior-sub003/internal/infrastructure/db/mongo"
	redisdb "github.com/Hdiignna-DEV/mpt-warrior-sub003/internal/infrastructure/db/redis"
	"github.com/Hdiignna-DEV/mpt-warrior-sub003/internal/infrastructure/http/handlers"
	"github.com/Hdiignna-DEV/mpt-warrior-sub003/internal/infrastructure/mail"
	"github.com/Hdiignna-DEV/mpt-warrior-sub003/internal/infrastructure/queue"
	"github.com/Hdiignna-DEV/mpt-warrior-sub003/internal/infrastructure/scheduler"
	"github.com/Hdiignna-DEV/mpt-warrior-sub003/pkg/logger"
)

const (
	version         = "1.0.0"
	shutdownTimeout = 15 * time.Second
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "mpt-access: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.LogPretty,
		Service: "mpt-access",
	})
	log.Info().Str("env", cfg.Env).Str("port", cfg.Port).Msg("starting")

	// --- Storage ---
	mongoClient, db, err := mongodb.Connect(ctx, mongodb.Config{
		URI:      cfg.Mongo.URI,
		Database: cfg.Mongo.Database,
		AppName:  "mpt-access",
		Timeout:  cfg.Mongo.Timeout,
	})
	if err != nil {
		return err
	}
	rdb, err := redisdb.Connect(ctx, redisdb.Config{
		Addr:       cfg.Redis.Addr,
		Password:   cfg.Redis.Password,
		DB:         cfg.Redis.DB,
		ClientName: "mpt-access",
	})
	if err != nil {
		return multierr.Append(err, mongoClient.Disconnect(context.Background()))
	}

	accountRepo := mongodb.NewAccountRepository(db)
	codeRepo := mongodb.NewInvitationRepository(db)
	auditRepo := mongodb.NewAuditRepository(db)
	if err := mongodb.EnsureIndexes(ctx, accountRepo, codeRepo, auditRepo); err != nil {
		return multierr.Combine(err, rdb.Close(), mongoClient.Disconnect(context.Background()))
	}

	// --- Services ---
	stats := service.NewStatsService(
		accountRepo,
		codeRepo,
		redisdb.NewCache(rdb, logger.WithModule("cache")),
		cfg.Maintenance.StatsCacheTTL,
		logger.WithModule("stats"),
	)
	ledger := service.NewLedgerService(codeRepo, auditRepo, stats, logger.WithModule("ledger"))
	tokens := service.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)

	mailer := mail.NewSMTPMailer(mail.Config{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
	})
	if !mailer.Enabled() {
		log.Warn().Msg("SMTP_HOST not set, approval emails are disabled")
	}
	dispatcher := queue.NewDispatcher(
		cfg.SMTP.Workers,
		mailer,
		redisdb.NewNotificationDedup(rdb),
		cfg.AppURL,
		logger.WithModule("notify"),
	)
	workerCtx, stopWorkers := context.WithCancel(context.Background())
	dispatcher.Start(workerCtx)

	accounts := service.NewAccountService(service.AccountDeps{
		Accounts:        accountRepo,
		Ledger:          ledger,
		Tokens:          tokens,
		Notifier:        dispatcher,
		Audit:           auditRepo,
		Stats:           stats,
		SuperAdminEmail: cfg.SuperAdminEmail,
	}, logger.WithModule("accounts"))

	housekeeper := scheduler.NewHousekeeper(ledger, stats, logger.WithModule("housekeeping"),
		scheduler.WithExpirySchedule(cfg.Maintenance.HousekeepingSchedule),
	)
	if err := housekeeper.Start(); err != nil {
		stopWorkers()
		return multierr.Combine(err, rdb.Close(), mongoClient.Disconnect(context.Background()))
	}

	// --- HTTP ---
	e := api.NewRouter(api.Deps{
		Accounts:  accounts,
		Ledger:    ledger,
		Stats:     stats,
		Audit:     service.NewAuditService(auditRepo),
		Tokens:    tokens,
		Finder:    accountRepo,
		Cookie:    handler.CookieOptions{TTL: tokens.TTL(), Secure: cfg.Auth.CookieSecure},
		RateLimit: cfg.Auth.RateLimit,
		RateBurst: cfg.Auth.RateBurst,
		HealthChecks: map[string]handlers.CheckFunc{
			"mongodb": handlers.MongoCheck(db),
			"redis":   handlers.RedisCheck(rdb),
		},
		Version: version,
		Log:     logger.WithModule("http"),
	})

	serveErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", ":"+cfg.Port).Msg("http server listening")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case runErr = <-serveErr:
	}

	// --- Shutdown ---
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	errs := runErr
	errs = multierr.Append(errs, e.Shutdown(shutdownCtx))
	<-housekeeper.Stop().Done()
	stopWorkers()
	dispatcher.Wait()
	errs = multierr.Append(errs, rdb.Close())
	errs = multierr.Append(errs, mongoClient.Disconnect(shutdownCtx))

	if errs == nil {
		log.Info().Msg("shutdown complete")
	}
	return errs
}

package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"foundrgpt/internal/account"
	"foundrgpt/internal/adapter/repo"
	"foundrgpt/internal/chat"
	"foundrgpt/internal/http/handlers"
	httpapi "foundrgpt/internal/http/httpapi"
	"foundrgpt/internal/ideas"
	"foundrgpt/internal/infra"
	"foundrgpt/internal/infra/geoip"
	"foundrgpt/internal/infra/identity"
	"foundrgpt/internal/middleware"
	"foundrgpt/internal/payment"
	"foundrgpt/internal/providers/completion"
	"foundrgpt/internal/sqlinline"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx := context.Background()
	dbpool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	defer dbpool.Close()

	runner := infra.NewSQLRunner(dbpool, logger)
	if err := bootstrapSchema(ctx, runner); err != nil {
		logger.Fatal().Err(err).Msg("failed to apply schema")
	}

	accounts := account.NewService(repo.NewAccountRepository(runner), logger)
	chats := chat.NewService(accounts)
	usage := repo.NewUsageRepository(runner, logger)

	completer := completion.NewClient(completion.Options{
		APIKey:         cfg.CompletionAPIKey,
		Model:          cfg.CompletionModel,
		BaseURL:        cfg.CompletionBaseURL,
		HTTPClient:     completion.NewCachingDoer(&http.Client{}, 30*time.Second),
		Logger:         logger,
		RequestTimeout: cfg.CompletionTimeout,
	})
	ideaSvc := ideas.NewService(accounts, chats, completer, usage, logger)

	gateway := payment.NewClient(payment.ClientOptions{
		KeyID:     cfg.GatewayKeyID,
		KeySecret: cfg.GatewayKeySecret,
		BaseURL:   cfg.GatewayBaseURL,
		Logger:    logger,
	})
	payments := payment.NewService(gateway, accounts, cfg.GatewayKeySecret, cfg.GatewayWebhookSecret, logger)
	if !cfg.PaymentsEnabled() {
		logger.Warn().Msg("payment gateway credentials missing, payment routes will reject requests")
	}

	var countryLookup middleware.CountryLookup
	resolver, err := geoip.NewResolver(cfg.GeoIPDBPath)
	if err != nil {
		logger.Warn().Err(err).Msg("geoip database unavailable, currency falls back to USD")
	} else if resolver != nil {
		defer resolver.Close()
		countryLookup = resolver.CountryCode
	}

	app := &handlers.App{
		Accounts:  accounts,
		Chats:     chats,
		Ideas:     ideaSvc,
		Payments:  payments,
		Identity:  identity.NewVerifier(cfg.IdentityIssuer, cfg.IdentityAudience),
		DB:        dbpool,
		JWTSecret: cfg.JWTSecret,
		Logger:    logger,
	}
	router := httpapi.NewRouter(app, cfg, countryLookup)
	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Msgf("API listening on %s", server.Addr())
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}

func bootstrapSchema(ctx context.Context, runner *infra.SQLRunner) error {
	for _, q := range []string{sqlinline.QCreateAccountsTable, sqlinline.QCreateUsageEventsTable} {
		if _, err := runner.Exec(ctx, q); err != nil {
			return err
		}
	}
	return nil
}

package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/disputehq/creditlens/internal/application"
	appanalysis "github.com/disputehq/creditlens/internal/application/analysis"
	appleads "github.com/disputehq/creditlens/internal/application/leads"
	appletters "github.com/disputehq/creditlens/internal/application/letters"
	"github.com/disputehq/creditlens/internal/config"
	domanalysis "github.com/disputehq/creditlens/internal/domain/analysis"
	domfaults "github.com/disputehq/creditlens/internal/domain/faults"
	domleads "github.com/disputehq/creditlens/internal/domain/leads"
	"github.com/disputehq/creditlens/internal/infra/ai/gemini"
	openaic "github.com/disputehq/creditlens/internal/infra/ai/openai"
	mysqlp "github.com/disputehq/creditlens/internal/infra/db/mysql"
	postgresp "github.com/disputehq/creditlens/internal/infra/db/postgres"
	"github.com/disputehq/creditlens/internal/infra/httpserver"
	archiveStore "github.com/disputehq/creditlens/internal/infra/storage"
	"github.com/disputehq/creditlens/internal/middleware"
)

func main() {
	// secrets may live in a local .env during development
	_ = godotenv.Load()

	path := "config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		path = v
	}

	cfg, err := config.Load(path)
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", "creditlens-api").Logger()

	ctx := context.Background()

	var (
		db        *sql.DB
		leadRepo  domleads.Repository
		faultRepo domfaults.Repository
	)
	switch cfg.Database.Driver {
	case "postgres":
		db, err = postgresp.Connect(ctx, cfg.PostgresDSN())
		if err != nil {
			log.Fatalf("postgres connect error: %v", err)
		}
		leadRepo = postgresp.NewLeadRepository(db)
		faultRepo = postgresp.NewFaultRepository(db)
	default:
		db, err = mysqlp.Connect(ctx, cfg.MySQLDSN())
		if err != nil {
			log.Fatalf("mysql connect error: %v", err)
		}
		leadRepo = mysqlp.NewLeadRepository(db)
		faultRepo = mysqlp.NewFaultRepository(db)
	}
	defer db.Close()

	var archive domanalysis.ArchiveStore
	if cfg.Archive.Enabled {
		store, err := archiveStore.New(ctx,
			cfg.Archive.Endpoint,
			cfg.Archive.Region,
			cfg.Archive.BucketName,
			cfg.Archive.AccessKey,
			cfg.Archive.SecretKey,
			cfg.Archive.UseSSL,
		)
		if err != nil {
			log.Fatalf("archive init error: %v", err)
		}
		archive = store
	}

	model := gemini.NewClient(cfg.Gemini.APIKey, cfg.Gemini.Model, cfg.Gemini.Endpoint)
	letterGen := openaic.NewClient(cfg.OpenAI.APIKey, cfg.OpenAI.Model)

	clock := application.SystemClock{}
	analysisSvc := &appanalysis.Service{
		Leads:   leadRepo,
		Faults:  faultRepo,
		Model:   model,
		Archive: archive,
		Clock:   clock,
	}
	leadsSvc := appleads.NewService(leadRepo, clock)
	lettersSvc := appletters.NewService(letterGen)

	burst := middleware.NewRateLimiter(cfg.Limits.BurstCapacity, cfg.Limits.BurstRefillPerSec)
	gate, err := middleware.NewGatekeeper(
		cfg.Security.AllowedOrigins,
		cfg.Security.OriginPatterns,
		cfg.MaxRequestBytes(),
		cfg.Limits.RateLimitMax,
		cfg.RateWindow(),
		leadRepo,
		burst,
	)
	if err != nil {
		log.Fatalf("gatekeeper init error: %v", err)
	}

	handler := httpserver.NewRouter(httpserver.Options{
		Analysis:        analysisSvc,
		Leads:           leadsSvc,
		Letters:         lettersSvc,
		Gate:            gate,
		AdminAPIKeys:    cfg.Security.AdminAPIKeys,
		AllowedOrigins:  cfg.Security.AllowedOrigins,
		MaxRequestBytes: cfg.MaxRequestBytes(),
		MaxFileBytes:    cfg.MaxFileBytes(),
		HealthCheckers: map[string]middleware.HealthChecker{
			"database": &middleware.DatabaseHealthChecker{DB: db},
		},
		Logger: logger,
	})

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: handler,
		// No WriteTimeout: the analyze stream outlives any fixed deadline.
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	logger.Info().Msg("shutting down server")

	ctx2, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx2); err != nil {
		logger.Error().Err(err).Msg("shutdown error")
	}
}

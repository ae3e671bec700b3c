package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/gwas-risk-engine/internal/api"
	"github.com/gwas-risk-engine/internal/catalog"
	"github.com/gwas-risk-engine/internal/config"
	"github.com/gwas-risk-engine/internal/database"
	"github.com/gwas-risk-engine/internal/domain"
	"github.com/gwas-risk-engine/internal/results"
	"github.com/gwas-risk-engine/internal/service"
	"github.com/gwas-risk-engine/internal/session"
)

func main() {
	// Load configuration
	configManager, err := config.NewManager()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Validate configuration
	if err := configManager.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}

	cfg := configManager.GetConfig()
	logger := newLogger(cfg.Logging)

	logger.WithFields(logrus.Fields{
		"host":    cfg.Server.Host,
		"port":    cfg.Server.Port,
		"catalog": cfg.Catalog.Backend,
		"session": cfg.Session.Backend,
	}).Info("Starting GWAS risk engine")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Study catalog backend
	var source domain.StudySource
	switch cfg.Catalog.Backend {
	case "sqlite":
		sqliteSource, err := catalog.NewSQLiteSource(cfg.Catalog.SQLitePath)
		if err != nil {
			logger.WithField("error", err).Fatal("Failed to open sqlite catalog")
		}
		defer sqliteSource.Close()
		source = sqliteSource
	default:
		runMigrations(configManager, cfg, logger)

		db, err := database.NewConnection(ctx, database.Config{
			Host:        cfg.Database.Host,
			Port:        cfg.Database.Port,
			Database:    cfg.Database.Database,
			Username:    cfg.Database.Username,
			Password:    cfg.Database.Password,
			MaxConns:    int32(cfg.Database.MaxOpenConns),
			MinConns:    int32(cfg.Database.MinConns),
			MaxConnLife: cfg.Database.ConnMaxLifetime,
			SSLMode:     cfg.Database.SSLMode,
		}, logger)
		if err != nil {
			logger.WithField("error", err).Fatal("Failed to connect to catalog database")
		}
		defer db.Close()
		source = catalog.NewPostgresSource(db.Pool, logger)
	}
	source = catalog.NewBreakerSource(source, logger)

	// Genotype session store
	var genotypes domain.GenotypeStore
	if cfg.Session.Backend == "redis" {
		redisStore, err := session.NewRedisStore(cfg.Session)
		if err != nil {
			logger.WithField("error", err).Fatal("Failed to connect to redis")
		}
		defer redisStore.Close()
		genotypes = redisStore
	} else {
		genotypes = session.NewMemoryStore()
	}

	// Match result store
	matchStore, err := results.NewSQLiteStore(cfg.Scan.ResultsPath)
	if err != nil {
		logger.WithField("error", err).Fatal("Failed to open results store")
	}
	defer matchStore.Close()

	pipeline, err := service.NewPipeline(logger, cfg.Catalog.SNPCacheSize, cfg.Catalog.PageSize)
	if err != nil {
		logger.WithField("error", err).Fatal("Failed to build filter pipeline")
	}
	scanner := service.NewScanner(logger, source, matchStore, cfg.Scan)

	server := api.NewServer(configManager, logger, source, genotypes, matchStore, pipeline, scanner)

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, gracefully shutting down")
		cancel()
	}()

	if err := server.Start(ctx); err != nil {
		logger.WithField("error", err).Fatal("Server failed")
	}

	logger.Info("Server stopped")
}

func runMigrations(configManager *config.Manager, cfg *domain.Config, logger *logrus.Logger) {
	runner, err := database.NewMigrationRunner(configManager.GetDatabaseURL(), cfg.Database.MigrationsPath, logger)
	if err != nil {
		logger.WithField("error", err).Fatal("Failed to initialize migrations")
	}
	defer runner.Close()

	if err := runner.Up(); err != nil {
		logger.WithField("error", err).Fatal("Failed to run migrations")
	}
}

func newLogger(cfg domain.LoggingConfig) *logrus.Logger {
	logger := logrus.New()

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if cfg.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	if cfg.Output == "stderr" {
		logger.SetOutput(os.Stderr)
	} else {
		logger.SetOutput(os.Stdout)
	}

	return logger
}

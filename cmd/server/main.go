package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/subosito/gotenv"
	"go.uber.org/zap"

	"github.com/nordwind/parkoffice/internal/application/service"
	"github.com/nordwind/parkoffice/internal/billing"
	"github.com/nordwind/parkoffice/internal/config"
	httpadapter "github.com/nordwind/parkoffice/internal/interfaces/http"
	"github.com/nordwind/parkoffice/internal/infrastructure/persistence/repository"
	"github.com/nordwind/parkoffice/internal/infrastructure/persistence/sqlite"
	"github.com/nordwind/parkoffice/internal/shapefile"
	"github.com/nordwind/parkoffice/pkg/database"
	"github.com/nordwind/parkoffice/pkg/utils"
)

func main() {
	// .env is optional, real deployments set the environment directly
	_ = gotenv.Load()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting park office backend",
		zap.Int("port", cfg.Server.Port))

	sqlDB, err := database.Open(database.Config{
		Path:            cfg.Database.Path,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer sqlDB.Close()

	migrator := database.NewMigrator(sqlDB, logger)
	if err := migrator.Run(cfg.Database.MigrationsDir); err != nil {
		logger.Fatal("Failed to run database migrations", zap.Error(err))
	}

	db := sqlite.NewDB(sqlDB, logger)
	invoiceRepo := repository.NewInvoiceRepository(sqlDB, logger)
	numberAllocator := repository.NewNumberAllocator(sqlDB, logger)

	taxRates := billing.NewStaticTaxRateResolver(
		cfg.Billing.StandardTaxRate, cfg.Billing.ReducedTaxRate)

	correctionService := service.NewCorrectionService(
		invoiceRepo, numberAllocator, taxRates, db, logger)
	historyService := service.NewHistoryService(invoiceRepo, logger)
	exportService := service.NewExportService(invoiceRepo, historyService, logger)

	decoder := shapefile.NewZipDecoder(logger)
	parser := shapefile.NewParser(decoder, logger)

	server := httpadapter.NewServer(httpadapter.ServerConfig{
		Host:          cfg.Server.Host,
		Port:          cfg.Server.Port,
		ReadTimeout:   cfg.Server.ReadTimeout,
		WriteTimeout:  cfg.Server.WriteTimeout,
		MaxUploadSize: cfg.Server.MaxUploadSize,
	}, correctionService, historyService, exportService, parser, logger)

	if err := server.Start(); err != nil {
		logger.Fatal("Failed to start HTTP server", zap.Error(err))
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutdown signal received")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Server shutdown failed", zap.Error(err))
	}
	logger.Info("Server stopped")
}

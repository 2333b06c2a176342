package main

import (
	"context"
	"errors"
	"math/rand"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fekuna/spaceflow-wms-service/config"
	"github.com/fekuna/spaceflow-wms-service/internal/auth"
	"github.com/fekuna/spaceflow-wms-service/internal/command"
	"github.com/fekuna/spaceflow-wms-service/internal/location"
	"github.com/fekuna/spaceflow-wms-service/internal/logger"
	"github.com/fekuna/spaceflow-wms-service/internal/metrics"
	"github.com/fekuna/spaceflow-wms-service/internal/pallet"
	palletH "github.com/fekuna/spaceflow-wms-service/internal/pallet/handler"
	palletListenerPkg "github.com/fekuna/spaceflow-wms-service/internal/pallet/listener"
	palletPublisherPkg "github.com/fekuna/spaceflow-wms-service/internal/pallet/publisher"
	palletRepoPkg "github.com/fekuna/spaceflow-wms-service/internal/pallet/repository"
	palletUCPkg "github.com/fekuna/spaceflow-wms-service/internal/pallet/usecase"
	"github.com/fekuna/spaceflow-wms-service/internal/translator"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

func main() {
	// 1. Load Configuration
	_ = godotenv.Load() // Load .env file if it exists
	cfg := config.LoadEnv()

	// 2. Initialize Logger
	logConfig := &logger.ZapLoggerConfig{
		IsDevelopment:     false,
		Encoding:          cfg.Logger.Encoding,
		Level:             cfg.Logger.Level,
		DisableCaller:     cfg.Logger.DisableCaller,
		DisableStacktrace: cfg.Logger.DisableStacktrace,
	}
	if cfg.Server.AppEnv == "development" {
		logConfig.IsDevelopment = true
		logConfig.Encoding = "console"
		logConfig.Level = "debug"
	}

	appLogger := logger.NewZapLogger(logConfig)
	defer appLogger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Warehouse layout
	layout, err := config.LoadLayout(cfg.Warehouse.LayoutFile)
	if err != nil {
		appLogger.Fatal("Could not load warehouse layout", zap.Error(err))
	}
	grid, err := location.NewGrid(layout)
	if err != nil {
		appLogger.Fatal("Invalid warehouse layout", zap.Error(err))
	}
	appLogger.Info("Warehouse layout loaded",
		zap.Strings("zones", layout.Zones),
		zap.Int("slots_per_zone", grid.SlotsPerZone()),
	)

	// 4. Initialize Repository
	var (
		palletRepo     pallet.Repository
		snapshotWriter pallet.SnapshotWriter
		eventSinks     palletPublisherPkg.Fanout
	)
	switch cfg.Data.Source {
	case "postgres":
		db, err := sqlx.Connect("pgx", cfg.Postgres.DSN())
		if err != nil {
			appLogger.Fatal("Could not connect to database", zap.Error(err))
		}
		db.SetMaxOpenConns(cfg.Postgres.MaxOpenConns)
		db.SetMaxIdleConns(cfg.Postgres.MaxIdleConns)
		db.SetConnMaxLifetime(time.Duration(cfg.Postgres.ConnMaxLifetime) * time.Second)
		db.SetConnMaxIdleTime(time.Duration(cfg.Postgres.ConnMaxIdleTime) * time.Second)
		defer db.Close()
		appLogger.Info("Connected to PostgreSQL database", zap.String("db_name", cfg.Postgres.DBName))
		pgRepo := palletRepoPkg.NewPGRepository(db)
		palletRepo, snapshotWriter = pgRepo, pgRepo
		if cfg.Data.EventLedger {
			eventSinks = append(eventSinks, pgRepo)
		}
	case "json":
		jsonRepo := palletRepoPkg.NewJSONRepository(cfg.Data.File)
		palletRepo, snapshotWriter = jsonRepo, jsonRepo
		appLogger.Info("Using JSON pallet snapshot", zap.String("file", cfg.Data.File))
	default:
		appLogger.Fatal("Unknown data source", zap.String("source", cfg.Data.Source))
	}

	// 5. Metrics
	appMetrics := metrics.New()

	// 6. Initialize Translator (+ Redis cache)
	var tr translator.Translator = translator.NewOpenAITranslator(translator.Config{
		BaseURL:     cfg.Translator.BaseURL,
		APIKey:      cfg.Translator.APIKey,
		Model:       cfg.Translator.Model,
		Timeout:     cfg.Translator.Timeout,
		Temperature: float32(cfg.Translator.Temperature),
	}, appLogger)
	if cfg.Translator.APIKey == "" {
		appLogger.Warn("OPENAI_API_KEY is not set, prompt translation will fail")
	}

	if cfg.Redis.Enabled {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			appLogger.Warn("Redis unreachable, intent cache degrades to pass-through", zap.Error(err))
		} else {
			appLogger.Info("Connected to Redis", zap.String("addr", cfg.Redis.Addr))
		}
		tr = translator.NewCachedTranslator(tr, redisClient, cfg.Translator.Model, cfg.Redis.IntentCacheTTL, appLogger)
	}

	// 7. Initialize Kafka publisher
	ucOpts := []palletUCPkg.Option{
		palletUCPkg.WithMetrics(appMetrics),
		palletUCPkg.WithSimulationPeriod(cfg.Simulation.Period),
	}
	if cfg.Simulation.Seed != 0 {
		ucOpts = append(ucOpts, palletUCPkg.WithRand(rand.New(rand.NewSource(cfg.Simulation.Seed))))
	}
	if cfg.Kafka.Enabled {
		eventPublisher := palletPublisherPkg.NewKafkaPublisher(palletPublisherPkg.Config{
			Brokers: cfg.Kafka.Brokers,
			Topic:   cfg.Kafka.EventTopic,
		}, appLogger)
		defer eventPublisher.Close()
		eventSinks = append(eventSinks, eventPublisher)
		appLogger.Info("Kafka event publisher ready", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.EventTopic))
	}
	if len(eventSinks) > 0 {
		ucOpts = append(ucOpts, palletUCPkg.WithPublisher(eventSinks))
	}

	// 8. Initialize UseCase and command layer
	palletUC, err := palletUCPkg.NewPalletUseCase(ctx, palletRepo, grid, appLogger, ucOpts...)
	if err != nil {
		appLogger.Fatal("Could not load pallets", zap.Error(err))
	}
	commands, err := command.NewService(palletUC, tr, command.Config{
		Zones:            layout.Zones,
		LegacyVocabulary: cfg.Translator.LegacyVocabulary,
		Locale:           cfg.Locale,
	}, appMetrics, appLogger)
	if err != nil {
		appLogger.Fatal("Could not initialize command service", zap.Error(err))
	}

	g, gctx := errgroup.WithContext(ctx)

	// 9. Initialize Listener
	if cfg.Kafka.Enabled {
		reader := palletListenerPkg.NewKafkaReader(palletListenerPkg.Config{
			Brokers: cfg.Kafka.Brokers,
			Topic:   cfg.Kafka.ScannerTopic,
			GroupID: cfg.Kafka.GroupID,
		})
		scannerListener := palletListenerPkg.NewScannerListener(reader, palletUC, appMetrics, appLogger)
		defer scannerListener.Close()
		g.Go(func() error {
			scannerListener.Start(gctx)
			return nil
		})
	}

	if cfg.Simulation.Enabled {
		palletUC.StartSimulation(gctx)
	}

	// 10. Start gRPC Server
	port := cfg.Server.GRPCPort
	if !strings.HasPrefix(port, ":") {
		port = ":" + port
	}
	lis, err := net.Listen("tcp", port)
	if err != nil {
		appLogger.Fatal("failed to listen", zap.Error(err))
	}

	grpcServer := grpc.NewServer(
		grpc.UnaryInterceptor(auth.ContextInterceptor(appLogger)),
	)
	palletH.RegisterPalletServiceServer(grpcServer, palletH.NewPalletHandler(commands, palletUC, grid, appLogger))

	healthServer := health.NewServer()
	healthServer.SetServingStatus(palletH.ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(grpcServer, healthServer)

	reflection.Register(grpcServer)

	g.Go(func() error {
		appLogger.Info("Starting gRPC server", zap.String("port", port))
		return grpcServer.Serve(lis)
	})

	// 11. Metrics endpoint
	mux := http.NewServeMux()
	mux.Handle("/metrics", appMetrics.Handler())
	metricsServer := &http.Server{
		Addr:              cfg.Server.MetricsPort,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	g.Go(func() error {
		appLogger.Info("Starting metrics server", zap.String("addr", cfg.Server.MetricsPort))
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	// Graceful Shutdown
	g.Go(func() error {
		<-gctx.Done()
		appLogger.Info("Shutting down server...")
		healthServer.Shutdown()
		palletUC.StopSimulation()
		grpcServer.GracefulStop()

		if cfg.Data.SaveOnExit {
			saveCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := snapshotWriter.SavePallets(saveCtx, palletUC.Pallets()); err != nil {
				appLogger.Error("Could not save pallet snapshot", zap.Error(err))
			} else {
				appLogger.Info("Pallet snapshot saved", zap.String("source", cfg.Data.Source))
			}
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return metricsServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		appLogger.Error("Server stopped with error", zap.Error(err))
		return
	}
	appLogger.Info("Server stopped")
}

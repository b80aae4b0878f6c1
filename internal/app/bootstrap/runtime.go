package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	cacheadapter "github.com/playnatela/volante-express/internal/adapters/cache"
	eventadapter "github.com/playnatela/volante-express/internal/adapters/events"
	httpadapter "github.com/playnatela/volante-express/internal/adapters/http"
	"github.com/playnatela/volante-express/internal/adapters/postgres"
	"github.com/playnatela/volante-express/internal/adapters/security"
	"github.com/playnatela/volante-express/internal/adapters/storage"
	"github.com/playnatela/volante-express/internal/application"
	"github.com/playnatela/volante-express/internal/domain"
	"github.com/playnatela/volante-express/internal/ports"
)

type Runtime struct {
	cfg        Config
	logger     *slog.Logger
	httpServer *http.Server
	grpcServer *grpc.Server
	healthSrv  *health.Server
	outbox     *eventadapter.OutboxWorker
	cleanupFn  func(context.Context)
}

func NewRuntime(ctx context.Context, configPath string) (*Runtime, error) {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})).
		With("service", cfg.ServiceID)
	slog.SetDefault(logger)
	logger.Info("bootstrapping volante express", "http_port", cfg.HTTPPort, "grpc_port", cfg.GRPCPort)

	db, err := postgres.Connect(ctx, cfg.DatabaseURL, cfg.MaxDBConns)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("gorm sql db: %w", err)
	}
	closers := []func(){func() { _ = sqlDB.Close() }}
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if cfg.RunMigrations {
		if err := postgres.RunMigrations(ctx, db); err != nil {
			cleanup()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
	}

	readiness := []httpadapter.ReadinessCheck{{
		Name:  "postgres",
		Check: func(ctx context.Context) error { return postgres.Ping(ctx, db) },
	}}

	var cache ports.Cache
	if cfg.RedisURL != "" {
		redisClient, err := cacheadapter.Connect(ctx, cfg.RedisURL)
		if err != nil {
			cleanup()
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })
		redisCache := cacheadapter.NewRedisCache(redisClient)
		if err := redisCache.Ping(ctx); err != nil {
			cleanup()
			return nil, fmt.Errorf("ping redis: %w", err)
		}
		cache = redisCache
		readiness = append(readiness, httpadapter.ReadinessCheck{Name: "redis", Check: redisCache.Ping})
	} else {
		logger.Warn("REDIS_URL not set; using in-process cache")
		cache = cacheadapter.NewMemoryCache()
	}

	var publisher ports.EventPublisher
	if len(cfg.KafkaBrokers) > 0 {
		kafkaPublisher, err := eventadapter.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopics)
		if err != nil {
			cleanup()
			return nil, fmt.Errorf("init kafka publisher: %w", err)
		}
		closers = append(closers, func() { _ = kafkaPublisher.Close() })
		publisher = kafkaPublisher
	} else {
		logger.Warn("KAFKA_BROKERS not set; outbox events are logged only")
		publisher = eventadapter.NewLoggingPublisher(logger)
	}

	evidence, err := storage.NewLocalEvidenceStore(cfg.EvidenceDir, cfg.EvidenceBaseURL, cfg.MaxUploadBytes)
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("init evidence store: %w", err)
	}

	verifier, err := security.NewJWTVerifier(cfg.JWTSecret, cfg.JWTIssuer)
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("init jwt verifier: %w", err)
	}

	repos := postgres.NewRepositories(db)
	svc := application.NewService(application.Dependencies{
		Config: application.Config{
			ServiceName:      cfg.ServiceID,
			LocalOffset:      cfg.LocalOffset,
			CommissionBase:   domain.ParseCommissionBase(cfg.CommissionBase),
			WebhookReplayTTL: cfg.WebhookReplayTTL,
			RateCacheTTL:     cfg.RateCacheTTL,
		},
		Repositories: repos,
		Tx:           postgres.NewTxRunner(db),
		Cache:        cache,
		Evidence:     evidence,
	})

	handler := httpadapter.NewHandler(svc, verifier, httpadapter.Options{
		WebhookSecret:  cfg.WebhookSecret,
		MaxBodyBytes:   cfg.MaxBodyBytes,
		MaxUploadBytes: cfg.MaxUploadBytes,
		Readiness:      readiness,
		EvidencePath:   cfg.EvidenceBaseURL,
		EvidenceDir:    cfg.EvidenceDir,
	})
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           httpadapter.NewRouter(handler),
		ReadHeaderTimeout: 5 * time.Second,
	}

	grpcServer := grpc.NewServer()
	healthSrv := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthSrv)
	healthSrv.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	outbox := eventadapter.NewOutboxWorker(
		logger,
		repos.Outbox,
		publisher,
		cfg.OutboxPollInterval,
		cfg.OutboxBatchSize,
		cfg.OutboxClaimTTL,
		cfg.OutboxMaxRetries,
	)

	return &Runtime{
		cfg:        cfg,
		logger:     logger,
		httpServer: httpServer,
		grpcServer: grpcServer,
		healthSrv:  healthSrv,
		outbox:     outbox,
		cleanupFn:  func(context.Context) { cleanup() },
	}, nil
}

func (r *Runtime) RunAPI(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", r.cfg.GRPCPort))
	if err != nil {
		r.cleanupFn(ctx)
		return fmt.Errorf("listen gRPC: %w", err)
	}

	errCh := make(chan error, 2)
	go func() {
		r.logger.Info("http server started", "addr", r.httpServer.Addr)
		if err := r.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()
	go func() {
		r.logger.Info("grpc server started", "addr", lis.Addr().String())
		if err := r.grpcServer.Serve(lis); err != nil {
			errCh <- fmt.Errorf("grpc server: %w", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		r.logger.Info("shutdown signal received")
	case runErr = <-errCh:
		r.logger.Error("server failure", "error", runErr)
	}

	r.healthSrv.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = r.httpServer.Shutdown(shutdownCtx)
	r.grpcServer.GracefulStop()
	r.cleanupFn(shutdownCtx)
	return runErr
}

func (r *Runtime) RunWorker(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	r.logger.Info("outbox worker started")
	err := r.outbox.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	r.cleanupFn(shutdownCtx)
	return nil
}

package main

import (
	"context"
	"log"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/arenabid/live-auction-backend/internal/api/rest"
	"github.com/arenabid/live-auction-backend/internal/api/websocket"
	"github.com/arenabid/live-auction-backend/internal/infrastructure/auth"
	"github.com/arenabid/live-auction-backend/internal/infrastructure/cache"
	"github.com/arenabid/live-auction-backend/internal/infrastructure/config"
	"github.com/arenabid/live-auction-backend/internal/infrastructure/database"
	"github.com/arenabid/live-auction-backend/internal/infrastructure/repository"
	"github.com/arenabid/live-auction-backend/internal/infrastructure/telemetry"
	"github.com/arenabid/live-auction-backend/internal/metrics"
	"github.com/arenabid/live-auction-backend/internal/service/engine"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("loading configuration: %v", err)
	}

	logger, err := telemetry.NewLogger(cfg.LogLevel, cfg.Environment)
	if err != nil {
		log.Fatalf("building logger: %v", err)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tracing, err := telemetry.InitTracing(ctx, telemetry.TracingConfig{
		Enabled:      cfg.Telemetry.TracingEnabled,
		ServiceName:  cfg.Telemetry.ServiceName,
		Version:      cfg.Version,
		Environment:  cfg.Environment,
		OTLPEndpoint: cfg.Telemetry.OTLPEndpoint,
		SampleRate:   cfg.Telemetry.SampleRate,
	})
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracing.Shutdown(shutdownCtx); err != nil {
			logger.Warn("tracing shutdown failed", zap.Error(err))
		}
	}()

	db, err := database.Connect(ctx, database.Config{
		URL:             cfg.Database.URL,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := database.Migrate(db, cfg.Database.MigrationsPath, logger); err != nil {
		return err
	}

	redisClient, err := cache.NewClient(cache.Config{
		Address:  cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}, logger)
	if err != nil {
		return err
	}
	defer redisClient.Close()

	auctionRepo := repository.NewAuctionRepository(db)
	lotRepo := repository.NewLotRepository(db)
	teamRepo := repository.NewTeamRepository(db)
	bidRepo := repository.NewBidRepository(db)
	txManager := repository.NewTxManager(db)

	hubConfig := websocket.HubConfig{
		BroadcastBufferSize: cfg.Websocket.BroadcastBuffer,
		ClientBufferSize:    cfg.Websocket.ClientBuffer,
		PingInterval:        cfg.Websocket.PingInterval,
		PongTimeout:         cfg.Websocket.PongTimeout,
		WriteTimeout:        cfg.Websocket.WriteTimeout,
		MaxMessageSize:      cfg.Websocket.MaxMessageSize,
		BidRatePerSecond:    cfg.Websocket.BidRatePerSecond,
		BidRateBurst:        cfg.Websocket.BidRateBurst,
	}
	hub := websocket.NewHub(hubConfig, logger.Named("hub"))
	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	go hub.Run(hubCtx)

	eng := engine.New(engine.Config{
		FinalizeRetryAttempts: cfg.Auction.FinalizeRetryAttempts,
		FinalizeRetryDelay:    cfg.Auction.FinalizeRetryDelay,
	}, auctionRepo, lotRepo, teamRepo, bidRepo, txManager, hub,
		metrics.NewEngineCollector(), clockwork.NewRealClock(), logger.Named("engine"))
	defer eng.Close()

	tokens := auth.NewTokenService(auth.Config{
		Secret:      []byte(cfg.Security.JWTSecret),
		TokenExpiry: cfg.Security.TokenExpiry,
		Issuer:      cfg.Security.Issuer,
	})

	wsHandler := websocket.NewHandler(gatewayEngine{
		Engine: eng,
		access: cache.NewAccessCodeCache(eng, redisClient, time.Hour, logger.Named("access_cache")),
	}, hub, tokens, hubConfig, logger.Named("gateway"))

	restHandler := rest.NewHandler(eng, auctionRepo, lotRepo, teamRepo, bidRepo, tokens, logger.Named("rest"))

	health := rest.NewHealthHandler(logger.Named("health"))
	health.Register("database", database.Pinger{DB: db})
	health.Register("redis", cache.Pinger{Client: redisClient})

	server := rest.NewServer(rest.ServerConfig{
		Address:            ":" + strconv.Itoa(cfg.Server.Port),
		ReadTimeout:        cfg.Server.ReadTimeout,
		WriteTimeout:       cfg.Server.WriteTimeout,
		IdleTimeout:        cfg.Server.IdleTimeout,
		ShutdownTimeout:    cfg.Server.ShutdownTimeout,
		AllowedOrigins:     cfg.Server.AllowedOrigins,
		RequestTimeout:     cfg.Server.RequestTimeout,
		RateLimitPerMinute: cfg.Server.RateLimitPerMinute,
	}, restHandler, tokens, wsHandler, health,
		cache.NewRateLimiter(redisClient, logger.Named("rate_limiter")), logger.Named("http"))

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		return err
	}

	// Drain HTTP first so no new connections arrive, then stop the hub and
	// the countdowns.
	if err := server.Shutdown(context.Background()); err != nil {
		logger.Warn("http shutdown failed", zap.Error(err))
	}
	stopHub()
	eng.Close()
	logger.Info("shutdown complete")
	return nil
}

// gatewayEngine routes access-code checks through the redis read-through
// cache while everything else goes straight to the engine.
type gatewayEngine struct {
	*engine.Engine
	access *cache.AccessCodeCache
}

func (g gatewayEngine) VerifyAccess(ctx context.Context, auctionID uuid.UUID, accessCode string) error {
	return g.access.VerifyAccess(ctx, auctionID, accessCode)
}

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"marketplace-bidding-engine/internal/adapters/db"
	"marketplace-bidding-engine/internal/adapters/notifier"
	"marketplace-bidding-engine/internal/adapters/redis"
	"marketplace-bidding-engine/internal/adapters/scheduler"
	"marketplace-bidding-engine/internal/adapters/ws"
	"marketplace-bidding-engine/internal/app"
	"marketplace-bidding-engine/internal/config"
	"marketplace-bidding-engine/internal/domain/auction"
)

func main() {

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	initLogging(cfg)

	log.Info().Msg("Starting Marketplace Bidding Engine...")

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database connection
	dbConn, err := db.NewConnection(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer dbConn.Close()

	log.Info().Msg("Database connection established")

	// Create repositories
	repoFactory := db.NewRepositoryFactory(dbConn)

	// Create Redis client
	redisClient := redis.NewClient(cfg)
	if err := redis.PingRedis(redisClient); err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	log.Info().Msg("Redis connection established")

	// Create Redis notifier
	redisNotifier := notifier.NewNotifier(notifier.RedisNotifierParams{
		RedisClient: redisClient,
		Logger:      log.Logger,
	})
	log.Info().Msg("Redis notifier initialized")

	// Create the bidding engine
	engine := app.NewEngine(app.EngineParams{
		Auctions: repoFactory.GetAuctionRepository(),
		Maximums: repoFactory.GetMaximumRepository(),
		Records:  repoFactory.GetBidRecordRepository(),
		Requests: repoFactory.GetBidRequestRepository(),
		Blocked:  repoFactory.GetBlockedBidderRepository(),
		Events:   repoFactory.GetEventRepository(),
		Ratings:  repoFactory.GetRatingProvider(),
		Notifier: redisNotifier,
		Tx:       dbConn,
		LaneWait: cfg.Engine.LaneWait,
		AutoExtend: auction.AutoExtendPolicy{
			Threshold: cfg.Engine.AutoExtendThreshold,
			Duration:  cfg.Engine.AutoExtendDuration,
		},
		Logger: log.Logger,
	})

	log.Info().Msg("Bidding engine initialized")

	// Create close scheduler
	closeScheduler := scheduler.NewCloseScheduler(scheduler.CloseSchedulerParams{
		RedisClient: redisClient,
		Service:     engine,
		BatchSize:   cfg.Sweep.BatchSize,
		Logger:      log.Logger,
	})

	// Start close scheduler
	closeScheduler.Start()
	log.Info().Msg("Close scheduler started")

	// Update engine with scheduler
	engine.SetScheduler(closeScheduler)

	wsServer := ws.NewServer(ws.ServerParams{
		Config:  cfg,
		Engine:  engine,
		Watcher: redisNotifier,
		Logger:  log.Logger,
	})

	log.Info().Msg("WebSocket server initialized")

	// Start WebSocket server
	go func() {
		log.Info().Str("port", cfg.Server.Port).Msg("Starting WebSocket server")
		if err := wsServer.Start(); err != nil {
			log.Error().Err(err).Msg("Failed to start WebSocket server")
			cancel()
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
	case <-ctx.Done():
		log.Info().Msg("Context cancelled")
	}

	// Graceful shutdown
	log.Info().Msg("Starting graceful shutdown...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	// Stop close scheduler
	closeScheduler.Stop()
	log.Info().Msg("Close scheduler stopped")

	// Stop WebSocket server
	if err := wsServer.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping WebSocket server")
	}

	log.Info().Msg("Graceful shutdown completed")
}

func initLogging(cfg *config.Config) {
	// Set log level
	level, err := zerolog.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	// Set log format
	if cfg.Logging.Format == "json" {
		// JSON format (default)
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	} else {
		// Console format for development
		output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
		log.Logger = zerolog.New(output).With().Timestamp().Logger()
	}

	// Set global logger
	zerolog.DefaultContextLogger = &log.Logger
}

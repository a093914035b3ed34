package main // Entry point package

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/iliyamo/coupon-lot-qc/internal/config"
	"github.com/iliyamo/coupon-lot-qc/internal/database"
	"github.com/iliyamo/coupon-lot-qc/internal/handler"
	"github.com/iliyamo/coupon-lot-qc/internal/logger"
	"github.com/iliyamo/coupon-lot-qc/internal/metrics"
	"github.com/iliyamo/coupon-lot-qc/internal/middleware"
	"github.com/iliyamo/coupon-lot-qc/internal/model"
	"github.com/iliyamo/coupon-lot-qc/internal/queue"
	"github.com/iliyamo/coupon-lot-qc/internal/repository"
	"github.com/iliyamo/coupon-lot-qc/internal/router"
	"github.com/iliyamo/coupon-lot-qc/internal/scheduler"
	"github.com/iliyamo/coupon-lot-qc/internal/service"
)

func main() {
	if err := config.LoadEnvFile(); err != nil {
		boot := zerolog.New(os.Stderr)
		boot.Fatal().Err(err).Msg("load .env")
	}
	cfg := config.Load() // Load environment config
	log := logger.Init("coupon-lot-qc", cfg.Env, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = log.WithContext(ctx)

	db, err := database.Open(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("database")
	}
	defer db.Close()
	if cfg.AutoMigrate {
		if err := database.Migrate(ctx, db); err != nil {
			log.Fatal().Err(err).Msg("migrate")
		}
	}

	settings := config.LoadLotSettings()
	store := repository.NewStore(db)
	if cfg.PrizeSeedFile != "" {
		seed, err := config.LoadPrizeSeed(cfg.PrizeSeedFile, settings.DefaultCouponsPerBox)
		if err != nil {
			log.Fatal().Err(err).Msg("prize seed")
		}
		n, err := store.SeedPrizeConfigs(ctx, seed)
		if err != nil {
			log.Fatal().Err(err).Msg("prize seed")
		}
		log.Info().Int("inserted", n).Str("file", cfg.PrizeSeedFile).Msg("prize seed applied")
	}

	// Redis is optional: without it the cache is off and rate limiting
	// falls back to the in-process limiter when configured.
	var rdb *redis.Client
	if client, err := config.NewRedisClient(config.LoadRedisConfig()); err != nil {
		log.Warn().Err(err).Msg("redis unavailable; cache disabled")
	} else {
		rdb = client
		defer rdb.Close()
	}

	qcfg := config.LoadQueueConfig()
	var events service.EventPublisher
	if qcfg.Enabled {
		events = queue.NewPublisher(qcfg)
	}
	svc := service.NewLotService(store, events, settings)

	if qcfg.Enabled && qcfg.AutoQC {
		consumer := queue.NewConsumer(qcfg, func(ctx context.Context, ev queue.CouponsGeneratedEvent) error {
			_, err := svc.RunQC(ctx, ev.BatchID, model.SystemActor)
			return err
		}, log)
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error().Err(err).Msg("auto qc consumer stopped")
			}
		}()
	}

	tokens := repository.NewTokenRepo(db)
	sched, err := scheduler.New(ctx, config.LoadSchedulerConfig(), tokens, svc, log)
	if err != nil {
		log.Fatal().Err(err).Msg("scheduler")
	}
	sched.Start()
	defer sched.Stop()

	e := echo.New() // Create Echo instance
	e.HideBanner = true
	e.HidePort = true
	e.Use(echomw.Recover())
	e.Use(middleware.RequestLogger(log))
	e.Use(metrics.Middleware())

	users := repository.NewUserRepo(db)
	router.RegisterRoutes(e, router.Handlers{
		Health:  handler.NewHealthHandler(db),
		Auth:    handler.NewAuthHandler(cfg, users, tokens),
		Users:   handler.NewUserHandler(users, cfg.BcryptCost),
		Prizes:  handler.NewPrizeConfigHandler(store.Prizes),
		Batches: handler.NewBatchHandler(store.Batches, store, svc, settings),
		Coupons: handler.NewCouponHandler(store.Coupons, svc, store),
		QC:      handler.NewQCHandler(store.QC, svc),
		Logs:    handler.NewProductionLogHandler(store.Logs),
	}, router.Options{
		JWTSecret:   cfg.JWTSecret,
		RateLimit:   middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb),
		ReportCache: middleware.NewRedisCache(config.LoadCacheConfig(), rdb),
	})

	addr := ":" + cfg.Port // Address string with port
	go func() {
		log.Info().Str("addr", addr).Str("env", cfg.Env).Msg("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown")
	}
}

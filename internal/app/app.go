package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/bestmirror/internal/config"
	"github.com/MrSnakeDoc/bestmirror/internal/domain"
	"github.com/MrSnakeDoc/bestmirror/internal/httpserver"
	"github.com/MrSnakeDoc/bestmirror/internal/httpserver/deps"
	"github.com/MrSnakeDoc/bestmirror/internal/index"
	"github.com/MrSnakeDoc/bestmirror/internal/logger"
	"github.com/MrSnakeDoc/bestmirror/internal/metrics"
	"github.com/MrSnakeDoc/bestmirror/internal/probe"
	"github.com/MrSnakeDoc/bestmirror/internal/ranker"
	"github.com/MrSnakeDoc/bestmirror/internal/redis"
	"github.com/MrSnakeDoc/bestmirror/internal/scheduler"
	"github.com/MrSnakeDoc/bestmirror/internal/selector"
	"github.com/MrSnakeDoc/bestmirror/internal/sources/instances"
	redisstore "github.com/MrSnakeDoc/bestmirror/internal/store/redis"
	"github.com/MrSnakeDoc/bestmirror/internal/version"
)

type App struct {
	cfg         *config.Config
	logger      logger.Logger
	server      *httpserver.Server
	redisClient *goredis.Client
	ranker      *ranker.Ranker
	refresher   *scheduler.RankingRefresher
	syncer      *scheduler.SnapshotSyncer
}

// NewLogger builds the process logger from configuration.
func NewLogger(cfg *config.Config) logger.Logger {
	return logger.NewWithOptions(logger.Options{
		Level:          cfg.LogLevel,
		Pretty:         cfg.PrettyLog,
		File:           cfg.LogFile,
		FileMaxSizeMB:  cfg.LogFileMaxMB,
		FileMaxBackups: cfg.LogFileBackups,
		FileMaxAgeDays: cfg.LogFileMaxAge,
	})
}

// NewSource picks the static file source when configured, the instances list otherwise.
func NewSource(cfg *config.Config) scheduler.Source {
	if cfg.SourceFile != "" {
		return instances.NewFileLoader(cfg.SourceFile)
	}
	return instances.NewFetcher(cfg.SourceURL, cfg.SourceTimeout, cfg.MinHealth)
}

// NewRanker wires the configured pinger into a ranker honoring the skip list.
func NewRanker(cfg *config.Config, log logger.Logger, m *metrics.Metrics) (*ranker.Ranker, error) {
	pinger, err := probe.NewPinger(cfg.ProbeMode, cfg.ProbePort)
	if err != nil {
		return nil, err
	}
	prober := probe.NewProber(pinger, log)
	return ranker.New(prober, domain.NewExclusionList(cfg.SkipList), cfg.ProbeWorkers, log, m)
}

func New() *App {
	cfg := config.Load()

	loggerClient := NewLogger(cfg)
	m := metrics.New()

	// Redis is optional: it only mirrors snapshots
	var (
		redisClient *goredis.Client
		store       *redisstore.Store
	)
	if cfg.RedisEnabled() {
		client, err := redis.New(context.Background(), redis.ConnectOptions{
			Addr:           cfg.RedisAddr,
			User:           cfg.RedisUser,
			Password:       cfg.RedisPassword,
			DB:             cfg.RedisDB,
			DialTimeout:    cfg.RedisDT,
			ReadTimeout:    cfg.RedisRT,
			WriteTimeout:   cfg.RedisWT,
			PoolSize:       cfg.RedisPoolSize,
			ConnectTimeout: cfg.RedisConnectTimeout,
			RetryInterval:  cfg.RedisRetryInterval,
			MaxWait:        cfg.RedisMaxWait,
			PingTimeout:    cfg.RedisPingTimeout,
			WarnThreshold:  cfg.RedisWarnThreshold,
		}, loggerClient)
		if err != nil {
			loggerClient.Warn("redis unavailable, continuing without snapshot mirror", logger.Error(err))
		} else {
			redisClient = client
			store = redisstore.NewStore(client)
			loggerClient.Info("Redis initialized successfully")
		}
	} else {
		loggerClient.Info("redis not configured, snapshot mirror disabled")
	}

	rk, err := NewRanker(cfg, loggerClient, m)
	if err != nil {
		loggerClient.Errorf("Failed to create ranker: %v", err)
		os.Exit(1)
	}

	idx := index.NewRankingIndex()
	source := NewSource(cfg)
	loggerClient.Info("endpoint source configured", logger.String("source", source.Name()))

	// Create manual reload trigger channel
	reloadTrigger := make(chan struct{}, 1)

	// A nil *Store must not become a non-nil interface
	var (
		saver  scheduler.SnapshotSaver
		mirror deps.SnapshotMirror
		syncer *scheduler.SnapshotSyncer
	)
	if store != nil {
		saver = store
		mirror = store
		if cfg.WarmStart {
			syncer = scheduler.NewSnapshotSyncer(store, idx, m, loggerClient)
		}
	}

	refresher := scheduler.NewRankingRefresher(
		source,
		rk,
		idx,
		saver,
		m,
		loggerClient,
		cfg.RefreshInterval,
		cfg.ProbeParams(),
		scheduler.Artifacts{CacheFile: cfg.CacheFile, ReportFile: cfg.ReportFile},
		reloadTrigger,
	)

	// Dependencies passed to routes (extend as needed).
	d := deps.Deps{
		Logger:        loggerClient,
		StartTime:     time.Now(),
		Version:       version.Version,
		Commit:        version.Commit,
		BuildDate:     version.BuildDate,
		GoVersion:     version.GoVersion,
		TimeNow:       time.Now,
		AllowedHosts:  cfg.AllowedHosts,
		AllowedCIDRS:  cfg.AllowedCIDRS,
		TrustProxy:    cfg.TrustProxy,
		Index:         idx,
		Selector:      selector.New(idx),
		Refresher:     refresher,
		Metrics:       m,
		Redis:         mirror,
		ReloadTrigger: reloadTrigger,
		ReloadBurst:   cfg.ReloadBurst,
		ReloadPerMin:  cfg.ReloadPerMin,
	}

	server := httpserver.New(cfg, loggerClient, d)

	return &App{
		cfg:         cfg,
		logger:      loggerClient,
		server:      server,
		redisClient: redisClient,
		ranker:      rk,
		refresher:   refresher,
		syncer:      syncer,
	}
}

func (a *App) Run() error {
	a.logger.Infof("🚀 Starting bestmirror v%s on %s", version.Version, a.cfg.ListenPort)
	a.logger.Info(version.String())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Restore the last snapshot so the front door answers before the first cycle ends
	if a.syncer != nil {
		if err := a.syncer.Sync(ctx); err != nil {
			a.logger.Warn("failed to restore ranking from redis, waiting for first refresh",
				logger.Error(err))
		}
	}

	// First cycle runs in the background; until it publishes, the server answers "warming up"
	a.refresher.Start(ctx)
	a.logger.Info("ranking refresher started",
		logger.Duration("interval", a.cfg.RefreshInterval))

	errCh := make(chan error, 1)
	go func() {
		if err := a.server.Start(); err != nil {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("⏳ Shutting down gracefully...")
	case runErr = <-errCh:
	}
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := a.server.Stop(shutdownCtx); err != nil && runErr == nil {
		runErr = fmt.Errorf("failed to stop server: %w", err)
	}

	// Stop refresher (waits for an in-flight cycle, which ctx has cancelled)
	a.refresher.Stop()
	a.ranker.Close()

	a.cleanCache()

	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.logger.Warnf("failed to close redis: %v", err)
		} else {
			a.logger.Info("✅ Redis closed cleanly")
		}
	}

	if runErr == nil {
		a.logger.Info("✅ bestmirror stopped cleanly")
	}
	_ = a.logger.Sync()
	return runErr
}

// cleanCache removes the cache artifact; it is only valid while the process runs.
func (a *App) cleanCache() {
	if a.cfg.CacheFile == "" {
		return
	}
	err := os.Remove(a.cfg.CacheFile)
	switch {
	case err == nil:
		a.logger.Info("cache file removed", logger.String("path", a.cfg.CacheFile))
	case errors.Is(err, os.ErrNotExist):
	default:
		a.logger.Warn("failed to remove cache file",
			logger.String("path", a.cfg.CacheFile),
			logger.Error(err))
	}
}

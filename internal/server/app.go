// Package server wires configuration into the running ingestion service.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/storage"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/SashaDiz/autoved-sub000/internal/api"
	"github.com/SashaDiz/autoved-sub000/internal/asset"
	"github.com/SashaDiz/autoved-sub000/internal/catalog"
	"github.com/SashaDiz/autoved-sub000/internal/clock/system"
	"github.com/SashaDiz/autoved-sub000/internal/config"
	redisguard "github.com/SashaDiz/autoved-sub000/internal/dedupe/redis"
	"github.com/SashaDiz/autoved-sub000/internal/extract"
	collyfetcher "github.com/SashaDiz/autoved-sub000/internal/fetcher/colly"
	"github.com/SashaDiz/autoved-sub000/internal/id/ulid"
	"github.com/SashaDiz/autoved-sub000/internal/id/uuid"
	"github.com/SashaDiz/autoved-sub000/internal/ingest"
	"github.com/SashaDiz/autoved-sub000/internal/metrics"
	memorypublisher "github.com/SashaDiz/autoved-sub000/internal/publisher/memory"
	gcppublisher "github.com/SashaDiz/autoved-sub000/internal/publisher/pubsub"
	gcsstorage "github.com/SashaDiz/autoved-sub000/internal/storage/gcs"
	localstorage "github.com/SashaDiz/autoved-sub000/internal/storage/local"
	memorystorage "github.com/SashaDiz/autoved-sub000/internal/storage/memory"
	pgstore "github.com/SashaDiz/autoved-sub000/internal/storage/postgres"
	sqlitestore "github.com/SashaDiz/autoved-sub000/internal/storage/sqlite"
	"github.com/SashaDiz/autoved-sub000/internal/telegram"
	"github.com/SashaDiz/autoved-sub000/internal/telemetry"
)

// Version is stamped at build time via -ldflags.
var Version = "dev"

const (
	defaultShutdownTimeout = 10 * time.Second
	photoExt               = ".jpg"
)

// App contains the application's dependencies.
type App struct {
	cfg             config.Config
	logger          *zap.Logger
	store           catalog.Store
	pipeline        *ingest.Pipeline
	apiServer       *api.Server
	guard           *redisguard.Guard
	pubsubClient    *pubsub.Client
	pubsubPublisher *gcppublisher.Publisher
	storage         *storage.Client
	tracerShutdown  func(context.Context) error
}

// Build creates the application's dependencies. The caller owns cfg and logger; Close
// releases everything Build opened.
func Build(ctx context.Context, cfg config.Config, logger *zap.Logger) (_ *App, err error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Telegram.BotToken == "" {
		return nil, fmt.Errorf("telegram.bot_token is required to serve")
	}
	app := &App{cfg: cfg, logger: logger}
	defer func() {
		if err != nil {
			_ = app.Close(context.Background())
		}
	}()

	logger.Info("building application dependencies",
		zap.Int("port", cfg.Server.Port),
		zap.String("storage_backend", cfg.Storage.Backend),
		zap.String("database_driver", cfg.Database.Driver),
		zap.Bool("redis", cfg.Redis.URL != ""),
		zap.Bool("pubsub", cfg.PubSub.ProjectID != ""),
	)
	metrics.Init()

	if err = app.setupTracing(ctx); err != nil {
		return nil, err
	}

	app.store, err = OpenStore(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	if cfg.Database.AutoMigrate {
		if err = app.store.EnsureSchema(ctx); err != nil {
			return nil, fmt.Errorf("ensure catalog schema: %w", err)
		}
		logger.Info("catalog schema ready")
	}

	blobs, uploadsDir, err := app.setupStorage(ctx)
	if err != nil {
		return nil, err
	}

	bot, err := telegram.NewClient(telegram.Config{
		Token:   cfg.Telegram.BotToken,
		BaseURL: cfg.Telegram.APIBaseURL,
	}, &http.Client{
		Timeout:   cfg.Telegram.DownloadTimeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	})
	if err != nil {
		return nil, fmt.Errorf("telegram client init failed: %w", err)
	}

	downloader := collyfetcher.New(collyfetcher.Config{
		UserAgent: cfg.Telegram.UserAgent,
		Timeout:   cfg.Telegram.DownloadTimeout,
	})
	retriever, err := asset.New(bot, downloader, blobs, ulid.NewKeyGenerator(cfg.Storage.Prefix, photoExt), asset.Config{
		DefaultImageURL: cfg.Storage.DefaultImageURL,
		ContentType:     cfg.Storage.ContentType,
	})
	if err != nil {
		return nil, fmt.Errorf("asset retriever init failed: %w", err)
	}

	opts := []ingest.Option{ingest.WithLogger(logger)}
	app.guard, err = redisguard.New(ctx, redisguard.Config{
		URL:       cfg.Redis.URL,
		KeyPrefix: cfg.Redis.KeyPrefix,
		TTL:       cfg.Redis.TTL,
	})
	if err != nil {
		return nil, fmt.Errorf("redis guard init failed: %w", err)
	}
	if app.guard != nil {
		opts = append(opts, ingest.WithDeduper(app.guard))
		logger.Info("duplicate guard enabled", zap.Duration("ttl", cfg.Redis.TTL))
	}

	publisher, err := app.setupPublisher(ctx)
	if err != nil {
		return nil, err
	}
	opts = append(opts, ingest.WithPublisher(publisher))

	extractor := extract.New(extract.WithLogger(logger))
	pipelineCfg := ingest.Config{EventTopic: cfg.PubSub.TopicName}
	if cfg.Telegram.RecheckSecret {
		pipelineCfg.Secret = cfg.Telegram.WebhookSecret
	}
	app.pipeline, err = ingest.New(pipelineCfg, extractor, retriever, app.store, opts...)
	if err != nil {
		return nil, fmt.Errorf("pipeline init failed: %w", err)
	}

	readyChecks := map[string]api.ReadyCheck{}
	if app.guard != nil {
		readyChecks["redis"] = app.guard.Health
	}
	app.apiServer = api.NewServer(api.Dependencies{
		Pipeline:    app.pipeline,
		Parser:      extractor,
		Catalog:     app.store,
		Notifier:    bot,
		ReadyChecks: readyChecks,
		UploadsDir:  uploadsDir,
	}, cfg, logger)

	if cfg.Telegram.WebhookSecret == "" {
		logger.Warn("telegram.webhook_secret is empty, webhook accepts unauthenticated updates")
	}
	return app, nil
}

// OpenStore opens the catalog store selected by cfg.Driver.
func OpenStore(ctx context.Context, cfg config.DatabaseConfig) (catalog.Store, error) {
	ids := uuid.New()
	clock := system.New()
	switch cfg.Driver {
	case config.DriverPostgres:
		store, err := pgstore.NewCatalogStore(ctx, pgstore.Config{
			DSN:             cfg.DSN,
			Table:           cfg.Table,
			MaxConns:        cfg.MaxConns,
			MinConns:        cfg.MinConns,
			MaxConnLifetime: cfg.MaxConnLifetime,
		}, ids, clock)
		if err != nil {
			return nil, fmt.Errorf("postgres catalog store init failed: %w", err)
		}
		return store, nil
	case config.DriverSQLite:
		store, err := sqlitestore.Open(ctx, cfg.DSN, ids, clock, sqlitestore.WithTable(cfg.Table))
		if err != nil {
			return nil, fmt.Errorf("sqlite catalog store init failed: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

func (a *App) setupTracing(ctx context.Context) error {
	if !a.cfg.Tracing.Enabled {
		return nil
	}
	tp, err := telemetry.InitTracerProvider(ctx, telemetry.Config{
		ServiceName:    a.cfg.Tracing.ServiceName,
		ServiceVersion: Version,
		SampleRatio:    a.cfg.Tracing.SampleRatio,
	})
	if err != nil {
		return fmt.Errorf("tracer init failed: %w", err)
	}
	a.tracerShutdown = tp.Shutdown
	a.logger.Info("tracing enabled", zap.Float64("sample_ratio", a.cfg.Tracing.SampleRatio))
	return nil
}

// setupStorage returns the blob store and, for the local backend, the directory to serve.
func (a *App) setupStorage(ctx context.Context) (catalog.BlobStore, string, error) {
	switch a.cfg.Storage.Backend {
	case config.StorageGCS:
		a.logger.Info("using GCS storage backend", zap.String("bucket", a.cfg.Storage.GCSBucket))
		client, err := storage.NewClient(ctx)
		if err != nil {
			return nil, "", fmt.Errorf("gcs client init failed: %w", err)
		}
		a.storage = client
		blobs, err := gcsstorage.New(client, gcsstorage.Config{
			Bucket:        a.cfg.Storage.GCSBucket,
			PublicBaseURL: a.cfg.Storage.PublicBaseURL,
			CacheControl:  a.cfg.Storage.CacheControl,
		})
		if err != nil {
			return nil, "", fmt.Errorf("gcs blob store init failed: %w", err)
		}
		return blobs, "", nil
	case config.StorageLocal:
		a.logger.Info("using local storage backend", zap.String("path", a.cfg.Storage.Local.BaseDir))
		blobs, err := localstorage.New(localstorage.Config{
			BaseDir:       a.cfg.Storage.Local.BaseDir,
			PublicBaseURL: a.cfg.Storage.Local.PublicBaseURL,
		})
		if err != nil {
			return nil, "", fmt.Errorf("local blob store init failed: %w", err)
		}
		return blobs, blobs.Dir(), nil
	default:
		a.logger.Info("using in-memory storage backend")
		return memorystorage.NewBlobStore(), "", nil
	}
}

func (a *App) setupPublisher(ctx context.Context) (catalog.Publisher, error) {
	if a.cfg.PubSub.TopicName == "" || a.cfg.PubSub.ProjectID == "" {
		a.logger.Info("no Pub/Sub topic configured, logging catalog events")
		return memorypublisher.New(
			memorypublisher.WithLogger(a.logger.Named("events")),
			memorypublisher.WithCapacity(a.cfg.PubSub.MemoryBuffer),
		), nil
	}
	client, err := pubsub.NewClient(ctx, a.cfg.PubSub.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("pubsub client init failed: %w", err)
	}
	a.pubsubClient = client
	a.pubsubPublisher = gcppublisher.New(client, a.cfg.PubSub.TopicName)
	a.logger.Info("Pub/Sub publisher initialized",
		zap.String("project", a.cfg.PubSub.ProjectID),
		zap.String("topic", a.cfg.PubSub.TopicName),
	)
	return a.pubsubPublisher, nil
}

// Handler returns the instrumented HTTP handler.
func (a *App) Handler() http.Handler {
	return otelhttp.NewHandler(a.apiServer.Handler(), "autoved.http")
}

// Run serves HTTP until ctx is canceled or SIGINT/SIGTERM arrives, then shuts down and
// releases all resources.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.Server.Port),
		Handler:           a.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       a.cfg.Server.ReadTimeout,
		WriteTimeout:      a.cfg.Server.WriteTimeout,
	}
	timeout := a.cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.logger.Info("http server started", zap.Int("port", a.cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		a.logger.Info("shutdown initiated")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	})
	runErr := g.Wait()

	closeCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := a.Close(closeCtx); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}

// Close gracefully shuts down the application. It is safe on a partially built App.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if a.pubsubPublisher != nil {
		a.pubsubPublisher.Stop()
	}
	if a.pubsubClient != nil {
		if err := a.pubsubClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close pubsub client: %w", err))
		}
	}
	if a.guard != nil {
		if err := a.guard.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis guard: %w", err))
		}
	}
	if a.storage != nil {
		if err := a.storage.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close gcs client: %w", err))
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close catalog store: %w", err))
		}
	}
	if a.tracerShutdown != nil {
		if err := a.tracerShutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown tracer: %w", err))
		}
	}
	for _, err := range errs {
		a.logger.Warn("shutdown step failed", zap.Error(err))
	}
	a.logger.Info("shutdown complete")
	return errors.Join(errs...)
}

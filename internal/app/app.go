package app

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/choiwab/promptsmith/internal/blobstore"
	"github.com/choiwab/promptsmith/internal/observability"
	"github.com/choiwab/promptsmith/internal/pkg/logger"
	"github.com/choiwab/promptsmith/internal/store"
	"github.com/choiwab/promptsmith/internal/temporalx"
	"github.com/choiwab/promptsmith/internal/temporalx/temporalworker"
)

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Router   *gin.Engine
	Cfg      Config
	Repo     store.Repository
	Blobs    blobstore.BlobStore
	Services Services

	server       *http.Server
	otelShutdown func(context.Context) error
	workerCancel context.CancelFunc
}

func New() (*App, error) {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	log.Info("loading configuration")
	cfg := LoadConfig(log)

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	if err := os.MkdirAll(cfg.ImageDir, 0o755); err != nil {
		return nil, fmt.Errorf("create image dir: %w", err)
	}
	if err := os.MkdirAll(cfg.ArtifactDir, 0o755); err != nil {
		return nil, fmt.Errorf("create artifact dir: %w", err)
	}

	theDB, err := openDatabase(cfg, log)
	if err != nil {
		log.Sync()
		return nil, err
	}
	if err := autoMigrate(theDB); err != nil {
		log.Sync()
		return nil, err
	}

	blobs, err := newBlobStore(context.Background(), cfg, log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init blob store: %w", err)
	}

	otelShutdown := observability.InitOTel(context.Background(), log, observability.OtelConfig{
		ServiceName: "promptsmith",
		Environment: cfg.Environment,
		Version:     cfg.Version,
	})

	repo := wireRepo(theDB, log)
	serviceset := wireServices(repo, blobs, cfg, log)
	handlerset := wireHandlers(log, repo, blobs, serviceset)
	middleware := wireMiddleware(log, cfg)
	router := wireRouter(handlerset, middleware)

	workerCancel := maybeStartTemporalWorker(log, serviceset)

	return &App{
		Log:          log,
		DB:           theDB,
		Router:       router,
		Cfg:          cfg,
		Repo:         repo,
		Blobs:        blobs,
		Services:     serviceset,
		otelShutdown: otelShutdown,
		workerCancel: workerCancel,
	}, nil
}

// maybeStartTemporalWorker brings up the durable EvalRunWorkflow worker when
// TEMPORAL_ADDRESS is configured. The default HTTP-triggered run path never
// depends on this; it exists purely as an optional durable-mode entrypoint
// driving the same evalrun.Engine stage functions as activities.
func maybeStartTemporalWorker(log *logger.Logger, serviceset Services) context.CancelFunc {
	tc, err := temporalx.NewClient(log)
	if err != nil {
		log.Warn("temporal client unavailable; durable eval run workflow disabled", "error", err)
		return nil
	}
	if tc == nil {
		return nil
	}

	runner, err := temporalworker.NewRunner(log, tc, serviceset.EvalRun)
	if err != nil {
		log.Warn("temporal worker init failed; durable eval run workflow disabled", "error", err)
		tc.Close()
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	if err := runner.Start(ctx); err != nil {
		log.Warn("temporal worker failed to start; durable eval run workflow disabled", "error", err)
		cancel()
		tc.Close()
		return nil
	}
	return cancel
}

func (a *App) Run(addr string) error {
	if a == nil || a.Router == nil {
		return fmt.Errorf("app not initialized")
	}
	a.server = newServer(addr, a.Router)
	if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.server != nil {
		_ = shutdownServer(context.Background(), a.server)
	}
	if a.workerCancel != nil {
		a.workerCancel()
	}
	if a.otelShutdown != nil {
		_ = a.otelShutdown(context.Background())
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}











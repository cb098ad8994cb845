package app

import (
	"context"

	vision "cloud.google.com/go/vision/apiv1"
	"google.golang.org/api/option"

	"github.com/choiwab/promptsmith/internal/adapters/generator"
	"github.com/choiwab/promptsmith/internal/adapters/judge"
	"github.com/choiwab/promptsmith/internal/adapters/openaiclient"
	"github.com/choiwab/promptsmith/internal/adapters/planner"
	"github.com/choiwab/promptsmith/internal/adapters/refiner"
	"github.com/choiwab/promptsmith/internal/blobstore"
	"github.com/choiwab/promptsmith/internal/compare"
	"github.com/choiwab/promptsmith/internal/evalrun"
	"github.com/choiwab/promptsmith/internal/pkg/logger"
	"github.com/choiwab/promptsmith/internal/store"
)

// Services bundles every domain component wireServices constructs: the
// OpenAI-backed adapters, the compare orchestrator, and the eval-run
// engine. The HTTP handlers are built from these together with the
// repository and blob store.
type Services struct {
	Generator generator.Generator
	Judge     judge.Judge
	Planner   planner.Planner
	Refiner   refiner.Refiner

	Compare *compare.Orchestrator
	EvalRun *evalrun.Engine
}

func wireServices(repo store.Repository, blobs blobstore.BlobStore, cfg Config, log *logger.Logger) Services {
	log.Info("wiring services")

	client := openaiclient.New(openaiclient.Config{
		APIKey:      cfg.OpenAIAPIKey,
		BaseURL:     cfg.OpenAIBaseURL,
		TextModel:   cfg.OpenAITextModel,
		ImageModel:  cfg.OpenAIImageModel,
		VisionModel: cfg.OpenAIVisionModel,
		TimeoutSecs: cfg.OpenAITimeoutSecs,
		MaxRetries:  cfg.OpenAIMaxRetries,
	}, log)

	gen := generator.New(client, log)
	jud := judge.New(client, cfg.OpenAIVisionModel, log)
	pln := planner.New(client, cfg.OpenAITextModel, log)
	ref := refiner.New(client, cfg.OpenAITextModel, log)

	compareOrchestrator := compare.New(repo, blobs, client, compare.Config{
		Threshold:                cfg.CompareThreshold,
		SemanticModel:            cfg.OpenAIVisionModel,
		VisionModel:              cfg.OpenAIVisionModel,
		CacheDir:                 cfg.ArtifactDir,
		VisionStructuralProvider: cfg.VisionStructuralProvider,
	}, log)

	if cfg.VisionStructuralProvider == "gcp" {
		if probe, err := newGCPVisionProbe(context.Background(), cfg.GCPCredentialsFile); err != nil {
			log.Warn("gcp vision structural probe disabled", "error", err)
		} else {
			compareOrchestrator.WithStructuralProbe(probe)
		}
	}

	evalEngine := evalrun.NewEngine(repo, blobs, gen, jud, pln, ref, log)
	if cfg.RedisAddr != "" {
		if mirror, err := evalrun.NewRedisMirror(cfg.RedisAddr, log); err != nil {
			log.Warn("eval run redis mirror disabled", "error", err)
		} else {
			evalEngine.WithMirror(mirror)
		}
	}

	return Services{
		Generator: gen,
		Judge:     jud,
		Planner:   pln,
		Refiner:   ref,
		Compare:   compareOrchestrator,
		EvalRun:   evalEngine,
	}
}

func newGCPVisionProbe(ctx context.Context, credsFile string) (*judge.GCPVisionProbe, error) {
	var (
		client *vision.ImageAnnotatorClient
		err    error
	)
	if credsFile != "" {
		client, err = vision.NewImageAnnotatorClient(ctx, option.WithCredentialsFile(credsFile))
	} else {
		client, err = vision.NewImageAnnotatorClient(ctx)
	}
	if err != nil {
		return nil, err
	}
	return judge.NewGCPVisionProbe(client), nil
}

package evalrun

import (
	"context"
	"errors"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/choiwab/promptsmith/internal/adapters/generator"
	"github.com/choiwab/promptsmith/internal/adapters/judge"
	"github.com/choiwab/promptsmith/internal/adapters/openaiclient"
	"github.com/choiwab/promptsmith/internal/adapters/planner"
	"github.com/choiwab/promptsmith/internal/adapters/refiner"
	"github.com/choiwab/promptsmith/internal/blobstore"
	"github.com/choiwab/promptsmith/internal/domain"
	"github.com/choiwab/promptsmith/internal/pkg/logger"
	"github.com/choiwab/promptsmith/internal/store"
)

func newTestEngine(t *testing.T) (*Engine, store.Repository, blobstore.BlobStore) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: gormLogger.Default.LogMode(gormLogger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(store.Models()...); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	repo := store.NewGormRepository(db, log)
	blobs := blobstore.NewFilesystemStore(t.TempDir(), "http://localhost:8080/blobs", log)

	client := openaiclient.New(openaiclient.Config{}, log)
	gen := generator.New(client, log)
	jud := judge.New(client, "gpt-5-vision", log)
	pln := planner.New(client, "gpt-5", log)
	ref := refiner.New(client, "gpt-5", log)

	engine := NewEngine(repo, blobs, gen, jud, pln, ref, log)
	return engine, repo, blobs
}

func TestEngine_CreateRun_QueuesImmediatelyWithoutRunningStages(t *testing.T) {
	engine, repo, _ := newTestEngine(t)
	ctx := context.Background()
	repo.EnsureProject(ctx, "proj-1", "Widget")

	run, err := engine.CreateRun(ctx, CreateRunRequest{
		ProjectID:       "proj-1",
		BasePrompt:      "a red ball on a table",
		ObjectivePreset: domain.ObjectiveAdherence,
		ImageModel:      "gpt-image-1",
		NVariants:       3,
		Quality:         domain.QualityMedium,
	})
	if err != nil {
		t.Fatalf("CreateRun: %v", err)
	}
	if run.Status != domain.RunStatusQueued {
		t.Fatalf("status = %v, want queued", run.Status)
	}
	if run.Stage != domain.StageQueued {
		t.Fatalf("stage = %v, want queued", run.Stage)
	}
}

func TestEngine_CreateRun_UnknownProjectErrors(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	_, err := engine.CreateRun(context.Background(), CreateRunRequest{ProjectID: "does-not-exist", NVariants: 1})
	if err == nil {
		t.Fatalf("expected an error for an unknown project")
	}
}

// runSynchronously drives a run's full stage sequence on the calling
// goroutine instead of the detached one CreateRun spawns, so the test can
// assert on a known-settled final state without polling.
func runSynchronously(t *testing.T, engine *Engine, runID string) {
	t.Helper()
	engine.execute(context.Background(), runID)
}

func TestEngine_Execute_CompletesDegradedWithoutAnApiKey(t *testing.T) {
	engine, repo, _ := newTestEngine(t)
	ctx := context.Background()
	repo.EnsureProject(ctx, "proj-1", "Widget")

	run, err := engine.CreateRun(ctx, CreateRunRequest{
		ProjectID:       "proj-1",
		BasePrompt:      "a red ball on a table",
		ObjectivePreset: domain.ObjectiveAdherence,
		ImageModel:      "gpt-image-1",
		NVariants:       3,
		Quality:         domain.QualityMedium,
	})
	if err != nil {
		t.Fatalf("CreateRun: %v", err)
	}

	runSynchronously(t, engine, run.RunID)

	final, ok := engine.GetRun(run.RunID)
	if !ok {
		t.Fatalf("expected the run to still exist after execute()")
	}
	if final.Status != domain.RunStatusCompletedDegraded {
		t.Fatalf("status = %v, want completed_degraded (no OpenAI api key is configured)", final.Status)
	}
	if !final.Degraded {
		t.Fatalf("expected Degraded=true")
	}
	if final.Stage != domain.StageDone {
		t.Fatalf("stage = %v, want done", final.Stage)
	}
	if len(final.Variants) != 3 {
		t.Fatalf("len(variants) = %d, want 3", len(final.Variants))
	}
	for _, v := range final.Variants {
		if v.Status != domain.VariantStatusEvaluatedDegraded {
			t.Fatalf("variant %s status = %v, want evaluated_degraded", v.VariantID, v.Status)
		}
		if v.CompositeScore == nil {
			t.Fatalf("variant %s expected a composite score", v.VariantID)
		}
		if v.CommitID == nil {
			t.Fatalf("variant %s expected a commit id after generation", v.VariantID)
		}
	}
	if len(final.Leaderboard) != 3 {
		t.Fatalf("leaderboard len = %d, want 3", len(final.Leaderboard))
	}
	if len(final.TopK) == 0 {
		t.Fatalf("expected a non-empty top_k list")
	}
	if final.Suggestions == nil {
		t.Fatalf("expected refining to populate suggestions even in degraded mode")
	}
	if final.CompletedAt == nil {
		t.Fatalf("expected CompletedAt to be set on a terminal run")
	}

	anchorCommit, err := repo.GetCommit(ctx, *final.AnchorCommitID, "proj-1")
	if err != nil {
		t.Fatalf("expected the anchor commit to be persisted: %v", err)
	}
	if anchorCommit.Status != domain.CommitStatusSuccess {
		t.Fatalf("anchor commit status = %v, want success", anchorCommit.Status)
	}
}

func TestEngine_Execute_ReusesParentCommitAsAnchorWhenSupplied(t *testing.T) {
	engine, repo, blobs := newTestEngine(t)
	ctx := context.Background()
	repo.EnsureProject(ctx, "proj-1", "Widget")

	parentKey := blobstore.CommitImageKey("c0001", "png")
	if _, err := blobs.Write(ctx, parentKey, []byte("fake-anchor-bytes")); err != nil {
		t.Fatalf("write parent image: %v", err)
	}
	parent := &domain.Commit{
		CommitID:  "c0001",
		ProjectID: "proj-1",
		Prompt:    "a red ball",
		Model:     "gpt-image-1",
		Status:    domain.CommitStatusSuccess,
	}
	parent.SetImagePaths([]string{parentKey})
	if err := repo.CreateCommit(ctx, parent); err != nil {
		t.Fatalf("CreateCommit: %v", err)
	}

	parentID := "c0001"
	run, err := engine.CreateRun(ctx, CreateRunRequest{
		ProjectID:       "proj-1",
		BasePrompt:      "a red ball on a table",
		ObjectivePreset: domain.ObjectiveAdherence,
		ImageModel:      "gpt-image-1",
		NVariants:       2,
		Quality:         domain.QualityMedium,
		ParentCommitID:  &parentID,
	})
	if err != nil {
		t.Fatalf("CreateRun: %v", err)
	}

	runSynchronously(t, engine, run.RunID)

	final, ok := engine.GetRun(run.RunID)
	if !ok {
		t.Fatalf("expected the run to still exist after execute()")
	}
	if final.AnchorCommitID == nil || *final.AnchorCommitID != "c0001" {
		t.Fatalf("expected the supplied parent commit to be reused as the anchor, got %v", final.AnchorCommitID)
	}
	if final.Status != domain.RunStatusCompletedDegraded {
		t.Fatalf("status = %v, want completed_degraded", final.Status)
	}
	for _, v := range final.Variants {
		if v.ParentCommitID != "c0001" {
			t.Fatalf("variant %s parent_commit_id = %q, want c0001", v.VariantID, v.ParentCommitID)
		}
	}
}

func TestEngine_CreateRun_UnusableParentCommitRejectedSynchronously(t *testing.T) {
	engine, repo, _ := newTestEngine(t)
	ctx := context.Background()
	repo.EnsureProject(ctx, "proj-1", "Widget")

	failedParent := &domain.Commit{
		CommitID:  "c0001",
		ProjectID: "proj-1",
		Prompt:    "a red ball",
		Model:     "gpt-image-1",
		Status:    domain.CommitStatusFailed,
	}
	if err := repo.CreateCommit(ctx, failedParent); err != nil {
		t.Fatalf("CreateCommit: %v", err)
	}

	parentID := "c0001"
	_, err := engine.CreateRun(ctx, CreateRunRequest{
		ProjectID:      "proj-1",
		BasePrompt:     "a red ball on a table",
		NVariants:      1,
		ParentCommitID: &parentID,
	})
	if !errors.Is(err, ErrParentCommitUnusable) {
		t.Fatalf("CreateRun err = %v, want ErrParentCommitUnusable", err)
	}
}

// failingEditGenerator wraps a real Generator but always fails ImageEdit,
// exercising the generateVariant failure branch without needing a live
// OpenAI credential.
type failingEditGenerator struct {
	generator.Generator
}

func (failingEditGenerator) ImageEdit(ctx context.Context, prompt string, base []byte) ([]byte, bool, error) {
	return nil, false, &openaiclient.Error{Category: openaiclient.FailureSafetyRejection, Err: context.DeadlineExceeded}
}

func TestEngine_Execute_PersistsFailedCommitWhenImageEditFails(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: gormLogger.Default.LogMode(gormLogger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(store.Models()...); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	repo := store.NewGormRepository(db, log)
	blobs := blobstore.NewFilesystemStore(t.TempDir(), "http://localhost:8080/blobs", log)

	client := openaiclient.New(openaiclient.Config{}, log)
	gen := failingEditGenerator{generator.New(client, log)}
	jud := judge.New(client, "gpt-5-vision", log)
	pln := planner.New(client, "gpt-5", log)
	ref := refiner.New(client, "gpt-5", log)
	engine := NewEngine(repo, blobs, gen, jud, pln, ref, log)

	ctx := context.Background()
	repo.EnsureProject(ctx, "proj-1", "Widget")

	run, err := engine.CreateRun(ctx, CreateRunRequest{
		ProjectID:       "proj-1",
		BasePrompt:      "a red ball on a table",
		ObjectivePreset: domain.ObjectiveAdherence,
		ImageModel:      "gpt-image-1",
		NVariants:       1,
		Quality:         domain.QualityMedium,
	})
	if err != nil {
		t.Fatalf("CreateRun: %v", err)
	}

	runSynchronously(t, engine, run.RunID)

	final, ok := engine.GetRun(run.RunID)
	if !ok {
		t.Fatalf("expected the run to still exist after execute()")
	}
	if len(final.Variants) != 1 {
		t.Fatalf("len(variants) = %d, want 1", len(final.Variants))
	}
	v := final.Variants[0]
	if v.Status != domain.VariantStatusGenerationFailed {
		t.Fatalf("variant status = %v, want generation_failed", v.Status)
	}
	if v.CommitID == nil {
		t.Fatalf("expected the failed generation to be recorded as a commit")
	}

	commit, err := repo.GetCommit(ctx, *v.CommitID, "proj-1")
	if err != nil {
		t.Fatalf("GetCommit: %v", err)
	}
	if commit.Status != domain.CommitStatusFailed {
		t.Fatalf("commit status = %v, want failed", commit.Status)
	}
	if paths := commit.ImagePaths(); len(paths) != 0 {
		t.Fatalf("commit image_paths = %v, want empty", paths)
	}
	if commit.Error == nil || *commit.Error == "" {
		t.Fatalf("expected the commit to capture the generation error text")
	}
}

func TestEngine_CreateRun_MissingParentCommitRejectedSynchronously(t *testing.T) {
	engine, repo, _ := newTestEngine(t)
	ctx := context.Background()
	repo.EnsureProject(ctx, "proj-1", "Widget")

	parentID := "does-not-exist"
	_, err := engine.CreateRun(ctx, CreateRunRequest{
		ProjectID:      "proj-1",
		BasePrompt:     "a red ball on a table",
		NVariants:      1,
		ParentCommitID: &parentID,
	})
	if !errors.Is(err, ErrParentCommitUnusable) {
		t.Fatalf("CreateRun err = %v, want ErrParentCommitUnusable", err)
	}
}

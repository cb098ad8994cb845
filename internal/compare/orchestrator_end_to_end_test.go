package compare

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/choiwab/promptsmith/internal/adapters/openaiclient"
	"github.com/choiwab/promptsmith/internal/blobstore"
	"github.com/choiwab/promptsmith/internal/domain"
	"github.com/choiwab/promptsmith/internal/pkg/logger"
	"github.com/choiwab/promptsmith/internal/store"
)

func newTestRepo(t *testing.T) store.Repository {
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
	return store.NewGormRepository(db, log)
}

func newTestBlobs(t *testing.T) blobstore.BlobStore {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	return blobstore.NewFilesystemStore(t.TempDir(), "http://localhost:8080/blobs", log)
}

func solidPNG(t *testing.T, c color.RGBA) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func seedCommit(t *testing.T, ctx context.Context, repo store.Repository, blobs blobstore.BlobStore, projectID, commitID string, c color.RGBA) {
	t.Helper()
	key := blobstore.CommitImageKey(commitID, "png")
	if _, err := blobs.Write(ctx, key, solidPNG(t, c)); err != nil {
		t.Fatalf("write commit image: %v", err)
	}
	commit := &domain.Commit{
		CommitID:  commitID,
		ProjectID: projectID,
		Prompt:    "a solid color card",
		Model:     "gpt-image-1",
		Status:    domain.CommitStatusSuccess,
	}
	commit.SetImagePaths([]string{key})
	if err := repo.CreateCommit(ctx, commit); err != nil {
		t.Fatalf("CreateCommit: %v", err)
	}
}

func newTestOrchestrator(t *testing.T, repo store.Repository, blobs blobstore.BlobStore) *Orchestrator {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	client := openaiclient.New(openaiclient.Config{}, log)
	return New(repo, blobs, client, Config{Threshold: 0.30}, log)
}

func TestCompare_IdenticalImagesInconclusiveWithDegradedSignals(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	blobs := newTestBlobs(t)

	if _, _, err := repo.EnsureProject(ctx, "proj-1", "Widget"); err != nil {
		t.Fatalf("EnsureProject: %v", err)
	}
	red := color.RGBA{R: 200, G: 30, B: 30, A: 255}
	seedCommit(t, ctx, repo, blobs, "proj-1", "c0001", red)
	seedCommit(t, ctx, repo, blobs, "proj-1", "c0002", red)

	orch := newTestOrchestrator(t, repo, blobs)
	report, err := orch.Compare(ctx, "proj-1", "c0002", "c0001")
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}

	if !report.Degraded {
		t.Fatalf("expected degraded=true since no OpenAI api key is configured")
	}
	if report.SemanticSimilarity != nil {
		t.Fatalf("expected semantic similarity to be unavailable, got %v", *report.SemanticSimilarity)
	}
	if report.VisionStructuralScore != nil {
		t.Fatalf("expected vision structural score to be unavailable, got %v", *report.VisionStructuralScore)
	}
	if report.PixelDiffScore > 0.05 {
		t.Fatalf("expected near-zero pixel diff for identical images, got %v", report.PixelDiffScore)
	}
	if report.Verdict != domain.VerdictInconclusive {
		t.Fatalf("expected inconclusive verdict with only a pixel signal and low diff, got %v", report.Verdict)
	}
	if report.HeatmapPath == "" || report.OverlayPath == "" {
		t.Fatalf("expected heatmap and overlay artifacts to be written, got %+v", report)
	}
}

func TestCompare_StronglyDifferentImagesFailWithPartialSignal(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	blobs := newTestBlobs(t)

	repo.EnsureProject(ctx, "proj-1", "Widget")
	seedCommit(t, ctx, repo, blobs, "proj-1", "c0001", color.RGBA{R: 255, G: 255, B: 255, A: 255})
	seedCommit(t, ctx, repo, blobs, "proj-1", "c0002", color.RGBA{R: 0, G: 0, B: 0, A: 255})

	orch := newTestOrchestrator(t, repo, blobs)
	report, err := orch.Compare(ctx, "proj-1", "c0002", "c0001")
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}
	if report.Verdict != domain.VerdictFail {
		t.Fatalf("expected fail verdict for a high pixel diff with no other signal, got %v (pixel_diff=%v)", report.Verdict, report.PixelDiffScore)
	}
}

func TestCompare_UsesActiveBaselineWhenNoneSpecified(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	blobs := newTestBlobs(t)

	repo.EnsureProject(ctx, "proj-1", "Widget")
	blue := color.RGBA{R: 30, G: 30, B: 200, A: 255}
	seedCommit(t, ctx, repo, blobs, "proj-1", "c0001", blue)
	seedCommit(t, ctx, repo, blobs, "proj-1", "c0002", blue)
	if _, err := repo.SetBaseline(ctx, "proj-1", "c0001"); err != nil {
		t.Fatalf("SetBaseline: %v", err)
	}

	orch := newTestOrchestrator(t, repo, blobs)
	report, err := orch.Compare(ctx, "proj-1", "c0002", "")
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}
	if report.BaselineCommitID != "c0001" {
		t.Fatalf("baseline = %q, want c0001 (the active baseline)", report.BaselineCommitID)
	}
}

func TestCompare_NoBaselineConfiguredErrors(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	blobs := newTestBlobs(t)

	repo.EnsureProject(ctx, "proj-1", "Widget")
	seedCommit(t, ctx, repo, blobs, "proj-1", "c0001", color.RGBA{R: 1, G: 1, B: 1, A: 255})

	orch := newTestOrchestrator(t, repo, blobs)
	if _, err := orch.Compare(ctx, "proj-1", "c0001", ""); err != ErrBaselineNotSet {
		t.Fatalf("expected ErrBaselineNotSet, got %v", err)
	}
}

func TestCompare_UnusableCommitErrors(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	blobs := newTestBlobs(t)

	repo.EnsureProject(ctx, "proj-1", "Widget")
	failed := &domain.Commit{
		CommitID:  "c0001",
		ProjectID: "proj-1",
		Prompt:    "a red ball",
		Model:     "gpt-image-1",
		Status:    domain.CommitStatusFailed,
	}
	if err := repo.CreateCommit(ctx, failed); err != nil {
		t.Fatalf("CreateCommit: %v", err)
	}
	seedCommit(t, ctx, repo, blobs, "proj-1", "c0002", color.RGBA{R: 1, G: 1, B: 1, A: 255})

	orch := newTestOrchestrator(t, repo, blobs)
	if _, err := orch.Compare(ctx, "proj-1", "c0002", "c0001"); err != ErrCommitNotUsable {
		t.Fatalf("expected ErrCommitNotUsable, got %v", err)
	}
}

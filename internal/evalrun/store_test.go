package evalrun

import (
	"context"
	"testing"

	"github.com/choiwab/promptsmith/internal/domain"
)

type fakeMirror struct {
	puts int
	data map[string]*domain.EvalRun
}

func newFakeMirror() *fakeMirror { return &fakeMirror{data: make(map[string]*domain.EvalRun)} }

func (m *fakeMirror) Put(_ context.Context, run *domain.EvalRun) {
	m.puts++
	cp := *run
	m.data[run.RunID] = &cp
}

func (m *fakeMirror) Get(_ context.Context, runID string) (*domain.EvalRun, bool) {
	run, ok := m.data[runID]
	return run, ok
}

func TestStore_GetMissesFallBackToMirror(t *testing.T) {
	mirror := newFakeMirror()
	store := NewStore().WithMirror(mirror)

	run := &domain.EvalRun{RunID: "run-1", Status: domain.RunStatusCompleted}
	mirror.data["run-1"] = run

	got, ok := store.Get("run-1")
	if !ok {
		t.Fatalf("expected mirror fallback to find run-1")
	}
	if got.RunID != "run-1" {
		t.Fatalf("unexpected run id %q", got.RunID)
	}
}

func TestStore_PutMirrorsAndGetPrefersLocal(t *testing.T) {
	mirror := newFakeMirror()
	store := NewStore().WithMirror(mirror)

	run := &domain.EvalRun{RunID: "run-2", Status: domain.RunStatusRunning}
	store.Put(run)

	if mirror.puts != 1 {
		t.Fatalf("expected Put to mirror exactly once, got %d", mirror.puts)
	}

	got, ok := store.Get("run-2")
	if !ok || got.Status != domain.RunStatusRunning {
		t.Fatalf("expected local copy of run-2, got %+v ok=%v", got, ok)
	}

	if got == run {
		t.Fatalf("Get must return a deep copy, not the stored pointer")
	}
}

func TestStore_MutateSnapshotsAfterUnlockAndMirrors(t *testing.T) {
	mirror := newFakeMirror()
	store := NewStore().WithMirror(mirror)
	store.Put(&domain.EvalRun{RunID: "run-3", Status: domain.RunStatusRunning})

	ok := store.Mutate("run-3", func(run *domain.EvalRun) {
		run.Status = domain.RunStatusCompleted
	})
	if !ok {
		t.Fatalf("expected Mutate to find run-3")
	}
	if mirror.puts != 2 {
		t.Fatalf("expected a mirror write from Put and Mutate, got %d", mirror.puts)
	}
	mirrored, ok := mirror.Get(context.Background(), "run-3")
	if !ok || mirrored.Status != domain.RunStatusCompleted {
		t.Fatalf("expected mirrored snapshot to reflect mutation, got %+v", mirrored)
	}
}

func TestStore_MutateMissingRunReturnsFalse(t *testing.T) {
	store := NewStore()
	if store.Mutate("absent", func(run *domain.EvalRun) {}) {
		t.Fatalf("expected Mutate on an absent run to return false")
	}
}

func TestDeepCopyRun_CopiesVariantsAndLeaderboardByID(t *testing.T) {
	v1 := &domain.EvalVariant{VariantID: "v1", Status: domain.VariantStatusEvaluated}
	run := &domain.EvalRun{
		RunID:       "run-4",
		Variants:    []*domain.EvalVariant{v1},
		Leaderboard: []*domain.EvalVariant{v1},
	}

	cp := deepCopyRun(run)
	if len(cp.Variants) != 1 || cp.Variants[0] == v1 {
		t.Fatalf("expected a deep-copied variant slice")
	}
	if len(cp.Leaderboard) != 1 || cp.Leaderboard[0] != cp.Variants[0] {
		t.Fatalf("expected leaderboard entries to point at the copied variants, not the originals")
	}
}

// Package evalrun implements the Eval Orchestrator: it runs a prompt through
// planning, generating, evaluating, ranking, and refining stages, tracked as
// process-volatile state in an in-memory run store.
package evalrun

import (
	"context"
	"sync"

	"github.com/choiwab/promptsmith/internal/domain"
)

// Store holds every EvalRun for the lifetime of the process. It is never
// persisted: a process restart loses all in-flight and completed runs, per
// the in-process global state design note. mirror, when set, is a
// best-effort Redis read-through cache that lets GET /eval-runs/{id} land on
// a replica that didn't create the run, without making Redis the system of
// record.
type Store struct {
	mu     sync.RWMutex
	runs   map[string]*domain.EvalRun
	mirror Mirror
}

func NewStore() *Store {
	return &Store{runs: make(map[string]*domain.EvalRun)}
}

// WithMirror attaches the optional Redis mirror. Nil is a valid value and
// disables mirroring.
func (s *Store) WithMirror(m Mirror) *Store {
	s.mirror = m
	return s
}

func (s *Store) Put(run *domain.EvalRun) {
	s.mu.Lock()
	s.runs[run.RunID] = run
	s.mu.Unlock()
	s.mirrorPut(run)
}

// Get returns a deep copy of the run so callers can read it without holding
// the store lock or racing the background stage sequencer. A local miss
// falls back to the mirror before reporting not-found.
func (s *Store) Get(runID string) (*domain.EvalRun, bool) {
	s.mu.RLock()
	run, ok := s.runs[runID]
	s.mu.RUnlock()
	if ok {
		return deepCopyRun(run), true
	}
	if s.mirror == nil {
		return nil, false
	}
	return s.mirror.Get(context.Background(), runID)
}

// Mutate runs fn against the live run under the store's write lock. fn must
// not retain the pointer it's given beyond the call.
func (s *Store) Mutate(runID string, fn func(run *domain.EvalRun)) bool {
	s.mu.Lock()
	run, ok := s.runs[runID]
	if !ok {
		s.mu.Unlock()
		return false
	}
	fn(run)
	snapshot := deepCopyRun(run)
	s.mu.Unlock()
	s.mirrorPut(snapshot)
	return true
}

func (s *Store) mirrorPut(run *domain.EvalRun) {
	if s.mirror == nil || run == nil {
		return
	}
	s.mirror.Put(context.Background(), run)
}

func deepCopyRun(run *domain.EvalRun) *domain.EvalRun {
	if run == nil {
		return nil
	}
	cp := *run

	if run.ParentCommitID != nil {
		v := *run.ParentCommitID
		cp.ParentCommitID = &v
	}
	if run.AnchorCommitID != nil {
		v := *run.AnchorCommitID
		cp.AnchorCommitID = &v
	}
	if run.Error != nil {
		v := *run.Error
		cp.Error = &v
	}
	if run.CompletedAt != nil {
		v := *run.CompletedAt
		cp.CompletedAt = &v
	}
	cp.MustInclude = append([]string(nil), run.MustInclude...)
	cp.MustAvoid = append([]string(nil), run.MustAvoid...)
	cp.TopK = append([]string(nil), run.TopK...)

	cp.Variants = make([]*domain.EvalVariant, len(run.Variants))
	byID := make(map[string]*domain.EvalVariant, len(run.Variants))
	for i, v := range run.Variants {
		vc := deepCopyVariant(v)
		cp.Variants[i] = vc
		byID[vc.VariantID] = vc
	}

	cp.Leaderboard = make([]*domain.EvalVariant, 0, len(run.Leaderboard))
	for _, v := range run.Leaderboard {
		if vc, ok := byID[v.VariantID]; ok {
			cp.Leaderboard = append(cp.Leaderboard, vc)
		}
	}

	if run.Suggestions != nil {
		s := *run.Suggestions
		cp.Suggestions = &s
	}

	return &cp
}

func deepCopyVariant(v *domain.EvalVariant) *domain.EvalVariant {
	cp := *v
	if v.CommitID != nil {
		s := *v.CommitID
		cp.CommitID = &s
	}
	if v.ImageURL != nil {
		s := *v.ImageURL
		cp.ImageURL = &s
	}
	if v.CompositeScore != nil {
		f := *v.CompositeScore
		cp.CompositeScore = &f
	}
	if v.Rank != nil {
		r := *v.Rank
		cp.Rank = &r
	}
	if v.Error != nil {
		s := *v.Error
		cp.Error = &s
	}
	cp.MutationTags = append([]string(nil), v.MutationTags...)
	cp.FailureTags = append([]string(nil), v.FailureTags...)
	cp.StrengthTags = append([]string(nil), v.StrengthTags...)
	return &cp
}

// Package store implements the repository interface over projects,
// commits, and comparison reports described by the data model: a
// gorm-backed relational store with atomic-per-key mutations and monotonic
// ID reservation.
package store

import (
	"context"
	"time"

	"github.com/choiwab/promptsmith/internal/domain"
)

// Repository is the persistence contract the eval and compare orchestrators
// depend on. All multi-row mutations exposed here are atomic with respect
// to readers.
type Repository interface {
	EnsureProject(ctx context.Context, projectID, name string) (project *domain.Project, created bool, err error)
	GetProject(ctx context.Context, projectID string) (*domain.Project, error)
	ListProjects(ctx context.Context) ([]*domain.Project, error)
	SetBaseline(ctx context.Context, projectID, commitID string) (*domain.Project, error)
	DeleteProject(ctx context.Context, projectID string) error

	ReserveCommitID(ctx context.Context) (string, error)
	ReserveReportID(ctx context.Context) (string, error)

	CreateCommit(ctx context.Context, c *domain.Commit) error
	GetCommit(ctx context.Context, commitID, projectID string) (*domain.Commit, error)
	ListHistory(ctx context.Context, projectID string, limit int, cursor string) (items []*domain.Commit, nextCursor string, err error)

	CreateComparisonReport(ctx context.Context, r *domain.ComparisonReport) error

	// DeleteCommitSubtree deletes commitID and every commit transitively
	// parented by it, plus any comparison report referencing a deleted
	// commit. Idempotent: re-invoking on an already-deleted commit returns
	// empty slices and a nil error.
	DeleteCommitSubtree(ctx context.Context, projectID, commitID string) (deletedCommitIDs, deletedReportIDs []string, err error)
}

// CommitPage mirrors the (items, nextCursor) pair that ListHistory returns;
// ListHistory itself returns the tuple and does not use this type.
type CommitPage struct {
	Items      []*domain.Commit
	NextCursor string
}

func utcNow() time.Time { return time.Now().UTC().Truncate(time.Millisecond) }

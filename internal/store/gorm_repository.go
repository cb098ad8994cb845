package store

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"gorm.io/gorm"

	"github.com/choiwab/promptsmith/internal/clock"
	"github.com/choiwab/promptsmith/internal/domain"
	pkgerrors "github.com/choiwab/promptsmith/internal/pkg/errors"
	"github.com/choiwab/promptsmith/internal/pkg/logger"
)

// idCounter is the single-row config table the ID factory persists into, so
// monotonic numbering survives a process restart even though EvalRun state
// does not.
type idCounter struct {
	ID               uint `gorm:"primaryKey"`
	NextCommitNumber int
	NextReportNumber int
}

func (idCounter) TableName() string { return "id_counters" }

type gormRepository struct {
	db  *gorm.DB
	log *logger.Logger

	// idMu serializes counter reservation in-process, mirroring the
	// original implementation's threading.Lock around reserve_*_id. The
	// db transaction below additionally guarantees durability.
	idMu sync.Mutex
}

// NewGormRepository constructs a Repository backed by the given gorm
// connection (Postgres in production, SQLite in tests). AutoMigrate must
// have already run against db.
func NewGormRepository(db *gorm.DB, log *logger.Logger) Repository {
	return &gormRepository{db: db, log: log}
}

// Models returns the gorm model set callers should AutoMigrate.
func Models() []interface{} {
	return []interface{}{
		&domain.Project{},
		&domain.Commit{},
		&domain.ComparisonReport{},
		&idCounter{},
	}
}

func (r *gormRepository) tx(ctx context.Context, tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx.WithContext(ctx)
	}
	return r.db.WithContext(ctx)
}

func (r *gormRepository) EnsureProject(ctx context.Context, projectID, name string) (*domain.Project, bool, error) {
	var project domain.Project
	err := r.tx(ctx, nil).Where("project_id = ?", projectID).First(&project).Error
	if err == nil {
		if name != "" && name != project.Name {
			project.Name = name
			project.UpdatedAt = utcNow()
			if err := r.tx(ctx, nil).Save(&project).Error; err != nil {
				return nil, false, fmt.Errorf("store: update project: %w", err)
			}
		}
		return &project, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, fmt.Errorf("store: load project: %w", err)
	}

	now := utcNow()
	if name == "" {
		name = projectID
	}
	project = domain.Project{
		ProjectID: projectID,
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := r.tx(ctx, nil).Create(&project).Error; err != nil {
		return nil, false, fmt.Errorf("store: create project: %w", err)
	}
	return &project, true, nil
}

func (r *gormRepository) GetProject(ctx context.Context, projectID string) (*domain.Project, error) {
	var project domain.Project
	err := r.tx(ctx, nil).Where("project_id = ?", projectID).First(&project).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: project %q", pkgerrors.ErrNotFound, projectID)
	}
	if err != nil {
		return nil, fmt.Errorf("store: load project: %w", err)
	}
	return &project, nil
}

func (r *gormRepository) ListProjects(ctx context.Context) ([]*domain.Project, error) {
	var projects []*domain.Project
	if err := r.tx(ctx, nil).Order("updated_at desc").Find(&projects).Error; err != nil {
		return nil, fmt.Errorf("store: list projects: %w", err)
	}
	return projects, nil
}

func (r *gormRepository) SetBaseline(ctx context.Context, projectID, commitID string) (*domain.Project, error) {
	project, err := r.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	commit, err := r.GetCommit(ctx, commitID, projectID)
	if err != nil {
		return nil, err
	}
	if commit.Status != domain.CommitStatusSuccess || len(commit.ImagePaths()) == 0 {
		return nil, fmt.Errorf("%w: commit %q is not a successful generation", pkgerrors.ErrNotFound, commitID)
	}

	project.ActiveBaselineCommitID = &commitID
	project.UpdatedAt = utcNow()
	if err := r.tx(ctx, nil).Save(project).Error; err != nil {
		return nil, fmt.Errorf("store: set baseline: %w", err)
	}
	return project, nil
}

func (r *gormRepository) DeleteProject(ctx context.Context, projectID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("project_id = ?", projectID).Delete(&domain.ComparisonReport{}).Error; err != nil {
			return err
		}
		if err := tx.Where("project_id = ?", projectID).Delete(&domain.Commit{}).Error; err != nil {
			return err
		}
		if err := tx.Where("project_id = ?", projectID).Delete(&domain.Project{}).Error; err != nil {
			return err
		}
		return nil
	})
}

func (r *gormRepository) reserveNumber(ctx context.Context, field string) (int, error) {
	r.idMu.Lock()
	defer r.idMu.Unlock()

	var next int
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row idCounter
		if err := tx.FirstOrCreate(&row, idCounter{ID: 1}).Error; err != nil {
			return err
		}
		switch field {
		case "commit":
			next = row.NextCommitNumber
			if next == 0 {
				next = 1
			}
			row.NextCommitNumber = next + 1
		case "report":
			next = row.NextReportNumber
			if next == 0 {
				next = 1
			}
			row.NextReportNumber = next + 1
		default:
			return fmt.Errorf("store: unknown counter field %q", field)
		}
		return tx.Save(&row).Error
	})
	if err != nil {
		return 0, fmt.Errorf("store: reserve %s id: %w", field, err)
	}
	return next, nil
}

func (r *gormRepository) ReserveCommitID(ctx context.Context) (string, error) {
	n, err := r.reserveNumber(ctx, "commit")
	if err != nil {
		return "", err
	}
	return clock.FormatID("c", n), nil
}

func (r *gormRepository) ReserveReportID(ctx context.Context) (string, error) {
	n, err := r.reserveNumber(ctx, "report")
	if err != nil {
		return "", err
	}
	return clock.FormatID("r", n), nil
}

func (r *gormRepository) CreateCommit(ctx context.Context, c *domain.Commit) error {
	if c.ParentCommitID != nil {
		var parent domain.Commit
		err := r.tx(ctx, nil).Where("commit_id = ? AND project_id = ?", *c.ParentCommitID, c.ProjectID).First(&parent).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: parent commit %q", pkgerrors.ErrNotFound, *c.ParentCommitID)
		}
		if err != nil {
			return fmt.Errorf("store: load parent commit: %w", err)
		}
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = utcNow()
	}
	if err := r.tx(ctx, nil).Create(c).Error; err != nil {
		return fmt.Errorf("store: create commit: %w", err)
	}
	return nil
}

func (r *gormRepository) GetCommit(ctx context.Context, commitID, projectID string) (*domain.Commit, error) {
	var commit domain.Commit
	q := r.tx(ctx, nil).Where("commit_id = ?", commitID)
	if projectID != "" {
		q = q.Where("project_id = ?", projectID)
	}
	err := q.First(&commit).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: commit %q", pkgerrors.ErrNotFound, commitID)
	}
	if err != nil {
		return nil, fmt.Errorf("store: load commit: %w", err)
	}
	return &commit, nil
}

func (r *gormRepository) ListHistory(ctx context.Context, projectID string, limit int, cursor string) ([]*domain.Commit, string, error) {
	if _, err := r.GetProject(ctx, projectID); err != nil {
		return nil, "", err
	}

	var all []*domain.Commit
	if err := r.tx(ctx, nil).
		Where("project_id = ?", projectID).
		Order("created_at desc, commit_id desc").
		Find(&all).Error; err != nil {
		return nil, "", fmt.Errorf("store: list history: %w", err)
	}

	start := 0
	if cursor != "" {
		for i, c := range all {
			if c.CommitID == cursor {
				start = i + 1
				break
			}
		}
	}
	end := start + limit
	hasMore := end < len(all)
	if end > len(all) {
		end = len(all)
	}
	page := all[start:end]

	nextCursor := ""
	if hasMore && len(page) > 0 {
		nextCursor = page[len(page)-1].CommitID
	}
	return page, nextCursor, nil
}

func (r *gormRepository) CreateComparisonReport(ctx context.Context, rep *domain.ComparisonReport) error {
	if rep.CreatedAt.IsZero() {
		rep.CreatedAt = utcNow()
	}
	if err := r.tx(ctx, nil).Create(rep).Error; err != nil {
		return fmt.Errorf("store: create comparison report: %w", err)
	}
	return nil
}

func (r *gormRepository) DeleteCommitSubtree(ctx context.Context, projectID, commitID string) ([]string, []string, error) {
	var deletedCommitIDs, deletedReportIDs []string

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var root domain.Commit
		err := tx.Where("commit_id = ? AND project_id = ?", commitID, projectID).First(&root).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil // idempotent: nothing to delete
		}
		if err != nil {
			return err
		}

		var allCommits []*domain.Commit
		if err := tx.Where("project_id = ?", projectID).Find(&allCommits).Error; err != nil {
			return err
		}
		children := map[string][]*domain.Commit{}
		for _, c := range allCommits {
			if c.ParentCommitID != nil {
				children[*c.ParentCommitID] = append(children[*c.ParentCommitID], c)
			}
		}

		doomed := map[string]bool{commitID: true}
		queue := []string{commitID}
		for len(queue) > 0 {
			id := queue[0]
			queue = queue[1:]
			for _, child := range children[id] {
				if !doomed[child.CommitID] {
					doomed[child.CommitID] = true
					queue = append(queue, child.CommitID)
				}
			}
		}
		for id := range doomed {
			deletedCommitIDs = append(deletedCommitIDs, id)
		}

		var reports []*domain.ComparisonReport
		if err := tx.Where("project_id = ?", projectID).Find(&reports).Error; err != nil {
			return err
		}
		var doomedReports []string
		for _, rep := range reports {
			if doomed[rep.BaselineCommitID] || doomed[rep.CandidateCommitID] {
				doomedReports = append(doomedReports, rep.ReportID)
			}
		}
		deletedReportIDs = doomedReports

		if len(deletedReportIDs) > 0 {
			if err := tx.Where("report_id IN ?", deletedReportIDs).Delete(&domain.ComparisonReport{}).Error; err != nil {
				return err
			}
		}
		if len(deletedCommitIDs) > 0 {
			if err := tx.Where("commit_id IN ?", deletedCommitIDs).Delete(&domain.Commit{}).Error; err != nil {
				return err
			}
		}

		var project domain.Project
		if err := tx.Where("project_id = ?", projectID).First(&project).Error; err == nil {
			if project.ActiveBaselineCommitID != nil && doomed[*project.ActiveBaselineCommitID] {
				project.ActiveBaselineCommitID = nil
				project.UpdatedAt = utcNow()
				if err := tx.Save(&project).Error; err != nil {
					return err
				}
			}
		}

		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("store: delete commit subtree: %w", err)
	}
	return deletedCommitIDs, deletedReportIDs, nil
}

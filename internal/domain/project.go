package domain

import "time"

// Project is the top-level container for a lineage of commits. At most one
// commit may be the active baseline at any time.
type Project struct {
	ProjectID              string    `gorm:"column:project_id;primaryKey" json:"project_id"`
	Name                   string    `gorm:"column:name" json:"name"`
	ActiveBaselineCommitID *string   `gorm:"column:active_baseline_commit_id" json:"active_baseline_commit_id,omitempty"`
	CreatedAt              time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt              time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (Project) TableName() string { return "projects" }

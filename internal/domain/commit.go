package domain

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

type CommitStatus string

const (
	CommitStatusSuccess CommitStatus = "success"
	CommitStatusFailed  CommitStatus = "failed"
)

// Commit is an immutable record of a single generation attempt. It is never
// mutated after creation except by a cascading subtree delete.
type Commit struct {
	CommitID       string         `gorm:"column:commit_id;primaryKey" json:"commit_id"`
	ProjectID      string         `gorm:"column:project_id;index" json:"project_id"`
	Prompt         string         `gorm:"column:prompt" json:"prompt"`
	Model          string         `gorm:"column:model" json:"model"`
	Seed           *string        `gorm:"column:seed" json:"seed,omitempty"`
	ParentCommitID *string        `gorm:"column:parent_commit_id;index" json:"parent_commit_id,omitempty"`
	ImagePathsJSON datatypes.JSON `gorm:"column:image_paths" json:"-"`
	Status         CommitStatus   `gorm:"column:status" json:"status"`
	Error          *string        `gorm:"column:error" json:"error,omitempty"`
	CreatedAt      time.Time      `gorm:"column:created_at" json:"created_at"`
}

func (Commit) TableName() string { return "commits" }

// ImagePaths decodes the stored JSON array of blob-store paths.
func (c *Commit) ImagePaths() []string {
	if len(c.ImagePathsJSON) == 0 {
		return nil
	}
	var paths []string
	if err := json.Unmarshal(c.ImagePathsJSON, &paths); err != nil {
		return nil
	}
	return paths
}

// SetImagePaths encodes and stores the blob-store paths for this commit.
func (c *Commit) SetImagePaths(paths []string) {
	if paths == nil {
		paths = []string{}
	}
	raw, _ := json.Marshal(paths)
	c.ImagePathsJSON = datatypes.JSON(raw)
}

package board

import (
	"time"

	"gorm.io/datatypes"

	"firmops-backoffice/services/checklist"
)

type Scope string

const (
	ScopeTeam Scope = "team"
	ScopeMine Scope = "mine"
)

type GroupBy string

const (
	GroupByStatus   GroupBy = "status"
	GroupByClient   GroupBy = "client"
	GroupByAssignee GroupBy = "assignee"
)

// Filters parameterise the board's read contract. Now is injected so
// urgency bucketing stays deterministic; the zero value means wall clock.
type Filters struct {
	Scope       Scope                    `json:"scope" form:"scope"`
	AssignedTo  string                   `json:"assigned_to" form:"assigned_to"`
	Statuses    []checklist.TaskStatus   `json:"statuses" form:"statuses"`
	Bucket      *checklist.UrgencyBucket `json:"bucket" form:"bucket"`
	ClientID    string                   `json:"client_id" form:"client_id"`
	IncludeDone bool                     `json:"include_done" form:"include_done"`
	Now         time.Time                `json:"-" form:"-"`
}

// Group is one rendered board column.
type Group struct {
	Key   string               `json:"key"`
	Tasks []checklist.TaskView `json:"tasks"`
}

// SavedFilter is a named filter snapshot. The server only round-trips it;
// interpreting the snapshot is the client's business.
type SavedFilter struct {
	ID        string         `gorm:"column:id;primaryKey;type:varchar(32)"`
	Owner     string         `gorm:"column:owner;index;type:varchar(32);not null"`
	Name      string         `gorm:"column:name;type:varchar(120);not null"`
	Snapshot  datatypes.JSON `gorm:"column:snapshot"`
	CreatedAt time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}

func (SavedFilter) TableName() string { return "saved_filters" }

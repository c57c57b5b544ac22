package cycle

import (
	"time"

	"gorm.io/datatypes"
)

type CycleStatus string

const (
	CycleActive    CycleStatus = "active"
	CycleCompleted CycleStatus = "completed"
	CycleArchived  CycleStatus = "archived"
)

// CycleSource records which path created a cycle. The recurring generator's
// idempotence guard only applies to its own rows; staff may deliberately
// create extra or backdated cycles for the same period.
type CycleSource string

const (
	SourceGenerator CycleSource = "generator"
	SourceManual    CycleSource = "manual"
)

// OperationCycle is one instantiated occurrence of a template for a client
// over a concrete period. The partial unique (assignment_id, period_start)
// index covers generator rows only, backing the recurrence guard without
// hard-blocking manual duplicates.
type OperationCycle struct {
	ID           string      `gorm:"column:id;primaryKey;type:varchar(32)"`
	AssignmentID string      `gorm:"column:assignment_id;index:idx_cycle_generator_period,unique,where:source = 'generator';type:varchar(32);not null"`
	ClientID     string      `gorm:"column:client_id;index;type:varchar(32);not null"`
	TemplateID   string      `gorm:"column:template_id;index;type:varchar(32);not null"`
	Label        string      `gorm:"column:label;type:varchar(120);not null"`
	PeriodStart  time.Time   `gorm:"column:period_start;index:idx_cycle_generator_period,unique;not null"`
	PeriodEnd    time.Time   `gorm:"column:period_end;not null"`
	Status       CycleStatus `gorm:"column:status;type:varchar(20);not null;default:'active'"`
	Source       CycleSource `gorm:"column:source;type:varchar(20);not null;default:'generator'"`
	GeneratedBy  string      `gorm:"column:generated_by;type:varchar(64)"`
	CreatedAt    time.Time   `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time   `gorm:"column:updated_at;autoUpdateTime"`
}

func (OperationCycle) TableName() string { return "operation_cycles" }

// GenerationRun is the persisted record of one generator invocation.
type GenerationRun struct {
	ID             string         `gorm:"column:id;primaryKey;type:varchar(32)"`
	RunDate        time.Time      `gorm:"column:run_date;index;not null"`
	TriggeredBy    string         `gorm:"column:triggered_by;type:varchar(64)"`
	Status         string         `gorm:"column:status;type:varchar(20);default:'success'"`
	GeneratedCount int            `gorm:"column:generated_count"`
	SkippedCount   int            `gorm:"column:skipped_count"`
	Errors         datatypes.JSON `gorm:"column:errors"`
	StartedAt      time.Time      `gorm:"column:started_at"`
	CompletedAt    *time.Time     `gorm:"column:completed_at"`
}

func (GenerationRun) TableName() string { return "generation_runs" }

// RunError names one assignment the run could not generate for.
type RunError struct {
	AssignmentID string `json:"assignment_id"`
	ClientID     string `json:"client_id"`
	TemplateID   string `json:"template_id"`
	Reason       string `json:"reason"`
	Message      string `json:"message"`
}

// RunSummary is the aggregate result returned to the trigger boundary.
type RunSummary struct {
	RunID          string     `json:"run_id"`
	GeneratedCount int        `json:"generated_count"`
	SkippedCount   int        `json:"skipped_count"`
	Errors         []RunError `json:"errors"`
}

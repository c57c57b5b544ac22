package checklist

import "time"

type TaskStatus string

const (
	StatusNotStarted TaskStatus = "not_started"
	StatusInProgress TaskStatus = "in_progress"
	StatusBlocked    TaskStatus = "blocked"
	StatusDone       TaskStatus = "done"
)

type UrgencyBucket string

const (
	BucketOverdue  UrgencyBucket = "overdue"
	BucketDueToday UrgencyBucket = "due_today"
	BucketUpcoming UrgencyBucket = "upcoming"
	BucketNone     UrgencyBucket = "none"
)

// OperationTask is one instantiated checklist item inside a cycle. Title,
// description, position and the evidence flag are frozen copies of the
// blueprint; later blueprint edits never change generated tasks.
type OperationTask struct {
	ID               string     `gorm:"column:id;primaryKey;type:varchar(32)"`
	CycleID          string     `gorm:"column:cycle_id;index;type:varchar(32);not null"`
	TemplateTaskID   *string    `gorm:"column:template_task_id;type:varchar(32)"`
	Title            string     `gorm:"column:title;type:varchar(255);not null"`
	Description      string     `gorm:"column:description;type:text"`
	Position         int        `gorm:"column:position;not null"`
	Status           TaskStatus `gorm:"column:status;type:varchar(20);not null;default:'not_started'"`
	AssignedTo       *string    `gorm:"column:assigned_to;type:varchar(32)"`
	DueAt            *time.Time `gorm:"column:due_at"`
	StartedAt        *time.Time `gorm:"column:started_at"`
	CompletedAt      *time.Time `gorm:"column:completed_at"`
	CompletedBy      *string    `gorm:"column:completed_by;type:varchar(32)"`
	EvidenceRequired bool       `gorm:"column:evidence_required;default:false"`
	EvidenceNote     string     `gorm:"column:evidence_note;type:text"`
	Notes            string     `gorm:"column:notes;type:text"`
	TimeEntryID      *string    `gorm:"column:time_entry_id;type:varchar(32)"`
	CreatedAt        time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (OperationTask) TableName() string { return "operation_tasks" }

// OperationTaskPrerequisite links a task to a sibling task in the same cycle
// that must reach done first.
type OperationTaskPrerequisite struct {
	TaskID         string `gorm:"column:task_id;primaryKey;type:varchar(32)"`
	PrerequisiteID string `gorm:"column:prerequisite_id;primaryKey;type:varchar(32)"`
}

func (OperationTaskPrerequisite) TableName() string { return "operation_task_prerequisites" }

// PrerequisiteRef names one blocking task for display.
type PrerequisiteRef struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// TaskView is a task with its derived, never-stored fields.
type TaskView struct {
	OperationTask
	UnmetPrerequisites []PrerequisiteRef `json:"unmet_prerequisites"`
	Urgency            UrgencyBucket     `json:"urgency"`
}

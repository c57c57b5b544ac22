package template

import (
	"sort"
	"time"
)

// OperationTemplate is a reusable checklist definition. Blueprint edits never
// touch already-generated cycles; tasks copy their fields at generation time.
type OperationTemplate struct {
	ID          string         `gorm:"column:id;primaryKey;type:varchar(32)"`
	Code        string         `gorm:"column:code;uniqueIndex;type:varchar(120);not null"`
	Name        string         `gorm:"column:name;type:varchar(255);not null"`
	Description string         `gorm:"column:description;type:text"`
	Recurrence  string         `gorm:"column:recurrence;type:varchar(20);not null;default:'monthly'"`
	Active      bool           `gorm:"column:active;default:true"`
	CreatedAt   time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time      `gorm:"column:updated_at;autoUpdateTime"`
	Tasks       []TemplateTask `gorm:"foreignKey:TemplateID"`
}

func (OperationTemplate) TableName() string { return "operation_templates" }

// ActiveTasks returns the active blueprints in position order.
func (t *OperationTemplate) ActiveTasks() []TemplateTask {
	tasks := make([]TemplateTask, 0, len(t.Tasks))
	for _, bt := range t.Tasks {
		if bt.Active {
			tasks = append(tasks, bt)
		}
	}
	sort.SliceStable(tasks, func(i, j int) bool { return tasks[i].Position < tasks[j].Position })
	return tasks
}

// TemplateTask is one ordered task blueprint inside a template.
type TemplateTask struct {
	ID               string                     `gorm:"column:id;primaryKey;type:varchar(32)"`
	TemplateID       string                     `gorm:"column:template_id;index;not null"`
	Title            string                     `gorm:"column:title;type:varchar(255);not null"`
	Description      string                     `gorm:"column:description;type:text"`
	Position         int                        `gorm:"column:position;not null"`
	EvidenceRequired bool                       `gorm:"column:evidence_required;default:false"`
	Active           bool                       `gorm:"column:active;default:true"`
	CreatedAt        time.Time                  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time                  `gorm:"column:updated_at;autoUpdateTime"`
	Prerequisites    []TemplateTaskPrerequisite `gorm:"foreignKey:TaskID"`
}

func (TemplateTask) TableName() string { return "template_tasks" }

func (t *TemplateTask) PrerequisiteIDs() []string {
	ids := make([]string, 0, len(t.Prerequisites))
	for _, p := range t.Prerequisites {
		ids = append(ids, p.PrerequisiteID)
	}
	return ids
}

// TemplateTaskPrerequisite links a blueprint to another blueprint in the same
// template that must complete first.
type TemplateTaskPrerequisite struct {
	TaskID         string `gorm:"column:task_id;primaryKey;type:varchar(32)"`
	PrerequisiteID string `gorm:"column:prerequisite_id;primaryKey;type:varchar(32)"`
}

func (TemplateTaskPrerequisite) TableName() string { return "template_task_prerequisites" }

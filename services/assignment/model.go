package assignment

import "time"

type AssignmentStatus string

const (
	StatusActive AssignmentStatus = "active"
	StatusPaused AssignmentStatus = "paused"
)

// ClientOperationAssignment binds a client to a checklist template. One
// assignment per (client, template) pair; paused assignments are excluded
// from recurring generation.
type ClientOperationAssignment struct {
	ID           string           `gorm:"column:id;primaryKey;type:varchar(32)"`
	ClientID     string           `gorm:"column:client_id;uniqueIndex:idx_assignment_client_template;type:varchar(32);not null"`
	TemplateID   string           `gorm:"column:template_id;uniqueIndex:idx_assignment_client_template;type:varchar(32);not null"`
	Status       AssignmentStatus `gorm:"column:status;type:varchar(20);not null;default:'active'"`
	AutoGenerate bool             `gorm:"column:auto_generate;default:true"`
	CreatedAt    time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

func (ClientOperationAssignment) TableName() string { return "client_operation_assignments" }

package bootstrap

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"firmops-backoffice/services/assignment"
	"firmops-backoffice/services/board"
	"firmops-backoffice/services/checklist"
	"firmops-backoffice/services/cycle"
	"firmops-backoffice/services/template"
)

var Module = fx.Module("bootstrap",
	fx.Invoke(runMigrations),
)

func runMigrations(lc fx.Lifecycle, db *gorm.DB) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			return Migrate(db)
		},
	})
}

// Migrate creates or updates the schema for every domain model.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&template.OperationTemplate{},
		&template.TemplateTask{},
		&template.TemplateTaskPrerequisite{},
		&assignment.ClientOperationAssignment{},
		&cycle.OperationCycle{},
		&cycle.GenerationRun{},
		&checklist.OperationTask{},
		&checklist.OperationTaskPrerequisite{},
		&board.SavedFilter{},
	); err != nil {
		zap.L().Error("[bootstrap] schema migration failed", zap.Error(err))
		return err
	}

	zap.L().Info("[bootstrap] schema migration complete")
	return nil
}

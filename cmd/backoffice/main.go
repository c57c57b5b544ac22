package main

import (
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"firmops-backoffice/pkg/config"
	"firmops-backoffice/pkg/db"
	"firmops-backoffice/pkg/gen"
	"firmops-backoffice/pkg/health"
	"firmops-backoffice/pkg/logger"
	"firmops-backoffice/pkg/redis"
	"firmops-backoffice/pkg/server"
	"firmops-backoffice/pkg/task"
	"firmops-backoffice/services/assignment"
	"firmops-backoffice/services/board"
	"firmops-backoffice/services/bootstrap"
	"firmops-backoffice/services/checklist"
	"firmops-backoffice/services/cycle"
	"firmops-backoffice/services/template"
)

func main() {
	app := fx.New(
		config.Module,
		logger.Module,
		db.Module,
		redis.Module,
		gen.Module,
		task.Client,
		health.Module,
		server.Module,
		bootstrap.Module,
		template.Server,
		assignment.Server,
		checklist.Server,
		cycle.Server,
		board.Server,
		fxLogger,
	)

	app.Run()
}

var fxLogger = fx.WithLogger(func(cfg *config.Config, logger *zap.Logger) fxevent.Logger {
	return fxevent.NopLogger
})

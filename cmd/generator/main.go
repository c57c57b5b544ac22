package main

import (
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"firmops-backoffice/pkg/config"
	"firmops-backoffice/pkg/db"
	"firmops-backoffice/pkg/gen"
	"firmops-backoffice/pkg/logger"
	"firmops-backoffice/pkg/redis"
	"firmops-backoffice/pkg/task"
	"firmops-backoffice/services/assignment"
	"firmops-backoffice/services/bootstrap"
	"firmops-backoffice/services/cycle"
)

// The generator binary only consumes generation jobs; the API server
// enqueues them.
func main() {
	app := fx.New(
		config.Module,
		logger.Module,
		db.Module,
		redis.Module,
		gen.Module,
		task.Client,
		task.Server,
		bootstrap.Module,
		assignment.Module,
		cycle.Worker,
		fxLogger,
	)

	app.Run()
}

var fxLogger = fx.WithLogger(func(cfg *config.Config, logger *zap.Logger) fxevent.Logger {
	return fxevent.NopLogger
})

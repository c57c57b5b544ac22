package cycle

import (
	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"go.uber.org/fx"
)

var Module = fx.Module("cycle.module",
	fx.Provide(
		NewService,
		NewHandler,
	),
)

var Server = fx.Module("cycle.server",
	Module,
	fx.Provide(NewScheduler),
	fx.Invoke(
		func(r *gin.Engine, h *Handler) {
			h.Register(r)
		},
		StartScheduler,
	),
)

// Worker registers the generation handler for the asynq worker binary.
var Worker = fx.Module("cycle.worker",
	Module,
	fx.Invoke(func(mux *asynq.ServeMux, svc *Service) {
		RegisterHandlers(mux, svc)
	}),
)

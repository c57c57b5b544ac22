package checklist

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
)

var Module = fx.Module("checklist.module",
	fx.Provide(
		NewService,
		NewHandler,
	),
)

var Server = fx.Module("checklist.server",
	Module,
	fx.Invoke(func(r *gin.Engine, h *Handler) {
		h.Register(r)
	}),
)

package assignment

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
)

var Module = fx.Module("assignment.module",
	fx.Provide(
		NewService,
		NewHandler,
	),
)

var Server = fx.Module("assignment.server",
	Module,
	fx.Invoke(func(r *gin.Engine, h *Handler) {
		h.Register(r)
	}),
)

package template

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
)

var Module = fx.Module("template.module",
	fx.Provide(
		NewService,
		NewHandler,
	),
)

var Server = fx.Module("template.server",
	Module,
	fx.Invoke(func(r *gin.Engine, h *Handler) {
		h.Register(r)
	}),
)

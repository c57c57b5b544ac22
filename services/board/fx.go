package board

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
)

var Module = fx.Module("board.module",
	fx.Provide(
		NewService,
		NewHandler,
	),
)

var Server = fx.Module("board.server",
	Module,
	fx.Invoke(func(r *gin.Engine, h *Handler) {
		h.Register(r)
	}),
)

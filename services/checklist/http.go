package checklist

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"firmops-backoffice/pkg/errutil"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Register(r *gin.Engine) {
	v1 := r.Group("/v1")
	v1.GET("/tasks/:id", h.get)
	v1.PATCH("/tasks/:id", h.update)
	v1.POST("/tasks/:id/complete", h.complete)
	v1.POST("/tasks/:id/reopen", h.reopen)
	v1.DELETE("/time-entries/:id/links", h.clearTimeEntryLinks)
}

const actorHeader = "X-Actor-ID"

func (h *Handler) get(c *gin.Context) {
	view, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, view)
}

func (h *Handler) update(c *gin.Context) {
	var patch Patch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.Error(errutil.BadRequest("invalid request body", errutil.WithErr(err)))
		return
	}
	patch.Actor = c.GetHeader(actorHeader)

	view, err := h.svc.Update(c.Request.Context(), c.Param("id"), patch)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, view)
}

type completeRequest struct {
	EvidenceNote string `json:"evidence_note"`
}

func (h *Handler) complete(c *gin.Context) {
	var req completeRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.Error(errutil.BadRequest("invalid request body", errutil.WithErr(err)))
			return
		}
	}

	view, err := h.svc.Complete(c.Request.Context(), c.Param("id"), req.EvidenceNote, c.GetHeader(actorHeader))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, view)
}

func (h *Handler) reopen(c *gin.Context) {
	view, err := h.svc.Reopen(c.Request.Context(), c.Param("id"), c.GetHeader(actorHeader))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, view)
}

func (h *Handler) clearTimeEntryLinks(c *gin.Context) {
	cleared, err := h.svc.ClearTimeEntryLinks(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"cleared": cleared})
}

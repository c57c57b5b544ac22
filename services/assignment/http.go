package assignment

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
	v1.POST("/assignments", h.create)
	v1.GET("/assignments", h.list)
	v1.PATCH("/assignments/:id/status", h.setStatus)
	v1.PATCH("/assignments/:id/auto-generate", h.setAutoGenerate)
}

type createRequest struct {
	ClientID   string `json:"client_id"`
	TemplateID string `json:"template_id"`
}

func (h *Handler) create(c *gin.Context) {
	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errutil.BadRequest("invalid request body", errutil.WithErr(err)))
		return
	}

	a, err := h.svc.Assign(c.Request.Context(), req.ClientID, req.TemplateID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, a)
}

func (h *Handler) list(c *gin.Context) {
	clientID := c.Query("client_id")
	if clientID == "" {
		c.Error(errutil.BadRequest("client_id is required"))
		return
	}

	out, err := h.svc.ListByClient(c.Request.Context(), clientID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"assignments": out})
}

type setStatusRequest struct {
	Status AssignmentStatus `json:"status"`
}

func (h *Handler) setStatus(c *gin.Context) {
	var req setStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errutil.BadRequest("invalid request body", errutil.WithErr(err)))
		return
	}

	if err := h.svc.SetStatus(c.Request.Context(), c.Param("id"), req.Status); err != nil {
		c.Error(err)
		return
	}

	c.Status(http.StatusNoContent)
}

type setAutoGenerateRequest struct {
	AutoGenerate bool `json:"auto_generate"`
}

func (h *Handler) setAutoGenerate(c *gin.Context) {
	var req setAutoGenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errutil.BadRequest("invalid request body", errutil.WithErr(err)))
		return
	}

	if err := h.svc.SetAutoGenerate(c.Request.Context(), c.Param("id"), req.AutoGenerate); err != nil {
		c.Error(err)
		return
	}

	c.Status(http.StatusNoContent)
}

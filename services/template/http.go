package template

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
	v1.POST("/templates", h.create)
	v1.GET("/templates", h.list)
	v1.GET("/templates/:id", h.get)
	v1.PATCH("/templates/:id/active", h.setActive)
	v1.PATCH("/template-tasks/:id/active", h.setTaskActive)
}

func (h *Handler) create(c *gin.Context) {
	var req CreateTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errutil.BadRequest("invalid request body", errutil.WithErr(err)))
		return
	}

	tpl, err := h.svc.CreateTemplate(c.Request.Context(), req)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, tpl)
}

func (h *Handler) list(c *gin.Context) {
	activeOnly := c.Query("active") == "true"

	out, err := h.svc.ListTemplates(c.Request.Context(), activeOnly)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"templates": out})
}

func (h *Handler) get(c *gin.Context) {
	tpl, err := h.svc.GetTemplate(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, tpl)
}

type setActiveRequest struct {
	Active bool `json:"active"`
}

func (h *Handler) setActive(c *gin.Context) {
	var req setActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errutil.BadRequest("invalid request body", errutil.WithErr(err)))
		return
	}

	if err := h.svc.SetActive(c.Request.Context(), c.Param("id"), req.Active); err != nil {
		c.Error(err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) setTaskActive(c *gin.Context) {
	var req setActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errutil.BadRequest("invalid request body", errutil.WithErr(err)))
		return
	}

	if err := h.svc.SetTaskActive(c.Request.Context(), c.Param("id"), req.Active); err != nil {
		c.Error(err)
		return
	}

	c.Status(http.StatusNoContent)
}

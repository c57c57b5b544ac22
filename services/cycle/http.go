package cycle

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"firmops-backoffice/pkg/db/pagination"
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
	v1.POST("/generation/runs", h.runGeneration)
	v1.GET("/generation/runs/:id", h.getRun)
	v1.POST("/cycles", h.generateManual)
	v1.GET("/cycles", h.list)
	v1.GET("/cycles/:id", h.get)
	v1.POST("/cycles/:id/complete", h.complete)
	v1.POST("/cycles/:id/archive", h.archive)
}

type runGenerationRequest struct {
	RunDate     string `json:"run_date"` // YYYY-MM-DD, defaults to today
	TriggeredBy string `json:"triggered_by"`
}

func (h *Handler) runGeneration(c *gin.Context) {
	var req runGenerationRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.Error(errutil.BadRequest("invalid request body", errutil.WithErr(err)))
			return
		}
	}

	runDate := time.Now().UTC()
	if req.RunDate != "" {
		parsed, err := time.Parse("2006-01-02", req.RunDate)
		if err != nil {
			c.Error(errutil.BadRequest("run_date must be YYYY-MM-DD", errutil.WithErr(err)))
			return
		}
		runDate = parsed
	}

	triggeredBy := req.TriggeredBy
	if triggeredBy == "" {
		triggeredBy = "manual"
	}

	summary, err := h.svc.GenerateDueCycles(c.Request.Context(), runDate, triggeredBy)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

func (h *Handler) getRun(c *gin.Context) {
	run, err := h.svc.GetRun(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, run)
}

func (h *Handler) generateManual(c *gin.Context) {
	var req ManualRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errutil.BadRequest("invalid request body", errutil.WithErr(err)))
		return
	}
	req.TriggeredBy = c.GetHeader("X-Actor-ID")

	cycle, err := h.svc.GenerateCycle(c.Request.Context(), req)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, cycle)
}

func (h *Handler) list(c *gin.Context) {
	var page pagination.Pagination
	if err := c.ShouldBindQuery(&page); err != nil {
		c.Error(errutil.BadRequest("invalid pagination parameters", errutil.WithErr(err)))
		return
	}

	out, info, err := h.svc.ListCycles(c.Request.Context(), c.Query("client_id"), page)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"cycles": out, "page_info": info})
}

func (h *Handler) get(c *gin.Context) {
	cycle, err := h.svc.GetCycle(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, cycle)
}

func (h *Handler) complete(c *gin.Context) {
	cycle, err := h.svc.SetStatus(c.Request.Context(), c.Param("id"), CycleCompleted)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, cycle)
}

func (h *Handler) archive(c *gin.Context) {
	cycle, err := h.svc.SetStatus(c.Request.Context(), c.Param("id"), CycleArchived)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, cycle)
}

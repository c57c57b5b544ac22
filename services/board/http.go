package board

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"firmops-backoffice/pkg/errutil"
	"firmops-backoffice/services/checklist"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Register(r *gin.Engine) {
	v1 := r.Group("/v1")
	v1.GET("/board/tasks", h.listTasks)
	v1.GET("/board/groups", h.groupTasks)
	v1.POST("/board/filters", h.saveFilter)
	v1.GET("/board/filters", h.listFilters)
	v1.GET("/board/filters/:id", h.getFilter)
}

func filtersFromQuery(c *gin.Context) Filters {
	f := Filters{
		Scope:       Scope(c.DefaultQuery("scope", string(ScopeTeam))),
		AssignedTo:  c.Query("assigned_to"),
		ClientID:    c.Query("client_id"),
		IncludeDone: c.Query("include_done") == "true",
	}

	for _, s := range c.QueryArray("status") {
		f.Statuses = append(f.Statuses, checklist.TaskStatus(s))
	}
	if b := c.Query("bucket"); b != "" {
		bucket := checklist.UrgencyBucket(b)
		f.Bucket = &bucket
	}
	return f
}

func (h *Handler) listTasks(c *gin.Context) {
	views, err := h.svc.ListTasks(c.Request.Context(), filtersFromQuery(c))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"tasks": views})
}

func (h *Handler) groupTasks(c *gin.Context) {
	by := GroupBy(c.DefaultQuery("by", string(GroupByStatus)))

	groups, err := h.svc.GroupTasks(c.Request.Context(), filtersFromQuery(c), by)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"groups": groups})
}

type saveFilterRequest struct {
	Name    string  `json:"name"`
	Filters Filters `json:"filters"`
}

func (h *Handler) saveFilter(c *gin.Context) {
	var req saveFilterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errutil.BadRequest("invalid request body", errutil.WithErr(err)))
		return
	}

	sf, err := h.svc.SaveFilter(c.Request.Context(), c.GetHeader("X-Actor-ID"), req.Name, req.Filters)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, sf)
}

func (h *Handler) listFilters(c *gin.Context) {
	out, err := h.svc.ListFilters(c.Request.Context(), c.GetHeader("X-Actor-ID"))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"filters": out})
}

func (h *Handler) getFilter(c *gin.Context) {
	sf, filters, err := h.svc.GetFilter(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"filter": sf, "filters": filters})
}

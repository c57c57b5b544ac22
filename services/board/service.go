package board

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"firmops-backoffice/pkg/errutil"
	"firmops-backoffice/services/checklist"
	"firmops-backoffice/services/cycle"
)

type Service struct {
	db    *gorm.DB
	node  *snowflake.Node
	tasks *checklist.Service
}

type ServiceParams struct {
	fx.In
	DB    *gorm.DB
	Node  *snowflake.Node
	Tasks *checklist.Service
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:    p.DB,
		node:  p.Node,
		tasks: p.Tasks,
	}
}

// ListTasks is the board's read contract. Tasks of archived cycles are out
// of display scope; derived fields come from the state machine's own
// helpers, so the board and the guards never disagree.
func (s *Service) ListTasks(ctx context.Context, f Filters) ([]checklist.TaskView, error) {
	span := trace.SpanFromContext(ctx)
	defer span.End()

	now := f.Now
	if now.IsZero() {
		now = time.Now()
	}

	if f.Scope == ScopeMine && f.AssignedTo == "" {
		return nil, errutil.ValidationFailed("assigned_to is required for the mine scope")
	}

	q := s.db.WithContext(ctx).
		Model(&checklist.OperationTask{}).
		Joins("JOIN operation_cycles ON operation_cycles.id = operation_tasks.cycle_id").
		Where("operation_cycles.status <> ?", cycle.CycleArchived)

	if f.ClientID != "" {
		q = q.Where("operation_cycles.client_id = ?", f.ClientID)
	}
	if f.AssignedTo != "" {
		q = q.Where("operation_tasks.assigned_to = ?", f.AssignedTo)
	}
	if len(f.Statuses) > 0 {
		q = q.Where("operation_tasks.status IN ?", f.Statuses)
	} else if !f.IncludeDone {
		q = q.Where("operation_tasks.status <> ?", checklist.StatusDone)
	}

	var tasks []checklist.OperationTask
	if err := q.Select("operation_tasks.*").
		Order("operation_tasks.cycle_id, operation_tasks.position").
		Find(&tasks).Error; err != nil {
		return nil, errutil.Internal("failed to list tasks", errutil.WithErr(err))
	}

	views, err := s.tasks.Views(ctx, tasks, now)
	if err != nil {
		return nil, err
	}

	if f.Bucket != nil {
		filtered := views[:0]
		for _, v := range views {
			if v.Urgency == *f.Bucket {
				filtered = append(filtered, v)
			}
		}
		views = filtered
	}

	if f.Scope == ScopeMine {
		sortMine(views, now)
	}

	return views, nil
}

// GroupTasks renders board columns grouped by status, client, or assignee.
func (s *Service) GroupTasks(ctx context.Context, f Filters, by GroupBy) ([]Group, error) {
	switch by {
	case GroupByStatus, GroupByClient, GroupByAssignee:
	default:
		return nil, errutil.ValidationFailed("group key must be status, client, or assignee")
	}

	views, err := s.ListTasks(ctx, f)
	if err != nil {
		return nil, err
	}

	clients, err := s.clientsByCycle(ctx, views)
	if err != nil {
		return nil, err
	}

	return groupTasks(views, by, func(v checklist.TaskView) string {
		return clients[v.CycleID]
	}), nil
}

func (s *Service) clientsByCycle(ctx context.Context, views []checklist.TaskView) (map[string]string, error) {
	ids := make([]string, 0, len(views))
	seen := make(map[string]bool, len(views))
	for _, v := range views {
		if !seen[v.CycleID] {
			seen[v.CycleID] = true
			ids = append(ids, v.CycleID)
		}
	}

	out := make(map[string]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	var cycles []cycle.OperationCycle
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&cycles).Error; err != nil {
		return nil, errutil.Internal("failed to load cycles", errutil.WithErr(err))
	}
	for _, c := range cycles {
		out[c.ID] = c.ClientID
	}
	return out, nil
}

// SaveFilter stores a named filter snapshot verbatim.
func (s *Service) SaveFilter(ctx context.Context, owner, name string, f Filters) (*SavedFilter, error) {
	if owner == "" || name == "" {
		return nil, errutil.ValidationFailed("owner and name are required")
	}

	snapshot, err := json.Marshal(f)
	if err != nil {
		return nil, errutil.Internal("failed to encode filter", errutil.WithErr(err))
	}

	sf := &SavedFilter{
		ID:       s.node.Generate().String(),
		Owner:    owner,
		Name:     name,
		Snapshot: datatypes.JSON(snapshot),
	}
	if err := s.db.WithContext(ctx).Create(sf).Error; err != nil {
		return nil, errutil.Internal("failed to save filter", errutil.WithErr(err))
	}
	return sf, nil
}

// GetFilter returns the saved filter and the exact filter values it was
// given.
func (s *Service) GetFilter(ctx context.Context, id string) (*SavedFilter, *Filters, error) {
	var sf SavedFilter
	err := s.db.WithContext(ctx).First(&sf, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, errutil.NotFound("saved filter not found")
	}
	if err != nil {
		return nil, nil, errutil.Internal("failed to load saved filter", errutil.WithErr(err))
	}

	var f Filters
	if err := json.Unmarshal(sf.Snapshot, &f); err != nil {
		return nil, nil, errutil.Internal("failed to decode filter snapshot", errutil.WithErr(err))
	}
	return &sf, &f, nil
}

func (s *Service) ListFilters(ctx context.Context, owner string) ([]SavedFilter, error) {
	var out []SavedFilter
	if err := s.db.WithContext(ctx).
		Where("owner = ?", owner).
		Order("name asc").
		Find(&out).Error; err != nil {
		return nil, errutil.Internal("failed to list saved filters", errutil.WithErr(err))
	}
	return out, nil
}

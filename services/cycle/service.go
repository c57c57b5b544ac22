package cycle

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"firmops-backoffice/pkg/config"
	"firmops-backoffice/pkg/db/pagination"
	"firmops-backoffice/pkg/errutil"
	"firmops-backoffice/services/assignment"
	"firmops-backoffice/services/checklist"
	"firmops-backoffice/services/template"
)

const (
	ReasonInvalidPeriod = "invalid_period"
	ReasonNotEligible   = "assignment_not_eligible"
)

type Service struct {
	db          *gorm.DB
	node        *snowflake.Node
	config      *config.Config
	assignments *assignment.Service
}

type ServiceParams struct {
	fx.In
	DB          *gorm.DB
	Node        *snowflake.Node
	Config      *config.Config
	Assignments *assignment.Service
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:          p.DB,
		node:        p.Node,
		config:      p.Config,
		assignments: p.Assignments,
	}
}

// GenerateDueCycles visits every active auto-generate assignment and creates
// the cycle for the period containing runDate unless one already exists.
// Re-running for the same date never duplicates a cycle, and one bad
// assignment never aborts the rest of the batch.
func (s *Service) GenerateDueCycles(ctx context.Context, runDate time.Time, triggeredBy string) (*RunSummary, error) {
	span := trace.SpanFromContext(ctx)
	defer span.End()

	startedAt := time.Now()

	eligible, err := s.assignments.ListEligible(ctx)
	if err != nil {
		return nil, err
	}

	summary := &RunSummary{Errors: make([]RunError, 0)}
	var mu sync.Mutex

	workers := s.config.Checklist.GeneratorWorkers
	if workers <= 0 {
		workers = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for _, a := range eligible {
		a := a
		g.Go(func() error {
			created, genErr := s.generateForAssignment(gctx, &a, runDate, triggeredBy)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case genErr != nil:
				summary.Errors = append(summary.Errors, toRunError(&a, genErr))
				zap.L().Error("generation failed for assignment",
					zap.String("assignment_id", a.ID),
					zap.String("client_id", a.ClientID),
					zap.Error(genErr),
				)
			case created:
				summary.GeneratedCount++
			default:
				summary.SkippedCount++
			}
			// Failures are isolated per assignment.
			return nil
		})
	}
	_ = g.Wait()

	run := &GenerationRun{
		ID:             s.node.Generate().String(),
		RunDate:        runDate,
		TriggeredBy:    triggeredBy,
		Status:         "success",
		GeneratedCount: summary.GeneratedCount,
		SkippedCount:   summary.SkippedCount,
		StartedAt:      startedAt,
	}
	if len(summary.Errors) > 0 {
		run.Status = "partial_failure"
		if payload, err := json.Marshal(summary.Errors); err == nil {
			run.Errors = datatypes.JSON(payload)
		}
	}
	completedAt := time.Now()
	run.CompletedAt = &completedAt

	if err := s.db.WithContext(ctx).Create(run).Error; err != nil {
		zap.L().Error("failed to persist generation run", zap.Error(err))
	}
	summary.RunID = run.ID

	return summary, nil
}

func (s *Service) generateForAssignment(ctx context.Context, a *assignment.ClientOperationAssignment, runDate time.Time, triggeredBy string) (bool, error) {
	tpl, err := s.loadTemplate(ctx, a.TemplateID)
	if err != nil {
		return false, err
	}
	if !tpl.Active {
		return false, errutil.UnprocessableEntity("template is inactive", errutil.WithReason(ReasonNotEligible))
	}

	rec := ResolveRecurrence(tpl.Recurrence, s.config.Checklist.DefaultRecurrence)
	period := rec.PeriodFor(runDate)

	created := false
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Check-and-create inside one transaction, backed by the partial
		// unique (assignment_id, period_start) index on generator rows,
		// keeps two overlapping runs from both inserting.
		var exist OperationCycle
		err := tx.Where("assignment_id = ? AND period_start = ?", a.ID, period.Start).First(&exist).Error
		if err == nil {
			return nil // already covered for this period
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return errutil.Internal("failed to check existing cycle", errutil.WithErr(err))
		}

		if _, err := s.instantiate(tx, a, tpl, period, SourceGenerator, triggeredBy); err != nil {
			return err
		}
		created = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return created, nil
}

// ManualRequest creates a cycle with explicit period bounds, bypassing the
// generator's due and already-exists checks but not the instantiation rules.
// Staff may deliberately create an extra or backdated cycle for a period the
// generator already covered.
type ManualRequest struct {
	ClientID    string    `json:"client_id"`
	TemplateID  string    `json:"template_id"`
	PeriodStart time.Time `json:"period_start"`
	PeriodEnd   time.Time `json:"period_end"`
	TriggeredBy string    `json:"-"`
}

func (s *Service) GenerateCycle(ctx context.Context, req ManualRequest) (*OperationCycle, error) {
	span := trace.SpanFromContext(ctx)
	defer span.End()

	if req.PeriodEnd.Before(req.PeriodStart) {
		return nil, errutil.BadRequest("period_end must not precede period_start",
			errutil.WithReason(ReasonInvalidPeriod))
	}

	a, err := s.assignments.Find(ctx, req.ClientID, req.TemplateID)
	if err != nil {
		return nil, err
	}
	if a.Status == assignment.StatusPaused {
		return nil, errutil.UnprocessableEntity("assignment is paused",
			errutil.WithReason(ReasonNotEligible))
	}

	tpl, err := s.loadTemplate(ctx, a.TemplateID)
	if err != nil {
		return nil, err
	}

	rec := ResolveRecurrence(tpl.Recurrence, s.config.Checklist.DefaultRecurrence)
	period := Period{
		Start: req.PeriodStart,
		End:   req.PeriodEnd,
		Label: manualLabel(rec, req.PeriodStart, req.PeriodEnd),
	}

	var out *OperationCycle
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		out, err = s.instantiate(tx, a, tpl, period, SourceManual, req.TriggeredBy)
		return err
	})
	if err != nil {
		return nil, err
	}

	zap.L().Info("manual cycle generated",
		zap.String("cycle_id", out.ID),
		zap.String("client_id", a.ClientID),
		zap.String("label", out.Label),
	)

	return out, nil
}

// instantiate creates the cycle and one task per active blueprint, remapping
// blueprint prerequisite ids onto the freshly created sibling tasks.
func (s *Service) instantiate(tx *gorm.DB, a *assignment.ClientOperationAssignment, tpl *template.OperationTemplate, period Period, source CycleSource, generatedBy string) (*OperationCycle, error) {
	blueprints := tpl.ActiveTasks()
	if len(blueprints) == 0 {
		return nil, errutil.UnprocessableEntity("template has no active tasks",
			errutil.WithReason(ReasonNotEligible))
	}

	if err := template.ValidateGraph(blueprints); err != nil {
		return nil, err
	}

	cycle := &OperationCycle{
		ID:           s.node.Generate().String(),
		AssignmentID: a.ID,
		ClientID:     a.ClientID,
		TemplateID:   tpl.ID,
		Label:        period.Label,
		PeriodStart:  period.Start,
		PeriodEnd:    period.End,
		Status:       CycleActive,
		Source:       source,
		GeneratedBy:  generatedBy,
	}
	if err := tx.Create(cycle).Error; err != nil {
		return nil, errutil.Internal("failed to create cycle", errutil.WithErr(err))
	}

	taskIDs := make(map[string]string, len(blueprints)) // blueprint id -> task id
	for _, bp := range blueprints {
		taskIDs[bp.ID] = s.node.Generate().String()
	}

	for _, bp := range blueprints {
		bp := bp
		task := &checklist.OperationTask{
			ID:               taskIDs[bp.ID],
			CycleID:          cycle.ID,
			TemplateTaskID:   &bp.ID,
			Title:            bp.Title,
			Description:      bp.Description,
			Position:         bp.Position,
			Status:           checklist.StatusNotStarted,
			EvidenceRequired: bp.EvidenceRequired,
		}
		if err := tx.Create(task).Error; err != nil {
			return nil, errutil.Internal("failed to create task", errutil.WithErr(err))
		}

		for _, prereqID := range bp.PrerequisiteIDs() {
			// Links to inactive blueprints are dropped with the blueprint.
			mapped, ok := taskIDs[prereqID]
			if !ok {
				continue
			}
			link := &checklist.OperationTaskPrerequisite{
				TaskID:         taskIDs[bp.ID],
				PrerequisiteID: mapped,
			}
			if err := tx.Create(link).Error; err != nil {
				return nil, errutil.Internal("failed to create prerequisite link", errutil.WithErr(err))
			}
		}
	}

	return cycle, nil
}

func (s *Service) loadTemplate(ctx context.Context, templateID string) (*template.OperationTemplate, error) {
	var tpl template.OperationTemplate
	err := s.db.WithContext(ctx).
		Preload("Tasks.Prerequisites").
		Preload("Tasks").
		First(&tpl, "id = ?", templateID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errutil.UnprocessableEntity("template not found",
			errutil.WithReason(ReasonNotEligible))
	}
	if err != nil {
		return nil, errutil.Internal("failed to load template", errutil.WithErr(err))
	}
	return &tpl, nil
}

func (s *Service) GetCycle(ctx context.Context, id string) (*OperationCycle, error) {
	var c OperationCycle
	err := s.db.WithContext(ctx).First(&c, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errutil.NotFound("cycle not found")
	}
	if err != nil {
		return nil, errutil.Internal("failed to load cycle", errutil.WithErr(err))
	}
	return &c, nil
}

func (s *Service) ListCycles(ctx context.Context, clientID string, page pagination.Pagination) ([]OperationCycle, *pagination.PageInfo, error) {
	limit := page.Limit
	if limit <= 0 {
		limit = 25
	}

	q := s.db.WithContext(ctx).
		Order("created_at desc, id desc").
		Limit(limit + 1)
	if clientID != "" {
		q = q.Where("client_id = ?", clientID)
	}
	if page.Cursor != "" {
		cur, err := pagination.DecodeCursor(page.Cursor)
		if err != nil {
			return nil, nil, errutil.BadRequest("invalid cursor", errutil.WithErr(err))
		}
		ts, err := time.Parse(time.RFC3339Nano, cur.CreatedAt)
		if err != nil {
			return nil, nil, errutil.BadRequest("invalid cursor", errutil.WithErr(err))
		}
		q = q.Where("(created_at, id) < (?, ?)", ts, cur.ID)
	}

	var out []OperationCycle
	if err := q.Find(&out).Error; err != nil {
		return nil, nil, errutil.Internal("failed to list cycles", errutil.WithErr(err))
	}

	data, info, err := pagination.BuildPageInfo(out, limit, func(c OperationCycle) pagination.Cursor {
		return pagination.Cursor{CreatedAt: c.CreatedAt.UTC().Format(time.RFC3339Nano), ID: c.ID}
	})
	if err != nil {
		return nil, nil, errutil.Internal("failed to encode cursor", errutil.WithErr(err))
	}
	return data, info, nil
}

// SetStatus moves a cycle through active -> completed -> archived. Archiving
// only hides the cycle's tasks from board scope; tasks are never deleted.
func (s *Service) SetStatus(ctx context.Context, id string, status CycleStatus) (*OperationCycle, error) {
	c, err := s.GetCycle(ctx, id)
	if err != nil {
		return nil, err
	}

	valid := (c.Status == CycleActive && status == CycleCompleted) ||
		(c.Status != CycleArchived && status == CycleArchived)
	if !valid {
		return nil, errutil.UnprocessableEntity("invalid cycle status change")
	}

	if err := s.db.WithContext(ctx).Model(c).Update("status", status).Error; err != nil {
		return nil, errutil.Internal("failed to update cycle", errutil.WithErr(err))
	}
	c.Status = status
	return c, nil
}

func (s *Service) GetRun(ctx context.Context, id string) (*GenerationRun, error) {
	var run GenerationRun
	err := s.db.WithContext(ctx).First(&run, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errutil.NotFound("generation run not found")
	}
	if err != nil {
		return nil, errutil.Internal("failed to load generation run", errutil.WithErr(err))
	}
	return &run, nil
}

func toRunError(a *assignment.ClientOperationAssignment, err error) RunError {
	re := RunError{
		AssignmentID: a.ID,
		ClientID:     a.ClientID,
		TemplateID:   a.TemplateID,
		Reason:       "internal_error",
		Message:      err.Error(),
	}

	var base errutil.BaseError
	if errors.As(err, &base) {
		if base.Reason != "" {
			re.Reason = base.Reason
		}
		re.Message = base.Message
	}
	return re
}

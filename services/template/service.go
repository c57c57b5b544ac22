package template

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"firmops-backoffice/pkg/config"
	"firmops-backoffice/pkg/errutil"
)

type Service struct {
	db     *gorm.DB
	node   *snowflake.Node
	config *config.Config
}

type ServiceParams struct {
	fx.In
	DB     *gorm.DB
	Node   *snowflake.Node
	Config *config.Config
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:     p.DB,
		node:   p.Node,
		config: p.Config,
	}
}

type TaskInput struct {
	Title            string `json:"title"`
	Description      string `json:"description"`
	EvidenceRequired bool   `json:"evidence_required"`
	// Prerequisites are zero-based indexes into the request's task list.
	Prerequisites []int `json:"prerequisites"`
}

type CreateTemplateRequest struct {
	Code        string      `json:"code"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Recurrence  string      `json:"recurrence"`
	Tasks       []TaskInput `json:"tasks"`
}

func (s *Service) CreateTemplate(ctx context.Context, req CreateTemplateRequest) (*OperationTemplate, error) {
	span := trace.SpanFromContext(ctx)
	defer span.End()

	if req.Name == "" {
		return nil, errutil.ValidationFailed("template name is required")
	}
	if len(req.Tasks) == 0 {
		return nil, errutil.ValidationFailed("template needs at least one task")
	}

	code := req.Code
	if code == "" {
		code = slug.Make(req.Name)
	}

	recurrence := req.Recurrence
	if recurrence == "" {
		recurrence = s.config.Checklist.DefaultRecurrence
	}

	var exist OperationTemplate
	err := s.db.WithContext(ctx).Where("code = ?", code).First(&exist).Error
	if err == nil {
		return nil, errutil.Conflict(fmt.Sprintf("template %q already exists", code))
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errutil.Internal("failed to check existing template", errutil.WithErr(err))
	}

	tpl := &OperationTemplate{
		ID:          s.node.Generate().String(),
		Code:        code,
		Name:        req.Name,
		Description: req.Description,
		Recurrence:  recurrence,
		Active:      true,
	}

	tasks := make([]TemplateTask, 0, len(req.Tasks))
	for i, in := range req.Tasks {
		if in.Title == "" {
			return nil, errutil.ValidationFailed(fmt.Sprintf("task %d is missing a title", i))
		}
		tasks = append(tasks, TemplateTask{
			ID:               s.node.Generate().String(),
			TemplateID:       tpl.ID,
			Title:            in.Title,
			Description:      in.Description,
			Position:         i + 1,
			EvidenceRequired: in.EvidenceRequired,
			Active:           true,
		})
	}

	for i, in := range req.Tasks {
		for _, ref := range in.Prerequisites {
			if ref < 0 || ref >= len(tasks) {
				return nil, errutil.ValidationFailed(
					fmt.Sprintf("task %d references an unknown prerequisite index %d", i, ref))
			}
			tasks[i].Prerequisites = append(tasks[i].Prerequisites, TemplateTaskPrerequisite{
				TaskID:         tasks[i].ID,
				PrerequisiteID: tasks[ref].ID,
			})
		}
	}

	if err := ValidateGraph(tasks); err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(tpl).Error; err != nil {
			return err
		}
		for i := range tasks {
			if err := tx.Create(&tasks[i]).Error; err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		zap.L().Error("failed to create template", zap.String("code", code), zap.Error(err))
		return nil, errutil.Internal("failed to create template", errutil.WithErr(err))
	}

	tpl.Tasks = tasks

	zap.L().Info("template created",
		zap.String("template_id", tpl.ID),
		zap.String("code", tpl.Code),
		zap.Int("tasks", len(tasks)),
	)

	return tpl, nil
}

// GetTemplate loads a template with its blueprints and prerequisite links.
func (s *Service) GetTemplate(ctx context.Context, id string) (*OperationTemplate, error) {
	var tpl OperationTemplate
	err := s.db.WithContext(ctx).
		Preload("Tasks.Prerequisites").
		Preload("Tasks").
		First(&tpl, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errutil.NotFound("template not found")
	}
	if err != nil {
		return nil, errutil.Internal("failed to load template", errutil.WithErr(err))
	}
	return &tpl, nil
}

func (s *Service) ListTemplates(ctx context.Context, activeOnly bool) ([]OperationTemplate, error) {
	q := s.db.WithContext(ctx).Preload("Tasks.Prerequisites").Preload("Tasks")
	if activeOnly {
		q = q.Where("active = ?", true)
	}

	var out []OperationTemplate
	if err := q.Order("name asc").Find(&out).Error; err != nil {
		return nil, errutil.Internal("failed to list templates", errutil.WithErr(err))
	}
	return out, nil
}

func (s *Service) SetActive(ctx context.Context, id string, active bool) error {
	res := s.db.WithContext(ctx).Model(&OperationTemplate{}).Where("id = ?", id).Update("active", active)
	if res.Error != nil {
		return errutil.Internal("failed to update template", errutil.WithErr(res.Error))
	}
	if res.RowsAffected == 0 {
		return errutil.NotFound("template not found")
	}
	return nil
}

// SetTaskActive soft-disables a blueprint; inactive blueprints are skipped at
// generation time but stay referenced by already-generated tasks.
func (s *Service) SetTaskActive(ctx context.Context, taskID string, active bool) error {
	res := s.db.WithContext(ctx).Model(&TemplateTask{}).Where("id = ?", taskID).Update("active", active)
	if res.Error != nil {
		return errutil.Internal("failed to update template task", errutil.WithErr(res.Error))
	}
	if res.RowsAffected == 0 {
		return errutil.NotFound("template task not found")
	}
	return nil
}

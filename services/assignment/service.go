package assignment

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"firmops-backoffice/pkg/errutil"
	"firmops-backoffice/services/template"
)

type Service struct {
	db   *gorm.DB
	node *snowflake.Node
}

type ServiceParams struct {
	fx.In
	DB   *gorm.DB
	Node *snowflake.Node
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:   p.DB,
		node: p.Node,
	}
}

func (s *Service) Assign(ctx context.Context, clientID, templateID string) (*ClientOperationAssignment, error) {
	span := trace.SpanFromContext(ctx)
	defer span.End()

	if clientID == "" || templateID == "" {
		return nil, errutil.ValidationFailed("client_id and template_id are required")
	}

	var tpl template.OperationTemplate
	err := s.db.WithContext(ctx).First(&tpl, "id = ?", templateID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errutil.NotFound("template not found")
	}
	if err != nil {
		return nil, errutil.Internal("failed to load template", errutil.WithErr(err))
	}
	if !tpl.Active {
		return nil, errutil.UnprocessableEntity("template is inactive")
	}

	var exist ClientOperationAssignment
	err = s.db.WithContext(ctx).
		Where("client_id = ? AND template_id = ?", clientID, templateID).
		First(&exist).Error
	if err == nil {
		return nil, errutil.Conflict("client is already assigned to this template")
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errutil.Internal("failed to check existing assignment", errutil.WithErr(err))
	}

	a := &ClientOperationAssignment{
		ID:           s.node.Generate().String(),
		ClientID:     clientID,
		TemplateID:   templateID,
		Status:       StatusActive,
		AutoGenerate: true,
	}

	if err := s.db.WithContext(ctx).Create(a).Error; err != nil {
		zap.L().Error("failed to create assignment",
			zap.String("client_id", clientID),
			zap.String("template_id", templateID),
			zap.Error(err),
		)
		return nil, errutil.Internal("failed to create assignment", errutil.WithErr(err))
	}

	zap.L().Info("assignment created",
		zap.String("assignment_id", a.ID),
		zap.String("client_id", clientID),
		zap.String("template_id", templateID),
	)

	return a, nil
}

func (s *Service) Get(ctx context.Context, id string) (*ClientOperationAssignment, error) {
	var a ClientOperationAssignment
	err := s.db.WithContext(ctx).First(&a, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errutil.NotFound("assignment not found")
	}
	if err != nil {
		return nil, errutil.Internal("failed to load assignment", errutil.WithErr(err))
	}
	return &a, nil
}

// Find resolves the assignment for one (client, template) pair.
func (s *Service) Find(ctx context.Context, clientID, templateID string) (*ClientOperationAssignment, error) {
	var a ClientOperationAssignment
	err := s.db.WithContext(ctx).
		Where("client_id = ? AND template_id = ?", clientID, templateID).
		First(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errutil.NotFound("assignment not found")
	}
	if err != nil {
		return nil, errutil.Internal("failed to load assignment", errutil.WithErr(err))
	}
	return &a, nil
}

func (s *Service) ListByClient(ctx context.Context, clientID string) ([]ClientOperationAssignment, error) {
	var out []ClientOperationAssignment
	if err := s.db.WithContext(ctx).
		Where("client_id = ?", clientID).
		Order("created_at asc").
		Find(&out).Error; err != nil {
		return nil, errutil.Internal("failed to list assignments", errutil.WithErr(err))
	}
	return out, nil
}

// ListEligible returns the assignments the recurring generator should visit:
// active with auto-generate on.
func (s *Service) ListEligible(ctx context.Context) ([]ClientOperationAssignment, error) {
	var out []ClientOperationAssignment
	if err := s.db.WithContext(ctx).
		Where("status = ? AND auto_generate = ?", StatusActive, true).
		Order("created_at asc").
		Find(&out).Error; err != nil {
		return nil, errutil.Internal("failed to list eligible assignments", errutil.WithErr(err))
	}
	return out, nil
}

func (s *Service) SetStatus(ctx context.Context, id string, status AssignmentStatus) error {
	if status != StatusActive && status != StatusPaused {
		return errutil.ValidationFailed("status must be active or paused")
	}

	res := s.db.WithContext(ctx).Model(&ClientOperationAssignment{}).Where("id = ?", id).Update("status", status)
	if res.Error != nil {
		return errutil.Internal("failed to update assignment", errutil.WithErr(res.Error))
	}
	if res.RowsAffected == 0 {
		return errutil.NotFound("assignment not found")
	}
	return nil
}

func (s *Service) SetAutoGenerate(ctx context.Context, id string, on bool) error {
	res := s.db.WithContext(ctx).Model(&ClientOperationAssignment{}).Where("id = ?", id).Update("auto_generate", on)
	if res.Error != nil {
		return errutil.Internal("failed to update assignment", errutil.WithErr(res.Error))
	}
	if res.RowsAffected == 0 {
		return errutil.NotFound("assignment not found")
	}
	return nil
}

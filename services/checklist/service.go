package checklist

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"firmops-backoffice/pkg/errutil"
)

const (
	ReasonPrerequisitesUnmet = "prerequisites_unmet"
	ReasonEvidenceRequired   = "evidence_required"
)

// allowedTransitions is the closed edge set of the task state machine.
// done has no outgoing edge here; leaving done goes through Reopen only.
var allowedTransitions = map[TaskStatus][]TaskStatus{
	StatusNotStarted: {StatusInProgress, StatusBlocked, StatusDone},
	StatusInProgress: {StatusDone, StatusBlocked},
	StatusBlocked:    {StatusNotStarted, StatusInProgress},
	StatusDone:       {},
}

type Service struct {
	db  *gorm.DB
	now func() time.Time
}

type ServiceParams struct {
	fx.In
	DB *gorm.DB
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:  p.DB,
		now: time.Now,
	}
}

// Patch carries the field changes of one update request. Nil pointers leave
// the field untouched; the Clear flags null out nullable fields.
type Patch struct {
	Status         *TaskStatus `json:"status"`
	AssignedTo     *string     `json:"assigned_to"`
	ClearAssignee  bool        `json:"clear_assignee"`
	Notes          *string     `json:"notes"`
	EvidenceNote   *string     `json:"evidence_note"`
	DueAt          *time.Time  `json:"due_at"`
	ClearDueAt     bool        `json:"clear_due_at"`
	TimeEntryID    *string     `json:"time_entry_id"`
	ClearTimeEntry bool        `json:"clear_time_entry"`
	Actor          string      `json:"-"`
}

// Update applies a patch atomically. Status changes are guarded against the
// task's current persisted state inside the transaction, never against a
// client-supplied snapshot; any guard violation leaves the row untouched.
func (s *Service) Update(ctx context.Context, taskID string, patch Patch) (*TaskView, error) {
	span := trace.SpanFromContext(ctx)
	defer span.End()

	var updated OperationTask

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		task, err := s.loadTask(tx, taskID)
		if err != nil {
			return err
		}

		// Unguarded field edits are allowed at any status.
		if patch.AssignedTo != nil {
			task.AssignedTo = patch.AssignedTo
		}
		if patch.ClearAssignee {
			task.AssignedTo = nil
		}
		if patch.Notes != nil {
			task.Notes = *patch.Notes
		}
		if patch.EvidenceNote != nil {
			task.EvidenceNote = *patch.EvidenceNote
		}
		if patch.DueAt != nil {
			task.DueAt = patch.DueAt
		}
		if patch.ClearDueAt {
			task.DueAt = nil
		}
		if patch.TimeEntryID != nil {
			task.TimeEntryID = patch.TimeEntryID
		}
		if patch.ClearTimeEntry {
			task.TimeEntryID = nil
		}

		if patch.Status != nil && *patch.Status != task.Status {
			if err := s.transition(tx, task, *patch.Status, patch.Actor); err != nil {
				return err
			}
		}

		if err := tx.Save(task).Error; err != nil {
			return errutil.Internal("failed to persist task", errutil.WithErr(err))
		}

		updated = *task
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.view(ctx, &updated)
}

// Complete marks the task done, optionally supplying the evidence note in the
// same request. Both transition gates still apply.
func (s *Service) Complete(ctx context.Context, taskID, evidenceNote, actor string) (*TaskView, error) {
	done := StatusDone
	patch := Patch{Status: &done, Actor: actor}
	if evidenceNote != "" {
		patch.EvidenceNote = &evidenceNote
	}
	return s.Update(ctx, taskID, patch)
}

// Reopen transitions done back to not_started, clearing completion metadata
// while preserving evidence and notes. It does not consult prerequisites:
// reopening never needs downstream state.
func (s *Service) Reopen(ctx context.Context, taskID, actor string) (*TaskView, error) {
	var updated OperationTask

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		task, err := s.loadTask(tx, taskID)
		if err != nil {
			return err
		}

		if task.Status != StatusDone {
			return errutil.UnprocessableEntity("only done tasks can be reopened")
		}

		task.Status = StatusNotStarted
		task.CompletedAt = nil
		task.CompletedBy = nil

		if err := tx.Save(task).Error; err != nil {
			return errutil.Internal("failed to persist task", errutil.WithErr(err))
		}

		updated = *task
		return nil
	})
	if err != nil {
		return nil, err
	}

	zap.L().Info("task reopened", zap.String("task_id", taskID), zap.String("actor", actor))

	return s.view(ctx, &updated)
}

func (s *Service) Get(ctx context.Context, taskID string) (*TaskView, error) {
	task, err := s.loadTask(s.db.WithContext(ctx), taskID)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, task)
}

// ClearTimeEntryLinks nulls the weak reference on every task pointing at a
// deleted time entry. Tasks themselves are never deleted here.
func (s *Service) ClearTimeEntryLinks(ctx context.Context, timeEntryID string) (int64, error) {
	res := s.db.WithContext(ctx).
		Model(&OperationTask{}).
		Where("time_entry_id = ?", timeEntryID).
		Update("time_entry_id", nil)
	if res.Error != nil {
		return 0, errutil.Internal("failed to clear time entry links", errutil.WithErr(res.Error))
	}
	return res.RowsAffected, nil
}

func (s *Service) transition(tx *gorm.DB, task *OperationTask, to TaskStatus, actor string) error {
	if !transitionAllowed(task.Status, to) {
		return errutil.UnprocessableEntity(
			fmt.Sprintf("cannot move task from %s to %s", task.Status, to))
	}

	if to == StatusInProgress || to == StatusDone {
		unmet, err := s.unmetFor(tx, task)
		if err != nil {
			return err
		}
		if len(unmet) > 0 {
			details := make([]errutil.Detail, 0, len(unmet))
			titles := make([]string, 0, len(unmet))
			for _, ref := range unmet {
				details = append(details, errutil.Detail{Field: ref.ID, Message: ref.Title})
				titles = append(titles, ref.Title)
			}
			return errutil.UnprocessableEntity(
				fmt.Sprintf("waiting on: %s", strings.Join(titles, ", ")),
				errutil.WithReason(ReasonPrerequisitesUnmet),
				errutil.WithDetails(details...),
			)
		}
	}

	if to == StatusDone && task.EvidenceRequired && strings.TrimSpace(task.EvidenceNote) == "" {
		return errutil.UnprocessableEntity(
			"a completion note is required for this task",
			errutil.WithReason(ReasonEvidenceRequired),
		)
	}

	now := s.now().UTC()
	switch to {
	case StatusInProgress:
		if task.StartedAt == nil {
			task.StartedAt = &now
		}
	case StatusDone:
		task.CompletedAt = &now
		if actor != "" {
			task.CompletedBy = &actor
		}
	}

	task.Status = to
	return nil
}

func transitionAllowed(from, to TaskStatus) bool {
	for _, t := range allowedTransitions[from] {
		if t == to {
			return true
		}
	}
	return false
}

func (s *Service) loadTask(tx *gorm.DB, taskID string) (*OperationTask, error) {
	var task OperationTask
	err := tx.First(&task, "id = ?", taskID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errutil.NotFound("task not found")
	}
	if err != nil {
		return nil, errutil.Internal("failed to load task", errutil.WithErr(err))
	}
	return &task, nil
}

func (s *Service) unmetFor(tx *gorm.DB, task *OperationTask) ([]PrerequisiteRef, error) {
	var links []OperationTaskPrerequisite
	if err := tx.Where("task_id = ?", task.ID).Find(&links).Error; err != nil {
		return nil, errutil.Internal("failed to load prerequisites", errutil.WithErr(err))
	}
	if len(links) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(links))
	for _, l := range links {
		ids = append(ids, l.PrerequisiteID)
	}

	var prereqs []OperationTask
	if err := tx.Where("id IN ?", ids).Find(&prereqs).Error; err != nil {
		return nil, errutil.Internal("failed to load prerequisites", errutil.WithErr(err))
	}

	siblings := make(map[string]*OperationTask, len(prereqs))
	for i := range prereqs {
		siblings[prereqs[i].ID] = &prereqs[i]
	}

	return UnmetPrerequisites(ids, siblings), nil
}

func (s *Service) view(ctx context.Context, task *OperationTask) (*TaskView, error) {
	views, err := s.Views(ctx, []OperationTask{*task}, s.now())
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// Views decorates tasks with their derived fields in one batch. The board
// layer calls this too, so guards and display can never disagree about
// whether a task is blocked.
func (s *Service) Views(ctx context.Context, tasks []OperationTask, now time.Time) ([]TaskView, error) {
	ids := make([]string, 0, len(tasks))
	for _, t := range tasks {
		ids = append(ids, t.ID)
	}

	linksByTask := make(map[string][]string)
	prereqIDs := make([]string, 0)
	if len(ids) > 0 {
		var links []OperationTaskPrerequisite
		if err := s.db.WithContext(ctx).Where("task_id IN ?", ids).Find(&links).Error; err != nil {
			return nil, errutil.Internal("failed to load prerequisites", errutil.WithErr(err))
		}
		for _, l := range links {
			linksByTask[l.TaskID] = append(linksByTask[l.TaskID], l.PrerequisiteID)
			prereqIDs = append(prereqIDs, l.PrerequisiteID)
		}
	}

	siblings := make(map[string]*OperationTask)
	if len(prereqIDs) > 0 {
		var prereqs []OperationTask
		if err := s.db.WithContext(ctx).Where("id IN ?", prereqIDs).Find(&prereqs).Error; err != nil {
			return nil, errutil.Internal("failed to load prerequisites", errutil.WithErr(err))
		}
		for i := range prereqs {
			siblings[prereqs[i].ID] = &prereqs[i]
		}
	}

	views := make([]TaskView, 0, len(tasks))
	for _, t := range tasks {
		views = append(views, TaskView{
			OperationTask:      t,
			UnmetPrerequisites: UnmetPrerequisites(linksByTask[t.ID], siblings),
			Urgency:            BucketFor(t.DueAt, now),
		})
	}
	return views, nil
}

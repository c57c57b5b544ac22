package checklist

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"firmops-backoffice/pkg/errutil"
	"firmops-backoffice/services/testutil"
)

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()

	db := testutil.NewTestDB(t, &OperationTask{}, &OperationTaskPrerequisite{})
	svc := NewService(ServiceParams{DB: db})
	return svc, db
}

func seedTask(t *testing.T, db *gorm.DB, task OperationTask) OperationTask {
	t.Helper()
	if task.CycleID == "" {
		task.CycleID = "cycle-1"
	}
	if task.Status == "" {
		task.Status = StatusNotStarted
	}
	require.NoError(t, db.Create(&task).Error)
	return task
}

func statusPtr(s TaskStatus) *TaskStatus { return &s }

func strPtr(s string) *string { return &s }

func TestUpdate_PrerequisiteGate(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	reconcile := seedTask(t, db, OperationTask{ID: "t-reconcile", Title: "Reconcile bank", Position: 1})
	review := seedTask(t, db, OperationTask{ID: "t-review", Title: "Review journals", Position: 2})
	signOff := seedTask(t, db, OperationTask{ID: "t-signoff", Title: "Sign off", Position: 3})
	for _, pre := range []string{reconcile.ID, review.ID} {
		require.NoError(t, db.Create(&OperationTaskPrerequisite{TaskID: signOff.ID, PrerequisiteID: pre}).Error)
	}

	_, err := svc.Update(ctx, signOff.ID, Patch{Status: statusPtr(StatusInProgress)})
	require.Error(t, err)

	var base errutil.BaseError
	require.ErrorAs(t, err, &base)
	require.Equal(t, ReasonPrerequisitesUnmet, base.Reason)
	require.Len(t, base.Details, 2)
	require.Contains(t, base.Message, "Reconcile bank")
	require.Contains(t, base.Message, "Review journals")

	// The guard violation left the row untouched.
	var persisted OperationTask
	require.NoError(t, db.First(&persisted, "id = ?", signOff.ID).Error)
	require.Equal(t, StatusNotStarted, persisted.Status)

	// Completing one prerequisite is not enough.
	_, err = svc.Complete(ctx, reconcile.ID, "", "user-1")
	require.NoError(t, err)
	_, err = svc.Update(ctx, signOff.ID, Patch{Status: statusPtr(StatusInProgress)})
	require.Error(t, err)
	require.ErrorAs(t, err, &base)
	require.Len(t, base.Details, 1)
	require.Equal(t, review.ID, base.Details[0].Field)

	// All prerequisites done: the gate opens.
	_, err = svc.Complete(ctx, review.ID, "", "user-1")
	require.NoError(t, err)
	view, err := svc.Update(ctx, signOff.ID, Patch{Status: statusPtr(StatusInProgress)})
	require.NoError(t, err)
	require.Equal(t, StatusInProgress, view.Status)
	require.NotNil(t, view.StartedAt)
	require.Empty(t, view.UnmetPrerequisites)
}

func TestComplete_EvidenceGate(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	task := seedTask(t, db, OperationTask{ID: "t-1", Title: "Sign off", Position: 1, EvidenceRequired: true})

	_, err := svc.Complete(ctx, task.ID, "", "user-1")
	require.Error(t, err)

	var base errutil.BaseError
	require.ErrorAs(t, err, &base)
	require.Equal(t, ReasonEvidenceRequired, base.Reason)

	// A whitespace-only note does not count.
	_, err = svc.Complete(ctx, task.ID, "   ", "user-1")
	require.Error(t, err)

	view, err := svc.Complete(ctx, task.ID, "reviewed and filed", "user-1")
	require.NoError(t, err)
	require.Equal(t, StatusDone, view.Status)
	require.NotNil(t, view.CompletedAt)
	require.Equal(t, "user-1", *view.CompletedBy)
	require.Equal(t, "reviewed and filed", view.EvidenceNote)
}

func TestComplete_DirectFromNotStarted(t *testing.T) {
	svc, db := newTestService(t)

	task := seedTask(t, db, OperationTask{ID: "t-1", Title: "Quick check", Position: 1})

	view, err := svc.Complete(context.Background(), task.ID, "", "user-2")
	require.NoError(t, err)
	require.Equal(t, StatusDone, view.Status)
	require.Nil(t, view.StartedAt)
}

func TestReopen(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	task := seedTask(t, db, OperationTask{ID: "t-1", Title: "Sign off", Position: 1, EvidenceRequired: true})

	_, err := svc.Update(ctx, task.ID, Patch{Status: statusPtr(StatusInProgress)})
	require.NoError(t, err)
	done, err := svc.Complete(ctx, task.ID, "filed", "user-1")
	require.NoError(t, err)
	require.NotNil(t, done.CompletedAt)

	reopened, err := svc.Reopen(ctx, task.ID, "user-2")
	require.NoError(t, err)
	require.Equal(t, StatusNotStarted, reopened.Status)
	require.Nil(t, reopened.CompletedAt)
	require.Nil(t, reopened.CompletedBy)
	// History survives the reopen.
	require.NotNil(t, reopened.StartedAt)
	require.Equal(t, "filed", reopened.EvidenceNote)

	// Reopen applies to done tasks only.
	_, err = svc.Reopen(ctx, task.ID, "user-2")
	require.Error(t, err)
}

func TestUpdate_InvalidTransitions(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	task := seedTask(t, db, OperationTask{ID: "t-1", Title: "Task", Position: 1})

	_, err := svc.Update(ctx, task.ID, Patch{Status: statusPtr(StatusInProgress)})
	require.NoError(t, err)

	// in_progress cannot go back to not_started.
	_, err = svc.Update(ctx, task.ID, Patch{Status: statusPtr(StatusNotStarted)})
	require.Error(t, err)

	_, err = svc.Complete(ctx, task.ID, "", "user-1")
	require.NoError(t, err)

	// done has no outgoing Update edge.
	for _, to := range []TaskStatus{StatusInProgress, StatusBlocked, StatusNotStarted} {
		_, err = svc.Update(ctx, task.ID, Patch{Status: statusPtr(to)})
		require.Error(t, err, "done -> %s must be rejected", to)
	}
}

func TestUpdate_BlockedRoundTrip(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	task := seedTask(t, db, OperationTask{ID: "t-1", Title: "Task", Position: 1})

	_, err := svc.Update(ctx, task.ID, Patch{Status: statusPtr(StatusBlocked)})
	require.NoError(t, err)

	// blocked cannot complete directly.
	_, err = svc.Update(ctx, task.ID, Patch{Status: statusPtr(StatusDone)})
	require.Error(t, err)

	view, err := svc.Update(ctx, task.ID, Patch{Status: statusPtr(StatusInProgress)})
	require.NoError(t, err)
	require.Equal(t, StatusInProgress, view.Status)
}

func TestUpdate_UnguardedFields(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	task := seedTask(t, db, OperationTask{ID: "t-1", Title: "Task", Position: 1})
	_, err := svc.Complete(ctx, task.ID, "", "user-1")
	require.NoError(t, err)

	// Assignee, notes and due date stay editable on a done task.
	due := time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)
	view, err := svc.Update(ctx, task.ID, Patch{
		AssignedTo: strPtr("user-3"),
		Notes:      strPtr("handover note"),
		DueAt:      &due,
	})
	require.NoError(t, err)
	require.Equal(t, StatusDone, view.Status)
	require.Equal(t, "user-3", *view.AssignedTo)
	require.Equal(t, "handover note", view.Notes)
	require.True(t, view.DueAt.Equal(due))

	view, err = svc.Update(ctx, task.ID, Patch{ClearAssignee: true, ClearDueAt: true})
	require.NoError(t, err)
	require.Nil(t, view.AssignedTo)
	require.Nil(t, view.DueAt)
}

func TestUpdate_EvidenceNoteInSamePatch(t *testing.T) {
	svc, db := newTestService(t)

	task := seedTask(t, db, OperationTask{ID: "t-1", Title: "Sign off", Position: 1, EvidenceRequired: true})

	// The note arrives alongside the status change and satisfies the gate.
	view, err := svc.Update(context.Background(), task.ID, Patch{
		Status:       statusPtr(StatusDone),
		EvidenceNote: strPtr("attached confirmation"),
		Actor:        "user-1",
	})
	require.NoError(t, err)
	require.Equal(t, StatusDone, view.Status)
	require.Equal(t, "attached confirmation", view.EvidenceNote)
}

func TestClearTimeEntryLinks(t *testing.T) {
	svc, db := newTestService(t)

	entry := "entry-1"
	seedTask(t, db, OperationTask{ID: "t-1", Title: "A", Position: 1, TimeEntryID: &entry})
	seedTask(t, db, OperationTask{ID: "t-2", Title: "B", Position: 2, TimeEntryID: &entry})
	other := "entry-2"
	seedTask(t, db, OperationTask{ID: "t-3", Title: "C", Position: 3, TimeEntryID: &other})

	n, err := svc.ClearTimeEntryLinks(context.Background(), entry)
	require.NoError(t, err)
	require.EqualValues(t, 2, n)

	var kept OperationTask
	require.NoError(t, db.First(&kept, "id = ?", "t-3").Error)
	require.NotNil(t, kept.TimeEntryID)
}

func TestBucketFor(t *testing.T) {
	now := time.Date(2025, time.June, 15, 14, 30, 0, 0, time.UTC)

	require.Equal(t, BucketNone, BucketFor(nil, now))

	yesterday := now.AddDate(0, 0, -1)
	require.Equal(t, BucketOverdue, BucketFor(&yesterday, now))

	// Earlier the same day is still due today, not overdue.
	morning := time.Date(2025, time.June, 15, 8, 0, 0, 0, time.UTC)
	require.Equal(t, BucketDueToday, BucketFor(&morning, now))

	tomorrow := now.AddDate(0, 0, 1)
	require.Equal(t, BucketUpcoming, BucketFor(&tomorrow, now))

	// Same inputs, same answer.
	require.Equal(t, BucketFor(&tomorrow, now), BucketFor(&tomorrow, now))
}

func TestUnmetPrerequisites(t *testing.T) {
	done := &OperationTask{ID: "a", Title: "A", Status: StatusDone}
	open := &OperationTask{ID: "b", Title: "B", Status: StatusInProgress}
	siblings := map[string]*OperationTask{"a": done, "b": open}

	unmet := UnmetPrerequisites([]string{"a", "b"}, siblings)
	require.Len(t, unmet, 1)
	require.Equal(t, "b", unmet[0].ID)
	require.Equal(t, "B", unmet[0].Title)

	require.Empty(t, UnmetPrerequisites([]string{"a"}, siblings))
	require.Empty(t, UnmetPrerequisites(nil, siblings))
}

package board

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"firmops-backoffice/services/checklist"
	"firmops-backoffice/services/cycle"
	"firmops-backoffice/services/testutil"
)

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()

	db := testutil.NewTestDB(t,
		&cycle.OperationCycle{},
		&checklist.OperationTask{},
		&checklist.OperationTaskPrerequisite{},
		&SavedFilter{},
	)
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	tasks := checklist.NewService(checklist.ServiceParams{DB: db})
	svc := NewService(ServiceParams{DB: db, Node: node, Tasks: tasks})
	return svc, db
}

func seedCycle(t *testing.T, db *gorm.DB, id, clientID string, status cycle.CycleStatus) {
	t.Helper()
	c := &cycle.OperationCycle{
		ID:           id,
		AssignmentID: "assign-" + id,
		ClientID:     clientID,
		TemplateID:   "tpl-1",
		Label:        "May 2025",
		PeriodStart:  time.Date(2025, time.May, 1, 0, 0, 0, 0, time.UTC),
		PeriodEnd:    time.Date(2025, time.May, 31, 0, 0, 0, 0, time.UTC),
		Status:       status,
	}
	require.NoError(t, db.Create(c).Error)
}

func seedTask(t *testing.T, db *gorm.DB, task checklist.OperationTask) checklist.OperationTask {
	t.Helper()
	if task.Status == "" {
		task.Status = checklist.StatusNotStarted
	}
	require.NoError(t, db.Create(&task).Error)
	return task
}

func datePtr(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func TestListTasks_MineScopeOrdering(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	seedCycle(t, db, "c1", "client-1", cycle.CycleActive)
	me := "user-1"
	now := time.Date(2025, time.May, 15, 10, 0, 0, 0, time.UTC)

	// Insert out of order on purpose.
	seedTask(t, db, checklist.OperationTask{ID: "t-none", CycleID: "c1", Title: "No due date", Position: 1, AssignedTo: &me})
	seedTask(t, db, checklist.OperationTask{ID: "t-soon", CycleID: "c1", Title: "In two days", Position: 2, AssignedTo: &me, DueAt: datePtr(2025, time.May, 17)})
	seedTask(t, db, checklist.OperationTask{ID: "t-overdue", CycleID: "c1", Title: "Overdue", Position: 3, AssignedTo: &me, DueAt: datePtr(2025, time.May, 1)})
	seedTask(t, db, checklist.OperationTask{ID: "t-today", CycleID: "c1", Title: "Due today", Position: 4, AssignedTo: &me, DueAt: datePtr(2025, time.May, 15)})
	seedTask(t, db, checklist.OperationTask{ID: "t-later", CycleID: "c1", Title: "Next month", Position: 5, AssignedTo: &me, DueAt: datePtr(2025, time.June, 20)})

	views, err := svc.ListTasks(ctx, Filters{Scope: ScopeMine, AssignedTo: me, Now: now})
	require.NoError(t, err)

	got := make([]string, 0, len(views))
	for _, v := range views {
		got = append(got, v.ID)
	}
	require.Equal(t, []string{"t-overdue", "t-today", "t-soon", "t-later", "t-none"}, got)

	// Ordering is a pure function of the inputs: a second call agrees.
	again, err := svc.ListTasks(ctx, Filters{Scope: ScopeMine, AssignedTo: me, Now: now})
	require.NoError(t, err)
	for i := range again {
		require.Equal(t, views[i].ID, again[i].ID)
	}
}

func TestListTasks_MineScopeUpcomingSubdivision(t *testing.T) {
	svc, db := newTestService(t)

	seedCycle(t, db, "c1", "client-1", cycle.CycleActive)
	me := "user-1"
	now := time.Date(2025, time.May, 15, 10, 0, 0, 0, time.UTC)

	seedTask(t, db, checklist.OperationTask{ID: "t-week", CycleID: "c1", Title: "Within a week", Position: 1, AssignedTo: &me, DueAt: datePtr(2025, time.May, 21)})
	seedTask(t, db, checklist.OperationTask{ID: "t-3d", CycleID: "c1", Title: "Within three days", Position: 2, AssignedTo: &me, DueAt: datePtr(2025, time.May, 18)})
	seedTask(t, db, checklist.OperationTask{ID: "t-far", CycleID: "c1", Title: "Far out", Position: 3, AssignedTo: &me, DueAt: datePtr(2025, time.May, 30)})

	views, err := svc.ListTasks(context.Background(), Filters{Scope: ScopeMine, AssignedTo: me, Now: now})
	require.NoError(t, err)
	require.Len(t, views, 3)
	require.Equal(t, "t-3d", views[0].ID)
	require.Equal(t, "t-week", views[1].ID)
	require.Equal(t, "t-far", views[2].ID)
}

func TestListTasks_MineScopeDoneSinks(t *testing.T) {
	svc, db := newTestService(t)

	seedCycle(t, db, "c1", "client-1", cycle.CycleActive)
	me := "user-1"
	now := time.Date(2025, time.May, 15, 10, 0, 0, 0, time.UTC)

	// Done with an overdue date still sorts after open work.
	seedTask(t, db, checklist.OperationTask{ID: "t-done", CycleID: "c1", Title: "Done overdue", Position: 1, AssignedTo: &me, Status: checklist.StatusDone, DueAt: datePtr(2025, time.May, 1)})
	seedTask(t, db, checklist.OperationTask{ID: "t-open", CycleID: "c1", Title: "Open", Position: 2, AssignedTo: &me})

	views, err := svc.ListTasks(context.Background(), Filters{Scope: ScopeMine, AssignedTo: me, IncludeDone: true, Now: now})
	require.NoError(t, err)
	require.Len(t, views, 2)
	require.Equal(t, "t-open", views[0].ID)
	require.Equal(t, "t-done", views[1].ID)
}

func TestListTasks_MineScopeRequiresAssignee(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.ListTasks(context.Background(), Filters{Scope: ScopeMine})
	require.Error(t, err)
}

func TestListTasks_ExcludesArchivedCycles(t *testing.T) {
	svc, db := newTestService(t)

	seedCycle(t, db, "c-active", "client-1", cycle.CycleActive)
	seedCycle(t, db, "c-completed", "client-1", cycle.CycleCompleted)
	seedCycle(t, db, "c-archived", "client-1", cycle.CycleArchived)

	seedTask(t, db, checklist.OperationTask{ID: "t-1", CycleID: "c-active", Title: "A", Position: 1})
	seedTask(t, db, checklist.OperationTask{ID: "t-2", CycleID: "c-completed", Title: "B", Position: 1})
	seedTask(t, db, checklist.OperationTask{ID: "t-3", CycleID: "c-archived", Title: "C", Position: 1})

	views, err := svc.ListTasks(context.Background(), Filters{Now: time.Now()})
	require.NoError(t, err)
	require.Len(t, views, 2)
	for _, v := range views {
		require.NotEqual(t, "t-3", v.ID)
	}
}

func TestListTasks_DoneAndStatusFilters(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	seedCycle(t, db, "c1", "client-1", cycle.CycleActive)
	seedTask(t, db, checklist.OperationTask{ID: "t-open", CycleID: "c1", Title: "Open", Position: 1})
	seedTask(t, db, checklist.OperationTask{ID: "t-blocked", CycleID: "c1", Title: "Blocked", Position: 2, Status: checklist.StatusBlocked})
	seedTask(t, db, checklist.OperationTask{ID: "t-done", CycleID: "c1", Title: "Done", Position: 3, Status: checklist.StatusDone})

	// Done is hidden by default.
	views, err := svc.ListTasks(ctx, Filters{Now: time.Now()})
	require.NoError(t, err)
	require.Len(t, views, 2)

	views, err = svc.ListTasks(ctx, Filters{IncludeDone: true, Now: time.Now()})
	require.NoError(t, err)
	require.Len(t, views, 3)

	// An explicit status filter wins over the default exclusion.
	views, err = svc.ListTasks(ctx, Filters{Statuses: []checklist.TaskStatus{checklist.StatusDone}, Now: time.Now()})
	require.NoError(t, err)
	require.Len(t, views, 1)
	require.Equal(t, "t-done", views[0].ID)
}

func TestListTasks_BucketFilter(t *testing.T) {
	svc, db := newTestService(t)

	seedCycle(t, db, "c1", "client-1", cycle.CycleActive)
	now := time.Date(2025, time.May, 15, 10, 0, 0, 0, time.UTC)

	seedTask(t, db, checklist.OperationTask{ID: "t-overdue", CycleID: "c1", Title: "Overdue", Position: 1, DueAt: datePtr(2025, time.May, 1)})
	seedTask(t, db, checklist.OperationTask{ID: "t-upcoming", CycleID: "c1", Title: "Upcoming", Position: 2, DueAt: datePtr(2025, time.May, 20)})
	seedTask(t, db, checklist.OperationTask{ID: "t-none", CycleID: "c1", Title: "None", Position: 3})

	overdue := checklist.BucketOverdue
	views, err := svc.ListTasks(context.Background(), Filters{Bucket: &overdue, Now: now})
	require.NoError(t, err)
	require.Len(t, views, 1)
	require.Equal(t, "t-overdue", views[0].ID)
}

func TestGroupTasks_ByAssignee(t *testing.T) {
	svc, db := newTestService(t)

	seedCycle(t, db, "c1", "client-1", cycle.CycleActive)
	alice := "alice"
	bob := "bob"
	seedTask(t, db, checklist.OperationTask{ID: "t-1", CycleID: "c1", Title: "A", Position: 1, AssignedTo: &bob})
	seedTask(t, db, checklist.OperationTask{ID: "t-2", CycleID: "c1", Title: "B", Position: 2, AssignedTo: &alice})
	seedTask(t, db, checklist.OperationTask{ID: "t-3", CycleID: "c1", Title: "C", Position: 3})

	groups, err := svc.GroupTasks(context.Background(), Filters{Now: time.Now()}, GroupByAssignee)
	require.NoError(t, err)
	require.Len(t, groups, 3)
	require.Equal(t, "Unassigned", groups[0].Key)
	require.Equal(t, "alice", groups[1].Key)
	require.Equal(t, "bob", groups[2].Key)
	require.Len(t, groups[0].Tasks, 1)
}

func TestGroupTasks_ByClient(t *testing.T) {
	svc, db := newTestService(t)

	seedCycle(t, db, "c1", "client-a", cycle.CycleActive)
	seedCycle(t, db, "c2", "client-b", cycle.CycleActive)
	seedTask(t, db, checklist.OperationTask{ID: "t-1", CycleID: "c1", Title: "A", Position: 1})
	seedTask(t, db, checklist.OperationTask{ID: "t-2", CycleID: "c2", Title: "B", Position: 1})
	seedTask(t, db, checklist.OperationTask{ID: "t-3", CycleID: "c2", Title: "C", Position: 2})

	groups, err := svc.GroupTasks(context.Background(), Filters{Now: time.Now()}, GroupByClient)
	require.NoError(t, err)
	require.Len(t, groups, 2)
	require.Equal(t, "client-a", groups[0].Key)
	require.Equal(t, "client-b", groups[1].Key)
	require.Len(t, groups[1].Tasks, 2)

	_, err = svc.GroupTasks(context.Background(), Filters{Now: time.Now()}, GroupBy("priority"))
	require.Error(t, err)
}

func TestSavedFilter_RoundTrip(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	bucket := checklist.BucketOverdue
	in := Filters{
		Scope:       ScopeMine,
		AssignedTo:  "user-1",
		Statuses:    []checklist.TaskStatus{checklist.StatusInProgress, checklist.StatusBlocked},
		Bucket:      &bucket,
		ClientID:    "client-1",
		IncludeDone: true,
	}

	sf, err := svc.SaveFilter(ctx, "user-1", "my urgent work", in)
	require.NoError(t, err)

	_, out, err := svc.GetFilter(ctx, sf.ID)
	require.NoError(t, err)
	require.Equal(t, in.Scope, out.Scope)
	require.Equal(t, in.AssignedTo, out.AssignedTo)
	require.Equal(t, in.Statuses, out.Statuses)
	require.Equal(t, bucket, *out.Bucket)
	require.Equal(t, in.ClientID, out.ClientID)
	require.True(t, out.IncludeDone)

	list, err := svc.ListFilters(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, list, 1)

	_, _, err = svc.GetFilter(ctx, "missing")
	require.Error(t, err)

	_, err = svc.SaveFilter(ctx, "", "x", in)
	require.Error(t, err)
}

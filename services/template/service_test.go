package template

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/require"

	"firmops-backoffice/pkg/config"
	"firmops-backoffice/pkg/errutil"
	"firmops-backoffice/services/testutil"
)

func newTestService(t *testing.T) *Service {
	t.Helper()

	db := testutil.NewTestDB(t, &OperationTemplate{}, &TemplateTask{}, &TemplateTaskPrerequisite{})
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	cfg := &config.Config{}
	cfg.Checklist.DefaultRecurrence = "monthly"

	return NewService(ServiceParams{DB: db, Node: node, Config: cfg})
}

func TestCreateTemplate_RemapsPrerequisiteIndexes(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	tpl, err := svc.CreateTemplate(ctx, CreateTemplateRequest{
		Name: "Monthly close",
		Tasks: []TaskInput{
			{Title: "Reconcile bank accounts"},
			{Title: "Review journal entries"},
			{Title: "Sign off", EvidenceRequired: true, Prerequisites: []int{0, 1}},
		},
	})
	require.NoError(t, err)
	require.Equal(t, "monthly-close", tpl.Code)
	require.Equal(t, "monthly", tpl.Recurrence)
	require.Len(t, tpl.Tasks, 3)

	signOff := tpl.Tasks[2]
	require.Equal(t, 3, signOff.Position)
	require.True(t, signOff.EvidenceRequired)
	require.ElementsMatch(t,
		[]string{tpl.Tasks[0].ID, tpl.Tasks[1].ID},
		signOff.PrerequisiteIDs(),
	)

	loaded, err := svc.GetTemplate(ctx, tpl.ID)
	require.NoError(t, err)
	require.Len(t, loaded.ActiveTasks(), 3)
}

func TestCreateTemplate_DuplicateCode(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateTemplate(ctx, CreateTemplateRequest{
		Name:  "VAT return",
		Tasks: []TaskInput{{Title: "File return"}},
	})
	require.NoError(t, err)

	_, err = svc.CreateTemplate(ctx, CreateTemplateRequest{
		Name:  "VAT return",
		Tasks: []TaskInput{{Title: "File return"}},
	})
	require.Error(t, err)

	var base errutil.BaseError
	require.ErrorAs(t, err, &base)
	require.Equal(t, errutil.StatusConflict, base.Code)
}

func TestCreateTemplate_RejectsCyclicPrerequisites(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.CreateTemplate(context.Background(), CreateTemplateRequest{
		Name: "Broken",
		Tasks: []TaskInput{
			{Title: "A", Prerequisites: []int{1}},
			{Title: "B", Prerequisites: []int{0}},
		},
	})
	require.Error(t, err)

	var base errutil.BaseError
	require.ErrorAs(t, err, &base)
	require.Equal(t, ReasonMalformedGraph, base.Reason)
}

func TestValidateGraph(t *testing.T) {
	a := TemplateTask{ID: "a", Title: "A"}
	b := TemplateTask{ID: "b", Title: "B", Prerequisites: []TemplateTaskPrerequisite{{TaskID: "b", PrerequisiteID: "a"}}}
	c := TemplateTask{ID: "c", Title: "C", Prerequisites: []TemplateTaskPrerequisite{{TaskID: "c", PrerequisiteID: "a"}, {TaskID: "c", PrerequisiteID: "b"}}}

	require.NoError(t, ValidateGraph([]TemplateTask{a, b, c}))

	selfRef := TemplateTask{ID: "s", Title: "S", Prerequisites: []TemplateTaskPrerequisite{{TaskID: "s", PrerequisiteID: "s"}}}
	require.Error(t, ValidateGraph([]TemplateTask{selfRef}))

	dangling := TemplateTask{ID: "d", Title: "D", Prerequisites: []TemplateTaskPrerequisite{{TaskID: "d", PrerequisiteID: "missing"}}}
	require.Error(t, ValidateGraph([]TemplateTask{dangling}))

	x := TemplateTask{ID: "x", Title: "X", Prerequisites: []TemplateTaskPrerequisite{{TaskID: "x", PrerequisiteID: "y"}}}
	y := TemplateTask{ID: "y", Title: "Y", Prerequisites: []TemplateTaskPrerequisite{{TaskID: "y", PrerequisiteID: "x"}}}
	err := ValidateGraph([]TemplateTask{x, y})
	require.Error(t, err)

	var base errutil.BaseError
	require.ErrorAs(t, err, &base)
	require.Equal(t, ReasonMalformedGraph, base.Reason)
}

func TestSetTaskActive(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	tpl, err := svc.CreateTemplate(ctx, CreateTemplateRequest{
		Name: "Payroll",
		Tasks: []TaskInput{
			{Title: "Collect timesheets"},
			{Title: "Run payroll"},
		},
	})
	require.NoError(t, err)

	require.NoError(t, svc.SetTaskActive(ctx, tpl.Tasks[0].ID, false))

	loaded, err := svc.GetTemplate(ctx, tpl.ID)
	require.NoError(t, err)
	require.Len(t, loaded.ActiveTasks(), 1)
	require.Equal(t, "Run payroll", loaded.ActiveTasks()[0].Title)

	err = svc.SetTaskActive(ctx, "unknown", false)
	require.Error(t, err)
}

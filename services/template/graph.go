package template

import (
	"fmt"

	"firmops-backoffice/pkg/errutil"
)

const ReasonMalformedGraph = "malformed_template_graph"

// ValidateGraph checks that the prerequisite links across the given blueprints
// form a DAG: no self references, no links outside the set, no cycles. The
// traversal is bounded by the task count, so a bad graph can never loop the
// generator.
func ValidateGraph(tasks []TemplateTask) error {
	byID := make(map[string]*TemplateTask, len(tasks))
	for i := range tasks {
		byID[tasks[i].ID] = &tasks[i]
	}

	indegree := make(map[string]int, len(tasks))
	dependents := make(map[string][]string, len(tasks))

	for i := range tasks {
		t := &tasks[i]
		indegree[t.ID] += 0
		for _, p := range t.Prerequisites {
			if p.PrerequisiteID == t.ID {
				return errutil.UnprocessableEntity(
					fmt.Sprintf("task %q references itself as a prerequisite", t.Title),
					errutil.WithReason(ReasonMalformedGraph),
				)
			}
			if _, ok := byID[p.PrerequisiteID]; !ok {
				return errutil.UnprocessableEntity(
					fmt.Sprintf("task %q has a prerequisite outside the template", t.Title),
					errutil.WithReason(ReasonMalformedGraph),
				)
			}
			indegree[t.ID]++
			dependents[p.PrerequisiteID] = append(dependents[p.PrerequisiteID], t.ID)
		}
	}

	// Kahn's algorithm: if the queue drains before visiting every task,
	// the remainder is part of a cycle.
	queue := make([]string, 0, len(tasks))
	for id, deg := range indegree {
		if deg == 0 {
			queue = append(queue, id)
		}
	}

	visited := 0
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		visited++
		for _, dep := range dependents[id] {
			indegree[dep]--
			if indegree[dep] == 0 {
				queue = append(queue, dep)
			}
		}
	}

	if visited != len(tasks) {
		return errutil.UnprocessableEntity(
			"template prerequisites contain a cycle",
			errutil.WithReason(ReasonMalformedGraph),
		)
	}

	return nil
}

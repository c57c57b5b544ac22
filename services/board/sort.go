package board

import (
	"sort"
	"time"

	"firmops-backoffice/services/checklist"
)

// urgencyRank subdivides the upcoming bucket for sorting: due within three
// days outranks due within seven, which outranks anything later. Done tasks
// always sink to the bottom regardless of due date.
func urgencyRank(v *checklist.TaskView, now time.Time) int {
	if v.Status == checklist.StatusDone {
		return 6
	}

	switch v.Urgency {
	case checklist.BucketOverdue:
		return 0
	case checklist.BucketDueToday:
		return 1
	case checklist.BucketUpcoming:
		days := daysUntil(*v.DueAt, now)
		switch {
		case days <= 3:
			return 2
		case days <= 7:
			return 3
		default:
			return 4
		}
	default:
		return 5
	}
}

func daysUntil(due, now time.Time) int {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	dueDay := time.Date(due.Year(), due.Month(), due.Day(), 0, 0, 0, 0, now.Location())
	return int(dueDay.Sub(today).Hours() / 24)
}

// sortMine orders tasks for the personal list: urgency, then due date
// ascending with missing dates last, then status priority, then title.
// The ordering is total, so equal inputs always produce equal output.
func sortMine(views []checklist.TaskView, now time.Time) {
	sort.SliceStable(views, func(i, j int) bool {
		a, b := &views[i], &views[j]

		ra, rb := urgencyRank(a, now), urgencyRank(b, now)
		if ra != rb {
			return ra < rb
		}

		switch {
		case a.DueAt != nil && b.DueAt == nil:
			return true
		case a.DueAt == nil && b.DueAt != nil:
			return false
		case a.DueAt != nil && b.DueAt != nil && !a.DueAt.Equal(*b.DueAt):
			return a.DueAt.Before(*b.DueAt)
		}

		if sa, sb := checklist.StatusRank(a.Status), checklist.StatusRank(b.Status); sa != sb {
			return sa < sb
		}

		return a.Title < b.Title
	})
}

// groupTasks splits tasks into board columns keyed by the grouping dimension,
// with groups in lexical key order for stable rendering.
func groupTasks(views []checklist.TaskView, by GroupBy, clientOf func(checklist.TaskView) string) []Group {
	byKey := make(map[string][]checklist.TaskView)
	for _, v := range views {
		var key string
		switch by {
		case GroupByClient:
			key = clientOf(v)
		case GroupByAssignee:
			if v.AssignedTo == nil || *v.AssignedTo == "" {
				key = "Unassigned"
			} else {
				key = *v.AssignedTo
			}
		default:
			key = string(v.Status)
		}
		byKey[key] = append(byKey[key], v)
	}

	keys := make([]string, 0, len(byKey))
	for k := range byKey {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	groups := make([]Group, 0, len(keys))
	for _, k := range keys {
		groups = append(groups, Group{Key: k, Tasks: byKey[k]})
	}
	return groups
}

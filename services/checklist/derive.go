package checklist

import "time"

// BucketFor classifies a due date relative to the given time. The result is
// a pure function of its inputs; callers inject "now" so sorting and tests
// stay deterministic.
func BucketFor(dueAt *time.Time, now time.Time) UrgencyBucket {
	if dueAt == nil {
		return BucketNone
	}

	due := dueAt.In(now.Location())
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	dueDay := time.Date(due.Year(), due.Month(), due.Day(), 0, 0, 0, 0, now.Location())

	switch {
	case dueDay.Before(today):
		return BucketOverdue
	case dueDay.Equal(today):
		return BucketDueToday
	default:
		return BucketUpcoming
	}
}

// UnmetPrerequisites returns the prerequisite refs that are not yet done.
// siblings must contain every prerequisite task of the given task.
func UnmetPrerequisites(prereqIDs []string, siblings map[string]*OperationTask) []PrerequisiteRef {
	unmet := make([]PrerequisiteRef, 0)
	for _, id := range prereqIDs {
		p, ok := siblings[id]
		if !ok {
			continue
		}
		if p.Status != StatusDone {
			unmet = append(unmet, PrerequisiteRef{ID: p.ID, Title: p.Title})
		}
	}
	return unmet
}

// StatusRank orders statuses for board sorting: active work first, done last.
func StatusRank(s TaskStatus) int {
	switch s {
	case StatusInProgress:
		return 0
	case StatusBlocked:
		return 1
	case StatusNotStarted:
		return 2
	case StatusDone:
		return 3
	default:
		return 4
	}
}

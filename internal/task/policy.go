package task

import "strings"

// priorityRank orders priorities for scheduling. Unknown or absent values
// rank as medium.
func priorityRank(priority string) int {
	switch priority {
	case PriorityHigh:
		return 0
	case PriorityLow:
		return 2
	default:
		return 1
	}
}

// PickNext returns the pending task that is minimal under (priority rank, id),
// or nil when nothing is pending. Ties on priority go to the smallest id, so
// the order is deterministic regardless of slice order.
func PickNext(tasks []Task) *Task {
	var best *Task
	for i := range tasks {
		t := &tasks[i]
		if t.Status != StatusPending {
			continue
		}
		if best == nil {
			best = t
			continue
		}
		br, tr := priorityRank(best.Priority), priorityRank(t.Priority)
		if tr < br || (tr == br && t.ID < best.ID) {
			best = t
		}
	}
	return best
}

// CompletedToday counts done tasks whose completed_at starts with today.
func CompletedToday(tasks []Task, today string) int {
	n := 0
	for i := range tasks {
		if tasks[i].Status == StatusDone && strings.HasPrefix(tasks[i].CompletedAt, today) {
			n++
		}
	}
	return n
}

// FailedToday counts failed tasks for the day. A task that failed during
// planning never got a completion time, so created_at is the fallback.
func FailedToday(tasks []Task, today string) int {
	n := 0
	for i := range tasks {
		if tasks[i].Status != StatusFailed {
			continue
		}
		ts := tasks[i].CompletedAt
		if ts == "" {
			ts = tasks[i].CreatedAt
		}
		if strings.HasPrefix(ts, today) {
			n++
		}
	}
	return n
}

// DailyCapReached reports whether the daily completion limit is met.
func DailyCapReached(tasks []Task, today string, limit int) bool {
	return CompletedToday(tasks, today) >= limit
}

// HasPendingChildren reports whether any pending task references id as its
// parent. Evaluated right after the execute phase to detect decomposition;
// children in any other status do not count.
func HasPendingChildren(tasks []Task, id int) bool {
	for i := range tasks {
		if tasks[i].Parent != nil && *tasks[i].Parent == id && tasks[i].Status == StatusPending {
			return true
		}
	}
	return false
}

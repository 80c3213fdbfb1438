package taskstate

// Bucket is the display classification of a run entry. Count badges and
// the filtered list both go through Classify so they can never disagree.
type Bucket string

const (
	BucketAll        Bucket = "all"
	BucketDone       Bucket = "done"
	BucketReassigned Bucket = "reassigned"
	BucketOngoing    Bucket = "ongoing"
	BucketPending    Bucket = "pending"
	BucketFailed     Bucket = "failed"
)

// Classify assigns a run entry to exactly one bucket.
//
// Failed always wins. Reassignment only diverts entries that would
// otherwise settle as done or pending; an entry still being worked on
// counts as ongoing regardless of its reassignment mark. Statuses
// outside the known vocabulary classify as ongoing so that new backend
// states degrade to "still in progress" instead of breaking
// aggregation.
func Classify(status Status, reassigned bool) Bucket {
	switch status {
	case StatusFailed:
		return BucketFailed
	case StatusCompleted:
		if reassigned {
			return BucketReassigned
		}
		return BucketDone
	case StatusSkipped, StatusWaiting, StatusNone:
		if reassigned {
			return BucketReassigned
		}
		return BucketPending
	default:
		return BucketOngoing
	}
}

// BucketCounts is the badge row shown above a task's subtask list.
type BucketCounts struct {
	All        int `json:"all"`
	Done       int `json:"done"`
	Reassigned int `json:"reassigned"`
	Ongoing    int `json:"ongoing"`
	Pending    int `json:"pending"`
	Failed     int `json:"failed"`
}

// CountRuns buckets every non-empty run entry. The per-bucket counts
// always sum to All.
func CountRuns(runs []RunEntry) BucketCounts {
	var c BucketCounts
	for _, run := range runs {
		if run.Content == "" {
			continue
		}
		c.All++
		switch Classify(run.Status, run.ReAssignTo != "") {
		case BucketDone:
			c.Done++
		case BucketReassigned:
			c.Reassigned++
		case BucketPending:
			c.Pending++
		case BucketFailed:
			c.Failed++
		default:
			c.Ongoing++
		}
	}
	return c
}

// FilterRuns returns the run entries belonging to the selected bucket,
// using the same predicate as CountRuns.
func FilterRuns(runs []RunEntry, bucket Bucket) []RunEntry {
	out := make([]RunEntry, 0, len(runs))
	for _, run := range runs {
		if run.Content == "" {
			continue
		}
		if bucket == BucketAll || Classify(run.Status, run.ReAssignTo != "") == bucket {
			out = append(out, run)
		}
	}
	return out
}

// ProgressPercent derives overall task progress from the share of run
// entries that reached a terminal subtask state.
func ProgressPercent(runs []RunEntry) int {
	total := 0
	settled := 0
	for _, run := range runs {
		if run.Content == "" {
			continue
		}
		total++
		if run.Status == StatusCompleted || run.Status == StatusFailed || run.Status == StatusSkipped {
			settled++
		}
	}
	if total == 0 {
		return 0
	}
	return settled * 100 / total
}

// CountPlan buckets the pre-start plan entries the same way, keyed off
// task_info instead of task_running.
func CountPlan(plan []Subtask) BucketCounts {
	runs := make([]RunEntry, 0, len(plan))
	for _, st := range plan {
		runs = append(runs, RunEntry{ID: st.ID, Content: st.Content, Status: st.Status, ReAssignTo: st.ReAssignTo})
	}
	return CountRuns(runs)
}

package dispatch

import "voiceconsole/internal/calls"

// Contact is one dial target from a pasted list or uploaded CSV.
type Contact struct {
	PhoneNumber string `json:"phone_number"`
	Name        string `json:"name,omitempty"`
	Email       string `json:"email,omitempty"`
}

// Outcome is the per-contact result of a batch attempt. Succeeded is true
// only for completed calls; every other terminal status (and a poll timeout)
// counts as failed, while Status preserves what actually happened.
type Outcome struct {
	CallID          string           `json:"call_id"`
	PhoneNumber     string           `json:"phone_number"`
	CorrelationID   string           `json:"correlation_id,omitempty"`
	Status          calls.CallStatus `json:"status"`
	Succeeded       bool             `json:"succeeded"`
	DurationSeconds int              `json:"duration"`
	Reason          string           `json:"reason,omitempty"`
}

// Progress is the aggregate snapshot emitted after every observed state
// change; the console renders it live.
type Progress struct {
	BatchID string `json:"batch_id"`
	GroupID string `json:"group_id"`

	Total      int `json:"total"`
	Pending    int `json:"pending"`
	InProgress int `json:"in_progress"`
	Completed  int `json:"completed"`
	Failed     int `json:"failed"`

	// SuccessRate is completed over finished attempts, in percent.
	SuccessRate float64 `json:"success_rate"`
	// AvgDurationSeconds averages completed call durations.
	AvgDurationSeconds float64 `json:"avg_duration_seconds"`
}

// Observer receives progress snapshots. Called synchronously from the batch
// loop; implementations must be fast or hand off.
type Observer func(Progress)

func computeProgress(batchID, groupID string, statuses []calls.CallStatus, durations []int) Progress {
	p := Progress{BatchID: batchID, GroupID: groupID, Total: len(statuses)}
	var completedDur int
	for i, s := range statuses {
		switch {
		case s == calls.CallStatusPending:
			p.Pending++
		case s == calls.CallStatusCompleted:
			p.Completed++
			completedDur += durations[i]
		case s.Terminal():
			p.Failed++
		default:
			p.InProgress++
		}
	}
	if finished := p.Completed + p.Failed; finished > 0 {
		p.SuccessRate = float64(p.Completed) / float64(finished) * 100
	}
	if p.Completed > 0 {
		p.AvgDurationSeconds = float64(completedDur) / float64(p.Completed)
	}
	return p
}

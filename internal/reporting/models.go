package reporting

import (
	"time"

	"github.com/shopspring/decimal"
)

// Common filtering inputs.

type TimeRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// CallsSummaryRequest requests aggregated call metrics.
// Group isolation: GroupID is required.

type CallsSummaryRequest struct {
	GroupID string    `json:"group_id"`
	Range   TimeRange `json:"range"`
}

type CallsSummary struct {
	GroupID string `json:"group_id"`

	TotalCalls      int `json:"total_calls"`
	CompletedCalls  int `json:"completed_calls"`
	FailedCalls     int `json:"failed_calls"`
	NoAnswerCalls   int `json:"no_answer_calls"`
	BusyCalls       int `json:"busy_calls"`
	CanceledCalls   int `json:"canceled_calls"`
	InProgressCalls int `json:"in_progress_calls"`

	TotalDurationSeconds   int `json:"total_duration_seconds"`
	AverageDurationSeconds int `json:"average_duration_seconds"`

	// SuccessRate is completed over finished calls, in percent.
	SuccessRate float64 `json:"success_rate"`
}

// UsageSummaryRequest requests aggregated spend metrics.
// Spend is derived from immutable usage events scoped to the group.

type UsageSummaryRequest struct {
	GroupID string    `json:"group_id"`
	Range   TimeRange `json:"range"`
}

type UsageSummary struct {
	GroupID string `json:"group_id"`

	TotalEvents    int `json:"total_events"`
	ChargedEvents  int `json:"charged_events"`
	RejectedEvents int `json:"rejected_events"`

	TotalSpend decimal.Decimal `json:"total_spend"`

	InputTokens  int64   `json:"input_tokens"`
	OutputTokens int64   `json:"output_tokens"`
	AudioSeconds float64 `json:"audio_seconds"`
	CallSeconds  int     `json:"call_seconds"`

	// SpendByModel breaks spend down by model tag.
	SpendByModel map[string]decimal.Decimal `json:"spend_by_model"`
}

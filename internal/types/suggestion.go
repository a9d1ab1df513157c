package types

import (
	"time"
)

// Actions the suggester may propose.
const (
	ActionSendMail        = "send_mail"
	ActionSummarisePDF    = "summarise_pdf"
	ActionScheduleMeeting = "schedule_meeting"
)

// TriggerData identifies the thread and content that motivated a suggestion.
type TriggerData struct {
	ThreadTopic string `json:"thread_topic"`
	Text        string `json:"text,omitempty"`
}

// Suggestion is one proposed assistive action, produced by the suggester
// and owned by the scheduler for a single cycle.
type Suggestion struct {
	ID          string      `json:"id"`
	Action      string      `json:"action"`
	Reason      string      `json:"reason"`
	TriggerData TriggerData `json:"trigger_data"`
	CreatedAt   time.Time   `json:"created_at"`
}

// UserResponse is the confirmation verdict for a published suggestion.
type UserResponse struct {
	Accepted bool `json:"accepted"`
}

// ManualSummary is the user-provided override for the summarise action.
type ManualSummary struct {
	Manual bool   `json:"manual"`
	Text   string `json:"text"`
}

// ActionResult is whatever an action executor produced.
type ActionResult struct {
	Success         bool   `json:"success"`
	Message         string `json:"message"`
	ServiceResponse string `json:"service_response,omitempty"`
}

// Reason codes for cycle outcomes. Refusals are normal negative outcomes,
// not errors.
const (
	CycleReasonBusy         = "cycle_in_progress"
	CycleReasonCooldown     = "cooldown_active"
	CycleReasonNoThreads    = "no_threads"
	CycleReasonNoSuggestion = "no_suggestion"
	CycleReasonSuggesterErr = "suggester_error"
	CycleReasonRejected     = "rejected"
	CycleReasonActionFailed = "action_failed"
	CycleReasonActionDone   = "action_done"
)

// CycleResult is the structured outcome of one suggestion cycle attempt.
type CycleResult struct {
	Ran      bool         `json:"ran"`
	Reason   string       `json:"reason"`
	Accepted bool         `json:"accepted"`
	Action   ActionResult `json:"action,omitempty"`
}

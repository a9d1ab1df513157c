package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/glancehq/glance-backend/internal/logger"
	"github.com/glancehq/glance-backend/internal/types"
	"github.com/glancehq/glance-backend/internal/utils"
)

// Suggester inspects the active threads and proposes at most one assistive
// action. A nil suggestion with a nil error means "nothing worth doing",
// which is the common case.
type Suggester interface {
	Suggest(ctx context.Context, threads []*types.Thread) (*types.Suggestion, error)
}

type llmSuggester struct {
	log *logger.Logger
	llm LLMClient
}

func NewSuggester(log *logger.Logger, llm LLMClient) Suggester {
	return &llmSuggester{
		log: log.With("service", "Suggester"),
		llm: llm,
	}
}

const suggestPromptTemplate = `You are an ambient desktop assistant watching summaries of the user's recent screen activity, grouped into topic threads.

Available actions:
- send_mail: the user appears to be composing or about to compose an email, or has content that clearly needs to be sent to someone.
- summarise_pdf: the user is reading a long document, paper or PDF and would benefit from a summary.
- schedule_meeting: the user is coordinating a time, date or meeting with someone.

Active threads (JSON):
%s

If exactly one action is clearly useful right now, respond with ONLY this JSON object, no prose and no markdown fences:
{"action": "<one of send_mail|summarise_pdf|schedule_meeting>", "reason": "<one sentence>", "trigger_data": {"thread_topic": "<topic of the motivating thread>", "text": "<the relevant content>"}}

If no action is clearly useful, respond with exactly:
{"action": ""}`

type suggestionPayload struct {
	Action      string            `json:"action"`
	Reason      string            `json:"reason"`
	TriggerData types.TriggerData `json:"trigger_data"`
}

func (s *llmSuggester) Suggest(ctx context.Context, threads []*types.Thread) (*types.Suggestion, error) {
	if len(threads) == 0 {
		return nil, nil
	}

	view := make([]map[string]any, 0, len(threads))
	for _, t := range threads {
		texts := make([]string, 0, len(t.Events))
		for _, ev := range t.Events {
			texts = append(texts, ev.Text)
		}
		view = append(view, map[string]any{
			"topic":        t.Topic,
			"last_updated": t.LastUpdated.UTC().Format(time.RFC3339),
			"events":       texts,
		})
	}
	encoded, err := json.MarshalIndent(view, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode threads: %w", err)
	}

	raw, err := s.llm.Complete(ctx, fmt.Sprintf(suggestPromptTemplate, string(encoded)))
	if err != nil {
		return nil, err
	}

	var payload suggestionPayload
	if err := utils.DecodeLLMJSON(raw, &payload); err != nil {
		s.log.Warn("Suggester output unparseable, treating as no suggestion", "error", err.Error())
		return nil, nil
	}

	action := strings.TrimSpace(payload.Action)
	switch action {
	case "":
		return nil, nil
	case types.ActionSendMail, types.ActionSummarisePDF, types.ActionScheduleMeeting:
	default:
		s.log.Warn("Suggester proposed unknown action, ignoring", "action", action)
		return nil, nil
	}

	return &types.Suggestion{
		ID:          uuid.NewString(),
		Action:      action,
		Reason:      payload.Reason,
		TriggerData: payload.TriggerData,
		CreatedAt:   time.Now().UTC(),
	}, nil
}

package services

import (
	"context"
	"fmt"
	"net/url"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/atotto/clipboard"

	"github.com/glancehq/glance-backend/internal/logger"
	"github.com/glancehq/glance-backend/internal/types"
	"github.com/glancehq/glance-backend/internal/utils"
)

// ActionService executes an accepted suggestion against the desktop.
type ActionService struct {
	log   *logger.Logger
	llm   LLMClient
	store *ThreadStore
	bus   *ConfirmBus

	manualWait time.Duration

	// test seams
	writeClipboard func(string) error
	openURL        func(string) error
}

func NewActionService(log *logger.Logger, llm LLMClient, store *ThreadStore, bus *ConfirmBus) *ActionService {
	return &ActionService{
		log:            log.With("service", "ActionService"),
		llm:            llm,
		store:          store,
		bus:            bus,
		manualWait:     utils.GetEnvAsMillis("MANUAL_SUMMARY_WAIT_MS", 10000, log),
		writeClipboard: clipboard.WriteAll,
		openURL:        openInBrowser,
	}
}

// Execute runs the suggested action against the resolved thread. Failures
// come back as unsuccessful results, not errors: the scheduler records the
// outcome either way.
func (a *ActionService) Execute(ctx context.Context, sug *types.Suggestion, thread *types.Thread) types.ActionResult {
	if sug == nil || thread == nil {
		return types.ActionResult{Success: false, Message: "empty suggestion or target thread"}
	}

	switch sug.Action {
	case types.ActionSummarisePDF:
		return a.summarise(ctx, sug, thread)
	case types.ActionSendMail:
		return a.sendMail(ctx, sug, thread)
	case types.ActionScheduleMeeting:
		return a.scheduleMeeting(sug)
	default:
		return types.ActionResult{Success: false, Message: fmt.Sprintf("unknown action %q", sug.Action)}
	}
}

const summarisePromptTemplate = `Summarise the following screen activity into a short, readable digest. Keep concrete facts, names, numbers and decisions. Plain text only.

Content:
"""
%s
"""`

func (a *ActionService) summarise(ctx context.Context, sug *types.Suggestion, thread *types.Thread) types.ActionResult {
	source := sug.TriggerData.Text

	// Give the user a short window to paste their own source text, e.g.
	// a selection from the PDF the OCR only partially captured.
	if manual, ok := a.bus.AwaitManualSummary(ctx, a.manualWait); ok && manual.Manual && strings.TrimSpace(manual.Text) != "" {
		a.log.Info("Using manual summary source", "topic", thread.Topic)
		source = manual.Text
	}

	if strings.TrimSpace(source) == "" {
		var texts []string
		for _, ev := range thread.Events {
			texts = append(texts, ev.Text)
		}
		source = strings.Join(texts, "\n\n")
	}
	if strings.TrimSpace(source) == "" {
		return types.ActionResult{Success: false, Message: "nothing to summarise"}
	}

	summary, err := a.llm.Complete(ctx, fmt.Sprintf(summarisePromptTemplate, source))
	if err != nil {
		return types.ActionResult{Success: false, Message: fmt.Sprintf("summary generation failed: %v", err)}
	}

	if err := a.writeClipboard(summary); err != nil {
		a.log.Warn("Clipboard write failed", "error", err.Error())
		return types.ActionResult{
			Success:         true,
			Message:         "summary generated, clipboard unavailable",
			ServiceResponse: summary,
		}
	}

	return types.ActionResult{
		Success:         true,
		Message:         "summary copied to clipboard",
		ServiceResponse: summary,
	}
}

const mailDraftPromptTemplate = `Draft a short email based on this screen activity. Infer the recipient if one is visible in the content, otherwise leave "to" empty.

Content:
"""
%s
"""

Respond with ONLY this JSON object, no prose and no markdown fences:
{"to": "<recipient or empty>", "subject": "<subject line>", "body": "<email body>"}`

type mailDraft struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

var (
	gmailKeywords   = []string{"gmail", "mail.google"}
	outlookKeywords = []string{"outlook", "office365"}
)

func (a *ActionService) sendMail(ctx context.Context, sug *types.Suggestion, thread *types.Thread) types.ActionResult {
	source := sug.TriggerData.Text
	if strings.TrimSpace(source) == "" {
		if last, ok := thread.LastEvent(); ok {
			source = last.Text
		}
	}

	raw, err := a.llm.Complete(ctx, fmt.Sprintf(mailDraftPromptTemplate, source))
	if err != nil {
		return types.ActionResult{Success: false, Message: fmt.Sprintf("mail draft failed: %v", err)}
	}

	var draft mailDraft
	if err := utils.DecodeLLMJSON(raw, &draft); err != nil {
		return types.ActionResult{Success: false, Message: "mail draft was not valid JSON"}
	}

	composeURL := a.composeURL(draft)
	if err := a.openURL(composeURL); err != nil {
		return types.ActionResult{Success: false, Message: fmt.Sprintf("failed to open mail compose: %v", err)}
	}

	return types.ActionResult{
		Success:         true,
		Message:         "mail compose opened",
		ServiceResponse: draft.Subject,
	}
}

// composeURL routes the draft to whichever mail surface the user already
// has open, falling back to the system mailto handler.
func (a *ActionService) composeURL(draft mailDraft) string {
	switch {
	case a.store.ContextActive(gmailKeywords):
		q := url.Values{}
		q.Set("view", "cm")
		q.Set("to", draft.To)
		q.Set("su", draft.Subject)
		q.Set("body", draft.Body)
		return "https://mail.google.com/mail/?" + q.Encode()
	case a.store.ContextActive(outlookKeywords):
		q := url.Values{}
		q.Set("to", draft.To)
		q.Set("subject", draft.Subject)
		q.Set("body", draft.Body)
		return "https://outlook.office.com/mail/deeplink/compose?" + q.Encode()
	default:
		q := url.Values{}
		q.Set("subject", draft.Subject)
		q.Set("body", draft.Body)
		return "mailto:" + url.QueryEscape(draft.To) + "?" + q.Encode()
	}
}

func (a *ActionService) scheduleMeeting(sug *types.Suggestion) types.ActionResult {
	// Calendar integration is not wired yet; acknowledge the intent so
	// the cycle completes and the outcome is recorded.
	a.log.Info("Meeting scheduling requested", "reason", sug.Reason)
	return types.ActionResult{
		Success:         true,
		Message:         "meeting request noted",
		ServiceResponse: sug.TriggerData.Text,
	}
}

func openInBrowser(target string) error {
	switch runtime.GOOS {
	case "darwin":
		return exec.Command("open", target).Start()
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", target).Start()
	default:
		return exec.Command("xdg-open", target).Start()
	}
}

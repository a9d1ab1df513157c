package services

import (
	"context"
	"sync"
	"time"

	"github.com/glancehq/glance-backend/internal/logger"
	"github.com/glancehq/glance-backend/internal/types"
)

// ConfirmBus carries suggestions out to the UI and user verdicts back in.
// Responses are buffered one deep; publishing a new suggestion drains any
// stale verdict so a late answer to an old suggestion can never be read as
// the answer to a new one. Manual summaries work the same way.
type ConfirmBus struct {
	log *logger.Logger

	mu     sync.Mutex
	latest *types.Suggestion

	responses chan types.UserResponse
	manuals   chan types.ManualSummary
}

func NewConfirmBus(log *logger.Logger) *ConfirmBus {
	return &ConfirmBus{
		log:       log.With("service", "ConfirmBus"),
		responses: make(chan types.UserResponse, 1),
		manuals:   make(chan types.ManualSummary, 1),
	}
}

// PublishSuggestion makes the suggestion visible to the UI and clears any
// response left over from an earlier one.
func (b *ConfirmBus) PublishSuggestion(s *types.Suggestion) {
	b.mu.Lock()
	b.latest = s
	b.mu.Unlock()

	select {
	case <-b.responses:
	default:
	}
}

// Latest returns the current published suggestion, or nil when none.
func (b *ConfirmBus) Latest() *types.Suggestion {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.latest
}

// SubmitResponse records the user's verdict. With no cycle waiting the
// verdict is dropped, matching a user answering after the window closed.
func (b *ConfirmBus) SubmitResponse(r types.UserResponse) {
	select {
	case b.responses <- r:
	default:
		b.log.Warn("Confirmation received with no suggestion pending, dropped", "accepted", r.Accepted)
	}
}

// AwaitResponse blocks until a verdict arrives or the timeout elapses.
// Timeout and cancellation both count as rejection.
func (b *ConfirmBus) AwaitResponse(ctx context.Context, timeout time.Duration) types.UserResponse {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case r := <-b.responses:
		return r
	case <-timer.C:
		b.log.Info("Confirmation window expired, treating as rejection")
		return types.UserResponse{Accepted: false}
	case <-ctx.Done():
		return types.UserResponse{Accepted: false}
	}
}

// ClearSuggestion removes the published suggestion once its cycle ends.
func (b *ConfirmBus) ClearSuggestion() {
	b.mu.Lock()
	b.latest = nil
	b.mu.Unlock()
}

// SubmitManualSummary hands a user-written summary to a waiting summarise
// action. With no action waiting it is dropped.
func (b *ConfirmBus) SubmitManualSummary(m types.ManualSummary) {
	select {
	case b.manuals <- m:
	default:
		b.log.Warn("Manual summary received with no action waiting, dropped")
	}
}

// AwaitManualSummary gives the user a bounded window to supply their own
// summary text. It drains any stale entry first so text submitted during
// an earlier cycle cannot leak into this one.
func (b *ConfirmBus) AwaitManualSummary(ctx context.Context, timeout time.Duration) (types.ManualSummary, bool) {
	select {
	case <-b.manuals:
	default:
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case m := <-b.manuals:
		return m, true
	case <-timer.C:
		return types.ManualSummary{}, false
	case <-ctx.Done():
		return types.ManualSummary{}, false
	}
}

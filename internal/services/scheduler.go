package services

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"gorm.io/datatypes"

	"github.com/glancehq/glance-backend/internal/logger"
	"github.com/glancehq/glance-backend/internal/repos"
	"github.com/glancehq/glance-backend/internal/types"
	"github.com/glancehq/glance-backend/internal/utils"
)

// Scheduler states, exposed for observability only.
const (
	StateIdle                 = "idle"
	StateAwaitingSuggestion   = "awaiting_suggestion"
	StateAwaitingConfirmation = "awaiting_confirmation"
	StateActing               = "acting"
)

// Scheduler watches the thread store for change, debounces bursts of
// activity into single suggestion cycles, and drives each cycle through
// suggest, confirm and act. At most one cycle runs at a time; a cycle
// attempted while another is in flight or during cooldown is refused
// without side effects.
type Scheduler struct {
	log       *logger.Logger
	store     *ThreadStore
	deny      *utils.Denylist
	suggester Suggester
	actions   *ActionService
	bus       *ConfirmBus
	records   repos.CycleRecordRepo

	pollInterval   time.Duration
	debounce       time.Duration
	cooldown       time.Duration
	confirmTimeout time.Duration

	mu           sync.Mutex
	busy         bool
	state        string
	lastCycleEnd time.Time

	now func() time.Time
}

func NewScheduler(
	log *logger.Logger,
	store *ThreadStore,
	deny *utils.Denylist,
	suggester Suggester,
	actions *ActionService,
	bus *ConfirmBus,
	records repos.CycleRecordRepo,
) *Scheduler {
	return &Scheduler{
		log:            log.With("service", "Scheduler"),
		store:          store,
		deny:           deny,
		suggester:      suggester,
		actions:        actions,
		bus:            bus,
		records:        records,
		pollInterval:   utils.GetEnvAsMillis("SUGGESTION_POLL_MS", 1000, log),
		debounce:       utils.GetEnvAsMillis("DEBOUNCE_DELAY_MS", 5000, log),
		cooldown:       utils.GetEnvAsMillis("COOLDOWN_MS", 12000, log),
		confirmTimeout: utils.GetEnvAsMillis("CONFIRM_TIMEOUT_MS", 15000, log),
		state:          StateIdle,
		now:            time.Now,
	}
}

// State returns the current cycle state.
func (s *Scheduler) State() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Start polls the store fingerprint and arms a debounce timer on every
// change, so the cycle fires a fixed quiet period after the LAST change in
// a burst, not the first. Blocks until ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	var (
		lastFingerprint = s.Fingerprint()
		debounceTimer   *time.Timer
		debounceC       <-chan time.Time
	)
	stopDebounce := func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
			debounceTimer = nil
			debounceC = nil
		}
	}
	defer stopDebounce()

	s.log.Info("Scheduler started",
		"poll_interval", s.pollInterval.String(),
		"debounce", s.debounce.String(),
		"cooldown", s.cooldown.String(),
	)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			fp := s.Fingerprint()
			if fp == lastFingerprint {
				continue
			}
			lastFingerprint = fp
			stopDebounce()
			debounceTimer = time.NewTimer(s.debounce)
			debounceC = debounceTimer.C
			s.log.Debug("Thread change detected, debounce armed")
		case <-debounceC:
			debounceTimer = nil
			debounceC = nil
			go s.RunCycle(ctx)
		}
	}
}

// Fingerprint summarises the identity and freshness of the active threads.
// Two calls return the same string iff nothing suggestion-relevant changed.
func (s *Scheduler) Fingerprint() string {
	threads := s.store.ActiveThreads(s.deny)

	type entry struct {
		Topic       string `json:"topic"`
		LastUpdated string `json:"last_updated"`
	}
	entries := make([]entry, 0, len(threads))
	for _, t := range threads {
		entries = append(entries, entry{
			Topic:       t.TopicKey,
			LastUpdated: t.LastUpdated.UTC().Format(time.RFC3339Nano),
		})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Topic < entries[j].Topic })

	encoded, err := json.Marshal(entries)
	if err != nil {
		return ""
	}
	return string(encoded)
}

// RunCycle attempts one suggestion cycle. Refusals (busy, cooldown) return
// immediately with Ran=false and touch nothing. The busy guard is held
// through the confirmation wait and the action, so a user who is deciding
// cannot be interrupted by a newer suggestion. The cooldown window starts
// only when a cycle that published a suggestion ends; cycles that never
// surfaced anything to the user leave the anchor untouched.
func (s *Scheduler) RunCycle(ctx context.Context) types.CycleResult {
	now := s.now()

	s.mu.Lock()
	if s.busy {
		s.mu.Unlock()
		s.log.Debug("Cycle refused", "reason", types.CycleReasonBusy)
		return types.CycleResult{Ran: false, Reason: types.CycleReasonBusy}
	}
	if !s.lastCycleEnd.IsZero() && now.Sub(s.lastCycleEnd) < s.cooldown {
		s.mu.Unlock()
		s.log.Debug("Cycle refused", "reason", types.CycleReasonCooldown)
		return types.CycleResult{Ran: false, Reason: types.CycleReasonCooldown}
	}
	s.busy = true
	s.state = StateAwaitingSuggestion
	s.mu.Unlock()

	result, published := s.runAdmitted(ctx)

	s.mu.Lock()
	s.busy = false
	s.state = StateIdle
	if published {
		s.lastCycleEnd = s.now()
	}
	s.mu.Unlock()

	s.log.Info("Cycle finished", "reason", result.Reason, "accepted", result.Accepted)
	return result
}

func (s *Scheduler) runAdmitted(ctx context.Context) (types.CycleResult, bool) {
	threads := s.store.ActiveThreads(s.deny)
	if len(threads) == 0 {
		return types.CycleResult{Ran: true, Reason: types.CycleReasonNoThreads}, false
	}

	sug, err := s.suggester.Suggest(ctx, threads)
	if err != nil {
		s.log.Warn("Suggester failed", "error", err.Error())
		s.record(ctx, nil, types.CycleResult{Ran: true, Reason: types.CycleReasonSuggesterErr})
		return types.CycleResult{Ran: true, Reason: types.CycleReasonSuggesterErr}, false
	}
	if sug == nil {
		return types.CycleResult{Ran: true, Reason: types.CycleReasonNoSuggestion}, false
	}

	s.setState(StateAwaitingConfirmation)
	s.bus.PublishSuggestion(sug)
	s.log.Info("Suggestion published", "action", sug.Action, "topic", sug.TriggerData.ThreadTopic)

	resp := s.bus.AwaitResponse(ctx, s.confirmTimeout)
	s.bus.ClearSuggestion()

	if !resp.Accepted {
		result := types.CycleResult{Ran: true, Reason: types.CycleReasonRejected}
		s.record(ctx, sug, result)
		return result, true
	}

	s.setState(StateActing)
	thread := s.store.ThreadByTopic(sug.TriggerData.ThreadTopic)
	actionResult := s.actions.Execute(ctx, sug, thread)

	reason := types.CycleReasonActionDone
	if !actionResult.Success {
		reason = types.CycleReasonActionFailed
	}
	result := types.CycleResult{Ran: true, Reason: reason, Accepted: true, Action: actionResult}
	s.record(ctx, sug, result)
	return result, true
}

func (s *Scheduler) setState(state string) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

// record persists the cycle outcome for the audit trail. Recording is best
// effort: with no database the cycle still completes.
func (s *Scheduler) record(ctx context.Context, sug *types.Suggestion, result types.CycleResult) {
	if s.records == nil {
		return
	}

	rec := &types.CycleRecord{
		Reason:   result.Reason,
		Accepted: result.Accepted,
		Success:  result.Action.Success,
		Message:  result.Action.Message,
	}
	if sug != nil {
		rec.Action = sug.Action
		if payload, err := json.Marshal(sug.TriggerData); err == nil {
			rec.TriggerData = datatypes.JSON(payload)
		}
	}

	if _, err := s.records.Create(ctx, nil, rec); err != nil {
		s.log.Warn("Failed to record cycle", "error", err.Error())
	}
}

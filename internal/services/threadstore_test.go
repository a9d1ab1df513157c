package services

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/glancehq/glance-backend/internal/types"
	"github.com/glancehq/glance-backend/internal/utils"
)

func TestNormalizeTopic(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Email Drafting", "email_drafting"},
		{"  Flight   Booking!! ", "flight_booking"},
		{"code-review/PR #42", "code_review_pr_42"},
		{"___", ""},
		{"already_normal", "already_normal"},
	}
	for _, tc := range cases {
		got := NormalizeTopic(tc.in)
		if got != tc.want {
			t.Errorf("NormalizeTopic(%q) = %q, want %q", tc.in, got, tc.want)
		}
		if again := NormalizeTopic(got); again != got {
			t.Errorf("NormalizeTopic not idempotent: %q -> %q", got, again)
		}
	}
}

func TestAddEventCreatesAndAppends(t *testing.T) {
	s := newTestStore(t, time.Minute)

	first := s.AddEvent("Email Drafting", types.ThreadEvent{Text: "dear bob"})
	if first.ID == "" || first.TopicKey != "email_drafting" {
		t.Fatalf("unexpected thread: %+v", first)
	}
	if len(first.Events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(first.Events))
	}

	second := s.AddEvent("email drafting", types.ThreadEvent{Text: "regards"})
	if second.ID != first.ID {
		t.Fatalf("same topic key must map to same thread")
	}
	if len(second.Events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(second.Events))
	}
}

func TestFinalizeExpiredIsIdempotent(t *testing.T) {
	s := newTestStore(t, time.Minute)
	base := time.Now()
	s.now = func() time.Time { return base }

	s.AddEvent("reading paper", types.ThreadEvent{Text: "abstract"})

	s.now = func() time.Time { return base.Add(30 * time.Second) }
	if got := s.FinalizeExpired(); len(got) != 0 {
		t.Fatalf("thread expired too early: %d", len(got))
	}

	s.now = func() time.Time { return base.Add(2 * time.Minute) }
	first := s.FinalizeExpired()
	if len(first) != 1 {
		t.Fatalf("expected 1 transition, got %d", len(first))
	}
	second := s.FinalizeExpired()
	if len(second) != 0 {
		t.Fatalf("finalize must transition each thread once, got %d again", len(second))
	}
}

func TestRevivalPreservesIdentity(t *testing.T) {
	s := newTestStore(t, time.Minute)
	base := time.Now()
	s.now = func() time.Time { return base }

	orig := s.AddEvent("trip planning", types.ThreadEvent{Text: "flights to lisbon"})

	s.now = func() time.Time { return base.Add(5 * time.Minute) }
	s.FinalizeExpired()

	revived := s.AddEvent("trip planning", types.ThreadEvent{Text: "hotel options"})
	if revived.Finalized {
		t.Fatalf("revived thread must not stay finalized")
	}
	if revived.ID != orig.ID {
		t.Fatalf("revival must not mint a new thread")
	}
	if !revived.CreatedAt.Equal(orig.CreatedAt) {
		t.Fatalf("revival must preserve CreatedAt")
	}
	if len(revived.Events) != 2 {
		t.Fatalf("expected 2 events after revival, got %d", len(revived.Events))
	}
}

func TestActiveThreadsFiltersDenylistedAndFinalized(t *testing.T) {
	s := newTestStore(t, time.Minute)
	base := time.Now()
	s.now = func() time.Time { return base }

	s.AddEvent("banking", types.ThreadEvent{AppName: "Banking App", Text: "balance"})
	s.AddEvent("writing", types.ThreadEvent{AppName: "Editor", Text: "draft"})
	s.AddEvent("old stuff", types.ThreadEvent{AppName: "Editor", Text: "stale"})

	if th := s.threads["old_stuff"]; th != nil {
		th.LastUpdated = base.Add(-10 * time.Minute)
	}

	deny := &utils.Denylist{Apps: []string{"banking"}}
	active := s.ActiveThreads(deny)
	if len(active) != 1 {
		t.Fatalf("expected 1 active thread, got %d", len(active))
	}
	if active[0].TopicKey != "writing" {
		t.Fatalf("unexpected surviving thread: %s", active[0].TopicKey)
	}

	// Denylisted threads are hidden, not removed.
	if s.ThreadByTopic("banking") == nil {
		t.Fatalf("denylisted thread must stay in the store")
	}
}

func TestActiveThreadsDenylistUsesMostRecentEventOnly(t *testing.T) {
	s := newTestStore(t, time.Minute)
	base := time.Now()
	s.now = func() time.Time { return base }

	deny := &utils.Denylist{Apps: []string{"banking"}}

	// A clean earlier event does not protect a thread whose latest
	// event is denylisted.
	s.AddEvent("finances", types.ThreadEvent{AppName: "Editor", Text: "budget notes"})
	s.AddEvent("finances", types.ThreadEvent{AppName: "Banking App", Text: "balance"})
	if got := s.ActiveThreads(deny); len(got) != 0 {
		t.Fatalf("thread with denylisted latest event must be hidden, got %d", len(got))
	}

	// Membership flips back once the most recent event is clean again.
	s.AddEvent("finances", types.ThreadEvent{AppName: "Editor", Text: "more notes"})
	got := s.ActiveThreads(deny)
	if len(got) != 1 || got[0].TopicKey != "finances" {
		t.Fatalf("thread must reappear when its latest event is clean, got %+v", got)
	}
}

func TestActiveOnlyViewsSweepExpirations(t *testing.T) {
	s := newTestStore(t, time.Minute)
	base := time.Now()
	s.now = func() time.Time { return base }
	s.AddEvent("gmail inbox", types.ThreadEvent{Text: "unread"})

	// No explicit FinalizeExpired call: the views must sweep themselves.
	s.now = func() time.Time { return base.Add(10 * time.Minute) }

	if got := s.MostRecent(); got != nil {
		t.Fatalf("expired thread must not be most recent, got %+v", got)
	}
	if hits := s.FindByKeyword([]string{"gmail"}); len(hits) != 0 {
		t.Fatalf("expired thread must not match keyword search, got %d", len(hits))
	}
	if s.ContextActive([]string{"gmail"}) {
		t.Fatalf("expired thread must not count as active context")
	}
	if th := s.ThreadByTopic("gmail inbox"); th == nil || !th.Finalized {
		t.Fatalf("sweep must have finalized the thread in place: %+v", th)
	}
}

func TestFindByKeywordAndMostRecent(t *testing.T) {
	s := newTestStore(t, time.Minute)
	base := time.Now()
	s.now = func() time.Time { return base }
	s.AddEvent("gmail inbox", types.ThreadEvent{AppName: "Chrome", Text: "unread mail"})

	s.now = func() time.Time { return base.Add(time.Second) }
	s.AddEvent("spreadsheet", types.ThreadEvent{AppName: "Excel", Text: "quarterly numbers"})

	hits := s.FindByKeyword([]string{"gmail"})
	if len(hits) != 1 || hits[0].TopicKey != "gmail_inbox" {
		t.Fatalf("keyword search failed: %+v", hits)
	}
	if hits := s.FindByKeyword([]string{"QUARTERLY"}); len(hits) != 1 {
		t.Fatalf("keyword search must be case-insensitive")
	}

	recent := s.MostRecent()
	if recent == nil || recent.TopicKey != "spreadsheet" {
		t.Fatalf("unexpected most recent thread: %+v", recent)
	}
}

func TestContextActiveIgnoresFinalized(t *testing.T) {
	s := newTestStore(t, time.Minute)
	base := time.Now()
	s.now = func() time.Time { return base }
	s.AddEvent("gmail inbox", types.ThreadEvent{Text: "unread"})

	if !s.ContextActive([]string{"gmail"}) {
		t.Fatalf("expected active gmail context")
	}

	s.now = func() time.Time { return base.Add(10 * time.Minute) }
	s.FinalizeExpired()
	if s.ContextActive([]string{"gmail"}) {
		t.Fatalf("finalized threads must not count as active context")
	}
}

func TestPersistenceRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "threads.json")
	t.Setenv("THREADS_PATH", path)
	t.Setenv("THREAD_TTL_MS", "120000")

	s := NewThreadStore(newTestLogger())
	s.AddEvent("email drafting", types.ThreadEvent{Text: "dear bob"})
	s.AddEvent("reading paper", types.ThreadEvent{Text: "abstract"})

	reloaded := NewThreadStore(newTestLogger())
	threads := reloaded.AllThreads()
	if len(threads) != 2 {
		t.Fatalf("expected 2 threads after reload, got %d", len(threads))
	}
	th := reloaded.ThreadByTopic("email drafting")
	if th == nil || len(th.Events) != 1 || th.Events[0].Text != "dear bob" {
		t.Fatalf("reloaded thread lost data: %+v", th)
	}
}

func TestCorruptThreadsFileStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "threads.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("THREADS_PATH", path)

	s := NewThreadStore(newTestLogger())
	if got := s.AllThreads(); len(got) != 0 {
		t.Fatalf("corrupt file must yield an empty store, got %d threads", len(got))
	}
}

func TestClear(t *testing.T) {
	s := newTestStore(t, time.Minute)
	s.AddEvent("a", types.ThreadEvent{Text: "x"})
	s.AddEvent("b", types.ThreadEvent{Text: "y"})

	s.Clear()
	if got := s.AllThreads(); len(got) != 0 {
		t.Fatalf("expected empty store after clear, got %d", len(got))
	}

	reloaded := NewThreadStore(newTestLogger())
	if got := reloaded.AllThreads(); len(got) != 0 {
		t.Fatalf("clear must persist, reload found %d threads", len(got))
	}
}

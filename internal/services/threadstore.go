package services

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/google/uuid"

	"github.com/glancehq/glance-backend/internal/logger"
	"github.com/glancehq/glance-backend/internal/types"
	"github.com/glancehq/glance-backend/internal/utils"
)

// ThreadStore groups cleaned screen events into topic-keyed threads and
// persists the full set to a single JSON file after every mutation. The
// file is the source of truth across restarts; redis never holds threads.
type ThreadStore struct {
	log  *logger.Logger
	path string
	ttl  time.Duration

	mu      sync.Mutex
	threads map[string]*types.Thread

	now func() time.Time
}

func NewThreadStore(log *logger.Logger) *ThreadStore {
	path := utils.GetEnv("THREADS_PATH", "threads.json", log)
	ttl := utils.GetEnvAsMillis("THREAD_TTL_MS", 120000, log)

	s := &ThreadStore{
		log:     log.With("service", "ThreadStore"),
		path:    path,
		ttl:     ttl,
		threads: make(map[string]*types.Thread),
		now:     time.Now,
	}
	s.load()
	return s
}

// NormalizeTopic collapses a free-form topic label into a stable map key:
// lowercase, every run of non-alphanumeric characters replaced by a single
// underscore, trimmed of leading and trailing underscores.
func NormalizeTopic(topic string) string {
	lowered := strings.ToLower(strings.TrimSpace(topic))
	var b strings.Builder
	lastUnderscore := false
	for _, r := range lowered {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			lastUnderscore = false
			continue
		}
		if !lastUnderscore {
			b.WriteByte('_')
			lastUnderscore = true
		}
	}
	return strings.Trim(b.String(), "_")
}

// AddEvent appends one cleaned event to the thread for topic, creating the
// thread if none exists. Adding to a finalized thread revives it: the
// finalized flag clears while the identity and creation time are kept.
func (s *ThreadStore) AddEvent(topic string, event types.ThreadEvent) *types.Thread {
	key := NormalizeTopic(topic)
	if key == "" {
		key = "unrecognised"
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	t, ok := s.threads[key]
	if !ok {
		t = &types.Thread{
			ID:        uuid.NewString(),
			TopicKey:  key,
			Topic:     topic,
			CreatedAt: now,
		}
		s.threads[key] = t
		s.log.Info("Thread created", "topic_key", key)
	} else if t.Finalized {
		t.Finalized = false
		s.log.Info("Thread revived", "topic_key", key)
	}

	t.Events = append(t.Events, event)
	t.LastUpdated = now

	s.persistLocked()
	return cloneThread(t)
}

// FinalizeExpired marks every active thread whose last update is older than
// the TTL as finalized and returns the threads that transitioned on this
// call. Already-finalized threads are untouched, so the sweep is idempotent.
func (s *ThreadStore) FinalizeExpired() []*types.Thread {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.finalizeExpiredLocked()
}

func (s *ThreadStore) finalizeExpiredLocked() []*types.Thread {
	now := s.now()
	var transitioned []*types.Thread
	for _, t := range s.threads {
		if t.Finalized {
			continue
		}
		if now.Sub(t.LastUpdated) > s.ttl {
			t.Finalized = true
			transitioned = append(transitioned, cloneThread(t))
			s.log.Info("Thread finalized", "topic_key", t.TopicKey, "idle", now.Sub(t.LastUpdated).String())
		}
	}
	if len(transitioned) > 0 {
		s.persistLocked()
	}
	return transitioned
}

// ActiveThreads sweeps expirations and returns the threads still active,
// excluding any whose most recent event matches the denylist. Denylisted
// threads stay in the store; they are only hidden from readers.
func (s *ThreadStore) ActiveThreads(deny *utils.Denylist) []*types.Thread {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.finalizeExpiredLocked()

	var out []*types.Thread
	for _, t := range s.threads {
		if t.Finalized {
			continue
		}
		if last, ok := t.LastEvent(); ok && deny.Matches(last.AppName, last.WindowName) {
			continue
		}
		out = append(out, cloneThread(t))
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].LastUpdated.After(out[j].LastUpdated)
	})
	return out
}

// AllThreads returns every thread, active and finalized, newest first.
func (s *ThreadStore) AllThreads() []*types.Thread {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*types.Thread, 0, len(s.threads))
	for _, t := range s.threads {
		out = append(out, cloneThread(t))
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].LastUpdated.After(out[j].LastUpdated)
	})
	return out
}

// MostRecent returns the most recently updated active thread, or nil.
func (s *ThreadStore) MostRecent() *types.Thread {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.finalizeExpiredLocked()

	var best *types.Thread
	for _, t := range s.threads {
		if t.Finalized {
			continue
		}
		if best == nil || t.LastUpdated.After(best.LastUpdated) {
			best = t
		}
	}
	return cloneThread(best)
}

// ThreadByTopic resolves a free-form topic label to its thread, or nil.
func (s *ThreadStore) ThreadByTopic(topic string) *types.Thread {
	key := NormalizeTopic(topic)

	s.mu.Lock()
	defer s.mu.Unlock()

	return cloneThread(s.threads[key])
}

// FindByKeyword returns active threads whose topic or event text contains
// any of the given keywords, case-insensitively.
func (s *ThreadStore) FindByKeyword(keywords []string) []*types.Thread {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.finalizeExpiredLocked()

	var out []*types.Thread
	for _, t := range s.threads {
		if t.Finalized {
			continue
		}
		if threadMatchesKeywords(t, keywords) {
			out = append(out, cloneThread(t))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].LastUpdated.After(out[j].LastUpdated)
	})
	return out
}

// ContextActive reports whether any non-finalized thread mentions one of
// the keywords. The mail action uses this to pick a compose surface the
// user is already working in.
func (s *ThreadStore) ContextActive(keywords []string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.finalizeExpiredLocked()

	for _, t := range s.threads {
		if t.Finalized {
			continue
		}
		if threadMatchesKeywords(t, keywords) {
			return true
		}
	}
	return false
}

// Clear drops every thread and persists the empty set.
func (s *ThreadStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.threads = make(map[string]*types.Thread)
	s.persistLocked()
	s.log.Info("Thread store cleared")
}

func threadMatchesKeywords(t *types.Thread, keywords []string) bool {
	for _, kw := range keywords {
		needle := strings.ToLower(strings.TrimSpace(kw))
		if needle == "" {
			continue
		}
		if strings.Contains(strings.ToLower(t.Topic), needle) {
			return true
		}
		for _, ev := range t.Events {
			if strings.Contains(strings.ToLower(ev.Text), needle) ||
				strings.Contains(strings.ToLower(ev.AppName), needle) {
				return true
			}
		}
	}
	return false
}

func cloneThread(t *types.Thread) *types.Thread {
	if t == nil {
		return nil
	}
	cp := *t
	cp.Events = append([]types.ThreadEvent(nil), t.Events...)
	return &cp
}

type threadFile struct {
	Threads map[string]*types.Thread `json:"threads"`
}

// persistLocked writes the whole thread set to disk synchronously before
// the mutating call returns. Write to a temp file then rename so a crash
// mid-write never leaves a torn file behind.
func (s *ThreadStore) persistLocked() {
	payload, err := json.MarshalIndent(threadFile{Threads: s.threads}, "", "  ")
	if err != nil {
		s.log.Error("Failed to encode threads for persistence", "error", err)
		return
	}

	dir := filepath.Dir(s.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			s.log.Error("Failed to create threads directory", "dir", dir, "error", err)
			return
		}
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, payload, 0o644); err != nil {
		s.log.Error("Failed to write threads file", "path", tmp, "error", err)
		return
	}
	if err := os.Rename(tmp, s.path); err != nil {
		s.log.Error("Failed to replace threads file", "path", s.path, "error", err)
	}
}

// load restores threads from disk. A missing or unreadable file starts the
// store empty rather than failing the process.
func (s *ThreadStore) load() {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.Warn("Failed to read threads file, starting empty", "path", s.path, "error", err.Error())
		}
		return
	}

	var tf threadFile
	if err := json.Unmarshal(raw, &tf); err != nil {
		s.log.Warn("Threads file is corrupt, starting empty", "path", s.path, "error", err.Error())
		return
	}
	if tf.Threads != nil {
		s.threads = tf.Threads
	}
	s.log.Info("Threads loaded", "path", s.path, "count", len(s.threads))
}

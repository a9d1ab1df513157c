package services

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/glancehq/glance-backend/internal/logger"
	"github.com/glancehq/glance-backend/internal/types"
)

func newTestLogger() *logger.Logger {
	return &logger.Logger{SugaredLogger: zap.NewNop().Sugar()}
}

func newTestStore(t *testing.T, ttl time.Duration) *ThreadStore {
	t.Helper()
	t.Setenv("THREADS_PATH", filepath.Join(t.TempDir(), "threads.json"))
	t.Setenv("THREAD_TTL_MS", "120000")
	s := NewThreadStore(newTestLogger())
	s.ttl = ttl
	return s
}

type fakeLLM struct {
	mu        sync.Mutex
	responses []string
	calls     int
	err       error
}

func (f *fakeLLM) Complete(ctx context.Context, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	resp := ""
	if len(f.responses) > 0 {
		resp = f.responses[0]
		if len(f.responses) > 1 {
			f.responses = f.responses[1:]
		}
	}
	f.calls++
	return resp, nil
}

type fakeSuggester struct {
	mu         sync.Mutex
	suggestion *types.Suggestion
	err        error
	calls      int
	block      chan struct{}
}

func (f *fakeSuggester) Suggest(ctx context.Context, threads []*types.Thread) (*types.Suggestion, error) {
	f.mu.Lock()
	f.calls++
	block := f.block
	f.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.suggestion, nil
}

func (f *fakeSuggester) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

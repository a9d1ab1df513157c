package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/glancehq/glance-backend/internal/types"
)

type fakeKV struct {
	mu      sync.Mutex
	data    map[string]string
	getErr  error
	setErr  error
	getHits int
	setHits int
}

func newFakeKV() *fakeKV {
	return &fakeKV{data: map[string]string{}}
}

func (f *fakeKV) Get(ctx context.Context, key string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getHits++
	if f.getErr != nil {
		return "", false, f.getErr
	}
	v, ok := f.data[key]
	return v, ok, nil
}

func (f *fakeKV) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.setHits++
	if f.setErr != nil {
		return f.setErr
	}
	f.data[key] = value
	return nil
}

func (f *fakeKV) Del(ctx context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, k := range keys {
		delete(f.data, k)
	}
	return nil
}

func (f *fakeKV) Keys(ctx context.Context, pattern string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	prefix := strings.TrimSuffix(pattern, "*")
	var out []string
	for k := range f.data {
		if strings.HasPrefix(k, prefix) {
			out = append(out, k)
		}
	}
	return out, nil
}

func (f *fakeKV) Close() error { return nil }

type countingCleaner struct {
	mu     sync.Mutex
	calls  int
	output string
	err    error
}

func (c *countingCleaner) Clean(ctx context.Context, capture types.Capture) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return c.output, c.err
}

func (c *countingCleaner) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func newTestCache(kvStore *fakeKV, cleaner Cleaner) *CleanCache {
	cache := NewCleanCache(newTestLogger(), nil, cleaner)
	if kvStore != nil {
		cache.kv = kvStore
	}
	return cache
}

func TestGetOrComputeDeduplicatesIdenticalText(t *testing.T) {
	kvStore := newFakeKV()
	cleaner := &countingCleaner{output: `{"cleaned_text": "writing an email to bob", "topic": "email drafting"}`}
	cache := newTestCache(kvStore, cleaner)

	capture := types.Capture{AppName: "Chrome", Text: "raw ocr noise dear bob"}

	first, err := cache.GetOrCompute(context.Background(), capture)
	if err != nil {
		t.Fatal(err)
	}
	second, err := cache.GetOrCompute(context.Background(), capture)
	if err != nil {
		t.Fatal(err)
	}

	if cleaner.callCount() != 1 {
		t.Fatalf("identical text must be cleaned once, got %d calls", cleaner.callCount())
	}
	if first != second {
		t.Fatalf("cache hit must return identical result: %+v vs %+v", first, second)
	}
	if first.Topic != "email drafting" {
		t.Fatalf("unexpected topic: %q", first.Topic)
	}
}

func TestGetOrComputeHealsCorruptEntry(t *testing.T) {
	kvStore := newFakeKV()
	cleaner := &countingCleaner{output: `{"cleaned_text": "clean", "topic": "writing"}`}
	cache := newTestCache(kvStore, cleaner)

	capture := types.Capture{Text: "some raw text"}
	key := CacheKey(capture.Text)
	kvStore.data[key] = "{corrupt"

	got, err := cache.GetOrCompute(context.Background(), capture)
	if err != nil {
		t.Fatal(err)
	}
	if got.CleanedText != "clean" {
		t.Fatalf("corrupt entry must be recomputed, got %+v", got)
	}
	if cleaner.callCount() != 1 {
		t.Fatalf("expected exactly one recompute, got %d", cleaner.callCount())
	}
	if kvStore.data[key] == "{corrupt" {
		t.Fatalf("corrupt entry must be replaced")
	}
}

func TestGetOrComputeDegradesWhenKVFails(t *testing.T) {
	kvStore := newFakeKV()
	kvStore.getErr = errors.New("connection refused")
	kvStore.setErr = errors.New("connection refused")
	cleaner := &countingCleaner{output: `{"cleaned_text": "clean", "topic": "writing"}`}
	cache := newTestCache(kvStore, cleaner)

	capture := types.Capture{Text: "raw"}
	for i := 0; i < 2; i++ {
		got, err := cache.GetOrCompute(context.Background(), capture)
		if err != nil {
			t.Fatalf("cache failure must not surface as error: %v", err)
		}
		if got.CleanedText != "clean" {
			t.Fatalf("unexpected result: %+v", got)
		}
	}
	if cleaner.callCount() != 2 {
		t.Fatalf("failing cache must degrade to miss every time, got %d calls", cleaner.callCount())
	}
}

func TestGetOrComputeWithoutKV(t *testing.T) {
	cleaner := &countingCleaner{output: `{"cleaned_text": "clean", "topic": "writing"}`}
	cache := newTestCache(nil, cleaner)

	if _, err := cache.GetOrCompute(context.Background(), types.Capture{Text: "raw"}); err != nil {
		t.Fatalf("nil kv must behave as always-miss: %v", err)
	}
	if err := cache.Flush(context.Background()); err != nil {
		t.Fatalf("flush with nil kv must be a no-op: %v", err)
	}
}

func TestGetOrComputeFallbackIsNeverCached(t *testing.T) {
	kvStore := newFakeKV()
	cleaner := &countingCleaner{output: "sorry, I cannot help with that"}
	cache := newTestCache(kvStore, cleaner)

	capture := types.Capture{Text: "raw screen text"}
	got, err := cache.GetOrCompute(context.Background(), capture)
	if err != nil {
		t.Fatal(err)
	}
	if got.CleanedText != capture.Text || got.Topic != "unrecognised" {
		t.Fatalf("expected passthrough fallback, got %+v", got)
	}
	if len(kvStore.data) != 0 {
		t.Fatalf("fallback must never be cached")
	}

	if _, err := cache.GetOrCompute(context.Background(), capture); err != nil {
		t.Fatal(err)
	}
	if cleaner.callCount() != 2 {
		t.Fatalf("uncached fallback must recompute, got %d calls", cleaner.callCount())
	}
}

func TestFlushRemovesOnlyCleaningKeys(t *testing.T) {
	kvStore := newFakeKV()
	cleaner := &countingCleaner{output: `{"cleaned_text": "clean", "topic": "writing"}`}
	cache := newTestCache(kvStore, cleaner)

	if _, err := cache.GetOrCompute(context.Background(), types.Capture{Text: "raw"}); err != nil {
		t.Fatal(err)
	}
	kvStore.data["other:key"] = "keep me"

	if err := cache.Flush(context.Background()); err != nil {
		t.Fatal(err)
	}
	if _, ok := kvStore.data["other:key"]; !ok {
		t.Fatalf("flush must not touch foreign keyspaces")
	}
	for k := range kvStore.data {
		if strings.HasPrefix(k, "ocr:") {
			t.Fatalf("flush left cleaning key %q behind", k)
		}
	}
}

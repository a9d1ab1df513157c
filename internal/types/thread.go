package types

import (
	"time"
)

// ThreadEvent is one cleaned screen capture attributed to a thread.
// Events are kept in insertion order and never deduplicated.
type ThreadEvent struct {
	Timestamp  time.Time `json:"timestamp"`
	AppName    string    `json:"app_name"`
	WindowName string    `json:"window_name"`
	BrowserURL string    `json:"browser_url,omitempty"`
	Text       string    `json:"text"`
}

// Thread is a topic-keyed span of related screen activity. A thread is
// finalized when it has been idle past the configured TTL; a new event
// revives it in place.
type Thread struct {
	ID          string        `json:"id"`
	TopicKey    string        `json:"topic_key"`
	Topic       string        `json:"topic"`
	Events      []ThreadEvent `json:"events"`
	CreatedAt   time.Time     `json:"created_at"`
	LastUpdated time.Time     `json:"last_updated"`
	Finalized   bool          `json:"finalized"`
}

// LastEvent returns the most recent event of the thread.
func (t *Thread) LastEvent() (ThreadEvent, bool) {
	if t == nil || len(t.Events) == 0 {
		return ThreadEvent{}, false
	}
	return t.Events[len(t.Events)-1], true
}

// CleanedCapture is the structured result of cleaning one raw OCR capture.
type CleanedCapture struct {
	CleanedText string `json:"cleaned_text"`
	Topic       string `json:"topic"`
}

// Valid reports whether the capture carries the structure the cache is
// allowed to store. A blank cleaned_text would poison dedup forever.
func (c CleanedCapture) Valid() bool {
	return c.CleanedText != "" && c.Topic != ""
}

// Capture is one raw OCR result as returned by screenpipe.
type Capture struct {
	Timestamp  time.Time `json:"timestamp"`
	AppName    string    `json:"app_name"`
	WindowName string    `json:"window_name"`
	BrowserURL string    `json:"browser_url,omitempty"`
	Text       string    `json:"text"`
}

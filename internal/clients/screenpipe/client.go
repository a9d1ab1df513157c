package screenpipe

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/glancehq/glance-backend/internal/logger"
	"github.com/glancehq/glance-backend/internal/types"
	"github.com/glancehq/glance-backend/internal/utils"
)

// Client queries a local screenpipe instance for OCR captures.
type Client struct {
	log        *logger.Logger
	baseURL    string
	httpClient *http.Client
}

func NewClient(log *logger.Logger) *Client {
	baseURL := strings.TrimRight(utils.GetEnv("SCREENPIPE_URL", "http://localhost:3030", log), "/")
	return &Client{
		log:        log.With("service", "ScreenpipeClient"),
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

type searchResponse struct {
	Data []struct {
		Type    string `json:"type"`
		Content struct {
			Text       string `json:"text"`
			AppName    string `json:"app_name"`
			WindowName string `json:"window_name"`
			BrowserURL string `json:"browser_url"`
			Timestamp  string `json:"timestamp"`
		} `json:"content"`
	} `json:"data"`
}

// RecentOCR returns OCR captures between start and end, newest-window
// polling style: callers pass the span since their previous tick.
func (c *Client) RecentOCR(ctx context.Context, start, end time.Time, limit int) ([]types.Capture, error) {
	q := url.Values{}
	q.Set("content_type", "ocr")
	q.Set("limit", strconv.Itoa(limit))
	q.Set("start_time", start.UTC().Format(time.RFC3339))
	q.Set("end_time", end.UTC().Format(time.RFC3339))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return nil, readErr
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("screenpipe http %d: %s", resp.StatusCode, string(raw))
	}

	var sr searchResponse
	if err := json.Unmarshal(raw, &sr); err != nil {
		return nil, fmt.Errorf("screenpipe decode error: %w", err)
	}

	captures := make([]types.Capture, 0, len(sr.Data))
	for _, item := range sr.Data {
		ts, err := time.Parse(time.RFC3339Nano, item.Content.Timestamp)
		if err != nil {
			ts = end
		}
		captures = append(captures, types.Capture{
			Timestamp:  ts,
			AppName:    item.Content.AppName,
			WindowName: item.Content.WindowName,
			BrowserURL: item.Content.BrowserURL,
			Text:       item.Content.Text,
		})
	}
	return captures, nil
}

package services

import (
	"context"
	"fmt"

	"github.com/glancehq/glance-backend/internal/logger"
	"github.com/glancehq/glance-backend/internal/types"
)

// Cleaner turns one raw OCR capture into the model's raw response text.
// Parsing and validation of that response belong to the cache layer, which
// decides what is safe to store.
type Cleaner interface {
	Clean(ctx context.Context, capture types.Capture) (string, error)
}

type llmCleaner struct {
	log *logger.Logger
	llm LLMClient
}

func NewCleaner(log *logger.Logger, llm LLMClient) Cleaner {
	return &llmCleaner{
		log: log.With("service", "Cleaner"),
		llm: llm,
	}
}

const cleanPromptTemplate = `You are an OCR cleanup assistant. The text below was captured from a user's screen and contains OCR noise: broken words, menu chrome, stray symbols and duplicated fragments.

Context:
- Application: %s
- Window: %s
- URL: %s

Raw OCR text:
"""
%s
"""

Rewrite the meaningful content as coherent text and assign a short topic label describing what the user is doing (for example "email drafting", "flight booking", "code review").

Respond with ONLY a JSON object, no prose and no markdown fences:
{"cleaned_text": "<the cleaned content>", "topic": "<short topic label>"}`

func (c *llmCleaner) Clean(ctx context.Context, capture types.Capture) (string, error) {
	prompt := fmt.Sprintf(cleanPromptTemplate,
		capture.AppName,
		capture.WindowName,
		capture.BrowserURL,
		capture.Text,
	)

	raw, err := c.llm.Complete(ctx, prompt)
	if err != nil {
		c.log.Warn("Cleaning call failed", "app_name", capture.AppName, "error", err.Error())
		return "", err
	}
	return raw, nil
}

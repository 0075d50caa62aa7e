package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/openai/openai-go/v3"

	"github.com/joseph-ayodele/procurement-extractor/internal/common"
	"github.com/joseph-ayodele/procurement-extractor/internal/llm"
)

var _ llm.Completer = (*Client)(nil)

// Complete sends the prompt and page image as one user message and returns the
// assistant text. Failures wrap common.ErrTransport; an answer without choices
// wraps common.ErrMalformedResponse.
func (c *Client) Complete(ctx context.Context, req llm.CompletionRequest) (string, error) {
	rid := req.RequestID
	if rid == "" {
		rid = common.RequestIDFromContext(ctx)
	}
	if rid == "" {
		rid = uuid.New().String()
	}
	start := time.Now()

	c.log.Debug("openai.complete.start",
		"req_id", rid,
		"run_id", common.RunIDFromContext(ctx),
		"model", c.cfg.Model,
		"temp", c.cfg.Temperature,
		"prompt_len", len(req.Prompt),
		"png_bytes", len(req.PNG),
	)

	parts := []openai.ChatCompletionContentPartUnionParam{
		openai.TextContentPart(req.Prompt),
	}
	if len(req.PNG) > 0 {
		parts = append(parts, openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
			URL: llm.PNGDataURL(req.PNG),
		}))
	}

	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(c.cfg.Model),
		Messages:    []openai.ChatCompletionMessageParamUnion{openai.UserMessage(parts)},
		MaxTokens:   openai.Int(c.cfg.MaxTokens),
		Temperature: openai.Float(c.cfg.Temperature),
	})
	if err != nil {
		status := 0
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			status = apiErr.StatusCode
		}
		c.log.Warn("openai.complete.http_error",
			"req_id", rid,
			"status", status,
			"error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return "", fmt.Errorf("%w: %w", common.ErrTransport, err)
	}

	if len(resp.Choices) == 0 {
		c.log.Warn("openai.complete.no_choices", "req_id", rid, "elapsed_ms", time.Since(start).Milliseconds())
		return "", fmt.Errorf("no choices in openai response: %w", common.ErrMalformedResponse)
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	c.log.Debug("openai.complete.ok",
		"req_id", rid,
		"finish_reason", resp.Choices[0].FinishReason,
		"content_len", len(content),
		"prompt_tokens", resp.Usage.PromptTokens,
		"completion_tokens", resp.Usage.CompletionTokens,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return content, nil
}

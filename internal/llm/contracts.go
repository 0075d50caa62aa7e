package llm

import "context"

// CompletionRequest is one multimodal prompt: instructions plus a rendered page.
type CompletionRequest struct {
	RequestID string
	Prompt    string
	PNG       []byte
}

// Completer is the model transport the Analyzer depends on. Implementations
// return the raw assistant text; recovery and record building happen here.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// PageRequest describes one rendered page and where it came from.
type PageRequest struct {
	PNG       []byte
	Text      string
	District  string
	Round     string
	Filename  string
	PageIndex int // zero-based
}

// PageNumber is the one-based page number used in prompts and records.
func (r PageRequest) PageNumber() int {
	return r.PageIndex + 1
}

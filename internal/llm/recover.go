package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"unicode"

	"github.com/joseph-ayodele/procurement-extractor/internal/common"
)

// Strategy names the recovery step that produced a parse.
type Strategy int

const (
	StrategyNone Strategy = iota
	StrategyDirect
	StrategyRepaired
	StrategyArraySpan
	StrategyObjectSalvage
)

func (s Strategy) String() string {
	switch s {
	case StrategyDirect:
		return "direct"
	case StrategyRepaired:
		return "repaired"
	case StrategyArraySpan:
		return "array_span"
	case StrategyObjectSalvage:
		return "object_salvage"
	default:
		return "none"
	}
}

// Clean reports whether the response parsed without any repair.
func (s Strategy) Clean() bool { return s == StrategyDirect }

var (
	reTrailingComma = regexp.MustCompile(`,\s*([}\]])`)
	reArraySpan     = regexp.MustCompile(`(?s)\[.*\]`)
	reObject        = regexp.MustCompile(`\{[^{}]*(?:\{[^{}]*\}[^{}]*)*\}`)
)

// Recover turns a model response into a list of JSON objects, trying
// progressively more lenient strategies. The error wraps
// common.ErrMalformedResponse when nothing usable could be parsed.
func Recover(raw string) ([]map[string]any, Strategy, error) {
	content := stripFences(raw)

	if out, ok := decodeList(content); ok {
		return out, StrategyDirect, nil
	}

	repaired := reTrailingComma.ReplaceAllString(content, "$1")
	if unbalancedQuotes(repaired) {
		if prefix, ok := longestValidPrefix(repaired); ok {
			if out, ok := decodeList(prefix); ok {
				return out, StrategyRepaired, nil
			}
		}
	}
	if out, ok := decodeList(repaired); ok {
		return out, StrategyRepaired, nil
	}

	if span := reArraySpan.FindString(content); span != "" {
		if out, ok := decodeList(span); ok {
			return out, StrategyArraySpan, nil
		}
	}

	if out := salvageObjects(content); len(out) > 0 {
		return out, StrategyObjectSalvage, nil
	}

	return nil, StrategyNone, fmt.Errorf("recover %d bytes: %w", len(raw), common.ErrMalformedResponse)
}

// stripFences removes a leading ``` or ```lang line and anything after the
// closing fence.
func stripFences(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = s[3:]
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		s = strings.TrimLeftFunc(s, unicode.IsLetter)
	}
	if end := strings.Index(s, "```"); end >= 0 {
		s = s[:end]
	}
	return strings.TrimSpace(s)
}

// decodeList accepts an array (object elements kept) or a single object.
func decodeList(text string) ([]map[string]any, bool) {
	v, err := decodeNumbers(text)
	if err != nil {
		return nil, false
	}
	switch t := v.(type) {
	case []any:
		out := make([]map[string]any, 0, len(t))
		for _, el := range t {
			if m, ok := el.(map[string]any); ok {
				out = append(out, m)
			}
		}
		return out, true
	case map[string]any:
		return []map[string]any{t}, true
	default:
		return nil, false
	}
}

// decodeNumbers parses one JSON document, keeping numbers as json.Number so
// costs and counts keep the digits the model wrote.
func decodeNumbers(text string) (any, error) {
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New("trailing data after JSON value")
	}
	return v, nil
}

func unbalancedQuotes(s string) bool {
	n := strings.Count(s, `"`) - strings.Count(s, `\"`)
	return n%2 != 0
}

// longestValidPrefix shrinks s from the end until it is valid JSON. Only cut
// points after a closing bracket can yield a valid document.
func longestValidPrefix(s string) (string, bool) {
	for i := len(s); i > 0; i-- {
		if c := s[i-1]; c != ']' && c != '}' {
			continue
		}
		if json.Valid([]byte(s[:i])) {
			return s[:i], true
		}
	}
	return "", false
}

// salvageObjects parses every brace-delimited object (one nesting level)
// independently and keeps those naming a software product.
func salvageObjects(content string) []map[string]any {
	var out []map[string]any
	for _, match := range reObject.FindAllString(content, -1) {
		m, err := decodeNumbers(match)
		if err != nil {
			continue
		}
		obj, ok := m.(map[string]any)
		if !ok {
			continue
		}
		if sw, _ := obj["software"].(string); strings.TrimSpace(sw) != "" {
			out = append(out, obj)
		}
	}
	return out
}

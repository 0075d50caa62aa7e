package main

import (
	"strings"

	"github.com/joseph-ayodele/procurement-extractor/internal/common"
)

// listFlag collects a repeatable flag; each value may also be a comma list.
type listFlag []string

func (l *listFlag) String() string { return strings.Join(*l, ",") }

func (l *listFlag) Set(v string) error {
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			*l = append(*l, part)
		}
	}
	return nil
}

// overrides are the command-line values that may replace configured input settings.
type overrides struct {
	root           string
	districts      []string
	fullRun        bool
	limitDistricts int
	limitPDFs      int
}

// applyOverrides layers flags the user actually passed (set, keyed by flag
// name) over cfg. Unset flags leave the config, env and file values alone.
// Naming districts lifts the district limit; --full-run lifts both limits.
func applyOverrides(cfg *common.Config, o overrides, set map[string]bool) {
	if set["root"] && o.root != "" {
		cfg.Input.Root = o.root
	}
	if set["limit-pdfs"] {
		cfg.Input.LimitPDFsPerRound = o.limitPDFs
	}
	if set["limit-districts"] {
		cfg.Input.LimitDistricts = o.limitDistricts
	}
	if len(o.districts) > 0 {
		cfg.Input.Districts = o.districts
	}
	if len(cfg.Input.Districts) > 0 {
		cfg.Input.LimitDistricts = 0
	}
	if o.fullRun {
		cfg.Input.LimitDistricts = 0
		cfg.Input.LimitPDFsPerRound = 0
	}
}

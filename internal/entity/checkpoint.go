package entity

import "time"

// Checkpoint is the cumulative state of a run handed to every result sink.
// Records and Summaries only grow within a run; sinks remember how much of
// each they already persisted.
type Checkpoint struct {
	RunID     string
	Seq       int
	Final     bool
	At        time.Time
	Records   []SoftwareRecord
	Summaries []DistrictSummary
}

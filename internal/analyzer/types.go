package analyzer

import (
	"time"
)

// Endpoint is a declared (method, path template) pair from an API
// specification. The path template is a slash-separated sequence of literal
// segments and named parameter segments such as {id}.
type Endpoint struct {
	Method string `json:"method" yaml:"method"`
	Path   string `json:"path" yaml:"path"`
}

// String returns the canonical "METHOD /path" form used in reports and keys.
func (e Endpoint) String() string {
	return e.Method + " " + e.Path
}

// LogRecord is one observed request taken from an access log. A zero
// Timestamp means the record carried no usable timestamp. Caller is empty
// when the request was anonymous.
type LogRecord struct {
	Method    string    `json:"method"`
	Path      string    `json:"path"`
	Timestamp time.Time `json:"timestamp,omitempty"`
	Caller    string    `json:"caller,omitempty"`
}

// UsageStat holds the usage observed for a single endpoint over one
// analysis pass.
type UsageStat struct {
	CallCount int        `json:"call_count"`
	FirstSeen *time.Time `json:"first_seen,omitempty"`
	LastSeen  *time.Time `json:"last_seen,omitempty"`
	Callers   []string   `json:"callers"`
}

// UniqueCallers returns the number of distinct callers observed.
func (u UsageStat) UniqueCallers() int {
	return len(u.Callers)
}

// Result is the analysis outcome for a single endpoint. Confidence is a
// 0-100 score where higher means more likely unused. Reasons explain the
// contributing factors in a fixed, reproducible order.
type Result struct {
	Endpoint   Endpoint  `json:"endpoint"`
	Usage      UsageStat `json:"usage"`
	Confidence int       `json:"confidence"`
	Reasons    []string  `json:"reasons"`
}

// Diagnostics collects the run-level data-quality counters. None of these
// conditions fail an analysis; they are surfaced so callers can render
// report footnotes and spec authors can fix overlapping templates.
type Diagnostics struct {
	Processed int `json:"log_entries_processed"`
	Matched   int `json:"log_entries_matched"`
	Malformed int `json:"log_entries_malformed"`
	Unmatched int `json:"log_entries_unmatched"`
	Windowed  int `json:"log_entries_outside_window"`
	Ambiguous int `json:"ambiguous_matches"`
}

// Options configures a single analysis pass. The zero value analyzes the
// whole log with the current time as reference.
type Options struct {
	// Window, when positive, restricts aggregation to records no older
	// than ReferenceTime minus Window. Records without a timestamp are
	// always included.
	Window time.Duration

	// ReferenceTime anchors all age calculations. Zero means time.Now,
	// overridable for deterministic tests and reproducible reports.
	ReferenceTime time.Time
}

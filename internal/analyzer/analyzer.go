// Package analyzer implements the usage-analysis engine behind the
// graveyard tool: it cross-references an API's declared endpoint templates
// against observed access logs and scores each endpoint on how likely it is
// to be unused. The engine is single-pass, streaming and free of I/O; spec
// parsing, log acquisition, report rendering and pruning live in their own
// packages.
package analyzer

import (
	"sort"
	"time"
)

// Analyze runs the full spec-times-logs analysis for one service.
//
// Every declared endpoint appears exactly once in the returned results,
// including endpoints no log record matched (zero usage scores 100).
// Results are ordered most-likely-unused first: confidence descending, then
// call count ascending, then method and path, so identical inputs always
// produce byte-identical reports.
//
// Log data quality never fails the call; malformed, unmatched and
// window-excluded records are tolerated and tallied in Diagnostics. A
// ConfigurationError is returned for an empty endpoint set or a negative
// window, before any record is consumed.
func Analyze(endpoints []Endpoint, src RecordSource, opts Options) ([]Result, Diagnostics, error) {
	var diag Diagnostics

	if len(endpoints) == 0 {
		return nil, diag, &ConfigurationError{Reason: "empty endpoint set, nothing to analyze"}
	}
	if opts.Window < 0 {
		return nil, diag, &ConfigurationError{Reason: "window must not be negative"}
	}

	reference := opts.ReferenceTime
	if reference.IsZero() {
		reference = time.Now().UTC()
	}
	var cutoff time.Time
	if opts.Window > 0 {
		cutoff = reference.Add(-opts.Window)
	}

	normalized, keys := normalizeEndpoints(endpoints)
	matcher := NewMatcher(normalized)

	stats, err := aggregate(matcher, keys, src, cutoff, &diag)
	if err != nil {
		return nil, diag, err
	}

	results := make([]Result, 0, len(normalized))
	for _, ep := range normalized {
		usage := stats[ep.String()].usage()
		confidence, reasons := Score(usage, reference)
		results = append(results, Result{
			Endpoint:   ep,
			Usage:      usage,
			Confidence: confidence,
			Reasons:    reasons,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.Confidence != b.Confidence {
			return a.Confidence > b.Confidence
		}
		if a.Usage.CallCount != b.Usage.CallCount {
			return a.Usage.CallCount < b.Usage.CallCount
		}
		if a.Endpoint.Method != b.Endpoint.Method {
			return a.Endpoint.Method < b.Endpoint.Method
		}
		return a.Endpoint.Path < b.Endpoint.Path
	})

	return results, diag, nil
}

// FilterByConfidence returns the results at or above the given threshold,
// preserving order. This is the slice the prune command works from.
func FilterByConfidence(results []Result, threshold int) []Result {
	var out []Result
	for _, r := range results {
		if r.Confidence >= threshold {
			out = append(out, r)
		}
	}
	return out
}

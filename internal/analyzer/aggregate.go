package analyzer

import (
	"errors"
	"io"
	"sort"
	"strings"
	"time"
)

// endpointStats is the mutable fold state for one endpoint.
type endpointStats struct {
	callCount int
	firstSeen time.Time
	lastSeen  time.Time
	callers   map[string]struct{}
}

// aggregate folds the record stream into per-endpoint stats in a single
// forward pass. Every record is consumed exactly once; nothing is retained
// beyond the per-endpoint counters, so memory stays O(endpoints).
//
// A zero cutoff disables window filtering. Records strictly older than the
// cutoff are consumed but excluded; records without a timestamp are always
// included. Records missing method or path are skipped as malformed. Only a
// genuine stream failure (a non-EOF source error) aborts the pass.
func aggregate(m *Matcher, keys map[string]Endpoint, src RecordSource, cutoff time.Time, diag *Diagnostics) (map[string]*endpointStats, error) {
	stats := make(map[string]*endpointStats, len(keys))
	for k := range keys {
		stats[k] = &endpointStats{callers: make(map[string]struct{})}
	}

	for {
		rec, err := src.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		diag.Processed++

		if rec.Method == "" || rec.Path == "" {
			diag.Malformed++
			continue
		}
		if !cutoff.IsZero() && !rec.Timestamp.IsZero() && rec.Timestamp.Before(cutoff) {
			diag.Windowed++
			continue
		}

		ep, matched := m.Match(rec.Method, rec.Path)
		if matched == 0 {
			diag.Unmatched++
			continue
		}
		if matched > 1 {
			diag.Ambiguous++
		}

		s, ok := stats[ep.String()]
		if !ok {
			// Matcher and endpoint set are built from the same input,
			// so this cannot happen; count it rather than trust it.
			diag.Unmatched++
			continue
		}
		diag.Matched++
		s.callCount++
		if !rec.Timestamp.IsZero() {
			if s.lastSeen.IsZero() || rec.Timestamp.After(s.lastSeen) {
				s.lastSeen = rec.Timestamp
			}
			if s.firstSeen.IsZero() || rec.Timestamp.Before(s.firstSeen) {
				s.firstSeen = rec.Timestamp
			}
		}
		if rec.Caller != "" {
			s.callers[rec.Caller] = struct{}{}
		}
	}

	return stats, nil
}

// usage converts fold state into the read-only UsageStat handed to the
// scorer and to reports. Callers come out sorted so equal inputs always
// render identically.
func (s *endpointStats) usage() UsageStat {
	u := UsageStat{
		CallCount: s.callCount,
		Callers:   make([]string, 0, len(s.callers)),
	}
	for c := range s.callers {
		u.Callers = append(u.Callers, c)
	}
	sort.Strings(u.Callers)
	if !s.firstSeen.IsZero() {
		t := s.firstSeen
		u.FirstSeen = &t
	}
	if !s.lastSeen.IsZero() {
		t := s.lastSeen
		u.LastSeen = &t
	}
	return u
}

// normalizeEndpoints upper-cases methods and drops duplicate declarations,
// keeping first occurrence order. The returned key map preserves the
// one-result-per-template invariant.
func normalizeEndpoints(endpoints []Endpoint) ([]Endpoint, map[string]Endpoint) {
	out := make([]Endpoint, 0, len(endpoints))
	keys := make(map[string]Endpoint, len(endpoints))
	for _, ep := range endpoints {
		n := Endpoint{Method: strings.ToUpper(ep.Method), Path: ep.Path}
		if _, seen := keys[n.String()]; seen {
			continue
		}
		keys[n.String()] = n
		out = append(out, n)
	}
	return out, keys
}

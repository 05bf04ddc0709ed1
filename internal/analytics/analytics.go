// Package analytics derives trends, anomalies, and cost estimates from
// persisted scan history.
package analytics

import (
	"fmt"
	"math"
	"sort"

	"go.uber.org/zap"

	"github.com/adylagad/gh-api-graveyard/internal/history"
)

// Anomaly detection tunables.
const (
	// minScansForAnomalies is the fewest scans a series needs before
	// z-scores mean anything.
	minScansForAnomalies = 5
	// anomalyZScore flags scans whose unused count sits this many
	// standard deviations from the series mean.
	anomalyZScore = 2.0
)

// Trend directions.
const (
	TrendGrowing   = "growing"
	TrendShrinking = "shrinking"
	TrendStable    = "stable"
)

// EndpointChange describes how one endpoint moved between two scans.
type EndpointChange struct {
	Method        string `json:"method"`
	Path          string `json:"path"`
	OldCallCount  int    `json:"old_call_count"`
	NewCallCount  int    `json:"new_call_count"`
	OldConfidence int    `json:"old_confidence"`
	NewConfidence int    `json:"new_confidence"`
}

// Comparison is the diff between two scans of the same service.
type Comparison struct {
	OldScanID   string           `json:"old_scan_id"`
	NewScanID   string           `json:"new_scan_id"`
	Added       []string         `json:"added_endpoints"`
	Removed     []string         `json:"removed_endpoints"`
	NewlyUnused []EndpointChange `json:"newly_unused"`
	NewlyUsed   []EndpointChange `json:"newly_used"`
}

// TrendPoint is one scan's summary within a trend series.
type TrendPoint struct {
	ScanID          string `json:"scan_id"`
	CreatedAt       string `json:"created_at"`
	TotalEndpoints  int    `json:"total_endpoints"`
	UnusedEndpoints int    `json:"unused_endpoints"`
}

// Trend is a chronological series of scan summaries with a direction verdict.
type Trend struct {
	Service   string       `json:"service"`
	Points    []TrendPoint `json:"points"`
	Direction string       `json:"direction"`
}

// ScanAnomaly flags a scan whose unused count departs from the series.
type ScanAnomaly struct {
	ScanID          string  `json:"scan_id"`
	CreatedAt       string  `json:"created_at"`
	UnusedEndpoints int     `json:"unused_endpoints"`
	ZScore          float64 `json:"z_score"`
}

// TrendAnalyzer reads persisted scans and computes deltas.
type TrendAnalyzer struct {
	logger *zap.Logger
}

// NewTrendAnalyzer returns a TrendAnalyzer.
func NewTrendAnalyzer(logger *zap.Logger) *TrendAnalyzer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TrendAnalyzer{logger: logger}
}

// CompareScans diffs two full scans. Endpoints present only in the newer
// scan are added, endpoints present only in the older one are removed. An
// endpoint is newly unused when its call count dropped to zero, newly used
// when it rose from zero.
func (a *TrendAnalyzer) CompareScans(oldScan, newScan *history.Scan) (*Comparison, error) {
	if oldScan == nil || newScan == nil {
		return nil, fmt.Errorf("analytics: both scans are required")
	}

	oldByKey := make(map[string]history.EndpointRecord, len(oldScan.Endpoints))
	for _, ep := range oldScan.Endpoints {
		oldByKey[ep.Key()] = ep
	}
	newByKey := make(map[string]history.EndpointRecord, len(newScan.Endpoints))
	for _, ep := range newScan.Endpoints {
		newByKey[ep.Key()] = ep
	}

	cmp := &Comparison{OldScanID: oldScan.ID, NewScanID: newScan.ID}
	for key, ep := range newByKey {
		prev, ok := oldByKey[key]
		if !ok {
			cmp.Added = append(cmp.Added, key)
			continue
		}
		change := EndpointChange{
			Method:        ep.Method,
			Path:          ep.Path,
			OldCallCount:  prev.CallCount,
			NewCallCount:  ep.CallCount,
			OldConfidence: prev.Confidence,
			NewConfidence: ep.Confidence,
		}
		switch {
		case prev.CallCount > 0 && ep.CallCount == 0:
			cmp.NewlyUnused = append(cmp.NewlyUnused, change)
		case prev.CallCount == 0 && ep.CallCount > 0:
			cmp.NewlyUsed = append(cmp.NewlyUsed, change)
		}
	}
	for key := range oldByKey {
		if _, ok := newByKey[key]; !ok {
			cmp.Removed = append(cmp.Removed, key)
		}
	}

	sort.Strings(cmp.Added)
	sort.Strings(cmp.Removed)
	sortChanges(cmp.NewlyUnused)
	sortChanges(cmp.NewlyUsed)

	a.logger.Debug("scans compared",
		zap.String("old_scan", oldScan.ID),
		zap.String("new_scan", newScan.ID),
		zap.Int("newly_unused", len(cmp.NewlyUnused)),
		zap.Int("newly_used", len(cmp.NewlyUsed)))
	return cmp, nil
}

func sortChanges(changes []EndpointChange) {
	sort.Slice(changes, func(i, j int) bool {
		if changes[i].Method != changes[j].Method {
			return changes[i].Method < changes[j].Method
		}
		return changes[i].Path < changes[j].Path
	})
}

// Trends turns a chronological scan series into a trend. The direction
// compares the last unused count against the first: more unused endpoints
// means the graveyard is growing.
func (a *TrendAnalyzer) Trends(service string, scans []*history.Scan) *Trend {
	trend := &Trend{Service: service, Direction: TrendStable}
	for _, s := range scans {
		trend.Points = append(trend.Points, TrendPoint{
			ScanID:          s.ID,
			CreatedAt:       s.CreatedAt.Format("2006-01-02"),
			TotalEndpoints:  s.TotalEndpoints,
			UnusedEndpoints: s.UnusedEndpoints,
		})
	}
	if len(scans) >= 2 {
		first := scans[0].UnusedEndpoints
		last := scans[len(scans)-1].UnusedEndpoints
		switch {
		case last > first:
			trend.Direction = TrendGrowing
		case last < first:
			trend.Direction = TrendShrinking
		}
	}
	return trend
}

// DetectAnomalies flags scans whose unused count is an outlier within the
// series. Fewer than five scans yields no anomalies.
func (a *TrendAnalyzer) DetectAnomalies(scans []*history.Scan) []ScanAnomaly {
	if len(scans) < minScansForAnomalies {
		return nil
	}

	var sum float64
	for _, s := range scans {
		sum += float64(s.UnusedEndpoints)
	}
	mean := sum / float64(len(scans))

	var variance float64
	for _, s := range scans {
		d := float64(s.UnusedEndpoints) - mean
		variance += d * d
	}
	stddev := math.Sqrt(variance / float64(len(scans)))
	if stddev == 0 {
		return nil
	}

	var anomalies []ScanAnomaly
	for _, s := range scans {
		z := (float64(s.UnusedEndpoints) - mean) / stddev
		if math.Abs(z) >= anomalyZScore {
			anomalies = append(anomalies, ScanAnomaly{
				ScanID:          s.ID,
				CreatedAt:       s.CreatedAt.Format("2006-01-02"),
				UnusedEndpoints: s.UnusedEndpoints,
				ZScore:          math.Round(z*100) / 100,
			})
		}
	}
	return anomalies
}

// Package report renders analysis output for humans and machines. It
// consumes the engine's structured results and diagnostics as-is; nothing
// here feeds back into scoring.
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/adylagad/gh-api-graveyard/internal/analyzer"
)

// Export formats.
const (
	FormatMarkdown = "markdown"
	FormatJSON     = "json"
	FormatCSV      = "csv"
)

// HighConfidence marks the summary bucket for endpoints that are very
// likely dead.
const HighConfidence = 80

const maxReasonsWidth = 60

// Report is one rendered analysis run.
type Report struct {
	ID          string               `json:"id"`
	Service     string               `json:"service"`
	GeneratedAt time.Time            `json:"generated_at"`
	Results     []analyzer.Result    `json:"results"`
	Diagnostics analyzer.Diagnostics `json:"diagnostics"`
}

// Summary are the headline counts shown before the endpoint table.
type Summary struct {
	TotalEndpoints int `json:"total_endpoints"`
	Unused         int `json:"unused_endpoints"`
	HighConfidence int `json:"high_confidence_unused"`
}

// New assembles a report from one analysis run.
func New(service string, results []analyzer.Result, diag analyzer.Diagnostics, generatedAt time.Time) *Report {
	if service == "" {
		service = "API Service"
	}
	return &Report{
		ID:          uuid.New().String(),
		Service:     service,
		GeneratedAt: generatedAt.UTC(),
		Results:     results,
		Diagnostics: diag,
	}
}

// Summarize computes the headline counts.
func (r *Report) Summarize() Summary {
	s := Summary{TotalEndpoints: len(r.Results)}
	for _, res := range r.Results {
		if res.Usage.CallCount == 0 {
			s.Unused++
		}
		if res.Confidence >= HighConfidence {
			s.HighConfidence++
		}
	}
	return s
}

// Render produces the report in the requested format; unknown formats fall
// back to markdown.
func (r *Report) Render(format string) ([]byte, error) {
	switch format {
	case FormatJSON:
		return json.MarshalIndent(r, "", "  ")
	case FormatCSV:
		return r.renderCSV()
	default:
		return []byte(r.Markdown()), nil
	}
}

// Markdown renders the human-readable report: summary, endpoint table,
// score legend and the data-quality footnotes.
func (r *Report) Markdown() string {
	summary := r.Summarize()

	var md strings.Builder
	fmt.Fprintf(&md, "# API Endpoint Usage Analysis: %s\n\n", r.Service)
	fmt.Fprintf(&md, "**Generated:** %s\n", r.GeneratedAt.Format("2006-01-02 15:04:05 UTC"))
	fmt.Fprintf(&md, "**Total Endpoints:** %d\n", summary.TotalEndpoints)
	fmt.Fprintf(&md, "**Unused Endpoints:** %d\n", summary.Unused)
	fmt.Fprintf(&md, "**High Confidence Unused (>=%d):** %d\n", HighConfidence, summary.HighConfidence)

	md.WriteString("\n## Endpoint Analysis\n\n")
	md.WriteString("| Confidence | Method | Path | Calls | Last Seen | Callers | Reasons |\n")
	md.WriteString("|------------|--------|------|-------|-----------|---------|---------|\n")
	for _, res := range r.Results {
		fmt.Fprintf(&md, "| %d | %s | %s | %d | %s | %d | %s |\n",
			res.Confidence,
			res.Endpoint.Method,
			res.Endpoint.Path,
			res.Usage.CallCount,
			formatLastSeen(res.Usage.LastSeen),
			res.Usage.UniqueCallers(),
			truncate(strings.Join(res.Reasons, "; "), maxReasonsWidth),
		)
	}

	md.WriteString("\n## Confidence Score Legend\n\n")
	md.WriteString("- **100**: Never called in logs\n")
	md.WriteString("- **80-99**: Very likely unused (low calls, old, few callers)\n")
	md.WriteString("- **60-79**: Possibly unused (some usage but limited)\n")
	md.WriteString("- **40-59**: Moderate usage\n")
	md.WriteString("- **0-39**: Actively used\n")

	d := r.Diagnostics
	md.WriteString("\n## Log Diagnostics\n\n")
	fmt.Fprintf(&md, "- Entries processed: %d\n", d.Processed)
	fmt.Fprintf(&md, "- Entries matched: %d\n", d.Matched)
	fmt.Fprintf(&md, "- Entries unmatched: %d\n", d.Unmatched)
	fmt.Fprintf(&md, "- Entries malformed: %d\n", d.Malformed)
	fmt.Fprintf(&md, "- Entries outside window: %d\n", d.Windowed)
	if d.Ambiguous > 0 {
		fmt.Fprintf(&md, "- Ambiguous template matches: %d (overlapping path templates in the spec)\n", d.Ambiguous)
	}

	return md.String()
}

func (r *Report) renderCSV() ([]byte, error) {
	var buf strings.Builder
	w := csv.NewWriter(&buf)

	if err := w.Write([]string{"confidence", "method", "path", "calls", "last_seen", "unique_callers", "reasons"}); err != nil {
		return nil, err
	}
	for _, res := range r.Results {
		record := []string{
			strconv.Itoa(res.Confidence),
			res.Endpoint.Method,
			res.Endpoint.Path,
			strconv.Itoa(res.Usage.CallCount),
			formatLastSeen(res.Usage.LastSeen),
			strconv.Itoa(res.Usage.UniqueCallers()),
			strings.Join(res.Reasons, "; "),
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}

	w.Flush()
	return []byte(buf.String()), w.Error()
}

func formatLastSeen(t *time.Time) string {
	if t == nil {
		return "Never"
	}
	return t.Format("2006-01-02")
}

func truncate(s string, width int) string {
	if len(s) <= width {
		return s
	}
	return s[:width-3] + "..."
}

// Package logs adapts JSONL access-log files into the analyzer's record
// stream. One JSON object per line; unparseable lines and lines missing the
// required method/path fields are dropped here, before they reach the core,
// and counted for diagnostics. Files are read line by line so multi-GB logs
// never reside in memory.
package logs

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
	"go.uber.org/zap"

	"github.com/adylagad/gh-api-graveyard/internal/analyzer"
)

// Lines longer than this are log corruption, not data.
const maxLineBytes = 1024 * 1024

// rawEntry is the permissive wire shape of one log line. Caller identity
// may arrive under several keys; the first non-empty of caller, user,
// client_id wins.
type rawEntry struct {
	Method    string `json:"method"`
	Path      string `json:"path"`
	Timestamp string `json:"timestamp"`
	Caller    string `json:"caller"`
	User      string `json:"user"`
	ClientID  string `json:"client_id"`
}

// Reader streams LogRecords from a JSONL source. It implements
// analyzer.RecordSource and is forward-only: once exhausted it cannot be
// rewound.
type Reader struct {
	scanner *bufio.Scanner
	closers []io.Closer
	logger  *zap.Logger

	line    int
	skipped int
}

// NewReader wraps an arbitrary JSONL stream.
func NewReader(r io.Reader, logger *zap.Logger) *Reader {
	if logger == nil {
		logger = zap.NewNop()
	}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLineBytes)
	return &Reader{scanner: sc, logger: logger}
}

// Open opens a JSONL log file for streaming. Files ending in .gz are
// transparently decompressed.
func Open(path string, logger *zap.Logger) (*Reader, error) {
	f, err := os.Open(path) // #nosec G304 - caller-supplied log path
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}

	var src io.Reader = f
	closers := []io.Closer{f}
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("open gzip log file: %w", err)
		}
		src = gz
		closers = []io.Closer{gz, f}
	}

	r := NewReader(src, logger)
	r.closers = closers
	return r, nil
}

// Next returns the next well-formed record, skipping blank and invalid
// lines, and io.EOF at end of stream.
func (r *Reader) Next() (analyzer.LogRecord, error) {
	for r.scanner.Scan() {
		r.line++
		line := strings.TrimSpace(r.scanner.Text())
		if line == "" {
			continue
		}

		var raw rawEntry
		if err := json.Unmarshal([]byte(line), &raw); err != nil {
			r.skipped++
			r.logger.Debug("skipping invalid JSON line",
				zap.Int("line", r.line), zap.Error(err))
			continue
		}
		if raw.Method == "" || raw.Path == "" {
			r.skipped++
			r.logger.Debug("skipping log line missing method or path",
				zap.Int("line", r.line))
			continue
		}

		return analyzer.LogRecord{
			Method:    raw.Method,
			Path:      raw.Path,
			Timestamp: parseTimestamp(raw.Timestamp),
			Caller:    firstNonEmpty(raw.Caller, raw.User, raw.ClientID),
		}, nil
	}
	if err := r.scanner.Err(); err != nil {
		return analyzer.LogRecord{}, fmt.Errorf("read log stream: %w", err)
	}
	return analyzer.LogRecord{}, io.EOF
}

// Skipped returns how many lines were dropped for data-quality reasons.
func (r *Reader) Skipped() int { return r.skipped }

// Close releases the underlying file handles, if any.
func (r *Reader) Close() error {
	var firstErr error
	for _, c := range r.closers {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// parseTimestamp accepts the ISO-8601 shapes seen in real access logs. An
// unparseable timestamp yields the zero time; the record still counts, it
// just carries no recency signal.
func parseTimestamp(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02",
	} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

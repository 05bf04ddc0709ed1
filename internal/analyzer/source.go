package analyzer

import "io"

// RecordSource is a lazy, forward-only stream of log records. Next returns
// io.EOF once the stream is exhausted. Sources are single-pass and never
// rewound, which keeps analysis memory bounded by the number of endpoints
// rather than the number of log entries.
type RecordSource interface {
	Next() (LogRecord, error)
}

// SliceSource adapts an in-memory slice of records to a RecordSource.
// Intended for tests and small fixtures.
type SliceSource struct {
	records []LogRecord
	pos     int
}

// NewSliceSource creates a source over the given records.
func NewSliceSource(records []LogRecord) *SliceSource {
	return &SliceSource{records: records}
}

// Next returns the next record or io.EOF.
func (s *SliceSource) Next() (LogRecord, error) {
	if s.pos >= len(s.records) {
		return LogRecord{}, io.EOF
	}
	r := s.records[s.pos]
	s.pos++
	return r, nil
}

package analyzer

import (
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var analysisRef = time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)

func ts(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestAnalyze_OneResultPerEndpoint(t *testing.T) {
	endpoints := []Endpoint{
		{Method: "GET", Path: "/users"},
		{Method: "DELETE", Path: "/users/{id}"},
		{Method: "GET", Path: "/posts"},
	}

	t.Run("empty log still yields every endpoint", func(t *testing.T) {
		results, diag, err := Analyze(endpoints, NewSliceSource(nil), Options{ReferenceTime: analysisRef})
		require.NoError(t, err)
		assert.Len(t, results, 3)
		assert.Zero(t, diag.Processed)

		for _, r := range results {
			assert.Equal(t, 100, r.Confidence)
			assert.Equal(t, []string{"Never called in logs"}, r.Reasons)
		}
	})

	t.Run("duplicate declarations collapse to one result", func(t *testing.T) {
		dup := append([]Endpoint{{Method: "get", Path: "/users"}}, endpoints...)
		results, _, err := Analyze(dup, NewSliceSource(nil), Options{ReferenceTime: analysisRef})
		require.NoError(t, err)
		assert.Len(t, results, 3)
	})
}

func TestAnalyze_Scenario(t *testing.T) {
	// spec = {GET /users, DELETE /users/{id}, GET /posts}; two GET /users
	// calls from one caller; the other two endpoints stay untouched.
	endpoints := []Endpoint{
		{Method: "GET", Path: "/users"},
		{Method: "DELETE", Path: "/users/{id}"},
		{Method: "GET", Path: "/posts"},
	}
	logs := []LogRecord{
		{Method: "GET", Path: "/users", Timestamp: ts("2026-02-01T00:00:00Z"), Caller: "web"},
		{Method: "GET", Path: "/users", Timestamp: ts("2026-02-02T00:00:00Z"), Caller: "web"},
	}

	results, diag, err := Analyze(endpoints, NewSliceSource(logs), Options{ReferenceTime: analysisRef})
	require.NoError(t, err)
	require.Len(t, results, 3)

	byKey := make(map[string]Result)
	for _, r := range results {
		byKey[r.Endpoint.String()] = r
	}

	used := byKey["GET /users"]
	assert.Less(t, used.Confidence, 100)
	assert.Equal(t, 2, used.Usage.CallCount)
	assert.Equal(t, []string{"web"}, used.Usage.Callers)
	require.NotNil(t, used.Usage.LastSeen)
	assert.Equal(t, ts("2026-02-02T00:00:00Z"), *used.Usage.LastSeen)
	require.NotNil(t, used.Usage.FirstSeen)
	assert.Equal(t, ts("2026-02-01T00:00:00Z"), *used.Usage.FirstSeen)

	assert.Equal(t, 100, byKey["DELETE /users/{id}"].Confidence)
	assert.Equal(t, 100, byKey["GET /posts"].Confidence)

	assert.Equal(t, 2, diag.Processed)
	assert.Equal(t, 2, diag.Matched)
}

func TestAnalyze_MalformedRecords(t *testing.T) {
	endpoints := []Endpoint{{Method: "GET", Path: "/users/{id}"}}
	logs := []LogRecord{
		{Path: "/users/123"},                 // missing method
		{Method: "GET"},                      // missing path
		{Method: "GET", Path: "/users/123"},  // valid
		{Method: "GET", Path: "/unknown/42"}, // unmatched
	}

	results, diag, err := Analyze(endpoints, NewSliceSource(logs), Options{ReferenceTime: analysisRef})
	require.NoError(t, err)

	assert.Equal(t, 1, results[0].Usage.CallCount)
	assert.Equal(t, 4, diag.Processed)
	assert.Equal(t, 2, diag.Malformed)
	assert.Equal(t, 1, diag.Matched)
	assert.Equal(t, 1, diag.Unmatched)
}

func TestAnalyze_WindowFiltering(t *testing.T) {
	endpoints := []Endpoint{{Method: "GET", Path: "/users"}}
	logs := []LogRecord{
		{Method: "GET", Path: "/users", Timestamp: ts("2026-01-01T00:00:00Z")}, // older than cutoff
		{Method: "GET", Path: "/users", Timestamp: ts("2026-02-08T00:00:00Z")}, // inside window
		{Method: "GET", Path: "/users"},                                        // undated, always included
	}

	results, diag, err := Analyze(endpoints, NewSliceSource(logs), Options{
		Window:        7 * 24 * time.Hour,
		ReferenceTime: analysisRef,
	})
	require.NoError(t, err)

	assert.Equal(t, 2, results[0].Usage.CallCount)
	assert.Equal(t, 1, diag.Windowed)
	assert.Equal(t, 3, diag.Processed)
}

func TestAnalyze_AmbiguousTemplates(t *testing.T) {
	endpoints := []Endpoint{
		{Method: "GET", Path: "/users/{id}"},
		{Method: "GET", Path: "/users/active"},
	}
	logs := []LogRecord{{Method: "GET", Path: "/users/active"}}

	results, diag, err := Analyze(endpoints, NewSliceSource(logs), Options{ReferenceTime: analysisRef})
	require.NoError(t, err)

	assert.Equal(t, 1, diag.Ambiguous)

	byKey := make(map[string]int)
	for _, r := range results {
		byKey[r.Endpoint.Path] = r.Usage.CallCount
	}
	// First-match-wins under the documented precedence: only the more
	// specific template absorbs the record.
	assert.Equal(t, 1, byKey["/users/active"])
	assert.Zero(t, byKey["/users/{id}"])
}

func TestAnalyze_ConfigurationErrors(t *testing.T) {
	t.Run("empty endpoint set", func(t *testing.T) {
		_, _, err := Analyze(nil, NewSliceSource(nil), Options{})
		require.Error(t, err)
		assert.True(t, IsConfigurationError(err))
	})

	t.Run("negative window", func(t *testing.T) {
		_, _, err := Analyze([]Endpoint{{Method: "GET", Path: "/x"}}, NewSliceSource(nil), Options{Window: -time.Hour})
		require.Error(t, err)
		assert.True(t, IsConfigurationError(err))
	})

	t.Run("other errors are not configuration errors", func(t *testing.T) {
		assert.False(t, IsConfigurationError(errors.New("boom")))
	})
}

func TestAnalyze_DeterministicOrdering(t *testing.T) {
	endpoints := []Endpoint{
		{Method: "POST", Path: "/b"},
		{Method: "GET", Path: "/a"},
		{Method: "GET", Path: "/b"},
		{Method: "GET", Path: "/c"},
	}
	logs := []LogRecord{
		{Method: "GET", Path: "/c", Timestamp: ts("2026-02-09T00:00:00Z"), Caller: "x"},
		{Method: "GET", Path: "/c", Timestamp: ts("2026-02-09T01:00:00Z"), Caller: "y"},
	}

	first, _, err := Analyze(endpoints, NewSliceSource(logs), Options{ReferenceTime: analysisRef})
	require.NoError(t, err)
	second, _, err := Analyze(endpoints, NewSliceSource(logs), Options{ReferenceTime: analysisRef})
	require.NoError(t, err)

	assert.Equal(t, first, second)

	// Unused endpoints lead, ordered by method then path.
	assert.Equal(t, "GET /a", first[0].Endpoint.String())
	assert.Equal(t, "GET /b", first[1].Endpoint.String())
	assert.Equal(t, "POST /b", first[2].Endpoint.String())
	assert.Equal(t, "GET /c", first[3].Endpoint.String())
}

// errorSource fails after yielding its records, simulating a truncated read.
type errorSource struct {
	records []LogRecord
	err     error
}

func (s *errorSource) Next() (LogRecord, error) {
	if len(s.records) == 0 {
		return LogRecord{}, s.err
	}
	r := s.records[0]
	s.records = s.records[1:]
	return r, nil
}

func TestAnalyze_SourceFailurePropagates(t *testing.T) {
	endpoints := []Endpoint{{Method: "GET", Path: "/users"}}
	src := &errorSource{
		records: []LogRecord{{Method: "GET", Path: "/users"}},
		err:     errors.New("stream truncated"),
	}

	_, _, err := Analyze(endpoints, src, Options{ReferenceTime: analysisRef})
	require.Error(t, err)
	assert.False(t, IsConfigurationError(err))
	assert.NotErrorIs(t, err, io.EOF)
}

func TestAnalyze_SinglePassConsumption(t *testing.T) {
	endpoints := []Endpoint{{Method: "GET", Path: "/users"}}
	src := NewSliceSource([]LogRecord{{Method: "GET", Path: "/users"}})

	_, _, err := Analyze(endpoints, src, Options{ReferenceTime: analysisRef})
	require.NoError(t, err)

	// The stream is exhausted: a second pass is impossible.
	_, err = src.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestFilterByConfidence(t *testing.T) {
	results := []Result{
		{Endpoint: Endpoint{Method: "GET", Path: "/a"}, Confidence: 100},
		{Endpoint: Endpoint{Method: "GET", Path: "/b"}, Confidence: 80},
		{Endpoint: Endpoint{Method: "GET", Path: "/c"}, Confidence: 40},
	}

	t.Run("keeps results at or above threshold", func(t *testing.T) {
		kept := FilterByConfidence(results, 80)
		require.Len(t, kept, 2)
		assert.Equal(t, "/a", kept[0].Endpoint.Path)
		assert.Equal(t, "/b", kept[1].Endpoint.Path)
	})

	t.Run("threshold above all yields nothing", func(t *testing.T) {
		assert.Empty(t, FilterByConfidence(results, 101))
	})
}

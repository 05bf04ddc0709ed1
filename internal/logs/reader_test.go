package logs

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/adylagad/gh-api-graveyard/internal/analyzer"
)

func drain(t *testing.T, r *Reader) []analyzer.LogRecord {
	t.Helper()
	var out []analyzer.LogRecord
	for {
		rec, err := r.Next()
		if err == io.EOF {
			return out
		}
		require.NoError(t, err)
		out = append(out, rec)
	}
}

func TestReader_Next(t *testing.T) {
	input := strings.Join([]string{
		`{"method":"GET","path":"/users","timestamp":"2026-02-01T10:00:00Z","caller":"web"}`,
		``,
		`not json at all`,
		`{"path":"/users/1"}`,
		`{"method":"POST","path":"/users"}`,
	}, "\n")

	r := NewReader(strings.NewReader(input), zap.NewNop())
	records := drain(t, r)

	require.Len(t, records, 2)
	assert.Equal(t, "GET", records[0].Method)
	assert.Equal(t, "/users", records[0].Path)
	assert.Equal(t, "web", records[0].Caller)
	assert.Equal(t, time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC), records[0].Timestamp)

	assert.Equal(t, "POST", records[1].Method)
	assert.True(t, records[1].Timestamp.IsZero())

	// Invalid JSON and the record missing a method are both dropped.
	assert.Equal(t, 2, r.Skipped())
}

func TestReader_CallerKeyFallback(t *testing.T) {
	cases := []struct {
		name string
		line string
		want string
	}{
		{"caller wins", `{"method":"GET","path":"/a","caller":"c","user":"u","client_id":"i"}`, "c"},
		{"user next", `{"method":"GET","path":"/a","user":"u","client_id":"i"}`, "u"},
		{"client_id last", `{"method":"GET","path":"/a","client_id":"i"}`, "i"},
		{"anonymous", `{"method":"GET","path":"/a"}`, ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := NewReader(strings.NewReader(tc.line), zap.NewNop())
			rec, err := r.Next()
			require.NoError(t, err)
			assert.Equal(t, tc.want, rec.Caller)
		})
	}
}

func TestReader_TimestampShapes(t *testing.T) {
	cases := []struct {
		name string
		in   string
		zero bool
	}{
		{"rfc3339", "2026-02-01T10:00:00Z", false},
		{"rfc3339 with offset", "2026-02-01T10:00:00+02:00", false},
		{"naive datetime", "2026-02-01T10:00:00", false},
		{"date only", "2026-02-01", false},
		{"garbage", "last tuesday", true},
		{"empty", "", true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := parseTimestamp(tc.in)
			assert.Equal(t, tc.zero, got.IsZero())
		})
	}
}

func TestOpen(t *testing.T) {
	line := `{"method":"GET","path":"/users","caller":"web"}` + "\n"

	t.Run("plain file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "access.jsonl")
		require.NoError(t, os.WriteFile(path, []byte(line), 0o600))

		r, err := Open(path, zap.NewNop())
		require.NoError(t, err)
		defer func() { _ = r.Close() }()

		records := drain(t, r)
		require.Len(t, records, 1)
		assert.Equal(t, "/users", records[0].Path)
	})

	t.Run("gzip file yields identical records", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "access.jsonl.gz")
		f, err := os.Create(path)
		require.NoError(t, err)
		gz := gzip.NewWriter(f)
		_, err = gz.Write([]byte(line))
		require.NoError(t, err)
		require.NoError(t, gz.Close())
		require.NoError(t, f.Close())

		r, err := Open(path, zap.NewNop())
		require.NoError(t, err)
		defer func() { _ = r.Close() }()

		records := drain(t, r)
		require.Len(t, records, 1)
		assert.Equal(t, "/users", records[0].Path)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Open(filepath.Join(t.TempDir(), "nope.jsonl"), zap.NewNop())
		assert.Error(t, err)
	})
}

package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/adylagad/gh-api-graveyard/internal/analyzer"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "history.db")
	store, err := Open(context.Background(), DriverSQLite, dsn, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func sampleScan(service string, created time.Time) *Scan {
	lastSeen := created.Add(-48 * time.Hour)
	return &Scan{
		ID:              "scan-" + service + "-" + created.Format("20060102150405"),
		Service:         service,
		CreatedAt:       created,
		TotalEndpoints:  2,
		UnusedEndpoints: 1,
		Processed:       10,
		Matched:         8,
		Endpoints: []EndpointRecord{
			{
				Method:     "DELETE",
				Path:       "/users/{id}",
				Confidence: 100,
				Reasons:    []string{"Never called in logs"},
			},
			{
				Method:        "GET",
				Path:          "/users",
				CallCount:     8,
				LastSeen:      &lastSeen,
				UniqueCallers: 2,
				Confidence:    0,
				Reasons:       []string{},
			},
		},
	}
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := Open(context.Background(), "mysql", "dsn", nil)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported driver")
}

func TestStore_SaveAndGetScan(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	created := time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)
	scan := sampleScan("billing-api", created)
	require.NoError(t, store.SaveScan(ctx, scan))

	got, err := store.GetScan(ctx, scan.ID)
	require.NoError(t, err)

	assert.Equal(t, scan.ID, got.ID)
	assert.Equal(t, "billing-api", got.Service)
	assert.True(t, got.CreatedAt.Equal(created))
	assert.Equal(t, 2, got.TotalEndpoints)
	assert.Equal(t, 1, got.UnusedEndpoints)
	assert.Equal(t, 10, got.Processed)
	assert.Equal(t, 8, got.Matched)

	require.Len(t, got.Endpoints, 2)
	first := got.Endpoints[0]
	assert.Equal(t, "DELETE", first.Method)
	assert.Equal(t, "/users/{id}", first.Path)
	assert.Equal(t, 100, first.Confidence)
	assert.Nil(t, first.LastSeen)
	assert.Equal(t, []string{"Never called in logs"}, first.Reasons)

	second := got.Endpoints[1]
	assert.Equal(t, "GET", second.Method)
	assert.Equal(t, 8, second.CallCount)
	require.NotNil(t, second.LastSeen)
	assert.True(t, second.LastSeen.Equal(created.Add(-48*time.Hour)))
	assert.Equal(t, 2, second.UniqueCallers)
}

func TestStore_GetScan_NotFound(t *testing.T) {
	store := openTestStore(t)

	_, err := store.GetScan(context.Background(), "missing")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestStore_ListScans(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		require.NoError(t, store.SaveScan(ctx, sampleScan("billing-api", base.AddDate(0, 0, i))))
	}
	require.NoError(t, store.SaveScan(ctx, sampleScan("orders-api", base)))

	t.Run("newest first per service", func(t *testing.T) {
		scans, err := store.ListScans(ctx, "billing-api", 0)
		require.NoError(t, err)
		require.Len(t, scans, 3)
		assert.True(t, scans[0].CreatedAt.After(scans[1].CreatedAt))
		assert.True(t, scans[1].CreatedAt.After(scans[2].CreatedAt))
		for _, s := range scans {
			assert.Equal(t, "billing-api", s.Service)
			assert.Nil(t, s.Endpoints)
		}
	})

	t.Run("limit applies", func(t *testing.T) {
		scans, err := store.ListScans(ctx, "billing-api", 2)
		require.NoError(t, err)
		assert.Len(t, scans, 2)
	})
}

func TestStore_ScansSince(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		require.NoError(t, store.SaveScan(ctx, sampleScan("billing-api", base.AddDate(0, 0, i*10))))
	}

	scans, err := store.ScansSince(ctx, "billing-api", base.AddDate(0, 0, 10))
	require.NoError(t, err)
	require.Len(t, scans, 3)
	assert.True(t, scans[0].CreatedAt.Before(scans[1].CreatedAt))
	assert.True(t, scans[1].CreatedAt.Before(scans[2].CreatedAt))
}

func TestFromResults(t *testing.T) {
	lastSeen := time.Date(2026, 2, 8, 0, 0, 0, 0, time.UTC)
	results := []analyzer.Result{
		{
			Endpoint:   analyzer.Endpoint{Method: "DELETE", Path: "/users/{id}"},
			Confidence: 100,
			Reasons:    []string{"Never called in logs"},
		},
		{
			Endpoint: analyzer.Endpoint{Method: "GET", Path: "/users"},
			Usage: analyzer.UsageStat{
				CallCount: 12,
				LastSeen:  &lastSeen,
				Callers:   []string{"checkout", "web"},
			},
		},
	}
	diag := analyzer.Diagnostics{Processed: 20, Matched: 12}
	now := time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC)

	scan := FromResults("billing-api", results, diag, now)

	assert.NotEmpty(t, scan.ID)
	assert.Equal(t, "billing-api", scan.Service)
	assert.True(t, scan.CreatedAt.Equal(now))
	assert.Equal(t, 2, scan.TotalEndpoints)
	assert.Equal(t, 1, scan.UnusedEndpoints)
	assert.Equal(t, 20, scan.Processed)
	assert.Equal(t, 12, scan.Matched)

	require.Len(t, scan.Endpoints, 2)
	assert.Equal(t, "DELETE /users/{id}", scan.Endpoints[0].Key())
	assert.Equal(t, 2, scan.Endpoints[1].UniqueCallers)
}

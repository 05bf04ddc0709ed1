package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/adylagad/gh-api-graveyard/internal/analyzer"
	"github.com/adylagad/gh-api-graveyard/internal/config"
)

const testSpec = `openapi: 3.0.0
info:
  title: Billing API
  version: 1.0.0
paths:
  /users:
    get:
      summary: List users
  /users/{id}:
    delete:
      summary: Delete a user
`

const testLogs = `{"method":"GET","path":"/users","timestamp":"2026-02-08T10:00:00Z","caller":"web"}
{"method":"GET","path":"/users","timestamp":"2026-02-09T10:00:00Z","caller":"web"}
`

func writeTestFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestAnalyze_EndToEnd(t *testing.T) {
	dir := t.TempDir()
	specPath := writeTestFile(t, dir, "openapi.yml", testSpec)
	logsPath := writeTestFile(t, dir, "access.jsonl", testLogs)

	rep, doc, err := analyze(specPath, logsPath, "", analyzer.Options{}, zap.NewNop())
	require.NoError(t, err)

	assert.Equal(t, "Billing API", rep.Service)
	require.Len(t, rep.Results, 2)
	assert.Equal(t, "DELETE", rep.Results[0].Endpoint.Method)
	assert.Equal(t, 100, rep.Results[0].Confidence)
	assert.Equal(t, 2, rep.Results[1].Usage.CallCount)
	assert.Len(t, doc.Endpoints(), 2)
}

func TestAnalyze_MissingSpec(t *testing.T) {
	dir := t.TempDir()
	logsPath := writeTestFile(t, dir, "access.jsonl", testLogs)

	_, _, err := analyze(filepath.Join(dir, "nope.yml"), logsPath, "", analyzer.Options{}, zap.NewNop())
	assert.Error(t, err)
}

func TestResolveInputs(t *testing.T) {
	dir := t.TempDir()
	specPath := writeTestFile(t, dir, "openapi.yml", testSpec)
	logsPath := writeTestFile(t, dir, "access.jsonl", testLogs)

	t.Run("flags win", func(t *testing.T) {
		cfg := config.Default()
		cfg.Spec = "config-spec.yml"
		flags := &commonFlags{spec: specPath, logsPath: logsPath, window: "90d"}

		gotSpec, gotLogs, _, opts, err := resolveInputs(flags, cfg)
		require.NoError(t, err)
		assert.Equal(t, specPath, gotSpec)
		assert.Equal(t, logsPath, gotLogs)
		assert.Equal(t, 90*24, int(opts.Window.Hours()))
	})

	t.Run("config fills gaps", func(t *testing.T) {
		cfg := config.Default()
		cfg.Spec = specPath
		cfg.Logs = logsPath
		cfg.Service = "billing-api"
		cfg.Window = "30d"

		gotSpec, gotLogs, service, opts, err := resolveInputs(&commonFlags{}, cfg)
		require.NoError(t, err)
		assert.Equal(t, specPath, gotSpec)
		assert.Equal(t, logsPath, gotLogs)
		assert.Equal(t, "billing-api", service)
		assert.Equal(t, 30*24, int(opts.Window.Hours()))
	})

	t.Run("bad window rejected", func(t *testing.T) {
		cfg := config.Default()
		flags := &commonFlags{spec: specPath, logsPath: logsPath, window: "soon"}
		_, _, _, _, err := resolveInputs(flags, cfg)
		assert.Error(t, err)
	})
}

func TestWriteOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.md")
	require.NoError(t, writeOutput(path, []byte("# Report\n")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "# Report\n", string(data))
}

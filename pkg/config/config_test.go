package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "routelens.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_AppliesDefaults(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "emitter:\n  enabled: true\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.True(t, cfg.Emitter.Enabled)
	assert.Equal(t, 0, cfg.Emitter.BudgetBytes)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, ":8080", cfg.Server.Addr)
}

func TestLoad_FullDocument(t *testing.T) {
	path := writeConfig(t, t.TempDir(), `
emitter:
  enabled: false
  budget_bytes: 16000
policy:
  module_path: eligibility.rego
  entrypoint: data.routelens.trace.allow
telemetry:
  service_name: edge-router
  endpoint: otel-collector:4317
  insecure: true
logging:
  level: debug
  json: true
server:
  addr: ":9090"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.False(t, cfg.Emitter.Enabled)
	assert.Equal(t, 16000, cfg.Emitter.BudgetBytes)
	assert.Equal(t, "eligibility.rego", cfg.Policy.ModulePath)
	assert.Equal(t, "edge-router", cfg.Telemetry.ServiceName)
	assert.True(t, cfg.Telemetry.Insecure)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, ":9090", cfg.Server.Addr)
}

func TestLoad_RejectsNegativeBudget(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "emitter:\n  budget_bytes: -1\n")

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_RejectsEntrypointWithoutModule(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "policy:\n  entrypoint: data.x.allow\n")

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestFileProvider_InitialSnapshot(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "emitter:\n  enabled: true\n  budget_bytes: 1024\n")

	p, err := NewFileProvider(path, nil)
	require.NoError(t, err)
	defer p.Close()

	assert.Equal(t, 1024, p.Current().Emitter.BudgetBytes)
}

func TestFileProvider_RejectsInvalidInitialConfig(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "emitter:\n  budget_bytes: -5\n")

	_, err := NewFileProvider(path, nil)
	assert.Error(t, err)
}

func TestFileProvider_ReloadOnChange(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "emitter:\n  enabled: true\n  budget_bytes: 1000\n")

	p, err := NewFileProvider(path, nil)
	require.NoError(t, err)
	defer p.Close()

	updates := p.Subscribe()
	first := <-updates
	assert.Equal(t, 1000, first.Emitter.BudgetBytes)

	writeConfig(t, dir, "emitter:\n  enabled: false\n  budget_bytes: 2000\n")

	select {
	case next := <-updates:
		assert.Equal(t, 2000, next.Emitter.BudgetBytes)
		assert.False(t, next.Emitter.Enabled)
	case <-time.After(3 * time.Second):
		t.Fatal("no reload observed after config change")
	}
}

func TestFileProvider_KeepsPreviousOnInvalidReload(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "emitter:\n  enabled: true\n  budget_bytes: 1000\n")

	p, err := NewFileProvider(path, nil)
	require.NoError(t, err)
	defer p.Close()

	writeConfig(t, dir, "emitter:\n  budget_bytes: -1\n")

	// The invalid document must never become the current snapshot; give
	// the watcher time to see the write before checking.
	deadline := time.Now().Add(1 * time.Second)
	for time.Now().Before(deadline) {
		require.Equal(t, 1000, p.Current().Emitter.BudgetBytes)
		time.Sleep(50 * time.Millisecond)
	}
}

package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, path, serviceName string) {
	t.Helper()
	content := strings.Replace(sampleConfig, "bookstore.endpoints.example.cloud.goog", serviceName, 1)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func TestWatcher_ReloadsOnChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gateway.yaml")
	writeConfig(t, path, "first.example.com")

	var reloaded atomic.Pointer[GatewayConfig]
	w, err := NewWatcher(path, func(cfg *GatewayConfig) {
		reloaded.Store(cfg)
	}, WithDebounceDelay(10*time.Millisecond))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))
	defer func() { _ = w.Stop() }()

	assert.Equal(t, "first.example.com", w.LastConfig().Spec.Service.Name)

	writeConfig(t, path, "second.example.com")

	require.Eventually(t, func() bool {
		cfg := reloaded.Load()
		return cfg != nil && cfg.Spec.Service.Name == "second.example.com"
	}, 5*time.Second, 20*time.Millisecond)
	assert.Equal(t, "second.example.com", w.LastConfig().Spec.Service.Name)
}

func TestWatcher_RejectsInvalidReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gateway.yaml")
	writeConfig(t, path, "first.example.com")

	var failures atomic.Int32
	w, err := NewWatcher(path, nil,
		WithDebounceDelay(10*time.Millisecond),
		WithErrorCallback(func(error) { failures.Add(1) }),
	)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))
	defer func() { _ = w.Stop() }()

	writeConfig(t, path, "")

	require.Eventually(t, func() bool { return failures.Load() > 0 }, 5*time.Second, 20*time.Millisecond)
	assert.Equal(t, "first.example.com", w.LastConfig().Spec.Service.Name)
}

func TestWatcher_StartFailsOnInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gateway.yaml")
	writeConfig(t, path, "")

	w, err := NewWatcher(path, nil)
	require.NoError(t, err)
	assert.Error(t, w.Start(context.Background()))
	assert.NoError(t, w.Stop())
}

func TestWatcher_ForceReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gateway.yaml")
	writeConfig(t, path, "first.example.com")

	var calls atomic.Int32
	w, err := NewWatcher(path, func(*GatewayConfig) { calls.Add(1) })
	require.NoError(t, err)
	defer func() { _ = w.Stop() }()

	require.NoError(t, w.ForceReload())
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, "first.example.com", w.LastConfig().Spec.Service.Name)
}

func TestWatcher_IgnoresUnchangedContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gateway.yaml")
	writeConfig(t, path, "first.example.com")

	var names []string
	var mu sync.Mutex
	w, err := NewWatcher(path, func(cfg *GatewayConfig) {
		mu.Lock()
		names = append(names, cfg.Spec.Service.Name)
		mu.Unlock()
	}, WithDebounceDelay(10*time.Millisecond))
	require.NoError(t, err)

	require.NoError(t, w.Start(context.Background()))
	t.Cleanup(func() { _ = w.Stop() })

	writeConfig(t, path, "first.example.com")
	time.Sleep(100 * time.Millisecond)
	writeConfig(t, path, "second.example.com")

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(names) > 0
	}, 5*time.Second, 20*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"second.example.com"}, names)
}

func TestWatcher_StartTwice(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gateway.yaml")
	writeConfig(t, path, "first.example.com")

	w, err := NewWatcher(path, nil)
	require.NoError(t, err)

	require.NoError(t, w.Start(context.Background()))
	require.NoError(t, w.Start(context.Background()))
	assert.NoError(t, w.Stop())
}

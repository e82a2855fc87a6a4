package daemon

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/docweaver/internal/config"
)

type fakeBuilder struct {
	mu     sync.Mutex
	calls  int
	cfgs   []*config.Config
	err    error
	notify chan struct{}
}

func newFakeBuilder() *fakeBuilder {
	return &fakeBuilder{notify: make(chan struct{}, 16)}
}

func (b *fakeBuilder) Build(_ context.Context, cfg *config.Config) error {
	b.mu.Lock()
	b.calls++
	b.cfgs = append(b.cfgs, cfg)
	err := b.err
	b.mu.Unlock()
	select {
	case b.notify <- struct{}{}:
	default:
	}
	return err
}

func (b *fakeBuilder) Calls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls
}

func (b *fakeBuilder) LastConfig() *config.Config {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.cfgs) == 0 {
		return nil
	}
	return b.cfgs[len(b.cfgs)-1]
}

func waitForBuild(t *testing.T, b *fakeBuilder) {
	t.Helper()
	select {
	case <-b.notify:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a build")
	}
}

func testDaemonConfig() *config.Config {
	return &config.Config{
		Module: "demo",
		Output: "docs-out",
		Passes: []config.Pass{
			{Name: "jvm", Kind: "jvm", SourceRoots: []string{"./snap.json"}},
		},
		Daemon: config.DaemonConfig{Debounce: "10ms"},
	}
}

func TestNewRequiresConfigAndBuilder(t *testing.T) {
	_, err := New("", nil, newFakeBuilder())
	require.Error(t, err)

	_, err = New("", testDaemonConfig(), nil)
	require.Error(t, err)
}

func TestDaemonRunsInitialBuild(t *testing.T) {
	b := newFakeBuilder()
	d, err := New("", testDaemonConfig(), b)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	waitForBuild(t, b)
	require.Equal(t, 1, b.Calls())
	require.Equal(t, int64(1), d.Builds())
	require.Equal(t, int64(0), d.Failures())

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("daemon did not stop on context cancel")
	}
}

func TestDaemonRebuildsOnTrigger(t *testing.T) {
	b := newFakeBuilder()
	d, err := New("", testDaemonConfig(), b)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()
	go func() { _ = d.Run(ctx) }()

	waitForBuild(t, b)

	d.debouncer.Trigger(ReasonSources, "docs/page.md")
	waitForBuild(t, b)
	require.Equal(t, 2, b.Calls())
}

func TestDaemonSurvivesBuildFailures(t *testing.T) {
	b := newFakeBuilder()
	b.err = os.ErrDeadlineExceeded

	d, err := New("", testDaemonConfig(), b)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()
	go func() { _ = d.Run(ctx) }()

	waitForBuild(t, b)
	require.Equal(t, int64(1), d.Failures())

	// The daemon keeps serving triggers after a failed build.
	d.debouncer.Trigger(ReasonSources, "docs/page.md")
	waitForBuild(t, b)
	require.Equal(t, 2, b.Calls())
	require.Equal(t, int64(2), d.Failures())
}

func TestDaemonReloadsConfigOnConfigChange(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "docweaver.yaml")
	writeDaemonConfig(t, cfgPath, "reloaded")

	b := newFakeBuilder()
	d, err := New(cfgPath, testDaemonConfig(), b)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()
	go func() { _ = d.Run(ctx) }()

	waitForBuild(t, b)
	require.Equal(t, "demo", b.LastConfig().Module)

	d.debouncer.Trigger(ReasonConfig, cfgPath)
	waitForBuild(t, b)
	require.Equal(t, "reloaded", b.LastConfig().Module)
}

func TestDaemonKeepsConfigWhenReloadFails(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "docweaver.yaml")
	// Valid YAML that fails validation: no passes.
	require.NoError(t, os.WriteFile(cfgPath, []byte("module: broken\n"), 0o644))

	b := newFakeBuilder()
	d, err := New(cfgPath, testDaemonConfig(), b)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()
	go func() { _ = d.Run(ctx) }()

	waitForBuild(t, b)

	d.debouncer.Trigger(ReasonConfig, cfgPath)
	waitForBuild(t, b)
	require.Equal(t, 2, b.Calls())
	require.Equal(t, "demo", b.LastConfig().Module, "previous configuration stays active")
}

func writeDaemonConfig(t *testing.T, path, module string) {
	t.Helper()
	content := "module: " + module + "\n" +
		"passes:\n" +
		"  - name: jvm\n" +
		"    kind: jvm\n" +
		"    sourceRoots:\n" +
		"      - ./snap.json\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestNewSchedulerValidatesSpec(t *testing.T) {
	s, err := newScheduler("@every 1h", func() {})
	require.NoError(t, err)
	require.NoError(t, s.Shutdown())

	_, err = newScheduler("not a cron spec", func() {})
	require.Error(t, err)
}

func TestDebounceWindowParsesConfig(t *testing.T) {
	cfg := testDaemonConfig()
	require.Equal(t, 10*time.Millisecond, debounceWindow(cfg))

	cfg.Daemon.Debounce = ""
	require.Equal(t, time.Duration(0), debounceWindow(cfg))

	cfg.Daemon.Debounce = "not a duration"
	require.Equal(t, time.Duration(0), debounceWindow(cfg))
}

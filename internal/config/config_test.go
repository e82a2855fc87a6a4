package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"git.home.luguber.info/inful/docweaver/internal/errors"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "docweaver.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	configContent := `module: kotlinx-coroutines
passes:
  - name: jvmMain
    kind: jvm
    sourceRoots:
      - ./snapshots/jvm.json
    includes:
      - ./docs/module.md
    perPackageOptions:
      - pattern: '.*\.internal'
        suppress: true
  - name: linuxX64Main
    kind: native
    targets:
      - linuxX64
    sourceRoots:
      - ./snapshots/native.json
externalDocumentation:
  - url: https://example.org/stdlib/
    packageListUrl: https://example.org/stdlib/package-list
output: ./out/docs
concurrency: 3
failOnWarning: true
linkCheck:
  enabled: true
  timeout: 5s
  nats:
    url: nats://localhost:4222
daemon:
  schedule: "0 */6 * * *"
  watch: true
`
	cfg, err := Load(writeConfig(t, configContent))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Module != "kotlinx-coroutines" {
		t.Errorf("Module = %v, want kotlinx-coroutines", cfg.Module)
	}
	if len(cfg.Passes) != 2 {
		t.Fatalf("Passes count = %v, want 2", len(cfg.Passes))
	}

	jvm := cfg.Passes[0]
	if jvm.Name != "jvmMain" || jvm.Kind != "jvm" {
		t.Errorf("pass[0] = %s/%s, want jvmMain/jvm", jvm.Name, jvm.Kind)
	}
	if jvm.Frontend != DefaultFrontend {
		t.Errorf("pass[0].Frontend = %v, want default %q", jvm.Frontend, DefaultFrontend)
	}
	if len(jvm.PerPackageOptions) != 1 || !jvm.PerPackageOptions[0].Suppress {
		t.Errorf("pass[0].PerPackageOptions = %+v, want one suppressing entry", jvm.PerPackageOptions)
	}

	native := cfg.Passes[1]
	if len(native.Targets) != 1 || native.Targets[0] != "linuxX64" {
		t.Errorf("pass[1].Targets = %v, want [linuxX64]", native.Targets)
	}

	if len(cfg.ExternalDocumentation) != 1 {
		t.Fatalf("ExternalDocumentation count = %v, want 1", len(cfg.ExternalDocumentation))
	}
	if cfg.ExternalDocumentation[0].PackageListURL != "https://example.org/stdlib/package-list" {
		t.Errorf("PackageListURL = %v", cfg.ExternalDocumentation[0].PackageListURL)
	}

	if cfg.Output != "./out/docs" {
		t.Errorf("Output = %v, want ./out/docs", cfg.Output)
	}
	if cfg.Concurrency != 3 {
		t.Errorf("Concurrency = %v, want 3", cfg.Concurrency)
	}
	if !cfg.FailOnWarning {
		t.Error("FailOnWarning = false, want true")
	}

	if !cfg.LinkCheck.Enabled || cfg.LinkCheck.Timeout != "5s" {
		t.Errorf("LinkCheck = %+v, want enabled with 5s timeout", cfg.LinkCheck)
	}
	if cfg.LinkCheck.NATS.Subject != DefaultNATSSubject {
		t.Errorf("NATS.Subject = %v, want default %q", cfg.LinkCheck.NATS.Subject, DefaultNATSSubject)
	}
	if cfg.LinkCheck.NATS.KVBucket != DefaultNATSKVBucket {
		t.Errorf("NATS.KVBucket = %v, want default %q", cfg.LinkCheck.NATS.KVBucket, DefaultNATSKVBucket)
	}

	if cfg.Daemon.Schedule != "0 */6 * * *" {
		t.Errorf("Daemon.Schedule = %v, want '0 */6 * * *'", cfg.Daemon.Schedule)
	}
	if cfg.Daemon.Debounce != DefaultDaemonDebounce {
		t.Errorf("Daemon.Debounce = %v, want default %q", cfg.Daemon.Debounce, DefaultDaemonDebounce)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error for valid config: %v", err)
	}
}

func TestLoadConfigNotFound(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("expected error for missing config file")
	}
	if !errors.IsConfiguration(err) {
		t.Errorf("expected configuration error, got %v", err)
	}
}

func TestLoadConfigInvalidYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "module: [unclosed"))
	if err == nil {
		t.Fatal("expected error for invalid YAML")
	}
	if !errors.IsConfiguration(err) {
		t.Errorf("expected configuration error, got %v", err)
	}
}

func TestLoadConfigEnvExpansion(t *testing.T) {
	t.Setenv("DOCWEAVER_TEST_MODULE", "expanded-module")

	cfg, err := Load(writeConfig(t, "module: ${DOCWEAVER_TEST_MODULE}\n"))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Module != "expanded-module" {
		t.Errorf("Module = %v, want expanded-module", cfg.Module)
	}
}

func TestConfigDefaults(t *testing.T) {
	configContent := `module: minimal
passes:
  - name: common
    kind: common
    sourceRoots:
      - ./snap.json
`
	cfg, err := Load(writeConfig(t, configContent))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Output != DefaultOutput {
		t.Errorf("Output = %v, want default %q", cfg.Output, DefaultOutput)
	}
	if cfg.CacheRoot == "" {
		t.Error("CacheRoot should default to a non-empty path")
	}
	if cfg.LinkCheck.Timeout != DefaultLinkTimeout {
		t.Errorf("LinkCheck.Timeout = %v, want default %q", cfg.LinkCheck.Timeout, DefaultLinkTimeout)
	}
	if !cfg.GenerateIndex() {
		t.Error("GenerateIndex() = false, want true by default")
	}
	if !cfg.SkipEmpty() {
		t.Error("SkipEmpty() = false, want true by default")
	}
	// NATS defaults only apply when a URL is configured.
	if cfg.LinkCheck.NATS.Subject != "" {
		t.Errorf("NATS.Subject = %v, want empty without URL", cfg.LinkCheck.NATS.Subject)
	}
}

func TestValidateFailures(t *testing.T) {
	validPass := Pass{Name: "jvmMain", Kind: "jvm", SourceRoots: []string{"./a.json"}}

	tests := []struct {
		name string
		cfg  Config
	}{
		{"missing module", Config{Output: "./out", Passes: []Pass{validPass}}},
		{"missing output", Config{Module: "m", Passes: []Pass{validPass}}},
		{"no passes", Config{Module: "m", Output: "./out"}},
		{"unnamed pass", Config{Module: "m", Output: "./out",
			Passes: []Pass{{Kind: "jvm", SourceRoots: []string{"./a"}}}}},
		{"duplicate pass names", Config{Module: "m", Output: "./out",
			Passes: []Pass{validPass, validPass}}},
		{"unknown kind", Config{Module: "m", Output: "./out",
			Passes: []Pass{{Name: "p", Kind: "cobol", SourceRoots: []string{"./a"}}}}},
		{"no source roots", Config{Module: "m", Output: "./out",
			Passes: []Pass{{Name: "p", Kind: "jvm"}}}},
		{"invalid package pattern", Config{Module: "m", Output: "./out",
			Passes: []Pass{{Name: "p", Kind: "jvm", SourceRoots: []string{"./a"},
				PerPackageOptions: []PackageOptions{{Pattern: "["}}}}}},
		{"negative concurrency", Config{Module: "m", Output: "./out",
			Concurrency: -1, Passes: []Pass{validPass}}},
		{"missing external doc url", Config{Module: "m", Output: "./out",
			Passes:                []Pass{validPass},
			ExternalDocumentation: []ExternalDocumentation{{PackageListURL: "x"}}}},
		{"bad linkcheck timeout", Config{Module: "m", Output: "./out",
			Passes:    []Pass{validPass},
			LinkCheck: LinkCheckConfig{Enabled: true, Timeout: "soon"}}},
		{"bad daemon schedule", Config{Module: "m", Output: "./out",
			Passes: []Pass{validPass},
			Daemon: DaemonConfig{Schedule: "this is not a cron"}}},
		{"bad daemon debounce", Config{Module: "m", Output: "./out",
			Passes: []Pass{validPass},
			Daemon: DaemonConfig{Debounce: "2 moments"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error, got nil")
			}
			if !errors.IsConfiguration(err) {
				t.Errorf("expected configuration error, got %v", err)
			}
		})
	}
}

func TestValidateDisabledLinkCheckIgnoresTimeout(t *testing.T) {
	cfg := Config{
		Module: "m", Output: "./out",
		Passes:    []Pass{{Name: "p", Kind: "jvm", SourceRoots: []string{"./a"}}},
		LinkCheck: LinkCheckConfig{Enabled: false, Timeout: "garbage"},
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error for disabled link check: %v", err)
	}
}

func TestEffectiveConcurrency(t *testing.T) {
	cfg := Config{Concurrency: 7}
	if got := cfg.EffectiveConcurrency(); got != 7 {
		t.Errorf("explicit concurrency = %v, want 7", got)
	}

	cfg = Config{Passes: make([]Pass, 2)}
	want := 2
	if max := runtime.GOMAXPROCS(0); want > max {
		want = max
	}
	if got := cfg.EffectiveConcurrency(); got != want {
		t.Errorf("derived concurrency = %v, want %v", got, want)
	}

	cfg = Config{}
	if got := cfg.EffectiveConcurrency(); got != 1 {
		t.Errorf("empty config concurrency = %v, want 1", got)
	}
}

func TestHistoryPath(t *testing.T) {
	cfg := Config{CacheRoot: "/tmp/cache", History: HistoryConfig{Path: "/data/runs.db"}}
	if got := cfg.HistoryPath(); got != "/data/runs.db" {
		t.Errorf("explicit HistoryPath = %v", got)
	}

	cfg = Config{CacheRoot: "/tmp/cache"}
	if got := cfg.HistoryPath(); got != filepath.Join("/tmp/cache", "runs.db") {
		t.Errorf("default HistoryPath = %v", got)
	}
}

func TestPassByName(t *testing.T) {
	cfg := Config{Passes: []Pass{{Name: "a"}, {Name: "b"}}}

	p, ok := cfg.PassByName("b")
	if !ok || p.Name != "b" {
		t.Errorf("PassByName(b) = %v, %v", p, ok)
	}
	if _, ok := cfg.PassByName("c"); ok {
		t.Error("PassByName(c) should not be found")
	}
}

func TestInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "docweaver.yaml")

	if err := Init(path, false); err != nil {
		t.Fatalf("Init() error: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() of generated config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("generated config should validate: %v", err)
	}
	if len(cfg.Passes) == 0 {
		t.Error("generated config should declare at least one pass")
	}

	if err := Init(path, false); err == nil {
		t.Error("Init() without force should refuse to overwrite")
	}
	if err := Init(path, true); err != nil {
		t.Errorf("Init() with force: %v", err)
	}
}

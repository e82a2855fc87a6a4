package config

import (
	"os"
	"path/filepath"
)

// Default values applied after unmarshalling. Validation happens separately
// so defaults never mask a user mistake.
const (
	DefaultFrontend       = "snapshot"
	DefaultOutput         = "./build/docs"
	DefaultLinkTimeout    = "10s"
	DefaultDaemonDebounce = "2s"
	DefaultNATSSubject    = "docweaver.linkcheck"
	DefaultNATSKVBucket   = "docweaver-links"
	defaultCacheDirName   = "docweaver"
)

func applyDefaults(cfg *Config) {
	if cfg.Output == "" {
		cfg.Output = DefaultOutput
	}
	if cfg.CacheRoot == "" {
		cfg.CacheRoot = defaultCacheRoot()
	}

	for i := range cfg.Passes {
		if cfg.Passes[i].Frontend == "" {
			cfg.Passes[i].Frontend = DefaultFrontend
		}
	}

	if cfg.LinkCheck.Timeout == "" {
		cfg.LinkCheck.Timeout = DefaultLinkTimeout
	}
	if cfg.LinkCheck.NATS.URL != "" {
		if cfg.LinkCheck.NATS.Subject == "" {
			cfg.LinkCheck.NATS.Subject = DefaultNATSSubject
		}
		if cfg.LinkCheck.NATS.KVBucket == "" {
			cfg.LinkCheck.NATS.KVBucket = DefaultNATSKVBucket
		}
	}

	if cfg.Daemon.Debounce == "" {
		cfg.Daemon.Debounce = DefaultDaemonDebounce
	}
}

// defaultCacheRoot resolves the per-user cache directory, falling back to a
// working-directory cache when the platform dir cannot be determined.
func defaultCacheRoot() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, defaultCacheDirName)
	}
	return filepath.Join(".", ".docweaver-cache")
}

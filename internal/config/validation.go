package config

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"git.home.luguber.info/inful/docweaver/internal/errors"
)

// knownKinds enumerates the supported platform families.
var knownKinds = map[string]bool{
	"native": true,
	"jvm":    true,
	"js":     true,
	"wasm":   true,
	"common": true,
}

// Validate checks the configuration before a run starts. Every failure is a
// configuration error; nothing executes after one.
func (c *Config) Validate() error {
	validator := newConfigurationValidator(c)
	return validator.validate()
}

// configurationValidator coordinates validation across all configuration domains.
type configurationValidator struct {
	config *Config
}

func newConfigurationValidator(config *Config) *configurationValidator {
	return &configurationValidator{config: config}
}

// validate performs validation in order of dependencies.
func (cv *configurationValidator) validate() error {
	if err := cv.validateModule(); err != nil {
		return err
	}
	if err := cv.validatePasses(); err != nil {
		return err
	}
	if err := cv.validateExternalDocumentation(); err != nil {
		return err
	}
	if err := cv.validateLinkCheck(); err != nil {
		return err
	}
	if err := cv.validateDaemon(); err != nil {
		return err
	}
	return nil
}

func (cv *configurationValidator) validateModule() error {
	if cv.config.Module == "" {
		return errors.ConfigRequired("module")
	}
	if cv.config.Output == "" {
		return errors.ConfigRequired("output")
	}
	if cv.config.Concurrency < 0 {
		return errors.ValidationFailed("concurrency",
			fmt.Sprintf("cannot be negative: %d", cv.config.Concurrency))
	}
	return nil
}

func (cv *configurationValidator) validatePasses() error {
	if len(cv.config.Passes) == 0 {
		return errors.ConfigRequired("passes")
	}

	// Track pass names for duplicates
	names := make(map[string]bool)

	for i := range cv.config.Passes {
		pass := &cv.config.Passes[i]

		if pass.Name == "" {
			return errors.ConfigRequired(fmt.Sprintf("passes[%d].name", i))
		}
		if names[pass.Name] {
			return errors.ValidationFailed("passes", "duplicate pass name: "+pass.Name)
		}
		names[pass.Name] = true

		if !knownKinds[pass.Kind] {
			return errors.ValidationFailed(
				fmt.Sprintf("passes[%s].kind", pass.Name),
				fmt.Sprintf("unsupported platform kind: %q (allowed: native|jvm|js|wasm|common)", pass.Kind))
		}
		if len(pass.SourceRoots) == 0 {
			return errors.ConfigRequired(fmt.Sprintf("passes[%s].sourceRoots", pass.Name))
		}

		// Compile patterns now so matching cannot fail mid-run.
		for j := range pass.PerPackageOptions {
			if err := pass.PerPackageOptions[j].compile(); err != nil {
				return err
			}
		}
	}
	return nil
}

func (cv *configurationValidator) validateExternalDocumentation() error {
	for i, ext := range cv.config.ExternalDocumentation {
		if ext.URL == "" {
			return errors.ConfigRequired(fmt.Sprintf("externalDocumentation[%d].url", i))
		}
	}
	return nil
}

func (cv *configurationValidator) validateLinkCheck() error {
	lc := cv.config.LinkCheck
	if !lc.Enabled {
		return nil
	}
	if _, err := time.ParseDuration(lc.Timeout); err != nil {
		return errors.WrapConfiguration(err, "invalid linkCheck.timeout").
			WithContext("timeout", lc.Timeout)
	}
	return nil
}

func (cv *configurationValidator) validateDaemon() error {
	d := cv.config.Daemon
	if d.Schedule != "" {
		if _, err := cron.ParseStandard(d.Schedule); err != nil {
			return errors.WrapConfiguration(err, "invalid daemon.schedule").
				WithContext("schedule", d.Schedule)
		}
	}
	if d.Debounce != "" {
		if _, err := time.ParseDuration(d.Debounce); err != nil {
			return errors.WrapConfiguration(err, "invalid daemon.debounce").
				WithContext("debounce", d.Debounce)
		}
	}
	return nil
}

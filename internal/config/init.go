package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Init writes an example configuration file.
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", configPath)
	}

	exampleConfig := Config{
		Module: "my-library",
		Passes: []Pass{
			{
				Name:        "jvmMain",
				Kind:        "jvm",
				SourceRoots: []string{"./snapshots/jvmMain.json"},
				Includes:    []string{"./docs/module.md"},
				PerPackageOptions: []PackageOptions{
					{
						Pattern:  `.*\.internal(\..*)?`,
						Suppress: true,
					},
					{
						Pattern:            `.*`,
						Visibility:         []string{"public", "protected"},
						ReportUndocumented: true,
					},
				},
			},
			{
				Name:        "jsMain",
				Kind:        "js",
				SourceRoots: []string{"./snapshots/jsMain.json"},
			},
		},
		ExternalDocumentation: []ExternalDocumentation{
			{
				URL:            "https://kotlinlang.org/api/latest/jvm/stdlib/",
				PackageListURL: "https://kotlinlang.org/api/latest/jvm/stdlib/package-list",
			},
		},
		Output: "./build/docs",
		LinkCheck: LinkCheckConfig{
			Enabled: false,
			Timeout: DefaultLinkTimeout,
		},
		Daemon: DaemonConfig{
			Schedule:    "0 */4 * * *",
			Watch:       true,
			Debounce:    DefaultDaemonDebounce,
			MetricsAddr: ":9105",
		},
	}

	data, err := yaml.Marshal(&exampleConfig)
	if err != nil {
		return fmt.Errorf("failed to marshal example config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

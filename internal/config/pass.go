package config

import (
	"regexp"

	"git.home.luguber.info/inful/docweaver/internal/errors"
)

// Pass configures analysis of one platform.
type Pass struct {
	// Name uniquely identifies the pass, e.g. "jvmMain". It becomes the
	// platform name every fact is keyed under.
	Name string `yaml:"name"`

	// Kind is the platform family: native, jvm, js, wasm or common.
	Kind string `yaml:"kind"`

	// Targets narrows the kind, e.g. ["linuxX64", "macosArm64"].
	Targets []string `yaml:"targets,omitempty"`

	// Frontend selects the analysis front end. Defaults to "snapshot".
	Frontend string `yaml:"frontend,omitempty"`

	// SourceRoots point at the analyzed sources. Remote git roots are
	// fetched into the cache before analysis.
	SourceRoots []string `yaml:"sourceRoots,omitempty"`

	// Classpath lists dependency artifacts the front end needs to resolve
	// references.
	Classpath []string `yaml:"classpath,omitempty"`

	// Includes are standalone Markdown files with module and package
	// documentation.
	Includes []string `yaml:"includes,omitempty"`

	// Samples are files whose snippets may be embedded into
	// documentation.
	Samples []string `yaml:"samples,omitempty"`

	LanguageVersion string `yaml:"languageVersion,omitempty"`
	APIVersion      string `yaml:"apiVersion,omitempty"`

	// PerPackageOptions apply filtering policies to packages matching a
	// regular expression. The first matching entry wins.
	PerPackageOptions []PackageOptions `yaml:"perPackageOptions,omitempty"`
}

// PackageOptions is a filtering policy for packages matching Pattern.
type PackageOptions struct {
	// Pattern is an RE2 regular expression matched against the full
	// package name.
	Pattern string `yaml:"pattern"`

	// Suppress removes matching packages from the documentation entirely.
	Suppress bool `yaml:"suppress,omitempty"`

	// Visibility lists the visibilities kept in the output. Empty means
	// public only.
	Visibility []string `yaml:"visibility,omitempty"`

	// SkipDeprecated removes deprecated declarations.
	SkipDeprecated bool `yaml:"skipDeprecated,omitempty"`

	// ReportUndocumented records a warning for every public declaration
	// without documentation.
	ReportUndocumented bool `yaml:"reportUndocumented,omitempty"`

	re *regexp.Regexp
}

// compile caches the pattern's compiled form. Called during validation so
// later matching cannot fail.
func (o *PackageOptions) compile() error {
	re, err := regexp.Compile(o.Pattern)
	if err != nil {
		return errors.WrapConfiguration(err, "invalid perPackageOptions pattern").
			WithContext("pattern", o.Pattern)
	}
	o.re = re
	return nil
}

// Matches reports whether the policy applies to the given package name.
func (o *PackageOptions) Matches(pkg string) bool {
	if o.re == nil {
		if o.compile() != nil {
			return false
		}
	}
	return o.re.MatchString(pkg)
}

// IncludesVisibility reports whether a declaration of the given visibility
// is kept under this policy. An unspecified visibility counts as public.
func (o *PackageOptions) IncludesVisibility(v string) bool {
	if v == "" {
		v = "public"
	}
	if len(o.Visibility) == 0 {
		return v == "public"
	}
	for _, inc := range o.Visibility {
		if inc == v {
			return true
		}
	}
	return false
}

// OptionsFor resolves the effective package options for one package: the
// first matching entry, or the permissive default when none match.
func (p *Pass) OptionsFor(pkg string) PackageOptions {
	for i := range p.PerPackageOptions {
		if p.PerPackageOptions[i].Matches(pkg) {
			return p.PerPackageOptions[i]
		}
	}
	return PackageOptions{}
}

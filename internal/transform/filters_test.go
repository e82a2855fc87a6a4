package transform

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/docweaver/internal/config"
	"git.home.luguber.info/inful/docweaver/internal/diag"
	"git.home.luguber.info/inful/docweaver/internal/model"
	"git.home.luguber.info/inful/docweaver/internal/platform"
)

var (
	jvmP = platform.New("jvm", platform.KindJVM, nil)
	jsP  = platform.New("js", platform.KindJS, nil)
)

func env(opts map[string][]config.PackageOptions) *Environment {
	cfg := &config.Config{Module: "mylib"}
	for pass, po := range opts {
		cfg.Passes = append(cfg.Passes, config.Pass{Name: pass, Kind: pass, PerPackageOptions: po})
	}
	return &Environment{Config: cfg}
}

// declaration adds a classlike with the given facts to pkg.
func declaration(pkg *model.Documentable, name string, facts map[platform.PlatformData]model.Facts) *model.Documentable {
	d := model.New(model.KindClass, name, pkg.Identity.Child(name))
	for p, f := range facts {
		d.SetFacts(p, f)
	}
	pkg.AddChild(d)
	return d
}

func pkgNode(module *model.Documentable, name string, platforms ...platform.PlatformData) *model.Documentable {
	pkg := model.New(model.KindPackage, name, module.Identity.Child(name))
	for _, p := range platforms {
		pkg.SetFacts(p, model.Facts{})
	}
	module.AddChild(pkg)
	return pkg
}

func TestSuppressedFilterDropsMatchedPackages(t *testing.T) {
	module := model.NewModule("mylib")
	secret := pkgNode(module, "com.example.internal", jvmP)
	declaration(secret, "Hidden", map[platform.PlatformData]model.Facts{jvmP: {}})
	open := pkgNode(module, "com.example.api", jvmP)
	declaration(open, "Visible", map[platform.PlatformData]model.Facts{jvmP: {}})

	e := env(map[string][]config.PackageOptions{
		"jvm": {{Pattern: `.*\.internal`, Suppress: true}},
	})

	out, err := NewSuppressedFilter().Transform(context.Background(), e, module)
	require.NoError(t, err)

	require.Len(t, out.Children, 1)
	assert.Equal(t, "com.example.api", out.Children[0].Name)
	// Input tree untouched.
	assert.Len(t, module.Children, 2)
}

func TestSuppressedFilterIsPerPlatform(t *testing.T) {
	module := model.NewModule("mylib")
	pkg := pkgNode(module, "com.example.jsonly", jvmP, jsP)
	declaration(pkg, "C", map[platform.PlatformData]model.Facts{jvmP: {}, jsP: {}})

	// Only the jvm pass suppresses the package.
	e := env(map[string][]config.PackageOptions{
		"jvm": {{Pattern: `.*`, Suppress: true}},
		"js":  nil,
	})

	out, err := NewSuppressedFilter().Transform(context.Background(), e, module)
	require.NoError(t, err)

	require.Len(t, out.Children, 1, "package survives on the js platform")
	got := out.Children[0]
	_, hasJVM := got.FactsFor(jvmP)
	assert.False(t, hasJVM, "jvm view removed")
	_, hasJS := got.FactsFor(jsP)
	assert.True(t, hasJS)

	require.Len(t, got.Children, 1)
	_, hasJVM = got.Children[0].FactsFor(jvmP)
	assert.False(t, hasJVM, "declarations lose the suppressed platform too")
}

func TestVisibilityFilterDefaultsToPublicOnly(t *testing.T) {
	module := model.NewModule("mylib")
	pkg := pkgNode(module, "p", jvmP)
	declaration(pkg, "Public", map[platform.PlatformData]model.Facts{jvmP: {Visibility: model.VisibilityPublic}})
	declaration(pkg, "Unspecified", map[platform.PlatformData]model.Facts{jvmP: {}})
	declaration(pkg, "Internal", map[platform.PlatformData]model.Facts{jvmP: {Visibility: model.VisibilityInternal}})
	declaration(pkg, "Private", map[platform.PlatformData]model.Facts{jvmP: {Visibility: model.VisibilityPrivate}})

	out, err := NewVisibilityFilter().Transform(context.Background(), env(nil), module)
	require.NoError(t, err)

	var kept []string
	for _, c := range out.Children[0].Children {
		kept = append(kept, c.Name)
	}
	assert.Equal(t, []string{"Public", "Unspecified"}, kept)
}

func TestVisibilityFilterHonorsConfiguredList(t *testing.T) {
	module := model.NewModule("mylib")
	pkg := pkgNode(module, "p", jvmP)
	declaration(pkg, "Internal", map[platform.PlatformData]model.Facts{jvmP: {Visibility: model.VisibilityInternal}})

	e := env(map[string][]config.PackageOptions{
		"jvm": {{Pattern: `.*`, Visibility: []string{"public", "internal"}}},
	})

	out, err := NewVisibilityFilter().Transform(context.Background(), e, module)
	require.NoError(t, err)
	require.Len(t, out.Children[0].Children, 1)
}

func TestVisibilityFilterIsPerPlatform(t *testing.T) {
	module := model.NewModule("mylib")
	pkg := pkgNode(module, "p", jvmP, jsP)
	declaration(pkg, "Actual", map[platform.PlatformData]model.Facts{
		jvmP: {Visibility: model.VisibilityPublic},
		jsP:  {Visibility: model.VisibilityInternal},
	})

	out, err := NewVisibilityFilter().Transform(context.Background(), env(nil), module)
	require.NoError(t, err)

	got := out.Children[0].Children[0]
	_, hasJVM := got.FactsFor(jvmP)
	assert.True(t, hasJVM)
	_, hasJS := got.FactsFor(jsP)
	assert.False(t, hasJS, "internal js view dropped under the default policy")
}

func TestDeprecatedFilter(t *testing.T) {
	module := model.NewModule("mylib")
	pkg := pkgNode(module, "p", jvmP)
	declaration(pkg, "Old", map[platform.PlatformData]model.Facts{
		jvmP: {Visibility: model.VisibilityPublic, Deprecation: &model.Deprecation{Message: "use New"}},
	})
	declaration(pkg, "New", map[platform.PlatformData]model.Facts{
		jvmP: {Visibility: model.VisibilityPublic},
	})

	e := env(map[string][]config.PackageOptions{
		"jvm": {{Pattern: `.*`, SkipDeprecated: true}},
	})

	out, err := NewDeprecatedFilter().Transform(context.Background(), e, module)
	require.NoError(t, err)

	require.Len(t, out.Children[0].Children, 1)
	assert.Equal(t, "New", out.Children[0].Children[0].Name)
}

func TestUndocumentedReporter(t *testing.T) {
	module := model.NewModule("mylib")
	pkg := pkgNode(module, "p", jvmP)
	declaration(pkg, "Documented", map[platform.PlatformData]model.Facts{
		jvmP: {Visibility: model.VisibilityPublic, Documentation: "docs"},
	})
	declaration(pkg, "Undocumented", map[platform.PlatformData]model.Facts{
		jvmP: {Visibility: model.VisibilityPublic},
	})
	declaration(pkg, "InternalUndocumented", map[platform.PlatformData]model.Facts{
		jvmP: {Visibility: model.VisibilityInternal},
	})

	collector := diag.NewCollector()
	e := env(map[string][]config.PackageOptions{
		"jvm": {{Pattern: `.*`, ReportUndocumented: true}},
	})
	e.Reporter = collector

	out, err := NewUndocumentedReporter().Transform(context.Background(), e, module)
	require.NoError(t, err)
	assert.Equal(t, module, out, "reporter never rewrites the tree")

	diags := collector.Diagnostics()
	require.Len(t, diags, 1, "only public undocumented declarations are reported")
	assert.Equal(t, diag.SeverityWarning, diags[0].Severity)
	assert.True(t, strings.Contains(diags[0].Message, "mylib/p/Undocumented"), diags[0].Message)
}

func TestUndocumentedReporterOffByDefault(t *testing.T) {
	module := model.NewModule("mylib")
	pkg := pkgNode(module, "p", jvmP)
	declaration(pkg, "Undocumented", map[platform.PlatformData]model.Facts{
		jvmP: {Visibility: model.VisibilityPublic},
	})

	collector := diag.NewCollector()
	e := env(nil)
	e.Reporter = collector

	_, err := NewUndocumentedReporter().Transform(context.Background(), e, module)
	require.NoError(t, err)
	assert.Zero(t, collector.Len())
}

func TestEmptyPackagesFilter(t *testing.T) {
	module := model.NewModule("mylib")
	pkgNode(module, "empty", jvmP)
	full := pkgNode(module, "full", jvmP)
	declaration(full, "C", map[platform.PlatformData]model.Facts{jvmP: {}})

	out, err := NewEmptyPackagesFilter().Transform(context.Background(), env(nil), module)
	require.NoError(t, err)
	require.Len(t, out.Children, 1)
	assert.Equal(t, "full", out.Children[0].Name)
}

func TestEmptyPackagesFilterDisabled(t *testing.T) {
	module := model.NewModule("mylib")
	pkgNode(module, "empty", jvmP)

	e := env(nil)
	noSkip := false
	e.Config.SkipEmptyPackages = &noSkip

	out, err := NewEmptyPackagesFilter().Transform(context.Background(), e, module)
	require.NoError(t, err)
	assert.Len(t, out.Children, 1, "disabled filter keeps empty packages")
}

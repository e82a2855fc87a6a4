package pagegen

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/docweaver/internal/model"
	"git.home.luguber.info/inful/docweaver/internal/pages"
	"git.home.luguber.info/inful/docweaver/internal/platform"
)

var (
	jvmP = platform.New("jvm", platform.KindJVM, nil)
	jsP  = platform.New("js", platform.KindJS, nil)
)

// fixtureModel builds a two-platform merged tree:
//
//	mylib
//	  com.example.core
//	    Deque (class, jvm+js)
//	      push  (function, jvm+js, shared signature)
//	      peek  (function, jvm only)
//	    topFn   (function, jvm+js)
func fixtureModel() *model.Documentable {
	root := model.NewModule("mylib")
	root.SetFacts(jvmP, model.Facts{Documentation: "The library."})
	root.SetFacts(jsP, model.Facts{Documentation: "The library."})

	pkg := model.New(model.KindPackage, "com.example.core", root.Identity.Child("com.example.core"))
	pkg.SetFacts(jvmP, model.Facts{Documentation: "Core collections."})
	pkg.SetFacts(jsP, model.Facts{Documentation: "Core collections."})
	root.AddChild(pkg)

	deque := model.New(model.KindClass, "Deque", pkg.Identity.Child("Deque"))
	deque.SetFacts(jvmP, model.Facts{Documentation: "A double-ended queue.", Signature: "class Deque<T>", Visibility: model.VisibilityPublic})
	deque.SetFacts(jsP, model.Facts{Documentation: "A double-ended queue.", Signature: "class Deque<T>", Visibility: model.VisibilityPublic})
	pkg.AddChild(deque)

	push := model.New(model.KindFunction, "push", deque.Identity.Child("push").WithSignature("push(T)"))
	push.SetFacts(jvmP, model.Facts{Documentation: "Adds an element.", Signature: "fun push(element: T)"})
	push.SetFacts(jsP, model.Facts{Documentation: "Adds an element.", Signature: "fun push(element: T)"})
	deque.AddChild(push)

	peek := model.New(model.KindFunction, "peek", deque.Identity.Child("peek").WithSignature("peek()"))
	peek.SetFacts(jvmP, model.Facts{Documentation: "JVM-only peek.", Signature: "fun peek(): T?"})
	deque.AddChild(peek)

	topFn := model.New(model.KindFunction, "topFn", pkg.Identity.Child("topFn").WithSignature("topFn()"))
	topFn.SetFacts(jvmP, model.Facts{Signature: "fun topFn()"})
	topFn.SetFacts(jsP, model.Facts{Signature: "fun topFn()"})
	pkg.AddChild(topFn)

	return root
}

func translate(t *testing.T, root *model.Documentable, opts Options) *pages.PageNode {
	t.Helper()
	page, err := NewDefaultTranslator(opts).Translate(context.Background(), root)
	require.NoError(t, err)
	return page
}

// headings collects the page's heading texts in order.
func headings(p *pages.PageNode) []string {
	var out []string
	for _, b := range p.Content {
		if b.Kind == pages.BlockHeading {
			out = append(out, b.Text)
		}
	}
	return out
}

func blocksOf(p *pages.PageNode, kind pages.BlockKind) []pages.ContentBlock {
	var out []pages.ContentBlock
	for _, b := range p.Content {
		if b.Kind == kind {
			out = append(out, b)
		}
	}
	return out
}

func TestTranslateBuildsPageTree(t *testing.T) {
	root := translate(t, fixtureModel(), Options{GenerateIndexPages: true})

	assert.Equal(t, pages.KindModule, root.Kind)
	assert.Equal(t, "mylib", root.Name)
	assert.Equal(t, "mylib", root.Slug)
	require.Len(t, root.Children, 1)

	pkg := root.Children[0]
	assert.Equal(t, pages.KindPackage, pkg.Kind)
	assert.Equal(t, "com.example.core", pkg.Name)
	assert.Equal(t, "com-example-core", pkg.Slug)
	assert.Contains(t, headings(pkg), "Functions")
	assert.Contains(t, headings(pkg), "topFn")

	require.Len(t, pkg.Children, 1)
	deque := pkg.Children[0]
	assert.Equal(t, pages.KindClasslike, deque.Kind)
	assert.Equal(t, "Deque", deque.Name)
	assert.Empty(t, deque.Children, "members stay sections, not pages")

	got := headings(deque)
	assert.Equal(t, []string{"Deque", "Functions", "peek", "push"}, got)
}

func TestTranslateIsDeterministic(t *testing.T) {
	a := translate(t, fixtureModel(), Options{GenerateIndexPages: true})
	b := translate(t, fixtureModel(), Options{GenerateIndexPages: true})

	diff := cmp.Diff(a, b, cmpopts.IgnoreUnexported(model.Documentable{}))
	assert.Empty(t, diff)
}

func TestTranslateIndexTables(t *testing.T) {
	withIndex := translate(t, fixtureModel(), Options{GenerateIndexPages: true})
	tables := blocksOf(withIndex, pages.BlockTable)
	require.Len(t, tables, 1)
	require.Len(t, tables[0].Rows, 1)
	assert.Equal(t, "[com.example.core](/com-example-core/)", tables[0].Rows[0][0])
	assert.Equal(t, "Core collections.", tables[0].Rows[0][1])

	pkgTables := blocksOf(withIndex.Children[0], pages.BlockTable)
	require.Len(t, pkgTables, 1)
	assert.Equal(t, "[Deque](/com-example-core/deque/)", pkgTables[0].Rows[0][0])

	withoutIndex := translate(t, fixtureModel(), Options{})
	assert.Empty(t, blocksOf(withoutIndex, pages.BlockTable))
	assert.Empty(t, blocksOf(withoutIndex.Children[0], pages.BlockTable))
}

func TestPlatformVariantBlocks(t *testing.T) {
	root := translate(t, fixtureModel(), Options{})
	deque := root.Children[0].Children[0]

	var pushSig, peekSig *pages.ContentBlock
	for i, b := range deque.Content {
		if b.Kind != pages.BlockCode {
			continue
		}
		switch b.Text {
		case "fun push(element: T)":
			pushSig = &deque.Content[i]
		case "fun peek(): T?":
			peekSig = &deque.Content[i]
		}
	}

	require.NotNil(t, pushSig)
	assert.Empty(t, pushSig.Platforms, "shared signature applies to every platform")

	require.NotNil(t, peekSig)
	assert.Equal(t, []platform.PlatformData{jvmP}, peekSig.Platforms)
}

func TestOverloadsShareOneSection(t *testing.T) {
	root := model.NewModule("mylib")
	pkg := model.New(model.KindPackage, "p", root.Identity.Child("p"))
	pkg.SetFacts(jvmP, model.Facts{})
	root.AddChild(pkg)
	box := model.New(model.KindClass, "Box", pkg.Identity.Child("Box"))
	box.SetFacts(jvmP, model.Facts{Signature: "class Box"})
	pkg.AddChild(box)
	for _, sig := range []string{"fun get(): T", "fun get(default: T): T"} {
		fn := model.New(model.KindFunction, "get", box.Identity.Child("get").WithSignature(sig))
		fn.SetFacts(jvmP, model.Facts{Signature: sig})
		box.AddChild(fn)
	}

	page := translate(t, root, Options{})
	boxPage := page.Children[0].Children[0]

	count := 0
	for _, h := range headings(boxPage) {
		if h == "get" {
			count++
		}
	}
	assert.Equal(t, 1, count, "overloads share one section")
	assert.Len(t, blocksOf(boxPage, pages.BlockCode), 3, "class + two overload signatures")
}

func TestEnumEntriesKeepDeclarationOrder(t *testing.T) {
	root := model.NewModule("mylib")
	pkg := model.New(model.KindPackage, "p", root.Identity.Child("p"))
	pkg.SetFacts(jvmP, model.Facts{})
	root.AddChild(pkg)
	color := model.New(model.KindEnum, "Color", pkg.Identity.Child("Color"))
	color.SetFacts(jvmP, model.Facts{Signature: "enum class Color"})
	pkg.AddChild(color)
	for _, name := range []string{"RED", "GREEN", "BLUE"} {
		e := model.New(model.KindEnumEntry, name, color.Identity.Child(name))
		e.SetFacts(jvmP, model.Facts{})
		color.AddChild(e)
	}

	page := translate(t, root, Options{})
	colorPage := page.Children[0].Children[0]
	assert.Equal(t, []string{"Color", "Enum entries", "RED", "GREEN", "BLUE"}, headings(colorPage))
}

func TestDeprecationAndAnnotations(t *testing.T) {
	root := model.NewModule("mylib")
	pkg := model.New(model.KindPackage, "p", root.Identity.Child("p"))
	pkg.SetFacts(jvmP, model.Facts{})
	root.AddChild(pkg)
	old := model.New(model.KindClass, "Old", pkg.Identity.Child("Old"))
	old.SetFacts(jvmP, model.Facts{
		Signature:   "class Old",
		Deprecation: &model.Deprecation{Message: "Gone in 2.0.", ReplaceWith: "New"},
		Annotations: []model.Annotation{{Name: "Since", Params: map[string]string{"version": "1.2"}}},
	})
	pkg.AddChild(old)

	page := translate(t, root, Options{})
	oldPage := page.Children[0].Children[0]
	texts := blocksOf(oldPage, pages.BlockText)
	require.Len(t, texts, 2)
	assert.Equal(t, "Annotations: `@Since(version = 1.2)`", texts[0].Text)
	assert.Equal(t, "**Deprecated.** Gone in 2.0. Replace with `New`.", texts[1].Text)
}

func TestTranslateRejectsNilModel(t *testing.T) {
	_, err := NewDefaultTranslator(Options{}).Translate(context.Background(), nil)
	require.Error(t, err)
}

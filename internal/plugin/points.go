package plugin

// Well-known extension points. The pipeline resolves these by contract type;
// plugins may define additional points of their own.
var (
	// PointFileTranslator converts standalone documentation files into a
	// per-platform tree.
	PointFileTranslator = Point{Name: "translator.file", Cardinality: Single}

	// PointDocumentableMerger combines per-platform trees into one.
	PointDocumentableMerger = Point{Name: "documentable.merger", Cardinality: Single}

	// PointDocumentableTransformer rewrites the merged tree. Contributions
	// run as a chain in contribution order.
	PointDocumentableTransformer = Point{Name: "documentable.transformer", Cardinality: Multi}

	// PointPageTranslator builds the page tree from the final model.
	PointPageTranslator = Point{Name: "page.translator", Cardinality: Single}

	// PointPageTransformer rewrites the page tree. Contributions run as a
	// chain in contribution order.
	PointPageTransformer = Point{Name: "page.transformer", Cardinality: Multi}

	// PointRenderer writes the final page tree to the output.
	PointRenderer = Point{Name: "renderer", Cardinality: Single}
)

// PointSymbolTranslator returns the symbol translator point for one analysis
// front-end kind. Each front end needs exactly one symbol translator, so the
// point is Single per kind.
func PointSymbolTranslator(frontend string) Point {
	return Point{Name: "translator.symbol." + frontend, Cardinality: Single}
}

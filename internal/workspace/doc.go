// Package workspace manages the cache-root directory layout.
//
// Everything docweaver keeps between runs lives under one per-user cache
// root: fetched remote source roots under sources/, and the run history
// database next to them. The layout survives across runs so remote sources
// update incrementally instead of recloning.
package workspace

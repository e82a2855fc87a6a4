package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyRunID      = "run_id"
	KeyStage      = "stage"
	KeyPlatform   = "platform"
	KeyPass       = "pass"
	KeyModule     = "module"
	KeyPackage    = "package"
	KeyPlugin     = "plugin"
	KeyPoint      = "extension_point"
	KeyDurationMS = "duration_ms"
	KeyCount      = "count"
	KeyPath       = "path"
	KeyURL        = "url"
	KeyRepo       = "repository"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func RunID(id string) slog.Attr       { return slog.String(KeyRunID, id) }
func Stage(name string) slog.Attr     { return slog.String(KeyStage, name) }
func Platform(name string) slog.Attr  { return slog.String(KeyPlatform, name) }
func Pass(name string) slog.Attr      { return slog.String(KeyPass, name) }
func Module(name string) slog.Attr    { return slog.String(KeyModule, name) }
func Package(name string) slog.Attr   { return slog.String(KeyPackage, name) }
func Plugin(name string) slog.Attr    { return slog.String(KeyPlugin, name) }
func Point(name string) slog.Attr     { return slog.String(KeyPoint, name) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }
func Count(n int) slog.Attr           { return slog.Int(KeyCount, n) }
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func URL(u string) slog.Attr          { return slog.String(KeyURL, u) }
func Repository(r string) slog.Attr   { return slog.String(KeyRepo, r) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}

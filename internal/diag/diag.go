// Package diag collects analysis diagnostics raised while a documentation
// run executes. Diagnostics are advisory: they never abort the run by
// themselves, the caller inspects the collector afterwards and decides the
// pass/fail policy.
package diag

import (
	"fmt"
	"sort"
	"sync"
)

// Severity ranks a diagnostic.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return fmt.Sprintf("severity(%d)", int(s))
	}
}

// Location points at the source position a diagnostic refers to.
type Location struct {
	File   string
	Line   int
	Column int
}

func (l Location) String() string {
	switch {
	case l.File == "":
		return ""
	case l.Line == 0:
		return l.File
	case l.Column == 0:
		return fmt.Sprintf("%s:%d", l.File, l.Line)
	default:
		return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
	}
}

// Diagnostic is one recorded analysis finding.
type Diagnostic struct {
	Severity Severity
	Message  string
	Platform string
	Location *Location
}

func (d Diagnostic) String() string {
	out := d.Severity.String() + ": " + d.Message
	if d.Location != nil && d.Location.File != "" {
		out = d.Location.String() + ": " + out
	}
	if d.Platform != "" {
		out += " [" + d.Platform + "]"
	}
	return out
}

// Reporter is the narrow surface handed to analysis front ends and
// translators so they can record findings without seeing the collector.
type Reporter interface {
	Report(severity Severity, message string, location *Location)
}

// Collector accumulates diagnostics from concurrently running stages.
type Collector struct {
	mu    sync.Mutex
	items []Diagnostic
}

// NewCollector returns an empty collector.
func NewCollector() *Collector {
	return &Collector{}
}

// Report records a diagnostic. Safe for concurrent use.
func (c *Collector) Report(severity Severity, message string, location *Location) {
	c.Add(Diagnostic{Severity: severity, Message: message, Location: location})
}

// Add records a fully populated diagnostic. Safe for concurrent use.
func (c *Collector) Add(d Diagnostic) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = append(c.items, d)
}

// ForPlatform returns a reporter that stamps every diagnostic with the given
// platform name before recording it.
func (c *Collector) ForPlatform(name string) Reporter {
	return platformReporter{collector: c, platform: name}
}

type platformReporter struct {
	collector *Collector
	platform  string
}

func (r platformReporter) Report(severity Severity, message string, location *Location) {
	r.collector.Add(Diagnostic{
		Severity: severity,
		Message:  message,
		Platform: r.platform,
		Location: location,
	})
}

// HasErrors reports whether any error-severity diagnostic was recorded.
func (c *Collector) HasErrors() bool {
	return c.Count(SeverityError) > 0
}

// Count returns the number of diagnostics with the given severity.
func (c *Collector) Count(severity Severity) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, d := range c.items {
		if d.Severity == severity {
			n++
		}
	}
	return n
}

// Len returns the total number of recorded diagnostics.
func (c *Collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Diagnostics returns a sorted copy of everything recorded so far: highest
// severity first, then by file and line, then by message. The stable order
// makes reports reproducible regardless of translation scheduling.
func (c *Collector) Diagnostics() []Diagnostic {
	c.mu.Lock()
	out := make([]Diagnostic, len(c.items))
	copy(out, c.items)
	c.mu.Unlock()

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Severity != b.Severity {
			return a.Severity > b.Severity
		}
		af, bf := locationKey(a.Location), locationKey(b.Location)
		if af.File != bf.File {
			return af.File < bf.File
		}
		if af.Line != bf.Line {
			return af.Line < bf.Line
		}
		return a.Message < b.Message
	})
	return out
}

func locationKey(l *Location) Location {
	if l == nil {
		return Location{}
	}
	return *l
}

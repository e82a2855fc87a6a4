package daemon

import (
	"context"
	"time"
)

// Build trigger reasons.
const (
	ReasonStartup  = "startup"
	ReasonSchedule = "schedule"
	ReasonSources  = "sources"
	ReasonConfig   = "config"
)

// BuildRequest is one coalesced burst of build triggers.
type BuildRequest struct {
	Reason        string // reason of the last trigger in the burst
	Path          string // changed path for watch-triggered builds
	Requests      int    // triggers coalesced into this request
	ConfigChanged bool   // any trigger in the burst was a config change
	FirstAt       time.Time
	LastAt        time.Time
}

// Debouncer coalesces bursts of build triggers into single build requests.
// A burst ends after a quiet window without triggers; a steady stream of
// triggers cannot postpone the build past the max delay. The output channel
// holds one request, so triggers arriving during a build queue exactly one
// follow-up.
type Debouncer struct {
	quiet    time.Duration
	maxDelay time.Duration
	triggers chan trigger
	out      chan BuildRequest
}

type trigger struct {
	reason string
	path   string
	at     time.Time
}

const defaultQuietWindow = 2 * time.Second

// NewDebouncer creates a debouncer. Non-positive quiet falls back to the
// default window; non-positive maxDelay falls back to ten quiet windows.
func NewDebouncer(quiet, maxDelay time.Duration) *Debouncer {
	if quiet <= 0 {
		quiet = defaultQuietWindow
	}
	if maxDelay <= 0 {
		maxDelay = 10 * quiet
	}
	return &Debouncer{
		quiet:    quiet,
		maxDelay: maxDelay,
		triggers: make(chan trigger, 64),
		out:      make(chan BuildRequest, 1),
	}
}

// Trigger records a build trigger. Never blocks; when the trigger buffer is
// full the burst is already going to build, so dropping loses nothing.
func (d *Debouncer) Trigger(reason, path string) {
	select {
	case d.triggers <- trigger{reason: reason, path: path, at: time.Now()}:
	default:
	}
}

// C delivers coalesced build requests.
func (d *Debouncer) C() <-chan BuildRequest { return d.out }

// Run coalesces triggers until the context is canceled. Single goroutine.
// Once a burst has aged past the quiet window (or hit the max delay) it is
// offered on the output channel; triggers arriving while the offer waits
// behind a running build keep folding into the same request.
func (d *Debouncer) Run(ctx context.Context) {
	quietTimer := newStoppedTimer()
	maxTimer := newStoppedTimer()
	defer quietTimer.Stop()
	defer maxTimer.Stop()

	var (
		quietC, maxC <-chan time.Time
		pending      *BuildRequest
		ready        bool
	)

	for {
		var outC chan<- BuildRequest
		var next BuildRequest
		if ready && pending != nil {
			outC = d.out
			next = *pending
		}
		select {
		case <-ctx.Done():
			return
		case t := <-d.triggers:
			if pending == nil {
				pending = &BuildRequest{FirstAt: t.at}
				ready = false
				resetTimer(maxTimer, d.maxDelay)
				maxC = maxTimer.C
			}
			pending.Reason = t.reason
			pending.Path = t.path
			pending.Requests++
			pending.LastAt = t.at
			if t.reason == ReasonConfig {
				pending.ConfigChanged = true
			}
			if !ready {
				resetTimer(quietTimer, d.quiet)
				quietC = quietTimer.C
			}
		case <-quietC:
			ready = true
			quietC, maxC = nil, nil
		case <-maxC:
			ready = true
			quietC, maxC = nil, nil
		case outC <- next:
			pending = nil
			ready = false
		}
	}
}

func newStoppedTimer() *time.Timer {
	t := time.NewTimer(time.Hour)
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	return t
}

func resetTimer(t *time.Timer, after time.Duration) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	t.Reset(after)
}

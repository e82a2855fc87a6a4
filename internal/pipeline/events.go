package pipeline

import (
	"time"

	"git.home.luguber.info/inful/docweaver/internal/diag"
)

// Event is a run event published on the bus. Every event carries the run it
// belongs to.
type Event interface {
	Name() string
	RunID() string
}

// Event names used on the bus.
const (
	EventRunStarted         = "RunStarted"
	EventStageStarted       = "StageStarted"
	EventStageCompleted     = "StageCompleted"
	EventDiagnosticReported = "DiagnosticReported"
	EventRunFinished        = "RunFinished"
)

type baseEvent struct{ Run string }

func (e baseEvent) RunID() string { return e.Run }

// RunStarted is published once, before the first stage.
type RunStarted struct {
	baseEvent
	Module string
	At     time.Time
}

func (RunStarted) Name() string { return EventRunStarted }

// StageStarted is published when a stage begins.
type StageStarted struct {
	baseEvent
	Stage Stage
	At    time.Time
}

func (StageStarted) Name() string { return EventStageStarted }

// StageCompleted is published when a stage ends, successfully or not.
type StageCompleted struct {
	baseEvent
	Stage    Stage
	At       time.Time
	Duration time.Duration
	Err      error
}

func (StageCompleted) Name() string { return EventStageCompleted }

// DiagnosticReported carries one collected diagnostic. Published after the
// stage sequence ends, in the collector's sorted order.
type DiagnosticReported struct {
	baseEvent
	Diagnostic diag.Diagnostic
}

func (DiagnosticReported) Name() string { return EventDiagnosticReported }

// RunFinished is published once, after the stage sequence and diagnostics.
type RunFinished struct {
	baseEvent
	Module   string
	Outcome  string
	Err      error
	At       time.Time
	Duration time.Duration
	Warnings int
	Errors   int
	Pages    int
}

func (RunFinished) Name() string { return EventRunFinished }

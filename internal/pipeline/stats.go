package pipeline

import (
	"git.home.luguber.info/inful/docweaver/internal/observability"
)

// AttachStats subscribes an in-process metrics collector to the bus. The
// daemon serves the collected snapshot on its status endpoint.
func AttachStats(bus *Bus, mc *observability.MetricsCollector) {
	bus.Subscribe(EventRunStarted, func(e Event) error {
		if _, ok := e.(RunStarted); ok {
			mc.RecordRunStart()
		}
		return nil
	})

	bus.Subscribe(EventStageCompleted, func(e Event) error {
		if ev, ok := e.(StageCompleted); ok {
			mc.RecordStage(string(ev.Stage), ev.Duration)
		}
		return nil
	})

	bus.Subscribe(EventDiagnosticReported, func(e Event) error {
		if ev, ok := e.(DiagnosticReported); ok {
			mc.RecordDiagnostics(ev.Diagnostic.Severity.String(), 1)
		}
		return nil
	})

	bus.Subscribe(EventRunFinished, func(e Event) error {
		if ev, ok := e.(RunFinished); ok {
			mc.RecordRunEnd(ev.Duration, ev.Err == nil)
		}
		return nil
	})
}

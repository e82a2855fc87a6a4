package pipeline

import (
	"context"
	"log/slog"

	"git.home.luguber.info/inful/docweaver/internal/logfields"
	"git.home.luguber.info/inful/docweaver/internal/metrics"
	"git.home.luguber.info/inful/docweaver/internal/runstore"
)

// AttachHistory subscribes a run-history recorder to the bus: run rows,
// per-stage completion events and diagnostics end up in the store. Store
// failures are logged and never fail the run.
func AttachHistory(bus *Bus, store *runstore.Store) {
	bus.Subscribe(EventRunStarted, func(e Event) error {
		ev, ok := e.(RunStarted)
		if !ok {
			return nil
		}
		historyWrite(ev.RunID(), store.BeginRun(context.Background(), ev.RunID(), ev.Module, ev.At))
		return nil
	})

	bus.Subscribe(EventStageCompleted, func(e Event) error {
		ev, ok := e.(StageCompleted)
		if !ok {
			return nil
		}
		event := "completed"
		if ev.Err != nil {
			event = "failed"
		}
		historyWrite(ev.RunID(), store.RecordStageEvent(context.Background(),
			ev.RunID(), string(ev.Stage), event, ev.At, ev.Duration))
		return nil
	})

	bus.Subscribe(EventDiagnosticReported, func(e Event) error {
		ev, ok := e.(DiagnosticReported)
		if !ok {
			return nil
		}
		historyWrite(ev.RunID(), store.RecordDiagnostic(context.Background(),
			ev.RunID(), ev.Diagnostic))
		return nil
	})

	bus.Subscribe(EventRunFinished, func(e Event) error {
		ev, ok := e.(RunFinished)
		if !ok {
			return nil
		}
		res := runstore.Result{
			Outcome:    storeOutcome(ev),
			Warnings:   ev.Warnings,
			Errors:     ev.Errors,
			Pages:      ev.Pages,
			FinishedAt: ev.At,
		}
		if ev.Err != nil {
			res.Error = ev.Err.Error()
		}
		historyWrite(ev.RunID(), store.FinishRun(context.Background(), ev.RunID(), res))
		return nil
	})
}

func storeOutcome(ev RunFinished) string {
	switch metrics.OutcomeLabel(ev.Outcome) {
	case metrics.OutcomeFailed, metrics.OutcomeCanceled:
		return runstore.OutcomeFailed
	default:
		return runstore.OutcomeSucceeded
	}
}

func historyWrite(runID string, err error) {
	if err != nil {
		slog.Warn("Run history write failed",
			logfields.RunID(runID), logfields.Error(err))
	}
}

package metrics

import (
	"context"
	"errors"
	"time"

	"github.com/kilianp07/evload/core/events"
	"github.com/kilianp07/evload/core/features"
	"github.com/kilianp07/evload/core/forecast"
	coremetrics "github.com/kilianp07/evload/core/metrics"
	"github.com/kilianp07/evload/core/prediction"
	"github.com/kilianp07/evload/core/risk"
	"github.com/kilianp07/evload/core/store"
	"github.com/kilianp07/evload/internal/eventbus"
)

// StartEventCollector subscribes to the event bus and records metrics for events.
// It stops when the context is canceled or the bus is closed. The returned
// channel is closed once the collector goroutine has exited.
func StartEventCollector(ctx context.Context, bus eventbus.EventBus[events.Event], sink coremetrics.MetricsSink) <-chan struct{} {
	done := make(chan struct{})
	if bus == nil || sink == nil {
		close(done)
		return done
	}
	sub := bus.Subscribe()
	go func() {
		defer close(done)
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				record(sink, ev)
			}
		}
	}()
	return done
}

func record(sink coremetrics.MetricsSink, ev events.Event) {
	switch e := ev.(type) {
	case events.ForecastEvent:
		if e.Report == nil {
			return
		}
		_ = sink.RecordForecast(ForecastEventFromReport(e.Report, e.Duration))
	case events.FleetEvent:
		r, ok := sink.(coremetrics.FleetRecorder)
		if !ok || e.Snapshot == nil {
			return
		}
		fe := coremetrics.FleetSnapshotEvent{
			Failures: len(e.Snapshot.Failures),
			Duration: e.Duration,
			Time:     e.Snapshot.GeneratedAt,
		}
		for _, rec := range e.Snapshot.Records {
			fe.Stations = append(fe.Stations, coremetrics.FleetStation{
				StationID:      rec.StationID,
				Zone:           rec.Zone,
				PeakForecast:   rec.PeakForecast,
				UtilizationPct: rec.UtilizationPct,
				Risk:           rec.Risk.String(),
			})
		}
		_ = r.RecordFleetSnapshot(fe)
	case events.DecisionEvent:
		if r, ok := sink.(coremetrics.DecisionRecorder); ok {
			_ = r.RecordDecision(coremetrics.DecisionEvent{
				Demand:     e.Decision.PredictedDemand,
				CapacityKW: e.Decision.CapacityKW,
				Ratio:      e.Decision.UtilizationRatio,
				Level:      e.Decision.RiskLevel.String(),
				Time:       eventTime(e.Time),
			})
		}
	case events.FailureEvent:
		if r, ok := sink.(coremetrics.FailureRecorder); ok {
			_ = r.RecordFailure(coremetrics.FailureEvent{
				Operation: e.Operation,
				StationID: e.StationID,
				Kind:      ErrorKind(e.Err),
				Time:      eventTime(e.Time),
			})
		}
	}
}

// ForecastEventFromReport flattens a report into a metrics event.
func ForecastEventFromReport(r *forecast.Report, d time.Duration) coremetrics.ForecastEvent {
	ev := coremetrics.ForecastEvent{
		StationID:   r.StationID,
		Horizon:     r.Horizon,
		GrowthPct:   r.GrowthPct,
		Average:     r.Average,
		Peak:        r.Peak,
		ResidualStd: r.ResidualStd,
		DemandRisk:  r.DemandRisk.String(),
		Duration:    d,
		Time:        eventTime(r.GeneratedAt),
	}
	if r.Infrastructure != nil {
		ev.InfraRisk = r.Infrastructure.Risk.String()
		ev.UtilizationPct = r.Infrastructure.Percent
	}
	return ev
}

// ErrorKind maps an error to a short label used in metrics.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	case errors.Is(err, features.ErrInsufficientHistory):
		return "insufficient_history"
	case errors.Is(err, store.ErrMissingMetadata):
		return "missing_metadata"
	case errors.Is(err, store.ErrUnknownStation):
		return "unknown_station"
	case errors.Is(err, risk.ErrDivisionByZero):
		return "division_by_zero"
	case errors.Is(err, prediction.ErrSchemaMismatch):
		return "schema_mismatch"
	case errors.Is(err, forecast.ErrInvalidHorizon), errors.Is(err, forecast.ErrInvalidGrowth),
		errors.Is(err, risk.ErrNonFinite):
		return "invalid_argument"
	default:
		return "internal"
	}
}

func eventTime(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now()
	}
	return t
}

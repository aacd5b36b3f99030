package monitoring

import (
	"errors"
	"testing"

	"github.com/getsentry/sentry-go"
	"github.com/kilianp07/evload/config"
	coremon "github.com/kilianp07/evload/core/monitoring"
)

func TestNewSentryMonitorEmptyDSN(t *testing.T) {
	m, err := NewSentryMonitor(config.SentryConfig{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := m.(coremon.NopMonitor); !ok {
		t.Fatalf("expected NopMonitor, got %T", m)
	}
}

func TestSentryMonitorTags(t *testing.T) {
	var captured []*sentry.Event
	client, err := sentry.NewClient(sentry.ClientOptions{
		Dsn: "https://public@example.com/1",
		BeforeSend: func(e *sentry.Event, _ *sentry.EventHint) *sentry.Event {
			captured = append(captured, e)
			return nil
		},
	})
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	m := &sentryMonitor{hub: sentry.NewHub(client, sentry.NewScope())}

	m.CaptureException(errors.New("boom"), coremon.StationTags("A", "forecast"))
	m.CaptureMessage("station skipped", map[string]string{"station": "C"})
	m.CaptureException(nil, nil)

	if len(captured) != 2 {
		t.Fatalf("expected 2 events, got %d", len(captured))
	}
	if captured[0].Tags["station"] != "A" || captured[0].Tags["operation"] != "forecast" {
		t.Errorf("unexpected tags: %v", captured[0].Tags)
	}
	if captured[1].Message != "station skipped" || captured[1].Level != sentry.LevelWarning {
		t.Errorf("unexpected message event: %+v", captured[1])
	}
}

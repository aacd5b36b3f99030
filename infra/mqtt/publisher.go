package mqtt

import (
	"context"
	"sync"

	"github.com/kilianp07/evload/core/fleet"
	"github.com/kilianp07/evload/core/model"
	coremqtt "github.com/kilianp07/evload/core/mqtt"
)

// RiskPublisher mirrors the core mqtt.RiskPublisher interface.
type RiskPublisher = coremqtt.RiskPublisher

// MockPublisher records snapshots in memory. It is used in tests and when
// no broker is configured but the distribution path should still run.
type MockPublisher struct {
	mu       sync.Mutex
	Messages []coremqtt.RiskMessage
	Alerts   []string
	Err      error
}

// NewMockPublisher creates a new MockPublisher.
func NewMockPublisher() *MockPublisher { return &MockPublisher{} }

// PublishSnapshot records every station and the overloaded ones as alerts.
func (m *MockPublisher) PublishSnapshot(_ context.Context, snap *fleet.Snapshot) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return 0, m.Err
	}
	alerts := 0
	for _, r := range snap.Records {
		m.Messages = append(m.Messages, coremqtt.NewRiskMessage(r, snap.GeneratedAt))
		if r.Risk == model.InfraOverload {
			m.Alerts = append(m.Alerts, r.StationID)
			alerts++
		}
	}
	return alerts, nil
}

// Published returns a copy of the recorded messages.
func (m *MockPublisher) Published() []coremqtt.RiskMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]coremqtt.RiskMessage(nil), m.Messages...)
}

package usecase

import (
	"context"
	"sync"
	"testing"

	"DexPilot/internal/domain/models"
	"DexPilot/pkg/logger"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New(&logger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return log
}

type nopMetrics struct{}

func (nopMetrics) RecordCycle(string, string)                    {}
func (nopMetrics) RecordGateDenial(string, string)               {}
func (nopMetrics) RecordBreakerTrip(string)                      {}
func (nopMetrics) RecordCompositeScore(string, float64, float64) {}
func (nopMetrics) RecordLedgerBalances(float64, float64)         {}
func (nopMetrics) RecordError(string)                            {}
func (nopMetrics) RecordLatency(string, float64)                 {}

type captureDispatcher struct {
	mu      sync.Mutex
	actions []models.Action
}

func (d *captureDispatcher) Dispatch(_ context.Context, a *models.Action) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.actions = append(d.actions, *a)
	return nil
}

func (d *captureDispatcher) last() (models.Action, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.actions) == 0 {
		return models.Action{}, false
	}
	return d.actions[len(d.actions)-1], true
}

type nopAlerts struct{}

func (nopAlerts) Alert(context.Context, string, string, string) error { return nil }

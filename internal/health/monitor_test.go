package health

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
)

// ── Stubs ────────────────────────────────────────────────────────────────

type stubPinger struct {
	results []error
	calls   int
}

func (s *stubPinger) Ping(_ context.Context) error {
	i := s.calls
	s.calls++
	if i >= len(s.results) {
		return nil
	}
	return s.results[i]
}

var errDown = errors.New("connection refused")

// ── Tests ────────────────────────────────────────────────────────────────

func TestProbe_success(t *testing.T) {
	m := New(&stubPinger{}, Config{}, zap.NewNop())
	if !m.Probe(context.Background()) {
		t.Error("expected probe to succeed")
	}
	if m.Degraded() {
		t.Error("expected healthy")
	}
	if m.LastOK().IsZero() {
		t.Error("expected LastOK to be set")
	}
}

func TestProbe_degradesAfterThreshold(t *testing.T) {
	p := &stubPinger{results: []error{errDown, errDown, errDown}}
	m := New(p, Config{FailThreshold: 3}, zap.NewNop())

	for i := 0; i < 2; i++ {
		m.Probe(context.Background())
		if m.Degraded() {
			t.Fatalf("degraded after %d failures, threshold is 3", i+1)
		}
	}
	m.Probe(context.Background())
	if !m.Degraded() {
		t.Error("expected degraded at threshold")
	}
}

func TestProbe_recoversOnSuccess(t *testing.T) {
	p := &stubPinger{results: []error{errDown, errDown, errDown, nil}}
	m := New(p, Config{FailThreshold: 3}, zap.NewNop())

	for i := 0; i < 4; i++ {
		m.Probe(context.Background())
	}
	if m.Degraded() {
		t.Error("expected healthy after recovery")
	}
}

func TestProbe_recordsMetrics(t *testing.T) {
	p := &stubPinger{results: []error{nil, errDown}}
	m := New(p, Config{}, zap.NewNop())

	var got []bool
	m.SetMetricsRecord(func(up bool) { got = append(got, up) })
	m.Probe(context.Background())
	m.Probe(context.Background())

	if len(got) != 2 || !got[0] || got[1] {
		t.Errorf("metrics = %v, want [true false]", got)
	}
}

func TestPing_PassesThroughAndClearsDegraded(t *testing.T) {
	p := &stubPinger{results: []error{errDown, errDown}}
	m := New(p, Config{FailThreshold: 1, ProbeTimeout: time.Second}, zap.NewNop())

	m.Probe(context.Background())
	if !m.Degraded() {
		t.Fatal("expected degraded")
	}
	if err := m.Ping(context.Background()); !errors.Is(err, errDown) {
		t.Fatalf("Ping = %v, want errDown", err)
	}
	if err := m.Ping(context.Background()); err != nil {
		t.Fatalf("Ping = %v, want nil", err)
	}
	if m.Degraded() {
		t.Error("successful Ping should clear degraded state")
	}
}

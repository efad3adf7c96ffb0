package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jmerrifield20/exitrisk/internal/model"
	"github.com/jmerrifield20/exitrisk/internal/risk"
	"github.com/jmerrifield20/exitrisk/internal/service"
	"github.com/jmerrifield20/exitrisk/internal/store"
	"go.uber.org/zap"
)

// ── Stubs ────────────────────────────────────────────────────────────────

type fixedScorer struct {
	res   risk.Result
	calls int
}

func (f *fixedScorer) Score(_ context.Context, _ string, _ risk.Signals) risk.Result {
	f.calls++
	return f.res
}

type failingStore struct {
	store.Store
}

func (failingStore) Lookup(context.Context, string) (*store.Observation, error) {
	return nil, errors.New("connection refused")
}

func (failingStore) Delete(context.Context, string) error {
	return errors.New("connection refused")
}

// ── Helpers ──────────────────────────────────────────────────────────────

func ptr[T any](v T) *T { return &v }

func seeded(t *testing.T) *store.MemoryStore {
	t.Helper()
	st := store.NewMemoryStore()
	rows := []*store.Observation{
		{Address: "1.2.3.4", IsExitNode: ptr(true), RequestFrequency: ptr(500), Country: ptr("RU")},
		{Address: "2001:0db8:0000:0000:0000:0000:0000:0001", IsExitNode: ptr(false), RequestFrequency: ptr(3), Country: ptr("US")},
		{Address: "5.6.7.8", IsExitNode: ptr(true), RequestFrequency: ptr(10)},
	}
	for _, r := range rows {
		if err := st.Upsert(context.Background(), r); err != nil {
			t.Fatal(err)
		}
	}
	return st
}

// ── Tests ────────────────────────────────────────────────────────────────

func TestCheck_invalidAddress(t *testing.T) {
	scorer := &fixedScorer{}
	svc := service.NewCheckService(seeded(t), scorer, zap.NewNop())

	if _, err := svc.Check(context.Background(), "256.1.1.1"); !errors.Is(err, service.ErrInvalidAddress) {
		t.Errorf("expected ErrInvalidAddress, got %v", err)
	}
	if _, err := svc.Check(context.Background(), "   "); !errors.Is(err, service.ErrAddressRequired) {
		t.Errorf("expected ErrAddressRequired, got %v", err)
	}
	if scorer.calls != 0 {
		t.Errorf("scorer should not run for invalid input, ran %d times", scorer.calls)
	}
}

func TestCheck_notFound(t *testing.T) {
	scorer := &fixedScorer{}
	svc := service.NewCheckService(seeded(t), scorer, zap.NewNop())
	at := time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC)
	svc.SetClock(func() time.Time { return at })

	res, err := svc.Check(context.Background(), "8.8.8.8")
	if err != nil {
		t.Fatalf("Check() error: %v", err)
	}
	if res.Found || res.IsTorExitNode || res.Risk.Score != 0 {
		t.Errorf("expected empty not-found result, got %+v", res)
	}
	if res.Risk.Level == risk.LevelError {
		t.Error("not-found must not be an Error-level result")
	}
	if res.NotFoundMessage() != "The IP 8.8.8.8 is not found in the database." {
		t.Errorf("message: %q", res.NotFoundMessage())
	}
	if !res.LastChecked.Equal(at) {
		t.Errorf("LastChecked: got %v, want %v", res.LastChecked, at)
	}
}

func TestCheck_foundNormalizesIPv6(t *testing.T) {
	scorer := &fixedScorer{res: risk.Interpret(0.1)}
	svc := service.NewCheckService(seeded(t), scorer, zap.NewNop())

	var observed []risk.Level
	svc.SetScoreObserver(func(l risk.Level) { observed = append(observed, l) })

	res, err := svc.Check(context.Background(), "[2001:db8::1]")
	if err != nil {
		t.Fatal(err)
	}
	if !res.Found {
		t.Fatal("expected compressed IPv6 to match expanded key")
	}
	if res.Address != "2001:0db8:0000:0000:0000:0000:0000:0001" {
		t.Errorf("Address: got %q", res.Address)
	}
	if res.Risk.Level != risk.LevelLow {
		t.Errorf("Level: got %q, want Low", res.Risk.Level)
	}
	if len(observed) != 1 || observed[0] != risk.LevelLow {
		t.Errorf("observer calls: %v", observed)
	}
}

func TestCheck_missingSignalIsErrorResult(t *testing.T) {
	scaler, clf, err := model.Load("", "")
	if err != nil {
		t.Fatal(err)
	}
	pipeline := risk.NewPipeline(scaler, clf, zap.NewNop())
	svc := service.NewCheckService(seeded(t), pipeline, zap.NewNop())

	res, err := svc.Check(context.Background(), "5.6.7.8")
	if err != nil {
		t.Fatal(err)
	}
	if !res.Found || !res.IsTorExitNode {
		t.Errorf("expected found exit node, got %+v", res)
	}
	want := risk.Result{Score: 0, Level: risk.LevelError, Explanation: risk.ExplanationInvalidData}
	if res.Risk != want {
		t.Errorf("Risk: got %+v, want %+v", res.Risk, want)
	}
}

func TestCheck_repeatedScoringNeverErrors(t *testing.T) {
	scaler, clf, err := model.Load("", "")
	if err != nil {
		t.Fatal(err)
	}
	svc := service.NewCheckService(seeded(t), risk.NewPipeline(scaler, clf, zap.NewNop()), zap.NewNop())

	for i := 0; i < 200; i++ {
		res, err := svc.Check(context.Background(), "1.2.3.4")
		if err != nil {
			t.Fatal(err)
		}
		switch res.Risk.Level {
		case risk.LevelLow, risk.LevelMedium, risk.LevelHigh:
		default:
			t.Fatalf("trial %d: unexpected level %q", i, res.Risk.Level)
		}
	}
}

func TestCheck_storeFailure(t *testing.T) {
	svc := service.NewCheckService(failingStore{}, &fixedScorer{}, zap.NewNop())
	if _, err := svc.Check(context.Background(), "1.2.3.4"); err == nil {
		t.Fatal("expected store error to propagate")
	}
	if _, err := svc.Delete(context.Background(), "1.2.3.4"); err == nil {
		t.Fatal("expected store error to propagate")
	}
}

func TestDelete(t *testing.T) {
	st := seeded(t)
	svc := service.NewCheckService(st, &fixedScorer{}, zap.NewNop())
	ctx := context.Background()

	status, err := svc.Delete(ctx, "9.9.9.9")
	if err != nil || status != service.DeleteStatusNotFound {
		t.Fatalf("missing address: got %q, %v", status, err)
	}

	status, err = svc.Delete(ctx, "[1.2.3.4]")
	if err != nil || status != service.DeleteStatusDeleted {
		t.Fatalf("present address: got %q, %v", status, err)
	}
	if _, err := st.Lookup(ctx, "1.2.3.4"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected lookup to miss after delete, got %v", err)
	}

	if _, err := svc.Delete(ctx, "not-an-ip"); !errors.Is(err, service.ErrInvalidAddress) {
		t.Errorf("expected ErrInvalidAddress, got %v", err)
	}
}

func TestList(t *testing.T) {
	svc := service.NewCheckService(seeded(t), &fixedScorer{}, zap.NewNop())
	addrs, err := svc.List(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(addrs) != 3 || addrs[0] != "1.2.3.4" {
		t.Errorf("List() = %v", addrs)
	}
}

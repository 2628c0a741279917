package platform

import (
	"context"
	"errors"
	"testing"
	"time"

	"htmsim/internal/htm"
	"htmsim/internal/model"
	"htmsim/internal/scape"
	"htmsim/internal/storage"
)

func newTestPolis(t *testing.T) (*Polis, *storage.MemoryStore) {
	t.Helper()
	store := storage.NewMemoryStore()
	p := NewPolis(Config{Store: store})
	if err := p.Init(context.Background()); err != nil {
		t.Fatalf("init: %v", err)
	}
	return p, store
}

func alternatingSpec(t *testing.T, runID string, ticks int) RunSpec {
	t.Helper()
	sc, err := scape.NewAlternatingScape(4, 4)
	if err != nil {
		t.Fatalf("new scape: %v", err)
	}
	return RunSpec{RunID: runID, Scape: sc, Region: testRegionConfig(), Ticks: ticks}
}

func TestPolisInitAndRegisterScape(t *testing.T) {
	if err := NewPolis(Config{}).Init(context.Background()); err == nil {
		t.Fatal("expected error without store")
	}

	uninit := NewPolis(Config{Store: storage.NewMemoryStore()})
	sc, _ := scape.NewAlternatingScape(4, 4)
	if err := uninit.RegisterScape(sc); err == nil {
		t.Fatal("expected error registering before init")
	}

	p, _ := newTestPolis(t)
	bar, _ := scape.NewMovingBarScape(4, 4, false)
	for _, s := range []scape.Scape{sc, bar} {
		if err := p.RegisterScape(s); err != nil {
			t.Fatalf("register %s: %v", s.Name(), err)
		}
	}
	if got := p.RegisteredScapes(); len(got) != 2 || got[0] != "alternating" || got[1] != "moving-bar" {
		t.Fatalf("unexpected scapes: %v", got)
	}
	if _, ok := p.GetScape("moving-bar"); !ok {
		t.Fatal("expected registered scape")
	}
}

func TestPolisRunToCompletionPersists(t *testing.T) {
	p, store := newTestPolis(t)
	ctx := context.Background()

	result, err := p.RunToCompletion(ctx, alternatingSpec(t, "run-a", 6))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.Record.Ticks != 6 || len(result.History) != 6 || result.Last.Tick != 6 {
		t.Fatalf("unexpected result: %+v", result.Record)
	}
	if result.Record.Scape != "alternating" || result.Record.Geometry.InputWidth != 4 || result.Record.CellsPerColumn != 3 {
		t.Fatalf("unexpected record: %+v", result.Record)
	}

	saved, ok, err := store.GetRun(ctx, "run-a")
	if err != nil || !ok {
		t.Fatalf("get run: ok=%t err=%v", ok, err)
	}
	if saved.Segments != result.Record.Segments || saved.CreatedAt == "" {
		t.Fatalf("unexpected saved run: %+v", saved)
	}
	history, ok, err := store.GetTickHistory(ctx, "run-a")
	if err != nil || !ok || len(history) != 6 {
		t.Fatalf("get history: ok=%t err=%v len=%d", ok, err, len(history))
	}
	if len(p.ActiveRuns()) != 0 {
		t.Fatalf("finished run still active: %v", p.ActiveRuns())
	}

	if _, err := p.RunToCompletion(ctx, alternatingSpec(t, "run-b", 0)); err == nil {
		t.Fatal("expected error for zero ticks")
	}
}

func TestPolisPacedRunAndDeterminism(t *testing.T) {
	p, _ := newTestPolis(t)
	ctx := context.Background()

	paced := alternatingSpec(t, "paced", 4)
	paced.Interval = time.Millisecond
	a, err := p.RunToCompletion(ctx, paced)
	if err != nil {
		t.Fatalf("paced run: %v", err)
	}
	b, err := p.RunToCompletion(ctx, alternatingSpec(t, "direct", 4))
	if err != nil {
		t.Fatalf("direct run: %v", err)
	}
	for i := range a.History {
		if a.History[i] != b.History[i] {
			t.Fatalf("tick %d differs between identical seeds: %+v vs %+v", i+1, a.History[i], b.History[i])
		}
	}
}

func TestPolisRunControl(t *testing.T) {
	p, _ := newTestPolis(t)
	spec := alternatingSpec(t, "live", 0)

	runner, err := p.NewRun(spec)
	if err != nil {
		t.Fatalf("new run: %v", err)
	}
	if _, err := p.NewRun(spec); err == nil {
		t.Fatal("expected duplicate run id to fail")
	}
	if err := runner.Start(context.Background(), 0, time.Millisecond); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := p.PauseRun("live"); err != nil {
		t.Fatalf("pause: %v", err)
	}
	waitFor(t, "pause", func() bool { return runner.State() == RunStatePaused })
	if err := p.ContinueRun("live"); err != nil {
		t.Fatalf("continue: %v", err)
	}
	if err := p.PauseRun("missing"); !errors.Is(err, ErrRunNotActive) {
		t.Fatalf("expected ErrRunNotActive, got %v", err)
	}
	if err := p.StopRun("live"); err != nil {
		t.Fatalf("stop run: %v", err)
	}
	if runner.State() != RunStateStopped {
		t.Fatalf("expected stopped, got %s", runner.State())
	}
}

func TestPolisStopWithReasonStopsRuns(t *testing.T) {
	p, _ := newTestPolis(t)
	runner, err := p.NewRun(alternatingSpec(t, "bg", 0))
	if err != nil {
		t.Fatalf("new run: %v", err)
	}
	if err := runner.Start(context.Background(), 0, time.Millisecond); err != nil {
		t.Fatalf("start: %v", err)
	}

	if err := p.StopWithReason(StopReason("bogus")); err == nil {
		t.Fatal("expected invalid reason error")
	}
	if err := p.StopWithReason(StopReasonShutdown); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if runner.State() != RunStateStopped {
		t.Fatalf("expected stopped runner, got %s", runner.State())
	}
	if p.Started() || len(p.ActiveRuns()) != 0 || p.LastStopReason() != StopReasonShutdown {
		t.Fatalf("unexpected polis state: started=%t runs=%v reason=%s", p.Started(), p.ActiveRuns(), p.LastStopReason())
	}
	if err := p.Init(context.Background()); err != nil || !p.Started() {
		t.Fatalf("reinit: %v", err)
	}
}

func TestPolisShutdownDropsUnfinishedRuns(t *testing.T) {
	for _, interval := range []time.Duration{0, time.Millisecond} {
		p, store := newTestPolis(t)
		ctx := context.Background()

		stepping := make(chan struct{}, 1)
		spec := alternatingSpec(t, "cut-short", 1_000_000)
		spec.Interval = interval
		spec.Hooks.OnTick = func(htm.Report, model.TickStats) {
			select {
			case stepping <- struct{}{}:
			default:
			}
		}

		errc := make(chan error, 1)
		go func() {
			_, err := p.RunToCompletion(ctx, spec)
			errc <- err
		}()
		<-stepping
		p.Shutdown()

		if err := <-errc; !errors.Is(err, ErrRunStopped) {
			t.Fatalf("interval=%s: expected ErrRunStopped, got %v", interval, err)
		}
		if _, ok, err := store.GetRun(ctx, "cut-short"); err != nil || ok {
			t.Fatalf("interval=%s: stopped run was persisted: ok=%t err=%v", interval, ok, err)
		}
		if _, ok, _ := store.GetTickHistory(ctx, "cut-short"); ok {
			t.Fatalf("interval=%s: stopped run history was persisted", interval)
		}
	}
}

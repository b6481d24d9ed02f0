package monitor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dpuwatch/dpuwatch/internal/core/domain"
	"github.com/dpuwatch/dpuwatch/internal/emit"
	"github.com/dpuwatch/dpuwatch/internal/health"
	"github.com/dpuwatch/dpuwatch/internal/infra/storage/memory"
	"github.com/dpuwatch/dpuwatch/internal/recovery"
)

// ==== stubs ====

type stubSource struct {
	snap *domain.HealthSnapshot
	err  error
}

func (s *stubSource) Collect(ctx context.Context, cardID domain.CardID) (*domain.HealthSnapshot, error) {
	if s.err != nil {
		return nil, s.err
	}
	snap := *s.snap
	return &snap, nil
}

type captureEmitter struct {
	mu     sync.Mutex
	events []emit.HealthEvent
}

func (e *captureEmitter) Emit(ctx context.Context, event emit.HealthEvent) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, event)
	return nil
}

func (e *captureEmitter) Close() {}

type captureNotifier struct {
	calls int
}

func (n *captureNotifier) NotifyCritical(ctx context.Context, snap domain.HealthSnapshot, verdict domain.HealthVerdict) error {
	n.calls++
	return nil
}

func healthySnapshot(cardID domain.CardID) *domain.HealthSnapshot {
	return &domain.HealthSnapshot{
		CardID:          cardID,
		Temperature:     55.0,
		PowerWatts:      25.0,
		LinkUp:          true,
		FirmwareVersion: "1.60.0-73",
		FirmwareStatus:  domain.FirmwareInstalled,
		CollectedAt:     time.Now().UTC(),
	}
}

func newTestPipeline(source *stubSource, store *memory.Storage, emitter emit.Emitter, notifier Notifier) *Pipeline {
	runner := recovery.NewRunner(recovery.NewSimulatedExecutor(0, 0, 1))
	handler := recovery.NewHandler(store.Queue(), store.Attempts(), store.Cards(), runner, recovery.DefaultBackoff())

	return NewPipeline(Config{
		CardID:       "dpu-01",
		PollInterval: time.Second,
		Source:       source,
		Evaluator:    health.NewEvaluator(health.DefaultPolicy()),
		Snapshots:    store.Snapshots(),
		Verdicts:     store.Verdicts(),
		Recovery:     handler,
		Emitter:      emitter,
		Notifier:     notifier,
	})
}

// ==== tests ====

func TestPipeline_Tick_Healthy(t *testing.T) {
	store := memory.New()
	emitter := &captureEmitter{}
	p := newTestPipeline(&stubSource{snap: healthySnapshot("dpu-01")}, store, emitter, nil)

	if err := p.tick(context.Background()); err != nil {
		t.Fatalf("tick failed: %v", err)
	}

	snap, err := store.Snapshots().GetLatest(context.Background(), "dpu-01")
	if err != nil || snap == nil {
		t.Fatalf("snapshot not persisted: %v", err)
	}
	verdict, err := store.Verdicts().GetLatest(context.Background(), "dpu-01")
	if err != nil || verdict == nil {
		t.Fatalf("verdict not persisted: %v", err)
	}
	if verdict.Status != domain.StatusNormal {
		t.Errorf("status = %s, want normal", verdict.Status)
	}

	depth, _ := store.Queue().Depth(context.Background())
	if depth != 0 {
		t.Errorf("healthy card queued recovery, depth = %d", depth)
	}
	if len(emitter.events) != 1 || emitter.events[0].Type != emit.EventVerdict {
		t.Errorf("expected one verdict event, got %v", emitter.events)
	}
}

func TestPipeline_Tick_CriticalQueuesRecovery(t *testing.T) {
	snap := healthySnapshot("dpu-01")
	snap.LinkUp = false

	store := memory.New()
	emitter := &captureEmitter{}
	notifier := &captureNotifier{}
	p := newTestPipeline(&stubSource{snap: snap}, store, emitter, notifier)

	if err := p.tick(context.Background()); err != nil {
		t.Fatalf("tick failed: %v", err)
	}

	depth, _ := store.Queue().Depth(context.Background())
	if depth != 1 {
		t.Fatalf("expected 1 queued recovery, got %d", depth)
	}
	pr, _ := store.Queue().Next(context.Background())
	if pr.FailureType != domain.FailureNetworkConnectivity {
		t.Errorf("failure type = %s, want network_connectivity", pr.FailureType)
	}
	if notifier.calls != 1 {
		t.Errorf("notifier calls = %d, want 1", notifier.calls)
	}

	// Second critical tick does not enqueue again.
	if err := p.tick(context.Background()); err != nil {
		t.Fatalf("tick failed: %v", err)
	}
	depth, _ = store.Queue().Depth(context.Background())
	if depth != 1 {
		t.Errorf("critical steady state re-enqueued, depth = %d", depth)
	}
}

func TestPipeline_Tick_UnreachableCard(t *testing.T) {
	store := memory.New()
	p := newTestPipeline(&stubSource{err: errors.New("connection refused")}, store, &captureEmitter{}, nil)

	if err := p.tick(context.Background()); err != nil {
		t.Fatalf("tick failed: %v", err)
	}

	verdict, err := store.Verdicts().GetLatest(context.Background(), "dpu-01")
	if err != nil || verdict == nil {
		t.Fatalf("verdict not persisted: %v", err)
	}
	if verdict.Status != domain.StatusCritical {
		t.Errorf("unreachable card should be critical, got %s", verdict.Status)
	}
	if !verdict.HasAnomaly(domain.AnomalyLinkDown) {
		t.Error("unreachable card should carry link_down")
	}
}

func TestPipeline_StartStop(t *testing.T) {
	store := memory.New()
	p := newTestPipeline(&stubSource{snap: healthySnapshot("dpu-01")}, store, &captureEmitter{}, nil)
	p.cfg.PollInterval = 10 * time.Millisecond

	done := make(chan error, 1)
	go func() { done <- p.Start(context.Background()) }()

	time.Sleep(50 * time.Millisecond)
	if !p.Running() {
		t.Error("pipeline should be running")
	}

	if err := p.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Start returned error: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("pipeline did not stop")
	}

	snap, _ := store.Snapshots().GetLatest(context.Background(), "dpu-01")
	if snap == nil {
		t.Error("pipeline never collected a snapshot")
	}
}

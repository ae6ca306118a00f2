package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"helplink/internal/models"
)

// Refresher reloads the dashboard snapshot.
type Refresher interface {
	Refresh(ctx context.Context) (*models.Snapshot, error)
}

// SnapshotWorker keeps the cached snapshot warm: it refreshes once on
// start and then on every tick.
type SnapshotWorker struct {
	refresher Refresher
	interval  time.Duration
	timeout   time.Duration
	logger    *zap.Logger

	mu       sync.Mutex
	running  bool
	stopped  bool
	stopChan chan struct{}
	done     chan struct{}
}

func NewSnapshotWorker(refresher Refresher, interval time.Duration, logger *zap.Logger) *SnapshotWorker {
	if interval <= 0 {
		interval = time.Minute
	}
	return &SnapshotWorker{
		refresher: refresher,
		interval:  interval,
		timeout:   30 * time.Second,
		logger:    logger,
	}
}

func (w *SnapshotWorker) Name() string { return "snapshot" }

// Start does nothing once Stop has been called, even if the worker never
// ran: the scheduler may stop it before its goroutine gets here.
func (w *SnapshotWorker) Start() {
	w.mu.Lock()
	if w.running || w.stopped {
		w.mu.Unlock()
		return
	}
	w.running = true
	w.stopChan = make(chan struct{})
	w.done = make(chan struct{})
	stop, done := w.stopChan, w.done
	w.mu.Unlock()

	w.logger.Info("snapshot worker started", zap.Duration("interval", w.interval))

	w.refresh()
	go w.run(stop, done)
}

// Stop is safe to call more than once and waits for the loop to exit.
func (w *SnapshotWorker) Stop() {
	w.mu.Lock()
	w.stopped = true
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	close(w.stopChan)
	done := w.done
	w.mu.Unlock()

	<-done
	w.logger.Info("snapshot worker stopped")
}

func (w *SnapshotWorker) run(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.refresh()
		case <-stop:
			return
		}
	}
}

func (w *SnapshotWorker) refresh() {
	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()

	start := time.Now()
	snap, err := w.refresher.Refresh(ctx)
	if err != nil {
		w.logger.Error("snapshot refresh failed", zap.Error(err))
		return
	}
	w.logger.Debug("snapshot refreshed",
		zap.String("source", snap.Source),
		zap.Int("donations", len(snap.Donations)),
		zap.Duration("took", time.Since(start)))
}

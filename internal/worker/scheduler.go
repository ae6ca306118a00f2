package worker

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

type Worker interface {
	Name() string
	Start()
	Stop()
}

type Scheduler struct {
	workers     []Worker
	wg          sync.WaitGroup
	stopped     bool
	mu          sync.RWMutex
	stopTimeout time.Duration
	logger      *zap.Logger
}

func NewScheduler(logger *zap.Logger) *Scheduler {
	return &Scheduler{
		workers:     make([]Worker, 0),
		stopTimeout: 10 * time.Second,
		logger:      logger,
	}
}

func (s *Scheduler) AddWorker(worker Worker) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.workers = append(s.workers, worker)
}

func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return
	}

	s.logger.Info("starting scheduler", zap.Int("workers", len(s.workers)))

	for _, worker := range s.workers {
		s.wg.Add(1)
		go func(w Worker) {
			defer s.wg.Done()
			w.Start()
		}(worker)
	}
}

func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	workers := s.workers
	s.mu.Unlock()

	s.logger.Info("stopping scheduler")

	for _, worker := range workers {
		worker.Stop()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("scheduler stopped gracefully")
	case <-time.After(s.stopTimeout):
		s.logger.Warn("scheduler stop timeout", zap.Duration("timeout", s.stopTimeout))
	}
}

func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return !s.stopped
}

package scheduler

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/andsoler0309/HR-app-sub001/internal/pkg/cache"
	"github.com/andsoler0309/HR-app-sub001/internal/pkg/database"
	"github.com/andsoler0309/HR-app-sub001/internal/pkg/env"
	"github.com/andsoler0309/HR-app-sub001/internal/pkg/subscription"
)

const defaultIntervalMinutes = 5

// Scheduler runs the subscription lifecycle sweeps on a ticker. It overlaps
// the external cron endpoint by design; every sweep transition is a CAS
// update, so duplicate runs are harmless.
type Scheduler struct {
	interval time.Duration
	ticker   *time.Ticker
	stopCh   chan struct{}
	wg       sync.WaitGroup
	mu       sync.Mutex
	running  bool
}

var (
	globalScheduler *Scheduler
	schedulerOnce   sync.Once
)

// GetScheduler returns the global sweep scheduler (singleton). The interval
// comes from SUBSCRIPTION_SWEEP_INTERVAL_MINUTES, default 5.
func GetScheduler() *Scheduler {
	schedulerOnce.Do(func() {
		minutes := defaultIntervalMinutes
		if v, err := strconv.Atoi(env.GetEnv("SUBSCRIPTION_SWEEP_INTERVAL_MINUTES", "")); err == nil && v > 0 {
			minutes = v
		}
		globalScheduler = &Scheduler{
			interval: time.Duration(minutes) * time.Minute,
			stopCh:   make(chan struct{}),
		}
	})
	return globalScheduler
}

// Start launches the sweep loop. Calling Start on a running scheduler is a
// no-op.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return
	}
	s.stopCh = make(chan struct{})
	s.running = true
	log.Infof("[Scheduler] Starting subscription sweeps every %s", s.interval)

	s.ticker = time.NewTicker(s.interval)
	s.wg.Add(1)
	go s.sweepWorker()
}

// Stop halts the loop and waits for an in-flight sweep to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.ticker.Stop()
	close(s.stopCh)
	s.mu.Unlock()

	s.wg.Wait()
	log.Info("[Scheduler] Stopped subscription sweeps")
}

func (s *Scheduler) sweepWorker() {
	defer s.wg.Done()
	for {
		select {
		case <-s.ticker.C:
			s.runSweeps()
		case <-s.stopCh:
			return
		}
	}
}

func (s *Scheduler) runSweeps() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	svc := subscription.NewServiceFromDB(database.GetDB()).
		UseStatusCache(cache.NewDefaultStatusCache())
	res := svc.RunCleanup(ctx)

	if res.StalePendingCancelled+res.BackupPendingCancelled+res.ActiveExpired+res.ProfilesHealed > 0 {
		log.Infof("[Scheduler] Sweep done: %d stale pending, %d backup pending, %d expired, %d profiles healed",
			res.StalePendingCancelled, res.BackupPendingCancelled, res.ActiveExpired, res.ProfilesHealed)
	}
	for _, e := range res.Errors {
		log.Errorf("[Scheduler] Sweep error: %s", e)
	}
}

package worker

import (
	"log/slog"
	"sync"
	"time"

	"healthchat-relay/internal/history"
)

const minSweepInterval = time.Minute

// Janitor evicts conversations that have been idle longer than the TTL.
type Janitor struct {
	store    history.Sweeper
	ttl      time.Duration
	interval time.Duration
	logger   *slog.Logger
	stopChan chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// NewJanitor sweeps every ttl/2, but never more often than once a minute.
// A non-positive ttl means conversations never expire and the janitor stays
// idle.
func NewJanitor(store history.Sweeper, ttl time.Duration, logger *slog.Logger) *Janitor {
	interval := ttl / 2
	if interval < minSweepInterval {
		interval = minSweepInterval
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Janitor{
		store:    store,
		ttl:      ttl,
		interval: interval,
		logger:   logger,
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

func (j *Janitor) Interval() time.Duration { return j.interval }

func (j *Janitor) Enabled() bool { return j.ttl > 0 }

func (j *Janitor) Start() {
	if !j.Enabled() {
		close(j.done)
		j.logger.Info("history janitor disabled, conversations never expire")
		return
	}
	go j.loop()
	j.logger.Info("history janitor started", "ttl", j.ttl, "interval", j.interval)
}

// Stop halts the loop and waits for an in-flight sweep to finish.
func (j *Janitor) Stop() {
	j.stopOnce.Do(func() { close(j.stopChan) })
	<-j.done
}

func (j *Janitor) loop() {
	defer close(j.done)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-j.stopChan:
			return
		case <-ticker.C:
			j.RunOnce()
		}
	}
}

// RunOnce performs a single sweep and returns how many conversations were
// evicted.
func (j *Janitor) RunOnce() int {
	if !j.Enabled() {
		return 0
	}
	evicted := j.store.Sweep(j.ttl)
	if evicted > 0 {
		j.logger.Info("evicted idle conversations", "count", evicted, "idle_for", j.ttl)
	}
	return evicted
}

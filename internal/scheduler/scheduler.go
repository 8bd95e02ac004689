package scheduler

import (
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Scheduler runs recurring jobs addressed by string keys. Scheduling an
// existing key and cancelling a missing one are both no-ops.
type Scheduler struct {
	cron    *cron.Cron
	entries map[string]cron.EntryID
	mu      sync.Mutex
	logger  *logrus.Logger
}

// New creates a new scheduler
func New(logger *logrus.Logger) *Scheduler {
	return &Scheduler{
		cron:    cron.New(),
		entries: make(map[string]cron.EntryID),
		logger:  logger,
	}
}

// Start begins running scheduled jobs
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop stops the scheduler and waits for running jobs to finish
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// Schedule registers fn to run every interval under the given key.
// Re-scheduling an existing key is a no-op.
func (s *Scheduler) Schedule(key string, interval time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[key]; ok {
		return
	}

	id := s.cron.Schedule(cron.Every(interval), cron.FuncJob(fn))
	s.entries[key] = id
	s.logger.Debugf("Scheduled job %s every %s", key, interval)
}

// Cancel deregisters the job under key, if any
func (s *Scheduler) Cancel(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.entries[key]
	if !ok {
		return
	}

	s.cron.Remove(id)
	delete(s.entries, key)
	s.logger.Debugf("Cancelled job %s", key)
}

// Exists reports whether a job is registered under key
func (s *Scheduler) Exists(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.entries[key]
	return ok
}

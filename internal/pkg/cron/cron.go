// Package cron runs named background jobs on fixed intervals. It is
// deliberately small: no cron expressions, no persistence, just tickers with
// per-job state that the admin health endpoints can inspect and trigger.
package cron

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// JobStatus is the outcome of a job's most recent run.
type JobStatus string

const (
	StatusIdle    JobStatus = "idle"
	StatusRunning JobStatus = "running"
	StatusOK      JobStatus = "ok"
	StatusFailed  JobStatus = "failed"
)

// Job is a background task executed every Interval.
type Job struct {
	Name        string
	Description string
	Interval    time.Duration
	Fn          func(ctx context.Context) error
}

// ListItem is one job as reported to the admin API.
type ListItem struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Status      JobStatus  `json:"status"`
	NextRunAt   time.Time  `json:"nextRunAt"`
	LastRunAt   *time.Time `json:"lastRunAt,omitempty"`
}

// TaskResult reports a single job's last outcome.
type TaskResult struct {
	Status  JobStatus `json:"status"`
	Message string    `json:"message,omitempty"`
}

// entry is a registered job plus its runtime state. The mutex covers
// everything but Job, which is immutable after Register.
type entry struct {
	Job

	mu        sync.Mutex
	status    JobStatus
	message   string
	lastRunAt *time.Time
	nextRunAt time.Time
}

func (e *entry) snapshot() ListItem {
	e.mu.Lock()
	defer e.mu.Unlock()
	return ListItem{
		Name:        e.Name,
		Description: e.Description,
		Status:      e.status,
		NextRunAt:   e.nextRunAt,
		LastRunAt:   e.lastRunAt,
	}
}

// run executes the job once. A job already in flight is left alone, so a
// manual trigger cannot stack on top of the scheduled run.
func (e *entry) run(ctx context.Context) {
	e.mu.Lock()
	if e.status == StatusRunning {
		e.mu.Unlock()
		return
	}
	e.status = StatusRunning
	started := time.Now()
	e.mu.Unlock()

	err := e.Fn(ctx)

	e.mu.Lock()
	e.lastRunAt = &started
	if err != nil {
		e.status = StatusFailed
		e.message = err.Error()
	} else {
		e.status = StatusOK
		e.message = ""
	}
	e.mu.Unlock()
}

// Scheduler holds the registered jobs. Register everything before Start;
// registration after Start is not picked up.
type Scheduler struct {
	mu      sync.RWMutex
	entries map[string]*entry
}

func New() *Scheduler {
	return &Scheduler{entries: make(map[string]*entry)}
}

func (s *Scheduler) Register(job Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[job.Name] = &entry{
		Job:       job,
		status:    StatusIdle,
		nextRunAt: time.Now().Add(job.Interval),
	}
}

// Start spawns one ticker goroutine per job. All loops stop when ctx is
// cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.entries {
		go s.loop(ctx, e)
	}
}

func (s *Scheduler) loop(ctx context.Context, e *entry) {
	ticker := time.NewTicker(e.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.run(ctx)
			e.mu.Lock()
			e.nextRunAt = time.Now().Add(e.Interval)
			e.mu.Unlock()
		}
	}
}

// Run triggers a job by name without waiting for its interval. The job runs
// in the background; poll GetTask for the outcome.
func (s *Scheduler) Run(ctx context.Context, name string) error {
	e, err := s.lookup(name)
	if err != nil {
		return err
	}
	go e.run(ctx)
	return nil
}

// GetTask reports the last outcome of the named job.
func (s *Scheduler) GetTask(name string) (*TaskResult, error) {
	e, err := s.lookup(name)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return &TaskResult{Status: e.status, Message: e.message}, nil
}

// List snapshots every registered job.
func (s *Scheduler) List() []ListItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]ListItem, 0, len(s.entries))
	for _, e := range s.entries {
		items = append(items, e.snapshot())
	}
	return items
}

func (s *Scheduler) lookup(name string) (*entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[name]
	if !ok {
		return nil, fmt.Errorf("unknown job %q", name)
	}
	return e, nil
}

// Package queue runs background jobs such as customer notifications and
// broker publishing.
//
//	type NotifyCustomerJob struct{ OrderID uint }
//	func (NotifyCustomerJob) Name() string                 { return "notify_customer" }
//	func (j *NotifyCustomerJob) Handle(ctx context.Context) error { ... }
//
//	queue.Register("notify_customer", func() queue.Job { return &NotifyCustomerJob{} })
//	queue.Dispatch(&NotifyCustomerJob{OrderID: 42})
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/shashiranjanraj/panaya/pkg/logger"
	"github.com/shashiranjanraj/panaya/pkg/metrics"
)

// Job is a unit of background work. Name must match the name it was
// registered under.
type Job interface {
	Name() string
	Handle(ctx context.Context) error
}

type FailedJob struct {
	Name     string
	Job      Job
	Err      error
	FailedAt time.Time
	Attempts int
}

// Driver stores encoded jobs.
type Driver interface {
	Push(payload []byte) error
	Pop(ctx context.Context) ([]byte, error)
}

// DelayedDriver can hold a job until it is due.
type DelayedDriver interface {
	PushDelayed(payload []byte, delay time.Duration) error
}

var ErrUnregistered = errors.New("queue: job type not registered")

type Manager struct {
	mu       sync.RWMutex
	driver   Driver
	registry map[string]func() Job
	failed   []FailedJob
	maxRetry int
	backoff  time.Duration
	db       *gorm.DB
}

func NewManager(d Driver) *Manager {
	return &Manager{
		driver:   d,
		registry: map[string]func() Job{},
		maxRetry: 3,
		backoff:  time.Second,
	}
}

var defaultManager = NewManager(NewMemoryDriver(1000))

func Default() *Manager { return defaultManager }

func SetDriver(d Driver)                 { defaultManager.SetDriver(d) }
func SetMaxRetry(n int)                  { defaultManager.SetMaxRetry(n) }
func Register(name string, f func() Job) { defaultManager.Register(name, f) }
func Dispatch(job Job) error             { return defaultManager.Dispatch(job) }
func DispatchAfter(job Job, d time.Duration) error {
	return defaultManager.DispatchAfter(job, d)
}
func StartWorkers(ctx context.Context, n int) { defaultManager.StartWorkers(ctx, n) }
func FailedJobs() []FailedJob                 { return defaultManager.FailedJobs() }

func (m *Manager) SetDriver(d Driver) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.driver = d
}

func (m *Manager) SetMaxRetry(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n < 1 {
		n = 1
	}
	m.maxRetry = n
}

// SetBackoff sets the base wait between attempts; attempt n waits n times it.
func (m *Manager) SetBackoff(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.backoff = d
}

// Register makes a job type decodable by name. Call once per type at boot.
func (m *Manager) Register(name string, factory func() Job) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.registry[name] = factory
}

func (m *Manager) Registered(name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.registry[name]
	return ok
}

type envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func (m *Manager) encode(job Job) ([]byte, error) {
	if !m.Registered(job.Name()) {
		return nil, fmt.Errorf("%w: %s", ErrUnregistered, job.Name())
	}
	payload, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("queue: marshal job %s: %w", job.Name(), err)
	}
	return json.Marshal(envelope{Type: job.Name(), Payload: payload})
}

func (m *Manager) currentDriver() Driver {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.driver
}

func (m *Manager) Dispatch(job Job) error {
	raw, err := m.encode(job)
	if err != nil {
		return err
	}
	return m.currentDriver().Push(raw)
}

// DispatchAfter uses the driver's delayed set when it has one and a timer
// otherwise.
func (m *Manager) DispatchAfter(job Job, delay time.Duration) error {
	raw, err := m.encode(job)
	if err != nil {
		return err
	}
	d := m.currentDriver()
	if dd, ok := d.(DelayedDriver); ok {
		return dd.PushDelayed(raw, delay)
	}
	time.AfterFunc(delay, func() {
		if err := d.Push(raw); err != nil {
			logger.Error("queue: delayed dispatch failed", "type", job.Name(), "error", err)
		}
	})
	return nil
}

// StartWorkers launches n workers that run until ctx is cancelled.
func (m *Manager) StartWorkers(ctx context.Context, n int) {
	for i := 0; i < n; i++ {
		go m.work(ctx)
	}
	logger.Info("queue: workers started", "count", n)
}

func (m *Manager) work(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		raw, err := m.currentDriver().Pop(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Warn("queue: pop failed", "error", err)
			time.Sleep(500 * time.Millisecond)
			continue
		}
		if raw == nil {
			continue
		}
		m.process(ctx, raw)
	}
}

func (m *Manager) process(ctx context.Context, raw []byte) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		logger.Error("queue: bad envelope", "error", err)
		return
	}

	m.mu.RLock()
	factory, ok := m.registry[env.Type]
	m.mu.RUnlock()
	if !ok {
		logger.Warn("queue: unregistered job type", "type", env.Type)
		return
	}

	job := factory()
	if err := json.Unmarshal(env.Payload, job); err != nil {
		logger.Error("queue: unmarshal payload", "type", env.Type, "error", err)
		return
	}
	m.runWithRetry(ctx, job)
}

func (m *Manager) runWithRetry(ctx context.Context, job Job) {
	m.mu.RLock()
	tries, backoff := m.maxRetry, m.backoff
	m.mu.RUnlock()

	var lastErr error
	for attempt := 1; attempt <= tries; attempt++ {
		start := time.Now()
		if lastErr = m.safeHandle(ctx, job); lastErr == nil {
			metrics.RecordQueueJob(job.Name(), "ok", start)
			logger.Debug("queue: job processed", "type", job.Name())
			return
		}
		metrics.RecordQueueJob(job.Name(), "error", start)
		logger.Warn("queue: job failed", "type", job.Name(), "attempt", attempt, "error", lastErr)
		if attempt < tries {
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Duration(attempt) * backoff):
			}
		}
	}

	m.persistFailed(job, lastErr, tries)
	logger.Error("queue: job exhausted retries", "type", job.Name(), "error", lastErr)
}

func (m *Manager) safeHandle(ctx context.Context, job Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("queue: job panicked: %v", r)
		}
	}()
	return job.Handle(ctx)
}

// FailedJobs returns a snapshot of the jobs that ran out of retries.
func (m *Manager) FailedJobs() []FailedJob {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]FailedJob, len(m.failed))
	copy(out, m.failed)
	return out
}

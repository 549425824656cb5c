// Package schedule runs periodic tasks on top of robfig/cron.
//
//	schedule.Cron(config.ReconcileSchedule()).Name("orders:reconcile").WithoutOverlapping().Run(task)
//	schedule.Every(1).Hours().Name("idempotency:prune").Run(prune)
//	schedule.Start(ctx)
package schedule

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/shashiranjanraj/panaya/pkg/logger"
)

// Task is one run of a scheduled job. A returned error is logged.
type Task func(ctx context.Context) error

type entry struct {
	id        string
	spec      string
	task      Task
	noOverlap bool
	before    func()
	after     func()
}

// Schedule is the builder for one entry, registered by Run.
type Schedule struct {
	s *Scheduler
	e *entry
}

type Scheduler struct {
	mu      sync.Mutex
	entries []*entry
	c       *cron.Cron
	ids     map[string]cron.EntryID
}

func New() *Scheduler { return &Scheduler{ids: map[string]cron.EntryID{}} }

var std = New()

// Default is the process-wide scheduler behind the package functions.
func Default() *Scheduler { return std }

func EveryMinute() *Schedule          { return std.Every(1).Minutes() }
func Every(n int) *Frequency          { return std.Every(n) }
func Hourly() *Schedule               { return std.Every(1).Hours() }
func Daily() *Schedule                { return std.Every(24).Hours() }
func Cron(expr string) *Schedule      { return std.Cron(expr) }
func Start(ctx context.Context) error { return std.Start(ctx) }
func List() []string                  { return std.List() }

// Cron takes a standard five field expression or a descriptor such as
// "@hourly" or "@every 5m".
func (s *Scheduler) Cron(expr string) *Schedule {
	return &Schedule{s: s, e: &entry{spec: expr}}
}

func (s *Scheduler) Every(n int) *Frequency { return &Frequency{s: s, n: n} }

type Frequency struct {
	s *Scheduler
	n int
}

func (f *Frequency) every(unit time.Duration) *Schedule {
	return f.s.Cron(fmt.Sprintf("@every %s", time.Duration(f.n)*unit))
}

func (f *Frequency) Seconds() *Schedule { return f.every(time.Second) }
func (f *Frequency) Minutes() *Schedule { return f.every(time.Minute) }
func (f *Frequency) Hours() *Schedule   { return f.every(time.Hour) }

func (b *Schedule) WithoutOverlapping() *Schedule {
	b.e.noOverlap = true
	return b
}

func (b *Schedule) Before(fn func()) *Schedule {
	b.e.before = fn
	return b
}

// After runs once the task returns, also after a panic.
func (b *Schedule) After(fn func()) *Schedule {
	b.e.after = fn
	return b
}

func (b *Schedule) Name(id string) *Schedule {
	b.e.id = id
	return b
}

// Run registers the task. The expression is checked here so a typo in an
// env var fails at boot.
func (b *Schedule) Run(task Task) error {
	if _, err := cron.ParseStandard(b.e.spec); err != nil {
		return fmt.Errorf("schedule: %q: %w", b.e.spec, err)
	}
	b.e.task = task

	b.s.mu.Lock()
	defer b.s.mu.Unlock()
	if b.e.id == "" {
		b.e.id = fmt.Sprintf("task-%d", len(b.s.entries)+1)
	}
	b.s.entries = append(b.s.entries, b.e)
	return nil
}

// Start hands every entry to a cron runner that stops with ctx.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.c != nil {
		return fmt.Errorf("schedule: already started")
	}

	log := cronLogger{}
	c := cron.New(cron.WithLogger(log), cron.WithChain(cron.Recover(log)))
	for _, e := range s.entries {
		var job cron.Job = s.job(ctx, e)
		if e.noOverlap {
			job = cron.NewChain(cron.SkipIfStillRunning(log)).Then(job)
		}
		id, err := c.AddJob(e.spec, job)
		if err != nil {
			return fmt.Errorf("schedule: add %s: %w", e.id, err)
		}
		s.ids[e.id] = id
	}
	s.c = c
	c.Start()
	logger.Info("schedule: started", "entries", len(s.entries))

	go func() {
		<-ctx.Done()
		<-c.Stop().Done()
		logger.Info("schedule: stopped")
	}()
	return nil
}

func (s *Scheduler) job(ctx context.Context, e *entry) cron.FuncJob {
	return func() {
		if e.after != nil {
			defer e.after()
		}
		if e.before != nil {
			e.before()
		}
		start := time.Now()
		if err := e.task(ctx); err != nil {
			logger.Error("schedule: task failed", "id", e.id, "error", err, "took", time.Since(start))
			return
		}
		logger.Debug("schedule: task done", "id", e.id, "took", time.Since(start))
	}
}

// RunNow executes the named entry once in the calling goroutine.
func (s *Scheduler) RunNow(ctx context.Context, id string) error {
	s.mu.Lock()
	var found *entry
	for _, e := range s.entries {
		if e.id == id {
			found = e
		}
	}
	s.mu.Unlock()
	if found == nil {
		return fmt.Errorf("schedule: no entry named %q", id)
	}
	return found.task(ctx)
}

// List describes each entry, with its next run once started.
func (s *Scheduler) List() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.entries))
	for _, e := range s.entries {
		line := fmt.Sprintf("%s  [%s]", e.id, e.spec)
		if s.c != nil {
			if next := s.c.Entry(s.ids[e.id]).Next; !next.IsZero() {
				line += "  next " + next.Format(time.RFC3339)
			}
		}
		out = append(out, line)
	}
	return out
}

// cronLogger sends cron's own messages to slog.
type cronLogger struct{}

func (cronLogger) Info(msg string, kv ...interface{}) {
	logger.Debug("cron: "+msg, kv...)
}

func (cronLogger) Error(err error, msg string, kv ...interface{}) {
	logger.Error("cron: "+msg, append(kv, "error", err)...)
}

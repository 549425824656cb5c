// Package bootstrap assembles the process from config: connections, the
// event and job plumbing, the services and the scheduled tasks. Every
// command builds one App and closes it on exit.
package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/shashiranjanraj/panaya/app/jobs"
	"github.com/shashiranjanraj/panaya/app/listeners"
	"github.com/shashiranjanraj/panaya/app/services"
	"github.com/shashiranjanraj/panaya/config"
	"github.com/shashiranjanraj/panaya/pkg/cache"
	"github.com/shashiranjanraj/panaya/pkg/database"
	"github.com/shashiranjanraj/panaya/pkg/event"
	pgrpc "github.com/shashiranjanraj/panaya/pkg/grpc"
	"github.com/shashiranjanraj/panaya/pkg/idempotency"
	"github.com/shashiranjanraj/panaya/pkg/kafka"
	"github.com/shashiranjanraj/panaya/pkg/logger"
	"github.com/shashiranjanraj/panaya/pkg/middleware"
	"github.com/shashiranjanraj/panaya/pkg/queue"
	"github.com/shashiranjanraj/panaya/pkg/schedule"
	"github.com/shashiranjanraj/panaya/pkg/sse"
	"github.com/shashiranjanraj/panaya/pkg/storage"
	"github.com/shashiranjanraj/panaya/pkg/workerpool"
	"github.com/shashiranjanraj/panaya/pkg/ws"
)

// Scheduled task names, as shown by schedule:run.
const (
	TaskReconcile = "orders:reconcile"
	TaskPrune     = "idempotency:prune"
)

type App struct {
	DB          *gorm.DB
	Redis       *redis.Client // nil unless a redis driver is configured
	Cache       cache.Store
	Disk        storage.Disk
	Idempotency *idempotency.Store
	Pool        *workerpool.Pool
	Events      *event.Dispatcher
	Queue       *queue.Manager
	Producer    *kafka.Producer // nil without KAFKA_BROKERS
	Hub         *ws.Hub
	Broker      *sse.Broker
	Services    *services.Services
	Health      *pgrpc.Server
	Scheduler   *schedule.Scheduler

	closers []func()
}

// Options selects the parts only some commands need.
type Options struct {
	// Idempotency opens the checkout key store. bbolt locks the file, so
	// only the API process should set it.
	Idempotency bool
}

// New connects everything config asks for. On error whatever was already
// opened is closed again.
func New(ctx context.Context, opts Options) (a *App, err error) {
	if err = config.Load(); err != nil {
		return nil, fmt.Errorf("bootstrap: config: %w", err)
	}
	flush, err := logger.Setup(logger.OptionsFromConfig())
	if err != nil {
		return nil, fmt.Errorf("bootstrap: logger: %w", err)
	}

	a = &App{closers: []func(){flush}}
	defer func() {
		if err != nil {
			a.Close()
			a = nil
		}
	}()

	if err = database.Connect(); err != nil {
		return a, err
	}
	a.DB = database.DB
	a.onClose(func() {
		if sqlDB, err := a.DB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	if err = a.connectRedis(ctx); err != nil {
		return a, err
	}
	a.Cache = cache.Default

	if err = storage.Connect(ctx); err != nil {
		return a, err
	}
	a.Disk = storage.Default()

	if opts.Idempotency {
		a.Idempotency, err = idempotency.Open(config.IdempotencyPath(), config.IdempotencyTTL())
		if err != nil {
			return a, err
		}
		a.onClose(func() { _ = a.Idempotency.Close() })
	}

	if err = a.wireEvents(ctx); err != nil {
		return a, err
	}

	deps := services.DepsFromConfig(a.DB)
	deps.Cache = a.Cache
	deps.Disk = a.Disk
	deps.Events = a.Events
	deps.Idempotency = a.Idempotency
	if a.Services, err = services.New(deps); err != nil {
		return a, err
	}

	checks := map[string]pgrpc.Check{
		"panaya.database": func(ctx context.Context) error { return database.Ping(ctx, a.DB) },
	}
	if a.Redis != nil {
		checks["panaya.redis"] = func(ctx context.Context) error { return a.Redis.Ping(ctx).Err() }
	}
	a.Health = pgrpc.New(checks)

	if err = a.schedule(); err != nil {
		return a, err
	}
	return a, nil
}

// connectRedis dials Redis once when either the cache or the queue wants
// it. A cache-only failure falls back to memory; the queue cannot.
func (a *App) connectRedis(ctx context.Context) error {
	wantCache := config.CacheDriver() == "redis"
	wantQueue := config.QueueDriver() == "redis"
	if !wantCache && !wantQueue {
		return nil
	}
	rdb, err := cache.Connect(ctx)
	if err != nil {
		if wantQueue {
			return fmt.Errorf("bootstrap: queue: %w", err)
		}
		logger.Warn("cache: redis unavailable, using memory", "error", err)
		return nil
	}
	if !wantCache {
		cache.Default = cache.NewMemory()
	}
	a.Redis = rdb
	a.onClose(func() { _ = rdb.Close() })
	return nil
}

// wireEvents builds the dispatcher, the job queue and the live feeds, and
// subscribes the order listeners.
func (a *App) wireEvents(ctx context.Context) error {
	a.Pool = workerpool.New(config.GetInt("EVENT_WORKERS"))
	a.onClose(a.Pool.Shutdown)
	a.Events = event.New(a.Pool)
	event.SetDefault(a.Events)

	var driver queue.Driver = queue.NewMemoryDriver(1000)
	if a.Redis != nil && config.QueueDriver() == "redis" {
		driver = queue.NewRedisDriver(ctx, a.Redis)
	}
	a.Queue = queue.NewManager(driver)
	a.Queue.UseDB(a.DB)

	opts := jobs.Options{DB: a.DB, WebhookURL: config.Get("NOTIFY_WEBHOOK_URL", ""), Topic: config.KafkaTopic()}
	if brokers := config.KafkaBrokers(); len(brokers) > 0 {
		p, err := kafka.Dial(brokers)
		if err != nil {
			return err
		}
		a.Producer = p
		a.onClose(func() { _ = p.Close() })
		opts.Publisher = p
	}
	jobs.Register(a.Queue, opts)

	a.Hub = ws.NewHub(middleware.DefaultCORSOptions().AllowedOrigins...)
	a.Broker = sse.NewBroker()
	listeners.Register(a.Events, listeners.Options{Queue: a.Queue, Hub: a.Hub, Broker: a.Broker})
	return nil
}

func (a *App) schedule() error {
	a.Scheduler = schedule.New()
	err := a.Scheduler.Cron(config.ReconcileSchedule()).
		Name(TaskReconcile).
		WithoutOverlapping().
		Run(func(ctx context.Context) error {
			_, err := a.Services.Reconcile.Run(ctx, config.ReconcileRepair())
			return err
		})
	if err != nil {
		return err
	}
	if a.Idempotency == nil {
		return nil
	}
	return a.Scheduler.Every(1).Hours().Name(TaskPrune).Run(func(context.Context) error {
		n, err := a.Idempotency.Prune()
		if n > 0 {
			logger.Info("idempotency: pruned", "keys", n)
		}
		return err
	})
}

// Ready reports whether the database answers; it backs /healthz.
func (a *App) Ready(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return database.Ping(ctx, a.DB)
}

func (a *App) onClose(fn func()) { a.closers = append(a.closers, fn) }

// Close releases everything New opened, newest first. The events pool is
// drained before the database closes.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// Package database opens the gorm connection for the configured driver.
package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/driver/sqlserver"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/shashiranjanraj/panaya/config"
	"github.com/shashiranjanraj/panaya/pkg/logger"
	"github.com/shashiranjanraj/panaya/pkg/metrics"
)

// DB is the process-wide connection, set by Connect.
var DB *gorm.DB

// Connect opens DB from DB_DRIVER / DATABASE_DSN.
func Connect() error {
	db, err := Open(config.DatabaseDriver(), config.DatabaseDSN())
	if err != nil {
		return err
	}
	DB = db
	return nil
}

// Open connects, sizes the pool, pings and instruments the connection.
// SQLite is limited to one open connection so concurrent writers queue
// in the pool instead of failing with "database is locked".
func Open(driver, dsn string) (*gorm.DB, error) {
	dialector, err := buildDialector(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("database: build dialector: %w", err)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:                 newGormLogger(200 * time.Millisecond),
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("database: open: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("database: get sql.DB: %w", err)
	}
	if driver == "sqlite" {
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(25)
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetConnMaxLifetime(5 * time.Minute)
		sqlDB.SetConnMaxIdleTime(2 * time.Minute)
	}
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("database: ping: %w", err)
	}

	if err := instrument(db); err != nil {
		return nil, fmt.Errorf("database: instrument: %w", err)
	}
	return db, nil
}

// Ping reports whether db answers within ctx.
func Ping(ctx context.Context, db *gorm.DB) error {
	if db == nil {
		return fmt.Errorf("database: not connected")
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func buildDialector(driver, dsn string) (gorm.Dialector, error) {
	switch driver {
	case "sqlite":
		return sqlite.Open(dsn), nil
	case "postgres":
		return postgres.Open(dsn), nil
	case "mysql":
		return mysql.Open(dsn), nil
	case "sqlserver":
		return sqlserver.Open(dsn), nil
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q (supported: sqlite, postgres, mysql, sqlserver)", driver)
	}
}

const startedKey = "panaya:started_at"

// instrument times every statement into panaya_db_query_duration_seconds.
func instrument(db *gorm.DB) error {
	before := func(tx *gorm.DB) { tx.InstanceSet(startedKey, time.Now()) }
	after := func(op string) func(*gorm.DB) {
		return func(tx *gorm.DB) {
			v, ok := tx.InstanceGet(startedKey)
			if !ok {
				return
			}
			metrics.ObserveDBQuery(op, tx.Statement.Table, time.Since(v.(time.Time)))
		}
	}

	cb := db.Callback()
	steps := []error{
		cb.Query().Before("gorm:query").Register("panaya:before_query", before),
		cb.Query().After("gorm:query").Register("panaya:after_query", after("select")),
		cb.Create().Before("gorm:create").Register("panaya:before_create", before),
		cb.Create().After("gorm:create").Register("panaya:after_create", after("insert")),
		cb.Update().Before("gorm:update").Register("panaya:before_update", before),
		cb.Update().After("gorm:update").Register("panaya:after_update", after("update")),
		cb.Delete().Before("gorm:delete").Register("panaya:before_delete", before),
		cb.Delete().After("gorm:delete").Register("panaya:after_delete", after("delete")),
		cb.Raw().Before("gorm:raw").Register("panaya:before_raw", before),
		cb.Raw().After("gorm:raw").Register("panaya:after_raw", after("raw")),
	}
	for _, err := range steps {
		if err != nil {
			return err
		}
	}
	return nil
}

// gormLogger sends slow statements and errors to the request logger.
type gormLogger struct {
	level gormlogger.LogLevel
	slow  time.Duration
}

func newGormLogger(slow time.Duration) gormlogger.Interface {
	return &gormLogger{level: gormlogger.Warn, slow: slow}
}

func (l *gormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	c := *l
	c.level = level
	return &c
}

func (l *gormLogger) Info(ctx context.Context, msg string, args ...interface{}) {
	if l.level >= gormlogger.Info {
		logger.WithCtx(ctx).Info(fmt.Sprintf(msg, args...))
	}
}

func (l *gormLogger) Warn(ctx context.Context, msg string, args ...interface{}) {
	if l.level >= gormlogger.Warn {
		logger.WithCtx(ctx).Warn(fmt.Sprintf(msg, args...))
	}
}

func (l *gormLogger) Error(ctx context.Context, msg string, args ...interface{}) {
	if l.level >= gormlogger.Error {
		logger.WithCtx(ctx).Error(fmt.Sprintf(msg, args...))
	}
}

func (l *gormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}
	elapsed := time.Since(begin)
	switch {
	case err != nil && l.level >= gormlogger.Error && err != gorm.ErrRecordNotFound:
		sql, rows := fc()
		logger.WithCtx(ctx).Error("sql error", "error", err, "sql", sql, "rows", rows, "elapsed", elapsed.String())
	case l.slow > 0 && elapsed > l.slow && l.level >= gormlogger.Warn:
		sql, rows := fc()
		logger.WithCtx(ctx).Warn("slow sql", "sql", sql, "rows", rows, "elapsed", elapsed.String())
	case l.level >= gormlogger.Info:
		sql, rows := fc()
		logger.WithCtx(ctx).Log(ctx, slog.LevelDebug, "sql", "sql", sql, "rows", rows, "elapsed", elapsed.String())
	}
}

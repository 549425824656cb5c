// Package migration tracks and applies schema migrations in batches.
//
//	func init() {
//	    migration.Register("20260301000000_create_catalog", &CreateCatalog{})
//	}
package migration

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"gorm.io/gorm"

	"github.com/shashiranjanraj/panaya/pkg/logger"
)

type Migration interface {
	Up(db *gorm.DB) error
	Down(db *gorm.DB) error
}

type Record struct {
	ID    uint      `gorm:"primaryKey;autoIncrement"`
	Name  string    `gorm:"uniqueIndex;size:255;not null"`
	Batch int       `gorm:"not null"`
	RunAt time.Time `gorm:"autoCreateTime"`
}

func (Record) TableName() string { return "panaya_migrations" }

type entry struct {
	name string
	m    Migration
}

var registry []entry

// Register adds m under a timestamp-prefixed name. Names sort into run order.
func Register(name string, m Migration) {
	for _, e := range registry {
		if e.name == name {
			panic(fmt.Sprintf("migration: %q registered twice", name))
		}
	}
	registry = append(registry, entry{name: name, m: m})
	sort.Slice(registry, func(i, j int) bool { return registry[i].name < registry[j].name })
}

// StatusRow is one line of `migrate:status`.
type StatusRow struct {
	Name  string
	Ran   bool
	Batch int
}

type Runner struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Runner { return &Runner{db: db} }

func (r *Runner) EnsureTable() error { return r.db.AutoMigrate(&Record{}) }

func (r *Runner) pending() ([]entry, error) {
	var ran []Record
	if err := r.db.Find(&ran).Error; err != nil {
		return nil, err
	}
	done := make(map[string]bool, len(ran))
	for _, rec := range ran {
		done[rec.Name] = true
	}

	var out []entry
	for _, e := range registry {
		if !done[e.name] {
			out = append(out, e)
		}
	}
	return out, nil
}

// Run applies every pending migration as one batch and returns their names.
// Each migration and its record are written in the same transaction.
func (r *Runner) Run() ([]string, error) {
	if err := r.EnsureTable(); err != nil {
		return nil, fmt.Errorf("migration: ensure table: %w", err)
	}
	pending, err := r.pending()
	if err != nil {
		return nil, fmt.Errorf("migration: fetch pending: %w", err)
	}
	if len(pending) == 0 {
		return nil, nil
	}

	batch, err := r.lastBatch()
	if err != nil {
		return nil, err
	}
	batch++

	var ran []string
	for _, e := range pending {
		logger.Info("migration: running", "name", e.name, "batch", batch)
		err := r.db.Transaction(func(tx *gorm.DB) error {
			if err := e.m.Up(tx); err != nil {
				return err
			}
			return tx.Create(&Record{Name: e.name, Batch: batch}).Error
		})
		if err != nil {
			return ran, fmt.Errorf("migration: %s up: %w", e.name, err)
		}
		ran = append(ran, e.name)
	}
	return ran, nil
}

// Rollback reverts the most recent batch, newest first.
func (r *Runner) Rollback() ([]string, error) {
	if err := r.EnsureTable(); err != nil {
		return nil, fmt.Errorf("migration: ensure table: %w", err)
	}
	batch, err := r.lastBatch()
	if err != nil || batch == 0 {
		return nil, err
	}

	var records []Record
	if err := r.db.Where("batch = ?", batch).Order("name desc").Find(&records).Error; err != nil {
		return nil, err
	}

	byName := make(map[string]Migration, len(registry))
	for _, e := range registry {
		byName[e.name] = e.m
	}

	var reverted []string
	for _, rec := range records {
		m, ok := byName[rec.Name]
		if !ok {
			return reverted, fmt.Errorf("migration: cannot roll back %s: %w", rec.Name, ErrUnknownMigration)
		}
		logger.Info("migration: rolling back", "name", rec.Name)
		rec := rec
		err := r.db.Transaction(func(tx *gorm.DB) error {
			if err := m.Down(tx); err != nil {
				return err
			}
			return tx.Delete(&rec).Error
		})
		if err != nil {
			return reverted, fmt.Errorf("migration: %s down: %w", rec.Name, err)
		}
		reverted = append(reverted, rec.Name)
	}
	return reverted, nil
}

// Status lists every registered migration with its batch if it ran.
func (r *Runner) Status() ([]StatusRow, error) {
	if err := r.EnsureTable(); err != nil {
		return nil, err
	}
	var ran []Record
	if err := r.db.Find(&ran).Error; err != nil {
		return nil, err
	}
	batches := make(map[string]int, len(ran))
	for _, rec := range ran {
		batches[rec.Name] = rec.Batch
	}

	rows := make([]StatusRow, 0, len(registry))
	for _, e := range registry {
		b, ok := batches[e.name]
		rows = append(rows, StatusRow{Name: e.name, Ran: ok, Batch: b})
	}
	return rows, nil
}

func (r *Runner) lastBatch() (int, error) {
	var max struct{ Max int }
	if err := r.db.Model(&Record{}).Select("COALESCE(MAX(batch), 0) as max").Scan(&max).Error; err != nil {
		return 0, err
	}
	return max.Max, nil
}

var ErrUnknownMigration = errors.New("migration not registered")

package queue

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/shashiranjanraj/panaya/pkg/logger"
)

// FailedJobRecord is a job that ran out of retries.
type FailedJobRecord struct {
	ID       uint      `gorm:"primaryKey;autoIncrement"`
	JobType  string    `gorm:"size:255;not null;index"`
	Payload  string    `gorm:"type:text;not null"`
	Error    string    `gorm:"type:text"`
	Attempts int       `gorm:"not null;default:0"`
	FailedAt time.Time `gorm:"autoCreateTime"`
}

func (FailedJobRecord) TableName() string { return "panaya_failed_jobs" }

// UseDB also writes failures to the panaya_failed_jobs table, which the
// migrations create.
func UseDB(db *gorm.DB) { defaultManager.UseDB(db) }

func (m *Manager) UseDB(db *gorm.DB) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.db = db
}

func (m *Manager) persistFailed(job Job, lastErr error, attempts int) {
	m.mu.Lock()
	m.failed = append(m.failed, FailedJob{
		Name: job.Name(), Job: job, Err: lastErr, FailedAt: time.Now(), Attempts: attempts,
	})
	db := m.db
	m.mu.Unlock()

	if db == nil {
		return
	}

	payload, err := json.Marshal(job)
	if err != nil {
		payload = []byte(fmt.Sprintf(`{"error": "could not marshal: %v"}`, err))
	}
	msg := ""
	if lastErr != nil {
		msg = lastErr.Error()
	}
	record := FailedJobRecord{
		JobType:  job.Name(),
		Payload:  string(payload),
		Error:    msg,
		Attempts: attempts,
		FailedAt: time.Now(),
	}
	if err := db.Create(&record).Error; err != nil {
		logger.Error("queue: persist failed job", "type", job.Name(), "error", err)
	}
}

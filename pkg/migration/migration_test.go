package migration

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type note struct {
	ID   uint
	Body string
}

type createNotes struct{}

func (createNotes) Up(db *gorm.DB) error   { return db.AutoMigrate(&note{}) }
func (createNotes) Down(db *gorm.DB) error { return db.Migrator().DropTable(&note{}) }

func TestRunRollbackStatus(t *testing.T) {
	saved := registry
	t.Cleanup(func() { registry = saved })
	registry = nil
	Register("20260101000000_create_notes", createNotes{})

	db, err := gorm.Open(sqlite.Open("file:migration_test?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	r := New(db)

	ran, err := r.Run()
	require.NoError(t, err)
	assert.Equal(t, []string{"20260101000000_create_notes"}, ran)
	assert.True(t, db.Migrator().HasTable(&note{}))

	ran, err = r.Run()
	require.NoError(t, err)
	assert.Empty(t, ran)

	rows, err := r.Status()
	require.NoError(t, err)
	assert.Equal(t, []StatusRow{{Name: "20260101000000_create_notes", Ran: true, Batch: 1}}, rows)

	reverted, err := r.Rollback()
	require.NoError(t, err)
	assert.Equal(t, []string{"20260101000000_create_notes"}, reverted)
	assert.False(t, db.Migrator().HasTable(&note{}))
}

func TestRegisterTwicePanics(t *testing.T) {
	saved := registry
	t.Cleanup(func() { registry = saved })
	registry = nil
	Register("a", createNotes{})
	assert.Panics(t, func() { Register("a", createNotes{}) })
}

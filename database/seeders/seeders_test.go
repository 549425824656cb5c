package seeders_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/panaya/app/models"
	_ "github.com/shashiranjanraj/panaya/database/migrations"
	"github.com/shashiranjanraj/panaya/database/seeders"
	"github.com/shashiranjanraj/panaya/pkg/auth"
	"github.com/shashiranjanraj/panaya/pkg/database"
	"github.com/shashiranjanraj/panaya/pkg/migration"
	"github.com/shashiranjanraj/panaya/pkg/queue"
)

func TestMigrateSeedAndRollback(t *testing.T) {
	db, err := database.Open("sqlite", "file:seeders_test?mode=memory&cache=shared")
	require.NoError(t, err)

	ran, err := migration.New(db).Run()
	require.NoError(t, err)
	assert.Len(t, ran, 7)
	for _, m := range append(models.All(), &queue.FailedJobRecord{}) {
		assert.True(t, db.Migrator().HasTable(m), "%T", m)
	}

	var out bytes.Buffer
	require.NoError(t, seeders.RunAll(db, &out))
	require.NoError(t, seeders.RunAll(db, &out))
	assert.Contains(t, out.String(), "catalog … done")

	var admin models.User
	require.NoError(t, db.Where("role = ?", models.RoleAdmin).First(&admin).Error)
	assert.True(t, auth.CheckPassword(admin.Password, "change-me-now"))

	var users, categories, products int64
	db.Model(&models.User{}).Count(&users)
	db.Model(&models.Category{}).Count(&categories)
	db.Model(&models.Product{}).Count(&products)
	assert.Equal(t, int64(1), users)
	assert.Equal(t, int64(3), categories)
	assert.Equal(t, int64(7), products)

	reverted, err := migration.New(db).Rollback()
	require.NoError(t, err)
	assert.Len(t, reverted, 7)
	assert.False(t, db.Migrator().HasTable(&models.User{}))
}

func TestNamesKeepRegistrationOrder(t *testing.T) {
	assert.Equal(t, []string{"catalog", "users"}, seeders.Names())
}

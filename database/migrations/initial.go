package migrations

import (
	"gorm.io/gorm"

	"github.com/shashiranjanraj/panaya/app/models"
	"github.com/shashiranjanraj/panaya/pkg/migration"
	"github.com/shashiranjanraj/panaya/pkg/queue"
)

func init() {
	migration.Register("20260101000000_create_users_table", table(&models.User{}))
	migration.Register("20260101000001_create_catalog_tables", table(&models.Category{}, &models.Product{}, &models.Review{}))
	migration.Register("20260101000002_create_cart_tables", table(&models.Cart{}, &models.CartItem{}))
	migration.Register("20260101000003_create_order_tables", table(&models.Order{}, &models.OrderItem{}))
	migration.Register("20260101000004_create_payments_table", table(&models.Payment{}))
	migration.Register("20260101000005_create_shipment_tables", table(&models.Shipment{}, &models.ShipmentEvent{}))
	migration.Register("20260101000006_create_failed_jobs_table", table(&queue.FailedJobRecord{}))
}

// CreateTables migrates a group of models up and drops them, in reverse
// order, on the way down.
type CreateTables struct {
	Models []interface{}
}

func table(m ...interface{}) *CreateTables { return &CreateTables{Models: m} }

func (m *CreateTables) Up(db *gorm.DB) error {
	return db.AutoMigrate(m.Models...)
}

func (m *CreateTables) Down(db *gorm.DB) error {
	for i := len(m.Models) - 1; i >= 0; i-- {
		if err := db.Migrator().DropTable(m.Models[i]); err != nil {
			return err
		}
	}
	return nil
}

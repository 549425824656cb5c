package seeders

import (
	"gorm.io/gorm"

	"github.com/shashiranjanraj/panaya/app/models"
)

func init() { Register("catalog", seedCatalog) }

type seedProduct struct {
	name  string
	price float64
	stock int
}

var starterCatalog = []struct {
	category string
	products []seedProduct
}{
	{"Kitchen", []seedProduct{{"Ceramic Mug", 12.5, 40}, {"Teapot", 34, 15}, {"Chef Knife", 79.9, 10}}},
	{"Stationery", []seedProduct{{"Notebook A5", 6.75, 120}, {"Fountain Pen", 45, 25}}},
	{"Home", []seedProduct{{"Linen Throw", 59, 12}, {"Scented Candle", 18, 60}}},
}

// seedCatalog creates the starter categories and products by name, so a
// second run adds nothing.
func seedCatalog(db *gorm.DB) error {
	return db.Transaction(func(tx *gorm.DB) error {
		for _, group := range starterCatalog {
			cat := models.Category{Name: group.category}
			if err := tx.Where(models.Category{Name: group.category}).FirstOrCreate(&cat).Error; err != nil {
				return err
			}
			for _, p := range group.products {
				prod := models.Product{
					Name:          p.name,
					Price:         p.price,
					StockQuantity: p.stock,
					CategoryID:    cat.ID,
				}
				err := tx.Where(models.Product{Name: p.name, CategoryID: cat.ID}).
					FirstOrCreate(&prod).Error
				if err != nil {
					return err
				}
			}
		}
		return nil
	})
}

package services_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/shashiranjanraj/panaya/app/models"
	"github.com/shashiranjanraj/panaya/app/services"
	"github.com/shashiranjanraj/panaya/pkg/orm"
)

// seedReferences hangs a review, a cart line and an order line off p.
func seedReferences(t *testing.T, f *fixture, p models.Product) {
	t.Helper()
	ctx := context.Background()
	_, err := f.svc.Reviews.Create(ctx, f.alice, services.ReviewInput{ProductID: p.ID, Rating: 5, Comment: "great"})
	require.NoError(t, err)
	_, err = f.svc.Carts.AddItem(ctx, f.bob, services.CartItemInput{ProductID: p.ID, Quantity: 1})
	require.NoError(t, err)
	_, err = f.svc.Checkout.Checkout(ctx, f.alice, services.CheckoutInput{
		Items: []services.CheckoutLine{{ProductID: p.ID, Quantity: 1}},
	}, "")
	require.NoError(t, err)
}

func TestDeleteCategoryCascades(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	cat, err := f.svc.Catalog.CreateCategory(ctx, services.CategoryInput{Name: "Kitchen"})
	require.NoError(t, err)
	p, err := f.svc.Catalog.CreateProduct(ctx, services.ProductInput{Name: "Pan", Price: 25, StockQuantity: 5, CategoryID: cat.ID})
	require.NoError(t, err)
	seedReferences(t, f, *p)

	require.NoError(t, f.svc.Catalog.DeleteCategory(ctx, cat.ID))

	assert.Zero(t, f.count(t, &models.Product{}))
	assert.Zero(t, f.count(t, &models.Review{}))
	assert.Zero(t, f.count(t, &models.CartItem{}))
	assert.Zero(t, f.count(t, &models.OrderItem{}))
	_, err = f.svc.Catalog.Category(ctx, cat.ID)
	assert.ErrorIs(t, err, services.ErrNotFound)
}

func TestDeleteProductCascades(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	p := f.product(t, "Fork", 3, 10)
	keep := f.product(t, "Spoon", 3, 10)
	seedReferences(t, f, p)
	seedReferences(t, f, keep)

	require.NoError(t, f.svc.Catalog.DeleteProduct(ctx, p.ID))

	var n int64
	require.NoError(t, f.db.Model(&models.Review{}).Where("product_id = ?", p.ID).Count(&n).Error)
	assert.Zero(t, n)
	require.NoError(t, f.db.Model(&models.CartItem{}).Where("product_id = ?", p.ID).Count(&n).Error)
	assert.Zero(t, n)
	require.NoError(t, f.db.Model(&models.OrderItem{}).Where("product_id = ?", p.ID).Count(&n).Error)
	assert.Zero(t, n)

	assert.Equal(t, int64(1), f.count(t, &models.Product{}))
	assert.Equal(t, int64(1), f.count(t, &models.Review{}))

	assert.ErrorIs(t, f.svc.Catalog.DeleteProduct(ctx, p.ID), services.ErrNotFound)
}

func TestCascadeRollsBackOnFailure(t *testing.T) {
	cases := map[string]func(f *fixture, p models.Product) error{
		"product": func(f *fixture, p models.Product) error {
			return f.svc.Catalog.DeleteProduct(context.Background(), p.ID)
		},
		"category": func(f *fixture, p models.Product) error {
			return f.svc.Catalog.DeleteCategory(context.Background(), p.CategoryID)
		},
	}
	for name, del := range cases {
		t.Run(name, func(t *testing.T) {
			f := setup(t)
			p := f.product(t, "Whisk", 7, 5)
			seedReferences(t, f, p)

			// fails after reviews and order items are already gone
			boom := errors.New("disk on fire")
			require.NoError(t, f.db.Callback().Delete().Before("gorm:delete").Register("test:fail_cart_items", func(tx *gorm.DB) {
				if tx.Statement.Table == "cart_items" {
					_ = tx.AddError(boom)
				}
			}))

			require.ErrorIs(t, del(f, p), boom)

			assert.Equal(t, int64(1), f.count(t, &models.Product{}))
			assert.Equal(t, int64(1), f.count(t, &models.Review{}))
			assert.Equal(t, int64(1), f.count(t, &models.CartItem{}))
			assert.Equal(t, int64(1), f.count(t, &models.OrderItem{}))
			assert.Equal(t, int64(1), f.count(t, &models.Category{}))
		})
	}
}

func TestCategoryNamesAreUnique(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	_, err := f.svc.Catalog.CreateCategory(ctx, services.CategoryInput{Name: "Garden"})
	require.NoError(t, err)

	_, err = f.svc.Catalog.CreateCategory(ctx, services.CategoryInput{Name: "Garden"})
	var v services.ValidationError
	require.ErrorAs(t, err, &v)
	assert.Contains(t, v.Fields(), "name")
}

func TestCategoriesCountProducts(t *testing.T) {
	f := setup(t)
	f.product(t, "A", 1, 1)
	f.product(t, "B", 1, 1)

	cats, _, err := f.svc.Catalog.Categories(context.Background(), orm.NewPageRequest(1, 10))
	require.NoError(t, err)
	require.Len(t, cats, 1)
	assert.Equal(t, int64(2), cats[0].ProductCount)
}

func TestProductListingCacheIsFlushedByWrites(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	p := f.product(t, "Vase", 19.99, 2)
	req := orm.NewPageRequest(1, 10)

	items, page, err := f.svc.Catalog.Products(ctx, services.ProductFilter{}, req)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, int64(1), page.Total)

	// written behind the service's back: the cached page still wins
	f.product(t, "Bowl", 9, 2)
	items, _, err = f.svc.Catalog.Products(ctx, services.ProductFilter{}, req)
	require.NoError(t, err)
	assert.Len(t, items, 1)

	stock := 0
	_, err = f.svc.Catalog.UpdateProduct(ctx, p.ID, services.ProductUpdate{StockQuantity: &stock})
	require.NoError(t, err)
	items, _, err = f.svc.Catalog.Products(ctx, services.ProductFilter{}, req)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, 0, items[0].StockQuantity)

	items, _, err = f.svc.Catalog.Products(ctx, services.ProductFilter{Query: "BOW"}, req)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Bowl", items[0].Name)
}

func TestCreateProductChecksCategory(t *testing.T) {
	f := setup(t)
	_, err := f.svc.Catalog.CreateProduct(context.Background(), services.ProductInput{Name: "Ghost", CategoryID: 404})
	var v services.ValidationError
	require.ErrorAs(t, err, &v)
	assert.Contains(t, v.Fields(), "category_id")
}

func TestReviewsBelongToTheirAuthor(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	p := f.product(t, "Rug", 50, 1)
	r, err := f.svc.Reviews.Create(ctx, f.alice, services.ReviewInput{ProductID: p.ID, Rating: 4})
	require.NoError(t, err)

	rating := 1
	_, err = f.svc.Reviews.Update(ctx, f.bob, r.ID, services.ReviewUpdate{Rating: &rating})
	assert.ErrorIs(t, err, services.ErrForbidden)

	r, err = f.svc.Reviews.Update(ctx, f.alice, r.ID, services.ReviewUpdate{Rating: &rating})
	require.NoError(t, err)
	assert.Equal(t, 1, r.Rating)

	assert.NoError(t, f.svc.Reviews.Delete(ctx, f.admin, r.ID))
}

package services

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/shashiranjanraj/panaya/app/models"
	"github.com/shashiranjanraj/panaya/app/repositories"
	"github.com/shashiranjanraj/panaya/pkg/cache"
	"github.com/shashiranjanraj/panaya/pkg/logger"
	"github.com/shashiranjanraj/panaya/pkg/metrics"
	"github.com/shashiranjanraj/panaya/pkg/orm"
)

const productCachePrefix = "products:"

type CatalogService struct {
	d Deps
}

type CategoryInput struct {
	Name        string `json:"name" validate:"required|max:255"`
	Description string `json:"description"`
}

type ProductInput struct {
	Name          string  `json:"name" validate:"required|max:255"`
	Description   string  `json:"description"`
	Price         float64 `json:"price" validate:"gte:0"`
	StockQuantity int     `json:"stock_quantity" validate:"gte:0"`
	CategoryID    uint    `json:"category_id" validate:"required"`
	Image         string  `json:"image"`
}

type ProductUpdate struct {
	Name          *string  `json:"name" validate:"max:255"`
	Description   *string  `json:"description"`
	Price         *float64 `json:"price" validate:"gte:0"`
	StockQuantity *int     `json:"stock_quantity" validate:"gte:0"`
	CategoryID    *uint    `json:"category_id" validate:"gte:1"`
	Image         *string  `json:"image"`
}

type ProductFilter struct {
	CategoryID uint
	Query      string
}

func (f ProductFilter) scope(q *gorm.DB) *gorm.DB {
	if f.CategoryID != 0 {
		q = q.Where("category_id = ?", f.CategoryID)
	}
	if term := strings.TrimSpace(f.Query); term != "" {
		like := "%" + strings.ToLower(term) + "%"
		q = q.Where("LOWER(name) LIKE ? OR LOWER(description) LIKE ?", like, like)
	}
	return q.Order("id")
}

func (f ProductFilter) cacheKey(req orm.PageRequest) string {
	return fmt.Sprintf("%sc%d:q%s:p%d:n%d", productCachePrefix, f.CategoryID, strings.ToLower(strings.TrimSpace(f.Query)), req.Page, req.PerPage)
}

// ─── Categories ──────────────────────────────────────────────────────────────

func (s *CatalogService) Categories(ctx context.Context, req orm.PageRequest) ([]models.Category, orm.Pagination, error) {
	cats, p, err := repositories.New[models.Category](s.d.DB).Paginate(ctx, req, func(q *gorm.DB) *gorm.DB { return q.Order("name") })
	if err != nil || len(cats) == 0 {
		return cats, p, err
	}
	if err := s.countProducts(ctx, cats); err != nil {
		return nil, p, err
	}
	return cats, p, nil
}

func (s *CatalogService) countProducts(ctx context.Context, cats []models.Category) error {
	ids := make([]uint, len(cats))
	for i, c := range cats {
		ids[i] = c.ID
	}
	var rows []struct {
		CategoryID uint
		N          int64
	}
	err := s.d.DB.WithContext(ctx).Model(&models.Product{}).
		Select("category_id, COUNT(*) AS n").
		Where("category_id IN ?", ids).
		Group("category_id").
		Scan(&rows).Error
	if err != nil {
		return err
	}
	counts := make(map[uint]int64, len(rows))
	for _, r := range rows {
		counts[r.CategoryID] = r.N
	}
	for i := range cats {
		cats[i].ProductCount = counts[cats[i].ID]
	}
	return nil
}

// Category returns one category with its products.
func (s *CatalogService) Category(ctx context.Context, id uint) (*models.Category, error) {
	c, err := repositories.New[models.Category](s.d.DB).Find(ctx, id, func(q *gorm.DB) *gorm.DB {
		return q.Preload("Products", func(q *gorm.DB) *gorm.DB { return q.Order("id") })
	})
	if err != nil {
		return nil, err
	}
	c.ProductCount = int64(len(c.Products))
	return c, nil
}

func (s *CatalogService) CreateCategory(ctx context.Context, in CategoryInput) (*models.Category, error) {
	c := &models.Category{Name: strings.TrimSpace(in.Name), Description: in.Description}
	if err := s.uniqueCategory(ctx, c.Name, 0); err != nil {
		return nil, err
	}
	if err := repositories.New[models.Category](s.d.DB).Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *CatalogService) UpdateCategory(ctx context.Context, id uint, in CategoryInput) (*models.Category, error) {
	repo := repositories.New[models.Category](s.d.DB)
	c, err := repo.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.Name)
	if err := s.uniqueCategory(ctx, name, id); err != nil {
		return nil, err
	}
	c.Name, c.Description = name, in.Description
	if err := repo.Save(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *CatalogService) uniqueCategory(ctx context.Context, name string, except uint) error {
	var n int64
	err := s.d.DB.WithContext(ctx).Model(&models.Category{}).
		Where("LOWER(name) = ? AND id <> ?", strings.ToLower(name), except).
		Count(&n).Error
	if err != nil {
		return err
	}
	if n > 0 {
		return invalid("name", "The name has already been taken.")
	}
	return nil
}

// DeleteCategory removes the category, its products and everything that
// references those products.
func (s *CatalogService) DeleteCategory(ctx context.Context, id uint) error {
	err := s.d.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Select("id").First(&models.Category{}, id).Error; err != nil {
			return translateNotFound(err)
		}
		productIDs, err := pluckIDs(tx, &models.Product{}, "category_id = ?", id)
		if err != nil {
			return err
		}
		if err := deleteProducts(tx, productIDs); err != nil {
			return err
		}
		return tx.Delete(&models.Category{}, id).Error
	})
	if err == nil {
		s.d.flushProducts(ctx)
	}
	return err
}

// ─── Products ────────────────────────────────────────────────────────────────

type productPage struct {
	Items      []models.Product `json:"items"`
	Pagination orm.Pagination   `json:"pagination"`
}

// Products lists the catalog. Pages are cached until the next catalog write.
func (s *CatalogService) Products(ctx context.Context, f ProductFilter, req orm.PageRequest) ([]models.Product, orm.Pagination, error) {
	var page productPage
	key := f.cacheKey(req)
	hit := true
	err := cache.Remember(ctx, s.d.Cache, key, s.d.CatalogTTL, &page, func() error {
		hit = false
		items, p, err := repositories.New[models.Product](s.d.DB).Paginate(ctx, req, f.scope, repositories.Preload("Category"))
		page = productPage{Items: items, Pagination: p}
		return err
	})
	metrics.RecordCache("products", hit)
	if err != nil {
		return nil, orm.Pagination{}, err
	}
	return page.Items, page.Pagination, nil
}

func (s *CatalogService) Product(ctx context.Context, id uint) (*models.Product, error) {
	return repositories.New[models.Product](s.d.DB).Find(ctx, id, repositories.Preload("Category"))
}

func (s *CatalogService) CreateProduct(ctx context.Context, in ProductInput) (*models.Product, error) {
	if err := s.categoryExists(ctx, in.CategoryID); err != nil {
		return nil, err
	}
	p := &models.Product{
		Name:          strings.TrimSpace(in.Name),
		Description:   in.Description,
		Price:         models.RoundMoney(in.Price),
		StockQuantity: in.StockQuantity,
		CategoryID:    in.CategoryID,
		Image:         in.Image,
	}
	if err := repositories.New[models.Product](s.d.DB).Create(ctx, p); err != nil {
		return nil, err
	}
	s.d.flushProducts(ctx)
	return p, nil
}

func (s *CatalogService) UpdateProduct(ctx context.Context, id uint, in ProductUpdate) (*models.Product, error) {
	repo := repositories.New[models.Product](s.d.DB)
	if _, err := repo.Find(ctx, id); err != nil {
		return nil, err
	}
	fields := map[string]interface{}{}
	if in.Name != nil {
		fields["name"] = strings.TrimSpace(*in.Name)
	}
	if in.Description != nil {
		fields["description"] = *in.Description
	}
	if in.Price != nil {
		fields["price"] = models.RoundMoney(*in.Price)
	}
	if in.StockQuantity != nil {
		fields["stock_quantity"] = *in.StockQuantity
	}
	if in.CategoryID != nil {
		if err := s.categoryExists(ctx, *in.CategoryID); err != nil {
			return nil, err
		}
		fields["category_id"] = *in.CategoryID
	}
	if in.Image != nil {
		fields["image"] = *in.Image
	}
	if len(fields) > 0 {
		if err := repo.Update(ctx, id, fields); err != nil {
			return nil, err
		}
		s.d.flushProducts(ctx)
	}
	return s.Product(ctx, id)
}

// DeleteProduct removes the product with its reviews, order items and cart
// items in one transaction.
func (s *CatalogService) DeleteProduct(ctx context.Context, id uint) error {
	err := s.d.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Select("id").First(&models.Product{}, id).Error; err != nil {
			return translateNotFound(err)
		}
		return deleteProducts(tx, []uint{id})
	})
	if err == nil {
		s.d.flushProducts(ctx)
	}
	return err
}

func (s *CatalogService) categoryExists(ctx context.Context, id uint) error {
	ok, err := repositories.New[models.Category](s.d.DB).Exists(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return invalid("category_id", "The selected category_id is invalid.")
	}
	return nil
}

// flushProducts drops cached listings after the catalog or stock changed.
func (d Deps) flushProducts(ctx context.Context) {
	if err := d.Cache.Flush(ctx, productCachePrefix); err != nil {
		logger.WithCtx(ctx).Warn("catalog: cache flush failed", "error", err)
	}
}

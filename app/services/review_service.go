package services

import (
	"context"

	"gorm.io/gorm"

	"github.com/shashiranjanraj/panaya/app/models"
	"github.com/shashiranjanraj/panaya/app/repositories"
	"github.com/shashiranjanraj/panaya/pkg/orm"
)

type ReviewService struct {
	d Deps
}

type ReviewInput struct {
	ProductID uint   `json:"product_id" validate:"required"`
	Rating    int    `json:"rating" validate:"required|between:1,5"`
	Comment   string `json:"comment" validate:"max:2000"`
}

type ReviewUpdate struct {
	Rating  *int    `json:"rating" validate:"between:1,5"`
	Comment *string `json:"comment" validate:"max:2000"`
}

func (s *ReviewService) repo() repositories.Repository[models.Review] {
	return repositories.New[models.Review](s.d.DB)
}

func (s *ReviewService) List(ctx context.Context, productID uint, req orm.PageRequest) ([]models.Review, orm.Pagination, error) {
	filter := func(q *gorm.DB) *gorm.DB {
		if productID != 0 {
			q = q.Where("product_id = ?", productID)
		}
		return q.Order("created_at DESC").Order("id DESC")
	}
	return s.repo().Paginate(ctx, req, filter, reviewAuthor)
}

// reviewAuthor loads the author without exposing more than the name.
func reviewAuthor(q *gorm.DB) *gorm.DB {
	return q.Preload("User", func(q *gorm.DB) *gorm.DB { return q.Select("id", "name", "created_at", "updated_at") })
}

func (s *ReviewService) Get(ctx context.Context, id uint) (*models.Review, error) {
	return s.repo().Find(ctx, id, reviewAuthor)
}

// Create stores a review by the caller.
func (s *ReviewService) Create(ctx context.Context, a Actor, in ReviewInput) (*models.Review, error) {
	ok, err := repositories.New[models.Product](s.d.DB).Exists(ctx, in.ProductID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, invalid("product_id", "The selected product_id is invalid.")
	}
	r := &models.Review{UserID: a.ID, ProductID: in.ProductID, Rating: in.Rating, Comment: in.Comment}
	if err := s.repo().Create(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *ReviewService) Update(ctx context.Context, a Actor, id uint, in ReviewUpdate) (*models.Review, error) {
	repo := s.repo()
	r, err := repo.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := a.authorize(r.UserID); err != nil {
		return nil, err
	}
	if in.Rating != nil {
		r.Rating = *in.Rating
	}
	if in.Comment != nil {
		r.Comment = *in.Comment
	}
	if err := repo.Save(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *ReviewService) Delete(ctx context.Context, a Actor, id uint) error {
	repo := s.repo()
	r, err := repo.Find(ctx, id)
	if err != nil {
		return err
	}
	if err := a.authorize(r.UserID); err != nil {
		return err
	}
	return repo.Delete(ctx, id)
}

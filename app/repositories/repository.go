// Package repositories wraps gorm queries per entity. Callers pass the
// *gorm.DB to use, so the same repository works inside a transaction.
package repositories

import (
	"context"
	"errors"
	"net/http"

	"gorm.io/gorm"

	"github.com/shashiranjanraj/panaya/pkg/orm"
)

type notFound struct{}

func (notFound) Error() string   { return "record not found" }
func (notFound) StatusCode() int { return http.StatusNotFound }

// ErrNotFound replaces gorm.ErrRecordNotFound at this layer.
var ErrNotFound error = notFound{}

// translate maps gorm's not-found to ErrNotFound and leaves anything else.
func translate(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// Scope is a reusable query fragment.
type Scope = func(*gorm.DB) *gorm.DB

// Preload returns a scope preloading each relation.
func Preload(relations ...string) Scope {
	return func(q *gorm.DB) *gorm.DB {
		for _, rel := range relations {
			q = q.Preload(rel)
		}
		return q
	}
}

// Repository implements the operations every entity shares.
type Repository[T any] struct {
	db *gorm.DB
}

func New[T any](db *gorm.DB) Repository[T] { return Repository[T]{db: db} }

// WithTx returns a copy bound to tx.
func (r Repository[T]) WithTx(tx *gorm.DB) Repository[T] { return Repository[T]{db: tx} }

func (r Repository[T]) query(ctx context.Context) *gorm.DB {
	var zero T
	return r.db.WithContext(ctx).Model(&zero)
}

func (r Repository[T]) Find(ctx context.Context, id uint, scopes ...Scope) (*T, error) {
	var out T
	if err := r.db.WithContext(ctx).Scopes(scopes...).First(&out, id).Error; err != nil {
		return nil, translate(err)
	}
	return &out, nil
}

// FindBy returns the first row matching the condition.
func (r Repository[T]) FindBy(ctx context.Context, cond string, args ...interface{}) (*T, error) {
	var out T
	if err := r.db.WithContext(ctx).Where(cond, args...).First(&out).Error; err != nil {
		return nil, translate(err)
	}
	return &out, nil
}

func (r Repository[T]) Exists(ctx context.Context, id uint) (bool, error) {
	var n int64
	var zero T
	err := r.db.WithContext(ctx).Model(&zero).Where("id = ?", id).Count(&n).Error
	return n > 0, err
}

func (r Repository[T]) All(ctx context.Context, filter Scope, scopes ...Scope) ([]T, error) {
	var out []T
	q := r.query(ctx)
	if filter != nil {
		q = filter(q)
	}
	err := q.Scopes(scopes...).Find(&out).Error
	return out, err
}

// Paginate loads one page. filter narrows and orders the rows; scopes only
// touch the page load.
func (r Repository[T]) Paginate(ctx context.Context, req orm.PageRequest, filter Scope, scopes ...Scope) ([]T, orm.Pagination, error) {
	out := []T{}
	q := r.query(ctx)
	if filter != nil {
		q = filter(q)
	}
	p, err := orm.Paginate(q, req, &out, scopes...)
	return out, p, err
}

func (r Repository[T]) Create(ctx context.Context, v *T) error {
	return r.db.WithContext(ctx).Create(v).Error
}

// Save writes every column of v.
func (r Repository[T]) Save(ctx context.Context, v *T) error {
	return r.db.WithContext(ctx).Save(v).Error
}

// Update writes the given columns only. Zero affected rows is ErrNotFound.
func (r Repository[T]) Update(ctx context.Context, id uint, fields map[string]interface{}) error {
	res := r.query(ctx).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repository[T]) Delete(ctx context.Context, id uint) error {
	var zero T
	res := r.db.WithContext(ctx).Delete(&zero, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

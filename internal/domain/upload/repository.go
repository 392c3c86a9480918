package upload

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// Repository only hands out records to the user who uploaded them.
type Repository interface {
	Create(ctx context.Context, u *Upload) error
	FindOwned(ctx context.Context, id, ownerID string) (*Upload, error)
	ListOwned(ctx context.Context, ownerID string) ([]*Upload, error)
	// DeleteOwned returns the removed record so the caller can drop the file.
	DeleteOwned(ctx context.Context, id, ownerID string) (*Upload, error)
}

type uploadRepository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &uploadRepository{db: db}
}

func (r *uploadRepository) Create(ctx context.Context, u *Upload) error {
	return r.db.WithContext(ctx).Create(u).Error
}

func (r *uploadRepository) FindOwned(ctx context.Context, id, ownerID string) (*Upload, error) {
	return findOwned(r.db.WithContext(ctx), id, ownerID)
}

func (r *uploadRepository) ListOwned(ctx context.Context, ownerID string) ([]*Upload, error) {
	var list []*Upload
	err := r.db.WithContext(ctx).
		Where("user_id = ?", ownerID).
		Order("created_at DESC").
		Find(&list).Error
	return list, err
}

func (r *uploadRepository) DeleteOwned(ctx context.Context, id, ownerID string) (*Upload, error) {
	var removed *Upload
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		u, err := findOwned(tx, id, ownerID)
		if err != nil {
			return err
		}
		res := tx.Where("id = ? AND user_id = ?", id, ownerID).Delete(&Upload{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrUploadNotFound
		}
		removed = u
		return nil
	})
	return removed, err
}

// findOwned tells a missing upload apart from someone else's.
func findOwned(db *gorm.DB, id, ownerID string) (*Upload, error) {
	var u Upload
	err := db.Where("id = ?", id).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUploadNotFound
	}
	if err != nil {
		return nil, err
	}
	if u.UserID != ownerID {
		return nil, ErrNotOwner
	}
	return &u, nil
}

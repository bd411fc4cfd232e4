package shot

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository defines the interface for shot data access.
type Repository interface {
	CreateShot(ctx context.Context, shot *Shot) error
	GetShot(ctx context.Context, id uuid.UUID) (*Shot, error)
	ListShots(ctx context.Context, projectID uuid.UUID) ([]*Shot, error)
	UpdateShot(ctx context.Context, shot *Shot) error
	DeleteShot(ctx context.Context, id uuid.UUID) error
	ResetStaleShots(ctx context.Context) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository creates a new shot repository.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) CreateShot(ctx context.Context, shot *Shot) error {
	return r.db.WithContext(ctx).Create(shot).Error
}

func (r *repository) GetShot(ctx context.Context, id uuid.UUID) (*Shot, error) {
	var shot Shot
	err := r.db.WithContext(ctx).First(&shot, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrShotNotFound
		}
		return nil, err
	}
	return &shot, nil
}

func (r *repository) ListShots(ctx context.Context, projectID uuid.UUID) ([]*Shot, error) {
	var shots []*Shot
	err := r.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("position ASC").
		Find(&shots).Error
	if err != nil {
		return nil, err
	}
	return shots, nil
}

func (r *repository) UpdateShot(ctx context.Context, shot *Shot) error {
	return r.db.WithContext(ctx).Save(shot).Error
}

func (r *repository) DeleteShot(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&Shot{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrShotNotFound
	}
	return nil
}

// ResetStaleShots moves shots stranded in a transient generation state
// back to the stage they were generating from. Run once on startup; a
// shot still marked generating at that point lost its in-flight
// operation to the previous process.
func (r *repository) ResetStaleShots(ctx context.Context) (int64, error) {
	var total int64

	result := r.db.WithContext(ctx).
		Model(&Shot{}).
		Where("status = ?", StatusImgGen).
		Update("status", StatusDraft)
	if result.Error != nil {
		return total, result.Error
	}
	total += result.RowsAffected

	result = r.db.WithContext(ctx).
		Model(&Shot{}).
		Where("status = ?", StatusVidGen).
		Update("status", StatusImgReview)
	if result.Error != nil {
		return total, result.Error
	}
	total += result.RowsAffected

	return total, nil
}

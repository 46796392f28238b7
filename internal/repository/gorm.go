package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Footie-RU/footiedrop-engine/internal/models"
)

// GormUserRepository implements UserRepository on top of gorm.
type GormUserRepository struct {
	db *gorm.DB
}

// NewGormUserRepository creates a new gorm-backed user repository.
func NewGormUserRepository(db *gorm.DB) *GormUserRepository {
	return &GormUserRepository{db: db}
}

// FindByID looks up a user by id.
func (r *GormUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("error finding user: %w", err)
	}
	return &user, nil
}

// GormKYCRepository implements KYCRepository on top of gorm.
type GormKYCRepository struct {
	db *gorm.DB
}

// NewGormKYCRepository creates a new gorm-backed KYC repository.
func NewGormKYCRepository(db *gorm.DB) *GormKYCRepository {
	return &GormKYCRepository{db: db}
}

// FindByUserID looks up the KYC record owned by the given user.
func (r *GormKYCRepository) FindByUserID(ctx context.Context, userID uuid.UUID) (*models.KYCRecord, error) {
	var record models.KYCRecord
	err := r.db.WithContext(ctx).First(&record, "user_id = ?", userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("error finding KYC record: %w", err)
	}
	return &record, nil
}

// FindByID looks up a KYC record by its own id.
func (r *GormKYCRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.KYCRecord, error) {
	var record models.KYCRecord
	err := r.db.WithContext(ctx).First(&record, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("error finding KYC record: %w", err)
	}
	return &record, nil
}

// Create persists a new KYC record.
func (r *GormKYCRepository) Create(ctx context.Context, record *models.KYCRecord) error {
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		return fmt.Errorf("error creating KYC record: %w", err)
	}
	return nil
}

// Update applies a partial field update to a KYC record.
func (r *GormKYCRepository) Update(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error {
	result := r.db.WithContext(ctx).Model(&models.KYCRecord{}).Where("id = ?", id).Updates(fields)
	if result.Error != nil {
		return fmt.Errorf("error updating KYC record: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// FindPage returns one page of KYC records with their owners preloaded,
// plus the total record count.
func (r *GormKYCRepository) FindPage(ctx context.Context, offset, limit int) ([]models.KYCRecord, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&models.KYCRecord{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("error counting KYC records: %w", err)
	}

	var records []models.KYCRecord
	err := r.db.WithContext(ctx).
		Preload("User").
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, 0, fmt.Errorf("error listing KYC records: %w", err)
	}
	return records, total, nil
}

package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/Footie-RU/footiedrop-engine/internal/models"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// UserRepository provides read access to users.
type UserRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// KYCRepository is the durable store for KYC records. Update applies a
// field-level partial update so concurrent writers cannot clobber unrelated
// fields with a whole-record overwrite.
type KYCRepository interface {
	FindByUserID(ctx context.Context, userID uuid.UUID) (*models.KYCRecord, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.KYCRecord, error)
	Create(ctx context.Context, record *models.KYCRecord) error
	Update(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error
	FindPage(ctx context.Context, offset, limit int) ([]models.KYCRecord, int64, error)
}

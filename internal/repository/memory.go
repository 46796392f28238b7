package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Footie-RU/footiedrop-engine/internal/models"
)

// MemoryUserRepository is an in-memory UserRepository used by tests and
// local development.
type MemoryUserRepository struct {
	mu    sync.RWMutex
	users map[uuid.UUID]models.User
}

// NewMemoryUserRepository creates an empty in-memory user repository.
func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{users: make(map[uuid.UUID]models.User)}
}

// Put stores or replaces a user.
func (r *MemoryUserRepository) Put(user models.User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[user.ID] = user
}

// FindByID looks up a user by id.
func (r *MemoryUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	u := user
	return &u, nil
}

// MemoryKYCRepository is an in-memory KYCRepository used by tests and
// local development.
type MemoryKYCRepository struct {
	mu      sync.RWMutex
	records map[uuid.UUID]models.KYCRecord
	users   *MemoryUserRepository
}

// NewMemoryKYCRepository creates an empty in-memory KYC repository. The user
// repository, when given, is used to preload record owners in FindPage.
func NewMemoryKYCRepository(users *MemoryUserRepository) *MemoryKYCRepository {
	return &MemoryKYCRepository{
		records: make(map[uuid.UUID]models.KYCRecord),
		users:   users,
	}
}

// FindByUserID looks up the KYC record owned by the given user.
func (r *MemoryKYCRepository) FindByUserID(ctx context.Context, userID uuid.UUID) (*models.KYCRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, record := range r.records {
		if record.UserID == userID {
			rec := record
			return &rec, nil
		}
	}
	return nil, ErrNotFound
}

// FindByID looks up a KYC record by its own id.
func (r *MemoryKYCRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.KYCRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	record, ok := r.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	rec := record
	return &rec, nil
}

// Create persists a new KYC record, assigning an id if unset.
func (r *MemoryKYCRepository) Create(ctx context.Context, record *models.KYCRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	now := time.Now()
	record.CreatedAt = now
	record.UpdatedAt = now
	r.records[record.ID] = *record
	return nil
}

// Update applies a partial field update to a stored record. Field names
// match the gorm column names used by the gorm implementation.
func (r *MemoryKYCRepository) Update(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	record, ok := r.records[id]
	if !ok {
		return ErrNotFound
	}
	for name, value := range fields {
		switch name {
		case "step":
			record.Step = value.(models.KYCStep)
		case "status":
			record.Status = value.(models.KYCStatus)
		case "rejection_reason":
			record.RejectionReason = value.(string)
		case "international_passport":
			record.InternationalPassport = value.(string)
		case "russian_passport":
			record.RussianPassport = value.(string)
		case "school_id":
			record.SchoolID = value.(string)
		case "selfie":
			record.Selfie = value.(string)
		case "documents_in_review_sent":
			record.DocumentsInReviewSent = value.(bool)
		case "documents_verified_sent":
			record.DocumentsVerifiedSent = value.(bool)
		case "documents_rejected_sent":
			record.DocumentsRejectedSent = value.(bool)
		}
	}
	record.UpdatedAt = time.Now()
	r.records[id] = record
	return nil
}

// FindPage returns one page of records ordered newest first, with owners
// attached when a user repository is available.
func (r *MemoryKYCRepository) FindPage(ctx context.Context, offset, limit int) ([]models.KYCRecord, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]models.KYCRecord, 0, len(r.records))
	for _, record := range r.records {
		all = append(all, record)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })

	total := int64(len(all))
	if offset >= len(all) {
		return []models.KYCRecord{}, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	page := make([]models.KYCRecord, end-offset)
	copy(page, all[offset:end])

	if r.users != nil {
		for i := range page {
			if user, err := r.users.FindByID(ctx, page[i].UserID); err == nil {
				page[i].User = user
			}
		}
	}
	return page, total, nil
}

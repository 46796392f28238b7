package kyc

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Footie-RU/footiedrop-engine/internal/cache"
	"github.com/Footie-RU/footiedrop-engine/internal/models"
	"github.com/Footie-RU/footiedrop-engine/internal/repository"
	"github.com/Footie-RU/footiedrop-engine/internal/services/email"
	"github.com/Footie-RU/footiedrop-engine/internal/services/storage"
)

const (
	uploadTimeout = 30 * time.Second
	mailTimeout   = 15 * time.Second
)

// KYCService owns the KYC workflow: the step state machine, idempotent
// document uploads, status transitions with their notification side effects,
// and the cached admin listing.
type KYCService struct {
	users    repository.UserRepository
	records  repository.KYCRepository
	uploader storage.Uploader
	sender   email.Sender
	listing  cache.ListingCache

	// One mutex per user serializes record mutations so two concurrent
	// uploads cannot both pass the empty-slot check.
	locks sync.Map
}

// NewKYCService creates a new KYC workflow service.
func NewKYCService(
	users repository.UserRepository,
	records repository.KYCRepository,
	uploader storage.Uploader,
	sender email.Sender,
	listing cache.ListingCache,
) *KYCService {
	return &KYCService{
		users:    users,
		records:  records,
		uploader: uploader,
		sender:   sender,
		listing:  listing,
	}
}

func (s *KYCService) userLock(userID uuid.UUID) *sync.Mutex {
	v, _ := s.locks.LoadOrStore(userID, &sync.Mutex{})
	return v.(*sync.Mutex)
}

// CreateOrGet returns the user's KYC record, creating it with defaults when
// none exists. The second return value is true when a new record was
// created. On the existing-record path a step that fell out of sync with the
// documents is corrected to review.
func (s *KYCService) CreateOrGet(ctx context.Context, userID uuid.UUID) (*models.KYCRecord, bool, error) {
	if _, err := s.users.FindByID(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, false, ErrUserNotFound
		}
		return nil, false, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	record, err := s.records.FindByUserID(ctx, userID)
	if err == nil {
		if record.DocumentsComplete() && record.Status == models.KYCStatusPending && record.Step != models.StepReview {
			if err := s.records.Update(ctx, record.ID, map[string]interface{}{
				"step": models.StepReview,
			}); err != nil {
				return nil, false, fmt.Errorf("%w: %v", ErrUpstream, err)
			}
			record.Step = models.StepReview
		}
		return record, false, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, false, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	record = &models.KYCRecord{
		ID:     uuid.New(),
		UserID: userID,
		Status: models.KYCStatusPending,
		Step:   models.StepStart,
	}
	if err := s.records.Create(ctx, record); err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	return record, true, nil
}

// UploadDocument stores a document blob and advances the pipeline step tied
// to its kind. Uploading to a slot that already holds a reference is a
// successful no-op; the stored reference is never overwritten.
func (s *KYCService) UploadDocument(ctx context.Context, userID uuid.UUID, kind models.DocumentKind, blob []byte) (*models.KYCRecord, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: unknown document kind %q", ErrInvalidArgument, kind)
	}
	if len(blob) == 0 {
		return nil, fmt.Errorf("%w: empty document payload", ErrInvalidArgument)
	}

	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	record, err := s.records.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	if record.Document(kind) != "" {
		return record, nil
	}

	uploadCtx, cancel := context.WithTimeout(ctx, uploadTimeout)
	defer cancel()
	ref, err := s.uploader.Upload(uploadCtx, blob, userID.String(), string(kind))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	// Slot and step land in one partial update so a cancelled caller can
	// never leave the step advanced without the slot write or vice versa.
	step := stepAfterUpload(kind)
	writeCtx := context.WithoutCancel(ctx)
	if err := s.records.Update(writeCtx, record.ID, map[string]interface{}{
		columnForDocument(kind): ref,
		"step":                  step,
	}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	record.SetDocument(kind, ref)
	record.Step = step
	return record, nil
}

// VerifyResult is the outcome of a VerifyDocuments call. Incomplete
// submissions are a normal outcome, not an error.
type VerifyResult struct {
	Complete bool
	Missing  []models.DocumentKind
	Record   *models.KYCRecord
}

// VerifyDocuments checks whether every required document is present. When
// they are, the step is forced to review and the in-review notification is
// dispatched once under the latch discipline: the sent flag turns true only
// after the mail server accepts the recipient, so a failed send is retried
// on the next call.
func (s *KYCService) VerifyDocuments(ctx context.Context, userID uuid.UUID) (*VerifyResult, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	record, err := s.records.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	if !record.DocumentsComplete() {
		return &VerifyResult{Complete: false, Missing: record.MissingDocuments(), Record: record}, nil
	}

	if record.Step != models.StepReview {
		if err := s.records.Update(ctx, record.ID, map[string]interface{}{
			"step": models.StepReview,
		}); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
		}
		record.Step = models.StepReview
	}

	if record.Status == models.KYCStatusPending && !record.DocumentsInReviewSent {
		body := "Your KYC documents have been uploaded successfully, and are now under review. " +
			"You will be notified once the verification is complete."
		if s.dispatchNotification(ctx, record, user.Email, "KYC Verification", body, "documents_in_review_sent") {
			record.DocumentsInReviewSent = true
		}
	}

	return &VerifyResult{Complete: true, Record: record}, nil
}

// Decide applies an administrative decision to a record. Approval completes
// the pipeline; rejection records the reason, resets the step to start and
// clears the document slots so the user can resubmit. The status change is
// saved durably before the notification is attempted; a failed send only
// leaves the matching flag unlatched.
func (s *KYCService) Decide(ctx context.Context, recordID uuid.UUID, decision models.KYCStatus, rejectionReason string) (*models.KYCRecord, error) {
	if decision != models.KYCStatusApproved && decision != models.KYCStatusRejected {
		return nil, fmt.Errorf("%w: unknown decision %q", ErrInvalidArgument, decision)
	}
	if decision == models.KYCStatusRejected && rejectionReason == "" {
		log.Printf("KYC record %s rejected without a rejection reason", recordID)
	}

	record, err := s.records.FindByID(ctx, recordID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	if record.Status == models.KYCStatusApproved {
		return nil, ErrAlreadyDecided
	}

	user, err := s.users.FindByID(ctx, record.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	fields := map[string]interface{}{"status": decision}
	switch decision {
	case models.KYCStatusApproved:
		fields["step"] = models.StepComplete
		// A record approved after an earlier rejection must not keep
		// carrying the stale reason.
		fields["rejection_reason"] = ""
	case models.KYCStatusRejected:
		fields["step"] = models.StepStart
		fields["rejection_reason"] = rejectionReason
		for _, kind := range models.RequiredDocuments {
			fields[columnForDocument(kind)] = ""
		}
	}

	writeCtx := context.WithoutCancel(ctx)
	if err := s.records.Update(writeCtx, record.ID, fields); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	record.Status = decision
	if decision == models.KYCStatusApproved {
		record.Step = models.StepComplete
		record.RejectionReason = ""
	} else {
		record.Step = models.StepStart
		record.RejectionReason = rejectionReason
		for _, kind := range models.RequiredDocuments {
			record.SetDocument(kind, "")
		}
	}

	switch decision {
	case models.KYCStatusApproved:
		if !record.DocumentsVerifiedSent {
			body := "Your KYC documents have been verified and your account is now fully activated."
			if s.dispatchNotification(ctx, record, user.Email, "KYC Approved", body, "documents_verified_sent") {
				record.DocumentsVerifiedSent = true
			}
		}
	case models.KYCStatusRejected:
		if !record.DocumentsRejectedSent {
			body := "Your KYC documents were rejected. Reason: " + rejectionReason +
				". Please resubmit your documents to continue."
			if s.dispatchNotification(ctx, record, user.Email, "KYC Rejected", body, "documents_rejected_sent") {
				record.DocumentsRejectedSent = true
			}
		}
	}

	return record, nil
}

// dispatchNotification sends one transactional mail and latches the given
// flag column when the recipient is confirmed accepted. Send failures are
// logged and swallowed: the state transition has already been saved and a
// later call retries the send while the flag is still false.
func (s *KYCService) dispatchNotification(ctx context.Context, record *models.KYCRecord, to, subject, body, flagColumn string) bool {
	mailCtx, cancel := context.WithTimeout(ctx, mailTimeout)
	defer cancel()

	result, err := s.sender.Send(mailCtx, to, subject, body)
	if err != nil {
		log.Printf("Failed to send %s notification for KYC record %s: %v", flagColumn, record.ID, err)
		return false
	}
	if !result.Confirmed() {
		log.Printf("Notification for KYC record %s not confirmed (rejected recipients: %v)", record.ID, result.Rejected)
		return false
	}

	if err := s.records.Update(context.WithoutCancel(ctx), record.ID, map[string]interface{}{
		flagColumn: true,
	}); err != nil {
		log.Printf("Failed to latch %s for KYC record %s: %v", flagColumn, record.ID, err)
		return false
	}
	return true
}

// ListRecords returns one page of KYC records through the listing cache.
// While the cache entry is warm every caller receives the cached payload,
// whatever page it asked for; the entry expires 60 seconds after being
// populated. Owner back-references are stripped before the payload is
// cached so the serialized output has no cycle.
func (s *KYCService) ListRecords(ctx context.Context, page, pageSize int) (*models.KYCRecordPage, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 10
	}

	if cached, ok := s.listing.Get(ctx); ok {
		return cached, nil
	}

	offset := (page - 1) * pageSize
	records, total, err := s.records.FindPage(ctx, offset, pageSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	for i := range records {
		if records[i].User != nil {
			records[i].User.KYC = nil
		}
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	payload := &models.KYCRecordPage{
		Records:      records,
		CurrentPage:  page,
		TotalPages:   totalPages,
		TotalRecords: total,
	}
	s.listing.Set(ctx, payload)
	return payload, nil
}

// columnForDocument maps a document kind to its storage column.
func columnForDocument(kind models.DocumentKind) string {
	switch kind {
	case models.DocumentInternationalPassport:
		return "international_passport"
	case models.DocumentSchoolID:
		return "school_id"
	case models.DocumentSelfie:
		return "selfie"
	}
	return ""
}

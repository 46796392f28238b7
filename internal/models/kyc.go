package models

import (
	"time"

	"github.com/google/uuid"
)

// KYCStatus represents the status of a user's KYC verification
type KYCStatus string

const (
	KYCStatusPending  KYCStatus = "pending"
	KYCStatusApproved KYCStatus = "approved"
	KYCStatusRejected KYCStatus = "rejected"
)

// KYCStep represents the position of a record in the document-submission
// pipeline. Steps only move forward, except rejection which resets to start.
type KYCStep string

const (
	StepStart                       KYCStep = "start"
	StepSubmitInternationalPassport KYCStep = "submit_international_passport"
	StepSubmitSchoolID              KYCStep = "submit_school_id"
	StepSubmitSelfie                KYCStep = "submit_selfie"
	StepReview                      KYCStep = "review"
	StepComplete                    KYCStep = "complete"
)

// DocumentKind identifies one of the document slots on a KYC record.
type DocumentKind string

const (
	DocumentInternationalPassport DocumentKind = "international_passport"
	DocumentSchoolID              DocumentKind = "school_id"
	DocumentSelfie                DocumentKind = "selfie"
)

// RequiredDocuments are the slots that must be filled before a record can
// enter review. The russian passport slot is reserved for some deployments
// and not part of the happy path.
var RequiredDocuments = []DocumentKind{
	DocumentInternationalPassport,
	DocumentSchoolID,
	DocumentSelfie,
}

// Valid reports whether k names a known document slot.
func (k DocumentKind) Valid() bool {
	switch k {
	case DocumentInternationalPassport, DocumentSchoolID, DocumentSelfie:
		return true
	}
	return false
}

// KYCRecord represents a user's KYC verification record. At most one record
// ever exists per user.
type KYCRecord struct {
	ID     uuid.UUID `gorm:"type:uuid;primary_key;default:uuid_generate_v4()" json:"id"`
	UserID uuid.UUID `gorm:"type:uuid;uniqueIndex;not null" json:"user_id"`
	User   *User     `gorm:"foreignKey:UserID" json:"user,omitempty"`

	// Document slots hold a durable storage reference once uploaded; the
	// empty string means the slot is unset.
	InternationalPassport string `gorm:"type:text" json:"international_passport"`
	RussianPassport       string `gorm:"type:text" json:"russian_passport"`
	SchoolID              string `gorm:"type:text" json:"school_id"`
	Selfie                string `gorm:"type:text" json:"selfie"`

	Status          KYCStatus `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
	RejectionReason string    `gorm:"type:text" json:"rejection_reason,omitempty"`
	Step            KYCStep   `gorm:"type:varchar(40);not null;default:'start'" json:"step"`

	// Notification flags latch false -> true only after the mail sender
	// confirms acceptance for the matching event. They are never reset.
	DocumentsInReviewSent bool `gorm:"not null;default:false" json:"documents_in_review_sent"`
	DocumentsVerifiedSent bool `gorm:"not null;default:false" json:"documents_verified_sent"`
	DocumentsRejectedSent bool `gorm:"not null;default:false" json:"documents_rejected_sent"`

	CreatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// KYCRecordPage is one page of the admin KYC listing.
type KYCRecordPage struct {
	Records      []KYCRecord `json:"records"`
	CurrentPage  int         `json:"current_page"`
	TotalPages   int         `json:"total_pages"`
	TotalRecords int64       `json:"total_records"`
}

// Document returns the stored reference for the given slot.
func (r *KYCRecord) Document(kind DocumentKind) string {
	switch kind {
	case DocumentInternationalPassport:
		return r.InternationalPassport
	case DocumentSchoolID:
		return r.SchoolID
	case DocumentSelfie:
		return r.Selfie
	}
	return ""
}

// SetDocument stores a reference into the given slot.
func (r *KYCRecord) SetDocument(kind DocumentKind, ref string) {
	switch kind {
	case DocumentInternationalPassport:
		r.InternationalPassport = ref
	case DocumentSchoolID:
		r.SchoolID = ref
	case DocumentSelfie:
		r.Selfie = ref
	}
}

// DocumentsComplete reports whether every required slot is filled.
func (r *KYCRecord) DocumentsComplete() bool {
	for _, kind := range RequiredDocuments {
		if r.Document(kind) == "" {
			return false
		}
	}
	return true
}

// MissingDocuments lists the required slots that are still empty.
func (r *KYCRecord) MissingDocuments() []DocumentKind {
	var missing []DocumentKind
	for _, kind := range RequiredDocuments {
		if r.Document(kind) == "" {
			missing = append(missing, kind)
		}
	}
	return missing
}

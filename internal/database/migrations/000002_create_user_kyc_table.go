package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

// CreateUserKYCTable creates the KYC records table
func CreateUserKYCTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000002_create_user_kyc_table",
		Migrate: func(tx *gorm.DB) error {
			return tx.Exec(`
				CREATE TABLE IF NOT EXISTS kyc_records (
					id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
					user_id UUID NOT NULL UNIQUE REFERENCES users(id),
					international_passport TEXT,
					russian_passport TEXT,
					school_id TEXT,
					selfie TEXT,
					status VARCHAR(20) NOT NULL DEFAULT 'pending',
					rejection_reason TEXT,
					step VARCHAR(40) NOT NULL DEFAULT 'start',
					documents_in_review_sent BOOLEAN NOT NULL DEFAULT FALSE,
					documents_verified_sent BOOLEAN NOT NULL DEFAULT FALSE,
					documents_rejected_sent BOOLEAN NOT NULL DEFAULT FALSE,
					created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
					updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
				);

				CREATE INDEX IF NOT EXISTS idx_kyc_records_user_id ON kyc_records(user_id);
				CREATE INDEX IF NOT EXISTS idx_kyc_records_status ON kyc_records(status);
			`).Error
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Exec(`DROP TABLE IF EXISTS kyc_records;`).Error
		},
	}
}

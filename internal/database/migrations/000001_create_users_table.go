package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

// CreateUsersTable creates the users table
func CreateUsersTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000001_create_users_table",
		Migrate: func(tx *gorm.DB) error {
			return tx.Exec(`
				CREATE EXTENSION IF NOT EXISTS "uuid-ossp";

				CREATE TABLE IF NOT EXISTS users (
					id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
					first_name VARCHAR(100),
					middle_name VARCHAR(100),
					last_name VARCHAR(100),
					email VARCHAR(255) NOT NULL UNIQUE,
					phone VARCHAR(20),
					profile_picture TEXT,
					role VARCHAR(20) DEFAULT 'customer',
					last_login_at TIMESTAMP WITH TIME ZONE,
					created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
					updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
				);

				CREATE INDEX IF NOT EXISTS idx_users_email ON users(email);
			`).Error
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Exec(`DROP TABLE IF EXISTS users;`).Error
		},
	}
}

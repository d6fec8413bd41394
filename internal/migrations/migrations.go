package migrations

import (
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Run creates the schema for the SQL stores. The statements stay within the
// subset SQLite and PostgreSQL both accept.
func Run(db *sqlx.DB) error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS accounts (
            id TEXT PRIMARY KEY,
            name TEXT NOT NULL,
            email TEXT NOT NULL UNIQUE,
            password_hash TEXT NOT NULL,
            role TEXT NOT NULL,
            phone TEXT NOT NULL DEFAULT '',
            address TEXT NOT NULL DEFAULT '',
            city TEXT NOT NULL DEFAULT '',
            zipcode TEXT NOT NULL DEFAULT '',
            city_key TEXT NOT NULL DEFAULT '',
            zipcode_key TEXT NOT NULL DEFAULT '',
            low_stock_threshold INTEGER,
            created_at TIMESTAMP NOT NULL
        );`,
		`CREATE INDEX IF NOT EXISTS idx_accounts_city_key ON accounts (city_key);`,
		`CREATE INDEX IF NOT EXISTS idx_accounts_zipcode_key ON accounts (zipcode_key);`,
		`CREATE TABLE IF NOT EXISTS blood_stock (
            id TEXT PRIMARY KEY,
            blood_bank_id TEXT NOT NULL REFERENCES accounts(id),
            blood_group TEXT NOT NULL,
            quantity INTEGER NOT NULL CHECK (quantity > 0),
            expiry_date TIMESTAMP NOT NULL,
            created_at TIMESTAMP NOT NULL,
            updated_at TIMESTAMP NOT NULL
        );`,
		`CREATE INDEX IF NOT EXISTS idx_blood_stock_bank_group ON blood_stock (blood_bank_id, blood_group, expiry_date);`,
		`CREATE TABLE IF NOT EXISTS emergency_requests (
            id TEXT PRIMARY KEY,
            created_by TEXT NOT NULL REFERENCES accounts(id),
            patient_name TEXT NOT NULL,
            hospital_name TEXT NOT NULL,
            blood_group TEXT NOT NULL,
            units_required INTEGER NOT NULL CHECK (units_required > 0),
            urgency TEXT NOT NULL DEFAULT 'Normal',
            time_needed TEXT NOT NULL,
            address TEXT NOT NULL,
            city TEXT NOT NULL,
            zipcode TEXT NOT NULL,
            city_key TEXT NOT NULL,
            zipcode_key TEXT NOT NULL,
            contact_number TEXT NOT NULL,
            status TEXT NOT NULL DEFAULT 'Active',
            fulfilled_by TEXT NOT NULL DEFAULT '',
            expire_at TIMESTAMP NOT NULL,
            version INTEGER NOT NULL DEFAULT 1,
            created_at TIMESTAMP NOT NULL,
            updated_at TIMESTAMP NOT NULL
        );`,
		`CREATE INDEX IF NOT EXISTS idx_emergency_requests_status ON emergency_requests (status, city_key, zipcode_key);`,
		`CREATE INDEX IF NOT EXISTS idx_emergency_requests_expire_at ON emergency_requests (expire_at);`,
		`CREATE INDEX IF NOT EXISTS idx_emergency_requests_created_by ON emergency_requests (created_by);`,
		`CREATE TABLE IF NOT EXISTS donations (
            id TEXT PRIMARY KEY,
            donor_id TEXT NOT NULL REFERENCES accounts(id),
            blood_bank_id TEXT NOT NULL REFERENCES accounts(id),
            blood_group TEXT NOT NULL,
            quantity INTEGER NOT NULL,
            request_id TEXT NOT NULL DEFAULT '',
            donation_date TIMESTAMP NOT NULL,
            created_at TIMESTAMP NOT NULL
        );`,
		`CREATE INDEX IF NOT EXISTS idx_donations_bank ON donations (blood_bank_id, donation_date);`,
		`CREATE TABLE IF NOT EXISTS notifications (
            id TEXT PRIMARY KEY,
            user_id TEXT NOT NULL REFERENCES accounts(id),
            message TEXT NOT NULL,
            is_read BOOLEAN NOT NULL DEFAULT FALSE,
            link TEXT NOT NULL DEFAULT '',
            created_at TIMESTAMP NOT NULL
        );`,
		`CREATE INDEX IF NOT EXISTS idx_notifications_user ON notifications (user_id, is_read, created_at);`,
	}

	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

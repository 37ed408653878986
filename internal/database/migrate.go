package database

import (
	"context"
	"database/sql"
)

// Schema for the booking engine.  Hold state lives directly on the slot
// row so every status transition is a single conditional UPDATE; the
// unique key on (session_date_id, starts_at, position) backs idempotent
// slot generation.  Statements are individually idempotent.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS mini_sessions (
		id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		owner_uid VARCHAR(128) NOT NULL,
		name VARCHAR(255) NOT NULL,
		description TEXT,
		duration_minutes INT UNSIGNED NOT NULL,
		buffer_minutes INT UNSIGNED NOT NULL DEFAULT 0,
		price_cents INT UNSIGNED NOT NULL DEFAULT 0,
		deposit_cents INT UNSIGNED NOT NULL DEFAULT 0,
		capacity_per_slot INT UNSIGNED NOT NULL DEFAULT 1,
		hold_ttl_minutes INT UNSIGNED NOT NULL DEFAULT 0,
		allow_waitlist BOOLEAN NOT NULL DEFAULT FALSE,
		auto_confirm BOOLEAN NOT NULL DEFAULT FALSE,
		published BOOLEAN NOT NULL DEFAULT FALSE,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		KEY idx_mini_sessions_owner (owner_uid)
	) ENGINE=InnoDB`,

	`CREATE TABLE IF NOT EXISTS session_dates (
		id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		session_id BIGINT UNSIGNED NOT NULL,
		date CHAR(10) NOT NULL,
		starts_at DATETIME NOT NULL,
		ends_at DATETIME NOT NULL,
		location VARCHAR(255) NOT NULL DEFAULT '',
		location_notes TEXT,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		KEY idx_session_dates_session (session_id),
		CONSTRAINT fk_session_dates_session FOREIGN KEY (session_id)
			REFERENCES mini_sessions (id) ON DELETE CASCADE
	) ENGINE=InnoDB`,

	`CREATE TABLE IF NOT EXISTS slots (
		id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		session_date_id BIGINT UNSIGNED NOT NULL,
		starts_at DATETIME NOT NULL,
		ends_at DATETIME NOT NULL,
		position INT UNSIGNED NOT NULL DEFAULT 0,
		status ENUM('AVAILABLE','HELD','BOOKED') NOT NULL DEFAULT 'AVAILABLE',
		held_until DATETIME NULL,
		held_by VARCHAR(255) NULL,
		hold_token CHAR(36) NULL,
		booking_id BIGINT UNSIGNED NULL,
		version INT UNSIGNED NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		UNIQUE KEY uq_slots_interval (session_date_id, starts_at, position),
		KEY idx_slots_expiry (status, held_until),
		CONSTRAINT fk_slots_date FOREIGN KEY (session_date_id)
			REFERENCES session_dates (id) ON DELETE CASCADE
	) ENGINE=InnoDB`,

	`CREATE TABLE IF NOT EXISTS bookings (
		id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		slot_id BIGINT UNSIGNED NOT NULL,
		session_id BIGINT UNSIGNED NOT NULL,
		reference CHAR(36) NOT NULL,
		contact_email VARCHAR(255) NOT NULL,
		contact_name VARCHAR(255) NOT NULL DEFAULT '',
		status ENUM('CONFIRMED','CANCELLED') NOT NULL DEFAULT 'CONFIRMED',
		payment_ref VARCHAR(255) NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		UNIQUE KEY uq_bookings_reference (reference),
		KEY idx_bookings_slot (slot_id),
		KEY idx_bookings_session (session_id)
	) ENGINE=InnoDB`,

	`CREATE TABLE IF NOT EXISTS waitlist_entries (
		id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		session_id BIGINT UNSIGNED NOT NULL,
		session_date_id BIGINT UNSIGNED NULL,
		contact_email VARCHAR(255) NOT NULL,
		contact_name VARCHAR(255) NOT NULL DEFAULT '',
		preferred_times JSON NULL,
		status ENUM('WAITING','NOTIFIED','CONVERTED','EXPIRED') NOT NULL DEFAULT 'WAITING',
		notified_at DATETIME NULL,
		notified_slot_id BIGINT UNSIGNED NULL,
		converted_booking_id BIGINT UNSIGNED NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		KEY idx_waitlist_fifo (session_id, status, created_at, id),
		KEY idx_waitlist_slot (notified_slot_id, status)
	) ENGINE=InnoDB`,
}

// Migrate creates the schema when it does not exist yet.  Statements run
// one by one because the MySQL driver executes single statements only.
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

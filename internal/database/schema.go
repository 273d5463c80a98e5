package database

import (
	"context"
	"database/sql"
	"fmt"
)

// schema creates every table the booking service writes to.  The
// generated active_seat_id columns are NULL for inactive rows, so the
// unique indexes on them allow at most one open check-in and one active
// rod tag per seat while keeping the full history.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS ponds (
		id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		name VARCHAR(120) NOT NULL,
		capacity INT NOT NULL DEFAULT 0,
		shape ENUM('rectangle','square','circle') NOT NULL DEFAULT 'rectangle',
		seat_top INT NOT NULL DEFAULT 0,
		seat_right INT NOT NULL DEFAULT 0,
		seat_bottom INT NOT NULL DEFAULT 0,
		seat_left INT NOT NULL DEFAULT 0,
		booking_enabled TINYINT(1) NOT NULL DEFAULT 1,
		price_per_seat DECIMAL(10,2) NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS time_slots (
		id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		label VARCHAR(60) NOT NULL,
		time_range VARCHAR(40) NOT NULL
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS events (
		id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		name VARCHAR(160) NOT NULL,
		event_date DATE NOT NULL,
		start_minute INT NOT NULL,
		end_minute INT NOT NULL,
		max_participants INT NOT NULL,
		booking_opens_at DATETIME NOT NULL,
		status ENUM('upcoming','open','closed','completed') NOT NULL DEFAULT 'upcoming',
		entry_fee DECIMAL(10,2) NOT NULL DEFAULT 0
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS event_ponds (
		event_id BIGINT UNSIGNED NOT NULL,
		pond_id BIGINT UNSIGNED NOT NULL,
		PRIMARY KEY (event_id, pond_id),
		CONSTRAINT fk_event_ponds_event FOREIGN KEY (event_id) REFERENCES events(id) ON DELETE CASCADE,
		CONSTRAINT fk_event_ponds_pond FOREIGN KEY (pond_id) REFERENCES ponds(id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS bookings (
		id CHAR(36) NOT NULL PRIMARY KEY,
		booking_type ENUM('pond','event') NOT NULL,
		pond_id BIGINT UNSIGNED NOT NULL,
		event_id BIGINT UNSIGNED NULL,
		booking_date DATE NOT NULL,
		time_slot_id BIGINT UNSIGNED NULL,
		total_price DECIMAL(10,2) NOT NULL DEFAULT 0,
		owner_id VARCHAR(64) NOT NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		KEY idx_bookings_pond_day (pond_id, booking_date),
		KEY idx_bookings_event (event_id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS booking_seats (
		id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		booking_id CHAR(36) NOT NULL,
		seat_number INT NOT NULL,
		assigned_identity VARCHAR(64) NULL,
		assigned_by VARCHAR(64) NULL,
		assigned_at DATETIME NULL,
		credential VARCHAR(512) NOT NULL,
		status ENUM('unassigned','assigned','checked-in','checked-out','no-show') NOT NULL DEFAULT 'unassigned',
		checked_in_at DATETIME NULL,
		checked_out_at DATETIME NULL,
		UNIQUE KEY uq_booking_seat (booking_id, seat_number),
		UNIQUE KEY uq_seat_credential (credential),
		CONSTRAINT fk_booking_seats_booking FOREIGN KEY (booking_id) REFERENCES bookings(id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS check_ins (
		id CHAR(36) NOT NULL PRIMARY KEY,
		booking_id CHAR(36) NOT NULL,
		seat_id BIGINT UNSIGNED NOT NULL,
		seat_number INT NOT NULL,
		check_in_time DATETIME NOT NULL,
		check_out_time DATETIME NULL,
		status ENUM('checked-in','checked-out','no-show','voided') NOT NULL,
		scanned_by VARCHAR(64) NOT NULL,
		checked_out_by VARCHAR(64) NULL,
		notes TEXT NULL,
		active_seat_id BIGINT UNSIGNED AS (IF(status = 'checked-in', seat_id, NULL)) STORED,
		UNIQUE KEY uq_check_ins_active (active_seat_id),
		KEY idx_check_ins_booking (booking_id),
		KEY idx_check_ins_seat (seat_id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS rod_tags (
		id CHAR(36) NOT NULL PRIMARY KEY,
		credential VARCHAR(512) NOT NULL,
		version INT NOT NULL,
		seat_id BIGINT UNSIGNED NOT NULL,
		booking_id CHAR(36) NOT NULL,
		station_id VARCHAR(64) NOT NULL,
		issued_by VARCHAR(64) NOT NULL,
		active TINYINT(1) NOT NULL DEFAULT 1,
		issued_at DATETIME NOT NULL,
		deactivated_at DATETIME NULL,
		active_seat_id BIGINT UNSIGNED AS (IF(active = 1, seat_id, NULL)) STORED,
		UNIQUE KEY uq_rod_credential (credential),
		UNIQUE KEY uq_rod_active (active_seat_id),
		UNIQUE KEY uq_rod_version (seat_id, version)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// Migrate creates missing tables.  Statements are idempotent and run in
// dependency order.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate step %d: %w", i+1, err)
		}
	}
	return nil
}

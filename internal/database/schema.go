package database

import (
	"context"
	"database/sql"
	"fmt"
)

// schema lists the statements applied by Migrate.  Each is idempotent.
//
// seat_claims holds one row per exclusively held seat or VIP table; its
// primary key is what makes two bookings for the same seat impossible.
// bookings.payment_ref carries a unique key for the same reason on payment
// references (NULLs do not collide in MySQL unique indexes).  Both columns,
// and table_assignment, use utf8mb4_bin: seat ids and payment references are
// compared byte for byte, so "A1" and "a1" are different seats.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS bookings (
		id               CHAR(36)      NOT NULL,
		purchaser_name   VARCHAR(255)  NOT NULL DEFAULT '',
		purchaser_email  VARCHAR(255)  NOT NULL,
		price            DECIMAL(12,2) NOT NULL DEFAULT 0,
		payment_ref      VARCHAR(191)  CHARACTER SET utf8mb4 COLLATE utf8mb4_bin NULL,
		exclusive_seats  JSON          NOT NULL,
		table_assignment VARCHAR(64)   CHARACTER SET utf8mb4 COLLATE utf8mb4_bin NULL,
		front_row_count  INT UNSIGNED  NOT NULL DEFAULT 0,
		general_count    INT UNSIGNED  NOT NULL DEFAULT 0,
		channel          ENUM('PUBLIC','ADMIN') NOT NULL DEFAULT 'PUBLIC',
		credential       MEDIUMBLOB    NOT NULL,
		redeemed         TINYINT(1)    NOT NULL DEFAULT 0,
		redeemed_at      DATETIME(6)   NULL,
		created_at       DATETIME(6)   NOT NULL,
		PRIMARY KEY (id),
		UNIQUE KEY uq_bookings_payment_ref (payment_ref),
		KEY idx_bookings_email_created (purchaser_email, created_at)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS seat_claims (
		resource_id VARCHAR(64) CHARACTER SET utf8mb4 COLLATE utf8mb4_bin NOT NULL,
		booking_id  CHAR(36)    NOT NULL,
		kind        ENUM('SEAT','TABLE') NOT NULL,
		created_at  DATETIME(6) NOT NULL,
		PRIMARY KEY (resource_id),
		KEY idx_seat_claims_booking (booking_id),
		CONSTRAINT fk_seat_claims_booking FOREIGN KEY (booking_id)
			REFERENCES bookings (id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS users (
		id         BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
		email      VARCHAR(255)    NOT NULL,
		name       VARCHAR(255)    NOT NULL DEFAULT '',
		created_at DATETIME(6)     NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
		PRIMARY KEY (id),
		UNIQUE KEY uq_users_email (email)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	// tables created before the columns were pinned to a binary collation
	`ALTER TABLE seat_claims
		MODIFY resource_id VARCHAR(64) CHARACTER SET utf8mb4 COLLATE utf8mb4_bin NOT NULL`,
	`ALTER TABLE bookings
		MODIFY payment_ref VARCHAR(191) CHARACTER SET utf8mb4 COLLATE utf8mb4_bin NULL,
		MODIFY table_assignment VARCHAR(64) CHARACTER SET utf8mb4 COLLATE utf8mb4_bin NULL`,
}

// Migrate creates the tables the service needs when they do not exist yet.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate step %d: %w", i+1, err)
		}
	}
	return nil
}

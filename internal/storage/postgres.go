package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/fau-events/internal/config"
)

type Database struct {
	*sqlx.DB
}

func NewDatabase(cfg *config.DatabaseConfig) (*Database, error) {
	db, err := sqlx.Connect("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(time.Hour)

	return &Database{DB: db}, nil
}

func (d *Database) Ping(ctx context.Context) error {
	return d.DB.PingContext(ctx)
}

func (d *Database) Close() error {
	return d.DB.Close()
}

// InTx runs fn inside a transaction, committing when fn returns nil.
func (d *Database) InTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := d.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (d *Database) RunMigrations() error {
	migrations := []string{
		`CREATE EXTENSION IF NOT EXISTS pgcrypto`,
		`CREATE TABLE IF NOT EXISTS users (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			username VARCHAR(255) UNIQUE NOT NULL,
			password_hash VARCHAR(255) NOT NULL,
			name VARCHAR(100) NOT NULL,
			role VARCHAR(20) NOT NULL DEFAULT 'user' CHECK (role IN ('admin', 'member', 'user')),
			created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS events (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			title VARCHAR(200) NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			date DATE NOT NULL,
			time VARCHAR(5) NOT NULL,
			location VARCHAR(200) NOT NULL,
			custom_location VARCHAR(200),
			max_attendees INTEGER CHECK (max_attendees IS NULL OR max_attendees > 0),
			current_attendees INTEGER NOT NULL DEFAULT 0 CHECK (current_attendees >= 0),
			type VARCHAR(20) NOT NULL DEFAULT 'event'
				CHECK (type IN ('meeting', 'event', 'volunteer', 'photo', 'other')),
			status VARCHAR(20) NOT NULL DEFAULT 'active' CHECK (status IN ('active', 'cancelled')),
			created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS event_registrations (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			event_id UUID NOT NULL REFERENCES events(id) ON DELETE RESTRICT,
			name VARCHAR(200) NOT NULL,
			email VARCHAR(255) NOT NULL,
			phone VARCHAR(50),
			attendee_count INTEGER NOT NULL DEFAULT 1 CHECK (attendee_count BETWEEN 1 AND 10),
			comments TEXT,
			language VARCHAR(2) NOT NULL DEFAULT 'no' CHECK (language IN ('no', 'en')),
			children_names JSONB NOT NULL DEFAULT '[]',
			time_slots JSONB NOT NULL DEFAULT '[]',
			created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS contact_messages (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			name VARCHAR(200) NOT NULL,
			email VARCHAR(255) NOT NULL,
			subject VARCHAR(200) NOT NULL DEFAULT '',
			message TEXT NOT NULL,
			status VARCHAR(20) NOT NULL DEFAULT 'new' CHECK (status IN ('new', 'responded', 'archived')),
			created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS reminder_log (
			event_id UUID NOT NULL REFERENCES events(id) ON DELETE CASCADE,
			event_date DATE NOT NULL,
			sent_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (event_id, event_date)
		)`,
		`CREATE TABLE IF NOT EXISTS notification_log (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			kind VARCHAR(20) NOT NULL,
			event_id UUID,
			registration_id UUID,
			recipient VARCHAR(255) NOT NULL,
			status VARCHAR(20) NOT NULL,
			error TEXT,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_registrations_event_email
		 ON event_registrations(event_id, lower(email))`,
		`CREATE INDEX IF NOT EXISTS idx_registrations_event ON event_registrations(event_id, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_events_date ON events(date, time)`,
		`CREATE INDEX IF NOT EXISTS idx_events_status ON events(status)`,
		`CREATE INDEX IF NOT EXISTS idx_contact_status ON contact_messages(status)`,
		`CREATE INDEX IF NOT EXISTS idx_reminder_log_date ON reminder_log(event_date)`,
		`CREATE INDEX IF NOT EXISTS idx_notification_log_created ON notification_log(created_at)`,
	}

	for _, migration := range migrations {
		if _, err := d.Exec(migration); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && string(pqErr.Code) == pgerrcode.UniqueViolation
}

func isForeignKeyViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && string(pqErr.Code) == pgerrcode.ForeignKeyViolation
}

// isInvalidInput catches malformed ids such as a non-UUID path parameter.
func isInvalidInput(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && string(pqErr.Code) == pgerrcode.InvalidTextRepresentation
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/fau-events/internal/model"
)

// ReminderRepository persists which (event, date) pairs already had their
// reminders sent.
type ReminderRepository struct {
	db *Database
}

func NewReminderRepository(db *Database) *ReminderRepository {
	return &ReminderRepository{db: db}
}

// Claim records the marker for eventID on date. It returns true only for
// the caller that inserted it, so reminders go out once even across
// overlapping ticks or several instances.
func (r *ReminderRepository) Claim(ctx context.Context, eventID string, date time.Time) (bool, error) {
	query := `
		INSERT INTO reminder_log (event_id, event_date)
		VALUES ($1, $2::date)
		ON CONFLICT (event_id, event_date) DO NOTHING
	`
	result, err := r.db.ExecContext(ctx, query, eventID, date.Format(model.DateLayout))
	if err != nil {
		return false, fmt.Errorf("failed to claim reminder: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to claim reminder: %w", err)
	}
	return n == 1, nil
}

// Release removes a claim so a later tick can retry, used when the
// registrant list could not be loaded.
func (r *ReminderRepository) Release(ctx context.Context, eventID string, date time.Time) error {
	query := `DELETE FROM reminder_log WHERE event_id = $1 AND event_date = $2::date`
	_, err := r.db.ExecContext(ctx, query, eventID, date.Format(model.DateLayout))
	if err != nil {
		return fmt.Errorf("failed to release reminder: %w", err)
	}
	return nil
}

// Exists reports whether a marker is present.
func (r *ReminderRepository) Exists(ctx context.Context, eventID string, date time.Time) (bool, error) {
	var count int
	query := `SELECT COUNT(*) FROM reminder_log WHERE event_id = $1 AND event_date = $2::date`
	err := r.db.GetContext(ctx, &count, query, eventID, date.Format(model.DateLayout))
	if err != nil {
		return false, fmt.Errorf("failed to check reminder: %w", err)
	}
	return count > 0, nil
}

// PruneBefore removes markers for event dates before cutoff.
func (r *ReminderRepository) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM reminder_log WHERE event_date < $1::date`
	result, err := r.db.ExecContext(ctx, query, cutoff.Format(model.DateLayout))
	if err != nil {
		return 0, fmt.Errorf("failed to prune reminders: %w", err)
	}
	return result.RowsAffected()
}

package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/fau-events/internal/model"
)

const notificationColumns = `id, kind, COALESCE(event_id::text, '') AS event_id,
	COALESCE(registration_id::text, '') AS registration_id, recipient, status, error, created_at`

type NotificationRepository struct {
	db *Database
}

func NewNotificationRepository(db *Database) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Record stores one delivery attempt.
func (r *NotificationRepository) Record(ctx context.Context, rec *model.NotificationRecord) error {
	query := `
		INSERT INTO notification_log (kind, event_id, registration_id, recipient, status, error)
		VALUES ($1, NULLIF($2, '')::uuid, NULLIF($3, '')::uuid, $4, $5, $6)
	`
	_, err := r.db.ExecContext(ctx, query,
		rec.Kind, rec.EventID, rec.RegistrationID, rec.Recipient, rec.Status, rec.Error)
	if err != nil {
		return fmt.Errorf("failed to record notification: %w", err)
	}
	return nil
}

func (r *NotificationRepository) FindRecent(ctx context.Context, limit int) ([]model.NotificationRecord, error) {
	records := []model.NotificationRecord{}
	query := `SELECT ` + notificationColumns + ` FROM notification_log ORDER BY created_at DESC LIMIT $1`
	if err := r.db.SelectContext(ctx, &records, query, limit); err != nil {
		return nil, fmt.Errorf("failed to find recent notifications: %w", err)
	}
	return records, nil
}

func (r *NotificationRepository) FindByEvent(ctx context.Context, eventID string) ([]model.NotificationRecord, error) {
	records := []model.NotificationRecord{}
	query := `SELECT ` + notificationColumns + ` FROM notification_log
		WHERE event_id = $1 ORDER BY created_at DESC`
	if err := r.db.SelectContext(ctx, &records, query, eventID); err != nil {
		if isInvalidInput(err) {
			return records, nil
		}
		return nil, fmt.Errorf("failed to find notifications: %w", err)
	}
	return records, nil
}

func (r *NotificationRepository) CountByStatus(ctx context.Context, status model.NotificationStatus) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM notification_log WHERE status = $1`
	err := r.db.GetContext(ctx, &count, query, status)
	return count, err
}

func (r *NotificationRepository) DeleteOld(ctx context.Context, olderThan time.Time) (int64, error) {
	query := `DELETE FROM notification_log WHERE created_at < $1`
	result, err := r.db.ExecContext(ctx, query, olderThan)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

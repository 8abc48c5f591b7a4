package storage

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/fau-events/internal/model"
)

const registrationColumns = `id, event_id, name, email, phone, attendee_count, comments, language,
	children_names, time_slots, created_at`

// AdmitFunc decides, under the event row lock, whether a registration may
// be written. duplicate reports whether the email is already registered for
// the event. It may fill derived fields on the pending registration.
type AdmitFunc func(event *model.Event, duplicate bool) error

type RegistrationRepository struct {
	db *Database
}

func NewRegistrationRepository(db *Database) *RegistrationRepository {
	return &RegistrationRepository{db: db}
}

// CreateAtomic inserts reg and adds its attendee count to the event in one
// transaction. The event row is locked for the duration so capacity checks
// for the same event are serialized.
func (r *RegistrationRepository) CreateAtomic(ctx context.Context, reg *model.Registration, admit AdmitFunc) (*model.Registration, error) {
	var created model.Registration
	err := r.db.InTx(ctx, func(tx *sqlx.Tx) error {
		event, err := findEvent(ctx, tx, reg.EventID, true)
		if err != nil {
			return err
		}

		var duplicate bool
		err = tx.GetContext(ctx, &duplicate, `
			SELECT EXISTS (
				SELECT 1 FROM event_registrations WHERE event_id = $1 AND lower(email) = lower($2)
			)`, reg.EventID, reg.Email)
		if err != nil {
			return fmt.Errorf("failed to check duplicate registration: %w", err)
		}

		if err := admit(event, duplicate); err != nil {
			return err
		}

		query := `
			INSERT INTO event_registrations (event_id, name, email, phone, attendee_count, comments,
				language, children_names, time_slots)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			RETURNING ` + registrationColumns
		err = tx.QueryRowxContext(ctx, query,
			reg.EventID, reg.Name, reg.Email, reg.Phone, reg.AttendeeCount, reg.Comments,
			reg.Language, reg.ChildrenNames, reg.TimeSlots,
		).StructScan(&created)
		if err != nil {
			if isUniqueViolation(err) {
				return model.ErrDuplicateRegistration
			}
			return fmt.Errorf("failed to create registration: %w", err)
		}

		res, err := tx.ExecContext(ctx, `
			UPDATE events
			SET current_attendees = current_attendees + $1, updated_at = CURRENT_TIMESTAMP
			WHERE id = $2 AND (max_attendees IS NULL OR current_attendees + $1 <= max_attendees)`,
			reg.AttendeeCount, reg.EventID)
		if err != nil {
			return fmt.Errorf("failed to update attendee count: %w", err)
		}
		if n, _ := res.RowsAffected(); n != 1 {
			return &model.CapacityError{Available: event.Available(), Requested: reg.AttendeeCount}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// DeleteAtomic removes a registration and gives its places back to the
// event, never letting the count go below zero.
func (r *RegistrationRepository) DeleteAtomic(ctx context.Context, id string) (*model.Registration, error) {
	var deleted model.Registration
	err := r.db.InTx(ctx, func(tx *sqlx.Tx) error {
		err := tx.QueryRowxContext(ctx,
			`DELETE FROM event_registrations WHERE id = $1 RETURNING `+registrationColumns, id).
			StructScan(&deleted)
		if err != nil {
			if isNoRows(err) || isInvalidInput(err) {
				return model.ErrNotFound
			}
			return fmt.Errorf("failed to delete registration: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE events
			SET current_attendees = GREATEST(current_attendees - $1, 0), updated_at = CURRENT_TIMESTAMP
			WHERE id = $2`, deleted.AttendeeCount, deleted.EventID)
		if err != nil {
			return fmt.Errorf("failed to update attendee count: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &deleted, nil
}

func (r *RegistrationRepository) FindByID(ctx context.Context, id string) (*model.Registration, error) {
	var reg model.Registration
	err := r.db.GetContext(ctx, &reg, `SELECT `+registrationColumns+` FROM event_registrations WHERE id = $1`, id)
	if err != nil {
		if isNoRows(err) || isInvalidInput(err) {
			return nil, model.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find registration: %w", err)
	}
	return &reg, nil
}

// ListByEvent returns registrations in creation order.
func (r *RegistrationRepository) ListByEvent(ctx context.Context, eventID string) ([]model.Registration, error) {
	regs := []model.Registration{}
	query := `SELECT ` + registrationColumns + ` FROM event_registrations
		WHERE event_id = $1 ORDER BY created_at ASC, id ASC`
	if err := r.db.SelectContext(ctx, &regs, query, eventID); err != nil {
		if isInvalidInput(err) {
			return regs, nil
		}
		return nil, fmt.Errorf("failed to list registrations: %w", err)
	}
	return regs, nil
}

package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/fau-events/internal/model"
)

const eventColumns = `id, title, description, date, time, location, custom_location, max_attendees,
	current_attendees, type, status, created_at, updated_at`

type EventRepository struct {
	db *Database
}

func NewEventRepository(db *Database) *EventRepository {
	return &EventRepository{db: db}
}

// Create inserts a new active event. Attendee counts always start at zero.
func (r *EventRepository) Create(ctx context.Context, req *model.CreateEventRequest) (*model.Event, error) {
	eventType := req.Type
	if eventType == "" {
		eventType = model.EventTypeEvent
	}

	var event model.Event
	query := `
		INSERT INTO events (title, description, date, time, location, custom_location, max_attendees,
			current_attendees, type, status)
		VALUES ($1, $2, $3::date, $4, $5, $6, $7, 0, $8, $9)
		RETURNING ` + eventColumns
	err := r.db.QueryRowxContext(ctx, query,
		req.Title, req.Description, req.Date, req.Time, req.Location, req.CustomLocation,
		positiveOrNil(req.MaxAttendees), eventType, model.EventStatusActive,
	).StructScan(&event)
	if err != nil {
		return nil, fmt.Errorf("failed to create event: %w", err)
	}

	return &event, nil
}

func (r *EventRepository) FindByID(ctx context.Context, id string) (*model.Event, error) {
	return findEvent(ctx, r.db, id, false)
}

// ListPublic returns active and cancelled events ordered by date and time.
// Cancelled events stay visible so visitors see the cancellation.
func (r *EventRepository) ListPublic(ctx context.Context) ([]model.Event, error) {
	events := []model.Event{}
	query := `SELECT ` + eventColumns + ` FROM events
		WHERE status IN ($1, $2)
		ORDER BY date ASC, time ASC`
	err := r.db.SelectContext(ctx, &events, query, model.EventStatusActive, model.EventStatusCancelled)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	return events, nil
}

// ListUpcoming returns active events whose date falls within [from, to].
func (r *EventRepository) ListUpcoming(ctx context.Context, from, to time.Time) ([]model.Event, error) {
	events := []model.Event{}
	query := `SELECT ` + eventColumns + ` FROM events
		WHERE status = $1 AND date BETWEEN $2::date AND $3::date
		ORDER BY date ASC, time ASC`
	err := r.db.SelectContext(ctx, &events, query, model.EventStatusActive,
		from.Format(model.DateLayout), to.Format(model.DateLayout))
	if err != nil {
		return nil, fmt.Errorf("failed to list upcoming events: %w", err)
	}
	return events, nil
}

// Update applies a partial update. A MaxAttendees of 0 removes the limit; a
// limit below the current attendee count is rejected.
func (r *EventRepository) Update(ctx context.Context, id string, req *model.UpdateEventRequest) (*model.Event, error) {
	var updated model.Event
	err := r.db.InTx(ctx, func(tx *sqlx.Tx) error {
		event, err := findEvent(ctx, tx, id, true)
		if err != nil {
			return err
		}

		if req.Title != nil {
			event.Title = *req.Title
		}
		if req.Description != nil {
			event.Description = *req.Description
		}
		date := event.DateString()
		if req.Date != nil {
			date = *req.Date
		}
		if req.Time != nil {
			event.Time = *req.Time
		}
		if req.Location != nil {
			event.Location = *req.Location
		}
		if req.CustomLocation != nil {
			event.CustomLocation = req.CustomLocation
		}
		if req.MaxAttendees != nil {
			event.MaxAttendees = positiveOrNil(req.MaxAttendees)
		}
		if req.Type != nil {
			event.Type = *req.Type
		}
		if event.MaxAttendees != nil && *event.MaxAttendees < event.CurrentAttendees {
			return &model.ValidationError{Err: fmt.Errorf(
				"maxAttendees: cannot be lower than the %d already registered", event.CurrentAttendees)}
		}

		query := `
			UPDATE events SET title = $1, description = $2, date = $3::date, time = $4, location = $5,
				custom_location = $6, max_attendees = $7, type = $8, updated_at = $9
			WHERE id = $10
			RETURNING ` + eventColumns
		return tx.QueryRowxContext(ctx, query,
			event.Title, event.Description, date, event.Time, event.Location,
			event.CustomLocation, event.MaxAttendees, event.Type, time.Now(), id,
		).StructScan(&updated)
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// Cancel moves an active event to cancelled. changed is false when the
// event was already cancelled, so only one caller observes the transition.
// Registrations and counts are untouched.
func (r *EventRepository) Cancel(ctx context.Context, id string) (event *model.Event, changed bool, err error) {
	var cancelled model.Event
	query := `UPDATE events SET status = $1, updated_at = $2
		WHERE id = $3 AND status = $4
		RETURNING ` + eventColumns
	err = r.db.QueryRowxContext(ctx, query,
		model.EventStatusCancelled, time.Now(), id, model.EventStatusActive).StructScan(&cancelled)
	switch {
	case err == nil:
		return &cancelled, true, nil
	case isInvalidInput(err):
		return nil, false, model.ErrNotFound
	case !isNoRows(err):
		return nil, false, fmt.Errorf("failed to cancel event: %w", err)
	}

	current, err := findEvent(ctx, r.db, id, false)
	if err != nil {
		return nil, false, err
	}
	return current, false, nil
}

// Delete removes an event that has no registrations. Events with
// registrations must be cancelled instead.
func (r *EventRepository) Delete(ctx context.Context, id string) error {
	return r.db.InTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := findEvent(ctx, tx, id, true); err != nil {
			return err
		}

		var count int
		if err := tx.GetContext(ctx, &count,
			`SELECT COUNT(*) FROM event_registrations WHERE event_id = $1`, id); err != nil {
			return fmt.Errorf("failed to count registrations: %w", err)
		}
		if count > 0 {
			return fmt.Errorf("event has %d registrations: %w", count, model.ErrConflict)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM events WHERE id = $1`, id); err != nil {
			if isForeignKeyViolation(err) {
				return fmt.Errorf("event has registrations: %w", model.ErrConflict)
			}
			return fmt.Errorf("failed to delete event: %w", err)
		}
		return nil
	})
}

func findEvent(ctx context.Context, q sqlx.QueryerContext, id string, forUpdate bool) (*model.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	var event model.Event
	if err := sqlx.GetContext(ctx, q, &event, query, id); err != nil {
		if isNoRows(err) || isInvalidInput(err) {
			return nil, model.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find event: %w", err)
	}
	return &event, nil
}

func positiveOrNil(v *int) *int {
	if v == nil || *v <= 0 {
		return nil
	}
	return v
}

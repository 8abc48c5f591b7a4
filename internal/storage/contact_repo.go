package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/fau-events/internal/model"
)

const contactColumns = `id, name, email, subject, message, status, created_at, updated_at`

type ContactRepository struct {
	db *Database
}

func NewContactRepository(db *Database) *ContactRepository {
	return &ContactRepository{db: db}
}

func (r *ContactRepository) Create(ctx context.Context, req *model.ContactRequest) (*model.ContactMessage, error) {
	var msg model.ContactMessage
	query := `
		INSERT INTO contact_messages (name, email, subject, message, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + contactColumns
	err := r.db.QueryRowxContext(ctx, query, req.Name, req.Email, req.Subject, req.Message, model.ContactStatusNew).
		StructScan(&msg)
	if err != nil {
		return nil, fmt.Errorf("failed to create contact message: %w", err)
	}
	return &msg, nil
}

// List returns messages newest first, optionally filtered by status.
func (r *ContactRepository) List(ctx context.Context, status model.ContactStatus) ([]model.ContactMessage, error) {
	messages := []model.ContactMessage{}
	var err error
	if status == "" {
		err = r.db.SelectContext(ctx, &messages,
			`SELECT `+contactColumns+` FROM contact_messages ORDER BY created_at DESC`)
	} else {
		err = r.db.SelectContext(ctx, &messages,
			`SELECT `+contactColumns+` FROM contact_messages WHERE status = $1 ORDER BY created_at DESC`, status)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list contact messages: %w", err)
	}
	return messages, nil
}

func (r *ContactRepository) UpdateStatus(ctx context.Context, id string, status model.ContactStatus) (*model.ContactMessage, error) {
	var msg model.ContactMessage
	query := `UPDATE contact_messages SET status = $1, updated_at = $2 WHERE id = $3 RETURNING ` + contactColumns
	err := r.db.QueryRowxContext(ctx, query, status, time.Now(), id).StructScan(&msg)
	if err != nil {
		if isNoRows(err) || isInvalidInput(err) {
			return nil, model.ErrNotFound
		}
		return nil, fmt.Errorf("failed to update contact message: %w", err)
	}
	return &msg, nil
}

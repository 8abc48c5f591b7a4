package model

import "time"

type NotificationKind string

const (
	NotificationConfirmation NotificationKind = "confirmation"
	NotificationCancellation NotificationKind = "cancellation"
	NotificationReminder     NotificationKind = "reminder"
)

type NotificationStatus string

const (
	NotificationStatusSent    NotificationStatus = "sent"
	NotificationStatusFailed  NotificationStatus = "failed"
	NotificationStatusSkipped NotificationStatus = "skipped"
)

// NotificationRecord is one delivery attempt, kept for the admin view.
type NotificationRecord struct {
	ID             string             `json:"id" db:"id"`
	Kind           NotificationKind   `json:"kind" db:"kind"`
	EventID        string             `json:"eventId" db:"event_id"`
	RegistrationID string             `json:"registrationId" db:"registration_id"`
	Recipient      string             `json:"recipient" db:"recipient"`
	Status         NotificationStatus `json:"status" db:"status"`
	Error          *string            `json:"error,omitempty" db:"error"`
	CreatedAt      time.Time          `json:"createdAt" db:"created_at"`
}

package model

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

type EventStatus string

const (
	EventStatusActive    EventStatus = "active"
	EventStatusCancelled EventStatus = "cancelled"
)

type EventType string

const (
	EventTypeMeeting   EventType = "meeting"
	EventTypeEvent     EventType = "event"
	EventTypeVolunteer EventType = "volunteer"
	EventTypePhoto     EventType = "photo"
	EventTypeOther     EventType = "other"
)

// LocationOther marks an event whose location lives in CustomLocation.
const LocationOther = "Other"

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

type Event struct {
	ID               string      `json:"id" db:"id"`
	Title            string      `json:"title" db:"title"`
	Description      string      `json:"description" db:"description"`
	Date             time.Time   `json:"-" db:"date"`
	Time             string      `json:"time" db:"time"`
	Location         string      `json:"location" db:"location"`
	CustomLocation   *string     `json:"customLocation,omitempty" db:"custom_location"`
	MaxAttendees     *int        `json:"maxAttendees" db:"max_attendees"`
	CurrentAttendees int         `json:"currentAttendees" db:"current_attendees"`
	Type             EventType   `json:"type" db:"type"`
	Status           EventStatus `json:"status" db:"status"`
	CreatedAt        time.Time   `json:"createdAt" db:"created_at"`
	UpdatedAt        time.Time   `json:"updatedAt" db:"updated_at"`
}

// MarshalJSON renders Date as a calendar date instead of a timestamp.
func (e Event) MarshalJSON() ([]byte, error) {
	type alias Event
	return json.Marshal(struct {
		alias
		Date string `json:"date"`
	}{alias: alias(e), Date: e.Date.Format(DateLayout)})
}

// DateString is the calendar date in YYYY-MM-DD form.
func (e *Event) DateString() string {
	return e.Date.Format(DateLayout)
}

func (e *Event) IsCancelled() bool {
	return e.Status == EventStatusCancelled
}

// DisplayLocation returns the custom location when the event uses "Other".
func (e *Event) DisplayLocation() string {
	if strings.EqualFold(strings.TrimSpace(e.Location), LocationOther) &&
		e.CustomLocation != nil && strings.TrimSpace(*e.CustomLocation) != "" {
		return strings.TrimSpace(*e.CustomLocation)
	}
	return e.Location
}

// StartsAt combines the calendar date and HH:MM time in loc.
func (e *Event) StartsAt(loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	clock, err := time.Parse(TimeLayout, e.Time)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid event time %q: %w", e.Time, err)
	}
	return time.Date(e.Date.Year(), e.Date.Month(), e.Date.Day(),
		clock.Hour(), clock.Minute(), 0, 0, loc), nil
}

// Available returns the remaining capacity, or -1 when unlimited.
func (e *Event) Available() int {
	if e.MaxAttendees == nil {
		return -1
	}
	if left := *e.MaxAttendees - e.CurrentAttendees; left > 0 {
		return left
	}
	return 0
}

type CreateEventRequest struct {
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	Date           string    `json:"date"`
	Time           string    `json:"time"`
	Location       string    `json:"location"`
	CustomLocation *string   `json:"customLocation,omitempty"`
	MaxAttendees   *int      `json:"maxAttendees,omitempty"`
	Type           EventType `json:"type"`
}

// UpdateEventRequest is a partial update; attendee counts and status are
// deliberately absent.
type UpdateEventRequest struct {
	Title          *string    `json:"title,omitempty"`
	Description    *string    `json:"description,omitempty"`
	Date           *string    `json:"date,omitempty"`
	Time           *string    `json:"time,omitempty"`
	Location       *string    `json:"location,omitempty"`
	CustomLocation *string    `json:"customLocation,omitempty"`
	MaxAttendees   *int       `json:"maxAttendees,omitempty"`
	Type           *EventType `json:"type,omitempty"`
}

package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

type Language string

const (
	LanguageNorwegian Language = "no"
	LanguageEnglish   Language = "en"
)

// MaxAttendeesPerRegistration caps a single group registration.
const MaxAttendeesPerRegistration = 10

type Registration struct {
	ID            string     `json:"id" db:"id"`
	EventID       string     `json:"eventId" db:"event_id"`
	Name          string     `json:"name" db:"name"`
	Email         string     `json:"email" db:"email"`
	Phone         *string    `json:"phone,omitempty" db:"phone"`
	AttendeeCount int        `json:"attendeeCount" db:"attendee_count"`
	Comments      *string    `json:"comments,omitempty" db:"comments"`
	Language      Language   `json:"language" db:"language"`
	ChildrenNames StringList `json:"childrenNames,omitempty" db:"children_names"`
	TimeSlots     StringList `json:"timeSlots,omitempty" db:"time_slots"`
	CreatedAt     time.Time  `json:"createdAt" db:"created_at"`
}

type RegisterRequest struct {
	EventID       string   `json:"eventId"`
	Name          string   `json:"name"`
	Email         string   `json:"email"`
	Phone         *string  `json:"phone,omitempty"`
	AttendeeCount int      `json:"attendeeCount,omitempty"`
	Comments      *string  `json:"comments,omitempty"`
	Language      Language `json:"language,omitempty"`
	ChildrenNames []string `json:"childrenNames,omitempty"`
}

// StringList is a JSONB-backed list of strings.
type StringList []string

func (s StringList) Value() (driver.Value, error) {
	if s == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(s)
}

func (s *StringList) Scan(value interface{}) error {
	if value == nil {
		*s = nil
		return nil
	}
	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return errors.New("type assertion to []byte failed")
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return err
	}
	if len(out) == 0 {
		out = nil
	}
	*s = out
	return nil
}

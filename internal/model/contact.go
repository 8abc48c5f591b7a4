package model

import "time"

type ContactStatus string

const (
	ContactStatusNew       ContactStatus = "new"
	ContactStatusResponded ContactStatus = "responded"
	ContactStatusArchived  ContactStatus = "archived"
)

func (s ContactStatus) Valid() bool {
	switch s {
	case ContactStatusNew, ContactStatusResponded, ContactStatusArchived:
		return true
	}
	return false
}

type ContactMessage struct {
	ID        string        `json:"id" db:"id"`
	Name      string        `json:"name" db:"name"`
	Email     string        `json:"email" db:"email"`
	Subject   string        `json:"subject" db:"subject"`
	Message   string        `json:"message" db:"message"`
	Status    ContactStatus `json:"status" db:"status"`
	CreatedAt time.Time     `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time     `json:"updatedAt" db:"updated_at"`
}

type ContactRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Subject string `json:"subject"`
	Message string `json:"message"`
}

type ContactStatusRequest struct {
	Status ContactStatus `json:"status"`
}

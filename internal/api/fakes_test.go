package api

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fau-events/internal/model"
	"github.com/fau-events/internal/scheduler"
	"github.com/fau-events/internal/storage"
)

// memEvents backs both the event store and the registration store.
type memEvents struct {
	mu     sync.Mutex
	events map[string]*model.Event
	regs   []model.Registration
}

func newMemEvents() *memEvents {
	return &memEvents{events: map[string]*model.Event{}}
}

func (m *memEvents) Create(_ context.Context, req *model.CreateEventRequest) (*model.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	date, err := time.Parse(model.DateLayout, req.Date)
	if err != nil {
		return nil, err
	}
	e := &model.Event{
		ID: uuid.NewString(), Title: req.Title, Description: req.Description, Date: date, Time: req.Time,
		Location: req.Location, CustomLocation: req.CustomLocation, MaxAttendees: req.MaxAttendees,
		Type: req.Type, Status: model.EventStatusActive, CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}
	m.events[e.ID] = e
	copied := *e
	return &copied, nil
}

func (m *memEvents) FindByID(_ context.Context, id string) (*model.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.events[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	copied := *e
	return &copied, nil
}

func (m *memEvents) ListPublic(_ context.Context) ([]model.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Event{}
	for _, e := range m.events {
		out = append(out, *e)
	}
	return out, nil
}

func (m *memEvents) Update(_ context.Context, id string, req *model.UpdateEventRequest) (*model.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.events[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	if req.Title != nil {
		e.Title = *req.Title
	}
	if req.Time != nil {
		e.Time = *req.Time
	}
	if req.MaxAttendees != nil {
		if *req.MaxAttendees == 0 {
			e.MaxAttendees = nil
		} else {
			e.MaxAttendees = req.MaxAttendees
		}
	}
	copied := *e
	return &copied, nil
}

func (m *memEvents) Cancel(_ context.Context, id string) (*model.Event, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	event, ok := m.events[id]
	if !ok {
		return nil, false, model.ErrNotFound
	}
	changed := !event.IsCancelled()
	event.Status = model.EventStatusCancelled
	copied := *event
	return &copied, changed, nil
}

func (m *memEvents) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.events[id]; !ok {
		return model.ErrNotFound
	}
	for _, r := range m.regs {
		if r.EventID == id {
			return model.ErrConflict
		}
	}
	delete(m.events, id)
	return nil
}

func (m *memEvents) CreateAtomic(_ context.Context, reg *model.Registration, admit storage.AdmitFunc) (*model.Registration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.events[reg.EventID]
	if !ok {
		return nil, model.ErrNotFound
	}
	duplicate := false
	for _, r := range m.regs {
		if r.EventID == reg.EventID && strings.EqualFold(r.Email, reg.Email) {
			duplicate = true
		}
	}
	locked := *e
	if err := admit(&locked, duplicate); err != nil {
		return nil, err
	}
	created := *reg
	created.ID = uuid.NewString()
	created.CreatedAt = time.Now()
	m.regs = append(m.regs, created)
	e.CurrentAttendees += reg.AttendeeCount
	return &created, nil
}

func (m *memEvents) DeleteAtomic(_ context.Context, id string) (*model.Registration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, r := range m.regs {
		if r.ID == id {
			m.regs = append(m.regs[:i], m.regs[i+1:]...)
			if e, ok := m.events[r.EventID]; ok {
				e.CurrentAttendees = max(e.CurrentAttendees-r.AttendeeCount, 0)
			}
			return &r, nil
		}
	}
	return nil, model.ErrNotFound
}

func (m *memEvents) ListByEvent(_ context.Context, eventID string) ([]model.Registration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Registration{}
	for _, r := range m.regs {
		if r.EventID == eventID {
			out = append(out, r)
		}
	}
	return out, nil
}

// memUsers stores plain passwords in PasswordHash.
type memUsers struct {
	mu    sync.Mutex
	users map[string]*model.User
}

func newMemUsers(users ...*model.User) *memUsers {
	m := &memUsers{users: map[string]*model.User{}}
	for _, u := range users {
		m.users[u.ID] = u
	}
	return m
}

func (m *memUsers) Authenticate(_ context.Context, username, password string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Username, username) && u.PasswordHash == password {
			copied := *u
			return &copied, nil
		}
	}
	return nil, model.ErrInvalidCredentials
}

func (m *memUsers) FindByID(_ context.Context, id string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, nil
	}
	copied := *u
	return &copied, nil
}

func (m *memUsers) ValidatePassword(user *model.User, password string) bool {
	return user.PasswordHash == password
}

func (m *memUsers) UpdatePassword(_ context.Context, userID, password string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return model.ErrNotFound
	}
	u.PasswordHash = password
	return nil
}

func (m *memUsers) Create(_ context.Context, req *model.CreateUserRequest) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Username, req.Username) {
			return nil, model.ErrConflict
		}
	}
	u := &model.User{ID: uuid.NewString(), Username: strings.ToLower(req.Username), PasswordHash: req.Password, Name: req.Name, Role: req.Role}
	m.users[u.ID] = u
	copied := *u
	return &copied, nil
}

func (m *memUsers) List(_ context.Context) ([]model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.User{}
	for _, u := range m.users {
		out = append(out, *u)
	}
	return out, nil
}

type memContacts struct {
	mu       sync.Mutex
	messages []model.ContactMessage
}

func (m *memContacts) Create(_ context.Context, req *model.ContactRequest) (*model.ContactMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg := model.ContactMessage{ID: uuid.NewString(), Name: req.Name, Email: req.Email, Subject: req.Subject,
		Message: req.Message, Status: model.ContactStatusNew}
	m.messages = append(m.messages, msg)
	return &msg, nil
}

func (m *memContacts) List(_ context.Context, status model.ContactStatus) ([]model.ContactMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.ContactMessage{}
	for _, msg := range m.messages {
		if status == "" || msg.Status == status {
			out = append(out, msg)
		}
	}
	return out, nil
}

func (m *memContacts) UpdateStatus(_ context.Context, id string, status model.ContactStatus) (*model.ContactMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.messages {
		if m.messages[i].ID == id {
			m.messages[i].Status = status
			copied := m.messages[i]
			return &copied, nil
		}
	}
	return nil, model.ErrNotFound
}

type memNotifications struct{}

func (memNotifications) FindRecent(context.Context, int) ([]model.NotificationRecord, error) {
	return []model.NotificationRecord{}, nil
}

func (memNotifications) CountByStatus(context.Context, model.NotificationStatus) (int, error) {
	return 2, nil
}

type fakeScheduler struct {
	runs int
}

func (f *fakeScheduler) IsRunning() bool     { return true }
func (f *fakeScheduler) NextRun() *time.Time { return nil }
func (f *fakeScheduler) RunNow(context.Context) (*scheduler.TickResult, error) {
	f.runs++
	return &scheduler.TickResult{Checked: 1}, nil
}

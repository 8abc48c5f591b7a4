package registration

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/fau-events/internal/model"
	"github.com/fau-events/internal/notify"
	"github.com/fau-events/internal/storage"
)

// Store is the transactional persistence the engine relies on.
// CreateAtomic must call admit while holding the event's row lock and must
// write the registration and the attendee counter together or not at all.
type Store interface {
	CreateAtomic(ctx context.Context, reg *model.Registration, admit storage.AdmitFunc) (*model.Registration, error)
	DeleteAtomic(ctx context.Context, id string) (*model.Registration, error)
	ListByEvent(ctx context.Context, eventID string) ([]model.Registration, error)
}

type EventStore interface {
	FindByID(ctx context.Context, id string) (*model.Event, error)
	// Cancel reports changed only for the call that moved the event from
	// active to cancelled.
	Cancel(ctx context.Context, id string) (event *model.Event, changed bool, err error)
}

type Engine struct {
	store    Store
	events   EventStore
	notifier *notify.Dispatcher
}

func NewEngine(store Store, events EventStore, notifier *notify.Dispatcher) *Engine {
	return &Engine{store: store, events: events, notifier: notifier}
}

// Register validates the request and records it against the event's
// capacity. The confirmation mail is sent in the background and its outcome
// does not affect the result.
func (e *Engine) Register(ctx context.Context, req *model.RegisterRequest) (*model.Registration, error) {
	normalize(req)
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	pending := &model.Registration{
		EventID:       req.EventID,
		Name:          req.Name,
		Email:         req.Email,
		Phone:         req.Phone,
		AttendeeCount: req.AttendeeCount,
		Comments:      req.Comments,
		Language:      req.Language,
	}

	var event model.Event
	admit := func(locked *model.Event, duplicate bool) error {
		if locked.IsCancelled() {
			return model.ErrEventCancelled
		}
		if duplicate {
			return model.ErrDuplicateRegistration
		}
		if available := locked.Available(); available >= 0 && pending.AttendeeCount > available {
			return &model.CapacityError{Available: available, Requested: pending.AttendeeCount}
		}
		if locked.Type == model.EventTypePhoto {
			if err := validateChildren(req.ChildrenNames, pending.AttendeeCount); err != nil {
				return err
			}
			slots, err := PhotoSlots(locked.Time, locked.CurrentAttendees, pending.AttendeeCount)
			if err != nil {
				return err
			}
			pending.ChildrenNames = model.StringList(req.ChildrenNames)
			pending.TimeSlots = slots
		}
		event = *locked
		return nil
	}

	created, err := e.store.CreateAtomic(ctx, pending, admit)
	if err != nil {
		return nil, err
	}
	event.CurrentAttendees += created.AttendeeCount

	zap.L().Info("registration created",
		zap.String("registration_id", created.ID),
		zap.String("event_id", created.EventID),
		zap.Int("attendees", created.AttendeeCount))

	if e.notifier != nil {
		reg := *created
		e.notifier.Async(ctx, func(ctx context.Context) {
			e.notifier.SendConfirmation(ctx, &reg, &event)
		})
	}
	return created, nil
}

// Unregister deletes a registration and returns its places to the event.
func (e *Engine) Unregister(ctx context.Context, registrationID string) (*model.Registration, error) {
	deleted, err := e.store.DeleteAtomic(ctx, registrationID)
	if err != nil {
		return nil, err
	}
	zap.L().Info("registration removed",
		zap.String("registration_id", deleted.ID),
		zap.String("event_id", deleted.EventID),
		zap.Int("attendees", deleted.AttendeeCount))
	return deleted, nil
}

// CancelEvent cancels the event and notifies every registrant in the
// background. It returns the number of registrants being notified.
// Cancelling an already cancelled event sends nothing.
func (e *Engine) CancelEvent(ctx context.Context, eventID string) (*model.Event, int, error) {
	event, changed, err := e.events.Cancel(ctx, eventID)
	if err != nil {
		return nil, 0, err
	}
	if !changed {
		return event, 0, nil
	}

	regs, err := e.store.ListByEvent(ctx, eventID)
	if err != nil {
		zap.L().Error("event cancelled but registrants could not be loaded",
			zap.String("event_id", eventID), zap.Error(err))
		return event, 0, nil
	}

	if e.notifier != nil && len(regs) > 0 {
		snapshot := *event
		e.notifier.Async(ctx, func(ctx context.Context) {
			e.notifier.SendCancellationAll(ctx, regs, &snapshot)
		})
	}
	return event, len(regs), nil
}

func (e *Engine) ListRegistrations(ctx context.Context, eventID string) ([]model.Registration, error) {
	if _, err := e.events.FindByID(ctx, eventID); err != nil {
		return nil, err
	}
	return e.store.ListByEvent(ctx, eventID)
}

func normalize(req *model.RegisterRequest) {
	req.EventID = strings.TrimSpace(req.EventID)
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	if req.AttendeeCount == 0 {
		req.AttendeeCount = 1
	}
	if req.Language == "" {
		req.Language = model.LanguageNorwegian
	}
	req.Phone = trimOptional(req.Phone)
	req.Comments = trimOptional(req.Comments)
	for i, name := range req.ChildrenNames {
		req.ChildrenNames[i] = strings.TrimSpace(name)
	}
}

func trimOptional(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

func validateChildren(names []string, attendees int) error {
	if len(names) != attendees {
		return &model.ValidationError{Err: fmt.Errorf(
			"childrenNames: photo events need one name per attendee (%d names for %d attendees)", len(names), attendees)}
	}
	for _, name := range names {
		if name == "" {
			return &model.ValidationError{Err: fmt.Errorf("childrenNames: names cannot be blank")}
		}
	}
	return nil
}

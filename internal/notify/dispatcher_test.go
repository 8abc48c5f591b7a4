package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fau-events/internal/model"
)

type fakeMailer struct {
	mu     sync.Mutex
	sent   []*Message
	failOn func(to string) bool
}

func (m *fakeMailer) Send(_ context.Context, msg *Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failOn != nil && m.failOn(msg.To) {
		return errors.New("smtp: 550 mailbox unavailable")
	}
	m.sent = append(m.sent, msg)
	return nil
}

func (m *fakeMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

type panicMailer struct{}

func (panicMailer) Send(context.Context, *Message) error { panic("transport exploded") }

type fakeRecorder struct {
	mu      sync.Mutex
	records []model.NotificationRecord
}

func (r *fakeRecorder) Record(_ context.Context, rec *model.NotificationRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, *rec)
	return nil
}

func (r *fakeRecorder) byStatus(status model.NotificationStatus) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, rec := range r.records {
		if rec.Status == status {
			n++
		}
	}
	return n
}

type fakeAlerter struct {
	mu     sync.Mutex
	alerts int
}

func (a *fakeAlerter) Alert(context.Context, *model.NotificationRecord) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.alerts++
	return errors.New("webhook down")
}

func registrants(n int) []model.Registration {
	regs := make([]model.Registration, n)
	for i := range regs {
		regs[i] = model.Registration{
			ID:            fmt.Sprintf("reg-%d", i),
			Name:          fmt.Sprintf("Parent %d", i),
			Email:         fmt.Sprintf("p%d@example.org", i),
			AttendeeCount: 1,
			Language:      model.LanguageNorwegian,
		}
	}
	return regs
}

func TestDispatcher_SendConfirmationRecordsSuccess(t *testing.T) {
	mailer := &fakeMailer{}
	recorder := &fakeRecorder{}
	d := NewDispatcher(mailer, WithRecorder(recorder))

	regs := registrants(1)
	ok := d.SendConfirmation(context.Background(), &regs[0], testEvent())

	assert.True(t, ok)
	assert.Equal(t, 1, mailer.count())
	assert.Equal(t, 1, recorder.byStatus(model.NotificationStatusSent))
}

func TestDispatcher_CancellationFanOutIsolatesFailures(t *testing.T) {
	mailer := &fakeMailer{failOn: func(to string) bool {
		return strings.HasPrefix(to, "p1") || strings.HasPrefix(to, "p3")
	}}
	recorder := &fakeRecorder{}
	alerter := &fakeAlerter{}
	d := NewDispatcher(mailer, WithRecorder(recorder), WithAlerter(alerter), WithConcurrency(2))

	report := d.SendCancellationAll(context.Background(), registrants(6), testEvent())

	assert.Equal(t, Report{Attempted: 6, Failed: 2}, report)
	assert.Equal(t, 4, mailer.count())
	assert.Equal(t, 4, recorder.byStatus(model.NotificationStatusSent))
	assert.Equal(t, 2, recorder.byStatus(model.NotificationStatusFailed))
	assert.Equal(t, 2, alerter.alerts)
}

func TestDispatcher_PanicInTransportIsContained(t *testing.T) {
	recorder := &fakeRecorder{}
	d := NewDispatcher(panicMailer{}, WithRecorder(recorder))

	report := d.SendReminderAll(context.Background(), registrants(3), testEvent())

	assert.Equal(t, 3, report.Failed)
	assert.Equal(t, 3, recorder.byStatus(model.NotificationStatusFailed))
}

func TestDispatcher_AsyncSurvivesCancelledRequest(t *testing.T) {
	mailer := &fakeMailer{}
	d := NewDispatcher(mailer)

	ctx, cancel := context.WithCancel(context.Background())
	regs := registrants(1)
	d.Async(ctx, func(ctx context.Context) {
		d.SendConfirmation(ctx, &regs[0], testEvent())
	})
	cancel()

	waitCtx, waitCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer waitCancel()
	require.NoError(t, d.Wait(waitCtx))
	assert.Equal(t, 1, mailer.count())
}

func TestDispatcher_NilMailerIsNoop(t *testing.T) {
	d := NewDispatcher(nil)
	regs := registrants(1)
	assert.True(t, d.SendConfirmation(context.Background(), &regs[0], testEvent()))
}

package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fau-events/internal/model"
)

const (
	defaultSendTimeout = 20 * time.Second
	defaultConcurrency = 4
)

// Recorder persists delivery attempts.
type Recorder interface {
	Record(ctx context.Context, rec *model.NotificationRecord) error
}

// Alerter is told about failed deliveries.
type Alerter interface {
	Alert(ctx context.Context, rec *model.NotificationRecord) error
}

// Report summarizes a fan-out.
type Report struct {
	Attempted int `json:"attempted"`
	Failed    int `json:"failed"`
}

// Dispatcher renders and sends notifications. Delivery errors are logged,
// recorded and alerted on, but never returned to the caller.
type Dispatcher struct {
	mailer      Mailer
	recorder    Recorder
	alerter     Alerter
	sendTimeout time.Duration
	concurrency int

	wg sync.WaitGroup
}

type Option func(*Dispatcher)

func WithRecorder(r Recorder) Option {
	return func(d *Dispatcher) { d.recorder = r }
}

func WithAlerter(a Alerter) Option {
	return func(d *Dispatcher) { d.alerter = a }
}

func WithSendTimeout(timeout time.Duration) Option {
	return func(d *Dispatcher) {
		if timeout > 0 {
			d.sendTimeout = timeout
		}
	}
}

func WithConcurrency(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.concurrency = n
		}
	}
}

func NewDispatcher(mailer Mailer, opts ...Option) *Dispatcher {
	if mailer == nil {
		mailer = NoopMailer{}
	}
	d := &Dispatcher{
		mailer:      mailer,
		sendTimeout: defaultSendTimeout,
		concurrency: defaultConcurrency,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Dispatcher) SendConfirmation(ctx context.Context, reg *model.Registration, event *model.Event) bool {
	return d.send(ctx, model.NotificationConfirmation, reg, event)
}

// SendCancellationAll notifies every registrant independently.
func (d *Dispatcher) SendCancellationAll(ctx context.Context, regs []model.Registration, event *model.Event) Report {
	return d.fanOut(ctx, model.NotificationCancellation, regs, event)
}

// SendReminderAll notifies every registrant independently.
func (d *Dispatcher) SendReminderAll(ctx context.Context, regs []model.Registration, event *model.Event) Report {
	return d.fanOut(ctx, model.NotificationReminder, regs, event)
}

// Async runs fn in the background with a context that outlives the
// request which triggered it.
func (d *Dispatcher) Async(ctx context.Context, fn func(ctx context.Context)) {
	detached := context.WithoutCancel(ctx)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				zap.L().Error("notification goroutine panicked", zap.Any("panic", r))
			}
		}()
		fn(detached)
	}()
}

// Wait blocks until background sends finish or ctx is done.
func (d *Dispatcher) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) fanOut(ctx context.Context, kind model.NotificationKind, regs []model.Registration, event *model.Event) Report {
	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		report = Report{Attempted: len(regs)}
		sem    = make(chan struct{}, d.concurrency)
	)
	for i := range regs {
		reg := &regs[i]
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			if !d.send(ctx, kind, reg, event) {
				mu.Lock()
				report.Failed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	zap.L().Info("notification fan-out finished",
		zap.String("kind", string(kind)),
		zap.String("event_id", event.ID),
		zap.Int("attempted", report.Attempted),
		zap.Int("failed", report.Failed))
	return report
}

// send delivers one message and reports whether it succeeded.
func (d *Dispatcher) send(ctx context.Context, kind model.NotificationKind, reg *model.Registration, event *model.Event) (ok bool) {
	rec := &model.NotificationRecord{
		Kind:           kind,
		EventID:        event.ID,
		RegistrationID: reg.ID,
		Recipient:      reg.Email,
		Status:         model.NotificationStatusSent,
	}

	defer func() {
		if r := recover(); r != nil {
			ok = false
			d.fail(ctx, rec, fmt.Errorf("%w: panic: %v", model.ErrNotificationDelivery, r))
		}
	}()

	sendCtx, cancel := context.WithTimeout(ctx, d.sendTimeout)
	defer cancel()

	msg := Render(kind, reg, event)
	if err := d.mailer.Send(sendCtx, msg); err != nil {
		d.fail(ctx, rec, fmt.Errorf("%w: %v", model.ErrNotificationDelivery, err))
		return false
	}

	zap.L().Debug("notification sent",
		zap.String("kind", string(kind)),
		zap.String("event_id", event.ID),
		zap.String("registration_id", reg.ID))
	d.record(ctx, rec)
	return true
}

func (d *Dispatcher) fail(ctx context.Context, rec *model.NotificationRecord, err error) {
	msg := err.Error()
	rec.Status = model.NotificationStatusFailed
	rec.Error = &msg

	zap.L().Warn("notification delivery failed",
		zap.String("kind", string(rec.Kind)),
		zap.String("event_id", rec.EventID),
		zap.String("registration_id", rec.RegistrationID),
		zap.Error(err))

	d.record(ctx, rec)
	if d.alerter != nil {
		if aerr := d.alerter.Alert(ctx, rec); aerr != nil {
			zap.L().Warn("failed to post notification alert", zap.Error(aerr))
		}
	}
}

func (d *Dispatcher) record(ctx context.Context, rec *model.NotificationRecord) {
	if d.recorder == nil {
		return
	}
	if err := d.recorder.Record(ctx, rec); err != nil {
		zap.L().Warn("failed to record notification", zap.Error(err))
	}
}

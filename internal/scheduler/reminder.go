package scheduler

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/fau-events/internal/model"
	"github.com/fau-events/internal/notify"
)

const (
	WindowStart     = 23 * time.Hour
	WindowEnd       = 25 * time.Hour
	markerRetention = 3 * 24 * time.Hour
	lookahead       = 3 * 24 * time.Hour
)

type EventSource interface {
	ListUpcoming(ctx context.Context, from, to time.Time) ([]model.Event, error)
}

type RegistrantSource interface {
	ListByEvent(ctx context.Context, eventID string) ([]model.Registration, error)
}

// MarkerStore records which (event, date) pairs have been reminded.
type MarkerStore interface {
	Claim(ctx context.Context, eventID string, date time.Time) (bool, error)
	Release(ctx context.Context, eventID string, date time.Time) error
	PruneBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// TickResult summarizes one pass of the reminder job.
type TickResult struct {
	Checked  int `json:"checked"`
	Reminded int `json:"reminded"`
	Sent     int `json:"sent"`
	Failed   int `json:"failed"`
	Pruned   int `json:"pruned"`
}

// ReminderJob sends one reminder per registrant for events starting 23 to
// 25 hours from now.
type ReminderJob struct {
	events     EventSource
	registrant RegistrantSource
	markers    MarkerStore
	dispatcher *notify.Dispatcher
	loc        *time.Location
}

func NewReminderJob(events EventSource, registrants RegistrantSource, markers MarkerStore, dispatcher *notify.Dispatcher, loc *time.Location) *ReminderJob {
	if loc == nil {
		loc = time.UTC
	}
	return &ReminderJob{
		events:     events,
		registrant: registrants,
		markers:    markers,
		dispatcher: dispatcher,
		loc:        loc,
	}
}

// Tick runs one pass at now. Events are claimed before sending, so a
// second tick inside the same window finds the marker and skips.
func (j *ReminderJob) Tick(ctx context.Context, now time.Time) (TickResult, error) {
	var result TickResult
	local := now.In(j.loc)

	events, err := j.events.ListUpcoming(ctx, local, local.Add(lookahead))
	if err != nil {
		return result, fmt.Errorf("failed to load upcoming events: %w", err)
	}

	for i := range events {
		event := &events[i]
		if event.IsCancelled() {
			continue
		}
		result.Checked++

		startsAt, err := event.StartsAt(j.loc)
		if err != nil {
			zap.L().Warn("skipping event with invalid time", zap.String("event_id", event.ID), zap.Error(err))
			continue
		}
		if !InWindow(startsAt.Sub(now)) {
			continue
		}

		claimed, err := j.markers.Claim(ctx, event.ID, event.Date)
		if err != nil {
			zap.L().Error("failed to claim reminder", zap.String("event_id", event.ID), zap.Error(err))
			continue
		}
		if !claimed {
			continue
		}

		regs, err := j.registrant.ListByEvent(ctx, event.ID)
		if err != nil {
			zap.L().Error("failed to load registrants for reminder", zap.String("event_id", event.ID), zap.Error(err))
			if rerr := j.markers.Release(ctx, event.ID, event.Date); rerr != nil {
				zap.L().Error("failed to release reminder claim", zap.String("event_id", event.ID), zap.Error(rerr))
			}
			continue
		}

		result.Reminded++
		if len(regs) == 0 {
			continue
		}
		report := j.dispatcher.SendReminderAll(ctx, regs, event)
		result.Sent += report.Attempted - report.Failed
		result.Failed += report.Failed
	}

	pruned, err := j.markers.PruneBefore(ctx, local.Add(-markerRetention))
	if err != nil {
		zap.L().Warn("failed to prune reminder markers", zap.Error(err))
	}
	result.Pruned = int(pruned)

	zap.L().Info("reminder tick finished",
		zap.Int("checked", result.Checked),
		zap.Int("reminded", result.Reminded),
		zap.Int("sent", result.Sent),
		zap.Int("failed", result.Failed),
		zap.Int("pruned", result.Pruned))
	return result, nil
}

// InWindow reports whether an event starting in d is due a reminder.
func InWindow(d time.Duration) bool {
	return d >= WindowStart && d <= WindowEnd
}

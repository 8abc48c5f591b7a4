package storage

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fau-events/internal/config"
	"github.com/fau-events/internal/model"
)

var testDB *Database

func TestMain(m *testing.M) {
	os.Exit(runWithPostgres(m))
}

func runWithPostgres(m *testing.M) int {
	flag.Parse()
	if testing.Short() {
		return m.Run()
	}

	pool, err := dockertest.NewPool("")
	if err != nil || pool.Client.Ping() != nil {
		fmt.Println("docker unavailable, storage integration tests skipped")
		return m.Run()
	}

	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "postgres",
		Tag:        "16-alpine",
		Env: []string{
			"POSTGRES_PASSWORD=secret",
			"POSTGRES_USER=fau",
			"POSTGRES_DB=fau_test",
		},
	}, func(hc *docker.HostConfig) {
		hc.AutoRemove = true
		hc.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		fmt.Printf("could not start postgres: %v\n", err)
		return m.Run()
	}
	defer pool.Purge(resource)
	_ = resource.Expire(300)

	cfg := &config.DatabaseConfig{
		URL:          fmt.Sprintf("postgres://fau:secret@%s/fau_test?sslmode=disable", resource.GetHostPort("5432/tcp")),
		MaxOpenConns: 20,
		MaxIdleConns: 5,
	}
	pool.MaxWait = 90 * time.Second
	err = pool.Retry(func() error {
		db, err := NewDatabase(cfg)
		if err != nil {
			return err
		}
		testDB = db
		return nil
	})
	if err != nil {
		fmt.Printf("could not connect to postgres: %v\n", err)
		return m.Run()
	}
	defer testDB.Close()

	if err := testDB.RunMigrations(); err != nil {
		fmt.Printf("migrations failed: %v\n", err)
		return 1
	}
	return m.Run()
}

func requireDB(t *testing.T) *Database {
	t.Helper()
	if testDB == nil {
		t.Skip("postgres not available")
	}
	return testDB
}

func newTestEvent(t *testing.T, db *Database, max *int, eventType model.EventType) *model.Event {
	t.Helper()
	event, err := NewEventRepository(db).Create(context.Background(), &model.CreateEventRequest{
		Title:        "Sommerfest",
		Date:         time.Now().AddDate(0, 0, 7).Format(model.DateLayout),
		Time:         "16:00",
		Location:     "Barnehagen",
		MaxAttendees: max,
		Type:         eventType,
	})
	require.NoError(t, err)
	return event
}

func intPtr(v int) *int { return &v }

func admitAll(event *model.Event, duplicate bool) error {
	if event.IsCancelled() {
		return model.ErrEventCancelled
	}
	if duplicate {
		return model.ErrDuplicateRegistration
	}
	return nil
}

func TestEventRepository_CreateForcesCounters(t *testing.T) {
	db := requireDB(t)
	event := newTestEvent(t, db, intPtr(5), model.EventTypeMeeting)

	assert.Equal(t, 0, event.CurrentAttendees)
	assert.Equal(t, model.EventStatusActive, event.Status)
	assert.Equal(t, 5, *event.MaxAttendees)
}

func TestEventRepository_NotFound(t *testing.T) {
	db := requireDB(t)
	repo := NewEventRepository(db)

	_, err := repo.FindByID(context.Background(), "not-a-uuid")
	assert.ErrorIs(t, err, model.ErrNotFound)

	_, _, err = repo.Cancel(context.Background(), "8d7f1a52-0b8a-4c59-9d1d-3f0b1a2c4d5e")
	assert.ErrorIs(t, err, model.ErrNotFound)

	_, _, err = repo.Cancel(context.Background(), "not-a-uuid")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestEventRepository_CancelTransitionsOnce(t *testing.T) {
	db := requireDB(t)
	ctx := context.Background()
	event := newTestEvent(t, db, nil, model.EventTypeEvent)
	repo := NewEventRepository(db)

	const callers = 10
	var (
		wg      sync.WaitGroup
		changes atomic.Int32
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cancelled, changed, err := repo.Cancel(ctx, event.ID)
			if !assert.NoError(t, err) {
				return
			}
			assert.True(t, cancelled.IsCancelled())
			if changed {
				changes.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, changes.Load())
}

func TestEventRepository_UpdateRejectsLimitBelowCount(t *testing.T) {
	db := requireDB(t)
	ctx := context.Background()
	event := newTestEvent(t, db, intPtr(5), model.EventTypeEvent)

	regs := NewRegistrationRepository(db)
	_, err := regs.CreateAtomic(ctx, &model.Registration{
		EventID: event.ID, Name: "Kari", Email: "kari@example.org", AttendeeCount: 3, Language: model.LanguageNorwegian,
	}, admitAll)
	require.NoError(t, err)

	events := NewEventRepository(db)
	_, err = events.Update(ctx, event.ID, &model.UpdateEventRequest{MaxAttendees: intPtr(2)})
	var verr *model.ValidationError
	assert.ErrorAs(t, err, &verr)

	updated, err := events.Update(ctx, event.ID, &model.UpdateEventRequest{MaxAttendees: intPtr(0)})
	require.NoError(t, err)
	assert.Nil(t, updated.MaxAttendees)
	assert.Equal(t, 3, updated.CurrentAttendees)
}

func TestEventRepository_DeleteWithRegistrationsConflicts(t *testing.T) {
	db := requireDB(t)
	ctx := context.Background()
	event := newTestEvent(t, db, nil, model.EventTypeEvent)
	events := NewEventRepository(db)

	reg, err := NewRegistrationRepository(db).CreateAtomic(ctx, &model.Registration{
		EventID: event.ID, Name: "Ola", Email: "ola@example.org", AttendeeCount: 1, Language: model.LanguageNorwegian,
	}, admitAll)
	require.NoError(t, err)

	assert.ErrorIs(t, events.Delete(ctx, event.ID), model.ErrConflict)

	_, err = NewRegistrationRepository(db).DeleteAtomic(ctx, reg.ID)
	require.NoError(t, err)
	assert.NoError(t, events.Delete(ctx, event.ID))
	assert.ErrorIs(t, events.Delete(ctx, event.ID), model.ErrNotFound)
}

func TestRegistrationRepository_ConcurrentCapacity(t *testing.T) {
	db := requireDB(t)
	ctx := context.Background()
	event := newTestEvent(t, db, intPtr(10), model.EventTypeEvent)
	regs := NewRegistrationRepository(db)

	admit := func(event *model.Event, duplicate bool) error {
		if err := admitAll(event, duplicate); err != nil {
			return err
		}
		if event.MaxAttendees != nil && event.Available() < 1 {
			return &model.CapacityError{Available: event.Available(), Requested: 1}
		}
		return nil
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
	)
	for i := 0; i < 30; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := regs.CreateAtomic(ctx, &model.Registration{
				EventID: event.ID, Name: "Parent", Email: fmt.Sprintf("p%d@example.org", i),
				AttendeeCount: 1, Language: model.LanguageNorwegian,
			}, admit)
			if err == nil {
				mu.Lock()
				accepted++
				mu.Unlock()
				return
			}
			assert.True(t, errors.Is(err, model.ErrCapacityExceeded), "unexpected error: %v", err)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 10, accepted)
	reloaded, err := NewEventRepository(db).FindByID(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, reloaded.CurrentAttendees)

	list, err := regs.ListByEvent(ctx, event.ID)
	require.NoError(t, err)
	assert.Len(t, list, 10)
}

func TestRegistrationRepository_DuplicateIsCaseInsensitive(t *testing.T) {
	db := requireDB(t)
	ctx := context.Background()
	event := newTestEvent(t, db, nil, model.EventTypeEvent)
	regs := NewRegistrationRepository(db)

	_, err := regs.CreateAtomic(ctx, &model.Registration{
		EventID: event.ID, Name: "A", Email: "x@y.com", AttendeeCount: 1, Language: model.LanguageEnglish,
	}, admitAll)
	require.NoError(t, err)

	_, err = regs.CreateAtomic(ctx, &model.Registration{
		EventID: event.ID, Name: "A", Email: "X@Y.com", AttendeeCount: 1, Language: model.LanguageEnglish,
	}, admitAll)
	assert.ErrorIs(t, err, model.ErrDuplicateRegistration)

	// Without the in-transaction check the unique index still rejects it.
	_, err = regs.CreateAtomic(ctx, &model.Registration{
		EventID: event.ID, Name: "A", Email: "X@y.COM", AttendeeCount: 1, Language: model.LanguageEnglish,
	}, func(*model.Event, bool) error { return nil })
	assert.ErrorIs(t, err, model.ErrDuplicateRegistration)

	reloaded, err := NewEventRepository(db).FindByID(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, reloaded.CurrentAttendees)
}

func TestRegistrationRepository_AdmitErrorRollsBack(t *testing.T) {
	db := requireDB(t)
	ctx := context.Background()
	event := newTestEvent(t, db, nil, model.EventTypeEvent)
	regs := NewRegistrationRepository(db)

	boom := errors.New("boom")
	_, err := regs.CreateAtomic(ctx, &model.Registration{
		EventID: event.ID, Name: "A", Email: "a@example.org", AttendeeCount: 2, Language: model.LanguageNorwegian,
	}, func(*model.Event, bool) error { return boom })
	assert.ErrorIs(t, err, boom)

	list, err := regs.ListByEvent(ctx, event.ID)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestRegistrationRepository_DeleteRestoresCount(t *testing.T) {
	db := requireDB(t)
	ctx := context.Background()
	event := newTestEvent(t, db, intPtr(2), model.EventTypePhoto)
	regs := NewRegistrationRepository(db)

	reg, err := regs.CreateAtomic(ctx, &model.Registration{
		EventID: event.ID, Name: "A", Email: "a@example.org", AttendeeCount: 2, Language: model.LanguageNorwegian,
		ChildrenNames: model.StringList{"Nora", "Emil"}, TimeSlots: model.StringList{"16:00", "16:10"},
	}, admitAll)
	require.NoError(t, err)
	assert.Equal(t, model.StringList{"16:00", "16:10"}, reg.TimeSlots)

	found, err := regs.FindByID(ctx, reg.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StringList{"Nora", "Emil"}, found.ChildrenNames)

	deleted, err := regs.DeleteAtomic(ctx, reg.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, deleted.AttendeeCount)

	reloaded, err := NewEventRepository(db).FindByID(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, reloaded.CurrentAttendees)

	_, err = regs.DeleteAtomic(ctx, reg.ID)
	assert.ErrorIs(t, err, model.ErrNotFound)
	_, err = regs.FindByID(ctx, reg.ID)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestReminderRepository_ClaimOnce(t *testing.T) {
	db := requireDB(t)
	ctx := context.Background()
	event := newTestEvent(t, db, nil, model.EventTypeEvent)
	repo := NewReminderRepository(db)

	claimed, err := repo.Claim(ctx, event.ID, event.Date)
	require.NoError(t, err)
	assert.True(t, claimed)

	claimed, err = repo.Claim(ctx, event.ID, event.Date)
	require.NoError(t, err)
	assert.False(t, claimed)

	pruned, err := repo.PruneBefore(ctx, event.Date.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, pruned, int64(1))

	exists, err := repo.Exists(ctx, event.ID, event.Date)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestUserRepository_AuthenticateAndRotate(t *testing.T) {
	db := requireDB(t)
	ctx := context.Background()
	users := NewUserRepository(db, 10)

	_, err := users.EnsureAdmin(ctx, "Admin@Example.org", "first-password", "Admin")
	require.NoError(t, err)

	user, err := users.Authenticate(ctx, "admin@example.org", "first-password")
	require.NoError(t, err)
	assert.Equal(t, model.UserRoleAdmin, user.Role)

	_, err = users.Authenticate(ctx, " ADMIN@EXAMPLE.ORG ", "first-password")
	assert.NoError(t, err)

	_, err = users.Authenticate(ctx, "admin@example.org", "wrong")
	assert.ErrorIs(t, err, model.ErrInvalidCredentials)
	_, err = users.Authenticate(ctx, "nobody@example.org", "first-password")
	assert.ErrorIs(t, err, model.ErrInvalidCredentials)

	require.NoError(t, users.UpdatePassword(ctx, user.ID, "second-password"))
	_, err = users.Authenticate(ctx, "admin@example.org", "second-password")
	assert.NoError(t, err)

	_, err = users.Create(ctx, &model.CreateUserRequest{Username: "admin@example.org", Password: "x", Name: "Dup"})
	assert.ErrorIs(t, err, model.ErrConflict)
}

func TestContactRepository_StatusFlow(t *testing.T) {
	db := requireDB(t)
	ctx := context.Background()
	repo := NewContactRepository(db)

	msg, err := repo.Create(ctx, &model.ContactRequest{Name: "Per", Email: "per@example.org", Message: "Hei"})
	require.NoError(t, err)
	assert.Equal(t, model.ContactStatusNew, msg.Status)

	updated, err := repo.UpdateStatus(ctx, msg.ID, model.ContactStatusResponded)
	require.NoError(t, err)
	assert.Equal(t, model.ContactStatusResponded, updated.Status)

	responded, err := repo.List(ctx, model.ContactStatusResponded)
	require.NoError(t, err)
	assert.NotEmpty(t, responded)
}

func TestNotificationRepository_Record(t *testing.T) {
	db := requireDB(t)
	ctx := context.Background()
	repo := NewNotificationRepository(db)
	event := newTestEvent(t, db, nil, model.EventTypeEvent)

	msg := "smtp down"
	require.NoError(t, repo.Record(ctx, &model.NotificationRecord{
		Kind: model.NotificationReminder, EventID: event.ID, Recipient: "a@example.org",
		Status: model.NotificationStatusFailed, Error: &msg,
	}))

	records, err := repo.FindByEvent(ctx, event.ID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "", records[0].RegistrationID)
	assert.Equal(t, model.NotificationStatusFailed, records[0].Status)

	failed, err := repo.CountByStatus(ctx, model.NotificationStatusFailed)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, failed, 1)

	recent, err := repo.FindRecent(ctx, 10)
	require.NoError(t, err)
	assert.NotEmpty(t, recent)

	removed, err := repo.DeleteOld(ctx, time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, removed, int64(1))

	records, err = repo.FindByEvent(ctx, event.ID)
	require.NoError(t, err)
	assert.Empty(t, records)
}

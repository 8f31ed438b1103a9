package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"eventhub/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type eventFixture struct {
	events     *fakeEventRepo
	sessions   *fakeSessionRepo
	assistants *fakeAssistantRepo
	users      *fakeUserRepo
	index      *fakeIndex
	locker     *fakeLocker
	svc        domain.EventService
}

func newEventFixture() *eventFixture {
	f := &eventFixture{
		events:     newFakeEventRepo(),
		sessions:   newFakeSessionRepo(),
		assistants: newFakeAssistantRepo(),
		users:      newFakeUserRepo(),
		index:      newFakeIndex(),
		locker:     newFakeLocker(),
	}
	f.svc = NewEventService(f.events, f.sessions, f.assistants, f.users, f.index, f.locker, testLogger, testTimeout)
	return f
}

func day(hour int) time.Time {
	return time.Date(2025, 1, 2, hour, 0, 0, 0, time.UTC)
}

func validEventInput() *domain.EventInput {
	return &domain.EventInput{
		Title:          "Go Conf",
		Description:    "A day of Go talks",
		StartDate:      day(9),
		EndDate:        day(17),
		AssistantLimit: 20,
		Metadata:       map[string]any{"location": "Bogota"},
	}
}

func ptr[T any](v T) *T { return &v }

func TestEventService_CreateEvent(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		mutate   func(in *domain.EventInput)
		wantKind error
		wantMsg  string
	}{
		{name: "success", mutate: func(in *domain.EventInput) {}},
		{name: "blank title", mutate: func(in *domain.EventInput) { in.Title = "   " }, wantKind: domain.ErrInvalidInput, wantMsg: "title"},
		{name: "description too long", mutate: func(in *domain.EventInput) {
			in.Description = strings.Repeat("w ", domain.MaxDescriptionWords+1)
		}, wantKind: domain.ErrInvalidInput, wantMsg: "description"},
		{name: "end before start", mutate: func(in *domain.EventInput) { in.EndDate = day(8) }, wantKind: domain.ErrInvalidInput, wantMsg: "end_date"},
		{name: "zero length ok", mutate: func(in *domain.EventInput) { in.EndDate = in.StartDate }},
		{name: "limit not above ten", mutate: func(in *domain.EventInput) { in.AssistantLimit = 10 }, wantKind: domain.ErrInvalidInput, wantMsg: "assistant_limit"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newEventFixture()
			in := validEventInput()
			tt.mutate(in)

			ev, err := f.svc.CreateEvent(ctx, in, "user-1")
			if tt.wantKind != nil {
				require.ErrorIs(t, err, tt.wantKind)
				assert.Contains(t, err.Error(), tt.wantMsg)
				assert.Zero(t, f.events.creates, "nothing stored on validation failure")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "ev-1", ev.ID)
			assert.Equal(t, domain.EventStatusPending, ev.Status)
			assert.True(t, ev.Active)
			assert.Equal(t, "user-1", ev.CreatedByID)
			assert.Equal(t, 1, f.locker.acquired[domain.EventsLockScope])
			require.Contains(t, f.index.docs, ev.ID)
			assert.Equal(t, "PENDING", f.index.docs[ev.ID].Status)
		})
	}
}

func TestEventService_CreateEvent_Overlap(t *testing.T) {
	ctx := context.Background()
	f := newEventFixture()

	first, err := f.svc.CreateEvent(ctx, validEventInput(), "user-1")
	require.NoError(t, err)

	second := validEventInput()
	second.StartDate = day(16)
	second.EndDate = day(20)
	_, err = f.svc.CreateEvent(ctx, second, "user-1")
	require.ErrorIs(t, err, domain.ErrConflict)

	// touching boundary counts as overlap
	touching := validEventInput()
	touching.StartDate = day(17)
	touching.EndDate = day(18)
	_, err = f.svc.CreateEvent(ctx, touching, "user-1")
	require.ErrorIs(t, err, domain.ErrConflict)

	later := validEventInput()
	later.StartDate = day(18)
	later.EndDate = day(20)
	_, err = f.svc.CreateEvent(ctx, later, "user-1")
	require.NoError(t, err)

	// a deleted event no longer blocks its slot
	require.NoError(t, f.svc.DeleteEvent(ctx, first.ID))
	_, err = f.svc.CreateEvent(ctx, second, "user-1")
	require.ErrorIs(t, err, domain.ErrConflict, "still overlaps the 18:00 event")
	second.EndDate = day(17)
	_, err = f.svc.CreateEvent(ctx, second, "user-1")
	require.NoError(t, err)
}

func TestEventService_CreateEvent_LockError(t *testing.T) {
	f := newEventFixture()
	f.locker.err = errors.New("redis down")

	_, err := f.svc.CreateEvent(context.Background(), validEventInput(), "user-1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrConflict)
	assert.Zero(t, f.events.creates)
}

func TestEventService_GetEventByID_RoundTrip(t *testing.T) {
	ctx := context.Background()
	f := newEventFixture()

	created, err := f.svc.CreateEvent(ctx, validEventInput(), "user-1")
	require.NoError(t, err)

	got, err := f.svc.GetEventByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, got)

	_, err = f.svc.GetEventByID(ctx, "missing")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestEventService_UpdateEvent(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		status   domain.EventStatus
		upd      domain.EventUpdate
		wantKind error
		check    func(t *testing.T, ev *domain.Event)
	}{
		{
			name: "title change",
			upd:  domain.EventUpdate{Title: ptr("Go Conf 2")},
			check: func(t *testing.T, ev *domain.Event) {
				assert.Equal(t, "Go Conf 2", ev.Title)
			},
		},
		{
			name: "status pending to in progress",
			upd:  domain.EventUpdate{Status: ptr(domain.EventStatusInProgress)},
			check: func(t *testing.T, ev *domain.Event) {
				assert.Equal(t, domain.EventStatusInProgress, ev.Status)
			},
		},
		{
			name:     "status self transition",
			upd:      domain.EventUpdate{Status: ptr(domain.EventStatusPending)},
			wantKind: domain.ErrInvalidInput,
		},
		{
			name:     "status pending to finished",
			upd:      domain.EventUpdate{Status: ptr(domain.EventStatusFinished)},
			wantKind: domain.ErrInvalidInput,
		},
		{
			name:     "finished event is frozen",
			status:   domain.EventStatusFinished,
			upd:      domain.EventUpdate{Title: ptr("renamed")},
			wantKind: domain.ErrInvalidState,
		},
		{
			name:     "end moved before start",
			upd:      domain.EventUpdate{EndDate: ptr(day(8))},
			wantKind: domain.ErrInvalidInput,
		},
		{
			name:     "extends into next event",
			upd:      domain.EventUpdate{EndDate: ptr(day(19))},
			wantKind: domain.ErrConflict,
		},
		{
			name: "shift within own slot does not self-conflict",
			upd:  domain.EventUpdate{StartDate: ptr(day(10)), EndDate: ptr(day(16))},
			check: func(t *testing.T, ev *domain.Event) {
				assert.Equal(t, day(10), ev.StartDate)
			},
		},
		{
			name:     "limit lowered to ten",
			upd:      domain.EventUpdate{AssistantLimit: ptr(10)},
			wantKind: domain.ErrInvalidInput,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newEventFixture()
			ev := f.events.put(&domain.Event{Title: "Go Conf", StartDate: day(9), EndDate: day(17), AssistantLimit: 20, Status: tt.status})
			f.events.put(&domain.Event{Title: "Next", StartDate: day(18), EndDate: day(20), AssistantLimit: 20})
			before := *f.events.byID[ev.ID]

			got, err := f.svc.UpdateEvent(ctx, ev.ID, tt.upd)
			if tt.wantKind != nil {
				require.ErrorIs(t, err, tt.wantKind)
				assert.Equal(t, before, *f.events.byID[ev.ID], "failed update must not change the event")
				assert.Zero(t, f.events.updates)
				return
			}
			require.NoError(t, err)
			tt.check(t, got)
			stored, err := f.events.GetByID(ctx, ev.ID)
			require.NoError(t, err)
			assert.Equal(t, got, stored)
		})
	}
}

func TestEventService_UpdateEvent_SessionsMustStayInside(t *testing.T) {
	ctx := context.Background()
	f := newEventFixture()
	ev := f.events.put(&domain.Event{Title: "Go Conf", StartDate: day(9), EndDate: day(17), AssistantLimit: 20})
	f.sessions.byID["sess-1"] = &domain.Session{ID: "sess-1", EventID: ev.ID, Title: "Keynote", StartDate: day(9), EndDate: day(10), Active: true}

	_, err := f.svc.UpdateEvent(ctx, ev.ID, domain.EventUpdate{StartDate: ptr(day(11))})
	require.ErrorIs(t, err, domain.ErrConflict)

	_, err = f.svc.UpdateEvent(ctx, ev.ID, domain.EventUpdate{EndDate: ptr(day(12))})
	require.NoError(t, err)
}

func TestEventService_DeleteEvent(t *testing.T) {
	ctx := context.Background()
	f := newEventFixture()
	ev := f.events.put(&domain.Event{Title: "Go Conf", StartDate: day(9), EndDate: day(17), AssistantLimit: 20})

	require.NoError(t, f.svc.DeleteEvent(ctx, ev.ID))
	assert.False(t, f.events.byID[ev.ID].Active)
	assert.Equal(t, []string{ev.ID}, f.index.removed)

	_, err := f.svc.GetEventByID(ctx, ev.ID)
	require.ErrorIs(t, err, domain.ErrNotFound)
	require.ErrorIs(t, f.svc.DeleteEvent(ctx, ev.ID), domain.ErrNotFound)
}

func TestEventService_Search(t *testing.T) {
	ctx := context.Background()
	f := newEventFixture()
	a := f.events.put(&domain.Event{Title: "A", StartDate: day(1), EndDate: day(2), AssistantLimit: 20})
	b := f.events.put(&domain.Event{Title: "B", StartDate: day(3), EndDate: day(4), AssistantLimit: 20})
	gone := f.events.put(&domain.Event{Title: "Gone", StartDate: day(5), EndDate: day(6), AssistantLimit: 20})
	f.events.byID[gone.ID].Active = false
	f.index.searchIDs = []string{b.ID, "unknown", gone.ID, a.ID}

	got, err := f.svc.Search(ctx, "conf", domain.SearchFilter{})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "B", got[0].Title, "rank order kept")
	assert.Equal(t, "A", got[1].Title)

	f.index.searchErr = errors.New("es down")
	_, err = f.svc.Search(ctx, "conf", domain.SearchFilter{})
	require.Error(t, err)
}

func TestEventService_IsFull(t *testing.T) {
	ctx := context.Background()
	f := newEventFixture()
	ev := f.events.put(&domain.Event{Title: "Go Conf", StartDate: day(9), EndDate: day(17), AssistantLimit: 11})
	for i := 0; i < 11; i++ {
		f.assistants.put(&domain.Assistant{EventID: ev.ID})
	}

	full, err := f.svc.IsFull(ctx, ev.ID)
	require.NoError(t, err)
	assert.False(t, full, "count == limit")

	f.assistants.put(&domain.Assistant{EventID: ev.ID})
	full, err = f.svc.IsFull(ctx, ev.ID)
	require.NoError(t, err)
	assert.True(t, full)
}

func TestEventService_GetCreatorEmail(t *testing.T) {
	ctx := context.Background()
	f := newEventFixture()
	u := f.users.put(&domain.User{Email: "owner@example.com"}, "")
	ev := f.events.put(&domain.Event{Title: "Go Conf", StartDate: day(9), EndDate: day(17), AssistantLimit: 20, CreatedByID: u.ID})

	email, err := f.svc.GetCreatorEmail(ctx, ev.ID)
	require.NoError(t, err)
	assert.Equal(t, "owner@example.com", email)

	title, err := f.svc.GetTitle(ctx, ev.ID)
	require.NoError(t, err)
	assert.Equal(t, "Go Conf", title)
}

func TestEventService_IndexFailureDoesNotFailCreate(t *testing.T) {
	f := newEventFixture()
	f.index.indexErr = errors.New("es down")

	ev, err := f.svc.CreateEvent(context.Background(), validEventInput(), "user-1")
	require.NoError(t, err)
	assert.NotEmpty(t, ev.ID)
}

func TestEventService_UpdateEvent_DateChangeHoldsSessionsScope(t *testing.T) {
	ctx := context.Background()
	f := newEventFixture()
	ev := f.events.put(&domain.Event{Title: "Go Conf", StartDate: day(9), EndDate: day(17), AssistantLimit: 20})

	var heldDuringFitCheck bool
	f.locker.onAcquire = func(scope string) {
		if scope == domain.SessionsLockScope(ev.ID) {
			heldDuringFitCheck = f.locker.held[domain.EventsLockScope]
		}
	}
	_, err := f.svc.UpdateEvent(ctx, ev.ID, domain.EventUpdate{EndDate: ptr(day(12))})
	require.NoError(t, err)
	assert.Equal(t, 1, f.locker.acquired[domain.EventsLockScope])
	assert.Equal(t, 1, f.locker.acquired[domain.SessionsLockScope(ev.ID)])
	assert.True(t, heldDuringFitCheck, "events scope taken first")

	_, err = f.svc.UpdateEvent(ctx, ev.ID, domain.EventUpdate{Title: ptr("Go Conf 2")})
	require.NoError(t, err)
	assert.Equal(t, 1, f.locker.acquired[domain.SessionsLockScope(ev.ID)], "no lock without date changes")
}

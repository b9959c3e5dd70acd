package store

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"volunteerhub/internal/models"
)

// runStoreSuite exercises the behaviour every Store implementation must share
func runStoreSuite(t *testing.T, newStore func(t *testing.T) Store) {
	t.Run("EventRoundTrip", func(t *testing.T) { testEventRoundTrip(t, newStore(t)) })
	t.Run("ListEventsFilters", func(t *testing.T) { testListEventsFilters(t, newStore(t)) })
	t.Run("ConditionalStatus", func(t *testing.T) { testConditionalStatus(t, newStore(t)) })
	t.Run("Reschedule", func(t *testing.T) { testReschedule(t, newStore(t)) })
	t.Run("RegistrantSet", func(t *testing.T) { testRegistrantSet(t, newStore(t)) })
	t.Run("ConcurrentRegistrants", func(t *testing.T) { testConcurrentRegistrants(t, newStore(t)) })
	t.Run("LikesAndComments", func(t *testing.T) { testLikesAndComments(t, newStore(t)) })
	t.Run("ReminderLedger", func(t *testing.T) { testReminderLedger(t, newStore(t)) })
	t.Run("ConcurrentReminderClaim", func(t *testing.T) { testConcurrentReminderClaim(t, newStore(t)) })
	t.Run("Registrations", func(t *testing.T) { testRegistrations(t, newStore(t)) })
	t.Run("RegistrationOrderSameInstant", func(t *testing.T) { testRegistrationOrderSameInstant(t, newStore(t)) })
	t.Run("DeleteCascades", func(t *testing.T) { testDeleteCascades(t, newStore(t)) })
	t.Run("Accounts", func(t *testing.T) { testAccounts(t, newStore(t)) })
}

func newTestEvent(status models.EventStatus, start time.Time) *models.Event {
	return &models.Event{
		ID:        uuid.New().String(),
		Name:      "Beach cleanup",
		Location:  "North shore",
		StartDate: start,
		EndDate:   start.Add(4 * time.Hour),
		Status:    status,
		CreatorID: "ngo-1",
	}
}

func baseTime() time.Time {
	return time.Now().UTC().Truncate(time.Second).Add(72 * time.Hour)
}

func testEventRoundTrip(t *testing.T, s Store) {
	ctx := context.Background()
	event := newTestEvent(models.StatusPending, baseTime())
	require.NoError(t, s.CreateEvent(ctx, event))

	got, err := s.GetEvent(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, event.Name, got.Name)
	assert.Equal(t, models.StatusPending, got.Status)
	assert.True(t, event.StartDate.Equal(got.StartDate))
	assert.Empty(t, got.Registrants)
	assert.Empty(t, got.RemindersSent)

	_, err = s.GetEvent(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, s.CreateEvent(ctx, event), ErrDuplicate)
}

func testListEventsFilters(t *testing.T, s Store) {
	ctx := context.Background()
	base := baseTime()

	late := newTestEvent(models.StatusApproved, base.Add(48*time.Hour))
	early := newTestEvent(models.StatusApproved, base)
	pending := newTestEvent(models.StatusPending, base.Add(24*time.Hour))
	pending.CreatorID = "ngo-2"
	for _, e := range []*models.Event{late, early, pending} {
		require.NoError(t, s.CreateEvent(ctx, e))
	}

	all, err := s.ListEvents(ctx, EventFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, early.ID, all[0].ID)
	assert.Equal(t, pending.ID, all[1].ID)
	assert.Equal(t, late.ID, all[2].ID)

	approved, err := s.ListEvents(ctx, EventFilter{Status: models.StatusApproved})
	require.NoError(t, err)
	assert.Len(t, approved, 2)

	mine, err := s.ListEvents(ctx, EventFilter{CreatorID: "ngo-2"})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, pending.ID, mine[0].ID)

	upcoming, err := s.ListEvents(ctx, EventFilter{StartsAfter: base.Add(time.Hour)})
	require.NoError(t, err)
	assert.Len(t, upcoming, 2)
}

func testConditionalStatus(t *testing.T, s Store) {
	ctx := context.Background()
	event := newTestEvent(models.StatusPending, baseTime())
	require.NoError(t, s.CreateEvent(ctx, event))

	updated, err := s.UpdateEventStatus(ctx, event.ID, models.StatusPending, models.StatusApproved)
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, updated.Status)

	current, err := s.UpdateEventStatus(ctx, event.ID, models.StatusPending, models.StatusRejected)
	assert.ErrorIs(t, err, ErrStatusMismatch)
	require.NotNil(t, current)
	assert.Equal(t, models.StatusApproved, current.Status)

	_, err = s.UpdateEventStatus(ctx, "missing", models.StatusPending, models.StatusApproved)
	assert.ErrorIs(t, err, ErrNotFound)
}

func testReschedule(t *testing.T, s Store) {
	ctx := context.Background()
	event := newTestEvent(models.StatusApproved, baseTime())
	require.NoError(t, s.CreateEvent(ctx, event))

	claimed, err := s.MarkReminderSent(ctx, event.ID, models.ReminderDispatch{OffsetDays: 2, SentAt: time.Now().UTC()})
	require.NoError(t, err)
	require.True(t, claimed)

	start := event.StartDate.Add(7 * 24 * time.Hour)
	end := start.Add(2 * time.Hour)
	updated, err := s.RescheduleEvent(ctx, event.ID, start, end)
	require.NoError(t, err)
	assert.True(t, start.Equal(updated.StartDate))
	assert.True(t, end.Equal(updated.EndDate))
	assert.Empty(t, updated.RemindersSent)

	pending := newTestEvent(models.StatusPending, baseTime())
	require.NoError(t, s.CreateEvent(ctx, pending))
	_, err = s.RescheduleEvent(ctx, pending.ID, start, end)
	assert.ErrorIs(t, err, ErrStatusMismatch)
}

func testRegistrantSet(t *testing.T, s Store) {
	ctx := context.Background()
	event := newTestEvent(models.StatusApproved, baseTime())
	require.NoError(t, s.CreateEvent(ctx, event))

	require.NoError(t, s.AddRegistrant(ctx, event.ID, "vol-1"))
	require.NoError(t, s.AddRegistrant(ctx, event.ID, "vol-1"))
	require.NoError(t, s.AddRegistrant(ctx, event.ID, "vol-2"))

	got, err := s.GetEvent(ctx, event.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"vol-1", "vol-2"}, []string(got.Registrants))

	require.NoError(t, s.RemoveRegistrant(ctx, event.ID, "vol-1"))
	require.NoError(t, s.RemoveRegistrant(ctx, event.ID, "vol-1"))

	got, err = s.GetEvent(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"vol-2"}, []string(got.Registrants))

	assert.ErrorIs(t, s.AddRegistrant(ctx, "missing", "vol-1"), ErrNotFound)
}

func testConcurrentRegistrants(t *testing.T, s Store) {
	ctx := context.Background()
	event := newTestEvent(models.StatusApproved, baseTime())
	require.NoError(t, s.CreateEvent(ctx, event))

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, s.AddRegistrant(ctx, event.ID, fmt.Sprintf("vol-%d", i)))
		}(i)
	}
	wg.Wait()

	got, err := s.GetEvent(ctx, event.ID)
	require.NoError(t, err)
	assert.Len(t, got.Registrants, n)
}

func testLikesAndComments(t *testing.T, s Store) {
	ctx := context.Background()
	event := newTestEvent(models.StatusApproved, baseTime())
	require.NoError(t, s.CreateEvent(ctx, event))

	require.NoError(t, s.AddLike(ctx, event.ID, "vol-1"))
	require.NoError(t, s.AddLike(ctx, event.ID, "vol-1"))
	require.NoError(t, s.AddComment(ctx, event.ID, models.Comment{
		ID:        "c-1",
		AuthorID:  "vol-1",
		Text:      "Count me in",
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}))

	got, err := s.GetEvent(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"vol-1"}, []string(got.Likes))
	require.Len(t, got.Comments, 1)
	assert.Equal(t, "Count me in", got.Comments[0].Text)

	require.NoError(t, s.RemoveLike(ctx, event.ID, "vol-1"))
	got, err = s.GetEvent(ctx, event.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Likes)
}

func testReminderLedger(t *testing.T, s Store) {
	ctx := context.Background()
	event := newTestEvent(models.StatusApproved, baseTime())
	require.NoError(t, s.CreateEvent(ctx, event))

	dispatch := models.ReminderDispatch{OffsetDays: 5, SentAt: time.Now().UTC(), Recipients: 3}
	claimed, err := s.MarkReminderSent(ctx, event.ID, dispatch)
	require.NoError(t, err)
	assert.True(t, claimed)

	claimed, err = s.MarkReminderSent(ctx, event.ID, dispatch)
	require.NoError(t, err)
	assert.False(t, claimed)

	claimed, err = s.MarkReminderSent(ctx, event.ID, models.ReminderDispatch{OffsetDays: 2, SentAt: time.Now().UTC()})
	require.NoError(t, err)
	assert.True(t, claimed)

	got, err := s.GetEvent(ctx, event.ID)
	require.NoError(t, err)
	assert.Len(t, got.RemindersSent, 2)
	assert.True(t, got.ReminderSent(5))
	assert.True(t, got.ReminderSent(2))

	_, err = s.MarkReminderSent(ctx, "missing", dispatch)
	assert.ErrorIs(t, err, ErrNotFound)
}

func testConcurrentReminderClaim(t *testing.T, s Store) {
	ctx := context.Background()
	event := newTestEvent(models.StatusApproved, baseTime())
	require.NoError(t, s.CreateEvent(ctx, event))

	const n = 10
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			claimed, err := s.MarkReminderSent(ctx, event.ID, models.ReminderDispatch{OffsetDays: 5, SentAt: time.Now().UTC()})
			assert.NoError(t, err)
			if claimed {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, winners)
}

func testRegistrations(t *testing.T, s Store) {
	ctx := context.Background()
	event := newTestEvent(models.StatusApproved, baseTime())
	require.NoError(t, s.CreateEvent(ctx, event))

	for i, volunteer := range []string{"vol-b", "vol-a", "vol-c"} {
		require.NoError(t, s.CreateRegistration(ctx, &models.Registration{
			ID:             uuid.New().String(),
			VolunteerID:    volunteer,
			EventID:        event.ID,
			EventCreatorID: event.CreatorID,
			Name:           fmt.Sprintf("Volunteer %d", i),
			Notify:         true,
			CreatedAt:      time.Now().UTC().Add(time.Duration(i) * time.Second),
		}))
	}

	err := s.CreateRegistration(ctx, &models.Registration{
		ID:          uuid.New().String(),
		VolunteerID: "vol-a",
		EventID:     event.ID,
		Name:        "Again",
	})
	assert.ErrorIs(t, err, ErrDuplicate)

	regs, err := s.ListRegistrations(ctx, event.ID)
	require.NoError(t, err)
	require.Len(t, regs, 3)
	assert.Equal(t, "vol-b", regs[0].VolunteerID)
	assert.Equal(t, "vol-a", regs[1].VolunteerID)
	assert.Equal(t, "vol-c", regs[2].VolunteerID)

	require.NoError(t, s.UpdateRegistrationNotify(ctx, event.ID, "vol-a", false))
	reg, err := s.GetRegistration(ctx, event.ID, "vol-a")
	require.NoError(t, err)
	assert.False(t, reg.Notify)

	require.NoError(t, s.DeleteRegistration(ctx, event.ID, "vol-a"))
	_, err = s.GetRegistration(ctx, event.ID, "vol-a")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.DeleteRegistration(ctx, event.ID, "vol-a"), ErrNotFound)
	assert.ErrorIs(t, s.UpdateRegistrationNotify(ctx, event.ID, "vol-a", true), ErrNotFound)
}

// Registrations created within the same clock tick still list in insertion
// order, and a re-created registration keeps its sequence.
func testRegistrationOrderSameInstant(t *testing.T, s Store) {
	ctx := context.Background()
	event := newTestEvent(models.StatusApproved, baseTime())
	require.NoError(t, s.CreateEvent(ctx, event))

	at := time.Now().UTC().Truncate(time.Second)
	volunteers := []string{"vol-m", "vol-z", "vol-a", "vol-q", "vol-b", "vol-y"}
	for _, volunteer := range volunteers {
		require.NoError(t, s.CreateRegistration(ctx, &models.Registration{
			ID:          uuid.New().String(),
			VolunteerID: volunteer,
			EventID:     event.ID,
			Name:        volunteer,
			CreatedAt:   at,
		}))
	}

	order := func() []string {
		regs, err := s.ListRegistrations(ctx, event.ID)
		require.NoError(t, err)
		ids := make([]string, len(regs))
		for i, r := range regs {
			ids[i] = r.VolunteerID
		}
		return ids
	}
	assert.Equal(t, volunteers, order())

	reg, err := s.GetRegistration(ctx, event.ID, "vol-a")
	require.NoError(t, err)
	require.NotZero(t, reg.Seq)
	require.NoError(t, s.DeleteRegistration(ctx, event.ID, "vol-a"))
	require.NoError(t, s.CreateRegistration(ctx, reg))
	assert.Equal(t, volunteers, order())
}

func testDeleteCascades(t *testing.T, s Store) {
	ctx := context.Background()
	event := newTestEvent(models.StatusApproved, baseTime())
	require.NoError(t, s.CreateEvent(ctx, event))
	require.NoError(t, s.CreateRegistration(ctx, &models.Registration{
		ID:          uuid.New().String(),
		VolunteerID: "vol-1",
		EventID:     event.ID,
		Name:        "Volunteer",
	}))
	other := newTestEvent(models.StatusApproved, baseTime())
	require.NoError(t, s.CreateEvent(ctx, other))
	require.NoError(t, s.CreateRegistration(ctx, &models.Registration{
		ID:          uuid.New().String(),
		VolunteerID: "vol-1",
		EventID:     other.ID,
		Name:        "Volunteer",
	}))

	require.NoError(t, s.DeleteEvent(ctx, event.ID))

	kept, err := s.ListRegistrations(ctx, other.ID)
	require.NoError(t, err)
	assert.Len(t, kept, 1)

	_, err = s.GetEvent(ctx, event.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	regs, err := s.ListRegistrations(ctx, event.ID)
	require.NoError(t, err)
	assert.Empty(t, regs)

	assert.ErrorIs(t, s.DeleteEvent(ctx, event.ID), ErrNotFound)
}

func testAccounts(t *testing.T, s Store) {
	ctx := context.Background()
	account := &models.Account{ID: "acc-1", Role: models.RoleVolunteer, Name: "Ana", Email: "ana@example.com"}
	require.NoError(t, s.UpsertAccount(ctx, account))
	created := account.CreatedAt
	assert.False(t, created.IsZero())

	account.Name = "Ana Maria"
	require.NoError(t, s.UpsertAccount(ctx, account))

	got, err := s.GetAccount(ctx, "acc-1")
	require.NoError(t, err)
	assert.Equal(t, "Ana Maria", got.Name)
	assert.WithinDuration(t, created, got.CreatedAt, time.Second)

	byEmail, err := s.GetAccountByEmail(ctx, "ana@example.com")
	require.NoError(t, err)
	assert.Equal(t, "acc-1", byEmail.ID)

	other := &models.Account{ID: "acc-2", Role: models.RoleNGO, Name: "Shore NGO", Email: "ana@example.com"}
	assert.ErrorIs(t, s.UpsertAccount(ctx, other), ErrDuplicate)

	_, err = s.GetAccount(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

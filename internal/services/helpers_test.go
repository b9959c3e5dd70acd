package services

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"volunteerhub/internal/models"
	"volunteerhub/internal/notify"
	"volunteerhub/internal/store"
)

var (
	admin     = models.Actor{ID: "admin-1", Role: models.RoleAdmin}
	ngo       = models.Actor{ID: "ngo-1", Role: models.RoleNGO}
	otherNGO  = models.Actor{ID: "ngo-2", Role: models.RoleNGO}
	volunteer = models.Actor{ID: "vol-1", Role: models.RoleVolunteer}
	anonymous = models.Actor{}
)

// tick time used by most tests: 09:00 UTC
var day0 = time.Date(2030, time.March, 10, 9, 0, 0, 0, time.UTC)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

type testEnv struct {
	store    store.Store
	notifier *notify.Recorder
	clock    *testClock
	events   *EventService
	regs     *RegistrationService
	worker   *ReminderWorker
}

func newBoltStore(t *testing.T) store.Store {
	t.Helper()
	s, err := store.NewBoltStore(filepath.Join(t.TempDir(), "services.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func newTestEnv(t *testing.T) *testEnv {
	return newTestEnvWithStore(t, newBoltStore(t))
}

func newTestEnvWithStore(t *testing.T, st store.Store) *testEnv {
	t.Helper()
	env := &testEnv{
		store:    st,
		notifier: notify.NewRecorder(),
		clock:    &testClock{now: day0},
	}
	env.events = NewEventService(st, env.notifier, nil)
	env.events.now = env.clock.Now
	env.regs = NewRegistrationService(st, env.notifier, time.UTC)
	env.regs.now = env.clock.Now
	env.worker = env.newWorker()

	ctx := context.Background()
	for _, a := range []models.Account{
		{ID: admin.ID, Role: models.RoleAdmin, Name: "Admin", Email: "admin@example.com"},
		{ID: ngo.ID, Role: models.RoleNGO, Name: "Shore Keepers", Email: "ngo@example.com"},
		{ID: otherNGO.ID, Role: models.RoleNGO, Name: "Park Friends", Email: "park@example.com"},
		{ID: volunteer.ID, Role: models.RoleVolunteer, Name: "Ana", Email: "ana@example.com"},
	} {
		account := a
		require.NoError(t, st.UpsertAccount(ctx, &account))
	}
	return env
}

// newWorker builds another worker on the same store, as a restarted process would
func (env *testEnv) newWorker() *ReminderWorker {
	w := NewReminderWorker(env.store, env.notifier, []int{5, 2}, time.UTC)
	w.now = env.clock.Now
	return w
}

func (env *testEnv) addVolunteer(t *testing.T, id string) models.Actor {
	t.Helper()
	require.NoError(t, env.store.UpsertAccount(context.Background(), &models.Account{
		ID: id, Role: models.RoleVolunteer, Name: id, Email: id + "@example.com",
	}))
	return models.Actor{ID: id, Role: models.RoleVolunteer}
}

func eventRequest(start time.Time) models.CreateEventRequest {
	return models.CreateEventRequest{
		Name:      "Beach cleanup",
		Location:  "North shore",
		StartDate: start,
		EndDate:   start.Add(3 * time.Hour),
	}
}

// createApproved creates an event starting at start and approves it
func (env *testEnv) createApproved(t *testing.T, start time.Time) *models.Event {
	t.Helper()
	ctx := context.Background()
	event, err := env.events.Create(ctx, ngo, eventRequest(start))
	require.NoError(t, err)
	event, err = env.events.Approve(ctx, admin, event.ID)
	require.NoError(t, err)
	env.notifier.Reset()
	return event
}

func (env *testEnv) register(t *testing.T, actor models.Actor, eventID string, optIn bool) *models.Registration {
	t.Helper()
	reg, err := env.regs.Register(context.Background(), actor, eventID, models.RegisterRequest{
		Name:   actor.ID,
		Notify: &optIn,
	})
	require.NoError(t, err)
	return reg
}

func boolPtr(b bool) *bool { return &b }

func timePtr(t time.Time) *time.Time { return &t }

// faultyStore injects failures into selected store calls
type faultyStore struct {
	store.Store
	addRegistrantErr    error
	removeRegistrantErr error
	panicListFor        string
}

func (f *faultyStore) AddRegistrant(ctx context.Context, eventID, volunteerID string) error {
	if f.addRegistrantErr != nil {
		return f.addRegistrantErr
	}
	return f.Store.AddRegistrant(ctx, eventID, volunteerID)
}

func (f *faultyStore) RemoveRegistrant(ctx context.Context, eventID, volunteerID string) error {
	if f.removeRegistrantErr != nil {
		return f.removeRegistrantErr
	}
	return f.Store.RemoveRegistrant(ctx, eventID, volunteerID)
}

func (f *faultyStore) ListRegistrations(ctx context.Context, eventID string) ([]*models.Registration, error) {
	if eventID == f.panicListFor {
		panic("registration index corrupted")
	}
	return f.Store.ListRegistrations(ctx, eventID)
}

package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/rundownapp/rundown/internal/db/dbtest"
	"github.com/rundownapp/rundown/internal/message"
	"github.com/rundownapp/rundown/internal/model"
	"github.com/rundownapp/rundown/internal/repository"
)

// Monday 1 April 2024 starts the week most tests run in.
var (
	weekStart = time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	wednesday = time.Date(2024, 4, 3, 9, 0, 0, 0, time.UTC)
	sunday    = time.Date(2024, 4, 7, 21, 0, 0, 0, time.UTC)
)

type testEnv struct {
	users      repository.UserRepository
	goalRepo   repository.GoalRepository
	activities repository.ActivityRepository
	contacts   repository.ContactRepository
	queue      repository.QueueRepository
	deliveries repository.DeliveryRepository
	strava     repository.StravaRepository
	events     repository.EventRepository

	goals    *GoalService
	progress *ProgressService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	database := dbtest.New(t)

	env := &testEnv{
		users:      repository.NewUserRepository(database),
		goalRepo:   repository.NewGoalRepository(database),
		activities: repository.NewActivityRepository(database),
		contacts:   repository.NewContactRepository(database),
		queue:      repository.NewQueueRepository(database),
		deliveries: repository.NewDeliveryRepository(database),
		strava:     repository.NewStravaRepository(database),
		events:     repository.NewEventRepository(database),
	}
	env.goals = NewGoalService(env.goalRepo, env.users, env.events)
	env.progress = NewProgressService(env.activities)
	return env
}

func (e *testEnv) createUser(t *testing.T, mutate func(u *model.User)) *model.User {
	t.Helper()
	id := uuid.New().String()
	user := &model.User{
		ID:                   id,
		Email:                "user-" + id[:8] + "@example.com",
		Name:                 "Alex",
		MessageStyle:         "supportive",
		NotificationEnabled:  true,
		SendDay:              "wednesday",
		Timezone:             "UTC",
		MaxMessagesPerPeriod: 1,
		CreatedAt:            weekStart.AddDate(0, -1, 0),
	}
	if mutate != nil {
		mutate(user)
	}
	require.NoError(t, e.users.Create(context.Background(), user))
	return user
}

// setGoal records a goal that is already in effect at weekStart.
func (e *testEnv) setGoal(t *testing.T, userID, goalType string, target float64) {
	t.Helper()
	e.goals.now = func() time.Time { return weekStart }
	_, err := e.goals.RecordGoalChange(context.Background(), userID, GoalInput{GoalType: goalType, TargetValue: target})
	require.NoError(t, err)
}

func (e *testEnv) addContact(t *testing.T, userID, name, email, phone string) *model.Contact {
	t.Helper()
	c := &model.Contact{
		ID:           uuid.New().String(),
		UserID:       userID,
		Name:         name,
		Relationship: model.RelationshipFriend,
		IsActive:     true,
		OptOutToken:  uuid.New().String(),
		CreatedAt:    time.Now().UTC(),
		UpdatedAt:    time.Now().UTC(),
	}
	if email != "" {
		c.Email = &email
	}
	if phone != "" {
		c.Phone = &phone
	}
	require.NoError(t, e.contacts.Create(context.Background(), c))
	return c
}

func (e *testEnv) addActivity(t *testing.T, userID, kind string, at time.Time, meters float64, seconds int) {
	t.Helper()
	_, err := e.activities.Insert(context.Background(), []*model.Activity{{
		UserID:            userID,
		Source:            model.ActivitySourceStrava,
		ExternalID:        uuid.New().String(),
		Type:              kind,
		StartDate:         at,
		DistanceMeters:    meters,
		MovingTimeSeconds: seconds,
	}})
	require.NoError(t, err)
}

func (e *testEnv) enqueue(t *testing.T, userID string, at time.Time, slot Slot, maxAttempts int) *model.QueueEntry {
	t.Helper()
	entry := &model.QueueEntry{
		ID:           uuid.New().String(),
		UserID:       userID,
		ScheduledFor: at,
		ScheduledDay: at.Format(time.DateOnly),
		Period:       string(slot),
		Priority:     slot.Priority(),
		Status:       model.QueueStatusQueued,
		MaxAttempts:  maxAttempts,
		CreatedAt:    at,
		UpdatedAt:    at,
	}
	queued, err := e.queue.Enqueue(context.Background(), entry)
	require.NoError(t, err)
	require.True(t, queued)
	return entry
}

func (e *testEnv) entry(t *testing.T, id string) *model.QueueEntry {
	t.Helper()
	entry, err := e.queue.ByID(context.Background(), id)
	require.NoError(t, err)
	return entry
}

func (e *testEnv) deliveryService(transports Transports, cfg DeliveryConfig, now time.Time) *DeliveryService {
	dedup := message.NewDeduplicator(message.NewMemoryStore(), message.DefaultWindowDays,
		message.WithClock(func() time.Time { return now }))
	svc := NewDeliveryService(e.queue, e.users, e.contacts, e.deliveries, e.events, e.goals, e.progress, dedup, transports, cfg)
	svc.now = func() time.Time { return now }
	svc.sleep = func(context.Context, time.Duration) {}
	return svc
}

type sentMessage struct {
	to      Recipient
	content Content
}

// fakeTransport succeeds unless a result is queued for the recipient address.
type fakeTransport struct {
	mu      sync.Mutex
	sent    []sentMessage
	results map[string][]SendResult
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{results: map[string][]SendResult{}}
}

func (f *fakeTransport) failNext(address string, results ...SendResult) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results[address] = append(f.results[address], results...)
}

func (f *fakeTransport) Send(_ context.Context, to Recipient, content Content) SendResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMessage{to: to, content: content})

	address := to.Email
	if address == "" {
		address = to.Phone
	}
	if address == "" {
		address = to.PushToken
	}
	if queued := f.results[address]; len(queued) > 0 {
		f.results[address] = queued[1:]
		return queued[0]
	}
	return SendResult{Success: true, ProviderMessageID: fmt.Sprintf("msg-%d", len(f.sent))}
}

func (f *fakeTransport) calls() []sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentMessage(nil), f.sent...)
}

func (f *fakeTransport) addresses() []string {
	var out []string
	for _, m := range f.calls() {
		switch {
		case m.to.Email != "":
			out = append(out, m.to.Email)
		case m.to.Phone != "":
			out = append(out, m.to.Phone)
		default:
			out = append(out, m.to.PushToken)
		}
	}
	return out
}

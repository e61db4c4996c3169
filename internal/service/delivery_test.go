package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rundownapp/rundown/internal/message"
	"github.com/rundownapp/rundown/internal/model"
	"github.com/rundownapp/rundown/internal/period"
)

const (
	samEmail = "sam@example.com"
	robPhone = "+15555550100"
)

type deliveryFixture struct {
	env   *testEnv
	user  *model.User
	email *fakeTransport
	sms   *fakeTransport
}

func newDeliveryFixture(t *testing.T, mutate func(u *model.User)) *deliveryFixture {
	t.Helper()
	env := newTestEnv(t)
	user := env.createUser(t, mutate)
	env.setGoal(t, user.ID, model.GoalTypeTotalActivities, 3)
	return &deliveryFixture{env: env, user: user, email: newFakeTransport(), sms: newFakeTransport()}
}

func (f *deliveryFixture) withContacts(t *testing.T) *deliveryFixture {
	f.env.addContact(t, f.user.ID, "Sam", samEmail, "")
	f.env.addContact(t, f.user.ID, "Rob", "", robPhone)
	return f
}

func (f *deliveryFixture) service(now time.Time, cfg DeliveryConfig) *DeliveryService {
	return f.env.deliveryService(Transports{
		model.ChannelEmail: f.email,
		model.ChannelSMS:   f.sms,
	}, cfg, now)
}

func (f *deliveryFixture) run(t *testing.T, now time.Time, cfg DeliveryConfig) *RunSummary {
	t.Helper()
	summary, err := f.service(now, cfg).Run(context.Background(), now)
	require.NoError(t, err)
	return summary
}

func TestDeliverySendsToEveryContact(t *testing.T) {
	f := newDeliveryFixture(t, nil).withContacts(t)
	entry := f.env.enqueue(t, f.user.ID, wednesday, SlotMorning, 3)

	summary := f.run(t, wednesday.Add(time.Minute), DeliveryConfig{})
	assert.Equal(t, 1, summary.Claimed)
	assert.Equal(t, 1, summary.Sent)
	assert.Equal(t, 2, summary.Messages)
	assert.Zero(t, summary.MessageFailures)

	got := f.env.entry(t, entry.ID)
	assert.Equal(t, model.QueueStatusSent, got.Status)
	assert.Equal(t, 1, got.Attempts)
	assert.Nil(t, got.LastError)

	assert.Equal(t, []string{samEmail}, f.email.addresses())
	assert.Equal(t, []string{robPhone}, f.sms.addresses())

	deliveries, err := f.env.deliveries.ByEntry(context.Background(), entry.ID)
	require.NoError(t, err)
	require.Len(t, deliveries, 2)
	for _, d := range deliveries {
		assert.Equal(t, model.DeliveryStatusSent, d.Status)
		assert.Equal(t, "motivational", d.Intent)
		assert.NotEmpty(t, d.ContentHash)
		assert.NotContains(t, d.Content, "{user}")
		assert.NotContains(t, d.Content, "{goal}")
		require.NotNil(t, d.SentAt)
		require.NotNil(t, d.ProviderMessageID)
	}

	events, err := f.env.events.ByUser(context.Background(), f.user.ID)
	require.NoError(t, err)
	var types []string
	for _, e := range events {
		types = append(types, e.EventType)
	}
	assert.Contains(t, types, model.EventQueueEntrySent)
}

func TestDeliveryChecksInOnPartialProgress(t *testing.T) {
	f := newDeliveryFixture(t, nil).withContacts(t)
	f.env.addActivity(t, f.user.ID, "Run", weekStart.Add(30*time.Hour), 5000, 1500)
	entry := f.env.enqueue(t, f.user.ID, wednesday, SlotMorning, 3)

	f.run(t, wednesday.Add(time.Minute), DeliveryConfig{})

	deliveries, err := f.env.deliveries.ByEntry(context.Background(), entry.ID)
	require.NoError(t, err)
	require.NotEmpty(t, deliveries)
	assert.Equal(t, "check-in", deliveries[0].Intent)
}

func TestDeliverySkips(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(u *model.User)
		setup  func(t *testing.T, f *deliveryFixture)
		want   string
	}{
		{
			name: "goal met without success notices",
			setup: func(t *testing.T, f *deliveryFixture) {
				f.withContacts(t)
				for i := range 3 {
					f.env.addActivity(t, f.user.ID, "Run", weekStart.Add(time.Duration(i+1)*time.Hour), 3000, 900)
				}
			},
			want: model.ResolutionGoalMet,
		},
		{
			name: "partial progress on the final day",
			setup: func(t *testing.T, f *deliveryFixture) {
				f.withContacts(t)
				f.env.addActivity(t, f.user.ID, "Run", weekStart.Add(time.Hour), 3000, 900)
			},
			want: model.ResolutionPartialProgress,
		},
		{
			name:  "no contacts",
			setup: func(*testing.T, *deliveryFixture) {},
			want:  model.ResolutionNoContacts,
		},
		{
			name:   "notifications disabled",
			mutate: func(u *model.User) { u.NotificationEnabled = false },
			setup:  func(t *testing.T, f *deliveryFixture) { f.withContacts(t) },
			want:   model.ResolutionUserInactive,
		},
		{
			name: "opted out contacts only",
			setup: func(t *testing.T, f *deliveryFixture) {
				c := f.env.addContact(t, f.user.ID, "Sam", samEmail, "")
				_, err := f.env.contacts.OptOut(context.Background(), c.OptOutToken, weekStart)
				require.NoError(t, err)
			},
			want: model.ResolutionNoContacts,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newDeliveryFixture(t, tt.mutate)
			tt.setup(t, f)
			at := wednesday
			if tt.want == model.ResolutionPartialProgress {
				at = sunday
			}
			entry := f.env.enqueue(t, f.user.ID, at, SlotMorning, 3)

			summary := f.run(t, at.Add(time.Minute), DeliveryConfig{})
			assert.Equal(t, 1, summary.Skipped)

			got := f.env.entry(t, entry.ID)
			assert.Equal(t, model.QueueStatusSkipped, got.Status)
			require.NotNil(t, got.Resolution)
			assert.Equal(t, tt.want, *got.Resolution)
			assert.Empty(t, f.email.calls())
			assert.Empty(t, f.sms.calls())
		})
	}
}

func TestDeliverySkipsUserWithoutGoal(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, nil)
	env.addContact(t, user.ID, "Sam", samEmail, "")
	entry := env.enqueue(t, user.ID, wednesday, SlotMorning, 3)

	svc := env.deliveryService(Transports{model.ChannelEmail: newFakeTransport()}, DeliveryConfig{}, wednesday)
	_, err := svc.Run(context.Background(), wednesday)
	require.NoError(t, err)

	got := env.entry(t, entry.ID)
	assert.Equal(t, model.QueueStatusSkipped, got.Status)
	assert.Equal(t, model.ResolutionNoGoal, *got.Resolution)
}

func TestDeliveryPeriodCap(t *testing.T) {
	f := newDeliveryFixture(t, nil).withContacts(t)
	first := f.env.enqueue(t, f.user.ID, wednesday, SlotMorning, 3)
	second := f.env.enqueue(t, f.user.ID, wednesday.Add(12*time.Hour), SlotEvening, 3)

	f.run(t, wednesday.Add(time.Minute), DeliveryConfig{})
	assert.Equal(t, model.QueueStatusSent, f.env.entry(t, first.ID).Status)

	f.run(t, wednesday.Add(12*time.Hour+time.Minute), DeliveryConfig{})
	got := f.env.entry(t, second.ID)
	assert.Equal(t, model.QueueStatusSkipped, got.Status)
	assert.Equal(t, model.ResolutionPeriodCap, *got.Resolution)
	assert.Len(t, f.email.calls(), 1)
}

func TestDeliveryPeriodCapAllowsConfiguredMessages(t *testing.T) {
	f := newDeliveryFixture(t, func(u *model.User) { u.MaxMessagesPerPeriod = 2 }).withContacts(t)
	f.env.enqueue(t, f.user.ID, wednesday, SlotMorning, 3)
	second := f.env.enqueue(t, f.user.ID, wednesday.Add(12*time.Hour), SlotEvening, 3)

	f.run(t, wednesday.Add(time.Minute), DeliveryConfig{})
	f.run(t, wednesday.Add(12*time.Hour+time.Minute), DeliveryConfig{})

	assert.Equal(t, model.QueueStatusSent, f.env.entry(t, second.ID).Status)
	assert.Len(t, f.email.calls(), 2)
}

func TestDeliveryRetriesOnlyFailedContacts(t *testing.T) {
	f := newDeliveryFixture(t, nil).withContacts(t)
	f.sms.failNext(robPhone, SendResult{ErrorCode: ErrorCodeRateLimited, Err: errors.New("too many requests")})
	entry := f.env.enqueue(t, f.user.ID, wednesday, SlotMorning, 3)

	summary := f.run(t, wednesday.Add(time.Minute), DeliveryConfig{})
	assert.Equal(t, 1, summary.Retried)
	assert.Equal(t, 1, summary.Messages)
	assert.Equal(t, 1, summary.MessageFailures)

	got := f.env.entry(t, entry.ID)
	assert.Equal(t, model.QueueStatusQueued, got.Status)
	assert.Equal(t, 1, got.Attempts)
	require.NotNil(t, got.LastError)
	assert.Contains(t, *got.LastError, ErrorCodeRateLimited)

	summary = f.run(t, wednesday.Add(10*time.Minute), DeliveryConfig{})
	assert.Equal(t, 1, summary.Sent)

	got = f.env.entry(t, entry.ID)
	assert.Equal(t, model.QueueStatusSent, got.Status)
	assert.Equal(t, 2, got.Attempts)
	assert.Len(t, f.email.calls(), 1)
	assert.Len(t, f.sms.calls(), 2)

	deliveries, err := f.env.deliveries.ByEntry(context.Background(), entry.ID)
	require.NoError(t, err)
	for _, d := range deliveries {
		assert.Equal(t, model.DeliveryStatusSent, d.Status)
	}
}

func TestDeliveryPermanentFailures(t *testing.T) {
	t.Run("partial", func(t *testing.T) {
		f := newDeliveryFixture(t, nil).withContacts(t)
		f.sms.failNext(robPhone, SendResult{ErrorCode: ErrorCodeInvalidRecipient, Err: errors.New("not a mobile number")})
		entry := f.env.enqueue(t, f.user.ID, wednesday, SlotMorning, 3)

		summary := f.run(t, wednesday.Add(time.Minute), DeliveryConfig{})
		assert.Equal(t, 1, summary.Sent)

		got := f.env.entry(t, entry.ID)
		assert.Equal(t, model.QueueStatusSent, got.Status)
		require.NotNil(t, got.LastError)
		assert.Contains(t, *got.LastError, ErrorCodeInvalidRecipient)
	})

	t.Run("total", func(t *testing.T) {
		f := newDeliveryFixture(t, nil)
		f.env.addContact(t, f.user.ID, "Sam", samEmail, "")
		f.email.failNext(samEmail, SendResult{ErrorCode: ErrorCodeUnsubscribed, Err: errors.New("suppressed")})
		entry := f.env.enqueue(t, f.user.ID, wednesday, SlotMorning, 3)

		summary := f.run(t, wednesday.Add(time.Minute), DeliveryConfig{})
		assert.Equal(t, 1, summary.Failed)

		got := f.env.entry(t, entry.ID)
		assert.Equal(t, model.QueueStatusFailed, got.Status)
		assert.Equal(t, 1, got.Attempts)
	})
}

func TestDeliveryGivesUpAfterMaxAttempts(t *testing.T) {
	f := newDeliveryFixture(t, nil)
	f.env.addContact(t, f.user.ID, "Sam", samEmail, "")
	networkErr := SendResult{ErrorCode: ErrorCodeNetwork, Err: errors.New("connection reset")}
	f.email.failNext(samEmail, networkErr, networkErr)
	entry := f.env.enqueue(t, f.user.ID, wednesday, SlotMorning, 2)

	f.run(t, wednesday.Add(time.Minute), DeliveryConfig{})
	assert.Equal(t, model.QueueStatusQueued, f.env.entry(t, entry.ID).Status)

	summary := f.run(t, wednesday.Add(10*time.Minute), DeliveryConfig{})
	assert.Equal(t, 1, summary.Failed)

	got := f.env.entry(t, entry.ID)
	assert.Equal(t, model.QueueStatusFailed, got.Status)
	assert.Equal(t, 2, got.Attempts)

	// terminal entries are never claimed again
	summary = f.run(t, wednesday.Add(20*time.Minute), DeliveryConfig{})
	assert.Zero(t, summary.Claimed)
	assert.Len(t, f.email.calls(), 2)
}

func TestDeliveryReleasesEntriesOverBudget(t *testing.T) {
	f := newDeliveryFixture(t, nil).withContacts(t)
	entry := f.env.enqueue(t, f.user.ID, wednesday, SlotMorning, 3)

	summary := f.run(t, wednesday.Add(time.Minute), DeliveryConfig{MaxSendsPerRun: 1})
	assert.Equal(t, 1, summary.Released)
	assert.Zero(t, summary.Messages)

	got := f.env.entry(t, entry.ID)
	assert.Equal(t, model.QueueStatusQueued, got.Status)
	assert.Zero(t, got.Attempts)
	assert.Nil(t, got.ClaimedAt)
	assert.Empty(t, f.email.calls())

	summary = f.run(t, wednesday.Add(5*time.Minute), DeliveryConfig{MaxSendsPerRun: 2})
	assert.Equal(t, 1, summary.Sent)
}

func TestDeliveryReapsStaleEntries(t *testing.T) {
	f := newDeliveryFixture(t, nil).withContacts(t)
	entry := f.env.enqueue(t, f.user.ID, wednesday, SlotMorning, 3)

	// a crashed run left the entry claimed
	claimed, err := f.env.queue.Claim(context.Background(), wednesday, 10)
	require.NoError(t, err)
	require.Len(t, claimed, 1)

	summary := f.run(t, wednesday.Add(5*time.Minute), DeliveryConfig{})
	assert.Zero(t, summary.Reaped)
	assert.Zero(t, summary.Claimed)

	summary = f.run(t, wednesday.Add(30*time.Minute), DeliveryConfig{})
	assert.EqualValues(t, 1, summary.Reaped)
	assert.Equal(t, 1, summary.Sent)
	assert.Equal(t, model.QueueStatusSent, f.env.entry(t, entry.ID).Status)
}

func TestDeliveryReleasesOnCancelledContext(t *testing.T) {
	f := newDeliveryFixture(t, nil).withContacts(t)
	entry := f.env.enqueue(t, f.user.ID, wednesday, SlotMorning, 3)
	claimed, err := f.env.queue.Claim(context.Background(), wednesday, 10)
	require.NoError(t, err)
	require.Len(t, claimed, 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	svc := f.service(wednesday, DeliveryConfig{})
	budget := newSendBudget(10, 10, 0, svc.now, svc.sleep)
	out := svc.process(ctx, claimed[0], budget)
	assert.True(t, out.released)

	got := f.env.entry(t, entry.ID)
	assert.Equal(t, model.QueueStatusQueued, got.Status)
	assert.Zero(t, got.Attempts)
}

func TestDeliveryUnknownStyleFallsBack(t *testing.T) {
	f := newDeliveryFixture(t, func(u *model.User) { u.MessageStyle = "sarcastic" }).withContacts(t)
	entry := f.env.enqueue(t, f.user.ID, wednesday, SlotMorning, 3)

	f.run(t, wednesday.Add(time.Minute), DeliveryConfig{})
	assert.Equal(t, model.QueueStatusSent, f.env.entry(t, entry.ID).Status)
}

func TestDecideIntent(t *testing.T) {
	p := period.Period{Start: weekStart, End: weekStart.AddDate(0, 0, 7).Add(-time.Nanosecond)}
	nextWeek := weekStart.AddDate(0, 0, 7).Add(time.Hour)

	tests := []struct {
		name       string
		success    bool
		partial    bool
		current    float64
		at         time.Time
		intent     message.Intent
		resolution string
	}{
		{"met with success notices", true, false, 3, wednesday, message.IntentCongratulatory, ""},
		{"met without success notices", false, true, 4, sunday, 0, model.ResolutionGoalMet},
		{"nothing done by the final day", false, false, 0, sunday, message.IntentMissedGoal, ""},
		{"partial on the final day", false, true, 2, sunday, message.IntentWeeklySummary, ""},
		{"partial on the final day without partial notices", false, false, 2, sunday, 0, model.ResolutionPartialProgress},
		{"partial after the period ended", false, true, 1, nextWeek, message.IntentWeeklySummary, ""},
		{"nothing done mid period", false, false, 0, wednesday, message.IntentMotivational, ""},
		{"partial mid period", false, false, 1, wednesday, message.IntentCheckIn, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user := &model.User{NotifyOnSuccess: tt.success, NotifyOnPartial: tt.partial}
			intent, resolution := decideIntent(user, Progress{Current: tt.current, Target: 3}, p, tt.at)
			assert.Equal(t, tt.resolution, resolution)
			if resolution == "" {
				assert.Equal(t, tt.intent, intent)
			}
		})
	}
}

func TestSendBudget(t *testing.T) {
	clock := weekStart
	var slept []time.Duration
	budget := newSendBudget(100, 2, time.Second,
		func() time.Time { return clock },
		func(_ context.Context, d time.Duration) {
			slept = append(slept, d)
			clock = clock.Add(d)
		},
	)

	assert.True(t, budget.reserve(60))
	assert.False(t, budget.reserve(50))
	assert.True(t, budget.reserve(40))
	assert.False(t, budget.reserve(1))

	for range 5 {
		budget.pace(context.Background())
	}
	assert.Equal(t, []time.Duration{time.Second, time.Second}, slept)
}

// slowTransport takes delay to send and gives up when its context ends first.
type slowTransport struct {
	delay time.Duration
	*fakeTransport
}

func (s slowTransport) Send(ctx context.Context, to Recipient, content Content) SendResult {
	select {
	case <-time.After(s.delay):
		return s.fakeTransport.Send(ctx, to, content)
	case <-ctx.Done():
		return SendResult{ErrorCode: ErrorCodeNetwork, Err: ctx.Err()}
	}
}

func TestDeliveryFinishesStartedEntriesPastRunTimeout(t *testing.T) {
	f := newDeliveryFixture(t, nil)
	f.env.addContact(t, f.user.ID, "Sam", samEmail, "")
	entry := f.env.enqueue(t, f.user.ID, wednesday, SlotMorning, 3)

	now := wednesday.Add(time.Minute)
	svc := f.env.deliveryService(Transports{
		model.ChannelEmail: slowTransport{delay: 200 * time.Millisecond, fakeTransport: f.email},
	}, DeliveryConfig{RunTimeout: 50 * time.Millisecond}, now)

	summary, err := svc.Run(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Sent)
	assert.Equal(t, 1, summary.Messages)
	assert.Zero(t, summary.MessageFailures)

	got := f.env.entry(t, entry.ID)
	assert.Equal(t, model.QueueStatusSent, got.Status)
	assert.Equal(t, 1, got.Attempts)
	assert.Nil(t, got.LastError)
	assert.Equal(t, []string{samEmail}, f.email.addresses())
}

func TestDeliverySendTimeoutReleasesTemplate(t *testing.T) {
	f := newDeliveryFixture(t, nil)
	f.env.addContact(t, f.user.ID, "Sam", samEmail, "")
	entry := f.env.enqueue(t, f.user.ID, wednesday, SlotMorning, 3)

	now := wednesday.Add(time.Minute)
	svc := f.env.deliveryService(Transports{
		model.ChannelEmail: slowTransport{delay: time.Second, fakeTransport: f.email},
	}, DeliveryConfig{SendTimeout: 20 * time.Millisecond}, now)

	summary, err := svc.Run(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Retried)

	got := f.env.entry(t, entry.ID)
	assert.Equal(t, model.QueueStatusQueued, got.Status)
	require.NotNil(t, got.LastError)
	assert.Contains(t, *got.LastError, ErrorCodeNetwork)

	deliveries, err := f.env.deliveries.ByEntry(context.Background(), entry.ID)
	require.NoError(t, err)
	require.Len(t, deliveries, 1)
	assert.Equal(t, model.DeliveryStatusFailed, deliveries[0].Status)

	// the contact never got the template, so it is still available to them
	ok, err := svc.dedup.CanSend(context.Background(), deliveries[0].ContactID, deliveries[0].ContentHash, 0)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestDeliveryKeepsSentTemplateInHistory(t *testing.T) {
	f := newDeliveryFixture(t, nil)
	f.env.addContact(t, f.user.ID, "Sam", samEmail, "")
	entry := f.env.enqueue(t, f.user.ID, wednesday, SlotMorning, 3)

	svc := f.service(wednesday.Add(time.Minute), DeliveryConfig{})
	_, err := svc.Run(context.Background(), wednesday.Add(time.Minute))
	require.NoError(t, err)

	deliveries, err := f.env.deliveries.ByEntry(context.Background(), entry.ID)
	require.NoError(t, err)
	require.Len(t, deliveries, 1)

	ok, err := svc.dedup.CanSend(context.Background(), deliveries[0].ContactID, deliveries[0].ContentHash, 0)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestScheduleAndDeliverIsNeverRequeued(t *testing.T) {
	f := newDeliveryFixture(t, nil).withContacts(t)
	ctx := context.Background()
	scheduler := NewSchedulerService(f.env.users, f.env.queue, time.UTC, 3)

	scheduled, err := scheduler.RunSlot(ctx, SlotMorning, wednesday)
	require.NoError(t, err)
	require.Equal(t, 1, scheduled.Queued)

	summary := f.run(t, wednesday.Add(time.Minute), DeliveryConfig{})
	assert.Equal(t, 1, summary.Sent)

	queued, err := f.env.queue.ByStatus(ctx, model.QueueStatusSent)
	require.NoError(t, err)
	require.Len(t, queued, 1)
	sentEntry := queued[0]

	again, err := scheduler.RunSlot(ctx, SlotMorning, wednesday.Add(30*time.Minute))
	require.NoError(t, err)
	assert.Zero(t, again.Queued)
	assert.Equal(t, 1, again.Existing)

	summary = f.run(t, wednesday.Add(31*time.Minute), DeliveryConfig{})
	assert.Zero(t, summary.Claimed)

	got := f.env.entry(t, sentEntry.ID)
	assert.Equal(t, model.QueueStatusSent, got.Status)
	assert.Equal(t, 1, got.Attempts)

	// a later slot in the same period is capped instead of sending again
	evening, err := scheduler.RunSlot(ctx, SlotEvening, wednesday.Add(12*time.Hour))
	require.NoError(t, err)
	require.Equal(t, 1, evening.Queued)

	summary = f.run(t, wednesday.Add(12*time.Hour+time.Minute), DeliveryConfig{})
	assert.Equal(t, 1, summary.Skipped)
	assert.Len(t, f.email.calls(), 1)
	assert.Len(t, f.sms.calls(), 1)
	assert.Equal(t, model.QueueStatusSent, f.env.entry(t, sentEntry.ID).Status)
}

package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rundownapp/rundown/internal/model"
)

func TestRunSlotIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	evening := string(SlotEvening)
	disabledAt := weekStart

	anySlot := env.createUser(t, nil)
	eveningOnly := env.createUser(t, func(u *model.User) { u.SendSlot = &evening })
	env.createUser(t, func(u *model.User) { u.SendDay = "thursday" })
	env.createUser(t, func(u *model.User) { u.NotificationEnabled = false })
	env.createUser(t, func(u *model.User) { u.DisabledAt = &disabledAt })

	svc := NewSchedulerService(env.users, env.queue, time.UTC, 3)

	result, err := svc.RunSlot(ctx, SlotMorning, wednesday)
	require.NoError(t, err)
	assert.Equal(t, "2024-04-03", result.Day)
	assert.Equal(t, "wednesday", result.Weekday)
	assert.Equal(t, 1, result.Matched)
	assert.Equal(t, 1, result.Queued)
	assert.Zero(t, result.Existing)

	again, err := svc.RunSlot(ctx, SlotMorning, wednesday.Add(5*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 1, again.Matched)
	assert.Zero(t, again.Queued)
	assert.Equal(t, 1, again.Existing)

	result, err = svc.RunSlot(ctx, SlotEvening, wednesday.Add(12*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 2, result.Matched)
	assert.Equal(t, 2, result.Queued)

	queued, err := env.queue.ByStatus(ctx, model.QueueStatusQueued)
	require.NoError(t, err)
	require.Len(t, queued, 3)
	assert.Equal(t, anySlot.ID, queued[0].UserID)
	assert.Equal(t, string(SlotMorning), queued[0].Period)
	assert.Equal(t, 1, queued[0].Priority)
	assert.Equal(t, 3, queued[0].MaxAttempts)

	var eveningUsers []string
	for _, e := range queued[1:] {
		assert.Equal(t, string(SlotEvening), e.Period)
		eveningUsers = append(eveningUsers, e.UserID)
	}
	assert.ElementsMatch(t, []string{anySlot.ID, eveningOnly.ID}, eveningUsers)
}

func TestRunSlotUsesSchedulerTimeZone(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, func(u *model.User) { u.SendDay = "thursday" })

	// 23:00 Wednesday UTC is already Thursday at UTC+3
	loc := time.FixedZone("UTC+3", 3*60*60)
	svc := NewSchedulerService(env.users, env.queue, loc, 0)

	result, err := svc.RunSlot(context.Background(), SlotMorning, wednesday.Add(14*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, "2024-04-04", result.Day)
	assert.Equal(t, 1, result.Queued)
}

func TestParseSlot(t *testing.T) {
	slot, err := ParseSlot("afternoon")
	require.NoError(t, err)
	assert.Equal(t, SlotAfternoon, slot)
	assert.Equal(t, 15, slot.Hour())
	assert.Equal(t, 2, slot.Priority())

	_, err = ParseSlot("midnight")
	assert.ErrorIs(t, err, ErrUnknownSlot)
}

package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rundownapp/rundown/internal/model"
	"github.com/rundownapp/rundown/internal/repository"
)

type invite struct {
	email, contactName, ownerName, optOutURL string
}

type fakeMailer struct {
	invites []invite
	notices []string
	err     error
}

func (m *fakeMailer) SendInviteEmail(_ context.Context, email, contactName, ownerName, optOutURL string) error {
	if m.err != nil {
		return m.err
	}
	m.invites = append(m.invites, invite{email, contactName, ownerName, optOutURL})
	return nil
}

func (m *fakeMailer) SendOptOutNotice(_ context.Context, email, _, contactName string) error {
	if m.err != nil {
		return m.err
	}
	m.notices = append(m.notices, email+":"+contactName)
	return nil
}

func newContactService(env *testEnv) (*ContactService, *fakeMailer, *fakeTransport) {
	mailer := &fakeMailer{}
	push := newFakeTransport()
	return NewContactService(env.contacts, env.users, env.events, mailer, push, "https://rundown.test/"), mailer, push
}

func TestAddContact(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.createUser(t, nil)
	svc, _, _ := newContactService(env)

	contact, err := svc.Add(ctx, user.ID, ContactInput{Name: " Sam ", Email: "Sam@Example.com"})
	require.NoError(t, err)
	assert.Equal(t, "Sam", contact.Name)
	assert.Equal(t, "sam@example.com", *contact.Email)
	assert.Equal(t, model.RelationshipFriend, contact.Relationship)
	assert.NotEmpty(t, contact.OptOutToken)
	assert.Equal(t, model.ChannelEmail, contact.Channel())

	// adding the same address again returns the existing contact
	again, err := svc.Add(ctx, user.ID, ContactInput{Name: "Sammy", Email: "sam@example.com"})
	require.NoError(t, err)
	assert.Equal(t, contact.ID, again.ID)

	sms, err := svc.Add(ctx, user.ID, ContactInput{Name: "Rob", Phone: "+1 (555) 555-0100", Relationship: model.RelationshipCoach})
	require.NoError(t, err)
	assert.Equal(t, "+15555550100", *sms.Phone)
	assert.Equal(t, model.ChannelSMS, sms.Channel())

	contacts, err := svc.List(ctx, user.ID)
	require.NoError(t, err)
	assert.Len(t, contacts, 2)
}

func TestAddContactValidation(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, nil)
	svc, _, _ := newContactService(env)

	tests := []struct {
		name  string
		input ContactInput
	}{
		{"no name", ContactInput{Email: "sam@example.com"}},
		{"no address", ContactInput{Name: "Sam"}},
		{"bad email", ContactInput{Name: "Sam", Email: "sam@"}},
		{"bad phone", ContactInput{Name: "Sam", Phone: "555-0100"}},
		{"unknown relationship", ContactInput{Name: "Sam", Email: "sam@example.com", Relationship: "nemesis"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Add(context.Background(), user.ID, tt.input)
			assert.ErrorIs(t, err, ErrInvalidContact)
		})
	}

	_, err := svc.Add(context.Background(), "missing-user", ContactInput{Name: "Sam", Email: "sam@example.com"})
	assert.ErrorIs(t, err, repository.ErrUserNotFound)
}

func TestAddContactLimit(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.createUser(t, nil)
	svc, _, _ := newContactService(env)

	var first *model.Contact
	for i := range model.MaxActiveContacts {
		c, err := svc.Add(ctx, user.ID, ContactInput{Name: "Friend", Email: fmt.Sprintf("friend%d@example.com", i)})
		require.NoError(t, err)
		if first == nil {
			first = c
		}
	}

	_, err := svc.Add(ctx, user.ID, ContactInput{Name: "One more", Email: "extra@example.com"})
	assert.ErrorIs(t, err, ErrContactLimitReached)

	// removing frees a slot
	require.NoError(t, svc.Remove(ctx, user.ID, first.ID))
	_, err = svc.Add(ctx, user.ID, ContactInput{Name: "One more", Email: "extra@example.com"})
	assert.NoError(t, err)
}

func TestAddContactReactivatesRemoved(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.createUser(t, nil)
	svc, _, _ := newContactService(env)

	contact, err := svc.Add(ctx, user.ID, ContactInput{Name: "Sam", Email: "sam@example.com"})
	require.NoError(t, err)
	require.NoError(t, svc.Remove(ctx, user.ID, contact.ID))

	receivers, err := env.contacts.Receivers(ctx, user.ID)
	require.NoError(t, err)
	assert.Empty(t, receivers)

	back, err := svc.Add(ctx, user.ID, ContactInput{Name: "Samantha", Email: "sam@example.com", Relationship: model.RelationshipFamily})
	require.NoError(t, err)
	assert.Equal(t, contact.ID, back.ID)
	assert.NotEqual(t, contact.OptOutToken, back.OptOutToken)

	stored, err := env.contacts.ByID(ctx, contact.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsActive)
	assert.Equal(t, "Samantha", stored.Name)
	assert.Equal(t, model.RelationshipFamily, stored.Relationship)

	err = svc.Remove(ctx, user.ID, "missing")
	assert.ErrorIs(t, err, repository.ErrContactNotFound)
}

func TestOptOut(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	pushToken := "ExponentPushToken[abc]"
	user := env.createUser(t, func(u *model.User) { u.PushToken = &pushToken })
	svc, mailer, push := newContactService(env)

	contact, err := svc.Add(ctx, user.ID, ContactInput{Name: "Sam", Email: "sam@example.com"})
	require.NoError(t, err)

	result, err := svc.OptOut(ctx, contact.OptOutToken)
	require.NoError(t, err)
	assert.Equal(t, OptOutStatusOptedOut, result.Status)
	require.NotNil(t, result.Contact.OptedOutAt)
	assert.False(t, result.Contact.CanReceive())

	assert.Equal(t, []string{user.Email + ":Sam"}, mailer.notices)
	assert.Equal(t, []string{pushToken}, push.addresses())

	result, err = svc.OptOut(ctx, contact.OptOutToken)
	require.NoError(t, err)
	assert.Equal(t, OptOutStatusAlreadyOptedOut, result.Status)
	assert.Len(t, mailer.notices, 1)

	result, err = svc.OptOut(ctx, "unknown-token")
	require.NoError(t, err)
	assert.Equal(t, OptOutStatusNotFound, result.Status)

	result, err = svc.OptOut(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, OptOutStatusNotFound, result.Status)
}

func TestAddContactReactivatesOptedOut(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.createUser(t, nil)
	svc, _, _ := newContactService(env)

	contact, err := svc.Add(ctx, user.ID, ContactInput{Name: "Sam", Email: "sam@example.com"})
	require.NoError(t, err)
	_, err = svc.OptOut(ctx, contact.OptOutToken)
	require.NoError(t, err)

	back, err := svc.Add(ctx, user.ID, ContactInput{Name: "Sam", Email: "sam@example.com"})
	require.NoError(t, err)
	assert.Equal(t, contact.ID, back.ID)
	assert.NotEqual(t, contact.OptOutToken, back.OptOutToken)

	stored, err := env.contacts.ByID(ctx, contact.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.OptedOutAt)
	assert.True(t, stored.CanReceive())

	receivers, err := env.contacts.Receivers(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, receivers, 1)
	assert.Equal(t, contact.ID, receivers[0].ID)

	// the old link no longer matches, the new one opts out again
	result, err := svc.OptOut(ctx, contact.OptOutToken)
	require.NoError(t, err)
	assert.Equal(t, OptOutStatusNotFound, result.Status)

	result, err = svc.OptOut(ctx, back.OptOutToken)
	require.NoError(t, err)
	assert.Equal(t, OptOutStatusOptedOut, result.Status)
}

func TestAddContactLimitUnderConcurrency(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.createUser(t, nil)
	svc, _, _ := newContactService(env)

	for i := range model.MaxActiveContacts - 1 {
		_, err := svc.Add(ctx, user.ID, ContactInput{Name: "Friend", Email: fmt.Sprintf("friend%d@example.com", i)})
		require.NoError(t, err)
	}

	var (
		wg    sync.WaitGroup
		added atomic.Int32
	)
	for i := range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Add(ctx, user.ID, ContactInput{Name: "Late", Email: fmt.Sprintf("late%d@example.com", i)})
			if err == nil {
				added.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, added.Load(), int32(1))
	count, err := env.contacts.CountActive(ctx, user.ID)
	require.NoError(t, err)
	assert.LessOrEqual(t, count, model.MaxActiveContacts)
}

func TestOptOutSucceedsWhenNoticeFails(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.createUser(t, nil)
	svc, mailer, push := newContactService(env)

	contact, err := svc.Add(ctx, user.ID, ContactInput{Name: "Sam", Email: "sam@example.com"})
	require.NoError(t, err)
	mailer.err = errors.New("resend down")

	result, err := svc.OptOut(ctx, contact.OptOutToken)
	require.NoError(t, err)
	assert.Equal(t, OptOutStatusOptedOut, result.Status)
	assert.Empty(t, push.calls())
}

func TestInvite(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.createUser(t, nil)
	svc, mailer, _ := newContactService(env)

	contact, err := svc.Add(ctx, user.ID, ContactInput{Name: "Sam", Email: "sam@example.com"})
	require.NoError(t, err)

	require.NoError(t, svc.Invite(ctx, contact.ID))
	require.Len(t, mailer.invites, 1)
	inv := mailer.invites[0]
	assert.Equal(t, "sam@example.com", inv.email)
	assert.Equal(t, "Alex", inv.ownerName)
	assert.Equal(t, "https://rundown.test/buddy/opt-out?token="+url.QueryEscape(contact.OptOutToken), inv.optOutURL)

	sms, err := svc.Add(ctx, user.ID, ContactInput{Name: "Rob", Phone: "+15555550100"})
	require.NoError(t, err)
	assert.ErrorIs(t, svc.Invite(ctx, sms.ID), ErrContactNoEmail)

	_, err = svc.OptOut(ctx, contact.OptOutToken)
	require.NoError(t, err)
	assert.ErrorIs(t, svc.Invite(ctx, contact.ID), ErrContactOptedOut)

	assert.ErrorIs(t, svc.Invite(ctx, "missing"), repository.ErrContactNotFound)
}

package message

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"
)

const (
	DefaultWindowDays  = 14
	DefaultMaxAttempts = 10
)

// Store records which content hashes have been sent to a contact.
type Store interface {
	// Claim records hash under key unless it was already recorded within window.
	// It reports whether the hash was recorded.
	Claim(ctx context.Context, key, hash string, window time.Duration, now time.Time) (bool, error)
	// Release drops a recorded hash, for a claim whose message never went out.
	Release(ctx context.Context, key, hash string) error
	Clear(ctx context.Context) error
}

type Deduplicator struct {
	store      Store
	windowDays int
	now        func() time.Time
	intn       func(n int) int
}

type DeduplicatorOption func(*Deduplicator)

func WithClock(now func() time.Time) DeduplicatorOption {
	return func(d *Deduplicator) { d.now = now }
}

// WithRand replaces the uniform template picker.
func WithRand(intn func(n int) int) DeduplicatorOption {
	return func(d *Deduplicator) { d.intn = intn }
}

func NewDeduplicator(store Store, windowDays int, opts ...DeduplicatorOption) *Deduplicator {
	if windowDays <= 0 {
		windowDays = DefaultWindowDays
	}
	d := &Deduplicator{
		store:      store,
		windowDays: windowDays,
		now:        time.Now,
		intn:       rand.IntN,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func dedupKey(contactID string, windowDays int) string {
	return fmt.Sprintf("%s_%dd", contactID, windowDays)
}

// CanSend reports whether hash was not sent to the contact within the window,
// recording it when it returns true.
func (d *Deduplicator) CanSend(ctx context.Context, contactID, hash string, windowDays int) (bool, error) {
	if windowDays <= 0 {
		windowDays = d.windowDays
	}
	window := time.Duration(windowDays) * 24 * time.Hour
	ok, err := d.store.Claim(ctx, dedupKey(contactID, windowDays), hash, window, d.now())
	if err != nil {
		return false, fmt.Errorf("dedup claim: %w", err)
	}
	return ok, nil
}

// Pick is a template chosen for a contact. Claimed is set when the template was
// recorded in the contact's history and must be released if the send fails.
type Pick struct {
	Template string
	Claimed  bool
}

// UniqueMessage samples up to maxAttempts templates for one the contact has not seen
// inside the window. When none is found it returns a random template anyway.
func (d *Deduplicator) UniqueMessage(ctx context.Context, contactID string, style Style, intent Intent, maxAttempts int) (Pick, error) {
	templates, err := Templates(style, intent)
	if err != nil {
		return Pick{}, err
	}
	if len(templates) == 0 {
		return Pick{}, fmt.Errorf("no %s templates for style %s", intent, style)
	}
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}

	for range maxAttempts {
		template := templates[d.intn(len(templates))]
		ok, err := d.CanSend(ctx, contactID, Hash(template), d.windowDays)
		if err != nil {
			// dedup is best effort
			slog.Warn("message dedup unavailable, sending without history", "error", err, "contact_id", contactID)
			return Pick{Template: template}, nil
		}
		if ok {
			return Pick{Template: template, Claimed: true}, nil
		}
	}

	return Pick{Template: templates[d.intn(len(templates))]}, nil
}

// Release forgets a claimed pick so the template stays available to the contact.
func (d *Deduplicator) Release(ctx context.Context, contactID string, pick Pick) error {
	if !pick.Claimed {
		return nil
	}
	if err := d.store.Release(ctx, dedupKey(contactID, d.windowDays), Hash(pick.Template)); err != nil {
		return fmt.Errorf("dedup release: %w", err)
	}
	return nil
}

func (d *Deduplicator) ClearHistory(ctx context.Context) error {
	return d.store.Clear(ctx)
}

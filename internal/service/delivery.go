package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/rundownapp/rundown/internal/message"
	"github.com/rundownapp/rundown/internal/model"
	"github.com/rundownapp/rundown/internal/period"
	"github.com/rundownapp/rundown/internal/repository"
)

type DeliveryConfig struct {
	BatchSize           int
	MaxSendsPerRun      int
	PaceEvery           int
	PaceDelay           time.Duration
	Concurrency         int
	RunTimeout          time.Duration
	SendTimeout         time.Duration
	StaleAfter          time.Duration
	MaxTemplateAttempts int
}

func (c DeliveryConfig) withDefaults() DeliveryConfig {
	if c.BatchSize <= 0 {
		c.BatchSize = 50
	}
	if c.MaxSendsPerRun <= 0 {
		c.MaxSendsPerRun = 100
	}
	if c.PaceEvery <= 0 {
		c.PaceEvery = 10
	}
	if c.Concurrency <= 0 {
		c.Concurrency = 4
	}
	if c.SendTimeout <= 0 {
		c.SendTimeout = 30 * time.Second
	}
	if c.StaleAfter <= 0 {
		c.StaleAfter = 15 * time.Minute
	}
	if c.MaxTemplateAttempts <= 0 {
		c.MaxTemplateAttempts = message.DefaultMaxAttempts
	}
	return c
}

type RunSummary struct {
	Reaped          int64 `json:"reaped"`
	Claimed         int   `json:"claimed"`
	Sent            int   `json:"sent"`
	Skipped         int   `json:"skipped"`
	Failed          int   `json:"failed"`
	Retried         int   `json:"retried"`
	Released        int   `json:"released"`
	Messages        int   `json:"messages"`
	MessageFailures int   `json:"message_failures"`
}

// DeliveryService drains the notification queue: it claims entries, evaluates each
// user's goal, and fans the chosen message out to their contacts.
type DeliveryService struct {
	queue      repository.QueueRepository
	users      repository.UserRepository
	contacts   repository.ContactRepository
	deliveries repository.DeliveryRepository
	events     repository.EventRepository
	goals      *GoalService
	progress   *ProgressService
	dedup      *message.Deduplicator
	transports Transports
	cfg        DeliveryConfig
	now        func() time.Time
	sleep      func(ctx context.Context, d time.Duration)
}

func NewDeliveryService(
	queue repository.QueueRepository,
	users repository.UserRepository,
	contacts repository.ContactRepository,
	deliveries repository.DeliveryRepository,
	events repository.EventRepository,
	goals *GoalService,
	progress *ProgressService,
	dedup *message.Deduplicator,
	transports Transports,
	cfg DeliveryConfig,
) *DeliveryService {
	return &DeliveryService{
		queue:      queue,
		users:      users,
		contacts:   contacts,
		deliveries: deliveries,
		events:     events,
		goals:      goals,
		progress:   progress,
		dedup:      dedup,
		transports: transports,
		cfg:        cfg.withDefaults(),
		now:        time.Now,
		sleep:      sleepContext,
	}
}

// Run processes one bounded batch. Entries not yet started when the run's time
// budget or send budget runs out go back to the queue untouched. Entries already
// started finish their sends past the deadline.
func (s *DeliveryService) Run(ctx context.Context, now time.Time) (*RunSummary, error) {
	if s.cfg.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.RunTimeout)
		defer cancel()
	}

	summary := &RunSummary{}

	reaped, err := s.Reap(ctx, now)
	if err != nil {
		return nil, err
	}
	summary.Reaped = reaped

	entries, err := s.queue.Claim(ctx, now, s.cfg.BatchSize)
	if err != nil {
		return nil, fmt.Errorf("failed to claim queue entries: %w", err)
	}
	summary.Claimed = len(entries)

	budget := newSendBudget(s.cfg.MaxSendsPerRun, s.cfg.PaceEvery, s.cfg.PaceDelay, s.now, s.sleep)

	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(s.cfg.Concurrency)
	for _, entry := range entries {
		g.Go(func() error {
			out := s.process(ctx, entry, budget)
			mu.Lock()
			summary.add(out)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	slog.Info("delivery run finished",
		"claimed", summary.Claimed,
		"sent", summary.Sent,
		"skipped", summary.Skipped,
		"failed", summary.Failed,
		"retried", summary.Retried,
		"released", summary.Released,
		"messages", summary.Messages,
	)
	return summary, nil
}

// Reap returns entries stuck in processing, e.g. after a crashed run, to the queue.
func (s *DeliveryService) Reap(ctx context.Context, now time.Time) (int64, error) {
	reaped, err := s.queue.ReapStale(ctx, now.Add(-s.cfg.StaleAfter))
	if err != nil {
		return 0, fmt.Errorf("failed to reap stale entries: %w", err)
	}
	if reaped > 0 {
		slog.Warn("requeued stale processing entries", "count", reaped)
	}
	return reaped, nil
}

type entryOutcome struct {
	status          string
	released        bool
	messages        int
	messageFailures int
}

func (s *RunSummary) add(out entryOutcome) {
	s.Messages += out.messages
	s.MessageFailures += out.messageFailures
	if out.released {
		s.Released++
		return
	}
	switch out.status {
	case model.QueueStatusSent:
		s.Sent++
	case model.QueueStatusSkipped:
		s.Skipped++
	case model.QueueStatusFailed:
		s.Failed++
	case model.QueueStatusQueued:
		s.Retried++
	}
}

// evaluation is everything decided about an entry before any message goes out.
type evaluation struct {
	user     *model.User
	goal     *model.Goal
	progress Progress
	intent   message.Intent
	style    message.Style
	contacts []*model.Contact
}

func (s *DeliveryService) process(ctx context.Context, entry *model.QueueEntry, budget *sendBudget) entryOutcome {
	// the run deadline only gates starting an entry, once started it runs to completion
	store := context.WithoutCancel(ctx)
	log := slog.With("entry_id", entry.ID, "user_id", entry.UserID)

	if ctx.Err() != nil {
		return s.release(store, entry, log)
	}

	eval, resolution, err := s.evaluate(store, entry)
	if err != nil {
		log.Warn("queue entry evaluation failed", "error", err)
		return s.fail(store, entry, err.Error(), true, 0)
	}
	if resolution != "" {
		return s.skip(store, entry, resolution, log)
	}

	previous, err := s.deliveries.ByEntry(store, entry.ID)
	if err != nil {
		return s.fail(store, entry, fmt.Sprintf("failed to load deliveries: %v", err), true, 0)
	}
	alreadySent := make(map[string]bool, len(previous))
	for _, d := range previous {
		if d.Status == model.DeliveryStatusSent {
			alreadySent[d.ContactID] = true
		}
	}

	var pending []*model.Contact
	for _, c := range eval.contacts {
		if !alreadySent[c.ID] {
			pending = append(pending, c)
		}
	}
	if len(pending) == 0 {
		return s.resolve(store, entry, model.QueueStatusSent, nil, nil, entryOutcome{}, log)
	}

	if !budget.reserve(len(pending)) {
		return s.release(store, entry, log)
	}

	out := entryOutcome{}
	sent := len(alreadySent)
	var retryable, permanent int
	var lastErr string
	for _, contact := range pending {
		result, d := s.sendOne(store, entry, eval, contact, budget)
		if err := s.deliveries.Save(store, d); err != nil {
			log.Error("failed to save delivery", "error", err, "contact_id", contact.ID)
		}
		if result.Success {
			sent++
			out.messages++
			continue
		}
		out.messageFailures++
		lastErr = result.Error()
		if result.Retryable() {
			retryable++
		} else {
			permanent++
		}
		log.Warn("message send failed",
			"contact_id", contact.ID,
			"channel", contact.Channel(),
			"code", result.ErrorCode,
			"retryable", result.Retryable(),
			"error", result.Err,
		)
	}

	if retryable > 0 {
		failed := s.fail(store, entry, lastErr, true, sent)
		failed.messages, failed.messageFailures = out.messages, out.messageFailures
		return failed
	}
	if sent == 0 {
		failed := s.fail(store, entry, lastErr, false, 0)
		failed.messages, failed.messageFailures = out.messages, out.messageFailures
		return failed
	}

	var errPtr *string
	if permanent > 0 {
		errPtr = &lastErr
	}
	return s.resolve(store, entry, model.QueueStatusSent, nil, errPtr, out, log)
}

// evaluate returns either an evaluation or a resolution explaining why nothing is sent.
func (s *DeliveryService) evaluate(ctx context.Context, entry *model.QueueEntry) (*evaluation, string, error) {
	user, err := s.users.ByID(ctx, entry.UserID)
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, model.ResolutionUserInactive, nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("failed to load user: %w", err)
	}
	if user.IsDisabled() || !user.NotificationEnabled {
		return nil, model.ResolutionUserInactive, nil
	}

	at := entry.ScheduledFor.In(user.Location())
	current, err := s.goals.ResolveActiveGoal(ctx, user.ID, at)
	if err != nil {
		return nil, "", err
	}
	if current == nil {
		return nil, model.ResolutionNoGoal, nil
	}
	p, ok := period.Current(current, at)
	if !ok {
		return nil, model.ResolutionNoGoal, nil
	}

	// a period is always judged by the goal that was in effect when it began
	goal, err := s.goals.ResolveActiveGoal(ctx, user.ID, p.Start)
	if err != nil {
		return nil, "", err
	}
	if goal == nil {
		goal = current
	}

	limit := max(1, user.MaxMessagesPerPeriod)
	count, err := s.deliveries.CountSentEntries(ctx, user.ID, p.Start, p.End, entry.ID)
	if err != nil {
		return nil, "", fmt.Errorf("failed to count period messages: %w", err)
	}
	if count >= limit {
		return nil, model.ResolutionPeriodCap, nil
	}

	progress, err := s.progress.CalculateProgress(ctx, user.ID, goal, p)
	if err != nil {
		return nil, "", err
	}

	intent, resolution := decideIntent(user, progress, p, at)
	if resolution != "" {
		return nil, resolution, nil
	}

	contacts, err := s.contacts.Receivers(ctx, user.ID)
	if err != nil {
		return nil, "", fmt.Errorf("failed to load contacts: %w", err)
	}
	if len(contacts) == 0 {
		return nil, model.ResolutionNoContacts, nil
	}

	style, err := message.ParseStyle(user.MessageStyle)
	if err != nil {
		slog.Warn("unknown message style, using supportive", "user_id", user.ID, "style", user.MessageStyle)
		style = message.StyleSupportive
	}

	return &evaluation{
		user:     user,
		goal:     goal,
		progress: progress,
		intent:   intent,
		style:    style,
		contacts: contacts,
	}, "", nil
}

// decideIntent picks the message for a progress snapshot. An empty resolution means send.
func decideIntent(user *model.User, progress Progress, p period.Period, at time.Time) (message.Intent, string) {
	if progress.Met() {
		if user.NotifyOnSuccess {
			return message.IntentCongratulatory, ""
		}
		return 0, model.ResolutionGoalMet
	}

	if p.IsFinalDay(at) || p.Ended(at) {
		if progress.Current == 0 {
			return message.IntentMissedGoal, ""
		}
		if !user.NotifyOnPartial {
			return 0, model.ResolutionPartialProgress
		}
		return message.IntentWeeklySummary, ""
	}

	if progress.Current == 0 {
		return message.IntentMotivational, ""
	}
	return message.IntentCheckIn, ""
}

func (s *DeliveryService) sendOne(ctx context.Context, entry *model.QueueEntry, eval *evaluation, contact *model.Contact, budget *sendBudget) (SendResult, *model.Delivery) {
	now := s.now().UTC()
	d := &model.Delivery{
		ID:           uuid.New().String(),
		QueueEntryID: entry.ID,
		UserID:       entry.UserID,
		ContactID:    contact.ID,
		Channel:      contact.Channel(),
		Intent:       eval.intent.String(),
		Attempts:     1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	pick, err := s.dedup.UniqueMessage(ctx, contact.ID, eval.style, eval.intent, s.cfg.MaxTemplateAttempts)
	if err != nil {
		result := SendResult{ErrorCode: ErrorCodeBadRequest, Err: err}
		return result, s.finishDelivery(d, result)
	}

	text := message.Format(pick.Template, message.FormatData{
		User:            eval.user.DisplayName(),
		Contact:         contact.Name,
		GoalType:        eval.goal.Label(),
		Completed:       message.Num(eval.progress.Current),
		Goal:            message.Num(eval.progress.Target),
		Remaining:       message.Num(eval.progress.Remaining()),
		ProgressPercent: message.Num(eval.progress.Percent()),
	})
	d.Content = text
	d.ContentHash = message.Hash(pick.Template)

	transport, ok := s.transports[d.Channel]
	if !ok {
		result := SendResult{ErrorCode: ErrorCodeNotConfigured, Err: fmt.Errorf("no transport for channel %s", d.Channel)}
		s.releasePick(ctx, contact.ID, pick)
		return result, s.finishDelivery(d, result)
	}

	to := Recipient{Name: contact.Name}
	if contact.Email != nil {
		to.Email = *contact.Email
	}
	if contact.Phone != nil {
		to.Phone = *contact.Phone
	}

	budget.pace(ctx)
	sendCtx, cancel := context.WithTimeout(ctx, s.cfg.SendTimeout)
	result := transport.Send(sendCtx, to, Content{Text: text})
	cancel()
	if !result.Success {
		s.releasePick(ctx, contact.ID, pick)
	}
	return result, s.finishDelivery(d, result)
}

// releasePick keeps a template the contact never received out of their history.
func (s *DeliveryService) releasePick(ctx context.Context, contactID string, pick message.Pick) {
	if err := s.dedup.Release(ctx, contactID, pick); err != nil {
		slog.Warn("failed to release message template", "error", err, "contact_id", contactID)
	}
}

func (s *DeliveryService) finishDelivery(d *model.Delivery, result SendResult) *model.Delivery {
	if result.Success {
		at := s.now().UTC()
		d.Status = model.DeliveryStatusSent
		d.SentAt = &at
		if result.ProviderMessageID != "" {
			id := result.ProviderMessageID
			d.ProviderMessageID = &id
		}
		return d
	}
	code := result.ErrorCode
	d.Status = model.DeliveryStatusFailed
	d.ErrorCode = &code
	return d
}

// fail records a failed attempt. Retryable failures go back to the queue while attempts remain.
func (s *DeliveryService) fail(ctx context.Context, entry *model.QueueEntry, reason string, retryable bool, sent int) entryOutcome {
	log := slog.With("entry_id", entry.ID, "user_id", entry.UserID)
	attempts := entry.Attempts + 1

	if retryable && attempts < entry.MaxAttempts {
		if err := s.queue.Retry(ctx, entry.ID, attempts, reason); err != nil {
			log.Error("failed to requeue entry", "error", err)
		}
		log.Info("queue entry requeued", "attempts", attempts, "reason", reason)
		return entryOutcome{status: model.QueueStatusQueued}
	}

	status := model.QueueStatusFailed
	if sent > 0 {
		status = model.QueueStatusSent
	}
	return s.resolve(ctx, entry, status, nil, &reason, entryOutcome{}, log)
}

func (s *DeliveryService) skip(ctx context.Context, entry *model.QueueEntry, resolution string, log *slog.Logger) entryOutcome {
	return s.resolve(ctx, entry, model.QueueStatusSkipped, &resolution, nil, entryOutcome{}, log)
}

func (s *DeliveryService) resolve(ctx context.Context, entry *model.QueueEntry, status string, resolution, lastError *string, out entryOutcome, log *slog.Logger) entryOutcome {
	attempts := entry.Attempts + 1
	if err := s.queue.Resolve(ctx, entry.ID, status, attempts, resolution, lastError); err != nil {
		log.Error("failed to resolve queue entry", "error", err, "status", status)
	}

	meta := map[string]any{"queue_entry_id": entry.ID, "slot": entry.Period, "attempts": attempts}
	if resolution != nil {
		meta["resolution"] = *resolution
	}
	if lastError != nil {
		meta["error"] = *lastError
	}
	eventType := map[string]string{
		model.QueueStatusSent:    model.EventQueueEntrySent,
		model.QueueStatusSkipped: model.EventQueueEntrySkipped,
		model.QueueStatusFailed:  model.EventQueueEntryFailed,
	}[status]
	if err := s.events.Record(ctx, entry.UserID, nil, eventType, meta); err != nil {
		log.Warn("failed to record queue event", "error", err)
	}

	log.Info("queue entry resolved", "status", status, "attempts", attempts)
	out.status = status
	return out
}

func (s *DeliveryService) release(ctx context.Context, entry *model.QueueEntry, log *slog.Logger) entryOutcome {
	if err := s.queue.Release(ctx, entry.ID); err != nil {
		log.Error("failed to release queue entry", "error", err)
	}
	return entryOutcome{released: true}
}

// sendBudget caps the sends of one run and pauses after every `every` sends.
type sendBudget struct {
	mu        sync.Mutex
	remaining int
	sent      int
	every     int
	delay     time.Duration
	resumeAt  time.Time
	now       func() time.Time
	sleep     func(ctx context.Context, d time.Duration)
}

func newSendBudget(limit, every int, delay time.Duration, now func() time.Time, sleep func(context.Context, time.Duration)) *sendBudget {
	return &sendBudget{remaining: limit, every: every, delay: delay, now: now, sleep: sleep}
}

// reserve takes n sends from the budget, all or nothing.
func (b *sendBudget) reserve(n int) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if n > b.remaining {
		return false
	}
	b.remaining -= n
	return true
}

func (b *sendBudget) pace(ctx context.Context) {
	b.mu.Lock()
	if b.delay > 0 && b.sent > 0 && b.sent%b.every == 0 {
		b.resumeAt = b.now().Add(b.delay)
	}
	b.sent++
	wait := b.resumeAt.Sub(b.now())
	b.mu.Unlock()

	if wait > 0 {
		b.sleep(ctx, wait)
	}
}

func sleepContext(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}

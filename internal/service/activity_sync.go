package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/rundownapp/rundown/internal/model"
	"github.com/rundownapp/rundown/internal/repository"
	"github.com/rundownapp/rundown/internal/strava"
)

const (
	defaultSyncLookback = 35 * 24 * time.Hour
	syncOverlap         = 24 * time.Hour
	syncConcurrency     = 4
)

// ActivityLister fetches activities from the tracking source.
type ActivityLister interface {
	ListActivities(ctx context.Context, conn *model.StravaConnection, after, before time.Time) ([]strava.Activity, error)
}

type SyncSummary struct {
	Users      int `json:"users"`
	Activities int `json:"activities"`
	Failures   int `json:"failures"`
}

type ActivitySyncService struct {
	source     ActivityLister
	conns      repository.StravaRepository
	activities repository.ActivityRepository
	now        func() time.Time
}

func NewActivitySyncService(source ActivityLister, conns repository.StravaRepository, activities repository.ActivityRepository) *ActivitySyncService {
	return &ActivitySyncService{
		source:     source,
		conns:      conns,
		activities: activities,
		now:        time.Now,
	}
}

// SyncUser pulls activities since the last sync and returns how many were new.
func (s *ActivitySyncService) SyncUser(ctx context.Context, userID string) (int, error) {
	conn, err := s.conns.ByUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	return s.sync(ctx, conn)
}

func (s *ActivitySyncService) SyncAll(ctx context.Context) (*SyncSummary, error) {
	conns, err := s.conns.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list strava connections: %w", err)
	}

	summary := &SyncSummary{Users: len(conns)}
	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(syncConcurrency)
	for _, conn := range conns {
		g.Go(func() error {
			n, err := s.sync(ctx, conn)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				summary.Failures++
				slog.Warn("activity sync failed", "user_id", conn.UserID, "error", err)
				return nil
			}
			summary.Activities += n
			return nil
		})
	}
	_ = g.Wait()

	slog.Info("activity sync finished", "users", summary.Users, "activities", summary.Activities, "failures", summary.Failures)
	return summary, nil
}

func (s *ActivitySyncService) sync(ctx context.Context, conn *model.StravaConnection) (int, error) {
	now := s.now().UTC()
	after := now.Add(-defaultSyncLookback)
	if conn.LastSyncedAt != nil {
		after = conn.LastSyncedAt.Add(-syncOverlap)
	}

	listed, err := s.source.ListActivities(ctx, conn, after, now)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrActivityFetch, err)
	}

	activities := make([]*model.Activity, 0, len(listed))
	for _, a := range listed {
		activities = append(activities, &model.Activity{
			ID:                uuid.New().String(),
			UserID:            conn.UserID,
			Source:            model.ActivitySourceStrava,
			ExternalID:        strconv.FormatInt(a.ID, 10),
			Type:              a.Kind(),
			Name:              a.Name,
			StartDate:         a.StartDate.UTC(),
			DistanceMeters:    a.Distance,
			MovingTimeSeconds: a.MovingTime,
			CreatedAt:         now,
		})
	}

	inserted, err := s.activities.Insert(ctx, activities)
	if err != nil {
		return 0, fmt.Errorf("failed to store activities: %w", err)
	}
	if err := s.conns.MarkSynced(ctx, conn.UserID, now); err != nil && !errors.Is(err, repository.ErrStravaConnectionNotFound) {
		return inserted, fmt.Errorf("failed to mark sync: %w", err)
	}

	slog.Debug("synced activities", "user_id", conn.UserID, "listed", len(listed), "inserted", inserted)
	return inserted, nil
}

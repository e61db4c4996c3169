package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/rundownapp/rundown/internal/app"
	"github.com/rundownapp/rundown/internal/service"
)

func RunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run all jobs on their cron schedules until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return withApp(ctx, runScheduler)
		},
	}
}

func runScheduler(ctx context.Context, a *app.App) error {
	c := cron.New(cron.WithLocation(a.Cfg.Location()), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))

	slotSpecs := map[service.Slot]string{
		service.SlotMorning:   a.Cfg.SlotMorningCron,
		service.SlotAfternoon: a.Cfg.SlotAfternoonCron,
		service.SlotEvening:   a.Cfg.SlotEveningCron,
	}
	for slot, spec := range slotSpecs {
		_, err := c.AddFunc(spec, func() {
			result, err := a.SchedulerService.RunSlot(ctx, slot, time.Now())
			if err != nil {
				slog.Error("scheduled slot failed", "error", err, "slot", slot)
				return
			}
			a.ReportService.Archive(ctx, "schedule", result)
		})
		if err != nil {
			return fmt.Errorf("invalid cron spec for %s slot: %w", slot, err)
		}
	}

	_, err := c.AddFunc(a.Cfg.DeliveryCron, func() {
		summary, err := a.DeliveryService.Run(ctx, time.Now())
		if err != nil {
			slog.Error("scheduled delivery failed", "error", err)
			return
		}
		if summary.Claimed > 0 {
			a.ReportService.Archive(ctx, "deliver", summary)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid delivery cron spec: %w", err)
	}

	_, err = c.AddFunc(a.Cfg.SyncCron, func() {
		summary, err := a.SyncService.SyncAll(ctx)
		if err != nil {
			slog.Error("scheduled sync failed", "error", err)
			return
		}
		a.ReportService.Archive(ctx, "sync", summary)
	})
	if err != nil {
		return fmt.Errorf("invalid sync cron spec: %w", err)
	}

	c.Start()
	slog.Info("worker started", "timezone", a.Cfg.SchedulerTimezone, "jobs", len(c.Entries()))

	<-ctx.Done()
	slog.Info("worker stopping, waiting for running jobs")
	<-c.Stop().Done()
	return nil
}

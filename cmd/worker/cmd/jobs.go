package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rundownapp/rundown/internal/app"
	"github.com/rundownapp/rundown/internal/service"
)

func ScheduleCmd() *cobra.Command {
	var slot string

	c := &cobra.Command{
		Use:   "schedule",
		Short: "Queue evaluations for every user due in a slot",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := service.ParseSlot(slot)
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				result, err := a.SchedulerService.RunSlot(ctx, s, time.Now())
				if err != nil {
					return err
				}
				a.ReportService.Archive(ctx, "schedule", result)
				return printJSON(result)
			})
		},
	}
	c.Flags().StringVar(&slot, "slot", "", "morning, afternoon or evening")
	_ = c.MarkFlagRequired("slot")
	return c
}

func DeliverCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "deliver",
		Short: "Process one batch of the notification queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				summary, err := a.DeliveryService.Run(ctx, time.Now())
				if err != nil {
					return err
				}
				a.ReportService.Archive(ctx, "deliver", summary)
				return printJSON(summary)
			})
		},
	}
}

func SyncCmd() *cobra.Command {
	var userID string

	c := &cobra.Command{
		Use:   "sync",
		Short: "Pull new activities from Strava",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				if userID != "" {
					n, err := a.SyncService.SyncUser(ctx, userID)
					if err != nil {
						return err
					}
					return printJSON(map[string]int{"activities": n})
				}
				summary, err := a.SyncService.SyncAll(ctx)
				if err != nil {
					return err
				}
				a.ReportService.Archive(ctx, "sync", summary)
				return printJSON(summary)
			})
		},
	}
	c.Flags().StringVar(&userID, "user", "", "sync a single user")
	return c
}

func ReapCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reap",
		Short: "Requeue entries stuck in processing",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				n, err := a.DeliveryService.Reap(ctx, time.Now())
				if err != nil {
					return err
				}
				fmt.Printf("requeued %d entries\n", n)
				return nil
			})
		},
	}
}

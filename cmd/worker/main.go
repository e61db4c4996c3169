package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/rundownapp/rundown/cmd/worker/cmd"
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "worker",
		Short:        "Accountability message jobs",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(cmd.RunCmd())
	rootCmd.AddCommand(cmd.ScheduleCmd())
	rootCmd.AddCommand(cmd.DeliverCmd())
	rootCmd.AddCommand(cmd.SyncCmd())
	rootCmd.AddCommand(cmd.ReapCmd())
	rootCmd.AddCommand(cmd.MigrateCmd())
	rootCmd.AddCommand(cmd.MigrateDownCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

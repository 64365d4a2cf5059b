package main

import (
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/weekplan/core/cmd/api/commands"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "weekplan",
		Short: "WeekPlan API Server",
		Long:  `WeekPlan is a personal weekly task planner with a drag-and-drop board, an unscheduled pool, archive, comments and attachments.`,
	}

	rootCmd.AddCommand(commands.NewServeCommand())
	rootCmd.AddCommand(commands.NewMigrateCommand())
	rootCmd.AddCommand(commands.NewUserCommand())

	if err := rootCmd.Execute(); err != nil {
		log.Printf("Command execution failed: %v", err)
		os.Exit(1)
	}
}

package main

import (
	"os"
	_ "time/tzdata"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "coachline",
	Short: "coachline - Telegram nutrition coach and reminder bot",
	RunE:  runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the bot, the schedulers and the HTTP health server",
	RunE:  runServe,
}

var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "List tasks of the active recipient",
	RunE:  runTasks,
}

var parseCmd = &cobra.Command{
	Use:   "parse <text>",
	Short: "Show how a reminder request would be parsed",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runParse,
}

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete finished tasks older than RETENTION_DAYS",
	RunE:  runPrune,
}

var (
	allFlag  bool
	chatFlag int64
)

func init() {
	tasksCmd.Flags().BoolVarP(&allFlag, "all", "a", false, "Include completed tasks (latest HISTORY_LIMIT)")
	tasksCmd.Flags().Int64Var(&chatFlag, "chat", 0, "Chat ID (defaults to the active recipient)")
	rootCmd.AddCommand(serveCmd, tasksCmd, parseCmd, pruneCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

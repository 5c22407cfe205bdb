package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/hray3182/coachline/internal/clock"
	"github.com/hray3182/coachline/internal/config"
	"github.com/hray3182/coachline/internal/models"
	"github.com/hray3182/coachline/internal/parser"
	"github.com/hray3182/coachline/internal/scheduler"
)

func runTasks(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	st, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.close()

	chatID := chatFlag
	if chatID == 0 {
		id, ok, err := st.recipients.LoadRecipient(ctx)
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(cmd.OutOrStdout(), "No active recipient. Send /start to the bot or pass --chat.")
			return nil
		}
		chatID = id
	}

	limit := 0
	if allFlag {
		limit = cfg.HistoryLimit
	}
	list, err := st.tasks.ListFor(ctx, chatID, allFlag, limit)
	if err != nil {
		return err
	}
	printTasks(cmd.OutOrStdout(), chatID, list)
	return nil
}

func printTasks(w io.Writer, chatID int64, list []*models.Task) {
	if len(list) == 0 {
		fmt.Fprintf(w, "No tasks for chat %d\n", chatID)
		return
	}
	fmt.Fprintf(w, "Tasks for chat %d:\n", chatID)
	for _, t := range list {
		fmt.Fprintf(w, "#%d  %s  %-30s reminder=%v followup=%v completed=%v\n",
			t.TaskID, t.TargetAt.Format("2006-01-02 15:04"), t.Description, t.ReminderSent, t.FollowupSent, t.Completed)
	}
}

func runParse(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	loc, err := clock.LoadZone(cfg.Timezone)
	if err != nil {
		return err
	}
	return printParse(cmd.OutOrStdout(), parser.New(parser.NewWhenResolver(), clock.System(loc), loc), args)
}

func printParse(w io.Writer, p *parser.Parser, args []string) error {
	res, err := p.Parse(strings.Join(args, " "))
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Description: %s\n", res.Description)
	fmt.Fprintf(w, "Time phrase: %s\n", res.TimePhrase)
	fmt.Fprintf(w, "Target:      %s\n", res.Target.Format("2006-01-02 15:04 MST"))
	fmt.Fprintf(w, "Reminder:    %s\n", res.Target.Add(-models.ReminderLead).Format("2006-01-02 15:04 MST"))
	fmt.Fprintf(w, "Follow-up:   %s\n", res.Target.Add(models.FollowupDelay).Format("2006-01-02 15:04 MST"))
	return nil
}

func runPrune(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	loc, err := clock.LoadZone(cfg.Timezone)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	st, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.close()

	r, err := scheduler.NewRetention(st.tasks, clock.System(loc), loc, cfg.RetentionDays, cfg.PruneSchedule)
	if err != nil {
		return err
	}
	n, err := r.Prune(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Pruned %d tasks\n", n)
	return nil
}

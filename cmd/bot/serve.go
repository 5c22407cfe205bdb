package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hray3182/coachline/internal/ai"
	"github.com/hray3182/coachline/internal/assistant"
	"github.com/hray3182/coachline/internal/bot"
	"github.com/hray3182/coachline/internal/bot/handlers"
	"github.com/hray3182/coachline/internal/clock"
	"github.com/hray3182/coachline/internal/models"
	"github.com/hray3182/coachline/internal/notify"
	"github.com/hray3182/coachline/internal/parser"
	"github.com/hray3182/coachline/internal/scheduler"
	"github.com/hray3182/coachline/internal/server"
	"github.com/hray3182/coachline/internal/state"
	"github.com/hray3182/coachline/internal/tasks"
)

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.TelegramToken == "" {
		return fmt.Errorf("TELEGRAM_TOKEN is required")
	}

	loc, err := clock.LoadZone(cfg.Timezone)
	if err != nil {
		return err
	}
	clk := clock.System(loc)

	// Cancelled on SIGINT or SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.close()

	api, err := bot.NewAPI(cfg.TelegramToken, cfg.DevMode)
	if err != nil {
		return err
	}
	sendAPI, err := bot.NewSendAPI(cfg.TelegramToken, cfg.DevMode)
	if err != nil {
		return err
	}
	notifier := notify.NewTelegram(sendAPI)

	runtime := state.New()
	checker := scheduler.NewChecker(st.tasks, notifier, clk, runtime, cfg.CheckerInterval)
	daily, err := scheduler.NewDaily(models.DefaultSchedule(), runtime, notifier, clk, cfg.SchedulerInterval)
	if err != nil {
		return err
	}
	retention, err := scheduler.NewRetention(st.tasks, clk, loc, cfg.RetentionDays, cfg.PruneSchedule)
	if err != nil {
		return err
	}

	p := parser.New(parser.NewWhenResolver(), clk, loc)
	manager := tasks.NewManager(st.tasks, notifier, clk, cfg.HistoryLimit)
	a := assistant.New(runtime, st.recipients, p, manager, checker)
	if err := a.Restore(ctx); err != nil {
		log.Printf("Failed to restore recipient: %v", err)
	}

	// Initialize AI client (optional)
	var coach handlers.Coach
	if cfg.AIAPIKey != "" {
		coach = ai.New(cfg.AIAPIKey, cfg.AIBaseURL, cfg.AIModel, loc)
		log.Printf("AI client initialized (model: %s)", cfg.AIModel)
	} else {
		log.Println("AI client not configured, coaching replies disabled")
	}

	h := handlers.New(notifier, a, daily, coach, clk, cfg.DevMode)
	b := bot.New(api, h)
	srv := server.New(a, clk, cfg.DevMode)

	var wg sync.WaitGroup
	for _, loop := range []func(context.Context){daily.Run, checker.Run, retention.Run} {
		wg.Add(1)
		go func(run func(context.Context)) {
			defer wg.Done()
			run(ctx)
		}(loop)
	}

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- srv.Run(ctx, net.JoinHostPort("", cfg.Port))
	}()

	log.Println("Starting bot...")
	botErr := b.Start(ctx)
	stop()
	log.Println("Shutting down...")
	wg.Wait()

	if err := <-serverErr; err != nil {
		log.Printf("HTTP server error: %v", err)
	}
	if botErr != nil && !errors.Is(botErr, context.Canceled) {
		return fmt.Errorf("bot error: %w", botErr)
	}
	return nil
}

package handlers

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/hray3182/coachline/internal/ai"
	"github.com/hray3182/coachline/internal/assistant"
	"github.com/hray3182/coachline/internal/clock"
	"github.com/hray3182/coachline/internal/format"
	"github.com/hray3182/coachline/internal/models"
	"github.com/hray3182/coachline/internal/notify"
	"github.com/hray3182/coachline/internal/rrule"
	"github.com/hray3182/coachline/internal/scheduler"
)

// Coach produces free-form coaching replies.
type Coach interface {
	Coach(ctx context.Context, day ai.Context, history []ai.Message) (string, error)
}

type Handlers struct {
	notifier  notify.Notifier
	assistant *assistant.Assistant
	daily     *scheduler.Daily
	coach     Coach
	clock     clock.Clock
	devMode   bool

	sessionMu sync.Mutex
	sessions  map[int64]*ConversationSession
}

// New wires the handlers. coach may be nil when no AI key is configured.
func New(notifier notify.Notifier, a *assistant.Assistant, daily *scheduler.Daily, coach Coach, c clock.Clock, devMode bool) *Handlers {
	return &Handlers{
		notifier:  notifier,
		assistant: a,
		daily:     daily,
		coach:     coach,
		clock:     c,
		devMode:   devMode,
		sessions:  make(map[int64]*ConversationSession),
	}
}

func (h *Handlers) HandleCommand(ctx context.Context, msg *tgbotapi.Message) {
	h.debug("command /%s from %d", msg.Command(), msg.Chat.ID)

	switch msg.Command() {
	case "start":
		h.handleStart(ctx, msg)
	case "help":
		h.sendMessage(ctx, msg.Chat.ID, format.Help())
	case "debug":
		h.handleDebug(ctx, msg)
	case "status":
		h.sendMessage(ctx, msg.Chat.ID, format.StatusCard(h.assistant.Status(ctx), h.clock.Now()))
	case "time":
		now := h.clock.Now()
		h.sendMessage(ctx, msg.Chat.ID, format.TimeCard(now, rrule.UpcomingToday(h.daily.Events(), now)))
	case "test":
		h.handleTest(ctx, msg)
	case "trigger":
		h.handleTrigger(ctx, msg)
	case "tasks":
		h.handleTasks(ctx, msg)
	case "history":
		h.handleHistory(ctx, msg)
	default:
		h.sendMessage(ctx, msg.Chat.ID, format.UnknownCommand)
	}
}

// HandleMessage gives plain text to the assistant first and falls back to the coach.
func (h *Handlers) HandleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if strings.TrimSpace(msg.Text) == "" {
		return
	}
	h.debug("message from %d: %q", msg.Chat.ID, msg.Text)

	out := h.assistant.OnUserText(ctx, msg.Chat.ID, msg.Text)
	if out.Kind != assistant.KindIgnored {
		h.debug("assistant handled message as %s", out.Kind)
		h.sendMessage(ctx, msg.Chat.ID, out.Reply)
		return
	}

	h.handleCoachMessage(ctx, msg)
}

func (h *Handlers) handleStart(ctx context.Context, msg *tgbotapi.Message) {
	if err := h.assistant.ActivateRecipient(ctx, msg.Chat.ID); err != nil {
		log.Printf("[handlers] failed to activate %d: %v", msg.Chat.ID, err)
		h.sendMessage(ctx, msg.Chat.ID, "⚠️ Could not save your chat, reminders will stop after a restart.")
	}
	h.sendMessage(ctx, msg.Chat.ID, format.Start(msg.Chat.ID, h.clock.Now(), h.daily.Events()))
}

func (h *Handlers) handleDebug(ctx context.Context, msg *tgbotapi.Message) {
	text := format.DebugCard(h.assistant.Status(ctx), msg.Chat.ID, h.clock.Now(), h.daily.Events())
	h.sendMessage(ctx, msg.Chat.ID, text)
}

func (h *Handlers) handleTest(ctx context.Context, msg *tgbotapi.Message) {
	if _, ok := h.assistant.State().Recipient(); !ok {
		h.sendMessage(ctx, msg.Chat.ID, format.StartFirstReply)
		return
	}
	event, ok := models.Lookup(h.daily.Events(), "night_craving")
	if !ok {
		h.sendMessage(ctx, msg.Chat.ID, "❌ No test prompt configured")
		return
	}
	h.sendMessage(ctx, msg.Chat.ID, "🧪 Sending test reminder...")
	h.fire(ctx, msg.Chat.ID, event)
}

func (h *Handlers) handleTrigger(ctx context.Context, msg *tgbotapi.Message) {
	recipient, ok := h.assistant.State().Recipient()
	if !ok {
		h.sendMessage(ctx, msg.Chat.ID, format.StartFirstReply)
		return
	}

	name := strings.TrimSpace(msg.CommandArguments())
	if name == "" {
		h.sendMessage(ctx, msg.Chat.ID, format.TriggerUsage(h.daily.Events()))
		return
	}
	event, ok := models.Lookup(h.daily.Events(), name)
	if !ok {
		h.sendMessage(ctx, msg.Chat.ID, fmt.Sprintf("❌ Unknown event: `%s`", name))
		return
	}

	h.sendMessage(ctx, msg.Chat.ID, fmt.Sprintf("🔧 Triggering: `%s`", event.Name))
	h.fire(ctx, recipient, event)
}

func (h *Handlers) fire(ctx context.Context, chatID int64, event models.RecurringEvent) {
	if err := h.daily.Fire(ctx, chatID, event); err != nil {
		n := h.assistant.State().RecordError()
		log.Printf("[handlers] manual %s failed (errors=%d): %v", event.Name, n, err)
	}
}

func (h *Handlers) handleTasks(ctx context.Context, msg *tgbotapi.Message) {
	tasks, err := h.assistant.Tasks().List(ctx, msg.Chat.ID)
	if err != nil {
		log.Printf("[handlers] failed to list tasks for %d: %v", msg.Chat.ID, err)
		h.sendMessage(ctx, msg.Chat.ID, "⚠️ Could not load your tasks.")
		return
	}
	h.sendMessage(ctx, msg.Chat.ID, format.TaskList(tasks))
}

func (h *Handlers) handleHistory(ctx context.Context, msg *tgbotapi.Message) {
	tasks, err := h.assistant.Tasks().History(ctx, msg.Chat.ID)
	if err != nil {
		log.Printf("[handlers] failed to load history for %d: %v", msg.Chat.ID, err)
		h.sendMessage(ctx, msg.Chat.ID, "⚠️ Could not load your tasks.")
		return
	}
	h.sendMessage(ctx, msg.Chat.ID, format.History(tasks))
}

func (h *Handlers) sendMessage(ctx context.Context, chatID int64, text string) {
	if err := h.notifier.Send(ctx, chatID, text); err != nil {
		log.Printf("[handlers] failed to send message to %d: %v", chatID, err)
	}
}

func (h *Handlers) debug(tmpl string, args ...any) {
	if h.devMode {
		log.Printf("[handlers] "+tmpl, args...)
	}
}

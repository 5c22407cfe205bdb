package handlers

import (
	"context"
	"log"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/hray3182/coachline/internal/ai"
)

// ConversationSession stores multi-turn conversation state
type ConversationSession struct {
	History   []ai.Message
	ExpiresAt time.Time
}

const (
	sessionTimeout = 5 * time.Minute
	maxHistoryLen  = 10
)

func (h *Handlers) handleCoachMessage(ctx context.Context, msg *tgbotapi.Message) {
	if h.coach == nil {
		h.sendMessage(ctx, msg.Chat.ID, "💬 AI coaching is not configured. Try /help.")
		return
	}

	session := h.getOrCreateSession(msg.Chat.ID)

	// Replying to one of our messages puts it back into context.
	if msg.ReplyToMessage != nil && msg.ReplyToMessage.Text != "" &&
		msg.ReplyToMessage.From != nil && msg.ReplyToMessage.From.IsBot {
		session.History = append(session.History, ai.Message{
			Role:    "assistant",
			Content: msg.ReplyToMessage.Text,
		})
	}

	session.History = append(session.History, ai.Message{
		Role:    "user",
		Content: msg.Text,
	})
	if len(session.History) > maxHistoryLen {
		session.History = session.History[len(session.History)-maxHistoryLen:]
	}
	h.debug("conversation history for %d has %d messages", msg.Chat.ID, len(session.History))

	day := ai.Context{
		Now:         h.clock.Now(),
		WorkoutDone: h.assistant.State().WorkoutDone(),
	}
	reply, err := h.coach.Coach(ctx, day, session.History)
	if err != nil {
		log.Printf("[handlers] coach failed for %d: %v", msg.Chat.ID, err)
		h.sendMessage(ctx, msg.Chat.ID, "⚠️ Error: "+err.Error())
		return
	}

	session.History = append(session.History, ai.Message{
		Role:    "assistant",
		Content: reply,
	})
	h.saveSession(msg.Chat.ID, session)
	h.sendMessage(ctx, msg.Chat.ID, reply)
}

func (h *Handlers) getOrCreateSession(chatID int64) *ConversationSession {
	h.sessionMu.Lock()
	defer h.sessionMu.Unlock()

	now := h.clock.Now()
	session, exists := h.sessions[chatID]
	if !exists || now.After(session.ExpiresAt) {
		session = &ConversationSession{History: []ai.Message{}}
		h.sessions[chatID] = session
	}
	session.ExpiresAt = now.Add(sessionTimeout)

	// Callers mutate the copy and hand it back through saveSession.
	return &ConversationSession{
		History:   append([]ai.Message(nil), session.History...),
		ExpiresAt: session.ExpiresAt,
	}
}

func (h *Handlers) saveSession(chatID int64, session *ConversationSession) {
	h.sessionMu.Lock()
	defer h.sessionMu.Unlock()
	if len(session.History) > maxHistoryLen {
		session.History = session.History[len(session.History)-maxHistoryLen:]
	}
	session.ExpiresAt = h.clock.Now().Add(sessionTimeout)
	h.sessions[chatID] = session
}

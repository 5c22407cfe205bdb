// Package notify delivers rendered messages to a chat.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/hray3182/coachline/internal/format"
)

var (
	// ErrNoRecipient is returned when there is nobody to send to.
	ErrNoRecipient = errors.New("no active recipient")
	// ErrSendTimeout is returned when Telegram does not answer within the send timeout.
	ErrSendTimeout = errors.New("telegram send timed out")
)

// DefaultSendTimeout bounds one API call so a hung request cannot stall a scheduler tick.
const DefaultSendTimeout = 20 * time.Second

// Notifier sends text written in the format package's Markdown dialect.
type Notifier interface {
	Send(ctx context.Context, chatID int64, text string) error
}

// Sender is the part of *tgbotapi.BotAPI used for delivery.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram sends messages with formatting entities and falls back to plain
// text when Telegram rejects them.
type Telegram struct {
	api     Sender
	timeout time.Duration
}

func NewTelegram(api Sender) *Telegram {
	return &Telegram{api: api, timeout: DefaultSendTimeout}
}

func (t *Telegram) SetTimeout(d time.Duration) {
	t.timeout = d
}

func (t *Telegram) Send(ctx context.Context, chatID int64, text string) error {
	if chatID == 0 {
		return ErrNoRecipient
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	parsed := format.ParseMarkdown(text)
	msg := tgbotapi.NewMessage(chatID, parsed.Text)
	msg.Entities = parsed.Entities

	err := t.call(ctx, msg)
	if err == nil {
		return nil
	}
	if len(parsed.Entities) == 0 || errors.Is(err, ErrSendTimeout) || ctx.Err() != nil {
		return fmt.Errorf("failed to send message to %d: %w", chatID, err)
	}

	log.Printf("[notify] formatted send to %d failed, retrying as plain text: %v", chatID, err)
	if err := t.call(ctx, tgbotapi.NewMessage(chatID, parsed.Text)); err != nil {
		return fmt.Errorf("failed to send message to %d: %w", chatID, err)
	}
	return nil
}

// call gives up on the request after the send timeout or when ctx ends. The
// abandoned request finishes in the background, bounded by the HTTP client timeout.
func (t *Telegram) call(ctx context.Context, c tgbotapi.Chattable) error {
	done := make(chan error, 1)
	go func() {
		_, err := t.api.Send(c)
		done <- err
	}()

	timer := time.NewTimer(t.timeout)
	defer timer.Stop()

	select {
	case err := <-done:
		return err
	case <-timer.C:
		return ErrSendTimeout
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Recorder is an in-memory Notifier for tests and dry runs. It can be told to fail.
type Recorder struct {
	mu   sync.Mutex
	sent []Message
	fail error
}

// Message is one delivery captured by Recorder.
type Message struct {
	ChatID int64
	Text   string
}

func (r *Recorder) Send(ctx context.Context, chatID int64, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if chatID == 0 {
		return ErrNoRecipient
	}
	if r.fail != nil {
		return r.fail
	}
	r.sent = append(r.sent, Message{ChatID: chatID, Text: text})
	return nil
}

// FailWith makes every following Send return err; nil restores delivery.
func (r *Recorder) FailWith(err error) {
	r.mu.Lock()
	r.fail = err
	r.mu.Unlock()
}

func (r *Recorder) Sent() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Message, len(r.sent))
	copy(out, r.sent)
	return out
}

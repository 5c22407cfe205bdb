// Package assistant is the entry point the chat layer calls into: it activates
// the recipient, turns reminder requests into tasks and reports status.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/hray3182/coachline/internal/format"
	"github.com/hray3182/coachline/internal/models"
	"github.com/hray3182/coachline/internal/parser"
	"github.com/hray3182/coachline/internal/repository"
	"github.com/hray3182/coachline/internal/state"
	"github.com/hray3182/coachline/internal/tasks"
)

type Kind int

const (
	// KindIgnored means the text is not for the assistant; the caller may route it elsewhere.
	KindIgnored Kind = iota
	KindTask
	KindTaskFailed
	KindWorkout
)

func (k Kind) String() string {
	switch k {
	case KindTask:
		return "task"
	case KindTaskFailed:
		return "task_failed"
	case KindWorkout:
		return "workout"
	default:
		return "ignored"
	}
}

// Outcome is what OnUserText did with a message.
type Outcome struct {
	Kind  Kind
	Reply string
	Task  *models.Task
	Err   error
}

// Kicker is told when a task may need the checker's attention sooner than its next tick.
type Kicker interface {
	Notify()
}

type Assistant struct {
	state      *state.State
	recipients repository.RecipientStore
	parser     *parser.Parser
	tasks      *tasks.Manager
	kicker     Kicker
}

func New(st *state.State, recipients repository.RecipientStore, p *parser.Parser, m *tasks.Manager, kicker Kicker) *Assistant {
	return &Assistant{
		state:      st,
		recipients: recipients,
		parser:     p,
		tasks:      m,
		kicker:     kicker,
	}
}

// ActivateRecipient persists chatID as the active recipient, then adopts it.
func (a *Assistant) ActivateRecipient(ctx context.Context, chatID int64) error {
	if err := a.recipients.SaveRecipient(ctx, chatID); err != nil {
		return fmt.Errorf("failed to save recipient: %w", err)
	}
	a.state.SetRecipient(chatID)
	log.Printf("[assistant] active recipient is now %d", chatID)
	return nil
}

// Restore loads the persisted recipient, if any, into memory.
func (a *Assistant) Restore(ctx context.Context) error {
	chatID, ok, err := a.recipients.LoadRecipient(ctx)
	if err != nil {
		return fmt.Errorf("failed to load recipient: %w", err)
	}
	if !ok {
		log.Println("[assistant] no saved recipient, waiting for /start")
		return nil
	}
	a.state.SetRecipient(chatID)
	log.Printf("[assistant] restored recipient %d", chatID)
	return nil
}

// OnUserText handles a chat message: a reminder request becomes a task, a workout
// report sets today's flag, anything else is ignored.
func (a *Assistant) OnUserText(ctx context.Context, chatID int64, text string) Outcome {
	switch {
	case parser.IsTaskRequest(text):
		return a.createTask(ctx, chatID, text)
	case parser.IsWorkoutDone(text):
		a.state.SetWorkoutDone(true)
		return Outcome{Kind: KindWorkout, Reply: format.WorkoutDoneReply}
	default:
		return Outcome{Kind: KindIgnored}
	}
}

func (a *Assistant) createTask(ctx context.Context, chatID int64, text string) Outcome {
	parsed, err := a.parser.Parse(text)
	if err != nil {
		log.Printf("[assistant] could not parse %q: %v", text, err)
		return Outcome{Kind: KindTaskFailed, Reply: format.ParseFailureReply, Err: err}
	}

	task, err := a.tasks.Create(ctx, chatID, parsed.Description, parsed.Target)
	switch {
	case errors.Is(err, tasks.ErrPastTime):
		return Outcome{Kind: KindTaskFailed, Reply: format.PastTimeReply, Err: err}
	case err != nil:
		log.Printf("[assistant] failed to create task: %v", err)
		return Outcome{Kind: KindTaskFailed, Reply: format.StoreFailureReply, Err: err}
	}

	// The immediate notice failed, so let the checker retry without waiting a full tick.
	if task.ReminderDue(task.CreatedAt) && a.kicker != nil {
		a.kicker.Notify()
	}
	return Outcome{Kind: KindTask, Reply: format.TaskCreated(task, task.CreatedAt), Task: task}
}

// Status is a read-only snapshot for display, including the pending-task count
// of the active recipient.
func (a *Assistant) Status(ctx context.Context) format.Status {
	snap := a.state.Snapshot()
	st := format.Status{Snapshot: snap}
	if !snap.HasRecipient {
		return st
	}
	n, err := a.tasks.PendingCount(ctx, snap.Recipient)
	if err != nil {
		log.Printf("[assistant] failed to count pending tasks: %v", err)
		return st
	}
	st.Pending = n
	return st
}

func (a *Assistant) Tasks() *tasks.Manager {
	return a.tasks
}

func (a *Assistant) State() *state.State {
	return a.state
}

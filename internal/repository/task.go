package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/hray3182/coachline/internal/database"
	"github.com/hray3182/coachline/internal/models"
)

const taskColumns = `task_id, chat_id, description, target_at, reminder_at, followup_at,
		reminder_sent, followup_sent, completed, created_at`

// TaskRepository is the Postgres TaskStore.
type TaskRepository struct {
	db *database.DB
}

func NewTaskRepository(db *database.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

func (r *TaskRepository) Create(ctx context.Context, task *models.Task) error {
	return r.db.Pool.QueryRow(ctx,
		`INSERT INTO tasks (chat_id, description, target_at, reminder_at, followup_at,
		                    reminder_sent, followup_sent, completed, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING task_id`,
		task.ChatID, task.Description, task.TargetAt, task.ReminderAt, task.FollowupAt,
		task.ReminderSent, task.FollowupSent, task.Completed, task.CreatedAt,
	).Scan(&task.TaskID)
}

func (r *TaskRepository) Get(ctx context.Context, taskID int64) (*models.Task, error) {
	task, err := scanTask(r.db.Pool.QueryRow(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE task_id = $1`, taskID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return task, err
}

func (r *TaskRepository) DueReminders(ctx context.Context, now time.Time) ([]*models.Task, error) {
	return r.query(ctx,
		`SELECT `+taskColumns+` FROM tasks
		 WHERE reminder_sent = FALSE AND completed = FALSE AND reminder_at <= $1
		 ORDER BY reminder_at ASC`,
		now,
	)
}

func (r *TaskRepository) DueFollowups(ctx context.Context, now time.Time) ([]*models.Task, error) {
	return r.query(ctx,
		`SELECT `+taskColumns+` FROM tasks
		 WHERE followup_sent = FALSE AND reminder_sent = TRUE AND completed = FALSE AND followup_at <= $1
		 ORDER BY followup_at ASC`,
		now,
	)
}

func (r *TaskRepository) MarkReminderSent(ctx context.Context, taskID int64) error {
	return r.exec(ctx, `UPDATE tasks SET reminder_sent = TRUE WHERE task_id = $1`, taskID)
}

func (r *TaskRepository) UnmarkReminderSent(ctx context.Context, taskID int64) error {
	return r.exec(ctx,
		`UPDATE tasks SET reminder_sent = FALSE WHERE task_id = $1 AND followup_sent = FALSE`,
		taskID,
	)
}

func (r *TaskRepository) MarkFollowupSent(ctx context.Context, taskID int64) error {
	// Guarded update and existence check in one statement.
	var reminderSent bool
	err := r.db.Pool.QueryRow(ctx,
		`WITH upd AS (
		     UPDATE tasks SET followup_sent = TRUE
		     WHERE task_id = $1 AND reminder_sent = TRUE
		     RETURNING reminder_sent
		 )
		 SELECT COALESCE((SELECT reminder_sent FROM upd), FALSE)
		 FROM tasks WHERE task_id = $1`,
		taskID,
	).Scan(&reminderSent)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if !reminderSent {
		return ErrReminderNotSent
	}
	return nil
}

func (r *TaskRepository) MarkCompleted(ctx context.Context, taskID int64) error {
	return r.exec(ctx, `UPDATE tasks SET completed = TRUE WHERE task_id = $1`, taskID)
}

func (r *TaskRepository) ListFor(ctx context.Context, chatID int64, includeCompleted bool, limit int) ([]*models.Task, error) {
	if includeCompleted {
		// LIMIT NULL is no limit, matching the bolt store for limit <= 0.
		var lim *int
		if limit > 0 {
			lim = &limit
		}
		return r.query(ctx,
			`SELECT `+taskColumns+` FROM tasks WHERE chat_id = $1
			 ORDER BY target_at DESC LIMIT $2`,
			chatID, lim,
		)
	}
	return r.query(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE chat_id = $1 AND completed = FALSE
		 ORDER BY target_at ASC`,
		chatID,
	)
}

func (r *TaskRepository) CountPending(ctx context.Context, chatID int64) (int, error) {
	var count int
	err := r.db.Pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM tasks WHERE chat_id = $1 AND completed = FALSE AND followup_sent = FALSE`,
		chatID,
	).Scan(&count)
	return count, err
}

func (r *TaskRepository) Prune(ctx context.Context, before time.Time) (int, error) {
	tag, err := r.db.Pool.Exec(ctx,
		`DELETE FROM tasks WHERE (completed = TRUE OR followup_sent = TRUE) AND target_at < $1`,
		before,
	)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func (r *TaskRepository) exec(ctx context.Context, sql string, taskID int64) error {
	tag, err := r.db.Pool.Exec(ctx, sql, taskID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		// Guarded updates may legitimately touch nothing; only a missing row is an error.
		if _, err := r.Get(ctx, taskID); err != nil {
			return err
		}
	}
	return nil
}

func (r *TaskRepository) query(ctx context.Context, sql string, args ...any) ([]*models.Task, error) {
	rows, err := r.db.Pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []*models.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

func scanTask(row pgx.Row) (*models.Task, error) {
	task := &models.Task{}
	if err := row.Scan(&task.TaskID, &task.ChatID, &task.Description, &task.TargetAt,
		&task.ReminderAt, &task.FollowupAt, &task.ReminderSent, &task.FollowupSent,
		&task.Completed, &task.CreatedAt); err != nil {
		return nil, err
	}
	return task, nil
}

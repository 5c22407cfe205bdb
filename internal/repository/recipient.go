package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/hray3182/coachline/internal/database"
)

// RecipientRepository is the Postgres RecipientStore.
type RecipientRepository struct {
	db *database.DB
}

func NewRecipientRepository(db *database.DB) *RecipientRepository {
	return &RecipientRepository{db: db}
}

func (r *RecipientRepository) SaveRecipient(ctx context.Context, chatID int64) error {
	_, err := r.db.Pool.Exec(ctx,
		`INSERT INTO recipient (singleton, chat_id) VALUES (TRUE, $1)
		 ON CONFLICT (singleton) DO UPDATE SET chat_id = EXCLUDED.chat_id, updated_at = NOW()`,
		chatID,
	)
	return err
}

func (r *RecipientRepository) LoadRecipient(ctx context.Context) (int64, bool, error) {
	var chatID int64
	err := r.db.Pool.QueryRow(ctx, `SELECT chat_id FROM recipient WHERE singleton = TRUE`).Scan(&chatID)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return chatID, true, nil
}

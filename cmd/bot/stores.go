package main

import (
	"context"
	"fmt"
	"log"

	"github.com/hray3182/coachline/internal/config"
	"github.com/hray3182/coachline/internal/database"
	"github.com/hray3182/coachline/internal/repository"
)

type stores struct {
	tasks      repository.TaskStore
	recipients repository.RecipientStore
	close      func()
}

// openStores uses Postgres when DATABASE_URI is set and the bbolt file otherwise.
func openStores(ctx context.Context, cfg *config.Config) (*stores, error) {
	if cfg.DatabaseURI != "" {
		db, err := database.New(ctx, cfg.DatabaseURI)
		if err != nil {
			return nil, err
		}
		log.Println("Connected to database")

		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		log.Println("Database migrations completed")

		return &stores{
			tasks:      repository.NewTaskRepository(db),
			recipients: repository.NewRecipientRepository(db),
			close:      db.Close,
		}, nil
	}

	bolt, err := repository.NewBoltStore(cfg.BoltPath)
	if err != nil {
		return nil, err
	}
	log.Printf("Using bolt store at %s", cfg.BoltPath)
	return &stores{
		tasks:      bolt,
		recipients: bolt,
		close: func() {
			if err := bolt.Close(); err != nil {
				log.Printf("Failed to close bolt store: %v", err)
			}
		},
	}, nil
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

package repository

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"go.etcd.io/bbolt"

	"github.com/hray3182/coachline/internal/models"
)

var (
	tasksBucket     = []byte("tasks")
	recipientBucket = []byte("recipient")
	recipientKey    = []byte("active")
)

// BoltStore is the file-backed TaskStore and RecipientStore. Every method runs in
// one bbolt transaction, and bbolt serializes writers.
type BoltStore struct {
	db *bbolt.DB
}

func NewBoltStore(path string) (*BoltStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt store: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(tasksBucket); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(recipientBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create buckets: %w", err)
	}

	return &BoltStore{db: db}, nil
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}

func (s *BoltStore) Create(ctx context.Context, task *models.Task) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(tasksBucket)
		seq, err := bucket.NextSequence()
		if err != nil {
			return err
		}
		stored := *task
		stored.TaskID = int64(seq)
		if err := putTask(bucket, &stored); err != nil {
			return err
		}
		task.TaskID = stored.TaskID
		return nil
	})
}

func (s *BoltStore) Get(ctx context.Context, taskID int64) (*models.Task, error) {
	var task *models.Task
	err := s.db.View(func(tx *bbolt.Tx) error {
		var err error
		task, err = getTask(tx.Bucket(tasksBucket), taskID)
		return err
	})
	return task, err
}

func (s *BoltStore) DueReminders(ctx context.Context, now time.Time) ([]*models.Task, error) {
	tasks, err := s.filter(func(t *models.Task) bool { return t.ReminderDue(now) })
	if err != nil {
		return nil, err
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].ReminderAt.Before(tasks[j].ReminderAt) })
	return tasks, nil
}

func (s *BoltStore) DueFollowups(ctx context.Context, now time.Time) ([]*models.Task, error) {
	tasks, err := s.filter(func(t *models.Task) bool { return t.FollowupDue(now) })
	if err != nil {
		return nil, err
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].FollowupAt.Before(tasks[j].FollowupAt) })
	return tasks, nil
}

func (s *BoltStore) MarkReminderSent(ctx context.Context, taskID int64) error {
	return s.update(taskID, func(t *models.Task) error {
		t.ReminderSent = true
		return nil
	})
}

func (s *BoltStore) UnmarkReminderSent(ctx context.Context, taskID int64) error {
	return s.update(taskID, func(t *models.Task) error {
		if !t.FollowupSent {
			t.ReminderSent = false
		}
		return nil
	})
}

func (s *BoltStore) MarkFollowupSent(ctx context.Context, taskID int64) error {
	return s.update(taskID, func(t *models.Task) error {
		if !t.ReminderSent {
			return ErrReminderNotSent
		}
		t.FollowupSent = true
		return nil
	})
}

func (s *BoltStore) MarkCompleted(ctx context.Context, taskID int64) error {
	return s.update(taskID, func(t *models.Task) error {
		t.Completed = true
		return nil
	})
}

func (s *BoltStore) ListFor(ctx context.Context, chatID int64, includeCompleted bool, limit int) ([]*models.Task, error) {
	tasks, err := s.filter(func(t *models.Task) bool {
		return t.ChatID == chatID && (includeCompleted || !t.Completed)
	})
	if err != nil {
		return nil, err
	}

	if !includeCompleted {
		sort.Slice(tasks, func(i, j int) bool { return tasks[i].TargetAt.Before(tasks[j].TargetAt) })
		return tasks, nil
	}

	sort.Slice(tasks, func(i, j int) bool { return tasks[i].TargetAt.After(tasks[j].TargetAt) })
	if limit > 0 && len(tasks) > limit {
		tasks = tasks[:limit]
	}
	return tasks, nil
}

func (s *BoltStore) CountPending(ctx context.Context, chatID int64) (int, error) {
	tasks, err := s.filter(func(t *models.Task) bool {
		return t.ChatID == chatID && !t.Finished()
	})
	return len(tasks), err
}

func (s *BoltStore) Prune(ctx context.Context, before time.Time) (int, error) {
	removed := 0
	err := s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(tasksBucket)
		var stale [][]byte
		err := bucket.ForEach(func(k, v []byte) error {
			var t models.Task
			if err := json.Unmarshal(v, &t); err != nil {
				return fmt.Errorf("failed to decode task %d: %w", binary.BigEndian.Uint64(k), err)
			}
			if t.Finished() && t.TargetAt.Before(before) {
				stale = append(stale, append([]byte(nil), k...))
			}
			return nil
		})
		if err != nil {
			return err
		}
		for _, k := range stale {
			if err := bucket.Delete(k); err != nil {
				return err
			}
		}
		removed = len(stale)
		return nil
	})
	return removed, err
}

func (s *BoltStore) SaveRecipient(ctx context.Context, chatID int64) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		buf := make([]byte, 8)
		binary.BigEndian.PutUint64(buf, uint64(chatID))
		return tx.Bucket(recipientBucket).Put(recipientKey, buf)
	})
}

func (s *BoltStore) LoadRecipient(ctx context.Context) (int64, bool, error) {
	var chatID int64
	var ok bool
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(recipientBucket).Get(recipientKey)
		if len(data) != 8 {
			return nil
		}
		chatID = int64(binary.BigEndian.Uint64(data))
		ok = true
		return nil
	})
	return chatID, ok, err
}

func (s *BoltStore) filter(keep func(*models.Task) bool) ([]*models.Task, error) {
	var tasks []*models.Task
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(tasksBucket).ForEach(func(k, v []byte) error {
			t := &models.Task{}
			if err := json.Unmarshal(v, t); err != nil {
				return fmt.Errorf("failed to decode task %d: %w", binary.BigEndian.Uint64(k), err)
			}
			if keep(t) {
				tasks = append(tasks, t)
			}
			return nil
		})
	})
	return tasks, err
}

func (s *BoltStore) update(taskID int64, mutate func(*models.Task) error) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(tasksBucket)
		task, err := getTask(bucket, taskID)
		if err != nil {
			return err
		}
		if err := mutate(task); err != nil {
			return err
		}
		return putTask(bucket, task)
	})
}

func taskKey(taskID int64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, uint64(taskID))
	return key
}

func getTask(bucket *bbolt.Bucket, taskID int64) (*models.Task, error) {
	data := bucket.Get(taskKey(taskID))
	if data == nil {
		return nil, ErrNotFound
	}
	task := &models.Task{}
	if err := json.Unmarshal(data, task); err != nil {
		return nil, fmt.Errorf("failed to decode task %d: %w", taskID, err)
	}
	return task, nil
}

func putTask(bucket *bbolt.Bucket, task *models.Task) error {
	data, err := json.Marshal(task)
	if err != nil {
		return err
	}
	return bucket.Put(taskKey(task.TaskID), data)
}

// Package taskqueue is a small Redis-backed work queue. The mail sender
// enqueues deliveries here and drains them in the background; the admin
// tasks endpoints inspect, retry and purge entries. Tasks are JSON blobs
// keyed by UUID with a sorted-set index for listing.
package taskqueue

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	redisc "github.com/motohub/core/internal/pkg/redis"
	"github.com/redis/go-redis/v9"
)

type TaskStatus string

const (
	TaskPending   TaskStatus = "pending"
	TaskRunning   TaskStatus = "running"
	TaskCompleted TaskStatus = "completed"
	TaskFailed    TaskStatus = "failed"
	TaskCancelled TaskStatus = "cancelled"
)

// Terminal reports whether the task has reached a final state.
func (s TaskStatus) Terminal() bool {
	return s == TaskCompleted || s == TaskFailed || s == TaskCancelled
}

var (
	ErrTaskNotFound   = errors.New("task not found")
	ErrNotCancellable = errors.New("only pending tasks can be cancelled")
)

// Task is one queued unit of work.
type Task struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Status    TaskStatus      `json:"status"`
	Result    json.RawMessage `json:"result,omitempty"`
	Error     string          `json:"error,omitempty"`
	DedupKey  string          `json:"dedup_key,omitempty"`
	GroupKey  string          `json:"group_key,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

const (
	taskKeyPrefix = "moto:task:"
	indexKey      = "moto:tasks:index" // zset, score is CreatedAt in ms
	dedupPrefix   = "moto:tasks:dedup:"
	retention     = 7 * 24 * time.Hour
)

type Service struct {
	rc *redisc.Client
}

func NewService(rc *redisc.Client) *Service {
	return &Service{rc: rc}
}

func taskKey(id string) string   { return taskKeyPrefix + id }
func dedupKey(typ string) string { return dedupPrefix + typ }

// Enqueue stores a new pending task. When dedupKey is non-empty and an
// unfinished task of the same type already claimed it, that task is returned
// instead of creating a duplicate.
func (s *Service) Enqueue(ctx context.Context, taskType string, payload interface{}, dedup, groupKey string) (*Task, error) {
	if dedup != "" {
		existing, err := s.rc.Raw().HGet(ctx, dedupKey(taskType), dedup).Result()
		if err == nil && existing != "" {
			return s.GetByID(ctx, existing)
		}
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	task := &Task{
		ID:        uuid.New().String(),
		Type:      taskType,
		Payload:   raw,
		Status:    TaskPending,
		DedupKey:  dedup,
		GroupKey:  groupKey,
		CreatedAt: now,
		UpdatedAt: now,
	}

	data, err := json.Marshal(task)
	if err != nil {
		return nil, err
	}
	pipe := s.rc.Raw().TxPipeline()
	pipe.Set(ctx, taskKey(task.ID), data, retention)
	pipe.ZAdd(ctx, indexKey, redis.Z{Score: float64(now.UnixMilli()), Member: task.ID})
	if dedup != "" {
		pipe.HSet(ctx, dedupKey(taskType), dedup, task.ID)
		pipe.Expire(ctx, dedupKey(taskType), retention)
	}
	_, err = pipe.Exec(ctx)
	return task, err
}

// GetByID returns nil, nil for an unknown or expired task.
func (s *Service) GetByID(ctx context.Context, id string) (*Task, error) {
	data, err := s.rc.Raw().Get(ctx, taskKey(id)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var task Task
	return &task, json.Unmarshal(data, &task)
}

// UpdateStatus moves a task through its lifecycle. Reaching a terminal
// state releases the dedup claim so the same work can be enqueued again.
func (s *Service) UpdateStatus(ctx context.Context, id string, status TaskStatus, result interface{}, errMsg string) error {
	task, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if task == nil {
		return ErrTaskNotFound
	}

	task.Status = status
	task.UpdatedAt = time.Now()
	task.Error = errMsg
	if result != nil {
		task.Result, _ = json.Marshal(result)
	}

	if status.Terminal() && task.DedupKey != "" {
		s.rc.Raw().HDel(ctx, dedupKey(task.Type), task.DedupKey)
	}
	return s.save(ctx, task)
}

// List walks the index newest first and pages in memory. The queue holds at
// most a week of tasks, so the full scan stays small.
func (s *Service) List(ctx context.Context, page, size int, taskType *string, status *TaskStatus) ([]*Task, int64, error) {
	ids, err := s.rc.Raw().ZRevRange(ctx, indexKey, 0, -1).Result()
	if err != nil {
		return nil, 0, err
	}

	matched := make([]*Task, 0, len(ids))
	for _, id := range ids {
		task, err := s.GetByID(ctx, id)
		if err != nil || task == nil {
			continue
		}
		if taskType != nil && task.Type != *taskType {
			continue
		}
		if status != nil && task.Status != *status {
			continue
		}
		matched = append(matched, task)
	}

	total := int64(len(matched))
	start := (page - 1) * size
	if start >= len(matched) {
		return []*Task{}, total, nil
	}
	end := start + size
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}

func (s *Service) Cancel(ctx context.Context, id string) error {
	task, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if task == nil {
		return ErrTaskNotFound
	}
	if task.Status != TaskPending {
		return ErrNotCancellable
	}
	return s.UpdateStatus(ctx, id, TaskCancelled, nil, "cancelled by admin")
}

func (s *Service) DeleteByID(ctx context.Context, id string) error {
	task, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if task == nil {
		return ErrTaskNotFound
	}
	pipe := s.rc.Raw().TxPipeline()
	s.remove(ctx, pipe, task)
	_, err = pipe.Exec(ctx)
	return err
}

// DeleteCompleted purges terminal tasks, optionally only those created
// before the given unix-millisecond cutoff.
func (s *Service) DeleteCompleted(ctx context.Context, beforeMS int64) error {
	ids, _ := s.rc.Raw().ZRange(ctx, indexKey, 0, -1).Result()
	pipe := s.rc.Raw().TxPipeline()
	for _, id := range ids {
		task, err := s.GetByID(ctx, id)
		if err != nil || task == nil {
			continue
		}
		if !task.Status.Terminal() {
			continue
		}
		if beforeMS > 0 && task.CreatedAt.UnixMilli() >= beforeMS {
			continue
		}
		s.remove(ctx, pipe, task)
	}
	_, err := pipe.Exec(ctx)
	return err
}

func (s *Service) save(ctx context.Context, task *Task) error {
	data, err := json.Marshal(task)
	if err != nil {
		return err
	}
	return s.rc.Raw().Set(ctx, taskKey(task.ID), data, retention).Err()
}

func (s *Service) remove(ctx context.Context, pipe redis.Pipeliner, task *Task) {
	pipe.Del(ctx, taskKey(task.ID))
	pipe.ZRem(ctx, indexKey, task.ID)
	if task.DedupKey != "" {
		pipe.HDel(ctx, dedupKey(task.Type), task.DedupKey)
	}
}

package mail

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"

	"github.com/motohub/core/internal/pkg/taskqueue"
	"go.uber.org/zap"
)

const (
	taskTypeMail     = "mail"
	queuePollEvery   = 5 * time.Second
	dedupWindowNonce = time.Minute
)

// WithQueue switches the Sender to queued delivery: Send enqueues the
// message in Redis and RunQueue delivers it in the background. A restart
// between enqueue and delivery loses nothing, pending tasks survive in
// Redis.
func (s *Sender) WithQueue(tq *taskqueue.Service, log *zap.Logger) *Sender {
	s.tq = tq
	s.log = log
	return s
}

// Send dispatches an email. When a queue is attached the message is
// enqueued and delivered asynchronously, otherwise it is sent inline.
func (s *Sender) Send(msg Message) error {
	if !s.cfg.Enable {
		return nil
	}
	if s.tq != nil {
		_, err := s.tq.Enqueue(context.Background(), taskTypeMail, msg, dedupKeyFor(msg), "")
		return err
	}
	return s.deliver(msg)
}

// RunQueue polls for pending mail tasks and delivers them until ctx is
// cancelled. Call in a goroutine after WithQueue.
func (s *Sender) RunQueue(ctx context.Context) {
	if s.tq == nil {
		return
	}
	ticker := time.NewTicker(queuePollEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.drainPending(ctx)
		}
	}
}

func (s *Sender) drainPending(ctx context.Context) {
	mailType := taskTypeMail
	pending := taskqueue.TaskPending
	tasks, _, err := s.tq.List(ctx, 1, 50, &mailType, &pending)
	if err != nil {
		if s.log != nil {
			s.log.Warn("mail queue poll failed", zap.Error(err))
		}
		return
	}

	for _, task := range tasks {
		var msg Message
		if err := json.Unmarshal(task.Payload, &msg); err != nil {
			_ = s.tq.UpdateStatus(ctx, task.ID, taskqueue.TaskFailed, nil, "bad payload: "+err.Error())
			continue
		}
		if err := s.tq.UpdateStatus(ctx, task.ID, taskqueue.TaskRunning, nil, ""); err != nil {
			continue
		}
		if err := s.deliver(msg); err != nil {
			if s.log != nil {
				s.log.Error("mail delivery failed",
					zap.String("task", task.ID),
					zap.Strings("to", msg.To),
					zap.Error(err))
			}
			_ = s.tq.UpdateStatus(ctx, task.ID, taskqueue.TaskFailed, nil, err.Error())
			continue
		}
		_ = s.tq.UpdateStatus(ctx, task.ID, taskqueue.TaskCompleted, nil, "")
	}
}

func (s *Sender) deliver(msg Message) error {
	if s.cfg.UseResend && s.cfg.ResendKey != "" {
		return s.sendResend(msg)
	}
	return s.sendSMTP(msg)
}

// dedupKeyFor collapses identical messages enqueued within the same
// minute, retries after that window go through.
func dedupKeyFor(msg Message) string {
	h := sha256.New()
	h.Write([]byte(strings.Join(msg.To, ",")))
	h.Write([]byte{0})
	h.Write([]byte(msg.Subject))
	h.Write([]byte{0})
	h.Write([]byte(time.Now().Truncate(dedupWindowNonce).Format(time.RFC3339)))
	return hex.EncodeToString(h.Sum(nil)[:16])
}

package mail

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/ntcogk/auth-server/internal/logger"
	"github.com/ntcogk/auth-server/internal/model"
)

const (
	// QueueDefault is the queue mail tasks are enqueued on.
	QueueDefault = "default"
	// TaskTypeSend is the task type of an outgoing email.
	TaskTypeSend = "mail:send"

	maxRetry = 5
)

// NewSendTask wraps msg into an asynq task.
func NewSendTask(msg model.Message) (*asynq.Task, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeSend, data, asynq.MaxRetry(maxRetry), asynq.Timeout(time.Minute)), nil
}

type enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// QueueSender enqueues messages for the worker instead of sending them inline.
type QueueSender struct {
	client enqueuer
}

func NewQueueSender(client *asynq.Client) *QueueSender {
	return &QueueSender{client: client}
}

func (s *QueueSender) Send(ctx context.Context, msg model.Message) error {
	task, err := NewSendTask(msg)
	if err != nil {
		return fmt.Errorf("build mail task: %w", err)
	}
	if _, err := s.client.EnqueueContext(ctx, task, asynq.Queue(QueueDefault)); err != nil {
		return fmt.Errorf("enqueue mail task: %w", err)
	}
	return nil
}

// SendHandler processes TaskTypeSend tasks with mailer. Malformed payloads
// are not retried.
func SendHandler(mailer model.Mailer, log *logger.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var msg model.Message
		if err := json.Unmarshal(t.Payload(), &msg); err != nil {
			log.Error("Mail worker: malformed task payload", "error", err.Error())
			return fmt.Errorf("decode mail task: %v: %w", err, asynq.SkipRetry)
		}
		if msg.To == "" {
			log.Error("Mail worker: task without recipient")
			return fmt.Errorf("mail task without recipient: %w", asynq.SkipRetry)
		}

		if err := mailer.Send(ctx, msg); err != nil {
			log.Warn("Mail worker: delivery failed",
				"to", logger.MaskEmail(msg.To),
				"error", err.Error())
			return err
		}

		log.Info("Mail worker: message delivered",
			"to", logger.MaskEmail(msg.To),
			"subject", msg.Subject)
		return nil
	}
}

// Worker consumes mail tasks until its context is cancelled.
type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
}

// WorkerConfig collects the worker dependencies.
type WorkerConfig struct {
	RedisOpts   asynq.RedisClientOpt
	Concurrency int
	Mailer      model.Mailer
	Logger      *logger.Logger
}

func NewWorker(cfg WorkerConfig) *Worker {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 5
	}
	srv := asynq.NewServer(cfg.RedisOpts, asynq.Config{
		Concurrency: cfg.Concurrency,
		Queues: map[string]int{
			QueueDefault: 1,
		},
	})
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskTypeSend, SendHandler(cfg.Mailer, cfg.Logger))

	return &Worker{server: srv, mux: mux}
}

// Run processes tasks until ctx is done.
func (w *Worker) Run(ctx context.Context) error {
	if w == nil {
		return errors.New("mail worker: not configured")
	}

	if err := w.server.Start(w.mux); err != nil {
		return fmt.Errorf("start mail worker: %w", err)
	}
	<-ctx.Done()
	w.server.Shutdown()

	return ctx.Err()
}

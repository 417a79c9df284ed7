package mail

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the queue mail tasks are enqueued on.
	QueueDefault = "default"
	// TaskTypeSendEmail is the asynq task type for outgoing mail.
	TaskTypeSendEmail = "mail:send"
)

// SendEmailPayload is the JSON payload of a TaskTypeSendEmail task.
type SendEmailPayload struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// NewSendEmailTask constructs an asynq task.
func NewSendEmailTask(payload SendEmailPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeSendEmail, data, asynq.MaxRetry(5), asynq.Queue(QueueDefault)), nil
}

// Enqueuer is the part of *asynq.Client used by QueueSender.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// QueueSender hands messages to the worker instead of sending them inline.
type QueueSender struct {
	client Enqueuer
}

// NewQueueSender wraps an asynq client.
func NewQueueSender(client Enqueuer) *QueueSender {
	return &QueueSender{client: client}
}

func (s *QueueSender) Send(ctx context.Context, to, subject, body string) error {
	task, err := NewSendEmailTask(SendEmailPayload{To: to, Subject: subject, Body: body})
	if err != nil {
		return fmt.Errorf("build mail task: %w", err)
	}
	if _, err := s.client.EnqueueContext(ctx, task); err != nil {
		return fmt.Errorf("enqueue mail task: %w", err)
	}
	return nil
}

// TaskHandler delivers queued mail with the wrapped Sender.
type TaskHandler struct {
	sender Sender
	logger *slog.Logger
}

// NewTaskHandler builds a handler delivering through sender.
func NewTaskHandler(sender Sender, logger *slog.Logger) *TaskHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &TaskHandler{sender: sender, logger: logger}
}

// HandleSendEmail processes TaskTypeSendEmail tasks. Undecodable payloads are
// not retried.
func (h *TaskHandler) HandleSendEmail(ctx context.Context, t *asynq.Task) error {
	var payload SendEmailPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		h.logger.Error("mail task payload", slog.Any("error", err))
		return fmt.Errorf("decode payload: %w", asynq.SkipRetry)
	}
	if payload.To == "" {
		return fmt.Errorf("missing recipient: %w", asynq.SkipRetry)
	}
	if err := h.sender.Send(ctx, payload.To, payload.Subject, payload.Body); err != nil {
		return err
	}
	h.logger.Info("mail sent", slog.String("to", payload.To), slog.String("subject", payload.Subject))
	return nil
}

// Worker drains the mail queue.
type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
}

// NewWorker builds a worker bound to redisOpts.
func NewWorker(redisOpts asynq.RedisClientOpt, handler *TaskHandler, concurrency int) *Worker {
	if concurrency <= 0 {
		concurrency = 5
	}
	srv := asynq.NewServer(redisOpts, asynq.Config{
		Concurrency: concurrency,
		Queues:      map[string]int{QueueDefault: 1},
	})
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskTypeSendEmail, handler.HandleSendEmail)
	return &Worker{server: srv, mux: mux}
}

// Run processes tasks until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	if err := w.server.Start(w.mux); err != nil {
		return fmt.Errorf("start mail worker: %w", err)
	}
	<-ctx.Done()
	w.server.Shutdown()
	return nil
}

package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/classpulse/backend/internal/checkin"
	"github.com/classpulse/backend/internal/questions"
	"github.com/classpulse/backend/pkg/queue"
)

// Processor runs check-in maintenance jobs: question resets and the
// reconciliation pass after a session closes.
type Processor struct {
	sessionRepo *checkin.Repository
	questionSvc *questions.Service
	queue       *queue.Queue
	logger      *zap.Logger
}

// NewProcessor creates a check-in job processor.
func NewProcessor(sessionRepo *checkin.Repository, questionSvc *questions.Service, q *queue.Queue, logger *zap.Logger) *Processor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Processor{sessionRepo: sessionRepo, questionSvc: questionSvc, queue: q, logger: logger}
}

// Process executes one job.
func (p *Processor) Process(ctx context.Context, job *queue.Job) error {
	switch job.Type {
	case queue.JobTypeQAReset:
		return p.processQAReset(ctx, job)
	case queue.JobTypeSessionReconcile:
		return p.processSessionReconcile(ctx, job)
	default:
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
}

func (p *Processor) processQAReset(ctx context.Context, job *queue.Job) error {
	var payload queue.QAResetPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}
	if err := p.questionSvc.Reset(ctx, payload.QuestionID); err != nil {
		return fmt.Errorf("reset question %s: %w", payload.QuestionID, err)
	}
	p.logger.Info("question reset completed",
		zap.String("question_id", payload.QuestionID.String()),
		zap.String("session_id", payload.SessionID.String()))
	return nil
}

func (p *Processor) processSessionReconcile(ctx context.Context, job *queue.Job) error {
	var payload queue.SessionReconcilePayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}
	marked, err := p.sessionRepo.MarkLateEntries(ctx, payload.SessionID, payload.ClosedAt)
	if err != nil {
		return fmt.Errorf("reconcile session %s: %w", payload.SessionID, err)
	}
	if marked > 0 {
		p.logger.Info("marked late check-ins",
			zap.String("session_id", payload.SessionID.String()),
			zap.Int64("count", marked))
	}
	return nil
}

// Run starts the worker loop: dequeue, process, retry on error.
func (p *Processor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("checkin worker stopping")
			return
		default:
		}

		job, err := p.queue.Dequeue(ctx)
		if err != nil {
			p.logger.Warn("dequeue error", zap.Error(err))
			time.Sleep(queue.RetryBackoff)
			continue
		}
		if job == nil {
			continue
		}

		p.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		if err := p.Process(ctx, job); err != nil {
			p.logger.Error("job failed", zap.String("job_id", job.ID), zap.Error(err))
			if reErr := p.queue.Retry(ctx, job); reErr != nil {
				p.logger.Error("retry enqueue failed", zap.Error(reErr))
			}
			time.Sleep(queue.RetryBackoff)
			continue
		}
	}
}

package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/nimbus-crm/backend/internal/emaillogs"
	"github.com/nimbus-crm/backend/internal/models"
	"github.com/nimbus-crm/backend/pkg/queue"
)

// EmailProcessor processes outbound email jobs: deliver over SMTP and record
// the attempt in the tenant's email log.
type EmailProcessor struct {
	logs   *emaillogs.Repository
	mailer *Mailer
	queue  *queue.Queue
	logger *zap.Logger
}

// NewEmailProcessor creates an email delivery processor.
func NewEmailProcessor(logs *emaillogs.Repository, mailer *Mailer, q *queue.Queue, logger *zap.Logger) *EmailProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EmailProcessor{logs: logs, mailer: mailer, queue: q, logger: logger}
}

// Process executes one email job.
func (p *EmailProcessor) Process(ctx context.Context, job *queue.Job) error {
	if job.Type != queue.JobTypeEmail {
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
	var payload queue.EmailPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	log := &models.EmailLog{
		TenantID:       payload.TenantID,
		CampaignID:     payload.CampaignID,
		TicketID:       payload.TicketID,
		RecipientEmail: payload.RecipientEmail,
		Subject:        payload.Subject,
		Status:         models.EmailStatusQueued,
	}
	if err := p.logs.Create(ctx, log); err != nil {
		return fmt.Errorf("create email log: %w", err)
	}

	if err := p.mailer.Send(payload.RecipientEmail, payload.Subject, payload.BodyHTML); err != nil {
		if logErr := p.logs.MarkFailed(ctx, log.ID, err.Error()); logErr != nil {
			p.logger.Error("mark email failed", zap.Error(logErr), zap.Int64("log_id", log.ID))
		}
		return fmt.Errorf("send: %w", err)
	}
	if err := p.logs.MarkSent(ctx, log.ID); err != nil {
		p.logger.Error("mark email sent", zap.Error(err), zap.Int64("log_id", log.ID))
	}

	p.logger.Info("email delivered",
		zap.Int64("tenant_id", payload.TenantID),
		zap.String("recipient", payload.RecipientEmail),
	)
	return nil
}

// Run starts the worker loop: dequeue, process, retry on error.
func (p *EmailProcessor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("email worker stopping")
			return
		default:
		}

		job, err := p.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				p.logger.Info("email worker stopping")
				return
			}
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

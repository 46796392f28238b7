package jobs

import (
	"context"
	"log"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/Footie-RU/footiedrop-engine/internal/models"
	"github.com/Footie-RU/footiedrop-engine/internal/repository"
	"github.com/Footie-RU/footiedrop-engine/internal/services/kyc"
)

const retryBatchSize = 200

// NotificationRetryJob re-drives in-review notifications whose sent flag
// never latched: records whose documents are complete and status is still
// pending but the mail server never confirmed the in-review message. The
// engine's latch discipline makes the re-dispatch safe.
type NotificationRetryJob struct {
	records   repository.KYCRepository
	service   *kyc.KYCService
	scheduler *gocron.Scheduler
}

// NewNotificationRetryJob creates a new retry job
func NewNotificationRetryJob(records repository.KYCRepository, service *kyc.KYCService) *NotificationRetryJob {
	return &NotificationRetryJob{
		records:   records,
		service:   service,
		scheduler: gocron.NewScheduler(time.UTC),
	}
}

// Start schedules the retry sweep every five minutes
func (j *NotificationRetryJob) Start() error {
	if _, err := j.scheduler.Every(5).Minutes().Do(j.Run); err != nil {
		return err
	}
	j.scheduler.StartAsync()
	return nil
}

// Stop stops the scheduler
func (j *NotificationRetryJob) Stop() {
	j.scheduler.Stop()
}

// Run performs one retry sweep over all KYC records
func (j *NotificationRetryJob) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	retried := 0
	for offset := 0; ; offset += retryBatchSize {
		records, total, err := j.records.FindPage(ctx, offset, retryBatchSize)
		if err != nil {
			log.Printf("Notification retry sweep failed to list records: %v", err)
			return
		}

		for i := range records {
			record := &records[i]
			if record.Status != models.KYCStatusPending || record.DocumentsInReviewSent || !record.DocumentsComplete() {
				continue
			}
			if _, err := j.service.VerifyDocuments(ctx, record.UserID); err != nil {
				log.Printf("Notification retry failed for KYC record %s: %v", record.ID, err)
				continue
			}
			retried++
		}

		if int64(offset+retryBatchSize) >= total {
			break
		}
	}

	if retried > 0 {
		log.Printf("Notification retry sweep re-dispatched %d in-review notifications", retried)
	}
}

package worker

import (
	"context"
	"fmt"
	"log"

	"wellcheck/internal/attendance"
	"wellcheck/internal/cloudinary"
	"wellcheck/internal/metrics"
	"wellcheck/internal/queue"
	"wellcheck/internal/reminder"
	"wellcheck/internal/selfie"
)

// Records is implemented by *attendance.Service.
type Records interface {
	Get(ctx context.Context, id string) (attendance.Record, error)
	AttachSelfie(ctx context.Context, id, url string) error
}

// Uploader is implemented by *cloudinary.Client.
type Uploader interface {
	UploadSelfie(ctx context.Context, recordID string, jpeg []byte) (cloudinary.Asset, error)
}

// Processor handles queue messages produced by the API and the reminder sweep.
type Processor struct {
	records  Records
	uploader Uploader
	maxSide  int
}

// NewProcessor creates a processor. uploader may be nil, in which case
// selfies stay inline in the database.
func NewProcessor(records Records, uploader Uploader, maxSide int) *Processor {
	return &Processor{records: records, uploader: uploader, maxSide: maxSide}
}

// Handle processes one message.
func (p *Processor) Handle(ctx context.Context, msg queue.Message) error {
	var err error
	switch msg.Type {
	case queue.TypeSelfieStore:
		err = p.storeSelfie(ctx, string(msg.Body))
	case queue.TypeReminder:
		err = deliverReminder(msg)
	default:
		metrics.QueueMessages.WithLabelValues("unknown", "skipped").Inc()
		log.Printf("skipping message of unknown type %q", msg.Type)
		return nil
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	metrics.QueueMessages.WithLabelValues(msg.Type, result).Inc()
	return err
}

func (p *Processor) storeSelfie(ctx context.Context, id string) error {
	if p.uploader == nil {
		log.Printf("record %s: image storage not configured, selfie kept inline", id)
		return nil
	}
	rec, err := p.records.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("record %s: %w", id, err)
	}
	if !attendance.IsInlineSelfie(rec.SelfieURL) {
		return nil
	}

	raw, err := selfie.Decode(rec.SelfieURL)
	if err != nil {
		return fmt.Errorf("record %s: %w", id, err)
	}
	img, err := selfie.Normalize(raw, p.maxSide)
	if err != nil {
		return fmt.Errorf("record %s: %w", id, err)
	}
	asset, err := p.uploader.UploadSelfie(ctx, id, img)
	if err != nil {
		metrics.SelfieUploads.WithLabelValues("error").Inc()
		return fmt.Errorf("record %s: %w", id, err)
	}
	metrics.SelfieUploads.WithLabelValues("ok").Inc()

	if err := p.records.AttachSelfie(ctx, id, asset.URL); err != nil {
		return fmt.Errorf("record %s: %w", id, err)
	}
	log.Printf("record %s: selfie stored at %s", id, asset.URL)
	return nil
}

func deliverReminder(msg queue.Message) error {
	var r reminder.Reminder
	if err := msg.Decode(&r); err != nil {
		return fmt.Errorf("decode reminder: %w", err)
	}
	log.Printf("reminder for %s <%s> on %s: %s", r.Name, r.Email, r.Day, r.Message)
	return nil
}

// Run consumes q until ctx ends, handling messages one at a time.
func Run(ctx context.Context, q queue.Queue, p *Processor) error {
	messages, err := q.Consume(ctx)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}
	for msg := range messages {
		if err := p.Handle(ctx, msg); err != nil {
			log.Printf("%s message failed: %v", msg.Type, err)
		}
	}
	return nil
}

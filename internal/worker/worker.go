// Package worker records queued device check-ins.
package worker

import (
	"context"
	"errors"
	"log"

	"attendboard/internal/attendance"
	"attendboard/internal/metrics"
	"attendboard/internal/queue"
)

// Recorder stores a decoded check-in. *attendance.Service implements it.
type Recorder interface {
	CheckIn(ctx context.Context, c attendance.CheckIn) (attendance.Event, error)
}

// Run consumes q until ctx is done or the queue closes.
func Run(ctx context.Context, q queue.Queue, rec Recorder) error {
	messages, err := q.Consume(ctx)
	if err != nil {
		return err
	}
	log.Println("worker started, waiting for messages...")
	for msg := range messages {
		Handle(ctx, rec, msg)
	}
	log.Println("worker stopped")
	return nil
}

// Handle processes a single message and reports its outcome.
func Handle(ctx context.Context, rec Recorder, msg queue.Message) string {
	outcome := handle(ctx, rec, msg)
	metrics.CheckIns.WithLabelValues(outcome).Inc()
	return outcome
}

func handle(ctx context.Context, rec Recorder, msg queue.Message) string {
	if msg.Type != queue.TypeCheckIn {
		log.Printf("worker: ignoring message of type %q", msg.Type)
		return "ignored"
	}
	var c attendance.CheckIn
	if err := msg.Decode(&c); err != nil {
		log.Printf("worker: malformed check-in: %v", err)
		return "malformed"
	}
	evt, err := rec.CheckIn(ctx, c)
	switch {
	case errors.Is(err, attendance.ErrNotFound):
		log.Printf("worker: check-in for unknown student %q from %s", c.IndexNumber, c.DeviceID)
		return "unknown_student"
	case errors.Is(err, attendance.ErrInvalid):
		log.Printf("worker: rejected check-in %+v: %v", c, err)
		return "invalid"
	case err != nil:
		log.Printf("worker: check-in %s/%s failed: %v", c.IndexNumber, c.Status, err)
		return "failed"
	}
	log.Printf("worker: recorded %s for %s (event %s)", evt.Status, evt.IndexNumber, evt.ID)
	return "recorded"
}

package notification

import (
	"context"

	"github.com/rs/zerolog"
)

// Notification is one alert ready for dispatch. Title and Message are
// already formatted; UniqueAppointmentID lets channel implementations look
// up per-appointment subscribers.
type Notification struct {
	UniqueAppointmentID int64
	Title               string
	Message             string
}

// Sender dispatches a notification through one channel.
type Sender interface {
	Send(ctx context.Context, n Notification) error
}

// WorkerPool fans notifications out to every configured channel from a
// fixed set of worker goroutines, keeping dispatch off the polling loop.
type WorkerPool struct {
	size    int
	jobs    chan Notification
	senders []Sender
	log     zerolog.Logger
}

// NewWorkerPool creates a worker pool over the given channels.
func NewWorkerPool(size int, log zerolog.Logger, senders ...Sender) *WorkerPool {
	return &WorkerPool{
		size:    size,
		jobs:    make(chan Notification, size),
		senders: senders,
		log:     log,
	}
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		go wp.worker(ctx, i)
	}
}

func (wp *WorkerPool) worker(ctx context.Context, id int) {
	wp.log.Debug().Int("worker", id).Msg("notification worker started")
	for {
		select {
		case n := <-wp.jobs:
			for _, s := range wp.senders {
				if err := s.Send(ctx, n); err != nil {
					wp.log.Error().Err(err).
						Int64("unique_appointment_id", n.UniqueAppointmentID).
						Msg("notification dispatch failed")
				}
			}
		case <-ctx.Done():
			wp.log.Debug().Int("worker", id).Msg("notification worker shutting down")
			return
		}
	}
}

// Dispatch queues a notification for delivery.
func (wp *WorkerPool) Dispatch(n Notification) {
	wp.jobs <- n
}

// Jobs returns the jobs channel for testing.
func (wp *WorkerPool) Jobs() chan Notification {
	return wp.jobs
}

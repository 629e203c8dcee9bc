package notification

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingSender captures every notification it is asked to deliver.
type recordingSender struct {
	mu   sync.Mutex
	sent []Notification
	err  error
}

func (r *recordingSender) Send(_ context.Context, n Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
	return r.err
}

func (r *recordingSender) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sent)
}

func TestWorkerPool_DispatchReachesEverySender(t *testing.T) {
	a := &recordingSender{}
	b := &recordingSender{}
	pool := NewWorkerPool(2, zerolog.Nop(), a, b)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pool.Start(ctx)

	pool.Dispatch(Notification{UniqueAppointmentID: 1, Title: "Appointment Found", Message: "m"})

	require.Eventually(t, func() bool {
		return a.count() == 1 && b.count() == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, int64(1), a.sent[0].UniqueAppointmentID)
}

func TestWorkerPool_SenderFailureDoesNotBlockOthers(t *testing.T) {
	failing := &recordingSender{err: errors.New("channel down")}
	ok := &recordingSender{}
	pool := NewWorkerPool(1, zerolog.Nop(), failing, ok)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pool.Start(ctx)

	pool.Dispatch(Notification{UniqueAppointmentID: 1})
	pool.Dispatch(Notification{UniqueAppointmentID: 2})

	require.Eventually(t, func() bool {
		return ok.count() == 2
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 2, failing.count(), "the failing channel is still attempted each time")
}

func TestWorkerPool_StopsOnContextCancel(t *testing.T) {
	sender := &recordingSender{}
	pool := NewWorkerPool(1, zerolog.Nop(), sender)

	ctx, cancel := context.WithCancel(context.Background())
	pool.Start(ctx)

	pool.Dispatch(Notification{UniqueAppointmentID: 1})
	require.Eventually(t, func() bool { return sender.count() == 1 }, 2*time.Second, 10*time.Millisecond)

	cancel()
	// Give the worker time to observe cancellation, then queue another job.
	time.Sleep(50 * time.Millisecond)
	pool.Jobs() <- Notification{UniqueAppointmentID: 2}

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 1, sender.count(), "no delivery after shutdown")
}

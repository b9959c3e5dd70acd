package notify

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"volunteerhub/internal/log"
	"volunteerhub/internal/metrics"
)

const (
	asyncQueueSize   = 256
	asyncSendTimeout = 30 * time.Second
)

type job struct {
	ctx      context.Context
	address  string
	template string
	data     map[string]any
}

// Async hands notifications to a fixed pool of workers so callers never wait
// on delivery. Failures are logged. Close drains the queue.
type Async struct {
	next   Notifier
	jobs   chan job
	wg     sync.WaitGroup
	mu     sync.RWMutex
	closed bool
	logger zerolog.Logger
}

// NewAsync starts workers goroutines delivering through next
func NewAsync(next Notifier, workers int) *Async {
	if workers < 1 {
		workers = 1
	}
	a := &Async{
		next:   next,
		jobs:   make(chan job, asyncQueueSize),
		logger: log.WithComponent("notify"),
	}
	for i := 0; i < workers; i++ {
		a.wg.Add(1)
		go a.work()
	}
	return a
}

// Send queues the notification. It returns immediately; a full queue drops
// the message.
func (a *Async) Send(ctx context.Context, address, template string, data map[string]any) error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return ErrClosed
	}

	// Delivery outlives the request that triggered it
	j := job{ctx: context.WithoutCancel(ctx), address: address, template: template, data: data}
	select {
	case a.jobs <- j:
	default:
		metrics.NotificationsTotal.WithLabelValues(template, "dropped").Inc()
		a.logger.Warn().Str("template", template).Str("to", address).Msg("Notification queue full, dropping message")
	}
	return nil
}

// Close stops accepting messages and waits for queued ones to be delivered
func (a *Async) Close() {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	a.closed = true
	close(a.jobs)
	a.mu.Unlock()

	a.wg.Wait()
}

func (a *Async) work() {
	defer a.wg.Done()
	for j := range a.jobs {
		ctx, cancel := context.WithTimeout(j.ctx, asyncSendTimeout)
		if err := a.next.Send(ctx, j.address, j.template, j.data); err != nil {
			a.logger.Error().Err(err).Str("template", j.template).Str("to", j.address).Msg("Failed to send notification")
		}
		cancel()
	}
}

package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/pkordes/campusride/internal/metrics"
)

// sendTimeout bounds a single provider call.
const sendTimeout = 10 * time.Second

// Dispatcher queues messages and delivers them from a background worker.
// Notify never blocks: when the queue is full, or the dispatcher is closed,
// the message is dropped and logged.
type Dispatcher struct {
	mailer  Mailer
	from    string
	log     *slog.Logger
	metrics *metrics.Metrics

	mu     sync.RWMutex
	closed bool
	queue  chan Message
	wg     sync.WaitGroup
}

// NewDispatcher starts a worker draining a queue of size buffer.
// Call Close to flush and stop it. m may be nil.
func NewDispatcher(mailer Mailer, from string, buffer int, log *slog.Logger, m *metrics.Metrics) *Dispatcher {
	d := &Dispatcher{
		mailer:  mailer,
		from:    from,
		log:     log,
		metrics: m,
		queue:   make(chan Message, buffer),
	}
	d.wg.Add(1)
	go d.run()
	return d
}

// Notify enqueues msg for delivery.
func (d *Dispatcher) Notify(msg Message) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.log.Warn("email dispatcher closed, dropping message", "to", msg.To, "subject", msg.Subject)
		d.count("dropped")
		return
	}
	select {
	case d.queue <- msg:
	default:
		d.log.Error("email queue full, dropping message", "to", msg.To, "subject", msg.Subject)
		d.count("dropped")
	}
}

// Close stops accepting messages and waits for queued ones to be sent.
// Messages passed to Notify afterwards are dropped.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()
	d.wg.Wait()
}

func (d *Dispatcher) run() {
	defer d.wg.Done()
	for msg := range d.queue {
		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		id, err := d.mailer.Send(ctx, d.from, msg)
		cancel()
		if err != nil {
			d.log.Error("email send failed", "to", msg.To, "subject", msg.Subject, "error", err)
			d.count("failed")
			continue
		}
		d.log.Debug("email sent", "to", msg.To, "id", id)
		d.count("sent")
	}
}

func (d *Dispatcher) count(result string) {
	if d.metrics != nil {
		d.metrics.EmailsSent.WithLabelValues(result).Inc()
	}
}

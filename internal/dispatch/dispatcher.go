package dispatch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/wrenwealth/Archantum/internal/domain/models"
	"github.com/wrenwealth/Archantum/internal/domain/repository"
	"github.com/wrenwealth/Archantum/pkg/logger"
)

// Dispatcher sits between the gate and the notifier. The engine hands an
// alert off and moves on; delivery failures are retried here with backoff,
// buffered while the notifier is down, and dropped only when the buffer is
// full. An alert is considered emitted once accepted, whatever delivery does.
type Dispatcher struct {
	notifier repository.Notifier
	metrics  repository.Metrics
	log      *logger.Logger

	bufSize int
	bufCh   chan *models.Alert
	stopCh  chan struct{}
	started bool
	mu      sync.Mutex
}

type Option func(*Dispatcher)

// WithBufferSize sets the redelivery buffer capacity.
func WithBufferSize(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.bufSize = n
		}
	}
}

func New(notifier repository.Notifier, metrics repository.Metrics, log *logger.Logger, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		notifier: notifier,
		metrics:  metrics,
		log:      log,
		bufSize:  1000,
		stopCh:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.bufCh = make(chan *models.Alert, d.bufSize)
	return d
}

// Start launches background redelivery of buffered alerts.
func (d *Dispatcher) Start(ctx context.Context) {
	d.mu.Lock()
	if d.started {
		d.mu.Unlock()
		return
	}
	d.started = true
	d.mu.Unlock()

	go func() {
		backoff := 50 * time.Millisecond
		for {
			select {
			case <-d.stopCh:
				return
			case <-ctx.Done():
				return
			case a := <-d.bufCh:
				if a == nil {
					continue
				}
				if err := d.notifier.Notify(ctx, a); err != nil {
					if backoff < 2*time.Second {
						backoff *= 2
					}
					d.log.Warn("dispatch: redelivery failed",
						logger.String("alert", a.ID),
						logger.Error(err))
					time.Sleep(backoff)
					select {
					case d.bufCh <- a:
					default:
						d.log.Error("dispatch: buffer full, alert dropped",
							logger.String("alert", a.ID))
					}
				} else {
					backoff = 50 * time.Millisecond
				}
			}
		}
	}()
}

// Stop stops background redelivery.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if !d.started {
		d.mu.Unlock()
		return
	}
	d.started = false
	d.mu.Unlock()
	close(d.stopCh)
}

// Dispatch delivers one alert, buffering it for retry when the notifier is
// unavailable.
func (d *Dispatcher) Dispatch(ctx context.Context, a *models.Alert) error {
	if a == nil || a.ID == "" {
		return fmt.Errorf("alert invalid")
	}
	start := time.Now()

	if err := d.notifier.Notify(ctx, a); err != nil {
		select {
		case d.bufCh <- a:
			d.log.Warn("dispatch: delivery failed, buffered",
				logger.String("alert", a.ID),
				logger.Int("buffered", len(d.bufCh)),
				logger.Error(err))
		default:
			d.log.Error("dispatch: delivery failed and buffer full, alert dropped",
				logger.String("alert", a.ID),
				logger.Error(err))
		}
		return fmt.Errorf("dispatch notify: %w", err)
	}

	d.metrics.RecordLatency("dispatch_notify", time.Since(start).Seconds())
	return nil
}

package events

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Tonic56/cryptofolio/internal/models"
)

const publishTimeout = 10 * time.Second

// Dispatcher publishes refresh events from its own goroutine.
type Dispatcher struct {
	publisher Publisher
	events    chan models.PriceRefreshed
	log       *slog.Logger
}

func NewDispatcher(publisher Publisher, buffer int, log *slog.Logger) *Dispatcher {
	return &Dispatcher{
		publisher: publisher,
		events:    make(chan models.PriceRefreshed, buffer),
		log:       log,
	}
}

// Enqueue drops the event when the buffer is full.
func (d *Dispatcher) Enqueue(event models.PriceRefreshed) {
	select {
	case d.events <- event:
	default:
		d.log.Warn("event buffer is full, dropping price event", "updated_at", event.UpdatedAt)
	}
}

func (d *Dispatcher) Start(ctx context.Context, wg *sync.WaitGroup) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer func() {
			if err := d.publisher.Close(); err != nil {
				d.log.Error("failed to close event publisher", "error", err)
			}
		}()

		for {
			select {
			case <-ctx.Done():
				d.log.Info("event dispatcher stopping...")
				return
			case event := <-d.events:
				d.publish(event)
			}
		}
	}()
}

func (d *Dispatcher) publish(event models.PriceRefreshed) {
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	if err := d.publisher.Publish(ctx, event); err != nil {
		d.log.Error("failed to publish price event", "error", err)
		return
	}
	d.log.Debug("price event published", "coins", len(event.Prices))
}

package message

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Poller watches message storage for a set of pending requests.
type Poller struct {
	store    StorageReader
	interval time.Duration
	logger   zerolog.Logger
}

func NewPoller(store StorageReader, interval time.Duration, logger zerolog.Logger) *Poller {
	return &Poller{store: store, interval: interval, logger: logger}
}

// Watch polls immediately and then every interval. Each completed request
// is sent once on the returned channel. The channel is closed when no
// request is pending or ctx is done. Poll errors are logged and retried on
// the next tick.
func (p *Poller) Watch(ctx context.Context, ids []uuid.UUID) <-chan *Stored {
	pending := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		pending[id] = true
	}
	out := make(chan *Stored, len(pending))

	go func() {
		defer close(out)
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()
		for len(pending) > 0 {
			p.poll(ctx, pending, out)
			if len(pending) == 0 {
				return
			}
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
	return out
}

func (p *Poller) poll(ctx context.Context, pending map[uuid.UUID]bool, out chan<- *Stored) {
	ids := make([]uuid.UUID, 0, len(pending))
	for id := range pending {
		ids = append(ids, id)
	}
	found, err := p.store.Stored(ctx, ids)
	if err != nil {
		if ctx.Err() == nil {
			p.logger.Warn().Err(err).Int("pending", len(ids)).Msg("message poll failed")
		}
		return
	}
	for _, s := range found {
		if !pending[s.RequestID] {
			continue
		}
		delete(pending, s.RequestID)
		out <- s
	}
}

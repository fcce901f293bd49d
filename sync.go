package resonance

import (
	"context"
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"github.com/resonancehq/resonance-go/transport"
)

// syncCoordinator applies catalog events to a store in delivery order and
// owns the readiness gate. A single goroutine runs the loop, so the store
// never sees concurrent mutation and events never interleave.
type syncCoordinator struct {
	store *promptStore
	log   *zap.Logger

	ready     chan struct{}
	readyOnce sync.Once

	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

func newSyncCoordinator(store *promptStore, log *zap.Logger) *syncCoordinator {
	return &syncCoordinator{
		store: store,
		log:   log,
		ready: make(chan struct{}),
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
	}
}

// run consumes src until the source closes its channel or halt is called.
// It is the only writer to the store.
func (c *syncCoordinator) run(src transport.Source) {
	defer close(c.done)
	events := src.Events()
	for {
		select {
		case <-c.stop:
			return
		case ev, ok := <-events:
			if !ok {
				// The stream has ended for good; readiness can no longer
				// arrive, so release any waiters.
				c.stopOnce.Do(func() { close(c.stop) })
				c.log.Debug("event source drained, sync loop exiting")
				return
			}
			c.dispatch(ev)
		}
	}
}

// halt stops event application and returns once the loop has exited, after
// which no further event can mutate the store.
func (c *syncCoordinator) halt() {
	c.stopOnce.Do(func() { close(c.stop) })
	<-c.done
}

func (c *syncCoordinator) dispatch(ev transport.Event) {
	switch ev.Name {
	case transport.EventSync:
		var payload SyncPayload
		if err := json.Unmarshal(ev.Data, &payload); err != nil {
			c.log.Warn("dropping undecodable sync event", zap.Error(err))
			return
		}
		c.applySnapshot(payload.Prompts)
	case transport.EventPromptDeployed:
		var p Prompt
		if err := json.Unmarshal(ev.Data, &p); err != nil {
			c.log.Warn("dropping undecodable deploy event", zap.Error(err))
			return
		}
		c.applyUpsert(p)
	case transport.EventPromptUndeployed:
		var payload RemovalPayload
		if err := json.Unmarshal(ev.Data, &payload); err != nil {
			c.log.Warn("dropping undecodable undeploy event", zap.Error(err))
			return
		}
		c.applyRemoval(payload.ID)
	default:
		c.log.Debug("ignoring unknown event", zap.String("event", ev.Name))
	}
}

// applySnapshot mirrors the store to records and, on the first snapshot,
// resolves readiness. Later snapshots re-mirror without touching the gate.
func (c *syncCoordinator) applySnapshot(records []Prompt) {
	total, removed := c.store.reconcile(records)
	c.readyOnce.Do(func() { close(c.ready) })
	c.log.Debug("catalog synchronized",
		zap.Int("prompts", total),
		zap.Int("removed", removed))
}

func (c *syncCoordinator) applyUpsert(p Prompt) {
	c.store.upsert(p)
	c.log.Debug("prompt deployed",
		zap.String("id", p.ID),
		zap.Int("version", p.Version))
}

func (c *syncCoordinator) applyRemoval(id string) {
	removed := c.store.removeWhere(func(candidate string) bool {
		return candidate == id
	})
	c.log.Debug("prompt undeployed",
		zap.String("id", id),
		zap.Int("removed", removed))
}

// waitReady blocks until the first snapshot has been applied, ctx ends, or
// the coordinator is halted. Readiness is checked first so that a catalog
// which already completed its mirror stays readable even while closing.
func (c *syncCoordinator) waitReady(ctx context.Context) error {
	select {
	case <-c.ready:
		return nil
	default:
	}
	select {
	case <-c.ready:
		return nil
	case <-c.stop:
		// A snapshot that landed just before the halt still counts.
		if c.isReady() {
			return nil
		}
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// isReady reports whether the first snapshot has been applied.
func (c *syncCoordinator) isReady() bool {
	select {
	case <-c.ready:
		return true
	default:
		return false
	}
}

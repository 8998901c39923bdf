package sim

import (
	"context"
	"fmt"
	"time"

	"shopsim/internal/game"
)

// detach seals the open delta and takes everything buffered.
func (d *Driver) detach() Batch {
	batch := d.buf.Detach(d.state)
	if seq := d.buf.Seq(); seq > d.state.LastDeltaSeq {
		d.state.LastDeltaSeq = seq
	}
	return batch
}

// write pushes a batch to the store stage by stage. It returns whatever is
// left when a stage fails. Every stage is safe to repeat: inserts ignore
// known ids, status writes never move backwards and deltas carry sequence
// numbers the store deduplicates on.
func write(ctx context.Context, store game.Store, businessID string, b Batch) (Batch, error) {
	if len(b.NewOrders) > 0 {
		if err := store.SaveNewOrders(ctx, businessID, b.NewOrders); err != nil {
			return b, fmt.Errorf("save %d new orders: %w", len(b.NewOrders), err)
		}
		b.NewOrders = nil
	}
	for len(b.Updates) > 0 {
		u := b.Updates[0]
		if err := store.UpdateOrderStatus(ctx, businessID, u.OrderID, u.Update); err != nil {
			return b, fmt.Errorf("update order %s: %w", u.OrderID, err)
		}
		b.Updates = b.Updates[1:]
	}
	for len(b.Deltas) > 0 {
		delta := b.Deltas[0]
		if err := store.ApplyBusinessDelta(ctx, businessID, delta); err != nil {
			return b, fmt.Errorf("apply delta %d: %w", delta.Seq, err)
		}
		b.Deltas = b.Deltas[1:]
	}
	return b, nil
}

// Flush writes everything buffered within FlushTimeout. On failure the
// remainder goes back into the buffer for the next flush window. Use it only
// while Run is not running. The snapshot is republished either way.
func (d *Driver) Flush(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, d.cfg.FlushTimeout)
	defer cancel()
	defer func() { d.publish(d.deps.Clock.Now()) }()
	d.persistRestock(ctx)
	batch := d.detach()
	if batch.Empty() {
		return nil
	}
	rest, err := d.timedWrite(ctx, batch)
	d.settle(rest, err)
	return err
}

func (d *Driver) timedWrite(ctx context.Context, batch Batch) (Batch, error) {
	start := time.Now()
	rest, err := write(ctx, d.deps.Store, d.id, batch)
	d.deps.Metrics.FlushFinished(time.Since(start), err)
	return rest, err
}

// settle folds a finished write back into the driver.
func (d *Driver) settle(rest Batch, err error) {
	if err != nil {
		d.buf.Restore(rest)
		d.log.Warn("delta flush failed", "err", err, "remaining", rest.Size())
		return
	}
	if d.spooled && d.deps.Spool != nil {
		if err := d.deps.Spool.Remove(d.id); err != nil {
			d.log.Warn("spool remove failed", "err", err)
		} else {
			d.spooled = false
		}
	}
}

// persistRestock saves a pending supplier refill synchronously. The refill
// only takes effect in memory once the store has it; otherwise the schedule
// stays put and the next restock check retries.
func (d *Driver) persistRestock(ctx context.Context) {
	if d.restock == nil {
		return
	}
	market := *d.restock
	err := d.deps.Store.SaveMarketState(ctx, d.id, market)
	d.restockSaved(ctx, market, err)
}

func (d *Driver) restockSaved(ctx context.Context, market game.MarketState, err error) {
	d.restock = nil
	if err != nil {
		d.log.Warn("restock save failed", "err", err)
		return
	}
	d.state.Market = market
	d.buf.MarkDirty()
	d.deps.Notifier.RestockCompleted(ctx, d.id, market)
}

// shutdown runs the final flush with a fresh timeout and spools whatever
// still could not be written.
func (d *Driver) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), d.cfg.FlushTimeout)
	defer cancel()
	d.persistRestock(ctx)
	batch := d.detach()
	if batch.Empty() {
		return
	}
	rest, err := d.timedWrite(ctx, batch)
	if err == nil {
		d.settle(rest, nil)
		return
	}
	d.log.Warn("final flush failed", "err", err, "remaining", rest.Size())
	if d.deps.Spool == nil {
		return
	}
	if serr := d.deps.Spool.Save(d.id, rest); serr != nil {
		d.log.Error("spool save failed", "err", serr, "lost", rest.Size())
		return
	}
	d.log.Info("unflushed writes spooled", "writes", rest.Size())
}

package sim

import (
	"context"
	"time"

	"shopsim/internal/game"
)

type flushResult struct {
	rest Batch
	err  error
}

type restockResult struct {
	market game.MarketState
	err    error
}

// Run drives the business until ctx is done: sub-ticks on BaseTick, flushes
// on Flush, and commands in between. Store writes run off the loop; the loop
// never waits on them except during the final flush. Run may be called once.
func (d *Driver) Run(ctx context.Context) error {
	if !d.started.CompareAndSwap(false, true) {
		return ErrDriverRunning
	}
	d.loop(ctx)
	return nil
}

func (d *Driver) loop(ctx context.Context) {
	defer close(d.done)
	d.deps.Metrics.DriverStarted()
	defer d.deps.Metrics.DriverStopped()

	tick := time.NewTicker(d.cfg.BaseTick)
	defer tick.Stop()
	flush := time.NewTicker(d.cfg.Flush)
	defer flush.Stop()

	flushDone := make(chan flushResult, 1)
	restockDone := make(chan restockResult, 1)
	flushing, saving := false, false

	d.log.Info("driver started", "type", d.bt.ID, "tick_every", d.cfg.BaseTick.String(), "flush_every", d.cfg.Flush.String())
	for {
		select {
		case <-ctx.Done():
			tick.Stop()
			flush.Stop()
			if flushing {
				res := <-flushDone
				d.settle(res.rest, res.err)
			}
			if saving {
				res := <-restockDone
				d.restockSaved(context.Background(), res.market, res.err)
			}
			d.shutdown()
			d.log.Info("driver stopped")
			return

		case <-tick.C:
			now := d.deps.Clock.Now()
			d.Step(ctx, now)
			if d.restock != nil && !saving && ctx.Err() == nil {
				saving = true
				market := *d.restock
				go func() {
					wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.cfg.FlushTimeout)
					defer cancel()
					restockDone <- restockResult{market: market, err: d.deps.Store.SaveMarketState(wctx, d.id, market)}
				}()
			}

		case <-flush.C:
			if flushing {
				continue
			}
			batch := d.detach()
			if batch.Empty() {
				continue
			}
			flushing = true
			go func() {
				wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.cfg.FlushTimeout)
				defer cancel()
				rest, err := d.timedWrite(wctx, batch)
				flushDone <- flushResult{rest: rest, err: err}
			}()

		case res := <-flushDone:
			flushing = false
			d.settle(res.rest, res.err)
			d.publish(d.deps.Clock.Now())

		case res := <-restockDone:
			saving = false
			d.restockSaved(ctx, res.market, res.err)
			d.publish(d.deps.Clock.Now())

		case cmd := <-d.cmds:
			err := cmd.fn(d.deps.Clock.Now())
			if err == nil {
				d.buf.MarkDirty()
				d.publish(d.deps.Clock.Now())
			}
			cmd.done <- err
		}
	}
}

// Done is closed once Run has returned.
func (d *Driver) Done() <-chan struct{} { return d.done }

// Do runs fn on the driver's loop and waits for its result.
func (d *Driver) Do(ctx context.Context, fn func(now time.Time) error) error {
	if !d.started.Load() {
		return ErrDriverStopped
	}
	cmd := command{fn: fn, done: make(chan error, 1)}
	select {
	case d.cmds <- cmd:
	case <-d.done:
		return ErrDriverStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-cmd.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

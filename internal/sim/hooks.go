package sim

import (
	"context"
	"log/slog"
	"time"

	"shopsim/internal/game"
)

// Notifier is told about supplier restocks once they are persisted.
type Notifier interface {
	RestockCompleted(ctx context.Context, businessID string, market game.MarketState)
}

type LogNotifier struct {
	Log *slog.Logger
}

func (n LogNotifier) RestockCompleted(_ context.Context, businessID string, market game.MarketState) {
	log := n.Log
	if log == nil {
		log = slog.Default()
	}
	log.Info("supplier restocked", "business_id", businessID, "items", len(market.StockLevels), "next_restock_at", market.NextRestockAt)
}

// Recorder receives driver telemetry. The Prometheus implementation lives in
// internal/metrics.
type Recorder interface {
	SubtickRan(subtick string, took time.Duration, err error)
	FlushFinished(took time.Duration, err error)
	OrdersGenerated(businessType string, n int)
	OrderFinished(businessType string, status game.OrderStatus)
	DriverStarted()
	DriverStopped()
}

type nopRecorder struct{}

func (nopRecorder) SubtickRan(string, time.Duration, error) {}
func (nopRecorder) FlushFinished(time.Duration, error) {}
func (nopRecorder) OrdersGenerated(string, int) {}
func (nopRecorder) OrderFinished(string, game.OrderStatus) {}
func (nopRecorder) DriverStarted() {}
func (nopRecorder) DriverStopped() {}

// Spool keeps writes that could not be flushed before a driver stopped, so
// the next driver for the business can pick them up.
type Spool interface {
	Save(businessID string, batch Batch) error
	Load(businessID string) (Batch, bool, error)
	Remove(businessID string) error
}

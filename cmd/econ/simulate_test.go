package main

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"shopsim/internal/game"

	"github.com/stretchr/testify/require"
)

func offlineLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestOfflineRunIsReproducible(t *testing.T) {
	opts := offlineOptions{TypeID: "food_truck", Days: 2, Seed: 11, Step: 10 * time.Second, Market: "calm"}

	first, err := runOffline(context.Background(), opts, offlineLogger())
	require.NoError(t, err)
	second, err := runOffline(context.Background(), opts, offlineLogger())
	require.NoError(t, err)

	require.Len(t, first.Days, 2)
	require.Equal(t, first.Days, second.Days)
	require.Equal(t, first.Final.Business.CashBalance, second.Final.Business.CashBalance)
	require.Equal(t, first.ByStatus, second.ByStatus)
}

func TestOfflineRunRejectsBadInput(t *testing.T) {
	_, err := runOffline(context.Background(), offlineOptions{TypeID: "spaceport", Days: 1}, offlineLogger())
	require.ErrorIs(t, err, game.ErrUnknownBusinessType)

	_, err = runOffline(context.Background(), offlineOptions{TypeID: "salon"}, offlineLogger())
	require.Error(t, err)
}

func TestOfflineRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := runOffline(ctx, offlineOptions{TypeID: "salon", Days: 1}, offlineLogger())
	require.ErrorIs(t, err, context.Canceled)
}

func TestFormatMoney(t *testing.T) {
	require.Equal(t, "$0.00", formatMoney(0))
	require.Equal(t, "$1,234.50", formatMoney(1234.5))
	require.Equal(t, "-$12.05", formatMoney(-12.049))
}

package sim

import (
	"context"
	"testing"

	"shopsim/internal/game"
	"shopsim/internal/store/memstore"

	"github.com/stretchr/testify/require"
)

func TestManagerRunsOneDriverPerBusiness(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	first := newBusiness(t, dawn)
	second := newBusiness(t, dawn)
	second.ID = "second-truck"
	second.OwnerID = "owner-2"
	_, err := store.CreateBusiness(ctx, first)
	require.NoError(t, err)
	_, err = store.CreateBusiness(ctx, second)
	require.NoError(t, err)

	m := NewManager(testDeps(store, NewManualClock(dawn)), slowConfig(), 11, "calm")
	require.NotNil(t, m.Market())

	started, err := m.StartAll(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, started)
	require.Equal(t, 2, m.Running())

	d, ok := m.Driver(first.ID)
	require.True(t, ok)
	again, err := m.Start(ctx, first.ID)
	require.NoError(t, err)
	require.Same(t, d, again)

	_, err = d.BuyInventory(ctx, "patty", 5)
	require.NoError(t, err)

	require.True(t, m.Stop(first.ID))
	require.False(t, m.Stop(first.ID))
	require.Equal(t, 1, m.Running())

	stored, err := store.LoadBusiness(ctx, first.ID)
	require.NoError(t, err)
	require.Equal(t, 65, stored.Inventory["patty"], "stop waits for the final flush")

	m.Shutdown()
	require.Zero(t, m.Running())
	_, err = m.Start(ctx, "missing")
	require.ErrorIs(t, err, game.ErrBusinessNotFound)
}

func TestBusinessSeedsDiffer(t *testing.T) {
	m := NewManager(testDeps(memstore.New(), nil), DefaultConfig(), 5, "calm")
	require.Equal(t, m.businessSeed("a"), m.businessSeed("a"))
	require.NotEqual(t, m.businessSeed("a"), m.businessSeed("b"))
}

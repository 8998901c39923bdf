package memstore

import (
	"context"
	"testing"
	"time"

	"shopsim/internal/catalog"
	"shopsim/internal/game"

	"github.com/stretchr/testify/require"
)

func seedBusiness(t *testing.T, s *Store) game.BusinessState {
	t.Helper()
	bt, ok := catalog.Default().BusinessType("food_truck")
	require.True(t, ok)
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	b := game.NewBusinessState(game.NewRand(3), bt, game.CreateBusinessInput{OwnerID: "owner-1", Name: "Rolling Grill"}, now)
	id, err := s.CreateBusiness(context.Background(), b)
	require.NoError(t, err)
	require.Equal(t, b.ID, id)
	return b
}

func TestCreateAndLoadBusiness(t *testing.T) {
	ctx := context.Background()
	s := New()
	b := seedBusiness(t, s)

	got, err := s.LoadBusiness(ctx, b.ID)
	require.NoError(t, err)
	require.Equal(t, b.Name, got.Name)
	require.Equal(t, b.CashBalance, got.CashBalance)

	byOwner, err := s.LoadBusinessByOwner(ctx, "owner-1")
	require.NoError(t, err)
	require.Equal(t, b.ID, byOwner.ID)

	got.Inventory["patty"] = 0
	again, err := s.LoadBusiness(ctx, b.ID)
	require.NoError(t, err)
	require.Equal(t, 60, again.Inventory["patty"], "loaded copies must not alias the store")

	_, err = s.CreateBusiness(ctx, game.BusinessState{OwnerID: "owner-1"})
	require.ErrorIs(t, err, game.ErrOwnerHasBusiness)
}

func TestDeltaReplayIsIgnored(t *testing.T) {
	ctx := context.Background()
	s := New()
	b := seedBusiness(t, s)

	d := game.BusinessDelta{Seq: 1, CashDelta: 50, OrdersCompletedDelta: 1}
	require.NoError(t, s.ApplyBusinessDelta(ctx, b.ID, d))
	require.NoError(t, s.ApplyBusinessDelta(ctx, b.ID, d))

	got, err := s.LoadBusiness(ctx, b.ID)
	require.NoError(t, err)
	require.Equal(t, b.CashBalance+50, got.CashBalance)
	require.Equal(t, 1, got.OrdersCompleted)
	require.EqualValues(t, 1, got.LastDeltaSeq)
}

func TestOrdersInsertOnceAndNeverMoveBack(t *testing.T) {
	ctx := context.Background()
	s := New()
	b := seedBusiness(t, s)

	o := game.Order{ID: "o1", Status: game.StatusPending, CreatedAt: time.Now()}
	require.NoError(t, s.SaveNewOrders(ctx, b.ID, []game.Order{o}))
	o.Status = game.StatusAccepted
	require.NoError(t, s.SaveNewOrders(ctx, b.ID, []game.Order{o}))

	active, err := s.LoadActiveOrders(ctx, b.ID)
	require.NoError(t, err)
	require.Len(t, active, 1)
	require.Equal(t, game.StatusPending, active[0].Status, "a repeated insert must not overwrite")

	require.NoError(t, s.UpdateOrderStatus(ctx, b.ID, "o1", game.OrderUpdate{Status: game.StatusCompleted, PaidAmount: 12}))
	require.NoError(t, s.UpdateOrderStatus(ctx, b.ID, "o1", game.OrderUpdate{Status: game.StatusAccepted}))

	all := s.Orders(b.ID)
	require.Len(t, all, 1)
	require.Equal(t, game.StatusCompleted, all[0].Status)
	require.Equal(t, 12.0, all[0].PaidAmount)

	active, err = s.LoadActiveOrders(ctx, b.ID)
	require.NoError(t, err)
	require.Empty(t, active)

	err = s.UpdateOrderStatus(ctx, b.ID, "missing", game.OrderUpdate{Status: game.StatusAccepted})
	require.ErrorIs(t, err, game.ErrOrderNotFound)
}

func TestDeleteClearsOwnerPointer(t *testing.T) {
	ctx := context.Background()
	s := New()
	b := seedBusiness(t, s)

	require.NoError(t, s.DeleteBusiness(ctx, b.ID))
	_, err := s.LoadBusinessByOwner(ctx, "owner-1")
	require.ErrorIs(t, err, game.ErrBusinessNotFound)
	_, err = s.CreateBusiness(ctx, game.BusinessState{OwnerID: "owner-1", Name: "Second Try"})
	require.NoError(t, err)
}

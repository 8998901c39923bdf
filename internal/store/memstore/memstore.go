// Package memstore keeps businesses and orders in process memory. It backs
// offline simulations and tests.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"shopsim/internal/game"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

type Store struct {
	mu         sync.Mutex
	businesses map[string]game.BusinessState
	owners     map[string]string
	orders     map[string]map[string]game.Order
}

var _ game.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		businesses: map[string]game.BusinessState{},
		owners:     map[string]string{},
		orders:     map[string]map[string]game.Order{},
	}
}

func (s *Store) LoadBusiness(_ context.Context, businessID string) (*game.BusinessState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.businesses[businessID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", game.ErrBusinessNotFound, businessID)
	}
	out := b.Clone()
	return &out, nil
}

func (s *Store) LoadBusinessByOwner(ctx context.Context, ownerID string) (*game.BusinessState, error) {
	s.mu.Lock()
	id, ok := s.owners[ownerID]
	s.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: owner %s", game.ErrBusinessNotFound, ownerID)
	}
	return s.LoadBusiness(ctx, id)
}

func (s *Store) ListBusinessIDs(context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := lo.Keys(s.businesses)
	sort.Strings(ids)
	return ids, nil
}

func (s *Store) LoadActiveOrders(_ context.Context, businessID string) ([]game.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []game.Order
	for _, o := range s.orders[businessID] {
		if o.Status.Active() {
			out = append(out, o.Clone())
		}
	}
	sortOrders(out)
	return out, nil
}

// Orders returns every stored order of a business, terminal ones included,
// oldest first.
func (s *Store) Orders(businessID string) []game.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := lo.MapToSlice(s.orders[businessID], func(_ string, o game.Order) game.Order { return o.Clone() })
	sortOrders(out)
	return out
}

func sortOrders(orders []game.Order) {
	sort.SliceStable(orders, func(i, j int) bool {
		if orders[i].CreatedAt.Equal(orders[j].CreatedAt) {
			return orders[i].ID < orders[j].ID
		}
		return orders[i].CreatedAt.Before(orders[j].CreatedAt)
	})
}

// SaveNewOrders inserts orders it has not seen. Known ids are left alone.
func (s *Store) SaveNewOrders(_ context.Context, businessID string, orders []game.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.businesses[businessID]; !ok {
		return fmt.Errorf("%w: %s", game.ErrBusinessNotFound, businessID)
	}
	bucket := s.orders[businessID]
	if bucket == nil {
		bucket = map[string]game.Order{}
		s.orders[businessID] = bucket
	}
	for _, o := range orders {
		if _, exists := bucket[o.ID]; exists {
			continue
		}
		o = o.Clone()
		o.BusinessID = businessID
		bucket[o.ID] = o
	}
	return nil
}

// UpdateOrderStatus overwrites an order's mutable fields. Updates that would
// move the order backwards are dropped.
func (s *Store) UpdateOrderStatus(_ context.Context, businessID, orderID string, update game.OrderUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[businessID][orderID]
	if !ok {
		return fmt.Errorf("%w: %s", game.ErrOrderNotFound, orderID)
	}
	if !game.CanAdvance(o.Status, update.Status) {
		return nil
	}
	o.ApplyUpdate(update)
	s.orders[businessID][orderID] = o.Clone()
	return nil
}

func (s *Store) ApplyBusinessDelta(_ context.Context, businessID string, delta game.BusinessDelta) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.businesses[businessID]
	if !ok {
		return fmt.Errorf("%w: %s", game.ErrBusinessNotFound, businessID)
	}
	next := b.Clone()
	if game.ApplyDelta(&next, delta) {
		s.businesses[businessID] = next.Clone()
	}
	return nil
}

func (s *Store) SaveMarketState(_ context.Context, businessID string, market game.MarketState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.businesses[businessID]
	if !ok {
		return fmt.Errorf("%w: %s", game.ErrBusinessNotFound, businessID)
	}
	b.Market = market.Clone()
	s.businesses[businessID] = b
	return nil
}

func (s *Store) CreateBusiness(_ context.Context, state game.BusinessState) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.owners[state.OwnerID]; taken {
		return "", fmt.Errorf("%w: %s", game.ErrOwnerHasBusiness, state.OwnerID)
	}
	if state.ID == "" {
		state.ID = uuid.NewString()
	}
	s.businesses[state.ID] = state.Clone()
	s.owners[state.OwnerID] = state.ID
	return state.ID, nil
}

// DeleteBusiness removes the business, its orders and the owner pointer
// together.
func (s *Store) DeleteBusiness(_ context.Context, businessID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.businesses[businessID]
	if !ok {
		return fmt.Errorf("%w: %s", game.ErrBusinessNotFound, businessID)
	}
	delete(s.businesses, businessID)
	delete(s.orders, businessID)
	if s.owners[b.OwnerID] == businessID {
		delete(s.owners, b.OwnerID)
	}
	return nil
}

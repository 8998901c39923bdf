package game

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"shopsim/internal/catalog"

	"github.com/google/uuid"
)

// Service founds and closes businesses. Everything that happens to a running
// business goes through its simulation driver instead.
type Service struct {
	store Store
	reg   *catalog.Registry
	log   *slog.Logger
	now   func() time.Time
	mu    sync.Mutex
	rand  Rand
}

func NewService(store Store, reg *catalog.Registry, logger *slog.Logger, seed int64) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Service{
		store: store,
		reg:   reg,
		log:   logger,
		now:   time.Now,
		rand:  NewRand(seed),
	}
}

func (s *Service) Registry() *catalog.Registry { return s.reg }

// NewBusinessState builds the founding record: starting capital, one manager,
// opening stock, a stocked supplier and flat price curves.
func NewBusinessState(rng Rand, bt catalog.BusinessType, in CreateBusinessInput, now time.Time) BusinessState {
	capital := in.StartingCapital
	if capital <= 0 {
		capital = bt.StartingCapital
	}
	manager := FoundingManager(rng, bt, now)
	b := BusinessState{
		ID:                   newID(rng),
		OwnerID:              in.OwnerID,
		Name:                 strings.TrimSpace(in.Name),
		TypeID:               bt.ID,
		CashBalance:          roundCents(capital),
		Reputation:           StartingReputation,
		CustomerSatisfaction: StartingReputation,
		OperatingHours:       bt.OperatingHours,
		StaffCount:           1,
		Employees:            []Employee{manager},
		Inventory:            map[string]int{},
		Market:               InitialMarket(bt, now),
		Pricing:              map[string]PriceCurve{},
		LastRecruitmentAt:    now,
		LastPayrollAt:        now,
		LastTickAt:           now,
		LastDailyCloseAt:     now,
		CreatedAt:            now,
		LastActiveAt:         now,
	}
	for _, it := range bt.Inventory {
		b.Inventory[it.ID] = it.StartingStock
	}
	capacity := Capacity(b.Employees)
	for _, p := range bt.Products {
		b.Pricing[p.ID] = NewPriceCurve(p, ProductSupply(p, b.Inventory, capacity))
	}
	return b
}

func (s *Service) CreateBusiness(ctx context.Context, in CreateBusinessInput) (string, error) {
	if strings.TrimSpace(in.OwnerID) == "" {
		return "", ErrUnauthorized
	}
	if err := validateBusinessName(in.Name); err != nil {
		return "", err
	}
	if in.StartingCapital < 0 {
		return "", fmt.Errorf("%w: starting capital must not be negative", ErrInvalidQuantity)
	}
	bt, ok := s.reg.BusinessType(in.TypeID)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownBusinessType, in.TypeID)
	}

	s.mu.Lock()
	state := NewBusinessState(s.rand, bt, in, s.now().UTC())
	s.mu.Unlock()

	id, err := s.store.CreateBusiness(ctx, state)
	if err != nil {
		return "", err
	}
	s.log.Info("business founded", "business_id", id, "owner_id", in.OwnerID, "type", bt.ID, "capital", state.CashBalance)
	return id, nil
}

// CloseBusiness deletes the caller's business. The store clears the owner's
// pointer in the same write.
func (s *Service) CloseBusiness(ctx context.Context, ownerID, businessID string) error {
	b, err := s.OwnedBusiness(ctx, ownerID, businessID)
	if err != nil {
		return err
	}
	if err := s.store.DeleteBusiness(ctx, b.ID); err != nil {
		return err
	}
	s.log.Info("business closed", "business_id", b.ID, "owner_id", ownerID)
	return nil
}

func (s *Service) OwnedBusiness(ctx context.Context, ownerID, businessID string) (*BusinessState, error) {
	if _, err := uuid.Parse(businessID); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrBusinessNotFound, businessID)
	}
	b, err := s.store.LoadBusiness(ctx, businessID)
	if err != nil {
		return nil, err
	}
	if b.OwnerID != ownerID {
		return nil, ErrUnauthorized
	}
	return b, nil
}

func (s *Service) BusinessForOwner(ctx context.Context, ownerID string) (*BusinessState, error) {
	b, err := s.store.LoadBusinessByOwner(ctx, ownerID)
	if errors.Is(err, ErrBusinessNotFound) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("load business for %s: %w", ownerID, err)
	}
	return b, nil
}

package game

import (
	"errors"
	"fmt"
	"io"
	"math"
	mathrand "math/rand"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

const (
	MaxReputation      = 100.0
	StartingReputation = 50.0
	MaxRecruitmentPool = 10
	MaxReviews         = 50
	MaxCustomerCache   = 50
	MaxProfileHistory  = 10
	MaxPriceHistory    = 20
)

var (
	ErrInvalidTransition    = errors.New("invalid order transition")
	ErrBusinessNotFound     = errors.New("business not found")
	ErrOrderNotFound        = errors.New("order not found")
	ErrUnknownBusinessType  = errors.New("unknown business type")
	ErrUnknownTool          = errors.New("unknown tool")
	ErrUnknownItem          = errors.New("unknown inventory item")
	ErrInsufficientFunds    = errors.New("insufficient funds")
	ErrInsufficientStock    = errors.New("insufficient stock")
	ErrInsufficientShares   = errors.New("insufficient shares")
	ErrInvalidQuantity      = errors.New("quantity must be a positive whole number")
	ErrInvalidSymbol        = errors.New("symbol must be exactly 6 uppercase letters")
	ErrStockNotFound        = errors.New("stock not found")
	ErrInvalidSide          = errors.New("side must be buy or sell")
	ErrUnauthorized         = errors.New("unauthorized")
	ErrOwnerHasBusiness     = errors.New("owner already has a business")
	ErrInvalidName          = errors.New("invalid business name")
	ErrCandidateNotFound    = errors.New("candidate not found")
	ErrEmployeeNotFound     = errors.New("employee not found")
	ErrSpecializationLocked = errors.New("specialization requires skill level 3")
	ErrAlreadySpecialized   = errors.New("employee already specialized")
	ErrToolOwned            = errors.New("tool already owned")
	ErrToolIncompatible     = errors.New("tool does not fit this business category")
	ErrStaffAtCapacity      = errors.New("no employee has a free order slot")
)

// TransitionError reports an order lifecycle call made from the wrong state.
type TransitionError struct {
	OrderID string
	From    OrderStatus
	Action  string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s: cannot %s order %s in status %s", ErrInvalidTransition, e.Action, e.OrderID, e.From)
}

func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

// Rand is the randomness every stochastic engine function draws from.
// *math/rand.Rand satisfies it; seed one for reproducible runs.
type Rand interface {
	Float64() float64
	Intn(n int) int
	io.Reader
}

func NewRand(seed int64) *mathrand.Rand {
	return mathrand.New(mathrand.NewSource(seed))
}

func newID(rng Rand) string {
	id, err := uuid.NewRandomFromReader(rng)
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampScore(v float64) float64 {
	return clamp(v, 0, MaxReputation)
}

// jitter returns a value in [-span, span).
func jitter(rng Rand, span float64) float64 {
	return (rng.Float64()*2 - 1) * span
}

var symbolRE = regexp.MustCompile(`^[A-Z]{6}$`)

func ValidateSymbol(symbol string) error {
	if !symbolRE.MatchString(strings.TrimSpace(symbol)) {
		return ErrInvalidSymbol
	}
	return nil
}

var blockedNameFragments = []string{
	"admin",
	"support",
	"shit",
	"fuck",
	"bitch",
	"nazi",
}

func validateBusinessName(name string) error {
	name = strings.TrimSpace(name)
	if len(name) < 3 || len(name) > 64 {
		return fmt.Errorf("%w: must be 3-64 characters", ErrInvalidName)
	}
	lower := strings.ToLower(name)
	for _, fragment := range blockedNameFragments {
		if strings.Contains(lower, fragment) {
			return fmt.Errorf("%w: contains a blocked word", ErrInvalidName)
		}
	}
	return nil
}

package game

import (
	"math"
	"time"

	"shopsim/internal/catalog"
)

type LoyaltyTier struct {
	Tier        int     `json:"tier"`
	Name        string  `json:"name"`
	MinScore    float64 `json:"min_score"`
	MarginBonus float64 `json:"margin_bonus"`
}

var loyaltyLadder = []LoyaltyTier{
	{Tier: 0, Name: "newcomer", MinScore: 0, MarginBonus: 0},
	{Tier: 1, Name: "returning", MinScore: 25, MarginBonus: 0.05},
	{Tier: 2, Name: "loyal", MinScore: 50, MarginBonus: 0.10},
	{Tier: 3, Name: "devoted", MinScore: 75, MarginBonus: 0.15},
	{Tier: 4, Name: "champion", MinScore: 100, MarginBonus: 0.20},
}

const loyaltyGraceDays = 7

func LoyaltyTiers() []LoyaltyTier {
	return append([]LoyaltyTier(nil), loyaltyLadder...)
}

func CalculateLoyaltyChange(qualityScore float64, onTime bool, previousScore float64) float64 {
	var delta float64
	switch {
	case qualityScore >= 90:
		delta = 15
	case qualityScore >= 75:
		delta = 10
	case qualityScore >= 60:
		delta = 5
	case qualityScore >= 40:
		delta = -10
	default:
		delta = -20
	}
	if !onTime {
		delta -= 10
	}
	if previousScore > 80 {
		delta *= 0.7
	}
	return clamp(delta, -30, 20)
}

// GetLoyaltyTier returns the highest tier whose minimum the score meets.
// Scores outside [0,100] are clamped first, so every input lands on a tier.
func GetLoyaltyTier(score float64) LoyaltyTier {
	score = clampScore(score)
	out := loyaltyLadder[0]
	for _, t := range loyaltyLadder {
		if score >= t.MinScore {
			out = t
		}
	}
	return out
}

// ApplyLoyaltyDecay removes one point per full week of inactivity after the
// grace period. Weeks already charged are remembered so repeated calls do not
// double count.
func ApplyLoyaltyDecay(p CustomerProfile, now time.Time) CustomerProfile {
	if p.LastOrderAt.IsZero() {
		return p
	}
	idle := now.Sub(p.LastOrderAt)
	if idle < loyaltyGraceDays*24*time.Hour {
		return p
	}
	weeks := int(math.Floor(idle.Hours() / (24 * 7)))
	owed := weeks - p.DecayedWeeks
	if owed <= 0 {
		return p
	}
	p.LoyaltyScore = math.Max(0, p.LoyaltyScore-float64(owed))
	p.DecayedWeeks = weeks
	p.Tier = GetLoyaltyTier(p.LoyaltyScore).Tier
	return p
}

func NewCustomerProfile(id string, ct catalog.CustomerType) CustomerProfile {
	return CustomerProfile{ID: id, Type: ct}
}

// RecordOrder folds a finished order into the customer's profile.
func RecordOrder(p CustomerProfile, o Order, qualityScore float64, onTime bool, now time.Time) CustomerProfile {
	p.LoyaltyScore = clampScore(p.LoyaltyScore + CalculateLoyaltyChange(qualityScore, onTime, p.LoyaltyScore))
	p.Tier = GetLoyaltyTier(p.LoyaltyScore).Tier
	p.OrderHistory = appendCapped(append([]string(nil), p.OrderHistory...), []string{o.ID}, MaxProfileHistory)
	p.LifetimeValue = roundCents(p.LifetimeValue + o.PaidAmount + o.TipAmount)
	p.LastOrderAt = now
	p.DecayedWeeks = 0
	return p
}

// UpsertCustomer replaces or inserts a profile, evicting the least recently
// active one when the cache is full.
func UpsertCustomer(cache []CustomerProfile, p CustomerProfile) []CustomerProfile {
	out := append([]CustomerProfile(nil), cache...)
	for i := range out {
		if out[i].ID == p.ID {
			out[i] = p
			return out
		}
	}
	if len(out) >= MaxCustomerCache {
		oldest := 0
		for i := range out {
			if out[i].LastOrderAt.Before(out[oldest].LastOrderAt) {
				oldest = i
			}
		}
		out = append(out[:oldest], out[oldest+1:]...)
	}
	return append(out, p)
}

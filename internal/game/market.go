package game

import (
	"fmt"
	"math"
	"strings"
	"sync"
)

const (
	minStockPrice  = 0.01
	maxStockPrice  = 1_000_000.0
	maxStockSeries = 120
)

type marketDynamics struct {
	NoiseScale        float64
	ShockProb         float64
	ShockScale        float64
	ExtremeShockProb  float64
	ExtremeShockScale float64
	MeanReversion     float64
	AnchorNoiseScale  float64
	RegimeSwitchProb  float64
	MaxDropPerTick    float64
}

func volatilityParams(mode string) marketDynamics {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "calm":
		return marketDynamics{
			NoiseScale:        0.010,
			ShockProb:         0.04,
			ShockScale:        0.05,
			ExtremeShockProb:  0.005,
			ExtremeShockScale: 0.15,
			MeanReversion:     0.04,
			AnchorNoiseScale:  0.006,
			RegimeSwitchProb:  0.03,
			MaxDropPerTick:    0.25,
		}
	case "wild":
		return marketDynamics{
			NoiseScale:        0.045,
			ShockProb:         0.15,
			ShockScale:        0.16,
			ExtremeShockProb:  0.040,
			ExtremeShockScale: 0.45,
			MeanReversion:     0.012,
			AnchorNoiseScale:  0.028,
			RegimeSwitchProb:  0.10,
			MaxDropPerTick:    0.60,
		}
	default:
		return marketDynamics{
			NoiseScale:        0.025,
			ShockProb:         0.09,
			ShockScale:        0.10,
			ExtremeShockProb:  0.015,
			ExtremeShockScale: 0.28,
			MeanReversion:     0.022,
			AnchorNoiseScale:  0.015,
			RegimeSwitchProb:  0.06,
			MaxDropPerTick:    0.40,
		}
	}
}

func randomRegime(seed float64) string {
	switch {
	case seed < 0.33:
		return "bear"
	case seed < 0.66:
		return "neutral"
	default:
		return "bull"
	}
}

func regimeDrift(regime string) float64 {
	switch regime {
	case "bull":
		return 0.004
	case "bear":
		return -0.004
	default:
		return 0
	}
}

func meanReversion(price, anchor, strength float64) float64 {
	if anchor <= 0 {
		return 0
	}
	return strength * ((anchor - price) / anchor)
}

func normalish(seed float64) float64 {
	return seed + seed - 1
}

func signedShock(magSeed, signSeed, base float64) float64 {
	mag := base * (0.35 + 2.8*magSeed*magSeed)
	if signSeed < 0.5 {
		return -mag
	}
	return mag
}

func evolvePrice(price, ret, maxDropPerTick float64) float64 {
	if price <= 0 {
		return minStockPrice
	}
	// Bound only the downside; upside can run.
	if ret < -maxDropPerTick {
		ret = -maxDropPerTick
	}
	return clamp(roundCents(price*math.Exp(ret)), minStockPrice, maxStockPrice)
}

type Stock struct {
	Symbol string    `json:"symbol"`
	Name   string    `json:"name"`
	Price  float64   `json:"price"`
	Anchor float64   `json:"anchor"`
	Series []float64 `json:"series,omitempty"`
}

type stockSeed struct {
	symbol, name string
	price        float64
}

var defaultListings = []stockSeed{
	{"GROCER", "Grocer Holdings", 42},
	{"BREWCO", "Brew Collective", 18},
	{"SHEARS", "Shears & Co", 27},
	{"GRILLS", "Grill Systems", 64},
	{"PIXELS", "Pixel Works", 95},
	{"FREITE", "Freight Lines", 33},
}

// StockMarket is the shared exchange businesses park spare cash in. It is safe
// for concurrent use; Tick is expected from a single goroutine.
type StockMarket struct {
	mu     sync.RWMutex
	rng    Rand
	mode   string
	regime string
	order  []string
	stocks map[string]*Stock
}

func NewStockMarket(rng Rand, mode string) *StockMarket {
	m := &StockMarket{
		rng:    rng,
		mode:   mode,
		regime: "neutral",
		stocks: make(map[string]*Stock, len(defaultListings)),
	}
	for _, s := range defaultListings {
		m.order = append(m.order, s.symbol)
		m.stocks[s.symbol] = &Stock{Symbol: s.symbol, Name: s.name, Price: s.price, Anchor: s.price, Series: []float64{s.price}}
	}
	return m
}

// Tick moves every price one step: regime drift, noise, occasional shocks,
// and a pull back toward a slowly wandering anchor.
func (m *StockMarket) Tick() {
	m.mu.Lock()
	defer m.mu.Unlock()
	params := volatilityParams(m.mode)
	if m.rng.Float64() < params.RegimeSwitchProb {
		m.regime = randomRegime(m.rng.Float64())
	}
	for _, sym := range m.order {
		st := m.stocks[sym]
		anchorRet := 0.30*regimeDrift(m.regime) + params.AnchorNoiseScale*normalish(m.rng.Float64())
		if m.rng.Float64() < params.ShockProb*0.20 {
			anchorRet += signedShock(m.rng.Float64(), m.rng.Float64(), params.ShockScale*0.40)
		}
		st.Anchor = evolvePrice(st.Anchor, anchorRet, params.MaxDropPerTick)

		ret := regimeDrift(m.regime) + params.NoiseScale*normalish(m.rng.Float64()) + meanReversion(st.Price, st.Anchor, params.MeanReversion)
		if m.rng.Float64() < params.ShockProb {
			ret += signedShock(m.rng.Float64(), m.rng.Float64(), params.ShockScale)
		}
		if m.rng.Float64() < params.ExtremeShockProb {
			ret += signedShock(m.rng.Float64(), m.rng.Float64(), params.ExtremeShockScale)
		}
		st.Price = evolvePrice(st.Price, ret, params.MaxDropPerTick)
		st.Series = appendCapped(st.Series, []float64{st.Price}, maxStockSeries)
	}
}

func (m *StockMarket) Regime() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.regime
}

func (m *StockMarket) Quote(symbol string) (float64, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if err := ValidateSymbol(symbol); err != nil {
		return 0, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	st, ok := m.stocks[symbol]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrStockNotFound, symbol)
	}
	return st.Price, nil
}

func (m *StockMarket) Quotes() map[string]float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]float64, len(m.stocks))
	for sym, st := range m.stocks {
		out[sym] = st.Price
	}
	return out
}

func (m *StockMarket) Stocks() []Stock {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Stock, 0, len(m.order))
	for _, sym := range m.order {
		st := *m.stocks[sym]
		st.Series = append([]float64(nil), st.Series...)
		out = append(out, st)
	}
	return out
}

type TradeSide string

const (
	SideBuy  TradeSide = "buy"
	SideSell TradeSide = "sell"
)

type Trade struct {
	Symbol    string    `json:"symbol"`
	Side      TradeSide `json:"side"`
	Shares    int64     `json:"shares"`
	Price     float64   `json:"price"`
	CashDelta float64   `json:"cash_delta"`
	Holdings  []Holding `json:"holdings"`
}

// TradeStock prices a whole-share trade and returns the resulting holdings.
// It validates everything before touching anything, so a rejected trade
// leaves the inputs as they were.
func TradeStock(holdings []Holding, cash float64, symbol string, side TradeSide, shares int64, price float64) (Trade, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if err := ValidateSymbol(symbol); err != nil {
		return Trade{}, err
	}
	if shares <= 0 {
		return Trade{}, fmt.Errorf("%w: shares=%d", ErrInvalidQuantity, shares)
	}
	if side != SideBuy && side != SideSell {
		return Trade{}, ErrInvalidSide
	}
	notional := roundCents(price * float64(shares))
	out := append([]Holding(nil), holdings...)
	idx := -1
	for i := range out {
		if out[i].Symbol == symbol {
			idx = i
			break
		}
	}

	t := Trade{Symbol: symbol, Side: side, Shares: shares, Price: price}
	switch side {
	case SideBuy:
		if notional > cash {
			return Trade{}, fmt.Errorf("%w: need %.2f, have %.2f", ErrInsufficientFunds, notional, cash)
		}
		if idx < 0 {
			out = append(out, Holding{Symbol: symbol, Shares: shares, AvgPrice: price})
		} else {
			h := out[idx]
			total := h.AvgPrice*float64(h.Shares) + notional
			h.Shares += shares
			h.AvgPrice = roundCents(total / float64(h.Shares))
			out[idx] = h
		}
		t.CashDelta = -notional
	case SideSell:
		if idx < 0 || out[idx].Shares < shares {
			return Trade{}, fmt.Errorf("%w: %s", ErrInsufficientShares, symbol)
		}
		out[idx].Shares -= shares
		if out[idx].Shares == 0 {
			out = append(out[:idx], out[idx+1:]...)
		}
		t.CashDelta = notional
	}
	t.Holdings = out
	return t, nil
}

package sim

import "time"

// Config holds every cadence the driver runs on. Sub-tick cadences are
// checked on each BaseTick, so none of them can fire more often than that.
type Config struct {
	BaseTick     time.Duration
	Restock      time.Duration
	Recruitment  time.Duration
	AutoWork     time.Duration
	Wages        time.Duration
	Economy      time.Duration
	DailyClose   time.Duration
	Flush        time.Duration
	FlushTimeout time.Duration
	MarketTick   time.Duration
	AutoRestock  bool
}

func DefaultConfig() Config {
	return Config{
		BaseTick:     time.Second,
		Restock:      30 * time.Second,
		Recruitment:  120 * time.Second,
		AutoWork:     2 * time.Second,
		// AccrueWages adds SalaryPerDay/8 per run, so 3h pays one salary a day.
		// Running it every 30s would pay 360 salaries a day.
		Wages:        3 * time.Hour,
		Economy:      60 * time.Second,
		DailyClose:   24 * time.Hour,
		Flush:        15 * time.Second,
		FlushTimeout: 5 * time.Second,
		MarketTick:   5 * time.Minute,
	}
}

// withDefaults fills zero or negative cadences from DefaultConfig.
func (c Config) withDefaults() Config {
	def := DefaultConfig()
	fill := func(v *time.Duration, fallback time.Duration) {
		if *v <= 0 {
			*v = fallback
		}
	}
	fill(&c.BaseTick, def.BaseTick)
	fill(&c.Restock, def.Restock)
	fill(&c.Recruitment, def.Recruitment)
	fill(&c.AutoWork, def.AutoWork)
	fill(&c.Wages, def.Wages)
	fill(&c.Economy, def.Economy)
	fill(&c.DailyClose, def.DailyClose)
	fill(&c.Flush, def.Flush)
	fill(&c.FlushTimeout, def.FlushTimeout)
	fill(&c.MarketTick, def.MarketTick)
	return c
}

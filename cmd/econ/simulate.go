package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"shopsim/internal/catalog"
	"shopsim/internal/game"
	"shopsim/internal/sim"
	"shopsim/internal/store/memstore"

	"github.com/spf13/cobra"
)

type offlineOptions struct {
	TypeID  string
	Name    string
	Capital float64
	Days    int
	Seed    int64
	Step    time.Duration
	Start   time.Time
	Market  string
}

type dayResult struct {
	Day        int
	Cash       float64
	Revenue    float64
	Expenses   float64
	Reputation float64
	Completed  int
	Failed     int
	Staff      int
}

type offlineReport struct {
	Type     catalog.BusinessType
	Days     []dayResult
	Final    *sim.Snapshot
	ByStatus map[game.OrderStatus]int
}

// runOffline simulates one business against an in-memory store on a manual
// clock, flushing once per simulated day.
func runOffline(ctx context.Context, opts offlineOptions, logger *slog.Logger) (offlineReport, error) {
	reg := catalog.Default()
	bt, ok := reg.BusinessType(opts.TypeID)
	if !ok {
		return offlineReport{}, fmt.Errorf("%w: %s", game.ErrUnknownBusinessType, opts.TypeID)
	}
	if opts.Days <= 0 {
		return offlineReport{}, fmt.Errorf("days must be positive")
	}
	if opts.Step <= 0 {
		opts.Step = 2 * time.Second
	}
	if opts.Start.IsZero() {
		opts.Start = time.Date(2026, 1, 5, 6, 0, 0, 0, time.UTC)
	}
	if opts.Name == "" {
		opts.Name = bt.Name
	}

	rng := game.NewRand(opts.Seed)
	clock := sim.NewManualClock(opts.Start)
	store := memstore.New()
	b := game.NewBusinessState(rng, bt, game.CreateBusinessInput{
		OwnerID:         "offline",
		Name:            opts.Name,
		TypeID:          bt.ID,
		StartingCapital: opts.Capital,
	}, opts.Start)
	id, err := store.CreateBusiness(ctx, b)
	if err != nil {
		return offlineReport{}, err
	}

	deps := sim.Deps{
		Store:    store,
		Registry: reg,
		Market:   game.NewStockMarket(game.NewRand(opts.Seed+1), opts.Market),
		Clock:    clock,
		Logger:   logger,
	}
	d, err := sim.NewDriver(ctx, id, deps, sim.DefaultConfig(), opts.Seed)
	if err != nil {
		return offlineReport{}, err
	}

	rep := offlineReport{Type: bt, ByStatus: map[game.OrderStatus]int{}}
	marketEvery := sim.DefaultConfig().MarketTick
	nextMarket := opts.Start.Add(marketEvery)
	for day := 1; day <= opts.Days; day++ {
		end := opts.Start.Add(time.Duration(day) * 24 * time.Hour)
		for clock.Now().Before(end) {
			if err := ctx.Err(); err != nil {
				return rep, err
			}
			now := clock.Advance(opts.Step)
			if !now.Before(nextMarket) {
				deps.Market.Tick()
				nextMarket = nextMarket.Add(marketEvery)
			}
			d.Step(ctx, now)
		}
		if err := d.Flush(ctx); err != nil {
			return rep, fmt.Errorf("flush day %d: %w", day, err)
		}
		s := d.Snapshot().Business
		rep.Days = append(rep.Days, dayResult{
			Day:        day,
			Cash:       s.CashBalance,
			Revenue:    s.TotalRevenue,
			Expenses:   s.TotalExpenses,
			Reputation: s.Reputation,
			Completed:  s.OrdersCompleted,
			Failed:     s.OrdersFailed,
			Staff:      len(s.Employees),
		})
	}
	rep.Final = d.Snapshot()
	for _, o := range store.Orders(id) {
		rep.ByStatus[o.Status]++
	}
	return rep, nil
}

func newSimulateCmd() *cobra.Command {
	var (
		opts    offlineOptions
		verbose bool
	)
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run a business offline on a virtual clock and print a report",
		RunE: func(cmd *cobra.Command, args []string) error {
			level := slog.LevelWarn
			if verbose {
				level = slog.LevelDebug
			}
			logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

			opts.TypeID = strings.ToLower(strings.TrimSpace(opts.TypeID))
			rep, err := runOffline(cmd.Context(), opts, logger)
			if err != nil {
				return err
			}
			renderOfflineReport(rep)
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.TypeID, "type", "food_truck", "business type id (see `econ catalog`)")
	cmd.Flags().StringVar(&opts.Name, "name", "", "business name (defaults to the type name)")
	cmd.Flags().Float64Var(&opts.Capital, "capital", 0, "starting capital (0 uses the type default)")
	cmd.Flags().IntVar(&opts.Days, "days", 7, "simulated days")
	cmd.Flags().Int64Var(&opts.Seed, "seed", 1, "random seed, same seed same run")
	cmd.Flags().DurationVar(&opts.Step, "step", 2*time.Second, "virtual time per step")
	cmd.Flags().StringVar(&opts.Market, "market", "calm", "stock market volatility: calm, mor or wild")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "log every sub-tick")
	return cmd
}

func renderOfflineReport(rep offlineReport) {
	accent.Printf("\n== %s: %d DAYS ==\n", strings.ToUpper(rep.Type.Name), len(rep.Days))
	fmt.Printf("%-5s %12s %12s %12s %12s %6s %6s %6s\n", "DAY", "CASH", "REVENUE", "EXPENSES", "NET", "REP", "DONE", "STAFF")
	prevNet := 0.0
	for _, d := range rep.Days {
		net := d.Revenue - d.Expenses
		fmt.Printf("%-5d %12s %12s %12s %12s %6.1f %6d %6d\n",
			d.Day,
			formatMoney(d.Cash),
			formatMoney(d.Revenue),
			formatMoney(d.Expenses),
			colorizeMoney(net-prevNet),
			d.Reputation,
			d.Completed,
			d.Staff,
		)
		prevNet = net
	}
	if rep.Final == nil {
		return
	}
	fmt.Println()
	b := rep.Final.Business
	lines := []string{
		titleStyle.Render(b.Name),
		row("Cash", formatMoney(b.CashBalance)),
		row("Profit", colorizeMoney(b.TotalRevenue-b.TotalExpenses)),
		row("Completed", fmt.Sprintf("%d", rep.ByStatus[game.StatusCompleted])),
		row("Failed", fmt.Sprintf("%d", rep.ByStatus[game.StatusFailed])),
		row("Expired", fmt.Sprintf("%d", rep.ByStatus[game.StatusExpired])),
		row("Open", fmt.Sprintf("%d", len(rep.Final.Orders))),
		row("Reviews", fmt.Sprintf("%d", b.ReviewCount)),
		row("Health", healthText(rep.Final.Health)),
		row("Net worth", formatMoney(rep.Final.Valuation.NetWorth)),
		row("Valuation", formatMoney(rep.Final.Valuation.Valuation)),
	}
	fmt.Println(panelStyle.Render(strings.Join(lines, "\n")))
	fmt.Println()
}

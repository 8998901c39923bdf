package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"shopsim/internal/catalog"
	"shopsim/internal/game"

	"github.com/charmbracelet/lipgloss"
	"github.com/fatih/color"
)

var (
	stdinReader = bufio.NewReader(os.Stdin)
	accent      = color.New(color.FgCyan, color.Bold)
	success     = color.New(color.FgGreen, color.Bold)
	warn        = color.New(color.FgYellow, color.Bold)
	danger      = color.New(color.FgRed, color.Bold)
	neutral     = color.New(color.FgHiWhite)

	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(0, 1)
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(16)
)

type businessPayload struct {
	Business  game.BusinessState `json:"business"`
	Orders    []game.Order       `json:"orders"`
	Health    game.Health        `json:"health"`
	Valuation game.Valuation     `json:"valuation"`
	Running   bool               `json:"running"`
}

type ordersPayload struct {
	Orders []game.Order `json:"orders"`
}

type candidatesPayload struct {
	Candidates []game.Candidate `json:"candidates"`
}

type stocksPayload struct {
	Regime string       `json:"regime"`
	Stocks []game.Stock `json:"stocks"`
}

func printSuccess(msg string) {
	success.Println(msg)
}

func printWarn(msg string) {
	warn.Println(msg)
}

func printInfo(msg string) {
	neutral.Println(msg)
}

func promptRequired(label string) (string, error) {
	for {
		fmt.Printf("%s: ", label)
		text, err := stdinReader.ReadString('\n')
		if err != nil {
			return "", err
		}
		text = strings.TrimSpace(text)
		if text != "" {
			return text, nil
		}
		printWarn(label + " is required.")
	}
}

func renderCatalog(reg *catalog.Registry) {
	accent.Println("\n== BUSINESS TYPES ==")
	fmt.Printf("%-18s %-20s %-9s %12s %6s %10s\n", "ID", "NAME", "CATEGORY", "CAPITAL", "HOURS", "PRODUCTS")
	for _, bt := range reg.BusinessTypes() {
		fmt.Printf("%-18s %-20s %-9s %12s %6d %10d\n",
			bt.ID,
			truncate(bt.Name, 20),
			bt.Category,
			formatMoney(bt.StartingCapital),
			bt.OperatingHours,
			len(bt.Products),
		)
	}
	fmt.Println()
	accent.Println("== TOOLS ==")
	fmt.Printf("%-18s %-24s %10s %8s %8s %8s\n", "ID", "NAME", "PRICE", "QUALITY", "DEMAND", "SPEED")
	for _, t := range reg.Tools() {
		fmt.Printf("%-18s %-24s %10s %8s %8s %8s\n",
			t.ID,
			truncate(t.Name, 24),
			formatMoney(t.Price),
			bonus(t.QualityBonus),
			bonus(t.DemandBonus),
			bonus(t.SpeedBonus),
		)
	}
	fmt.Println()
}

func renderBusiness(raw map[string]any) error {
	p, err := decodeInto[businessPayload](raw)
	if err != nil {
		return err
	}
	b := p.Business
	state := warn.Sprint("stopped")
	if p.Running {
		state = success.Sprint("running")
	}
	lines := []string{
		titleStyle.Render(fmt.Sprintf("%s (%s)", b.Name, b.TypeID)),
		row("ID", b.ID),
		row("Simulation", state),
		row("Cash", formatMoney(b.CashBalance)),
		row("Revenue", formatMoney(b.TotalRevenue)),
		row("Expenses", formatMoney(b.TotalExpenses)),
		row("Reputation", fmt.Sprintf("%.1f", b.Reputation)),
		row("Satisfaction", fmt.Sprintf("%.1f", b.CustomerSatisfaction)),
		row("Orders", fmt.Sprintf("%d done, %d failed, %d open", b.OrdersCompleted, b.OrdersFailed, len(b.ActiveOrderIDs))),
		row("Staff", strconv.Itoa(len(b.Employees))),
		row("Health", healthText(p.Health)),
		row("Valuation", formatMoney(p.Valuation.Valuation)),
	}
	fmt.Println(panelStyle.Render(strings.Join(lines, "\n")))

	if len(b.Inventory) > 0 {
		accent.Println("Inventory")
		keys := make([]string, 0, len(b.Inventory))
		for k := range b.Inventory {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Printf("  %-20s %6d\n", k, b.Inventory[k])
		}
	}
	if len(b.Employees) > 0 {
		accent.Println("Employees")
		fmt.Printf("  %-10s %-20s %-11s %6s %6s %6s %9s\n", "ID", "NAME", "ROLE", "SPEED", "QUAL", "MORALE", "SALARY")
		for _, e := range b.Employees {
			fmt.Printf("  %-10s %-20s %-11s %6.0f %6.0f %6.0f %9s\n",
				truncate(e.ID, 10),
				truncate(e.Name, 20),
				e.Role,
				e.Stats.Speed,
				e.Stats.Quality,
				e.Stats.Morale,
				formatMoney(e.SalaryPerDay),
			)
		}
	}
	if len(p.Orders) > 0 {
		fmt.Println()
		renderOrderTable(p.Orders)
	}
	fmt.Println()
	return nil
}

func renderOrders(raw map[string]any) error {
	p, err := decodeInto[ordersPayload](raw)
	if err != nil {
		return err
	}
	if len(p.Orders) == 0 {
		printInfo("No active orders.")
		return nil
	}
	renderOrderTable(p.Orders)
	return nil
}

func renderOrderTable(orders []game.Order) {
	accent.Println("Orders")
	fmt.Printf("  %-10s %-12s %-12s %-10s %10s %-14s %s\n", "ID", "STATUS", "CUSTOMER", "QUALITY", "TOTAL", "TERMS", "DEADLINE")
	for _, o := range orders {
		fmt.Printf("  %-10s %-12s %-12s %-10s %10s %-14s %s\n",
			truncate(o.ID, 10),
			statusText(o.Status),
			o.CustomerType,
			o.RequiredQuality,
			formatMoney(o.TotalAmount),
			o.Terms.Kind,
			o.Deadline.Local().Format(time.DateTime),
		)
	}
}

func renderCandidates(raw map[string]any) error {
	p, err := decodeInto[candidatesPayload](raw)
	if err != nil {
		return err
	}
	if len(p.Candidates) == 0 {
		printInfo("Nobody is looking for work right now.")
		return nil
	}
	accent.Println("\n== CANDIDATES ==")
	fmt.Printf("%-10s %-20s %-11s %-12s %6s %6s %9s\n", "ID", "NAME", "ROLE", "TRAIT", "SPEED", "QUAL", "SALARY")
	for _, c := range p.Candidates {
		fmt.Printf("%-10s %-20s %-11s %-12s %6.0f %6.0f %9s\n",
			truncate(c.ID, 10),
			truncate(c.Name, 20),
			c.Role,
			truncate(c.Trait, 12),
			c.Stats.Speed,
			c.Stats.Quality,
			formatMoney(c.SalaryPerDay),
		)
	}
	fmt.Println()
	return nil
}

func renderStocks(raw map[string]any) error {
	p, err := decodeInto[stocksPayload](raw)
	if err != nil {
		return err
	}
	accent.Printf("\n== STOCKS (%s market) ==\n", p.Regime)
	fmt.Printf("%-8s %-24s %12s\n", "SYMBOL", "NAME", "PRICE")
	for _, s := range p.Stocks {
		fmt.Printf("%-8s %-24s %12s\n", s.Symbol, truncate(s.Name, 24), formatMoney(s.Price))
	}
	fmt.Println()
	return nil
}

func renderSimpleOK(raw map[string]any, successMessage string) error {
	if v, ok := raw["ok"].(bool); ok && !v {
		return fmt.Errorf("request failed")
	}
	printSuccess(successMessage)
	return nil
}

func row(label, value string) string {
	return labelStyle.Render(label) + value
}

func healthText(h game.Health) string {
	text := fmt.Sprintf("%s (%.0f, %.0f days runway)", h.Status, h.Score, h.RunwayDays)
	switch h.Status {
	case game.HealthThriving, game.HealthStable:
		return success.Sprint(text)
	case game.HealthStruggling:
		return warn.Sprint(text)
	default:
		return danger.Sprint(text)
	}
}

func statusText(s game.OrderStatus) string {
	switch s {
	case game.StatusCompleted:
		return success.Sprint(s)
	case game.StatusFailed, game.StatusExpired, game.StatusCancelled:
		return danger.Sprint(s)
	case game.StatusPending:
		return warn.Sprint(s)
	default:
		return neutral.Sprint(s)
	}
}

func decodeInto[T any](in any) (T, error) {
	var out T
	raw, err := json.Marshal(in)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, err
	}
	return out, nil
}

func colorizeMoney(v float64) string {
	text := formatMoney(v)
	if v > 0 {
		text = "+" + text
	}
	switch {
	case v > 0:
		return success.Sprint(text)
	case v < 0:
		return danger.Sprint(text)
	default:
		return neutral.Sprint(text)
	}
}

func bonus(v float64) string {
	if v == 0 {
		return "-"
	}
	return fmt.Sprintf("+%.0f%%", v*100)
}

func formatMoney(v float64) string {
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	cents := int64(v*100 + 0.5)
	return fmt.Sprintf("%s$%s.%02d", sign, comma(cents/100), cents%100)
}

func comma(v int64) string {
	s := strconv.FormatInt(v, 10)
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	pre := len(s) % 3
	if pre > 0 {
		b.WriteString(s[:pre])
		if len(s) > pre {
			b.WriteByte(',')
		}
	}
	for i := pre; i < len(s); i += 3 {
		b.WriteString(s[i : i+3])
		if i+3 < len(s) {
			b.WriteByte(',')
		}
	}
	return b.String()
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if n <= 0 || len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}

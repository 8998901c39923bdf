package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"shopsim/internal/catalog"
	cl "shopsim/internal/cli"
	"shopsim/internal/config"

	"github.com/spf13/cobra"
)

func main() {
	cfg := config.LoadCLIFromEnv()
	apiBase := cfg.APIBaseURL

	root := &cobra.Command{
		Use:          "econ",
		Short:        "Business economy simulator client",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&apiBase, "api", apiBase, "API base URL")

	root.AddCommand(
		newSignupCmd(&apiBase),
		newLoginCmd(&apiBase),
		newLogoutCmd(),
		newCatalogCmd(),
		newStocksCmd(&apiBase),
		newBusinessCmd(&apiBase),
		newStatusCmd(&apiBase),
		newOrdersCmd(&apiBase),
		newAcceptCmd(&apiBase),
		newRejectCmd(&apiBase),
		newStaffCmd(&apiBase),
		newBuyCmd(&apiBase),
		newTradeCmd(&apiBase),
		newSimulateCmd(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := root.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newClient(apiBase *string) *cl.Client {
	return cl.NewClient(strings.TrimRight(strings.TrimSpace(*apiBase), "/"))
}

func requestContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), 30*time.Second)
}

func saveAuth(token, refresh, email, userID string) error {
	return cl.SaveSession(cl.Session{
		AccessToken:  token,
		RefreshToken: refresh,
		Email:        email,
		UserID:       userID,
	})
}

func newSignupCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "signup",
		Short: "Create an account",
		RunE: func(cmd *cobra.Command, args []string) error {
			email, err := promptRequired("Email")
			if err != nil {
				return err
			}
			password, err := promptRequired("Password")
			if err != nil {
				return err
			}
			ctx, cancel := requestContext(cmd)
			defer cancel()
			session, err := newClient(apiBase).Signup(ctx, email, password)
			if err != nil {
				return err
			}
			if strings.TrimSpace(session.AccessToken) == "" {
				printWarn("Signup created. Verify email, then run `econ login`.")
				return nil
			}
			if err := saveAuth(session.AccessToken, session.RefreshToken, session.User.Email, session.User.ID); err != nil {
				return err
			}
			printSuccess("Signup complete. Session saved.")
			return nil
		},
	}
}

func newLoginCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Log in and save the session",
		RunE: func(cmd *cobra.Command, args []string) error {
			email, err := promptRequired("Email")
			if err != nil {
				return err
			}
			password, err := promptRequired("Password")
			if err != nil {
				return err
			}
			ctx, cancel := requestContext(cmd)
			defer cancel()
			session, err := newClient(apiBase).Login(ctx, email, password)
			if err != nil {
				return err
			}
			if err := saveAuth(session.AccessToken, session.RefreshToken, session.User.Email, session.User.ID); err != nil {
				return err
			}
			printSuccess("Logged in as " + session.User.Email)
			return nil
		},
	}
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the saved session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cl.ClearSession(); err != nil {
				return err
			}
			printSuccess("Logged out.")
			return nil
		},
	}
}

func newCatalogCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "catalog",
		Short: "List business types and tools",
		RunE: func(cmd *cobra.Command, args []string) error {
			renderCatalog(catalog.Default())
			return nil
		},
	}
}

func newStocksCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "stocks",
		Short: "Show the stock market",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := requestContext(cmd)
			defer cancel()
			raw, err := newClient(apiBase).Stocks(ctx)
			if err != nil {
				return err
			}
			return renderStocks(raw)
		},
	}
}

// currentBusiness returns the session and the caller's business id, looking
// it up once and caching it in the session.
func currentBusiness(ctx context.Context, client *cl.Client) (cl.Session, string, error) {
	s, err := cl.LoadSession()
	if err != nil {
		return s, "", err
	}
	if s.BusinessID != "" {
		return s, s.BusinessID, nil
	}
	raw, err := client.MyBusiness(ctx, s.AccessToken)
	if err != nil {
		return s, "", err
	}
	p, err := decodeInto[businessPayload](raw)
	if err != nil {
		return s, "", err
	}
	if p.Business.ID == "" {
		return s, "", fmt.Errorf("no business yet, run `econ business create`")
	}
	s, err = cl.UpdateSession(func(s *cl.Session) { s.BusinessID = p.Business.ID })
	if err != nil {
		return s, "", err
	}
	return s, s.BusinessID, nil
}

// withBusiness runs fn against the caller's business with a bounded context.
// An expired access token is refreshed once and fn retried.
func withBusiness(cmd *cobra.Command, apiBase *string, fn func(ctx context.Context, client *cl.Client, token, businessID string) error) error {
	ctx, cancel := requestContext(cmd)
	defer cancel()
	client := newClient(apiBase)
	s, id, err := currentBusiness(ctx, client)
	if err != nil {
		return err
	}
	err = fn(ctx, client, s.AccessToken, id)
	var apiErr *cl.APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusUnauthorized || s.RefreshToken == "" {
		return err
	}
	fresh, rerr := client.Refresh(ctx, s.RefreshToken)
	if rerr != nil {
		return fmt.Errorf("%w (refresh failed: %v)", err, rerr)
	}
	if _, err := cl.UpdateSession(func(s *cl.Session) {
		s.AccessToken = fresh.AccessToken
		if fresh.RefreshToken != "" {
			s.RefreshToken = fresh.RefreshToken
		}
	}); err != nil {
		return err
	}
	return fn(ctx, client, fresh.AccessToken, id)
}

func newBusinessCmd(apiBase *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "business",
		Short: "Found, inspect and run your business",
	}

	var (
		name    string
		typeID  string
		capital float64
	)
	create := &cobra.Command{
		Use:   "create",
		Short: "Found a business",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := cl.LoadSession()
			if err != nil {
				return err
			}
			if strings.TrimSpace(name) == "" {
				if name, err = promptRequired("Business name"); err != nil {
					return err
				}
			}
			ctx, cancel := requestContext(cmd)
			defer cancel()
			raw, err := newClient(apiBase).CreateBusiness(ctx, s.AccessToken, name, typeID, capital)
			if err != nil {
				return err
			}
			id, _ := raw["id"].(string)
			s.BusinessID = id
			if err := cl.SaveSession(s); err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("Founded %s (%s).", name, id))
			if running, _ := raw["running"].(bool); !running {
				printWarn("Simulation is not running yet. Start it with `econ business start`.")
			}
			return nil
		},
	}
	create.Flags().StringVar(&name, "name", "", "business name")
	create.Flags().StringVar(&typeID, "type", "food_truck", "business type id")
	create.Flags().Float64Var(&capital, "capital", 0, "starting capital (0 uses the type default)")

	closeCmd := &cobra.Command{
		Use:   "close",
		Short: "Close your business for good",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBusiness(cmd, apiBase, func(ctx context.Context, c *cl.Client, token, id string) error {
				raw, err := c.CloseBusiness(ctx, token, id)
				if err != nil {
					return err
				}
				_, _ = cl.UpdateSession(func(s *cl.Session) { s.BusinessID = "" })
				return renderSimpleOK(raw, "Business closed.")
			})
		},
	}

	start := &cobra.Command{
		Use:   "start",
		Short: "Start the simulation",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBusiness(cmd, apiBase, func(ctx context.Context, c *cl.Client, token, id string) error {
				raw, err := c.StartSim(ctx, token, id)
				if err != nil {
					return err
				}
				return renderBusiness(raw)
			})
		},
	}

	stop := &cobra.Command{
		Use:   "stop",
		Short: "Stop the simulation and flush its state",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBusiness(cmd, apiBase, func(ctx context.Context, c *cl.Client, token, id string) error {
				raw, err := c.StopSim(ctx, token, id)
				if err != nil {
					return err
				}
				return renderSimpleOK(raw, "Simulation stopped.")
			})
		},
	}

	show := newStatusCmd(apiBase)
	show.Use = "show"
	cmd.AddCommand(create, show, closeCmd, start, stop)
	return cmd
}

func newOrdersCmd(apiBase *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "orders",
		Short: "List and act on open orders",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBusiness(cmd, apiBase, func(ctx context.Context, c *cl.Client, token, id string) error {
				raw, err := c.ActiveOrders(ctx, token, id)
				if err != nil {
					return err
				}
				return renderOrders(raw)
			})
		},
	}

	cancelCmd := &cobra.Command{
		Use:   "cancel <order-id>",
		Short: "Cancel an order and refund what was paid",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBusiness(cmd, apiBase, func(ctx context.Context, c *cl.Client, token, id string) error {
				raw, err := c.CancelOrder(ctx, token, id, args[0])
				if err != nil {
					return err
				}
				return renderSimpleOK(raw, "Order "+args[0]+" cancelled.")
			})
		},
	}

	cmd.AddCommand(newAcceptCmd(apiBase), newRejectCmd(apiBase), cancelCmd)
	return cmd
}

func newStaffCmd(apiBase *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "staff",
		Short: "Recruit and develop employees",
	}

	candidates := &cobra.Command{
		Use:   "candidates",
		Short: "List the recruitment pool",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBusiness(cmd, apiBase, func(ctx context.Context, c *cl.Client, token, id string) error {
				raw, err := c.Candidates(ctx, token, id)
				if err != nil {
					return err
				}
				return renderCandidates(raw)
			})
		},
	}

	hire := &cobra.Command{
		Use:   "hire <candidate-id>",
		Short: "Hire a candidate",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBusiness(cmd, apiBase, func(ctx context.Context, c *cl.Client, token, id string) error {
				raw, err := c.Hire(ctx, token, id, args[0])
				if err != nil {
					return err
				}
				who, _ := raw["name"].(string)
				printSuccess("Hired " + who + ".")
				return nil
			})
		},
	}

	specialize := &cobra.Command{
		Use:   "specialize <employee-id> <skill>",
		Short: "Focus an employee on one skill",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBusiness(cmd, apiBase, func(ctx context.Context, c *cl.Client, token, id string) error {
				if _, err := c.Specialize(ctx, token, id, args[0], args[1]); err != nil {
					return err
				}
				printSuccess(fmt.Sprintf("%s now specializes in %s.", args[0], args[1]))
				return nil
			})
		},
	}

	cmd.AddCommand(candidates, hire, specialize)
	return cmd
}

func newBuyCmd(apiBase *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "buy",
		Short: "Buy stock from the supplier or a tool",
	}

	inventory := &cobra.Command{
		Use:   "inventory <item-id> <quantity>",
		Short: "Buy inventory from the supplier",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			qty, err := strconv.Atoi(args[1])
			if err != nil || qty <= 0 {
				return fmt.Errorf("quantity must be a positive whole number")
			}
			return withBusiness(cmd, apiBase, func(ctx context.Context, c *cl.Client, token, id string) error {
				raw, err := c.BuyInventory(ctx, token, id, args[0], qty)
				if err != nil {
					return err
				}
				cost, _ := raw["cost"].(float64)
				printSuccess(fmt.Sprintf("Bought %d %s for %s.", qty, args[0], formatMoney(cost)))
				return nil
			})
		},
	}

	tool := &cobra.Command{
		Use:   "tool <tool-id>",
		Short: "Buy a tool",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBusiness(cmd, apiBase, func(ctx context.Context, c *cl.Client, token, id string) error {
				raw, err := c.BuyTool(ctx, token, id, args[0])
				if err != nil {
					return err
				}
				return renderSimpleOK(raw, "Bought "+args[0]+".")
			})
		},
	}

	cmd.AddCommand(inventory, tool)
	return cmd
}

func newTradeCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "trade <buy|sell> <symbol> <shares>",
		Short: "Trade shares with business cash",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			side := strings.ToLower(args[0])
			if side != "buy" && side != "sell" {
				return fmt.Errorf("side must be buy or sell")
			}
			shares, err := strconv.ParseInt(args[2], 10, 64)
			if err != nil || shares <= 0 {
				return fmt.Errorf("shares must be a positive whole number")
			}
			symbol := strings.ToUpper(args[1])
			return withBusiness(cmd, apiBase, func(ctx context.Context, c *cl.Client, token, id string) error {
				raw, err := c.Trade(ctx, token, id, symbol, side, shares)
				if err != nil {
					return err
				}
				price, _ := raw["price"].(float64)
				delta, _ := raw["cash_delta"].(float64)
				printSuccess(fmt.Sprintf("%s %d %s at %s.", strings.ToUpper(side), shares, symbol, formatMoney(price)))
				fmt.Printf("Cash change: %s\n", colorizeMoney(delta))
				return nil
			})
		},
	}
}

func newStatusCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show your business",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBusiness(cmd, apiBase, func(ctx context.Context, c *cl.Client, token, id string) error {
				raw, err := c.BusinessState(ctx, token, id)
				if err != nil {
					return err
				}
				return renderBusiness(raw)
			})
		},
	}
}

func newAcceptCmd(apiBase *string) *cobra.Command {
	var employee string
	cmd := &cobra.Command{
		Use:   "accept <order-id>",
		Short: "Accept a pending order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBusiness(cmd, apiBase, func(ctx context.Context, c *cl.Client, token, id string) error {
				raw, err := c.AcceptOrder(ctx, token, id, args[0], employee)
				if err != nil {
					return err
				}
				who, _ := raw["assigned_to"].(string)
				printSuccess(fmt.Sprintf("Order %s accepted, assigned to %s.", args[0], who))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&employee, "employee", "", "employee id (default: least loaded)")
	return cmd
}

func newRejectCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "reject <order-id>",
		Short: "Turn down a pending order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBusiness(cmd, apiBase, func(ctx context.Context, c *cl.Client, token, id string) error {
				if _, err := c.RejectOrder(ctx, token, id, args[0]); err != nil {
					return err
				}
				printWarn("Order " + args[0] + " rejected.")
				return nil
			})
		},
	}
}

package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alecthomas/kong"
	"github.com/sirupsen/logrus"

	"github.com/Dan9191/field-ledger/internal/backend"
	"github.com/Dan9191/field-ledger/internal/config"
	"github.com/Dan9191/field-ledger/internal/invoice"
	"github.com/Dan9191/field-ledger/internal/ledger"
	"github.com/Dan9191/field-ledger/internal/session"
)

type SaleFlags struct {
	Previous string `help:"Customer's previous balance." default:"0"`
	Weight   string `help:"Total weight in KG." required:""`
	Rate     string `help:"Rate per KG." required:""`
	Cash     string `help:"Cash received." default:""`
	UPI      string `name:"upi" help:"UPI received." default:""`
}

func (f SaleFlags) reconcile() ledger.Reconciliation {
	return ledger.Reconcile(
		ledger.ParseAmount(f.Previous),
		ledger.ParseAmount(f.Weight),
		ledger.ParseAmount(f.Rate),
		ledger.ParseAmount(f.Cash),
		ledger.ParseAmount(f.UPI),
	)
}

type BalanceCmd struct {
	SaleFlags `embed:""`
}

func (cmd *BalanceCmd) Run(ctx *kong.Context) error {
	r := cmd.reconcile()
	fmt.Fprintf(ctx.Stdout, "Previous Due:  %s\n", ledger.FormatAmount(r.PreviousBalance))
	fmt.Fprintf(ctx.Stdout, "Bill Total:    %s\n", ledger.FormatAmount(r.BillTotal))
	fmt.Fprintf(ctx.Stdout, "Paid:          %s\n", ledger.FormatAmount(r.Paid()))
	fmt.Fprintf(ctx.Stdout, "New Balance:   %s\n", ledger.FormatAmount(r.NewBalance))
	return nil
}

type BillCmd struct {
	SaleFlags `embed:""`

	Customer        string `help:"Customer name."`
	CustomerMobile  string `help:"Customer mobile."`
	CustomerAddress string `help:"Customer address."`
	Driver          string `help:"Driver name."`
	DriverMobile    string `help:"Driver mobile."`
	Business        string `help:"Business name." env:"BUSINESS_NAME" default:"Evergreen Foods"`
	Address         string `help:"Business address." env:"BUSINESS_ADDRESS"`
	HTML            bool   `name:"html" help:"Print XHTML instead of plain text."`
}

func (cmd *BillCmd) Run(ctx *kong.Context) error {
	inv := invoice.New(
		invoice.Business{Name: cmd.Business, Address: cmd.Address},
		invoice.Party{Name: cmd.Driver, Mobile: cmd.DriverMobile},
		invoice.Party{Name: cmd.Customer, Mobile: cmd.CustomerMobile, Address: cmd.CustomerAddress},
		cmd.reconcile(),
		time.Now(),
	)
	if !cmd.HTML {
		_, err := fmt.Fprint(ctx.Stdout, inv.Text())
		return err
	}
	html, err := inv.HTML()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(ctx.Stdout, html)
	return err
}

type StockCheckCmd struct {
	Available  float64  `arg:"" help:"Available stock in KG."`
	Increments []string `arg:"" help:"Weighed increments in KG, in order."`
}

func (cmd *StockCheckCmd) Run(ctx *kong.Context) error {
	d := ledger.NewSaleDraft(cmd.Available, 0)
	for _, inc := range cmd.Increments {
		added, err := d.AddWeightInput(inc)
		switch {
		case err != nil:
			fmt.Fprintf(ctx.Stdout, "%-10s rejected (total would exceed %s KG)\n", inc, ledger.FormatAmount(cmd.Available))
		case !added:
			fmt.Fprintf(ctx.Stdout, "%-10s ignored\n", inc)
		default:
			fmt.Fprintf(ctx.Stdout, "%-10s added, total %s KG\n", inc, ledger.FormatAmount(d.AccumulatedWeight))
		}
	}
	fmt.Fprintf(ctx.Stdout, "Total: %s KG of %s KG\n", ledger.FormatAmount(d.AccumulatedWeight), ledger.FormatAmount(cmd.Available))
	return nil
}

type FuelCmd struct {
	Quantity string `help:"Litres."`
	Rate     string `help:"Price per litre."`
	Amount   string `help:"Total price."`
	Edit     string `help:"Field that was just edited." enum:"quantity,rate,amount" default:"amount"`
}

func (cmd *FuelCmd) Run(ctx *kong.Context) error {
	f, err := ledger.ParseFuelField(cmd.Edit)
	if err != nil {
		return err
	}
	state := ledger.FuelState{Quantity: cmd.Quantity, Rate: cmd.Rate, Amount: cmd.Amount}
	value := map[ledger.FuelField]string{
		ledger.FuelQuantity: cmd.Quantity,
		ledger.FuelRate:     cmd.Rate,
		ledger.FuelAmount:   cmd.Amount,
	}[f]
	derived, ok := state.Edit(f, value)
	fmt.Fprintf(ctx.Stdout, "Quantity: %s\nRate:     %s\nAmount:   %s\n", state.Quantity, state.Rate, state.Amount)
	if ok {
		fmt.Fprintf(ctx.Stdout, "(derived %s)\n", derived)
	}
	return nil
}

// remote builds the backend client and the stored session
func remote(g *Globals) (*session.Session, *backend.Client, error) {
	cfg, err := config.NewConfig()
	if err != nil {
		return nil, nil, err
	}
	log := logrus.New()
	level, err := logrus.ParseLevel(g.LogLevel)
	if err != nil {
		level = logrus.WarnLevel
	}
	log.SetLevel(level)

	client := backend.NewClient(cfg.APIBaseURL, cfg.RequestTimeout, log)
	store, err := session.NewFileStore(cfg.TokenFile, cfg.EncryptionKey)
	if err != nil {
		return nil, nil, err
	}
	sess := session.New(store, client, log)
	client.SetTokenSource(sess)
	return sess, client, nil
}

type LoginCmd struct {
	Mobile   string `arg:"" help:"Registered mobile number."`
	Password string `help:"Password." env:"FIELD_PASSWORD" required:""`
}

func (cmd *LoginCmd) Run(ctx *kong.Context, g *Globals) error {
	sess, _, err := remote(g)
	if err != nil {
		return err
	}
	user, err := sess.Login(context.Background(), cmd.Mobile, cmd.Password)
	if err != nil {
		return err
	}
	fmt.Fprintf(ctx.Stdout, "Logged in as %s (%s)\n", user.Name, user.Role)
	return nil
}

type LogoutCmd struct{}

func (cmd *LogoutCmd) Run(ctx *kong.Context, g *Globals) error {
	sess, _, err := remote(g)
	if err != nil {
		return err
	}
	if err := sess.Logout(); err != nil {
		return err
	}
	fmt.Fprintln(ctx.Stdout, "Logged out")
	return nil
}

type WhoamiCmd struct{}

func (cmd *WhoamiCmd) Run(ctx *kong.Context, g *Globals) error {
	sess, _, err := remote(g)
	if err != nil {
		return err
	}
	if err := sess.Load(context.Background()); err != nil {
		if errors.Is(err, session.ErrNotLoggedIn) {
			return fmt.Errorf("not logged in, run: fieldctl login <mobile>")
		}
		return err
	}
	u := sess.User()
	fmt.Fprintf(ctx.Stdout, "%s\t%s\t%s\t%s\n", u.Name, u.Mobile, u.Role, u.Status)
	return nil
}

type SummaryCmd struct{}

func (cmd *SummaryCmd) Run(ctx *kong.Context, g *Globals) error {
	sess, client, err := remote(g)
	if err != nil {
		return err
	}
	bg := context.Background()
	if err := sess.Load(bg); err != nil {
		return err
	}
	s, err := client.DashboardSummary(bg)
	if err != nil {
		return err
	}
	fmt.Fprintf(ctx.Stdout, "Stock:      %s KG\n", ledger.FormatAmount(s.TodayStock))
	fmt.Fprintf(ctx.Stdout, "Bought:     %s KG\n", ledger.FormatAmount(s.TodayBuyKg))
	fmt.Fprintf(ctx.Stdout, "Sold:       %s KG\n", ledger.FormatAmount(s.TodaySellKg))
	fmt.Fprintf(ctx.Stdout, "Fuel:       %s L\n", ledger.FormatAmount(s.TodayFuelLiters))
	return nil
}

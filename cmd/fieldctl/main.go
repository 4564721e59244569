package main

import (
	_ "time/tzdata"

	"github.com/alecthomas/kong"
)

type CLI struct {
	Globals

	Balance    BalanceCmd    `cmd:"" help:"Compute bill total and new credit balance for a sale."`
	Bill       BillCmd       `cmd:"" help:"Print the invoice for a sale."`
	StockCheck StockCheckCmd `cmd:"" name:"stock-check" help:"Replay weighed increments against available stock."`
	Fuel       FuelCmd       `cmd:"" help:"Derive the missing fuel quantity, rate or amount."`
	Login      LoginCmd      `cmd:"" help:"Log in and store the session token."`
	Logout     LogoutCmd     `cmd:"" help:"Forget the stored session token."`
	Whoami     WhoamiCmd     `cmd:"" help:"Show the logged-in driver."`
	Summary    SummaryCmd    `cmd:"" help:"Show today's stock, purchases, sales and fuel."`
}

type Globals struct {
	LogLevel string `help:"Log level." default:"warn" enum:"debug,info,warn,error"`
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("fieldctl"),
		kong.Description("Field ledger tools for delivery drivers."),
		kong.UsageOnError(),
	)
	err := ctx.Run(&cli.Globals)
	ctx.FatalIfErrorf(err)
}

package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/shopspring/decimal"

	"lendingrisk/config"
	"lendingrisk/native/healthfactor"
	"lendingrisk/native/lending"
)

const (
	capsCommand    = "caps"
	decideCommand  = "decide"
	projectCommand = "project"
	yieldCommand   = "yield"
)

var errUsage = errors.New("usage")

// snapshot is the file format consumed by every subcommand: one market and
// optionally one user taken at the same epoch.
type snapshot struct {
	Market lending.Market                `json:"market"`
	User   *lending.UserPositionSnapshot `json:"user,omitempty"`
}

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, errUsage) {
			usage()
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: riskctl <command> -snapshot FILE [-risk FILE] [flags]

Commands:
  caps      report supply, borrow and debt ceiling usage per reserve
  decide    size one user action (-action, -asset, -target, -rate, -balance)
  project   project the health factor after deltas (-asset, -collateral, -debt)
  yield     aggregate the user's earned, debt and net APY
`)
}

func run(args []string, out io.Writer) error {
	if len(args) < 1 {
		return errUsage
	}
	switch args[0] {
	case capsCommand:
		return runCaps(args[1:], out)
	case decideCommand:
		return runDecide(args[1:], out)
	case projectCommand:
		return runProject(args[1:], out)
	case yieldCommand:
		return runYield(args[1:], out)
	default:
		return errUsage
	}
}

type common struct {
	snapshotPath string
	riskPath     string
}

func (c *common) bind(fs *flag.FlagSet) {
	fs.StringVar(&c.snapshotPath, "snapshot", "", "Path to a JSON file holding the market and user snapshots")
	fs.StringVar(&c.riskPath, "risk", "", "Path to the risk parameters TOML file (defaults apply when empty)")
}

// load reads the snapshot file and builds an engine with the configured
// margins and pause switches.
func (c *common) load(needUser bool) (*lending.Engine, snapshot, error) {
	if strings.TrimSpace(c.snapshotPath) == "" {
		return nil, snapshot{}, fmt.Errorf("-snapshot is required")
	}
	raw, err := os.ReadFile(c.snapshotPath)
	if err != nil {
		return nil, snapshot{}, fmt.Errorf("read snapshot: %w", err)
	}
	var snap snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	if needUser && snap.User == nil {
		return nil, snapshot{}, fmt.Errorf("snapshot %s has no user", c.snapshotPath)
	}

	params := lending.DefaultParams()
	var pauses lending.ActionPauses
	if strings.TrimSpace(c.riskPath) != "" {
		risk, err := config.LoadRisk(c.riskPath)
		if err != nil {
			return nil, snapshot{}, err
		}
		params, pauses = risk.Params, risk.Pauses
	}
	engine, err := lending.NewEngine(params, healthfactor.FromBalances)
	if err != nil {
		return nil, snapshot{}, err
	}
	engine.SetPauses(pauses)
	return engine, snap, nil
}

func runCaps(args []string, out io.Writer) error {
	fs := flag.NewFlagSet(capsCommand, flag.ContinueOnError)
	var c common
	c.bind(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	engine, snap, err := c.load(false)
	if err != nil {
		return err
	}
	return printJSON(out, engine.Params().CapReports(snap.Market))
}

func runDecide(args []string, out io.Writer) error {
	fs := flag.NewFlagSet(decideCommand, flag.ContinueOnError)
	var (
		c       common
		req     lending.ActionRequest
		action  string
		rate    string
		balance decimal.Decimal
		buffer  decimal.Decimal
	)
	c.bind(fs)
	fs.StringVar(&action, "action", "", "Action to size: supply, withdraw, borrow, repay, toggle-collateral, switch-rate, switch-debt")
	fs.StringVar(&req.Asset, "asset", "", "Reserve asset the action targets")
	fs.StringVar(&req.TargetAsset, "target", "", "Destination reserve for switch-debt")
	fs.StringVar(&rate, "rate", "variable", "Rate mode: variable or stable")
	fs.TextVar(&balance, "balance", decimal.Zero, "Wallet balance in asset units")
	fs.TextVar(&buffer, "native-buffer", decimal.Zero, "Gas reserve kept back for native assets (risk default when unset)")
	fs.BoolVar(&req.IsNativeAsset, "native", false, "The asset is the chain's native token")
	fs.BoolVar(&req.RepayAll, "repay-all", false, "Size a full repayment")
	fs.BoolVar(&req.RepayWithCollateral, "with-collateral", false, "Repay using collateral instead of the wallet")
	if err := fs.Parse(args); err != nil {
		return err
	}
	kind, err := lending.ParseActionKind(action)
	if err != nil {
		return err
	}
	req.Kind = kind
	if err := req.RateMode.UnmarshalText([]byte(rate)); err != nil {
		return err
	}
	req.WalletBalance = balance
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "native-buffer" {
			req.NativeBuffer = &buffer
		}
	})

	engine, snap, err := c.load(true)
	if err != nil {
		return err
	}
	decision, err := engine.Evaluate(snap.Market, *snap.User, req)
	if err != nil {
		return err
	}
	return printJSON(out, decision)
}

func runProject(args []string, out io.Writer) error {
	fs := flag.NewFlagSet(projectCommand, flag.ContinueOnError)
	var (
		c          common
		asset      string
		collateral decimal.Decimal
		debt       decimal.Decimal
	)
	c.bind(fs)
	fs.StringVar(&asset, "asset", "", "Reserve the deltas apply to")
	fs.TextVar(&collateral, "collateral", decimal.Zero, "Collateral delta in reference currency (either sign)")
	fs.TextVar(&debt, "debt", decimal.Zero, "Debt delta in reference currency (either sign)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	engine, snap, err := c.load(true)
	if err != nil {
		return err
	}
	projection, err := engine.ProjectAsset(snap.Market, *snap.User, asset, collateral, debt)
	if err != nil {
		return err
	}
	return printJSON(out, projection)
}

func runYield(args []string, out io.Writer) error {
	fs := flag.NewFlagSet(yieldCommand, flag.ContinueOnError)
	var c common
	c.bind(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	engine, snap, err := c.load(true)
	if err != nil {
		return err
	}
	yield, err := engine.AggregateYield(snap.Market, *snap.User)
	if err != nil {
		return err
	}
	return printJSON(out, yield)
}

func printJSON(out io.Writer, value any) error {
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(value)
}

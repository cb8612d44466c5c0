package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/subcommands"

	"github.com/bobmcallan/investai/internal/app"
	"github.com/bobmcallan/investai/internal/common"
	"github.com/bobmcallan/investai/internal/models"
)

// configPath is set by the global -config flag.
var configPath string

const minYear = 1990

func commands(stdout, stderr io.Writer) []subcommands.Command {
	return []subcommands.Command{
		&annualCmd{calcFlags: calcFlags{stdout: stdout, stderr: stderr}},
		&historyCmd{calcFlags: calcFlags{stdout: stdout, stderr: stderr}},
		&validateCmd{stdout: stdout, stderr: stderr},
	}
}

// calcFlags are shared by the annual and history commands.
type calcFlags struct {
	investmentType string
	code           string
	data           string
	format         string
	verbose        bool

	stdout io.Writer
	stderr io.Writer
	now    func() time.Time
}

func (c *calcFlags) register(f *flag.FlagSet) {
	f.StringVar(&c.investmentType, "type", "", "Investment type: stock or fund (required)")
	f.StringVar(&c.code, "code", "", "Restrict to one investment code")
	f.StringVar(&c.data, "data", "", "Path to the YAML transaction file (default: data/<type>.yaml)")
	f.StringVar(&c.format, "format", "", "Output format: table, json or markdown (default from config)")
	f.BoolVar(&c.verbose, "verbose", false, "Print the banner and informational logs")
}

// request validates the shared flags and builds an app request.
// Problems are usage errors and are returned together.
func (c *calcFlags) request(year int) (app.Request, []string) {
	var problems []string

	investmentType, ok := models.ParseInvestmentType(c.investmentType)
	if !ok {
		problems = append(problems, fmt.Sprintf("-type must be stock or fund, got %q", c.investmentType))
	}
	if c.data == "" && ok {
		c.data = filepath.Join("data", string(investmentType)+".yaml")
	}
	if msg := checkCode(c.code); msg != "" {
		problems = append(problems, msg)
	}
	if year != 0 {
		if msg := checkYear(year, c.clock().Year()); msg != "" {
			problems = append(problems, msg)
		}
	}
	switch c.format {
	case "", "table", "json", "markdown":
	default:
		problems = append(problems, fmt.Sprintf("-format must be table, json or markdown, got %q", c.format))
	}
	if c.data != "" {
		if info, err := os.Stat(c.data); err != nil {
			problems = append(problems, fmt.Sprintf("Data file does not exist: %s", c.data))
		} else if info.IsDir() {
			problems = append(problems, fmt.Sprintf("Data path is not a file: %s", c.data))
		}
	}

	return app.Request{
		InvestmentType: investmentType,
		Year:           year,
		Code:           c.code,
		DataFile:       c.data,
	}, problems
}

func (c *calcFlags) clock() time.Time {
	if c.now != nil {
		return c.now()
	}
	return time.Now()
}

// run builds the app, executes req and writes the report. chartPath is optional.
func (c *calcFlags) run(ctx context.Context, req app.Request, chartPath string) subcommands.ExitStatus {
	if ext := strings.ToLower(filepath.Ext(req.DataFile)); ext != ".yaml" && ext != ".yml" {
		fmt.Fprintln(c.stderr, "Warning: data file should have a .yaml or .yml extension")
	}

	a, err := c.newApp()
	if err != nil {
		fmt.Fprintf(c.stderr, "Failed to initialize app: %v\n", err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	result, err := a.Run(ctx, req)
	if err != nil {
		return c.fail(err)
	}

	if c.verbose {
		for _, w := range result.Warnings {
			fmt.Fprintf(c.stderr, "Warning: %s\n", w)
		}
	}

	if err := a.Render(c.stdout, result, c.format); err != nil {
		fmt.Fprintf(c.stderr, "Error formatting results: %v\n", err)
		return subcommands.ExitFailure
	}

	if chartPath != "" {
		if err := a.SaveChart(chartPath, result); err != nil {
			fmt.Fprintf(c.stderr, "Error saving chart: %v\n", err)
			return subcommands.ExitFailure
		}
		fmt.Fprintf(c.stderr, "Chart written to %s\n", chartPath)
	}
	return subcommands.ExitSuccess
}

func (c *calcFlags) newApp() (*app.App, error) {
	var opts []app.Option
	if c.verbose {
		opts = append(opts, app.WithLogLevel("info"))
	}
	opts = append(opts, app.WithOutputFormat(c.format))

	a, err := app.NewApp(configPath, opts...)
	if err != nil {
		return nil, err
	}
	if c.verbose {
		common.PrintBanner(c.stderr, a.Config, a.Logger)
	}
	return a, nil
}

func (c *calcFlags) fail(err error) subcommands.ExitStatus {
	var verr *app.ValidationError
	switch {
	case errors.As(err, &verr):
		fmt.Fprintln(c.stderr, "Transaction validation failed:")
		for _, e := range verr.Result.Errors {
			fmt.Fprintf(c.stderr, "  - %s\n", e)
		}
	case errors.Is(err, context.Canceled):
		fmt.Fprintln(c.stderr, "Operation cancelled")
	default:
		fmt.Fprintf(c.stderr, "Error during calculation: %v\n", err)
	}
	return subcommands.ExitFailure
}

func usageError(w io.Writer, problems []string) subcommands.ExitStatus {
	fmt.Fprintln(w, "Validation errors:")
	for _, p := range problems {
		fmt.Fprintf(w, "  - %s\n", p)
	}
	return subcommands.ExitUsageError
}

// checkCode accepts an empty code, a 6-digit code, a 5-digit Hong Kong code
// starting with 0, or an alphabetic international code.
func checkCode(code string) string {
	if code == "" {
		return ""
	}
	digits, letters := true, true
	for _, r := range code {
		digits = digits && r >= '0' && r <= '9'
		letters = letters && (r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z')
	}
	switch {
	case letters:
		return ""
	case !digits:
		return "Investment code must be numeric or alphabetic"
	case len(code) == 6, len(code) == 5 && code[0] == '0':
		return ""
	}
	return "Investment code must be 6 digits (or 5 digits starting with 0 for Hong Kong stocks)"
}

func checkYear(year, currentYear int) string {
	if year < minYear || year > currentYear {
		return fmt.Sprintf("Year must be between %d and %d", minYear, currentYear)
	}
	return ""
}

type annualCmd struct {
	calcFlags
	year int
}

func (*annualCmd) Name() string     { return "annual" }
func (*annualCmd) Synopsis() string { return "calculate returns for one calendar year" }
func (*annualCmd) Usage() string {
	return `invest-ai annual -type <stock|fund> -year <year> [-code <code>] [-data <file>] [-format table|json]

  Values holdings at the first and last trading day of the year and reports
  net gain, realized capital gain and the simple return on invested capital.
`
}

func (p *annualCmd) SetFlags(f *flag.FlagSet) {
	p.register(f)
	f.IntVar(&p.year, "year", 0, "Calendar year to report (required)")
}

func (p *annualCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	req, problems := p.request(p.year)
	if p.year == 0 {
		problems = append(problems, "-year is required")
	}
	if len(problems) > 0 {
		return usageError(p.stderr, problems)
	}
	return p.run(ctx, req, "")
}

type historyCmd struct {
	calcFlags
	chart string
}

func (*historyCmd) Name() string     { return "history" }
func (*historyCmd) Synopsis() string { return "calculate lifetime returns and XIRR" }
func (*historyCmd) Usage() string {
	return `invest-ai history -type <stock|fund> [-code <code>] [-data <file>] [-format table|json|markdown] [-chart out.png]

  Replays every transaction through FIFO lots, values open positions at
  current prices and reports realized, unrealized and annualized returns.
`
}

func (p *historyCmd) SetFlags(f *flag.FlagSet) {
	p.register(f)
	f.StringVar(&p.chart, "chart", "", "Write a PNG growth chart to this path")
}

func (p *historyCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	req, problems := p.request(0)
	if len(problems) > 0 {
		return usageError(p.stderr, problems)
	}
	return p.run(ctx, req, p.chart)
}

type validateCmd struct {
	data   string
	format string

	stdout io.Writer
	stderr io.Writer
}

func (*validateCmd) Name() string     { return "validate" }
func (*validateCmd) Synopsis() string { return "check a transaction file without calculating" }
func (*validateCmd) Usage() string {
	return `invest-ai validate -data <file> [-format table|json]

  Reports format errors, per-transaction errors and advisory warnings.
`
}

func (p *validateCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&p.data, "data", "", "Path to the YAML transaction file (required)")
	f.StringVar(&p.format, "format", "table", "Output format: table or json")
}

func (p *validateCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if p.data == "" {
		return usageError(p.stderr, []string{"-data is required"})
	}

	a, err := app.NewApp(configPath)
	if err != nil {
		fmt.Fprintf(p.stderr, "Failed to initialize app: %v\n", err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	result := a.ValidateFile(p.data)
	if err := a.ReportService.WriteValidation(p.stdout, p.data, result, p.format); err != nil {
		fmt.Fprintf(p.stderr, "Error formatting results: %v\n", err)
		return subcommands.ExitFailure
	}
	if !result.Valid {
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

type versionCmd struct {
	stdout io.Writer
}

func (*versionCmd) Name() string             { return "version" }
func (*versionCmd) Synopsis() string         { return "print version information" }
func (*versionCmd) Usage() string            { return "invest-ai version\n" }
func (*versionCmd) SetFlags(_ *flag.FlagSet) {}

func (p *versionCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	common.LoadVersionFromFile()
	fmt.Fprintln(p.stdout, common.GetFullVersion())
	return subcommands.ExitSuccess
}


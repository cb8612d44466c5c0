// Package report renders calculation results as terminal tables, markdown, JSON and charts
package report

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"

	"github.com/bobmcallan/investai/internal/common"
	"github.com/bobmcallan/investai/internal/models"
)

// Formatter renders results using the configured currency and precision.
type Formatter struct {
	currency  string
	precision int
	now       func() time.Time
}

// NewFormatter creates a formatter from output settings.
func NewFormatter(cfg common.OutputConfig) *Formatter {
	currency := cfg.Currency
	if currency == "" {
		currency = "CNY"
	}
	precision := cfg.Precision
	if precision < 0 || precision > 10 {
		precision = 2
	}
	return &Formatter{currency: currency, precision: precision, now: time.Now}
}

// AnnualTitle names an annual report, e.g. "Stock 600036 - 2023 Performance".
func AnnualTitle(investmentType models.InvestmentType, year int, code string) string {
	if code != "" {
		return fmt.Sprintf("%s %s - %d Performance", typeLabel(investmentType), code, year)
	}
	return fmt.Sprintf("%s Investments - %d Performance", typeLabel(investmentType), year)
}

// HistoryTitle names a lifetime report.
func HistoryTitle(investmentType models.InvestmentType, code string) string {
	if code != "" {
		return fmt.Sprintf("%s %s - Complete Investment History", typeLabel(investmentType), code)
	}
	return fmt.Sprintf("%s Investments - Complete History", typeLabel(investmentType))
}

func typeLabel(t models.InvestmentType) string {
	switch t {
	case models.InvestmentStock:
		return "Stock"
	case models.InvestmentFund:
		return "Fund"
	}
	return "Portfolio"
}

// Annual renders an annual result as a boxed metric table.
func (f *Formatter) Annual(result *models.AnnualResult, title string) string {
	rows := [][2]string{
		{"Start Value:", f.money(result.StartValue)},
		{"End Value:", f.money(result.EndValue)},
		{"New Investments:", f.money(result.NewInvested)},
		{"Withdrawals:", f.money(result.Withdrawals)},
		{"Capital Gain:", f.signedMoney(result.CapitalGain)},
		{"Net Gain/Loss:", f.signedMoney(result.NetGain)},
		{"Return Rate:", common.FormatPct(result.ReturnRate, f.precision)},
	}
	if result.Dividends > 0 {
		rows = append(rows, [2]string{"Dividend Income:", f.money(result.Dividends)})
	}

	var sb strings.Builder
	sb.WriteString(renderBox(title, rows))
	if len(result.Investments) > 0 {
		sb.WriteString("\n")
		sb.WriteString(f.investmentsTable(result.Investments))
	}
	return sb.String()
}

// History renders a lifetime result as a boxed summary followed by the per-code table.
func (f *Formatter) History(result *models.HistoryResult, title string) string {
	rows := [][2]string{
		{"First Investment:", formatDate(result.FirstInvestment)},
		{"Last Transaction:", formatDate(result.LastTransaction)},
		{"Report Date:", f.now().Format("2006-01-02")},
		{"Total Invested:", f.money(result.TotalInvested)},
		{"Current Value:", f.money(result.CurrentValue)},
		{"Total P&L:", f.signedMoney(result.TotalGain)},
		{"XIRR (Annual):", common.FormatPct(result.ReturnRate, f.precision)},
		{"Realized Gains:", f.signedMoney(result.RealizedGains)},
		{"Unrealized Gains:", f.signedMoney(result.UnrealizedGains)},
	}
	if result.DividendIncome > 0 {
		rows = append(rows, [2]string{"Dividend Income:", f.money(result.DividendIncome)})
	}
	rows = append(rows, [2]string{"Total Transactions:", fmt.Sprintf("%d", result.TransactionCount)})

	var sb strings.Builder
	sb.WriteString(renderBox(title, rows))
	if len(result.Investments) > 1 {
		sb.WriteString("\n")
		sb.WriteString(f.investmentsTable(result.Investments))
	}
	return sb.String()
}

// investmentsTable renders the per-code breakdown with a totals row
func (f *Formatter) investmentsTable(investments []models.CalculationResult) string {
	header := []string{"Code", "Invested", "Current Value", "Total P&L", "Return Rate"}
	rows := make([][]string, 0, len(investments)+1)

	var invested, value, gain float64
	for _, inv := range investments {
		invested += inv.TotalInvested
		value += inv.CurrentValue
		gain += inv.TotalGain
		rows = append(rows, []string{
			inv.Code,
			f.money(inv.TotalInvested),
			f.money(inv.CurrentValue),
			f.signedMoney(inv.TotalGain),
			common.FormatPct(inv.ReturnRate, f.precision),
		})
	}
	rows = append(rows, []string{"TOTAL", f.money(invested), f.money(value), f.signedMoney(gain), ""})

	return "Individual Investments\n" + renderGrid(header, rows)
}

// HistoryMarkdown renders a lifetime result as markdown, one row per code.
func (f *Formatter) HistoryMarkdown(result *models.HistoryResult, title string) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("# %s\n\n", title))
	sb.WriteString(fmt.Sprintf("**First Investment:** %s\n", formatDate(result.FirstInvestment)))
	sb.WriteString(fmt.Sprintf("**Total Invested:** %s\n", f.money(result.TotalInvested)))
	sb.WriteString(fmt.Sprintf("**Current Value:** %s\n", f.money(result.CurrentValue)))
	sb.WriteString(fmt.Sprintf("**Total P&L:** %s (XIRR %s)\n\n",
		f.signedMoney(result.TotalGain), common.FormatSignedPct(result.ReturnRate, f.precision)))

	if len(result.Investments) == 0 {
		return sb.String()
	}

	sb.WriteString("## Investments\n\n")
	sb.WriteString("| Code | Type | Invested | Cost Basis | Value | Realized | Unrealized | Total P&L | XIRR |\n")
	sb.WriteString("|------|------|----------|------------|-------|----------|------------|-----------|------|\n")
	for _, inv := range result.Investments {
		sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %s | %s | %s | %s | %s |\n",
			inv.Code, inv.InvestmentType,
			f.money(inv.TotalInvested), f.money(inv.CostBasis), f.money(inv.CurrentValue),
			f.signedMoney(inv.RealizedGain), f.signedMoney(inv.UnrealizedGain), f.signedMoney(inv.TotalGain),
			common.FormatSignedPct(inv.ReturnRate, f.precision),
		))
	}
	sb.WriteString("\n")
	return sb.String()
}

// Validation renders validator output.
func (f *Formatter) Validation(path string, result *models.ValidationResult) string {
	var sb strings.Builder
	if result.Valid {
		sb.WriteString(fmt.Sprintf("✓ %s is valid\n", path))
	} else {
		sb.WriteString(fmt.Sprintf("✗ %s has %d error(s)\n", path, len(result.Errors)))
	}
	for _, e := range result.Errors {
		sb.WriteString(fmt.Sprintf("  error:   %s\n", e))
	}
	for _, w := range result.Warnings {
		sb.WriteString(fmt.Sprintf("  warning: %s\n", w))
	}
	return sb.String()
}

// JSON renders v as indented JSON. Calculation results are rounded to the configured precision first.
func (f *Formatter) JSON(v interface{}) ([]byte, error) {
	switch r := v.(type) {
	case *models.AnnualResult:
		v = f.roundAnnual(*r)
	case *models.HistoryResult:
		v = f.roundHistory(*r)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal report: %w", err)
	}
	return data, nil
}

func (f *Formatter) roundAnnual(r models.AnnualResult) models.AnnualResult {
	r.StartValue = f.round(r.StartValue)
	r.EndValue = f.round(r.EndValue)
	r.NetGain = f.round(r.NetGain)
	r.ReturnRate = f.round(r.ReturnRate)
	r.Dividends = f.round(r.Dividends)
	r.CapitalGain = f.round(r.CapitalGain)
	r.NewInvested = f.round(r.NewInvested)
	r.Withdrawals = f.round(r.Withdrawals)
	r.Investments = f.roundInvestments(r.Investments)
	return r
}

func (f *Formatter) roundHistory(r models.HistoryResult) models.HistoryResult {
	r.TotalInvested = f.round(r.TotalInvested)
	r.CurrentValue = f.round(r.CurrentValue)
	r.TotalGain = f.round(r.TotalGain)
	r.ReturnRate = f.round(r.ReturnRate)
	r.RealizedGains = f.round(r.RealizedGains)
	r.UnrealizedGains = f.round(r.UnrealizedGains)
	r.DividendIncome = f.round(r.DividendIncome)
	r.Investments = f.roundInvestments(r.Investments)
	return r
}

func (f *Formatter) roundInvestments(in []models.CalculationResult) []models.CalculationResult {
	if in == nil {
		return nil
	}
	out := make([]models.CalculationResult, len(in))
	for i, c := range in {
		c.RealizedGain = f.round(c.RealizedGain)
		c.UnrealizedGain = f.round(c.UnrealizedGain)
		c.TotalGain = f.round(c.TotalGain)
		c.CostBasis = f.round(c.CostBasis)
		c.ReturnRate = f.round(c.ReturnRate)
		c.CurrentValue = f.round(c.CurrentValue)
		c.TotalInvested = f.round(c.TotalInvested)
		out[i] = c
	}
	return out
}

func (f *Formatter) round(v float64) float64 {
	return common.Round(v, f.precision)
}

func (f *Formatter) money(v float64) string {
	return common.FormatMoney(v, f.currency)
}

func (f *Formatter) signedMoney(v float64) string {
	return common.FormatSignedMoney(v, f.currency)
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("2006-01-02")
}

// renderBox draws a rounded two-column box with the title in the top border.
func renderBox(title string, rows [][2]string) string {
	labelW, valueW := 0, 0
	for _, r := range rows {
		labelW = max(labelW, runewidth.StringWidth(r[0]))
		valueW = max(valueW, runewidth.StringWidth(r[1]))
	}
	inner := labelW + valueW + 5
	if tw := runewidth.StringWidth(title) + 4; tw > inner {
		valueW += tw - inner
		inner = tw
	}

	var sb strings.Builder
	top := "─ " + title + " "
	sb.WriteString("╭" + top + strings.Repeat("─", inner-runewidth.StringWidth(top)) + "╮\n")
	for _, r := range rows {
		sb.WriteString("│  ")
		sb.WriteString(runewidth.FillRight(r[0], labelW))
		sb.WriteString(" ")
		sb.WriteString(runewidth.FillLeft(r[1], valueW))
		sb.WriteString("  │\n")
	}
	sb.WriteString("╰" + strings.Repeat("─", inner) + "╯\n")
	return sb.String()
}

// renderGrid draws a bordered table; the first column is left aligned, the rest right aligned.
func renderGrid(header []string, rows [][]string) string {
	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = runewidth.StringWidth(h)
	}
	for _, r := range rows {
		for i, cell := range r {
			widths[i] = max(widths[i], runewidth.StringWidth(cell))
		}
	}

	line := func(left, mid, right string) string {
		parts := make([]string, len(widths))
		for i, w := range widths {
			parts[i] = strings.Repeat("─", w+2)
		}
		return left + strings.Join(parts, mid) + right + "\n"
	}
	row := func(cells []string) string {
		parts := make([]string, len(widths))
		for i, w := range widths {
			if i == 0 {
				parts[i] = " " + runewidth.FillRight(cells[i], w) + " "
			} else {
				parts[i] = " " + runewidth.FillLeft(cells[i], w) + " "
			}
		}
		return "│" + strings.Join(parts, "│") + "│\n"
	}

	var sb strings.Builder
	sb.WriteString(line("╭", "┬", "╮"))
	sb.WriteString(row(header))
	sb.WriteString(line("├", "┼", "┤"))
	for i, r := range rows {
		if i == len(rows)-1 && len(rows) > 1 {
			sb.WriteString(line("├", "┼", "┤"))
		}
		sb.WriteString(row(r))
	}
	sb.WriteString(line("╰", "┴", "╯"))
	return sb.String()
}

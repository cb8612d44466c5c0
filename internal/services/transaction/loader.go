// Package transaction provides ledger loading, filtering, validation and summaries
package transaction

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/bobmcallan/investai/internal/common"
	"github.com/bobmcallan/investai/internal/interfaces"
	"github.com/bobmcallan/investai/internal/models"
)

// DateLayout is the ledger date format.
const DateLayout = "2006-01-02"

var requiredFields = []string{"code", "date", "type", "quantity", "unit_price", "total_amount"}

// Compile-time interface check
var _ interfaces.TransactionLoader = (*Loader)(nil)

// Loader reads YAML ledgers.
//
// Three layouts are accepted: a bare list of transactions, a mapping with a
// "transactions" list, or a mapping with "investments" (holding "stocks" and
// "funds" lists) and a "dividends" list. A mapping with none of those keys is
// read as a single transaction.
type Loader struct {
	logger *common.Logger
}

// NewLoader creates a ledger loader
func NewLoader(logger *common.Logger) *Loader {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	return &Loader{logger: logger}
}

// Load reads and parses the ledger at path. The result is sorted by date.
func (l *Loader) Load(path string) (models.TransactionList, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("transaction file not found: %s: %w", path, err)
		}
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("path is not a file: %s: %w", path, models.ErrInvalidInput)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	txs, err := l.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}

	l.logger.Debug().Str("path", path).Int("transactions", len(txs)).Msg("Ledger loaded")
	return txs, nil
}

// Parse decodes ledger YAML. Empty input yields an empty list.
func (l *Loader) Parse(data []byte) (models.TransactionList, error) {
	var root any
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("invalid YAML format: %w", err)
	}

	var txs models.TransactionList
	switch doc := root.(type) {
	case nil:
		return models.TransactionList{}, nil
	case []any:
		parsed, err := parseTransactions(doc)
		if err != nil {
			return nil, err
		}
		txs = parsed
	case map[string]any:
		parsed, err := parseDocument(doc)
		if err != nil {
			return nil, err
		}
		txs = parsed
	default:
		return nil, fmt.Errorf("invalid YAML format: expected list or mapping, got %T: %w", root, models.ErrInvalidInput)
	}

	sort.SliceStable(txs, func(i, j int) bool { return txs[i].Date.Before(txs[j].Date) })
	return txs, nil
}

// ValidateFileFormat checks that path exists and holds non-empty YAML without parsing transactions.
func (l *Loader) ValidateFileFormat(path string) *models.ValidationResult {
	result := &models.ValidationResult{Valid: true}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			result.AddError(fmt.Sprintf("File not found: %s", path))
		} else {
			result.AddError(fmt.Sprintf("File validation error: %v", err))
		}
		return result
	}

	var root any
	if err := yaml.Unmarshal(data, &root); err != nil {
		result.AddError(fmt.Sprintf("YAML format error: %v", err))
		return result
	}
	if root == nil {
		result.AddError("YAML file is empty")
	}
	return result
}

func parseDocument(doc map[string]any) (models.TransactionList, error) {
	var txs models.TransactionList
	recognised := false

	if inv, ok := doc["investments"]; ok {
		recognised = true
		section, ok := inv.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("investments must be a mapping: %w", models.ErrInvalidInput)
		}
		for _, key := range []string{"stocks", "funds"} {
			items, err := listOf(section, key)
			if err != nil {
				return nil, err
			}
			parsed, err := parseTransactions(items)
			if err != nil {
				return nil, err
			}
			txs = append(txs, parsed...)
		}
	}

	if _, ok := doc["dividends"]; ok {
		recognised = true
		items, err := listOf(doc, "dividends")
		if err != nil {
			return nil, err
		}
		for _, item := range items {
			entry, ok := item.(map[string]any)
			if !ok || len(entry) == 0 {
				continue
			}
			tx, err := parseDividend(entry)
			if err != nil {
				return nil, err
			}
			txs = append(txs, tx)
		}
	}

	if _, ok := doc["transactions"]; ok {
		recognised = true
		items, err := listOf(doc, "transactions")
		if err != nil {
			return nil, err
		}
		parsed, err := parseTransactions(items)
		if err != nil {
			return nil, err
		}
		txs = append(txs, parsed...)
	}

	if !recognised {
		tx, err := parseTransaction(doc)
		if err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}

	return txs, nil
}

func listOf(m map[string]any, key string) ([]any, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return nil, nil
	}
	items, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("%s must be a list: %w", key, models.ErrInvalidInput)
	}
	return items, nil
}

func parseTransactions(items []any) (models.TransactionList, error) {
	txs := make(models.TransactionList, 0, len(items))
	for _, item := range items {
		entry, ok := item.(map[string]any)
		if !ok {
			if item == nil {
				continue
			}
			return nil, fmt.Errorf("transaction entry must be a mapping, got %T: %w", item, models.ErrInvalidInput)
		}
		if len(entry) == 0 {
			continue
		}
		tx, err := parseTransaction(entry)
		if err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}
	return txs, nil
}

func parseTransaction(entry map[string]any) (models.Transaction, error) {
	for _, field := range requiredFields {
		if _, ok := entry[field]; !ok {
			return models.Transaction{}, fmt.Errorf("missing required field %q in %v: %w", field, entry, models.ErrInvalidInput)
		}
	}

	code, err := codeOf(entry["code"])
	if err != nil {
		return models.Transaction{}, err
	}
	date, err := dateOf(entry["date"])
	if err != nil {
		return models.Transaction{}, fmt.Errorf("transaction %s: %w", code, err)
	}
	txType, ok := models.ParseTransactionType(fmt.Sprint(entry["type"]))
	if !ok {
		return models.Transaction{}, fmt.Errorf("transaction %s: unknown type %v: %w", code, entry["type"], models.ErrInvalidInput)
	}

	tx := models.Transaction{Code: code, Date: date, Type: txType}
	for field, dst := range map[string]*float64{
		"quantity":     &tx.Quantity,
		"unit_price":   &tx.UnitPrice,
		"total_amount": &tx.TotalAmount,
	} {
		v, err := floatOf(entry[field])
		if err != nil {
			return models.Transaction{}, fmt.Errorf("transaction %s: field %s: %w", code, field, err)
		}
		*dst = v
	}

	if txType == models.TxDividend {
		tx.DividendType = models.DividendCash
		if tx.Quantity > 0 {
			tx.DividendType = models.DividendStock
		}
	}
	return tx, nil
}

// parseDividend reads an entry from the dividends section. A positive amount
// (or total_amount) is a cash dividend; otherwise a positive quantity (or
// share_amount) is a stock dividend.
func parseDividend(entry map[string]any) (models.Transaction, error) {
	code, err := codeOf(entry["code"])
	if err != nil {
		return models.Transaction{}, err
	}
	date, err := dateOf(entry["date"])
	if err != nil {
		return models.Transaction{}, fmt.Errorf("dividend %s: %w", code, err)
	}

	amount, err := firstFloat(entry, "amount", "total_amount")
	if err != nil {
		return models.Transaction{}, fmt.Errorf("dividend %s: %w", code, err)
	}
	if amount > 0 {
		return models.Transaction{
			Code:         code,
			Date:         date,
			Type:         models.TxDividend,
			TotalAmount:  amount,
			DividendType: models.DividendCash,
		}, nil
	}

	shares, err := firstFloat(entry, "quantity", "share_amount")
	if err != nil {
		return models.Transaction{}, fmt.Errorf("dividend %s: %w", code, err)
	}
	if shares > 0 {
		return models.Transaction{
			Code:         code,
			Date:         date,
			Type:         models.TxDividend,
			Quantity:     shares,
			DividendType: models.DividendStock,
		}, nil
	}

	return models.Transaction{}, fmt.Errorf("dividend %s on %s must have either positive amount (cash) or positive quantity (stock): %w",
		code, date.Format(DateLayout), models.ErrInvalidInput)
}

// NormalizeCode left-pads numeric codes to six digits. Other codes are upper-cased.
func NormalizeCode(code string) string {
	code = strings.TrimSpace(code)
	if code == "" {
		return code
	}
	if isDigits(code) {
		if len(code) < 6 {
			return strings.Repeat("0", 6-len(code)) + code
		}
		return code
	}
	return strings.ToUpper(code)
}

func codeOf(v any) (string, error) {
	var s string
	switch c := v.(type) {
	case string:
		s = c
	case int:
		s = strconv.Itoa(c)
	case int64:
		s = strconv.FormatInt(c, 10)
	case uint64:
		s = strconv.FormatUint(c, 10)
	case float64:
		s = strconv.FormatFloat(c, 'f', -1, 64)
	case nil:
		return "", fmt.Errorf("missing code: %w", models.ErrInvalidInput)
	default:
		s = fmt.Sprint(c)
	}
	s = NormalizeCode(s)
	if s == "" {
		return "", fmt.Errorf("empty code: %w", models.ErrInvalidInput)
	}
	return s, nil
}

func dateOf(v any) (time.Time, error) {
	switch d := v.(type) {
	case time.Time:
		return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC), nil
	case string:
		t, err := time.Parse(DateLayout, strings.TrimSpace(d))
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid date format %q: %w", d, models.ErrInvalidInput)
		}
		return t, nil
	default:
		return time.Time{}, fmt.Errorf("invalid date %v: %w", v, models.ErrInvalidInput)
	}
}

func floatOf(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case uint64:
		return float64(n), nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, fmt.Errorf("invalid number %q: %w", n, models.ErrInvalidInput)
		}
		return f, nil
	case nil:
		return 0, nil
	default:
		return 0, fmt.Errorf("invalid number %v: %w", v, models.ErrInvalidInput)
	}
}

func firstFloat(entry map[string]any, keys ...string) (float64, error) {
	for _, k := range keys {
		if v, ok := entry[k]; ok {
			return floatOf(v)
		}
	}
	return 0, nil
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

func isLetters(s string) bool {
	for _, r := range s {
		if !(r >= 'A' && r <= 'Z' || r >= 'a' && r <= 'z') {
			return false
		}
	}
	return s != ""
}

package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/investai/internal/models"
)

func newTestService() *Service {
	return NewService(newTestFormatter("USD", 2), nil)
}

func TestService_WriteAnnual(t *testing.T) {
	svc := newTestService()

	var table bytes.Buffer
	require.NoError(t, svc.WriteAnnual(&table, annualFixture(), "Annual", FormatTable))
	assert.Contains(t, table.String(), "Net Gain/Loss:")

	var out bytes.Buffer
	require.NoError(t, svc.WriteAnnual(&out, annualFixture(), "Annual", FormatJSON))
	var got models.AnnualResult
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	assert.Equal(t, 18.33, got.ReturnRate)
	assert.Equal(t, 2023, got.Year)

	err := svc.WriteAnnual(&out, annualFixture(), "Annual", "xml")
	assert.True(t, errors.Is(err, models.ErrInvalidInput))
}

func TestService_WriteHistory(t *testing.T) {
	svc := newTestService()

	var md bytes.Buffer
	require.NoError(t, svc.WriteHistory(&md, historyFixture(), "History", FormatMarkdown))
	assert.Contains(t, md.String(), "## Investments")

	var table bytes.Buffer
	require.NoError(t, svc.WriteHistory(&table, historyFixture(), "History", ""))
	assert.Contains(t, table.String(), "XIRR (Annual):")
}

func TestService_WriteValidation(t *testing.T) {
	svc := newTestService()
	result := &models.ValidationResult{Valid: true, Warnings: []string{"w"}}

	var out bytes.Buffer
	require.NoError(t, svc.WriteValidation(&out, "ledger.yaml", result, FormatJSON))
	assert.Contains(t, out.String(), `"valid": true`)
}

func TestService_SaveHistoryChart(t *testing.T) {
	svc := newTestService()
	path := filepath.Join(t.TempDir(), "charts", "history.png")

	err := svc.SaveHistoryChart(path, []GrowthPoint{
		{Date: d(2023, 1, 1), Invested: 1000},
		{Date: d(2024, 1, 1), Invested: 1000, Returned: 1200},
	})
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))

	assert.Error(t, svc.SaveHistoryChart(path, nil))
}

package transform

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LilVoxy/finance_etl/ETL/models"
)

// bronzeSample четыре строки: индийская группировка, скобки, "$-" и обычная
func bronzeSample() models.RawTable {
	return models.RawTable{
		Header: append([]string(nil), models.BronzeColumns...),
		Rows: [][]string{
			{"Government", "Canada", "Carretera", "None", " $1,618.50 ", " $3.00 ", " $20.00 ", " $5,29,550.00 ", " $-   ", " $5,29,550.00 ", " $16,185.00 ", " $5,13,365.00 ", "01/01/2014", "1", " January ", "2014"},
			{"Midmarket", "France", "Paseo", "Low", " $921.00 ", " $10.00 ", " $15.00 ", " $13,815.00 ", " $276.30 ", " $13,539.00 ", " $18,073.75 ", " $(4,534.75)", "01/03/2014", "3", " March ", "2014"},
			{"Enterprise", "Germany", "Velo", "None", " $2,178.00 ", " $120.00 ", " $125.00 ", " $2,72,250.00 ", " $-  ", " $2,72,250.00 ", " $2,61,360.00 ", " $10,890.00 ", "01/06/2014", "6", " June ", "2014"},
			{"Small Business", "Mexico", "Amarilla", "Medium", " $1,545.00 ", " $260.00 ", " $300.00 ", " $4,63,500.00 ", " $32,445.00 ", " $4,31,055.00 ", " $3,86,250.00 ", " $44,805.00 ", "01/12/2013", "12", " December ", "2013"},
		},
	}
}

func TestSilverEngineEndToEnd(t *testing.T) {
	engine := NewSilverEngine(nil, "2/1/2006")

	result, err := engine.Transform(bronzeSample())
	require.NoError(t, err)
	require.Len(t, result.Records, 4)

	tests := []struct {
		name   string
		check  func(models.FinancialRecord)
		record int
	}{
		{
			name:   "lakh values become plain decimals",
			record: 0,
			check: func(rec models.FinancialRecord) {
				assert.True(t, decimal.NewFromInt(529550).Equal(rec.GrossSales))
				assert.True(t, decimal.NewFromInt(513365).Equal(rec.Profit))
				assert.True(t, rec.Discounts.IsZero())
				assert.Equal(t, "2014-01-01", rec.Date)
				assert.Equal(t, "January", rec.MonthName)
				assert.Equal(t, 2, rec.Line)
			},
		},
		{
			name:   "parenthesized profit becomes negative",
			record: 1,
			check: func(rec models.FinancialRecord) {
				assert.True(t, decimal.RequireFromString("-4534.75").Equal(rec.Profit))
				assert.True(t, decimal.RequireFromString("276.3").Equal(rec.Discounts))
				assert.Equal(t, "2014-03-01", rec.Date)
			},
		},
		{
			name:   "dollar dash discounts are zero",
			record: 2,
			check: func(rec models.FinancialRecord) {
				assert.True(t, rec.Discounts.IsZero())
				assert.True(t, decimal.NewFromInt(261360).Equal(rec.COGS))
			},
		},
		{
			name:   "standard row",
			record: 3,
			check: func(rec models.FinancialRecord) {
				assert.True(t, decimal.NewFromInt(44805).Equal(rec.Profit))
				assert.Equal(t, "Small Business", rec.Segment)
				assert.Equal(t, 12, rec.MonthNumber)
				assert.Equal(t, 2013, rec.Year)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(result.Records[tt.record])
		})
	}

	negatives := 0
	for _, rec := range result.Records {
		if rec.Profit.IsNegative() {
			negatives++
		}
	}
	assert.Equal(t, 1, negatives)
	assert.Equal(t, 1, result.NegativeProfits)
	assert.Equal(t, "sales", result.Header[9])
	assert.Zero(t, result.InvalidDates)
}

func TestSilverEngineMissingColumns(t *testing.T) {
	engine := NewSilverEngine(nil, "")
	_, err := engine.Transform(models.RawTable{Header: []string{"Segment", "Country"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "discount_band")
}

func TestSilverEngineCoercesBadDate(t *testing.T) {
	table := bronzeSample()
	table.Rows = table.Rows[:1]
	table.Rows[0][12] = "not a date"

	result, err := NewSilverEngine(nil, "2/1/2006").Transform(table)
	require.NoError(t, err)
	assert.Equal(t, "", result.Records[0].Date)
	assert.Equal(t, 1, result.InvalidDates)
}

func TestSilverResultTable(t *testing.T) {
	result, err := NewSilverEngine(nil, "").Transform(bronzeSample())
	require.NoError(t, err)

	table := result.Table()
	assert.Equal(t, models.SilverColumns, table.Columns)
	require.Len(t, table.Rows, 4)
	assert.Equal(t, "-4534.75", table.Rows[1][table.ColumnIndex(models.ColProfit)])
}

func TestComparisonReport(t *testing.T) {
	bronze := bronzeSample()
	bronze.Rows[1][2] = "Pa|seo"
	result, err := NewSilverEngine(nil, "").Transform(bronze)
	require.NoError(t, err)

	report := BuildComparisonReport(bronze, result, []int{0, 1, 100}, time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC))

	assert.Contains(t, report, "# TABELA COMPARATIVA - BRONZE vs SILVER")
	assert.Contains(t, report, "**Data**: 2024-01-02 03:04:05")
	assert.Contains(t, report, "## Registro #2 (Linha do CSV)")
	assert.Contains(t, report, "## Registro #3 (Linha do CSV)")
	assert.NotContains(t, report, "## Registro #102")
	assert.Contains(t, report, "| Campo | BRONZE (Antes) | SILVER (Depois) |")
	assert.Contains(t, report, "|  Sales → sales | ` $5,29,550.00 ` | `529550.00` |")
	assert.Contains(t, report, `Pa\|seo`)
	assert.Equal(t, 2, strings.Count(report, "| Profit → profit |"))

	path := filepath.Join(t.TempDir(), "reports", "transformation_report.md")
	require.NoError(t, WriteComparisonReport(path, bronze, result, []int{0}))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "## Registro #2")
}

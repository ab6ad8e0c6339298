package contract

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LilVoxy/finance_etl/ETL/models"
)

func validRecord() models.FinancialRecord {
	return models.FinancialRecord{
		Line:               2,
		Segment:            "Government",
		Country:            "Canada",
		Product:            "Carretera",
		DiscountBand:       "None",
		UnitsSold:          decimal.RequireFromString("1618.5"),
		ManufacturingPrice: decimal.NewFromInt(3),
		SalePrice:          decimal.NewFromInt(20),
		GrossSales:         decimal.NewFromInt(32370),
		Discounts:          decimal.Zero,
		NetSales:           decimal.NewFromInt(32370),
		COGS:               decimal.NewFromInt(16185),
		Profit:             decimal.NewFromInt(16185),
		Date:               "2014-01-01",
		MonthNumber:        1,
		MonthName:          "January",
		Year:               2014,
	}
}

func TestContractValidate(t *testing.T) {
	tests := []struct {
		name       string
		mutate     func(*models.FinancialRecord)
		wantReason string
	}{
		{name: "valid record", mutate: func(*models.FinancialRecord) {}},
		{
			name:   "rounding within one cent is accepted",
			mutate: func(r *models.FinancialRecord) { r.Profit = decimal.RequireFromString("16185.01") },
		},
		{
			name:   "negative profit is allowed",
			mutate: func(r *models.FinancialRecord) { r.COGS = decimal.NewFromInt(40000); r.Profit = decimal.NewFromInt(-7630) },
		},
		{
			name:       "sales identity",
			mutate:     func(r *models.FinancialRecord) { r.NetSales = decimal.NewFromInt(30000); r.Profit = decimal.NewFromInt(13815) },
			wantReason: "Sales inconsistente",
		},
		{
			name:       "profit identity",
			mutate:     func(r *models.FinancialRecord) { r.Profit = decimal.NewFromInt(1) },
			wantReason: "Profit inconsistente",
		},
		{
			name: "none band with discount",
			mutate: func(r *models.FinancialRecord) {
				r.Discounts = decimal.NewFromInt(100)
				r.NetSales = decimal.NewFromInt(32270)
				r.Profit = decimal.NewFromInt(16085)
			},
			wantReason: "discount_band='None'",
		},
		{
			name:       "date must be iso",
			mutate:     func(r *models.FinancialRecord) { r.Date = "01/01/2014" },
			wantReason: "Data inválida",
		},
		{
			name:       "empty date",
			mutate:     func(r *models.FinancialRecord) { r.Date = "" },
			wantReason: "date",
		},
		{
			name:       "short country",
			mutate:     func(r *models.FinancialRecord) { r.Country = "US" },
			wantReason: "country",
		},
		{
			name:       "month out of range",
			mutate:     func(r *models.FinancialRecord) { r.MonthNumber = 13 },
			wantReason: "month_number",
		},
		{
			name:       "year out of range",
			mutate:     func(r *models.FinancialRecord) { r.Year = 2012 },
			wantReason: "year",
		},
		{
			name:       "manufacturing price cap",
			mutate:     func(r *models.FinancialRecord) { r.ManufacturingPrice = decimal.NewFromInt(10001) },
			wantReason: "manufacturing_price",
		},
		{
			name:       "negative units",
			mutate:     func(r *models.FinancialRecord) { r.UnitsSold = decimal.NewFromInt(-1) },
			wantReason: "units_sold",
		},
		{
			name:       "missing segment",
			mutate:     func(r *models.FinancialRecord) { r.Segment = "" },
			wantReason: "segment: campo obrigatório",
		},
	}

	c := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := validRecord()
			tt.mutate(&rec)

			err := c.Validate(rec)
			if tt.wantReason == "" {
				assert.NoError(t, err)
				return
			}

			require.Error(t, err)
			assert.ErrorIs(t, err, ErrViolation)
			assert.Contains(t, err.Error(), tt.wantReason)
			assert.Contains(t, err.Error(), "строка 2")
		})
	}
}

func TestValidateBatchAndQuarantine(t *testing.T) {
	good := validRecord()
	bad := validRecord()
	bad.Line = 3
	bad.Year = 1999

	valid, rejected := New().ValidateBatch([]models.FinancialRecord{good, bad})
	require.Len(t, valid, 1)
	require.Len(t, rejected, 1)
	assert.Equal(t, 3, rejected[0].Record.Line)
	assert.Contains(t, rejected[0].Reason, "year")

	dir := t.TempDir()
	now := time.Date(2024, 3, 4, 5, 6, 7, 0, time.UTC)
	path, err := WriteQuarantine(dir, rejected, now)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(path, "contract_violations_20240304_050607.csv"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "linha,segment,"))
	assert.True(t, strings.HasSuffix(lines[0], ",motivo"))
	assert.True(t, strings.HasPrefix(lines[1], "3,Government,Canada"))

	path, err = WriteQuarantine(dir, nil, now)
	require.NoError(t, err)
	assert.Empty(t, path)
}

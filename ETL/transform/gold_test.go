package transform

import (
	"testing"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LilVoxy/finance_etl/ETL/config"
	"github.com/LilVoxy/finance_etl/ETL/models"
)

func record(segment, country, product, band, price, units, date string) models.FinancialRecord {
	return models.FinancialRecord{
		Segment:            segment,
		Country:            country,
		Product:            product,
		DiscountBand:       band,
		ManufacturingPrice: decimal.RequireFromString(price),
		UnitsSold:          decimal.RequireFromString(units),
		NetSales:           decimal.NewFromInt(100),
		COGS:               decimal.NewFromInt(60),
		Profit:             decimal.NewFromInt(40),
		Date:               date,
	}
}

func goldRecords() []models.FinancialRecord {
	return []models.FinancialRecord{
		record("Government", "Canada", "Carretera", "None", "3", "150000", "2014-01-01"),
		record("Midmarket", "Brazil", "Paseo", "Low", "120", "900", "2014-01-03"),
		record("Government", "Canada", "Carretera", "High", "3", "60000", "2014-01-02"),
		record("Enterprise", "France", "Carretera", "Medium", "250", "100", "2014-01-02"),
		record("Midmarket", "Mexico", "Velo", "Unknown band", "99.99", "10", ""),
	}
}

func TestDimensionBuilders(t *testing.T) {
	lookups := config.DefaultLookups()
	records := goldRecords()

	t.Run("product keys are dense and composite", func(t *testing.T) {
		dim := NewProductDimensionBuilder(lookups.PriceTiers).Build(records)
		require.Equal(t, 4, dim.Len())

		keys := make([]int, 0, dim.Len())
		for _, row := range dim.Rows {
			keys = append(keys, row.Key)
		}
		assert.Equal(t, []int{1, 2, 3, 4}, keys)

		cheap, ok := dim.Lookup(models.ProductKey{Name: "Carretera", Price: "3.00"})
		require.True(t, ok)
		assert.Equal(t, 1, cheap)
		expensive, ok := dim.Lookup(models.ProductKey{Name: "Carretera", Price: "250.00"})
		require.True(t, ok)
		assert.Equal(t, 3, expensive)

		assert.Equal(t, TierLow, dim.Rows[0].Attrs.PriceTier)
		assert.Equal(t, TierMedium, dim.Rows[1].Attrs.PriceTier)
		assert.Equal(t, TierHigh, dim.Rows[2].Attrs.PriceTier)
		assert.Equal(t, TierLow, dim.Rows[3].Attrs.PriceTier)
	})

	t.Run("geography misses degrade to unknown", func(t *testing.T) {
		dim := NewGeographyDimensionBuilder(lookups).Build(records)
		require.Equal(t, 4, dim.Len())
		assert.Equal(t, "Canada", dim.Rows[0].Natural)
		assert.Equal(t, models.GeographyAttrs{Continent: "América", Region: "América do Norte"}, dim.Rows[0].Attrs)
		assert.Equal(t, models.GeographyAttrs{Continent: "Desconhecido", Region: "Desconhecido"}, dim.Rows[1].Attrs)
		assert.Equal(t, "Europa Ocidental", dim.Rows[2].Attrs.Region)
		assert.Equal(t, "América Latina", dim.Rows[3].Attrs.Region)
	})

	t.Run("segment tier uses total units", func(t *testing.T) {
		dim := NewSegmentDimensionBuilder(lookups.VolumeTiers).Build(records)
		require.Equal(t, 3, dim.Len())
		assert.Equal(t, TierHigh, dim.Rows[0].Attrs.VolumeTier)
		assert.Equal(t, TierLow, dim.Rows[1].Attrs.VolumeTier)
		assert.Equal(t, "Enterprise", dim.Rows[2].Natural)
	})

	t.Run("discount bands are static", func(t *testing.T) {
		dim := NewDiscountDimensionBuilder(lookups.DiscountBands).Build(nil)
		require.Equal(t, 4, dim.Len())
		assert.Equal(t, "None", dim.Rows[0].Natural)
		assert.Equal(t, "High", dim.Rows[3].Natural)
		assert.True(t, decimal.RequireFromString("10.01").Equal(dim.Rows[3].Attrs.MinPercent))
		_, ok := dim.Lookup("Unknown band")
		assert.False(t, ok)
	})
}

func TestTimeDimension(t *testing.T) {
	processor := NewTimeDimensionProcessor(nil, config.DefaultLookups().Holidays)

	tests := []struct {
		name     string
		min, max civil.Date
		wantRows int
		check    func(*testing.T, []models.TimeDimension)
	}{
		{
			name:     "one row per day across the year end",
			min:      civil.Date{Year: 2013, Month: 12, Day: 30},
			max:      civil.Date{Year: 2014, Month: 1, Day: 2},
			wantRows: 4,
			check: func(t *testing.T, rows []models.TimeDimension) {
				yearEnd := rows[1]
				assert.Equal(t, "2013-12-31", yearEnd.FullDate.String())
				assert.True(t, yearEnd.IsMonthEnd)
				assert.True(t, yearEnd.IsQuarterEnd)
				assert.True(t, yearEnd.IsYearEnd)
				assert.Equal(t, "Tuesday", yearEnd.DayName)
				assert.Equal(t, 4, yearEnd.Quarter)

				newYear := rows[2]
				assert.True(t, newYear.IsHoliday)
				assert.Equal(t, 1, newYear.Quarter)
				assert.Equal(t, newYear.Quarter, newYear.FiscalQuarter)
				assert.Equal(t, 3, newYear.ID)
			},
		},
		{
			name:     "leap day and month end",
			min:      civil.Date{Year: 2016, Month: 2, Day: 28},
			max:      civil.Date{Year: 2016, Month: 3, Day: 1},
			wantRows: 3,
			check: func(t *testing.T, rows []models.TimeDimension) {
				assert.False(t, rows[0].IsMonthEnd)
				assert.True(t, rows[1].IsMonthEnd)
				assert.False(t, rows[1].IsQuarterEnd)
				assert.False(t, rows[1].IsHoliday)
			},
		},
		{
			name:     "single day",
			min:      civil.Date{Year: 2014, Month: 7, Day: 4},
			max:      civil.Date{Year: 2014, Month: 7, Day: 4},
			wantRows: 1,
			check: func(t *testing.T, rows []models.TimeDimension) {
				assert.True(t, rows[0].IsHoliday)
				assert.Equal(t, 3, rows[0].Quarter)
			},
		},
		{
			name:     "inverted range is empty",
			min:      civil.Date{Year: 2014, Month: 1, Day: 2},
			max:      civil.Date{Year: 2014, Month: 1, Day: 1},
			wantRows: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows := processor.Build(tt.min, tt.max)
			require.Len(t, rows, tt.wantRows)

			seen := make(map[civil.Date]bool)
			for i, row := range rows {
				assert.Equal(t, i+1, row.ID)
				assert.False(t, seen[row.FullDate])
				seen[row.FullDate] = true
			}
			if tt.check != nil {
				tt.check(t, rows)
			}
		})
	}
}

func TestTimeDimensionFromRecords(t *testing.T) {
	processor := NewTimeDimensionProcessor(nil, nil)
	rows := processor.BuildFromRecords(goldRecords())
	require.Len(t, rows, 3)
	assert.Equal(t, "2014-01-01", rows[0].FullDate.String())
	assert.Equal(t, "2014-01-03", rows[2].FullDate.String())

	assert.Nil(t, processor.BuildFromRecords([]models.FinancialRecord{{Date: ""}}))
}

func TestBuildGold(t *testing.T) {
	transformer := NewTransformer(nil, config.DefaultLookups(), "")
	records := goldRecords()

	schema, err := transformer.BuildGold(records)
	require.NoError(t, err)
	require.Len(t, schema.Facts, len(records))

	first := schema.Facts[0]
	assert.Equal(t, 1, first.ID)
	require.NotNil(t, first.ProductID)
	require.NotNil(t, first.TimeID)
	assert.Equal(t, 1, *first.TimeID)
	assert.True(t, decimal.NewFromInt(100).Equal(first.NetRevenue))

	third := schema.Facts[2]
	require.NotNil(t, third.ProductID)
	assert.Equal(t, *first.ProductID, *third.ProductID)
	require.NotNil(t, third.DiscountID)
	assert.Equal(t, 4, *third.DiscountID)

	last := schema.Facts[4]
	assert.Nil(t, last.DiscountID)
	assert.Nil(t, last.TimeID)
	assert.NotNil(t, last.GeographyID)
	assert.Equal(t, 5, last.ID)

	_, err = transformer.BuildGold(nil)
	assert.Error(t, err)
}

func TestTranslatedGoldTables(t *testing.T) {
	schema, err := NewTransformer(nil, config.DefaultLookups(), "").BuildGold(goldRecords())
	require.NoError(t, err)

	tables := TranslatedGoldTables(schema)
	require.Len(t, tables, len(GoldTableNames))

	byName := make(map[string]models.Table)
	for i, table := range tables {
		assert.Equal(t, GoldTableNames[i], table.Name)
		byName[table.Name] = table
	}

	assert.Equal(t, []string{"produto_sk", "nome_produto", "preco_fabricacao", "categoria_preco"}, byName[TableProduct].Columns)
	assert.Equal(t, []string{"desconto_sk", "faixa_desconto", "percentual_minimo", "percentual_maximo"}, byName[TableDiscount].Columns)
	assert.Equal(t, "nome_segmento", byName[TableSegment].Columns[1])
	assert.Contains(t, byName[TableTime].Columns, "feriado_bancario")
	assert.Contains(t, byName[TableTime].Columns, "fim_de_mes")

	fact := byName[TableFact]
	assert.Equal(t, []string{
		"fato_financeiro_sk", "produto_sk", "geografia_sk", "segmento_sk", "desconto_sk", "tempo_sk",
		"unidades_vendidas", "receita_liquida", "custo_produtos_vendidos", "lucro",
	}, fact.Columns)
	require.Len(t, fact.Rows, 5)
	assert.Equal(t, "", fact.Rows[4][4])
	assert.Equal(t, "40.00", fact.Rows[0][9])

	timeTable := byName[TableTime]
	assert.Equal(t, "True", timeTable.Rows[0][timeTable.ColumnIndex("feriado_bancario")])

	assert.Equal(t, "lucro", TranslateColumn("lucro"))
}

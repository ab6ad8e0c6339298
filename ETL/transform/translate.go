package transform

import (
	"strconv"

	"github.com/LilVoxy/finance_etl/ETL/models"
)

// Имена таблиц слоя Gold
const (
	TableProduct   = "dim_produto"
	TableGeography = "dim_geografia"
	TableSegment   = "dim_segmento"
	TableDiscount  = "dim_desconto"
	TableTime      = "dim_tempo"
	TableFact      = "fato_financeiro"
)

// GoldTableNames порядок выгрузки таблиц Gold
var GoldTableNames = []string{TableProduct, TableGeography, TableSegment, TableDiscount, TableTime, TableFact}

// ColumnTranslations переименование внутренних колонок при выгрузке; остальные не меняются
var ColumnTranslations = map[string]string{
	"produto_nome":        "nome_produto",
	"segmento_nome":       "nome_segmento",
	"percentual_min":      "percentual_minimo",
	"percentual_max":      "percentual_maximo",
	"eh_fim_mes":          "fim_de_mes",
	"eh_fim_trimestre":    "fim_de_trimestre",
	"eh_fim_ano":          "fim_de_ano",
	"eh_feriado_bancario": "feriado_bancario",
	"venda_liquida":       "receita_liquida",
	"custo_bens_vendidos": "custo_produtos_vendidos",
}

// TranslateColumn возвращает выгружаемое имя колонки
func TranslateColumn(name string) string {
	if translated, ok := ColumnTranslations[name]; ok {
		return translated
	}
	return name
}

// TranslateTable переименовывает колонки таблицы; строки не копируются
func TranslateTable(table models.Table) models.Table {
	columns := make([]string, len(table.Columns))
	for i, col := range table.Columns {
		columns[i] = TranslateColumn(col)
	}
	return models.Table{Name: table.Name, Columns: columns, Rows: table.Rows}
}

// GoldTables представляет звездную схему в виде таблиц с внутренними именами колонок
func GoldTables(schema *models.GoldSchema) []models.Table {
	products := models.Table{
		Name:    TableProduct,
		Columns: []string{"produto_sk", "produto_nome", "preco_fabricacao", "categoria_preco"},
	}
	for _, row := range schema.Products.Rows {
		products.Rows = append(products.Rows, []string{
			strconv.Itoa(row.Key), row.Natural.Name, models.FormatDecimal(row.Attrs.ManufacturingPrice), row.Attrs.PriceTier,
		})
	}

	geography := models.Table{
		Name:    TableGeography,
		Columns: []string{"geografia_sk", "pais", "continente", "regiao"},
	}
	for _, row := range schema.Geography.Rows {
		geography.Rows = append(geography.Rows, []string{
			strconv.Itoa(row.Key), row.Natural, row.Attrs.Continent, row.Attrs.Region,
		})
	}

	segments := models.Table{
		Name:    TableSegment,
		Columns: []string{"segmento_sk", "segmento_nome", "potencial_volume"},
	}
	for _, row := range schema.Segments.Rows {
		segments.Rows = append(segments.Rows, []string{
			strconv.Itoa(row.Key), row.Natural, row.Attrs.VolumeTier,
		})
	}

	discounts := models.Table{
		Name:    TableDiscount,
		Columns: []string{"desconto_sk", "faixa_desconto", "percentual_min", "percentual_max"},
	}
	for _, row := range schema.Discounts.Rows {
		discounts.Rows = append(discounts.Rows, []string{
			strconv.Itoa(row.Key), row.Natural, models.FormatDecimal(row.Attrs.MinPercent), models.FormatDecimal(row.Attrs.MaxPercent),
		})
	}

	timeTable := models.Table{
		Name: TableTime,
		Columns: []string{
			"tempo_sk", "data_completa", "ano", "mes", "dia", "dia_semana",
			"trimestre", "trimestre_fiscal", "eh_fim_mes", "eh_fim_trimestre", "eh_fim_ano", "eh_feriado_bancario",
		},
	}
	for _, row := range schema.Time {
		timeTable.Rows = append(timeTable.Rows, []string{
			strconv.Itoa(row.ID),
			row.FullDate.String(),
			strconv.Itoa(row.Year),
			strconv.Itoa(row.Month),
			strconv.Itoa(row.Day),
			row.DayName,
			strconv.Itoa(row.Quarter),
			strconv.Itoa(row.FiscalQuarter),
			formatBool(row.IsMonthEnd),
			formatBool(row.IsQuarterEnd),
			formatBool(row.IsYearEnd),
			formatBool(row.IsHoliday),
		})
	}

	facts := models.Table{
		Name: TableFact,
		Columns: []string{
			"fato_financeiro_sk", "produto_sk", "geografia_sk", "segmento_sk", "desconto_sk", "tempo_sk",
			"unidades_vendidas", "venda_liquida", "custo_bens_vendidos", "lucro",
		},
	}
	for _, fact := range schema.Facts {
		facts.Rows = append(facts.Rows, []string{
			strconv.Itoa(fact.ID),
			formatKey(fact.ProductID),
			formatKey(fact.GeographyID),
			formatKey(fact.SegmentID),
			formatKey(fact.DiscountID),
			formatKey(fact.TimeID),
			models.FormatDecimal(fact.UnitsSold),
			models.FormatDecimal(fact.NetRevenue),
			models.FormatDecimal(fact.CostOfGoods),
			models.FormatDecimal(fact.Profit),
		})
	}

	return []models.Table{products, geography, segments, discounts, timeTable, facts}
}

// TranslatedGoldTables таблицы Gold с выгружаемыми именами колонок
func TranslatedGoldTables(schema *models.GoldSchema) []models.Table {
	tables := GoldTables(schema)
	for i := range tables {
		tables[i] = TranslateTable(tables[i])
	}
	return tables
}

func formatKey(key *int) string {
	if key == nil {
		return ""
	}
	return strconv.Itoa(*key)
}

func formatBool(v bool) string {
	if v {
		return "True"
	}
	return "False"
}

package kpi

import (
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/LilVoxy/finance_etl/ETL/extractors"
	"github.com/LilVoxy/finance_etl/ETL/models"
)

// CountryKPI выручка и прибыль по стране
type CountryKPI struct {
	Country string  `json:"pais"`
	Revenue float64 `json:"receita_liquida"`
	Profit  float64 `json:"lucro"`
}

// SegmentKPI выручка по сегменту
type SegmentKPI struct {
	Segment string  `json:"nome_segmento"`
	Revenue float64 `json:"receita_liquida"`
}

// ProductKPI показатели продукта
type ProductKPI struct {
	Product string  `json:"nome_produto"`
	Revenue float64 `json:"receita_liquida"`
	Profit  float64 `json:"lucro"`
	Units   float64 `json:"unidades_vendidas"`
	Margin  float64 `json:"margem"`
}

// MonthKPI выручка и прибыль за месяц
type MonthKPI struct {
	Year    int     `json:"ano"`
	Month   int     `json:"mes"`
	Revenue float64 `json:"receita_liquida"`
	Profit  float64 `json:"lucro"`
}

// Summary сводные показатели по слою Gold
type Summary struct {
	Revenue     float64      `json:"receita_total"`
	Profit      float64      `json:"lucro_total"`
	GrossMargin float64      `json:"margem_bruta"`
	UnitsSold   float64      `json:"unidades_vendidas"`
	COGS        float64      `json:"cpv"`
	AvgTicket   float64      `json:"ticket_medio"`
	ByCountry   []CountryKPI `json:"por_pais"`
	BySegment   []SegmentKPI `json:"por_segmento"`
	ByProduct   []ProductKPI `json:"por_produto"`
	ByMonth     []MonthKPI   `json:"por_mes"`
	Trend       *Trend       `json:"tendencia_receita,omitempty"`
}

type totals struct {
	revenue, profit, units decimal.Decimal
}

func (t *totals) add(f factRow) {
	t.revenue = t.revenue.Add(f.revenue)
	t.profit = t.profit.Add(f.profit)
	t.units = t.units.Add(f.units)
}

type factRow struct {
	product, geography, segment, time string
	units, revenue, cogs, profit      decimal.Decimal
}

// LoadGoldDir читает выгруженные таблицы Gold из каталога
func LoadGoldDir(dir string, names []string) ([]models.Table, error) {
	tables := make([]models.Table, 0, len(names))
	for _, name := range names {
		raw, err := extractors.ReadTableFile(filepath.Join(dir, name+".csv"))
		if err != nil {
			return nil, fmt.Errorf("ошибка чтения таблицы %s: %w", name, err)
		}
		tables = append(tables, models.Table{Name: name, Columns: raw.Header, Rows: raw.Rows})
	}
	return tables, nil
}

// Summarize считает показатели по таблицам Gold с выгружаемыми именами колонок.
// Факты без найденного измерения учитываются в итогах, но не в разбивке.
func Summarize(tables []models.Table) (Summary, error) {
	byName := make(map[string]models.Table, len(tables))
	for _, t := range tables {
		byName[t.Name] = t
	}

	fato, ok := byName["fato_financeiro"]
	if !ok {
		return Summary{}, fmt.Errorf("таблица fato_financeiro не найдена")
	}
	facts, err := readFacts(fato)
	if err != nil {
		return Summary{}, err
	}

	countries := lookup(byName["dim_geografia"], "geografia_sk", "pais")
	segments := lookup(byName["dim_segmento"], "segmento_sk", "nome_segmento")
	products := lookup(byName["dim_produto"], "produto_sk", "nome_produto")
	years := lookup(byName["dim_tempo"], "tempo_sk", "ano")
	months := lookup(byName["dim_tempo"], "tempo_sk", "mes")

	var all totals
	cogs := decimal.Zero
	byCountry := map[string]*totals{}
	bySegment := map[string]*totals{}
	byProduct := map[string]*totals{}
	type ym struct{ year, month int }
	byMonth := map[ym]*totals{}

	group := func(m map[string]*totals, key string, ok bool, f factRow) {
		if !ok {
			return
		}
		if m[key] == nil {
			m[key] = &totals{}
		}
		m[key].add(f)
	}

	for _, f := range facts {
		all.add(f)
		cogs = cogs.Add(f.cogs)

		country, ok := countries[f.geography]
		group(byCountry, country, ok, f)
		segment, ok := segments[f.segment]
		group(bySegment, segment, ok, f)
		product, ok := products[f.product]
		group(byProduct, strings.TrimSpace(product), ok, f)

		y, okY := years[f.time]
		mo, okM := months[f.time]
		if okY && okM {
			year, _ := strconv.Atoi(y)
			month, _ := strconv.Atoi(mo)
			key := ym{year, month}
			if byMonth[key] == nil {
				byMonth[key] = &totals{}
			}
			byMonth[key].add(f)
		}
	}

	summary := Summary{
		Revenue:   round(all.revenue),
		Profit:    round(all.profit),
		UnitsSold: round(all.units),
		COGS:      round(cogs),
	}
	summary.GrossMargin = percent(all.profit, all.revenue)
	if !all.units.IsZero() {
		summary.AvgTicket = round(all.revenue.Div(all.units))
	}

	for name, t := range byCountry {
		summary.ByCountry = append(summary.ByCountry, CountryKPI{Country: name, Revenue: round(t.revenue), Profit: round(t.profit)})
	}
	sort.Slice(summary.ByCountry, func(i, j int) bool { return summary.ByCountry[i].Revenue > summary.ByCountry[j].Revenue })

	for name, t := range bySegment {
		summary.BySegment = append(summary.BySegment, SegmentKPI{Segment: name, Revenue: round(t.revenue)})
	}
	sort.Slice(summary.BySegment, func(i, j int) bool { return summary.BySegment[i].Revenue > summary.BySegment[j].Revenue })

	for name, t := range byProduct {
		summary.ByProduct = append(summary.ByProduct, ProductKPI{
			Product: name,
			Revenue: round(t.revenue),
			Profit:  round(t.profit),
			Units:   round(t.units),
			Margin:  percent(t.profit, t.revenue),
		})
	}
	sort.Slice(summary.ByProduct, func(i, j int) bool { return summary.ByProduct[i].Revenue > summary.ByProduct[j].Revenue })

	for key, t := range byMonth {
		summary.ByMonth = append(summary.ByMonth, MonthKPI{Year: key.year, Month: key.month, Revenue: round(t.revenue), Profit: round(t.profit)})
	}
	sort.Slice(summary.ByMonth, func(i, j int) bool {
		if summary.ByMonth[i].Year != summary.ByMonth[j].Year {
			return summary.ByMonth[i].Year < summary.ByMonth[j].Year
		}
		return summary.ByMonth[i].Month < summary.ByMonth[j].Month
	})

	// Тренд строится только при достаточной истории
	if trend, err := RevenueTrend(summary.ByMonth, ForecastMonths); err == nil {
		summary.Trend = trend
	}

	return summary, nil
}

func readFacts(table models.Table) ([]factRow, error) {
	facts := make([]factRow, 0, len(table.Rows))
	for i, rec := range table.Records() {
		f := factRow{
			product:   rec["produto_sk"],
			geography: rec["geografia_sk"],
			segment:   rec["segmento_sk"],
			time:      rec["tempo_sk"],
		}
		for col, dst := range map[string]*decimal.Decimal{
			"unidades_vendidas":       &f.units,
			"receita_liquida":         &f.revenue,
			"custo_produtos_vendidos": &f.cogs,
			"lucro":                   &f.profit,
		} {
			raw := rec[col]
			if raw == "" {
				continue
			}
			d, err := decimal.NewFromString(raw)
			if err != nil {
				return nil, fmt.Errorf("строка %d, колонка %s: %w", i+1, col, err)
			}
			*dst = d
		}
		facts = append(facts, f)
	}
	return facts, nil
}

func lookup(table models.Table, keyCol, valueCol string) map[string]string {
	out := make(map[string]string, len(table.Rows))
	for _, rec := range table.Records() {
		if key := rec[keyCol]; key != "" {
			out[key] = rec[valueCol]
		}
	}
	return out
}

func percent(part, whole decimal.Decimal) float64 {
	if whole.IsZero() {
		return 0
	}
	return round(part.Div(whole).Mul(decimal.NewFromInt(100)))
}

func round(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}

package transform

import (
	"github.com/LilVoxy/finance_etl/ETL/models"
)

// FactBuilder соединяет записи Silver с измерениями
type FactBuilder struct{}

// Build создает по одной строке фактов на запись. Промах соединения дает nil
// внешний ключ, запись при этом не отбрасывается. Ключ факта равен позиции + 1.
func (FactBuilder) Build(records []models.FinancialRecord, schema *models.GoldSchema) []models.FinancialFact {
	timeKeys := make(map[string]int, len(schema.Time))
	for _, row := range schema.Time {
		timeKeys[row.FullDate.String()] = row.ID
	}

	facts := make([]models.FinancialFact, 0, len(records))
	for i, rec := range records {
		fact := models.FinancialFact{
			ID:          i + 1,
			UnitsSold:   rec.UnitsSold,
			NetRevenue:  rec.NetSales,
			CostOfGoods: rec.COGS,
			Profit:      rec.Profit,
		}

		fact.ProductID = keyOrNil(schema.Products.Lookup(ProductKeyOf(rec)))
		fact.GeographyID = keyOrNil(schema.Geography.Lookup(rec.Country))
		fact.SegmentID = keyOrNil(schema.Segments.Lookup(rec.Segment))
		fact.DiscountID = keyOrNil(schema.Discounts.Lookup(rec.DiscountBand))
		if key, ok := timeKeys[rec.Date]; ok {
			fact.TimeID = &key
		}

		facts = append(facts, fact)
	}

	return facts
}

func keyOrNil(key int, ok bool) *int {
	if !ok {
		return nil
	}
	return &key
}

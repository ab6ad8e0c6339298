package transform

import (
	"github.com/shopspring/decimal"

	"github.com/LilVoxy/finance_etl/ETL/config"
	"github.com/LilVoxy/finance_etl/ETL/models"
)

// Категории цены и объема
const (
	TierLow    = "Low"
	TierMedium = "Medium"
	TierHigh   = "High"
)

// ProductKeyOf натуральный ключ продукта записи
func ProductKeyOf(rec models.FinancialRecord) models.ProductKey {
	return models.ProductKey{Name: rec.Product, Price: models.FormatDecimal(rec.ManufacturingPrice)}
}

// NewProductDimensionBuilder продукт по паре (название, цена производства) с категорией цены
func NewProductDimensionBuilder(tiers config.PriceTiers) DimensionBuilder[models.ProductKey, models.ProductAttrs] {
	low := decimal.NewFromFloat(tiers.LowBelow)
	medium := decimal.NewFromFloat(tiers.MediumAtMost)

	return DimensionBuilder[models.ProductKey, models.ProductAttrs]{
		Name:     "dim_produto",
		Strategy: FirstSeenRank,
		Key:      ProductKeyOf,
		Classify: func([]models.FinancialRecord) func(models.ProductKey) models.ProductAttrs {
			return func(k models.ProductKey) models.ProductAttrs {
				price, _ := decimal.NewFromString(k.Price)
				tier := TierHigh
				switch {
				case price.LessThan(low):
					tier = TierLow
				case price.LessThanOrEqual(medium):
					tier = TierMedium
				}
				return models.ProductAttrs{ManufacturingPrice: price, PriceTier: tier}
			}
		},
	}
}

// NewGeographyDimensionBuilder страна с континентом и регионом из справочника
func NewGeographyDimensionBuilder(lookups config.Lookups) DimensionBuilder[string, models.GeographyAttrs] {
	return DimensionBuilder[string, models.GeographyAttrs]{
		Name:     "dim_geografia",
		Strategy: FirstSeenRank,
		Key:      func(rec models.FinancialRecord) string { return rec.Country },
		Classify: func([]models.FinancialRecord) func(string) models.GeographyAttrs {
			return func(country string) models.GeographyAttrs {
				if region, ok := lookups.Regions[country]; ok {
					return models.GeographyAttrs{Continent: region.Continent, Region: region.Region}
				}
				return models.GeographyAttrs{Continent: lookups.UnknownLabel, Region: lookups.UnknownLabel}
			}
		},
	}
}

// NewSegmentDimensionBuilder сегмент с потенциалом объема по сумме проданных единиц
func NewSegmentDimensionBuilder(tiers config.VolumeTiers) DimensionBuilder[string, models.SegmentAttrs] {
	high := decimal.NewFromFloat(tiers.HighAbove)
	medium := decimal.NewFromFloat(tiers.MediumAbove)

	return DimensionBuilder[string, models.SegmentAttrs]{
		Name:     "dim_segmento",
		Strategy: FirstSeenRank,
		Key:      func(rec models.FinancialRecord) string { return rec.Segment },
		Classify: func(records []models.FinancialRecord) func(string) models.SegmentAttrs {
			totals := make(map[string]decimal.Decimal)
			for _, rec := range records {
				totals[rec.Segment] = totals[rec.Segment].Add(rec.UnitsSold)
			}
			return func(segment string) models.SegmentAttrs {
				total := totals[segment]
				switch {
				case total.GreaterThan(high):
					return models.SegmentAttrs{VolumeTier: TierHigh}
				case total.GreaterThan(medium):
					return models.SegmentAttrs{VolumeTier: TierMedium}
				}
				return models.SegmentAttrs{VolumeTier: TierLow}
			}
		},
	}
}

// NewDiscountDimensionBuilder статические полосы скидок
func NewDiscountDimensionBuilder(bands []config.DiscountBand) DimensionBuilder[string, models.DiscountAttrs] {
	members := make([]StaticMember[string, models.DiscountAttrs], 0, len(bands))
	for _, band := range bands {
		members = append(members, StaticMember[string, models.DiscountAttrs]{
			Natural: band.Name,
			Attrs: models.DiscountAttrs{
				MinPercent: decimal.NewFromFloat(band.MinPercent),
				MaxPercent: decimal.NewFromFloat(band.MaxPercent),
			},
		})
	}

	return DimensionBuilder[string, models.DiscountAttrs]{
		Name:     "dim_desconto",
		Strategy: StaticEnumeration,
		Key:      func(rec models.FinancialRecord) string { return rec.DiscountBand },
		Static:   members,
	}
}

package transform

import (
	"fmt"
	"time"

	"github.com/LilVoxy/finance_etl/ETL/config"
	"github.com/LilVoxy/finance_etl/ETL/models"
	"github.com/LilVoxy/finance_etl/ETL/utils"
)

// Transformer координирует преобразования Bronze → Silver и Silver → Gold
type Transformer struct {
	logger           *utils.ETLLogger
	silverEngine     *SilverEngine
	timeDimProcessor *TimeDimensionProcessor
	productBuilder   DimensionBuilder[models.ProductKey, models.ProductAttrs]
	geoBuilder       DimensionBuilder[string, models.GeographyAttrs]
	segmentBuilder   DimensionBuilder[string, models.SegmentAttrs]
	discountBuilder  DimensionBuilder[string, models.DiscountAttrs]
	factBuilder      FactBuilder
}

// NewTransformer создает новый экземпляр Transformer
func NewTransformer(logger *utils.ETLLogger, lookups config.Lookups, dateLayout string) *Transformer {
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	return &Transformer{
		logger:           logger,
		silverEngine:     NewSilverEngine(logger, dateLayout),
		timeDimProcessor: NewTimeDimensionProcessor(logger, lookups.Holidays),
		productBuilder:   NewProductDimensionBuilder(lookups.PriceTiers),
		geoBuilder:       NewGeographyDimensionBuilder(lookups),
		segmentBuilder:   NewSegmentDimensionBuilder(lookups.VolumeTiers),
		discountBuilder:  NewDiscountDimensionBuilder(lookups.DiscountBands),
	}
}

// ToSilver выполняет очистку Bronze
func (t *Transformer) ToSilver(bronze models.RawTable) (*SilverResult, error) {
	result, err := t.silverEngine.Transform(bronze)
	if err != nil {
		t.logger.Error("Ошибка при преобразовании Bronze → Silver: %v", err)
		return nil, fmt.Errorf("ошибка преобразования Bronze → Silver: %w", err)
	}
	return result, nil
}

// BuildGold полностью перестраивает звездную схему по записям Silver
func (t *Transformer) BuildGold(records []models.FinancialRecord) (*models.GoldSchema, error) {
	startTime := time.Now()
	t.logger.Info("Начало фазы Transform (Silver → Gold)")

	if len(records) == 0 {
		return nil, fmt.Errorf("нет записей для построения схемы Gold")
	}

	schema := &models.GoldSchema{}

	// 1. Измерение продукта
	schema.Products = t.productBuilder.Build(records)
	t.logger.Info("Измерение %s: %d строк", schema.Products.Name, schema.Products.Len())

	// 2. Измерение географии
	schema.Geography = t.geoBuilder.Build(records)
	t.logger.Info("Измерение %s: %d строк", schema.Geography.Name, schema.Geography.Len())

	// 3. Измерение сегмента
	schema.Segments = t.segmentBuilder.Build(records)
	t.logger.Info("Измерение %s: %d строк", schema.Segments.Name, schema.Segments.Len())

	// 4. Измерение скидки
	schema.Discounts = t.discountBuilder.Build(records)
	t.logger.Info("Измерение %s: %d строк", schema.Discounts.Name, schema.Discounts.Len())

	// 5. Измерение времени
	schema.Time = t.timeDimProcessor.BuildFromRecords(records)
	t.logger.Info("Измерение %s: %d строк", TableTime, len(schema.Time))

	// 6. Таблица фактов
	schema.Facts = t.factBuilder.Build(records, schema)

	misses := 0
	for _, fact := range schema.Facts {
		if fact.ProductID == nil || fact.GeographyID == nil || fact.SegmentID == nil ||
			fact.DiscountID == nil || fact.TimeID == nil {
			misses++
		}
	}
	if misses > 0 {
		t.logger.Warn("Фактов с неразрешенными внешними ключами: %d", misses)
	}

	t.logger.LogStage("silver_to_gold", len(schema.Facts), time.Since(startTime))
	return schema, nil
}

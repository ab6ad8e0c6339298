package transform

import (
	"github.com/LilVoxy/finance_etl/ETL/models"
)

// KeyStrategy способ назначения суррогатных ключей
type KeyStrategy int

const (
	// FirstSeenRank ключи 1..N в порядке первого появления в данных
	FirstSeenRank KeyStrategy = iota

	// StaticEnumeration ключи 1..N по порядку статического перечня, данные не влияют
	StaticEnumeration
)

// StaticMember элемент статического перечня
type StaticMember[K comparable, A any] struct {
	Natural K
	Attrs   A
}

// DimensionBuilder обобщенный построитель измерения.
// Classify получает все записи и возвращает классификатор натурального ключа,
// так что агрегатные признаки (например, сумма объема по сегменту) считаются один раз.
type DimensionBuilder[K comparable, A any] struct {
	Name     string
	Strategy KeyStrategy
	Key      func(models.FinancialRecord) K
	Classify func(records []models.FinancialRecord) func(K) A
	Static   []StaticMember[K, A]
}

// Build строит измерение без дубликатов натуральных ключей
func (b DimensionBuilder[K, A]) Build(records []models.FinancialRecord) *models.DimensionTable[K, A] {
	dim := models.NewDimensionTable[K, A](b.Name)

	switch b.Strategy {
	case StaticEnumeration:
		for _, m := range b.Static {
			dim.Add(m.Natural, m.Attrs)
		}
	default:
		classify := b.Classify(records)
		for _, rec := range records {
			natural := b.Key(rec)
			if _, seen := dim.Lookup(natural); seen {
				continue
			}
			dim.Add(natural, classify(natural))
		}
	}

	return dim
}

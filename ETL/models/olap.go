package models

import (
	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// DimensionRow строка измерения: суррогатный ключ, натуральный ключ и атрибуты
type DimensionRow[K comparable, A any] struct {
	Key     int
	Natural K
	Attrs   A
}

// DimensionTable измерение с плотными ключами 1..N в порядке первого появления
type DimensionTable[K comparable, A any] struct {
	Name  string
	Rows  []DimensionRow[K, A]
	index map[K]int
}

// NewDimensionTable создает пустое измерение
func NewDimensionTable[K comparable, A any](name string) *DimensionTable[K, A] {
	return &DimensionTable[K, A]{
		Name:  name,
		index: make(map[K]int),
	}
}

// Add добавляет натуральный ключ, если его еще нет, и возвращает суррогатный ключ
func (d *DimensionTable[K, A]) Add(natural K, attrs A) int {
	if key, ok := d.index[natural]; ok {
		return key
	}
	key := len(d.Rows) + 1
	d.Rows = append(d.Rows, DimensionRow[K, A]{Key: key, Natural: natural, Attrs: attrs})
	d.index[natural] = key
	return key
}

// Lookup ищет суррогатный ключ по натуральному
func (d *DimensionTable[K, A]) Lookup(natural K) (int, bool) {
	if d == nil {
		return 0, false
	}
	key, ok := d.index[natural]
	return key, ok
}

// Len количество строк измерения
func (d *DimensionTable[K, A]) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Rows)
}

// ProductKey составной натуральный ключ продукта: название и цена производства
type ProductKey struct {
	Name  string
	Price string
}

// ProductAttrs атрибуты измерения продукта
type ProductAttrs struct {
	ManufacturingPrice decimal.Decimal
	PriceTier          string // "Low", "Medium", "High"
}

// GeographyAttrs атрибуты измерения географии
type GeographyAttrs struct {
	Continent string
	Region    string
}

// SegmentAttrs атрибуты измерения сегмента
type SegmentAttrs struct {
	VolumeTier string // "High", "Medium", "Low"
}

// DiscountAttrs атрибуты измерения скидки (проценты)
type DiscountAttrs struct {
	MinPercent decimal.Decimal
	MaxPercent decimal.Decimal
}

// Типы измерений
type (
	ProductDimension   = DimensionTable[ProductKey, ProductAttrs]
	GeographyDimension = DimensionTable[string, GeographyAttrs]
	SegmentDimension   = DimensionTable[string, SegmentAttrs]
	DiscountDimension  = DimensionTable[string, DiscountAttrs]
)

// TimeDimension представляет временное измерение в OLAP
type TimeDimension struct {
	ID            int
	FullDate      civil.Date
	Year          int
	Month         int
	Day           int
	DayName       string
	Quarter       int
	FiscalQuarter int
	IsMonthEnd    bool
	IsQuarterEnd  bool
	IsYearEnd     bool
	IsHoliday     bool
}

// FinancialFact представляет строку таблицы фактов; nil ключ означает промах соединения
type FinancialFact struct {
	ID          int
	ProductID   *int
	GeographyID *int
	SegmentID   *int
	DiscountID  *int
	TimeID      *int
	UnitsSold   decimal.Decimal
	NetRevenue  decimal.Decimal
	CostOfGoods decimal.Decimal
	Profit      decimal.Decimal
}

// GoldSchema содержит звездную схему слоя Gold
type GoldSchema struct {
	Products  *ProductDimension
	Geography *GeographyDimension
	Segments  *SegmentDimension
	Discounts *DiscountDimension
	Time      []TimeDimension
	Facts     []FinancialFact
}

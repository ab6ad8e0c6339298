package models

import (
	"strconv"

	"github.com/shopspring/decimal"
)

// Имена колонок слоя Bronze (как в исходном файле)
const (
	BronzeSegment            = "Segment"
	BronzeCountry            = "Country"
	BronzeProduct            = "Product"
	BronzeDiscountBand       = "Discount Band"
	BronzeUnitsSold          = "Units Sold"
	BronzeManufacturingPrice = "Manufacturing Price"
	BronzeSalePrice          = "Sale Price"
	BronzeGrossSales         = "Gross Sales"
	BronzeDiscounts          = "Discounts"
	BronzeSales              = " Sales"
	BronzeCOGS               = "COGS"
	BronzeProfit             = "Profit"
	BronzeDate               = "Date"
	BronzeMonthNumber        = "Month Number"
	BronzeMonthName          = "Month Name"
	BronzeYear               = "Year"
)

// BronzeColumns обязательные колонки слоя Bronze в исходном порядке
var BronzeColumns = []string{
	BronzeSegment, BronzeCountry, BronzeProduct, BronzeDiscountBand,
	BronzeUnitsSold, BronzeManufacturingPrice, BronzeSalePrice, BronzeGrossSales,
	BronzeDiscounts, BronzeSales, BronzeCOGS, BronzeProfit,
	BronzeDate, BronzeMonthNumber, BronzeMonthName, BronzeYear,
}

// Имена колонок слоя Silver (после нормализации заголовков)
const (
	ColSegment            = "segment"
	ColCountry            = "country"
	ColProduct            = "product"
	ColDiscountBand       = "discount_band"
	ColUnitsSold          = "units_sold"
	ColManufacturingPrice = "manufacturing_price"
	ColSalePrice          = "sale_price"
	ColGrossSales         = "gross_sales"
	ColDiscounts          = "discounts"
	ColSales              = "sales"
	ColCOGS               = "cogs"
	ColProfit             = "profit"
	ColDate               = "date"
	ColMonthNumber        = "month_number"
	ColMonthName          = "month_name"
	ColYear               = "year"
)

// SilverColumns колонки слоя Silver в порядке записи
var SilverColumns = []string{
	ColSegment, ColCountry, ColProduct, ColDiscountBand,
	ColUnitsSold, ColManufacturingPrice, ColSalePrice, ColGrossSales,
	ColDiscounts, ColSales, ColCOGS, ColProfit,
	ColDate, ColMonthNumber, ColMonthName, ColYear,
}

// MonetaryColumns колонки, которые проходят денежный парсер
var MonetaryColumns = []string{
	ColUnitsSold, ColManufacturingPrice, ColSalePrice, ColGrossSales,
	ColDiscounts, ColSales, ColCOGS, ColProfit,
}

// RawTable представляет таблицу строк в том виде, в каком она прочитана из CSV
type RawTable struct {
	Header []string
	Rows   [][]string
}

// ColumnIndex возвращает индекс колонки по точному имени или -1
func (t RawTable) ColumnIndex(name string) int {
	for i, h := range t.Header {
		if h == name {
			return i
		}
	}
	return -1
}

// Value возвращает значение ячейки; отсутствующая ячейка дает пустую строку
func (t RawTable) Value(row int, column string) string {
	idx := t.ColumnIndex(column)
	if idx < 0 || row < 0 || row >= len(t.Rows) || idx >= len(t.Rows[row]) {
		return ""
	}
	return t.Rows[row][idx]
}

// Len количество строк данных
func (t RawTable) Len() int {
	return len(t.Rows)
}

// FinancialRecord запись слоя Silver: одна финансовая транзакция
type FinancialRecord struct {
	// Номер строки в исходном CSV (заголовок = строка 1)
	Line int `json:"linha" validate:"-"`

	Segment      string `json:"segment" validate:"required"`
	Country      string `json:"country" validate:"required,min=3,max=100"`
	Product      string `json:"product" validate:"required,min=3,max=50"`
	DiscountBand string `json:"discount_band" validate:"required"`

	UnitsSold          decimal.Decimal `json:"units_sold" validate:"gte=0"`
	ManufacturingPrice decimal.Decimal `json:"manufacturing_price" validate:"gte=0,lte=10000"`
	SalePrice          decimal.Decimal `json:"sale_price" validate:"gte=0,lte=50000"`
	GrossSales         decimal.Decimal `json:"gross_sales" validate:"gte=0"`
	Discounts          decimal.Decimal `json:"discounts" validate:"gte=0"`
	NetSales           decimal.Decimal `json:"sales" validate:"gte=0"`
	COGS               decimal.Decimal `json:"cogs" validate:"gte=0"`
	Profit             decimal.Decimal `json:"profit"`

	// Дата транзакции в формате YYYY-MM-DD; пустая строка если дата не распознана
	Date string `json:"date" validate:"isodate"`

	MonthNumber int    `json:"month_number" validate:"min=1,max=12"`
	MonthName   string `json:"month_name"`
	Year        int    `json:"year" validate:"min=2013,max=2030"`
}

// Field возвращает значение поля записи по имени колонки Silver
func (r FinancialRecord) Field(column string) string {
	switch column {
	case ColSegment:
		return r.Segment
	case ColCountry:
		return r.Country
	case ColProduct:
		return r.Product
	case ColDiscountBand:
		return r.DiscountBand
	case ColUnitsSold:
		return FormatDecimal(r.UnitsSold)
	case ColManufacturingPrice:
		return FormatDecimal(r.ManufacturingPrice)
	case ColSalePrice:
		return FormatDecimal(r.SalePrice)
	case ColGrossSales:
		return FormatDecimal(r.GrossSales)
	case ColDiscounts:
		return FormatDecimal(r.Discounts)
	case ColSales:
		return FormatDecimal(r.NetSales)
	case ColCOGS:
		return FormatDecimal(r.COGS)
	case ColProfit:
		return FormatDecimal(r.Profit)
	case ColDate:
		return r.Date
	case ColMonthNumber:
		return strconv.Itoa(r.MonthNumber)
	case ColMonthName:
		return r.MonthName
	case ColYear:
		return strconv.Itoa(r.Year)
	}
	return ""
}

// Values возвращает строку записи в порядке SilverColumns
func (r FinancialRecord) Values() []string {
	values := make([]string, len(SilverColumns))
	for i, col := range SilverColumns {
		values[i] = r.Field(col)
	}
	return values
}

// FormatDecimal форматирует денежное значение с двумя знаками после точки
func FormatDecimal(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// Table представляет выгружаемую таблицу: имя, колонки и строковые значения
type Table struct {
	Name    string
	Columns []string
	Rows    [][]string
}

// ColumnIndex возвращает индекс колонки или -1
func (t Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Records возвращает строки таблицы в виде словарей колонка → значение
func (t Table) Records() []map[string]string {
	out := make([]map[string]string, 0, len(t.Rows))
	for _, row := range t.Rows {
		rec := make(map[string]string, len(t.Columns))
		for i, col := range t.Columns {
			if i < len(row) {
				rec[col] = row[i]
			}
		}
		out = append(out, rec)
	}
	return out
}

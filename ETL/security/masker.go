package security

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash/fnv"
	"math/rand"

	"github.com/shopspring/decimal"

	"github.com/LilVoxy/finance_etl/ETL/models"
)

// MaskMethod способ маскирования числовых колонок
type MaskMethod string

const (
	MaskHashing  MaskMethod = "hashing"
	MaskScramble MaskMethod = "embaralhamento"
)

// ScrambleVariation максимальное относительное отклонение при перемешивании
const ScrambleVariation = 0.10

// AnonymizableColumns денежные колонки Silver, которые можно маскировать
var AnonymizableColumns = []string{
	models.ColManufacturingPrice, models.ColSalePrice, models.ColGrossSales,
	models.ColDiscounts, models.ColSales, models.ColCOGS, models.ColProfit,
}

// pseudonymColumns категориальные колонки и префикс псевдонима
var pseudonymColumns = map[string]string{
	models.ColCountry: "COUNTRY",
	"pais":            "COUNTRY",
	models.ColProduct: "PRODUCT",
	"nome_produto":    "PRODUCT",
}

// Masker необратимое маскирование для сред разработки
type Masker struct {
	salt  []byte
	noise func() float64
}

// NewMasker создает маскировщик с заданной солью
func NewMasker(salt []byte) *Masker {
	return &Masker{
		salt:  append([]byte(nil), salt...),
		noise: func() float64 { return rand.Float64()*2 - 1 },
	}
}

// OpenMasker загружает или создает соль по пути
func OpenMasker(saltPath string) (*Masker, error) {
	salt, err := LoadOrCreateSalt(saltPath)
	if err != nil {
		return nil, err
	}
	return NewMasker(salt), nil
}

// Hash hex SHA-256 от соли и значения
func (m *Masker) Hash(value string) string {
	h := sha256.New()
	h.Write(m.salt)
	h.Write([]byte(value))
	return hex.EncodeToString(h.Sum(nil))
}

// Scramble умножает значение на (1 + U(-10%, +10%)) и не дает ему стать отрицательным
func (m *Masker) Scramble(value decimal.Decimal) decimal.Decimal {
	factor := decimal.NewFromFloat(1 + m.noise()*ScrambleVariation)
	scrambled := value.Mul(factor).Round(2)
	if scrambled.IsNegative() {
		return decimal.Zero
	}
	return scrambled
}

// Pseudonym стабильный псевдоним вида PREFIX_n, n от 0 до 999
func Pseudonym(prefix, value string) string {
	h := fnv.New32a()
	h.Write([]byte(value))
	return fmt.Sprintf("%s_%d", prefix, h.Sum32()%1000)
}

// Anonymize маскирует числовые колонки и заменяет страну и продукт псевдонимами.
// При перемешивании нечисловые значения остаются как есть.
func (m *Masker) Anonymize(table models.Table, columns []string, method MaskMethod) (models.Table, error) {
	if method != MaskHashing && method != MaskScramble {
		return models.Table{}, fmt.Errorf("неизвестный метод маскирования: %q", method)
	}

	out := cloneTable(table)
	for _, col := range columns {
		idx := out.ColumnIndex(col)
		if idx < 0 {
			continue
		}
		for _, row := range out.Rows {
			if idx >= len(row) {
				continue
			}
			switch method {
			case MaskHashing:
				row[idx] = m.Hash(row[idx])
			case MaskScramble:
				if d, err := decimal.NewFromString(row[idx]); err == nil {
					row[idx] = models.FormatDecimal(m.Scramble(d))
				}
			}
		}
	}

	for col, prefix := range pseudonymColumns {
		idx := out.ColumnIndex(col)
		if idx < 0 {
			continue
		}
		for _, row := range out.Rows {
			if idx < len(row) {
				row[idx] = Pseudonym(prefix, row[idx])
			}
		}
	}
	return out, nil
}

package contract

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/LilVoxy/finance_etl/ETL/models"
)

// Допуск для арифметических тождеств (1 цент)
var tolerance = decimal.RequireFromString("0.01")

// ErrViolation запись нарушает контракт данных
var ErrViolation = errors.New("нарушение контракта данных")

// ViolationError содержит все нарушенные правила записи
type ViolationError struct {
	Line    int
	Reasons []string
}

func (e *ViolationError) Error() string {
	return fmt.Sprintf("строка %d: %s", e.Line, strings.Join(e.Reasons, "; "))
}

func (e *ViolationError) Unwrap() error {
	return ErrViolation
}

// Contract проверяет записи Silver по правилам контракта данных
type Contract struct {
	validate *validator.Validate
}

// New создает контракт с зарегистрированными правилами
func New() *Contract {
	v := validator.New()

	// Денежные значения сравниваются как числа
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})

	v.RegisterValidation("isodate", func(fl validator.FieldLevel) bool {
		_, err := time.Parse("2006-01-02", fl.Field().String())
		return err == nil
	})

	// Имена полей в сообщениях берутся из json-тегов
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	v.RegisterStructValidation(businessRules, models.FinancialRecord{})

	return &Contract{validate: v}
}

// businessRules правила, затрагивающие несколько полей
func businessRules(sl validator.StructLevel) {
	rec := sl.Current().Interface().(models.FinancialRecord)

	expectedSales := rec.GrossSales.Sub(rec.Discounts)
	if rec.NetSales.Sub(expectedSales).Abs().GreaterThan(tolerance) {
		sl.ReportError(rec.NetSales, "sales", "NetSales", "sales_identity", expectedSales.StringFixed(2))
	}

	expectedProfit := rec.NetSales.Sub(rec.COGS)
	if rec.Profit.Sub(expectedProfit).Abs().GreaterThan(tolerance) {
		sl.ReportError(rec.Profit, "profit", "Profit", "profit_identity", expectedProfit.StringFixed(2))
	}

	if rec.DiscountBand == "None" && rec.Discounts.GreaterThan(tolerance) {
		sl.ReportError(rec.Discounts, "discounts", "Discounts", "none_band_discount", "")
	}
}

// Validate возвращает nil для принятой записи или *ViolationError с причинами
func (c *Contract) Validate(rec models.FinancialRecord) error {
	err := c.validate.Struct(rec)
	if err == nil {
		return nil
	}

	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) {
		return fmt.Errorf("ошибка проверки контракта: %w", err)
	}

	violation := &ViolationError{Line: rec.Line}
	for _, fe := range fieldErrors {
		violation.Reasons = append(violation.Reasons, describe(fe, rec))
	}
	return violation
}

// ValidateBatch разделяет записи на принятые и отклоненные с причиной
func (c *Contract) ValidateBatch(records []models.FinancialRecord) ([]models.FinancialRecord, []models.ContractViolation) {
	valid := make([]models.FinancialRecord, 0, len(records))
	var rejected []models.ContractViolation

	for _, rec := range records {
		if err := c.Validate(rec); err != nil {
			rejected = append(rejected, models.ContractViolation{Record: rec, Reason: reasonOf(err)})
			continue
		}
		valid = append(valid, rec)
	}

	return valid, rejected
}

func reasonOf(err error) string {
	var violation *ViolationError
	if errors.As(err, &violation) {
		return strings.Join(violation.Reasons, "; ")
	}
	return err.Error()
}

// describe формирует причину отклонения для колонки motivo
func describe(fe validator.FieldError, rec models.FinancialRecord) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s: campo obrigatório", field)
	case "min", "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s: comprimento fora do limite (%s=%s)", field, fe.Tag(), fe.Param())
		}
		return fmt.Sprintf("%s: valor %v fora do limite (%s=%s)", field, fe.Value(), fe.Tag(), fe.Param())
	case "gte", "lte":
		return fmt.Sprintf("%s: valor %v fora do limite (%s=%s)", field, fe.Value(), fe.Tag(), fe.Param())
	case "isodate":
		return fmt.Sprintf("%s: Data inválida '%v'. Formato esperado: YYYY-MM-DD", field, fe.Value())
	case "sales_identity":
		return fmt.Sprintf("Sales inconsistente: %s != %s (Gross: %s, Desc: %s)",
			rec.NetSales.StringFixed(2), fe.Param(), rec.GrossSales.StringFixed(2), rec.Discounts.StringFixed(2))
	case "profit_identity":
		return fmt.Sprintf("Profit inconsistente: %s != %s (Sales: %s, COGS: %s)",
			rec.Profit.StringFixed(2), fe.Param(), rec.NetSales.StringFixed(2), rec.COGS.StringFixed(2))
	case "none_band_discount":
		return fmt.Sprintf("Inconsistência: discount_band='None' mas discounts=%s", rec.Discounts.StringFixed(2))
	}
	return fmt.Sprintf("%s: regra %s violada", field, fe.Tag())
}

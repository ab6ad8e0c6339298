package transform

import (
	"bytes"
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/LilVoxy/finance_etl/ETL/utils"
)

func TestMonetaryNormalizerParse(t *testing.T) {
	tests := []struct {
		name  string
		input interface{}
		want  string
	}{
		{name: "lakh grouping", input: " $5,29,550.00 ", want: "529550"},
		{name: "crore grouping", input: "71,50,000", want: "7150000"},
		{name: "dollar dash", input: " $- ", want: "0"},
		{name: "dollar dash with spaces", input: "$  -  ", want: "0"},
		{name: "nil", input: nil, want: "0"},
		{name: "empty string", input: "   ", want: "0"},
		{name: "standard grouping", input: " $32,370.00 ", want: "32370"},
		{name: "no currency", input: "1,618.50", want: "1618.5"},
		{name: "non breaking and zero width spaces", input: "\u00a0$\u200b3.00\u00a0", want: "3"},
		{name: "float passes through", input: 12.5, want: "12.5"},
		{name: "nan is zero", input: math.NaN(), want: "0"},
		{name: "int passes through", input: 7, want: "7"},
		{name: "decimal passes through", input: decimal.RequireFromString("-4533.75"), want: "-4533.75"},
		{name: "garbage is zero", input: "abc", want: "0"},
		{name: "parentheses are not handled here", input: "$(4,533.75)", want: "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := NewMonetaryNormalizer(utils.NewNopLogger())
			got := n.Parse(tt.input)
			assert.True(t, decimal.RequireFromString(tt.want).Equal(got), "got %s", got)
		})
	}
}

func TestMonetaryNormalizerStats(t *testing.T) {
	buf := &bytes.Buffer{}
	n := NewMonetaryNormalizer(utils.NewETLLoggerWithWriter(buf, false))

	n.ParseString(" $5,29,550.00 ")
	n.ParseString(" $- ")
	n.ParseString("oops")
	n.ParseString("")

	stats := n.Stats()
	assert.Equal(t, 1, stats.Parsed)
	assert.Equal(t, 1, stats.Lakh)
	assert.Equal(t, 1, stats.DollarDash)
	assert.Equal(t, 1, stats.Failures)
	assert.Equal(t, 1, stats.Empty)
	assert.Contains(t, buf.String(), "oops")
}

func TestResolvePolarity(t *testing.T) {
	tests := []struct {
		raw          string
		wantNegative bool
		wantInner    string
	}{
		{raw: "$(4,533.75)", wantNegative: true, wantInner: "4,533.75"},
		{raw: " $( 4,533.75 ) ", wantNegative: true, wantInner: "4,533.75"},
		{raw: "(100)", wantNegative: true, wantInner: "100"},
		{raw: "$32,370.00", wantNegative: false, wantInner: "$32,370.00"},
		{raw: " $16,185.00 ", wantNegative: false, wantInner: " $16,185.00 "},
		{raw: "$(abc)", wantNegative: false, wantInner: "$(abc)"},
		{raw: "", wantNegative: false, wantInner: ""},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			negative, inner := ResolvePolarity(tt.raw)
			assert.Equal(t, tt.wantNegative, negative)
			assert.Equal(t, tt.wantInner, inner)
		})
	}
}

func TestNormalizeHeader(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{input: " Product ", want: "product"},
		{input: "Discount Band", want: "discount_band"},
		{input: "  COGS  ", want: "cogs"},
		{input: " Sales", want: "sales"},
		{input: "Month  Number", want: "month_number"},
		{input: "Gross Sales ($)", want: "gross_sales"},
		{input: "__x__", want: "x"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := NormalizeHeader(tt.input)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, NormalizeHeader(got), "повторная нормализация должна быть без изменений")
		})
	}
}

func TestNormalizeDate(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{raw: "01/01/2014", want: "2014-01-01"},
		{raw: "1/6/2014", want: "2014-06-01"},
		{raw: " 31/12/2013 ", want: "2013-12-31"},
		{raw: "2014-01-01", want: ""},
		{raw: "31/02/2014", want: ""},
		{raw: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeDate(tt.raw, "2/1/2006"))
		})
	}
}

package transform

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/LilVoxy/finance_etl/ETL/models"
)

// BuildComparisonReport формирует Markdown-таблицы "до/после" для выбранных строк.
// Строки за пределами таблицы пропускаются.
func BuildComparisonReport(bronze models.RawTable, silver *SilverResult, samples []int, generated time.Time) string {
	printer := message.NewPrinter(language.BrazilianPortuguese)

	var b strings.Builder
	b.WriteString("# TABELA COMPARATIVA - BRONZE vs SILVER\n\n")
	fmt.Fprintf(&b, "**Data**: %s\n\n", generated.Format("2006-01-02 15:04:05"))
	b.WriteString(printer.Sprintf("**Registros**: %d Bronze → %d Silver\n\n", bronze.Len(), len(silver.Records)))
	b.WriteString("**Transformações Aplicadas**: 4 regras de limpeza semântica\n\n")
	b.WriteString("---\n\n")

	for _, idx := range samples {
		if idx < 0 || idx >= bronze.Len() || idx >= len(silver.Records) {
			continue
		}

		fmt.Fprintf(&b, "## Registro #%d (Linha do CSV)\n\n", idx+2)
		b.WriteString("| Campo | BRONZE (Antes) | SILVER (Depois) |\n")
		b.WriteString("|-------|----------------|------------------|\n")

		record := silver.Records[idx]
		for col, rawName := range bronze.Header {
			normalized := NormalizeHeader(rawName)

			before := ""
			if col < len(bronze.Rows[idx]) {
				before = bronze.Rows[idx][col]
			}
			after := record.Field(normalized)
			if !isSilverColumn(normalized) {
				after = "N/A"
			}

			fmt.Fprintf(&b, "| %s → %s | `%s` | `%s` |\n",
				rawName, normalized, escapePipes(before), escapePipes(after))
		}

		b.WriteString("\n---\n\n")
	}

	return b.String()
}

// WriteComparisonReport записывает отчет в файл, создавая каталог
func WriteComparisonReport(path string, bronze models.RawTable, silver *SilverResult, samples []int) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("ошибка создания каталога отчетов: %w", err)
	}
	report := BuildComparisonReport(bronze, silver, samples, time.Now())
	if err := os.WriteFile(path, []byte(report), 0o644); err != nil {
		return fmt.Errorf("ошибка записи сравнительного отчета: %w", err)
	}
	return nil
}

func escapePipes(value string) string {
	return strings.ReplaceAll(value, "|", `\|`)
}

func isSilverColumn(name string) bool {
	for _, col := range models.SilverColumns {
		if col == name {
			return true
		}
	}
	return false
}

package extractors

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/LilVoxy/finance_etl/ETL/models"
)

var (
	// ErrEmptyFile файл не содержит даже строки заголовка
	ErrEmptyFile = errors.New("пустой CSV-файл")

	// ErrMissingColumns в заголовке нет обязательных колонок
	ErrMissingColumns = errors.New("отсутствуют обязательные колонки")
)

// newCSVReader создает CSV-читатель, который декодирует UTF-8 и отбрасывает BOM
func newCSVReader(r io.Reader) *csv.Reader {
	decoded := transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
	reader := csv.NewReader(decoded)
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1
	return reader
}

// ReadTable читает CSV целиком; заголовки и значения сохраняются без изменений
func ReadTable(r io.Reader) (models.RawTable, error) {
	reader := newCSVReader(r)

	header, err := reader.Read()
	if err == io.EOF {
		return models.RawTable{}, ErrEmptyFile
	}
	if err != nil {
		return models.RawTable{}, fmt.Errorf("ошибка чтения заголовка CSV: %w", err)
	}

	table := models.RawTable{Header: header}
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return table, fmt.Errorf("ошибка чтения строки CSV %d: %w", len(table.Rows)+2, err)
		}
		if isBlankRecord(record) {
			continue
		}
		table.Rows = append(table.Rows, record)
	}

	return table, nil
}

// ReadTableFile открывает файл и читает его как CSV
func ReadTableFile(path string) (models.RawTable, error) {
	file, err := os.Open(path)
	if err != nil {
		return models.RawTable{}, fmt.Errorf("не удалось открыть %s: %w", path, err)
	}
	defer file.Close()

	table, err := ReadTable(file)
	if err != nil {
		return table, fmt.Errorf("%s: %w", path, err)
	}
	return table, nil
}

// RequireColumns проверяет наличие обязательных колонок (точное совпадение имен)
func RequireColumns(header []string, required []string) error {
	present := make(map[string]bool, len(header))
	for _, h := range header {
		present[h] = true
	}

	var missing []string
	for _, col := range required {
		if !present[col] {
			missing = append(missing, fmt.Sprintf("%q", col))
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", "))
	}
	return nil
}

func isBlankRecord(record []string) bool {
	for _, v := range record {
		if v != "" {
			return false
		}
	}
	return true
}

package contract

import (
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"github.com/LilVoxy/finance_etl/ETL/models"
	"github.com/LilVoxy/finance_etl/ETL/utils"
)

// QuarantineFileName имя файла карантина для момента времени
func QuarantineFileName(now time.Time) string {
	return fmt.Sprintf("contract_violations_%s.csv", now.Format("20060102_150405"))
}

// WriteQuarantine записывает отклоненные записи с номером строки и причиной.
// Пустой список ничего не пишет и возвращает пустой путь.
func WriteQuarantine(dir string, violations []models.ContractViolation, now time.Time) (string, error) {
	if len(violations) == 0 {
		return "", nil
	}
	header := append([]string{"linha"}, models.SilverColumns...)
	header = append(header, "motivo")

	rows := make([][]string, 0, len(violations))
	for _, v := range violations {
		row := append([]string{strconv.Itoa(v.Record.Line)}, v.Record.Values()...)
		rows = append(rows, append(row, v.Reason))
	}

	path := filepath.Join(dir, QuarantineFileName(now))
	if err := utils.WriteCSVFile(path, header, rows); err != nil {
		return "", fmt.Errorf("ошибка записи файла карантина: %w", err)
	}
	return path, nil
}

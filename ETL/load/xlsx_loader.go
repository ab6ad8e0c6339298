package load

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"github.com/LilVoxy/finance_etl/ETL/models"
	"github.com/LilVoxy/finance_etl/ETL/utils"
)

// XLSXLoader записывает все таблицы в одну книгу, по листу на таблицу
type XLSXLoader struct {
	path   string
	logger *utils.ETLLogger
}

// NewXLSXLoader создает новый экземпляр XLSXLoader
func NewXLSXLoader(path string, logger *utils.ETLLogger) *XLSXLoader {
	return &XLSXLoader{path: path, logger: logger}
}

// Name имя цели
func (l *XLSXLoader) Name() string {
	return "xlsx"
}

// Load создает книгу заново при каждом запуске
func (l *XLSXLoader) Load(tables []models.Table) error {
	if len(tables) == 0 {
		return nil
	}

	f := excelize.NewFile()
	defer f.Close()

	for i, table := range tables {
		sheet := table.Name
		if i == 0 {
			if err := f.SetSheetName("Sheet1", sheet); err != nil {
				return fmt.Errorf("ошибка переименования листа %s: %w", sheet, err)
			}
		} else if _, err := f.NewSheet(sheet); err != nil {
			return fmt.Errorf("ошибка создания листа %s: %w", sheet, err)
		}

		writer, err := f.NewStreamWriter(sheet)
		if err != nil {
			return fmt.Errorf("ошибка открытия листа %s: %w", sheet, err)
		}

		if err := writer.SetRow("A1", toCells(table.Columns)); err != nil {
			return fmt.Errorf("ошибка записи заголовка листа %s: %w", sheet, err)
		}
		for r, row := range table.Rows {
			cell, err := excelize.CoordinatesToCellName(1, r+2)
			if err != nil {
				return err
			}
			if err := writer.SetRow(cell, toCells(row)); err != nil {
				return fmt.Errorf("ошибка записи строки %d листа %s: %w", r+1, sheet, err)
			}
		}
		if err := writer.Flush(); err != nil {
			return fmt.Errorf("ошибка сохранения листа %s: %w", sheet, err)
		}
	}

	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("ошибка создания каталога %s: %w", filepath.Dir(l.path), err)
	}
	if err := f.SaveAs(l.path); err != nil {
		return fmt.Errorf("ошибка сохранения книги %s: %w", l.path, err)
	}
	l.logger.Info("Книга Gold сохранена: %s (%d листов)", l.path, len(tables))
	return nil
}

func toCells(values []string) []interface{} {
	cells := make([]interface{}, len(values))
	for i, v := range values {
		cells[i] = v
	}
	return cells
}

package load

import (
	"path/filepath"

	"github.com/LilVoxy/finance_etl/ETL/models"
	"github.com/LilVoxy/finance_etl/ETL/utils"
)

// CSVLoader записывает каждую таблицу в <dir>/<имя>.csv
type CSVLoader struct {
	dir    string
	logger *utils.ETLLogger
}

// NewCSVLoader создает новый экземпляр CSVLoader
func NewCSVLoader(dir string, logger *utils.ETLLogger) *CSVLoader {
	return &CSVLoader{dir: dir, logger: logger}
}

// Name имя цели
func (l *CSVLoader) Name() string {
	return "csv"
}

// TablePath путь к файлу таблицы
func (l *CSVLoader) TablePath(name string) string {
	return filepath.Join(l.dir, name+".csv")
}

// Load записывает таблицы
func (l *CSVLoader) Load(tables []models.Table) error {
	for _, table := range tables {
		path := l.TablePath(table.Name)
		if err := utils.WriteCSVFile(path, table.Columns, table.Rows); err != nil {
			return err
		}
		l.logger.Debug("Таблица %s записана: %s (%d строк)", table.Name, path, len(table.Rows))
	}
	return nil
}

package load

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/LilVoxy/finance_etl/ETL/models"
	"github.com/LilVoxy/finance_etl/ETL/utils"
)

// decimalColumns денежные колонки и проценты Gold
var decimalColumns = map[string]bool{
	"preco_fabricacao":        true,
	"percentual_minimo":       true,
	"percentual_maximo":       true,
	"unidades_vendidas":       true,
	"receita_liquida":         true,
	"custo_produtos_vendidos": true,
	"lucro":                   true,
}

var intColumns = map[string]bool{
	"ano": true, "mes": true, "dia": true, "trimestre": true, "trimestre_fiscal": true,
}

var boolColumns = map[string]bool{
	"fim_de_mes": true, "fim_de_trimestre": true, "fim_de_ano": true, "feriado_bancario": true,
}

// WarehouseLoader отвечает за загрузку таблиц Gold в хранилище MySQL
type WarehouseLoader struct {
	db     *sql.DB
	logger *utils.ETLLogger
}

// NewWarehouseLoader создает новый экземпляр WarehouseLoader
func NewWarehouseLoader(db *sql.DB, logger *utils.ETLLogger) *WarehouseLoader {
	return &WarehouseLoader{
		db:     db,
		logger: logger,
	}
}

// Name имя цели
func (l *WarehouseLoader) Name() string {
	return "warehouse"
}

// Load полностью перезагружает каждую таблицу в отдельной транзакции
func (l *WarehouseLoader) Load(tables []models.Table) error {
	for _, table := range tables {
		if err := l.loadTable(table); err != nil {
			return err
		}
	}
	return nil
}

// columnType SQL-тип колонки по ее имени
func columnType(name string) string {
	switch {
	case strings.HasSuffix(name, "_sk"):
		return "INT NULL"
	case decimalColumns[name]:
		return "DECIMAL(18,2) NULL"
	case intColumns[name]:
		return "INT NULL"
	case boolColumns[name]:
		return "TINYINT(1) NULL"
	case name == "data_completa":
		return "DATE NULL"
	default:
		return "VARCHAR(255) NULL"
	}
}

// CreateTableSQL DDL таблицы Gold; первая колонка служит первичным ключом
func CreateTableSQL(table models.Table) string {
	defs := make([]string, 0, len(table.Columns)+1)
	for _, col := range table.Columns {
		defs = append(defs, fmt.Sprintf("`%s` %s", col, columnType(col)))
	}
	if len(table.Columns) > 0 {
		defs = append(defs, fmt.Sprintf("PRIMARY KEY (`%s`)", table.Columns[0]))
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS `%s` (\n\t%s\n)", table.Name, strings.Join(defs, ",\n\t"))
}

// sqlValue пустая строка становится NULL, True/False становятся 1/0
func sqlValue(column, value string) interface{} {
	if value == "" {
		return nil
	}
	if boolColumns[column] {
		return value == "True"
	}
	return value
}

func (l *WarehouseLoader) loadTable(table models.Table) error {
	startTime := time.Now()
	l.logger.Info("Начало загрузки таблицы %s (всего: %d)", table.Name, len(table.Rows))

	if _, err := l.db.Exec(CreateTableSQL(table)); err != nil {
		return fmt.Errorf("ошибка при создании таблицы %s: %w", table.Name, err)
	}

	quoted := make([]string, len(table.Columns))
	placeholders := make([]string, len(table.Columns))
	for i, col := range table.Columns {
		quoted[i] = "`" + col + "`"
		placeholders[i] = "?"
	}

	// Начинаем транзакцию
	tx, err := l.db.Begin()
	if err != nil {
		return fmt.Errorf("ошибка при начале транзакции: %w", err)
	}

	if _, err := tx.Exec(fmt.Sprintf("DELETE FROM `%s`", table.Name)); err != nil {
		tx.Rollback()
		return fmt.Errorf("ошибка при очистке таблицы %s: %w", table.Name, err)
	}

	stmt, err := tx.Prepare(fmt.Sprintf("INSERT INTO `%s` (%s) VALUES (%s)",
		table.Name, strings.Join(quoted, ", "), strings.Join(placeholders, ", ")))
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("ошибка при подготовке запроса: %w", err)
	}
	defer stmt.Close()

	processed := 0
	errors := 0

	for i, row := range table.Rows {
		args := make([]interface{}, len(table.Columns))
		for c, col := range table.Columns {
			if c < len(row) {
				args[c] = sqlValue(col, row[c])
			}
		}
		if _, err := stmt.Exec(args...); err != nil {
			l.logger.Error("Ошибка при вставке строки %d в %s: %v", i+1, table.Name, err)
			errors++
			continue
		}

		processed++

		// Логируем прогресс каждые 1000 строк
		if processed%1000 == 0 {
			l.logger.Debug("Загружено %d из %d строк %s...", processed, len(table.Rows), table.Name)
		}
	}

	// Если были ошибки, откатываем транзакцию
	if errors > 0 {
		tx.Rollback()
		return fmt.Errorf("произошло %d ошибок при загрузке таблицы %s", errors, table.Name)
	}

	if err := tx.Commit(); err != nil {
		tx.Rollback()
		return fmt.Errorf("ошибка при фиксации транзакции: %w", err)
	}

	l.logger.Info("Загрузка таблицы %s завершена. Загружено записей: %d. Длительность: %v",
		table.Name, processed, time.Since(startTime))
	return nil
}

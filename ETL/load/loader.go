package load

import (
	"github.com/LilVoxy/finance_etl/ETL/models"
)

// Loader интерфейс для выгрузки таблиц Gold в целевое хранилище
type Loader interface {
	// Name имя цели для журналов и аудита
	Name() string

	// Load выгружает таблицы в порядке следования
	Load(tables []models.Table) error
}

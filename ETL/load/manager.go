package load

import (
	"fmt"
	"time"

	"github.com/LilVoxy/finance_etl/ETL/models"
	"github.com/LilVoxy/finance_etl/ETL/security"
	"github.com/LilVoxy/finance_etl/ETL/utils"
)

// LoadManager отвечает за управление процессом выгрузки Gold по всем целям
type LoadManager struct {
	logger  *utils.ETLLogger
	auditor *security.Auditor
	loaders []Loader
}

// NewLoadManager создает новый экземпляр LoadManager
func NewLoadManager(logger *utils.ETLLogger, auditor *security.Auditor, loaders ...Loader) *LoadManager {
	return &LoadManager{
		logger:  logger,
		auditor: auditor,
		loaders: loaders,
	}
}

// Loaders зарегистрированные цели
func (m *LoadManager) Loaders() []Loader {
	return m.loaders
}

// Load выполняет фазу загрузки ETL-процесса; каждая запись проходит через аудит
func (m *LoadManager) Load(tables []models.Table) error {
	startTime := time.Now()
	m.logger.Info("Начало фазы Load (Загрузка данных)")

	for i, loader := range m.loaders {
		m.logger.Info("%d. Загрузка в %s...", i+1, loader.Name())
		_, err := security.Run(m.auditor, security.OpWrite, "load_"+loader.Name(), tableNames(tables), func() ([]models.Table, error) {
			return tables, loader.Load(tables)
		})
		if err != nil {
			m.logger.Error("Ошибка при загрузке в %s: %v", loader.Name(), err)
			return fmt.Errorf("ошибка при загрузке в %s: %w", loader.Name(), err)
		}
	}

	m.logger.Info("Фаза Load завершена. Длительность: %v", time.Since(startTime))
	return nil
}

func tableNames(tables []models.Table) []string {
	names := make([]string, len(tables))
	for i, t := range tables {
		names[i] = t.Name
	}
	return names
}

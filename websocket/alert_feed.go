package websocket

import (
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/LilVoxy/finance_etl/ETL/anomaly"
	"github.com/LilVoxy/finance_etl/ETL/utils"
)

// AlertFeed опрашивает каталог отчетов и рассылает новый отчет через менеджер
type AlertFeed struct {
	manager   *Manager
	dir       string
	interval  time.Duration
	logger    *utils.ETLLogger
	scheduler *gocron.Scheduler

	mu       sync.Mutex
	lastPath string
}

// NewAlertFeed создает опрос каталога отчетов об аномалиях
func NewAlertFeed(manager *Manager, dir string, interval time.Duration, logger *utils.ETLLogger) *AlertFeed {
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	return &AlertFeed{
		manager:  manager,
		dir:      dir,
		interval: interval,
		logger:   logger,
	}
}

// Poll проверяет каталог один раз; возвращает true, если был разослан новый отчет
func (f *AlertFeed) Poll() (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	report, path, err := anomaly.LatestAlertReport(f.dir)
	if err != nil {
		return false, err
	}
	if report == nil || path == f.lastPath {
		return false, nil
	}

	if err := f.manager.PublishReport(path, report); err != nil {
		return false, err
	}
	f.lastPath = path
	f.logger.Info("Разослан отчет об аномалиях %s (%d алертов)", path, report.Total)
	return true, nil
}

// Start запускает периодический опрос
func (f *AlertFeed) Start() error {
	f.scheduler = gocron.NewScheduler(time.UTC)
	f.scheduler.SingletonModeAll()

	_, err := f.scheduler.Every(f.interval).Do(func() {
		if _, err := f.Poll(); err != nil {
			f.logger.Error("Ошибка опроса отчетов об аномалиях: %v", err)
		}
	})
	if err != nil {
		return fmt.Errorf("ошибка при настройке опроса отчетов: %w", err)
	}

	f.scheduler.StartAsync()
	f.logger.Info("Опрос отчетов об аномалиях запущен с интервалом %v", f.interval)
	return nil
}

// Stop останавливает опрос
func (f *AlertFeed) Stop() {
	if f.scheduler != nil {
		f.scheduler.Stop()
	}
}

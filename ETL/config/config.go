package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// EnvPrefix префикс переменных окружения для переопределения конфигурации
const EnvPrefix = "FIN_ETL"

// ETLConfig содержит конфигурацию для ETL-процесса
type ETLConfig struct {
	// Пути к файлам и каталогам слоев Bronze/Silver/Gold
	Paths PathsConfig `yaml:"paths" envconfig:"PATHS"`

	// Параметры конвейера
	Pipeline PipelineConfig `yaml:"pipeline" envconfig:"PIPELINE"`

	// Конфигурация хранилища (MySQL) для загрузки Gold
	Warehouse DatabaseConfig `yaml:"warehouse" envconfig:"WAREHOUSE"`

	// Конфигурация сервера отчетов
	Server ServerConfig `yaml:"server" envconfig:"SERVER"`

	// Пороговые значения детектора аномалий
	Anomaly AnomalyConfig `yaml:"anomaly" envconfig:"ANOMALY"`

	// Включение/отключение подробного логирования
	EnableDetailedLogging bool `yaml:"enable_detailed_logging" envconfig:"DETAILED_LOGGING"`
}

// PathsConfig содержит расположение входных и выходных артефактов
type PathsConfig struct {
	BronzeFile    string `yaml:"bronze_file" envconfig:"BRONZE_FILE" validate:"required"`
	SilverFile    string `yaml:"silver_file" envconfig:"SILVER_FILE" validate:"required"`
	GoldDir       string `yaml:"gold_dir" envconfig:"GOLD_DIR" validate:"required"`
	ReportsDir    string `yaml:"reports_dir" envconfig:"REPORTS_DIR" validate:"required"`
	QuarantineDir string `yaml:"quarantine_dir" envconfig:"QUARANTINE_DIR" validate:"required"`
	AlertsDir     string `yaml:"alerts_dir" envconfig:"ALERTS_DIR" validate:"required"`
	AuditDir      string `yaml:"audit_dir" envconfig:"AUDIT_DIR" validate:"required"`
	SecurityDir   string `yaml:"security_dir" envconfig:"SECURITY_DIR" validate:"required"`
	MetadataDB    string `yaml:"metadata_db" envconfig:"METADATA_DB" validate:"required"`
	LogsDir       string `yaml:"logs_dir" envconfig:"LOGS_DIR" validate:"required"`
	MetricsFile   string `yaml:"metrics_file" envconfig:"METRICS_FILE"`
	LookupsFile   string `yaml:"lookups_file" envconfig:"LOOKUPS_FILE"`
}

// PipelineConfig содержит параметры выполнения конвейера
type PipelineConfig struct {
	Name string `yaml:"name" envconfig:"NAME" validate:"required"`

	// Интервал запуска ETL в режиме планировщика
	RunInterval time.Duration `yaml:"run_interval" envconfig:"RUN_INTERVAL" validate:"gt=0"`

	// Формат даты в слое Bronze (layout Go)
	BronzeDateLayout string `yaml:"bronze_date_layout" envconfig:"BRONZE_DATE_LAYOUT" validate:"required"`

	// Прерывать запуск, если Bronze не прошел проверки качества
	StrictBronzeGate bool `yaml:"strict_bronze_gate" envconfig:"STRICT_BRONZE_GATE"`

	// Строки Bronze для сравнительного отчета
	SampleRows []int `yaml:"sample_rows" envconfig:"SAMPLE_ROWS"`

	// Чувствительные колонки в формате "таблица.колонка"
	SensitiveColumns []string `yaml:"sensitive_columns" envconfig:"SENSITIVE_COLUMNS"`

	// Экспорт Gold в книгу Excel
	ExportXLSX bool `yaml:"export_xlsx" envconfig:"EXPORT_XLSX"`
}

// DatabaseConfig содержит настройки подключения к базе данных
type DatabaseConfig struct {
	Enabled  bool   `yaml:"enabled" envconfig:"DB_ENABLED"`
	Driver   string `yaml:"driver" envconfig:"DB_DRIVER"`
	Host     string `yaml:"host" envconfig:"DB_HOST"`
	Port     int    `yaml:"port" envconfig:"DB_PORT"`
	User     string `yaml:"user" envconfig:"DB_USER"`
	Password string `yaml:"password" envconfig:"DB_PASSWORD"`
	DBName   string `yaml:"dbname" envconfig:"DB_DBNAME"`
}

// ServerConfig содержит настройки сервера отчетов
type ServerConfig struct {
	Address           string        `yaml:"address" envconfig:"ADDRESS" validate:"required"`
	RateLimitRPS      float64       `yaml:"rate_limit_rps" envconfig:"RATE_LIMIT_RPS" validate:"gte=0"`
	RateLimitBurst    int           `yaml:"rate_limit_burst" envconfig:"RATE_LIMIT_BURST" validate:"gte=0"`
	AlertPollInterval time.Duration `yaml:"alert_poll_interval" envconfig:"ALERT_POLL_INTERVAL" validate:"gt=0"`
}

// AnomalyConfig содержит пороги отклонения прибыли (в процентах)
type AnomalyConfig struct {
	FlagPercent          float64 `yaml:"flag_percent" envconfig:"FLAG_PERCENT" validate:"gt=0"`
	CriticalPercent      float64 `yaml:"critical_percent" envconfig:"CRITICAL_PERCENT" validate:"gtfield=FlagPercent"`
	BelowBaselinePercent float64 `yaml:"below_baseline_percent" envconfig:"BELOW_BASELINE_PERCENT" validate:"lt=0"`
}

// Значения конфигурации по умолчанию
var (
	DefaultPaths = PathsConfig{
		BronzeFile:    "data/01_bronze/Financials.csv",
		SilverFile:    "data/02_silver/Financials_Silver.csv",
		GoldDir:       "data/03_gold",
		ReportsDir:    "reports",
		QuarantineDir: "quarantine",
		AlertsDir:     "alerts",
		AuditDir:      "audit_logs",
		SecurityDir:   "security",
		MetadataDB:    "metadata/incremental_load.db",
		LogsDir:       "logs",
		MetricsFile:   "metrics/etl.prom",
	}

	DefaultWarehouseConfig = DatabaseConfig{
		Enabled: false,
		Driver:  "mysql",
		Host:    "localhost",
		Port:    3306,
		User:    "etl",
		DBName:  "finance_gold",
	}

	DefaultETLConfig = ETLConfig{
		Paths: DefaultPaths,
		Pipeline: PipelineConfig{
			Name:             "silver_to_gold",
			RunInterval:      1 * time.Hour,
			BronzeDateLayout: "2/1/2006",
			SampleRows:       []int{0, 100, 200, 300, 400},
			SensitiveColumns: []string{
				"dim_produto.preco_fabricacao",
				"fato_financeiro.custo_produtos_vendidos",
			},
			ExportXLSX: true,
		},
		Warehouse: DefaultWarehouseConfig,
		Server: ServerConfig{
			Address:           ":8090",
			RateLimitRPS:      20,
			RateLimitBurst:    40,
			AlertPollInterval: 30 * time.Second,
		},
		Anomaly: AnomalyConfig{
			FlagPercent:          100,
			CriticalPercent:      200,
			BelowBaselinePercent: -50,
		},
		EnableDetailedLogging: true,
	}
)

// GetConfig возвращает конфигурацию ETL по умолчанию
func GetConfig() ETLConfig {
	config := DefaultETLConfig
	config.Pipeline.SampleRows = append([]int(nil), DefaultETLConfig.Pipeline.SampleRows...)
	config.Pipeline.SensitiveColumns = append([]string(nil), DefaultETLConfig.Pipeline.SensitiveColumns...)
	return config
}

// Load собирает конфигурацию: значения по умолчанию, затем YAML-файл (если есть),
// затем переменные окружения с префиксом FIN_ETL
func Load(path string) (ETLConfig, error) {
	config := GetConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &config); err != nil {
				return config, fmt.Errorf("ошибка разбора файла конфигурации %s: %w", path, err)
			}
		case os.IsNotExist(err):
			// Файл не обязателен
		default:
			return config, fmt.Errorf("ошибка чтения файла конфигурации %s: %w", path, err)
		}
	}

	if err := envconfig.Process(EnvPrefix, &config); err != nil {
		return config, fmt.Errorf("ошибка чтения переменных окружения: %w", err)
	}

	if err := config.Validate(); err != nil {
		return config, err
	}

	return config, nil
}

// Validate проверяет обязательные поля и согласованность порогов
func (c ETLConfig) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("некорректная конфигурация: %w", err)
	}
	if c.Warehouse.Enabled && (c.Warehouse.Host == "" || c.Warehouse.DBName == "") {
		return fmt.Errorf("некорректная конфигурация: для хранилища нужны host и dbname")
	}
	return nil
}

// VaultPassphrase возвращает парольную фразу хранилища ключей, если она задана
func VaultPassphrase() string {
	return os.Getenv(EnvPrefix + "_VAULT_PASSPHRASE")
}

// MasterKeyPath путь к мастер-ключу шифрования
func (p PathsConfig) MasterKeyPath() string {
	return filepath.Join(p.SecurityDir, "master.key")
}

// SaltPath путь к соли для маскирования и вывода ключа
func (p PathsConfig) SaltPath() string {
	return filepath.Join(p.SecurityDir, "salt.key")
}

package utils

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

// ETLLogger представляет логгер для ETL-процесса
type ETLLogger struct {
	logger    zerolog.Logger
	file      *os.File
	isVerbose bool
}

// NewETLLogger создает логгер, который пишет в консоль и в дневной файл etl_log_YYYY-MM-DD.log
func NewETLLogger(logsDir string, verbose bool) (*ETLLogger, error) {
	if logsDir == "" {
		logsDir = "."
	}
	if err := os.MkdirAll(logsDir, 0o755); err != nil {
		return nil, fmt.Errorf("не удалось создать каталог логов: %w", err)
	}

	currentTime := time.Now().Format("2006-01-02")
	logFileName := filepath.Join(logsDir, fmt.Sprintf("etl_log_%s.log", currentTime))

	file, err := os.OpenFile(logFileName, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть или создать файл лога: %w", err)
	}

	console := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	l := newETLLogger(zerolog.MultiLevelWriter(console, file), verbose)
	l.file = file
	return l, nil
}

// NewETLLoggerWithWriter создает логгер с произвольным приемником (JSON-строки)
func NewETLLoggerWithWriter(w io.Writer, verbose bool) *ETLLogger {
	return newETLLogger(w, verbose)
}

// NewNopLogger возвращает логгер, который ничего не пишет
func NewNopLogger() *ETLLogger {
	return &ETLLogger{logger: zerolog.Nop()}
}

func newETLLogger(w io.Writer, verbose bool) *ETLLogger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	return &ETLLogger{
		logger:    zerolog.New(w).Level(level).With().Timestamp().Logger(),
		isVerbose: verbose,
	}
}

// Zerolog возвращает базовый zerolog-логгер для структурированных полей
func (l *ETLLogger) Zerolog() zerolog.Logger {
	return l.logger
}

// With возвращает дочерний логгер с дополнительными полями
func (l *ETLLogger) With(fields map[string]interface{}) *ETLLogger {
	ctx := l.logger.With()
	for k, v := range fields {
		ctx = ctx.Interface(k, v)
	}
	return &ETLLogger{logger: ctx.Logger(), isVerbose: l.isVerbose}
}

// Info логирует информационное сообщение
func (l *ETLLogger) Info(format string, v ...interface{}) {
	l.logger.Info().Msgf(format, v...)
}

// Warn логирует предупреждение
func (l *ETLLogger) Warn(format string, v ...interface{}) {
	l.logger.Warn().Msgf(format, v...)
}

// Error логирует сообщение об ошибке
func (l *ETLLogger) Error(format string, v ...interface{}) {
	l.logger.Error().Msgf(format, v...)
}

// Debug логирует отладочное сообщение (только если включен verbose режим)
func (l *ETLLogger) Debug(format string, v ...interface{}) {
	if !l.isVerbose {
		return
	}
	l.logger.Debug().Msgf(format, v...)
}

// LogETLStart логирует начало ETL-процесса
func (l *ETLLogger) LogETLStart() {
	l.Info("Начало выполнения ETL-процесса")
}

// LogETLComplete логирует завершение ETL-процесса
func (l *ETLLogger) LogETLComplete(startTime time.Time, silverRows, factRows, alerts int) {
	duration := time.Since(startTime)
	l.logger.Info().
		Dur("duration", duration).
		Int("silver_rows", silverRows).
		Int("fact_rows", factRows).
		Int("alerts", alerts).
		Msgf("ETL-процесс завершён. Длительность: %v", duration)
}

// LogExtractStart логирует начало фазы извлечения данных
func (l *ETLLogger) LogExtractStart() {
	l.Info("Начало фазы Extract (Извлечение данных)")
}

// LogExtractComplete логирует завершение фазы извлечения данных
func (l *ETLLogger) LogExtractComplete(rows int, duration time.Duration) {
	l.logger.Info().
		Int("rows", rows).
		Dur("duration", duration).
		Msgf("Фаза Extract завершена. Извлечено строк: %d", rows)
}

// LogStage логирует завершение произвольного шага конвейера
func (l *ETLLogger) LogStage(stage string, rows int, duration time.Duration) {
	l.logger.Info().
		Str("stage", stage).
		Int("rows", rows).
		Dur("duration", duration).
		Msgf("Шаг %s завершён", stage)
}

// Close закрывает файл лога, если он был открыт
func (l *ETLLogger) Close() error {
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}

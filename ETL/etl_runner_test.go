package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LilVoxy/finance_etl/ETL/config"
	"github.com/LilVoxy/finance_etl/ETL/extractors"
	"github.com/LilVoxy/finance_etl/ETL/models"
	"github.com/LilVoxy/finance_etl/ETL/quality"
	"github.com/LilVoxy/finance_etl/ETL/utils"
)

// Вторая строка нарушает равенство sales = gross - discounts и уходит в карантин
var bronzeRows = [][]string{
	{"Government", "Canada", "Carretera", "None", " $1,618.50 ", " $3.00 ", " $20.00 ", " $5,29,550.00 ", " $-   ", " $5,29,550.00 ", " $16,185.00 ", " $5,13,365.00 ", "01/01/2014", "1", " January ", "2014"},
	{"Midmarket", "France", "Paseo", "Low", " $921.00 ", " $10.00 ", " $15.00 ", " $13,815.00 ", " $276.30 ", " $13,539.00 ", " $18,073.75 ", " $(4,534.75)", "01/03/2014", "3", " March ", "2014"},
	{"Enterprise", "Germany", "Velo", "None", " $2,178.00 ", " $120.00 ", " $125.00 ", " $2,72,250.00 ", " $-  ", " $2,72,250.00 ", " $2,61,360.00 ", " $10,890.00 ", "01/06/2014", "6", " June ", "2014"},
	{"Small Business", "Mexico", "Amarilla", "Medium", " $1,545.00 ", " $260.00 ", " $300.00 ", " $4,63,500.00 ", " $32,445.00 ", " $4,31,055.00 ", " $3,86,250.00 ", " $44,805.00 ", "01/12/2013", "12", " December ", "2013"},
}

func testConfig(t *testing.T) config.ETLConfig {
	t.Helper()
	t.Setenv(config.EnvPrefix+"_VAULT_PASSPHRASE", "")

	dir := t.TempDir()
	cfg := config.GetConfig()
	cfg.Paths = config.PathsConfig{
		BronzeFile:    filepath.Join(dir, "bronze", "Financials.csv"),
		SilverFile:    filepath.Join(dir, "silver", "Financials_Silver.csv"),
		GoldDir:       filepath.Join(dir, "gold"),
		ReportsDir:    filepath.Join(dir, "reports"),
		QuarantineDir: filepath.Join(dir, "quarantine"),
		AlertsDir:     filepath.Join(dir, "alerts"),
		AuditDir:      filepath.Join(dir, "audit"),
		SecurityDir:   filepath.Join(dir, "security"),
		MetadataDB:    filepath.Join(dir, "metadata", "etl.db"),
		LogsDir:       filepath.Join(dir, "logs"),
		MetricsFile:   filepath.Join(dir, "metrics", "etl.prom"),
	}
	require.NoError(t, utils.WriteCSVFile(cfg.Paths.BronzeFile, models.BronzeColumns, bronzeRows))
	return cfg
}

func newTestRunner(t *testing.T, cfg config.ETLConfig) *ETLRunner {
	t.Helper()
	runner, err := NewETLRunner(cfg, utils.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(runner.Close)
	return runner
}

func TestExecuteETL(t *testing.T) {
	cfg := testConfig(t)
	runner := newTestRunner(t, cfg)
	ctx := context.Background()

	result, err := runner.ExecuteETL(ctx)
	require.NoError(t, err)

	assert.Equal(t, models.RunCounts{
		BronzeRows: 4, SilverRows: 4, ValidRows: 3, RejectedRows: 1, DeltaRows: 3,
	}, result.Counts)
	assert.FileExists(t, result.QuarantineFile)
	assert.FileExists(t, cfg.Paths.SilverFile)
	assert.FileExists(t, filepath.Join(cfg.Paths.ReportsDir, ComparisonReportName))
	assert.FileExists(t, filepath.Join(cfg.Paths.GoldDir, XLSXFileName))
	assert.FileExists(t, cfg.Paths.MetricsFile)
	assert.Len(t, result.SecureExports, 2)
	// Гейт качества в мягком режиме: отчет в карантине, запуск продолжен
	assert.Contains(t, result.QualityReport, cfg.Paths.QuarantineDir)

	facts, err := extractors.ReadTableFile(filepath.Join(cfg.Paths.GoldDir, "fato_financeiro.csv"))
	require.NoError(t, err)
	assert.Equal(t, 3, facts.Len())

	mark, err := runner.watermarks.GetMark(ctx, cfg.Pipeline.Name)
	require.NoError(t, err)
	require.NotNil(t, mark)
	assert.Equal(t, "2014-06-01T00:00:00", mark.LastTimestamp)

	last, err := runner.etlLogRepo.GetLastSuccessfulRun()
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, result.RunID, last.RunUUID)
	assert.Equal(t, 1, last.RejectedRows)

	// Повторный запуск по тем же данным не находит новых записей
	again, err := runner.ExecuteETL(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, again.Counts.DeltaRows)
	assert.Nil(t, again.Watermark)
}

func TestExecuteETLStrictGate(t *testing.T) {
	cfg := testConfig(t)
	cfg.Pipeline.StrictBronzeGate = true
	runner := newTestRunner(t, cfg)

	_, err := runner.ExecuteETL(context.Background())
	require.ErrorIs(t, err, quality.ErrBatchQuarantined)

	_, statErr := os.Stat(cfg.Paths.SilverFile)
	assert.True(t, os.IsNotExist(statErr))

	runs, err := runner.etlLogRepo.GetRecentRuns(1)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, models.RunStatusFailed, runs[0].Status)

	mark, err := runner.watermarks.GetMark(context.Background(), cfg.Pipeline.Name)
	require.NoError(t, err)
	assert.Nil(t, mark)
}

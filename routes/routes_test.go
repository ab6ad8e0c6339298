package routes

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LilVoxy/finance_etl/ETL/anomaly"
	"github.com/LilVoxy/finance_etl/ETL/config"
	"github.com/LilVoxy/finance_etl/ETL/kpi"
	"github.com/LilVoxy/finance_etl/ETL/metrics"
	"github.com/LilVoxy/finance_etl/ETL/models"
	"github.com/LilVoxy/finance_etl/ETL/quality"
	"github.com/LilVoxy/finance_etl/ETL/utils"
)

func writeGold(t *testing.T, dir string) {
	t.Helper()
	tables := []struct {
		name   string
		header []string
		rows   [][]string
	}{
		{"dim_produto", []string{"produto_sk", "nome_produto", "preco_fabricacao", "categoria_preco"}, [][]string{{"1", "Paseo", "10.00", "Low"}}},
		{"dim_geografia", []string{"geografia_sk", "pais", "continente", "regiao"}, [][]string{{"1", "France", "Europa", "Europa Ocidental"}}},
		{"dim_segmento", []string{"segmento_sk", "nome_segmento", "potencial_volume"}, [][]string{{"1", "Government", "High"}}},
		{"dim_desconto", []string{"desconto_sk", "faixa_desconto", "percentual_minimo", "percentual_maximo"}, [][]string{{"1", "None", "0.00", "0.00"}}},
		{"dim_tempo", []string{"tempo_sk", "data_completa", "ano", "mes"}, [][]string{{"1", "2014-03-01", "2014", "3"}}},
		{"fato_financeiro", []string{
			"fato_financeiro_sk", "produto_sk", "geografia_sk", "segmento_sk", "desconto_sk", "tempo_sk",
			"unidades_vendidas", "receita_liquida", "custo_produtos_vendidos", "lucro",
		}, [][]string{
			{"1", "1", "1", "1", "1", "1", "10.00", "150.00", "100.00", "50.00"},
			{"2", "1", "1", "1", "1", "1", "5.00", "50.00", "40.00", "10.00"},
		}},
	}
	for _, table := range tables {
		require.NoError(t, utils.WriteCSVFile(filepath.Join(dir, table.name+".csv"), table.header, table.rows))
	}
}

type fixture struct {
	router *mux.Router
	paths  config.PathsConfig
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	dir := t.TempDir()
	paths := config.PathsConfig{
		GoldDir:       filepath.Join(dir, "gold"),
		ReportsDir:    filepath.Join(dir, "reports"),
		QuarantineDir: filepath.Join(dir, "quarantine"),
		AlertsDir:     filepath.Join(dir, "alerts"),
	}

	db, err := config.ConnectMetadata(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo := models.NewSQLiteETLLogRepository(db)
	require.NoError(t, repo.CreateETLLogTable())
	start := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	id, err := repo.CreateLogEntry("run-1", start)
	require.NoError(t, err)
	require.NoError(t, repo.UpdateLogEntrySuccess(id, start.Add(3*time.Second), models.RunCounts{BronzeRows: 700, ValidRows: 700}))

	registry := prometheus.NewRegistry()
	registry.MustRegister(metrics.NewRunLogCollector(repo))

	router := mux.NewRouter()
	SetupRoutes(router, Dependencies{Paths: paths, RunLog: repo, Registry: registry})
	return fixture{router: router, paths: paths}
}

func (f fixture) get(t *testing.T, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestGoldTableHandler(t *testing.T) {
	f := newFixture(t)

	rec := f.get(t, "/api/gold/fato_financeiro")
	assert.Equal(t, http.StatusNotFound, rec.Code, "таблица еще не выгружена")

	writeGold(t, f.paths.GoldDir)

	tests := []struct {
		name     string
		path     string
		status   int
		wantRows int
	}{
		{name: "all rows", path: "/api/gold/fato_financeiro", status: http.StatusOK, wantRows: 2},
		{name: "limit", path: "/api/gold/fato_financeiro?limit=1", status: http.StatusOK, wantRows: 1},
		{name: "offset past end", path: "/api/gold/fato_financeiro?offset=5", status: http.StatusOK, wantRows: 0},
		{name: "bad limit", path: "/api/gold/fato_financeiro?limit=x", status: http.StatusBadRequest},
		{name: "unknown table", path: "/api/gold/users", status: http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.get(t, tt.path)
			require.Equal(t, tt.status, rec.Code)
			if tt.status != http.StatusOK {
				return
			}
			var body GoldTableResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
			assert.Equal(t, 2, body.Total)
			assert.Len(t, body.Rows, tt.wantRows)
		})
	}

	rec = f.get(t, "/api/gold/fato_financeiro?limit=1")
	var body GoldTableResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "150.00", body.Rows[0]["receita_liquida"])
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestKPIHandler(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, http.StatusNotFound, f.get(t, "/api/kpi").Code)

	writeGold(t, f.paths.GoldDir)
	rec := f.get(t, "/api/kpi")
	require.Equal(t, http.StatusOK, rec.Code)

	var summary kpi.Summary
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&summary))
	assert.Equal(t, 200.0, summary.Revenue)
	assert.Equal(t, 30.0, summary.GrossMargin)
	require.Len(t, summary.ByCountry, 1)
	assert.Equal(t, "France", summary.ByCountry[0].Country)
}

func TestLatestAlertsHandler(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, http.StatusNotFound, f.get(t, "/api/alerts/latest").Code)

	report := anomaly.BuildAlertReport([]models.Anomaly{
		{ID: "a1", Severity: models.SeverityCritical, Country: "France"},
	}, time.Now())
	_, err := anomaly.WriteAlertReport(f.paths.AlertsDir, report)
	require.NoError(t, err)

	rec := f.get(t, "/api/alerts/latest")
	require.Equal(t, http.StatusOK, rec.Code)
	var got models.AlertReport
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, 1, got.Total)
	assert.Equal(t, 1, got.Critical)
}

func TestLatestQualityHandler(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, http.StatusNotFound, f.get(t, "/api/quality/latest").Code)

	bronze := models.RawTable{
		Header: models.BronzeColumns,
		Rows: [][]string{{
			"Government", "Canada", "Carretera", "None", "1618.5", "3.00", "20.00", "32370.00",
			"0", "32370.00", "16185.00", "16185.00", "01/01/2014", "1", "January", "2014",
		}},
	}
	_, _, err := quality.NewValidator(nil).Gate(bronze, "Financials.csv", f.paths.QuarantineDir, f.paths.ReportsDir)
	require.NoError(t, err)

	rec := f.get(t, "/api/quality/latest")
	require.Equal(t, http.StatusOK, rec.Code)
	var got models.QualityReport
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.True(t, got.Success)
	assert.Equal(t, 1, got.RowCount)
}

func TestRunsHandler(t *testing.T) {
	f := newFixture(t)

	rec := f.get(t, "/api/runs?limit=5")
	require.Equal(t, http.StatusOK, rec.Code)
	var body RunsResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.Len(t, body.Runs, 1)
	assert.Equal(t, "run-1", body.Runs[0].RunUUID)
	assert.Equal(t, 1, body.Monitor.TotalSuccessfulRuns)

	assert.Equal(t, http.StatusBadRequest, f.get(t, "/api/runs?limit=0").Code)
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t)
	rec := f.get(t, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)

	data, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(data), "finance_etl_run_log_up 1")
	assert.Contains(t, string(data), `finance_etl_last_run_rows{stage="bronze"} 700`)
}

package models

import (
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDimensionTableDenseKeys(t *testing.T) {
	dim := NewDimensionTable[string, SegmentAttrs]("dim_segmento")

	assert.Equal(t, 1, dim.Add("Government", SegmentAttrs{VolumeTier: "High"}))
	assert.Equal(t, 2, dim.Add("Midmarket", SegmentAttrs{VolumeTier: "Low"}))
	assert.Equal(t, 1, dim.Add("Government", SegmentAttrs{VolumeTier: "ignored"}))
	assert.Equal(t, 2, dim.Len())

	key, ok := dim.Lookup("Midmarket")
	assert.True(t, ok)
	assert.Equal(t, 2, key)

	_, ok = dim.Lookup("Enterprise")
	assert.False(t, ok)
	assert.Equal(t, "High", dim.Rows[0].Attrs.VolumeTier)

	var missing *SegmentDimension
	assert.Equal(t, 0, missing.Len())
}

func TestFinancialRecordValues(t *testing.T) {
	rec := FinancialRecord{
		Segment:      "Government",
		Country:      "Canada",
		Product:      "Carretera",
		DiscountBand: "None",
		UnitsSold:    decimal.RequireFromString("1618.5"),
		Profit:       decimal.RequireFromString("-4533.75"),
		Date:         "2014-01-01",
		MonthNumber:  1,
		MonthName:    "January",
		Year:         2014,
	}

	values := rec.Values()
	require.Len(t, values, len(SilverColumns))
	assert.Equal(t, "1618.50", rec.Field(ColUnitsSold))
	assert.Equal(t, "-4533.75", rec.Field(ColProfit))
	assert.Equal(t, "0.00", rec.Field(ColCOGS))
	assert.Equal(t, "2014", values[len(values)-1])
	assert.Equal(t, "", rec.Field("unknown"))
}

func TestRawTableValue(t *testing.T) {
	table := RawTable{
		Header: []string{"Segment", " Sales"},
		Rows:   [][]string{{"Government", " $32,370.00 "}, {"Midmarket"}},
	}

	assert.Equal(t, " $32,370.00 ", table.Value(0, BronzeSales))
	assert.Equal(t, "", table.Value(1, BronzeSales))
	assert.Equal(t, "", table.Value(5, BronzeSegment))
	assert.Equal(t, -1, table.ColumnIndex("Sales"))
}

func TestTableRecords(t *testing.T) {
	table := Table{
		Name:    "dim_segmento",
		Columns: []string{"segmento_sk", "nome_segmento"},
		Rows:    [][]string{{"1", "Government"}},
	}

	assert.Equal(t, []map[string]string{{"segmento_sk": "1", "nome_segmento": "Government"}}, table.Records())
	assert.Equal(t, 1, table.ColumnIndex("nome_segmento"))
}

func newTestRunLogRepository(t *testing.T) *SQLiteETLLogRepository {
	t.Helper()
	db, err := sqlx.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	repo := NewSQLiteETLLogRepository(db)
	require.NoError(t, repo.CreateETLLogTable())
	return repo
}

func TestSQLiteETLLogRepository(t *testing.T) {
	repo := newTestRunLogRepository(t)
	start := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	last, err := repo.GetLastSuccessfulRun()
	require.NoError(t, err)
	assert.Nil(t, last)

	okID, err := repo.CreateLogEntry("run-ok", start)
	require.NoError(t, err)
	require.NoError(t, repo.UpdateLogEntrySuccess(okID, start.Add(90*time.Second), RunCounts{
		BronzeRows: 700, SilverRows: 700, ValidRows: 698, RejectedRows: 2, DeltaRows: 698, AnomalyCount: 5,
	}))

	failID, err := repo.CreateLogEntry("run-failed", start.Add(time.Hour))
	require.NoError(t, err)
	require.NoError(t, repo.UpdateLogEntryFailure(failID, start.Add(time.Hour+time.Second), "ошибка чтения"))

	last, err = repo.GetLastSuccessfulRun()
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, "run-ok", last.RunUUID)
	assert.Equal(t, 698, last.ValidRows)
	assert.InDelta(t, 90.0, last.ExecutionTimeSeconds, 0.001)

	runs, err := repo.GetRecentRuns(10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-failed", runs[0].RunUUID)
	assert.Equal(t, "ошибка чтения", runs[0].ErrorMessage)

	monitor, err := repo.GetETLStateMonitor()
	require.NoError(t, err)
	assert.Equal(t, 1, monitor.TotalSuccessfulRuns)
	assert.Equal(t, 1, monitor.TotalFailedRuns)
	require.NotNil(t, monitor.LastFailedRun)
	assert.Equal(t, RunStatusFailed, monitor.LastFailedRun.Status)
}

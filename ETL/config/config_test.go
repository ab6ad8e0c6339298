package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name        string
		env         map[string]string
		fileContent string
		wantErr     bool
		validateCfg func(*testing.T, ETLConfig)
	}{
		{
			name: "defaults without file and env",
			validateCfg: func(t *testing.T, cfg ETLConfig) {
				assert.Equal(t, "silver_to_gold", cfg.Pipeline.Name)
				assert.Equal(t, time.Hour, cfg.Pipeline.RunInterval)
				assert.Equal(t, []int{0, 100, 200, 300, 400}, cfg.Pipeline.SampleRows)
				assert.Equal(t, 100.0, cfg.Anomaly.FlagPercent)
				assert.Equal(t, 200.0, cfg.Anomaly.CriticalPercent)
				assert.False(t, cfg.Warehouse.Enabled)
			},
		},
		{
			name: "yaml file overrides defaults",
			fileContent: `
pipeline:
  name: nightly
  run_interval: 30m
  bronze_date_layout: "2/1/2006"
paths:
  gold_dir: /tmp/gold
`,
			validateCfg: func(t *testing.T, cfg ETLConfig) {
				assert.Equal(t, "nightly", cfg.Pipeline.Name)
				assert.Equal(t, 30*time.Minute, cfg.Pipeline.RunInterval)
				assert.Equal(t, "/tmp/gold", cfg.Paths.GoldDir)
				assert.Equal(t, DefaultPaths.SilverFile, cfg.Paths.SilverFile)
			},
		},
		{
			name: "environment wins over file",
			fileContent: `
pipeline:
  name: from_file
`,
			env: map[string]string{
				"FIN_ETL_PIPELINE_NAME":               "from_env",
				"FIN_ETL_ANOMALY_FLAG_PERCENT":        "80",
				"FIN_ETL_PIPELINE_SAMPLE_ROWS":        "0,1",
				"FIN_ETL_PIPELINE_STRICT_BRONZE_GATE": "true",
			},
			validateCfg: func(t *testing.T, cfg ETLConfig) {
				assert.Equal(t, "from_env", cfg.Pipeline.Name)
				assert.Equal(t, 80.0, cfg.Anomaly.FlagPercent)
				assert.Equal(t, []int{0, 1}, cfg.Pipeline.SampleRows)
				assert.True(t, cfg.Pipeline.StrictBronzeGate)
			},
		},
		{
			name:    "critical threshold below flag threshold is rejected",
			env:     map[string]string{"FIN_ETL_ANOMALY_CRITICAL_PERCENT": "50"},
			wantErr: true,
		},
		{
			name:        "broken yaml is an error",
			fileContent: "pipeline: [unclosed",
			wantErr:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for key, value := range tt.env {
				t.Setenv(key, value)
			}

			path := filepath.Join(t.TempDir(), "etl.yaml")
			if tt.fileContent != "" {
				require.NoError(t, os.WriteFile(path, []byte(tt.fileContent), 0o644))
			}

			cfg, err := Load(path)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			if tt.validateCfg != nil {
				tt.validateCfg(t, cfg)
			}
		})
	}
}

func TestWarehouseRequiresHost(t *testing.T) {
	cfg := GetConfig()
	cfg.Warehouse.Enabled = true
	cfg.Warehouse.Host = ""

	assert.Error(t, cfg.Validate())
}

func TestLoadLookups(t *testing.T) {
	t.Run("missing file falls back to defaults", func(t *testing.T) {
		lookups, err := LoadLookups(filepath.Join(t.TempDir(), "absent.toml"))
		require.NoError(t, err)
		assert.Equal(t, "Desconhecido", lookups.UnknownLabel)
		assert.Len(t, lookups.Holidays, 20)
		assert.Len(t, lookups.DiscountBands, 4)
	})

	t.Run("file extends regions and replaces holidays", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "lookups.toml")
		content := `
holidays = ["2015-01-01"]

[regions."Brazil"]
continente = "América"
regiao = "América do Sul"
`
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

		lookups, err := LoadLookups(path)
		require.NoError(t, err)
		assert.Equal(t, []string{"2015-01-01"}, lookups.Holidays)
		assert.Equal(t, "América do Sul", lookups.Regions["Brazil"].Region)
		assert.Equal(t, "Europa Ocidental", lookups.Regions["France"].Region)
		assert.Equal(t, 100.0, lookups.PriceTiers.LowBelow)
	})
}

func TestConnectMetadataInMemory(t *testing.T) {
	db, err := ConnectMetadata(":memory:")
	require.NoError(t, err)
	defer db.Close()

	var one int
	require.NoError(t, db.Get(&one, "SELECT 1"))
	assert.Equal(t, 1, one)
}

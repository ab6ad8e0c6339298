package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/LilVoxy/finance_etl/ETL/config"
	"github.com/LilVoxy/finance_etl/ETL/extractors"
	"github.com/LilVoxy/finance_etl/ETL/kpi"
	"github.com/LilVoxy/finance_etl/ETL/load"
	"github.com/LilVoxy/finance_etl/ETL/models"
	"github.com/LilVoxy/finance_etl/ETL/quality"
	"github.com/LilVoxy/finance_etl/ETL/security"
	"github.com/LilVoxy/finance_etl/ETL/transform"
	"github.com/LilVoxy/finance_etl/ETL/utils"
)

var rootFlags struct {
	configPath string
	verbose    bool
}

var (
	etlConfig config.ETLConfig
	logger    *utils.ETLLogger
)

var rootCmd = &cobra.Command{
	Use:           "finance-etl",
	Short:         "Конвейер финансовых данных Bronze → Silver → Gold",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(rootFlags.configPath)
		if err != nil {
			return err
		}
		etlConfig = cfg

		logger, err = utils.NewETLLogger(cfg.Paths.LogsDir, cfg.EnableDetailedLogging || rootFlags.verbose)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			logger.Close()
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCmd.RunE(cmd, args)
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Однократный полный запуск конвейера",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRunner(func(r *ETLRunner) error {
			result, err := RunOnce(r)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), result)
		})
	},
}

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Запуск конвейера по расписанию",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRunner(RunScheduled)
	},
}

var validateBronzeCmd = &cobra.Command{
	Use:   "validate-bronze",
	Short: "Проверка качества файла Bronze",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRunner(func(r *ETLRunner) error {
			report, path, err := r.ValidateBronze()
			if err != nil && !errors.Is(err, quality.ErrBatchQuarantined) {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Отчет: %s\n", path)
			if printErr := printJSON(cmd.OutOrStdout(), report); printErr != nil {
				return printErr
			}
			return err
		})
	},
}

var transformCmd = &cobra.Command{
	Use:   "transform",
	Short: "Только очистка Bronze → Silver",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRunner(func(r *ETLRunner) error {
			bronze, err := r.extractor.ExtractBronze(etlConfig.Paths.BronzeFile)
			if err != nil {
				return err
			}
			silver, err := r.TransformSilver(bronze)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Silver: %d строк, ошибок разбора %d, некорректных дат %d\n",
				len(silver.Records), silver.Parse.Failures, silver.InvalidDates)
			return nil
		})
	},
}

var buildGoldCmd = &cobra.Command{
	Use:   "build-gold",
	Short: "Построение Gold из записанного Silver",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRunner(func(r *ETLRunner) error {
			records, err := r.extractor.ExtractSilver(etlConfig.Paths.SilverFile)
			if err != nil {
				return err
			}
			valid, _, _, err := r.ApplyContract(records)
			if err != nil {
				return err
			}
			tables, err := r.BuildAndLoadGold(valid)
			if err != nil {
				return err
			}
			for _, t := range tables {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %d строк\n", t.Name, len(t.Rows))
			}
			return nil
		})
	},
}

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Инкрементальный поиск аномалий по Silver",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRunner(func(r *ETLRunner) error {
			ctx := cmd.Context()
			records, err := r.extractor.ExtractSilver(etlConfig.Paths.SilverFile)
			if err != nil {
				return err
			}
			valid, _, _, err := r.ApplyContract(records)
			if err != nil {
				return err
			}
			anomalies, pending, path, err := r.DetectAnomalies(ctx, valid)
			if err != nil {
				return err
			}
			if err := r.CommitWatermark(ctx, pending); err != nil {
				return err
			}
			if path == "" {
				fmt.Fprintln(cmd.OutOrStdout(), "Аномалий не обнаружено")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Аномалий: %d, отчет %s\n", len(anomalies), path)
			return nil
		})
	},
}

var encryptExportCmd = &cobra.Command{
	Use:   "encrypt-export",
	Short: "Защищенная копия таблиц Gold с зашифрованными колонками",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRunner(func(r *ETLRunner) error {
			tables, err := security.Run(r.auditor, security.OpRead, "read_gold", transform.GoldTableNames, func() ([]models.Table, error) {
				return kpi.LoadGoldDir(etlConfig.Paths.GoldDir, transform.GoldTableNames)
			})
			if err != nil {
				return err
			}
			paths, err := r.exporter.Export(tables)
			if err != nil {
				return err
			}
			for _, p := range paths {
				fmt.Fprintln(cmd.OutOrStdout(), p)
			}
			return nil
		})
	},
}

var decryptOut string

var decryptExportCmd = &cobra.Command{
	Use:   "decrypt-export <file>",
	Short: "Расшифровка защищенной копии таблицы",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRunner(func(r *ETLRunner) error {
			table, err := load.DecryptFile(args[0], r.vault, r.auditor)
			if err != nil {
				return err
			}
			return writeTable(cmd.OutOrStdout(), decryptOut, table)
		})
	},
}

var maskFlags struct {
	input   string
	output  string
	columns string
	method  string
}

var maskCmd = &cobra.Command{
	Use:   "mask",
	Short: "Анонимизация таблицы для передачи третьим лицам",
	RunE: func(cmd *cobra.Command, args []string) error {
		masker, err := security.OpenMasker(etlConfig.Paths.SaltPath())
		if err != nil {
			return err
		}
		auditor := security.NewAuditor(security.NewFileSink(etlConfig.Paths.AuditDir), logger)

		raw, err := security.Run(auditor, security.OpRead, "read_table", []string{maskFlags.input}, func() (models.RawTable, error) {
			return extractors.ReadTableFile(maskFlags.input)
		})
		if err != nil {
			return err
		}

		columns := security.AnonymizableColumns
		if maskFlags.columns != "" {
			columns = strings.Split(maskFlags.columns, ",")
		}
		masked, err := masker.Anonymize(models.Table{Name: "masked", Columns: raw.Header, Rows: raw.Rows}, columns, security.MaskMethod(maskFlags.method))
		if err != nil {
			return err
		}

		_, err = security.Run(auditor, security.OpWrite, "write_masked", []string{maskFlags.output}, func() (models.Table, error) {
			return masked, writeTable(cmd.OutOrStdout(), maskFlags.output, masked)
		})
		return err
	},
}

var kpiCmd = &cobra.Command{
	Use:   "kpi",
	Short: "Сводные показатели по слою Gold",
	RunE: func(cmd *cobra.Command, args []string) error {
		tables, err := kpi.LoadGoldDir(etlConfig.Paths.GoldDir, transform.GoldTableNames)
		if err != nil {
			return err
		}
		summary, err := kpi.Summarize(tables)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), summary)
	},
}

var watermarkCmd = &cobra.Command{
	Use:   "watermark",
	Short: "Управление водяными знаками инкрементальной загрузки",
}

var watermarkShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Показать водяные знаки",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRunner(func(r *ETLRunner) error {
			marks, err := r.watermarks.List(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), marks)
		})
	},
}

var watermarkResetCmd = &cobra.Command{
	Use:   "reset [pipeline]",
	Short: "Сбросить водяной знак (следующий запуск будет полным)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRunner(func(r *ETLRunner) error {
			pipeline := etlConfig.Pipeline.Name
			if len(args) == 1 {
				pipeline = args[0]
			}
			if err := r.watermarks.Reset(cmd.Context(), pipeline); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Водяной знак %s сброшен\n", pipeline)
			return nil
		})
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&rootFlags.configPath, "config", "c", "config.yaml", "Путь к файлу конфигурации YAML")
	rootCmd.PersistentFlags().BoolVarP(&rootFlags.verbose, "verbose", "v", false, "Подробное логирование")

	decryptExportCmd.Flags().StringVarP(&decryptOut, "out", "o", "", "Файл для расшифрованной таблицы (по умолчанию stdout)")

	maskCmd.Flags().StringVarP(&maskFlags.input, "input", "i", "", "Исходный CSV")
	maskCmd.Flags().StringVarP(&maskFlags.output, "out", "o", "", "Файл результата (по умолчанию stdout)")
	maskCmd.Flags().StringVar(&maskFlags.columns, "columns", "", "Колонки через запятую")
	maskCmd.Flags().StringVarP(&maskFlags.method, "method", "m", string(security.MaskHashing), "Метод: hashing или embaralhamento")
	maskCmd.MarkFlagRequired("input")

	watermarkCmd.AddCommand(watermarkShowCmd, watermarkResetCmd)

	rootCmd.AddCommand(
		runCmd, scheduleCmd, validateBronzeCmd, transformCmd, buildGoldCmd, monitorCmd,
		encryptExportCmd, decryptExportCmd, maskCmd, kpiCmd, watermarkCmd,
	)
}

// withRunner создает ETLRunner на время выполнения команды
func withRunner(fn func(r *ETLRunner) error) error {
	runner, err := NewETLRunner(etlConfig, logger)
	if err != nil {
		return fmt.Errorf("ошибка при инициализации ETL Runner: %w", err)
	}
	defer runner.Close()
	return fn(runner)
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// writeTable пишет таблицу в CSV-файл или, если путь пуст, в w
func writeTable(w io.Writer, path string, table models.Table) error {
	if path != "" {
		return utils.WriteCSVFile(path, table.Columns, table.Rows)
	}
	return utils.WriteCSV(w, table.Columns, table.Rows)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Ошибка: %v\n", err)
		os.Exit(1)
	}
}

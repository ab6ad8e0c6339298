package load

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/LilVoxy/finance_etl/ETL/extractors"
	"github.com/LilVoxy/finance_etl/ETL/models"
	"github.com/LilVoxy/finance_etl/ETL/security"
	"github.com/LilVoxy/finance_etl/ETL/utils"
)

// EncryptedFileSuffix суффикс файлов защищенной выгрузки
const EncryptedFileSuffix = "_ENCRYPTED"

// ParseSensitiveColumns группирует "таблица.колонка" по таблицам
func ParseSensitiveColumns(entries []string) (map[string][]string, error) {
	out := make(map[string][]string)
	for _, entry := range entries {
		table, column, ok := strings.Cut(entry, ".")
		if !ok || table == "" || column == "" {
			return nil, fmt.Errorf("некорректная чувствительная колонка %q, ожидается таблица.колонка", entry)
		}
		out[table] = append(out[table], column)
	}
	return out, nil
}

// SecureExporter пишет копии таблиц с зашифрованными чувствительными колонками
type SecureExporter struct {
	dir       string
	vault     *security.Vault
	auditor   *security.Auditor
	sensitive map[string][]string
	logger    *utils.ETLLogger
}

// NewSecureExporter создает новый экземпляр SecureExporter
func NewSecureExporter(dir string, vault *security.Vault, auditor *security.Auditor, sensitive []string, logger *utils.ETLLogger) (*SecureExporter, error) {
	columns, err := ParseSensitiveColumns(sensitive)
	if err != nil {
		return nil, err
	}
	return &SecureExporter{dir: dir, vault: vault, auditor: auditor, sensitive: columns, logger: logger}, nil
}

// ExportPath путь защищенной копии таблицы
func (e *SecureExporter) ExportPath(table string) string {
	return filepath.Join(e.dir, table+EncryptedFileSuffix+".csv")
}

// Export шифрует и записывает таблицы, у которых есть чувствительные колонки.
// Возвращает пути записанных файлов.
func (e *SecureExporter) Export(tables []models.Table) ([]string, error) {
	var paths []string
	for _, table := range tables {
		columns, ok := e.sensitive[table.Name]
		if !ok {
			continue
		}

		encrypted, err := security.Run(e.auditor, security.OpEncrypt, "encrypt_columns", append([]string{table.Name}, columns...),
			func() (models.Table, error) {
				return e.vault.EncryptColumns(table, columns)
			})
		if err != nil {
			return paths, err
		}

		path := e.ExportPath(table.Name)
		_, err = security.Run(e.auditor, security.OpWrite, "write_secure_export", []string{path}, func() (models.Table, error) {
			return encrypted, utils.WriteCSVFile(path, encrypted.Columns, encrypted.Rows)
		})
		if err != nil {
			return paths, err
		}
		e.logger.Info("Защищенная выгрузка %s: %d колонок зашифровано", path, len(security.EncryptedColumns(encrypted)))
		paths = append(paths, path)
	}
	return paths, nil
}

// DecryptFile читает защищенную выгрузку и расшифровывает все колонки _encrypted.
// Чтение и расшифровка проходят через аудит.
func DecryptFile(path string, vault *security.Vault, auditor *security.Auditor) (models.Table, error) {
	raw, err := security.Run(auditor, security.OpRead, "read_secure_export", []string{path}, func() (models.RawTable, error) {
		return extractors.ReadTableFile(path)
	})
	if err != nil {
		return models.Table{}, err
	}

	name := strings.TrimSuffix(strings.TrimSuffix(filepath.Base(path), ".csv"), EncryptedFileSuffix)
	table := models.Table{Name: name, Columns: raw.Header, Rows: raw.Rows}

	return security.Run(auditor, security.OpDecrypt, "decrypt_columns", []string{path}, func() (models.Table, error) {
		return vault.DecryptColumns(table, security.EncryptedColumns(table))
	})
}

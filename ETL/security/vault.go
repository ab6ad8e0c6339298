package security

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/LilVoxy/finance_etl/ETL/models"
	"github.com/LilVoxy/finance_etl/processor"
)

// EncryptedSuffix суффикс зашифрованной колонки
const EncryptedSuffix = "_encrypted"

// ErrInvalidToken токен поврежден или зашифрован другим ключом
var ErrInvalidToken = processor.ErrInvalidToken

// Vault шифрует значения чувствительных колонок ключами, выведенными из мастер-ключа
type Vault struct {
	master []byte

	mu   sync.Mutex
	keys map[string][]byte
}

// NewVault создает хранилище из готового мастер-ключа
func NewVault(master []byte) (*Vault, error) {
	if len(master) != processor.KeySize {
		return nil, fmt.Errorf("мастер-ключ должен быть %d байт, получено %d", processor.KeySize, len(master))
	}
	return &Vault{master: append([]byte(nil), master...), keys: make(map[string][]byte)}, nil
}

// OpenVault загружает мастер-ключ. С парольной фразой ключ выводится через scrypt
// с сохраненной солью; иначе читается файл ключа, а при его отсутствии создается новый.
func OpenVault(masterKeyPath, saltPath, passphrase string) (*Vault, error) {
	if passphrase != "" {
		salt, err := LoadOrCreateSalt(saltPath)
		if err != nil {
			return nil, err
		}
		master, err := processor.DeriveMasterKey(passphrase, salt)
		if err != nil {
			return nil, fmt.Errorf("ошибка вывода мастер-ключа: %w", err)
		}
		return NewVault(master)
	}

	master, err := loadOrCreateKeyFile(masterKeyPath)
	if err != nil {
		return nil, err
	}
	return NewVault(master)
}

// LoadOrCreateSalt читает соль или генерирует новую (32 байта, права 0600)
func LoadOrCreateSalt(path string) ([]byte, error) {
	return loadOrCreateKeyFile(path)
}

func loadOrCreateKeyFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err == nil {
		return data, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("ошибка чтения ключа %s: %w", path, err)
	}

	key, err := processor.GenerateRandomKey(processor.KeySize)
	if err != nil {
		return nil, fmt.Errorf("ошибка генерации ключа: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("ошибка создания каталога ключей: %w", err)
	}
	if err := os.WriteFile(path, key, 0o600); err != nil {
		return nil, fmt.Errorf("ошибка записи ключа %s: %w", path, err)
	}
	return key, nil
}

func (v *Vault) columnKey(column string) ([]byte, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if key, ok := v.keys[column]; ok {
		return key, nil
	}
	key, err := processor.DeriveColumnKey(v.master, column)
	if err != nil {
		return nil, err
	}
	v.keys[column] = key
	return key, nil
}

// Encrypt шифрует значение ключом колонки
func (v *Vault) Encrypt(column, plaintext string) (string, error) {
	key, err := v.columnKey(column)
	if err != nil {
		return "", err
	}
	return processor.SealToken(key, []byte(plaintext))
}

// Decrypt расшифровывает токен ключом колонки
func (v *Vault) Decrypt(column, token string) (string, error) {
	key, err := v.columnKey(column)
	if err != nil {
		return "", err
	}
	plain, err := processor.OpenToken(key, token)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}

// EncryptColumns заменяет колонку c на c_encrypted с токенами; отсутствующие колонки пропускаются.
// Исходная таблица не изменяется.
func (v *Vault) EncryptColumns(table models.Table, columns []string) (models.Table, error) {
	out := cloneTable(table)
	for _, col := range columns {
		idx := out.ColumnIndex(col)
		if idx < 0 {
			continue
		}
		for r, row := range out.Rows {
			if idx >= len(row) {
				continue
			}
			token, err := v.Encrypt(col, row[idx])
			if err != nil {
				return models.Table{}, fmt.Errorf("ошибка шифрования %s.%s строка %d: %w", table.Name, col, r+1, err)
			}
			row[idx] = token
		}
		out.Columns[idx] = col + EncryptedSuffix
	}
	return out, nil
}

// DecryptColumns восстанавливает колонки; имя принимается как с суффиксом _encrypted, так и без
func (v *Vault) DecryptColumns(table models.Table, columns []string) (models.Table, error) {
	out := cloneTable(table)
	for _, col := range columns {
		plainName := strings.TrimSuffix(col, EncryptedSuffix)
		idx := out.ColumnIndex(plainName + EncryptedSuffix)
		if idx < 0 {
			continue
		}
		for r, row := range out.Rows {
			if idx >= len(row) {
				continue
			}
			plain, err := v.Decrypt(plainName, row[idx])
			if err != nil {
				return models.Table{}, fmt.Errorf("ошибка расшифровки %s.%s строка %d: %w", table.Name, plainName, r+1, err)
			}
			row[idx] = plain
		}
		out.Columns[idx] = plainName
	}
	return out, nil
}

// EncryptedColumns колонки таблицы с суффиксом _encrypted
func EncryptedColumns(table models.Table) []string {
	var cols []string
	for _, c := range table.Columns {
		if strings.HasSuffix(c, EncryptedSuffix) {
			cols = append(cols, c)
		}
	}
	return cols
}

func cloneTable(table models.Table) models.Table {
	out := models.Table{
		Name:    table.Name,
		Columns: append([]string(nil), table.Columns...),
		Rows:    make([][]string, len(table.Rows)),
	}
	for i, row := range table.Rows {
		out.Rows[i] = append([]string(nil), row...)
	}
	return out
}

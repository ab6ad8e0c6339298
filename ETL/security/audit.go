package security

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/LilVoxy/finance_etl/ETL/models"
	"github.com/LilVoxy/finance_etl/ETL/utils"
)

// Типы аудируемых операций
const (
	OpRead    = "READ"
	OpWrite   = "WRITE"
	OpEncrypt = "ENCRYPT"
	OpDecrypt = "DECRYPT"
)

// Статусы записи аудита
const (
	StatusPending = "PENDING"
	StatusSuccess = "SUCCESS"
	StatusFailure = "FAILURE"
)

const maxArgLength = 50

// ResultMetadata форма результата операции
type ResultMetadata struct {
	Rows            int      `json:"num_linhas"`
	Columns         int      `json:"num_colunas"`
	ColumnsAccessed []string `json:"colunas_acessadas"`
}

// AuditRecord запись журнала доступа
type AuditRecord struct {
	ID            string          `json:"id"`
	Timestamp     string          `json:"timestamp"`
	OperationType string          `json:"operation_type"`
	FunctionName  string          `json:"function_name"`
	User          string          `json:"usuario"`
	Arguments     []string        `json:"arguments"`
	Status        string          `json:"status"`
	Error         string          `json:"error,omitempty"`
	Result        *ResultMetadata `json:"result_metadata,omitempty"`
	DurationMs    int64           `json:"duracao_ms"`
	IntegrityHash string          `json:"hash_integridade,omitempty"`
}

// Sink хранилище записей аудита только на дозапись
type Sink interface {
	Append(rec AuditRecord) error
}

// FileSink дописывает записи в audit_logs/access_YYYYMMDD.json (JSON-массив)
type FileSink struct {
	dir string
	now func() time.Time
	mu  sync.Mutex
}

// NewFileSink создает файловый журнал аудита
func NewFileSink(dir string) *FileSink {
	return &FileSink{dir: dir, now: time.Now}
}

// Path файл журнала на дату
func (s *FileSink) Path(day time.Time) string {
	return filepath.Join(s.dir, fmt.Sprintf("access_%s.json", day.Format("20060102")))
}

// Append добавляет запись с хешем целостности в конец дневного файла
func (s *FileSink) Append(rec AuditRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	hash, err := IntegrityHash(rec)
	if err != nil {
		return err
	}
	rec.IntegrityHash = hash

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("ошибка создания каталога аудита: %w", err)
	}

	path := s.Path(s.now())
	records, err := ReadAuditLog(path)
	if err != nil {
		return err
	}
	records = append(records, rec)

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("ошибка сериализации журнала аудита: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("ошибка записи журнала аудита %s: %w", path, err)
	}
	return nil
}

// ReadAuditLog читает дневной журнал; отсутствующий файл дает пустой список
func ReadAuditLog(path string) ([]AuditRecord, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения журнала аудита %s: %w", path, err)
	}
	var records []AuditRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("журнал аудита %s поврежден: %w", path, err)
	}
	return records, nil
}

// IntegrityHash SHA-256 записи без поля хеша, ключи JSON отсортированы
func IntegrityHash(rec AuditRecord) (string, error) {
	rec.IntegrityHash = ""
	raw, err := json.Marshal(rec)
	if err != nil {
		return "", err
	}
	// Через map ключи сериализуются в отсортированном порядке
	var canonical map[string]interface{}
	if err := json.Unmarshal(raw, &canonical); err != nil {
		return "", err
	}
	sorted, err := json.Marshal(canonical)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(sorted)
	return hex.EncodeToString(sum[:]), nil
}

// Auditor оборачивает операции ввода-вывода записью в журнал до и после вызова
type Auditor struct {
	sink   Sink
	logger *utils.ETLLogger
	user   string
	now    func() time.Time
}

// NewAuditor создает аудитора; пользователь берется из $USER
func NewAuditor(sink Sink, logger *utils.ETLLogger) *Auditor {
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	user := os.Getenv("USER")
	if user == "" {
		user = "UNKNOWN"
	}
	return &Auditor{sink: sink, logger: logger, user: user, now: time.Now}
}

// Run выполняет fn и записывает результат в журнал. Ошибка fn возвращается без изменений;
// ошибка записи журнала возвращается, только если fn завершилась успешно.
// С nil-аудитором fn просто выполняется.
func Run[T any](a *Auditor, op, name string, args []string, fn func() (T, error)) (T, error) {
	if a == nil {
		return fn()
	}

	start := a.now()
	rec := AuditRecord{
		ID:            uuid.NewString(),
		Timestamp:     start.Format("2006-01-02T15:04:05.000000"),
		OperationType: op,
		FunctionName:  name,
		User:          a.user,
		Arguments:     truncateArgs(args),
		Status:        StatusPending,
	}

	result, err := fn()
	rec.DurationMs = a.now().Sub(start).Milliseconds()
	if err != nil {
		rec.Status = StatusFailure
		rec.Error = err.Error()
	} else {
		rec.Status = StatusSuccess
		rec.Result = metadataOf(result)
	}

	if sinkErr := a.sink.Append(rec); sinkErr != nil {
		a.logger.Error("Не удалось записать аудит %s %s: %v", op, name, sinkErr)
		if err == nil {
			return result, fmt.Errorf("ошибка аудита операции %s: %w", name, sinkErr)
		}
	}
	return result, err
}

// Wrap возвращает функцию, каждый вызов которой проходит через Run
func Wrap[A, T any](a *Auditor, op, name string, fn func(A) (T, error)) func(A) (T, error) {
	return func(arg A) (T, error) {
		return Run(a, op, name, []string{fmt.Sprint(arg)}, func() (T, error) {
			return fn(arg)
		})
	}
}

func truncateArgs(args []string) []string {
	out := make([]string, len(args))
	for i, a := range args {
		r := []rune(a)
		if len(r) > maxArgLength {
			r = r[:maxArgLength]
		}
		out[i] = string(r)
	}
	return out
}

func metadataOf(v interface{}) *ResultMetadata {
	switch r := v.(type) {
	case models.Table:
		return &ResultMetadata{Rows: len(r.Rows), Columns: len(r.Columns), ColumnsAccessed: r.Columns}
	case models.RawTable:
		return &ResultMetadata{Rows: len(r.Rows), Columns: len(r.Header), ColumnsAccessed: r.Header}
	case []models.FinancialRecord:
		return &ResultMetadata{Rows: len(r), Columns: len(models.SilverColumns), ColumnsAccessed: models.SilverColumns}
	case []models.Table:
		meta := &ResultMetadata{}
		for _, t := range r {
			meta.Rows += len(t.Rows)
			meta.Columns += len(t.Columns)
			meta.ColumnsAccessed = append(meta.ColumnsAccessed, t.Columns...)
		}
		return meta
	}
	return nil
}

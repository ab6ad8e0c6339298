package watermark

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// TimestampLayout формат хранения водяного знака
const TimestampLayout = "2006-01-02T15:04:05"

// ErrRegression попытка сдвинуть водяной знак назад
var ErrRegression = errors.New("водяной знак не может сдвигаться назад")

// Mark запись таблицы водяных знаков
type Mark struct {
	Pipeline      string `db:"pipeline_nome" json:"pipeline_nome"`
	LastTimestamp string `db:"ultimo_timestamp_processado" json:"ultimo_timestamp_processado"`
	LastHash      string `db:"ultimo_hash" json:"ultimo_hash"`
	Processed     int    `db:"registros_processados" json:"registros_processados"`
	UpdatedAt     string `db:"data_atualizacao" json:"data_atualizacao"`
}

// Time возвращает водяной знак как время
func (m Mark) Time() (time.Time, error) {
	return time.Parse(TimestampLayout, m.LastTimestamp)
}

// Store хранилище водяных знаков в базе метаданных
type Store struct {
	db  *sqlx.DB
	now func() time.Time
}

// NewStore создает хранилище и таблицу watermark, если ее нет
func NewStore(db *sqlx.DB) (*Store, error) {
	schema := `
	CREATE TABLE IF NOT EXISTS watermark (
		pipeline_nome TEXT PRIMARY KEY,
		ultimo_timestamp_processado TEXT,
		ultimo_hash TEXT,
		registros_processados INTEGER,
		data_atualizacao TEXT
	)`
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("ошибка создания таблицы watermark: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

// GetMark возвращает запись водяного знака или nil, если конвейер еще не запускался
func (s *Store) GetMark(ctx context.Context, pipeline string) (*Mark, error) {
	var mark Mark
	err := s.db.GetContext(ctx, &mark, `
		SELECT pipeline_nome, ultimo_timestamp_processado, COALESCE(ultimo_hash, '') AS ultimo_hash,
			COALESCE(registros_processados, 0) AS registros_processados, COALESCE(data_atualizacao, '') AS data_atualizacao
		FROM watermark WHERE pipeline_nome = ?`, pipeline)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения водяного знака %s: %w", pipeline, err)
	}
	return &mark, nil
}

// Get возвращает время водяного знака; false если его нет
func (s *Store) Get(ctx context.Context, pipeline string) (time.Time, bool, error) {
	mark, err := s.GetMark(ctx, pipeline)
	if err != nil || mark == nil {
		return time.Time{}, false, err
	}
	ts, err := mark.Time()
	if err != nil {
		return time.Time{}, false, fmt.Errorf("некорректный водяной знак %q: %w", mark.LastTimestamp, err)
	}
	return ts, true, nil
}

// Put сохраняет водяной знак. Значение меньше текущего отклоняется с ErrRegression.
func (s *Store) Put(ctx context.Context, pipeline string, ts time.Time, count int, hash string) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("ошибка начала транзакции водяного знака: %w", err)
	}
	defer tx.Rollback()

	var current string
	err = tx.GetContext(ctx, &current, `SELECT ultimo_timestamp_processado FROM watermark WHERE pipeline_nome = ?`, pipeline)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return fmt.Errorf("ошибка чтения водяного знака %s: %w", pipeline, err)
	default:
		if currentTS, perr := time.Parse(TimestampLayout, current); perr == nil && ts.Before(currentTS) {
			return fmt.Errorf("%w: %s < %s", ErrRegression, ts.Format(TimestampLayout), current)
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO watermark
		(pipeline_nome, ultimo_timestamp_processado, ultimo_hash, registros_processados, data_atualizacao)
		VALUES (?, ?, ?, ?, ?)`,
		pipeline, ts.Format(TimestampLayout), hash, count, s.now().Format(TimestampLayout))
	if err != nil {
		return fmt.Errorf("ошибка записи водяного знака %s: %w", pipeline, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("ошибка фиксации водяного знака %s: %w", pipeline, err)
	}
	return nil
}

// Reset удаляет водяной знак конвейера; следующий запуск обработает все записи
func (s *Store) Reset(ctx context.Context, pipeline string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM watermark WHERE pipeline_nome = ?`, pipeline); err != nil {
		return fmt.Errorf("ошибка сброса водяного знака %s: %w", pipeline, err)
	}
	return nil
}

// List возвращает все водяные знаки
func (s *Store) List(ctx context.Context) ([]Mark, error) {
	var marks []Mark
	err := s.db.SelectContext(ctx, &marks, `
		SELECT pipeline_nome, ultimo_timestamp_processado, COALESCE(ultimo_hash, '') AS ultimo_hash,
			COALESCE(registros_processados, 0) AS registros_processados, COALESCE(data_atualizacao, '') AS data_atualizacao
		FROM watermark ORDER BY pipeline_nome`)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения водяных знаков: %w", err)
	}
	return marks, nil
}

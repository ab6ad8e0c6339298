package watermark

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/LilVoxy/finance_etl/ETL/models"
	"github.com/LilVoxy/finance_etl/ETL/utils"
)

// Pending водяной знак, который фиксируется после записи всех результатов запуска
type Pending struct {
	Pipeline  string
	Timestamp time.Time
	Hash      string
	Count     int
}

// Incremental отбирает записи после водяного знака
type Incremental struct {
	store  *Store
	logger *utils.ETLLogger
}

// NewIncremental создает новый экземпляр Incremental
func NewIncremental(store *Store, logger *utils.ETLLogger) *Incremental {
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	return &Incremental{store: store, logger: logger}
}

// Delta возвращает записи с датой строго после водяного знака (при первом запуске все).
// Водяной знак не меняется: для фиксации вызывается Commit.
func (l *Incremental) Delta(ctx context.Context, pipeline string, records []models.FinancialRecord) ([]models.FinancialRecord, *Pending, error) {
	mark, hasMark, err := l.store.Get(ctx, pipeline)
	if err != nil {
		return nil, nil, err
	}

	var delta []models.FinancialRecord
	var maxTS time.Time
	for _, rec := range records {
		ts, err := time.Parse("2006-01-02", rec.Date)
		if err != nil {
			continue
		}
		if hasMark && !ts.After(mark) {
			continue
		}
		delta = append(delta, rec)
		if ts.After(maxTS) {
			maxTS = ts
		}
	}

	if !hasMark {
		l.logger.Info("Первый запуск %s: полная загрузка, %d записей", pipeline, len(delta))
	} else {
		l.logger.Info("Инкрементальная загрузка %s: %d новых записей после %s", pipeline, len(delta), mark.Format(TimestampLayout))
	}

	if len(delta) == 0 {
		return delta, nil, nil
	}

	return delta, &Pending{
		Pipeline:  pipeline,
		Timestamp: maxTS,
		Hash:      HashRecords(delta),
		Count:     len(delta),
	}, nil
}

// Commit фиксирует водяной знак; nil ничего не делает
func (l *Incremental) Commit(ctx context.Context, pending *Pending) error {
	if pending == nil {
		return nil
	}
	if err := l.store.Put(ctx, pending.Pipeline, pending.Timestamp, pending.Count, pending.Hash); err != nil {
		return err
	}
	l.logger.Info("Водяной знак %s сдвинут на %s (%d записей)",
		pending.Pipeline, pending.Timestamp.Format(TimestampLayout), pending.Count)
	return nil
}

// HashRecords SHA-256 содержимого записей в порядке следования
func HashRecords(records []models.FinancialRecord) string {
	h := sha256.New()
	for _, rec := range records {
		h.Write([]byte(strings.Join(rec.Values(), "\x1f")))
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil))
}

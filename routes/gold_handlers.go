package routes

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/LilVoxy/finance_etl/ETL/extractors"
	"github.com/LilVoxy/finance_etl/ETL/kpi"
	"github.com/LilVoxy/finance_etl/ETL/transform"
	"github.com/LilVoxy/finance_etl/ETL/utils"
)

// GoldTableResponse структура ответа API для таблицы Gold
type GoldTableResponse struct {
	Table   string              `json:"table"`
	Columns []string            `json:"columns"`
	Total   int                 `json:"total"`
	Rows    []map[string]string `json:"rows"`
}

// GetGoldTableHandler отдает строки выгруженной таблицы Gold.
// Параметры offset и limit ограничивают выборку.
func GetGoldTableHandler(goldDir string, logger *utils.ETLLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := mux.Vars(r)["table"]
		if !slices.Contains(transform.GoldTableNames, name) {
			http.Error(w, "Неизвестная таблица Gold", http.StatusNotFound)
			return
		}

		offset, limit, err := pageParams(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		raw, err := extractors.ReadTableFile(filepath.Join(goldDir, name+".csv"))
		if errors.Is(err, os.ErrNotExist) {
			http.Error(w, "Таблица еще не выгружена", http.StatusNotFound)
			return
		}
		if err != nil {
			logger.Error("Ошибка при чтении таблицы %s: %v", name, err)
			http.Error(w, "Ошибка при чтении таблицы", http.StatusInternalServerError)
			return
		}

		rows := make([]map[string]string, 0)
		for i := offset; i < raw.Len() && (limit == 0 || i < offset+limit); i++ {
			rec := make(map[string]string, len(raw.Header))
			for _, col := range raw.Header {
				rec[col] = raw.Value(i, col)
			}
			rows = append(rows, rec)
		}

		writeJSON(w, logger, GoldTableResponse{
			Table:   name,
			Columns: raw.Header,
			Total:   raw.Len(),
			Rows:    rows,
		})
	}
}

// GetKPIHandler считает сводные показатели по текущему слою Gold
func GetKPIHandler(goldDir string, logger *utils.ETLLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tables, err := kpi.LoadGoldDir(goldDir, transform.GoldTableNames)
		if errors.Is(err, os.ErrNotExist) {
			http.Error(w, "Слой Gold еще не построен", http.StatusNotFound)
			return
		}
		if err != nil {
			logger.Error("Ошибка при чтении слоя Gold: %v", err)
			http.Error(w, "Ошибка при чтении слоя Gold", http.StatusInternalServerError)
			return
		}

		summary, err := kpi.Summarize(tables)
		if err != nil {
			logger.Error("Ошибка при расчете KPI: %v", err)
			http.Error(w, "Ошибка при расчете KPI", http.StatusInternalServerError)
			return
		}
		writeJSON(w, logger, summary)
	}
}

func pageParams(r *http.Request) (offset, limit int, err error) {
	query := r.URL.Query()
	if v := query.Get("offset"); v != "" {
		if offset, err = strconv.Atoi(v); err != nil || offset < 0 {
			return 0, 0, errors.New("неверный формат параметра offset")
		}
	}
	if v := query.Get("limit"); v != "" {
		if limit, err = strconv.Atoi(v); err != nil || limit < 0 {
			return 0, 0, errors.New("неверный формат параметра limit")
		}
	}
	return offset, limit, nil
}

package models

import "time"

// Уровни серьезности аномалий
const (
	SeverityCritical = "critical"
	SeverityHigh     = "high"
)

// Причины аномалий прибыли
const (
	CauseProfitAboveBaseline = "LUCRO_ACIMA_MEDIA"
	CauseProfitBelowBaseline = "LUCRO_ABAIXO_MEDIA"
)

// AlertTypeProfit тип оповещения об аномалии прибыли
const AlertTypeProfit = "ANOMALIA_LUCRO"

// BaselineKey группа базовой линии: страна и квартал
type BaselineKey struct {
	Country string
	Quarter int
}

// Baseline статистика прибыли по группе
type Baseline struct {
	Mean  float64
	Std   float64
	Count int
}

// RootCause причина аномалии и рекомендация
type RootCause struct {
	Cause          string `json:"causa"`
	Details        string `json:"detalhes"`
	Recommendation string `json:"recomendacao"`
}

// AlertValues фактическое и ожидаемое значения метрики
type AlertValues struct {
	Actual           float64 `json:"lucro_atual"`
	Expected         float64 `json:"lucro_esperado"`
	DeviationPercent float64 `json:"variacao_percentual"`
}

// Anomaly запись об аномалии; входные данные не изменяются
type Anomaly struct {
	ID              string      `json:"id"`
	Timestamp       time.Time   `json:"timestamp"`
	Type            string      `json:"tipo"`
	Severity        string      `json:"severidade"`
	Metric          string      `json:"metrica"`
	Country         string      `json:"pais"`
	Product         string      `json:"produto"`
	TransactionDate string      `json:"data_transacao"`
	Quarter         int         `json:"trimestre"`
	Values          AlertValues `json:"valores"`
	RootCauses      []RootCause `json:"causas_raiz"`
}

// AlertReport отчет об аномалиях за запуск
type AlertReport struct {
	Total     int       `json:"total_alertas"`
	Critical  int       `json:"criticas"`
	High      int       `json:"altas"`
	Generated time.Time `json:"timestamp_relatorio"`
	Alerts    []Anomaly `json:"alertas"`
}

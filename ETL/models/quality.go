package models

import "time"

// ExpectationResult результат одной проверки качества
type ExpectationResult struct {
	Expectation      string   `json:"expectation"`
	Column           string   `json:"column,omitempty"`
	Success          bool     `json:"success"`
	UnexpectedCount  int      `json:"unexpected_count"`
	UnexpectedPct    float64  `json:"unexpected_percent"`
	UnexpectedValues []string `json:"partial_unexpected_list,omitempty"`
	Details          string   `json:"details,omitempty"`
}

// QualityReport отчет о проверке качества слоя Bronze
type QualityReport struct {
	RunID      string              `json:"run_id"`
	Source     string              `json:"source"`
	Timestamp  time.Time           `json:"timestamp"`
	RowCount   int                 `json:"row_count"`
	Success    bool                `json:"success"`
	Failed     int                 `json:"failed_expectations"`
	Results    []ExpectationResult `json:"results"`
	Quarantine string              `json:"quarantine_file,omitempty"`
}

// ContractViolation отклоненная контрактом запись и причина
type ContractViolation struct {
	Record FinancialRecord
	Reason string
}

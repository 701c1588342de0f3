package models

import (
	"context"
	"time"
)

// Статусы запуска ETL
const (
	RunStatusInProgress = "in_progress"
	RunStatusSuccess    = "success"
	RunStatusFailed     = "failed"
)

// ETLRunLog представляет запись о запуске ETL процесса
type ETLRunLog struct {
	ID                   string    `json:"id"`
	StartTime            time.Time `json:"start_time"`
	EndTime              time.Time `json:"end_time"`
	Status               string    `json:"status"` // "success", "failed", "in_progress"
	TablesWritten        int       `json:"tables_written"`
	RowsWritten          int       `json:"rows_written"`
	IntegrityScore       float64   `json:"integrity_score"`
	CompletenessScore    float64   `json:"completeness_score"`
	ErrorMessage         string    `json:"error_message,omitempty"`
	ExecutionTimeSeconds float64   `json:"execution_time_seconds"`
}

// ETLLogRepository представляет репозиторий для работы с логами ETL
type ETLLogRepository interface {
	// CreateETLLogTable создает таблицу журнала, если ее нет
	CreateETLLogTable(ctx context.Context) error

	// CreateLogEntry создает новую запись о запуске ETL
	CreateLogEntry(ctx context.Context, startTime time.Time) (string, error)

	// UpdateLogEntrySuccess обновляет запись при успешном завершении ETL
	UpdateLogEntrySuccess(ctx context.Context, id string, endTime time.Time, tablesWritten, rowsWritten int, integrityScore, completenessScore float64) error

	// UpdateLogEntryFailure обновляет запись при неудачном завершении ETL
	UpdateLogEntryFailure(ctx context.Context, id string, endTime time.Time, errorMessage string) error

	// GetLastSuccessfulRun получает информацию о последнем успешном запуске ETL
	GetLastSuccessfulRun(ctx context.Context) (*ETLRunLog, error)

	// GetETLRunStats получает последние limit запусков, новые первыми
	GetETLRunStats(ctx context.Context, limit int) ([]ETLRunLog, error)
}

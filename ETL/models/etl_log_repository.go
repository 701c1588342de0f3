package models

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// timeFormat - формат хранения времени в журнале. Фиксированная ширина и UTC,
// поэтому строковая сортировка совпадает с хронологической.
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

// SQLETLLogRepository реализация ETLLogRepository поверх database/sql.
// Запросы не используют диалектные расширения и работают с MySQL и SQLite.
type SQLETLLogRepository struct {
	db *sql.DB
}

// NewSQLETLLogRepository создает новый экземпляр SQLETLLogRepository
func NewSQLETLLogRepository(db *sql.DB) *SQLETLLogRepository {
	return &SQLETLLogRepository{
		db: db,
	}
}

// CreateETLLogTable создает таблицу для логирования ETL процесса, если она не существует
func (r *SQLETLLogRepository) CreateETLLogTable(ctx context.Context) error {
	query := `
	CREATE TABLE IF NOT EXISTS etl_run_log (
		id VARCHAR(36) PRIMARY KEY,
		start_time VARCHAR(40) NOT NULL,
		end_time VARCHAR(40),
		status VARCHAR(16) NOT NULL,
		tables_written INT DEFAULT 0,
		rows_written INT DEFAULT 0,
		integrity_score DOUBLE DEFAULT 0,
		completeness_score DOUBLE DEFAULT 0,
		error_message TEXT,
		execution_time_seconds DOUBLE DEFAULT 0
	)
	`

	if _, err := r.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("ошибка при создании таблицы etl_run_log: %w", err)
	}
	return nil
}

// CreateLogEntry создает новую запись о запуске ETL и возвращает ее идентификатор
func (r *SQLETLLogRepository) CreateLogEntry(ctx context.Context, startTime time.Time) (string, error) {
	id := uuid.NewString()

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO etl_run_log (id, start_time, status) VALUES (?, ?, ?)`,
		id, startTime.UTC().Format(timeFormat), RunStatusInProgress)
	if err != nil {
		return "", fmt.Errorf("ошибка при создании записи о запуске ETL: %w", err)
	}
	return id, nil
}

// UpdateLogEntrySuccess обновляет запись при успешном завершении ETL
func (r *SQLETLLogRepository) UpdateLogEntrySuccess(ctx context.Context, id string, endTime time.Time, tablesWritten, rowsWritten int, integrityScore, completenessScore float64) error {
	startTime, err := r.startTime(ctx, id)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
	UPDATE etl_run_log
	SET
		end_time = ?,
		status = ?,
		tables_written = ?,
		rows_written = ?,
		integrity_score = ?,
		completeness_score = ?,
		execution_time_seconds = ?
	WHERE id = ?
	`,
		endTime.UTC().Format(timeFormat),
		RunStatusSuccess,
		tablesWritten,
		rowsWritten,
		integrityScore,
		completenessScore,
		endTime.Sub(startTime).Seconds(),
		id,
	)
	if err != nil {
		return fmt.Errorf("ошибка при обновлении записи о запуске ETL: %w", err)
	}
	return nil
}

// UpdateLogEntryFailure обновляет запись при неудачном завершении ETL
func (r *SQLETLLogRepository) UpdateLogEntryFailure(ctx context.Context, id string, endTime time.Time, errorMessage string) error {
	startTime, err := r.startTime(ctx, id)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
	UPDATE etl_run_log
	SET
		end_time = ?,
		status = ?,
		error_message = ?,
		execution_time_seconds = ?
	WHERE id = ?
	`, endTime.UTC().Format(timeFormat), RunStatusFailed, errorMessage, endTime.Sub(startTime).Seconds(), id)
	if err != nil {
		return fmt.Errorf("ошибка при обновлении записи о запуске ETL: %w", err)
	}
	return nil
}

// GetLastSuccessfulRun получает информацию о последнем успешном запуске ETL.
// Возвращает nil, nil, если успешных запусков еще не было.
func (r *SQLETLLogRepository) GetLastSuccessfulRun(ctx context.Context) (*ETLRunLog, error) {
	row := r.db.QueryRowContext(ctx, selectRunLog+`
	WHERE status = ?
	ORDER BY end_time DESC
	LIMIT 1
	`, RunStatusSuccess)

	log, err := scanRunLog(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка при получении информации о последнем успешном запуске ETL: %w", err)
	}
	return log, nil
}

// GetETLRunStats получает последние limit запусков ETL
func (r *SQLETLLogRepository) GetETLRunStats(ctx context.Context, limit int) ([]ETLRunLog, error) {
	rows, err := r.db.QueryContext(ctx, selectRunLog+`
	ORDER BY start_time DESC
	LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("ошибка при получении статистики запусков ETL: %w", err)
	}
	defer rows.Close()

	var logs []ETLRunLog
	for rows.Next() {
		log, err := scanRunLog(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка при сканировании записи о запуске ETL: %w", err)
		}
		logs = append(logs, *log)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка после итерации по записям о запусках ETL: %w", err)
	}
	return logs, nil
}

func (r *SQLETLLogRepository) startTime(ctx context.Context, id string) (time.Time, error) {
	var raw string
	err := r.db.QueryRowContext(ctx, "SELECT start_time FROM etl_run_log WHERE id = ?", id).Scan(&raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("ошибка при получении времени начала ETL: %w", err)
	}
	t, err := time.Parse(timeFormat, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("неверное время начала ETL %q: %w", raw, err)
	}
	return t, nil
}

const selectRunLog = `
	SELECT
		id, start_time, COALESCE(end_time, ''), status,
		COALESCE(tables_written, 0), COALESCE(rows_written, 0),
		COALESCE(integrity_score, 0), COALESCE(completeness_score, 0),
		COALESCE(error_message, ''), COALESCE(execution_time_seconds, 0)
	FROM etl_run_log
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRunLog(s rowScanner) (*ETLRunLog, error) {
	var (
		log        ETLRunLog
		start, end string
	)
	err := s.Scan(
		&log.ID, &start, &end, &log.Status,
		&log.TablesWritten, &log.RowsWritten,
		&log.IntegrityScore, &log.CompletenessScore,
		&log.ErrorMessage, &log.ExecutionTimeSeconds,
	)
	if err != nil {
		return nil, err
	}
	if log.StartTime, err = time.Parse(timeFormat, start); err != nil {
		return nil, fmt.Errorf("неверное время начала %q: %w", start, err)
	}
	if end != "" {
		if log.EndTime, err = time.Parse(timeFormat, end); err != nil {
			return nil, fmt.Errorf("неверное время окончания %q: %w", end, err)
		}
	}
	return &log, nil
}

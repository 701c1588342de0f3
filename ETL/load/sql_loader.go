package load

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/LilVoxy/dice_warehouse/ETL/models"
	"github.com/LilVoxy/dice_warehouse/ETL/utils"
)

// SQLLoader выгружает хранилище в SQL базу данных (MySQL или SQLite).
// Каждая таблица создается при необходимости, ее строки заменяются целиком в одной транзакции.
type SQLLoader struct {
	db     *sql.DB
	driver string
	logger *utils.ETLLogger
}

// NewSQLLoader создает новый экземпляр SQLLoader
func NewSQLLoader(db *sql.DB, driver string, logger *utils.ETLLogger) *SQLLoader {
	return &SQLLoader{
		db:     db,
		driver: driver,
		logger: logger,
	}
}

// Name возвращает имя приемника
func (l *SQLLoader) Name() string {
	return "sql:" + l.driver
}

// Load реализует Loader
func (l *SQLLoader) Load(ctx context.Context, w *models.Warehouse) error {
	startTime := time.Now()
	names := w.Names()
	l.logger.Info("Начало загрузки хранилища в %s (таблиц: %d)", l.driver, len(names))

	for _, name := range names {
		t, _ := w.Get(name)
		if _, err := l.db.ExecContext(ctx, createTableSQL(t)); err != nil {
			return fmt.Errorf("ошибка при создании таблицы %s: %w", name, err)
		}
	}

	// Начинаем транзакцию
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("ошибка при начале транзакции: %w", err)
	}
	defer tx.Rollback()

	total := 0
	for _, name := range names {
		t, _ := w.Get(name)
		n, err := l.replaceRows(ctx, tx, t)
		if err != nil {
			l.logger.Error("Ошибка при загрузке таблицы %s: %v", name, err)
			return fmt.Errorf("ошибка при загрузке таблицы %s: %w", name, err)
		}
		total += n
	}

	// Фиксируем транзакцию
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("ошибка при фиксации транзакции: %w", err)
	}

	l.logger.Info("Загрузка в %s завершена. Строк: %d, длительность: %v", l.driver, total, time.Since(startTime))
	return nil
}

func (l *SQLLoader) replaceRows(ctx context.Context, tx *sql.Tx, t *models.Table) (int, error) {
	if _, err := tx.ExecContext(ctx, "DELETE FROM "+quoteIdent(t.Name)); err != nil {
		return 0, fmt.Errorf("ошибка при очистке таблицы: %w", err)
	}

	// Подготавливаем запрос в транзакции
	stmt, err := tx.PrepareContext(ctx, insertSQL(t))
	if err != nil {
		return 0, fmt.Errorf("ошибка при подготовке запроса: %w", err)
	}
	defer stmt.Close()

	args := make([]any, len(t.Columns))
	for i, row := range t.Rows {
		for j, v := range row {
			args[j] = sqlValue(v)
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return 0, fmt.Errorf("ошибка при вставке строки %d: %w", i+1, err)
		}
	}

	l.logger.Debug("Таблица %s: загружено %d строк", t.Name, t.Len())
	return t.Len(), nil
}

// quoteIdent экранирует идентификатор обратными кавычками (понимают и MySQL, и SQLite)
func quoteIdent(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

func sqlType(t models.ColumnType) string {
	switch t {
	case models.TypeInteger:
		return "BIGINT"
	case models.TypeDecimal:
		return "DECIMAL(18,4)"
	case models.TypeDate:
		return "DATE"
	case models.TypeBoolean:
		return "BOOLEAN"
	default:
		return "VARCHAR(255)"
	}
}

func createTableSQL(t *models.Table) string {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE IF NOT EXISTS %s (\n", quoteIdent(t.Name))
	for i, c := range t.Columns {
		if i > 0 {
			b.WriteString(",\n")
		}
		fmt.Fprintf(&b, "\t%s %s", quoteIdent(c.Name), sqlType(c.Type))
	}
	if key, ok := models.DimensionKeys[t.Name]; ok && t.HasColumn(key) {
		fmt.Fprintf(&b, ",\n\tPRIMARY KEY (%s)", quoteIdent(key))
	}
	b.WriteString("\n)")
	return b.String()
}

func insertSQL(t *models.Table) string {
	cols := make([]string, len(t.Columns))
	marks := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		cols[i] = quoteIdent(c.Name)
		marks[i] = "?"
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quoteIdent(t.Name), strings.Join(cols, ", "), strings.Join(marks, ", "))
}

// sqlValue приводит значение к типу, понятному обоим драйверам
func sqlValue(v any) any {
	switch x := v.(type) {
	case decimal.Decimal:
		return x.String()
	case time.Time:
		return x.Format(models.DateLayout)
	default:
		return v
	}
}

package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ColumnType описывает семантический тип колонки таблицы
type ColumnType int

const (
	TypeInteger ColumnType = iota
	TypeString
	TypeDecimal
	TypeDate
	TypeBoolean
)

// String возвращает имя типа для логов и отчетов
func (t ColumnType) String() string {
	switch t {
	case TypeInteger:
		return "integer"
	case TypeString:
		return "string"
	case TypeDecimal:
		return "decimal"
	case TypeDate:
		return "date"
	case TypeBoolean:
		return "boolean"
	default:
		return fmt.Sprintf("ColumnType(%d)", int(t))
	}
}

// Column - имя и тип колонки
type Column struct {
	Name string
	Type ColumnType
}

// Row - одна строка таблицы. nil означает NULL.
// Значения: int64, string, decimal.Decimal, time.Time, bool.
type Row []any

// Table - упорядоченный набор строк с фиксированной схемой колонок
type Table struct {
	Name    string
	Columns []Column
	Rows    []Row

	index map[string]int
}

// NewTable создает пустую таблицу с заданной схемой
func NewTable(name string, columns ...Column) *Table {
	t := &Table{
		Name:    name,
		Columns: columns,
		index:   make(map[string]int, len(columns)),
	}
	for i, c := range columns {
		t.index[c.Name] = i
	}
	return t
}

// ColumnIndex возвращает позицию колонки по имени
func (t *Table) ColumnIndex(name string) (int, bool) {
	if t.index == nil {
		t.index = make(map[string]int, len(t.Columns))
		for i, c := range t.Columns {
			t.index[c.Name] = i
		}
	}
	i, ok := t.index[name]
	return i, ok
}

// HasColumn сообщает, есть ли колонка в схеме
func (t *Table) HasColumn(name string) bool {
	_, ok := t.ColumnIndex(name)
	return ok
}

// ColumnNames возвращает имена колонок в порядке схемы
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// Len возвращает количество строк
func (t *Table) Len() int {
	return len(t.Rows)
}

// Append добавляет строку, проверяя количество и типы значений
func (t *Table) Append(values ...any) error {
	if len(values) != len(t.Columns) {
		return fmt.Errorf("таблица %s: ожидалось %d значений, получено %d", t.Name, len(t.Columns), len(values))
	}
	for i, v := range values {
		if !valueMatches(t.Columns[i].Type, v) {
			return fmt.Errorf("таблица %s: колонка %s (%s) не принимает значение %v (%T)",
				t.Name, t.Columns[i].Name, t.Columns[i].Type, v, v)
		}
	}
	t.Rows = append(t.Rows, Row(values))
	return nil
}

// Value возвращает значение ячейки; nil для NULL или неизвестной колонки
func (t *Table) Value(row int, column string) any {
	i, ok := t.ColumnIndex(column)
	if !ok || row < 0 || row >= len(t.Rows) {
		return nil
	}
	return t.Rows[row][i]
}

// Values возвращает все значения колонки в порядке строк
func (t *Table) Values(column string) ([]any, error) {
	i, ok := t.ColumnIndex(column)
	if !ok {
		return nil, fmt.Errorf("таблица %s: колонка %s не найдена", t.Name, column)
	}
	out := make([]any, len(t.Rows))
	for r, row := range t.Rows {
		out[r] = row[i]
	}
	return out, nil
}

// Clone возвращает независимую копию таблицы
func (t *Table) Clone() *Table {
	c := NewTable(t.Name, append([]Column(nil), t.Columns...)...)
	c.Rows = make([]Row, len(t.Rows))
	for i, r := range t.Rows {
		c.Rows[i] = append(Row(nil), r...)
	}
	return c
}

// Filter возвращает копию таблицы только со строками, для которых keep вернул true
func (t *Table) Filter(keep func(Row) bool) *Table {
	c := NewTable(t.Name, append([]Column(nil), t.Columns...)...)
	for _, r := range t.Rows {
		if keep(r) {
			c.Rows = append(c.Rows, append(Row(nil), r...))
		}
	}
	return c
}

func valueMatches(typ ColumnType, v any) bool {
	if v == nil {
		return true
	}
	switch typ {
	case TypeInteger:
		_, ok := v.(int64)
		return ok
	case TypeString:
		_, ok := v.(string)
		return ok
	case TypeDecimal:
		_, ok := v.(decimal.Decimal)
		return ok
	case TypeDate:
		_, ok := v.(time.Time)
		return ok
	case TypeBoolean:
		_, ok := v.(bool)
		return ok
	}
	return false
}

// KeyString приводит значение ключевой колонки к строке для сравнения множеств ключей.
// NULL возвращает пустую строку и false.
func KeyString(v any) (string, bool) {
	switch x := v.(type) {
	case nil:
		return "", false
	case int64:
		return fmt.Sprintf("%d", x), true
	case string:
		return x, true
	case decimal.Decimal:
		return x.String(), true
	case time.Time:
		return x.Format(DateLayout), true
	case bool:
		return fmt.Sprintf("%t", x), true
	default:
		return fmt.Sprintf("%v", x), true
	}
}

// AsDecimal приводит числовое значение к decimal; ok=false для NULL и нечисловых значений
func AsDecimal(v any) (decimal.Decimal, bool) {
	switch x := v.(type) {
	case int64:
		return decimal.NewFromInt(x), true
	case decimal.Decimal:
		return x, true
	default:
		return decimal.Zero, false
	}
}

package models

import (
	"sort"
	"time"
)

// Warehouse содержит трансформированные таблицы, готовые к проверке и выгрузке.
// Таблицы после помещения в хранилище считаются неизменяемыми.
type Warehouse struct {
	tables map[string]*Table

	// Метаданные
	Metadata ETLMetadata
}

// ETLMetadata содержит метаданные о запуске построения
type ETLMetadata struct {
	BuiltAt            time.Time
	SourceRows         map[string]int
	NegativeDurations  int
	PlaceholderEndings int
}

// NewWarehouse создает пустое хранилище
func NewWarehouse() *Warehouse {
	return &Warehouse{tables: make(map[string]*Table)}
}

// Put помещает таблицу в хранилище под ее именем
func (w *Warehouse) Put(t *Table) {
	if w.tables == nil {
		w.tables = make(map[string]*Table)
	}
	w.tables[t.Name] = t
}

// Get возвращает таблицу по имени
func (w *Warehouse) Get(name string) (*Table, bool) {
	t, ok := w.tables[name]
	return t, ok && t != nil
}

// Delete убирает таблицу из хранилища
func (w *Warehouse) Delete(name string) {
	delete(w.tables, name)
}

// Names возвращает имена таблиц: сначала звездная схема в каноническом порядке,
// затем остальные (аналитические) по алфавиту
func (w *Warehouse) Names() []string {
	names := make([]string, 0, len(w.tables))
	seen := make(map[string]bool, len(StarSchemaTables))
	for _, n := range StarSchemaTables {
		if _, ok := w.tables[n]; ok {
			names = append(names, n)
			seen[n] = true
		}
	}
	var extra []string
	for n := range w.tables {
		if !seen[n] {
			extra = append(extra, n)
		}
	}
	sort.Strings(extra)
	return append(names, extra...)
}

// RowCounts возвращает количество строк по каждой таблице
func (w *Warehouse) RowCounts() map[string]int {
	counts := make(map[string]int, len(w.tables))
	for n, t := range w.tables {
		counts[n] = t.Len()
	}
	return counts
}

package transform

import (
	"fmt"

	"github.com/LilVoxy/dice_warehouse/ETL/models"
	"github.com/LilVoxy/dice_warehouse/ETL/utils"
)

// Anomaly - строка факта с подозрительным значением меры (например, отрицательная длительность).
// Строка сохраняется как есть, аномалию затем ловит проверка диапазонов.
type Anomaly struct {
	Table  string `json:"table" yaml:"table"`
	Column string `json:"column" yaml:"column"`
	Row    int    `json:"row" yaml:"row"`
	Value  string `json:"value" yaml:"value"`
	Reason string `json:"reason" yaml:"reason"`
}

// FactSet - результат построения фактов
type FactSet struct {
	Tables             map[string]*models.Table
	Anomalies          []Anomaly
	PlaceholderEndings int
}

// FactBuilder строит таблицы фактов по исходным таблицам и готовым измерениям
type FactBuilder struct {
	resolver PlaceholderResolver
	logger   *utils.ETLLogger
}

// NewFactBuilder создает новый экземпляр FactBuilder
func NewFactBuilder(resolver PlaceholderResolver, logger *utils.ETLLogger) *FactBuilder {
	return &FactBuilder{
		resolver: resolver,
		logger:   logger,
	}
}

// Build строит play_session_facts, user_plan_facts и payment_facts.
// dims должен содержать все шесть измерений, включая time_dimension.
func (b *FactBuilder) Build(sources models.SourceSet, dims map[string]*models.Table) (*FactSet, error) {
	lookups, err := newDimensionLookups(dims)
	if err != nil {
		return nil, err
	}

	set := &FactSet{Tables: make(map[string]*models.Table, 3)}

	b.logger.Info("Построение фактов игровых сессий...")
	sessions, err := b.buildPlaySessionFacts(sources, lookups, set)
	if err != nil {
		b.logger.Error("Ошибка при построении фактов игровых сессий: %v", err)
		return nil, fmt.Errorf("ошибка при построении %s: %w", models.PlaySessionFacts, err)
	}
	set.Tables[sessions.Name] = sessions

	b.logger.Info("Построение фактов подписок...")
	plans, err := b.buildUserPlanFacts(sources, lookups, set)
	if err != nil {
		b.logger.Error("Ошибка при построении фактов подписок: %v", err)
		return nil, fmt.Errorf("ошибка при построении %s: %w", models.UserPlanFacts, err)
	}
	set.Tables[plans.Name] = plans

	b.logger.Info("Построение фактов платежей...")
	payments, err := b.buildPaymentFacts(sources, lookups)
	if err != nil {
		b.logger.Error("Ошибка при построении фактов платежей: %v", err)
		return nil, fmt.Errorf("ошибка при построении %s: %w", models.PaymentFacts, err)
	}
	set.Tables[payments.Name] = payments

	if len(set.Anomalies) > 0 {
		b.logger.Warn("Обнаружено %d строк фактов с отрицательной длительностью", len(set.Anomalies))
	}
	b.logger.Debug("Заглушки окончания заменены датой отсечения: %d", set.PlaceholderEndings)
	return set, nil
}

func (b *FactBuilder) negativeDuration(set *FactSet, table, column string, row int, value fmt.Stringer) {
	b.logger.Warn("%s: отрицательная длительность %s в строке %d", table, value, row)
	set.Anomalies = append(set.Anomalies, Anomaly{
		Table:  table,
		Column: column,
		Row:    row,
		Value:  value.String(),
		Reason: "отрицательная длительность",
	})
}

// dimensionLookup - индекс ключей измерения: строковый ключ -> номер строки
type dimensionLookup struct {
	table *models.Table
	key   string
	rows  map[string]int
}

type dimensionLookups map[string]*dimensionLookup

func newDimensionLookups(dims map[string]*models.Table) (dimensionLookups, error) {
	lookups := make(dimensionLookups, len(models.DimensionKeys))
	for name, key := range models.DimensionKeys {
		t, ok := dims[name]
		if !ok || t == nil {
			return nil, models.MissingSource(name, "таблиц фактов")
		}
		pos, ok := t.ColumnIndex(key)
		if !ok {
			return nil, fmt.Errorf("измерение %s: ключевая колонка %s не найдена", name, key)
		}
		l := &dimensionLookup{table: t, key: key, rows: make(map[string]int, t.Len())}
		for i, row := range t.Rows {
			if k, ok := models.KeyString(row[pos]); ok {
				l.rows[k] = i
			}
		}
		lookups[name] = l
	}
	return lookups, nil
}

// resolve возвращает строку измерения по значению ключа или ErrUnresolvedForeignKey
func (l dimensionLookups) resolve(fact, column, dimension string, value any, row int) (int, error) {
	lookup := l[dimension]
	k, ok := models.KeyString(value)
	if ok {
		if i, found := lookup.rows[k]; found {
			return i, nil
		}
	}
	return -1, unresolved(fact, column, row, fmt.Sprintf("значение %v не найдено в %s.%s", value, dimension, lookup.key))
}

func unresolved(fact, column string, row int, detail string) error {
	return &models.BuildError{
		Kind:   models.ErrUnresolvedForeignKey,
		Table:  fact,
		Column: column,
		Rows:   1,
		Detail: fmt.Sprintf("исходная строка %d: %s", row+1, detail),
	}
}

// columnPositions возвращает позиции нужных колонок исходной таблицы
func columnPositions(t *models.Table, names ...string) ([]int, error) {
	pos := make([]int, len(names))
	for i, n := range names {
		p, ok := t.ColumnIndex(n)
		if !ok {
			return nil, fmt.Errorf("таблица %s: колонка %s не найдена", t.Name, n)
		}
		pos[i] = p
	}
	return pos, nil
}

package validate

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/LilVoxy/dice_warehouse/ETL/analytics"
	"github.com/LilVoxy/dice_warehouse/ETL/models"
	"github.com/LilVoxy/dice_warehouse/ETL/utils"
)

// Веса итоговой оценки
const (
	integrityWeight    = 0.6
	completenessWeight = 0.4
)

// AggregatePair связывает итог меры факта с итогом той же меры в сгруппированном наборе.
// Пустой FactColumn означает число строк факта.
type AggregatePair struct {
	Name          string
	Fact          string
	FactColumn    string
	Grouped       string
	GroupedColumn string
}

// DefaultAggregatePairs - итоги, которые должны совпадать между фактами и аналитическими наборами
var DefaultAggregatePairs = []AggregatePair{
	{Name: "monthly_revenue", Fact: models.PaymentFacts, FactColumn: "cost_amount", Grouped: analytics.MonthlyRevenueTable, GroupedColumn: "total_revenue"},
	{Name: "quarterly_revenue", Fact: models.PaymentFacts, FactColumn: "cost_amount", Grouped: analytics.QuarterlyRevenueTable, GroupedColumn: "total_revenue"},
	{Name: "revenue_by_method", Fact: models.PaymentFacts, FactColumn: "cost_amount", Grouped: analytics.PaymentsByMethodTable, GroupedColumn: "total_revenue"},
	{Name: "sessions_by_channel", Fact: models.PlaySessionFacts, Grouped: analytics.SessionsByChannelTable, GroupedColumn: "total_sessions"},
	{Name: "score_by_channel", Fact: models.PlaySessionFacts, FactColumn: "score", Grouped: analytics.SessionsByChannelTable, GroupedColumn: "total_score"},
}

// CardinalityBound - число различных значений колонки таблицы не больше числа строк измерения
type CardinalityBound struct {
	Name      string
	Table     string
	Column    string
	Dimension string
}

// DefaultCardinalityBounds - ограничения на число пользователей в фактах
var DefaultCardinalityBounds = []CardinalityBound{
	{Name: "session_users", Table: models.PlaySessionFacts, Column: "user_id", Dimension: models.UserDimension},
	{Name: "plan_users", Table: models.UserPlanFacts, Column: "user_id", Dimension: models.UserDimension},
}

// Validator выполняет фиксированный набор проверок хранилища. Хранилище не изменяется.
type Validator struct {
	tolerance float64
	pairs     []AggregatePair
	bounds    []CardinalityBound
	logger    *utils.ETLLogger
}

// NewValidator создает новый экземпляр Validator с абсолютным допуском tolerance
func NewValidator(tolerance float64, logger *utils.ETLLogger) *Validator {
	return &Validator{
		tolerance: tolerance,
		pairs:     DefaultAggregatePairs,
		bounds:    DefaultCardinalityBounds,
		logger:    logger,
	}
}

// Validate выполняет все проверки и всегда возвращает полный отчет
func (v *Validator) Validate(w *models.Warehouse) *Report {
	startTime := time.Now()
	v.logger.Info("Начало проверки целостности хранилища")

	report := &Report{
		RunID:       uuid.NewString(),
		GeneratedAt: time.Now().UTC(),
	}

	for _, name := range models.StarSchemaTables {
		if key, ok := models.DimensionKeys[name]; ok {
			report.Checks = append(report.Checks, checkKeyUniqueness(w, name, key))
		}
	}

	for _, fk := range models.ForeignKeys {
		report.Checks = append(report.Checks, checkReferentialCoverage(w, fk))
	}
	for _, m := range models.NonNegativeMeasures {
		report.Checks = append(report.Checks, checkValueRange(w, m))
	}
	for _, p := range v.pairs {
		report.Checks = append(report.Checks, checkCrossAggregate(w, p, v.tolerance))
	}
	for _, b := range v.bounds {
		report.Checks = append(report.Checks, checkCardinality(w, b))
	}
	completeness, present, missing := checkCompleteness(w)
	report.Checks = append(report.Checks, completeness)

	v.score(report, present, missing)

	for _, c := range report.Checks {
		switch c.Status {
		case StatusFail:
			v.logger.Warn("Проверка %s провалена: %s", c.Name, c.Message)
		case StatusSkipped:
			v.logger.Debug("Проверка %s пропущена: %s", c.Name, c.Message)
		}
	}
	v.logger.Info("Проверка завершена за %v: integrity %.1f, completeness %.1f, провалено %d из %d",
		time.Since(startTime), report.IntegrityScore, report.CompletenessScore,
		report.Summary.ChecksFailed, report.Summary.ChecksRun)
	return report
}

// score заполняет сводку и оценки. Пропущенные проверки не входят в знаменатель.
func (v *Validator) score(r *Report, present, missing []string) {
	s := &r.Summary
	s.TablesPresent = present
	s.TablesMissing = missing
	s.Issues = []string{}
	s.Recommendations = []string{}

	recommended := make(map[string]bool)
	for _, c := range r.Checks {
		switch c.Status {
		case StatusPass:
			s.ChecksRun++
			s.ChecksPassed++
		case StatusFail:
			s.ChecksRun++
			s.ChecksFailed++
			s.Issues = append(s.Issues, fmt.Sprintf("%s: %s", c.Name, c.Message))
			if rec := recommendations[c.Kind]; rec != "" && !recommended[c.Kind] {
				recommended[c.Kind] = true
				s.Recommendations = append(s.Recommendations, rec)
			}
		case StatusSkipped:
			s.ChecksSkipped++
		}
		if c.Kind == KindReferentialCoverage {
			if n, ok := c.Details["orphan_count"].(int); ok {
				s.OrphanedKeys += n
			}
		}
	}

	if s.ChecksRun > 0 {
		r.IntegrityScore = float64(s.ChecksPassed) / float64(s.ChecksRun) * 100
	}
	r.CompletenessScore = float64(len(present)) / float64(len(models.StarSchemaTables)) * 100
	r.OverallScore = integrityWeight*r.IntegrityScore + completenessWeight*r.CompletenessScore

	if len(s.Recommendations) == 0 && s.ChecksFailed == 0 {
		s.Recommendations = append(s.Recommendations, "Хранилище согласовано, действий не требуется")
	}
}

var recommendations = map[string]string{
	KindKeyUniqueness:       "Устраните повторяющиеся и пустые ключи измерений в исходных данных",
	KindReferentialCoverage: "Проверьте исходные ссылки: значения внешних ключей фактов отсутствуют в измерениях",
	KindValueRange:          "Проверьте исходные даты и меры: обнаружены отрицательные значения",
	KindCrossAggregate:      "Итоги фактов и аналитических наборов расходятся: проверьте соединения и фильтры",
	KindCardinality:         "Число пользователей в фактах превышает измерение: проверьте соединения на размножение строк",
	KindCompleteness:        "Перезапустите построение: не все таблицы звездной схемы созданы",
}

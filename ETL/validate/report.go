package validate

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Status - итог одной проверки
type Status string

const (
	StatusPass    Status = "PASS"
	StatusFail    Status = "FAIL"
	StatusSkipped Status = "SKIPPED"
)

// Виды проверок
const (
	KindKeyUniqueness       = "key_uniqueness"
	KindReferentialCoverage = "referential_coverage"
	KindValueRange          = "value_range"
	KindCrossAggregate      = "cross_aggregate"
	KindCardinality         = "cardinality"
	KindCompleteness        = "completeness"
)

// CheckResult - результат одной проверки
type CheckResult struct {
	Name    string         `json:"name" yaml:"name"`
	Kind    string         `json:"kind" yaml:"kind"`
	Status  Status         `json:"status" yaml:"status"`
	Message string         `json:"message,omitempty" yaml:"message,omitempty"`
	Details map[string]any `json:"details,omitempty" yaml:"details,omitempty"`
}

// Summary - сводка по отчету
type Summary struct {
	ChecksRun       int      `json:"checks_run" yaml:"checks_run"`
	ChecksPassed    int      `json:"checks_passed" yaml:"checks_passed"`
	ChecksFailed    int      `json:"checks_failed" yaml:"checks_failed"`
	ChecksSkipped   int      `json:"checks_skipped" yaml:"checks_skipped"`
	TablesPresent   []string `json:"tables_present" yaml:"tables_present"`
	TablesMissing   []string `json:"tables_missing" yaml:"tables_missing"`
	OrphanedKeys    int      `json:"orphaned_keys" yaml:"orphaned_keys"`
	Issues          []string `json:"issues" yaml:"issues"`
	Recommendations []string `json:"recommendations" yaml:"recommendations"`
}

// Report - полный отчет о целостности хранилища
type Report struct {
	RunID             string        `json:"run_id" yaml:"run_id"`
	GeneratedAt       time.Time     `json:"generated_at" yaml:"generated_at"`
	IntegrityScore    float64       `json:"integrity_score" yaml:"integrity_score"`
	CompletenessScore float64       `json:"completeness_score" yaml:"completeness_score"`
	OverallScore      float64       `json:"overall_score" yaml:"overall_score"`
	Summary           Summary       `json:"summary" yaml:"summary"`
	Checks            []CheckResult `json:"checks" yaml:"checks"`
}

// Check возвращает результат проверки по имени
func (r *Report) Check(name string) (CheckResult, bool) {
	for _, c := range r.Checks {
		if c.Name == name {
			return c, true
		}
	}
	return CheckResult{}, false
}

// Failed возвращает проваленные проверки в порядке выполнения
func (r *Report) Failed() []CheckResult {
	var failed []CheckResult
	for _, c := range r.Checks {
		if c.Status == StatusFail {
			failed = append(failed, c)
		}
	}
	return failed
}

// Passed сообщает, что ни одна проверка не провалена
func (r *Report) Passed() bool {
	return r.Summary.ChecksFailed == 0
}

// JSON сериализует отчет в JSON с отступами
func (r *Report) JSON() ([]byte, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("ошибка сериализации отчета в JSON: %w", err)
	}
	return data, nil
}

// YAML сериализует отчет в YAML
func (r *Report) YAML() ([]byte, error) {
	data, err := yaml.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("ошибка сериализации отчета в YAML: %w", err)
	}
	return data, nil
}

// WriteText пишет краткую сводку отчета для человека
func (r *Report) WriteText(w io.Writer) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Отчет о целостности хранилища (запуск %s, %s)\n", r.RunID, r.GeneratedAt.Format(time.RFC3339))
	b.WriteString(strings.Repeat("=", 60) + "\n")
	fmt.Fprintf(&b, "Integrity score:    %6.1f\n", r.IntegrityScore)
	fmt.Fprintf(&b, "Completeness score: %6.1f\n", r.CompletenessScore)
	fmt.Fprintf(&b, "Overall score:      %6.1f\n", r.OverallScore)
	fmt.Fprintf(&b, "Проверки: выполнено %d, успешно %d, провалено %d, пропущено %d\n",
		r.Summary.ChecksRun, r.Summary.ChecksPassed, r.Summary.ChecksFailed, r.Summary.ChecksSkipped)
	if len(r.Summary.TablesMissing) > 0 {
		fmt.Fprintf(&b, "Отсутствуют таблицы: %s\n", strings.Join(r.Summary.TablesMissing, ", "))
	}
	b.WriteString("\n")

	for _, c := range r.Checks {
		fmt.Fprintf(&b, "[%-7s] %s", c.Status, c.Name)
		if c.Message != "" {
			fmt.Fprintf(&b, ": %s", c.Message)
		}
		b.WriteString("\n")
	}

	if len(r.Summary.Issues) > 0 {
		b.WriteString("\nПроблемы:\n")
		for _, issue := range r.Summary.Issues {
			fmt.Fprintf(&b, "  - %s\n", issue)
		}
	}
	if len(r.Summary.Recommendations) > 0 {
		b.WriteString("\nРекомендации:\n")
		for _, rec := range r.Summary.Recommendations {
			fmt.Fprintf(&b, "  - %s\n", rec)
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

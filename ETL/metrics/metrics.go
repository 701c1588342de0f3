package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/LilVoxy/dice_warehouse/ETL/models"
	"github.com/LilVoxy/dice_warehouse/ETL/validate"
)

const namespace = "dice_etl"

// Metrics - коллекторы Prometheus для запусков ETL
type Metrics struct {
	registry *prometheus.Registry

	stageDuration     *prometheus.HistogramVec
	tableRows         *prometheus.GaugeVec
	integrityScore    prometheus.Gauge
	completenessScore prometheus.Gauge
	checkFailures     *prometheus.CounterVec
	runs              *prometheus.CounterVec
}

// New создает коллекторы в собственном реестре
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of each ETL pipeline stage.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}, []string{"stage"}),
		tableRows: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "table_rows",
			Help:      "Row count of each warehouse table after the last successful run.",
		}, []string{"table"}),
		integrityScore: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "integrity_score",
			Help:      "Integrity score (0-100) of the last validated warehouse.",
		}),
		completenessScore: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "completeness_score",
			Help:      "Completeness score (0-100) of the last validated warehouse.",
		}),
		checkFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "check_failures_total",
			Help:      "Number of failed integrity checks grouped by check name.",
		}, []string{"check"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Number of ETL runs grouped by final status.",
		}, []string{"status"}),
	}
	m.registry.MustRegister(
		m.stageDuration,
		m.tableRows,
		m.integrityScore,
		m.completenessScore,
		m.checkFailures,
		m.runs,
	)
	return m
}

// Registry возвращает реестр с коллекторами ETL
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler возвращает HTTP-обработчик /metrics
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveStage записывает длительность этапа
func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	m.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// RecordWarehouse записывает число строк каждой таблицы
func (m *Metrics) RecordWarehouse(w *models.Warehouse) {
	for name, rows := range w.RowCounts() {
		m.tableRows.WithLabelValues(name).Set(float64(rows))
	}
}

// RecordReport записывает оценки и проваленные проверки
func (m *Metrics) RecordReport(r *validate.Report) {
	m.integrityScore.Set(r.IntegrityScore)
	m.completenessScore.Set(r.CompletenessScore)
	for _, c := range r.Failed() {
		m.checkFailures.WithLabelValues(c.Name).Inc()
	}
}

// RecordRun увеличивает счетчик запусков со статусом status
func (m *Metrics) RecordRun(status string) {
	m.runs.WithLabelValues(status).Inc()
}

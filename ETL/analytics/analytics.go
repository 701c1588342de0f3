package analytics

import (
	"fmt"

	"github.com/LilVoxy/dice_warehouse/ETL/models"
	"github.com/LilVoxy/dice_warehouse/ETL/utils"
)

// Имена аналитических наборов
const (
	MonthlyRevenueTable      = "monthly_revenue"
	QuarterlyRevenueTable    = "quarterly_revenue"
	SessionsByChannelTable   = "play_sessions_by_channel"
	UserPaymentAnalysisTable = "user_payment_analysis"
	PaymentsByMethodTable    = "payments_by_method"
)

// Processor строит аналитические наборы поверх звездной схемы
type Processor struct {
	logger *utils.ETLLogger
}

// NewProcessor создает новый экземпляр Processor
func NewProcessor(logger *utils.ETLLogger) *Processor {
	return &Processor{
		logger: logger,
	}
}

type dataset struct {
	name  string
	fact  string
	dim   string
	build func(fact, dim *models.Table) (*models.Table, error)
}

var datasets = []dataset{
	{name: MonthlyRevenueTable, fact: models.PaymentFacts, dim: models.TimeDimension, build: MonthlyRevenue},
	{name: QuarterlyRevenueTable, fact: models.PaymentFacts, dim: models.TimeDimension, build: QuarterlyRevenue},
	{name: SessionsByChannelTable, fact: models.PlaySessionFacts, dim: models.ChannelDimension, build: SessionsByChannel},
	{name: UserPaymentAnalysisTable, fact: models.UserPlanFacts, dim: models.PlanDimension, build: UserPaymentAnalysis},
	{name: PaymentsByMethodTable, fact: models.PaymentFacts, dim: models.PaymentDimension, build: PaymentsByMethod},
}

// Process строит все наборы, для которых есть входные таблицы, и помещает их в хранилище.
// Набор без входных таблиц пропускается.
func (p *Processor) Process(w *models.Warehouse) error {
	p.logger.Info("Построение аналитических наборов...")

	for _, ds := range datasets {
		fact, okFact := w.Get(ds.fact)
		dim, okDim := w.Get(ds.dim)
		if !okFact || !okDim {
			p.logger.Warn("Набор %s пропущен: нет %s или %s", ds.name, ds.fact, ds.dim)
			continue
		}
		table, err := ds.build(fact, dim)
		if err != nil {
			p.logger.Error("Ошибка при построении набора %s: %v", ds.name, err)
			return fmt.Errorf("ошибка при построении набора %s: %w", ds.name, err)
		}
		w.Put(table)
		p.logger.Debug("Набор %s: %d строк", ds.name, table.Len())
	}
	return nil
}

// MonthlyRevenue - выручка и число транзакций по году и месяцу
func MonthlyRevenue(payments, timeDim *models.Table) (*models.Table, error) {
	return groupJoin(MonthlyRevenueTable, payments, timeDim, "date_id", "date_id",
		[]string{"year", "month"},
		[]aggregate{
			{name: "total_revenue", column: "cost_amount"},
			{name: "total_transactions"},
		})
}

// QuarterlyRevenue - выручка и число транзакций по году и кварталу
func QuarterlyRevenue(payments, timeDim *models.Table) (*models.Table, error) {
	return groupJoin(QuarterlyRevenueTable, payments, timeDim, "date_id", "date_id",
		[]string{"year", "quarter"},
		[]aggregate{
			{name: "total_revenue", column: "cost_amount"},
			{name: "total_transactions"},
		})
}

// SessionsByChannel - число сессий, сумма, среднее и медиана очков и длительностей по каналу
func SessionsByChannel(sessions, channels *models.Table) (*models.Table, error) {
	return groupJoin(SessionsByChannelTable, sessions, channels, "channel_id", "channel_id",
		[]string{"channel_id", "channel_name"},
		[]aggregate{
			{name: "total_sessions"},
			{name: "total_score", column: "score"},
			{name: "avg_score", column: "score", fn: aggMean},
			{name: "median_score", column: "score", fn: aggMedian},
			{name: "total_duration_minutes", column: "duration_minutes"},
			{name: "avg_duration_minutes", column: "duration_minutes", fn: aggMean},
			{name: "median_duration_minutes", column: "duration_minutes", fn: aggMedian},
		})
}

// UserPaymentAnalysis - выбор частоты оплаты: число подписок, выручка по тарифу,
// средняя стоимость и длительность подписки в днях
func UserPaymentAnalysis(userPlans, plans *models.Table) (*models.Table, error) {
	return groupJoin(UserPaymentAnalysisTable, userPlans, plans, "plan_id", "plan_id",
		[]string{"frequency_name"},
		[]aggregate{
			{name: "total_users", column: "user_id", fn: aggCount},
			{name: "total_revenue", column: "cost_amount", fromDim: true},
			{name: "avg_cost", column: "cost_amount", fn: aggMean, fromDim: true},
			{name: "avg_duration_days", column: "plan_duration_days", fn: aggMean},
			{name: "median_duration_days", column: "plan_duration_days", fn: aggMedian},
		})
}

// PaymentsByMethod - выручка и число транзакций по способу оплаты
func PaymentsByMethod(payments, details *models.Table) (*models.Table, error) {
	return groupJoin(PaymentsByMethodTable, payments, details, "payment_detail_id", "payment_detail_id",
		[]string{"payment_method_code"},
		[]aggregate{
			{name: "total_revenue", column: "cost_amount"},
			{name: "total_transactions"},
		})
}

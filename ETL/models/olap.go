package models

// Имена таблиц звездной схемы
const (
	UserDimension    = "user_dimension"
	TimeDimension    = "time_dimension"
	ChannelDimension = "channel_dimension"
	StatusDimension  = "status_dimension"
	PlanDimension    = "plan_dimension"
	PaymentDimension = "payment_dimension"

	PlaySessionFacts = "play_session_facts"
	UserPlanFacts    = "user_plan_facts"
	PaymentFacts     = "payment_facts"
)

// StarSchemaTables - ожидаемые таблицы хранилища в порядке построения
var StarSchemaTables = []string{
	UserDimension,
	TimeDimension,
	ChannelDimension,
	StatusDimension,
	PlanDimension,
	PaymentDimension,
	PlaySessionFacts,
	UserPlanFacts,
	PaymentFacts,
}

// DimensionKeys - ключевая колонка каждого измерения
var DimensionKeys = map[string]string{
	UserDimension:    "user_id",
	TimeDimension:    "date_id",
	ChannelDimension: "channel_id",
	StatusDimension:  "status_id",
	PlanDimension:    "plan_id",
	PaymentDimension: "payment_detail_id",
}

// TimeDimensionColumns - схема измерения времени
var TimeDimensionColumns = []Column{
	{Name: "date_id", Type: TypeInteger},
	{Name: "date", Type: TypeDate},
	{Name: "year", Type: TypeInteger},
	{Name: "month", Type: TypeInteger},
	{Name: "day", Type: TypeInteger},
	{Name: "day_of_week", Type: TypeInteger},
	{Name: "quarter", Type: TypeInteger},
	{Name: "is_weekend", Type: TypeBoolean},
}

// PlaySessionFactColumns - схема фактов игровых сессий
var PlaySessionFactColumns = []Column{
	{Name: "session_id", Type: TypeInteger},
	{Name: "user_id", Type: TypeInteger},
	{Name: "date_id", Type: TypeInteger},
	{Name: "channel_id", Type: TypeString},
	{Name: "status_id", Type: TypeString},
	{Name: "score", Type: TypeInteger},
	{Name: "duration_minutes", Type: TypeDecimal},
}

// UserPlanFactColumns - схема фактов подписок
var UserPlanFactColumns = []Column{
	{Name: "user_registration_id", Type: TypeInteger},
	{Name: "user_id", Type: TypeInteger},
	{Name: "plan_id", Type: TypeInteger},
	{Name: "payment_detail_id", Type: TypeInteger},
	{Name: "date_id", Type: TypeInteger},
	{Name: "plan_duration_days", Type: TypeInteger},
}

// PaymentFactColumns - схема фактов платежей
var PaymentFactColumns = []Column{
	{Name: "user_registration_id", Type: TypeInteger},
	{Name: "payment_detail_id", Type: TypeInteger},
	{Name: "plan_id", Type: TypeInteger},
	{Name: "date_id", Type: TypeInteger},
	{Name: "cost_amount", Type: TypeDecimal},
}

// ForeignKey связывает колонку факта с ключом измерения
type ForeignKey struct {
	Fact      string
	Column    string
	Dimension string
}

// ForeignKeys - все внешние ключи звездной схемы
var ForeignKeys = []ForeignKey{
	{Fact: PlaySessionFacts, Column: "user_id", Dimension: UserDimension},
	{Fact: PlaySessionFacts, Column: "date_id", Dimension: TimeDimension},
	{Fact: PlaySessionFacts, Column: "channel_id", Dimension: ChannelDimension},
	{Fact: PlaySessionFacts, Column: "status_id", Dimension: StatusDimension},
	{Fact: UserPlanFacts, Column: "user_id", Dimension: UserDimension},
	{Fact: UserPlanFacts, Column: "plan_id", Dimension: PlanDimension},
	{Fact: UserPlanFacts, Column: "payment_detail_id", Dimension: PaymentDimension},
	{Fact: UserPlanFacts, Column: "date_id", Dimension: TimeDimension},
	{Fact: PaymentFacts, Column: "plan_id", Dimension: PlanDimension},
	{Fact: PaymentFacts, Column: "payment_detail_id", Dimension: PaymentDimension},
	{Fact: PaymentFacts, Column: "date_id", Dimension: TimeDimension},
}

// MeasureRef указывает на числовую колонку таблицы
type MeasureRef struct {
	Table  string
	Column string
}

// NonNegativeMeasures - меры, которые не могут быть отрицательными
var NonNegativeMeasures = []MeasureRef{
	{Table: PlaySessionFacts, Column: "score"},
	{Table: PlaySessionFacts, Column: "duration_minutes"},
	{Table: UserPlanFacts, Column: "plan_duration_days"},
	{Table: PaymentFacts, Column: "cost_amount"},
}

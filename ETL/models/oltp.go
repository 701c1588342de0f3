package models

// Имена исходных таблиц (словарь данных выгрузки)
const (
	SourceUser                 = "user"
	SourceUserRegistration     = "user_registration"
	SourceUserPlaySession      = "user_play_session"
	SourcePlan                 = "plan"
	SourcePlanPaymentFrequency = "plan_payment_frequency"
	SourceUserPlan             = "user_plan"
	SourceUserPaymentDetail    = "user_payment_detail"
	SourceChannelCode          = "channel_code"
	SourceStatusCode           = "status_code"
)

// SourceSet - набор исходных таблиц по логическому имени.
// После загрузки является единственным источником данных для всего запуска.
type SourceSet map[string]*Table

// Require возвращает таблицу или ErrMissingSourceTable
func (s SourceSet) Require(name, neededBy string) (*Table, error) {
	t, ok := s[name]
	if !ok || t == nil {
		return nil, MissingSource(name, neededBy)
	}
	return t, nil
}

// SourceDictionary описывает колонки каждой исходной таблицы в порядке файла.
// Временные метки хранятся строками ISO-8601 и разбираются на этапе трансформации.
var SourceDictionary = map[string][]Column{
	SourceUser: {
		{Name: "user_id", Type: TypeInteger},
		{Name: "ip_address", Type: TypeString},
		{Name: "social_media_handle", Type: TypeString},
		{Name: "email", Type: TypeString},
	},
	SourceUserRegistration: {
		{Name: "user_registration_id", Type: TypeInteger},
		{Name: "user_id", Type: TypeInteger},
		{Name: "email", Type: TypeString},
		{Name: "username", Type: TypeString},
		{Name: "first_name", Type: TypeString},
		{Name: "last_name", Type: TypeString},
	},
	SourceUserPlaySession: {
		{Name: "play_session_id", Type: TypeInteger},
		{Name: "user_id", Type: TypeInteger},
		{Name: "start_datetime", Type: TypeString},
		{Name: "end_datetime", Type: TypeString},
		{Name: "channel_code", Type: TypeString},
		{Name: "status_code", Type: TypeString},
		{Name: "total_score", Type: TypeInteger},
	},
	SourcePlan: {
		{Name: "plan_id", Type: TypeInteger},
		{Name: "payment_frequency_code", Type: TypeString},
		{Name: "cost_amount", Type: TypeDecimal},
	},
	SourcePlanPaymentFrequency: {
		{Name: "payment_frequency_code", Type: TypeString},
		{Name: "english_description", Type: TypeString},
		{Name: "french_description", Type: TypeString},
	},
	SourceUserPlan: {
		{Name: "user_registration_id", Type: TypeInteger},
		{Name: "payment_detail_id", Type: TypeInteger},
		{Name: "plan_id", Type: TypeInteger},
		{Name: "start_date", Type: TypeString},
		{Name: "end_date", Type: TypeString},
	},
	SourceUserPaymentDetail: {
		{Name: "payment_detail_id", Type: TypeInteger},
		{Name: "payment_method_code", Type: TypeString},
		{Name: "payment_method_value", Type: TypeString},
		{Name: "payment_method_expiry", Type: TypeString},
	},
	SourceChannelCode: {
		{Name: "play_session_channel_code", Type: TypeString},
		{Name: "english_description", Type: TypeString},
		{Name: "french_description", Type: TypeString},
	},
	SourceStatusCode: {
		{Name: "play_session_status_code", Type: TypeString},
		{Name: "english_description", Type: TypeString},
		{Name: "french_description", Type: TypeString},
	},
}

// SourceTableNames - исходные таблицы в порядке загрузки
var SourceTableNames = []string{
	SourceUser,
	SourceUserRegistration,
	SourceUserPlaySession,
	SourcePlan,
	SourcePlanPaymentFrequency,
	SourceUserPlan,
	SourceUserPaymentDetail,
	SourceChannelCode,
	SourceStatusCode,
}

// NewSourceTable создает пустую исходную таблицу по словарю данных
func NewSourceTable(name string) *Table {
	return NewTable(name, append([]Column(nil), SourceDictionary[name]...)...)
}

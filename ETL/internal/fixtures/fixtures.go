// Package fixtures содержит небольшой согласованный набор исходных данных для тестов:
// 3 пользователя (один без регистрации), 5 сессий в 2 каналах за 3 дня, 2 подписки.
package fixtures

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/shopspring/decimal"

	"github.com/LilVoxy/dice_warehouse/ETL/models"
)

// SourceCSV - исходные выгрузки в формате CSV по имени таблицы
var SourceCSV = map[string]string{
	models.SourceUser: `user_id,ip_address,social_media_handle,email
1,10.0.0.1,@alice,alice@example.com
2,10.0.0.2,@bob,bob@example.com
3,10.0.0.3,@carol,carol@example.com
`,
	models.SourceUserRegistration: `user_registration_id,user_id,email,username,first_name,last_name
10,1,alice@dice.io,alice,Alice,Smith
11,2,bob@dice.io,bob,Bob,Jones
`,
	models.SourceUserPlaySession: `play_session_id,user_id,start_datetime,end_datetime,channel_code,status_code,total_score
1,1,2024-01-01 10:00:00,2024-01-01 10:30:00,WEB,COMP,100
2,2,2024-01-01 12:00:00,2024-01-01 13:00:00,MOB,COMP,200
3,3,2024-01-02 09:00:00,2024-01-02 09:15:00,WEB,ABND,50
4,1,2024-01-03 20:00:00,2024-01-03 21:30:00,MOB,COMP,300
5,2,2024-01-02 08:00:00,9999-01-01 00:00:00,WEB,ABND,0
`,
	models.SourcePlan: `plan_id,payment_frequency_code,cost_amount
1,MONTHLY,9.99
2,ANNUALLY,99.99
`,
	models.SourcePlanPaymentFrequency: `payment_frequency_code,english_description,french_description
MONTHLY,Monthly,Mensuel
ANNUALLY,Annually,Annuel
`,
	models.SourceUserPlan: `user_registration_id,payment_detail_id,plan_id,start_date,end_date
10,100,1,2024-01-01,9999-01-01
11,101,2,2024-01-02,2024-01-03
`,
	models.SourceUserPaymentDetail: `payment_detail_id,payment_method_code,payment_method_value,payment_method_expiry
100,VISA,4111111111111111,2026-01
101,PAYPAL,bob@example.com,
`,
	models.SourceChannelCode: `play_session_channel_code,english_description,french_description
WEB,Browser,Navigateur
MOB,Mobile,Mobile
`,
	models.SourceStatusCode: `play_session_status_code,english_description,french_description
COMP,Completed,Termine
ABND,Abandoned,Abandonne
`,
}

// Ожидаемые величины для набора
const (
	Users          = 3
	Sessions       = 5
	Days           = 3
	Payments       = 2
	FirstDateKey   = 20240101
	LastDateKey    = 20240103
	TotalRevenue   = "109.98"
	PlaceholderEnd = 2
)

// SampleSources возвращает набор исходных таблиц, совпадающий с SourceCSV после чтения
func SampleSources() models.SourceSet {
	return models.SourceSet{
		models.SourceUser: table(models.SourceUser,
			[]any{int64(1), "10.0.0.1", "@alice", "alice@example.com"},
			[]any{int64(2), "10.0.0.2", "@bob", "bob@example.com"},
			[]any{int64(3), "10.0.0.3", "@carol", "carol@example.com"},
		),
		models.SourceUserRegistration: table(models.SourceUserRegistration,
			[]any{int64(10), int64(1), "alice@dice.io", "alice", "Alice", "Smith"},
			[]any{int64(11), int64(2), "bob@dice.io", "bob", "Bob", "Jones"},
		),
		models.SourceUserPlaySession: table(models.SourceUserPlaySession,
			[]any{int64(1), int64(1), "2024-01-01 10:00:00", "2024-01-01 10:30:00", "WEB", "COMP", int64(100)},
			[]any{int64(2), int64(2), "2024-01-01 12:00:00", "2024-01-01 13:00:00", "MOB", "COMP", int64(200)},
			[]any{int64(3), int64(3), "2024-01-02 09:00:00", "2024-01-02 09:15:00", "WEB", "ABND", int64(50)},
			[]any{int64(4), int64(1), "2024-01-03 20:00:00", "2024-01-03 21:30:00", "MOB", "COMP", int64(300)},
			[]any{int64(5), int64(2), "2024-01-02 08:00:00", "9999-01-01 00:00:00", "WEB", "ABND", int64(0)},
		),
		models.SourcePlan: table(models.SourcePlan,
			[]any{int64(1), "MONTHLY", decimal.RequireFromString("9.99")},
			[]any{int64(2), "ANNUALLY", decimal.RequireFromString("99.99")},
		),
		models.SourcePlanPaymentFrequency: table(models.SourcePlanPaymentFrequency,
			[]any{"MONTHLY", "Monthly", "Mensuel"},
			[]any{"ANNUALLY", "Annually", "Annuel"},
		),
		models.SourceUserPlan: table(models.SourceUserPlan,
			[]any{int64(10), int64(100), int64(1), "2024-01-01", "9999-01-01"},
			[]any{int64(11), int64(101), int64(2), "2024-01-02", "2024-01-03"},
		),
		models.SourceUserPaymentDetail: table(models.SourceUserPaymentDetail,
			[]any{int64(100), "VISA", "4111111111111111", "2026-01"},
			[]any{int64(101), "PAYPAL", "bob@example.com", nil},
		),
		models.SourceChannelCode: table(models.SourceChannelCode,
			[]any{"WEB", "Browser", "Navigateur"},
			[]any{"MOB", "Mobile", "Mobile"},
		),
		models.SourceStatusCode: table(models.SourceStatusCode,
			[]any{"COMP", "Completed", "Termine"},
			[]any{"ABND", "Abandoned", "Abandonne"},
		),
	}
}

// WriteSourceDir записывает SourceCSV в dir, пропуская таблицы из skip
func WriteSourceDir(dir string, skip ...string) error {
	skipped := make(map[string]bool, len(skip))
	for _, s := range skip {
		skipped[s] = true
	}
	for name, content := range SourceCSV {
		if skipped[name] {
			continue
		}
		if err := os.WriteFile(filepath.Join(dir, name+".csv"), []byte(content), 0o644); err != nil {
			return err
		}
	}
	return nil
}

func table(name string, rows ...[]any) *models.Table {
	t := models.NewSourceTable(name)
	for _, r := range rows {
		if err := t.Append(r...); err != nil {
			panic(fmt.Sprintf("fixtures: %v", err))
		}
	}
	return t
}

package extractors

import (
	"sort"
	"strings"

	"github.com/LilVoxy/dice_warehouse/ETL/models"
)

// TableProfile - сводка по одной исходной таблице
type TableProfile struct {
	Name          string         `json:"name" yaml:"name"`
	Rows          int            `json:"rows" yaml:"rows"`
	Columns       int            `json:"columns" yaml:"columns"`
	NullCounts    map[string]int `json:"null_counts" yaml:"null_counts"`
	DuplicateRows int            `json:"duplicate_rows" yaml:"duplicate_rows"`
}

// Profile считает строки, колонки, NULL и полные дубликаты строк для каждой таблицы.
// Порядок: таблицы словаря данных, затем остальные по алфавиту.
func Profile(sources models.SourceSet) []TableProfile {
	var profiles []TableProfile
	for _, name := range orderedNames(sources) {
		t := sources[name]
		p := TableProfile{
			Name:       name,
			Rows:       t.Len(),
			Columns:    len(t.Columns),
			NullCounts: make(map[string]int, len(t.Columns)),
		}
		for _, c := range t.Columns {
			p.NullCounts[c.Name] = 0
		}

		seen := make(map[string]struct{}, t.Len())
		for _, row := range t.Rows {
			for i, v := range row {
				if v == nil {
					p.NullCounts[t.Columns[i].Name]++
				}
			}
			key := rowKey(row)
			if _, dup := seen[key]; dup {
				p.DuplicateRows++
				continue
			}
			seen[key] = struct{}{}
		}
		profiles = append(profiles, p)
	}
	return profiles
}

// RelationshipReport - пересечения ключей между связанными исходными таблицами
type RelationshipReport struct {
	UserRegistration *UserRegistrationOverlap `json:"user_registration,omitempty" yaml:"user_registration,omitempty"`
	PlaySessions     *PlaySessionOverlap      `json:"play_sessions,omitempty" yaml:"play_sessions,omitempty"`
	UserPlans        *UserPlanOverlap         `json:"user_plans,omitempty" yaml:"user_plans,omitempty"`
}

// UserRegistrationOverlap сравнивает user_id в user и user_registration
type UserRegistrationOverlap struct {
	UsersInRegistration     int `json:"users_in_registration" yaml:"users_in_registration"`
	UsersOnlyInUser         int `json:"users_only_in_user" yaml:"users_only_in_user"`
	UsersOnlyInRegistration int `json:"users_only_in_registration" yaml:"users_only_in_registration"`
}

// PlaySessionOverlap сравнивает user_id сессий с таблицей user
type PlaySessionOverlap struct {
	SessionUsersKnown   int `json:"session_users_known" yaml:"session_users_known"`
	SessionUsersUnknown int `json:"session_users_unknown" yaml:"session_users_unknown"`
}

// UserPlanOverlap сравнивает plan_id подписок с таблицей plan
type UserPlanOverlap struct {
	ValidPlanReferences   int `json:"valid_plan_references" yaml:"valid_plan_references"`
	InvalidPlanReferences int `json:"invalid_plan_references" yaml:"invalid_plan_references"`
}

// Relationships проверяет базовые связи между исходными таблицами.
// Связь пропускается, если одной из таблиц нет.
func Relationships(sources models.SourceSet) RelationshipReport {
	var report RelationshipReport

	users := keySet(sources[models.SourceUser], "user_id")

	if users != nil {
		if reg := keySet(sources[models.SourceUserRegistration], "user_id"); reg != nil {
			both, onlyUsers, onlyReg := overlap(users, reg)
			report.UserRegistration = &UserRegistrationOverlap{
				UsersInRegistration:     both,
				UsersOnlyInUser:         onlyUsers,
				UsersOnlyInRegistration: onlyReg,
			}
		}
		if sessions := keySet(sources[models.SourceUserPlaySession], "user_id"); sessions != nil {
			both, _, unknown := overlap(users, sessions)
			report.PlaySessions = &PlaySessionOverlap{
				SessionUsersKnown:   both,
				SessionUsersUnknown: unknown,
			}
		}
	}

	plans := keySet(sources[models.SourcePlan], "plan_id")
	userPlans := keySet(sources[models.SourceUserPlan], "plan_id")
	if plans != nil && userPlans != nil {
		both, _, invalid := overlap(plans, userPlans)
		report.UserPlans = &UserPlanOverlap{
			ValidPlanReferences:   both,
			InvalidPlanReferences: invalid,
		}
	}

	return report
}

// keySet возвращает множество ненулевых значений колонки; nil, если таблицы или колонки нет
func keySet(t *models.Table, column string) map[string]struct{} {
	if t == nil {
		return nil
	}
	values, err := t.Values(column)
	if err != nil {
		return nil
	}
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		if k, ok := models.KeyString(v); ok {
			set[k] = struct{}{}
		}
	}
	return set
}

// overlap возвращает размеры a∩b, a\b и b\a
func overlap(a, b map[string]struct{}) (both, onlyA, onlyB int) {
	for k := range a {
		if _, ok := b[k]; ok {
			both++
		} else {
			onlyA++
		}
	}
	onlyB = len(b) - both
	return both, onlyA, onlyB
}

func rowKey(row models.Row) string {
	parts := make([]string, len(row))
	for i, v := range row {
		if k, ok := models.KeyString(v); ok {
			parts[i] = k
		} else {
			parts[i] = "\x00"
		}
	}
	return strings.Join(parts, "\x1f")
}

func orderedNames(sources models.SourceSet) []string {
	var names []string
	for _, n := range models.SourceTableNames {
		if sources[n] != nil {
			names = append(names, n)
		}
	}
	var extra []string
	for n, t := range sources {
		if _, known := models.SourceDictionary[n]; !known && t != nil {
			extra = append(extra, n)
		}
	}
	sort.Strings(extra)
	return append(names, extra...)
}

package transform

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/LilVoxy/dice_warehouse/ETL/models"
)

// buildUserPlanFacts строит факты подписок: одна строка на запись user_plan.
// user_id берется из user_registration по user_registration_id.
func (b *FactBuilder) buildUserPlanFacts(sources models.SourceSet, lookups dimensionLookups, set *FactSet) (*models.Table, error) {
	src, err := sources.Require(models.SourceUserPlan, models.UserPlanFacts)
	if err != nil {
		return nil, err
	}
	registrations, err := registrationUsers(sources)
	if err != nil {
		return nil, err
	}
	pos, err := columnPositions(src, "user_registration_id", "payment_detail_id", "plan_id", "start_date", "end_date")
	if err != nil {
		return nil, err
	}
	const (
		registrationID = iota
		paymentDetailID
		planID
		startCol
		endCol
	)

	out := models.NewTable(models.UserPlanFacts, models.UserPlanFactColumns...)
	for i, row := range src.Rows {
		regKey, _ := models.KeyString(row[pos[registrationID]])
		userID, ok := registrations[regKey]
		if !ok {
			return nil, unresolved(out.Name, "user_id", i,
				fmt.Sprintf("user_registration_id %v не найден в %s", row[pos[registrationID]], models.SourceUserRegistration))
		}
		if _, err := lookups.resolve(out.Name, "user_id", models.UserDimension, userID, i); err != nil {
			return nil, err
		}
		if _, err := lookups.resolve(out.Name, "plan_id", models.PlanDimension, row[pos[planID]], i); err != nil {
			return nil, err
		}
		if _, err := lookups.resolve(out.Name, "payment_detail_id", models.PaymentDimension, row[pos[paymentDetailID]], i); err != nil {
			return nil, err
		}

		start, ok := startTime(row[pos[startCol]])
		if !ok {
			return nil, unresolved(out.Name, "date_id", i, fmt.Sprintf("start_date %v не является датой", row[pos[startCol]]))
		}
		dateKey := int64(models.EncodeDateKey(start))
		if _, err := lookups.resolve(out.Name, "date_id", models.TimeDimension, dateKey, i); err != nil {
			return nil, err
		}

		end, replaced := b.resolver.ResolveEnd(row[pos[endCol]])
		if replaced {
			set.PlaceholderEndings++
		}
		days := DurationDays(start, end)
		if days < 0 {
			b.negativeDuration(set, out.Name, "plan_duration_days", i, decimal.NewFromInt(days))
		}

		err := out.Append(
			row[pos[registrationID]],
			userID,
			row[pos[planID]],
			row[pos[paymentDetailID]],
			dateKey,
			days,
		)
		if err != nil {
			return nil, err
		}
	}

	b.logger.Debug("%s: %d строк", out.Name, out.Len())
	return out, nil
}

// buildPaymentFacts строит факты платежей: подписка, соединенная с планом; сумма - стоимость плана
func (b *FactBuilder) buildPaymentFacts(sources models.SourceSet, lookups dimensionLookups) (*models.Table, error) {
	src, err := sources.Require(models.SourceUserPlan, models.PaymentFacts)
	if err != nil {
		return nil, err
	}
	pos, err := columnPositions(src, "user_registration_id", "payment_detail_id", "plan_id", "start_date")
	if err != nil {
		return nil, err
	}
	const (
		registrationID = iota
		paymentDetailID
		planID
		startCol
	)

	plans := lookups[models.PlanDimension]
	costPos, ok := plans.table.ColumnIndex("cost_amount")
	if !ok {
		return nil, fmt.Errorf("измерение %s: колонка cost_amount не найдена", models.PlanDimension)
	}

	out := models.NewTable(models.PaymentFacts, models.PaymentFactColumns...)
	for i, row := range src.Rows {
		planRow, err := lookups.resolve(out.Name, "plan_id", models.PlanDimension, row[pos[planID]], i)
		if err != nil {
			return nil, err
		}
		if _, err := lookups.resolve(out.Name, "payment_detail_id", models.PaymentDimension, row[pos[paymentDetailID]], i); err != nil {
			return nil, err
		}

		start, ok := startTime(row[pos[startCol]])
		if !ok {
			return nil, unresolved(out.Name, "date_id", i, fmt.Sprintf("start_date %v не является датой", row[pos[startCol]]))
		}
		dateKey := int64(models.EncodeDateKey(start))
		if _, err := lookups.resolve(out.Name, "date_id", models.TimeDimension, dateKey, i); err != nil {
			return nil, err
		}

		err = out.Append(
			row[pos[registrationID]],
			row[pos[paymentDetailID]],
			row[pos[planID]],
			dateKey,
			plans.table.Rows[planRow][costPos],
		)
		if err != nil {
			return nil, err
		}
	}

	b.logger.Debug("%s: %d строк", out.Name, out.Len())
	return out, nil
}

// registrationUsers строит отображение user_registration_id -> user_id
func registrationUsers(sources models.SourceSet) (map[string]any, error) {
	reg, err := sources.Require(models.SourceUserRegistration, models.UserPlanFacts)
	if err != nil {
		return nil, err
	}
	pos, err := columnPositions(reg, "user_registration_id", "user_id")
	if err != nil {
		return nil, err
	}
	users := make(map[string]any, reg.Len())
	for _, row := range reg.Rows {
		k, ok := models.KeyString(row[pos[0]])
		if !ok || row[pos[1]] == nil {
			continue
		}
		if _, dup := users[k]; !dup {
			users[k] = row[pos[1]]
		}
	}
	return users, nil
}

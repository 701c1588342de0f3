package transform

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/LilVoxy/dice_warehouse/ETL/models"
)

// PlaceholderResolver заменяет заглушку "нет окончания" датой отсечения
type PlaceholderResolver struct {
	Sentinel time.Time
	Cutoff   time.Time
}

// NewPlaceholderResolver создает резолвер для пары дат заглушки и отсечения
func NewPlaceholderResolver(sentinel, cutoff time.Time) PlaceholderResolver {
	return PlaceholderResolver{
		Sentinel: models.TruncateDate(sentinel),
		Cutoff:   models.TruncateDate(cutoff),
	}
}

// ResolveEnd возвращает момент окончания для расчета длительности.
// NULL, пустая строка, нераспознанная метка или дата не раньше заглушки заменяются
// датой отсечения; replaced сообщает о замене. Исходное значение не изменяется.
func (r PlaceholderResolver) ResolveEnd(v any) (end time.Time, replaced bool) {
	switch x := v.(type) {
	case time.Time:
		end = x
	case string:
		t, err := models.ParseTimestamp(x)
		if err != nil {
			return r.Cutoff, true
		}
		end = t
	default:
		return r.Cutoff, true
	}
	if !models.TruncateDate(end).Before(r.Sentinel) {
		return r.Cutoff, true
	}
	return end, false
}

// startTime разбирает обязательную метку начала
func startTime(v any) (time.Time, bool) {
	switch x := v.(type) {
	case time.Time:
		return x, true
	case string:
		t, err := models.ParseTimestamp(x)
		if err != nil {
			return time.Time{}, false
		}
		return t, true
	default:
		return time.Time{}, false
	}
}

var (
	secondsPerMinute = decimal.NewFromInt(60)
	minutePrecision  = int32(4)
)

// DurationMinutes - разница end-start в минутах с дробной частью
func DurationMinutes(start, end time.Time) decimal.Decimal {
	seconds := decimal.NewFromInt(end.Unix() - start.Unix()).
		Add(decimal.New(int64(end.Nanosecond()-start.Nanosecond()), -9))
	return seconds.DivRound(secondsPerMinute, minutePrecision)
}

// DurationDays - число полных календарных дней между датами start и end
func DurationDays(start, end time.Time) int64 {
	s := models.TruncateDate(start)
	e := models.TruncateDate(end)
	return (e.Unix() - s.Unix()) / 86400
}

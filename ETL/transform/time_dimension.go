package transform

import (
	"fmt"
	"time"

	"github.com/LilVoxy/dice_warehouse/ETL/models"
	"github.com/LilVoxy/dice_warehouse/ETL/utils"
)

// TemporalField - колонка исходной таблицы с временными метками
type TemporalField struct {
	Table  string
	Column string
}

// DefaultTemporalFields - источники дат для измерения времени
var DefaultTemporalFields = []TemporalField{
	{Table: models.SourceUserPlaySession, Column: "start_datetime"},
	{Table: models.SourceUserPlaySession, Column: "end_datetime"},
	{Table: models.SourceUserPlan, Column: "start_date"},
}

// DateDimensionGenerator строит непрерывное измерение времени по наблюдаемому диапазону дат
type DateDimensionGenerator struct {
	fields   []TemporalField
	sentinel time.Time
	logger   *utils.ETLLogger
}

// NewDateDimensionGenerator создает новый экземпляр DateDimensionGenerator.
// Даты не раньше sentinel считаются заглушками и в диапазон не входят.
func NewDateDimensionGenerator(fields []TemporalField, sentinel time.Time, logger *utils.ETLLogger) *DateDimensionGenerator {
	return &DateDimensionGenerator{
		fields:   fields,
		sentinel: models.TruncateDate(sentinel),
		logger:   logger,
	}
}

// Generate возвращает по одной строке на каждый день отрезка [min, max] наблюдаемых дат
func (g *DateDimensionGenerator) Generate(sources models.SourceSet) (*models.Table, error) {
	g.logger.Debug("Построение измерения времени...")

	var (
		minDate, maxDate time.Time
		observed         int
		skipped          int
	)
	for _, f := range g.fields {
		table, err := sources.Require(f.Table, models.TimeDimension)
		if err != nil {
			return nil, err
		}
		values, err := table.Values(f.Column)
		if err != nil {
			return nil, fmt.Errorf("измерение времени: %w", err)
		}

		for _, v := range values {
			d, ok := g.observedDate(v)
			if !ok {
				if v != nil {
					skipped++
				}
				continue
			}
			if observed == 0 || d.Before(minDate) {
				minDate = d
			}
			if observed == 0 || d.After(maxDate) {
				maxDate = d
			}
			observed++
		}
	}

	if observed == 0 {
		return nil, &models.BuildError{
			Kind:   models.ErrInsufficientTemporalData,
			Table:  models.TimeDimension,
			Detail: fmt.Sprintf("нет пригодных временных меток в %d исходных полях", len(g.fields)),
		}
	}
	if skipped > 0 {
		g.logger.Debug("Измерение времени: пропущено %d нераспознанных или заглушечных дат", skipped)
	}

	out := models.NewTable(models.TimeDimension, models.TimeDimensionColumns...)
	for d := minDate; !d.After(maxDate); d = d.AddDate(0, 0, 1) {
		dayOfWeek := models.ISOWeekday(d)
		month := int(d.Month())
		err := out.Append(
			int64(models.EncodeDateKey(d)),
			d,
			int64(d.Year()),
			int64(month),
			int64(d.Day()),
			int64(dayOfWeek),
			int64(models.Quarter(month)),
			dayOfWeek >= 6,
		)
		if err != nil {
			return nil, err
		}
	}

	g.logger.Info("Измерение времени: %s - %s, %d дней", minDate.Format(models.DateLayout), maxDate.Format(models.DateLayout), out.Len())
	return out, nil
}

// observedDate возвращает календарную дату значения; false для NULL, мусора и заглушек
func (g *DateDimensionGenerator) observedDate(v any) (time.Time, bool) {
	var t time.Time
	switch x := v.(type) {
	case string:
		parsed, err := models.ParseTimestamp(x)
		if err != nil {
			return time.Time{}, false
		}
		t = parsed
	case time.Time:
		t = x
	default:
		return time.Time{}, false
	}
	d := models.TruncateDate(t)
	if !d.Before(g.sentinel) {
		return time.Time{}, false
	}
	return d, true
}

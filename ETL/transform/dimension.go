package transform

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/LilVoxy/dice_warehouse/ETL/models"
	"github.com/LilVoxy/dice_warehouse/ETL/utils"
)

// Extension описывает необязательную таблицу-расширение, присоединяемую левым соединением
type Extension struct {
	Table        string
	BaseKey      string
	ExtensionKey string
}

// ColumnRule описывает одну выходную колонку измерения.
//
// Base - колонка базовой таблицы. Extension - колонка расширения; если заданы обе,
// берется значение расширения, а при его отсутствии - базовое. Flag - логическая
// колонка, истинная, когда колонка Extension не NULL после соединения.
type ColumnRule struct {
	Name      string
	Base      string
	Extension string
	Flag      bool
}

// DimensionDef описывает построение одного измерения
type DimensionDef struct {
	Name      string
	Source    string
	Extension *Extension
	Key       string
	Columns   []ColumnRule
}

// DefaultDimensions возвращает определения пяти измерений, строящихся из исходных таблиц.
// Измерение времени строит DateDimensionGenerator.
func DefaultDimensions() []DimensionDef {
	return []DimensionDef{
		{
			Name:   models.UserDimension,
			Source: models.SourceUser,
			Extension: &Extension{
				Table:        models.SourceUserRegistration,
				BaseKey:      "user_id",
				ExtensionKey: "user_id",
			},
			Key: "user_id",
			Columns: []ColumnRule{
				{Name: "user_id", Base: "user_id"},
				{Name: "ip_address", Base: "ip_address"},
				{Name: "social_media_handle", Base: "social_media_handle"},
				{Name: "email", Base: "email", Extension: "email"},
				{Name: "username", Extension: "username"},
				{Name: "first_name", Extension: "first_name"},
				{Name: "last_name", Extension: "last_name"},
				{Name: "is_registered", Extension: "user_registration_id", Flag: true},
			},
		},
		{
			Name:   models.ChannelDimension,
			Source: models.SourceChannelCode,
			Key:    "channel_id",
			Columns: []ColumnRule{
				{Name: "channel_id", Base: "play_session_channel_code"},
				{Name: "channel_name", Base: "english_description"},
				{Name: "channel_name_fr", Base: "french_description"},
			},
		},
		{
			Name:   models.StatusDimension,
			Source: models.SourceStatusCode,
			Key:    "status_id",
			Columns: []ColumnRule{
				{Name: "status_id", Base: "play_session_status_code"},
				{Name: "status_name", Base: "english_description"},
				{Name: "status_name_fr", Base: "french_description"},
			},
		},
		{
			Name:   models.PlanDimension,
			Source: models.SourcePlan,
			Extension: &Extension{
				Table:        models.SourcePlanPaymentFrequency,
				BaseKey:      "payment_frequency_code",
				ExtensionKey: "payment_frequency_code",
			},
			Key: "plan_id",
			Columns: []ColumnRule{
				{Name: "plan_id", Base: "plan_id"},
				{Name: "payment_frequency_code", Base: "payment_frequency_code"},
				{Name: "cost_amount", Base: "cost_amount"},
				{Name: "frequency_name", Extension: "english_description"},
				{Name: "frequency_name_fr", Extension: "french_description"},
			},
		},
		{
			Name:   models.PaymentDimension,
			Source: models.SourceUserPaymentDetail,
			Key:    "payment_detail_id",
			Columns: []ColumnRule{
				{Name: "payment_detail_id", Base: "payment_detail_id"},
				{Name: "payment_method_code", Base: "payment_method_code"},
				{Name: "payment_method_value", Base: "payment_method_value"},
				{Name: "payment_method_expiry", Base: "payment_method_expiry"},
			},
		},
	}
}

// DimensionBuilder строит таблицы измерений по определениям
type DimensionBuilder struct {
	logger *utils.ETLLogger
}

// NewDimensionBuilder создает новый экземпляр DimensionBuilder
func NewDimensionBuilder(logger *utils.ETLLogger) *DimensionBuilder {
	return &DimensionBuilder{
		logger: logger,
	}
}

// resolvedRule - правило колонки с позициями в базовой таблице и расширении (-1 если нет)
type resolvedRule struct {
	basePos int
	extPos  int
	flag    bool
}

// Build строит одно измерение. Все строки базовой таблицы сохраняются; строки без пары
// в расширении получают NULL в колонках расширения и false во флагах.
func (b *DimensionBuilder) Build(def DimensionDef, sources models.SourceSet) (*models.Table, error) {
	b.logger.Debug("Построение измерения %s из %s", def.Name, def.Source)

	base, err := sources.Require(def.Source, def.Name)
	if err != nil {
		return nil, err
	}

	var (
		ext      *models.Table
		extIndex map[string][]int
		baseKey  int
	)
	if def.Extension != nil {
		ext, err = sources.Require(def.Extension.Table, def.Name)
		if err != nil {
			return nil, err
		}
		var ok bool
		if baseKey, ok = base.ColumnIndex(def.Extension.BaseKey); !ok {
			return nil, fmt.Errorf("измерение %s: колонка %s не найдена в %s", def.Name, def.Extension.BaseKey, base.Name)
		}
		extKey, ok := ext.ColumnIndex(def.Extension.ExtensionKey)
		if !ok {
			return nil, fmt.Errorf("измерение %s: колонка %s не найдена в %s", def.Name, def.Extension.ExtensionKey, ext.Name)
		}
		extIndex = make(map[string][]int, ext.Len())
		for i, row := range ext.Rows {
			if k, ok := models.KeyString(row[extKey]); ok {
				extIndex[k] = append(extIndex[k], i)
			}
		}
	}

	columns, rules, err := resolveRules(def, base, ext)
	if err != nil {
		return nil, err
	}
	out := models.NewTable(def.Name, columns...)

	unmatched := 0
	for _, baseRow := range base.Rows {
		var matches []int
		if ext != nil {
			if k, ok := models.KeyString(baseRow[baseKey]); ok {
				matches = extIndex[k]
			}
		}
		if len(matches) == 0 {
			if ext != nil {
				unmatched++
			}
			out.Rows = append(out.Rows, projectRow(rules, baseRow, nil))
			continue
		}
		// несколько совпадений дают несколько строк; повтор ключа обнаружит checkKey
		for _, m := range matches {
			out.Rows = append(out.Rows, projectRow(rules, baseRow, ext.Rows[m]))
		}
	}

	if err := checkKey(out, def.Key); err != nil {
		b.logger.Error("Измерение %s: %v", def.Name, err)
		return nil, err
	}

	if ext != nil {
		b.logger.Debug("Измерение %s: %d строк, без пары в %s: %d", def.Name, out.Len(), ext.Name, unmatched)
	} else {
		b.logger.Debug("Измерение %s: %d строк", def.Name, out.Len())
	}
	return out, nil
}

// BuildAll строит независимые измерения параллельно. Первая ошибка отменяет остальные.
func (b *DimensionBuilder) BuildAll(ctx context.Context, defs []DimensionDef, sources models.SourceSet) (map[string]*models.Table, error) {
	results := make([]*models.Table, len(defs))

	g, gctx := errgroup.WithContext(ctx)
	for i, def := range defs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			table, err := b.Build(def, sources)
			if err != nil {
				return fmt.Errorf("ошибка построения измерения %s: %w", def.Name, err)
			}
			results[i] = table
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	dims := make(map[string]*models.Table, len(defs))
	for _, t := range results {
		dims[t.Name] = t
	}
	return dims, nil
}

func resolveRules(def DimensionDef, base, ext *models.Table) ([]models.Column, []resolvedRule, error) {
	columns := make([]models.Column, 0, len(def.Columns))
	rules := make([]resolvedRule, 0, len(def.Columns))

	for _, c := range def.Columns {
		r := resolvedRule{basePos: -1, extPos: -1, flag: c.Flag}
		var typ models.ColumnType

		if c.Base != "" {
			pos, ok := base.ColumnIndex(c.Base)
			if !ok {
				return nil, nil, fmt.Errorf("измерение %s: колонка %s не найдена в %s", def.Name, c.Base, base.Name)
			}
			r.basePos = pos
			typ = base.Columns[pos].Type
		}
		if c.Extension != "" {
			if ext == nil {
				return nil, nil, fmt.Errorf("измерение %s: колонка %s ссылается на расширение, которое не задано", def.Name, c.Name)
			}
			pos, ok := ext.ColumnIndex(c.Extension)
			if !ok {
				return nil, nil, fmt.Errorf("измерение %s: колонка %s не найдена в %s", def.Name, c.Extension, ext.Name)
			}
			r.extPos = pos
			typ = ext.Columns[pos].Type
		}
		if c.Flag {
			if r.extPos < 0 {
				return nil, nil, fmt.Errorf("измерение %s: флаг %s требует колонку расширения", def.Name, c.Name)
			}
			typ = models.TypeBoolean
		}
		if r.basePos < 0 && r.extPos < 0 {
			return nil, nil, fmt.Errorf("измерение %s: для колонки %s не задан источник", def.Name, c.Name)
		}

		columns = append(columns, models.Column{Name: c.Name, Type: typ})
		rules = append(rules, r)
	}
	return columns, rules, nil
}

func projectRow(rules []resolvedRule, baseRow, extRow models.Row) models.Row {
	row := make(models.Row, len(rules))
	for i, r := range rules {
		switch {
		case r.flag:
			row[i] = extRow != nil && extRow[r.extPos] != nil
		case r.extPos >= 0 && extRow != nil && extRow[r.extPos] != nil:
			row[i] = extRow[r.extPos]
		case r.basePos >= 0:
			row[i] = baseRow[r.basePos]
		default:
			row[i] = nil
		}
	}
	return row
}

// checkKey проверяет, что ключевая колонка уникальна и не содержит NULL
func checkKey(t *models.Table, key string) error {
	pos, ok := t.ColumnIndex(key)
	if !ok {
		return fmt.Errorf("измерение %s: ключевая колонка %s не задана", t.Name, key)
	}

	seen := make(map[string]int, t.Len())
	nulls, dups := 0, 0
	var repeated []string
	for _, row := range t.Rows {
		k, ok := models.KeyString(row[pos])
		if !ok {
			nulls++
			continue
		}
		seen[k]++
		if seen[k] == 2 {
			repeated = append(repeated, k)
		}
		if seen[k] > 1 {
			dups++
		}
	}
	if nulls == 0 && dups == 0 {
		return nil
	}

	sort.Strings(repeated)
	if len(repeated) > 5 {
		repeated = append(repeated[:5], "...")
	}
	return &models.BuildError{
		Kind:   models.ErrDuplicateKey,
		Table:  t.Name,
		Column: key,
		Rows:   dups + nulls,
		Detail: fmt.Sprintf("повторов %d, NULL %d; повторяющиеся ключи: %s", dups, nulls, strings.Join(repeated, ", ")),
	}
}

package analytics

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/LilVoxy/dice_warehouse/ETL/models"
)

// aggFunc - функция агрегирования колонки
type aggFunc int

const (
	aggSum aggFunc = iota
	aggCount
	aggMean
	aggMedian
)

// aggregate - выходная колонка группировки. Без column это число строк группы,
// fromDim берет колонку из измерения, а не из факта.
type aggregate struct {
	name    string
	column  string
	fn      aggFunc
	fromDim bool
}

// Средние и медианы округляются до двух знаков
const statPlaces = 2

type group struct {
	keys    models.Row
	counts  []int64
	ints    []int64
	decs    []decimal.Decimal
	samples [][]decimal.Decimal
}

// groupJoin соединяет факт с измерением (внутреннее соединение) и группирует по колонкам измерения.
// Строки факта без пары в измерении отбрасываются.
func groupJoin(name string, fact, dim *models.Table, factKey, dimKey string, groupBy []string, aggs []aggregate) (*models.Table, error) {
	fk, ok := fact.ColumnIndex(factKey)
	if !ok {
		return nil, fmt.Errorf("таблица %s: колонка %s не найдена", fact.Name, factKey)
	}
	dk, ok := dim.ColumnIndex(dimKey)
	if !ok {
		return nil, fmt.Errorf("таблица %s: колонка %s не найдена", dim.Name, dimKey)
	}

	columns := make([]models.Column, 0, len(groupBy)+len(aggs))
	groupPos := make([]int, len(groupBy))
	for i, g := range groupBy {
		pos, ok := dim.ColumnIndex(g)
		if !ok {
			return nil, fmt.Errorf("таблица %s: колонка %s не найдена", dim.Name, g)
		}
		groupPos[i] = pos
		columns = append(columns, dim.Columns[pos])
	}

	aggPos := make([]int, len(aggs))
	aggTypes := make([]models.ColumnType, len(aggs))
	for i, a := range aggs {
		if a.column == "" {
			aggPos[i] = -1
			columns = append(columns, models.Column{Name: a.name, Type: models.TypeInteger})
			continue
		}
		src := fact
		if a.fromDim {
			src = dim
		}
		pos, ok := src.ColumnIndex(a.column)
		if !ok {
			return nil, fmt.Errorf("таблица %s: колонка %s не найдена", src.Name, a.column)
		}
		aggPos[i] = pos
		typ := src.Columns[pos].Type
		if a.fn == aggCount {
			aggTypes[i] = models.TypeInteger
			columns = append(columns, models.Column{Name: a.name, Type: models.TypeInteger})
			continue
		}
		if typ != models.TypeInteger && typ != models.TypeDecimal {
			return nil, fmt.Errorf("таблица %s: колонка %s (%s) не числовая", src.Name, a.column, typ)
		}
		if a.fn == aggMean || a.fn == aggMedian {
			typ = models.TypeDecimal
		}
		aggTypes[i] = typ
		columns = append(columns, models.Column{Name: a.name, Type: typ})
	}

	dimRows := make(map[string]int, dim.Len())
	for i, row := range dim.Rows {
		if k, ok := models.KeyString(row[dk]); ok {
			dimRows[k] = i
		}
	}

	groups := make(map[string]*group)
	var order []*group
	for _, row := range fact.Rows {
		k, ok := models.KeyString(row[fk])
		if !ok {
			continue
		}
		di, ok := dimRows[k]
		if !ok {
			continue
		}

		keys := make(models.Row, len(groupPos))
		parts := make([]string, len(groupPos))
		for i, p := range groupPos {
			keys[i] = dim.Rows[di][p]
			s, _ := models.KeyString(keys[i])
			parts[i] = s
		}
		gk := strings.Join(parts, "\x1f")

		g, exists := groups[gk]
		if !exists {
			g = &group{
				keys:    keys,
				counts:  make([]int64, len(aggs)),
				ints:    make([]int64, len(aggs)),
				decs:    make([]decimal.Decimal, len(aggs)),
				samples: make([][]decimal.Decimal, len(aggs)),
			}
			groups[gk] = g
			order = append(order, g)
		}

		for i, p := range aggPos {
			if p < 0 {
				g.counts[i]++
				continue
			}
			v := row[p]
			if aggs[i].fromDim {
				v = dim.Rows[di][p]
			}
			// NULL не участвует ни в одной агрегации
			if v == nil {
				continue
			}
			g.counts[i]++
			switch x := v.(type) {
			case int64:
				g.ints[i] += x
				g.decs[i] = g.decs[i].Add(decimal.NewFromInt(x))
				if aggs[i].fn == aggMedian {
					g.samples[i] = append(g.samples[i], decimal.NewFromInt(x))
				}
			case decimal.Decimal:
				g.decs[i] = g.decs[i].Add(x)
				if aggs[i].fn == aggMedian {
					g.samples[i] = append(g.samples[i], x)
				}
			}
		}
	}

	sort.SliceStable(order, func(a, b int) bool {
		return lessRow(order[a].keys, order[b].keys)
	})

	out := models.NewTable(name, columns...)
	for _, g := range order {
		values := make([]any, 0, len(columns))
		values = append(values, g.keys...)
		for i, p := range aggPos {
			values = append(values, g.result(i, p, aggs[i].fn, aggTypes[i]))
		}
		if err := out.Append(values...); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// result возвращает значение i-й агрегации группы; среднее и медиана пустой группы - NULL
func (g *group) result(i, pos int, fn aggFunc, typ models.ColumnType) any {
	if pos < 0 || fn == aggCount {
		return g.counts[i]
	}
	switch fn {
	case aggMean:
		if g.counts[i] == 0 {
			return nil
		}
		return g.decs[i].Div(decimal.NewFromInt(g.counts[i])).Round(statPlaces)
	case aggMedian:
		if len(g.samples[i]) == 0 {
			return nil
		}
		return median(g.samples[i]).Round(statPlaces)
	}
	if typ == models.TypeInteger {
		return g.ints[i]
	}
	return g.decs[i]
}

// median сортирует values на месте; для четного числа берется среднее двух центральных
func median(values []decimal.Decimal) decimal.Decimal {
	sort.Slice(values, func(a, b int) bool { return values[a].LessThan(values[b]) })
	mid := len(values) / 2
	if len(values)%2 == 1 {
		return values[mid]
	}
	return values[mid-1].Add(values[mid]).Div(decimal.NewFromInt(2))
}

// lessRow упорядочивает группы по значениям ключей слева направо; NULL идет первым
func lessRow(a, b models.Row) bool {
	for i := range a {
		if c := compareValues(a[i], b[i]); c != 0 {
			return c < 0
		}
	}
	return false
}

func compareValues(a, b any) int {
	if a == nil || b == nil {
		switch {
		case a == nil && b == nil:
			return 0
		case a == nil:
			return -1
		default:
			return 1
		}
	}
	switch x := a.(type) {
	case int64:
		if y, ok := b.(int64); ok {
			switch {
			case x < y:
				return -1
			case x > y:
				return 1
			}
			return 0
		}
	case decimal.Decimal:
		if y, ok := b.(decimal.Decimal); ok {
			return x.Cmp(y)
		}
	case time.Time:
		if y, ok := b.(time.Time); ok {
			return x.Compare(y)
		}
	}
	as, _ := models.KeyString(a)
	bs, _ := models.KeyString(b)
	return strings.Compare(as, bs)
}

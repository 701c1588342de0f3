package validate

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/LilVoxy/dice_warehouse/ETL/models"
)

// maxListedValues ограничивает число значений, перечисляемых в деталях проверки
const maxListedValues = 100

func skipped(name, kind, reason string) CheckResult {
	return CheckResult{Name: name, Kind: kind, Status: StatusSkipped, Message: reason}
}

func verdict(ok bool) Status {
	if ok {
		return StatusPass
	}
	return StatusFail
}

// checkKeyUniqueness: ключ измерения без NULL и без повторов
func checkKeyUniqueness(w *models.Warehouse, dimension, key string) CheckResult {
	name := KindKeyUniqueness + "/" + dimension
	t, ok := w.Get(dimension)
	if !ok {
		return skipped(name, KindKeyUniqueness, "таблица "+dimension+" отсутствует")
	}
	values, err := t.Values(key)
	if err != nil {
		return CheckResult{Name: name, Kind: KindKeyUniqueness, Status: StatusFail, Message: err.Error()}
	}

	counts := make(map[string]int, len(values))
	nulls := 0
	for _, v := range values {
		k, ok := models.KeyString(v)
		if !ok {
			nulls++
			continue
		}
		counts[k]++
	}
	var repeated []string
	duplicates := 0
	for k, n := range counts {
		if n > 1 {
			repeated = append(repeated, k)
			duplicates += n - 1
		}
	}
	sortKeys(repeated)

	details := map[string]any{
		"rows":       len(values),
		"null_keys":  nulls,
		"duplicates": duplicates,
	}
	if len(repeated) > 0 {
		details["duplicate_values"] = truncate(repeated)
	}
	ok = nulls == 0 && duplicates == 0
	msg := fmt.Sprintf("%d строк, ключ %s уникален", len(values), key)
	if !ok {
		msg = fmt.Sprintf("ключ %s: %d повторов, %d NULL", key, duplicates, nulls)
	}
	return CheckResult{Name: name, Kind: KindKeyUniqueness, Status: verdict(ok), Message: msg, Details: details}
}

// checkReferentialCoverage: различные значения внешнего ключа входят в множество ключей измерения
func checkReferentialCoverage(w *models.Warehouse, fk models.ForeignKey) CheckResult {
	name := fmt.Sprintf("%s/%s.%s", KindReferentialCoverage, fk.Fact, fk.Column)
	fact, ok := w.Get(fk.Fact)
	if !ok {
		return skipped(name, KindReferentialCoverage, "таблица "+fk.Fact+" отсутствует")
	}
	dim, ok := w.Get(fk.Dimension)
	if !ok {
		return skipped(name, KindReferentialCoverage, "таблица "+fk.Dimension+" отсутствует")
	}
	factValues, err := fact.Values(fk.Column)
	if err != nil {
		return CheckResult{Name: name, Kind: KindReferentialCoverage, Status: StatusFail, Message: err.Error()}
	}
	dimValues, err := dim.Values(models.DimensionKeys[fk.Dimension])
	if err != nil {
		return CheckResult{Name: name, Kind: KindReferentialCoverage, Status: StatusFail, Message: err.Error()}
	}

	keys := make(map[string]struct{}, len(dimValues))
	for _, v := range dimValues {
		if k, ok := models.KeyString(v); ok {
			keys[k] = struct{}{}
		}
	}

	distinct := make(map[string]struct{}, len(factValues))
	orphanRows := 0
	nulls := 0
	var orphans []string
	for _, v := range factValues {
		k, ok := models.KeyString(v)
		if !ok {
			nulls++
			continue
		}
		if _, found := keys[k]; found {
			distinct[k] = struct{}{}
			continue
		}
		orphanRows++
		if _, seen := distinct[k]; !seen {
			orphans = append(orphans, k)
		}
		distinct[k] = struct{}{}
	}
	sortKeys(orphans)

	details := map[string]any{
		"dimension":       fk.Dimension,
		"distinct_values": len(distinct),
		"orphan_count":    len(orphans),
		"orphan_rows":     orphanRows,
		"null_count":      nulls,
	}
	if len(orphans) > 0 {
		details["orphan_values"] = truncate(orphans)
		details["orphan_values_truncated"] = len(orphans) > maxListedValues
	}

	ok = len(orphans) == 0 && nulls == 0
	msg := fmt.Sprintf("все %d значений найдены в %s", len(distinct), fk.Dimension)
	if !ok {
		msg = fmt.Sprintf("%d значений без пары в %s (%d строк), %d NULL", len(orphans), fk.Dimension, orphanRows, nulls)
	}
	return CheckResult{Name: name, Kind: KindReferentialCoverage, Status: verdict(ok), Message: msg, Details: details}
}

// checkValueRange: мера не отрицательна; в деталях min/max/mean
func checkValueRange(w *models.Warehouse, m models.MeasureRef) CheckResult {
	name := fmt.Sprintf("%s/%s.%s", KindValueRange, m.Table, m.Column)
	t, ok := w.Get(m.Table)
	if !ok {
		return skipped(name, KindValueRange, "таблица "+m.Table+" отсутствует")
	}
	values, err := t.Values(m.Column)
	if err != nil {
		return CheckResult{Name: name, Kind: KindValueRange, Status: StatusFail, Message: err.Error()}
	}

	var (
		count, negative, nulls int
		sum, minV, maxV        decimal.Decimal
	)
	for _, v := range values {
		d, ok := models.AsDecimal(v)
		if !ok {
			nulls++
			continue
		}
		if count == 0 || d.LessThan(minV) {
			minV = d
		}
		if count == 0 || d.GreaterThan(maxV) {
			maxV = d
		}
		if d.IsNegative() {
			negative++
		}
		sum = sum.Add(d)
		count++
	}

	details := map[string]any{
		"count":          count,
		"null_count":     nulls,
		"negative_count": negative,
	}
	if count > 0 {
		details["min"] = minV.InexactFloat64()
		details["max"] = maxV.InexactFloat64()
		details["mean"] = sum.Div(decimal.NewFromInt(int64(count))).InexactFloat64()
	}

	ok = negative == 0
	msg := fmt.Sprintf("%d значений, отрицательных нет", count)
	if !ok {
		msg = fmt.Sprintf("%d отрицательных значений из %d (min %s)", negative, count, minV)
	}
	return CheckResult{Name: name, Kind: KindValueRange, Status: verdict(ok), Message: msg, Details: details}
}

// checkCrossAggregate: итог меры факта совпадает с итогом сгруппированного набора в пределах допуска
func checkCrossAggregate(w *models.Warehouse, p AggregatePair, tolerance float64) CheckResult {
	name := KindCrossAggregate + "/" + p.Name
	fact, ok := w.Get(p.Fact)
	if !ok {
		return skipped(name, KindCrossAggregate, "таблица "+p.Fact+" отсутствует")
	}
	grouped, ok := w.Get(p.Grouped)
	if !ok {
		return skipped(name, KindCrossAggregate, "таблица "+p.Grouped+" отсутствует")
	}

	var factTotal decimal.Decimal
	if p.FactColumn == "" {
		factTotal = decimal.NewFromInt(int64(fact.Len()))
	} else {
		total, err := columnTotal(fact, p.FactColumn)
		if err != nil {
			return CheckResult{Name: name, Kind: KindCrossAggregate, Status: StatusFail, Message: err.Error()}
		}
		factTotal = total
	}
	groupedTotal, err := columnTotal(grouped, p.GroupedColumn)
	if err != nil {
		return CheckResult{Name: name, Kind: KindCrossAggregate, Status: StatusFail, Message: err.Error()}
	}

	diff := factTotal.Sub(groupedTotal).Abs()
	tol := decimal.NewFromFloat(tolerance)
	ok = diff.IsZero() || diff.LessThan(tol)

	source := p.Fact
	if p.FactColumn != "" {
		source += "." + p.FactColumn
	}
	details := map[string]any{
		"fact_source":    source,
		"grouped_source": p.Grouped + "." + p.GroupedColumn,
		"fact_total":     factTotal.InexactFloat64(),
		"grouped_total":  groupedTotal.InexactFloat64(),
		"difference":     diff.InexactFloat64(),
		"tolerance":      tolerance,
	}
	msg := fmt.Sprintf("итоги совпадают: %s", factTotal)
	if !ok {
		msg = fmt.Sprintf("итог %s = %s, итог %s = %s, расхождение %s", source, factTotal, p.Grouped, groupedTotal, diff)
	}
	return CheckResult{Name: name, Kind: KindCrossAggregate, Status: verdict(ok), Message: msg, Details: details}
}

// checkCardinality: различных значений в таблице не больше, чем строк в измерении
func checkCardinality(w *models.Warehouse, b CardinalityBound) CheckResult {
	name := KindCardinality + "/" + b.Name
	t, ok := w.Get(b.Table)
	if !ok {
		return skipped(name, KindCardinality, "таблица "+b.Table+" отсутствует")
	}
	dim, ok := w.Get(b.Dimension)
	if !ok {
		return skipped(name, KindCardinality, "таблица "+b.Dimension+" отсутствует")
	}
	values, err := t.Values(b.Column)
	if err != nil {
		return CheckResult{Name: name, Kind: KindCardinality, Status: StatusFail, Message: err.Error()}
	}

	distinct := make(map[string]struct{}, len(values))
	for _, v := range values {
		if k, ok := models.KeyString(v); ok {
			distinct[k] = struct{}{}
		}
	}

	ok = len(distinct) <= dim.Len()
	details := map[string]any{
		"distinct_values": len(distinct),
		"dimension_rows":  dim.Len(),
	}
	msg := fmt.Sprintf("%d различных %s при %d строках %s", len(distinct), b.Column, dim.Len(), b.Dimension)
	return CheckResult{Name: name, Kind: KindCardinality, Status: verdict(ok), Message: msg, Details: details}
}

// checkCompleteness: присутствуют все таблицы звездной схемы
func checkCompleteness(w *models.Warehouse) (CheckResult, []string, []string) {
	present := []string{}
	missing := []string{}
	for _, name := range models.StarSchemaTables {
		if _, ok := w.Get(name); ok {
			present = append(present, name)
		} else {
			missing = append(missing, name)
		}
	}

	details := map[string]any{
		"expected": len(models.StarSchemaTables),
		"present":  len(present),
	}
	if len(missing) > 0 {
		details["missing"] = missing
	}
	msg := fmt.Sprintf("%d из %d таблиц", len(present), len(models.StarSchemaTables))
	result := CheckResult{
		Name:    KindCompleteness + "/star_schema",
		Kind:    KindCompleteness,
		Status:  verdict(len(missing) == 0),
		Message: msg,
		Details: details,
	}
	return result, present, missing
}

func columnTotal(t *models.Table, column string) (decimal.Decimal, error) {
	values, err := t.Values(column)
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, v := range values {
		if d, ok := models.AsDecimal(v); ok {
			total = total.Add(d)
		}
	}
	return total, nil
}

// sortKeys сортирует ключи: числовые по значению, затем строковые
func sortKeys(keys []string) {
	sort.Slice(keys, func(i, j int) bool {
		a, errA := strconv.ParseInt(keys[i], 10, 64)
		b, errB := strconv.ParseInt(keys[j], 10, 64)
		switch {
		case errA == nil && errB == nil:
			return a < b
		case errA == nil:
			return true
		case errB == nil:
			return false
		}
		return keys[i] < keys[j]
	})
}

func truncate(values []string) []string {
	if len(values) > maxListedValues {
		return values[:maxListedValues]
	}
	return values
}

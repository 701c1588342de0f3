package load

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/LilVoxy/dice_warehouse/ETL/models"
)

// Loader выгружает готовое хранилище во внешнее хранилище
type Loader interface {
	// Name возвращает имя приемника для логов
	Name() string

	// Load выгружает все таблицы хранилища
	Load(ctx context.Context, w *models.Warehouse) error
}

// FormatValue приводит значение ячейки к тексту: целые в десятичной записи, decimal в
// каноническом виде, даты YYYY-MM-DD, логические true/false, NULL - пустая строка
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case int64:
		return strconv.FormatInt(x, 10)
	case string:
		return x
	case decimal.Decimal:
		return x.String()
	case time.Time:
		return x.Format(models.DateLayout)
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprint(x)
	}
}

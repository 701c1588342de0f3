package extractors

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/LilVoxy/dice_warehouse/ETL/models"
	"github.com/LilVoxy/dice_warehouse/ETL/utils"
)

const utf8BOM = "\ufeff"

// TableReader разбирает CSV-файл в типизированную таблицу по словарю данных
type TableReader struct {
	logger *utils.ETLLogger
}

// NewTableReader создает новый экземпляр TableReader
func NewTableReader(logger *utils.ETLLogger) *TableReader {
	return &TableReader{
		logger: logger,
	}
}

// ReadFile открывает файл и читает из него таблицу name. Файлы *.sz распаковываются snappy.
func (r *TableReader) ReadFile(path, name string) (*models.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var in io.Reader = f
	if strings.HasSuffix(path, utils.CompressedExt) {
		in = utils.NewDecompressReader(f)
	}

	table, err := r.Read(in, name)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return table, nil
}

// Read читает таблицу name: строка заголовка обязательна, колонки сопоставляются по имени.
// Колонки словаря идут первыми в порядке словаря, неизвестные колонки сохраняются строками.
// Пустые ячейки становятся NULL.
func (r *TableReader) Read(in io.Reader, name string) (*models.Table, error) {
	cr := csv.NewReader(in)
	cr.ReuseRecord = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("файл пуст: нет строки заголовка")
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения заголовка: %w", err)
	}

	positions := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, utf8BOM))
		if _, dup := positions[h]; dup {
			return nil, fmt.Errorf("колонка %s повторяется в заголовке", h)
		}
		positions[h] = i
	}

	columns, sourcePos, err := r.schema(name, header, positions)
	if err != nil {
		return nil, err
	}
	table := models.NewTable(name, columns...)

	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ошибка чтения CSV: %w", err)
		}
		line, _ := cr.FieldPos(0)

		values := make([]any, len(columns))
		for i, col := range columns {
			v, err := parseCell(record[sourcePos[i]], col.Type)
			if err != nil {
				return nil, fmt.Errorf("строка %d, колонка %s: %w", line, col.Name, err)
			}
			values[i] = v
		}
		if err := table.Append(values...); err != nil {
			return nil, fmt.Errorf("строка %d: %w", line, err)
		}
	}

	return table, nil
}

// schema сопоставляет заголовок файла со словарем данных
func (r *TableReader) schema(name string, header []string, positions map[string]int) ([]models.Column, []int, error) {
	known := models.SourceDictionary[name]

	var (
		columns   []models.Column
		sourcePos []int
		inDict    = make(map[string]bool, len(known))
	)
	for _, col := range known {
		pos, ok := positions[col.Name]
		if !ok {
			return nil, nil, fmt.Errorf("отсутствует колонка %s", col.Name)
		}
		columns = append(columns, col)
		sourcePos = append(sourcePos, pos)
		inDict[col.Name] = true
	}

	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, utf8BOM))
		if inDict[h] {
			continue
		}
		if known != nil {
			r.logger.Debug("Таблица %s: колонка %s отсутствует в словаре данных, загружается как строка", name, h)
		}
		columns = append(columns, models.Column{Name: h, Type: models.TypeString})
		sourcePos = append(sourcePos, i)
	}
	return columns, sourcePos, nil
}

// parseCell приводит текст ячейки к типу колонки
func parseCell(raw string, typ models.ColumnType) (any, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil, nil
	}

	switch typ {
	case models.TypeInteger:
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n, nil
		}
		// целые с пропусками иногда выгружаются как 12.0
		d, err := decimal.NewFromString(s)
		if err != nil || !d.IsInteger() {
			return nil, fmt.Errorf("ожидалось целое число, получено %q", s)
		}
		return d.IntPart(), nil
	case models.TypeDecimal:
		d, err := decimal.NewFromString(s)
		if err != nil {
			return nil, fmt.Errorf("ожидалось десятичное число, получено %q", s)
		}
		return d, nil
	case models.TypeBoolean:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return nil, fmt.Errorf("ожидалось логическое значение, получено %q", s)
		}
		return b, nil
	case models.TypeDate:
		t, err := models.ParseTimestamp(s)
		if err != nil {
			return nil, err
		}
		return models.TruncateDate(t), nil
	default:
		return raw, nil
	}
}

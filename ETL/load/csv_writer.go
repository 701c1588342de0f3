package load

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/LilVoxy/dice_warehouse/ETL/models"
	"github.com/LilVoxy/dice_warehouse/ETL/utils"
)

// CSVWriter пишет каждую таблицу хранилища в <каталог>/<таблица>.csv
type CSVWriter struct {
	dir      string
	compress bool
	logger   *utils.ETLLogger
}

// NewCSVWriter создает новый экземпляр CSVWriter. При compress файлы пишутся как <таблица>.csv.sz.
func NewCSVWriter(dir string, compress bool, logger *utils.ETLLogger) *CSVWriter {
	return &CSVWriter{
		dir:      dir,
		compress: compress,
		logger:   logger,
	}
}

// Name возвращает имя приемника
func (c *CSVWriter) Name() string {
	return "csv:" + c.dir
}

// Load реализует Loader
func (c *CSVWriter) Load(ctx context.Context, w *models.Warehouse) error {
	return c.WriteAll(ctx, w)
}

// WriteAll пишет все таблицы хранилища
func (c *CSVWriter) WriteAll(ctx context.Context, w *models.Warehouse) error {
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return fmt.Errorf("ошибка создания каталога %s: %w", c.dir, err)
	}

	for _, name := range w.Names() {
		if err := ctx.Err(); err != nil {
			return err
		}
		t, _ := w.Get(name)
		path, err := c.writeFile(t)
		if err != nil {
			return fmt.Errorf("ошибка записи таблицы %s: %w", name, err)
		}
		c.logger.Debug("Таблица %s записана в %s (%d строк)", name, path, t.Len())
	}

	c.logger.Info("Записано %d таблиц в %s", len(w.Names()), c.dir)
	return nil
}

// Path возвращает путь к файлу таблицы
func (c *CSVWriter) Path(table string) string {
	path := filepath.Join(c.dir, table+".csv")
	if c.compress {
		path += utils.CompressedExt
	}
	return path
}

func (c *CSVWriter) writeFile(t *models.Table) (path string, err error) {
	path = c.Path(t.Name)

	// файл появляется под итоговым именем только целиком
	tmp, err := os.CreateTemp(c.dir, "."+t.Name+"-*.tmp")
	if err != nil {
		return "", err
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	var out io.Writer = tmp
	var zw io.WriteCloser
	if c.compress {
		zw = utils.NewCompressWriter(tmp)
		out = zw
	}

	if err = WriteTable(out, t); err != nil {
		return "", err
	}
	if zw != nil {
		if err = zw.Close(); err != nil {
			return "", err
		}
	}
	if err = tmp.Close(); err != nil {
		return "", err
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return "", err
	}
	return path, nil
}

// WriteTable пишет таблицу как CSV: строка заголовка, затем строки в порядке таблицы
func WriteTable(w io.Writer, t *models.Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.ColumnNames()); err != nil {
		return err
	}
	record := make([]string, len(t.Columns))
	for _, row := range t.Rows {
		for i, v := range row {
			record[i] = FormatValue(v)
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

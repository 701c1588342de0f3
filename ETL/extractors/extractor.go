package extractors

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/LilVoxy/dice_warehouse/ETL/models"
	"github.com/LilVoxy/dice_warehouse/ETL/utils"
)

// Extractor загружает исходные CSV-выгрузки в набор исходных таблиц
type Extractor struct {
	sourceDir string
	logger    *utils.ETLLogger
	reader    *TableReader
}

// NewExtractor создает новый экземпляр Extractor
func NewExtractor(sourceDir string, logger *utils.ETLLogger) *Extractor {
	return &Extractor{
		sourceDir: sourceDir,
		logger:    logger,
		reader:    NewTableReader(logger),
	}
}

// Extract читает <таблица>.csv для каждой таблицы словаря данных.
// Отсутствующие файлы просто не попадают в набор; прочие *.csv загружаются как строковые таблицы.
func (e *Extractor) Extract(ctx context.Context) (models.SourceSet, error) {
	startTime := time.Now()
	e.logger.LogExtractStart()

	info, err := os.Stat(e.sourceDir)
	if err != nil {
		return nil, fmt.Errorf("ошибка доступа к каталогу исходных данных: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s не является каталогом", e.sourceDir)
	}

	sources := make(models.SourceSet)
	totalRows := 0

	for _, name := range e.tableNames() {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("извлечение прервано: %w", err)
		}

		path := filepath.Join(e.sourceDir, name+".csv")
		table, err := e.reader.ReadFile(path, name)
		if errors.Is(err, fs.ErrNotExist) {
			// сжатая выгрузка
			path += utils.CompressedExt
			table, err = e.reader.ReadFile(path, name)
		}
		if errors.Is(err, fs.ErrNotExist) {
			e.logger.Warn("Исходная таблица %s не найдена в %s", name, e.sourceDir)
			continue
		}
		if err != nil {
			e.logger.Error("Ошибка при загрузке %s: %v", path, err)
			return nil, fmt.Errorf("ошибка загрузки таблицы %s: %w", name, err)
		}

		e.logger.Debug("Загружена таблица %s: %d строк, %d колонок", name, table.Len(), len(table.Columns))
		sources[name] = table
		totalRows += table.Len()
	}

	e.logger.LogExtractComplete(len(sources), totalRows, time.Since(startTime))
	return sources, nil
}

// tableNames возвращает таблицы словаря данных и найденные в каталоге посторонние *.csv
func (e *Extractor) tableNames() []string {
	names := append([]string(nil), models.SourceTableNames...)

	entries, err := os.ReadDir(e.sourceDir)
	if err != nil {
		return names
	}
	seen := make(map[string]bool)
	var extra []string
	for _, entry := range entries {
		base := strings.TrimSuffix(entry.Name(), utils.CompressedExt)
		if entry.IsDir() || !strings.HasSuffix(base, ".csv") {
			continue
		}
		name := strings.TrimSuffix(base, ".csv")
		if _, known := models.SourceDictionary[name]; !known && !seen[name] {
			seen[name] = true
			extra = append(extra, name)
		}
	}
	sort.Strings(extra)
	return append(names, extra...)
}

package transform

import (
	"context"
	"fmt"
	"time"

	"github.com/LilVoxy/dice_warehouse/ETL/config"
	"github.com/LilVoxy/dice_warehouse/ETL/models"
	"github.com/LilVoxy/dice_warehouse/ETL/utils"
)

// Transformer координирует построение звездной схемы из набора исходных таблиц
type Transformer struct {
	logger       *utils.ETLLogger
	dimensions   []DimensionDef
	stageTimeout time.Duration
	dimBuilder   *DimensionBuilder
	dateGen      *DateDimensionGenerator
	factBuilder  *FactBuilder
}

// NewTransformer создает новый экземпляр Transformer
func NewTransformer(cfg config.ETLConfig, logger *utils.ETLLogger) *Transformer {
	return &Transformer{
		logger:       logger,
		dimensions:   DefaultDimensions(),
		stageTimeout: cfg.StageTimeout,
		dimBuilder:   NewDimensionBuilder(logger),
		dateGen:      NewDateDimensionGenerator(DefaultTemporalFields, cfg.Sentinel(), logger),
		factBuilder:  NewFactBuilder(NewPlaceholderResolver(cfg.Sentinel(), cfg.Cutoff()), logger),
	}
}

// Transform строит хранилище: измерения (параллельно), измерение времени, затем факты.
// Каждый этап ограничен stage_timeout; ошибка построения прерывает весь запуск.
func (t *Transformer) Transform(ctx context.Context, sources models.SourceSet) (*models.Warehouse, *FactSet, error) {
	startTime := time.Now()
	t.logger.Info("Начало фазы Transform (Преобразование данных)")

	// 1. Измерения из исходных таблиц
	t.logger.Info("Построение измерений...")
	dims, err := utils.RunStage(ctx, "dimensions", t.stageTimeout, func(ctx context.Context) (map[string]*models.Table, error) {
		return t.dimBuilder.BuildAll(ctx, t.dimensions, sources)
	})
	if err != nil {
		t.logger.Error("Ошибка при построении измерений: %v", err)
		return nil, nil, fmt.Errorf("ошибка при построении измерений: %w", err)
	}

	// 2. Измерение времени не зависит от остальных измерений
	t.logger.Info("Построение измерения времени...")
	timeDim, err := utils.RunStage(ctx, "time_dimension", t.stageTimeout, func(context.Context) (*models.Table, error) {
		return t.dateGen.Generate(sources)
	})
	if err != nil {
		t.logger.Error("Ошибка при построении измерения времени: %v", err)
		return nil, nil, fmt.Errorf("ошибка при построении измерения времени: %w", err)
	}
	dims[timeDim.Name] = timeDim

	// 3. Факты стартуют только после всех измерений
	t.logger.Info("Построение фактов...")
	facts, err := utils.RunStage(ctx, "facts", t.stageTimeout, func(context.Context) (*FactSet, error) {
		return t.factBuilder.Build(sources, dims)
	})
	if err != nil {
		t.logger.Error("Ошибка при построении фактов: %v", err)
		return nil, nil, fmt.Errorf("ошибка при построении фактов: %w", err)
	}

	warehouse := models.NewWarehouse()
	for _, d := range dims {
		warehouse.Put(d)
	}
	for _, f := range facts.Tables {
		warehouse.Put(f)
	}

	// Заполняем метаданные
	warehouse.Metadata = models.ETLMetadata{
		BuiltAt:            time.Now().UTC(),
		SourceRows:         make(map[string]int, len(sources)),
		NegativeDurations:  len(facts.Anomalies),
		PlaceholderEndings: facts.PlaceholderEndings,
	}
	for name, table := range sources {
		if table != nil {
			warehouse.Metadata.SourceRows[name] = table.Len()
		}
	}

	duration := time.Since(startTime)
	t.logger.Info("Фаза Transform завершена. Длительность: %v", duration)

	return warehouse, facts, nil
}

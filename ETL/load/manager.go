package load

import (
	"context"
	"fmt"
	"time"

	"github.com/LilVoxy/dice_warehouse/ETL/models"
	"github.com/LilVoxy/dice_warehouse/ETL/utils"
)

// LoadManager отвечает за управление процессом выгрузки хранилища
type LoadManager struct {
	logger  *utils.ETLLogger
	loaders []Loader
}

// NewLoadManager создает новый экземпляр LoadManager
func NewLoadManager(logger *utils.ETLLogger, loaders ...Loader) *LoadManager {
	return &LoadManager{
		logger:  logger,
		loaders: loaders,
	}
}

// Load выполняет фазу выгрузки: каждый приемник получает все таблицы хранилища
func (m *LoadManager) Load(ctx context.Context, w *models.Warehouse) error {
	startTime := time.Now()
	m.logger.Info("Начало фазы Load (Выгрузка данных)")

	if len(m.loaders) == 0 {
		m.logger.Info("Приемники не настроены, выгрузка пропущена")
		return nil
	}

	for _, l := range m.loaders {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("выгрузка прервана: %w", err)
		}
		m.logger.Info("Выгрузка в %s...", l.Name())
		if err := l.Load(ctx, w); err != nil {
			m.logger.Error("Ошибка при выгрузке в %s: %v", l.Name(), err)
			return fmt.Errorf("ошибка при выгрузке в %s: %w", l.Name(), err)
		}
	}

	duration := time.Since(startTime)
	m.logger.Info("Фаза Load завершена. Длительность: %v", duration)

	return nil
}

package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/spf13/cobra"

	"github.com/LilVoxy/dice_warehouse/ETL/analytics"
	"github.com/LilVoxy/dice_warehouse/ETL/config"
	"github.com/LilVoxy/dice_warehouse/ETL/extractors"
	"github.com/LilVoxy/dice_warehouse/ETL/load"
	"github.com/LilVoxy/dice_warehouse/ETL/metrics"
	"github.com/LilVoxy/dice_warehouse/ETL/models"
	"github.com/LilVoxy/dice_warehouse/ETL/server"
	"github.com/LilVoxy/dice_warehouse/ETL/transform"
	"github.com/LilVoxy/dice_warehouse/ETL/utils"
	"github.com/LilVoxy/dice_warehouse/ETL/validate"
)

// reportFileName - имя файла отчета о качестве данных в output_dir
const reportFileName = "data_quality_report.json"

// errChecksFailed возвращается в режиме --strict, если отчет содержит проваленные проверки
var errChecksFailed = errors.New("проверки целостности не пройдены")

// RunResult - итог одного запуска ETL
type RunResult struct {
	RunID     string
	Warehouse *models.Warehouse
	Facts     *transform.FactSet
	Report    *validate.Report
	Duration  time.Duration
}

type ETLRunner struct {
	config      config.ETLConfig
	logger      *utils.ETLLogger
	metrics     *metrics.Metrics
	db          *sql.DB
	extractor   *extractors.Extractor
	transformer *transform.Transformer
	analytics   *analytics.Processor
	validator   *validate.Validator
	loadManager *load.LoadManager
	etlLogRepo  models.ETLLogRepository
}

// NewETLRunner создает новый экземпляр ETLRunner
func NewETLRunner(ctx context.Context, cfg config.ETLConfig, logger *utils.ETLLogger, m *metrics.Metrics) (*ETLRunner, error) {
	logger.Info("Инициализация ETL Runner")

	var loaders []load.Loader
	if cfg.OutputDir != "" {
		loaders = append(loaders, load.NewCSVWriter(cfg.OutputDir, cfg.Compress, logger))
	}

	var db *sql.DB
	var etlLogRepo models.ETLLogRepository
	if cfg.Warehouse.Enabled {
		var err error
		db, err = config.ConnectWarehouse(ctx, cfg.Warehouse)
		if err != nil {
			return nil, fmt.Errorf("ошибка подключения к хранилищу: %w", err)
		}

		// Инициализируем репозиторий логов ETL
		repo := models.NewSQLETLLogRepository(db)
		if err := repo.CreateETLLogTable(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("ошибка при создании таблицы логов ETL: %w", err)
		}
		etlLogRepo = repo
		loaders = append(loaders, load.NewSQLLoader(db, cfg.Warehouse.Driver, logger))
	}

	return &ETLRunner{
		config:      cfg,
		logger:      logger,
		metrics:     m,
		db:          db,
		extractor:   extractors.NewExtractor(cfg.SourceDir, logger),
		transformer: transform.NewTransformer(cfg, logger),
		analytics:   analytics.NewProcessor(logger),
		validator:   validate.NewValidator(cfg.RevenueTolerance, logger),
		loadManager: load.NewLoadManager(logger, loaders...),
		etlLogRepo:  etlLogRepo,
	}, nil
}

// Close закрывает соединение с хранилищем
func (r *ETLRunner) Close() {
	r.logger.Info("Завершение работы ETL Runner")
	if r.db != nil {
		if err := r.db.Close(); err != nil {
			r.logger.Error("Ошибка при закрытии соединения с хранилищем: %v", err)
		}
	}
}

// Run реализует server.Runner
func (r *ETLRunner) Run(ctx context.Context) (*models.Warehouse, *validate.Report, error) {
	result, err := r.ExecuteETL(ctx)
	if err != nil {
		return nil, nil, err
	}
	return result.Warehouse, result.Report, nil
}

// stage выполняет этап с ограничением stage_timeout и записывает его длительность
func stage[T any](ctx context.Context, r *ETLRunner, name string, fn func(context.Context) (T, error)) (T, error) {
	return timed(r, name, func() (T, error) {
		return utils.RunStage(ctx, name, r.config.StageTimeout, fn)
	})
}

// timed только записывает длительность этапа, ограничение по времени задает сам fn
func timed[T any](r *ETLRunner, name string, fn func() (T, error)) (T, error) {
	start := time.Now()
	v, err := fn()
	d := time.Since(start)
	r.metrics.ObserveStage(name, d)
	r.logger.LogStage(name, d, err)
	return v, err
}

// ExecuteETL выполняет полный ETL процесс
func (r *ETLRunner) ExecuteETL(ctx context.Context) (*RunResult, error) {
	r.logger.LogETLStart()
	startTime := time.Now()

	// Создаем запись в журнале ETL
	runID := ""
	if r.etlLogRepo != nil {
		lastRun, err := r.etlLogRepo.GetLastSuccessfulRun(ctx)
		if err != nil {
			r.logger.Warn("Не удалось получить информацию о последнем успешном запуске: %v", err)
		} else if lastRun != nil {
			r.logger.Info("Последний успешный запуск: %v, integrity_score: %.1f", lastRun.EndTime, lastRun.IntegrityScore)
		}

		runID, err = r.etlLogRepo.CreateLogEntry(ctx, startTime)
		if err != nil {
			r.logger.Error("Ошибка при создании записи в журнале ETL: %v", err)
			return nil, fmt.Errorf("ошибка при создании записи в журнале ETL: %w", err)
		}
	}

	result, err := r.execute(ctx, runID)
	if err != nil {
		errMsg := err.Error()
		r.logger.Error("%s", errMsg)
		r.updateETLRunLogFailure(runID, errMsg)
		r.metrics.RecordRun(models.RunStatusFailed)
		return nil, err
	}
	result.Duration = time.Since(startTime)

	tables := len(result.Warehouse.Names())
	rows := 0
	for _, n := range result.Warehouse.RowCounts() {
		rows += n
	}
	r.updateETLRunLogSuccess(runID, tables, rows, result.Report)
	r.metrics.RecordWarehouse(result.Warehouse)
	r.metrics.RecordReport(result.Report)
	r.metrics.RecordRun(models.RunStatusSuccess)

	r.logger.LogETLComplete(startTime, tables, rows, result.Report.IntegrityScore)
	return result, nil
}

func (r *ETLRunner) execute(ctx context.Context, runID string) (*RunResult, error) {
	// 1. Фаза извлечения данных (Extract)
	sources, err := stage(ctx, r, "extract", r.extractor.Extract)
	if err != nil {
		return nil, fmt.Errorf("ошибка в фазе Extract: %w", err)
	}
	r.logProfile(sources)

	// 2. Фаза трансформации данных (Transform)
	type transformed struct {
		warehouse *models.Warehouse
		facts     *transform.FactSet
	}
	// stage_timeout действует на каждый подэтап внутри Transform, а не на фазу целиком
	t, err := timed(r, "transform", func() (transformed, error) {
		w, f, err := r.transformer.Transform(ctx, sources)
		return transformed{warehouse: w, facts: f}, err
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка в фазе Transform: %w", err)
	}
	warehouse, facts := t.warehouse, t.facts
	if len(facts.Anomalies) > 0 {
		r.logger.Warn("Обнаружено отрицательных длительностей: %d", len(facts.Anomalies))
		for _, a := range facts.Anomalies {
			r.logger.Debug("Аномалия %s.%s, строка %d: %v (%s)", a.Table, a.Column, a.Row, a.Value, a.Reason)
		}
	}

	// 3. Аналитические агрегаты
	if _, err := stage(ctx, r, "analytics", func(context.Context) (struct{}, error) {
		return struct{}{}, r.analytics.Process(warehouse)
	}); err != nil {
		return nil, fmt.Errorf("ошибка при построении аналитики: %w", err)
	}

	// 4. Проверка целостности; проваленные проверки не прерывают запуск
	report, err := stage(ctx, r, "validate", func(context.Context) (*validate.Report, error) {
		return r.validator.Validate(warehouse), nil
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка в фазе Validate: %w", err)
	}
	// отчет и запись etl_run_log описывают один и тот же запуск
	if runID != "" {
		report.RunID = runID
	}

	// 5. Фаза загрузки данных (Load)
	if _, err := stage(ctx, r, "load", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, r.loadManager.Load(ctx, warehouse)
	}); err != nil {
		return nil, fmt.Errorf("ошибка в фазе Load: %w", err)
	}
	if err := r.writeReport(report); err != nil {
		return nil, err
	}

	return &RunResult{
		RunID:     report.RunID,
		Warehouse: warehouse,
		Facts:     facts,
		Report:    report,
	}, nil
}

// logProfile логирует профиль исходных таблиц и пересечение ключей между ними
func (r *ETLRunner) logProfile(sources models.SourceSet) {
	for _, p := range extractors.Profile(sources) {
		r.logger.Debug("Таблица %s: строк %d, колонок %d, дубликатов строк %d", p.Name, p.Rows, p.Columns, p.DuplicateRows)
	}

	rel := extractors.Relationships(sources)
	if o := rel.UserRegistration; o != nil {
		r.logger.Info("Пользователи: зарегистрировано %d, без регистрации %d, регистраций без пользователя %d",
			o.UsersInRegistration, o.UsersOnlyInUser, o.UsersOnlyInRegistration)
	}
	if o := rel.PlaySessions; o != nil && o.SessionUsersUnknown > 0 {
		r.logger.Warn("Сессии с неизвестным пользователем: %d", o.SessionUsersUnknown)
	}
	if o := rel.UserPlans; o != nil && o.InvalidPlanReferences > 0 {
		r.logger.Warn("Подписки с неизвестным тарифом: %d", o.InvalidPlanReferences)
	}
}

// writeReport сохраняет отчет в JSON рядом с выгруженными таблицами
func (r *ETLRunner) writeReport(report *validate.Report) error {
	if r.config.OutputDir == "" {
		return nil
	}
	data, err := report.JSON()
	if err != nil {
		return fmt.Errorf("ошибка при сериализации отчета: %w", err)
	}
	if err := os.MkdirAll(r.config.OutputDir, 0o755); err != nil {
		return fmt.Errorf("ошибка при создании каталога %s: %w", r.config.OutputDir, err)
	}
	path := filepath.Join(r.config.OutputDir, reportFileName)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("ошибка при записи отчета %s: %w", path, err)
	}
	r.logger.Info("Отчет о качестве данных сохранен в %s", path)
	return nil
}

// updateETLRunLogSuccess обновляет запись в журнале ETL при успешном завершении
func (r *ETLRunner) updateETLRunLogSuccess(runID string, tables, rows int, report *validate.Report) {
	if r.etlLogRepo == nil || runID == "" {
		return
	}
	if err := r.etlLogRepo.UpdateLogEntrySuccess(context.Background(), runID, time.Now(),
		tables, rows, report.IntegrityScore, report.CompletenessScore); err != nil {
		r.logger.Error("Ошибка при обновлении записи в журнале ETL: %v", err)
	}
}

// updateETLRunLogFailure обновляет запись в журнале ETL при ошибке
func (r *ETLRunner) updateETLRunLogFailure(runID, errorMessage string) {
	if r.etlLogRepo == nil || runID == "" {
		return
	}
	if err := r.etlLogRepo.UpdateLogEntryFailure(context.Background(), runID, time.Now(), errorMessage); err != nil {
		r.logger.Error("Ошибка при обновлении записи в журнале ETL: %v", err)
	}
}

// StartScheduler запускает планировщик для регулярного выполнения ETL
func (r *ETLRunner) StartScheduler(ctx context.Context, job func(context.Context)) error {
	scheduler := gocron.NewScheduler(time.UTC)

	r.logger.Info("Запуск планировщика ETL с интервалом %v", r.config.RunInterval)

	_, err := scheduler.Every(r.config.RunInterval).SingletonMode().Do(func() {
		r.logger.Info("Запланированный запуск ETL процесса")
		job(ctx)
	})
	if err != nil {
		return fmt.Errorf("ошибка при настройке планировщика: %w", err)
	}

	// Запускаем планировщик
	scheduler.StartAsync()

	// Ожидаем сигнал остановки из контекста
	<-ctx.Done()

	// Останавливаем планировщик
	scheduler.Stop()
	r.logger.Info("Планировщик ETL остановлен")
	return nil
}

type rootFlags struct {
	configPath string
}

type onceFlags struct {
	strict bool
}

type serveFlags struct {
	schedule bool
}

var (
	rootOpts  rootFlags
	onceOpts  onceFlags
	serveOpts serveFlags
)

var rootCmd = &cobra.Command{
	Use:   "dice-etl",
	Short: "ETL звездной схемы хранилища по данным платформы Dice",
	Long: `dice-etl читает исходные CSV-таблицы, строит звездную схему
(измерения, измерение времени, факты), проверяет ее целостность
и выгружает результат в CSV и SQL хранилище.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var onceCmd = &cobra.Command{
	Use:   "once",
	Short: "Выполнить ETL один раз",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRunner(cmd.Context(), func(ctx context.Context, runner *ETLRunner, _ *metrics.Metrics) error {
			result, err := runner.ExecuteETL(ctx)
			if err != nil {
				return err
			}
			if err := result.Report.WriteText(cmd.OutOrStdout()); err != nil {
				return err
			}
			if onceOpts.strict && !result.Report.Passed() {
				return errChecksFailed
			}
			return nil
		})
	},
}

var scheduledCmd = &cobra.Command{
	Use:   "scheduled",
	Short: "Выполнять ETL по расписанию (run_interval)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRunner(cmd.Context(), func(ctx context.Context, runner *ETLRunner, _ *metrics.Metrics) error {
			return runner.StartScheduler(ctx, func(ctx context.Context) {
				if _, err := runner.ExecuteETL(ctx); err != nil {
					runner.logger.Error("Ошибка при выполнении запланированного ETL: %v", err)
				}
			})
		})
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Запустить HTTP API (и, с --schedule, планировщик)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRunner(cmd.Context(), func(ctx context.Context, runner *ETLRunner, m *metrics.Metrics) error {
			srv := server.NewServer(runner, m, runner.logger)

			// Первый запуск, чтобы API сразу было готово
			if _, err := srv.Trigger(ctx); err != nil {
				runner.logger.Error("Ошибка первого запуска ETL: %v", err)
			}

			if serveOpts.schedule {
				go func() {
					err := runner.StartScheduler(ctx, func(ctx context.Context) {
						if _, err := srv.Trigger(ctx); err != nil {
							runner.logger.Error("Ошибка при выполнении запланированного ETL: %v", err)
						}
					})
					if err != nil {
						runner.logger.Error("%v", err)
					}
				}()
			}

			return srv.ListenAndServe(ctx, runner.config.HTTPAddress)
		})
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&rootOpts.configPath, "config", "c", "", "Путь к YAML-файлу конфигурации")
	onceCmd.Flags().BoolVar(&onceOpts.strict, "strict", false, "Завершаться с кодом 2, если проверки целостности не пройдены")
	serveCmd.Flags().BoolVar(&serveOpts.schedule, "schedule", false, "Дополнительно запускать ETL по расписанию")

	rootCmd.AddCommand(onceCmd, scheduledCmd, serveCmd)
}

// withRunner загружает конфигурацию, создает логгер и ETLRunner и вызывает fn
func withRunner(ctx context.Context, fn func(context.Context, *ETLRunner, *metrics.Metrics) error) error {
	cfg, err := config.Load(rootOpts.configPath)
	if err != nil {
		return err
	}

	logger, err := utils.NewETLLogger(utils.LoggerOptions{
		Verbose: cfg.EnableDetailedLogging,
		Format:  cfg.LogFormat,
		Dir:     cfg.LogDir,
	})
	if err != nil {
		return fmt.Errorf("ошибка инициализации логгера: %w", err)
	}
	defer logger.Close()

	m := metrics.New()
	runner, err := NewETLRunner(ctx, cfg, logger, m)
	if err != nil {
		return fmt.Errorf("ошибка при создании ETL Runner: %w", err)
	}
	defer runner.Close()

	return fn(ctx, runner, m)
}

func main() {
	// Контекст отменяется при получении сигнала завершения
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	switch {
	case err == nil:
	case errors.Is(err, errChecksFailed):
		log.Println(err)
		stop()
		os.Exit(2)
	default:
		log.Println("Ошибка:", err)
		stop()
		os.Exit(1)
	}
}

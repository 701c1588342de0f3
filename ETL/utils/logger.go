package utils

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// LoggerOptions задает параметры логгера ETL
type LoggerOptions struct {
	Verbose bool      // включает Debug
	Format  string    // text или json
	Dir     string    // каталог для файла etl_log_YYYY-MM-DD.log; пустой - без файла
	Output  io.Writer // основной вывод; по умолчанию os.Stderr
}

// ETLLogger представляет логгер для ETL-процесса
type ETLLogger struct {
	logger    *slog.Logger
	file      *os.File
	isVerbose bool
}

// NewETLLogger создает новый экземпляр логгера для ETL
func NewETLLogger(opts LoggerOptions) (*ETLLogger, error) {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}

	var file *os.File
	if opts.Dir != "" {
		if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
			return nil, fmt.Errorf("не удалось создать каталог логов: %w", err)
		}
		// Создаем или открываем лог-файл для записи
		currentTime := time.Now().Format("2006-01-02")
		logFileName := filepath.Join(opts.Dir, fmt.Sprintf("etl_log_%s.log", currentTime))

		f, err := os.OpenFile(logFileName, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o666)
		if err != nil {
			return nil, fmt.Errorf("не удалось открыть или создать файл лога: %w", err)
		}
		file = f
		out = io.MultiWriter(out, f)
	}

	level := slog.LevelInfo
	if opts.Verbose {
		level = slog.LevelDebug
	}
	handlerOpts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	switch opts.Format {
	case "", "text":
		handler = slog.NewTextHandler(out, handlerOpts)
	case "json":
		handler = slog.NewJSONHandler(out, handlerOpts)
	default:
		if file != nil {
			file.Close()
		}
		return nil, fmt.Errorf("неизвестный формат логов %q", opts.Format)
	}

	return &ETLLogger{
		logger:    slog.New(handler).With("component", "etl"),
		file:      file,
		isVerbose: opts.Verbose,
	}, nil
}

// NewNopLogger возвращает логгер, который ничего не пишет
func NewNopLogger() *ETLLogger {
	return &ETLLogger{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

// Close закрывает файл лога, если он был открыт
func (l *ETLLogger) Close() error {
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}

// With возвращает логгер с дополнительными атрибутами
func (l *ETLLogger) With(args ...any) *ETLLogger {
	return &ETLLogger{logger: l.logger.With(args...), file: l.file, isVerbose: l.isVerbose}
}

// Info логирует информационное сообщение
func (l *ETLLogger) Info(format string, v ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, v...))
}

// Warn логирует предупреждение
func (l *ETLLogger) Warn(format string, v ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, v...))
}

// Error логирует сообщение об ошибке
func (l *ETLLogger) Error(format string, v ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, v...))
}

// Debug логирует отладочное сообщение (только если включен verbose режим)
func (l *ETLLogger) Debug(format string, v ...interface{}) {
	if !l.isVerbose {
		return
	}
	l.logger.Debug(fmt.Sprintf(format, v...))
}

// LogETLStart логирует начало ETL-процесса
func (l *ETLLogger) LogETLStart() {
	l.Info("Начало выполнения ETL-процесса")
}

// LogETLComplete логирует завершение ETL-процесса
func (l *ETLLogger) LogETLComplete(startTime time.Time, tables int, rows int, integrityScore float64) {
	l.logger.Info("ETL-процесс завершён",
		"duration", time.Since(startTime),
		"tables", tables,
		"rows", rows,
		"integrity_score", integrityScore,
	)
}

// LogExtractStart логирует начало фазы извлечения данных
func (l *ETLLogger) LogExtractStart() {
	l.Info("Начало фазы Extract (Извлечение данных)")
}

// LogExtractComplete логирует завершение фазы извлечения данных
func (l *ETLLogger) LogExtractComplete(tables int, rows int, duration time.Duration) {
	l.logger.Info("Фаза Extract завершена",
		"duration", duration,
		"tables", tables,
		"rows", rows,
	)
}

// LogStage логирует завершение произвольного этапа конвейера
func (l *ETLLogger) LogStage(stage string, duration time.Duration, err error) {
	if err != nil {
		l.logger.Error("Этап завершился с ошибкой", "stage", stage, "duration", duration, "error", err)
		return
	}
	l.logger.Info("Этап завершён", "stage", stage, "duration", duration)
}

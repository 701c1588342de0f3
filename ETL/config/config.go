package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ETLConfig содержит конфигурацию для ETL-процесса
type ETLConfig struct {
	// Каталог с исходными CSV-выгрузками (<таблица>.csv)
	SourceDir string `yaml:"source_dir"`

	// Каталог для CSV-файлов звездной схемы; пустой - файлы не пишутся
	OutputDir string `yaml:"output_dir"`

	// Сжимать CSV-файлы snappy
	Compress bool `yaml:"compress"`

	// Хранилище в SQL базе данных (MySQL или SQLite)
	Warehouse DatabaseConfig `yaml:"warehouse"`

	// Дата-заглушка "нет окончания" и дата отсечения, которой она заменяется
	SentinelDate string `yaml:"sentinel_date"`
	CutoffDate   string `yaml:"cutoff_date"`

	// Допустимое абсолютное расхождение итогов при перекрестной проверке агрегатов
	RevenueTolerance float64 `yaml:"revenue_tolerance"`

	// Интервал запуска ETL в режиме по расписанию
	RunInterval time.Duration `yaml:"run_interval"`

	// Предельное время каждого этапа конвейера
	StageTimeout time.Duration `yaml:"stage_timeout"`

	// Адрес HTTP API в режиме serve
	HTTPAddress string `yaml:"http_address"`

	// Логирование: text или json; каталог для файла лога (пустой - только stderr)
	LogFormat string `yaml:"log_format"`
	LogDir    string `yaml:"log_dir"`

	// Включение/отключение подробного логирования
	EnableDetailedLogging bool `yaml:"enable_detailed_logging"`

	sentinel time.Time
	cutoff   time.Time
}

// DatabaseConfig содержит настройки подключения к базе данных
type DatabaseConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Driver   string `yaml:"driver"` // mysql или sqlite
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	Path     string `yaml:"path"` // файл базы для sqlite
}

// Значения конфигурации по умолчанию
var (
	DefaultWarehouseConfig = DatabaseConfig{
		Enabled: false,
		Driver:  "sqlite",
		Host:    "localhost",
		Port:    3306,
		User:    "root",
		DBName:  "dice_warehouse",
		Path:    "output/warehouse.db",
	}

	DefaultETLConfig = ETLConfig{
		SourceDir:             "assignment_docs",
		OutputDir:             "output/star_schema",
		Warehouse:             DefaultWarehouseConfig,
		SentinelDate:          "9999-01-01",
		CutoffDate:            "2024-12-31",
		RevenueTolerance:      1.0,
		RunInterval:           1 * time.Hour,
		StageTimeout:          2 * time.Minute,
		HTTPAddress:           ":8080",
		LogFormat:             "text",
		EnableDetailedLogging: false,
	}
)

// GetConfig возвращает конфигурацию ETL по умолчанию
func GetConfig() ETLConfig {
	config := DefaultETLConfig
	if err := config.Validate(); err != nil {
		// значения по умолчанию обязаны быть корректными
		panic(err)
	}
	return config
}

// Load читает YAML-файл поверх значений по умолчанию. Пустой путь - только значения по умолчанию.
func Load(path string) (ETLConfig, error) {
	config := DefaultETLConfig
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return ETLConfig{}, fmt.Errorf("ошибка чтения файла конфигурации: %w", err)
		}
		if err := yaml.Unmarshal(data, &config); err != nil {
			return ETLConfig{}, fmt.Errorf("ошибка разбора файла конфигурации %s: %w", path, err)
		}
	}
	if err := config.Validate(); err != nil {
		return ETLConfig{}, err
	}
	return config, nil
}

// Validate проверяет обязательные поля и разбирает даты заглушки и отсечения
func (c *ETLConfig) Validate() error {
	if c.SourceDir == "" {
		return errors.New("source_dir не может быть пустым")
	}
	var err error
	if c.sentinel, err = time.Parse("2006-01-02", c.SentinelDate); err != nil {
		return fmt.Errorf("неверная sentinel_date %q: %w", c.SentinelDate, err)
	}
	if c.cutoff, err = time.Parse("2006-01-02", c.CutoffDate); err != nil {
		return fmt.Errorf("неверная cutoff_date %q: %w", c.CutoffDate, err)
	}
	if !c.cutoff.Before(c.sentinel) {
		return fmt.Errorf("cutoff_date %s должна быть раньше sentinel_date %s", c.CutoffDate, c.SentinelDate)
	}
	if c.RevenueTolerance < 0 {
		return fmt.Errorf("revenue_tolerance не может быть отрицательным: %v", c.RevenueTolerance)
	}
	if c.StageTimeout <= 0 {
		return fmt.Errorf("stage_timeout должен быть положительным: %v", c.StageTimeout)
	}
	if c.Warehouse.Enabled {
		switch c.Warehouse.Driver {
		case "mysql", "sqlite":
		default:
			return fmt.Errorf("неизвестный драйвер хранилища %q (mysql или sqlite)", c.Warehouse.Driver)
		}
	}
	return nil
}

// Sentinel возвращает разобранную дату-заглушку
func (c ETLConfig) Sentinel() time.Time {
	return c.sentinel
}

// Cutoff возвращает разобранную дату отсечения
func (c ETLConfig) Cutoff() time.Time {
	return c.cutoff
}

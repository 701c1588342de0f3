package config

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "modernc.org/sqlite"
)

// DSN строит строку подключения для выбранного драйвера
func (c DatabaseConfig) DSN() string {
	if c.Driver == "sqlite" {
		return c.Path
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true",
		c.User,
		c.Password,
		c.Host,
		c.Port,
		c.DBName,
	)
}

// ConnectWarehouse устанавливает подключение к базе данных хранилища
func ConnectWarehouse(ctx context.Context, config DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open(config.Driver, config.DSN())
	if err != nil {
		return nil, fmt.Errorf("ошибка подключения к базе данных хранилища: %w", err)
	}

	// Настройка параметров подключения
	if config.Driver == "sqlite" {
		// SQLite допускает одного писателя
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
	}
	db.SetConnMaxLifetime(5 * time.Minute)

	// Проверка подключения
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("не удалось установить соединение с базой данных хранилища: %w", err)
	}

	return db, nil
}

package config

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

// DBConnections содержит подключения к базам данных
type DBConnections struct {
	// Метаданные конвейера: водяные знаки и журнал запусков (SQLite)
	MetadataDB *sqlx.DB

	// Хранилище Gold (MySQL), nil если загрузка в хранилище отключена
	WarehouseDB *sql.DB
}

// ConnectDatabases устанавливает подключения к базе метаданных и, при необходимости, к хранилищу
func ConnectDatabases(config ETLConfig) (*DBConnections, error) {
	var connections DBConnections
	var err error

	connections.MetadataDB, err = ConnectMetadata(config.Paths.MetadataDB)
	if err != nil {
		return nil, err
	}

	if config.Warehouse.Enabled {
		connections.WarehouseDB, err = ConnectWarehouse(config.Warehouse)
		if err != nil {
			// Закрываем первое подключение при ошибке
			connections.MetadataDB.Close()
			return nil, err
		}
	}

	return &connections, nil
}

// ConnectMetadata открывает базу метаданных SQLite, создавая каталог при необходимости
func ConnectMetadata(path string) (*sqlx.DB, error) {
	dsn := path
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("ошибка создания каталога метаданных: %w", err)
		}
		dsn = path + "?_journal_mode=WAL&_busy_timeout=5000"
	}

	db, err := sqlx.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("ошибка подключения к базе метаданных: %w", err)
	}

	// SQLite допускает одного писателя
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("не удалось установить соединение с базой метаданных: %w", err)
	}

	return db, nil
}

// ConnectWarehouse открывает соединение с хранилищем MySQL
func ConnectWarehouse(config DatabaseConfig) (*sql.DB, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4",
		config.User,
		config.Password,
		config.Host,
		config.Port,
		config.DBName,
	)

	db, err := sql.Open(config.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("ошибка подключения к хранилищу: %w", err)
	}

	// Настройка параметров подключения
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("не удалось установить соединение с хранилищем: %w", err)
	}

	return db, nil
}

// CloseDatabases закрывает подключения к базам данных
func CloseDatabases(connections *DBConnections) error {
	if connections == nil {
		return nil
	}

	var firstErr error
	if connections.MetadataDB != nil {
		if err := connections.MetadataDB.Close(); err != nil {
			firstErr = fmt.Errorf("ошибка при закрытии базы метаданных: %w", err)
		}
	}

	if connections.WarehouseDB != nil {
		if err := connections.WarehouseDB.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("ошибка при закрытии хранилища: %w", err)
		}
	}

	return firstErr
}

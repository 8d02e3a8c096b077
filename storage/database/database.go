package database

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/Tonic56/cryptofolio/internal/config"
	"github.com/Tonic56/cryptofolio/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	connectAttempts = 5
	connectBackoff  = 2 * time.Second
)

type Storage struct {
	DB *gorm.DB
}

// New connects to the SQL backend selected by storage.Driver and migrates the state tables.
func New(storage config.StorageConfig, pg config.DBConfig, log *slog.Logger) (*Storage, error) {
	const op = "storage.database.New"

	var dialector gorm.Dialector
	attempts := 1

	switch storage.Driver {
	case DriverSQLite:
		dialector = sqlite.Open(storage.SQLitePath)
	case DriverPostgres:
		dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=disable",
			pg.Host, pg.User, pg.Password, pg.DBName, pg.Port)
		dialector = postgres.Open(dsn)
		attempts = connectAttempts
	default:
		return nil, fmt.Errorf("%s: unsupported driver %q", op, storage.Driver)
	}

	db, err := open(dialector, attempts, log)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	log.Info("connected to database", "driver", storage.Driver)

	if err := Migrate(db); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Storage{DB: db}, nil
}

// OpenSQLite opens a sqlite database at dsn and migrates it. Tests use it with in-memory DSNs.
func OpenSQLite(dsn string) (*Storage, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if err := Migrate(db); err != nil {
		return nil, err
	}
	return &Storage{DB: db}, nil
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.StateRecord{}, &models.AssetRecord{}); err != nil {
		return fmt.Errorf("failed to auto-migrate database: %w", err)
	}
	return nil
}

func open(dialector gorm.Dialector, attempts int, log *slog.Logger) (*gorm.DB, error) {
	var db *gorm.DB
	var err error

	for i := 0; i < attempts; i++ {
		db, err = gorm.Open(dialector, &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		})
		if err == nil {
			return db, nil
		}
		if i < attempts-1 {
			log.Warn("failed to connect to database, retrying...", "attempt", i+1, "error", err)
			time.Sleep(connectBackoff)
		}
	}

	return nil, fmt.Errorf("failed to connect after %d attempts: %w", attempts, err)
}

func (s *Storage) Stop() error {
	sqlDb, err := s.DB.DB()
	if err != nil {
		return err
	}

	return sqlDb.Close()
}

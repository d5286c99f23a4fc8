package database

import (
	"testing"
	"time"

	"gorm.io/gorm/logger"
)

func TestDefaultPoolConfig(t *testing.T) {
	config := DefaultPoolConfig()

	if config.MaxOpenConns != 25 {
		t.Errorf("expected MaxOpenConns 25, got %d", config.MaxOpenConns)
	}
	if config.MaxIdleConns != 10 {
		t.Errorf("expected MaxIdleConns 10, got %d", config.MaxIdleConns)
	}
	if config.ConnMaxLifetime != time.Hour {
		t.Errorf("expected ConnMaxLifetime 1h, got %v", config.ConnMaxLifetime)
	}
	if config.ConnMaxIdleTime != 30*time.Minute {
		t.Errorf("expected ConnMaxIdleTime 30m, got %v", config.ConnMaxIdleTime)
	}
	if config.LogLevel != logger.Info {
		t.Errorf("expected LogLevel Info, got %v", config.LogLevel)
	}
}

func TestNewDatabasePoolEmptyDSN(t *testing.T) {
	_, err := NewDatabasePool(&PoolConfig{})
	if err == nil {
		t.Fatal("expected error for empty DSN")
	}
}

func TestNewDatabasePoolInvalidDSN(t *testing.T) {
	config := DefaultPoolConfig()
	config.DSN = "host=nonexistent-host port=1 user=x dbname=x sslmode=disable connect_timeout=1"

	_, err := NewDatabasePool(config)
	if err == nil {
		t.Fatal("expected error for unreachable database")
	}
}

func TestNewSQLitePoolInMemory(t *testing.T) {
	db, err := NewSQLitePool("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := sqlDB.Ping(); err != nil {
		t.Errorf("ping failed: %v", err)
	}
}

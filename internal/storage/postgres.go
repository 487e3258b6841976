package storage

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/kirillm/signal-bot/internal/storage/repository"
)

// PostgresStorage является фасадом для работы с PostgreSQL через репозитории
type PostgresStorage struct {
	db     *sql.DB
	trades *repository.TradeRepository
}

func NewPostgresStorage(host string, port int, user, password, dbname, sslmode string, maxOpenConns, maxIdleConns int, connMaxLifetime time.Duration) (*PostgresStorage, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		host, port, user, password, dbname, sslmode)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// Настройка connection pool из конфигурации
	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxLifetime(connMaxLifetime)

	storage := &PostgresStorage{
		db:     db,
		trades: repository.NewTradeRepository(db),
	}

	if err := storage.migrate(); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return storage, nil
}

func (s *PostgresStorage) migrate() error {
	migrations := []string{
		// Журнал сделок: запись о намерении торговать на каждую цель
		`CREATE TABLE IF NOT EXISTS trade_logs (
			id SERIAL PRIMARY KEY,
			symbol VARCHAR(20) NOT NULL,
			side VARCHAR(10) NOT NULL,
			quantity DECIMAL(20, 8) NOT NULL,
			price DECIMAL(20, 8) NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_trade_logs_symbol ON trade_logs(symbol, created_at DESC)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	return nil
}

// Trades возвращает репозиторий журнала сделок
func (s *PostgresStorage) Trades() *repository.TradeRepository {
	return s.trades
}

// Close закрывает соединение с базой
func (s *PostgresStorage) Close() error {
	return s.db.Close()
}

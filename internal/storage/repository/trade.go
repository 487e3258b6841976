package repository

import (
	"database/sql"

	"github.com/kirillm/signal-bot/internal/domain"
)

// TradeRepository реализует журнал сделок поверх таблицы trade_logs
type TradeRepository struct {
	db *sql.DB
}

// NewTradeRepository создает новый репозиторий журнала сделок
func NewTradeRepository(db *sql.DB) *TradeRepository {
	return &TradeRepository{db: db}
}

// Append сохраняет запись о попытке сделки
func (r *TradeRepository) Append(record domain.TradeRecord) error {
	query := `
		INSERT INTO trade_logs (symbol, side, quantity, price, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.db.Exec(
		query,
		record.Symbol,
		record.Side,
		record.Quantity,
		record.Price,
		record.CreatedAt,
	)
	return err
}

// GetRecent получает последние N записей журнала для символа
func (r *TradeRepository) GetRecent(symbol string, limit int) ([]domain.TradeRecord, error) {
	query := `
		SELECT id, symbol, side, quantity, price, created_at
		FROM trade_logs
		WHERE symbol = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	return r.queryRecords(query, symbol, limit)
}

// GetAllRecent получает последние N записей журнала по всем символам
func (r *TradeRepository) GetAllRecent(limit int) ([]domain.TradeRecord, error) {
	query := `
		SELECT id, symbol, side, quantity, price, created_at
		FROM trade_logs
		ORDER BY created_at DESC
		LIMIT $1
	`
	return r.queryRecords(query, limit)
}

// queryRecords выполняет запрос и возвращает список записей журнала
func (r *TradeRepository) queryRecords(query string, args ...interface{}) ([]domain.TradeRecord, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []domain.TradeRecord
	for rows.Next() {
		var record domain.TradeRecord
		err := rows.Scan(
			&record.ID,
			&record.Symbol,
			&record.Side,
			&record.Quantity,
			&record.Price,
			&record.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}

	return records, rows.Err()
}

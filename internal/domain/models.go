package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// QuantitySpec описывает запрошенный объем: абсолютное количество
// или процент от баланса базового актива.
type QuantitySpec struct {
	Value     decimal.Decimal
	IsPercent bool
}

// AbsoluteQuantity создает спецификацию с абсолютным количеством
func AbsoluteQuantity(v decimal.Decimal) QuantitySpec {
	return QuantitySpec{Value: v}
}

// PercentQuantity создает спецификацию с процентом от баланса
func PercentQuantity(v decimal.Decimal) QuantitySpec {
	return QuantitySpec{Value: v, IsPercent: true}
}

// TradeIntent представляет распарсенный торговый сигнал.
// Создается заново для каждого входящего сообщения и не мутируется.
type TradeIntent struct {
	Symbol      string
	Side        string // "Buy" or "Sell"
	Entry       *decimal.Decimal
	StopLoss    *decimal.Decimal
	TakeProfits []decimal.Decimal
	Leverage    int
	Quantity    QuantitySpec
}

// Validate проверяет, что сигнал содержит все обязательные поля.
// Вызывается перед любым обращением к бирже.
func (i *TradeIntent) Validate() error {
	if i.Symbol == "" || i.Side == "" {
		return ErrIncompleteIntent
	}
	if i.Entry == nil || i.StopLoss == nil {
		return ErrIncompleteIntent
	}
	if len(i.TakeProfits) == 0 {
		return ErrIncompleteIntent
	}
	if i.Leverage <= 0 {
		return ErrIncompleteIntent
	}
	return nil
}

// TargetOutcome представляет результат размещения ордера по одной TP-цели
type TargetOutcome struct {
	Target  decimal.Decimal
	Placed  bool
	OrderID string
	Err     error
}

// ExecutionReport агрегирует результаты по всем целям одного сигнала
type ExecutionReport struct {
	Symbol   string
	Side     string
	Quantity decimal.Decimal
	Outcomes []TargetOutcome
}

// PlacedCount возвращает число успешно размещенных ордеров
func (r *ExecutionReport) PlacedCount() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Placed {
			n++
		}
	}
	return n
}

// TradeRecord представляет запись в журнале сделок
type TradeRecord struct {
	ID        int64           `db:"id"`
	Symbol    string          `db:"symbol"`
	Side      string          `db:"side"`
	Quantity  decimal.Decimal `db:"quantity"`
	Price     decimal.Decimal `db:"price"`
	CreatedAt time.Time       `db:"created_at"`
}

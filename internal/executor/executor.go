package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/kirillm/signal-bot/internal/domain"
	"github.com/kirillm/signal-bot/internal/exchange"
	"github.com/kirillm/signal-bot/internal/signal"
)

// Exchange интерфейс биржи
type Exchange interface {
	GetBalances(ctx context.Context, assets []string) (map[string]decimal.Decimal, error)
	PlaceLimitOrder(ctx context.Context, order exchange.OrderParams) (string, error)
}

// Notifier получает сообщения о ходе исполнения, по одному на цель,
// чтобы оператор видел прогресс вживую
type Notifier interface {
	Notify(text string)
}

// TradeJournal журнал сделок. Ошибка записи не прерывает исполнение.
type TradeJournal interface {
	Append(record domain.TradeRecord) error
}

// Executor размещает серию лимитных ордеров по целям сигнала.
// Баланс проверяется перед каждым ордером заново: предыдущие цели
// не резервируют средства, и баланс может уйти между ордерами.
type Executor struct {
	exchange   Exchange
	journal    TradeJournal
	logger     *zap.Logger
	quoteAsset string
}

// NewExecutor создает новый executor
func NewExecutor(ex Exchange, journal TradeJournal, logger *zap.Logger, quoteAsset string) *Executor {
	return &Executor{
		exchange:   ex,
		journal:    journal,
		logger:     logger,
		quoteAsset: quoteAsset,
	}
}

// Execute выполняет сигнал с уже отрезолвленным количеством.
// Ошибка возвращается только если не размещено ни одного ордера
// (неполный сигнал, недоступный баланс, провал pre-flight проверки).
// После первого ордера промежуточные сбои попадают в отчет:
// отказ биржи по одной цели не прерывает остальные, нехватка баланса
// прерывает остаток без отката уже размещенных ордеров.
func (e *Executor) Execute(ctx context.Context, intent *domain.TradeIntent, quantity decimal.Decimal, notify Notifier) (*domain.ExecutionReport, error) {
	if err := intent.Validate(); err != nil {
		return nil, err
	}
	if quantity.LessThanOrEqual(decimal.Zero) {
		return nil, domain.ErrIncompleteIntent
	}

	asset := signal.BaseAsset(intent.Symbol, e.quoteAsset)

	// Pre-flight: ни одного ордера при нехватке баланса на весь сигнал
	balance, found, err := e.fetchBalance(ctx, asset)
	if err != nil {
		return nil, err
	}
	if !found || balance.LessThan(quantity) {
		return nil, fmt.Errorf("%w: %s available for %s", domain.ErrInsufficientBalance, balance, asset)
	}

	report := &domain.ExecutionReport{
		Symbol:   intent.Symbol,
		Side:     intent.Side,
		Quantity: quantity,
	}

	for _, target := range intent.TakeProfits {
		// Свежий снапшот перед каждой целью
		balance, found, err = e.fetchBalance(ctx, asset)
		if err != nil {
			report.Outcomes = append(report.Outcomes, domain.TargetOutcome{Target: target, Err: err})
			notify.Notify(fmt.Sprintf("Error checking balance: %s", err))
			break
		}
		if !found || balance.LessThan(quantity) {
			insufficient := fmt.Errorf("%w: %s available for %s", domain.ErrInsufficientBalance, balance, asset)
			report.Outcomes = append(report.Outcomes, domain.TargetOutcome{Target: target, Err: insufficient})
			notify.Notify(fmt.Sprintf("Balance changed. Insufficient balance (%s) to complete the trade.", balance))
			break
		}

		outcome := e.placeTarget(ctx, intent, quantity, target)
		report.Outcomes = append(report.Outcomes, outcome)

		if outcome.Placed {
			notify.Notify(fmt.Sprintf("Trade placed: %s %s with TP: %s, SL: %s, Leverage: %dx, Quantity: %s",
				intent.Side, intent.Symbol, target, intent.StopLoss, intent.Leverage, quantity))
		} else {
			notify.Notify(fmt.Sprintf("Error placing trade: %s", outcome.Err))
		}

		// Запись о намерении торговать, независимо от результата цели
		e.appendJournal(intent, quantity, target)
	}

	return report, nil
}

// placeTarget размещает лимитный ордер по одной TP-цели
func (e *Executor) placeTarget(ctx context.Context, intent *domain.TradeIntent, quantity, target decimal.Decimal) domain.TargetOutcome {
	orderID, err := e.exchange.PlaceLimitOrder(ctx, exchange.OrderParams{
		Symbol:         intent.Symbol,
		Side:           intent.Side,
		Quantity:       quantity,
		Price:          target,
		Leverage:       intent.Leverage,
		TimeInForce:    domain.TimeInForceGTC,
		ReduceOnly:     false,
		CloseOnTrigger: false,
	})
	if err != nil {
		e.logger.Warn("order rejected",
			zap.String("symbol", intent.Symbol),
			zap.String("target", target.String()),
			zap.Error(err))
		return domain.TargetOutcome{Target: target, Err: fmt.Errorf("%w: %s", domain.ErrOrderRejected, err)}
	}

	e.logger.Info("order placed",
		zap.String("symbol", intent.Symbol),
		zap.String("side", intent.Side),
		zap.String("target", target.String()),
		zap.String("order_id", orderID))

	return domain.TargetOutcome{Target: target, Placed: true, OrderID: orderID}
}

// fetchBalance возвращает свежий баланс актива
func (e *Executor) fetchBalance(ctx context.Context, asset string) (decimal.Decimal, bool, error) {
	balances, err := e.exchange.GetBalances(ctx, []string{asset, e.quoteAsset})
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("%w: %s", domain.ErrBalanceUnavailable, err)
	}

	balance, found := balances[asset]
	return balance, found, nil
}

func (e *Executor) appendJournal(intent *domain.TradeIntent, quantity, target decimal.Decimal) {
	record := domain.TradeRecord{
		Symbol:    intent.Symbol,
		Side:      intent.Side,
		Quantity:  quantity,
		Price:     target,
		CreatedAt: time.Now(),
	}
	if err := e.journal.Append(record); err != nil {
		e.logger.Warn("failed to append trade journal", zap.Error(err))
	}
}

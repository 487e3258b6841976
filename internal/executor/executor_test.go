package executor

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kirillm/signal-bot/internal/domain"
	"github.com/kirillm/signal-bot/internal/exchange"
)

type fakeExchange struct {
	balances    []map[string]decimal.Decimal // по снапшоту на каждый вызов, последний переиспользуется
	balanceErr  error
	balanceCall int
	orders      []exchange.OrderParams
	rejectAt    map[int]error
}

func (f *fakeExchange) GetBalances(_ context.Context, _ []string) (map[string]decimal.Decimal, error) {
	if f.balanceErr != nil {
		return nil, f.balanceErr
	}
	i := f.balanceCall
	f.balanceCall++
	if i >= len(f.balances) {
		i = len(f.balances) - 1
	}
	return f.balances[i], nil
}

func (f *fakeExchange) PlaceLimitOrder(_ context.Context, order exchange.OrderParams) (string, error) {
	idx := len(f.orders)
	f.orders = append(f.orders, order)
	if err := f.rejectAt[idx]; err != nil {
		return "", err
	}
	return fmt.Sprintf("order-%d", idx+1), nil
}

type fakeJournal struct {
	records []domain.TradeRecord
	err     error
}

func (f *fakeJournal) Append(record domain.TradeRecord) error {
	f.records = append(f.records, record)
	return f.err
}

type fakeNotifier struct {
	messages []string
}

func (f *fakeNotifier) Notify(text string) {
	f.messages = append(f.messages, text)
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func makeIntent(tps ...string) *domain.TradeIntent {
	entry := dec("50000")
	sl := dec("49000")
	intent := &domain.TradeIntent{
		Symbol:   "BTCUSDT",
		Side:     domain.SideBuy,
		Entry:    &entry,
		StopLoss: &sl,
		Leverage: 5,
		Quantity: domain.AbsoluteQuantity(dec("0.01")),
	}
	for _, tp := range tps {
		intent.TakeProfits = append(intent.TakeProfits, dec(tp))
	}
	return intent
}

func balance(v string) map[string]decimal.Decimal {
	return map[string]decimal.Decimal{"BTC": dec(v), "USDT": dec("1000")}
}

func TestExecutor_AllTargetsPlaced(t *testing.T) {
	ex := &fakeExchange{balances: []map[string]decimal.Decimal{balance("1")}}
	journal := &fakeJournal{}
	notifier := &fakeNotifier{}
	e := NewExecutor(ex, journal, zap.NewNop(), "USDT")

	report, err := e.Execute(context.Background(), makeIntent("51000", "52000"), dec("0.01"), notifier)
	require.NoError(t, err)

	require.Len(t, report.Outcomes, 2)
	assert.Equal(t, 2, report.PlacedCount())
	assert.Equal(t, "order-1", report.Outcomes[0].OrderID)
	assert.Equal(t, "order-2", report.Outcomes[1].OrderID)

	require.Len(t, ex.orders, 2)
	first := ex.orders[0]
	assert.Equal(t, "BTCUSDT", first.Symbol)
	assert.Equal(t, domain.SideBuy, first.Side)
	assert.True(t, first.Price.Equal(dec("51000")))
	assert.True(t, first.Quantity.Equal(dec("0.01")))
	assert.Equal(t, 5, first.Leverage)
	assert.Equal(t, domain.TimeInForceGTC, first.TimeInForce)
	assert.False(t, first.ReduceOnly)
	assert.False(t, first.CloseOnTrigger)
	assert.True(t, ex.orders[1].Price.Equal(dec("52000")))

	// Запись в журнал и живое уведомление на каждую цель
	assert.Len(t, journal.records, 2)
	assert.Len(t, notifier.messages, 2)
}

func TestExecutor_PreflightInsufficient(t *testing.T) {
	ex := &fakeExchange{balances: []map[string]decimal.Decimal{balance("0.005")}}
	e := NewExecutor(ex, &fakeJournal{}, zap.NewNop(), "USDT")

	_, err := e.Execute(context.Background(), makeIntent("51000"), dec("0.01"), &fakeNotifier{})
	assert.ErrorIs(t, err, domain.ErrInsufficientBalance)

	// Ни одного ордера до прохождения pre-flight проверки
	assert.Empty(t, ex.orders)
}

func TestExecutor_PreflightBalanceMissing(t *testing.T) {
	ex := &fakeExchange{balances: []map[string]decimal.Decimal{{"USDT": dec("1000")}}}
	e := NewExecutor(ex, &fakeJournal{}, zap.NewNop(), "USDT")

	_, err := e.Execute(context.Background(), makeIntent("51000"), dec("0.01"), &fakeNotifier{})
	assert.ErrorIs(t, err, domain.ErrInsufficientBalance)
	assert.Empty(t, ex.orders)
}

func TestExecutor_BalanceUnavailable(t *testing.T) {
	ex := &fakeExchange{balanceErr: errors.New("api down")}
	e := NewExecutor(ex, &fakeJournal{}, zap.NewNop(), "USDT")

	_, err := e.Execute(context.Background(), makeIntent("51000"), dec("0.01"), &fakeNotifier{})
	assert.ErrorIs(t, err, domain.ErrBalanceUnavailable)
	assert.Empty(t, ex.orders)
}

func TestExecutor_SecondTargetInsufficient(t *testing.T) {
	// pre-flight и первая цель проходят, перед второй баланс ушел
	ex := &fakeExchange{balances: []map[string]decimal.Decimal{
		balance("0.02"),
		balance("0.02"),
		balance("0.005"),
	}}
	journal := &fakeJournal{}
	notifier := &fakeNotifier{}
	e := NewExecutor(ex, journal, zap.NewNop(), "USDT")

	report, err := e.Execute(context.Background(), makeIntent("51000", "52000"), dec("0.01"), notifier)
	require.NoError(t, err)

	require.Len(t, report.Outcomes, 2)
	assert.True(t, report.Outcomes[0].Placed)
	assert.ErrorIs(t, report.Outcomes[1].Err, domain.ErrInsufficientBalance)

	// Размещенный ордер не откатывается, второй не размещается
	assert.Len(t, ex.orders, 1)
	assert.Len(t, journal.records, 1)
	require.Len(t, notifier.messages, 2)
	assert.Contains(t, notifier.messages[1], "Balance changed")
}

func TestExecutor_AbortSkipsRemainingTargets(t *testing.T) {
	ex := &fakeExchange{balances: []map[string]decimal.Decimal{
		balance("0.02"),
		balance("0.005"),
	}}
	e := NewExecutor(ex, &fakeJournal{}, zap.NewNop(), "USDT")

	report, err := e.Execute(context.Background(), makeIntent("51000", "52000", "53000"), dec("0.01"), &fakeNotifier{})
	require.NoError(t, err)

	// Первая же цель упала по балансу: остальные не получают записей
	require.Len(t, report.Outcomes, 1)
	assert.ErrorIs(t, report.Outcomes[0].Err, domain.ErrInsufficientBalance)
	assert.Empty(t, ex.orders)
}

func TestExecutor_OrderRejectedContinues(t *testing.T) {
	ex := &fakeExchange{
		balances: []map[string]decimal.Decimal{balance("1")},
		rejectAt: map[int]error{0: errors.New("price out of range")},
	}
	journal := &fakeJournal{}
	e := NewExecutor(ex, journal, zap.NewNop(), "USDT")

	report, err := e.Execute(context.Background(), makeIntent("51000", "52000"), dec("0.01"), &fakeNotifier{})
	require.NoError(t, err)

	require.Len(t, report.Outcomes, 2)
	assert.ErrorIs(t, report.Outcomes[0].Err, domain.ErrOrderRejected)
	assert.True(t, report.Outcomes[1].Placed)

	// Отказ биржи по одной цели не прерывает остальные
	assert.Len(t, ex.orders, 2)
	assert.Len(t, journal.records, 2)
}

func TestExecutor_IncompleteIntent(t *testing.T) {
	ex := &fakeExchange{balances: []map[string]decimal.Decimal{balance("1")}}
	e := NewExecutor(ex, &fakeJournal{}, zap.NewNop(), "USDT")

	intent := makeIntent("51000")
	intent.StopLoss = nil

	_, err := e.Execute(context.Background(), intent, dec("0.01"), &fakeNotifier{})
	assert.ErrorIs(t, err, domain.ErrIncompleteIntent)
	assert.Equal(t, 0, ex.balanceCall)
}

func TestExecutor_ZeroQuantity(t *testing.T) {
	ex := &fakeExchange{balances: []map[string]decimal.Decimal{balance("1")}}
	e := NewExecutor(ex, &fakeJournal{}, zap.NewNop(), "USDT")

	_, err := e.Execute(context.Background(), makeIntent("51000"), decimal.Zero, &fakeNotifier{})
	assert.ErrorIs(t, err, domain.ErrIncompleteIntent)
}

func TestExecutor_JournalFailureDoesNotAbort(t *testing.T) {
	ex := &fakeExchange{balances: []map[string]decimal.Decimal{balance("1")}}
	journal := &fakeJournal{err: errors.New("db down")}
	e := NewExecutor(ex, journal, zap.NewNop(), "USDT")

	report, err := e.Execute(context.Background(), makeIntent("51000", "52000"), dec("0.01"), &fakeNotifier{})
	require.NoError(t, err)
	assert.Equal(t, 2, report.PlacedCount())
}

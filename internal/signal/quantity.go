package signal

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/kirillm/signal-bot/internal/domain"
)

// BalanceSource предоставляет балансы кошелька по списку активов
type BalanceSource interface {
	GetBalances(ctx context.Context, assets []string) (map[string]decimal.Decimal, error)
}

// Resolver превращает QuantitySpec в конкретное количество.
// Процентные спецификации резолвятся по свежему балансу базового актива,
// баланс не кешируется.
type Resolver struct {
	balances   BalanceSource
	quoteAsset string
}

// NewResolver создает новый resolver
func NewResolver(balances BalanceSource, quoteAsset string) *Resolver {
	return &Resolver{balances: balances, quoteAsset: quoteAsset}
}

// BaseAsset выделяет базовый актив из символа, отрезая суффикс
// котируемой валюты (BTCUSDT -> BTC)
func BaseAsset(symbol, quoteAsset string) string {
	return strings.TrimSuffix(symbol, quoteAsset)
}

// BaseAsset выделяет базовый актив из символа
func (r *Resolver) BaseAsset(symbol string) string {
	return BaseAsset(symbol, r.quoteAsset)
}

// Resolve возвращает количество для ордера. Абсолютная спецификация
// возвращается как есть, процентная считается от текущего баланса.
func (r *Resolver) Resolve(ctx context.Context, spec domain.QuantitySpec, symbol string) (decimal.Decimal, error) {
	if !spec.IsPercent {
		return spec.Value, nil
	}

	asset := r.BaseAsset(symbol)

	balances, err := r.balances.GetBalances(ctx, []string{asset, r.quoteAsset})
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %s", domain.ErrBalanceUnavailable, err)
	}

	balance, ok := balances[asset]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %s", domain.ErrBalanceUnavailable, asset)
	}

	return balance.Mul(spec.Value).Div(decimal.NewFromInt(100)), nil
}

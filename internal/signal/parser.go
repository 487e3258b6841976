package signal

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/kirillm/signal-bot/internal/domain"
)

// Грамматика сигнала (построчная, ключевые слова чувствительны к регистру):
//
//	BTCUSDT (LONG)
//	Entry: 50000
//	SL: 49000
//	TP1: 51000
//	TP2: 52000
//	Leverage: 5x
//	Quantity: 25%
//
// Первая строка обязательна, остальные опциональны и могут идти в любом
// порядке. Quantity принимает либо процент от баланса, либо абсолютное
// количество.
var (
	headerRe   = regexp.MustCompile(`(\w+)\s*\((LONG|SHORT)\)`)
	leverageRe = regexp.MustCompile(`Leverage:\s*(\d+)x`)
)

// Parse разбирает текст сигнала в TradeIntent.
// Парсер чистый и детерминированный: процентный Quantity не резолвится
// здесь, а откладывается до обращения к балансу (см. Resolver).
func Parse(text string) (*domain.TradeIntent, error) {
	lines := strings.Split(text, "\n")

	header := headerRe.FindStringSubmatch(strings.TrimSpace(lines[0]))
	if header == nil {
		return nil, domain.ErrMalformedHeader
	}

	intent := &domain.TradeIntent{
		Symbol: header[1],
		Side:   domain.SideBuy,
	}
	if header[2] == domain.DirectionShort {
		intent.Side = domain.SideSell
	}

	for _, line := range lines[1:] {
		line = strings.TrimSpace(line)

		switch {
		case strings.HasPrefix(line, "Entry:"):
			v, err := parseDecimal(line, "Entry")
			if err != nil {
				return nil, err
			}
			intent.Entry = &v

		case strings.HasPrefix(line, "SL:"):
			v, err := parseDecimal(line, "SL")
			if err != nil {
				return nil, err
			}
			intent.StopLoss = &v

		case strings.HasPrefix(line, "TP"):
			field := line
			if idx := strings.Index(line, ":"); idx > 0 {
				field = line[:idx]
			}
			v, err := parseDecimal(line, field)
			if err != nil {
				return nil, err
			}
			intent.TakeProfits = append(intent.TakeProfits, v)

		case strings.HasPrefix(line, "Leverage:"):
			m := leverageRe.FindStringSubmatch(line)
			if m == nil {
				return nil, fmt.Errorf("%w: Leverage", domain.ErrMalformedField)
			}
			lev, err := strconv.Atoi(m[1])
			if err != nil || lev <= 0 {
				return nil, fmt.Errorf("%w: Leverage", domain.ErrMalformedField)
			}
			intent.Leverage = lev

		case strings.HasPrefix(line, "Quantity:"):
			spec, err := parseQuantity(line)
			if err != nil {
				return nil, err
			}
			intent.Quantity = spec
		}
	}

	applyDefaults(intent)

	return intent, nil
}

// applyDefaults применяет дефолты один раз после парсинга:
// плечо 10x, единственный TP по цене входа, объем 25% от баланса.
func applyDefaults(intent *domain.TradeIntent) {
	if intent.Leverage == 0 {
		intent.Leverage = domain.DefaultLeverage
	}
	if len(intent.TakeProfits) == 0 && intent.Entry != nil {
		intent.TakeProfits = []decimal.Decimal{*intent.Entry}
	}
	if intent.Quantity.Value.IsZero() {
		intent.Quantity = domain.PercentQuantity(decimal.NewFromInt(domain.DefaultQuantityPercent))
	}
}

// parseDecimal извлекает число после двоеточия
func parseDecimal(line, field string) (decimal.Decimal, error) {
	parts := strings.SplitN(line, ":", 2)
	if len(parts) != 2 {
		return decimal.Zero, fmt.Errorf("%w: %s", domain.ErrMalformedField, field)
	}

	v, err := decimal.NewFromString(strings.TrimSpace(parts[1]))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %s", domain.ErrMalformedField, field)
	}

	return v, nil
}

// parseQuantity разбирает значение Quantity: процент ("25%") или
// абсолютное количество ("0.01")
func parseQuantity(line string) (domain.QuantitySpec, error) {
	parts := strings.SplitN(line, ":", 2)
	if len(parts) != 2 {
		return domain.QuantitySpec{}, fmt.Errorf("%w: Quantity", domain.ErrMalformedField)
	}

	value := strings.TrimSpace(parts[1])

	if strings.HasSuffix(value, "%") {
		pct, err := decimal.NewFromString(strings.TrimSpace(strings.TrimSuffix(value, "%")))
		if err != nil {
			return domain.QuantitySpec{}, fmt.Errorf("%w: Quantity", domain.ErrMalformedField)
		}
		if pct.LessThanOrEqual(decimal.Zero) || pct.GreaterThan(decimal.NewFromInt(100)) {
			return domain.QuantitySpec{}, fmt.Errorf("%w: Quantity", domain.ErrMalformedField)
		}
		return domain.PercentQuantity(pct), nil
	}

	qty, err := decimal.NewFromString(value)
	if err != nil || qty.LessThanOrEqual(decimal.Zero) {
		return domain.QuantitySpec{}, fmt.Errorf("%w: Quantity", domain.ErrMalformedField)
	}

	return domain.AbsoluteQuantity(qty), nil
}

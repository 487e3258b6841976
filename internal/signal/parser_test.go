package signal

import (
	"errors"
	"reflect"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/kirillm/signal-bot/internal/domain"
)

const fullSignal = "BTCUSDT (LONG)\nEntry: 50000\nSL: 49000\nTP1: 51000\nTP2: 52000\nLeverage: 5x\nQuantity: 0.01"

func TestParse_FullSignal(t *testing.T) {
	intent, err := Parse(fullSignal)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if intent.Symbol != "BTCUSDT" {
		t.Errorf("Parse() symbol = %v, want BTCUSDT", intent.Symbol)
	}
	if intent.Side != domain.SideBuy {
		t.Errorf("Parse() side = %v, want %v", intent.Side, domain.SideBuy)
	}
	if intent.Entry == nil || !intent.Entry.Equal(decimal.NewFromInt(50000)) {
		t.Errorf("Parse() entry = %v, want 50000", intent.Entry)
	}
	if intent.StopLoss == nil || !intent.StopLoss.Equal(decimal.NewFromInt(49000)) {
		t.Errorf("Parse() stopLoss = %v, want 49000", intent.StopLoss)
	}
	if len(intent.TakeProfits) != 2 ||
		!intent.TakeProfits[0].Equal(decimal.NewFromInt(51000)) ||
		!intent.TakeProfits[1].Equal(decimal.NewFromInt(52000)) {
		t.Errorf("Parse() takeProfits = %v, want [51000 52000]", intent.TakeProfits)
	}
	if intent.Leverage != 5 {
		t.Errorf("Parse() leverage = %v, want 5", intent.Leverage)
	}
	if intent.Quantity.IsPercent || !intent.Quantity.Value.Equal(decimal.RequireFromString("0.01")) {
		t.Errorf("Parse() quantity = %+v, want absolute 0.01", intent.Quantity)
	}
}

func TestParse_Deterministic(t *testing.T) {
	first, err := Parse(fullSignal)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	second, err := Parse(fullSignal)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Errorf("Parse() not deterministic: %+v != %+v", first, second)
	}
}

func TestParse_Short(t *testing.T) {
	intent, err := Parse("ETHUSDT (SHORT)\nEntry: 3000\nSL: 3100")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if intent.Side != domain.SideSell {
		t.Errorf("Parse() side = %v, want %v", intent.Side, domain.SideSell)
	}
}

func TestParse_Defaults(t *testing.T) {
	// Без Leverage, TP и Quantity включаются дефолты:
	// 10x, единственный TP по entry, 25% от баланса
	intent, err := Parse("BTCUSDT (LONG)\nEntry: 50000\nSL: 49000")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if intent.Leverage != 10 {
		t.Errorf("Parse() leverage = %v, want default 10", intent.Leverage)
	}
	if len(intent.TakeProfits) != 1 || !intent.TakeProfits[0].Equal(decimal.NewFromInt(50000)) {
		t.Errorf("Parse() takeProfits = %v, want [entry]", intent.TakeProfits)
	}
	if !intent.Quantity.IsPercent || !intent.Quantity.Value.Equal(decimal.NewFromInt(25)) {
		t.Errorf("Parse() quantity = %+v, want default 25%%", intent.Quantity)
	}
}

func TestParse_PercentQuantity(t *testing.T) {
	intent, err := Parse("BTCUSDT (LONG)\nEntry: 50000\nSL: 49000\nQuantity: 50%")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if !intent.Quantity.IsPercent || !intent.Quantity.Value.Equal(decimal.NewFromInt(50)) {
		t.Errorf("Parse() quantity = %+v, want percent 50", intent.Quantity)
	}
}

func TestParse_MalformedHeader(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"plain text", "hello there"},
		{"no direction", "BTCUSDT\nEntry: 50000"},
		{"bad direction", "BTCUSDT (UP)\nEntry: 50000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.input)
			if !errors.Is(err, domain.ErrMalformedHeader) {
				t.Errorf("Parse() error = %v, want ErrMalformedHeader", err)
			}
		})
	}
}

func TestParse_MalformedFields(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"bad entry", "BTCUSDT (LONG)\nEntry: abc"},
		{"bad stop loss", "BTCUSDT (LONG)\nSL: 12..5"},
		{"bad take profit", "BTCUSDT (LONG)\nTP1: high"},
		{"leverage without x", "BTCUSDT (LONG)\nLeverage: 5"},
		{"bad quantity", "BTCUSDT (LONG)\nQuantity: much"},
		{"percent over 100", "BTCUSDT (LONG)\nQuantity: 150%"},
		{"zero quantity", "BTCUSDT (LONG)\nQuantity: 0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.input)
			if !errors.Is(err, domain.ErrMalformedField) {
				t.Errorf("Parse() error = %v, want ErrMalformedField", err)
			}
		})
	}
}

func TestParse_TPOrderPreserved(t *testing.T) {
	intent, err := Parse("BTCUSDT (LONG)\nEntry: 100\nSL: 90\nTP1: 110\nTP2: 105\nTP3: 120")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	want := []string{"110", "105", "120"}
	if len(intent.TakeProfits) != len(want) {
		t.Fatalf("Parse() takeProfits = %v, want %v entries", intent.TakeProfits, len(want))
	}
	for i, w := range want {
		if intent.TakeProfits[i].String() != w {
			t.Errorf("Parse() takeProfits[%d] = %v, want %v", i, intent.TakeProfits[i], w)
		}
	}
}

func TestParse_IncompleteIntentFailsValidation(t *testing.T) {
	// Заголовок валиден, но Entry/SL нет: парсинг проходит,
	// валидация перед исполнением должна падать
	intent, err := Parse("BTCUSDT (LONG)")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if err := intent.Validate(); !errors.Is(err, domain.ErrIncompleteIntent) {
		t.Errorf("Validate() error = %v, want ErrIncompleteIntent", err)
	}
}

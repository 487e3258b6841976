package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/kirillm/signal-bot/internal/domain"
	"github.com/kirillm/signal-bot/internal/executor"
	"github.com/kirillm/signal-bot/internal/mode"
	"github.com/kirillm/signal-bot/internal/signal"
)

// Chat types из Telegram API
const (
	ChatTypePrivate    = "private"
	ChatTypeGroup      = "group"
	ChatTypeSupergroup = "supergroup"
)

// InboundMessage представляет входящее сообщение чата
type InboundMessage struct {
	ChatID   int64
	ChatType string
	SenderID int64
	Text     string
	Time     time.Time
}

// IsGroup сообщает, пришло ли сообщение из группового чата
func (m InboundMessage) IsGroup() bool {
	return m.ChatType == ChatTypeGroup || m.ChatType == ChatTypeSupergroup
}

// MessageSender отправляет текст в чат
type MessageSender interface {
	Send(chatID int64, text string)
	SendHome(chatID int64)
}

// QuantityResolver резолвит спецификацию объема в количество
type QuantityResolver interface {
	Resolve(ctx context.Context, spec domain.QuantitySpec, symbol string) (decimal.Decimal, error)
}

// TradeExecutor исполняет отрезолвленный сигнал
type TradeExecutor interface {
	Execute(ctx context.Context, intent *domain.TradeIntent, quantity decimal.Decimal, notify executor.Notifier) (*domain.ExecutionReport, error)
}

// notifierFunc адаптирует функцию под executor.Notifier
type notifierFunc func(text string)

func (f notifierFunc) Notify(text string) { f(text) }

// Router диспетчеризует входящие сообщения в торговый пайплайн
// parse -> resolve -> execute в зависимости от режима, отправителя
// и привязки группы. Любая ошибка пайплайна перехватывается здесь
// и превращается в ответ пользователю.
type Router struct {
	ctl      *mode.Controller
	resolver QuantityResolver
	executor TradeExecutor
	sender   MessageSender
	operator int64
	logger   *zap.Logger
}

// NewRouter создает новый роутер
func NewRouter(ctl *mode.Controller, resolver QuantityResolver, ex TradeExecutor, sender MessageSender, operator int64, logger *zap.Logger) *Router {
	return &Router{
		ctl:      ctl,
		resolver: resolver,
		executor: ex,
		sender:   sender,
		operator: operator,
		logger:   logger,
	}
}

// HandleMessage обрабатывает одно входящее сообщение.
// Порядок проверок фиксирован: анти-replay, команды, авторизация режима.
func (r *Router) HandleMessage(ctx context.Context, msg InboundMessage) {
	// Сообщения, отправленные до старта процесса, не переигрываются
	if r.ctl.IsStale(msg.Time) {
		return
	}

	// Команды обрабатываются отдельными хендлерами, здесь не трактуем
	// их как сигнал
	if isCommand(msg.Text) {
		return
	}

	switch r.ctl.Mode() {
	case mode.Signal:
		r.handleSignalMessage(ctx, msg)
	case mode.Manual:
		r.handleManualMessage(ctx, msg)
	}
}

// handleSignalMessage принимает сигнал из привязанной группы.
// Прогресс исполнения уходит оператору в личку, ошибка — в группу.
func (r *Router) handleSignalMessage(ctx context.Context, msg InboundMessage) {
	if !msg.IsGroup() {
		return
	}
	if !r.ctl.AuthorizeGroupSignal(msg.ChatID, msg.SenderID) {
		return
	}

	r.sender.Send(r.operator, fmt.Sprintf("Detected signal: %s", msg.Text))

	if err := r.runPipeline(ctx, msg.Text, r.operator); err != nil {
		r.logger.Warn("signal pipeline failed",
			zap.Int64("chat_id", msg.ChatID),
			zap.Error(err))
		r.sender.Send(msg.ChatID, fmt.Sprintf("Error processing signal: %s", err))
	}
}

// handleManualMessage принимает торговый текст только в личке от оператора
func (r *Router) handleManualMessage(ctx context.Context, msg InboundMessage) {
	if msg.ChatType != ChatTypePrivate || msg.SenderID != r.operator {
		return
	}

	if err := r.runPipeline(ctx, msg.Text, msg.ChatID); err != nil {
		r.logger.Warn("manual pipeline failed",
			zap.Int64("chat_id", msg.ChatID),
			zap.Error(err))
		r.sender.Send(msg.ChatID, fmt.Sprintf("Error executing trade: %s", err))
	}
}

// runPipeline прогоняет текст через parse -> resolve -> execute.
// Текст парсится ровно один раз на сообщение. После прерывания по
// балансу оператор возвращается на домашний экран.
func (r *Router) runPipeline(ctx context.Context, text string, notifyChatID int64) error {
	intent, err := signal.Parse(text)
	if err != nil {
		return err
	}

	quantity, err := r.resolver.Resolve(ctx, intent.Quantity, intent.Symbol)
	if err != nil {
		return err
	}

	notify := notifierFunc(func(text string) {
		r.sender.Send(notifyChatID, text)
	})

	report, err := r.executor.Execute(ctx, intent, quantity, notify)
	if err != nil {
		if errors.Is(err, domain.ErrInsufficientBalance) {
			r.sender.SendHome(r.operator)
		}
		return err
	}

	for _, outcome := range report.Outcomes {
		if errors.Is(outcome.Err, domain.ErrInsufficientBalance) {
			r.sender.SendHome(r.operator)
			break
		}
	}

	return nil
}

// isCommand проверяет, что текст является командой бота
func isCommand(text string) bool {
	text = strings.TrimSpace(text)
	return strings.HasPrefix(text, "/start") ||
		strings.HasPrefix(text, "/exitmode") ||
		strings.HasPrefix(text, "/history") ||
		strings.HasPrefix(text, "/help")
}

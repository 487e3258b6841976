package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/kirillm/signal-bot/internal/domain"
	"github.com/kirillm/signal-bot/internal/mode"
)

const welcomeText = "Welcome to the Automated Trading Bot! Choose your mode:"

const homeText = "Redirecting to home. Ignore this message if you want Signal mode to keep running in group. Please choose your mode:"

const helpText = `Available Commands:
/start - Start the bot and choose a mode
/exitmode - Exit the current mode and return to the home screen
/history [symbol] - Show recent placed orders
/help - Display this help message`

// HistoryProvider отдает последние записи журнала сделок
type HistoryProvider interface {
	GetRecent(symbol string, limit int) ([]domain.TradeRecord, error)
	GetAllRecent(limit int) ([]domain.TradeRecord, error)
}

// Bot связывает Telegram транспорт с контроллером режима и роутером.
// Апдейты обрабатываются строго по одному: торговый пайплайн никогда
// не выполняется конкурентно с мутацией режима.
type Bot struct {
	api      *tgbotapi.BotAPI
	ctl      *mode.Controller
	router   *Router
	history  HistoryProvider
	operator int64
	logger   *zap.Logger
}

// NewBot создает бота и его роутер
func NewBot(token string, operator int64, ctl *mode.Controller, resolver QuantityResolver, ex TradeExecutor, history HistoryProvider, logger *zap.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	logger.Info("telegram bot authorized", zap.String("username", api.Self.UserName))

	b := &Bot{
		api:      api,
		ctl:      ctl,
		history:  history,
		operator: operator,
		logger:   logger,
	}
	b.router = NewRouter(ctl, resolver, ex, b, operator, logger)

	return b, nil
}

// Start запускает обработку сообщений
func (b *Bot) Start() {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	for update := range updates {
		switch {
		case update.CallbackQuery != nil:
			b.handleCallbackQuery(update.CallbackQuery)
		case update.Message != nil:
			b.handleMessage(update.Message)
		}
	}
}

// Stop останавливает получение апдейтов
func (b *Bot) Stop() {
	b.api.StopReceivingUpdates()
}

// handleMessage обрабатывает входящее сообщение
func (b *Bot) handleMessage(message *tgbotapi.Message) {
	if message.From == nil {
		return
	}

	// Накопившиеся до старта апдейты не переигрываем
	if b.ctl.IsStale(message.Time()) {
		return
	}

	if message.IsCommand() {
		b.handleCommand(message)
		return
	}

	b.router.HandleMessage(context.Background(), InboundMessage{
		ChatID:   message.Chat.ID,
		ChatType: message.Chat.Type,
		SenderID: message.From.ID,
		Text:     message.Text,
		Time:     message.Time(),
	})
}

// handleCommand обрабатывает команды
func (b *Bot) handleCommand(message *tgbotapi.Message) {
	switch message.Command() {
	case "start":
		b.handleStart(message)
	case "exitmode":
		b.handleExitMode()
	case "history":
		b.handleHistory(message)
	case "help":
		b.Send(message.Chat.ID, helpText)
	}
}

// handleHistory показывает последние размещенные ордера, опционально
// ограничиваясь символом из аргумента команды
func (b *Bot) handleHistory(message *tgbotapi.Message) {
	if message.From.ID != b.operator {
		return
	}

	const historyLimit = 10

	var (
		records []domain.TradeRecord
		err     error
	)

	symbol := strings.ToUpper(strings.TrimSpace(message.CommandArguments()))
	if symbol != "" {
		records, err = b.history.GetRecent(symbol, historyLimit)
	} else {
		records, err = b.history.GetAllRecent(historyLimit)
	}
	if err != nil {
		b.logger.Error("failed to load trade history", zap.Error(err))
		b.Send(message.Chat.ID, fmt.Sprintf("Failed to load trade history: %s", err))
		return
	}

	if len(records) == 0 {
		b.Send(message.Chat.ID, "No trades recorded yet.")
		return
	}

	var sb strings.Builder
	sb.WriteString("Recent trades:\n")
	for _, record := range records {
		fmt.Fprintf(&sb, "%s | %s %s qty %s @ %s\n",
			record.CreatedAt.Format("2006-01-02 15:04"),
			record.Side,
			record.Symbol,
			record.Quantity.String(),
			record.Price.String())
	}

	b.Send(message.Chat.ID, sb.String())
}

// handleStart включает Signal режим в группе либо показывает выбор
// режима в личке
func (b *Bot) handleStart(message *tgbotapi.Message) {
	chatID := message.Chat.ID

	if message.Chat.IsGroup() || message.Chat.IsSuperGroup() {
		if message.From.ID != b.operator {
			b.Send(chatID, fmt.Sprintf("You do not have permission to control this bot. Your id is %d", message.From.ID))
			return
		}

		// Группа привязывается к оператору, выдавшему команду
		b.ctl.StartInGroup(chatID, message.From.ID)
		b.Send(chatID, "Signal mode enabled.")
		b.Send(b.operator, fmt.Sprintf("Signal mode enabled for group: %s", message.Chat.Title))
		return
	}

	b.sendModeChoice(chatID, welcomeText)
}

// handleExitMode безусловно сбрасывает режим и возвращает оператора
// на домашний экран
func (b *Bot) handleExitMode() {
	b.ctl.Exit()
	b.SendHome(b.operator)
}

// handleCallbackQuery обрабатывает выбор режима и выбор группы
// с inline клавиатур
func (b *Bot) handleCallbackQuery(query *tgbotapi.CallbackQuery) {
	// Убираем "часики" на кнопке
	if _, err := b.api.Request(tgbotapi.NewCallback(query.ID, "")); err != nil {
		b.logger.Warn("failed to answer callback", zap.Error(err))
	}

	// Кнопки управляют режимом процесса, реагируем только на оператора
	if query.From == nil || query.From.ID != b.operator || query.Message == nil {
		return
	}

	chatID := query.Message.Chat.ID
	messageID := query.Message.MessageID

	switch {
	case query.Data == "manual":
		b.ctl.SetMode(mode.Manual)
		b.editMessage(chatID, messageID, "Manual Mode activated.")

	case query.Data == "signal":
		b.ctl.SetMode(mode.Signal)
		b.editMessage(chatID, messageID, "Signal Mode activated. Scanning for groups...")
		b.offerGroups()

	case strings.HasPrefix(query.Data, "group_"):
		b.handleGroupSelection(strings.TrimPrefix(query.Data, "group_"))
	}
}

// offerGroups показывает оператору клавиатуру с найденными группами
func (b *Bot) offerGroups() {
	groups, err := b.discoverGroups()
	if err != nil {
		b.logger.Error("group discovery failed", zap.Error(err))
		b.Send(b.operator, fmt.Sprintf("Failed to scan for groups: %s", err))
		return
	}

	if len(groups) == 0 {
		b.Send(b.operator, "No groups found. Please add the bot to a group first. If this is a false report, run the command /start in the group I missed")
		return
	}

	var rows [][]tgbotapi.InlineKeyboardButton
	for _, group := range groups {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(group.title, fmt.Sprintf("group_%d", group.id)),
		))
	}

	msg := tgbotapi.NewMessage(b.operator, "Select the groups to listen to signals from (you can select multiple):")
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("failed to send group keyboard", zap.Error(err))
	}
}

// handleGroupSelection привязывает выбранную группу с ее admin identity
func (b *Bot) handleGroupSelection(rawID string) {
	groupID, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		b.logger.Warn("bad group callback data", zap.String("data", rawID))
		return
	}

	adminID, err := b.resolveGroupAdmin(groupID)
	if err != nil {
		b.Send(b.operator, fmt.Sprintf("Failed to resolve admin for group %d: %s", groupID, err))
		return
	}

	if !b.ctl.BindGroup(groupID, adminID) {
		b.Send(b.operator, fmt.Sprintf("Group (ID: %d) is already selected.", groupID))
		return
	}

	b.Send(b.operator, fmt.Sprintf("Group (ID: %d) selected.", groupID))
}

type groupInfo struct {
	id    int64
	title string
}

// discoverGroups возвращает групповые чаты, замеченные ботом в апдейтах
func (b *Bot) discoverGroups() ([]groupInfo, error) {
	updates, err := b.api.GetUpdates(tgbotapi.NewUpdate(0))
	if err != nil {
		return nil, fmt.Errorf("failed to get updates: %w", err)
	}

	seen := make(map[int64]bool)
	var groups []groupInfo

	for _, update := range updates {
		if update.Message == nil {
			continue
		}
		chat := update.Message.Chat
		if chat == nil || (!chat.IsGroup() && !chat.IsSuperGroup()) {
			continue
		}
		if seen[chat.ID] {
			continue
		}
		seen[chat.ID] = true
		groups = append(groups, groupInfo{id: chat.ID, title: chat.Title})
	}

	return groups, nil
}

// resolveGroupAdmin возвращает identity, которой доверяются сигналы
// группы: создатель чата, либо первый из админов
func (b *Bot) resolveGroupAdmin(groupID int64) (int64, error) {
	admins, err := b.api.GetChatAdministrators(tgbotapi.ChatAdministratorsConfig{
		ChatConfig: tgbotapi.ChatConfig{ChatID: groupID},
	})
	if err != nil {
		return 0, fmt.Errorf("failed to get chat administrators: %w", err)
	}
	if len(admins) == 0 {
		return 0, fmt.Errorf("group %d has no administrators", groupID)
	}

	for _, admin := range admins {
		if admin.Status == "creator" && admin.User != nil {
			return admin.User.ID, nil
		}
	}

	if admins[0].User == nil {
		return 0, fmt.Errorf("group %d administrator has no user", groupID)
	}
	return admins[0].User.ID, nil
}

// sendModeChoice отправляет экран выбора режима
func (b *Bot) sendModeChoice(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Manual Mode", "manual"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Signal Mode", "signal"),
		),
	)
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("failed to send mode keyboard", zap.Error(err))
	}
}

// SendHome возвращает пользователя на домашний экран выбора режима
func (b *Bot) SendHome(chatID int64) {
	b.sendModeChoice(chatID, homeText)
}

// Send отправляет сообщение, разбивая длинный текст на части
func (b *Bot) Send(chatID int64, text string) {
	const maxLength = 4096

	for _, part := range splitMessage(text, maxLength) {
		msg := tgbotapi.NewMessage(chatID, part)
		if _, err := b.api.Send(msg); err != nil {
			b.logger.Error("failed to send telegram message",
				zap.Int64("chat_id", chatID),
				zap.Error(err))
		}
	}
}

// editMessage редактирует ранее отправленное сообщение
func (b *Bot) editMessage(chatID int64, messageID int, text string) {
	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	if _, err := b.api.Send(edit); err != nil {
		b.logger.Error("failed to edit telegram message", zap.Error(err))
	}
}

// splitMessage разбивает длинное сообщение на части
func splitMessage(text string, maxLength int) []string {
	if len(text) <= maxLength {
		return []string{text}
	}

	var messages []string
	lines := strings.Split(text, "\n")
	currentMessage := ""

	for _, line := range lines {
		if len(currentMessage)+len(line)+1 > maxLength {
			messages = append(messages, currentMessage)
			currentMessage = line
		} else {
			if currentMessage != "" {
				currentMessage += "\n"
			}
			currentMessage += line
		}
	}

	if currentMessage != "" {
		messages = append(messages, currentMessage)
	}

	return messages
}

package telegram

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/camuig/autotrader/internal/config"
	"github.com/camuig/autotrader/internal/logger"
	"github.com/camuig/autotrader/internal/storage"
)

type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type Notifier struct {
	bot     sender
	chatID  int64
	enabled bool
	mode    string
	logger  *logger.Logger
}

func NewNotifier(cfg *config.Config, log *logger.Logger) *Notifier {
	log = log.Component("telegram")
	if !cfg.Telegram.Enabled {
		return &Notifier{enabled: false, logger: log}
	}

	bot, err := tgbotapi.NewBotAPI(cfg.Telegram.BotToken)
	if err != nil {
		log.Error("failed to create telegram bot", "error", err)
		return &Notifier{enabled: false, logger: log}
	}

	log.Info("telegram bot connected", "username", bot.Self.UserName)

	return &Notifier{
		bot:     bot,
		chatID:  cfg.Telegram.ChatID,
		enabled: true,
		mode:    cfg.Mode(),
		logger:  log,
	}
}

// Disabled returns a notifier that drops every message.
func Disabled() *Notifier {
	return &Notifier{logger: logger.Nop()}
}

func (n *Notifier) NotifyOrder(t *storage.Trade) {
	emoji := "🟢"
	if t.Side == "sell" {
		emoji = "🔴"
	}
	msg := fmt.Sprintf("%s *%s* %s\nQty: %g\nType: %s\nStatus: %s",
		emoji, strings.ToUpper(t.Side), t.Symbol, t.Quantity, t.OrderType, t.Status)
	if t.FilledPrice > 0 {
		msg += fmt.Sprintf("\nFilled: %g @ %.2f", t.FilledQty, t.FilledPrice)
	}
	if t.StopLossPrice > 0 || t.TakeProfitPrice > 0 {
		msg += fmt.Sprintf("\nSL: %.2f\nTP: %.2f", t.StopLossPrice, t.TakeProfitPrice)
	}
	n.send(msg)
}

func (n *Notifier) NotifyError(context string, err error) {
	msg := fmt.Sprintf("⚠️ *Error* [%s]\n%v", context, err)
	n.send(msg)
}

// NotifyRun reports a finished run. Skipped runs are not sent.
func (n *Notifier) NotifyRun(run *storage.RunLogEntry) {
	if run.Outcome == storage.OutcomeSkipped {
		return
	}

	emoji := map[string]string{
		storage.OutcomeSuccess:    "✅",
		storage.OutcomeNoTrades:   "💤",
		storage.OutcomeNoResponse: "📭",
		storage.OutcomeError:      "❌",
	}[run.Outcome]

	msg := fmt.Sprintf("%s *Run* %s\nOutcome: %s\nRecommended: %d / Approved: %d / Executed: %d\nDuration: %dms",
		emoji, run.ID, run.Outcome, run.Recommended, run.Approved, run.Executed, run.DurationMs)
	if run.Message != "" {
		msg += "\n" + run.Message
	}
	n.send(msg)
}

func (n *Notifier) NotifyKillSwitch(active bool, reason, actor string) {
	msg := fmt.Sprintf("🟩 *Kill switch cleared* by %s", actor)
	if active {
		msg = fmt.Sprintf("⛔ *Kill switch ACTIVE* by %s\n%s", actor, reason)
	}
	n.send(msg)
}

func (n *Notifier) NotifyStatus(message string) {
	if n.mode != "" {
		message = fmt.Sprintf("%s (%s)", message, n.mode)
	}
	n.send(message)
}

func (n *Notifier) send(text string) {
	if !n.enabled {
		return
	}

	msg := tgbotapi.NewMessage(n.chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown

	if _, err := n.bot.Send(msg); err != nil {
		n.logger.Error("send telegram message", "error", err)
	}
}

package telegram

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/selivandex/market-reporter/pkg/logger"
	"github.com/selivandex/market-reporter/pkg/models"
	"github.com/selivandex/market-reporter/pkg/templates"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// maxMessageLen is the Telegram text limit
const maxMessageLen = 4096

// sender is the subset of tgbotapi.BotAPI used here
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Notifier posts new reports and failed runs to one chat
type Notifier struct {
	api       sender
	templates templates.Renderer
	chatID    int64
}

// NewNotifier creates new Telegram notifier
func NewNotifier(botToken string, chatID int64) (*Notifier, error) {
	if botToken == "" {
		return nil, fmt.Errorf("telegram bot token is required")
	}

	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot API: %w", err)
	}

	bot.Debug = false

	logger.Info("telegram notifier initialized",
		zap.String("bot_username", bot.Self.UserName),
		zap.Int64("chat_id", chatID),
	)

	return newNotifier(bot, chatID)
}

func newNotifier(api sender, chatID int64) (*Notifier, error) {
	sub, err := fs.Sub(templateFS, "templates")
	if err != nil {
		return nil, err
	}
	tm, err := templates.NewManagerWithValidation(sub, "telegram templates", []string{"main_report.tmpl", "run_failed.tmpl"})
	if err != nil {
		return nil, err
	}
	return &Notifier{api: api, templates: tm, chatID: chatID}, nil
}

// PublishReport announces a freshly stored report. accuracy may be nil.
func (n *Notifier) PublishReport(ctx context.Context, report *models.MainReport, accuracy *models.AccuracyRecord) error {
	data := map[string]interface{}{
		"Report":   report,
		"Accuracy": accuracy,
		"ReportID": report.ID,
		"Time":     report.CreatedAt.Format("2006-01-02 15:04 MST"),
	}

	msg, err := n.templates.ExecuteTemplate("main_report.tmpl", data)
	if err != nil {
		return err
	}

	return n.sendMessage(msg)
}

// PublishFailure reports a failed pipeline run
func (n *Notifier) PublishFailure(ctx context.Context, runID, state string, runErr error) error {
	data := map[string]interface{}{
		"RunID": runID,
		"State": state,
		"Error": runErr,
		"Time":  time.Now().Format("15:04:05"),
	}

	msg, err := n.templates.ExecuteTemplate("run_failed.tmpl", data)
	if err != nil {
		return err
	}

	return n.sendMessage(msg)
}

func (n *Notifier) sendMessage(text string) error {
	if len(text) > maxMessageLen {
		text = text[:maxMessageLen-3] + "..."
	}

	msg := tgbotapi.NewMessage(n.chatID, text)
	msg.DisableWebPagePreview = true

	if _, err := n.api.Send(msg); err != nil {
		logger.Error("failed to send telegram message",
			zap.Int64("chat_id", n.chatID),
			zap.Error(err),
		)
		return err
	}

	return nil
}

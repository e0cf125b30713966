package reminder

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/slack-go/slack"
)

// webhookTimeout bounds a single Slack webhook call.
const webhookTimeout = 10 * time.Second

// formatReminders renders reminders as a short message, one line per deck.
func formatReminders(reminders []Reminder) string {
	var b strings.Builder
	b.WriteString("Cards due for review:")
	for _, r := range reminders {
		name := r.DeckTitle
		if name == "" {
			name = r.DeckID
		}
		fmt.Fprintf(&b, "\n- %s: %d", name, r.DueCount)
	}
	return b.String()
}

// TelegramNotifier sends reminders to one Telegram chat through a bot.
type TelegramNotifier struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

// NewTelegramNotifier authenticates the bot token against the Telegram API.
func NewTelegramNotifier(token string, chatID int64) (*TelegramNotifier, error) {
	return NewTelegramNotifierWithEndpoint(token, tgbotapi.APIEndpoint, chatID)
}

// NewTelegramNotifierWithEndpoint is NewTelegramNotifier against a custom
// Bot API endpoint, a format string taking the token and the method name.
func NewTelegramNotifierWithEndpoint(token, endpoint string, chatID int64) (*TelegramNotifier, error) {
	if token == "" {
		return nil, errors.New("telegram token cannot be empty")
	}
	if chatID == 0 {
		return nil, errors.New("telegram chat id cannot be zero")
	}

	bot, err := tgbotapi.NewBotAPIWithClient(token, endpoint, &http.Client{Timeout: webhookTimeout})
	if err != nil {
		return nil, fmt.Errorf("failed to authenticate telegram bot: %w", err)
	}
	return &TelegramNotifier{bot: bot, chatID: chatID}, nil
}

// Notify implements Notifier.
func (n *TelegramNotifier) Notify(ctx context.Context, reminders []Reminder) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := n.bot.Send(tgbotapi.NewMessage(n.chatID, formatReminders(reminders))); err != nil {
		return fmt.Errorf("failed to send telegram reminder: %w", err)
	}
	return nil
}

// SlackNotifier posts reminders to a Slack incoming webhook.
type SlackNotifier struct {
	webhookURL string
	client     *http.Client
}

// NewSlackNotifier creates a SlackNotifier.
func NewSlackNotifier(webhookURL string) (*SlackNotifier, error) {
	if webhookURL == "" {
		return nil, errors.New("slack webhook url cannot be empty")
	}
	return &SlackNotifier{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: webhookTimeout},
	}, nil
}

// Notify implements Notifier.
func (n *SlackNotifier) Notify(ctx context.Context, reminders []Reminder) error {
	msg := &slack.WebhookMessage{Text: formatReminders(reminders)}
	if err := slack.PostWebhookCustomHTTPContext(ctx, n.webhookURL, n.client, msg); err != nil {
		return fmt.Errorf("failed to post slack reminder: %w", err)
	}
	return nil
}

// MultiNotifier hands reminders to every notifier in turn. One failing
// notifier does not stop the others; the failures are joined.
type MultiNotifier []Notifier

// Notify implements Notifier.
func (m MultiNotifier) Notify(ctx context.Context, reminders []Reminder) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, reminders); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

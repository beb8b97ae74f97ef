// Package telegram pushes appraisal digests and service-health notices via
// the Telegram Bot API.
package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/intellifone/appraisal/internal/models"
)

// Client handles Telegram notifications.
type Client struct {
	bot            *tgbotapi.BotAPI
	chatID         int64
	maxRetries     int
	retryDelayBase time.Duration
}

// Notice summarizes one completed appraisal for the notification channel.
type Notice struct {
	RequestID      string
	Brand          string
	Model          string
	ConditionScore float64
	Range          models.PriceRange
	Fused          models.FusedFlags
	CompletedAt    time.Time
}

// NewClient creates a new Telegram client.
func NewClient(botToken, chatID string, maxRetries int, retryDelayBase time.Duration) (*Client, error) {
	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}

	chatIDInt, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid chat ID: %w", err)
	}

	if maxRetries <= 0 {
		maxRetries = 3
	}
	if retryDelayBase <= 0 {
		retryDelayBase = time.Second
	}

	return &Client{
		bot:            bot,
		chatID:         chatIDInt,
		maxRetries:     maxRetries,
		retryDelayBase: retryDelayBase,
	}, nil
}

// ListenForCommands starts a goroutine that polls for Telegram updates and handles bot commands.
// It returns immediately; the goroutine stops when ctx is cancelled.
func (c *Client) ListenForCommands(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := c.bot.GetUpdatesChan(u)

	go func() {
		for {
			select {
			case <-ctx.Done():
				c.bot.StopReceivingUpdates()
				return
			case update, ok := <-updates:
				if !ok {
					return
				}
				if update.Message != nil && update.Message.IsCommand() {
					c.handleCommand(update.Message)
				}
			}
		}
	}()
}

func (c *Client) handleCommand(msg *tgbotapi.Message) {
	switch msg.Command() {
	case "ping":
		reply := tgbotapi.NewMessage(msg.Chat.ID, "Pong")
		c.bot.Send(reply) //nolint:errcheck
	}
}

// sendMarkdownV2 sends a MarkdownV2 message with linear-backoff retry.
func (c *Client) sendMarkdownV2(text string) error {
	msg := tgbotapi.NewMessage(c.chatID, text)
	msg.ParseMode = "MarkdownV2"

	var lastErr error
	for i := 0; i < c.maxRetries; i++ {
		if _, err := c.bot.Send(msg); err == nil {
			return nil
		} else {
			lastErr = err
		}
		time.Sleep(c.retryDelayBase * time.Duration(i+1))
	}
	return fmt.Errorf("failed after %d retries: %w", c.maxRetries, lastErr)
}

// SendError sends a service error notification.
// Call this only on the first occurrence of a consecutive error sequence.
func (c *Client) SendError(svcErr error) error {
	text := fmt.Sprintf("⚠️ *Appraisal error*\n`%s`", escapeMarkdownV2(svcErr.Error()))
	return c.sendMarkdownV2(text)
}

// SendRecovery sends a recovery notification after consecutive failures.
func (c *Client) SendRecovery(failureCount int) error {
	text := fmt.Sprintf("✅ *Appraisal service recovered* after %d consecutive failure\\(s\\)", failureCount)
	return c.sendMarkdownV2(text)
}

// SendAppraisal sends a completed-appraisal digest.
func (c *Client) SendAppraisal(n Notice) error {
	return c.sendMarkdownV2(formatNotice(n))
}

// formatNotice formats an appraisal into a Telegram MarkdownV2 message.
func formatNotice(n Notice) string {
	device := strings.TrimSpace(n.Brand + " " + n.Model)

	message := "📱 *Appraisal completed*\n\n"
	message += fmt.Sprintf("🔖 %s\n", escapeMarkdownV2(device))
	if !n.CompletedAt.IsZero() {
		message += fmt.Sprintf("📅 %s\n", escapeMarkdownV2(n.CompletedAt.Format("2006-01-02 15:04:05")))
	}
	message += fmt.Sprintf("🩺 Condition: %s / 20\n", escapeMarkdownV2(fmt.Sprintf("%.2f", n.ConditionScore)))
	message += fmt.Sprintf("💰 Range: %s – %s\n", formatPrice(n.Range.MinPrice), formatPrice(n.Range.MaxPrice))

	if issues := fusedIssues(n.Fused); len(issues) > 0 {
		message += fmt.Sprintf("⚠️ Issues: %s\n", escapeMarkdownV2(strings.Join(issues, ", ")))
	}
	if n.RequestID != "" {
		message += fmt.Sprintf("\n`%s`", escapeMarkdownV2(n.RequestID))
	}
	return message
}

func fusedIssues(f models.FusedFlags) []string {
	var issues []string
	if f.ScreenCrack {
		issues = append(issues, "screen crack")
	}
	if f.PanelDot {
		issues = append(issues, "panel dot")
	}
	if f.PanelLine {
		issues = append(issues, "panel line")
	}
	if f.PanelShade {
		issues = append(issues, "panel shade")
	}
	if f.IsPanelChanged {
		issues = append(issues, "panel changed")
	}
	if !f.CameraLensOK {
		issues = append(issues, "camera lens damaged")
	}
	if !f.FingerprintOK {
		issues = append(issues, "fingerprint faulty")
	}
	if !f.PTAApproved {
		issues = append(issues, "not PTA approved")
	}
	return issues
}

func formatPrice(v int) string {
	return escapeMarkdownV2(fmt.Sprintf("Rs %d", v))
}

// escapeMarkdownV2 escapes special characters for Telegram MarkdownV2.
func escapeMarkdownV2(text string) string {
	var b strings.Builder
	b.Grow(len(text) + len(text)/4) // pre-allocate with room for escapes
	for _, char := range text {
		switch char {
		case '_', '*', '[', ']', '(', ')', '~', '`', '>', '#', '+', '-', '=', '|', '{', '}', '.', '!':
			b.WriteByte('\\')
		}
		b.WriteRune(char)
	}
	return b.String()
}

package telegram

import (
	"errors"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Notifier defines the interface for a Telegram notifier.
type Notifier interface {
	// SendMessage sends text to every configured chat.
	SendMessage(text string) error
	SendMessageTo(chatID int64, text string) error
}

// Client is a Telegram bot client bound to a set of chats.
type Client struct {
	bot     *tgbotapi.BotAPI
	chatIDs []int64
}

// NewClient creates a new Telegram client.
func NewClient(botToken string, chatIDs []int64) (*Client, error) {
	return NewClientWithEndpoint(botToken, tgbotapi.APIEndpoint, chatIDs)
}

// NewClientWithEndpoint creates a client against a custom Bot API endpoint
// ("https://host/bot%s/%s").
func NewClientWithEndpoint(botToken, endpoint string, chatIDs []int64) (*Client, error) {
	bot, err := tgbotapi.NewBotAPIWithAPIEndpoint(botToken, endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	return &Client{
		bot:     bot,
		chatIDs: append([]int64(nil), chatIDs...),
	}, nil
}

// ChatIDs returns the configured chats.
func (c *Client) ChatIDs() []int64 {
	return append([]int64(nil), c.chatIDs...)
}

// SendMessage sends the message to every configured chat. A failing chat does
// not stop delivery to the others.
func (c *Client) SendMessage(text string) error {
	var errs []error
	for _, chatID := range c.chatIDs {
		if err := c.SendMessageTo(chatID, text); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// SendMessageTo sends a Markdown message to one chat.
func (c *Client) SendMessageTo(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.DisableWebPagePreview = true
	if _, err := c.bot.Send(msg); err != nil {
		return fmt.Errorf("failed to send telegram message to %d: %w", chatID, err)
	}
	return nil
}

// Updates starts long polling for incoming messages.
func (c *Client) Updates(timeoutSeconds int) tgbotapi.UpdatesChannel {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = timeoutSeconds
	return c.bot.GetUpdatesChan(u)
}

// StopUpdates stops long polling and closes the updates channel.
func (c *Client) StopUpdates() {
	c.bot.StopReceivingUpdates()
}

package notify

import (
	"context"
	"fmt"
	"sort"
	"strings"

	tgbotapi "github.com/OvyFlash/telegram-bot-api"
)

// TelegramSink posts messages to one staff chat.
type TelegramSink struct {
	api    *tgbotapi.BotAPI
	chatID int64
}

func NewTelegramSink(token string, chatID int64) (*TelegramSink, error) {
	if token == "" {
		return nil, fmt.Errorf("telegram bot token is empty")
	}
	if chatID == 0 {
		return nil, fmt.Errorf("telegram chat id is empty")
	}
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram bot init: %w", err)
	}
	return &TelegramSink{api: api, chatID: chatID}, nil
}

func (s *TelegramSink) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	out := tgbotapi.NewMessage(s.chatID, FormatText(msg))
	_, err := s.api.Send(out)
	return err
}

// FormatText renders msg as plain text with fields sorted by key.
func FormatText(msg Message) string {
	var b strings.Builder
	if msg.Title != "" {
		b.WriteString(msg.Title)
		b.WriteString("\n")
	}
	if msg.Text != "" {
		b.WriteString(msg.Text)
		b.WriteString("\n")
	}
	keys := make([]string, 0, len(msg.Fields))
	for k := range msg.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "%s: %s\n", k, msg.Fields[k])
	}
	return strings.TrimRight(b.String(), "\n")
}

package notifier

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultTelegramAPI = "https://api.telegram.org"

// Telegram pushes trade events to a chat or channel.
type Telegram struct {
	BotToken string
	ChatID   string
	Client   *http.Client

	// APIBase overrides the Telegram endpoint (tests point it at a local
	// server). Empty means the public API.
	APIBase string

	// MaxAttempts and RetryWait bound the delivery retries; the wait doubles
	// after each failed attempt. Defaults: 3 attempts starting at 1s.
	MaxAttempts int
	RetryWait   time.Duration
}

func NewTelegram(botToken, chatID string) *Telegram {
	return &Telegram{BotToken: botToken, ChatID: chatID, Client: &http.Client{Timeout: 15 * time.Second}}
}

// SendText delivers one message. Trade notifications carry raw prices and
// symbols, so the text is sent unformatted rather than as Markdown.
func (t *Telegram) SendText(text string) error {
	if t.BotToken == "" || t.ChatID == "" {
		return fmt.Errorf("telegram notifier is not configured")
	}
	base := t.APIBase
	if base == "" {
		base = defaultTelegramAPI
	}
	attempts := t.MaxAttempts
	if attempts <= 0 {
		attempts = 3
	}
	wait := t.RetryWait
	if wait <= 0 {
		wait = time.Second
	}
	url := fmt.Sprintf("%s/bot%s/sendMessage", base, t.BotToken)

	payload := map[string]any{
		"chat_id":                  t.ChatID,
		"text":                     text,
		"disable_web_page_preview": true,
	}
	body, _ := json.Marshal(payload)

	var lastErr error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			time.Sleep(wait)
			wait *= 2
		}
		req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		resp, err := t.Client.Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		if resp.StatusCode/100 == 2 {
			return nil
		}
		lastErr = fmt.Errorf("telegram status=%d", resp.StatusCode)
	}
	return lastErr
}

package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// MaxMessageLen is the safe Telegram message size; longer texts are
// chunked on line boundaries before sending.
const MaxMessageLen = 4000

// Sender delivers a formatted text to one destination chat.
type Sender interface {
	SendTo(ctx context.Context, chatID, text string) error
}

// TelegramNotifier sends messages via the Telegram Bot API.
type TelegramNotifier struct {
	BotToken string
	Client   *http.Client
}

// NewTelegramNotifier creates a notifier with optional proxy support.
func NewTelegramNotifier(botToken, proxyURL string) *TelegramNotifier {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &TelegramNotifier{
		BotToken: botToken,
		Client: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		},
	}
}

// SendTo sends a message to the given chat, splitting it into chunks
// when it exceeds the Telegram size limit.
func (t *TelegramNotifier) SendTo(ctx context.Context, chatID, text string) error {
	for _, chunk := range SplitMessage(text, MaxMessageLen) {
		if err := t.sendOne(ctx, chatID, chunk); err != nil {
			return err
		}
	}
	return nil
}

func (t *TelegramNotifier) sendOne(ctx context.Context, chatID, text string) error {
	apiURL := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", t.BotToken)
	payload := map[string]string{
		"chat_id":    chatID,
		"text":       text,
		"parse_mode": "HTML",
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, "POST", apiURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.Client.Do(req)
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("telegram API error: status %d, body: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

// SendToWithRetry sends a message with exponential backoff retry.
func (t *TelegramNotifier) SendToWithRetry(ctx context.Context, chatID, text string, maxRetries int) error {
	var lastErr error
	for i := 0; i <= maxRetries; i++ {
		if err := t.SendTo(ctx, chatID, text); err != nil {
			lastErr = err
			backoff := time.Duration(1<<uint(i)) * time.Second
			log.Printf("[WARN] Telegram send to %s failed (attempt %d/%d): %v, retrying in %v",
				chatID, i+1, maxRetries+1, err, backoff)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
				continue
			}
		}
		return nil
	}
	return fmt.Errorf("all %d retries exhausted: %w", maxRetries+1, lastErr)
}

// Broadcast delivers text to every chat id, never letting one failure
// abort delivery to the rest. Returns sent and failed counts.
func Broadcast(ctx context.Context, s Sender, chatIDs []string, text string) (sent, failed int) {
	for _, id := range chatIDs {
		if err := s.SendTo(ctx, id, text); err != nil {
			log.Printf("[ERROR] broadcast to %s: %v", id, err)
			failed++
			continue
		}
		sent++
	}
	return sent, failed
}

// BroadcastWithRetry is Broadcast with per-recipient retries when the
// sender supports them. Used for the daily report, where a transient
// Telegram error should not cost a subscriber their report.
func BroadcastWithRetry(ctx context.Context, s Sender, chatIDs []string, text string, maxRetries int) (sent, failed int) {
	type retrier interface {
		SendToWithRetry(ctx context.Context, chatID, text string, maxRetries int) error
	}
	r, ok := s.(retrier)
	if !ok {
		return Broadcast(ctx, s, chatIDs, text)
	}
	for _, id := range chatIDs {
		if err := r.SendToWithRetry(ctx, id, text, maxRetries); err != nil {
			log.Printf("[ERROR] broadcast to %s: %v", id, err)
			failed++
			continue
		}
		sent++
	}
	return sent, failed
}

// SplitMessage splits text into chunks of at most limit runes,
// breaking on line boundaries so formatting tokens stay intact.
func SplitMessage(text string, limit int) []string {
	if len([]rune(text)) <= limit {
		return []string{text}
	}

	var chunks []string
	lines := strings.Split(text, "\n")
	var b strings.Builder
	length := 0

	flush := func() {
		if length > 0 {
			chunks = append(chunks, strings.TrimSuffix(b.String(), "\n"))
			b.Reset()
			length = 0
		}
	}

	for _, line := range lines {
		runes := len([]rune(line)) + 1
		if length+runes > limit && length > 0 {
			flush()
		}
		// A single oversized line is cut hard as a last resort.
		for len([]rune(line)) > limit {
			r := []rune(line)
			chunks = append(chunks, string(r[:limit]))
			line = string(r[limit:])
		}
		b.WriteString(line)
		b.WriteString("\n")
		length += runes
	}
	flush()
	return chunks
}

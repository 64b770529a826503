// Package notifier delivers qualified signals to their destinations.
package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/whph710/Final-Trade-Bot-sub000/config"
	"github.com/whph710/Final-Trade-Bot-sub000/internal/analysis"
	"github.com/whph710/Final-Trade-Bot-sub000/internal/signal"
)

// Notifier delivers a single signal. Implementations must be safe for
// concurrent use.
type Notifier interface {
	Notify(ctx context.Context, sig *signal.Signal) error
}

// FormatSignal renders a signal as Telegram-flavored HTML. The same text is
// readable enough for console output.
func FormatSignal(sig *signal.Signal) string {
	emoji := "🟢"
	if sig.Direction == analysis.SideShort {
		emoji = "🔴"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s <b>%s | %s</b>\n\n", emoji, sig.Symbol, sig.Direction)
	fmt.Fprintf(&b, "• Score: <b>%d/100</b>\n", sig.Score)
	fmt.Fprintf(&b, "• Interval: %sm\n\n", sig.Interval)
	fmt.Fprintf(&b, "• Entry: <code>%.4f</code>\n", sig.Entry)
	fmt.Fprintf(&b, "• Stop:  <code>%.4f</code>\n", sig.StopLoss)
	fmt.Fprintf(&b, "• ATR:   <code>%.4f</code>\n", sig.ATR)

	if sig.Breakdown.Trend != nil {
		fmt.Fprintf(&b, "\n• Trend: %s (%d)\n", sig.Breakdown.Trend.Alignment, sig.Breakdown.Trend.Confidence)
	}
	if fb := sig.Breakdown.FalseBreakout; fb != nil {
		fmt.Fprintf(&b, "• False breakout: %s at %.4f\n", fb.BreakoutType, fb.LevelPrice)
	}
	if sw := sig.Breakdown.Sweep; sw != nil && sw.Detected {
		fmt.Fprintf(&b, "• Liquidity sweep: %s\n", sw.Sweep.Direction)
	}

	return strings.TrimRight(b.String(), "\n")
}

// TelegramNotifier sends signals through the Telegram Bot API.
type TelegramNotifier struct {
	baseURL    string
	botToken   string
	chatID     string
	httpClient *http.Client
	logger     zerolog.Logger
}

func NewTelegramNotifier(cfg config.TelegramConfig, logger zerolog.Logger) (*TelegramNotifier, error) {
	if cfg.BotToken == "" || cfg.ChatID == "" {
		return nil, fmt.Errorf("telegram bot token and chat id are required")
	}
	return &TelegramNotifier{
		baseURL:    "https://api.telegram.org",
		botToken:   cfg.BotToken,
		chatID:     cfg.ChatID,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger.With().Str("component", "telegram").Logger(),
	}, nil
}

type sendMessageRequest struct {
	ChatID                string `json:"chat_id"`
	Text                  string `json:"text"`
	ParseMode             string `json:"parse_mode"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview"`
}

type sendMessageResponse struct {
	OK          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code"`
	Description string `json:"description"`
}

func (t *TelegramNotifier) Notify(ctx context.Context, sig *signal.Signal) error {
	payload, err := json.Marshal(sendMessageRequest{
		ChatID:                t.chatID,
		Text:                  FormatSignal(sig),
		ParseMode:             "HTML",
		DisableWebPagePreview: true,
	})
	if err != nil {
		return fmt.Errorf("marshaling message: %w", err)
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", t.baseURL, t.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sending telegram message: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading telegram response: %w", err)
	}

	var out sendMessageResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return fmt.Errorf("parsing telegram response: %w", err)
	}
	if !out.OK {
		return fmt.Errorf("telegram error %d: %s", out.ErrorCode, out.Description)
	}

	t.logger.Info().
		Str("symbol", sig.Symbol).
		Str("direction", sig.Direction).
		Int("score", sig.Score).
		Msg("Signal sent to Telegram")
	return nil
}

// ConsoleNotifier logs signals through the structured logger. It is the
// default sink when Telegram is disabled.
type ConsoleNotifier struct {
	logger zerolog.Logger
}

func NewConsoleNotifier(logger zerolog.Logger) *ConsoleNotifier {
	return &ConsoleNotifier{logger: logger.With().Str("component", "console").Logger()}
}

func (c *ConsoleNotifier) Notify(_ context.Context, sig *signal.Signal) error {
	c.logger.Info().
		Str("id", sig.ID).
		Str("symbol", sig.Symbol).
		Str("direction", sig.Direction).
		Int("score", sig.Score).
		Float64("entry", sig.Entry).
		Float64("stop_loss", sig.StopLoss).
		Float64("atr", sig.ATR).
		Msg("Signal")
	return nil
}

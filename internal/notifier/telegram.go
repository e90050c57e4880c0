package notifier

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/JakeFAU/stockwatch/internal/stock"
)

// DefaultAPIBaseURL is the public Telegram Bot API endpoint.
const DefaultAPIBaseURL = "https://api.telegram.org"

const defaultTimeout = 15 * time.Second

// TelegramConfig controls the Telegram sender.
type TelegramConfig struct {
	BaseURL   string
	BotToken  string
	ChatID    string
	ParseMode string
	Timeout   time.Duration
	// Transport overrides the HTTP transport; nil uses resty's default.
	Transport http.RoundTripper
}

// Telegram sends messages through the Bot API sendMessage method.
type Telegram struct {
	cfg    TelegramConfig
	client *resty.Client
	logger *zap.Logger
}

// APIError describes a non-2xx response from the Bot API.
type APIError struct {
	StatusCode  int
	Description string
	Body        string
}

func (e *APIError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("telegram api status %d: %s", e.StatusCode, e.Description)
	}
	return fmt.Sprintf("telegram api status %d", e.StatusCode)
}

type sendMessageRequest struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode,omitempty"`
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code,omitempty"`
	Description string `json:"description,omitempty"`
}

// NewTelegram builds a sender. A nil logger is replaced with a no-op logger.
func NewTelegram(cfg TelegramConfig, logger *zap.Logger) *Telegram {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultAPIBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", "application/json").
		SetLogger(restyLogger{logger: logger.Named("resty"), secret: cfg.BotToken})
	if cfg.Transport != nil {
		client.SetTransport(cfg.Transport)
	}
	return &Telegram{cfg: cfg, client: client, logger: logger}
}

// Send posts text to the configured chat. It never retries.
//
// Missing credentials are reported as a config failure without touching the
// network. Any other failure is a notify failure.
func (t *Telegram) Send(ctx context.Context, text string) error {
	if t.cfg.BotToken == "" || t.cfg.ChatID == "" {
		t.logger.Error("telegram bot token or chat id not set; skipping alert")
		return stock.NewError(stock.KindConfigMissing, "send message",
			errors.New("telegram bot token and chat id are required"))
	}

	var (
		ok      apiResponse
		failure apiResponse
	)
	res, err := t.client.R().
		SetContext(ctx).
		SetBody(sendMessageRequest{
			ChatID:    t.cfg.ChatID,
			Text:      text,
			ParseMode: t.cfg.ParseMode,
		}).
		SetResult(&ok).
		SetError(&failure).
		Post("/bot" + t.cfg.BotToken + "/sendMessage")
	if err != nil {
		err = t.redact(err)
		t.logger.Error("telegram request failed", zap.Error(err))
		return stock.NewError(stock.KindNotifyFailure, "send message", err)
	}

	if !res.IsSuccess() {
		apiErr := &APIError{
			StatusCode:  res.StatusCode(),
			Description: failure.Description,
			Body:        string(res.Body()),
		}
		t.logger.Error("telegram rejected alert",
			zap.Int("status", apiErr.StatusCode),
			zap.String("body", apiErr.Body),
		)
		return stock.NewError(stock.KindNotifyFailure, "send message", apiErr)
	}

	t.logger.Info("alert sent", zap.Int("status", res.StatusCode()))
	return nil
}

// redact strips the bot token from transport errors, which embed the URL.
func (t *Telegram) redact(err error) error {
	if t.cfg.BotToken == "" || !strings.Contains(err.Error(), t.cfg.BotToken) {
		return err
	}
	return redactedError{
		msg:   strings.ReplaceAll(err.Error(), t.cfg.BotToken, "<redacted>"),
		cause: err,
	}
}

type redactedError struct {
	msg   string
	cause error
}

func (e redactedError) Error() string { return e.msg }

func (e redactedError) Unwrap() error { return e.cause }

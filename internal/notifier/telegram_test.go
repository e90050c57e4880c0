package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/JakeFAU/stockwatch/internal/stock"
)

type countingTransport struct {
	calls atomic.Int32
}

func (c *countingTransport) RoundTrip(*http.Request) (*http.Response, error) {
	c.calls.Add(1)
	return nil, errors.New("unexpected request")
}

func TestTelegramSendSuccess(t *testing.T) {
	t.Parallel()

	type captured struct {
		body        sendMessageRequest
		path        string
		method      string
		contentType string
		decodeErr   error
	}
	requests := make(chan captured, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c := captured{
			path:        r.URL.Path,
			method:      r.Method,
			contentType: r.Header.Get("Content-Type"),
		}
		c.decodeErr = json.NewDecoder(r.Body).Decode(&c.body)
		requests <- c
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":1}}`))
	}))
	defer srv.Close()

	tg := NewTelegram(TelegramConfig{
		BaseURL:   srv.URL,
		BotToken:  "123:abc",
		ChatID:    "-10042",
		ParseMode: ParseModeMarkdownV2,
	}, zap.NewNop())

	require.NoError(t, tg.Send(context.Background(), "hello\\!"))
	got := <-requests
	require.NoError(t, got.decodeErr)
	require.Equal(t, http.MethodPost, got.method)
	require.Contains(t, got.contentType, "application/json")
	require.Equal(t, "/bot123:abc/sendMessage", got.path)
	require.Equal(t, "-10042", got.body.ChatID)
	require.Equal(t, "hello\\!", got.body.Text)
	require.Equal(t, ParseModeMarkdownV2, got.body.ParseMode)
}

func TestTelegramMissingCredentialsMakesNoRequest(t *testing.T) {
	t.Parallel()

	for name, cfg := range map[string]TelegramConfig{
		"no token": {ChatID: "1"},
		"no chat":  {BotToken: "t"},
		"neither":  {},
	} {
		cfg := cfg
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			rt := &countingTransport{}
			cfg.Transport = rt
			core, logs := observer.New(zapcore.ErrorLevel)

			err := NewTelegram(cfg, zap.New(core)).Send(context.Background(), "hi")
			require.ErrorIs(t, err, stock.ErrConfigMissing)
			require.Zero(t, rt.calls.Load())
			require.Equal(t, 1, logs.Len())
		})
	}
}

func TestTelegramNonSuccessStatus(t *testing.T) {
	t.Parallel()

	for _, status := range []int{http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusBadRequest} {
		status := status
		t.Run(http.StatusText(status), func(t *testing.T) {
			t.Parallel()
			body := `{"ok":false,"error_code":` + jsonInt(status) + `,"description":"nope"}`
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(status)
				_, _ = w.Write([]byte(body))
			}))
			defer srv.Close()

			core, logs := observer.New(zapcore.ErrorLevel)
			tg := NewTelegram(TelegramConfig{BaseURL: srv.URL, BotToken: "t", ChatID: "c"}, zap.New(core))
			err := tg.Send(context.Background(), "hi")
			require.ErrorIs(t, err, stock.ErrNotifyFailure)

			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			require.Equal(t, status, apiErr.StatusCode)
			require.Equal(t, "nope", apiErr.Description)
			require.Equal(t, body, apiErr.Body)

			entries := logs.FilterMessage("telegram rejected alert").All()
			require.Len(t, entries, 1)
			require.Equal(t, int64(status), entries[0].ContextMap()["status"])
			require.Equal(t, body, entries[0].ContextMap()["body"])
		})
	}
}

func TestTelegramTransportFaultRedactsToken(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	base := srv.URL
	srv.Close()

	core, logs := observer.New(zapcore.ErrorLevel)
	tg := NewTelegram(TelegramConfig{
		BaseURL:  base,
		BotToken: "secret-token",
		ChatID:   "c",
		Timeout:  2 * time.Second,
	}, zap.New(core))

	err := tg.Send(context.Background(), "hi")
	require.ErrorIs(t, err, stock.ErrNotifyFailure)
	require.NotContains(t, err.Error(), "secret-token")
	require.Equal(t, 1, logs.FilterMessage("telegram request failed").Len())
	for _, entry := range logs.All() {
		for _, v := range entry.ContextMap() {
			if s, ok := v.(string); ok && strings.Contains(s, "secret-token") {
				t.Fatalf("token leaked into log field: %q", s)
			}
		}
	}
}

func TestNewTelegramDefaults(t *testing.T) {
	t.Parallel()

	tg := NewTelegram(TelegramConfig{}, nil)
	require.Equal(t, DefaultAPIBaseURL, tg.cfg.BaseURL)
	require.Equal(t, defaultTimeout, tg.cfg.Timeout)
	require.NotNil(t, tg.logger)
}

func jsonInt(n int) string {
	b, _ := json.Marshal(n)
	return string(b)
}

func TestRestyLoggerRedacts(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.DebugLevel)
	l := restyLogger{logger: zap.New(core), secret: "tok"}
	l.Errorf("post /bottok/sendMessage: %s\n", "refused")
	l.Warnf("warn %d", 1)
	l.Debugf("debug")

	entries := logs.All()
	require.Len(t, entries, 3)
	require.Equal(t, "post /bot<redacted>/sendMessage: refused", entries[0].Message)
	require.Equal(t, zapcore.WarnLevel, entries[1].Level)
	require.Equal(t, "debug", entries[2].Message)
}

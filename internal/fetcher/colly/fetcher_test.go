package collyfetcher

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/JakeFAU/stockwatch/internal/stock"
)

const testXPath = "//label[contains(text(), 'Men (')]"

func TestNewValidation(t *testing.T) {
	t.Parallel()

	if _, err := New(Config{LabelXPath: testXPath}, nil); err == nil {
		t.Fatal("expected error for missing url")
	}
	if _, err := New(Config{URL: "https://example.com", LabelXPath: "//label[("}, nil); err == nil {
		t.Fatal("expected error for invalid xpath")
	}
	f, err := New(Config{URL: "https://example.com", LabelXPath: testXPath}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.cfg.Timeout != 15*time.Second {
		t.Fatalf("expected default timeout, got %v", f.cfg.Timeout)
	}
}

func TestFetchLabel(t *testing.T) {
	t.Parallel()

	userAgents := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userAgents <- r.UserAgent()
		fmt.Fprint(w, `<html><body>
<label>Women (10)</label>
<label> Men (1,252) </label>
<label>Men (7)</label>
</body></html>`)
	}))
	defer srv.Close()

	f, err := New(Config{URL: srv.URL, LabelXPath: testXPath, UserAgent: "ua-test"}, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	text, err := f.FetchLabel(context.Background())
	if err != nil {
		t.Fatalf("FetchLabel() error = %v", err)
	}
	if text != "Men (1,252)" {
		t.Fatalf("expected first matching label, got %q", text)
	}
	if userAgent := <-userAgents; userAgent != "ua-test" {
		t.Fatalf("expected user agent to be sent, got %q", userAgent)
	}
}

func TestFetchLabelNotFound(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `<html><body><label>Women (10)</label></body></html>`)
	}))
	defer srv.Close()

	f, err := New(Config{URL: srv.URL, LabelXPath: testXPath}, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	_, err = f.FetchLabel(context.Background())
	if !errors.Is(err, stock.ErrNotFound) || !errors.Is(err, stock.ErrFetchFailure) {
		t.Fatalf("expected not found fetch failure, got %v", err)
	}
}

func TestFetchLabelHTTPError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "blocked", http.StatusForbidden)
	}))
	defer srv.Close()

	f, err := New(Config{URL: srv.URL, LabelXPath: testXPath}, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	_, err = f.FetchLabel(context.Background())
	if stock.KindOf(err) != stock.KindFetchFailure {
		t.Fatalf("expected fetch failure, got %v", err)
	}
	if errors.Is(err, stock.ErrNotFound) {
		t.Fatalf("http error must not be reported as not found: %v", err)
	}
}

func TestFetchLabelCanceled(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		<-release
		fmt.Fprint(w, `<html></html>`)
	}))
	defer srv.Close()
	defer close(release)

	f, err := New(Config{URL: srv.URL, LabelXPath: testXPath}, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = f.FetchLabel(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context canceled, got %v", err)
	}
}

func TestFetchLabelCancelAbortsRequest(t *testing.T) {
	t.Parallel()

	started := make(chan struct{})
	aborted := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(started)
		select {
		case <-r.Context().Done():
			close(aborted)
		case <-time.After(10 * time.Second):
			fmt.Fprint(w, `<html></html>`)
		}
	}))
	defer srv.Close()

	f, err := New(Config{URL: srv.URL, LabelXPath: testXPath, Timeout: 30 * time.Second}, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-started
		cancel()
	}()

	_, err = f.FetchLabel(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context canceled, got %v", err)
	}
	select {
	case <-aborted:
	case <-time.After(5 * time.Second):
		t.Fatal("in-flight request was not aborted on cancel")
	}
}

func TestConfigureCollectorHooks(t *testing.T) {
	t.Parallel()

	f, err := New(Config{URL: "https://example.com", LabelXPath: testXPath}, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	var result labelResult
	hooks := &stubHooks{}
	f.configureCollectorHooks(hooks, &result)
	if hooks.onXML == nil || hooks.onResponse == nil || hooks.onError == nil {
		t.Fatal("expected hooks to be registered")
	}
	if hooks.query != testXPath {
		t.Fatalf("expected xpath %q, got %q", testXPath, hooks.query)
	}

	hooks.onResponse(&colly.Response{StatusCode: http.StatusOK})
	hooks.onXML(&colly.XMLElement{Text: "Men (5)"})
	hooks.onXML(&colly.XMLElement{Text: "Men (9)"})
	if !result.found || result.text != "Men (5)" || result.status != http.StatusOK {
		t.Fatalf("unexpected result: %+v", result)
	}

	hooks.onError(&colly.Response{StatusCode: http.StatusBadGateway}, errors.New("boom"))
	if result.err == nil || result.status != http.StatusBadGateway {
		t.Fatalf("expected error captured, got %+v", result)
	}
}

type stubHooks struct {
	query      string
	onXML      colly.XMLCallback
	onResponse colly.ResponseCallback
	onError    colly.ErrorCallback
}

func (s *stubHooks) OnXML(query string, cb colly.XMLCallback) {
	s.query = query
	s.onXML = cb
}

func (s *stubHooks) OnResponse(cb colly.ResponseCallback) {
	s.onResponse = cb
}

func (s *stubHooks) OnError(cb colly.ErrorCallback) {
	s.onError = cb
}

// Package collyfetcher reads the stock label from server-rendered HTML using
// gocolly, without starting a browser.
package collyfetcher

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/antchfx/xpath"
	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/JakeFAU/stockwatch/internal/stock"
)

// Operation names reported in stock.Error.Op.
const (
	OpVisit = "visit"
	OpMatch = "match label"
)

// Config controls collector behavior.
type Config struct {
	URL        string
	LabelXPath string
	UserAgent  string
	Timeout    time.Duration
	// Transport overrides the pooled default transport.
	Transport http.RoundTripper
}

// Fetcher implements the label lookup with a fresh collector per call.
type Fetcher struct {
	cfg       Config
	transport http.RoundTripper
	logger    *zap.Logger
}

type collectorHooks interface {
	OnXML(string, colly.XMLCallback)
	OnResponse(colly.ResponseCallback)
	OnError(colly.ErrorCallback)
}

// labelResult collects callback output for one visit.
type labelResult struct {
	text   string
	found  bool
	status int
	err    error
}

// New validates cfg and builds a Fetcher. The XPath is compiled up front
// because colly panics on an invalid expression at match time.
func New(cfg Config, logger *zap.Logger) (*Fetcher, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, errors.New("target url must be set")
	}
	if _, err := xpath.Compile(cfg.LabelXPath); err != nil {
		return nil, fmt.Errorf("compile label xpath: %w", err)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	transport := cfg.Transport
	if transport == nil {
		transport = newHTTPTransport()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fetcher{cfg: cfg, transport: transport, logger: logger}, nil
}

// FetchLabel performs one GET and returns the text of the first node matching
// the label XPath.
func (f *Fetcher) FetchLabel(ctx context.Context) (string, error) {
	result, err := f.runCollector(ctx)
	if err != nil {
		return "", stock.NewError(stock.KindFetchFailure, OpVisit, err)
	}
	if !result.found {
		return "", stock.NewError(stock.KindFetchFailure, OpMatch,
			fmt.Errorf("%w: no node matches %s", stock.ErrNotFound, f.cfg.LabelXPath))
	}
	f.logger.Debug("label matched", zap.Int("status", result.status), zap.String("text", result.text))
	return strings.TrimSpace(result.text), nil
}

func (f *Fetcher) buildCollector(ctx context.Context, result *labelResult) *colly.Collector {
	collector := colly.NewCollector(colly.Async(false), colly.AllowURLRevisit(), colly.StdlibContext(ctx))
	if f.cfg.UserAgent != "" {
		collector.UserAgent = f.cfg.UserAgent
	}
	collector.IgnoreRobotsTxt = true
	collector.SetRequestTimeout(f.cfg.Timeout)
	collector.WithTransport(f.transport)

	f.configureCollectorHooks(collector, result)
	return collector
}

func (f *Fetcher) configureCollectorHooks(hooks collectorHooks, result *labelResult) {
	hooks.OnResponse(func(r *colly.Response) {
		result.status = r.StatusCode
	})

	hooks.OnXML(f.cfg.LabelXPath, func(e *colly.XMLElement) {
		if result.found {
			return
		}
		result.found = true
		result.text = e.Text
	})

	hooks.OnError(func(r *colly.Response, err error) {
		if r != nil {
			result.status = r.StatusCode
		}
		result.err = err
	})
}

// runCollector visits the target on its own goroutine. The visit owns its
// labelResult, and the request is bound to ctx so cancellation aborts it.
func (f *Fetcher) runCollector(ctx context.Context) (labelResult, error) {
	type visit struct {
		result labelResult
		err    error
	}
	done := make(chan visit, 1)
	go func() {
		var result labelResult
		err := f.buildCollector(ctx, &result).Visit(f.cfg.URL)
		done <- visit{result: result, err: err}
	}()

	select {
	case <-ctx.Done():
		return labelResult{}, fmt.Errorf("colly fetch canceled: %w", ctx.Err())
	case v := <-done:
		if ctx.Err() != nil {
			return labelResult{}, fmt.Errorf("colly fetch canceled: %w", ctx.Err())
		}
		if v.err != nil {
			return labelResult{}, fmt.Errorf("colly visit failed: %w", v.err)
		}
		if v.result.err != nil {
			return labelResult{}, fmt.Errorf("colly response failed (status %d): %w", v.result.status, v.result.err)
		}
		return v.result, nil
	}
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
	}
}

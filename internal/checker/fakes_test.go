package checker

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/stockwatch/internal/alert"
	"github.com/JakeFAU/stockwatch/internal/metrics"
)

func newTestChecker(f LabelFetcher, n Notifier, p alert.Policy, rec *metrics.Recorder, logger *zap.Logger) *Checker {
	return New(f, n, p, &fakeClock{now: time.Unix(100, 0)}, &fakeIDs{id: "run"}, rec,
		Config{URL: "https://shop.test/c/men", Threshold: 100}, logger)
}

type fakeFetcher struct {
	text string
	err  error
}

func (f *fakeFetcher) FetchLabel(context.Context) (string, error) {
	return f.text, f.err
}

type fakeNotifier struct {
	calls atomic.Int32
	last  string
	err   error
}

func (f *fakeNotifier) Send(_ context.Context, text string) error {
	f.calls.Add(1)
	f.last = text
	return f.err
}

type fakeClock struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now
	c.now = c.now.Add(c.step)
	return now
}

type fakeIDs struct {
	id  string
	err error
}

func (f *fakeIDs) NewID() (string, error) {
	return f.id, f.err
}

type countingTransport struct {
	calls atomic.Int32
}

func (c *countingTransport) RoundTrip(*http.Request) (*http.Response, error) {
	c.calls.Add(1)
	return nil, errors.New("unexpected request")
}

func stringsReader(s string) io.Reader {
	return strings.NewReader(s)
}

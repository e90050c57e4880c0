// Package checker runs one stock check: fetch the label, parse the count,
// apply the alert policy and send the alert.
package checker

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/stockwatch/internal/alert"
	"github.com/JakeFAU/stockwatch/internal/metrics"
	"github.com/JakeFAU/stockwatch/internal/notifier"
	"github.com/JakeFAU/stockwatch/internal/parser"
	"github.com/JakeFAU/stockwatch/internal/stock"
)

// LabelFetcher returns the raw text of the stock label.
type LabelFetcher interface {
	FetchLabel(ctx context.Context) (string, error)
}

// Notifier delivers a formatted alert message.
type Notifier interface {
	Send(ctx context.Context, text string) error
}

// Clock supplies timestamps.
type Clock interface {
	Now() time.Time
}

// IDGenerator produces run identifiers.
type IDGenerator interface {
	NewID() (string, error)
}

// Config holds values that appear in the alert message.
type Config struct {
	URL string
	// Threshold is shown in the message when the policy has no limit of
	// its own. A policy implementing alert.Limiter takes precedence.
	Threshold int64
}

// Checker wires the stages of a check together. It holds no state between
// runs.
type Checker struct {
	fetcher  LabelFetcher
	notifier Notifier
	policy   alert.Policy
	clock    Clock
	ids      IDGenerator
	recorder *metrics.Recorder
	cfg      Config
	logger   *zap.Logger
}

// New constructs a Checker. recorder may be nil.
func New(
	fetcher LabelFetcher,
	sender Notifier,
	policy alert.Policy,
	clock Clock,
	ids IDGenerator,
	recorder *metrics.Recorder,
	cfg Config,
	logger *zap.Logger,
) *Checker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if policy == nil {
		policy = alert.Threshold{Min: alert.DefaultThreshold}
	}
	return &Checker{
		fetcher:  fetcher,
		notifier: sender,
		policy:   policy,
		clock:    clock,
		ids:      ids,
		recorder: recorder,
		cfg:      cfg,
		logger:   logger,
	}
}

// Run executes a single check. It never panics and never returns an error
// directly; failures are reported through Outcome.Err.
func (c *Checker) Run(ctx context.Context) (out Outcome) {
	out.StartedAt = c.clock.Now()
	runID, err := c.ids.NewID()
	if err != nil {
		c.logger.Warn("run id generation failed", zap.Error(err))
	}
	out.RunID = runID
	logger := c.logger.With(zap.String("run_id", runID))

	defer func() {
		out.Duration = c.clock.Now().Sub(out.StartedAt)
		c.observe(&out)
	}()

	raw, err := c.fetcher.FetchLabel(ctx)
	if err != nil {
		out.Err = asStockError(stock.KindFetchFailure, "fetch label", err)
		logger.Error("fetch failed", zap.Error(err))
		return out
	}

	count, err := parser.ParseCount(raw)
	if err != nil {
		out.Err = asStockError(stock.KindParseFailure, "parse count", err)
		logger.Error("could not parse stock count", zap.String("text", raw), zap.Error(err))
		return out
	}
	out.Reading = &stock.Reading{RawText: raw, Count: count, FetchedAt: c.clock.Now()}
	logger.Info("found stock count", zap.Int64("count", count), zap.String("text", raw))

	if !c.policy.ShouldAlert(count) {
		logger.Info("stock below threshold, no alert",
			zap.Int64("count", count),
			zap.Int64("threshold", c.threshold()),
		)
		return out
	}

	threshold := c.threshold()
	logger.Info("sending alert",
		zap.String("policy", c.policy.Name()),
		zap.Int64("count", count),
		zap.Int64("threshold", threshold),
	)
	text := notifier.FormatAlert(notifier.Alert{
		Count:     count,
		Threshold: threshold,
		URL:       c.cfg.URL,
	})
	if err := c.notifier.Send(ctx, text); err != nil {
		out.Err = asStockError(stock.KindNotifyFailure, "send alert", err)
		logger.Error("alert not delivered", zap.Error(err))
		return out
	}
	out.Alerted = true
	return out
}

// threshold is the count the alert message compares against.
func (c *Checker) threshold() int64 {
	if l, ok := c.policy.(alert.Limiter); ok {
		return l.Limit()
	}
	return c.cfg.Threshold
}

func (c *Checker) observe(out *Outcome) {
	if c.recorder == nil {
		return
	}
	c.recorder.ObserveCheck(out.Label(), out.Duration)
	if out.Reading != nil {
		c.recorder.ObserveCount(out.Reading.Count, out.Reading.FetchedAt)
		switch {
		case out.Alerted:
			c.recorder.ObserveAlert("sent")
		case out.Err != nil:
			c.recorder.ObserveAlert("failed")
		default:
			c.recorder.ObserveAlert("skipped")
		}
	}
}

// asStockError keeps a stage error's own kind when it already has one.
func asStockError(kind stock.Kind, op string, err error) *stock.Error {
	var se *stock.Error
	if errors.As(err, &se) {
		return se
	}
	return stock.NewError(kind, op, err)
}

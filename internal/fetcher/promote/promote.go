// Package promote chains a cheap static fetch with a headless fallback.
package promote

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/stockwatch/internal/stock"
)

// LabelFetcher is satisfied by both the static and the headless fetchers.
type LabelFetcher interface {
	FetchLabel(ctx context.Context) (string, error)
}

// Fetcher probes the page with a static fetch and promotes to headless
// rendering only when the label is absent from the server HTML.
type Fetcher struct {
	probe    LabelFetcher
	headless LabelFetcher
	logger   *zap.Logger
}

// New wires a probe and a headless fetcher.
func New(probe, headless LabelFetcher, logger *zap.Logger) (*Fetcher, error) {
	if probe == nil || headless == nil {
		return nil, errors.New("promote: probe and headless fetchers are required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fetcher{probe: probe, headless: headless, logger: logger}, nil
}

// FetchLabel implements LabelFetcher.
func (f *Fetcher) FetchLabel(ctx context.Context) (string, error) {
	text, err := f.probe.FetchLabel(ctx)
	if err == nil {
		return text, nil
	}
	if !shouldPromote(err) {
		return "", fmt.Errorf("static probe: %w", err)
	}

	f.logger.Info("label missing from static page, promoting to headless", zap.Error(err))
	text, err = f.headless.FetchLabel(ctx)
	if err != nil {
		f.logger.Warn("headless promotion failed", zap.Error(err))
		return "", err
	}
	return text, nil
}

// shouldPromote reports whether a probe failure means the page needs
// JavaScript. Transport faults and canceled contexts are not promoted.
func shouldPromote(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	return errors.Is(err, stock.ErrNotFound)
}

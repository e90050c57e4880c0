package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/stockwatch/internal/checker"
	"github.com/JakeFAU/stockwatch/internal/clock/system"
	"github.com/JakeFAU/stockwatch/internal/config"
	collyfetcher "github.com/JakeFAU/stockwatch/internal/fetcher/colly"
	"github.com/JakeFAU/stockwatch/internal/fetcher/headless"
	"github.com/JakeFAU/stockwatch/internal/fetcher/promote"
	"github.com/JakeFAU/stockwatch/internal/id/uuid"
	"github.com/JakeFAU/stockwatch/internal/logging"
	"github.com/JakeFAU/stockwatch/internal/metrics"
	"github.com/JakeFAU/stockwatch/internal/notifier"
	"github.com/JakeFAU/stockwatch/internal/stock"
)

type checkFlags struct {
	policy     string
	threshold  int64
	mode       string
	strictExit bool
}

// newCheckCmd creates the 'check' subcommand, which performs exactly one
// fetch → parse → alert cycle.
func newCheckCmd(root *rootOptions) *cobra.Command {
	flags := &checkFlags{}
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Runs one stock check",
		Long: `Loads the target page, parses the stock count from the label and sends a
Telegram alert when the alert policy allows it. Failures are logged; the
process exits 0 unless --strict-exit is set.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCheck(cmd, root, flags)
		},
	}
	cmd.Flags().StringVar(&flags.policy, "policy", "", "alert policy: threshold or always")
	cmd.Flags().Int64Var(&flags.threshold, "threshold", 0, "alert threshold for the threshold policy")
	cmd.Flags().StringVar(&flags.mode, "mode", "", "fetcher mode: headless, static or auto")
	cmd.Flags().BoolVar(&flags.strictExit, "strict-exit", false, "exit non-zero per failure kind")
	return cmd
}

func (f *checkFlags) overrides(cmd *cobra.Command) map[string]any {
	out := map[string]any{}
	if cmd.Flags().Changed("policy") {
		out["alert.policy"] = f.policy
	}
	if cmd.Flags().Changed("threshold") {
		out["alert.threshold"] = f.threshold
	}
	if cmd.Flags().Changed("mode") {
		out["fetcher.mode"] = f.mode
	}
	if cmd.Flags().Changed("strict-exit") {
		out["exit.strict"] = f.strictExit
	}
	return out
}

func runCheck(cmd *cobra.Command, root *rootOptions, flags *checkFlags) error {
	ctx := cmd.Context()
	cfg, loadErr := config.Load(config.LoadOptions{
		Path:      root.configPath,
		EnvFile:   root.envFile,
		Overrides: flags.overrides(cmd),
	})

	logger, err := logging.New(cfg.Logging.Development, cfg.Logging.Level)
	if err != nil {
		logger = zap.NewExample()
		logger.Warn("logger init failed; using fallback", zap.Error(err))
	}
	defer logger.Sync() //nolint:errcheck // best-effort flush

	if loadErr != nil {
		if errors.Is(loadErr, stock.ErrConfigMissing) {
			logger.Error("missing TELEGRAM_BOT_TOKEN or TELEGRAM_CHAT_ID secrets; set them in the environment or an env file",
				zap.Error(loadErr))
			return exitFor(cfg.Exit.Strict, loadErr)
		}
		return fmt.Errorf("load config: %w", loadErr)
	}

	fetcher, err := buildFetcher(cfg, logger.Named("fetcher"))
	if err != nil {
		return fmt.Errorf("init fetcher: %w", err)
	}
	policy, err := cfg.AlertPolicy()
	if err != nil {
		return fmt.Errorf("init alert policy: %w", err)
	}

	sender := notifier.NewTelegram(notifier.TelegramConfig{
		BaseURL:   cfg.Telegram.APIBaseURL,
		BotToken:  cfg.Telegram.BotToken,
		ChatID:    cfg.Telegram.ChatID,
		ParseMode: cfg.Telegram.ParseMode,
		Timeout:   cfg.Telegram.Timeout,
	}, logger.Named("telegram"))

	recorder := metrics.New()
	check := checker.New(
		fetcher,
		sender,
		policy,
		system.New(),
		uuid.New(),
		recorder,
		checker.Config{URL: cfg.Target.URL, Threshold: cfg.Alert.Threshold},
		logger.Named("checker"),
	)

	out := check.Run(ctx)
	logger.Info("check finished",
		zap.String("run_id", out.RunID),
		zap.String("outcome", out.Label()),
		zap.Bool("alerted", out.Alerted),
		zap.Duration("duration", out.Duration),
	)

	pushMetrics(ctx, cfg.Metrics, recorder, logger)

	if out.Err == nil {
		return nil
	}
	return exitFor(cfg.Exit.Strict, out.Err)
}

func buildFetcher(cfg config.Config, logger *zap.Logger) (checker.LabelFetcher, error) {
	switch cfg.Fetcher.Mode {
	case config.ModeStatic:
		return newStaticFetcher(cfg, logger)
	case config.ModeAuto:
		probe, err := newStaticFetcher(cfg, logger.Named("static"))
		if err != nil {
			return nil, err
		}
		browser, err := newHeadlessFetcher(cfg, logger.Named("headless"))
		if err != nil {
			return nil, err
		}
		return promote.New(probe, browser, logger)
	default:
		return newHeadlessFetcher(cfg, logger)
	}
}

func newStaticFetcher(cfg config.Config, logger *zap.Logger) (*collyfetcher.Fetcher, error) {
	return collyfetcher.New(collyfetcher.Config{
		URL:        cfg.Target.URL,
		LabelXPath: cfg.Target.LabelXPath,
		UserAgent:  cfg.Browser.UserAgent,
		Timeout:    cfg.Fetcher.RequestTimeout,
	}, logger)
}

func newHeadlessFetcher(cfg config.Config, logger *zap.Logger) (*headless.Fetcher, error) {
	return headless.NewChromedp(headless.Config{
		URL:               cfg.Target.URL,
		LabelXPath:        cfg.Target.LabelXPath,
		UserAgent:         cfg.Browser.UserAgent,
		WaitTimeout:       cfg.Target.WaitTimeout,
		NavigationTimeout: cfg.Browser.NavigationTimeout,
		Headless:          cfg.Browser.Headless,
		NoSandbox:         cfg.Browser.NoSandbox,
		DisableDevShm:     cfg.Browser.DisableDevShm,
		DisableGPU:        cfg.Browser.DisableGPU,
		WindowWidth:       cfg.Browser.WindowWidth,
		WindowHeight:      cfg.Browser.WindowHeight,
		ExecPath:          cfg.Browser.ExecPath,
	}, logger)
}

func pushMetrics(ctx context.Context, cfg config.MetricsConfig, recorder *metrics.Recorder, logger *zap.Logger) {
	if cfg.PushgatewayURL == "" {
		return
	}
	if err := recorder.Push(ctx, cfg.PushgatewayURL, cfg.Job); err != nil {
		logger.Warn("metrics push failed", zap.String("gateway", cfg.PushgatewayURL), zap.Error(err))
	}
}

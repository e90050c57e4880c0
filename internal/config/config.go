// Package config loads and validates stock checker configuration via Viper.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/JakeFAU/stockwatch/internal/alert"
	"github.com/JakeFAU/stockwatch/internal/stock"
)

// Defaults reproduce the page and browser the checker was written against.
const (
	DefaultTargetURL = "https://www.sheinindia.in/c/sverse-5939-37961?query=%3Arelevance%3Agenderfilter%3AMen" +
		"&gridColumns=5&customerType=Existing&segmentIds=15%2C8%2C19" +
		"&userClusterId=supervalue%7Cm1active%2Cactive%2Cfirstpurchaser%2Cmen%2Clowasp%2Cp_null&customertype=Existing"
	DefaultLabelXPath = "//label[contains(text(), 'Men (')]"
	DefaultUserAgent  = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
		"(KHTML, like Gecko) Chrome/98.0.4758.102 Safari/537.36"
)

// Fetcher modes.
const (
	ModeHeadless = "headless"
	ModeStatic   = "static"
	// ModeAuto probes statically and promotes to headless when the label
	// is not in the server HTML.
	ModeAuto = "auto"
)

// Config captures all checker configuration knobs loaded via Viper.
type Config struct {
	Target   TargetConfig   `mapstructure:"target"`
	Browser  BrowserConfig  `mapstructure:"browser"`
	Fetcher  FetcherConfig  `mapstructure:"fetcher"`
	Telegram TelegramConfig `mapstructure:"telegram"`
	Alert    AlertConfig    `mapstructure:"alert"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Exit     ExitConfig     `mapstructure:"exit"`
}

// TargetConfig names the page and the label element to read.
type TargetConfig struct {
	URL         string        `mapstructure:"url"`
	LabelXPath  string        `mapstructure:"label_xpath"`
	WaitTimeout time.Duration `mapstructure:"wait_timeout"`
}

// BrowserConfig configures the headless Chrome instance.
type BrowserConfig struct {
	Headless          bool          `mapstructure:"headless"`
	NoSandbox         bool          `mapstructure:"no_sandbox"`
	DisableDevShm     bool          `mapstructure:"disable_dev_shm"`
	DisableGPU        bool          `mapstructure:"disable_gpu"`
	WindowWidth       int           `mapstructure:"window_width"`
	WindowHeight      int           `mapstructure:"window_height"`
	UserAgent         string        `mapstructure:"user_agent"`
	ExecPath          string        `mapstructure:"exec_path"`
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout"`
}

// FetcherConfig selects how the page is fetched.
type FetcherConfig struct {
	Mode           string        `mapstructure:"mode"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// TelegramConfig holds Bot API credentials and delivery settings.
type TelegramConfig struct {
	BotToken   string        `mapstructure:"bot_token"`
	ChatID     string        `mapstructure:"chat_id"`
	APIBaseURL string        `mapstructure:"api_base_url"`
	ParseMode  string        `mapstructure:"parse_mode"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// AlertConfig selects the alert policy.
type AlertConfig struct {
	Policy    string `mapstructure:"policy"`
	Threshold int64  `mapstructure:"threshold"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// MetricsConfig points at an optional Pushgateway.
type MetricsConfig struct {
	PushgatewayURL string `mapstructure:"pushgateway_url"`
	Job            string `mapstructure:"job"`
}

// ExitConfig controls process exit codes.
type ExitConfig struct {
	Strict bool `mapstructure:"strict"`
}

// LoadOptions tells Load where to look for configuration.
type LoadOptions struct {
	// Path is an optional YAML/JSON/TOML config file.
	Path string
	// EnvFile is a dotenv file; a missing file is ignored.
	EnvFile string
	// Overrides are applied last, keyed by dotted config key.
	Overrides map[string]any
}

// Load builds a Config from defaults, files, environment and overrides, then
// validates it. A missing secret yields an error matching stock.ErrConfigMissing.
func Load(opts LoadOptions) (Config, error) {
	if opts.EnvFile != "" {
		if err := godotenv.Load(opts.EnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load env file: %w", err)
		}
	}

	v := viper.New()
	v.SetEnvPrefix("STOCKWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)
	if err := bindSecrets(v); err != nil {
		return Config{}, err
	}

	if opts.Path != "" {
		v.SetConfigFile(opts.Path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}
	for key, value := range opts.Overrides {
		v.Set(key, value)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("target.url", DefaultTargetURL)
	v.SetDefault("target.label_xpath", DefaultLabelXPath)
	v.SetDefault("target.wait_timeout", "20s")
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.no_sandbox", true)
	v.SetDefault("browser.disable_dev_shm", true)
	v.SetDefault("browser.disable_gpu", true)
	v.SetDefault("browser.window_width", 1920)
	v.SetDefault("browser.window_height", 1080)
	v.SetDefault("browser.user_agent", DefaultUserAgent)
	v.SetDefault("browser.exec_path", "")
	v.SetDefault("browser.navigation_timeout", "45s")
	v.SetDefault("fetcher.mode", ModeHeadless)
	v.SetDefault("fetcher.request_timeout", "15s")
	v.SetDefault("telegram.bot_token", "")
	v.SetDefault("telegram.chat_id", "")
	v.SetDefault("telegram.api_base_url", "https://api.telegram.org")
	v.SetDefault("telegram.parse_mode", "MarkdownV2")
	v.SetDefault("telegram.timeout", "15s")
	v.SetDefault("alert.policy", alert.PolicyThreshold)
	v.SetDefault("alert.threshold", alert.DefaultThreshold)
	v.SetDefault("logging.development", false)
	v.SetDefault("logging.level", "info")
	v.SetDefault("metrics.pushgateway_url", "")
	v.SetDefault("metrics.job", "stockwatch")
	v.SetDefault("exit.strict", false)
}

// bindSecrets accepts the bare TELEGRAM_* names used by CI secret stores in
// addition to the prefixed form.
func bindSecrets(v *viper.Viper) error {
	if err := v.BindEnv("telegram.bot_token", "STOCKWATCH_TELEGRAM_BOT_TOKEN", "TELEGRAM_BOT_TOKEN"); err != nil {
		return fmt.Errorf("bind telegram.bot_token: %w", err)
	}
	if err := v.BindEnv("telegram.chat_id", "STOCKWATCH_TELEGRAM_CHAT_ID", "TELEGRAM_CHAT_ID"); err != nil {
		return fmt.Errorf("bind telegram.chat_id: %w", err)
	}
	return nil
}

// Validate enforces required values and reasonable limits. Structural
// problems are reported before missing secrets.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Target.URL) == "" {
		return fmt.Errorf("target.url must be set")
	}
	if strings.TrimSpace(c.Target.LabelXPath) == "" {
		return fmt.Errorf("target.label_xpath must be set")
	}
	if c.Target.WaitTimeout <= 0 {
		return fmt.Errorf("target.wait_timeout must be > 0")
	}
	switch c.Fetcher.Mode {
	case ModeHeadless, ModeStatic, ModeAuto:
	default:
		return fmt.Errorf("fetcher.mode must be %q, %q or %q, got %q", ModeHeadless, ModeStatic, ModeAuto, c.Fetcher.Mode)
	}
	if c.Fetcher.RequestTimeout <= 0 {
		return fmt.Errorf("fetcher.request_timeout must be > 0")
	}
	if c.Browser.WindowWidth < 0 || c.Browser.WindowHeight < 0 {
		return fmt.Errorf("browser.window_width and browser.window_height must be >= 0")
	}
	if c.Telegram.Timeout <= 0 {
		return fmt.Errorf("telegram.timeout must be > 0")
	}
	if _, err := c.AlertPolicy(); err != nil {
		return fmt.Errorf("alert: %w", err)
	}

	var missing []string
	if c.Telegram.BotToken == "" {
		missing = append(missing, "TELEGRAM_BOT_TOKEN")
	}
	if c.Telegram.ChatID == "" {
		missing = append(missing, "TELEGRAM_CHAT_ID")
	}
	if len(missing) > 0 {
		return stock.NewError(stock.KindConfigMissing, "validate",
			fmt.Errorf("missing %s", strings.Join(missing, " and ")))
	}
	return nil
}

// AlertPolicy builds the configured alert policy.
func (c Config) AlertPolicy() (alert.Policy, error) {
	return alert.FromConfig(c.Alert.Policy, c.Alert.Threshold)
}

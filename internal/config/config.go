package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"stockrelay/internal/apperr"
	"stockrelay/internal/provider"
)

// DefaultPath is used when neither an explicit path nor CONFIG_FILE is set.
const DefaultPath = "configs/config.yaml"

type HTTP struct {
	TimeoutSec int    `yaml:"timeout_sec" validate:"gte=0"`
	UserAgent  string `yaml:"user_agent"`
}

type Stooq struct {
	BaseURL     string `yaml:"base_url" validate:"required,url"`
	Interval    string `yaml:"interval" validate:"required,oneof=d w m"`
	WindowDays  int    `yaml:"window_days" validate:"gte=1"`
	StripSuffix string `yaml:"strip_suffix"`
}

// Symbol is one ticker with its display name.
type Symbol struct {
	Ticker string `yaml:"ticker" validate:"required"`
	Name   string `yaml:"name"`
}

type Fetch struct {
	Sets         []string `yaml:"sets" validate:"dive,required"`
	JSONPath     string   `yaml:"json_path" validate:"required"`
	RenderModule bool     `yaml:"render_module"`
	ModulePath   string   `yaml:"module_path" validate:"required_if=RenderModule true"`
}

type Roblox struct {
	BaseURL   string `yaml:"base_url" validate:"required,url"`
	AssetID   int64  `yaml:"asset_id" validate:"gt=0"`
	AssetType string `yaml:"asset_type" validate:"required"`
	Encoding  string `yaml:"encoding" validate:"omitempty,oneof=multipart raw"`
	FilePath  string `yaml:"file_path" validate:"required"`
	// APIKey is only read from ROBLOX_API_KEY.
	APIKey string `yaml:"-"`
}

type Config struct {
	HTTP       HTTP                `yaml:"http"`
	Stooq      Stooq               `yaml:"stooq"`
	SymbolSets map[string][]Symbol `yaml:"symbol_sets" validate:"dive,dive"`
	Fetch      Fetch               `yaml:"fetch"`
	Roblox     Roblox              `yaml:"roblox"`
}

func Default() Config {
	return Config{
		HTTP: HTTP{TimeoutSec: 0},
		Stooq: Stooq{
			BaseURL:     "https://stooq.com",
			Interval:    "d",
			WindowDays:  5,
			StripSuffix: provider.DefaultSuffix,
		},
		SymbolSets: map[string][]Symbol{
			"stocks": {
				{Ticker: "RBLX.US", Name: "Roblox"},
				{Ticker: "AAPL.US", Name: "Apple"},
				{Ticker: "MSFT.US", Name: "Microsoft"},
			},
			"etfs": {
				{Ticker: "SPY.US", Name: "SPDR S&P 500 ETF"},
				{Ticker: "QQQ.US", Name: "Invesco QQQ Trust"},
				{Ticker: "VTI.US", Name: "Vanguard Total Stock Market ETF"},
			},
		},
		Fetch: Fetch{
			Sets:         []string{"stocks"},
			JSONPath:     "stock-prices.json",
			RenderModule: true,
			ModulePath:   "StockData.lua",
		},
		Roblox: Roblox{
			BaseURL:   "https://apis.roblox.com",
			AssetID:   91072619691201,
			AssetType: "Model",
			Encoding:  "multipart",
			FilePath:  "StockData.lua",
		},
	}
}

// Load reads YAML config from path, falling back to CONFIG_FILE and then
// DefaultPath when path is empty. A missing file yields defaults. Environment
// variables are applied last. The result is not validated; call Validate.
//
// symbol_sets entries in the file are merged over the default sets by name.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		path = getenv("CONFIG_FILE", DefaultPath)
	}
	b, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err == nil {
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	}
	applyEnv(&cfg)
	return cfg, nil
}

// Validate checks field constraints and that every selected set exists.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return apperr.Wrap(apperr.ErrConfig, "validate config", err)
	}
	return c.checkSets()
}

// ValidateFetch checks only what the fetch command reads.
func (c *Config) ValidateFetch() error {
	v := validator.New()
	for _, section := range []any{c.HTTP, c.Stooq, c.Fetch} {
		if err := v.Struct(section); err != nil {
			return apperr.Wrap(apperr.ErrConfig, "validate config", err)
		}
	}
	for name, symbols := range c.SymbolSets {
		for _, s := range symbols {
			if err := v.Struct(s); err != nil {
				return apperr.Wrapf(apperr.ErrConfig, err, "validate symbol set %q", name)
			}
		}
	}
	return c.checkSets()
}

// ValidateUpload checks only what the upload command reads.
func (c *Config) ValidateUpload() error {
	v := validator.New()
	for _, section := range []any{c.HTTP, c.Roblox} {
		if err := v.Struct(section); err != nil {
			return apperr.Wrap(apperr.ErrConfig, "validate config", err)
		}
	}
	return nil
}

func (c *Config) checkSets() error {
	for _, name := range c.Fetch.Sets {
		if _, ok := c.SymbolSets[name]; !ok {
			return apperr.Wrapf(apperr.ErrConfig, nil, "unknown symbol set %q", name)
		}
	}
	return nil
}

// Timeout is the HTTP client timeout. Zero means none.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.HTTP.TimeoutSec) * time.Second
}

// Tickers returns the tickers of the named sets in order, dropping repeats.
func (c *Config) Tickers(sets []string) ([]string, error) {
	seen := make(map[string]struct{})
	var out []string
	for _, name := range sets {
		symbols, ok := c.SymbolSets[name]
		if !ok {
			return nil, apperr.Wrapf(apperr.ErrConfig, nil, "unknown symbol set %q", name)
		}
		for _, s := range symbols {
			if _, dup := seen[s.Ticker]; dup {
				continue
			}
			seen[s.Ticker] = struct{}{}
			out = append(out, s.Ticker)
		}
	}
	return out, nil
}

// Names maps normalized symbols to display names. Selected sets are read in
// Fetch.Sets order, then the rest by name; the first name seen for a symbol
// wins. Entries without a name are left out so rendering falls back to the
// symbol.
func (c *Config) Names() map[string]string {
	order := slices.Clone(c.Fetch.Sets)
	rest := make([]string, 0, len(c.SymbolSets))
	for name := range c.SymbolSets {
		if !slices.Contains(order, name) {
			rest = append(rest, name)
		}
	}
	slices.Sort(rest)
	order = append(order, rest...)

	out := make(map[string]string)
	for _, set := range order {
		for _, s := range c.SymbolSets[set] {
			if s.Name == "" {
				continue
			}
			key := provider.NormalizeSymbol(s.Ticker, c.Stooq.StripSuffix)
			if _, ok := out[key]; !ok {
				out[key] = s.Name
			}
		}
	}
	return out
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("REQUEST_TIMEOUT_SEC"); v != "" {
		var x int
		if _, err := fmt.Sscanf(v, "%d", &x); err == nil && x >= 0 {
			cfg.HTTP.TimeoutSec = x
		}
	}
	if v := os.Getenv("STOOQ_BASE_URL"); v != "" {
		cfg.Stooq.BaseURL = v
	}
	if v := os.Getenv("FETCH_SETS"); v != "" {
		cfg.Fetch.Sets = SplitCSV(v)
	}
	if v := os.Getenv("RENDER_MODULE"); v != "" {
		switch strings.ToLower(v) {
		case "1", "true", "yes", "y":
			cfg.Fetch.RenderModule = true
		case "0", "false", "no", "n":
			cfg.Fetch.RenderModule = false
		}
	}
	if v := os.Getenv("ROBLOX_API_KEY"); v != "" {
		cfg.Roblox.APIKey = v
	}
	if v := os.Getenv("ROBLOX_ASSET_ID"); v != "" {
		var x int64
		if _, err := fmt.Sscanf(v, "%d", &x); err == nil && x > 0 {
			cfg.Roblox.AssetID = x
		}
	}
	if v := os.Getenv("ROBLOX_UPLOAD_ENCODING"); v != "" {
		cfg.Roblox.Encoding = strings.ToLower(v)
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// SplitCSV splits a comma separated list, trimming blanks.
func SplitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"smart-picks/internal/odds"
)

// Defaults for configuration values.
const (
	DefaultLedgerPath          = "/data/ledger.db"
	DefaultStartingBankroll    = 200.0
	DefaultStakeMode           = StakeKelly
	DefaultUnitFraction        = 0.01
	DefaultKellyFraction       = 0.25
	DefaultHardCapFraction     = 0.05
	DefaultMaxOpenPositions    = 50
	DefaultMaxExposureFraction = 0.5
	DefaultMaxAbsPrice         = odds.DefaultMaxAbsPrice
	DefaultPriceRule           = odds.PriceBest
	DefaultVigMethod           = odds.VigMultiplicative
	DefaultMinBooks            = 1
	DefaultScoresDaysFrom      = 1
	DefaultAPIRequestsPerSec   = 2.0
	DefaultLogLevel            = "info"
	DefaultLogFormat           = "text"
	DefaultGraderAddr          = "127.0.0.1:5001"
	DefaultCORSOrigins         = "http://localhost:3000"
)

// Stake sizing modes.
const (
	StakeKelly = "kelly" // capped fractional Kelly
	StakeUnit  = "unit"  // flat units scaled by conviction
)

// SportConfig is the per-sport policy.
type SportConfig struct {
	Key           string  `yaml:"key"`
	Pretty        string  `yaml:"pretty"`
	Threshold     float64 `yaml:"smart_score_threshold"`
	Weight        float64 `yaml:"weight"`
	MoneylineOnly bool    `yaml:"moneyline_only"`
}

// DefaultSports is the built-in sports table.
func DefaultSports() []SportConfig {
	return []SportConfig{
		{Key: "basketball_nba", Pretty: "NBA", Threshold: 1.2, Weight: 1.0},
		{Key: "americanfootball_nfl", Pretty: "NFL", Threshold: 1.0, Weight: 1.0},
		{Key: "icehockey_nhl", Pretty: "NHL", Threshold: 1.0, Weight: 1.0},
		{Key: "soccer_epl", Pretty: "EPL", Threshold: 1.0, Weight: 1.0},
		// UFC: moneyline only, no Smart Score threshold
		{Key: "mma_mixed_martial_arts", Pretty: "UFC", Threshold: 0.0, Weight: 1.0, MoneylineOnly: true},
	}
}

// Config holds all application configuration.
type Config struct {
	OddsAPIKey    string
	FeedDir       string // read quotes/scores from JSON files instead of the API
	LedgerPath    string
	LedgerCSVPath string // optional CSV mirror of the ledger
	PolicyFile    string

	StartingBankroll    float64
	StakeMode           string
	UnitFraction        float64
	KellyFraction       float64
	HardCapFraction     float64
	MaxOpenPositions    int
	MaxExposureFraction float64

	MaxAbsPrice int
	PriceRule   odds.PriceRule
	VigMethod   odds.VigMethod
	MinBooks    int

	ScoresDaysFrom    int
	APIRequestsPerSec float64
	MetricsAddr       string
	LogLevel          string
	LogFormat         string

	GraderAddr  string
	CORSOrigins []string

	Sports   []SportConfig
	Ratings  map[string]float64
	Injuries map[string]float64
	Fatigue  map[string]float64
}

// policyFile is the YAML layout of POLICY_FILE.
type policyFile struct {
	Sports   []SportConfig      `yaml:"sports"`
	Ratings  map[string]float64 `yaml:"ratings"`
	Injuries map[string]float64 `yaml:"injuries"`
	Fatigue  map[string]float64 `yaml:"fatigue"`
}

// Load reads configuration from environment variables (and .env file if present).
func Load() Config {
	_ = godotenv.Load() // Ignore error if .env doesn't exist

	cfg := Config{
		OddsAPIKey:    os.Getenv("ODDS_API_KEY"),
		FeedDir:       os.Getenv("FEED_DIR"),
		LedgerPath:    DefaultLedgerPath,
		LedgerCSVPath: os.Getenv("LEDGER_CSV_PATH"),
		PolicyFile:    os.Getenv("POLICY_FILE"),
		MetricsAddr:   os.Getenv("METRICS_ADDR"),

		StartingBankroll:    DefaultStartingBankroll,
		StakeMode:           DefaultStakeMode,
		UnitFraction:        DefaultUnitFraction,
		KellyFraction:       DefaultKellyFraction,
		HardCapFraction:     DefaultHardCapFraction,
		MaxOpenPositions:    DefaultMaxOpenPositions,
		MaxExposureFraction: DefaultMaxExposureFraction,

		MaxAbsPrice: DefaultMaxAbsPrice,
		PriceRule:   DefaultPriceRule,
		VigMethod:   DefaultVigMethod,
		MinBooks:    DefaultMinBooks,

		ScoresDaysFrom:    DefaultScoresDaysFrom,
		APIRequestsPerSec: DefaultAPIRequestsPerSec,
		LogLevel:          DefaultLogLevel,
		LogFormat:         DefaultLogFormat,

		GraderAddr:  DefaultGraderAddr,
		CORSOrigins: splitList(DefaultCORSOrigins),

		Sports: DefaultSports(),
	}

	if v := os.Getenv("LEDGER_PATH"); v != "" {
		cfg.LedgerPath = v
	}
	if v := os.Getenv("STAKE_MODE"); v != "" {
		cfg.StakeMode = strings.ToLower(v)
	}
	if v := os.Getenv("PRICE_RULE"); v != "" {
		cfg.PriceRule = odds.PriceRule(strings.ToLower(v))
	}
	if v := os.Getenv("VIG_METHOD"); v != "" {
		cfg.VigMethod = odds.VigMethod(strings.ToLower(v))
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.LogFormat = strings.ToLower(v)
	}

	if v := os.Getenv("GRADER_ADDR"); v != "" {
		cfg.GraderAddr = v
	}
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		cfg.CORSOrigins = splitList(v)
	}

	floatEnv("STARTING_BANKROLL", &cfg.StartingBankroll)
	floatEnv("UNIT_FRACTION", &cfg.UnitFraction)
	floatEnv("KELLY_FRACTION", &cfg.KellyFraction)
	floatEnv("HARD_CAP_FRACTION", &cfg.HardCapFraction)
	floatEnv("MAX_EXPOSURE_FRACTION", &cfg.MaxExposureFraction)
	floatEnv("API_REQUESTS_PER_SEC", &cfg.APIRequestsPerSec)
	intEnv("MAX_OPEN_POSITIONS", &cfg.MaxOpenPositions)
	intEnv("MAX_ABS_PRICE", &cfg.MaxAbsPrice)
	intEnv("MIN_BOOKS", &cfg.MinBooks)
	intEnv("SCORES_DAYS_FROM", &cfg.ScoresDaysFrom)

	return cfg
}

func floatEnv(key string, dst *float64) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func intEnv(key string, dst *int) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

// LoadPolicyFile overlays the YAML policy at path onto cfg. Sports listed
// in the file replace the built-in table; team tables are keyed by folded
// team name.
func (c *Config) LoadPolicyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading policy file %q: %w", path, err)
	}

	var pf policyFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return fmt.Errorf("parsing policy file %q: %w", path, err)
	}

	if len(pf.Sports) > 0 {
		for i := range pf.Sports {
			if pf.Sports[i].Pretty == "" {
				pf.Sports[i].Pretty = pf.Sports[i].Key
			}
			if pf.Sports[i].Weight == 0 {
				pf.Sports[i].Weight = 1.0
			}
		}
		c.Sports = pf.Sports
	}
	c.Ratings = foldKeys(pf.Ratings)
	c.Injuries = foldKeys(pf.Injuries)
	c.Fatigue = foldKeys(pf.Fatigue)
	return nil
}

func foldKeys(m map[string]float64) map[string]float64 {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string]float64, len(m))
	for k, v := range m {
		out[odds.FoldLabel(k)] = v
	}
	return out
}

// Sport looks up a sport by key.
func (c Config) Sport(key string) (SportConfig, bool) {
	for _, s := range c.Sports {
		if s.Key == key {
			return s, true
		}
	}
	return SportConfig{}, false
}

// PrettyName returns the display name of a sport key, or the key itself.
func (c Config) PrettyName(key string) string {
	if s, ok := c.Sport(key); ok {
		return s.Pretty
	}
	return key
}

// Validate checks that configuration values are within acceptable ranges.
func Validate(cfg Config) error {
	if cfg.StartingBankroll <= 0 {
		return fmt.Errorf("STARTING_BANKROLL must be positive, got %f", cfg.StartingBankroll)
	}
	if cfg.StakeMode != StakeKelly && cfg.StakeMode != StakeUnit {
		return fmt.Errorf("STAKE_MODE must be %q or %q, got %q", StakeKelly, StakeUnit, cfg.StakeMode)
	}
	if cfg.UnitFraction <= 0 || cfg.UnitFraction > 1 {
		return fmt.Errorf("UNIT_FRACTION must be between 0 and 1, got %f", cfg.UnitFraction)
	}
	if cfg.KellyFraction <= 0 || cfg.KellyFraction > 1 {
		return fmt.Errorf("KELLY_FRACTION must be between 0 and 1, got %f", cfg.KellyFraction)
	}
	if cfg.HardCapFraction <= 0 || cfg.HardCapFraction > 1 {
		return fmt.Errorf("HARD_CAP_FRACTION must be between 0 and 1, got %f", cfg.HardCapFraction)
	}
	if cfg.MaxExposureFraction <= 0 || cfg.MaxExposureFraction > 1 {
		return fmt.Errorf("MAX_EXPOSURE_FRACTION must be between 0 and 1, got %f", cfg.MaxExposureFraction)
	}
	if cfg.MaxOpenPositions < 0 {
		return fmt.Errorf("MAX_OPEN_POSITIONS must be non-negative, got %d", cfg.MaxOpenPositions)
	}
	if cfg.MaxAbsPrice < 100 {
		return fmt.Errorf("MAX_ABS_PRICE must be at least 100, got %d", cfg.MaxAbsPrice)
	}
	if cfg.PriceRule != odds.PriceBest && cfg.PriceRule != odds.PriceMean {
		return fmt.Errorf("PRICE_RULE must be %q or %q, got %q", odds.PriceBest, odds.PriceMean, cfg.PriceRule)
	}
	if cfg.VigMethod != odds.VigMultiplicative && cfg.VigMethod != odds.VigPower {
		return fmt.Errorf("VIG_METHOD must be %q or %q, got %q", odds.VigMultiplicative, odds.VigPower, cfg.VigMethod)
	}
	if cfg.MinBooks < 1 {
		return fmt.Errorf("MIN_BOOKS must be at least 1, got %d", cfg.MinBooks)
	}
	if cfg.APIRequestsPerSec <= 0 {
		return fmt.Errorf("API_REQUESTS_PER_SEC must be positive, got %f", cfg.APIRequestsPerSec)
	}
	if cfg.OddsAPIKey == "" && cfg.FeedDir == "" {
		return fmt.Errorf("either ODDS_API_KEY or FEED_DIR must be set")
	}
	if len(cfg.Sports) == 0 {
		return fmt.Errorf("no sports configured")
	}
	seen := make(map[string]bool)
	for _, s := range cfg.Sports {
		if s.Key == "" {
			return fmt.Errorf("sport entry missing key")
		}
		if seen[s.Key] {
			return fmt.Errorf("sport %q configured twice", s.Key)
		}
		seen[s.Key] = true
		if s.Threshold < 0 || s.Weight < 0 {
			return fmt.Errorf("sport %q: threshold and weight must be non-negative", s.Key)
		}
	}
	return nil
}

// splitList splits a comma-separated value, dropping blanks.
func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

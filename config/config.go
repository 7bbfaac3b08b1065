package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config es la configuración completa del pipeline.
type Config struct {
	Scanner Scanner `yaml:"scanner"`
	Trading Trading `yaml:"trading"`
	Risk    Risk    `yaml:"risk"`
	API     API     `yaml:"api"`
	LLM     LLM     `yaml:"llm"`
	Storage Storage `yaml:"storage"`
	Notify  Notify  `yaml:"notify"`
	Log     Log     `yaml:"log"`
}

// Scanner controla el ciclo de escaneo.
type Scanner struct {
	IntervalSeconds  int     `yaml:"interval_seconds"`
	SourceTimeoutSec int     `yaml:"source_timeout_seconds"` // timeout por fuente de noticias
	MaxAlertsPerHour int     `yaml:"max_alerts_per_hour"`
	CooldownHours    float64 `yaml:"cooldown_hours"` // mismo mercado+dirección
	Workers          int     `yaml:"workers"`
	MarketCacheTTL   int     `yaml:"market_cache_ttl_seconds"`
}

// Trading controla el tamaño y la admisión de posiciones.
type Trading struct {
	Bankroll          float64 `yaml:"bankroll"` // bankroll paper por estrategia
	MinEdge           float64 `yaml:"min_edge"`
	AIDiscount        float64 `yaml:"ai_discount"` // cuánto acercar la estimación AI al precio
	MaxOrderSize      float64 `yaml:"max_order_size"`
	LiveStrategy      string  `yaml:"live_strategy"` // estrategia que replica en vivo
	LiveEnabled       bool    `yaml:"live_enabled"`
	FeeRateDefault    float64 `yaml:"fee_rate_default"`
	SpreadCostDefault float64 `yaml:"spread_cost_default"`
}

// Risk controla los límites del governor.
type Risk struct {
	DailyLossLimit      float64 `yaml:"daily_loss_limit"`
	MaxOpenPositions    int     `yaml:"max_open_positions"`
	MaxConsecutiveFails int     `yaml:"max_consecutive_failures"` // circuit breaker del pipeline
}

// API contiene los base URLs de las APIs y las credenciales CLOB.
// Las credenciales vienen solo del entorno, nunca del YAML.
type API struct {
	CLOBBase       string `yaml:"clob_base"`
	GammaBase      string `yaml:"gamma_base"`
	WalletAddress  string `yaml:"-"`
	CLOBKey        string `yaml:"-"`
	CLOBSecret     string `yaml:"-"`
	CLOBPassphrase string `yaml:"-"`
}

// LLM configura el analizador opcional. La API key viene solo del entorno.
type LLM struct {
	Enabled bool   `yaml:"enabled"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
	APIKey  string `yaml:"-"`
}

// Storage controla dónde se persisten los datos.
type Storage struct {
	DSN string `yaml:"dsn"` // ruta al archivo SQLite, o ":memory:"
}

// Notify configura las salidas de notificación. El webhook viene del entorno.
type Notify struct {
	WebhookURL string `yaml:"-"`
}

// Log controla el formato y nivel de logging.
type Log struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// Load carga la configuración desde el archivo YAML y el archivo .env si existe.
// Los valores del .env sobreescriben los del YAML para las keys que correspondan.
func Load(path string) (*Config, error) {
	// Cargar .env si existe (silencia error si no hay archivo)
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	return &cfg, nil
}

// ScanInterval devuelve el intervalo de escaneo como time.Duration.
func (c *Config) ScanInterval() time.Duration {
	return time.Duration(c.Scanner.IntervalSeconds) * time.Second
}

// SourceTimeout devuelve el timeout por fuente de noticias.
func (c *Config) SourceTimeout() time.Duration {
	return time.Duration(c.Scanner.SourceTimeoutSec) * time.Second
}

// MarketCacheTTL devuelve el TTL del cache de mercados.
func (c *Config) MarketCacheTTL() time.Duration {
	return time.Duration(c.Scanner.MarketCacheTTL) * time.Second
}

// applyEnvOverrides sobreescribe valores con variables de entorno si están presentes.
// Los secretos (API keys, webhook) solo existen en el entorno.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("LLM_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("NOTIFY_WEBHOOK_URL"); v != "" {
		cfg.Notify.WebhookURL = v
	}
	if v := os.Getenv("LIVE_ENABLED"); v != "" {
		cfg.Trading.LiveEnabled, _ = strconv.ParseBool(v)
	}
	if v := os.Getenv("POLY_ADDRESS"); v != "" {
		cfg.API.WalletAddress = v
	}
	if v := os.Getenv("CLOB_API_KEY"); v != "" {
		cfg.API.CLOBKey = v
	}
	if v := os.Getenv("CLOB_API_SECRET"); v != "" {
		cfg.API.CLOBSecret = v
	}
	if v := os.Getenv("CLOB_API_PASSPHRASE"); v != "" {
		cfg.API.CLOBPassphrase = v
	}
}

// setDefaults asegura que los valores requeridos tengan valores sensatos.
func setDefaults(cfg *Config) {
	if cfg.Scanner.IntervalSeconds <= 0 {
		cfg.Scanner.IntervalSeconds = 300
	}
	if cfg.Scanner.SourceTimeoutSec <= 0 {
		cfg.Scanner.SourceTimeoutSec = 20
	}
	if cfg.Scanner.MaxAlertsPerHour <= 0 {
		cfg.Scanner.MaxAlertsPerHour = 5
	}
	if cfg.Scanner.CooldownHours <= 0 {
		cfg.Scanner.CooldownHours = 4
	}
	if cfg.Scanner.Workers <= 0 {
		cfg.Scanner.Workers = 8
	}
	if cfg.Scanner.MarketCacheTTL <= 0 {
		cfg.Scanner.MarketCacheTTL = 300
	}
	if cfg.Trading.Bankroll <= 0 {
		cfg.Trading.Bankroll = 200
	}
	if cfg.Trading.MinEdge <= 0 {
		cfg.Trading.MinEdge = 0.02
	}
	if cfg.Trading.AIDiscount <= 0 {
		cfg.Trading.AIDiscount = 0.5
	}
	if cfg.Trading.MaxOrderSize <= 0 {
		cfg.Trading.MaxOrderSize = 15
	}
	if cfg.Trading.LiveStrategy == "" {
		cfg.Trading.LiveStrategy = "baseline"
	}
	if cfg.Trading.FeeRateDefault <= 0 {
		cfg.Trading.FeeRateDefault = 0.0175
	}
	if cfg.Trading.SpreadCostDefault <= 0 {
		cfg.Trading.SpreadCostDefault = 0.003
	}
	if cfg.Risk.DailyLossLimit <= 0 {
		cfg.Risk.DailyLossLimit = 30
	}
	if cfg.Risk.MaxOpenPositions <= 0 {
		cfg.Risk.MaxOpenPositions = 8
	}
	if cfg.Risk.MaxConsecutiveFails <= 0 {
		cfg.Risk.MaxConsecutiveFails = 10
	}
	if cfg.API.CLOBBase == "" {
		cfg.API.CLOBBase = "https://clob.polymarket.com"
	}
	if cfg.API.GammaBase == "" {
		cfg.API.GammaBase = "https://gamma-api.polymarket.com"
	}
	if cfg.LLM.BaseURL == "" {
		cfg.LLM.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = "gpt-4o-mini"
	}
	if cfg.Storage.DSN == "" {
		cfg.Storage.DSN = "polyclaw.db"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}

// validate rechaza combinaciones que dejarían el pipeline en un estado inseguro.
func validate(cfg *Config) error {
	if cfg.Trading.MinEdge >= 0.40 {
		return fmt.Errorf("trading.min_edge %.2f fuera de rango", cfg.Trading.MinEdge)
	}
	if cfg.Trading.AIDiscount > 1 {
		return fmt.Errorf("trading.ai_discount %.2f fuera de rango [0,1]", cfg.Trading.AIDiscount)
	}
	if cfg.LLM.Enabled && cfg.LLM.APIKey == "" {
		return fmt.Errorf("llm habilitado pero LLM_API_KEY no está definido")
	}
	if cfg.Trading.LiveEnabled {
		if cfg.API.CLOBKey == "" || cfg.API.CLOBSecret == "" || cfg.API.CLOBPassphrase == "" {
			return fmt.Errorf("live habilitado pero faltan CLOB_API_KEY/SECRET/PASSPHRASE")
		}
		if cfg.API.WalletAddress == "" {
			return fmt.Errorf("live habilitado pero POLY_ADDRESS no está definido")
		}
	}
	return nil
}

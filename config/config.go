package config

import (
	"fmt"
	"log/slog"
	"math"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/alejandrodnm/premiumscan/internal/domain"
	"github.com/alejandrodnm/premiumscan/internal/pricing"
	"github.com/alejandrodnm/premiumscan/internal/volatility"
)

// Config es la configuración completa de premiumscan.
type Config struct {
	Scanner    ScannerConfig         `yaml:"scanner"`
	Rules      domain.ThresholdRules `yaml:"rules"`
	Scoring    domain.ScoringWeights `yaml:"scoring"`
	Pricing    PricingConfig         `yaml:"pricing"`
	Volatility VolatilityConfig      `yaml:"volatility"`
	Data       DataConfig            `yaml:"data"`
	Tradier    TradierConfig         `yaml:"tradier"`
	Storage    StorageConfig         `yaml:"storage"`
	Log        LogConfig             `yaml:"log"`
}

// ScannerConfig controla el ciclo de escaneo.
type ScannerConfig struct {
	Symbols           []string `yaml:"symbols"`
	IntervalSeconds   int      `yaml:"interval_seconds"`
	TopN              int      `yaml:"top_n"`
	MinScore          float64  `yaml:"min_score"`
	Sides             []string `yaml:"sides"`               // CALL | PUT; vacío = ambos
	RequestsPerSecond float64  `yaml:"requests_per_second"` // límite de llamadas a los proveedores
	Workers           int      `yaml:"workers"`             // workers para el análisis de la cadena
	BarsDays          int      `yaml:"bars_days"`           // barras diarias pedidas para la HV
	MarketHoursOnly   bool     `yaml:"market_hours_only"`
	MaxSpreadPct      float64  `yaml:"max_spread_pct"` // descarta filas con spread > % del mid; 0 = sin filtro
	BackfillIV        bool     `yaml:"backfill_iv"`    // calcula la IV desde el mid cuando el proveedor no la envía
}

// PricingConfig selecciona el provider de Black-Scholes y la tasa libre de riesgo.
type PricingConfig struct {
	RiskFreeRate float64 `yaml:"risk_free_rate"`
	Provider     string  `yaml:"provider"` // auto | gonum | fallback
}

// VolatilityConfig controla el estimador de HV usado por el scanner.
type VolatilityConfig struct {
	Method             string `yaml:"method"`
	Window             int    `yaml:"window"`
	PercentileLookback int    `yaml:"percentile_lookback"`
	ConeWindows        []int  `yaml:"cone_windows"`
}

// Fuentes de datos de mercado.
const (
	SourceCSV     = "csv"
	SourceTradier = "tradier"
)

// DataConfig selecciona la fuente de cadenas y barras. Los directorios solo aplican a csv.
type DataConfig struct {
	Source   string `yaml:"source"` // csv | tradier
	ChainDir string `yaml:"chain_dir"`
	BarsDir  string `yaml:"bars_dir"`
}

// TradierConfig configura el cliente de market data de Tradier.
type TradierConfig struct {
	BaseURL           string  `yaml:"base_url"`
	Token             string  `yaml:"-"` // solo desde TRADIER_TOKEN
	MaxExpirations    int     `yaml:"max_expirations"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
}

// StorageConfig controla dónde se persisten los scans.
type StorageConfig struct {
	DSN string `yaml:"dsn"` // ruta al archivo SQLite, o ":memory:"
}

// LogConfig controla el formato y nivel de logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// Default devuelve la configuración por defecto, sin leer archivos ni entorno.
func Default() *Config {
	cfg := &Config{
		Rules:   domain.DefaultThresholdRules(),
		Scoring: domain.DefaultScoringWeights(),
		Pricing: PricingConfig{RiskFreeRate: pricing.DefaultRiskFreeRate},
	}
	setDefaults(cfg)
	return cfg
}

// Load carga la configuración desde el archivo YAML y el archivo .env si existe.
// Las secciones rules y scoring parten de los valores por defecto: el YAML solo
// pisa las claves que declara.
func Load(path string) (*Config, error) {
	// Cargar .env si existe (silencia error si no hay archivo)
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
	}

	applyEnvOverrides(cfg)
	setDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	return cfg, nil
}

// Validate comprueba reglas, provider, método de volatilidad y lados.
func (c *Config) Validate() error {
	if err := c.Rules.Validate(); err != nil {
		return err
	}
	if _, err := volatility.ParseMethod(c.Volatility.Method); err != nil {
		return err
	}
	switch c.Pricing.Provider {
	case pricing.ProviderAuto, pricing.ProviderGonum, pricing.ProviderFallback:
	default:
		return fmt.Errorf("pricing provider %q: %w", c.Pricing.Provider, domain.ErrInvalidInput)
	}
	if _, err := c.OptionSides(); err != nil {
		return err
	}
	if c.Scanner.MaxSpreadPct < 0 || math.IsNaN(c.Scanner.MaxSpreadPct) {
		return fmt.Errorf("scanner max_spread_pct %g: %w", c.Scanner.MaxSpreadPct, domain.ErrInvalidInput)
	}
	switch c.Data.Source {
	case SourceCSV:
	case SourceTradier:
		if c.Tradier.Token == "" {
			return fmt.Errorf("data source tradier requires TRADIER_TOKEN: %w", domain.ErrInvalidInput)
		}
	default:
		return fmt.Errorf("data source %q: %w", c.Data.Source, domain.ErrInvalidInput)
	}
	return nil
}

// ScanInterval devuelve el intervalo de escaneo como time.Duration.
func (c *Config) ScanInterval() time.Duration {
	return time.Duration(c.Scanner.IntervalSeconds) * time.Second
}

// ThresholdRules devuelve las reglas del detector.
func (c *Config) ThresholdRules() domain.ThresholdRules {
	return c.Rules
}

// ScoringWeights devuelve los pesos del scorer. Si no suman 1.0 se avisa y se usan tal cual.
func (c *Config) ScoringWeights() domain.ScoringWeights {
	if !c.Scoring.Normalized() {
		slog.Warn("scoring weights do not sum to 1.0", "sum", c.Scoring.Sum())
	}
	return c.Scoring
}

// HVMethod devuelve el estimador de HV configurado.
func (c *Config) HVMethod() volatility.Method {
	m, err := volatility.ParseMethod(c.Volatility.Method)
	if err != nil {
		return volatility.MethodStandard
	}
	return m
}

// OptionSides convierte scanner.sides en lados tipados. Vacío = sin filtro de lado.
func (c *Config) OptionSides() ([]domain.OptionSide, error) {
	sides := make([]domain.OptionSide, 0, len(c.Scanner.Sides))
	for _, s := range c.Scanner.Sides {
		side, err := domain.ParseOptionSide(s)
		if err != nil {
			return nil, err
		}
		sides = append(sides, side)
	}
	return sides, nil
}

// applyEnvOverrides sobreescribe valores con variables de entorno si están presentes.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("RISK_FREE_RATE"); v != "" {
		if rate, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Pricing.RiskFreeRate = rate
		} else {
			slog.Warn("ignoring invalid RISK_FREE_RATE", "value", v, "err", err)
		}
	}
	if v := os.Getenv("PRICING_PROVIDER"); v != "" {
		cfg.Pricing.Provider = v
	}
	if v := os.Getenv("STORAGE_DSN"); v != "" {
		cfg.Storage.DSN = v
	}
	if v := os.Getenv("DATA_SOURCE"); v != "" {
		cfg.Data.Source = v
	}
	if v := os.Getenv("TRADIER_TOKEN"); v != "" {
		cfg.Tradier.Token = v
	}
	if v := os.Getenv("TRADIER_BASE_URL"); v != "" {
		cfg.Tradier.BaseURL = v
	}
}

// setDefaults asegura que los valores requeridos tengan valores sensatos.
func setDefaults(cfg *Config) {
	if cfg.Scanner.IntervalSeconds <= 0 {
		cfg.Scanner.IntervalSeconds = 300
	}
	if cfg.Scanner.TopN <= 0 {
		cfg.Scanner.TopN = 10
	}
	if cfg.Scanner.MinScore <= 0 {
		cfg.Scanner.MinScore = 40
	}
	if cfg.Scanner.RequestsPerSecond <= 0 {
		cfg.Scanner.RequestsPerSecond = 2
	}
	if cfg.Scanner.Workers <= 0 {
		cfg.Scanner.Workers = 4
	}
	if cfg.Scanner.BarsDays <= 0 {
		cfg.Scanner.BarsDays = 365
	}
	if cfg.Pricing.Provider == "" {
		cfg.Pricing.Provider = pricing.ProviderAuto
	}
	if cfg.Volatility.Method == "" {
		cfg.Volatility.Method = string(volatility.MethodStandard)
	}
	if cfg.Volatility.Window <= 0 {
		cfg.Volatility.Window = volatility.MediumWindow
	}
	if cfg.Volatility.PercentileLookback <= 0 {
		cfg.Volatility.PercentileLookback = volatility.DefaultLookback
	}
	if len(cfg.Volatility.ConeWindows) == 0 {
		cfg.Volatility.ConeWindows = append([]int(nil), volatility.DefaultConeWindows...)
	}
	if cfg.Data.Source == "" {
		cfg.Data.Source = SourceCSV
	}
	if cfg.Data.ChainDir == "" {
		cfg.Data.ChainDir = "data/chains"
	}
	if cfg.Data.BarsDir == "" {
		cfg.Data.BarsDir = "data/bars"
	}
	if cfg.Tradier.MaxExpirations <= 0 {
		cfg.Tradier.MaxExpirations = 4
	}
	if cfg.Tradier.RequestsPerSecond <= 0 {
		cfg.Tradier.RequestsPerSecond = 1.2
	}
	if cfg.Storage.DSN == "" {
		cfg.Storage.DSN = "premiumscan.db"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config es la configuración completa del bot de copy-trading.
type Config struct {
	Bot        BotConfig        `yaml:"bot"`
	Risk       RiskConfig       `yaml:"risk"`
	API        APIConfig        `yaml:"api"`
	Chain      ChainConfig      `yaml:"chain"`
	Settlement SettlementConfig `yaml:"settlement"`
	Storage    StorageConfig    `yaml:"storage"`
	Log        LogConfig        `yaml:"log"`
}

// BotConfig controla el loop principal de monitoreo.
type BotConfig struct {
	PollIntervalSeconds int  `yaml:"poll_interval_seconds"`
	MaxTraders          int  `yaml:"max_traders"`
	PaperTrading        bool `yaml:"paper_trading"`
	WalletDelayMs       int  `yaml:"wallet_delay_ms"`  // pausa entre wallets al escanear
	RefreshTicks        int  `yaml:"refresh_ticks"`    // cada cuántos ticks se refresca la lista de traders
	SettleTicks         int  `yaml:"settle_ticks"`     // cada cuántos ticks corre el sweep de settlement
	DiscoveryTicks      int  `yaml:"discovery_ticks"`  // cada cuántos ticks corre el discovery de orphans
	ErrorSleepSeconds   int  `yaml:"error_sleep_seconds"`
}

// RiskConfig contiene los límites de riesgo del executor.
type RiskConfig struct {
	CapitalRatio           float64 `yaml:"capital_ratio"`    // capital del trader copiado / nuestro capital
	MaxPositionUSD         float64 `yaml:"max_position_usd"` // cap fijo si no hay balance configurado
	MaxPositionPct         float64 `yaml:"max_position_pct"` // cap como % del balance, si balance > 0
	AccountBalanceUSD      float64 `yaml:"account_balance_usd"`
	MaxConcurrentPositions int     `yaml:"max_concurrent_positions"`
	DailyLossLimitUSD      float64 `yaml:"daily_loss_limit_usd"`
}

// APIConfig contiene los base URLs de las APIs externas.
type APIConfig struct {
	DataBase       string `yaml:"data_base"`
	GammaBase      string `yaml:"gamma_base"`
	CLOBBase       string `yaml:"clob_base"`
	LeaderboardURL string `yaml:"leaderboard_url"`
	APIKey         string `yaml:"api_key"` // normalmente via PCC_API_KEY
	ManualTraders  string `yaml:"manual_traders"`
}

// ChainConfig contiene las credenciales y endpoints de Polygon.
type ChainConfig struct {
	RPCURL     string `yaml:"rpc_url"`
	RelayerURL string `yaml:"relayer_url"`
	PrivateKey string `yaml:"-"` // solo via env PRIVATE_KEY, nunca en YAML
	Funder     string `yaml:"funder"`
}

// SettlementConfig controla el auto-claim de posiciones resueltas.
type SettlementConfig struct {
	DailyTxLimit       int     `yaml:"daily_tx_limit"`
	MinIntervalSeconds float64 `yaml:"min_interval_seconds"`
	DiscoveryMax       int     `yaml:"discovery_max"`   // máximo de orphans por sweep
	DustThreshold      float64 `yaml:"dust_threshold"`  // tamaño mínimo para considerar un orphan
	RPCDelayMs         int     `yaml:"rpc_delay_ms"`    // pausa entre checks on-chain
	PollAttempts       int     `yaml:"poll_attempts"`   // intentos de confirmación del relayer
	PollIntervalMs     int     `yaml:"poll_interval_ms"`
}

// StorageConfig controla dónde se persisten los datos.
type StorageConfig struct {
	DSN string `yaml:"dsn"` // ruta al archivo SQLite, o ":memory:"
}

// LogConfig controla el formato y nivel de logging.
type LogConfig struct {
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

	return &cfg, nil
}

// PollInterval devuelve el intervalo de polling como time.Duration.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Bot.PollIntervalSeconds) * time.Second
}

// WalletDelay devuelve la pausa entre wallets como time.Duration.
func (c *Config) WalletDelay() time.Duration {
	return time.Duration(c.Bot.WalletDelayMs) * time.Millisecond
}

// ManualTraderList devuelve las addresses manuales como slice, ya limpias.
func (c *Config) ManualTraderList() []string {
	if c.API.ManualTraders == "" {
		return nil
	}
	parts := strings.Split(c.API.ManualTraders, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate comprueba los campos requeridos y devuelve TODOS los errores
// encontrados, no solo el primero. Un fallo de validación es fatal en startup.
func (c *Config) Validate() []error {
	var errs []error

	if c.API.APIKey == "" && len(c.ManualTraderList()) == 0 {
		errs = append(errs, fmt.Errorf("api.api_key (PCC_API_KEY) or api.manual_traders required"))
	}
	if !c.Bot.PaperTrading && c.Chain.PrivateKey == "" {
		errs = append(errs, fmt.Errorf("chain: PRIVATE_KEY required for live trading"))
	}
	if c.Chain.Funder != "" && !strings.HasPrefix(c.Chain.Funder, "0x") {
		errs = append(errs, fmt.Errorf("chain.funder: expected 0x-prefixed address, got %q", c.Chain.Funder))
	}
	if c.Risk.CapitalRatio <= 0 {
		errs = append(errs, fmt.Errorf("risk.capital_ratio: must be > 0, got %v", c.Risk.CapitalRatio))
	}
	if c.Risk.MaxPositionPct < 0 || c.Risk.MaxPositionPct > 1 {
		errs = append(errs, fmt.Errorf("risk.max_position_pct: must be in [0, 1], got %v", c.Risk.MaxPositionPct))
	}

	return errs
}

// applyEnvOverrides sobreescribe valores con variables de entorno si están presentes.
// Los secretos (API key, private key) solo se aceptan por esta vía.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("PCC_API_KEY"); v != "" {
		cfg.API.APIKey = v
	}
	if v := os.Getenv("MANUAL_TRADERS"); v != "" {
		cfg.API.ManualTraders = v
	}
	if v := os.Getenv("PRIVATE_KEY"); v != "" {
		cfg.Chain.PrivateKey = v
	}
	if v := os.Getenv("FUNDER_ADDRESS"); v != "" {
		cfg.Chain.Funder = v
	}
	if v := os.Getenv("RPC_URL"); v != "" {
		cfg.Chain.RPCURL = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
}

// setDefaults asegura que los valores requeridos tengan valores sensatos.
func setDefaults(cfg *Config) {
	if cfg.Bot.PollIntervalSeconds <= 0 {
		cfg.Bot.PollIntervalSeconds = 5
	}
	if cfg.Bot.MaxTraders <= 0 {
		cfg.Bot.MaxTraders = 5
	}
	if cfg.Bot.WalletDelayMs <= 0 {
		cfg.Bot.WalletDelayMs = 200
	}
	if cfg.Bot.RefreshTicks <= 0 {
		cfg.Bot.RefreshTicks = 120
	}
	if cfg.Bot.SettleTicks <= 0 {
		cfg.Bot.SettleTicks = 60
	}
	if cfg.Bot.DiscoveryTicks <= 0 {
		cfg.Bot.DiscoveryTicks = 360
	}
	if cfg.Bot.ErrorSleepSeconds <= 0 {
		cfg.Bot.ErrorSleepSeconds = 5
	}
	if cfg.Risk.CapitalRatio <= 0 {
		cfg.Risk.CapitalRatio = 10
	}
	if cfg.Risk.MaxPositionUSD <= 0 {
		cfg.Risk.MaxPositionUSD = 50
	}
	if cfg.Risk.MaxConcurrentPositions <= 0 {
		cfg.Risk.MaxConcurrentPositions = 10
	}
	if cfg.Risk.DailyLossLimitUSD <= 0 {
		cfg.Risk.DailyLossLimitUSD = 100
	}
	if cfg.API.DataBase == "" {
		cfg.API.DataBase = "https://data-api.polymarket.com"
	}
	if cfg.API.GammaBase == "" {
		cfg.API.GammaBase = "https://gamma-api.polymarket.com"
	}
	if cfg.API.CLOBBase == "" {
		cfg.API.CLOBBase = "https://clob.polymarket.com"
	}
	if cfg.API.LeaderboardURL == "" {
		cfg.API.LeaderboardURL = "https://polycopycatbot.com/api/traders"
	}
	if cfg.Chain.RPCURL == "" {
		cfg.Chain.RPCURL = "https://polygon-rpc.com"
	}
	if cfg.Chain.RelayerURL == "" {
		cfg.Chain.RelayerURL = "https://relayer-v2.polymarket.com"
	}
	if cfg.Settlement.DailyTxLimit <= 0 {
		cfg.Settlement.DailyTxLimit = 80
	}
	if cfg.Settlement.MinIntervalSeconds <= 0 {
		cfg.Settlement.MinIntervalSeconds = 30
	}
	if cfg.Settlement.DiscoveryMax <= 0 {
		cfg.Settlement.DiscoveryMax = 5
	}
	if cfg.Settlement.DustThreshold <= 0 {
		cfg.Settlement.DustThreshold = 0.5
	}
	if cfg.Settlement.RPCDelayMs <= 0 {
		cfg.Settlement.RPCDelayMs = 1500
	}
	if cfg.Settlement.PollAttempts <= 0 {
		cfg.Settlement.PollAttempts = 10
	}
	if cfg.Settlement.PollIntervalMs <= 0 {
		cfg.Settlement.PollIntervalMs = 3000
	}
	if cfg.Storage.DSN == "" {
		cfg.Storage.DSN = "polycopy.db"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}

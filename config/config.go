package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config é a configuração completa do futledger.
type Config struct {
	Storage StorageConfig `yaml:"storage"`
	Market  MarketConfig  `yaml:"market"`
	FutGG   FutGGConfig   `yaml:"futgg"`
	Log     LogConfig     `yaml:"log"`
}

// StorageConfig controla onde os dados são persistidos.
type StorageConfig struct {
	Driver        string `yaml:"driver"`         // csv | sqlite
	PricesPath    string `yaml:"prices_path"`    // histórico de preços (driver csv)
	PositionsPath string `yaml:"positions_path"` // carteira (driver csv)
	DSN           string `yaml:"dsn"`            // arquivo SQLite, ou ":memory:"
}

// MarketConfig controla o cálculo de lucro das posições.
type MarketConfig struct {
	FeeRate      float64 `yaml:"fee_rate"`      // taxa do mercado sobre a venda
	RecentClosed int     `yaml:"recent_closed"` // vendas recentes no resumo da carteira
	RecentPrices int     `yaml:"recent_prices"` // linhas no comando recentes
}

// FutGGConfig contém o base URL da fonte de cotações.
type FutGGConfig struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"-"` // só via env FUTGG_API_KEY, nunca no YAML
}

// LogConfig controla o formato e nível de logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// Load carrega a configuração do arquivo YAML e do .env se existir.
// Os valores do .env sobrescrevem os do YAML para as keys correspondentes.
// Arquivo YAML ausente não é erro: ficam só os defaults e o env.
func Load(path string) (*Config, error) {
	// Carrega .env se existir (silencia erro se não há arquivo)
	_ = godotenv.Load()

	var cfg Config
	data, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	return &cfg, nil
}

// applyEnvOverrides sobrescreve valores de cfg com variáveis de ambiente.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("FUTGG_API_KEY"); v != "" {
		cfg.FutGG.APIKey = v
	}
}

// setDefaults garante valores sensatos para tudo que ficou vazio.
func setDefaults(cfg *Config) {
	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = "csv"
	}
	if cfg.Storage.PricesPath == "" {
		cfg.Storage.PricesPath = "precos_historico.csv"
	}
	if cfg.Storage.PositionsPath == "" {
		cfg.Storage.PositionsPath = "carteira_posicoes.csv"
	}
	if cfg.Storage.DSN == "" {
		cfg.Storage.DSN = "futledger.db"
	}
	if cfg.Market.FeeRate <= 0 {
		cfg.Market.FeeRate = 0.05 // taxa padrão do mercado de transferências
	}
	if cfg.Market.RecentClosed <= 0 {
		cfg.Market.RecentClosed = 5
	}
	if cfg.Market.RecentPrices <= 0 {
		cfg.Market.RecentPrices = 10
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}

func (c *Config) validate() error {
	switch c.Storage.Driver {
	case "csv", "sqlite":
	default:
		return fmt.Errorf("storage.driver %q inválido (csv | sqlite)", c.Storage.Driver)
	}
	if c.Market.FeeRate >= 1 {
		return fmt.Errorf("market.fee_rate %v fora do intervalo (0, 1)", c.Market.FeeRate)
	}
	return nil
}

package config

import (
	"errors"
	"net/url"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/viper"
)

type Config struct {
	PrimaryRPC      string   `mapstructure:"primary_rpc"`
	RPCList         []string `mapstructure:"rpc_list"`
	ChainID         int64    `mapstructure:"chain_id"`
	ContractAddress string   `mapstructure:"contract_address"`
	WalletsFile     string   `mapstructure:"wallets_file"`

	Confirmations   uint64 `mapstructure:"confirmations"`
	Retries         int    `mapstructure:"retries"`
	RetryDelayMs    int    `mapstructure:"retry_delay_ms"`
	PollIntervalMs  int    `mapstructure:"poll_interval_ms"`
	ReceiptAttempts int    `mapstructure:"receipt_attempts"`
	ReceiptDelayMs  int    `mapstructure:"receipt_delay_ms"`

	Rotation          string `mapstructure:"rotation"`
	RotationWindowSec int    `mapstructure:"rotation_window_sec"`

	GasLimitUnits uint64 `mapstructure:"gas_limit_units"`
	MaxFeeGwei    int64  `mapstructure:"max_fee_gwei"`
	TipGwei       int64  `mapstructure:"tip_gwei"`

	Iterations  int    `mapstructure:"iterations"`
	DepositWei  string `mapstructure:"deposit_wei"`
	WithdrawWei string `mapstructure:"withdraw_wei"`

	ScoreboardURL string `mapstructure:"scoreboard_url"`
	PostgresURL   string `mapstructure:"postgres_url"`
	ExportDir     string `mapstructure:"export_dir"`
	DebugLogging  bool   `mapstructure:"debug_logging"`
}

const (
	DefaultConfirmations   = 2
	DefaultRetries         = 3
	DefaultRetryDelayMs    = 2000
	DefaultPollIntervalMs  = 5000
	DefaultReceiptAttempts = 5
	DefaultReceiptDelayMs  = 3000
	DefaultRotationWindow  = 30
	DefaultGasLimit        = 200_000
	DefaultMaxFeeGwei      = 50
	DefaultTipGwei         = 2
	DefaultIterations      = 1
)

func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	defaults := map[string]interface{}{
		"confirmations":       DefaultConfirmations,
		"retries":             DefaultRetries,
		"retry_delay_ms":      DefaultRetryDelayMs,
		"poll_interval_ms":    DefaultPollIntervalMs,
		"receipt_attempts":    DefaultReceiptAttempts,
		"receipt_delay_ms":    DefaultReceiptDelayMs,
		"rotation":            "round_robin",
		"rotation_window_sec": DefaultRotationWindow,
		"gas_limit_units":     DefaultGasLimit,
		"max_fee_gwei":        DefaultMaxFeeGwei,
		"tip_gwei":            DefaultTipGwei,
		"iterations":          DefaultIterations,
		"wallets_file":        "configs/wallets.yaml",
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	loadEnvironmentVariables(v, &cfg)

	return &cfg, Validate(&cfg)
}

func Validate(cfg *Config) error {
	if cfg.PrimaryRPC == "" {
		return errors.New("primary_rpc is required")
	}
	if err := validateURL(cfg.PrimaryRPC); err != nil {
		return err
	}
	if len(cfg.RPCList) == 0 {
		return errors.New("rpc_list is empty")
	}
	for _, rpcURL := range cfg.RPCList {
		if err := validateURL(rpcURL); err != nil {
			return err
		}
	}
	if cfg.ChainID <= 0 {
		return errors.New("invalid chain_id")
	}
	if !common.IsHexAddress(cfg.ContractAddress) {
		return errors.New("invalid contract_address")
	}
	if cfg.Rotation != "round_robin" && cfg.Rotation != "windowed" {
		return errors.New("rotation must be round_robin or windowed")
	}
	return validateNumericParams(cfg)
}

func validateNumericParams(cfg *Config) error {
	if cfg.Confirmations == 0 {
		return errors.New("invalid confirmations")
	}
	if cfg.Retries < 1 {
		return errors.New("invalid retries count")
	}
	if cfg.RetryDelayMs <= 0 || cfg.PollIntervalMs <= 0 || cfg.ReceiptDelayMs <= 0 {
		return errors.New("delays must be positive")
	}
	if cfg.ReceiptAttempts < 1 {
		return errors.New("invalid receipt_attempts")
	}
	if cfg.RotationWindowSec <= 0 {
		return errors.New("invalid rotation_window_sec")
	}
	if cfg.GasLimitUnits == 0 || cfg.MaxFeeGwei <= 0 || cfg.TipGwei <= 0 {
		return errors.New("invalid gas settings")
	}
	if cfg.Iterations < 1 {
		return errors.New("invalid iterations count")
	}
	return nil
}

func validateURL(rawURL string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil || !strings.HasPrefix(parsed.Scheme, "http") {
		return errors.New("invalid RPC URL: " + rawURL)
	}
	return nil
}

func loadEnvironmentVariables(v *viper.Viper, cfg *Config) {
	v.AutomaticEnv()
	v.SetEnvPrefix("FARMBOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if envPrimary := v.GetString("PRIMARY_RPC"); envPrimary != "" {
		cfg.PrimaryRPC = envPrimary
	}
	if envList := v.GetString("RPC_LIST"); envList != "" {
		var clean []string
		for _, rpc := range strings.Split(envList, ",") {
			if trimmed := strings.TrimSpace(rpc); trimmed != "" {
				clean = append(clean, trimmed)
			}
		}
		if len(clean) > 0 {
			cfg.RPCList = clean
		}
	}
	if envPG := v.GetString("POSTGRES_URL"); envPG != "" {
		cfg.PostgresURL = envPG
	}
}

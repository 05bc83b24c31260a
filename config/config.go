package config

import (
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/ethereum/go-ethereum/common"

	"launchpad/native/presale"
)

// Config is the node-level deployment configuration consumed by the CLI.
type Config struct {
	DataDir     string   `toml:"DataDir"`
	NetworkName string   `toml:"NetworkName"`
	Environment string   `toml:"Environment"`
	Platform    Platform `toml:"Platform"`
}

// Platform mirrors the platform registry bootstrap parameters. Fee amounts are
// decimal strings so they survive TOML integer limits at high decimals.
type Platform struct {
	Wallet             string `toml:"Wallet"`
	FeeAsset           string `toml:"FeeAsset"`
	FeeSplitBps        uint32 `toml:"FeeSplitBps"`
	CreationFeeNormal  string `toml:"CreationFeeNormal"`
	CreationFeeSpecial string `toml:"CreationFeeSpecial"`
}

// Load reads the configuration from the given path, creating a commented
// default file on first run.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}
	cfg := &Config{}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("config: decode %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func createDefault(path string) (*Config, error) {
	cfg := &Config{
		DataDir:     "./launchpad-data",
		NetworkName: "launchpad-local",
		Environment: "dev",
		Platform: Platform{
			Wallet:             common.Address{}.Hex(),
			FeeAsset:           "USDQ",
			FeeSplitBps:        5_000,
			CreationFeeNormal:  "2000000",
			CreationFeeSpecial: "10000000",
		},
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("config: create directory %s: %w", dir, err)
		}
	}
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("config: create %s: %w", path, err)
	}
	defer file.Close()
	if err := toml.NewEncoder(file).Encode(cfg); err != nil {
		return nil, fmt.Errorf("config: write defaults: %w", err)
	}
	return cfg, nil
}

// Validate checks the structural fields. The zero platform wallet is allowed
// so a freshly generated config loads; bootstrap refuses it separately.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.DataDir) == "" {
		return fmt.Errorf("config: DataDir must not be empty")
	}
	if !common.IsHexAddress(c.Platform.Wallet) {
		return fmt.Errorf("config: Platform.Wallet is not a hex address: %q", c.Platform.Wallet)
	}
	if c.Platform.FeeSplitBps > 10_000 {
		return fmt.Errorf("config: Platform.FeeSplitBps %d exceeds denominator", c.Platform.FeeSplitBps)
	}
	if strings.TrimSpace(c.Platform.FeeAsset) == "" {
		return fmt.Errorf("config: Platform.FeeAsset must not be empty")
	}
	for _, field := range []struct{ name, value string }{
		{"CreationFeeNormal", c.Platform.CreationFeeNormal},
		{"CreationFeeSpecial", c.Platform.CreationFeeSpecial},
	} {
		if field.value == "" {
			continue
		}
		if _, err := parseAmount(field.value); err != nil {
			return fmt.Errorf("config: Platform.%s: %w", field.name, err)
		}
	}
	return nil
}

// PlatformWallet returns the platform wallet as a raw address.
func (c *Config) PlatformWallet() [20]byte {
	return common.HexToAddress(c.Platform.Wallet)
}

// PlatformConfig converts the TOML section into the engine's registry shape.
func (c *Config) PlatformConfig() (*presale.PlatformConfig, error) {
	normal, err := parseAmount(c.Platform.CreationFeeNormal)
	if err != nil {
		return nil, fmt.Errorf("config: Platform.CreationFeeNormal: %w", err)
	}
	special, err := parseAmount(c.Platform.CreationFeeSpecial)
	if err != nil {
		return nil, fmt.Errorf("config: Platform.CreationFeeSpecial: %w", err)
	}
	return &presale.PlatformConfig{
		PlatformWallet:     c.PlatformWallet(),
		FeeAsset:           strings.TrimSpace(c.Platform.FeeAsset),
		FeeSplitBps:        c.Platform.FeeSplitBps,
		CreationFeeNormal:  normal,
		CreationFeeSpecial: special,
	}, nil
}

func parseAmount(value string) (*big.Int, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return big.NewInt(0), nil
	}
	amount, ok := new(big.Int).SetString(trimmed, 10)
	if !ok || amount.Sign() < 0 {
		return nil, fmt.Errorf("not a non-negative decimal amount: %q", value)
	}
	return amount, nil
}

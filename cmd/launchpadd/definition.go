package main

import (
	"fmt"
	"math/big"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v3"

	"launchpad/native/presale"
)

// SaleDefinition is the YAML document operators hand to `launchpadd create`.
// Amounts and prices are decimal strings; feeMode is "additive" or "deducted".
type SaleDefinition struct {
	Creator      string   `yaml:"creator"`
	BaseAsset    string   `yaml:"baseAsset"`
	NewAsset     string   `yaml:"newAsset"`
	Decimals     uint8    `yaml:"decimals"`
	StartTime    int64    `yaml:"startTime"`
	Duration     int64    `yaml:"duration"`
	RoundPrices  []string `yaml:"roundPrices"`
	FeeBps       uint32   `yaml:"feeBps"`
	FeeMode      string   `yaml:"feeMode"`
	TargetAmount string   `yaml:"targetAmount"`
}

// LoadSaleDefinition parses and validates a sale definition document.
func LoadSaleDefinition(path string) (*SaleDefinition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("definition: read %s: %w", path, err)
	}
	def := &SaleDefinition{}
	if err := yaml.Unmarshal(data, def); err != nil {
		return nil, fmt.Errorf("definition: parse %s: %w", path, err)
	}
	if !common.IsHexAddress(def.Creator) {
		return nil, fmt.Errorf("definition: creator is not a hex address: %q", def.Creator)
	}
	if len(def.RoundPrices) != presale.RoundCount {
		return nil, fmt.Errorf("definition: expected %d round prices, got %d", presale.RoundCount, len(def.RoundPrices))
	}
	return def, nil
}

// CreatorAddress returns the creator as a raw address.
func (d *SaleDefinition) CreatorAddress() [20]byte {
	return common.HexToAddress(d.Creator)
}

// Params converts the document into engine create parameters.
func (d *SaleDefinition) Params() (presale.CreateParams, error) {
	params := presale.CreateParams{
		BaseAsset: d.BaseAsset,
		NewAsset:  d.NewAsset,
		Decimals:  d.Decimals,
		StartTime: d.StartTime,
		Duration:  d.Duration,
		FeeBps:    d.FeeBps,
	}
	for i, raw := range d.RoundPrices {
		price, err := parseAmount(raw)
		if err != nil {
			return params, fmt.Errorf("definition: round %d price: %w", i, err)
		}
		params.RoundPrices[i] = price
	}
	switch strings.ToLower(strings.TrimSpace(d.FeeMode)) {
	case "", "additive":
		params.FeeMode = presale.FeeAdditive
	case "deducted":
		params.FeeMode = presale.FeeDeducted
	default:
		return params, fmt.Errorf("definition: unknown feeMode %q", d.FeeMode)
	}
	if d.TargetAmount != "" {
		target, err := parseAmount(d.TargetAmount)
		if err != nil {
			return params, fmt.Errorf("definition: targetAmount: %w", err)
		}
		params.TargetAmount = target
	}
	return params, nil
}

func parseAmount(value string) (*big.Int, error) {
	trimmed := strings.TrimSpace(value)
	amount, ok := new(big.Int).SetString(trimmed, 10)
	if !ok || amount.Sign() < 0 {
		return nil, fmt.Errorf("not a non-negative decimal amount: %q", value)
	}
	return amount, nil
}

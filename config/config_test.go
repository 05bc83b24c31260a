package config

import (
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadCreatesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "launchpad.toml")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "./launchpad-data", cfg.DataDir)
	require.Equal(t, "USDQ", cfg.Platform.FeeAsset)

	// The file exists afterwards and loads back identically.
	_, err = os.Stat(path)
	require.NoError(t, err)
	again, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, cfg, again)
}

func TestLoadValidates(t *testing.T) {
	cases := map[string]string{
		"empty data dir": `
DataDir = " "
[Platform]
Wallet = "0x0000000000000000000000000000000000000000"
FeeAsset = "USDQ"
`,
		"bad wallet": `
DataDir = "./data"
[Platform]
Wallet = "not-an-address"
FeeAsset = "USDQ"
`,
		"fee split too large": `
DataDir = "./data"
[Platform]
Wallet = "0x0000000000000000000000000000000000000000"
FeeAsset = "USDQ"
FeeSplitBps = 10001
`,
		"bad fee amount": `
DataDir = "./data"
[Platform]
Wallet = "0x0000000000000000000000000000000000000000"
FeeAsset = "USDQ"
CreationFeeNormal = "1.5"
`,
	}
	for name, body := range cases {
		path := filepath.Join(t.TempDir(), "launchpad.toml")
		require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
		_, err := Load(path)
		require.Error(t, err, name)
	}
}

func TestPlatformConfigConversion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "launchpad.toml")
	body := `
DataDir = "./data"
[Platform]
Wallet = "0x00000000000000000000000000000000000000fe"
FeeAsset = "USDQ"
FeeSplitBps = 2500
CreationFeeNormal = "2000000"
CreationFeeSpecial = "10000000"
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	cfg, err := Load(path)
	require.NoError(t, err)

	platform, err := cfg.PlatformConfig()
	require.NoError(t, err)
	require.Equal(t, byte(0xFE), platform.PlatformWallet[19])
	require.Equal(t, uint32(2_500), platform.FeeSplitBps)
	require.Equal(t, big.NewInt(2_000_000), platform.CreationFeeNormal)
	require.Equal(t, big.NewInt(10_000_000), platform.CreationFeeSpecial)
}

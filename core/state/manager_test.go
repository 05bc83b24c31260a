package state

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"launchpad/core/types"
	"launchpad/native/presale"
	"launchpad/storage"
)

func testAddr(last byte) [20]byte {
	var out [20]byte
	out[19] = last
	return out
}

func TestPlatformRoundTrip(t *testing.T) {
	manager := NewManager(storage.NewMemDB())

	_, ok, err := manager.PlatformGet()
	require.NoError(t, err)
	require.False(t, ok)

	cfg := &presale.PlatformConfig{
		PlatformWallet:     testAddr(0xFE),
		FeeAsset:           "USDQ",
		FeeSplitBps:        5_000,
		CreationFeeNormal:  big.NewInt(2_000_000),
		CreationFeeSpecial: big.NewInt(10_000_000),
	}
	require.NoError(t, manager.PlatformPut(cfg))

	loaded, ok, err := manager.PlatformGet()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, cfg, loaded)
}

func TestPresaleRoundTrip(t *testing.T) {
	manager := NewManager(storage.NewMemDB())
	creator := testAddr(0xC0)

	_, ok, err := manager.PresaleGet(presale.ScheduleID(creator))
	require.NoError(t, err)
	require.False(t, ok)

	sale := &presale.PresaleConfig{
		ID:              presale.ScheduleID(creator),
		Creator:         creator,
		BaseAsset:       "USDQ",
		NewAsset:        "LPT",
		Decimals:        6,
		StartTime:       1_000,
		Duration:        10_000,
		CurrentRound:    2,
		TotalBought:     big.NewInt(480),
		TotalReturned:   big.NewInt(20),
		TargetAmount:    big.NewInt(800),
		LiquidityAmount: big.NewInt(200),
		FeeBps:          250,
		FeeMode:         presale.FeeDeducted,
		Finalized:       true,
		Success:         true,
	}
	for i := 0; i < presale.RoundCount; i++ {
		sale.Rounds[i] = presale.RoundConfig{
			TotalAmount:    big.NewInt(int64(100 + i)),
			RemainedAmount: big.NewInt(int64(i)),
			Price:          big.NewInt(int64(1_000_000 * (i + 1))),
		}
	}
	require.NoError(t, manager.PresalePut(sale))

	loaded, ok, err := manager.PresaleGet(sale.ID)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, sale, loaded)
}

func TestAllocationRoundTrip(t *testing.T) {
	manager := NewManager(storage.NewMemDB())
	schedule := presale.ScheduleID(testAddr(0xC0))
	user := testAddr(0x01)

	_, ok, err := manager.AllocationGet(schedule, user)
	require.NoError(t, err)
	require.False(t, ok)

	alloc := presale.NewUserAllocation(schedule, user)
	alloc.Amounts[0] = big.NewInt(100)
	alloc.Amounts[3] = big.NewInt(50)
	alloc.BasePaid[0] = big.NewInt(1_000)
	alloc.BasePaid[3] = big.NewInt(600)
	alloc.Processed = true
	require.NoError(t, manager.AllocationPut(alloc))

	loaded, ok, err := manager.AllocationGet(schedule, user)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, alloc, loaded)
}

func TestAccountRoundTrip(t *testing.T) {
	manager := NewManager(storage.NewMemDB())
	addr := testAddr(0x01)

	missing, err := manager.GetAccount(addr[:])
	require.NoError(t, err)
	require.Nil(t, missing)

	account := types.NewAccount()
	account.Nonce = 7
	account.SetBalance("USDQ", big.NewInt(123))
	account.SetBalance("LPT", big.NewInt(456))
	account.SetBalance("DUST", big.NewInt(0)) // zero balances are dropped
	require.NoError(t, manager.PutAccount(addr[:], account))

	loaded, err := manager.GetAccount(addr[:])
	require.NoError(t, err)
	require.NotNil(t, loaded)
	require.Equal(t, uint64(7), loaded.Nonce)
	require.Equal(t, big.NewInt(123), loaded.Balance("USDQ"))
	require.Equal(t, big.NewInt(456), loaded.Balance("LPT"))
	_, hasDust := loaded.Balances["DUST"]
	require.False(t, hasDust)

	_, err = manager.GetAccount(nil)
	require.Error(t, err)
}

// The engine runs unchanged against the persistent manager: the partial-fill
// scenario behaves exactly as it does against the in-memory test state.
func TestEngineAgainstManager(t *testing.T) {
	db := storage.NewMemDB()
	manager := NewManager(db)
	engine := presale.NewEngine()
	engine.SetState(manager)
	now := int64(1_000)
	engine.SetNowFunc(func() int64 { return now })

	platformWallet := testAddr(0xFE)
	creator := testAddr(0xC0)
	userA := testAddr(0x01)
	userB := testAddr(0x02)

	_, err := engine.InitializePlatform(platformWallet, "USDQ", 5_000, nil, nil)
	require.NoError(t, err)

	fund := func(addr [20]byte, amount int64) {
		acc, err := manager.GetAccount(addr[:])
		require.NoError(t, err)
		if acc == nil {
			acc = types.NewAccount()
		}
		acc.SetBalance("USDQ", big.NewInt(amount))
		require.NoError(t, manager.PutAccount(addr[:], acc))
	}
	fund(creator, presale.DefaultCreationFeeNormal)
	fund(userA, 500_000_000)
	fund(userB, 500_000_000)

	price := big.NewInt(1_000_000_000)
	_, err = engine.CreatePresale(creator, presale.CreateParams{
		BaseAsset:   "USDQ",
		NewAsset:    "LPT",
		StartTime:   now,
		Duration:    10_000,
		RoundPrices: [presale.RoundCount]*big.Int{price, price, price, price},
	})
	require.NoError(t, err)

	filled, err := engine.Buy(creator, userA, 0, big.NewInt(100_000_000))
	require.NoError(t, err)
	require.Equal(t, big.NewInt(100_000_000), filled)

	filled, err = engine.Buy(creator, userB, 0, big.NewInt(150_000_000))
	require.NoError(t, err)
	require.Equal(t, big.NewInt(145_000_000), filled, "request above capacity clamps to the remainder")

	sale, ok, err := manager.PresaleGet(presale.ScheduleID(creator))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint8(1), sale.CurrentRound)
	require.Equal(t, big.NewInt(245_000_000), sale.Rounds[0].Raised())

	// Reopen the store: everything survives the round trip.
	reloaded := NewManager(db)
	sale, ok, err = reloaded.PresaleGet(presale.ScheduleID(creator))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint8(1), sale.CurrentRound)
	alloc, ok, err := reloaded.AllocationGet(sale.ID, userB)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, big.NewInt(145_000_000), alloc.Amounts[0])
}

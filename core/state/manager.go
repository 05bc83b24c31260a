package state

import (
	"errors"
	"fmt"
	"math/big"
	"sort"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"

	"launchpad/core/types"
	"launchpad/native/presale"
	"launchpad/storage"
)

// Manager persists the engine's records in a key-value store. Every record is
// RLP encoded and addressed by a keccak hash over a type prefix plus the
// record's derived identity, so external clients can locate records without a
// secondary index. The manager performs no locking; the engine's host is the
// single writer.
type Manager struct {
	db storage.Database
}

// NewManager creates a state manager over the provided database.
func NewManager(db storage.Database) *Manager {
	return &Manager{db: db}
}

var (
	platformPrefix   = []byte("platform:")
	presalePrefix    = []byte("presale:")
	allocationPrefix = []byte("allocation:")
	accountPrefix    = []byte("account:")
)

func prefixedKey(prefix []byte, parts ...[]byte) []byte {
	buf := append([]byte{}, prefix...)
	for _, part := range parts {
		buf = append(buf, part...)
	}
	return ethcrypto.Keccak256(buf)
}

func (m *Manager) get(key []byte, out interface{}) (bool, error) {
	data, err := m.db.Get(key)
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := rlp.DecodeBytes(data, out); err != nil {
		return false, fmt.Errorf("state: decode record: %w", err)
	}
	return true, nil
}

func (m *Manager) put(key []byte, record interface{}) error {
	encoded, err := rlp.EncodeToBytes(record)
	if err != nil {
		return fmt.Errorf("state: encode record: %w", err)
	}
	return m.db.Put(key, encoded)
}

// RLP cannot encode maps or signed integers, so the persisted shapes differ
// slightly from the engine types: balances become a sorted pair list and
// timestamps widen to uint64.

type storedBalance struct {
	Asset  string
	Amount *big.Int
}

type storedAccount struct {
	Nonce    uint64
	Balances []storedBalance
}

type storedPlatform struct {
	PlatformWallet     [20]byte
	FeeAsset           string
	FeeSplitBps        uint32
	CreationFeeNormal  *big.Int
	CreationFeeSpecial *big.Int
}

type storedRound struct {
	TotalAmount    *big.Int
	RemainedAmount *big.Int
	Price          *big.Int
}

type storedPresale struct {
	ID              [32]byte
	Creator         [20]byte
	BaseAsset       string
	NewAsset        string
	Decimals        uint8
	StartTime       uint64
	Duration        uint64
	Rounds          []storedRound
	CurrentRound    uint8
	TotalBought     *big.Int
	TotalReturned   *big.Int
	TargetAmount    *big.Int
	LiquidityAmount *big.Int
	FeeBps          uint32
	FeeMode         uint8
	Finalized       bool
	Success         bool
}

type storedAllocation struct {
	Schedule  [32]byte
	User      [20]byte
	Amounts   []*big.Int
	BasePaid  []*big.Int
	Processed bool
}

func nonNil(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return v
}

// PlatformGet loads the platform registry singleton.
func (m *Manager) PlatformGet() (*presale.PlatformConfig, bool, error) {
	key := presale.PlatformKey()
	var stored storedPlatform
	ok, err := m.get(prefixedKey(platformPrefix, key[:]), &stored)
	if err != nil || !ok {
		return nil, false, err
	}
	return &presale.PlatformConfig{
		PlatformWallet:     stored.PlatformWallet,
		FeeAsset:           stored.FeeAsset,
		FeeSplitBps:        stored.FeeSplitBps,
		CreationFeeNormal:  nonNil(stored.CreationFeeNormal),
		CreationFeeSpecial: nonNil(stored.CreationFeeSpecial),
	}, true, nil
}

// PlatformPut persists the platform registry singleton.
func (m *Manager) PlatformPut(cfg *presale.PlatformConfig) error {
	if cfg == nil {
		return fmt.Errorf("state: nil platform config")
	}
	key := presale.PlatformKey()
	return m.put(prefixedKey(platformPrefix, key[:]), &storedPlatform{
		PlatformWallet:     cfg.PlatformWallet,
		FeeAsset:           cfg.FeeAsset,
		FeeSplitBps:        cfg.FeeSplitBps,
		CreationFeeNormal:  nonNil(cfg.CreationFeeNormal),
		CreationFeeSpecial: nonNil(cfg.CreationFeeSpecial),
	})
}

// PresaleGet loads a sale schedule by its derived identity.
func (m *Manager) PresaleGet(id [32]byte) (*presale.PresaleConfig, bool, error) {
	var stored storedPresale
	ok, err := m.get(prefixedKey(presalePrefix, id[:]), &stored)
	if err != nil || !ok {
		return nil, false, err
	}
	if len(stored.Rounds) != presale.RoundCount {
		return nil, false, fmt.Errorf("state: corrupt presale record: %d rounds", len(stored.Rounds))
	}
	sale := &presale.PresaleConfig{
		ID:              stored.ID,
		Creator:         stored.Creator,
		BaseAsset:       stored.BaseAsset,
		NewAsset:        stored.NewAsset,
		Decimals:        stored.Decimals,
		StartTime:       int64(stored.StartTime),
		Duration:        int64(stored.Duration),
		CurrentRound:    stored.CurrentRound,
		TotalBought:     nonNil(stored.TotalBought),
		TotalReturned:   nonNil(stored.TotalReturned),
		TargetAmount:    nonNil(stored.TargetAmount),
		LiquidityAmount: nonNil(stored.LiquidityAmount),
		FeeBps:          stored.FeeBps,
		FeeMode:         presale.FeeMode(stored.FeeMode),
		Finalized:       stored.Finalized,
		Success:         stored.Success,
	}
	for i, round := range stored.Rounds {
		sale.Rounds[i] = presale.RoundConfig{
			TotalAmount:    nonNil(round.TotalAmount),
			RemainedAmount: nonNil(round.RemainedAmount),
			Price:          nonNil(round.Price),
		}
	}
	return sale, true, nil
}

// PresalePut persists a sale schedule.
func (m *Manager) PresalePut(sale *presale.PresaleConfig) error {
	if sale == nil {
		return fmt.Errorf("state: nil presale config")
	}
	stored := &storedPresale{
		ID:              sale.ID,
		Creator:         sale.Creator,
		BaseAsset:       sale.BaseAsset,
		NewAsset:        sale.NewAsset,
		Decimals:        sale.Decimals,
		StartTime:       uint64(sale.StartTime),
		Duration:        uint64(sale.Duration),
		Rounds:          make([]storedRound, presale.RoundCount),
		CurrentRound:    sale.CurrentRound,
		TotalBought:     nonNil(sale.TotalBought),
		TotalReturned:   nonNil(sale.TotalReturned),
		TargetAmount:    nonNil(sale.TargetAmount),
		LiquidityAmount: nonNil(sale.LiquidityAmount),
		FeeBps:          sale.FeeBps,
		FeeMode:         uint8(sale.FeeMode),
		Finalized:       sale.Finalized,
		Success:         sale.Success,
	}
	for i, round := range sale.Rounds {
		stored.Rounds[i] = storedRound{
			TotalAmount:    nonNil(round.TotalAmount),
			RemainedAmount: nonNil(round.RemainedAmount),
			Price:          nonNil(round.Price),
		}
	}
	return m.put(prefixedKey(presalePrefix, sale.ID[:]), stored)
}

// AllocationGet loads a purchaser's allocation record for a sale.
func (m *Manager) AllocationGet(schedule [32]byte, user [20]byte) (*presale.UserAllocation, bool, error) {
	key := presale.AllocationKey(schedule, user)
	var stored storedAllocation
	ok, err := m.get(prefixedKey(allocationPrefix, key[:]), &stored)
	if err != nil || !ok {
		return nil, false, err
	}
	if len(stored.Amounts) != presale.RoundCount || len(stored.BasePaid) != presale.RoundCount {
		return nil, false, fmt.Errorf("state: corrupt allocation record")
	}
	alloc := presale.NewUserAllocation(stored.Schedule, stored.User)
	alloc.Processed = stored.Processed
	for i := 0; i < presale.RoundCount; i++ {
		alloc.Amounts[i] = nonNil(stored.Amounts[i])
		alloc.BasePaid[i] = nonNil(stored.BasePaid[i])
	}
	return alloc, true, nil
}

// AllocationPut persists a purchaser's allocation record.
func (m *Manager) AllocationPut(alloc *presale.UserAllocation) error {
	if alloc == nil {
		return fmt.Errorf("state: nil allocation")
	}
	stored := &storedAllocation{
		Schedule:  alloc.Schedule,
		User:      alloc.User,
		Amounts:   make([]*big.Int, presale.RoundCount),
		BasePaid:  make([]*big.Int, presale.RoundCount),
		Processed: alloc.Processed,
	}
	for i := 0; i < presale.RoundCount; i++ {
		stored.Amounts[i] = nonNil(alloc.Amounts[i])
		stored.BasePaid[i] = nonNil(alloc.BasePaid[i])
	}
	key := presale.AllocationKey(alloc.Schedule, alloc.User)
	return m.put(prefixedKey(allocationPrefix, key[:]), stored)
}

// GetAccount loads the account stored for an address. Unknown addresses load
// as nil so the engine can lazily materialise them.
func (m *Manager) GetAccount(addr []byte) (*types.Account, error) {
	if len(addr) == 0 {
		return nil, fmt.Errorf("state: address must not be empty")
	}
	var stored storedAccount
	ok, err := m.get(prefixedKey(accountPrefix, addr), &stored)
	if err != nil || !ok {
		return nil, err
	}
	account := types.NewAccount()
	account.Nonce = stored.Nonce
	for _, bal := range stored.Balances {
		account.SetBalance(bal.Asset, nonNil(bal.Amount))
	}
	return account, nil
}

// PutAccount persists the provided account state under the supplied address.
func (m *Manager) PutAccount(addr []byte, account *types.Account) error {
	if len(addr) == 0 {
		return fmt.Errorf("state: address must not be empty")
	}
	if account == nil {
		return fmt.Errorf("state: nil account")
	}
	stored := &storedAccount{Nonce: account.Nonce}
	assets := make([]string, 0, len(account.Balances))
	for asset := range account.Balances {
		assets = append(assets, asset)
	}
	sort.Strings(assets)
	for _, asset := range assets {
		amount := account.Balances[asset]
		if amount == nil || amount.Sign() == 0 {
			continue
		}
		if amount.Sign() < 0 {
			return fmt.Errorf("state: negative balance for %s", asset)
		}
		stored.Balances = append(stored.Balances, storedBalance{Asset: asset, Amount: amount})
	}
	return m.put(prefixedKey(accountPrefix, addr), stored)
}

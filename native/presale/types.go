package presale

import (
	"math/big"
	"strings"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// RoundCount is the fixed number of sequential pricing rounds every sale runs.
const RoundCount = 4

// Key-derivation tags. Record identities are keccak hashes over these tags and
// the owning addresses so external clients can locate records without an index.
const (
	platformConfigTag = "platform-config"
	presaleConfigTag  = "presale-config"
	vaultAccountTag   = "vault-base-token-account"
	userAllocationTag = "user-allocation"
)

// Default flat creation fees charged in the platform fee asset when a creator
// registers a sale. Symbols ending in "safe" pay the special rate.
const (
	DefaultCreationFeeNormal  = 2_000_000
	DefaultCreationFeeSpecial = 10_000_000
)

// wholeSupply and roundSupply describe the fixed token distribution: one
// billion whole units, of which the four rounds sell 245M/235M/215M/105M and
// the remainder is reserved as post-sale liquidity.
var (
	wholeSupply = big.NewInt(1_000_000_000)
	roundSupply = [RoundCount]*big.Int{
		big.NewInt(245_000_000),
		big.NewInt(235_000_000),
		big.NewInt(215_000_000),
		big.NewInt(105_000_000),
	}
)

// FeeMode selects how the per-purchase fee interacts with the quoted cost.
type FeeMode uint8

const (
	// FeeAdditive charges the fee on top of the cost; the vault receives the
	// full cost.
	FeeAdditive FeeMode = iota
	// FeeDeducted carves the fee out of the cost; the vault receives the
	// remainder.
	FeeDeducted
)

// Valid reports whether the fee mode is a supported value.
func (m FeeMode) Valid() bool {
	return m == FeeAdditive || m == FeeDeducted
}

// PlatformConfig is the process-wide singleton describing where platform fees
// flow. It is written once at bootstrap and read by every sale.
type PlatformConfig struct {
	PlatformWallet     [20]byte `json:"platformWallet"`
	FeeAsset           string   `json:"feeAsset"`
	FeeSplitBps        uint32   `json:"feeSplitBps"`
	CreationFeeNormal  *big.Int `json:"creationFeeNormal"`
	CreationFeeSpecial *big.Int `json:"creationFeeSpecial"`
}

// Clone returns a deep copy of the platform config.
func (p *PlatformConfig) Clone() *PlatformConfig {
	if p == nil {
		return nil
	}
	clone := *p
	if p.CreationFeeNormal != nil {
		clone.CreationFeeNormal = new(big.Int).Set(p.CreationFeeNormal)
	}
	if p.CreationFeeSpecial != nil {
		clone.CreationFeeSpecial = new(big.Int).Set(p.CreationFeeSpecial)
	}
	return &clone
}

// RoundConfig captures one fixed-capacity, fixed-price tranche of the sale.
// Price is the base-asset cost of fixedpoint.Precision units of the new asset.
type RoundConfig struct {
	TotalAmount    *big.Int `json:"totalAmount"`
	RemainedAmount *big.Int `json:"remainedAmount"`
	Price          *big.Int `json:"price"`
}

// Raised reports how many units the round has sold so far.
func (r RoundConfig) Raised() *big.Int {
	if r.TotalAmount == nil || r.RemainedAmount == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Sub(r.TotalAmount, r.RemainedAmount)
}

func (r RoundConfig) clone() RoundConfig {
	clone := r
	if r.TotalAmount != nil {
		clone.TotalAmount = new(big.Int).Set(r.TotalAmount)
	}
	if r.RemainedAmount != nil {
		clone.RemainedAmount = new(big.Int).Set(r.RemainedAmount)
	}
	if r.Price != nil {
		clone.Price = new(big.Int).Set(r.Price)
	}
	return clone
}

// PresaleConfig is the per-creator sale schedule. The round table and window
// are immutable after creation; only the round cursor, raise counters and the
// finalisation flags mutate.
type PresaleConfig struct {
	ID              [32]byte                `json:"id"`
	Creator         [20]byte                `json:"creator"`
	BaseAsset       string                  `json:"baseAsset"`
	NewAsset        string                  `json:"newAsset"`
	Decimals        uint8                   `json:"decimals"`
	StartTime       int64                   `json:"startTime"`
	Duration        int64                   `json:"duration"`
	Rounds          [RoundCount]RoundConfig `json:"rounds"`
	CurrentRound    uint8                   `json:"currentRound"`
	TotalBought     *big.Int                `json:"totalBought"`
	TotalReturned   *big.Int                `json:"totalReturned"`
	TargetAmount    *big.Int                `json:"targetAmount"`
	LiquidityAmount *big.Int                `json:"liquidityAmount"`
	FeeBps          uint32                  `json:"feeBps"`
	FeeMode         FeeMode                 `json:"feeMode"`
	Finalized       bool                    `json:"finalized"`
	Success         bool                    `json:"success"`
}

// EndTime returns the instant the sale window closes.
func (p *PresaleConfig) EndTime() int64 {
	if p == nil {
		return 0
	}
	return p.StartTime + p.Duration
}

// Clone returns a deep copy of the schedule so callers can safely mutate the
// copy without affecting the stored instance.
func (p *PresaleConfig) Clone() *PresaleConfig {
	if p == nil {
		return nil
	}
	clone := *p
	for i := range p.Rounds {
		clone.Rounds[i] = p.Rounds[i].clone()
	}
	if p.TotalBought != nil {
		clone.TotalBought = new(big.Int).Set(p.TotalBought)
	}
	if p.TotalReturned != nil {
		clone.TotalReturned = new(big.Int).Set(p.TotalReturned)
	}
	if p.TargetAmount != nil {
		clone.TargetAmount = new(big.Int).Set(p.TargetAmount)
	}
	if p.LiquidityAmount != nil {
		clone.LiquidityAmount = new(big.Int).Set(p.LiquidityAmount)
	}
	return &clone
}

// UserAllocation records one purchaser's per-round holdings in a sale.
// Amounts carry units of the new asset; BasePaid carries the net base-asset
// contribution that actually reached the vault, so refunds and sell-backs can
// release exactly what was collected regardless of rounding.
type UserAllocation struct {
	Schedule  [32]byte                `json:"schedule"`
	User      [20]byte                `json:"user"`
	Amounts   [RoundCount]*big.Int    `json:"amounts"`
	BasePaid  [RoundCount]*big.Int    `json:"basePaid"`
	Processed bool                    `json:"processed"`
}

// NewUserAllocation returns a zeroed allocation record for the pair.
func NewUserAllocation(schedule [32]byte, user [20]byte) *UserAllocation {
	alloc := &UserAllocation{Schedule: schedule, User: user}
	for i := 0; i < RoundCount; i++ {
		alloc.Amounts[i] = big.NewInt(0)
		alloc.BasePaid[i] = big.NewInt(0)
	}
	return alloc
}

// TotalAmount sums the new-asset units held across all rounds.
func (u *UserAllocation) TotalAmount() *big.Int {
	total := big.NewInt(0)
	if u == nil {
		return total
	}
	for _, amt := range u.Amounts {
		if amt != nil {
			total.Add(total, amt)
		}
	}
	return total
}

// TotalBasePaid sums the net vault contributions across all rounds.
func (u *UserAllocation) TotalBasePaid() *big.Int {
	total := big.NewInt(0)
	if u == nil {
		return total
	}
	for _, paid := range u.BasePaid {
		if paid != nil {
			total.Add(total, paid)
		}
	}
	return total
}

// Clone returns a deep copy of the allocation record.
func (u *UserAllocation) Clone() *UserAllocation {
	if u == nil {
		return nil
	}
	clone := *u
	for i := range u.Amounts {
		if u.Amounts[i] != nil {
			clone.Amounts[i] = new(big.Int).Set(u.Amounts[i])
		} else {
			clone.Amounts[i] = big.NewInt(0)
		}
		if u.BasePaid[i] != nil {
			clone.BasePaid[i] = new(big.Int).Set(u.BasePaid[i])
		} else {
			clone.BasePaid[i] = big.NewInt(0)
		}
	}
	return &clone
}

// ScheduleID derives the deterministic identity of a creator's sale. One sale
// per creator; the identity carries no ownership semantics, it is purely a
// lookup key.
func ScheduleID(creator [20]byte) [32]byte {
	return ethcrypto.Keccak256Hash([]byte(presaleConfigTag), creator[:])
}

// VaultAddress derives the custody address holding a sale's raised funds.
func VaultAddress(schedule [32]byte) [20]byte {
	hash := ethcrypto.Keccak256([]byte(vaultAccountTag), schedule[:])
	var addr [20]byte
	copy(addr[:], hash[:20])
	return addr
}

// AllocationKey derives the lookup key for a purchaser's allocation record.
func AllocationKey(schedule [32]byte, user [20]byte) [32]byte {
	return ethcrypto.Keccak256Hash([]byte(userAllocationTag), schedule[:], user[:])
}

// PlatformKey derives the lookup key for the platform config singleton.
func PlatformKey() [32]byte {
	return ethcrypto.Keccak256Hash([]byte(platformConfigTag))
}

// RoundAmounts returns the per-round sale caps scaled to the token's decimals.
func RoundAmounts(decimals uint8) [RoundCount]*big.Int {
	scale := decimalScale(decimals)
	var amounts [RoundCount]*big.Int
	for i, supply := range roundSupply {
		amounts[i] = new(big.Int).Mul(supply, scale)
	}
	return amounts
}

// TotalSupply returns the full minted supply scaled to the token's decimals.
func TotalSupply(decimals uint8) *big.Int {
	return new(big.Int).Mul(wholeSupply, decimalScale(decimals))
}

func decimalScale(decimals uint8) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
}

// SpecialSymbol reports whether a token symbol qualifies for the special
// creation fee rate.
func SpecialSymbol(symbol string) bool {
	return strings.HasSuffix(strings.ToLower(strings.TrimSpace(symbol)), "safe")
}

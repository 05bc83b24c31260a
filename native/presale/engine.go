package presale

import (
	"math/big"
	"strings"
	"time"

	"launchpad/core/events"
	"launchpad/core/types"
	"launchpad/native/fixedpoint"
)

type engineState interface {
	PlatformGet() (*PlatformConfig, bool, error)
	PlatformPut(*PlatformConfig) error
	PresaleGet(id [32]byte) (*PresaleConfig, bool, error)
	PresalePut(*PresaleConfig) error
	AllocationGet(schedule [32]byte, user [20]byte) (*UserAllocation, bool, error)
	AllocationPut(*UserAllocation) error
	GetAccount(addr []byte) (*types.Account, error)
	PutAccount(addr []byte, account *types.Account) error
}

type presaleEvent struct {
	evt *types.Event
}

func (e presaleEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e presaleEvent) Event() *types.Event { return e.evt }

// Engine wires the presale allocation and settlement logic with external state
// and event emitters. Every exported method is a synchronous, all-or-nothing
// state transition: validation runs to completion before any record or balance
// is touched, and the host serialises calls per schedule.
type Engine struct {
	state   engineState
	emitter events.Emitter
	nowFn   func() int64
}

// NewEngine creates a presale engine with a no-op emitter and wall-clock time.
func NewEngine() *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		nowFn:   func() int64 { return time.Now().Unix() },
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetEmitter configures the event emitter used by the engine. Passing nil
// resets the emitter to a no-op implementation.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetNowFunc overrides the time source used by the engine. Primarily intended
// for tests to provide deterministic timestamps.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

func (e *Engine) emit(evt *types.Event) {
	if e == nil || e.emitter == nil || evt == nil {
		return
	}
	e.emitter.Emit(presaleEvent{evt: evt})
}

func (e *Engine) now() int64 {
	if e == nil || e.nowFn == nil {
		return time.Now().Unix()
	}
	return e.nowFn()
}

func cloneBigInt(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}

func ensureAccount(acc *types.Account) *types.Account {
	if acc == nil {
		return types.NewAccount()
	}
	if acc.Balances == nil {
		acc.Balances = make(map[string]*big.Int)
	}
	return acc
}

func (e *Engine) loadPlatform() (*PlatformConfig, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	cfg, ok, err := e.state.PlatformGet()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotInitialized
	}
	return cfg, nil
}

func (e *Engine) loadPresale(creator [20]byte) (*PresaleConfig, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	sale, ok, err := e.state.PresaleGet(ScheduleID(creator))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrPresaleNotFound
	}
	return sale, nil
}

func (e *Engine) loadOrCreateAllocation(schedule [32]byte, user [20]byte) (*UserAllocation, error) {
	alloc, ok, err := e.state.AllocationGet(schedule, user)
	if err != nil {
		return nil, err
	}
	if !ok {
		return NewUserAllocation(schedule, user), nil
	}
	return alloc, nil
}

func (e *Engine) balanceOf(addr [20]byte, asset string) (*big.Int, error) {
	acc, err := e.state.GetAccount(addr[:])
	if err != nil {
		return nil, err
	}
	return ensureAccount(acc).Balance(asset), nil
}

// transferAsset moves amount of asset between two accounts. A zero amount is a
// no-op; the caller is expected to have validated balances up front so a
// shortfall here still reports ErrInsufficientFunds.
func (e *Engine) transferAsset(from, to [20]byte, asset string, amount *big.Int) error {
	amt := cloneBigInt(amount)
	if amt.Sign() < 0 {
		return ErrInvalidAmount
	}
	if amt.Sign() == 0 {
		return nil
	}
	fromAcc, err := e.state.GetAccount(from[:])
	if err != nil {
		return err
	}
	fromAcc = ensureAccount(fromAcc)
	balance := fromAcc.Balance(asset)
	if balance.Cmp(amt) < 0 {
		return ErrInsufficientFunds
	}
	// A self-transfer settles with the balance check alone. Writing debit and
	// credit through two loaded copies of the same account would let the
	// credit overwrite the debit and mint the amount.
	if from == to {
		return nil
	}
	toAcc, err := e.state.GetAccount(to[:])
	if err != nil {
		return err
	}
	toAcc = ensureAccount(toAcc)
	fromAcc.SetBalance(asset, new(big.Int).Sub(balance, amt))
	toAcc.SetBalance(asset, new(big.Int).Add(toAcc.Balance(asset), amt))
	if err := e.state.PutAccount(from[:], fromAcc); err != nil {
		return err
	}
	return e.state.PutAccount(to[:], toAcc)
}

// mintAsset credits freshly minted units of asset to an account. Only the
// settlement paths mint: claims of the sold token and the creator's liquidity
// tranche.
func (e *Engine) mintAsset(to [20]byte, asset string, amount *big.Int) error {
	amt := cloneBigInt(amount)
	if amt.Sign() < 0 {
		return ErrInvalidAmount
	}
	if amt.Sign() == 0 {
		return nil
	}
	acc, err := e.state.GetAccount(to[:])
	if err != nil {
		return err
	}
	acc = ensureAccount(acc)
	acc.SetBalance(asset, new(big.Int).Add(acc.Balance(asset), amt))
	return e.state.PutAccount(to[:], acc)
}

// InitializePlatform persists the singleton fee-routing configuration. It can
// only ever succeed once.
func (e *Engine) InitializePlatform(platformWallet [20]byte, feeAsset string, feeSplitBps uint32, creationFeeNormal, creationFeeSpecial *big.Int) (*PlatformConfig, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	_, ok, err := e.state.PlatformGet()
	if err != nil {
		return nil, err
	}
	if ok {
		return nil, ErrAlreadyInitialized
	}
	asset := strings.TrimSpace(feeAsset)
	if asset == "" || platformWallet == ([20]byte{}) || feeSplitBps > fixedpoint.PercentDenominator {
		return nil, ErrInvalidConfig
	}
	if (creationFeeNormal != nil && creationFeeNormal.Sign() < 0) ||
		(creationFeeSpecial != nil && creationFeeSpecial.Sign() < 0) {
		return nil, ErrInvalidConfig
	}
	cfg := &PlatformConfig{
		PlatformWallet:     platformWallet,
		FeeAsset:           asset,
		FeeSplitBps:        feeSplitBps,
		CreationFeeNormal:  cloneBigInt(creationFeeNormal),
		CreationFeeSpecial: cloneBigInt(creationFeeSpecial),
	}
	if cfg.CreationFeeNormal.Sign() == 0 {
		cfg.CreationFeeNormal = big.NewInt(DefaultCreationFeeNormal)
	}
	if cfg.CreationFeeSpecial.Sign() == 0 {
		cfg.CreationFeeSpecial = big.NewInt(DefaultCreationFeeSpecial)
	}
	if err := e.state.PlatformPut(cfg); err != nil {
		return nil, err
	}
	e.emit(NewPlatformInitializedEvent(cfg))
	return cfg.Clone(), nil
}

// CreateParams collects the caller-supplied sale configuration. TargetAmount
// is the success threshold for finalisation; zero selects the default of the
// full sale supply.
type CreateParams struct {
	BaseAsset    string
	NewAsset     string
	Decimals     uint8
	StartTime    int64
	Duration     int64
	RoundPrices  [RoundCount]*big.Int
	FeeBps       uint32
	FeeMode      FeeMode
	TargetAmount *big.Int
}

// CreatePresale registers a sale for the creator, derives the round supply
// schedule from the token decimals and charges the flat creation fee. The
// start time may already lie in the past; the window checks in Buy make a
// stale schedule harmless.
func (e *Engine) CreatePresale(creator [20]byte, params CreateParams) (*PresaleConfig, error) {
	platform, err := e.loadPlatform()
	if err != nil {
		return nil, err
	}
	baseAsset := strings.TrimSpace(params.BaseAsset)
	newAsset := strings.TrimSpace(params.NewAsset)
	if baseAsset == "" || newAsset == "" || baseAsset == newAsset {
		return nil, ErrInvalidConfig
	}
	if params.Duration <= 0 || params.FeeBps > fixedpoint.PercentDenominator || !params.FeeMode.Valid() {
		return nil, ErrInvalidConfig
	}
	for _, price := range params.RoundPrices {
		if price == nil || price.Sign() <= 0 {
			return nil, ErrInvalidConfig
		}
	}
	if params.TargetAmount != nil && params.TargetAmount.Sign() < 0 {
		return nil, ErrInvalidConfig
	}
	id := ScheduleID(creator)
	if _, ok, err := e.state.PresaleGet(id); err != nil {
		return nil, err
	} else if ok {
		return nil, ErrPresaleExists
	}

	amounts := RoundAmounts(params.Decimals)
	target := big.NewInt(0)
	for _, amount := range amounts {
		target.Add(target, amount)
	}
	liquidity := new(big.Int).Sub(TotalSupply(params.Decimals), target)
	if params.TargetAmount != nil && params.TargetAmount.Sign() > 0 {
		target = cloneBigInt(params.TargetAmount)
	}

	creationFee := platform.CreationFeeNormal
	if SpecialSymbol(newAsset) {
		creationFee = platform.CreationFeeSpecial
	}
	if err := e.transferAsset(creator, platform.PlatformWallet, platform.FeeAsset, creationFee); err != nil {
		return nil, err
	}

	sale := &PresaleConfig{
		ID:              id,
		Creator:         creator,
		BaseAsset:       baseAsset,
		NewAsset:        newAsset,
		Decimals:        params.Decimals,
		StartTime:       params.StartTime,
		Duration:        params.Duration,
		CurrentRound:    0,
		TotalBought:     big.NewInt(0),
		TotalReturned:   big.NewInt(0),
		TargetAmount:    target,
		LiquidityAmount: liquidity,
		FeeBps:          params.FeeBps,
		FeeMode:         params.FeeMode,
	}
	for i := 0; i < RoundCount; i++ {
		sale.Rounds[i] = RoundConfig{
			TotalAmount:    new(big.Int).Set(amounts[i]),
			RemainedAmount: new(big.Int).Set(amounts[i]),
			Price:          cloneBigInt(params.RoundPrices[i]),
		}
	}
	if err := e.state.PresalePut(sale); err != nil {
		return nil, err
	}
	e.emit(NewCreatedEvent(sale))
	return sale.Clone(), nil
}

// tradeFees splits the bps fee on a base-asset value between the platform
// wallet and the creator's fee destination.
func tradeFees(value *big.Int, feeBps, splitBps uint32) (fee, platformFee, creatorFee *big.Int, err error) {
	fee, err = fixedpoint.Bps(value, feeBps)
	if err != nil {
		return nil, nil, nil, err
	}
	platformFee, err = fixedpoint.Bps(fee, splitBps)
	if err != nil {
		return nil, nil, nil, err
	}
	creatorFee = new(big.Int).Sub(fee, platformFee)
	return fee, platformFee, creatorFee, nil
}

// Buy purchases up to amount units of the sold token from the sale's current
// round, clamping the request to the round's remaining capacity. It returns
// the actually filled amount so callers can detect partial fills.
func (e *Engine) Buy(creator, user [20]byte, round uint8, amount *big.Int) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	if round >= RoundCount {
		return nil, ErrInvalidRound
	}
	if amount == nil || amount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	platform, err := e.loadPlatform()
	if err != nil {
		return nil, err
	}
	sale, err := e.loadPresale(creator)
	if err != nil {
		return nil, err
	}
	now := e.now()
	if now < sale.StartTime {
		return nil, ErrPresaleNotStarted
	}
	if round != sale.CurrentRound {
		return nil, ErrRoundNotStarted
	}
	if now >= sale.EndTime() {
		return nil, ErrPresaleEnded
	}

	// The final round additionally re-sells capacity surrendered by earlier
	// sell-backs.
	remaining := cloneBigInt(sale.Rounds[round].RemainedAmount)
	if round == RoundCount-1 {
		remaining.Add(remaining, sale.TotalReturned)
	}
	if remaining.Sign() <= 0 {
		return nil, ErrRoundFull
	}
	filled := cloneBigInt(amount)
	if filled.Cmp(remaining) > 0 {
		filled.Set(remaining)
	}

	cost, err := fixedpoint.Cost(filled, sale.Rounds[round].Price)
	if err != nil {
		return nil, err
	}
	fee, platformFee, creatorFee, err := tradeFees(cost, sale.FeeBps, platform.FeeSplitBps)
	if err != nil {
		return nil, err
	}
	vaultCredit := new(big.Int).Set(cost)
	if sale.FeeMode == FeeDeducted {
		vaultCredit.Sub(vaultCredit, fee)
	}
	// Total debit is vault credit plus fee in either mode: additive charges
	// the fee on top of the cost, deducted carves it out.
	totalDebit := new(big.Int).Add(vaultCredit, fee)
	balance, err := e.balanceOf(user, sale.BaseAsset)
	if err != nil {
		return nil, err
	}
	if balance.Cmp(totalDebit) < 0 {
		return nil, ErrInsufficientFunds
	}

	alloc, err := e.loadOrCreateAllocation(sale.ID, user)
	if err != nil {
		return nil, err
	}

	vault := VaultAddress(sale.ID)
	if err := e.transferAsset(user, vault, sale.BaseAsset, vaultCredit); err != nil {
		return nil, err
	}
	if err := e.transferAsset(user, platform.PlatformWallet, sale.BaseAsset, platformFee); err != nil {
		return nil, err
	}
	if err := e.transferAsset(user, sale.Creator, sale.BaseAsset, creatorFee); err != nil {
		return nil, err
	}

	// Capacity bookkeeping: the round's own remainder drains first, then the
	// returned pool on the final round.
	fromRound := cloneBigInt(filled)
	if fromRound.Cmp(sale.Rounds[round].RemainedAmount) > 0 {
		fromRound.Set(sale.Rounds[round].RemainedAmount)
	}
	fromReturned := new(big.Int).Sub(filled, fromRound)
	sale.Rounds[round].RemainedAmount = new(big.Int).Sub(sale.Rounds[round].RemainedAmount, fromRound)
	sale.TotalReturned = new(big.Int).Sub(sale.TotalReturned, fromReturned)
	sale.TotalBought = new(big.Int).Add(sale.TotalBought, filled)

	exhausted := sale.Rounds[round].RemainedAmount.Sign() == 0
	if round == RoundCount-1 {
		exhausted = exhausted && sale.TotalReturned.Sign() == 0
	}
	if exhausted && round < RoundCount-1 {
		sale.CurrentRound = round + 1
	}

	alloc.Amounts[round] = new(big.Int).Add(alloc.Amounts[round], filled)
	alloc.BasePaid[round] = new(big.Int).Add(alloc.BasePaid[round], vaultCredit)

	if err := e.state.PresalePut(sale); err != nil {
		return nil, err
	}
	if err := e.state.AllocationPut(alloc); err != nil {
		return nil, err
	}
	e.emit(NewPurchasedEvent(sale, user, round, filled, vaultCredit, fee))
	return filled, nil
}

// Sell surrenders part of an allocation back to the sale while the window is
// open. Past rounds are always sellable; the current round only when it is the
// final one. The vault releases the seller's pro-rata contribution minus the
// bps fee, and the surrendered units become re-buyable in the final round.
func (e *Engine) Sell(creator, user [20]byte, round uint8, amount *big.Int) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	if round >= RoundCount {
		return nil, ErrInvalidRound
	}
	if amount == nil || amount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	platform, err := e.loadPlatform()
	if err != nil {
		return nil, err
	}
	sale, err := e.loadPresale(creator)
	if err != nil {
		return nil, err
	}
	if sale.Finalized {
		return nil, ErrAlreadyFinalized
	}
	if e.now() >= sale.EndTime() {
		return nil, ErrPresaleEnded
	}
	if round > sale.CurrentRound {
		return nil, ErrRoundNotStarted
	}
	if round == sale.CurrentRound && round != RoundCount-1 {
		return nil, ErrNotFinalRound
	}
	alloc, ok, err := e.state.AllocationGet(sale.ID, user)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrAllocationNotFound
	}
	held := alloc.Amounts[round]
	if held == nil || amount.Cmp(held) > 0 {
		return nil, ErrInvalidAmount
	}

	// Release the pro-rata share of what this user actually contributed for
	// the round, never a price recomputation, so the vault cannot be
	// overdrawn by rounding.
	vaultShare, err := fixedpoint.MulDiv(alloc.BasePaid[round], amount, held)
	if err != nil {
		return nil, err
	}
	fee, platformFee, creatorFee, err := tradeFees(vaultShare, sale.FeeBps, platform.FeeSplitBps)
	if err != nil {
		return nil, err
	}
	returned := new(big.Int).Sub(vaultShare, fee)

	vault := VaultAddress(sale.ID)
	if err := e.transferAsset(vault, user, sale.BaseAsset, returned); err != nil {
		return nil, err
	}
	if err := e.transferAsset(vault, platform.PlatformWallet, sale.BaseAsset, platformFee); err != nil {
		return nil, err
	}
	if err := e.transferAsset(vault, sale.Creator, sale.BaseAsset, creatorFee); err != nil {
		return nil, err
	}

	alloc.Amounts[round] = new(big.Int).Sub(held, amount)
	alloc.BasePaid[round] = new(big.Int).Sub(alloc.BasePaid[round], vaultShare)
	sale.Rounds[round].RemainedAmount = new(big.Int).Add(sale.Rounds[round].RemainedAmount, amount)
	sale.TotalBought = new(big.Int).Sub(sale.TotalBought, amount)
	// Units surrendered from past rounds are only reachable again through the
	// final round's returned pool. Final-round units go straight back into the
	// round's own remainder; counting them in the pool as well would double
	// the sellable capacity.
	if round < RoundCount-1 {
		sale.TotalReturned = new(big.Int).Add(sale.TotalReturned, amount)
	}

	if err := e.state.PresalePut(sale); err != nil {
		return nil, err
	}
	if err := e.state.AllocationPut(alloc); err != nil {
		return nil, err
	}
	e.emit(NewSoldBackEvent(sale, user, round, amount, returned, fee))
	return returned, nil
}

package presale

import (
	"math/big"
	"testing"
)

func TestRoundAmountsScaleWithDecimals(t *testing.T) {
	plain := RoundAmounts(0)
	want := []int64{245_000_000, 235_000_000, 215_000_000, 105_000_000}
	for i, amount := range plain {
		if amount.Int64() != want[i] {
			t.Fatalf("round %d = %s, want %d", i, amount, want[i])
		}
	}

	scaled := RoundAmounts(3)
	for i, amount := range scaled {
		if amount.Int64() != want[i]*1_000 {
			t.Fatalf("round %d scaled = %s, want %d", i, amount, want[i]*1_000)
		}
	}

	total := big.NewInt(0)
	for _, amount := range plain {
		total.Add(total, amount)
	}
	if rest := new(big.Int).Sub(TotalSupply(0), total); rest.Int64() != 200_000_000 {
		t.Fatalf("liquidity remainder = %s, want 200000000", rest)
	}
}

func TestDerivedIdentitiesAreStable(t *testing.T) {
	creatorA := addr(0x10)
	creatorB := addr(0x11)

	if ScheduleID(creatorA) != ScheduleID(creatorA) {
		t.Fatal("schedule id must be deterministic")
	}
	if ScheduleID(creatorA) == ScheduleID(creatorB) {
		t.Fatal("schedule ids must differ per creator")
	}

	id := ScheduleID(creatorA)
	if VaultAddress(id) == ([20]byte{}) {
		t.Fatal("vault address must be derived")
	}
	if VaultAddress(id) != VaultAddress(id) {
		t.Fatal("vault address must be deterministic")
	}
	if AllocationKey(id, creatorA) == AllocationKey(id, creatorB) {
		t.Fatal("allocation keys must differ per user")
	}
}

func TestSpecialSymbol(t *testing.T) {
	cases := map[string]bool{
		"MOONSAFE":  true,
		"moonsafe":  true,
		"  xSafe  ": true,
		"SAFEMOON":  false,
		"LPT":       false,
		"":          false,
	}
	for symbol, want := range cases {
		if got := SpecialSymbol(symbol); got != want {
			t.Fatalf("SpecialSymbol(%q) = %v, want %v", symbol, got, want)
		}
	}
}

func TestFeeModeValid(t *testing.T) {
	if !FeeAdditive.Valid() || !FeeDeducted.Valid() {
		t.Fatal("known modes must validate")
	}
	if FeeMode(9).Valid() {
		t.Fatal("unknown mode must not validate")
	}
}

func TestPresaleConfigCloneIsDeep(t *testing.T) {
	sale := &PresaleConfig{
		ID:              ScheduleID(addr(0x10)),
		TotalBought:     big.NewInt(7),
		TotalReturned:   big.NewInt(0),
		TargetAmount:    big.NewInt(100),
		LiquidityAmount: big.NewInt(3),
	}
	for i := 0; i < RoundCount; i++ {
		sale.Rounds[i] = RoundConfig{
			TotalAmount:    big.NewInt(10),
			RemainedAmount: big.NewInt(10),
			Price:          big.NewInt(1),
		}
	}
	clone := sale.Clone()
	clone.TotalBought.SetInt64(99)
	clone.Rounds[0].RemainedAmount.SetInt64(0)
	if sale.TotalBought.Int64() != 7 {
		t.Fatal("clone shares TotalBought")
	}
	if sale.Rounds[0].RemainedAmount.Int64() != 10 {
		t.Fatal("clone shares round state")
	}
}

func TestUserAllocationTotals(t *testing.T) {
	alloc := NewUserAllocation(ScheduleID(addr(0x10)), addr(0x01))
	alloc.Amounts[0] = big.NewInt(5)
	alloc.Amounts[3] = big.NewInt(7)
	alloc.BasePaid[0] = big.NewInt(50)
	alloc.BasePaid[3] = big.NewInt(70)
	if alloc.TotalAmount().Int64() != 12 {
		t.Fatalf("total amount = %s, want 12", alloc.TotalAmount())
	}
	if alloc.TotalBasePaid().Int64() != 120 {
		t.Fatalf("total base paid = %s, want 120", alloc.TotalBasePaid())
	}

	clone := alloc.Clone()
	clone.Amounts[0].SetInt64(0)
	if alloc.Amounts[0].Int64() != 5 {
		t.Fatal("clone shares amount slots")
	}
}

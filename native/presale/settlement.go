package presale

import "math/big"

// Finalize closes the sale after its window elapses and decides the outcome:
// success when the total bought amount reaches the target, failure otherwise.
// On success the vault's proceeds are routed to the creator and the reserved
// liquidity tranche of the new asset is minted to them; on failure the vault
// is retained so purchasers can be refunded. Finalize succeeds at most once
// per sale.
func (e *Engine) Finalize(creator [20]byte) (bool, error) {
	if e == nil || e.state == nil {
		return false, ErrNilState
	}
	sale, err := e.loadPresale(creator)
	if err != nil {
		return false, err
	}
	if sale.Finalized {
		return false, ErrAlreadyFinalized
	}
	if e.now() < sale.EndTime() {
		return false, ErrPresaleNotEnded
	}
	sale.Finalized = true
	sale.Success = sale.TotalBought.Cmp(sale.TargetAmount) >= 0

	if sale.Success {
		vault := VaultAddress(sale.ID)
		proceeds, err := e.balanceOf(vault, sale.BaseAsset)
		if err != nil {
			return false, err
		}
		if err := e.transferAsset(vault, sale.Creator, sale.BaseAsset, proceeds); err != nil {
			return false, err
		}
		if err := e.mintAsset(sale.Creator, sale.NewAsset, sale.LiquidityAmount); err != nil {
			return false, err
		}
	}
	if err := e.state.PresalePut(sale); err != nil {
		return false, err
	}
	e.emit(NewFinalizedEvent(sale))
	return sale.Success, nil
}

// ClaimOrRefund settles a single purchaser exactly once after finalisation.
// A successful sale mints the summed allocation of the new asset to the user;
// a failed one refunds the user's net base-asset contribution from the vault.
// Fees are never refunded.
func (e *Engine) ClaimOrRefund(creator, user [20]byte) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	sale, err := e.loadPresale(creator)
	if err != nil {
		return nil, err
	}
	if !sale.Finalized {
		return nil, ErrNotFinalized
	}
	alloc, ok, err := e.state.AllocationGet(sale.ID, user)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrAllocationNotFound
	}
	if alloc.Processed {
		return nil, ErrAlreadyClaimed
	}

	var transferred *big.Int
	if sale.Success {
		transferred = alloc.TotalAmount()
		if err := e.mintAsset(user, sale.NewAsset, transferred); err != nil {
			return nil, err
		}
	} else {
		transferred = alloc.TotalBasePaid()
		vault := VaultAddress(sale.ID)
		if err := e.transferAsset(vault, user, sale.BaseAsset, transferred); err != nil {
			return nil, err
		}
	}

	alloc.Processed = true
	if err := e.state.AllocationPut(alloc); err != nil {
		return nil, err
	}
	if sale.Success {
		e.emit(NewClaimedEvent(sale, user, transferred))
	} else {
		e.emit(NewRefundedEvent(sale, user, transferred))
	}
	return new(big.Int).Set(transferred), nil
}

package presale

import (
	"encoding/hex"
	"math/big"
	"strconv"

	"launchpad/core/types"
)

const (
	EventTypePlatformInitialized = "presale.platform_initialized"
	EventTypeCreated             = "presale.created"
	EventTypePurchased           = "presale.purchased"
	EventTypeSoldBack            = "presale.sold_back"
	EventTypeFinalized           = "presale.finalized"
	EventTypeClaimed             = "presale.claimed"
	EventTypeRefunded            = "presale.refunded"
)

// NewPlatformInitializedEvent returns the canonical payload emitted when the
// platform registry is bootstrapped.
func NewPlatformInitializedEvent(cfg *PlatformConfig) *types.Event {
	attrs := make(map[string]string)
	if cfg != nil {
		attrs["platformWallet"] = hex.EncodeToString(cfg.PlatformWallet[:])
		attrs["feeAsset"] = cfg.FeeAsset
		attrs["feeSplitBps"] = strconv.FormatUint(uint64(cfg.FeeSplitBps), 10)
	}
	return &types.Event{Type: EventTypePlatformInitialized, Attributes: attrs}
}

// NewCreatedEvent returns the canonical payload for a newly registered sale.
func NewCreatedEvent(sale *PresaleConfig) *types.Event {
	return &types.Event{Type: EventTypeCreated, Attributes: saleAttrs(sale)}
}

// NewPurchasedEvent reports a fill, including the clamped amount so observers
// can detect partial fills.
func NewPurchasedEvent(sale *PresaleConfig, user [20]byte, round uint8, filled, vaultCredit, fee *big.Int) *types.Event {
	attrs := saleAttrs(sale)
	attrs["user"] = hex.EncodeToString(user[:])
	attrs["round"] = strconv.FormatUint(uint64(round), 10)
	attrs["filled"] = bigString(filled)
	attrs["vaultCredit"] = bigString(vaultCredit)
	attrs["fee"] = bigString(fee)
	return &types.Event{Type: EventTypePurchased, Attributes: attrs}
}

// NewSoldBackEvent reports a sell-back and the base amount released.
func NewSoldBackEvent(sale *PresaleConfig, user [20]byte, round uint8, amount, returned, fee *big.Int) *types.Event {
	attrs := saleAttrs(sale)
	attrs["user"] = hex.EncodeToString(user[:])
	attrs["round"] = strconv.FormatUint(uint64(round), 10)
	attrs["amount"] = bigString(amount)
	attrs["returned"] = bigString(returned)
	attrs["fee"] = bigString(fee)
	return &types.Event{Type: EventTypeSoldBack, Attributes: attrs}
}

// NewFinalizedEvent reports the one-time outcome decision.
func NewFinalizedEvent(sale *PresaleConfig) *types.Event {
	attrs := saleAttrs(sale)
	if sale != nil {
		attrs["success"] = strconv.FormatBool(sale.Success)
		attrs["totalBought"] = bigString(sale.TotalBought)
		attrs["targetAmount"] = bigString(sale.TargetAmount)
	}
	return &types.Event{Type: EventTypeFinalized, Attributes: attrs}
}

// NewClaimedEvent reports a per-user claim of the sold token.
func NewClaimedEvent(sale *PresaleConfig, user [20]byte, amount *big.Int) *types.Event {
	attrs := saleAttrs(sale)
	attrs["user"] = hex.EncodeToString(user[:])
	attrs["amount"] = bigString(amount)
	return &types.Event{Type: EventTypeClaimed, Attributes: attrs}
}

// NewRefundedEvent reports a per-user refund of contributed funds.
func NewRefundedEvent(sale *PresaleConfig, user [20]byte, amount *big.Int) *types.Event {
	attrs := saleAttrs(sale)
	attrs["user"] = hex.EncodeToString(user[:])
	attrs["amount"] = bigString(amount)
	return &types.Event{Type: EventTypeRefunded, Attributes: attrs}
}

func saleAttrs(sale *PresaleConfig) map[string]string {
	attrs := make(map[string]string)
	if sale == nil {
		return attrs
	}
	attrs["schedule"] = hex.EncodeToString(sale.ID[:])
	attrs["creator"] = hex.EncodeToString(sale.Creator[:])
	attrs["baseAsset"] = sale.BaseAsset
	attrs["newAsset"] = sale.NewAsset
	attrs["currentRound"] = strconv.FormatUint(uint64(sale.CurrentRound), 10)
	return attrs
}

func bigString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

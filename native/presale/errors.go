package presale

import "errors"

// Validation failures surfaced by the engine. All of them are synchronous and
// non-retryable; every failure leaves state untouched.
var (
	ErrNilState           = errors.New("presale engine: state not configured")
	ErrAlreadyInitialized = errors.New("presale engine: platform already initialized")
	ErrNotInitialized     = errors.New("presale engine: platform not initialized")
	ErrInvalidConfig      = errors.New("presale engine: invalid sale configuration")
	ErrPresaleExists      = errors.New("presale engine: creator already has a sale")
	ErrPresaleNotFound    = errors.New("presale engine: sale not found")
	ErrPresaleNotStarted  = errors.New("presale engine: sale not started")
	ErrPresaleEnded       = errors.New("presale engine: sale window closed")
	ErrPresaleNotEnded    = errors.New("presale engine: sale window still open")
	ErrRoundNotStarted    = errors.New("presale engine: round not started")
	ErrNotFinalRound      = errors.New("presale engine: sell-back requires a past or final round")
	ErrRoundFull          = errors.New("presale engine: round capacity exhausted")
	ErrInvalidRound       = errors.New("presale engine: round index out of range")
	ErrInvalidAmount      = errors.New("presale engine: amount must be positive")
	ErrInsufficientFunds  = errors.New("presale engine: insufficient balance")
	ErrAlreadyFinalized   = errors.New("presale engine: sale already finalized")
	ErrNotFinalized       = errors.New("presale engine: sale not finalized")
	ErrAllocationNotFound = errors.New("presale engine: allocation not found")
	ErrAlreadyClaimed     = errors.New("presale engine: allocation already claimed or refunded")
)

package domain

import (
	"errors"
	"fmt"
)

// Trade submission failures. Each is terminal for that submission: state is
// left unchanged and the reason is surfaced verbatim to the caller.
var (
	// ErrInvalidQuantity indicates a non-positive share count.
	ErrInvalidQuantity = errors.New("shares must be greater than 0")

	// ErrInsufficientShares indicates a sell exceeding the held share count.
	ErrInsufficientShares = errors.New("insufficient shares to sell")

	// ErrInsufficientBalance indicates a buy whose cost exceeds the liquid balance.
	ErrInsufficientBalance = errors.New("insufficient WeedCoins balance")

	// ErrRejectedByMarket indicates the exchange denied the trade
	// (stale price, delisted strain, server-side validation).
	ErrRejectedByMarket = errors.New("trade rejected by market")

	// ErrUnknownStrain indicates a strain id absent from the registry.
	// Deltas referencing unknown strains are ignored; trades are rejected.
	ErrUnknownStrain = errors.New("unknown strain")

	// ErrSessionInvalid indicates the bearer token was refused by the
	// exchange. Surfaced upward without retry; re-authentication is the
	// auth collaborator's job.
	ErrSessionInvalid = errors.New("session invalid")
)

// MarketRejection wraps the exchange's human-readable rejection detail.
// errors.Is(err, ErrRejectedByMarket) matches it.
type MarketRejection struct {
	Detail string
}

func (e *MarketRejection) Error() string {
	if e.Detail == "" {
		return ErrRejectedByMarket.Error()
	}
	return fmt.Sprintf("trade rejected by market: %s", e.Detail)
}

func (e *MarketRejection) Unwrap() error {
	return ErrRejectedByMarket
}

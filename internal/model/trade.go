package model

import (
	"time"

	"main/internal/model/enum"
)

// ResultMessageExhausted is the sentinel message a replay venue reports once
// its price series has run out. It flows through the normal completion
// callback and is not an error.
const ResultMessageExhausted = "game-over"

// TradeRequest is one order issued by a strategy. ID is the correlation key
// for reconciliation: unique per outstanding request, chosen by the issuer,
// never by the venue. Immutable once submitted.
type TradeRequest struct {
	ID       string
	Kind     enum.RequestKind
	Market   string
	Price    Price
	Amount   Amount
	IssuedAt time.Time
}

// TradeResult is one venue report for a submitted request. Zero or more
// requested-state results may precede exactly one terminal done/error result
// for the same request id.
type TradeResult struct {
	Request   TradeRequest
	Kind      enum.RequestKind
	Price     Price
	Amount    Amount
	Message   string
	State     enum.ResultState
	SettledAt time.Time
}

// IsTerminal reports whether this result closes out its request.
func (r TradeResult) IsTerminal() bool {
	return r.State.IsTerminal()
}

// IsExhausted reports whether this result carries the replay-exhausted sentinel.
func (r TradeResult) IsExhausted() bool {
	return r.Message == ResultMessageExhausted
}

// NewRequestedResult builds the acceptance notification for a request.
func NewRequestedResult(req TradeRequest, now time.Time) TradeResult {
	return TradeResult{
		Request:   req,
		Kind:      req.Kind,
		Price:     req.Price,
		Amount:    req.Amount,
		State:     enum.ResultStateRequested,
		SettledAt: now,
	}
}

// NewErrorResult builds the single terminal error notification for a request.
func NewErrorResult(req TradeRequest, msg string, now time.Time) TradeResult {
	return TradeResult{
		Request:   req,
		Kind:      req.Kind,
		Message:   msg,
		State:     enum.ResultStateError,
		SettledAt: now,
	}
}

package exception

import "errors"

var (
	ErrOrderInvalidRequest      = errors.New("order: invalid request")
	ErrOrderDuplicateRequest    = errors.New("order: duplicate request id")
	ErrOrderUnsupportedVenue    = errors.New("order: unsupported venue")
	ErrOrderInsufficientBalance = errors.New("order: insufficient balance")
	ErrOrderInsufficientAsset   = errors.New("order: insufficient asset")
	ErrOrderRiskDenied          = errors.New("order: denied by risk limits")
	ErrOrderVenueRejected       = errors.New("order: rejected by venue")
	ErrOrderDecodeResponseBody  = errors.New("order: decode response body")
	ErrOrderEmptyResponseID     = errors.New("order: empty response order id")
)

package enum

type RequestKind uint8

const (
	_request_kind_beg RequestKind = iota
	RequestKindBuy
	RequestKindSell
	RequestKindCancel
	_request_kind_end
)

func (k RequestKind) IsAvailable() bool {
	return k > _request_kind_beg && k < _request_kind_end
}

func (k RequestKind) String() string {
	switch k {
	case RequestKindBuy:
		return "buy"
	case RequestKindSell:
		return "sell"
	case RequestKindCancel:
		return "cancel"
	default:
		return "unknown"
	}
}

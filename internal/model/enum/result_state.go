package enum

type ResultState uint8

const (
	_result_state_beg ResultState = iota
	// ResultStateRequested means the venue accepted the order but has not filled it.
	ResultStateRequested
	ResultStateDone
	ResultStateError
	_result_state_end
)

func (s ResultState) IsAvailable() bool {
	return s > _result_state_beg && s < _result_state_end
}

// IsTerminal reports whether no further result may follow for the same request.
func (s ResultState) IsTerminal() bool {
	return s == ResultStateDone || s == ResultStateError
}

func (s ResultState) String() string {
	switch s {
	case ResultStateRequested:
		return "requested"
	case ResultStateDone:
		return "done"
	case ResultStateError:
		return "error"
	default:
		return "unknown"
	}
}

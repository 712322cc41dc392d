package enum

type Venue uint8

const (
	_venue_beg Venue = iota
	VenueSimulation
	VenueUpbit
	_venue_end
)

func (v Venue) IsAvailable() bool {
	return v > _venue_beg && v < _venue_end
}

func (v Venue) String() string {
	switch v {
	case VenueSimulation:
		return "sim"
	case VenueUpbit:
		return "upbit"
	default:
		return "unknown"
	}
}

// ParseVenue resolves a venue code from configuration.
func ParseVenue(code string) (Venue, bool) {
	switch code {
	case "sim", "simulation":
		return VenueSimulation, true
	case "upbit":
		return VenueUpbit, true
	default:
		return _venue_beg, false
	}
}

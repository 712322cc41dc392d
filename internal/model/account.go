package model

import "time"

// Holding is the position in a single asset.
type Holding struct {
	AvgPrice Price
	Amount   Amount
}

// AccountSnapshot is a venue's view of the account at a point in time.
// Produced on demand by an order gateway, never mutated by consumers.
type AccountSnapshot struct {
	Cash     Price
	Holdings map[string]Holding
	Quotes   map[string]Price
	AsOf     time.Time
}

// EstimatedValue returns cash plus holdings valued at the snapshot quotes.
func (s AccountSnapshot) EstimatedValue() Price {
	total := s.Cash
	for asset, holding := range s.Holdings {
		quote, ok := s.Quotes[asset]
		if !ok || holding.Amount <= 0 {
			continue
		}
		notional, overflow := Notional(quote, holding.Amount)
		if overflow {
			continue
		}
		total += notional
	}
	return total
}

// Clone returns a deep copy safe to hand across goroutines.
func (s AccountSnapshot) Clone() AccountSnapshot {
	out := AccountSnapshot{
		Cash:     s.Cash,
		Holdings: make(map[string]Holding, len(s.Holdings)),
		Quotes:   make(map[string]Price, len(s.Quotes)),
		AsOf:     s.AsOf,
	}
	for k, v := range s.Holdings {
		out.Holdings[k] = v
	}
	for k, v := range s.Quotes {
		out.Quotes[k] = v
	}
	return out
}

package model

import "time"

// ReportSummary is the closing report built when an operator stops or a
// replay terminates.
type ReportSummary struct {
	Budget         Price
	Cash           Price
	EstimatedValue Price
	// ReturnRate is the percentage gain over the budget.
	ReturnRate float64
	// PriceChangeRate is the percentage move of each traded market between
	// the first and last observed snapshot.
	PriceChangeRate map[string]float64
	From            time.Time
	To              time.Time
	ResultCount     int
}

package upbit

import "github.com/yanun0323/decimal"

type responseError struct {
	Error struct {
		Name    string `json:"name"`
		Message string `json:"message"`
	} `json:"error"`
}

type responseOrder struct {
	UUID           string          `json:"uuid"`
	Side           string          `json:"side"`
	OrdType        string          `json:"ord_type"`
	Price          decimal.Decimal `json:"price"`
	State          string          `json:"state"`
	Market         string          `json:"market"`
	Volume         decimal.Decimal `json:"volume"`
	RemainVolume   decimal.Decimal `json:"remaining_volume"`
	ExecutedVolume decimal.Decimal `json:"executed_volume"`
	PaidFee        decimal.Decimal `json:"paid_fee"`
	Trades         []responseTrade `json:"trades"`
}

type responseTrade struct {
	Price  decimal.Decimal `json:"price"`
	Volume decimal.Decimal `json:"volume"`
	Funds  decimal.Decimal `json:"funds"`
	Side   string          `json:"side"`
}

type responseAccount struct {
	Currency     string          `json:"currency"`
	Balance      decimal.Decimal `json:"balance"`
	Locked       decimal.Decimal `json:"locked"`
	AvgBuyPrice  decimal.Decimal `json:"avg_buy_price"`
	UnitCurrency string          `json:"unit_currency"`
}

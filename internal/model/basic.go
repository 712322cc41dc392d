package model

import (
	"strconv"
	"strings"

	"main/pkg/exception"
)

const maxInt64 = int64(^uint64(0) >> 1)

// AmountScale is the fixed scale for Amount values: 1 unit == 1e-8 of the asset.
const AmountScale = 100_000_000

// Price is a scaled integer in whole currency units.
type Price int64

// Amount is a scaled integer at 1e-8 asset units.
type Amount int64

func (p Price) String() string {
	return strconv.FormatInt(int64(p), 10)
}

func (a Amount) String() string {
	return string(a.AppendString(nil))
}

func (a Amount) AppendString(buf []byte) []byte {
	return appendScaledInt(buf, int64(a), 8)
}

// Notional returns the whole-currency value of amount at price,
// rounded half up. The second result reports int64 overflow.
func Notional(price Price, amount Amount) (Price, bool) {
	p, a := int64(price), int64(amount)
	if p < 0 {
		p = -p
	}
	if a < 0 {
		a = -a
	}
	if p == 0 || a == 0 {
		return 0, false
	}
	if p > maxInt64/a {
		return 0, true
	}
	n := RoundDiv(p*a, AmountScale)
	if price < 0 != (amount < 0) {
		n = -n
	}
	return Price(n), false
}

// Commission returns the fee on a notional at the given basis points,
// rounded half up to whole currency units.
func Commission(notional Price, bps int64) Price {
	if notional <= 0 || bps <= 0 {
		return 0
	}
	return Price(RoundDiv(int64(notional)*bps, 10_000))
}

// RoundDiv divides value by scale rounding half up. scale must be positive.
func RoundDiv(value, scale int64) int64 {
	if scale <= 0 {
		return value
	}
	if value >= 0 {
		return (value + scale/2) / scale
	}
	return -((-value + scale/2) / scale)
}

// ParsePrice parses a decimal string into whole currency units, rounding half up.
func ParsePrice(s string) (Price, error) {
	v, err := parseScaled(s, 0)
	if err != nil {
		return 0, err
	}
	return Price(v), nil
}

// ParseAmount parses a decimal string into 1e-8 asset units, rounding
// half up on the ninth decimal place.
func ParseAmount(s string) (Amount, error) {
	v, err := parseScaled(s, 8)
	if err != nil {
		return 0, err
	}
	return Amount(v), nil
}

func parseScaled(s string, scale int) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, exception.ErrDataMalformed
	}

	neg := false
	switch s[0] {
	case '-':
		neg = true
		s = s[1:]
	case '+':
		s = s[1:]
	}

	intPart, fracPart, _ := strings.Cut(s, ".")
	if intPart == "" {
		intPart = "0"
	}

	v, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return 0, exception.ErrDataMalformed
	}
	for i := 0; i < scale; i++ {
		if v > maxInt64/10 {
			return 0, exception.ErrDataMalformed
		}
		v *= 10
	}

	if len(fracPart) > 0 {
		// Every fractional character must be a digit, including the ones
		// past the scale that only steer rounding.
		for i := 0; i < len(fracPart); i++ {
			if fracPart[i] < '0' || fracPart[i] > '9' {
				return 0, exception.ErrDataMalformed
			}
		}
		frac := int64(0)
		rounder := int64(0)
		for i := 0; i < scale && i < len(fracPart); i++ {
			frac = frac*10 + int64(fracPart[i]-'0')
		}
		if len(fracPart) < scale {
			for i := 0; i < scale-len(fracPart); i++ {
				frac *= 10
			}
		} else if len(fracPart) > scale && fracPart[scale] >= '5' {
			rounder = 1
		}
		v += frac + rounder
	}

	if neg {
		v = -v
	}
	return v, nil
}

func appendScaledInt(buf []byte, value int64, scale int) []byte {
	if scale <= 0 {
		return strconv.AppendInt(buf, value, 10)
	}

	neg := value < 0
	u := uint64(value)
	if neg {
		u = uint64(^value) + 1
	}

	var tmp [32]byte
	digits := strconv.AppendUint(tmp[:0], u, 10)

	if neg {
		buf = append(buf, '-')
	}

	if len(digits) <= scale {
		buf = append(buf, '0', '.')
		for i := 0; i < scale-len(digits); i++ {
			buf = append(buf, '0')
		}
		buf = append(buf, digits...)
		return buf
	}

	idx := len(digits) - scale
	buf = append(buf, digits[:idx]...)
	buf = append(buf, '.')
	buf = append(buf, digits[idx:]...)
	return buf
}

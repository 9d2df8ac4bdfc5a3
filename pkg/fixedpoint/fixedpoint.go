// Package fixedpoint provides exact decimal arithmetic for prices and
// notionals, avoiding the float64 rounding error that would otherwise
// leak into spread and profit calculations.
package fixedpoint

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// PricePrecision is the number of decimal places a Price18 carries:
// one payout unit split into 18 decimal places, mirroring on-chain
// outcome-token precision.
const PricePrecision = 18

// USDTPrecision is the number of decimal places a USDT6 carries.
const USDTPrecision = 6

// Price18 is a fraction of one payout unit, exact to 18 decimal places.
type Price18 struct {
	d decimal.Decimal
}

// USDT6 is a USDT notional, exact to 6 decimal places.
type USDT6 struct {
	d decimal.Decimal
}

// One is the guaranteed payout of one complementary pair: 1.000000000000000000.
func One() Price18 {
	return Price18{d: decimal.New(1, 0)}
}

// ZeroPrice is the additive identity for Price18.
func ZeroPrice() Price18 {
	return Price18{}
}

// ZeroUSDT is the additive identity for USDT6.
func ZeroUSDT() USDT6 {
	return USDT6{}
}

// NewPriceFromString parses a decimal string (e.g. "0.55") into a Price18.
func NewPriceFromString(s string) (Price18, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Price18{}, fmt.Errorf("parse price %q: %w", s, err)
	}
	return Price18{d: d.Round(PricePrecision)}, nil
}

// NewPriceFromFloat builds a Price18 from a float64. Only ever call this
// at an external-API boundary where the venue itself hands back a float.
func NewPriceFromFloat(f float64) Price18 {
	return Price18{d: decimal.NewFromFloat(f).Round(PricePrecision)}
}

// NewUSDTFromString parses a decimal string into a USDT6.
func NewUSDTFromString(s string) (USDT6, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return USDT6{}, fmt.Errorf("parse usdt %q: %w", s, err)
	}
	return USDT6{d: d.Round(USDTPrecision)}, nil
}

// NewUSDTFromFloat builds a USDT6 from a float64 at an API boundary.
func NewUSDTFromFloat(f float64) USDT6 {
	return USDT6{d: decimal.NewFromFloat(f).Round(USDTPrecision)}
}

// NewUSDTFromRaw6 builds a USDT6 from a raw integer already scaled to 6
// decimal places, the representation config bigint fields (e.g. a
// position-size or daily-loss limit expressed in USDT's on-chain units) use.
func NewUSDTFromRaw6(raw *big.Int) USDT6 {
	if raw == nil {
		return USDT6{}
	}
	return USDT6{d: decimal.NewFromBigInt(raw, -USDTPrecision)}
}

func (p Price18) String() string { return p.d.StringFixed(PricePrecision) }
func (u USDT6) String() string   { return u.d.StringFixed(USDTPrecision) }

// Float64 exposes the value as a float64, only for logging/metrics.
func (p Price18) Float64() float64 { f, _ := p.d.Float64(); return f }
func (u USDT6) Float64() float64   { f, _ := u.d.Float64(); return f }

// Add, Sub, Mul on Price18 keep the result at 18-dp precision.
func (p Price18) Add(o Price18) Price18 { return Price18{d: p.d.Add(o.d).Round(PricePrecision)} }
func (p Price18) Sub(o Price18) Price18 { return Price18{d: p.d.Sub(o.d).Round(PricePrecision)} }

// MulUSDT multiplies a price fraction by a USDT notional, returning USDT6.
func (p Price18) MulUSDT(u USDT6) USDT6 {
	return USDT6{d: p.d.Mul(u.d).Round(USDTPrecision)}
}

func (p Price18) LessThan(o Price18) bool     { return p.d.LessThan(o.d) }
func (p Price18) GreaterThan(o Price18) bool  { return p.d.GreaterThan(o.d) }
func (p Price18) LessThanEq(o Price18) bool   { return p.d.LessThanOrEqual(o.d) }
func (p Price18) GreaterThanEq(o Price18) bool { return p.d.GreaterThanOrEqual(o.d) }
func (p Price18) IsZero() bool                { return p.d.IsZero() }
func (p Price18) IsPositive() bool            { return p.d.IsPositive() }
func (p Price18) IsNegative() bool            { return p.d.IsNegative() }

func (u USDT6) Add(o USDT6) USDT6 { return USDT6{d: u.d.Add(o.d).Round(USDTPrecision)} }
func (u USDT6) Sub(o USDT6) USDT6 { return USDT6{d: u.d.Sub(o.d).Round(USDTPrecision)} }
func (u USDT6) LessThan(o USDT6) bool    { return u.d.LessThan(o.d) }
func (u USDT6) GreaterThan(o USDT6) bool { return u.d.GreaterThan(o.d) }
func (u USDT6) LessThanEq(o USDT6) bool  { return u.d.LessThanOrEqual(o.d) }
func (u USDT6) IsZero() bool             { return u.d.IsZero() }
func (u USDT6) IsPositive() bool         { return u.d.IsPositive() }

// Min returns the smaller of two USDT6 values.
func Min(a, b USDT6) USDT6 {
	if a.LessThan(b) {
		return a
	}
	return b
}

// DivUSDT divides a USDT6 notional by a Price18 fraction, yielding a raw
// share count expressed as a USDT6-precision decimal (shares, not dollars).
func DivUSDT(notional USDT6, price Price18) USDT6 {
	if price.IsZero() {
		return USDT6{}
	}
	return USDT6{d: notional.d.DivRound(price.d, USDTPrecision)}
}

// BasisPoints converts a fractional spread (e.g. 0.0125) into whole bps,
// rounded half-away-from-zero per spec.
func (p Price18) BasisPoints() int {
	bps := p.d.Mul(decimal.NewFromInt(10000)).Round(0)
	return int(bps.IntPart())
}

// MarshalJSON renders as a decimal string, the one JSON boundary where
// fixed-point values cross into the outside world.
func (p Price18) MarshalJSON() ([]byte, error) {
	return []byte(`"` + p.String() + `"`), nil
}

// UnmarshalJSON parses a decimal string back into a Price18.
func (p *Price18) UnmarshalJSON(data []byte) error {
	s := string(data)
	s = trimQuotes(s)
	v, err := NewPriceFromString(s)
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// MarshalJSON renders as a decimal string.
func (u USDT6) MarshalJSON() ([]byte, error) {
	return []byte(`"` + u.String() + `"`), nil
}

// UnmarshalJSON parses a decimal string back into a USDT6.
func (u *USDT6) UnmarshalJSON(data []byte) error {
	s := string(data)
	s = trimQuotes(s)
	v, err := NewUSDTFromString(s)
	if err != nil {
		return err
	}
	*u = v
	return nil
}

func trimQuotes(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}

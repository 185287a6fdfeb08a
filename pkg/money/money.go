// Package money holds the fixed-point currency type used by the ledger.
//
// Amounts are integer cents in memory, decimal(12,2) in the database and
// two-digit decimal numbers on the wire.
package money

import (
	"database/sql/driver"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Cents is an amount of currency in hundredths of the unit.
type Cents int64

// MaxAmount is the largest magnitude a decimal(12,2) column holds.
const MaxAmount Cents = 999_999_999_999

var (
	ErrTooPrecise = errors.New("amount has more than 2 decimal places")
	ErrOutOfRange = errors.New("amount is out of range")

	hundred   = decimal.NewFromInt(100)
	maxScaled = decimal.NewFromInt(int64(MaxAmount))
)

// FromDecimal converts d to cents, refusing sub-cent precision and
// magnitudes above MaxAmount.
func FromDecimal(d decimal.Decimal) (Cents, error) {
	scaled := d.Mul(hundred)
	if !scaled.Equal(scaled.Truncate(0)) {
		return 0, ErrTooPrecise
	}
	if scaled.Abs().GreaterThan(maxScaled) {
		return 0, ErrOutOfRange
	}
	return Cents(scaled.IntPart()), nil
}

// Parse reads a decimal string such as "100.50".
func Parse(s string) (Cents, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return FromDecimal(d)
}

// MustParse is Parse for constants and tests.
func MustParse(s string) Cents {
	c, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return c
}

// FromUnits builds an amount from whole currency units.
func FromUnits(units int64) Cents {
	return Cents(units * 100)
}

func (c Cents) Decimal() decimal.Decimal {
	return decimal.New(int64(c), -2)
}

func (c Cents) String() string {
	return c.Decimal().StringFixed(2)
}

// Mul multiplies by a quantity, failing when the product leaves the
// MaxAmount range.
func (c Cents) Mul(qty int) (Cents, error) {
	if c < -MaxAmount || c > MaxAmount {
		return 0, ErrOutOfRange
	}
	abs, q := c, int64(qty)
	if abs < 0 {
		abs = -abs
	}
	if q < 0 {
		q = -q
	}
	if q != 0 && int64(abs) > int64(MaxAmount)/q {
		return 0, ErrOutOfRange
	}
	return c * Cents(qty), nil
}

func (c Cents) IsPositive() bool { return c > 0 }

func (c Cents) MarshalJSON() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalJSON accepts both 12.5 and "12.50".
func (c *Cents) UnmarshalJSON(data []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(data); err != nil {
		return fmt.Errorf("invalid amount: %w", err)
	}
	v, err := FromDecimal(d)
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// Value stores the amount as a two-digit decimal string.
func (c Cents) Value() (driver.Value, error) {
	return c.String(), nil
}

func (c *Cents) Scan(value interface{}) error {
	var d decimal.Decimal
	if err := d.Scan(value); err != nil {
		return err
	}
	*c = Cents(d.Mul(hundred).Round(0).IntPart())
	return nil
}

package money

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// Scale is the number of fractional digits carried by an Amount.
const Scale = 2

var (
	// ErrInvalidAmount is returned when a value is not a positive decimal
	// with at most two fractional digits.
	ErrInvalidAmount = errors.New("invalid amount")

	decimalPattern = regexp.MustCompile(`^[0-9]+(\.[0-9]+)?$`)
	maxMinorUnits  = decimal.NewFromInt(math.MaxInt64)
)

// Amount represents a monetary amount as an integer in the smallest currency
// unit (cents). Arithmetic on balances happens in storage; this type only
// crosses the API and service boundaries.
type Amount int64

// Parse converts a decimal string such as "40.00" into an Amount.
// Invariants enforced:
//   - plain digits with an optional fractional part, no sign or exponent
//   - strictly positive
//   - exactly representable in cents ("10.999" is rejected, "10.990" is 10.99)
func Parse(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	if !decimalPattern.MatchString(s) {
		return 0, fmt.Errorf("%w: %q is not a decimal number", ErrInvalidAmount, s)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidAmount, err)
	}
	if !d.IsPositive() {
		return 0, fmt.Errorf("%w: must be positive", ErrInvalidAmount)
	}
	minor := d.Shift(Scale)
	if !minor.Equal(minor.Truncate(0)) {
		return 0, fmt.Errorf("%w: more than %d decimal places", ErrInvalidAmount, Scale)
	}
	if minor.GreaterThan(maxMinorUnits) {
		return 0, fmt.Errorf("%w: out of range", ErrInvalidAmount)
	}
	return Amount(minor.IntPart()), nil
}

// MustParse is Parse for constants; it panics on error.
func MustParse(s string) Amount {
	a, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return a
}

// FromCents builds an Amount from minor units.
func FromCents(cents int64) Amount {
	return Amount(cents)
}

// Cents returns the amount in minor units.
func (a Amount) Cents() int64 {
	return int64(a)
}

// Decimal returns the amount as a decimal in major units.
func (a Amount) Decimal() decimal.Decimal {
	return decimal.New(int64(a), -Scale)
}

// String formats the amount with exactly two fractional digits.
func (a Amount) String() string {
	return a.Decimal().StringFixed(Scale)
}

// MarshalJSON renders the amount as a decimal string so clients never see
// binary floating point.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(`"` + a.String() + `"`), nil
}

// UnmarshalJSON accepts the decimal string form produced by MarshalJSON.
// Zero is allowed here because balances may be zero.
func (a *Amount) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "0" || s == "0.00" {
		*a = 0
		return nil
	}
	v, err := Parse(s)
	if err != nil {
		return err
	}
	*a = v
	return nil
}

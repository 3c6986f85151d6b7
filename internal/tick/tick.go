// Package tick implements the bijection between human-readable decimal
// strings and integer tick counts used on the wire by the market-data
// ingest normalizer. The matching engine works on tick counts directly.
package tick

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	// ErrMalformed is returned when the input string is not a valid,
	// unsigned, non-exponential decimal.
	ErrMalformed = errors.New("tick: malformed decimal string")

	// ErrNotAligned is returned when the decimal value is not an exact
	// multiple of 1/unit.
	ErrNotAligned = errors.New("tick: value is not tick-aligned")
)

// decimalPattern matches an unsigned decimal with no exponent and no sign,
// e.g. "1278.853", "100", ".5" is rejected (leading digit required, as is
// trailing-digit after a dot) to keep the grammar unambiguous.
var decimalPattern = regexp.MustCompile(`^[0-9]+(\.[0-9]+)?$`)

// Tick converts between decimal strings and integer tick counts for a
// fixed unit, e.g. unit 1000 means three decimal places are significant.
type Tick struct {
	unit    uint64
	unitExp int32 // log10(unit); unit is always a power of ten
	unitDiv uint64
	unitDec decimal.Decimal
}

// New constructs a Tick for the given positive unit. unit must be a power
// of ten (1, 10, 100, ...) so that the implied decimal precision is exact.
func New(unit uint64) (Tick, error) {
	if unit == 0 {
		return Tick{}, fmt.Errorf("tick: unit must be positive")
	}
	exp, err := exponentOf(unit)
	if err != nil {
		return Tick{}, err
	}
	return Tick{
		unit:    unit,
		unitExp: exp,
		unitDiv: unit,
		unitDec: decimal.New(int64(unit), 0),
	}, nil
}

// MustNew is like New but panics on error. Intended for package-level
// construction of well-known tick units.
func MustNew(unit uint64) Tick {
	t, err := New(unit)
	if err != nil {
		panic(err)
	}
	return t
}

func exponentOf(unit uint64) (int32, error) {
	var exp int32
	for u := unit; u > 1; u /= 10 {
		if u%10 != 0 {
			return 0, fmt.Errorf("tick: unit %d is not a power of ten", unit)
		}
		exp++
	}
	return exp, nil
}

// ToTicks parses a human decimal representation and returns its integer
// tick count. It fails if the string is malformed or the implied value is
// not an exact multiple of 1/unit.
func (t Tick) ToTicks(s string) (uint64, error) {
	if !decimalPattern.MatchString(s) {
		return 0, fmt.Errorf("%w: %q", ErrMalformed, s)
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	scaled := d.Mul(t.unitDec)
	rounded := scaled.Truncate(0)
	if !scaled.Equal(rounded) {
		return 0, fmt.Errorf("%w: %s is not a multiple of 1/%d", ErrNotAligned, s, t.unit)
	}

	bi := rounded.BigInt()
	if !bi.IsUint64() {
		return 0, fmt.Errorf("%w: %s overflows", ErrMalformed, s)
	}
	return bi.Uint64(), nil
}

// FromTicks produces the canonical decimal string for n ticks: no trailing
// zeros beyond the tick's implied precision, and no decimal point at all
// when the value is whole.
func (t Tick) FromTicks(n uint64) string {
	if t.unitExp == 0 {
		return strconv.FormatUint(n, 10)
	}

	intPart := n / t.unitDiv
	fracPart := n % t.unitDiv

	fracStr := fmt.Sprintf("%0*d", t.unitExp, fracPart)
	fracStr = strings.TrimRight(fracStr, "0")

	if fracStr == "" {
		return strconv.FormatUint(intPart, 10)
	}
	return strconv.FormatUint(intPart, 10) + "." + fracStr
}

// Unit returns the configured tick unit.
func (t Tick) Unit() uint64 {
	return t.unit
}

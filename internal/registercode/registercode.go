// Package registercode derives the production-register identifiers of a lot:
// the hybrid/production code printed on each unit and its serial number.
//
// A lot carries a four-character base code. The first three characters are a
// fixed prefix; the fourth is a seed whose character value moves forward by one
// for every 1000 units of the lot. Serial numbers are contiguous, starting at the
// lab-result serial recorded on the production.
package registercode

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// UnitsPerCodeStep is the number of registers sharing the same trailing code character.
const UnitsPerCodeStep = 1000

var (
	ErrInvalidCode     = errors.New("each production code part must be exactly one character")
	ErrInvalidQuantity = errors.New("lot quantity must be greater than zero")
	ErrInvalidSerial   = errors.New("starting serial number must be a positive integer")
	ErrCodeOverflow    = errors.New("lot quantity pushes the production code past its character range")
)

// Codes is the four-part base code of a production.
type Codes struct {
	Code1 string
	Code2 string
	Code3 string
	Code4 string
}

// Prefix returns the fixed part of the code (code_1 + code_2 + code_3).
func (c Codes) Prefix() string {
	return c.Code1 + c.Code2 + c.Code3
}

// seed returns the first rune of Code4 and whether one exists.
func (c Codes) seed() (rune, bool) {
	if c.Code4 == "" {
		return 0, false
	}
	r, _ := utf8.DecodeRuneInString(c.Code4)
	return r, true
}

// Range is the computed first/last code and serial of a lot.
type Range struct {
	StartCode   string `json:"start_code"`
	EndCode     string `json:"end_code"`
	StartSerial int64  `json:"start_serial"`
	EndSerial   int64  `json:"end_serial"`
	Increment   int    `json:"increment"`
	Quantity    int    `json:"quantity"`
}

// Compute derives the display range of a lot. It never fails: a zero quantity or
// serial yields a zero end serial, and a seed character is advanced without any
// range check (use Validate before generating rows).
func Compute(codes Codes, quantity int, serialStart int64) Range {
	r := Range{
		Quantity:    quantity,
		StartSerial: serialStart,
	}
	if quantity > 0 {
		r.Increment = (quantity - 1) / UnitsPerCodeStep
	}

	prefix := codes.Prefix()
	if seed, ok := codes.seed(); ok {
		r.StartCode = prefix + string(seed)
		r.EndCode = prefix + string(seed+rune(r.Increment))
	} else {
		r.StartCode = prefix
		r.EndCode = prefix
	}

	if serialStart != 0 && quantity != 0 {
		r.EndSerial = serialStart + int64(quantity) - 1
	}
	return r
}

// CodeAt returns the production code of the register at zero-based position index.
func CodeAt(codes Codes, index int) string {
	seed, ok := codes.seed()
	if !ok {
		return codes.Prefix()
	}
	return codes.Prefix() + string(seed+rune(index/UnitsPerCodeStep))
}

// SerialAt returns the serial number of the register at zero-based position index.
func SerialAt(serialStart int64, index int) int64 {
	return serialStart + int64(index)
}

// ParseSerial reads a stored serial string. Empty or non-numeric input is read as 0.
func ParseSerial(s string) int64 {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// Validate applies the checks required before rows are generated. The trailing
// character of the last code must stay in the same class (digit, upper or lower
// case letter) as the seed.
func Validate(codes Codes, quantity int, serialStart int64) error {
	for _, part := range []string{codes.Code1, codes.Code2, codes.Code3, codes.Code4} {
		if utf8.RuneCountInString(part) != 1 {
			return ErrInvalidCode
		}
	}
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	if serialStart <= 0 {
		return ErrInvalidSerial
	}

	seed, _ := codes.seed()
	last := seed + rune((quantity-1)/UnitsPerCodeStep)
	lo, hi, ok := charClass(seed)
	if !ok {
		return fmt.Errorf("%w: seed %q is not alphanumeric", ErrInvalidCode, seed)
	}
	if last < lo || last > hi {
		return fmt.Errorf("%w: %q + %d", ErrCodeOverflow, seed, last-seed)
	}
	return nil
}

func charClass(r rune) (lo, hi rune, ok bool) {
	switch {
	case r >= '0' && r <= '9':
		return '0', '9', true
	case r >= 'A' && r <= 'Z':
		return 'A', 'Z', true
	case r >= 'a' && r <= 'z':
		return 'a', 'z', true
	}
	return 0, 0, false
}

type batchTier struct {
	maxQuantity int
	size        int
}

// batchTiers maps total lot quantity to the number of rows sent per insert.
var batchTiers = []batchTier{
	{maxQuantity: 1000, size: 250},
	{maxQuantity: 5000, size: 500},
	{maxQuantity: 20000, size: 1000},
}

const maxBatchSize = 2000

// BatchSize returns the chunk size used to insert a lot of the given quantity.
func BatchSize(quantity int) int {
	for _, t := range batchTiers {
		if quantity <= t.maxQuantity {
			return t.size
		}
	}
	return maxBatchSize
}

// BatchCount returns how many chunks a lot of the given quantity is split into.
func BatchCount(quantity int) int {
	if quantity <= 0 {
		return 0
	}
	size := BatchSize(quantity)
	return (quantity + size - 1) / size
}

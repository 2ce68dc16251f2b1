// Package format renders machine words for display.
package format

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/ezrec/microasm/translate"
)

var f = translate.From

// ErrRadixInvalid is an unknown radix name.
var ErrRadixInvalid = errors.New(f("radix invalid"))

// Radix is a display base.
type Radix int

const (
	DECIMAL     = Radix(0) // dec
	HEXADECIMAL = Radix(1) // hex
	BINARY      = Radix(2) // bin

	RADIX_COUNT = 3
)

var radixName = [RADIX_COUNT]string{"dec", "hex", "bin"}

func (radix Radix) String() string {
	if radix < 0 || radix >= RADIX_COUNT {
		return fmt.Sprintf("Radix(%d)", int(radix))
	}
	return radixName[radix]
}

// Next returns the following radix, wrapping around.
func (radix Radix) Next() Radix {
	return (radix + 1) % RADIX_COUNT
}

// ParseRadix accepts "dec", "hex" or "bin" (and their long forms).
func ParseRadix(name string) (radix Radix, err error) {
	switch strings.ToLower(name) {
	case "dec", "decimal", "10":
		radix = DECIMAL
	case "hex", "hexadecimal", "16":
		radix = HEXADECIMAL
	case "bin", "binary", "2":
		radix = BINARY
	default:
		err = ErrRadixInvalid
	}
	return
}

// Decimal returns the signed decimal text of value.
func Decimal(value int16) string {
	return strconv.Itoa(int(value))
}

// Hex returns 0x followed by four uppercase hex digits.
func Hex(value int16) string {
	return fmt.Sprintf("0x%04X", uint16(value))
}

// Binary returns 0b followed by sixteen binary digits.
func Binary(value int16) string {
	return fmt.Sprintf("0b%016b", uint16(value))
}

// Value renders value in the given radix.
func Value(value int16, radix Radix) string {
	switch radix {
	case HEXADECIMAL:
		return Hex(value)
	case BINARY:
		return Binary(value)
	default:
		return Decimal(value)
	}
}

// Func returns a formatting function for the radix.
func (radix Radix) Func() func(value int16) string {
	return func(value int16) string {
		return Value(value, radix)
	}
}

// Width returns the widest text Value produces for the radix.
func (radix Radix) Width() int {
	switch radix {
	case HEXADECIMAL:
		return 6
	case BINARY:
		return 18
	default:
		return 6
	}
}

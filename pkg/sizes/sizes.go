// Package sizes converts the human readable sizes printed on listing pages
// into exact byte counts.
package sizes

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
)

// ErrParse is matched by every error returned from Parse
var ErrParse = errors.New("malformed size token")

// ParseError reports a size token that could not be normalized
type ParseError struct {
	Token  string
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse size %q: %s: %v", e.Token, e.Reason, e.Err)
	}
	return fmt.Sprintf("parse size %q: %s", e.Token, e.Reason)
}

// Is makes errors.Is(err, ErrParse) true for any ParseError
func (e *ParseError) Is(target error) bool {
	return target == ErrParse
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Separators accepted between magnitude and unit, tried in order.
// The HTML tokenizer decodes &nbsp; to U+00A0; the raw entity shows up
// when a token is taken from undecoded markup.
var separators = []string{"&nbsp;", "\u00a0", " "}

// units maps a listing unit to the IEC name go-humanize understands.
// Listing units are binary multiples even though they are printed as kb/mb/gb.
var units = map[string]string{
	"b":     "b",
	"byte":  "b",
	"bytes": "b",
	"kb":    "kib",
	"mb":    "mib",
	"gb":    "gib",
}

// Parse normalizes a token such as "31.1 GB" or "712&nbsp;MB" into bytes.
// The magnitude is multiplied by 1024^n for the unit and truncated.
func Parse(token string) (uint64, error) {
	magnitude, unit, ok := split(token)
	if !ok {
		return 0, &ParseError{Token: token, Reason: "no separator between magnitude and unit"}
	}

	if !isDecimal(magnitude) {
		return 0, &ParseError{Token: token, Reason: "magnitude is not a decimal number"}
	}
	if _, err := strconv.ParseFloat(magnitude, 64); err != nil {
		return 0, &ParseError{Token: token, Reason: "magnitude is not a decimal number", Err: err}
	}

	iec, ok := units[strings.ToLower(unit)]
	if !ok {
		return 0, &ParseError{Token: token, Reason: fmt.Sprintf("unrecognized unit %q", unit)}
	}

	n, err := humanize.ParseBytes(magnitude + " " + iec)
	if err != nil {
		return 0, &ParseError{Token: token, Reason: "out of range", Err: err}
	}
	return n, nil
}

// MustParse is like Parse but panics on malformed tokens. Intended for tests
// and constant tables.
func MustParse(token string) uint64 {
	n, err := Parse(token)
	if err != nil {
		panic(err)
	}
	return n
}

// Format renders a byte count with IEC units, e.g. "31 GiB".
func Format(n uint64) string {
	return humanize.IBytes(n)
}

func split(token string) (string, string, bool) {
	token = strings.TrimSpace(token)
	for _, sep := range separators {
		if magnitude, unit, found := strings.Cut(token, sep); found {
			magnitude = strings.TrimSpace(magnitude)
			unit = strings.TrimSpace(unit)
			if magnitude == "" || unit == "" {
				return "", "", false
			}
			return magnitude, unit, true
		}
	}
	return "", "", false
}

// isDecimal accepts digits with at most one decimal point. Signs, exponents
// and grouping commas are rejected so that the byte count always derives
// from a plain magnitude.
func isDecimal(s string) bool {
	digits, dots := 0, 0
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r == '.':
			dots++
		default:
			return false
		}
	}
	return digits > 0 && dots <= 1
}

package sizes

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		token string
		want  uint64
	}{
		{name: "bytes", token: "512 b", want: 512},
		{name: "bytes long unit", token: "512 bytes", want: 512},
		{name: "kilobytes", token: "1024 kb", want: 1024 * 1024},
		{name: "megabytes", token: "2 MB", want: 2 * 1024 * 1024},
		{name: "gigabytes fractional", token: "1.5 GB", want: 1610612736},
		{name: "mixed case unit", token: "3 Mb", want: 3 * 1024 * 1024},
		{name: "non-breaking space", token: "31.1\u00a0GB", want: 33393370726},
		{name: "entity separator", token: "712&nbsp;MB", want: 712 * 1024 * 1024},
		{name: "truncates fraction of a byte", token: "1.1 kb", want: 1126},
		{name: "zero", token: "0 GB", want: 0},
		{name: "surrounding whitespace", token: "  7 kb ", want: 7 * 1024},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.token)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name  string
		token string
	}{
		{name: "no separator", token: "12MB"},
		{name: "empty", token: ""},
		{name: "missing unit", token: "12 "},
		{name: "not a number", token: "twelve MB"},
		{name: "negative", token: "-1 MB"},
		{name: "exponent", token: "1e3 kb"},
		{name: "two dots", token: "1.2.3 kb"},
		{name: "unknown unit", token: "3 TB"},
		{name: "unknown unit word", token: "3 lots"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.token)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrParse))

			var pe *ParseError
			require.True(t, errors.As(err, &pe))
			assert.Equal(t, tt.token, pe.Token)
		})
	}
}

func TestParseMonotonic(t *testing.T) {
	for _, unit := range []string{"b", "kb", "mb", "gb"} {
		t.Run(unit, func(t *testing.T) {
			var prev uint64
			for _, magnitude := range []string{"0", "0.1", "0.5", "1", "1.01", "2", "10.7", "100", "1023.9"} {
				got, err := Parse(magnitude + " " + unit)
				require.NoError(t, err)
				assert.GreaterOrEqual(t, got, prev, "%s %s", magnitude, unit)
				prev = got
			}
		})
	}
}

func TestMustParsePanics(t *testing.T) {
	assert.Equal(t, uint64(2048), MustParse("2 kb"))
	assert.Panics(t, func() { MustParse("nope") })
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "1.0 KiB", Format(1024))
	assert.Equal(t, "512 B", Format(512))
}

package money_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sidrat/treasury-engine/money"
)

func TestFromStorage(t *testing.T) {
	assert.Equal(t, "1952.14", money.FromStorage(195214))
	assert.Equal(t, "1000.00", money.FromStorage(100000))
	assert.Equal(t, "0.05", money.FromStorage(5))
	assert.Equal(t, "0.00", money.FromStorage(0))
}

func TestToStorage(t *testing.T) {
	cases := []struct {
		in   string
		want int64
	}{
		{"1952.14", 195214},
		{"1000.00", 100000},
		{"1000", 100000},
		{"0.05", 5},
		{"0.5", 50},
		{"19", 1900},
	}
	for _, c := range cases {
		got, err := money.ToStorage(c.in)
		require.NoError(t, err, "input %q", c.in)
		assert.Equal(t, c.want, got, "input %q", c.in)
	}
}

func TestToStorage_TruncatesExtraDigits(t *testing.T) {
	got, err := money.ToStorage("1.999")
	require.NoError(t, err)
	assert.Equal(t, int64(199), got)
}

func TestToStorage_RejectsGarbage(t *testing.T) {
	for _, in := range []string{"", "abc", "12.3.4", "19 BD"} {
		_, err := money.ToStorage(in)
		require.Error(t, err, "input %q", in)

		var parseErr *money.ParseError
		assert.True(t, errors.As(err, &parseErr), "input %q should yield ParseError", in)
		assert.Equal(t, in, parseErr.Input)
	}
}

func TestRoundTrip(t *testing.T) {
	// to_storage(from_storage(x)) == x for all valid x >= 0.
	for _, x := range []int64{0, 1, 5, 99, 100, 101, 195214, 100000, 987654321} {
		got, err := money.ToStorage(money.FromStorage(x))
		require.NoError(t, err)
		assert.Equal(t, x, got)
	}
}

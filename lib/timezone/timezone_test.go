package timezone

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	cases := []struct {
		value    string
		expected time.Time
	}{
		{value: "05/03/2024", expected: time.Date(2024, time.March, 5, 0, 0, 0, 0, Location)},
		{value: " 31/12/1999 ", expected: time.Date(1999, time.December, 31, 0, 0, 0, 0, Location)},
	}
	for _, test := range cases {
		parsed, err := ParseDate(test.value)
		require.NoError(t, err)
		require.True(t, test.expected.Equal(parsed), "%s != %s", test.expected, parsed)
	}

	_, err := ParseDate("2024-03-05")
	require.Error(t, err)
}

func TestNowIsInPortalLocation(t *testing.T) {
	require.Equal(t, Location, Now().Location())
}

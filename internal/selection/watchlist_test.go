package selection

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseWatchlist(t *testing.T) {
	input := strings.Join([]string{
		"2025-06-09,600519.XSHG,000001.XSHE",
		"",
		"2025-06-10",
		"2025-06-11,300750.XSHE",
		"  ",
		"2025-06-12, 600036.XSHG , ",
	}, "\n")

	list, err := ParseWatchlist(strings.NewReader(input))
	require.NoError(t, err)

	// Blank and date-only lines are skipped.
	require.Len(t, list, 3)
	assert.Equal(t, []string{"600519.XSHG", "000001.XSHE"}, list["2025-06-09"])
	assert.Equal(t, []string{"300750.XSHE"}, list["2025-06-11"])
	assert.Equal(t, []string{"600036.XSHG"}, list["2025-06-12"])

	assert.Equal(t, []string{"300750.XSHE"}, list.For(time.Date(2025, 6, 11, 0, 0, 0, 0, time.UTC)))
	assert.Nil(t, list.For(time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)))
}

func TestParseWatchlistInvalidDate(t *testing.T) {
	_, err := ParseWatchlist(strings.NewReader("not-a-date,600519.XSHG\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 1")
}

func TestParseWatchlistEmpty(t *testing.T) {
	list, err := ParseWatchlist(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, list)
}

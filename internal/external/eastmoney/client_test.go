package eastmoney

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minqi/bottomfisher/internal/contracts"
)

func TestParseKlinesDaily(t *testing.T) {
	klines := []string{
		"2025-06-09,10.20,10.80,11.00,10.00,123456",
		"2025-06-10,10.85,10.60,10.90,10.50,98765",
	}

	candles, err := parseKlines(klines, contracts.ResolutionDaily)
	require.NoError(t, err)
	require.Len(t, candles, 2)

	assert.InDelta(t, 10.20, candles[0].Open, 1e-9)
	assert.InDelta(t, 10.80, candles[0].Close, 1e-9)
	assert.InDelta(t, 11.00, candles[0].High, 1e-9)
	assert.InDelta(t, 10.00, candles[0].Low, 1e-9)
	assert.InDelta(t, 123456, candles[0].Volume, 1e-9)
	assert.Equal(t, time.Date(2025, 6, 9, 0, 0, 0, 0, time.UTC), candles[0].Timestamp)
	assert.Equal(t, contracts.ResolutionDaily, candles[0].Resolution)
}

func TestParseKlinesMinute(t *testing.T) {
	klines := []string{"2025-06-09 09:31,10.20,10.22,10.23,10.19,3456"}

	candles, err := parseKlines(klines, contracts.ResolutionMinute)
	require.NoError(t, err)
	require.Len(t, candles, 1)
	assert.Equal(t, time.Date(2025, 6, 9, 9, 31, 0, 0, time.UTC), candles[0].Timestamp)
	assert.Equal(t, contracts.ResolutionMinute, candles[0].Resolution)
}

func TestParseKlinesMalformed(t *testing.T) {
	tests := []struct {
		name   string
		klines []string
	}{
		{"too few fields", []string{"2025-06-09,10.20,10.80"}},
		{"bad timestamp", []string{"notadate,10.20,10.80,11.00,10.00,1"}},
		{"bad number", []string{"2025-06-09,10.20,abc,11.00,10.00,1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseKlines(tt.klines, contracts.ResolutionDaily)
			assert.Error(t, err)
		})
	}
}

func TestSecID(t *testing.T) {
	tests := []struct {
		code    string
		want    string
		wantErr bool
	}{
		{"600519.XSHG", "1.600519", false},
		{"000001.XSHE", "0.000001", false},
		{"600519", "", true},
		{"600519.NYSE", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			got, err := secID(tt.code)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseBoardHTML(t *testing.T) {
	html := `
		<html><body><table><tbody>
			<tr><td>600519</td><td>贵州茅台</td></tr>
			<tr><td>000001</td><td>平安银行</td></tr>
			<tr><td>600519</td><td>duplicate</td></tr>
			<tr><td>序号</td><td>header row</td></tr>
		</tbody></table></body></html>
	`

	codes, err := parseBoardHTML(strings.NewReader(html))
	require.NoError(t, err)
	assert.Equal(t, []string{"600519.XSHG", "000001.XSHE"}, codes)
}

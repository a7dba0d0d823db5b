package execution

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveSymbol(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"plain ticker", "NVDA", "NVDA"},
		{"lowercase", "nvda", "NVDA"},
		{"surrounding whitespace", "  AAPL  ", "AAPL"},
		{"name with parenthetical", "S&P500 ETF (SPY)", "SPY"},
		{"parenthetical with spaces", "Vanguard Total Market (  VTI )", "VTI"},
		{"etf suffix", "SPY ETF", "SPY"},
		{"stock suffix", "NVDA Stock", "NVDA"},
		{"shares suffix", "AAPL Shares", "AAPL"},
		{"stray parens", "(QQQ", "QQQ"},
		{"empty parenthetical falls back", "NVDA ()", "NVDA"},
		{"empty", "", ""},
		{"only whitespace", "   ", ""},
		{"only decoration", "ETF", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveSymbol(tt.raw))
		})
	}
}

func TestParseAction(t *testing.T) {
	for _, raw := range []string{"buy", "sell", "hold"} {
		action, err := ParseAction(raw)
		require.NoError(t, err)
		assert.Equal(t, Action(raw), action)
	}

	_, err := ParseAction("short")
	assert.Error(t, err)
	_, err = ParseAction("BUY")
	assert.Error(t, err)
}

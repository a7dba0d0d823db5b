package execution

import "strings"

// decorationWords are qualifiers the oracle sometimes appends to a ticker.
var decorationWords = []string{"ETF", "Stock", "Shares"}

// ResolveSymbol extracts a best-effort canonical ticker from the free-text
// symbol the oracle supplied. "S&P500 ETF (SPY)" resolves to "SPY". Returns
// the empty string when nothing usable remains.
func ResolveSymbol(raw string) string {
	ticker := strings.TrimSpace(raw)
	if ticker == "" {
		return ""
	}

	// Prefer a trailing parenthetical: that is where the oracle puts the
	// actual symbol when it writes out the instrument name.
	if open := strings.LastIndex(ticker, "("); open >= 0 {
		if close := strings.LastIndex(ticker, ")"); close > open {
			candidate := ticker[open+1 : close]
			if strings.TrimSpace(candidate) != "" {
				ticker = candidate
			}
		}
	}

	for _, word := range decorationWords {
		ticker = strings.ReplaceAll(ticker, word, "")
	}

	ticker = strings.ReplaceAll(ticker, "(", "")
	ticker = strings.ReplaceAll(ticker, ")", "")
	ticker = strings.TrimSpace(ticker)

	return strings.ToUpper(ticker)
}

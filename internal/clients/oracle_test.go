package clients

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adobi/dtrader/internal/modules/execution"
	"github.com/adobi/dtrader/internal/modules/intake"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{
			"strict object passes through",
			`{"headlines": ["a"], "insights": "b"}`,
			`{"headlines": ["a"], "insights": "b"}`,
		},
		{
			"strict list passes through",
			`[{"action": "buy"}]`,
			`[{"action": "buy"}]`,
		},
		{
			"object wrapped in prose",
			`Here is my analysis: {"headlines": ["a"], "insights": "b"} Hope that helps!`,
			`{"headlines": ["a"], "insights": "b"}`,
		},
		{
			"list wrapped in prose",
			`Sure! [{"action": "buy", "ticker": "NVDA"}] as requested.`,
			`[{"action": "buy", "ticker": "NVDA"}]`,
		},
		{
			"fenced code block",
			"```json\n{\"insights\": \"calm\"}\n```",
			`{"insights": "calm"}`,
		},
		{
			"no json returns input",
			"I cannot produce a recommendation today.",
			"I cannot produce a recommendation today.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractJSON(tt.content))
		})
	}
}

func TestParseDecisionList(t *testing.T) {
	list, err := parseDecisionList(`[{"action": "buy", "ticker": "NVDA", "amount_usd": 500, "reason": "momentum"}]`)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "buy", list[0].Action)
	assert.Equal(t, "NVDA", list[0].Ticker)
	assert.Equal(t, 500.0, list[0].AmountUSD)

	wrapped, err := parseDecisionList(`{"decisions": [{"action": "sell", "ticker": "AAPL"}]}`)
	require.NoError(t, err)
	require.Len(t, wrapped, 1)
	assert.Equal(t, "sell", wrapped[0].Action)

	_, err = parseDecisionList(`{"note": "nothing to do"}`)
	assert.Error(t, err)
}

func TestRenderDigests(t *testing.T) {
	assert.Equal(t, "No news summaries available.", renderDigests(nil))

	digests := []intake.Digest{
		{
			Source:    "marketwatch",
			Headlines: []string{"one", "two", "three", "four"},
			Insights:  "short insight",
		},
	}
	text := renderDigests(digests)
	assert.Contains(t, text, "marketwatch: one, two, three |")
	assert.NotContains(t, text, "four")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "0123456789... [truncated]", truncate("0123456789abcdef", 10))
}

func TestDecide_UnknownActionKeptForAudit(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		content := `[{"action": "buy", "ticker": "NVDA", "amount_usd": 500, "reason": "momentum"},
			{"action": "short", "ticker": "TSLA", "amount_usd": 300, "reason": "overvalued"}]`
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"content": content}},
			},
		})
	}))
	defer ts.Close()

	client := NewOracleClient(OracleConfig{
		APIKey:  "test",
		BaseURL: ts.URL,
		Model:   "test-model",
	}, zerolog.New(nil).Level(zerolog.Disabled))

	decisions, err := client.Decide(nil, "No current holdings.", "")
	require.NoError(t, err)
	require.Len(t, decisions, 2)

	// The malformed action travels to the engine, which records the skip;
	// it is never dropped at the client boundary.
	assert.Equal(t, execution.Action("short"), decisions[1].Action)
	assert.Equal(t, "TSLA", decisions[1].Symbol)
}

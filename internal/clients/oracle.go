package clients

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"github.com/adobi/dtrader/internal/modules/execution"
	"github.com/adobi/dtrader/internal/modules/feedback"
	"github.com/adobi/dtrader/internal/modules/intake"
)

const (
	maxAttempts      = 3
	maxDigestsPerAsk = 10
	maxHeadlines     = 3
	maxInsightChars  = 200
)

// OracleConfig carries the chat-completions endpoint settings.
type OracleConfig struct {
	APIKey       string
	BaseURL      string
	Model        string
	MaxTrades    int
	InitialFunds float64
	MinBuffer    float64
}

// OracleClient talks to an OpenAI-style chat completions endpoint. Responses
// are expected as JSON; when the model wraps its JSON in prose, the embedded
// object or list is excised and parsed instead.
type OracleClient struct {
	http *resty.Client
	cfg  OracleConfig
	log  zerolog.Logger
}

func NewOracleClient(cfg OracleConfig, log zerolog.Logger) *OracleClient {
	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(60 * time.Second).
		SetHeader("Authorization", "Bearer "+cfg.APIKey).
		SetHeader("Content-Type", "application/json")

	return &OracleClient{
		http: client,
		cfg:  cfg,
		log:  log.With().Str("client", "oracle").Logger(),
	}
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

type summaryPayload struct {
	Headlines []string `json:"headlines"`
	Insights  string   `json:"insights"`
}

// Summarize condenses raw page text into headlines and insights. A response
// that cannot be parsed as JSON degrades to a marker payload rather than an
// error, so a chatty model never blocks the intake run.
func (c *OracleClient) Summarize(source, pageText, feedbackContext string) ([]string, string, error) {
	prompt := fmt.Sprintf(`Summarize the following financial news page from %s for a day trader.

Performance Context: %s

Page text:
%s

Return a JSON object with:
- headlines (list of the most market-relevant headlines)
- insights (short analysis of what this news means for short-term trading)
Respond strictly in valid JSON format.`, source, feedbackContext, pageText)

	content, err := c.chat("You are a financial news analyst producing concise trading summaries.", prompt)
	if err != nil {
		return nil, "", err
	}

	var payload summaryPayload
	if err := json.Unmarshal([]byte(ExtractJSON(content)), &payload); err != nil {
		c.log.Warn().Str("source", source).Msg("Unparseable summary response, storing marker payload")
		return []string{"Unable to parse summary response"}, truncate(content, maxInsightChars), nil
	}
	return payload.Headlines, payload.Insights, nil
}

type rawDecision struct {
	Action    string  `json:"action"`
	Ticker    string  `json:"ticker"`
	AmountUSD float64 `json:"amount_usd"`
	Reason    string  `json:"reason"`
}

// Decide asks the oracle for a trade decision batch. Transport or parse
// failures return an error so the caller leaves its digests unconsumed and
// retries on the next cycle.
func (c *OracleClient) Decide(digests []intake.Digest, holdingsText, feedbackContext string) ([]execution.TradeDecision, error) {
	prompt := fmt.Sprintf(`You are an AGGRESSIVE DAY TRADING AI. Make buy/sell recommendations for short-term trading based on the summaries and current portfolio.
Focus on 1-3 day holding periods, maximize ROI through frequent trading. Do not exceed %d total trades, never allocate more than $%.0f total.
Retain at least $%.0f in funds.

DAY TRADING STRATEGY:
- Take profits quickly: Sell positions with >3%% gains
- Cut losses fast: Sell positions with >5%% losses
- Be aggressive: If you have conviction for a new buy, consider selling existing positions to fund it
- Rotate capital: Don't hold positions too long, look for better opportunities
- Use momentum: Buy stocks with positive news/momentum, sell those with negative news

IMPORTANT: Before making buy decisions, evaluate if you should sell existing positions to free up cash.

Performance Context: %s

Summaries:
%s

Current Holdings (with current prices and gains/losses):
%s

Return a JSON list of trade decisions. Each decision should include:
- action ("buy", "sell" or "hold")
- ticker
- amount_usd (funds to allocate or recover)
- reason
Respond strictly in valid JSON format.`,
		c.cfg.MaxTrades, c.cfg.InitialFunds-c.cfg.MinBuffer, c.cfg.MinBuffer,
		feedbackContext, renderDigests(digests), holdingsText)

	content, err := c.chat("You are a trading advisor providing rational investment actions. Learn from past performance feedback to improve decisions.", prompt)
	if err != nil {
		return nil, err
	}

	raw, err := parseDecisionList(ExtractJSON(content))
	if err != nil {
		return nil, fmt.Errorf("failed to parse decision response: %w", err)
	}

	decisions := make([]execution.TradeDecision, 0, len(raw))
	for _, d := range raw {
		action := execution.Action(strings.ToLower(strings.TrimSpace(d.Action)))
		if _, err := execution.ParseAction(string(action)); err != nil {
			// Kept in the batch; the engine records it as a skipped
			// decision so the bad output stays on the audit trail.
			c.log.Warn().Str("action", d.Action).Str("ticker", d.Ticker).Msg("Unknown action in oracle response")
		}
		decisions = append(decisions, execution.TradeDecision{
			Action:    action,
			Symbol:    d.Ticker,
			AmountUSD: d.AmountUSD,
			Reason:    d.Reason,
		})
	}
	return decisions, nil
}

// Critique asks the oracle for a short narrative review of recent performance.
func (c *OracleClient) Critique(summary *feedback.Summary, outcomes []feedback.TradeOutcome) (string, error) {
	var trades strings.Builder
	for _, o := range outcomes {
		fmt.Fprintf(&trades, "%s: entry $%.2f exit $%.2f (%+.1f%%, held %dd, %s) - %s\n",
			o.Symbol, o.EntryPrice, o.ExitPrice, o.GainPercentage*100,
			o.HoldDurationDays, o.Category, o.EntryReason)
	}
	if trades.Len() == 0 {
		trades.WriteString("No trades closed in this period.\n")
	}

	prompt := fmt.Sprintf(`Review this trading performance over the last %d days and write a short critique.
Point out what worked, what did not, and one concrete adjustment for future decisions.

Total trades: %d
Success rate: %.1f%%
Average gain: %.2f%%

Closed trades:
%s
Respond with plain text, no JSON.`,
		summary.LookbackDays, summary.TotalTrades, summary.SuccessRate*100,
		summary.AvgGainPercentage*100, trades.String())

	content, err := c.chat("You are a trading performance coach reviewing an automated strategy.", prompt)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(content), nil
}

// chat performs one chat-completions call with retries.
func (c *OracleClient) chat(system, user string) (string, error) {
	req := chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		MaxTokens:   1000,
		Temperature: 0.3,
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		var parsed chatResponse
		resp, err := c.http.R().
			SetBody(req).
			SetResult(&parsed).
			Post("/chat/completions")

		switch {
		case err != nil:
			lastErr = err
		case resp.StatusCode() != 200:
			lastErr = fmt.Errorf("oracle returned status %d: %s", resp.StatusCode(), truncate(resp.String(), 200))
		case parsed.Error != nil:
			lastErr = fmt.Errorf("oracle error: %s", parsed.Error.Message)
		case len(parsed.Choices) == 0:
			lastErr = fmt.Errorf("oracle returned no choices")
		default:
			return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
		}

		c.log.Warn().Err(lastErr).Int("attempt", attempt).Msg("Oracle call failed")
	}
	return "", fmt.Errorf("oracle unavailable after %d attempts: %w", maxAttempts, lastErr)
}

// ExtractJSON returns the JSON document embedded in a model response. Strict
// JSON passes through untouched; otherwise the outermost {...} or [...] span
// is excised. Returns the input unchanged when nothing JSON-like is found.
func ExtractJSON(content string) string {
	content = strings.TrimSpace(content)
	if json.Valid([]byte(content)) {
		return content
	}

	// Fenced code blocks first, then bare spans.
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)
	if json.Valid([]byte(content)) {
		return content
	}

	for _, pair := range [][2]string{{"[", "]"}, {"{", "}"}} {
		open := strings.Index(content, pair[0])
		close := strings.LastIndex(content, pair[1])
		if open >= 0 && close > open {
			candidate := content[open : close+1]
			if json.Valid([]byte(candidate)) {
				return candidate
			}
		}
	}
	return content
}

// parseDecisionList accepts either a bare JSON list or an object wrapping one
// under a "decisions" key.
func parseDecisionList(doc string) ([]rawDecision, error) {
	var list []rawDecision
	if err := json.Unmarshal([]byte(doc), &list); err == nil {
		return list, nil
	}

	var wrapped struct {
		Decisions []rawDecision `json:"decisions"`
	}
	if err := json.Unmarshal([]byte(doc), &wrapped); err == nil && wrapped.Decisions != nil {
		return wrapped.Decisions, nil
	}
	return nil, fmt.Errorf("response is neither a decision list nor a decisions object")
}

// renderDigests flattens digests into the compact text block the decision
// prompt carries. Only the most recent digests are included and each one is
// clipped to keep token usage bounded.
func renderDigests(digests []intake.Digest) string {
	if len(digests) > maxDigestsPerAsk {
		digests = digests[len(digests)-maxDigestsPerAsk:]
	}

	var parts []string
	for _, d := range digests {
		headlines := d.Headlines
		if len(headlines) > maxHeadlines {
			headlines = headlines[:maxHeadlines]
		}
		parts = append(parts, fmt.Sprintf("%s: %s | %s",
			d.Source, strings.Join(headlines, ", "), truncate(d.Insights, maxInsightChars)))
	}
	if len(parts) == 0 {
		return "No news summaries available."
	}
	return strings.Join(parts, "\n")
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "... [truncated]"
}

package intake

import (
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
)

// maxPageChars caps the extracted page text handed to the oracle.
const maxPageChars = 5000

// Summarizer condenses raw page text into headlines and insights.
// Implemented by the oracle client.
type Summarizer interface {
	Summarize(source, pageText, feedbackContext string) (headlines []string, insights string, err error)
}

// Service fetches configured news pages, summarizes them through the oracle
// and stores the resulting digests. Source failures never abort a run: a page
// that cannot be fetched simply contributes an empty bundle.
type Service struct {
	sources    []Source
	repo       *DigestRepository
	summarizer Summarizer
	http       *resty.Client
	log        zerolog.Logger
}

func NewService(sources []Source, repo *DigestRepository, summarizer Summarizer, log zerolog.Logger) *Service {
	client := resty.New().
		SetTimeout(30 * time.Second).
		SetHeader("User-Agent", "Mozilla/5.0 (compatible; dtrader/1.0)")

	return &Service{
		sources:    sources,
		repo:       repo,
		summarizer: summarizer,
		http:       client,
		log:        log.With().Str("service", "intake").Logger(),
	}
}

// Run fetches and summarizes every configured source, storing one digest per
// source that produced content. Returns the number of digests stored.
func (s *Service) Run(runID string, feedbackContext string, at time.Time) (int, error) {
	stored := 0
	for _, src := range s.sources {
		text := s.fetchText(src)
		if text == "" {
			s.log.Warn().Str("source", src.Name).Msg("Source yielded no text, skipping")
			continue
		}

		headlines, insights, err := s.summarizer.Summarize(src.Name, text, feedbackContext)
		if err != nil {
			s.log.Warn().Err(err).Str("source", src.Name).Msg("Summarization failed, skipping source")
			continue
		}
		if len(headlines) == 0 && insights == "" {
			s.log.Debug().Str("source", src.Name).Msg("Empty summary, nothing to store")
			continue
		}

		digest := &Digest{
			Source:    src.Name,
			RunID:     runID,
			CreatedAt: at.Unix(),
			Headlines: headlines,
			Insights:  insights,
		}
		if _, err := s.repo.Store(digest); err != nil {
			return stored, err
		}
		stored++
	}

	s.log.Info().Str("run_id", runID).Int("stored", stored).Int("sources", len(s.sources)).Msg("Intake run completed")
	return stored, nil
}

// fetchText downloads a source page and extracts its visible text. Any
// failure returns the empty string.
func (s *Service) fetchText(src Source) string {
	resp, err := s.http.R().Get(src.URL)
	if err != nil {
		s.log.Warn().Err(err).Str("source", src.Name).Msg("Fetch failed")
		return ""
	}
	if resp.StatusCode() != 200 {
		s.log.Warn().Int("status", resp.StatusCode()).Str("source", src.Name).Msg("Fetch returned non-200")
		return ""
	}
	return ExtractText(resp.String())
}

// ExtractText strips markup and scripts from an HTML page and returns its
// visible text, whitespace-collapsed and truncated to maxPageChars.
func ExtractText(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}

	doc.Find("script, style, noscript").Remove()
	text := doc.Find("body").Text()
	if strings.TrimSpace(text) == "" {
		text = doc.Text()
	}

	text = strings.Join(strings.Fields(text), " ")
	if len(text) > maxPageChars {
		text = text[:maxPageChars]
	}
	return text
}

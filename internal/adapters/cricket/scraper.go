package cricket

import (
	"context"
	"io"
	"net/http"
	"regexp"
	"strings"

	"hermes/internal/adapters/config"
	"hermes/pkg/errors"
	"hermes/pkg/logger"
	"hermes/pkg/retry"
)

// Scraper extracts live match summaries from the scores page
type Scraper struct {
	cfg    config.CricketConfig
	http   *http.Client
	policy retry.Policy
	log    *logger.Logger
}

// NewScraper creates a scores scraper
func NewScraper(cfg config.CricketConfig, log *logger.Logger) *Scraper {
	return &Scraper{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		policy: retry.DefaultPolicy(),
		log:    log.With("component", "cricket"),
	}
}

// Match title blocks on the scores page carry a stable title attribute
var matchTitlePattern = regexp.MustCompile(`title="([^"]+ vs [^"]+)"`)

const maxMatches = 5

// LiveScores fetches the scores page and returns a short text summary of
// the matches currently listed on it.
func (s *Scraper) LiveScores(ctx context.Context) (string, error) {
	var body []byte
	err := retry.Do(ctx, s.policy, "cricket_scores", func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.cfg.ScoresURL, nil)
		if err != nil {
			return retry.Permanent(err)
		}
		req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; hermes-bot)")

		resp, err := s.http.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return errors.Wrapf(errors.ErrUnavailable, "scores page returned %d", resp.StatusCode)
		}

		body, err = io.ReadAll(resp.Body)
		return err
	})
	if err != nil {
		return "", errors.Wrap(errors.ErrFetchFailed, err.Error())
	}

	return s.summarize(string(body))
}

// summarize pulls the first few distinct match titles out of the page HTML
func (s *Scraper) summarize(html string) (string, error) {
	seen := make(map[string]bool)
	var lines []string

	for _, m := range matchTitlePattern.FindAllStringSubmatch(html, -1) {
		title := strings.TrimSpace(m[1])
		if seen[title] {
			continue
		}
		seen[title] = true

		lines = append(lines, "• "+title)
		if len(lines) == maxMatches {
			break
		}
	}

	if len(lines) == 0 {
		return "", errors.Wrap(errors.ErrNotFound, "no live matches found")
	}

	return "🏏 Live matches:\n" + strings.Join(lines, "\n"), nil
}

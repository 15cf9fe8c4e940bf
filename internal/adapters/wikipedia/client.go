package wikipedia

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"hermes/internal/adapters/config"
	"hermes/pkg/errors"
	"hermes/pkg/logger"
	"hermes/pkg/retry"
)

// Client downloads article PDF exports from Wikipedia
type Client struct {
	cfg    config.WikipediaConfig
	http   *http.Client
	policy retry.Policy
	log    *logger.Logger
}

// NewClient creates a Wikipedia client
func NewClient(cfg config.WikipediaConfig, log *logger.Logger) *Client {
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		policy: retry.DefaultPolicy(),
		log:    log.With("component", "wikipedia"),
	}
}

// FetchPDF downloads the PDF export of an article into tempDir and returns
// the local path. The caller owns the file.
func (c *Client) FetchPDF(ctx context.Context, article string, tempDir string) (string, error) {
	article = strings.TrimSpace(article)
	if article == "" {
		return "", errors.Wrap(errors.ErrInvalidInput, "article title is empty")
	}

	if err := os.MkdirAll(tempDir, 0o755); err != nil {
		return "", errors.Wrap(err, "failed to create temp dir")
	}

	title := strings.ReplaceAll(article, " ", "_")
	endpoint := fmt.Sprintf("%s/api/rest_v1/page/pdf/%s", c.cfg.BaseURL, url.PathEscape(title))
	localPath := filepath.Join(tempDir, uuid.NewString()+".pdf")

	err := retry.Do(ctx, c.policy, "wikipedia_pdf", func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return retry.Permanent(err)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusNotFound {
			return retry.Permanent(errors.Wrapf(errors.ErrNotFound, "no article named %q", article))
		}
		if resp.StatusCode != http.StatusOK {
			return errors.Wrapf(errors.ErrUnavailable, "pdf export returned %d", resp.StatusCode)
		}

		out, err := os.Create(localPath)
		if err != nil {
			return retry.Permanent(err)
		}
		defer out.Close()

		_, err = io.Copy(out, resp.Body)
		return err
	})
	if err != nil {
		os.Remove(localPath)
		if errors.Is(err, errors.ErrNotFound) {
			return "", err
		}
		return "", errors.Wrap(errors.ErrFetchFailed, err.Error())
	}

	c.log.Infow("PDF export fetched", "article", article)
	return localPath, nil
}

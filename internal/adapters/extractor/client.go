package extractor

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"hermes/internal/adapters/config"
	"hermes/internal/metrics"
	"hermes/pkg/errors"
	"hermes/pkg/logger"
	"hermes/pkg/retry"
)

// Format is one downloadable rendition of a source URL
type Format struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// infoResponse is the extraction service's answer to an info request
type infoResponse struct {
	Title   string   `json:"title"`
	Formats []Format `json:"formats"`
}

// Client talks to the media-extraction service. It is the resource
// fetcher behind the download commands: list formats for a URL, then
// fetch one selected format to a local temp file.
type Client struct {
	cfg    config.ExtractorConfig
	http   *http.Client
	policy retry.Policy
	log    *logger.Logger
}

// NewClient creates an extractor client
func NewClient(cfg config.ExtractorConfig, log *logger.Logger) *Client {
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		policy: retry.DefaultPolicy(),
		log:    log.With("component", "extractor"),
	}
}

// ListFormats returns the downloadable formats for a source URL
func (c *Client) ListFormats(ctx context.Context, sourceURL string) (string, []Format, error) {
	endpoint := fmt.Sprintf("%s/api/info?url=%s", c.cfg.BaseURL, url.QueryEscape(sourceURL))

	var info infoResponse
	err := retry.Do(ctx, c.policy, "extractor_info", func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return retry.Permanent(err)
		}
		c.authorize(req)

		resp, err := c.http.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return errors.Wrapf(errors.ErrUnavailable, "info returned %d", resp.StatusCode)
		}

		return json.NewDecoder(resp.Body).Decode(&info)
	})
	if err != nil {
		return "", nil, errors.Wrap(errors.ErrFetchFailed, err.Error())
	}

	if len(info.Formats) == 0 {
		return "", nil, errors.ErrNoFormats
	}

	return info.Title, info.Formats, nil
}

// Fetch downloads the selected format to a temp file and returns its path.
// The caller owns the file and must remove it after delivery.
func (c *Client) Fetch(ctx context.Context, sourceURL string, formatID string) (string, error) {
	if err := os.MkdirAll(c.cfg.TempDir, 0o755); err != nil {
		return "", errors.Wrap(err, "failed to create temp dir")
	}

	endpoint := fmt.Sprintf("%s/api/download?url=%s&format=%s",
		c.cfg.BaseURL, url.QueryEscape(sourceURL), url.QueryEscape(formatID))

	localPath := filepath.Join(c.cfg.TempDir, uuid.NewString())
	start := time.Now()

	err := retry.Do(ctx, c.policy, "extractor_download", func(ctx context.Context) error {
		return c.download(ctx, endpoint, localPath)
	})
	if err != nil {
		os.Remove(localPath)
		return "", errors.Wrap(errors.ErrFetchFailed, err.Error())
	}

	if fi, statErr := os.Stat(localPath); statErr == nil {
		c.log.Infow("Fetch complete",
			"format", formatID,
			"size", humanize.Bytes(uint64(fi.Size())),
			"duration", time.Since(start).Round(time.Second),
		)
	}
	metrics.DownloadDuration.Observe(time.Since(start).Seconds())

	return localPath, nil
}

// download performs a single fetch attempt into localPath
func (c *Client) download(ctx context.Context, endpoint, localPath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return retry.Permanent(err)
	}
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errors.Wrapf(errors.ErrUnavailable, "download returned %d", resp.StatusCode)
	}

	if resp.ContentLength > 0 && resp.ContentLength > c.cfg.MaxSize {
		return retry.Permanent(errors.Newf("file too large: %s exceeds %s",
			humanize.Bytes(uint64(resp.ContentLength)), humanize.Bytes(uint64(c.cfg.MaxSize))))
	}

	out, err := os.Create(localPath)
	if err != nil {
		return retry.Permanent(errors.Wrap(err, "failed to create temp file"))
	}
	defer out.Close()

	// Cap the copy as well: Content-Length is advisory
	written, err := io.Copy(out, io.LimitReader(resp.Body, c.cfg.MaxSize+1))
	if err != nil {
		os.Remove(localPath)
		return errors.Wrap(err, "failed to write temp file")
	}
	if written > c.cfg.MaxSize {
		os.Remove(localPath)
		return retry.Permanent(errors.Newf("file too large: exceeds %s", humanize.Bytes(uint64(c.cfg.MaxSize))))
	}

	return nil
}

func (c *Client) authorize(req *http.Request) {
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}
}

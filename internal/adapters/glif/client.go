package glif

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"hermes/internal/adapters/config"
	"hermes/pkg/errors"
	"hermes/pkg/logger"
	"hermes/pkg/retry"
)

// Client generates images through the hosted Glif API
type Client struct {
	cfg    config.GlifConfig
	http   *http.Client
	policy retry.Policy
	log    *logger.Logger
}

// NewClient creates a Glif client
func NewClient(cfg config.GlifConfig, log *logger.Logger) *Client {
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		policy: retry.DefaultPolicy(),
		log:    log.With("component", "glif"),
	}
}

type runRequest struct {
	ID     string   `json:"id"`
	Inputs []string `json:"inputs"`
}

type runResponse struct {
	Output string `json:"output"`
	Error  string `json:"error,omitempty"`
}

// Generate runs the configured glif with the prompt and downloads the
// resulting image to tempDir. The caller owns the returned file.
func (c *Client) Generate(ctx context.Context, prompt string, tempDir string) (string, error) {
	imageURL, err := c.run(ctx, prompt)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(tempDir, 0o755); err != nil {
		return "", errors.Wrap(err, "failed to create temp dir")
	}

	localPath := filepath.Join(tempDir, uuid.NewString()+".png")
	err = retry.Do(ctx, c.policy, "glif_download", func(ctx context.Context) error {
		return c.downloadImage(ctx, imageURL, localPath)
	})
	if err != nil {
		os.Remove(localPath)
		return "", errors.Wrap(errors.ErrFetchFailed, err.Error())
	}

	c.log.Infow("Image generated", "prompt_length", len(prompt))
	return localPath, nil
}

// run submits the prompt and returns the generated image URL
func (c *Client) run(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(runRequest{ID: c.cfg.GlifID, Inputs: []string{prompt}})
	if err != nil {
		return "", errors.Wrap(err, "failed to encode request")
	}

	var result runResponse
	err = retry.Do(ctx, c.policy, "glif_run", func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL, bytes.NewReader(body))
		if err != nil {
			return retry.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")
		if c.cfg.APIKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return errors.Wrapf(errors.ErrUnavailable, "glif returned %d", resp.StatusCode)
		}

		return json.NewDecoder(resp.Body).Decode(&result)
	})
	if err != nil {
		return "", errors.Wrap(errors.ErrFetchFailed, err.Error())
	}

	if result.Error != "" {
		return "", errors.Wrap(errors.ErrFetchFailed, result.Error)
	}
	if result.Output == "" {
		return "", errors.Wrap(errors.ErrFetchFailed, "empty output")
	}

	return result.Output, nil
}

// downloadImage fetches the generated image into localPath
func (c *Client) downloadImage(ctx context.Context, imageURL, localPath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return retry.Permanent(err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errors.Wrapf(errors.ErrUnavailable, "image download returned %d", resp.StatusCode)
	}

	out, err := os.Create(localPath)
	if err != nil {
		return retry.Permanent(err)
	}
	defer out.Close()

	_, err = io.Copy(out, resp.Body)
	return err
}

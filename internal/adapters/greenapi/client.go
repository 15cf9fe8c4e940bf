package greenapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/time/rate"

	"hermes/internal/adapters/config"
	"hermes/internal/metrics"
	"hermes/pkg/errors"
	"hermes/pkg/logger"
	"hermes/pkg/retry"
)

// Client is the outbound responder for the GreenAPI WhatsApp provider.
// All calls are rate-limited and retried with the shared policy; delivery
// is best-effort and callers only use the returned error for logging.
type Client struct {
	cfg     config.GreenAPIConfig
	http    *http.Client
	limiter *rate.Limiter
	policy  retry.Policy
	log     *logger.Logger
}

// NewClient creates a provider client
func NewClient(cfg config.GreenAPIConfig, log *logger.Logger) *Client {
	return &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Limit(cfg.SendsPerSec), 1),
		policy:  retry.DefaultPolicy(),
		log:     log.With("component", "greenapi"),
	}
}

// endpoint builds the instance-scoped URL for a provider method
func (c *Client) endpoint(base, method string) string {
	return fmt.Sprintf("%s/waInstance%s/%s/%s", base, c.cfg.InstanceID, method, c.cfg.APIToken)
}

// SendMessage delivers a text message to the chat
func (c *Client) SendMessage(ctx context.Context, chatID string, text string) error {
	payload := map[string]string{
		"chatId":  chatID,
		"message": text,
	}

	err := c.post(ctx, "sendMessage", c.endpoint(c.cfg.APIURL, "sendMessage"), payload)
	if err != nil {
		return errors.Wrap(errors.ErrDeliveryFailed, err.Error())
	}

	c.log.Debugw("Message sent", "chat_id", chatID, "length", len(text))
	return nil
}

// SendFile uploads a local file to the chat with a caption
func (c *Client) SendFile(ctx context.Context, chatID string, localPath string, caption string) error {
	err := retry.Do(ctx, c.policy, "sendFileByUpload", func(ctx context.Context) error {
		if err := c.limiter.Wait(ctx); err != nil {
			return retry.Permanent(err)
		}
		return c.uploadFile(ctx, chatID, localPath, caption)
	})
	if err != nil {
		return errors.Wrap(errors.ErrDeliveryFailed, err.Error())
	}

	c.log.Infow("File sent", "chat_id", chatID, "file", filepath.Base(localPath))
	return nil
}

// RemoveParticipant removes a participant from a group chat
func (c *Client) RemoveParticipant(ctx context.Context, groupID string, participant string) error {
	payload := map[string]string{
		"groupId":           groupID,
		"participantChatId": participant,
	}

	return c.post(ctx, "removeGroupParticipant", c.endpoint(c.cfg.APIURL, "removeGroupParticipant"), payload)
}

// post performs a rate-limited, retried JSON POST to a provider endpoint
func (c *Client) post(ctx context.Context, name, url string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return errors.Wrap(err, "failed to encode payload")
	}

	return retry.Do(ctx, c.policy, name, func(ctx context.Context) error {
		if err := c.limiter.Wait(ctx); err != nil {
			return retry.Permanent(err)
		}

		start := time.Now()

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return retry.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.http.Do(req)
		metrics.ProviderAPILatency.WithLabelValues(name).Observe(time.Since(start).Seconds())
		if err != nil {
			metrics.ProviderAPICalls.WithLabelValues(name, "error").Inc()
			return err
		}
		defer resp.Body.Close()

		return c.checkResponse(name, resp)
	})
}

// uploadFile performs a single multipart upload attempt
func (c *Client) uploadFile(ctx context.Context, chatID, localPath, caption string) error {
	file, err := os.Open(localPath)
	if err != nil {
		return retry.Permanent(errors.Wrap(err, "failed to open file"))
	}
	defer file.Close()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	if err := writer.WriteField("chatId", chatID); err != nil {
		return retry.Permanent(err)
	}
	if caption != "" {
		if err := writer.WriteField("caption", caption); err != nil {
			return retry.Permanent(err)
		}
	}

	part, err := writer.CreateFormFile("file", filepath.Base(localPath))
	if err != nil {
		return retry.Permanent(err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return errors.Wrap(err, "failed to read file")
	}
	if err := writer.Close(); err != nil {
		return retry.Permanent(err)
	}

	start := time.Now()

	url := c.endpoint(c.cfg.MediaBase(), "sendFileByUpload")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &buf)
	if err != nil {
		return retry.Permanent(err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.http.Do(req)
	metrics.ProviderAPILatency.WithLabelValues("sendFileByUpload").Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.ProviderAPICalls.WithLabelValues("sendFileByUpload", "error").Inc()
		return err
	}
	defer resp.Body.Close()

	return c.checkResponse("sendFileByUpload", resp)
}

// checkResponse converts provider HTTP statuses into retryable or permanent errors
func (c *Client) checkResponse(name string, resp *http.Response) error {
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		metrics.ProviderAPICalls.WithLabelValues(name, "success").Inc()
		return nil
	case resp.StatusCode == http.StatusTooManyRequests:
		metrics.ProviderAPICalls.WithLabelValues(name, "error").Inc()
		return errors.ErrRateLimited
	case resp.StatusCode >= 500:
		metrics.ProviderAPICalls.WithLabelValues(name, "error").Inc()
		return errors.Wrapf(errors.ErrUnavailable, "%s returned %d", name, resp.StatusCode)
	default:
		// 4xx other than 429 will not improve on retry
		metrics.ProviderAPICalls.WithLabelValues(name, "error").Inc()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return retry.Permanent(errors.Newf("%s returned %d: %s", name, resp.StatusCode, string(body)))
	}
}

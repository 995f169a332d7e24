// Package transport implements the WhatsApp Cloud API client used to send
// replies and fetch inbound media. All requests go through the Graph API
// with bearer authentication; transient failures (429, 5xx) are retried
// with exponential backoff.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/productif-io/assistant/internal/config"
)

// Compile-time interface check
var _ Messenger = (*WhatsAppClient)(nil)

// Messenger sends outbound messages to a conversation participant.
type Messenger interface {
	// SendText sends a plain text message to the given phone number
	// (E.164 without the leading plus, per the Cloud API).
	SendText(ctx context.Context, to string, body string) error
}

// MediaFetcher resolves and downloads inbound media attachments.
type MediaFetcher interface {
	// FetchMedia downloads the media object with the given ID and
	// returns its bytes and MIME type.
	FetchMedia(ctx context.Context, mediaID string) (data []byte, mimeType string, err error)
}

// WhatsAppClient is a WhatsApp Cloud API client bound to a single
// business phone number.
type WhatsAppClient struct {
	httpClient    *http.Client
	baseURL       string
	accessToken   string
	phoneNumberID string
}

// NewWhatsAppClient creates a client from configuration.
func NewWhatsAppClient(cfg config.WhatsAppConfig) *WhatsAppClient {
	return &WhatsAppClient{
		httpClient:    &http.Client{Timeout: 30 * time.Second},
		baseURL:       cfg.BaseURL,
		accessToken:   cfg.AccessToken,
		phoneNumberID: cfg.PhoneNumberID,
	}
}

type textMessage struct {
	MessagingProduct string   `json:"messaging_product"`
	To               string   `json:"to"`
	Type             string   `json:"type"`
	Text             textBody `json:"text"`
}

type textBody struct {
	Body string `json:"body"`
}

type mediaMetadata struct {
	URL      string `json:"url"`
	MimeType string `json:"mime_type"`
	FileSize int64  `json:"file_size"`
	ID       string `json:"id"`
}

// SendText posts a text message to the Cloud API messages endpoint.
func (c *WhatsAppClient) SendText(ctx context.Context, to string, body string) error {
	payload, err := json.Marshal(textMessage{
		MessagingProduct: "whatsapp",
		To:               to,
		Type:             "text",
		Text:             textBody{Body: body},
	})
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	endpoint := fmt.Sprintf("%s/%s/messages", c.baseURL, c.phoneNumberID)

	return c.withRetry(ctx, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+c.accessToken)
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return retry.RetryableError(err)
		}
		defer resp.Body.Close()

		return checkStatus(resp, "send message")
	})
}

// FetchMedia resolves a media ID to its download URL, then downloads the
// content. Both calls require bearer authentication.
func (c *WhatsAppClient) FetchMedia(ctx context.Context, mediaID string) ([]byte, string, error) {
	meta, err := c.mediaMetadata(ctx, mediaID)
	if err != nil {
		return nil, "", err
	}

	var data []byte
	err = c.withRetry(ctx, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, meta.URL, nil)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+c.accessToken)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return retry.RetryableError(err)
		}
		defer resp.Body.Close()

		if err := checkStatus(resp, "download media"); err != nil {
			return err
		}

		data, err = io.ReadAll(resp.Body)
		if err != nil {
			return retry.RetryableError(fmt.Errorf("read media body: %w", err))
		}
		return nil
	})
	if err != nil {
		return nil, "", err
	}

	return data, meta.MimeType, nil
}

// mediaMetadata looks up the temporary download URL for a media object.
func (c *WhatsAppClient) mediaMetadata(ctx context.Context, mediaID string) (*mediaMetadata, error) {
	endpoint := fmt.Sprintf("%s/%s", c.baseURL, mediaID)

	var meta mediaMetadata
	err := c.withRetry(ctx, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+c.accessToken)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return retry.RetryableError(err)
		}
		defer resp.Body.Close()

		if err := checkStatus(resp, "resolve media"); err != nil {
			return err
		}

		if err := json.NewDecoder(resp.Body).Decode(&meta); err != nil {
			return fmt.Errorf("decode media metadata: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &meta, nil
}

// withRetry runs fn with exponential backoff. Only errors wrapped with
// retry.RetryableError are retried; client errors fail immediately.
func (c *WhatsAppClient) withRetry(ctx context.Context, fn func(ctx context.Context) error) error {
	backoff := retry.WithMaxRetries(3, retry.NewExponential(500*time.Millisecond))
	return retry.Do(ctx, backoff, fn)
}

// checkStatus converts a non-2xx response into an error. 429 and 5xx are
// marked retryable; other statuses are permanent.
func checkStatus(resp *http.Response, op string) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	err := fmt.Errorf("%s: status %d: %s", op, resp.StatusCode, bytes.TrimSpace(body))

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return retry.RetryableError(err)
	}
	return err
}

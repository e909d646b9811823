package poster

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// DefaultAPIBaseURL is the production X API endpoint.
const DefaultAPIBaseURL = "https://api.x.com"

// Credentials holds the tokens for the X API v2. AccessToken is the
// OAuth 2.0 user-context token used for writes; BearerToken is the
// app-only token used for read endpoints.
type Credentials struct {
	APIKey       string
	APISecret    string
	AccessToken  string
	AccessSecret string
	BearerToken  string
}

// XAPIClient is a minimal X API v2 client covering the two endpoints
// the bot needs: creating tweets and verifying credentials.
type XAPIClient struct {
	baseURL string
	creds   Credentials
	client  *http.Client
}

// NewXAPIClient builds a client against the given base URL. Pass
// DefaultAPIBaseURL outside of tests.
func NewXAPIClient(baseURL string, creds Credentials) *XAPIClient {
	baseURL = strings.TrimSuffix(baseURL, "/")

	return &XAPIClient{
		baseURL: baseURL,
		creds:   creds,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

type createTweetRequest struct {
	Text  string `json:"text"`
	Reply *struct {
		InReplyToTweetID string `json:"in_reply_to_tweet_id"`
	} `json:"reply,omitempty"`
}

type createTweetResponse struct {
	Data struct {
		ID   string `json:"id"`
		Text string `json:"text"`
	} `json:"data"`
}

// Post creates a tweet. Thread roots carry a random idempotency key;
// the platform does not currently enforce it, so a retried root can
// still double-post.
func (c *XAPIClient) Post(ctx context.Context, text, replyTo string) (string, error) {
	payload := createTweetRequest{Text: text}
	if replyTo != "" {
		payload.Reply = &struct {
			InReplyToTweetID string `json:"in_reply_to_tweet_id"`
		}{InReplyToTweetID: replyTo}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to encode tweet payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/2/tweets", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.creds.AccessToken)
	req.Header.Set("Content-Type", "application/json")
	if replyTo == "" {
		req.Header.Set("X-Idempotency-Key", uuid.NewString())
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if err := c.checkStatus(resp); err != nil {
		return "", err
	}

	var created createTweetResponse
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	log.Debug().Str("tweet_id", created.Data.ID).Bool("is_reply", replyTo != "").Msg("tweet created")
	return created.Data.ID, nil
}

// VerifyCredentials checks that the configured tokens are accepted.
func (c *XAPIClient) VerifyCredentials(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/2/users/me", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.creds.AccessToken)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	return c.checkStatus(resp)
}

func (c *XAPIClient) checkStatus(resp *http.Response) error {
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%w (status %d)", ErrRateLimited, resp.StatusCode)
	case resp.StatusCode == http.StatusUnauthorized:
		return fmt.Errorf("%w (status %d)", ErrUnauthorized, resp.StatusCode)
	case resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w (status %d)", ErrForbidden, resp.StatusCode)
	default:
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(body))
	}
}

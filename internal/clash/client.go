package clash

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"
)

// APIClient talks to the Clash of Clans REST API. Every call waits on a shared
// rate limiter, so all pollers together stay under the token's quota.
type APIClient struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	token      string
	BaseURL    string
}

// NewClient creates a new Clash of Clans client.
func NewClient(baseURL, token string, requestsPerSecond float64) *APIClient {
	burst := int(requestsPerSecond)
	if burst < 1 {
		burst = 1
	}
	return &APIClient{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(requestsPerSecond), burst),
		token:      token,
		BaseURL:    baseURL,
	}
}

// Ensure APIClient implements the Client interface.
var _ Client = (*APIClient)(nil)

// GetPlayer fetches the current profile for tag.
func (c *APIClient) GetPlayer(ctx context.Context, tag string) (Player, error) {
	tag = NormalizeTag(tag)
	if tag == "" {
		return Player{}, ErrPlayerNotFound
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return Player{}, fmt.Errorf("rate limiter: %w", err)
	}

	endpoint := fmt.Sprintf("%s/players/%s", c.BaseURL, url.PathEscape("#"+tag))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Player{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	log.Debug("Requesting player from Clash of Clans API", "tag", tag)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Player{}, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return Player{}, fmt.Errorf("%w: #%s", ErrPlayerNotFound, tag)
	default:
		apiErr := &APIError{StatusCode: resp.StatusCode}
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if jsonErr := json.Unmarshal(body, apiErr); jsonErr != nil {
			apiErr.Message = string(body)
		}
		log.Warn("Received non-OK HTTP status from Clash of Clans API", "tag", tag, "status", resp.StatusCode, "reason", apiErr.Reason)
		return Player{}, apiErr
	}

	var player Player
	if err := json.NewDecoder(resp.Body).Decode(&player); err != nil {
		return Player{}, fmt.Errorf("failed to decode response: %w", err)
	}
	return player, nil
}

// UnmarshalJSON reads the {"reason","message"} error body of the API.
func (e *APIError) UnmarshalJSON(data []byte) error {
	var body struct {
		Reason  string `json:"reason"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return err
	}
	if body.Reason == "" && body.Message == "" {
		return errors.New("empty error body")
	}
	e.Reason, e.Message = body.Reason, body.Message
	return nil
}

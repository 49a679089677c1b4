package reddit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// StatusError is returned for non-200 Reddit responses.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("request failed with status %d: %s", e.Code, e.Body)
}

// IsNotFoundError reports whether err is a 404 from Reddit.
func IsNotFoundError(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == http.StatusNotFound
}

// readErrorBody reads a bounded prefix of an error response.
func readErrorBody(r io.Reader) string {
	body, err := io.ReadAll(io.LimitReader(r, 512))
	if err != nil {
		return "(could not read error body)"
	}
	return strings.TrimSpace(string(body))
}

// doGetJSON performs a paced, circuit-broken GET against the listing API and
// unmarshals the JSON response into T.
func doGetJSON[T any](ctx context.Context, c *Client, endpoint string, query url.Values) (*T, error) {
	base, auth, err := c.apiBase(ctx)
	if err != nil {
		return nil, err
	}

	target := strings.TrimSuffix(base, "/") + endpoint
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	result, err := c.breaker.Execute(func() (any, error) {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return nil, fmt.Errorf("could not create request: %w", err)
		}
		req.Header.Set("User-Agent", c.userAgent)
		req.Header.Set("Accept", "application/json")
		if auth != "" {
			req.Header.Set("Authorization", auth)
		}

		start := time.Now()
		resp, err := c.httpClient.Do(req) //nolint:gosec // URL built from a fixed API base and validated path segments
		if err != nil {
			return nil, fmt.Errorf("could not send request: %w", err)
		}
		defer resp.Body.Close()

		c.logger.Debug("reddit request",
			zap.String("endpoint", endpoint),
			zap.Int("status", resp.StatusCode),
			zap.Duration("duration", time.Since(start)))

		if resp.StatusCode != http.StatusOK {
			return nil, &StatusError{Code: resp.StatusCode, Body: readErrorBody(resp.Body)}
		}

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("could not read response body: %w", err)
		}
		return body, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, ErrCircuitOpen
		}
		return nil, err
	}

	var out T
	if err := json.Unmarshal(result.([]byte), &out); err != nil {
		return nil, fmt.Errorf("could not unmarshal response: %w", err)
	}
	return &out, nil
}

// fetchToken obtains an application-only OAuth token.
func (c *Client) fetchToken(ctx context.Context) (*tokenResponse, error) {
	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("could not create token request: %w", err)
	}
	req.SetBasicAuth(c.clientID, c.clientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", c.userAgent)

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req) //nolint:gosec // fixed token endpoint
	if err != nil {
		return nil, fmt.Errorf("could not send token request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("token request: %w", &StatusError{Code: resp.StatusCode, Body: readErrorBody(resp.Body)})
	}

	var tok tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return nil, fmt.Errorf("could not decode token response: %w", err)
	}
	if tok.token == "" {
		return nil, errors.New("token response without access_token")
	}
	return &tok, nil
}

// apiBase returns the API base URL and Authorization header value to use,
// refreshing the OAuth token when it is missing or about to expire.
func (c *Client) apiBase(ctx context.Context) (string, string, error) {
	if c.clientID == "" || c.clientSecret == "" {
		return c.publicURL, "", nil
	}

	c.tokenMu.Lock()
	defer c.tokenMu.Unlock()

	if c.token == "" || !c.now().Before(c.tokenExpiry) {
		tok, err := c.fetchToken(ctx)
		if err != nil {
			return "", "", err
		}
		lifetime := time.Duration(tok.expiresIn) * time.Second
		if lifetime <= 0 {
			lifetime = time.Hour
		}
		c.token = tok.token
		c.tokenExpiry = c.now().Add(lifetime - tokenExpiryMargin)
		c.logger.Debug("obtained reddit oauth token", zap.Duration("lifetime", lifetime))
	}
	return c.oauthURL, "Bearer " + c.token, nil
}

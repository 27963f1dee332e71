package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/ShayBox/VRC-BAN/internal/api/middleware"
	"github.com/ShayBox/VRC-BAN/internal/api/presenter"
)

var (
	// ErrInvalidSession is returned for admin routes if the token is missing, expired or not signed by the server.
	ErrInvalidSession = errors.New("invalid session token")

	// ErrForbidden is returned for admin routes if the token lacks the admin role.
	ErrForbidden = errors.New("token is not allowed to moderate")
)

type APIError struct {
	StatusCode    int
	CorrelationID string
	Message       string

	// RetryAfter is set if the server asked to retry later.
	RetryAfter time.Duration
}

func (e APIError) Error() string {
	return fmt.Sprintf("api error %d: '%s' (correlation: %s)", e.StatusCode, e.Message, e.CorrelationID)
}

// Is matches ErrInvalidSession and ErrForbidden by status code.
func (e APIError) Is(target error) bool {
	switch target {
	case ErrInvalidSession:
		return e.StatusCode == http.StatusUnauthorized
	case ErrForbidden:
		return e.StatusCode == http.StatusForbidden
	}
	return false
}

func (c *Client) get(ctx context.Context, url string, result any) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	return c.do(req, result)
}

func (c *Client) post(ctx context.Context, url string, payload, result any) (string, error) {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return "", fmt.Errorf("marshaling payload: %w", err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req, result)
}

func parseErrorResponse(resp *http.Response) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("request failed with status %d and unreadable body: %w", resp.StatusCode, err)
	}
	apiErr := APIError{
		StatusCode:    resp.StatusCode,
		CorrelationID: resp.Header.Get(middleware.CorrelationIDHeader),
		Message:       http.StatusText(resp.StatusCode),
	}
	var errResp presenter.ErrorResponse
	if json.Unmarshal(body, &errResp) == nil && errResp.Error != "" {
		apiErr.Message = errResp.Error
		if errResp.CorrelationID != "" {
			apiErr.CorrelationID = errResp.CorrelationID
		}
	}
	if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && secs > 0 {
		apiErr.RetryAfter = time.Duration(secs) * time.Second
	}
	return apiErr
}

// do sends req and decodes the JSON body into result. It returns the correlation id of the response.
func (c *Client) do(req *http.Request, result any) (string, error) {
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("connection failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	correlation := resp.Header.Get(middleware.CorrelationIDHeader)
	if resp.StatusCode >= http.StatusBadRequest {
		return correlation, parseErrorResponse(resp)
	}
	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return correlation, fmt.Errorf("decoding response: %w", err)
		}
	}
	return correlation, nil
}

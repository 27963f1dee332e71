package vrchat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/ShayBox/VRC-BAN/internal/core"
)

// APIError is a non-success answer of the remote service that is neither an authorization nor a transient failure.
type APIError struct {
	StatusCode int
	Message    string
}

func (e APIError) Error() string {
	return fmt.Sprintf("api error: '%s' (status %d)", e.Message, e.StatusCode)
}

// errorResponse is the error envelope of the remote service.
type errorResponse struct {
	Error struct {
		Message    string `json:"message"`
		StatusCode int    `json:"status_code"`
	} `json:"error"`
}

type urlBuilder struct {
	base  string
	path  string
	query url.Values
}

func (c *Client) url(format string, args ...any) *urlBuilder {
	escaped := make([]any, len(args))
	for i, arg := range args {
		escaped[i] = url.PathEscape(fmt.Sprint(arg))
	}
	return &urlBuilder{
		base:  c.baseURL,
		path:  fmt.Sprintf(format, escaped...),
		query: url.Values{},
	}
}

func (b *urlBuilder) addQueryParam(key string, value any) *urlBuilder {
	b.query.Add(key, fmt.Sprint(value))
	return b
}

func (b *urlBuilder) build() string {
	u := b.base + b.path
	if len(b.query) > 0 {
		u += "?" + b.query.Encode()
	}
	return u
}

type request struct {
	method  string
	url     string
	payload any
	session core.Session

	// basicAuth is only set for the login request
	basicAuth string
}

// do executes the request and decodes a successful response into result.
// It returns the response header so that callers can read cookies.
func (c *Client) do(ctx context.Context, r request, result any) (http.Header, error) {
	op := r.method + " " + strings.TrimPrefix(r.url, c.baseURL)

	var body io.Reader
	if r.payload != nil {
		data, err := json.Marshal(r.payload)
		if err != nil {
			return nil, fmt.Errorf("marshalling payload: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, r.url, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")
	if r.payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if r.basicAuth != "" {
		req.Header.Set("Authorization", "Basic "+r.basicAuth)
	}
	if r.session.AuthToken != "" {
		req.AddCookie(&http.Cookie{Name: authCookie, Value: r.session.AuthToken})
	}
	if r.session.SecondFactorToken != "" {
		req.AddCookie(&http.Cookie{Name: secondFactorCookie, Value: r.session.SecondFactorToken})
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &core.TransientError{Op: op, Err: err}
	}
	defer func(body io.ReadCloser) {
		_ = body.Close()
	}(resp.Body)

	if resp.StatusCode >= 400 {
		return resp.Header, classify(op, resp)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return resp.Header, fmt.Errorf("%s: decoding response: %w", op, err)
		}
	}
	return resp.Header, nil
}

func classify(op string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	msg := strings.TrimSpace(string(body))
	var envelope errorResponse
	if json.Unmarshal(body, &envelope) == nil && envelope.Error.Message != "" {
		msg = envelope.Error.Message
	}

	switch code := resp.StatusCode; {
	case code == http.StatusUnauthorized:
		return fmt.Errorf("%s: %w: %s", op, core.ErrUnauthorized, msg)
	case code == http.StatusNotFound:
		return fmt.Errorf("%s: %w: %s", op, core.ErrNotFound, msg)
	case code == http.StatusTooManyRequests || code >= 500:
		return &core.TransientError{
			Op:  op,
			Err: fmt.Errorf("status %s: %s", strconv.Itoa(code), msg),
		}
	default:
		return fmt.Errorf("%s: %w", op, APIError{StatusCode: code, Message: msg})
	}
}

func cookieValue(header http.Header, name string) string {
	resp := http.Response{Header: header}
	for _, cookie := range resp.Cookies() {
		if cookie.Name == name {
			return cookie.Value
		}
	}
	return ""
}

// alreadyApplied reports whether err says the requested state change was already in place.
func alreadyApplied(err error) bool {
	var apiErr APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	if apiErr.StatusCode != http.StatusBadRequest && apiErr.StatusCode != http.StatusConflict {
		return false
	}
	msg := strings.ToLower(apiErr.Message)
	return strings.Contains(msg, "already") || strings.Contains(msg, "not banned")
}

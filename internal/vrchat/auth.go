package vrchat

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/ShayBox/VRC-BAN/internal/core"
	"github.com/ShayBox/VRC-BAN/internal/session"
)

const (
	currentUserRoute = "/auth/user"
	verifyTOTPRoute  = "/auth/twofactorauth/totp/verify"
)

// currentUserResponse is either the authenticated user or a second factor challenge.
type currentUserResponse struct {
	ID                    string   `json:"id"`
	DisplayName           string   `json:"displayName"`
	RequiresTwoFactorAuth []string `json:"requiresTwoFactorAuth"`
}

type verifyRequest struct {
	Code string `json:"code"`
}

type verifyResponse struct {
	Verified bool `json:"verified"`
}

func basicAuth(creds core.Credentials) string {
	// the platform expects both parts url encoded before base64
	raw := url.QueryEscape(creds.Username) + ":" + url.QueryEscape(creds.Password)
	return base64.StdEncoding.EncodeToString([]byte(raw))
}

// Probe checks whether the session is still accepted.
func (c *Client) Probe(ctx context.Context, sess core.Session) error {
	var resp currentUserResponse
	if _, err := c.do(ctx, request{
		method:  http.MethodGet,
		url:     c.url(currentUserRoute).build(),
		session: sess,
	}, &resp); err != nil {
		return err
	}
	if len(resp.RequiresTwoFactorAuth) > 0 || resp.ID == "" {
		return fmt.Errorf("%w: second factor not completed", core.ErrUnauthorized)
	}
	return nil
}

// Login authenticates with username and password. The returned session carries the auth token only.
func (c *Client) Login(ctx context.Context, creds core.Credentials, userAgent string) (session.LoginResult, error) {
	cli := c
	if userAgent != "" && userAgent != c.userAgent {
		cpy := *c
		cpy.userAgent = userAgent
		cli = &cpy
	}

	var resp currentUserResponse
	header, err := cli.do(ctx, request{
		method:    http.MethodGet,
		url:       cli.url(currentUserRoute).build(),
		basicAuth: basicAuth(creds),
	}, &resp)
	if err != nil {
		if errors.Is(err, core.ErrUnauthorized) {
			return session.LoginResult{}, fmt.Errorf("%w: %w", core.ErrAuthRejected, err)
		}
		return session.LoginResult{}, err
	}

	token := cookieValue(header, authCookie)
	if token == "" {
		return session.LoginResult{}, fmt.Errorf("%w: login response carried no auth cookie", core.ErrAuthRejected)
	}

	requiresTOTP := false
	for _, method := range resp.RequiresTwoFactorAuth {
		if method == "totp" {
			requiresTOTP = true
		}
	}
	if len(resp.RequiresTwoFactorAuth) > 0 && !requiresTOTP {
		return session.LoginResult{}, fmt.Errorf("%w: unsupported second factor methods %v",
			core.ErrSecondFactorFailed, resp.RequiresTwoFactorAuth)
	}

	c.logger.Debug().
		Str("user_id", resp.ID).
		Bool("requires_totp", requiresTOTP).
		Msg("login accepted")

	return session.LoginResult{
		Session:              core.Session{AuthToken: token, UserAgent: cli.userAgent},
		RequiresSecondFactor: requiresTOTP,
	}, nil
}

// VerifyTOTP submits code for the half-authenticated session and returns the second factor token.
func (c *Client) VerifyTOTP(ctx context.Context, sess core.Session, code string) (string, error) {
	var resp verifyResponse
	header, err := c.do(ctx, request{
		method:  http.MethodPost,
		url:     c.url(verifyTOTPRoute).build(),
		payload: verifyRequest{Code: code},
		session: sess,
	}, &resp)
	if err != nil {
		var apiErr APIError
		if errors.Is(err, core.ErrUnauthorized) || errors.As(err, &apiErr) {
			return "", fmt.Errorf("%w: %w", core.ErrSecondFactorFailed, err)
		}
		return "", err
	}
	if !resp.Verified {
		return "", fmt.Errorf("%w: code was not accepted", core.ErrSecondFactorFailed)
	}

	token := cookieValue(header, secondFactorCookie)
	if token == "" {
		return "", fmt.Errorf("%w: verification response carried no second factor cookie", core.ErrSecondFactorFailed)
	}
	return token, nil
}

package jquants

import (
	"context"
	"net/http"
	"time"

	"github.com/seenimoa/kabuai/internal/provider"
)

const endpointAuthRefresh = "/v1/token/auth_refresh"

// ID tokens live 24 hours; they are replaced a few minutes early.
const (
	tokenLifetime = 24 * time.Hour
	tokenMargin   = 5 * time.Minute
)

// token returns a valid ID token, exchanging the refresh token when the
// cached one is missing or past its watermark. Concurrent callers share a
// single exchange, which outlives any one caller canceling.
func (c *Client) token(ctx context.Context) (string, error) {
	c.tokenMu.Lock()
	if c.idToken != "" && c.clock.Now().Before(c.tokenExpiry) {
		tok := c.idToken
		c.tokenMu.Unlock()
		return tok, nil
	}
	c.tokenMu.Unlock()

	ch := c.refreshes.DoChan("id_token", func() (any, error) {
		return c.refresh(context.WithoutCancel(ctx))
	})
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

// invalidate drops the cached ID token if it is still the rejected one.
func (c *Client) invalidate(stale string) {
	c.tokenMu.Lock()
	defer c.tokenMu.Unlock()
	if c.idToken == stale {
		c.idToken = ""
		c.tokenExpiry = time.Time{}
	}
}

// refresh exchanges the refresh token for an ID token. The exchange is a
// POST; a 403 or 405 falls back to GET for gateways that reject it.
func (c *Client) refresh(ctx context.Context) (string, error) {
	if c.refreshToken == "" {
		return "", &AuthenticationError{Reason: "no refresh token configured", Hint: refreshHint}
	}

	params := provider.QueryParams{provider.ParamRefreshToken: c.refreshToken}
	resp, err := c.exchange(ctx, http.MethodPost, params)
	if err != nil {
		return "", err
	}
	if resp.status == http.StatusForbidden || resp.status == http.StatusMethodNotAllowed {
		c.logger.Debug().Int("status", resp.status).Msg("token exchange POST rejected, retrying with GET")
		if resp, err = c.exchange(ctx, http.MethodGet, params); err != nil {
			return "", err
		}
	}

	payload := RawPayload{Endpoint: endpointAuthRefresh, Body: resp.body}
	switch {
	case resp.status >= 200 && resp.status < 300:
	case resp.status == http.StatusBadRequest || resp.status == http.StatusUnauthorized || resp.status == http.StatusForbidden:
		reason := payload.Message()
		if reason == "" {
			reason = "refresh token rejected"
		}
		return "", &AuthenticationError{Reason: reason, Hint: refreshHint}
	default:
		return "", &APIError{StatusCode: resp.status, Message: payload.Message(), Endpoint: endpointAuthRefresh}
	}

	tok := payload.Get("idToken").String()
	if tok == "" {
		return "", &AuthenticationError{Reason: "token exchange returned no idToken", Hint: refreshHint}
	}

	c.tokenMu.Lock()
	c.idToken = tok
	c.tokenExpiry = c.clock.Now().Add(tokenLifetime - tokenMargin)
	c.tokenMu.Unlock()

	c.logger.Info().Msg("obtained jquants ID token")
	return tok, nil
}

func (c *Client) exchange(ctx context.Context, method string, params provider.QueryParams) (*response, error) {
	return c.withRetry(ctx, endpointAuthRefresh, func() (*response, error) {
		return c.roundTrip(ctx, method, endpointAuthRefresh, params, "")
	})
}

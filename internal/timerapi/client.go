// Package timerapi talks to the remote time-tracking REST API: it resolves the
// account identity and reports whether a timer is running. Every failure is
// returned as an apperr.CodedError so the scheduler can report it.
package timerapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/timernudge/timernudge/internal/apperr"
	"github.com/timernudge/timernudge/internal/config"
	"github.com/timernudge/timernudge/internal/metrics"
)

const maxBodyBytes = 1 << 20

// Identity is the team (workspace) and user pair a timer query is scoped to.
type Identity struct {
	TeamID string `json:"team_id"`
	UserID string `json:"user_id"`
}

type profile struct {
	ID               string `json:"id"`
	ActiveWorkspace  string `json:"activeWorkspace"`
	DefaultWorkspace string `json:"defaultWorkspace"`
}

type workspace struct {
	ID string `json:"id"`
}

// Client is safe for concurrent use.
type Client struct {
	baseURL    *url.URL
	authHeader string
	http       *http.Client
	logger     *zap.Logger
}

// NewClient creates a client for the time-tracking API described by cfg.
// An empty auth header means X-Api-Key.
func NewClient(cfg config.APIConfig, logger *zap.Logger) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, errors.Wrap(err, "parse API base URL")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	header := cfg.AuthHeader
	if header == "" {
		header = "X-Api-Key"
	}

	return &Client{
		baseURL:    base,
		authHeader: header,
		http:       &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
	}, nil
}

// ResolveIdentity returns the identity for token. Non-empty preferred values
// win; blank ones are looked up remotely.
func (c *Client) ResolveIdentity(ctx context.Context, token, preferredTeam, preferredUser string) (Identity, error) {
	id := Identity{
		TeamID: strings.TrimSpace(preferredTeam),
		UserID: strings.TrimSpace(preferredUser),
	}
	if id.TeamID != "" && id.UserID != "" {
		return id, nil
	}

	var p profile
	if err := c.getJSON(ctx, "profile", token, "/user", nil, &p); err != nil {
		return Identity{}, err
	}

	if id.UserID == "" {
		id.UserID = strings.TrimSpace(p.ID)
	}
	if id.TeamID == "" {
		id.TeamID = firstNonEmpty(p.ActiveWorkspace, p.DefaultWorkspace)
	}
	if id.TeamID == "" {
		var teams []workspace
		if err := c.getJSON(ctx, "teams", token, "/workspaces", nil, &teams); err != nil {
			return Identity{}, err
		}
		for _, t := range teams {
			if t.ID != "" {
				id.TeamID = t.ID
				break
			}
		}
	}

	if id.TeamID == "" {
		return Identity{}, apperr.MissingTeamID()
	}
	if id.UserID == "" {
		return Identity{}, apperr.MissingUserID()
	}
	return id, nil
}

// HasRunningTimer reports whether the identity has an in-progress time entry.
func (c *Client) HasRunningTimer(ctx context.Context, token string, id Identity) (bool, error) {
	path := fmt.Sprintf("/workspaces/%s/user/%s/time-entries",
		url.PathEscape(id.TeamID), url.PathEscape(id.UserID))
	query := url.Values{"in-progress": []string{"true"}}

	var entries []json.RawMessage
	if err := c.getJSON(ctx, "timer", token, path, query, &entries); err != nil {
		return false, err
	}
	return len(entries) > 0, nil
}

func (c *Client) getJSON(ctx context.Context, call, token, path string, query url.Values, out any) error {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + path
	u.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	req.Header.Set("Accept", "application/json")
	if strings.EqualFold(c.authHeader, "Authorization") {
		req.Header.Set("Authorization", "Bearer "+token)
	} else {
		req.Header.Set(c.authHeader, token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		metrics.RecordRemoteCall(call, "transport_error", time.Since(start))
		return classifyTransport(ctx, u.Hostname(), err)
	}
	defer resp.Body.Close()
	metrics.RecordRemoteCall(call, fmt.Sprintf("%d", resp.StatusCode), time.Since(start))

	c.logger.Debug("remote call",
		zap.String("call", call),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)),
	)

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return apperr.Unauthorized()
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return apperr.BadStatus(resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return classifyTransport(ctx, u.Hostname(), err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return apperr.InvalidResponse(errors.Wrapf(err, "decode %s response", call))
	}
	return nil
}

// classifyTransport maps a failed round trip to the error taxonomy. A
// cancelled context is passed through so callers can tell a stop apart.
func classifyTransport(ctx context.Context, host string, err error) error {
	if ctxErr := ctx.Err(); errors.Is(ctxErr, context.Canceled) {
		return ctxErr
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return apperr.HostUnresolvable(host, err)
	}
	return apperr.HostUnreachable(host, err)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

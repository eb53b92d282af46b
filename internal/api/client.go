package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Client talks to a running daemon over its control API.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient builds a client for the daemon bound at addr (host:port).
func NewClient(addr, token string) *Client {
	addr = strings.TrimSpace(addr)
	if !strings.Contains(addr, "://") {
		addr = "http://" + addr
	}
	return &Client{
		baseURL: strings.TrimRight(addr, "/"),
		token:   token,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// Status fetches the daemon's runtime status.
func (c *Client) Status(ctx context.Context) (*DaemonStatus, error) {
	var status DaemonStatus
	if err := c.do(ctx, http.MethodGet, "/api/status", nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// StartRaid asks the daemon to begin a raid for the given audience size.
func (c *Client) StartRaid(ctx context.Context, viewerCount int) (*RaidStatus, error) {
	var status RaidStatus
	err := c.do(ctx, http.MethodPost, "/api/raid/start", StartRaidRequest{ViewerCount: viewerCount}, &status)
	if err != nil {
		return nil, err
	}
	return &status, nil
}

// ResetRaid cancels the current session, refunding participants.
func (c *Client) ResetRaid(ctx context.Context, reason string) (string, error) {
	var resp MessageResponse
	if err := c.do(ctx, http.MethodPost, "/api/raid/reset", ResetRequest{Reason: reason}, &resp); err != nil {
		return "", err
	}
	return resp.Message, nil
}

// Join adds a user to the recruiting raid.
func (c *Client) Join(ctx context.Context, userID string, amount int) (string, error) {
	body := map[string]any{"userId": userID, "username": userID, "amount": amount}
	var resp MessageResponse
	if err := c.do(ctx, http.MethodPost, "/api/raid/join", body, &resp); err != nil {
		return "", err
	}
	return resp.Message, nil
}

// Invest raises a participant's stake during the milestone window.
func (c *Client) Invest(ctx context.Context, userID string, amount int) (string, error) {
	body := map[string]any{"userId": userID, "amount": amount}
	var resp MessageResponse
	if err := c.do(ctx, http.MethodPost, "/api/raid/invest", body, &resp); err != nil {
		return "", err
	}
	return resp.Message, nil
}

// History lists finished raids, newest first.
func (c *Client) History(ctx context.Context, limit int) ([]HistoryEntry, error) {
	path := "/api/raid/history"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var resp HistoryResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Raids, nil
}

// PlayerStats fetches one user's aggregate record and balance.
func (c *Client) PlayerStats(ctx context.Context, userID string) (*PlayerStats, error) {
	var stats PlayerStats
	if err := c.do(ctx, http.MethodGet, "/api/stats/"+url.PathEscape(userID), nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// Leaderboard lists the top earners.
func (c *Client) Leaderboard(ctx context.Context, limit int) ([]PlayerStats, error) {
	path := "/api/stats"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var resp LeaderboardResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Players, nil
}

// TestNotification asks the daemon to push a test notification.
func (c *Client) TestNotification(ctx context.Context) (string, error) {
	var resp MessageResponse
	if err := c.do(ctx, http.MethodPost, "/api/notify/test", nil, &resp); err != nil {
		return "", err
	}
	return resp.Message, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("daemon unreachable at %s: %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var apiErr ErrorResponse
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("daemon returned %d: %s", resp.StatusCode, apiErr.Error)
		}
		return fmt.Errorf("daemon returned %d", resp.StatusCode)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (c *Client) Login(ctx context.Context, uniqueCode, name string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/auth/login", "", map[string]any{
		"unique_code": uniqueCode,
		"name":        name,
	}, &out)
	return out, err
}

func (c *Client) Me(ctx context.Context, token string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/me", token, nil, &out)
	return out, err
}

func (c *Client) MyVisits(ctx context.Context, token string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/me/visits", token, nil, &out)
	return out, err
}

func (c *Client) MyBoothVisitors(ctx context.Context, token string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/me/booth/visitors", token, nil, &out)
	return out, err
}

func (c *Client) ListBooths(ctx context.Context, token string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/booths", token, nil, &out)
	return out, err
}

func (c *Client) BoothDetail(ctx context.Context, token string, boothID int64) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, fmt.Sprintf("/v1/booths/%d", boothID), token, nil, &out)
	return out, err
}

func (c *Client) Visit(ctx context.Context, token, boothUUID string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/booths/visit", token, map[string]any{
		"booth_uuid": boothUUID,
	}, &out)
	return out, err
}

func (c *Client) SubmitRating(ctx context.Context, token string, boothID int64, scores map[string]any, review string) (map[string]any, error) {
	body := map[string]any{"scores": scores}
	if review != "" {
		body["review"] = review
	}
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, fmt.Sprintf("/v1/booths/%d/rating", boothID), token, body, &out)
	return out, err
}

func (c *Client) BoothReviews(ctx context.Context, token string, boothID int64) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, fmt.Sprintf("/v1/booths/%d/reviews", boothID), token, nil, &out)
	return out, err
}

func (c *Client) DeleteReview(ctx context.Context, token string, boothID int64) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodDelete, fmt.Sprintf("/v1/booths/%d/review", boothID), token, nil, &out)
	return out, err
}

func (c *Client) Balance(ctx context.Context, token, ledger string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/"+url.PathEscape(ledger)+"/balance", token, nil, &out)
	return out, err
}

func (c *Client) Holdings(ctx context.Context, token, ledger string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/"+url.PathEscape(ledger)+"/holdings", token, nil, &out)
	return out, err
}

func (c *Client) History(ctx context.Context, token, ledger string, boothID int64) (map[string]any, error) {
	path := "/v1/" + url.PathEscape(ledger) + "/history"
	if boothID > 0 {
		path += fmt.Sprintf("?booth_id=%d", boothID)
	}
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, path, token, nil, &out)
	return out, err
}

// Mutate runs one of the four balance operations: coin/invest, coin/withdraw,
// stock/buy, stock/sell.
func (c *Client) Mutate(ctx context.Context, token, ledger, op string, boothID, amount int64) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/"+url.PathEscape(ledger)+"/"+url.PathEscape(op), token, map[string]any{
		"booth_id": boothID,
		"amount":   amount,
	}, &out)
	return out, err
}

func (c *Client) Cospi(ctx context.Context, token string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/cospi", token, nil, &out)
	return out, err
}

func (c *Client) BoothRanking(ctx context.Context, token string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/rankings/booths", token, nil, &out)
	return out, err
}

func (c *Client) MissionRanking(ctx context.Context, token, missionID string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/rankings/missions/"+url.PathEscape(missionID), token, nil, &out)
	return out, err
}

func (c *Client) MyMissions(ctx context.Context, token string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/missions", token, nil, &out)
	return out, err
}

func (c *Client) MissionProgress(ctx context.Context, token, missionID string, progress int) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/missions/"+url.PathEscape(missionID)+"/progress", token, map[string]any{
		"progress": progress,
	}, &out)
	return out, err
}

func (c *Client) MissionComplete(ctx context.Context, token, missionID string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/missions/"+url.PathEscape(missionID)+"/complete", token, map[string]any{}, &out)
	return out, err
}

func (c *Client) ResultsGet(ctx context.Context, token string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/admin/settings/results", token, nil, &out)
	return out, err
}

func (c *Client) ResultsToggle(ctx context.Context, token string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/admin/settings/results/toggle", token, map[string]any{}, &out)
	return out, err
}

func (c *Client) RatingSummaries(ctx context.Context, token string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/admin/ratings/summary", token, nil, &out)
	return out, err
}

// Do replays an arbitrary queued command.
func (c *Client) Do(ctx context.Context, method, path, token string, body map[string]any) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, method, path, token, body, &out)
	return out, err
}

func (c *Client) jsonRequest(ctx context.Context, method, path, token string, in any, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("api status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

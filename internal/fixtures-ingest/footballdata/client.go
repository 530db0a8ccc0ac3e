// Package footballdata é o cliente da API v4 do football-data.org.
package footballdata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrUnauthorized indica token ausente ou inválido (HTTP 403 da API)
var ErrUnauthorized = errors.New("football-data: api key required or invalid")

type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

type Client struct {
	BaseURL string
	APIKey  string
	HTTP    *http.Client
}

func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		BaseURL: strings.TrimRight(cfg.BaseURL, "/"),
		APIKey:  cfg.APIKey,
		HTTP:    &http.Client{Timeout: timeout},
	}
}

type TeamRef struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	ShortName string `json:"shortName"`
	TLA       string `json:"tla"`
}

type ScorePair struct {
	Home *int `json:"home"`
	Away *int `json:"away"`
}

type Score struct {
	Winner   string    `json:"winner"`
	FullTime ScorePair `json:"fullTime"`
}

type Match struct {
	ID       int64     `json:"id"`
	UTCDate  time.Time `json:"utcDate"`
	Status   string    `json:"status"`
	Matchday *int      `json:"matchday"`
	Venue    string    `json:"venue"`
	HomeTeam TeamRef   `json:"homeTeam"`
	AwayTeam TeamRef   `json:"awayTeam"`
	Score    Score     `json:"score"`
}

type Team struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	ShortName string `json:"shortName"`
	TLA       string `json:"tla"`
	Crest     string `json:"crest"`
	Founded   *int   `json:"founded"`
	Venue     string `json:"venue"`
}

// Matches lista as partidas da temporada corrente da competição (ex.: "PL")
func (c *Client) Matches(ctx context.Context, competition string) ([]Match, error) {
	var out struct {
		Matches []Match `json:"matches"`
	}
	if err := c.get(ctx, "/competitions/"+competition+"/matches", &out); err != nil {
		return nil, fmt.Errorf("football-data: matches: %w", err)
	}
	return out.Matches, nil
}

func (c *Client) Teams(ctx context.Context, competition string) ([]Team, error) {
	var out struct {
		Teams []Team `json:"teams"`
	}
	if err := c.get(ctx, "/competitions/"+competition+"/teams", &out); err != nil {
		return nil, fmt.Errorf("football-data: teams: %w", err)
	}
	return out.Teams, nil
}

func (c *Client) get(ctx context.Context, path string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("X-Auth-Token", c.APIKey)

	res, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	switch {
	case res.StatusCode == http.StatusForbidden:
		return ErrUnauthorized
	case res.StatusCode >= 300:
		body, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return fmt.Errorf("http %d: %s", res.StatusCode, strings.TrimSpace(string(body)))
	}
	return json.NewDecoder(res.Body).Decode(v)
}

// Package rating resolves external handles to rating records over the
// rating service's REST API.
package rating

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/okian/tiersync/internal/domain/model"
	"github.com/okian/tiersync/pkg/logger"
	"github.com/okian/tiersync/pkg/metrics"
)

// Default client configuration constants.
const (
	defaultTimeout    = 10 * time.Second
	defaultGame       = "cs2"
	defaultProfileURL = "https://www.faceit.com/pt/players/"
)

// Fetcher is the read-only capability the rest of the system consumes.
type Fetcher interface {
	// Fetch resolves a handle to its rating record for the configured game.
	Fetch(ctx context.Context, handle string) (model.RatingRecord, error)
}

// Client talks to the rating service. Read-only; safe for concurrent use.
type Client struct {
	http       *http.Client
	baseURL    string
	apiKey     string
	game       string
	timeout    time.Duration
	profileURL string
	log        logger.Logger
}

// Option applies a configuration option to the Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.http = h
		}
	}
}

// WithGame sets the title whose stats are extracted.
func WithGame(game string) Option {
	return func(c *Client) {
		if game != "" {
			c.game = game
		}
	}
}

// WithTimeout bounds each fetch; an expired deadline counts as transient.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithProfileURL sets the public profile URL prefix used in stats replies.
func WithProfileURL(prefix string) Option {
	return func(c *Client) {
		if prefix != "" {
			c.profileURL = prefix
		}
	}
}

// WithLogger sets a custom logger for the client.
func WithLogger(log logger.Logger) Option {
	return func(c *Client) {
		if log != nil {
			c.log = log
		}
	}
}

// NewClient constructs a Client for the given API base URL and credential.
func NewClient(baseURL, apiKey string, opts ...Option) *Client {
	c := &Client{
		http:       &http.Client{},
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		game:       defaultGame,
		timeout:    defaultTimeout,
		profileURL: defaultProfileURL,
		log:        logger.Get().Named("rating"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// profile mirrors the fields we read from the service's player payload.
type profile struct {
	PlayerID string               `json:"player_id"`
	Nickname string               `json:"nickname"`
	Country  string               `json:"country"`
	Games    map[string]gameStats `json:"games"`
}

type gameStats struct {
	Elo        int `json:"faceit_elo"`
	SkillLevel int `json:"skill_level"`
}

// Fetch resolves a handle to its rating record: one call to resolve the
// handle to an immutable profile id, one call for the full profile with
// per-title stats.
func (c *Client) Fetch(ctx context.Context, handle string) (model.RatingRecord, error) {
	start := time.Now()
	rec, err := c.fetch(ctx, handle)
	metrics.RecordRatingFetchLatency(float64(time.Since(start).Milliseconds()))
	metrics.RecordRatingFetch(outcome(err))
	return rec, err
}

func (c *Client) fetch(ctx context.Context, handle string) (model.RatingRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var resolved profile
	if err := c.get(ctx, "/players?nickname="+url.QueryEscape(handle), &resolved); err != nil {
		return model.RatingRecord{}, err
	}

	var full profile
	if err := c.get(ctx, "/players/"+url.PathEscape(resolved.PlayerID), &full); err != nil {
		return model.RatingRecord{}, err
	}

	stats, ok := full.Games[c.game]
	if !ok || stats.Elo <= 0 {
		return model.RatingRecord{}, fmt.Errorf("%w: %s", ErrNoGameStats, handle)
	}

	return model.RatingRecord{
		Handle:      handle,
		DisplayName: full.Nickname,
		Rating:      stats.Elo,
		TierLevel:   stats.SkillLevel,
		Region:      full.Country,
	}, nil
}

// get performs one authorized GET and decodes the body into out.
func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("%w: build request: %v", ErrTransient, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransient, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: status %d", ErrUnauthorized, resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return fmt.Errorf("%w: status %d", ErrTransient, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode response: %v", ErrTransient, err)
	}
	return nil
}

// ProfileURL returns the public profile page for a display name.
func (c *Client) ProfileURL(displayName string) string {
	return c.profileURL + url.PathEscape(displayName)
}

// outcome maps a fetch error to its metrics label.
func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrNoGameStats):
		return "no_game_stats"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	default:
		return "transient"
	}
}

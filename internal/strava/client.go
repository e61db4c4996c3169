package strava

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/rundownapp/rundown/internal/model"
)

const (
	DefaultAPIURL   = "https://www.strava.com/api/v3"
	DefaultAuthURL  = "https://www.strava.com/oauth/authorize"
	DefaultTokenURL = "https://www.strava.com/oauth/token"

	pageSize = 100
	maxPages = 20
)

var (
	ErrUnauthorized = errors.New("strava authorization failed")
	ErrRateLimited  = errors.New("strava rate limit exceeded")
	ErrUnavailable  = errors.New("strava unavailable")
)

type Config struct {
	ClientID     string
	ClientSecret string
	APIURL       string
	TokenURL     string
	HTTPClient   *http.Client
}

// TokenSaver persists tokens refreshed during a request.
type TokenSaver interface {
	Save(ctx context.Context, conn *model.StravaConnection) error
}

type Client struct {
	oauth      *oauth2.Config
	apiURL     string
	httpClient *http.Client
	tokens     TokenSaver
}

func NewClient(cfg Config, tokens TokenSaver) *Client {
	apiURL := cfg.APIURL
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}
	tokenURL := cfg.TokenURL
	if tokenURL == "" {
		tokenURL = DefaultTokenURL
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	return &Client{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Scopes:       []string{"activity:read_all"},
			Endpoint: oauth2.Endpoint{
				AuthURL:   DefaultAuthURL,
				TokenURL:  tokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		apiURL:     strings.TrimSuffix(apiURL, "/"),
		httpClient: httpClient,
		tokens:     tokens,
	}
}

type Activity struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	Type       string    `json:"type"`
	SportType  string    `json:"sport_type"`
	StartDate  time.Time `json:"start_date"`
	Distance   float64   `json:"distance"`
	MovingTime int       `json:"moving_time"`
}

// Kind prefers the detailed sport type, e.g. TrailRun over Run.
func (a Activity) Kind() string {
	if a.SportType != "" {
		return a.SportType
	}
	return a.Type
}

// ListActivities pages through the athlete's activities started in (after, before).
func (c *Client) ListActivities(ctx context.Context, conn *model.StravaConnection, after, before time.Time) ([]Activity, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	src := c.oauth.TokenSource(ctx, &oauth2.Token{
		AccessToken:  conn.AccessToken,
		RefreshToken: conn.RefreshToken,
		TokenType:    "Bearer",
		Expiry:       conn.ExpiresAt,
	})
	defer c.persistToken(ctx, conn, src)

	client := oauth2.NewClient(ctx, src)

	var all []Activity
	for page := 1; page <= maxPages; page++ {
		batch, err := c.page(ctx, client, after, before, page)
		if err != nil {
			return nil, err
		}
		all = append(all, batch...)
		if len(batch) < pageSize {
			break
		}
	}
	return all, nil
}

func (c *Client) page(ctx context.Context, client *http.Client, after, before time.Time, page int) ([]Activity, error) {
	q := url.Values{}
	q.Set("after", strconv.FormatInt(after.Unix(), 10))
	q.Set("before", strconv.FormatInt(before.Unix(), 10))
	q.Set("page", strconv.Itoa(page))
	q.Set("per_page", strconv.Itoa(pageSize))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiURL+"/athlete/activities?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := client.Do(req)
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) {
			return nil, fmt.Errorf("%w: token refresh: %s", ErrUnauthorized, retrieveErr.Error())
		}
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			slog.Error("failed to close response body", "error", closeErr)
		}
	}()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%w: status %d", ErrUnauthorized, resp.StatusCode)
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, ErrRateLimited
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("strava: unexpected status %d: %s", resp.StatusCode, body)
	}

	var activities []Activity
	if err := json.NewDecoder(resp.Body).Decode(&activities); err != nil {
		return nil, fmt.Errorf("strava: decode activities: %w", err)
	}
	return activities, nil
}

func (c *Client) persistToken(ctx context.Context, conn *model.StravaConnection, src oauth2.TokenSource) {
	tok, err := src.Token()
	if err != nil || tok.AccessToken == conn.AccessToken {
		return
	}

	conn.AccessToken = tok.AccessToken
	if tok.RefreshToken != "" {
		conn.RefreshToken = tok.RefreshToken
	}
	conn.ExpiresAt = tok.Expiry.UTC()
	conn.UpdatedAt = time.Now().UTC()

	if c.tokens == nil {
		return
	}
	if err := c.tokens.Save(context.WithoutCancel(ctx), conn); err != nil {
		slog.Error("failed to save refreshed strava token", "error", err, "user_id", conn.UserID)
		return
	}
	slog.Debug("refreshed strava token", "user_id", conn.UserID)
}

package strava

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rundownapp/rundown/internal/model"
)

type savedTokens struct {
	conns []*model.StravaConnection
}

func (s *savedTokens) Save(_ context.Context, conn *model.StravaConnection) error {
	copied := *conn
	s.conns = append(s.conns, &copied)
	return nil
}

func newTestServer(t *testing.T, total int, refreshes *int) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /oauth/token", func(w http.ResponseWriter, r *http.Request) {
		*refreshes++
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.Form.Get("grant_type"))
		assert.Equal(t, "old-refresh", r.Form.Get("refresh_token"))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"access_token":"new-access","refresh_token":"new-refresh","token_type":"Bearer","expires_in":21600}`)
	})
	mux.HandleFunc("GET /api/athlete/activities", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer new-access" && r.Header.Get("Authorization") != "Bearer valid" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		assert.Equal(t, "100", r.URL.Query().Get("per_page"))

		var out []Activity
		for i := (page - 1) * pageSize; i < min(total, page*pageSize); i++ {
			out = append(out, Activity{
				ID:         int64(i + 1),
				Type:       "Run",
				SportType:  "TrailRun",
				StartDate:  time.Date(2024, 4, 1, 7, 0, 0, 0, time.UTC),
				Distance:   5000,
				MovingTime: 1800,
			})
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(out))
	})
	return httptest.NewServer(mux)
}

func TestListActivitiesRefreshesAndPages(t *testing.T) {
	refreshes := 0
	srv := newTestServer(t, 102, &refreshes)
	defer srv.Close()

	tokens := &savedTokens{}
	client := NewClient(Config{
		ClientID:     "id",
		ClientSecret: "secret",
		APIURL:       srv.URL + "/api",
		TokenURL:     srv.URL + "/oauth/token",
	}, tokens)

	conn := &model.StravaConnection{
		UserID:       "user-1",
		AccessToken:  "expired",
		RefreshToken: "old-refresh",
		ExpiresAt:    time.Now().Add(-time.Hour),
	}

	activities, err := client.ListActivities(context.Background(), conn, time.Now().Add(-72*time.Hour), time.Now())
	require.NoError(t, err)
	assert.Len(t, activities, 102)
	assert.Equal(t, "TrailRun", activities[0].Kind())
	assert.Equal(t, 1, refreshes)

	require.Len(t, tokens.conns, 1)
	assert.Equal(t, "new-access", tokens.conns[0].AccessToken)
	assert.Equal(t, "new-refresh", tokens.conns[0].RefreshToken)
	assert.True(t, tokens.conns[0].ExpiresAt.After(time.Now()))
}

func TestListActivitiesValidTokenNotSaved(t *testing.T) {
	refreshes := 0
	srv := newTestServer(t, 3, &refreshes)
	defer srv.Close()

	tokens := &savedTokens{}
	client := NewClient(Config{APIURL: srv.URL + "/api", TokenURL: srv.URL + "/oauth/token"}, tokens)
	conn := &model.StravaConnection{UserID: "user-1", AccessToken: "valid", ExpiresAt: time.Now().Add(time.Hour)}

	activities, err := client.ListActivities(context.Background(), conn, time.Time{}, time.Now())
	require.NoError(t, err)
	assert.Len(t, activities, 3)
	assert.Zero(t, refreshes)
	assert.Empty(t, tokens.conns)
}

func TestListActivitiesErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   error
	}{
		{"unauthorized", http.StatusUnauthorized, ErrUnauthorized},
		{"rate limited", http.StatusTooManyRequests, ErrRateLimited},
		{"server error", http.StatusBadGateway, ErrUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			client := NewClient(Config{APIURL: srv.URL}, nil)
			conn := &model.StravaConnection{AccessToken: "valid", ExpiresAt: time.Now().Add(time.Hour)}
			_, err := client.ListActivities(context.Background(), conn, time.Time{}, time.Now())
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

package calendar

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRouter() *mux.Router {
	router := mux.NewRouter()
	NewCalendarHandler(nil).RegisterRoutes(router)
	return router
}

func TestGetEventsPreflight(t *testing.T) {
	router := setupRouter()

	req := httptest.NewRequest("OPTIONS", "/calendar/events", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rr.Header().Get("Access-Control-Allow-Methods"), "GET")
}

func TestGetEventsWithoutCredentials(t *testing.T) {
	router := setupRouter()

	req := httptest.NewRequest("GET", "/calendar/events", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	// proxy failure surfaces as a structured error, never a panic or an
	// empty 200
	require.Equal(t, http.StatusInternalServerError, rr.Code)

	var body struct {
		Error   string `json:"error"`
		Details string `json:"details"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.NotEmpty(t, body.Error)
	assert.NotEmpty(t, body.Details)
	assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestOAuthCallbackRequiresCodeAndState(t *testing.T) {
	router := setupRouter()

	req := httptest.NewRequest("GET", "/calendar/oauth/callback", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestParseEventTime(t *testing.T) {
	tests := []struct {
		name     string
		dateTime string
		date     string
		want     time.Time
	}{
		{
			name:     "timed event",
			dateTime: "2026-03-14T15:00:00+05:30",
			want:     time.Date(2026, 3, 14, 15, 0, 0, 0, time.FixedZone("", 5*3600+1800)),
		},
		{
			name: "all day event",
			date: "2026-03-14",
			want: time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "empty payload",
			want: time.Time{},
		},
		{
			name:     "garbage falls back to date",
			dateTime: "not-a-time",
			date:     "2026-03-14",
			want:     time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := parseEventTime(tc.dateTime, tc.date)
			assert.True(t, got.Equal(tc.want), "got %v, want %v", got, tc.want)
		})
	}
}

func TestTokenCache(t *testing.T) {
	cache := &tokenCache{}

	_, ok := cache.get()
	assert.False(t, ok)

	cache.set("abc", time.Hour)
	tok, ok := cache.get()
	assert.True(t, ok)
	assert.Equal(t, "abc", tok)

	// tokens within a minute of expiry are treated as stale
	cache.set("short", 30*time.Second)
	_, ok = cache.get()
	assert.False(t, ok)
}

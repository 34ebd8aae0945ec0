package calendar

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/cit-coders/clubhub-server/cmd/models"
	"github.com/cit-coders/clubhub-server/config"
	"github.com/golang-jwt/jwt/v4"
)

const (
	googleTokenURL    = "https://oauth2.googleapis.com/token"
	googleEventsURL   = "https://www.googleapis.com/calendar/v3/calendars/%s/events"
	googleAuthURL     = "https://accounts.google.com/o/oauth2/v2/auth"
	calendarReadScope = "https://www.googleapis.com/auth/calendar.readonly"
)

// assertionClaims is the JWT-bearer grant payload for the service account.
type assertionClaims struct {
	jwt.RegisteredClaims
	Scope string `json:"scope"`
}

// tokenCache holds the short-lived service-account access token so we do not
// round-trip the OAuth exchange on every events request.
type tokenCache struct {
	mu      sync.Mutex
	token   string
	expires time.Time
}

func (c *tokenCache) get() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token != "" && time.Now().Before(c.expires) {
		return c.token, true
	}
	return "", false
}

func (c *tokenCache) set(token string, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
	// renew a minute early
	c.expires = time.Now().Add(ttl - time.Minute)
}

// serviceAccountToken signs an RS256 assertion with the configured private
// key and exchanges it for an access token at Google's token endpoint.
func (h *CalendarHandler) serviceAccountToken() (string, error) {
	if tok, ok := h.cache.get(); ok {
		return tok, nil
	}

	email := config.Conf.GetString("GCAL_SERVICE_ACCOUNT_EMAIL")
	rawKey := config.Conf.GetString("GCAL_PRIVATE_KEY")

	// Env values usually carry the PEM with escaped newlines.
	pemKey := strings.ReplaceAll(rawKey, `\n`, "\n")
	privateKey, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(pemKey))
	if err != nil {
		return "", fmt.Errorf("parsing service account key: %v", err)
	}

	now := time.Now()
	claims := assertionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    email,
			Audience:  jwt.ClaimStrings{googleTokenURL},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
		Scope: calendarReadScope,
	}

	assertion, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(privateKey)
	if err != nil {
		return "", fmt.Errorf("signing assertion: %v", err)
	}

	form := url.Values{}
	form.Set("grant_type", "urn:ietf:params:oauth:grant-type:jwt-bearer")
	form.Set("assertion", assertion)

	resp, err := h.client.PostForm(googleTokenURL, form)
	if err != nil {
		return "", fmt.Errorf("token exchange failed: %v", err)
	}
	defer resp.Body.Close()

	var tokenResponse struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tokenResponse); err != nil {
		return "", fmt.Errorf("decoding token response: %v", err)
	}
	if resp.StatusCode != http.StatusOK || tokenResponse.AccessToken == "" {
		return "", fmt.Errorf("token endpoint returned status %d", resp.StatusCode)
	}

	h.cache.set(tokenResponse.AccessToken, time.Duration(tokenResponse.ExpiresIn)*time.Second)
	return tokenResponse.AccessToken, nil
}

// googleEvent mirrors the fields of the vendor payload we actually use.
type googleEvent struct {
	ID          string `json:"id"`
	Summary     string `json:"summary"`
	Description string `json:"description"`
	Location    string `json:"location"`
	Start       struct {
		DateTime string `json:"dateTime"`
		Date     string `json:"date"`
	} `json:"start"`
	End struct {
		DateTime string `json:"dateTime"`
		Date     string `json:"date"`
	} `json:"end"`
}

func (h *CalendarHandler) fetchEvents(accessToken string, windowStart, windowEnd time.Time) ([]models.CalendarEvent, error) {
	calendarID := config.Conf.GetString("GCAL_CALENDAR_ID")

	endpoint := fmt.Sprintf(googleEventsURL, url.PathEscape(calendarID))
	params := url.Values{}
	params.Set("timeMin", windowStart.Format(time.RFC3339))
	params.Set("timeMax", windowEnd.Format(time.RFC3339))
	params.Set("singleEvents", "true")
	params.Set("orderBy", "startTime")

	req, err := http.NewRequest("GET", endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calendar API request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("calendar API returned status %d", resp.StatusCode)
	}

	var payload struct {
		Items []googleEvent `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decoding calendar response: %v", err)
	}

	events := make([]models.CalendarEvent, 0, len(payload.Items))
	for _, item := range payload.Items {
		events = append(events, models.CalendarEvent{
			ID:          item.ID,
			Title:       item.Summary,
			Start:       parseEventTime(item.Start.DateTime, item.Start.Date),
			End:         parseEventTime(item.End.DateTime, item.End.Date),
			Description: item.Description,
			Location:    item.Location,
		})
	}
	return events, nil
}

// parseEventTime handles both timed events (dateTime) and all-day events
// (date only).
func parseEventTime(dateTime, date string) time.Time {
	if dateTime != "" {
		if t, err := time.Parse(time.RFC3339, dateTime); err == nil {
			return t
		}
	}
	if date != "" {
		if t, err := time.Parse("2006-01-02", date); err == nil {
			return t
		}
	}
	return time.Time{}
}

package calendar

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cit-coders/clubhub-server/cmd/models"
	"github.com/cit-coders/clubhub-server/cmd/utils"
	"github.com/cit-coders/clubhub-server/config"
	"github.com/gorilla/mux"
	"gorm.io/gorm"
)

// CalendarHandler proxies the club's Google calendar for the UI. Service
// credentials stay server-side; the browser only ever sees mapped events.
type CalendarHandler struct {
	db     *gorm.DB
	client *http.Client
	cache  *tokenCache
}

func NewCalendarHandler(db *gorm.DB) *CalendarHandler {
	return &CalendarHandler{
		db:     db,
		client: &http.Client{Timeout: 15 * time.Second},
		cache:  &tokenCache{},
	}
}

func (h *CalendarHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/calendar/events", h.GetEvents).Methods("GET", "OPTIONS")
	router.HandleFunc("/calendar/oauth/authorize", utils.AuthMiddleware(h.OAuthAuthorize)).Methods("GET")
	router.HandleFunc("/calendar/oauth/callback", h.OAuthCallback).Methods("GET")
}

func writeCORS(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
}

// GetEvents returns upcoming events within the requested window
func (h *CalendarHandler) GetEvents(w http.ResponseWriter, r *http.Request) {
	writeCORS(w)
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}

	if config.Conf.GetString("GCAL_SERVICE_ACCOUNT_EMAIL") == "" ||
		config.Conf.GetString("GCAL_PRIVATE_KEY") == "" ||
		config.Conf.GetString("GCAL_CALENDAR_ID") == "" {
		utils.WriteError(w, utils.UpstreamError(
			"calendar proxy unavailable",
			"calendar service credentials are not configured",
		))
		return
	}

	windowStart := time.Now()
	windowEnd := windowStart.AddDate(0, 1, 0)
	if s := r.URL.Query().Get("start"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			utils.WriteError(w, utils.ValidationError("start must be RFC3339"))
			return
		}
		windowStart = t
	}
	if e := r.URL.Query().Get("end"); e != "" {
		t, err := time.Parse(time.RFC3339, e)
		if err != nil {
			utils.WriteError(w, utils.ValidationError("end must be RFC3339"))
			return
		}
		windowEnd = t
	}

	accessToken, err := h.serviceAccountToken()
	if err != nil {
		utils.WriteError(w, utils.UpstreamError("calendar authentication failed", err.Error()))
		return
	}

	events, err := h.fetchEvents(accessToken, windowStart, windowEnd)
	if err != nil {
		utils.WriteError(w, utils.UpstreamError("error fetching calendar events", err.Error()))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(events)
}

// OAuthAuthorize redirects a member to Google's consent screen to link
// their personal calendar
func (h *CalendarHandler) OAuthAuthorize(w http.ResponseWriter, r *http.Request) {
	userID, err := utils.GetUserIDFromContext(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	clientID := config.Conf.GetString("GCAL_OAUTH_CLIENT_ID")
	redirectURI := config.Conf.GetString("GCAL_OAUTH_REDIRECT_URI")
	if clientID == "" || redirectURI == "" {
		utils.WriteError(w, utils.UpstreamError(
			"calendar linking unavailable",
			"calendar OAuth client is not configured",
		))
		return
	}

	params := url.Values{}
	params.Set("client_id", clientID)
	params.Set("redirect_uri", redirectURI)
	params.Set("response_type", "code")
	params.Set("scope", calendarReadScope)
	params.Set("access_type", "offline")
	params.Set("prompt", "consent")
	params.Set("state", strconv.FormatUint(uint64(userID), 10))

	http.Redirect(w, r, googleAuthURL+"?"+params.Encode(), http.StatusFound)
}

// OAuthCallback exchanges the consent code and stores the member's grant
func (h *CalendarHandler) OAuthCallback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	state := r.URL.Query().Get("state")
	if code == "" || state == "" {
		utils.WriteError(w, utils.ValidationError("code and state are required"))
		return
	}

	userID, err := strconv.ParseUint(state, 10, 64)
	if err != nil {
		utils.WriteError(w, utils.ValidationError("invalid state"))
		return
	}

	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("client_id", config.Conf.GetString("GCAL_OAUTH_CLIENT_ID"))
	form.Set("client_secret", config.Conf.GetString("GCAL_OAUTH_CLIENT_SECRET"))
	form.Set("redirect_uri", config.Conf.GetString("GCAL_OAUTH_REDIRECT_URI"))

	resp, err := h.client.PostForm(googleTokenURL, form)
	if err != nil {
		utils.WriteError(w, utils.UpstreamError("code exchange failed", err.Error()))
		return
	}
	defer resp.Body.Close()

	var tokenResponse struct {
		RefreshToken string `json:"refresh_token"`
		Scope        string `json:"scope"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tokenResponse); err != nil || tokenResponse.RefreshToken == "" {
		utils.WriteError(w, utils.UpstreamError("code exchange failed", "no refresh token in response"))
		return
	}

	link := models.CalendarLink{
		UserID:       uint(userID),
		RefreshToken: tokenResponse.RefreshToken,
		Scope:        tokenResponse.Scope,
		LinkedAt:     time.Now(),
	}

	// Re-linking replaces the previous grant.
	if err := h.db.Unscoped().Where("user_id = ?", userID).Delete(&models.CalendarLink{}).Error; err != nil {
		http.Error(w, "Error replacing calendar link", http.StatusInternalServerError)
		return
	}
	if err := h.db.Create(&link).Error; err != nil {
		http.Error(w, "Error saving calendar link", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "Calendar linked successfully",
		"user_id": userID,
	})
}

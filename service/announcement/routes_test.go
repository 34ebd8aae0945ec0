package announcement

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/cit-coders/clubhub-server/cmd/models"
	"github.com/cit-coders/clubhub-server/cmd/utils"
	"github.com/cit-coders/clubhub-server/config"
	"github.com/golang-jwt/jwt/v4"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type recordingPublisher struct {
	events []string
}

func (p *recordingPublisher) Publish(event string, payload interface{}) {
	p.events = append(p.events, event)
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Announcement{}))
	return db
}

func setupRouter(db *gorm.DB, feed Publisher) *mux.Router {
	router := mux.NewRouter()
	NewAnnouncementHandler(db, nil, feed).RegisterRoutes(router)
	return router
}

func seedUser(t *testing.T, db *gorm.DB, usn, role string) *models.User {
	t.Helper()
	user := &models.User{
		FullName:     "Member " + usn,
		Email:        usn + "@test.dev",
		USN:          usn,
		PasswordHash: "x",
		Role:         role,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func tokenFor(t *testing.T, userID uint) string {
	t.Helper()
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatUint(uint64(userID), 10),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(config.SecretKey())
	require.NoError(t, err)
	return signed
}

func doJSON(router *mux.Router, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func TestCreateAnnouncementRequiresCapability(t *testing.T) {
	db := setupTestDB(t)
	router := setupRouter(db, nil)
	student := seedUser(t, db, "S1", string(utils.RoleStudent))

	rr := doJSON(router, "POST", "/announcements", tokenFor(t, student.ID), map[string]string{"message": "nope"})
	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestCreateAnnouncementPublishesToFeed(t *testing.T) {
	db := setupTestDB(t)
	feed := &recordingPublisher{}
	router := setupRouter(db, feed)
	lead := seedUser(t, db, "L1", string(utils.RoleLead))

	rr := doJSON(router, "POST", "/announcements", tokenFor(t, lead.ID), map[string]string{
		"message": "Hack night on Friday",
	})
	require.Equal(t, http.StatusCreated, rr.Code)

	var created models.Announcement
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &created))
	assert.Equal(t, "all", created.Audience)
	assert.Equal(t, lead.ID, created.PostedBy)

	require.Len(t, feed.events, 1)
	assert.Equal(t, "announcement_created", feed.events[0])
}

func TestDeleteAnnouncementByID(t *testing.T) {
	db := setupTestDB(t)
	router := setupRouter(db, nil)
	lead := seedUser(t, db, "L2", string(utils.RoleLead))
	token := tokenFor(t, lead.ID)

	// two announcements with identical text; deleting one must not touch
	// the other
	first := models.Announcement{Message: "Meeting at 5", Audience: "all", PostedBy: lead.ID}
	second := models.Announcement{Message: "Meeting at 5", Audience: "all", PostedBy: lead.ID}
	require.NoError(t, db.Create(&first).Error)
	require.NoError(t, db.Create(&second).Error)

	rr := doJSON(router, "DELETE", fmt.Sprintf("/announcements/%d", first.ID), token, nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var remaining []models.Announcement
	require.NoError(t, db.Find(&remaining).Error)
	require.Len(t, remaining, 1)
	assert.Equal(t, second.ID, remaining[0].ID)

	// deleting an already deleted ID is a 404, not a silent success
	rr = doJSON(router, "DELETE", fmt.Sprintf("/announcements/%d", first.ID), token, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestUpdateAnnouncement(t *testing.T) {
	db := setupTestDB(t)
	router := setupRouter(db, nil)
	lead := seedUser(t, db, "L3", string(utils.RoleLead))
	announcement := models.Announcement{Message: "old text", Audience: "all", PostedBy: lead.ID}
	require.NoError(t, db.Create(&announcement).Error)

	rr := doJSON(router, "PUT", fmt.Sprintf("/announcements/%d", announcement.ID), tokenFor(t, lead.ID), map[string]string{
		"message": "corrected text",
	})
	require.Equal(t, http.StatusOK, rr.Code)

	var reloaded models.Announcement
	require.NoError(t, db.First(&reloaded, announcement.ID).Error)
	assert.Equal(t, "corrected text", reloaded.Message)
}

func TestGetAnnouncementsIsPublic(t *testing.T) {
	db := setupTestDB(t)
	router := setupRouter(db, nil)
	lead := seedUser(t, db, "L4", string(utils.RoleLead))
	require.NoError(t, db.Create(&models.Announcement{Message: "hello", Audience: "all", PostedBy: lead.ID}).Error)

	rr := doJSON(router, "GET", "/announcements", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var listing struct {
		Announcements []models.Announcement `json:"announcements"`
		Total         int64                 `json:"total"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &listing))
	assert.Equal(t, int64(1), listing.Total)
}

package suggestion

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

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Suggestion{}))
	return db
}

func setupRouter(db *gorm.DB) *mux.Router {
	router := mux.NewRouter()
	NewSuggestionHandler(db).RegisterRoutes(router)
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

func TestSubmitAndListVisibility(t *testing.T) {
	db := setupTestDB(t)
	router := setupRouter(db)
	alice := seedUser(t, db, "A1", string(utils.RoleStudent))
	bob := seedUser(t, db, "B1", string(utils.RoleStudent))
	manager := seedUser(t, db, "M1", string(utils.RoleSuggestionManager))

	rr := doJSON(router, "POST", "/suggestions", tokenFor(t, alice.ID), map[string]string{"content": "more hack nights"})
	require.Equal(t, http.StatusCreated, rr.Code)
	rr = doJSON(router, "POST", "/suggestions", tokenFor(t, bob.ID), map[string]string{"content": "better snacks"})
	require.Equal(t, http.StatusCreated, rr.Code)

	var created models.Suggestion
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &created))
	assert.Equal(t, "open", created.Status)

	// a member only sees their own suggestions
	rr = doJSON(router, "GET", "/suggestions", tokenFor(t, alice.ID), nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var listing []models.Suggestion
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &listing))
	require.Len(t, listing, 1)
	assert.Equal(t, alice.ID, listing[0].UserID)

	// the manager sees everything
	rr = doJSON(router, "GET", "/suggestions", tokenFor(t, manager.ID), nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &listing))
	assert.Len(t, listing, 2)
}

func TestUpdateStatus(t *testing.T) {
	db := setupTestDB(t)
	router := setupRouter(db)
	alice := seedUser(t, db, "A2", string(utils.RoleStudent))
	manager := seedUser(t, db, "M2", string(utils.RoleSuggestionManager))

	suggestion := models.Suggestion{UserID: alice.ID, Content: "weekend workshops", Status: "open"}
	require.NoError(t, db.Create(&suggestion).Error)
	url := fmt.Sprintf("/suggestions/%d/status", suggestion.ID)

	// the owner cannot move their own suggestion
	rr := doJSON(router, "PUT", url, tokenFor(t, alice.ID), map[string]string{"status": "done"})
	assert.Equal(t, http.StatusForbidden, rr.Code)

	// only the closed status set is accepted
	rr = doJSON(router, "PUT", url, tokenFor(t, manager.ID), map[string]string{"status": "rejected"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = doJSON(router, "PUT", url, tokenFor(t, manager.ID), map[string]string{"status": "considered"})
	require.Equal(t, http.StatusOK, rr.Code)

	var reloaded models.Suggestion
	require.NoError(t, db.First(&reloaded, suggestion.ID).Error)
	assert.Equal(t, "considered", reloaded.Status)
}

func TestDeleteSuggestionOwnerOrManager(t *testing.T) {
	db := setupTestDB(t)
	router := setupRouter(db)
	alice := seedUser(t, db, "A3", string(utils.RoleStudent))
	stranger := seedUser(t, db, "S3", string(utils.RoleStudent))
	manager := seedUser(t, db, "M3", string(utils.RoleSuggestionManager))

	mine := models.Suggestion{UserID: alice.ID, Content: "a", Status: "open"}
	theirs := models.Suggestion{UserID: alice.ID, Content: "b", Status: "open"}
	require.NoError(t, db.Create(&mine).Error)
	require.NoError(t, db.Create(&theirs).Error)

	rr := doJSON(router, "DELETE", fmt.Sprintf("/suggestions/%d", mine.ID), tokenFor(t, stranger.ID), nil)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = doJSON(router, "DELETE", fmt.Sprintf("/suggestions/%d", mine.ID), tokenFor(t, alice.ID), nil)
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = doJSON(router, "DELETE", fmt.Sprintf("/suggestions/%d", theirs.ID), tokenFor(t, manager.ID), nil)
	assert.Equal(t, http.StatusOK, rr.Code)
}

package blog

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
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Blog{}, &models.Like{}, &models.Report{}))
	return db
}

func setupRouter(db *gorm.DB) *mux.Router {
	router := mux.NewRouter()
	NewBlogHandler(db, nil).RegisterRoutes(router)
	return router
}

func createTestUser(t *testing.T, db *gorm.DB, name string, role utils.Role) *models.User {
	t.Helper()
	user := &models.User{
		FullName:     name,
		Email:        fmt.Sprintf("%s@test.dev", name),
		USN:          "1CR21CS-" + name,
		PasswordHash: "x",
		Role:         string(role),
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
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(config.SecretKey())
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

func createTestBlog(t *testing.T, db *gorm.DB, authorID uint) *models.Blog {
	t.Helper()
	blog := &models.Blog{
		AuthorID:    authorID,
		Title:       "Intro to Goroutines",
		Description: "A short walkthrough",
		Content:     "<p>channels and select</p>",
		Category:    "tech",
	}
	require.NoError(t, db.Create(blog).Error)
	return blog
}

func TestCreateBlogRequiresFields(t *testing.T) {
	db := setupTestDB(t)
	router := setupRouter(db)
	author := createTestUser(t, db, "arya", utils.RoleStudent)

	tests := []struct {
		name string
		body map[string]string
	}{
		{"missing title", map[string]string{"description": "d", "content": "c"}},
		{"missing description", map[string]string{"title": "t", "content": "c"}},
		{"missing content", map[string]string{"title": "t", "description": "d"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rr := doJSON(router, "POST", "/blogs", tokenFor(t, author.ID), tc.body)
			assert.Equal(t, http.StatusBadRequest, rr.Code)
		})
	}
}

func TestCreateBlogSanitizesContent(t *testing.T) {
	db := setupTestDB(t)
	router := setupRouter(db)
	author := createTestUser(t, db, "meera", utils.RoleStudent)

	rr := doJSON(router, "POST", "/blogs", tokenFor(t, author.ID), map[string]string{
		"title":       "XSS attempt",
		"description": "d",
		"content":     `<p>fine</p><script>alert(1)</script>`,
	})
	require.Equal(t, http.StatusCreated, rr.Code)

	var created models.Blog
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &created))
	assert.Contains(t, created.Content, "<p>fine</p>")
	assert.NotContains(t, created.Content, "<script>")
}

func TestToggleLikeRoundTrip(t *testing.T) {
	db := setupTestDB(t)
	router := setupRouter(db)
	author := createTestUser(t, db, "dev", utils.RoleStudent)
	viewer := createTestUser(t, db, "sam", utils.RoleStudent)
	blog := createTestBlog(t, db, author.ID)
	viewerToken := tokenFor(t, viewer.ID)
	likeURL := fmt.Sprintf("/blogs/%d/like", blog.ID)

	// like
	rr := doJSON(router, "POST", likeURL, viewerToken, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var resp struct {
		Liked      bool `json:"liked"`
		LikesCount int  `json:"likes_count"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.True(t, resp.Liked)
	assert.Equal(t, 1, resp.LikesCount)

	var reloadedAuthor models.User
	require.NoError(t, db.First(&reloadedAuthor, author.ID).Error)
	assert.Equal(t, 1, reloadedAuthor.Reputation)

	// the viewer sees their own like on the detail view
	rr = doJSON(router, "GET", fmt.Sprintf("/blogs/%d", blog.ID), viewerToken, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var detail map[string]interface{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &detail))
	assert.Equal(t, true, detail["is_liked"])

	// unlike restores everything
	rr = doJSON(router, "POST", likeURL, viewerToken, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.False(t, resp.Liked)
	assert.Equal(t, 0, resp.LikesCount)

	require.NoError(t, db.First(&reloadedAuthor, author.ID).Error)
	assert.Equal(t, 0, reloadedAuthor.Reputation)

	rr = doJSON(router, "GET", fmt.Sprintf("/blogs/%d", blog.ID), viewerToken, nil)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &detail))
	assert.Equal(t, false, detail["is_liked"])

	// liking again after the round trip works
	rr = doJSON(router, "POST", likeURL, viewerToken, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.True(t, resp.Liked)
	assert.Equal(t, 1, resp.LikesCount)
}

func TestUnlikeNeverDrivesReputationNegative(t *testing.T) {
	db := setupTestDB(t)
	router := setupRouter(db)
	author := createTestUser(t, db, "zero", utils.RoleStudent)
	viewer := createTestUser(t, db, "viewer", utils.RoleStudent)
	blog := createTestBlog(t, db, author.ID)

	// a like that predates reputation accounting: the counter moved, the
	// author's reputation did not
	require.NoError(t, db.Create(&models.Like{UserID: viewer.ID, BlogID: blog.ID}).Error)
	require.NoError(t, db.Model(blog).UpdateColumn("likes_count", 1).Error)

	rr := doJSON(router, "POST", fmt.Sprintf("/blogs/%d/like", blog.ID), tokenFor(t, viewer.ID), nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var reloaded models.User
	require.NoError(t, db.First(&reloaded, author.ID).Error)
	assert.Equal(t, 0, reloaded.Reputation)
}

func TestLikeUnknownBlogReturnsNotFound(t *testing.T) {
	db := setupTestDB(t)
	router := setupRouter(db)
	viewer := createTestUser(t, db, "ghosthunter", utils.RoleStudent)

	rr := doJSON(router, "POST", "/blogs/9999/like", tokenFor(t, viewer.ID), nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestReportThresholdRemovesBlog(t *testing.T) {
	db := setupTestDB(t)
	router := setupRouter(db)
	author := createTestUser(t, db, "target", utils.RoleStudent)
	blog := createTestBlog(t, db, author.ID)
	reportURL := fmt.Sprintf("/blogs/%d/report", blog.ID)

	// A like on the blog must go away with it.
	liker := createTestUser(t, db, "liker", utils.RoleStudent)
	rr := doJSON(router, "POST", fmt.Sprintf("/blogs/%d/like", blog.ID), tokenFor(t, liker.ID), nil)
	require.Equal(t, http.StatusOK, rr.Code)

	for i := 0; i < models.ReportThreshold; i++ {
		reporter := createTestUser(t, db, fmt.Sprintf("reporter%d", i), utils.RoleStudent)
		rr = doJSON(router, "POST", reportURL, tokenFor(t, reporter.ID), map[string]string{"reason": "spam"})
		require.Equal(t, http.StatusOK, rr.Code)

		var resp struct {
			Reports     int64 `json:"reports"`
			BlogRemoved bool  `json:"blog_removed"`
		}
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.Equal(t, int64(i+1), resp.Reports)
		assert.Equal(t, i+1 >= models.ReportThreshold, resp.BlogRemoved)
	}

	rr = doJSON(router, "GET", fmt.Sprintf("/blogs/%d", blog.ID), "", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	var likeCount, reportCount int64
	db.Unscoped().Model(&models.Like{}).Where("blog_id = ?", blog.ID).Count(&likeCount)
	db.Unscoped().Model(&models.Report{}).Where("blog_id = ?", blog.ID).Count(&reportCount)
	assert.Zero(t, likeCount)
	assert.Zero(t, reportCount)
}

func TestReportAfterRemovalReadsAsNotFound(t *testing.T) {
	db := setupTestDB(t)
	router := setupRouter(db)
	author := createTestUser(t, db, "author", utils.RoleStudent)
	blog := createTestBlog(t, db, author.ID)
	reportURL := fmt.Sprintf("/blogs/%d/report", blog.ID)

	for i := 0; i < models.ReportThreshold; i++ {
		reporter := createTestUser(t, db, fmt.Sprintf("r%d", i), utils.RoleStudent)
		rr := doJSON(router, "POST", reportURL, tokenFor(t, reporter.ID), map[string]string{"reason": "spam"})
		require.Equal(t, http.StatusOK, rr.Code)
	}

	late := createTestUser(t, db, "late", utils.RoleStudent)
	rr := doJSON(router, "POST", reportURL, tokenFor(t, late.ID), map[string]string{"reason": "spam"})
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestDuplicateReportRejected(t *testing.T) {
	db := setupTestDB(t)
	router := setupRouter(db)
	author := createTestUser(t, db, "writer", utils.RoleStudent)
	reporter := createTestUser(t, db, "rep", utils.RoleStudent)
	blog := createTestBlog(t, db, author.ID)
	reportURL := fmt.Sprintf("/blogs/%d/report", blog.ID)
	token := tokenFor(t, reporter.ID)

	rr := doJSON(router, "POST", reportURL, token, map[string]string{"reason": "off topic"})
	require.Equal(t, http.StatusOK, rr.Code)

	rr = doJSON(router, "POST", reportURL, token, map[string]string{"reason": "off topic again"})
	assert.Equal(t, http.StatusConflict, rr.Code)
}

func TestWithdrawReport(t *testing.T) {
	db := setupTestDB(t)
	router := setupRouter(db)
	author := createTestUser(t, db, "writer2", utils.RoleStudent)
	reporter := createTestUser(t, db, "rep2", utils.RoleStudent)
	blog := createTestBlog(t, db, author.ID)
	reportURL := fmt.Sprintf("/blogs/%d/report", blog.ID)
	token := tokenFor(t, reporter.ID)

	rr := doJSON(router, "POST", reportURL, token, map[string]string{"reason": "spam"})
	require.Equal(t, http.StatusOK, rr.Code)

	rr = doJSON(router, "DELETE", reportURL, token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var resp struct {
		Withdrawn bool `json:"withdrawn"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.True(t, resp.Withdrawn)

	// withdraw with nothing to withdraw is a no-op
	rr = doJSON(router, "DELETE", reportURL, token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.False(t, resp.Withdrawn)

	// reporting again after a withdrawal is allowed
	rr = doJSON(router, "POST", reportURL, token, map[string]string{"reason": "spam"})
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestUpdateBlogOnlyAuthor(t *testing.T) {
	db := setupTestDB(t)
	router := setupRouter(db)
	author := createTestUser(t, db, "owner", utils.RoleStudent)
	stranger := createTestUser(t, db, "stranger", utils.RoleStudent)
	blog := createTestBlog(t, db, author.ID)
	url := fmt.Sprintf("/blogs/%d", blog.ID)

	rr := doJSON(router, "PUT", url, tokenFor(t, stranger.ID), map[string]string{"title": "hijacked"})
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = doJSON(router, "PUT", url, tokenFor(t, author.ID), map[string]string{"title": "revised"})
	require.Equal(t, http.StatusOK, rr.Code)

	var reloaded models.Blog
	require.NoError(t, db.First(&reloaded, blog.ID).Error)
	assert.Equal(t, "revised", reloaded.Title)
}

func TestDeleteBlogAuthorization(t *testing.T) {
	db := setupTestDB(t)
	router := setupRouter(db)
	author := createTestUser(t, db, "blogger", utils.RoleStudent)
	stranger := createTestUser(t, db, "bystander", utils.RoleStudent)
	moderator := createTestUser(t, db, "mod", utils.RoleBlogManager)

	blog := createTestBlog(t, db, author.ID)
	url := fmt.Sprintf("/blogs/%d", blog.ID)

	rr := doJSON(router, "DELETE", url, tokenFor(t, stranger.ID), nil)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = doJSON(router, "DELETE", url, tokenFor(t, moderator.ID), nil)
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = doJSON(router, "GET", url, "", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	// the author can always remove their own blog
	blog2 := createTestBlog(t, db, author.ID)
	rr = doJSON(router, "DELETE", fmt.Sprintf("/blogs/%d", blog2.ID), tokenFor(t, author.ID), nil)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestFeatureBlogRequiresCapability(t *testing.T) {
	db := setupTestDB(t)
	router := setupRouter(db)
	author := createTestUser(t, db, "featured", utils.RoleStudent)
	manager := createTestUser(t, db, "curator", utils.RoleBlogManager)
	blog := createTestBlog(t, db, author.ID)
	url := fmt.Sprintf("/blogs/%d/feature", blog.ID)

	rr := doJSON(router, "POST", url, tokenFor(t, author.ID), map[string]bool{"featured": true})
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = doJSON(router, "POST", url, tokenFor(t, manager.ID), map[string]bool{"featured": true})
	require.Equal(t, http.StatusOK, rr.Code)

	var reloaded models.Blog
	require.NoError(t, db.First(&reloaded, blog.ID).Error)
	assert.True(t, reloaded.IsFeatured)
}

func TestGetBlogsPaginationAndFilters(t *testing.T) {
	db := setupTestDB(t)
	router := setupRouter(db)
	author := createTestUser(t, db, "prolific", utils.RoleStudent)

	for i := 0; i < 12; i++ {
		blog := createTestBlog(t, db, author.ID)
		if i < 3 {
			require.NoError(t, db.Model(blog).UpdateColumn("is_featured", true).Error)
		}
	}

	rr := doJSON(router, "GET", "/blogs?page=2", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var listing struct {
		Blogs      []map[string]interface{} `json:"blogs"`
		Total      int64                    `json:"total"`
		TotalPages int64                    `json:"total_pages"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &listing))
	assert.Equal(t, int64(12), listing.Total)
	assert.Equal(t, int64(2), listing.TotalPages)
	assert.Len(t, listing.Blogs, 2)

	// anonymous listings carry no viewer annotations
	assert.NotContains(t, listing.Blogs[0], "is_liked")

	rr = doJSON(router, "GET", "/blogs?featured=true", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &listing))
	assert.Equal(t, int64(3), listing.Total)
}

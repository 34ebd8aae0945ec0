package blog

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/cit-coders/clubhub-server/cmd/models"
	"github.com/cit-coders/clubhub-server/cmd/utils"
	"github.com/gorilla/mux"
	"github.com/microcosm-cc/bluemonday"
	"gorm.io/gorm"
)

type BlogHandler struct {
	db        *gorm.DB
	sanitizer *bluemonday.Policy
	feed      Publisher
}

// Publisher receives an event whenever a blog is created, for the live feed.
type Publisher interface {
	Publish(event string, payload interface{})
}

func NewBlogHandler(db *gorm.DB, feed Publisher) *BlogHandler {
	return &BlogHandler{
		db:        db,
		sanitizer: bluemonday.UGCPolicy(),
		feed:      feed,
	}
}

func (h *BlogHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/blogs", utils.AuthMiddleware(h.CreateBlog)).Methods("POST")
	router.HandleFunc("/blogs", h.GetBlogs).Methods("GET")
	router.HandleFunc("/blogs/{id}", h.GetBlog).Methods("GET")
	router.HandleFunc("/blogs/{id}", utils.AuthMiddleware(h.UpdateBlog)).Methods("PUT")
	router.HandleFunc("/blogs/{id}", utils.AuthMiddleware(h.DeleteBlog)).Methods("DELETE")

	router.HandleFunc("/blogs/{id}/like", utils.AuthMiddleware(h.ToggleLike)).Methods("POST")
	router.HandleFunc("/blogs/{id}/report", utils.AuthMiddleware(h.SubmitReport)).Methods("POST")
	router.HandleFunc("/blogs/{id}/report", utils.AuthMiddleware(h.WithdrawReport)).Methods("DELETE")
	router.HandleFunc("/blogs/{id}/feature", utils.AuthMiddleware(h.FeatureBlog)).Methods("POST")

	fileServer := http.FileServer(http.Dir(utils.BannerPath))
	router.PathPrefix("/banners/").Handler(cacheControl(http.StripPrefix("/banners/", fileServer)))
}

// Static banners get long-lived caching; API routes never do.
func cacheControl(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "..") {
			http.Error(w, "Invalid path", http.StatusBadRequest)
			return
		}
		w.Header().Set("Cache-Control", "public, max-age=3600")
		next.ServeHTTP(w, r)
	})
}

// CreateBlog creates a new blog post owned by the caller
func (h *BlogHandler) CreateBlog(w http.ResponseWriter, r *http.Request) {
	userID, err := utils.GetUserIDFromContext(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var blog models.Blog
	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "multipart/form-data") {
		if err := r.ParseMultipartForm(50 << 20); err != nil {
			http.Error(w, "Error parsing form", http.StatusBadRequest)
			return
		}
		blog = models.Blog{
			Title:       r.FormValue("title"),
			Description: r.FormValue("description"),
			Content:     r.FormValue("content"),
			Category:    r.FormValue("category"),
		}
		if file, header, ferr := r.FormFile("banner"); ferr == nil {
			defer file.Close()
			bannerURL, serr := utils.SaveBanner(file, header)
			if serr != nil {
				http.Error(w, fmt.Sprintf("Error saving banner: %v", serr), http.StatusInternalServerError)
				return
			}
			blog.BannerURL = bannerURL
		}
	} else {
		if err := json.NewDecoder(r.Body).Decode(&blog); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
	}

	if blog.Title == "" || blog.Description == "" || blog.Content == "" {
		utils.WriteError(w, utils.ValidationError("title, description and content are required"))
		return
	}

	blog.AuthorID = userID
	blog.LikesCount = 0
	blog.IsFeatured = false
	// Stored content is already safe to render.
	blog.Content = h.sanitizer.Sanitize(blog.Content)

	if err := h.db.Create(&blog).Error; err != nil {
		if blog.BannerURL != "" {
			utils.DeleteBanner(blog.BannerURL)
		}
		http.Error(w, "Error creating blog", http.StatusInternalServerError)
		return
	}

	h.db.Preload("Author").First(&blog, blog.ID)

	if h.feed != nil {
		h.feed.Publish("blog_created", map[string]interface{}{
			"id":    blog.ID,
			"title": blog.Title,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(blog)
}

// GetBlogs retrieves blogs newest first with pagination. When the caller is
// authenticated, each blog carries is_liked/is_reported for that viewer,
// resolved with one batched query per set rather than per blog.
func (h *BlogHandler) GetBlogs(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	pageSize := 10

	var blogs []models.Blog
	var total int64

	query := h.db.Model(&models.Blog{}).Preload("Author")
	if category := r.URL.Query().Get("category"); category != "" {
		query = query.Where("category = ?", category)
	}
	if r.URL.Query().Get("featured") == "true" {
		query = query.Where("is_featured = ?", true)
	}
	query.Count(&total)

	if err := query.Order("created_at DESC").
		Offset((page - 1) * pageSize).Limit(pageSize).
		Find(&blogs).Error; err != nil {
		http.Error(w, "Error retrieving blogs", http.StatusInternalServerError)
		return
	}

	annotated := h.annotateForViewer(r, blogs)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"blogs":       annotated,
		"total":       total,
		"page":        page,
		"page_size":   pageSize,
		"total_pages": (total + int64(pageSize) - 1) / int64(pageSize),
	})
}

func (h *BlogHandler) annotateForViewer(r *http.Request, blogs []models.Blog) []map[string]interface{} {
	viewerID, authed := utils.OptionalUserID(r)

	likedSet := make(map[uint]bool)
	reportedSet := make(map[uint]bool)
	if authed && len(blogs) > 0 {
		ids := make([]uint, 0, len(blogs))
		for _, b := range blogs {
			ids = append(ids, b.ID)
		}

		var likes []models.Like
		h.db.Where("user_id = ? AND blog_id IN ?", viewerID, ids).Find(&likes)
		for _, l := range likes {
			likedSet[l.BlogID] = true
		}

		var reports []models.Report
		h.db.Where("user_id = ? AND blog_id IN ?", viewerID, ids).Find(&reports)
		for _, rep := range reports {
			reportedSet[rep.BlogID] = true
		}
	}

	annotated := make([]map[string]interface{}, 0, len(blogs))
	for _, b := range blogs {
		entry := map[string]interface{}{
			"id":          b.ID,
			"created_at":  b.CreatedAt,
			"author_id":   b.AuthorID,
			"title":       b.Title,
			"description": b.Description,
			"content":     b.Content,
			"banner_url":  b.BannerURL,
			"category":    b.Category,
			"likes_count": b.LikesCount,
			"is_featured": b.IsFeatured,
		}
		if b.Author != nil {
			entry["author"] = map[string]interface{}{
				"full_name":  b.Author.FullName,
				"usn":        b.Author.USN,
				"reputation": b.Author.Reputation,
			}
		}
		if authed {
			entry["is_liked"] = likedSet[b.ID]
			entry["is_reported"] = reportedSet[b.ID]
		}
		annotated = append(annotated, entry)
	}
	return annotated
}

// GetBlog retrieves a single blog
func (h *BlogHandler) GetBlog(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	blogID, err := strconv.ParseUint(vars["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid blog ID", http.StatusBadRequest)
		return
	}

	var blog models.Blog
	if err := h.db.Preload("Author").First(&blog, blogID).Error; err != nil {
		utils.WriteError(w, utils.NotFoundError("blog not found"))
		return
	}

	annotated := h.annotateForViewer(r, []models.Blog{blog})

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(annotated[0])
}

// UpdateBlog updates a blog's fields; only the author may edit
func (h *BlogHandler) UpdateBlog(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	blogID, err := strconv.ParseUint(vars["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid blog ID", http.StatusBadRequest)
		return
	}

	userID, err := utils.GetUserIDFromContext(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var updateData struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		Content     string `json:"content"`
		Category    string `json:"category"`
		BannerURL   string `json:"banner_url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&updateData); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	var blog models.Blog
	if err := h.db.First(&blog, blogID).Error; err != nil {
		utils.WriteError(w, utils.NotFoundError("blog not found"))
		return
	}

	if blog.AuthorID != userID {
		utils.WriteError(w, utils.AuthorizationError("only the author can edit this blog"))
		return
	}

	if updateData.Title != "" {
		blog.Title = updateData.Title
	}
	if updateData.Description != "" {
		blog.Description = updateData.Description
	}
	if updateData.Content != "" {
		blog.Content = h.sanitizer.Sanitize(updateData.Content)
	}
	if updateData.Category != "" {
		blog.Category = updateData.Category
	}
	if updateData.BannerURL != "" {
		blog.BannerURL = updateData.BannerURL
	}

	if err := h.db.Save(&blog).Error; err != nil {
		http.Error(w, "Error updating blog", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(blog)
}

// DeleteBlog deletes a blog with its likes and reports. Permitted for the
// author or a caller with the blog moderation capability.
func (h *BlogHandler) DeleteBlog(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	blogID, err := strconv.ParseUint(vars["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid blog ID", http.StatusBadRequest)
		return
	}

	userID, err := utils.GetUserIDFromContext(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var blog models.Blog
	if err := h.db.First(&blog, blogID).Error; err != nil {
		utils.WriteError(w, utils.NotFoundError("blog not found"))
		return
	}

	if blog.AuthorID != userID {
		if err := utils.Authorize(h.db, userID, utils.CapModerateBlogs); err != nil {
			utils.WriteError(w, err)
			return
		}
	}

	tx := h.db.Begin()
	if err := removeBlog(tx, &blog); err != nil {
		tx.Rollback()
		http.Error(w, "Error deleting blog", http.StatusInternalServerError)
		return
	}
	tx.Commit()

	if blog.BannerURL != "" {
		utils.DeleteBanner(blog.BannerURL)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"message": "Blog deleted successfully",
	})
}

// removeBlog deletes a blog and its dependent rows inside the given
// transaction. Also used by the report threshold path.
func removeBlog(tx *gorm.DB, blog *models.Blog) error {
	if err := tx.Unscoped().Where("blog_id = ?", blog.ID).Delete(&models.Like{}).Error; err != nil {
		return err
	}
	if err := tx.Unscoped().Where("blog_id = ?", blog.ID).Delete(&models.Report{}).Error; err != nil {
		return err
	}
	return tx.Delete(blog).Error
}

// ToggleLike flips the caller's like state for a blog. The membership row,
// the denormalized counter and the author's reputation all move in one
// transaction, so the counter cannot drift from the row count.
func (h *BlogHandler) ToggleLike(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	blogID, err := strconv.ParseUint(vars["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid blog ID", http.StatusBadRequest)
		return
	}

	userID, err := utils.GetUserIDFromContext(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	tx := h.db.Begin()

	var blog models.Blog
	if err := tx.First(&blog, blogID).Error; err != nil {
		tx.Rollback()
		utils.WriteError(w, utils.NotFoundError("blog not found"))
		return
	}

	var liked bool
	var existingLike models.Like
	findErr := tx.Where("user_id = ? AND blog_id = ?", userID, blogID).First(&existingLike).Error
	switch {
	case findErr == nil:
		// liked -> not-liked
		if err := tx.Unscoped().Delete(&existingLike).Error; err != nil {
			tx.Rollback()
			http.Error(w, "Error unliking blog", http.StatusInternalServerError)
			return
		}
		if err := tx.Model(&models.Blog{}).Where("id = ?", blogID).
			UpdateColumn("likes_count", gorm.Expr("likes_count - ?", 1)).Error; err != nil {
			tx.Rollback()
			http.Error(w, "Error updating likes count", http.StatusInternalServerError)
			return
		}
		// reputation never goes below zero
		if err := tx.Model(&models.User{}).Where("id = ?", blog.AuthorID).
			UpdateColumn("reputation", gorm.Expr("CASE WHEN reputation > 0 THEN reputation - 1 ELSE 0 END")).Error; err != nil {
			tx.Rollback()
			http.Error(w, "Error updating reputation", http.StatusInternalServerError)
			return
		}
		liked = false

	case errors.Is(findErr, gorm.ErrRecordNotFound):
		// not-liked -> liked
		like := models.Like{UserID: userID, BlogID: uint(blogID)}
		if err := tx.Create(&like).Error; err != nil {
			tx.Rollback()
			// The unique pair index absorbs a concurrent duplicate.
			if isDuplicateErr(err) {
				utils.WriteError(w, utils.DuplicateError("blog already liked"))
				return
			}
			http.Error(w, "Error liking blog", http.StatusInternalServerError)
			return
		}
		if err := tx.Model(&models.Blog{}).Where("id = ?", blogID).
			UpdateColumn("likes_count", gorm.Expr("likes_count + ?", 1)).Error; err != nil {
			tx.Rollback()
			http.Error(w, "Error updating likes count", http.StatusInternalServerError)
			return
		}
		if err := tx.Model(&models.User{}).Where("id = ?", blog.AuthorID).
			UpdateColumn("reputation", gorm.Expr("reputation + ?", 1)).Error; err != nil {
			tx.Rollback()
			http.Error(w, "Error updating reputation", http.StatusInternalServerError)
			return
		}
		liked = true

	default:
		tx.Rollback()
		http.Error(w, "Error reading like state", http.StatusInternalServerError)
		return
	}

	if err := tx.Commit().Error; err != nil {
		http.Error(w, "Error saving like", http.StatusInternalServerError)
		return
	}

	h.db.First(&blog, blogID)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"liked":       liked,
		"likes_count": blog.LikesCount,
	})
}

// SubmitReport records one report per (user, blog). Crossing the distinct
// reporter threshold removes the blog inside the same transaction, so two
// reporters racing over the line produce at most one delete.
func (h *BlogHandler) SubmitReport(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	blogID, err := strconv.ParseUint(vars["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid blog ID", http.StatusBadRequest)
		return
	}

	userID, err := utils.GetUserIDFromContext(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var reportRequest struct {
		Reason string `json:"reason" validate:"required"`
	}
	if err := json.NewDecoder(r.Body).Decode(&reportRequest); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := utils.ValidateStruct(&reportRequest); err != nil {
		utils.WriteError(w, err)
		return
	}

	tx := h.db.Begin()

	var blog models.Blog
	if err := tx.First(&blog, blogID).Error; err != nil {
		tx.Rollback()
		// A blog already removed by an earlier threshold crossing reads as a
		// clean "already removed", not a server error.
		utils.WriteError(w, utils.NotFoundError("blog not found"))
		return
	}

	var existingReport models.Report
	if err := tx.Where("user_id = ? AND blog_id = ?", userID, blogID).First(&existingReport).Error; err == nil {
		tx.Rollback()
		utils.WriteError(w, utils.DuplicateError("you have already reported this blog"))
		return
	}

	report := models.Report{
		UserID: userID,
		BlogID: uint(blogID),
		Reason: reportRequest.Reason,
	}
	if err := tx.Create(&report).Error; err != nil {
		tx.Rollback()
		if isDuplicateErr(err) {
			utils.WriteError(w, utils.DuplicateError("you have already reported this blog"))
			return
		}
		http.Error(w, "Error submitting report", http.StatusInternalServerError)
		return
	}

	var distinctReporters int64
	if err := tx.Model(&models.Report{}).Where("blog_id = ?", blogID).
		Distinct("user_id").Count(&distinctReporters).Error; err != nil {
		tx.Rollback()
		http.Error(w, "Error counting reports", http.StatusInternalServerError)
		return
	}

	removed := false
	if distinctReporters >= models.ReportThreshold {
		if err := removeBlog(tx, &blog); err != nil {
			tx.Rollback()
			http.Error(w, "Error removing reported blog", http.StatusInternalServerError)
			return
		}
		removed = true
	}

	if err := tx.Commit().Error; err != nil {
		http.Error(w, "Error saving report", http.StatusInternalServerError)
		return
	}

	if removed && blog.BannerURL != "" {
		utils.DeleteBanner(blog.BannerURL)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message":      "Report submitted",
		"reports":      distinctReporters,
		"blog_removed": removed,
	})
}

// WithdrawReport removes the caller's report if present; no-op otherwise
func (h *BlogHandler) WithdrawReport(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	blogID, err := strconv.ParseUint(vars["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid blog ID", http.StatusBadRequest)
		return
	}

	userID, err := utils.GetUserIDFromContext(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	result := h.db.Unscoped().Where("user_id = ? AND blog_id = ?", userID, blogID).Delete(&models.Report{})
	if result.Error != nil {
		http.Error(w, "Error withdrawing report", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message":   "Report withdrawn",
		"withdrawn": result.RowsAffected > 0,
	})
}

// FeatureBlog marks or unmarks a blog as featured
func (h *BlogHandler) FeatureBlog(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	blogID, err := strconv.ParseUint(vars["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid blog ID", http.StatusBadRequest)
		return
	}

	userID, err := utils.GetUserIDFromContext(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	if err := utils.Authorize(h.db, userID, utils.CapFeatureBlogs); err != nil {
		utils.WriteError(w, err)
		return
	}

	var featureRequest struct {
		Featured bool `json:"featured"`
	}
	if err := json.NewDecoder(r.Body).Decode(&featureRequest); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	var blog models.Blog
	if err := h.db.First(&blog, blogID).Error; err != nil {
		utils.WriteError(w, utils.NotFoundError("blog not found"))
		return
	}

	blog.IsFeatured = featureRequest.Featured
	if err := h.db.Save(&blog).Error; err != nil {
		http.Error(w, "Error updating blog", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message":     "Blog feature flag updated",
		"is_featured": blog.IsFeatured,
	})
}

func isDuplicateErr(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint") || strings.Contains(msg, "duplicate key")
}

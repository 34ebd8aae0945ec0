package news

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/cit-coders/clubhub-server/cmd/models"
	"github.com/cit-coders/clubhub-server/cmd/utils"
	"github.com/gorilla/mux"
	"gorm.io/gorm"
)

type NewsHandler struct {
	db *gorm.DB
}

func NewNewsHandler(db *gorm.DB) *NewsHandler {
	return &NewsHandler{db: db}
}

func (h *NewsHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/news", h.GetNews).Methods("GET")
	router.HandleFunc("/news", utils.AuthMiddleware(h.CreateNews)).Methods("POST")
	router.HandleFunc("/news/{id}", utils.AuthMiddleware(h.UpdateNews)).Methods("PUT")
	router.HandleFunc("/news/{id}", utils.AuthMiddleware(h.DeleteNews)).Methods("DELETE")
}

func (h *NewsHandler) GetNews(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	pageSize := 10

	var items []models.News
	var total int64

	query := h.db.Model(&models.News{})
	query.Count(&total)

	if err := query.Order("created_at DESC").
		Offset((page - 1) * pageSize).Limit(pageSize).
		Find(&items).Error; err != nil {
		http.Error(w, "Error retrieving news", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"news":        items,
		"total":       total,
		"page":        page,
		"page_size":   pageSize,
		"total_pages": (total + int64(pageSize) - 1) / int64(pageSize),
	})
}

func (h *NewsHandler) CreateNews(w http.ResponseWriter, r *http.Request) {
	userID, err := utils.GetUserIDFromContext(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	if err := utils.Authorize(h.db, userID, utils.CapManageNews); err != nil {
		utils.WriteError(w, err)
		return
	}

	var req struct {
		Title     string `json:"title" validate:"required"`
		Body      string `json:"body" validate:"required"`
		BannerURL string `json:"banner_url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := utils.ValidateStruct(&req); err != nil {
		utils.WriteError(w, err)
		return
	}

	item := models.News{
		Title:     req.Title,
		Body:      req.Body,
		BannerURL: req.BannerURL,
		AddedBy:   userID,
	}
	if err := h.db.Create(&item).Error; err != nil {
		http.Error(w, "Error creating news", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(item)
}

func (h *NewsHandler) UpdateNews(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	newsID, err := strconv.ParseUint(vars["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid news ID", http.StatusBadRequest)
		return
	}

	userID, err := utils.GetUserIDFromContext(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	if err := utils.Authorize(h.db, userID, utils.CapManageNews); err != nil {
		utils.WriteError(w, err)
		return
	}

	var req struct {
		Title     string `json:"title"`
		Body      string `json:"body"`
		BannerURL string `json:"banner_url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	var item models.News
	if err := h.db.First(&item, newsID).Error; err != nil {
		utils.WriteError(w, utils.NotFoundError("news not found"))
		return
	}

	if req.Title != "" {
		item.Title = req.Title
	}
	if req.Body != "" {
		item.Body = req.Body
	}
	if req.BannerURL != "" {
		item.BannerURL = req.BannerURL
	}

	if err := h.db.Save(&item).Error; err != nil {
		http.Error(w, "Error updating news", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(item)
}

// DeleteNews removes a news item by its generated ID
func (h *NewsHandler) DeleteNews(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	newsID, err := strconv.ParseUint(vars["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid news ID", http.StatusBadRequest)
		return
	}

	userID, err := utils.GetUserIDFromContext(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	if err := utils.Authorize(h.db, userID, utils.CapManageNews); err != nil {
		utils.WriteError(w, err)
		return
	}

	result := h.db.Delete(&models.News{}, newsID)
	if result.Error != nil {
		http.Error(w, "Error deleting news", http.StatusInternalServerError)
		return
	}
	if result.RowsAffected == 0 {
		utils.WriteError(w, utils.NotFoundError("news not found"))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"message": "News deleted successfully",
	})
}

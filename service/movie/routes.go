package movie

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/cit-coders/clubhub-server/cmd/models"
	"github.com/cit-coders/clubhub-server/cmd/utils"
	"github.com/gorilla/mux"
	"gorm.io/gorm"
)

// MovieHandler manages the curated session-recording / video list.
type MovieHandler struct {
	db *gorm.DB
}

func NewMovieHandler(db *gorm.DB) *MovieHandler {
	return &MovieHandler{db: db}
}

func (h *MovieHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/movies", h.GetMovies).Methods("GET")
	router.HandleFunc("/movies", utils.AuthMiddleware(h.CreateMovie)).Methods("POST")
	router.HandleFunc("/movies/{id}", utils.AuthMiddleware(h.DeleteMovie)).Methods("DELETE")
}

func (h *MovieHandler) GetMovies(w http.ResponseWriter, r *http.Request) {
	query := h.db.Model(&models.Movie{})
	if category := r.URL.Query().Get("category"); category != "" {
		query = query.Where("category = ?", category)
	}

	var movies []models.Movie
	if err := query.Order("created_at DESC").Find(&movies).Error; err != nil {
		http.Error(w, "Error retrieving movies", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(movies)
}

func (h *MovieHandler) CreateMovie(w http.ResponseWriter, r *http.Request) {
	userID, err := utils.GetUserIDFromContext(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	if err := utils.Authorize(h.db, userID, utils.CapManageMovies); err != nil {
		utils.WriteError(w, err)
		return
	}

	var req struct {
		Title    string `json:"title" validate:"required"`
		URL      string `json:"url" validate:"required,url"`
		Category string `json:"category"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := utils.ValidateStruct(&req); err != nil {
		utils.WriteError(w, err)
		return
	}

	movie := models.Movie{
		Title:    req.Title,
		URL:      req.URL,
		Category: req.Category,
		AddedBy:  userID,
	}
	if err := h.db.Create(&movie).Error; err != nil {
		http.Error(w, "Error creating movie", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(movie)
}

func (h *MovieHandler) DeleteMovie(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	movieID, err := strconv.ParseUint(vars["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid movie ID", http.StatusBadRequest)
		return
	}

	userID, err := utils.GetUserIDFromContext(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	if err := utils.Authorize(h.db, userID, utils.CapManageMovies); err != nil {
		utils.WriteError(w, err)
		return
	}

	result := h.db.Delete(&models.Movie{}, movieID)
	if result.Error != nil {
		http.Error(w, "Error deleting movie", http.StatusInternalServerError)
		return
	}
	if result.RowsAffected == 0 {
		utils.WriteError(w, utils.NotFoundError("movie not found"))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"message": "Movie deleted successfully",
	})
}

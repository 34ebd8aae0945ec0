package quiz

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cit-coders/clubhub-server/cmd/models"
	"github.com/cit-coders/clubhub-server/cmd/utils"
	"github.com/gorilla/mux"
	"gorm.io/gorm"
)

type QuizHandler struct {
	db *gorm.DB
}

func NewQuizHandler(db *gorm.DB) *QuizHandler {
	return &QuizHandler{db: db}
}

func (h *QuizHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/quizzes", h.GetQuizzes).Methods("GET")
	router.HandleFunc("/quizzes", utils.AuthMiddleware(h.CreateQuiz)).Methods("POST")
	router.HandleFunc("/quizzes/{id}", utils.AuthMiddleware(h.UpdateQuiz)).Methods("PUT")
	router.HandleFunc("/quizzes/{id}", utils.AuthMiddleware(h.DeleteQuiz)).Methods("DELETE")
}

// GetQuizzes lists quizzes, optionally only those still open
func (h *QuizHandler) GetQuizzes(w http.ResponseWriter, r *http.Request) {
	query := h.db.Model(&models.Quiz{})
	if r.URL.Query().Get("open") == "true" {
		query = query.Where("deadline > ?", time.Now())
	}

	var quizzes []models.Quiz
	if err := query.Order("deadline ASC").Find(&quizzes).Error; err != nil {
		http.Error(w, "Error retrieving quizzes", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(quizzes)
}

// CreateQuiz adds a quiz; quizmaster only
func (h *QuizHandler) CreateQuiz(w http.ResponseWriter, r *http.Request) {
	userID, err := utils.GetUserIDFromContext(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	if err := utils.Authorize(h.db, userID, utils.CapManageQuizzes); err != nil {
		utils.WriteError(w, err)
		return
	}

	var req struct {
		Code     string    `json:"code" validate:"required"`
		Title    string    `json:"title" validate:"required"`
		Link     string    `json:"link"`
		Topics   []string  `json:"topics"`
		Deadline time.Time `json:"deadline"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := utils.ValidateStruct(&req); err != nil {
		utils.WriteError(w, err)
		return
	}

	quiz := models.Quiz{
		Code:     strings.ToUpper(req.Code),
		Title:    req.Title,
		Link:     req.Link,
		Topics:   req.Topics,
		Deadline: req.Deadline,
		AddedBy:  userID,
	}

	if err := h.db.Create(&quiz).Error; err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") || strings.Contains(err.Error(), "duplicate key") {
			utils.WriteError(w, utils.DuplicateError("quiz code already exists"))
			return
		}
		http.Error(w, "Error creating quiz", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(quiz)
}

// UpdateQuiz edits quiz fields; quizmaster only
func (h *QuizHandler) UpdateQuiz(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	quizID, err := strconv.ParseUint(vars["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid quiz ID", http.StatusBadRequest)
		return
	}

	userID, err := utils.GetUserIDFromContext(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	if err := utils.Authorize(h.db, userID, utils.CapManageQuizzes); err != nil {
		utils.WriteError(w, err)
		return
	}

	var req struct {
		Title    string     `json:"title"`
		Link     string     `json:"link"`
		Topics   []string   `json:"topics"`
		Deadline *time.Time `json:"deadline"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	var quiz models.Quiz
	if err := h.db.First(&quiz, quizID).Error; err != nil {
		utils.WriteError(w, utils.NotFoundError("quiz not found"))
		return
	}

	if req.Title != "" {
		quiz.Title = req.Title
	}
	if req.Link != "" {
		quiz.Link = req.Link
	}
	if req.Topics != nil {
		quiz.Topics = req.Topics
	}
	if req.Deadline != nil {
		quiz.Deadline = *req.Deadline
	}

	if err := h.db.Save(&quiz).Error; err != nil {
		http.Error(w, "Error updating quiz", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(quiz)
}

// DeleteQuiz removes a quiz by ID; quizmaster only
func (h *QuizHandler) DeleteQuiz(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	quizID, err := strconv.ParseUint(vars["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid quiz ID", http.StatusBadRequest)
		return
	}

	userID, err := utils.GetUserIDFromContext(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	if err := utils.Authorize(h.db, userID, utils.CapManageQuizzes); err != nil {
		utils.WriteError(w, err)
		return
	}

	result := h.db.Delete(&models.Quiz{}, quizID)
	if result.Error != nil {
		http.Error(w, "Error deleting quiz", http.StatusInternalServerError)
		return
	}
	if result.RowsAffected == 0 {
		utils.WriteError(w, utils.NotFoundError("quiz not found"))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"message": "Quiz deleted successfully",
	})
}

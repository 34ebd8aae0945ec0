package suggestion

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/cit-coders/clubhub-server/cmd/models"
	"github.com/cit-coders/clubhub-server/cmd/utils"
	"github.com/gorilla/mux"
	"gorm.io/gorm"
)

type SuggestionHandler struct {
	db *gorm.DB
}

func NewSuggestionHandler(db *gorm.DB) *SuggestionHandler {
	return &SuggestionHandler{db: db}
}

func (h *SuggestionHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/suggestions", utils.AuthMiddleware(h.SubmitSuggestion)).Methods("POST")
	router.HandleFunc("/suggestions", utils.AuthMiddleware(h.GetSuggestions)).Methods("GET")
	router.HandleFunc("/suggestions/{id}/status", utils.AuthMiddleware(h.UpdateStatus)).Methods("PUT")
	router.HandleFunc("/suggestions/{id}", utils.AuthMiddleware(h.DeleteSuggestion)).Methods("DELETE")
}

// SubmitSuggestion lets any member file a suggestion
func (h *SuggestionHandler) SubmitSuggestion(w http.ResponseWriter, r *http.Request) {
	userID, err := utils.GetUserIDFromContext(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req struct {
		Content string `json:"content" validate:"required"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := utils.ValidateStruct(&req); err != nil {
		utils.WriteError(w, err)
		return
	}

	suggestion := models.Suggestion{
		UserID:  userID,
		Content: req.Content,
		Status:  "open",
	}
	if err := h.db.Create(&suggestion).Error; err != nil {
		http.Error(w, "Error submitting suggestion", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(suggestion)
}

// GetSuggestions lists suggestions for the suggestion manager; regular
// members only see their own.
func (h *SuggestionHandler) GetSuggestions(w http.ResponseWriter, r *http.Request) {
	userID, err := utils.GetUserIDFromContext(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	query := h.db.Model(&models.Suggestion{}).Preload("User")
	if err := utils.Authorize(h.db, userID, utils.CapManageSuggestions); err != nil {
		query = query.Where("user_id = ?", userID)
	}
	if status := r.URL.Query().Get("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var suggestions []models.Suggestion
	if err := query.Order("created_at DESC").Find(&suggestions).Error; err != nil {
		http.Error(w, "Error retrieving suggestions", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(suggestions)
}

// UpdateStatus moves a suggestion between open/considered/done
func (h *SuggestionHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	suggestionID, err := strconv.ParseUint(vars["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid suggestion ID", http.StatusBadRequest)
		return
	}

	userID, err := utils.GetUserIDFromContext(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	if err := utils.Authorize(h.db, userID, utils.CapManageSuggestions); err != nil {
		utils.WriteError(w, err)
		return
	}

	var req struct {
		Status string `json:"status" validate:"required,oneof=open considered done"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := utils.ValidateStruct(&req); err != nil {
		utils.WriteError(w, err)
		return
	}

	var suggestion models.Suggestion
	if err := h.db.First(&suggestion, suggestionID).Error; err != nil {
		utils.WriteError(w, utils.NotFoundError("suggestion not found"))
		return
	}

	suggestion.Status = req.Status
	if err := h.db.Save(&suggestion).Error; err != nil {
		http.Error(w, "Error updating suggestion", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(suggestion)
}

// DeleteSuggestion removes one suggestion by ID (owner or manager)
func (h *SuggestionHandler) DeleteSuggestion(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	suggestionID, err := strconv.ParseUint(vars["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid suggestion ID", http.StatusBadRequest)
		return
	}

	userID, err := utils.GetUserIDFromContext(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var suggestion models.Suggestion
	if err := h.db.First(&suggestion, suggestionID).Error; err != nil {
		utils.WriteError(w, utils.NotFoundError("suggestion not found"))
		return
	}

	if suggestion.UserID != userID {
		if err := utils.Authorize(h.db, userID, utils.CapManageSuggestions); err != nil {
			utils.WriteError(w, err)
			return
		}
	}

	if err := h.db.Delete(&suggestion).Error; err != nil {
		http.Error(w, "Error deleting suggestion", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"message": "Suggestion deleted successfully",
	})
}

package announcement

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/cit-coders/clubhub-server/cmd/models"
	"github.com/cit-coders/clubhub-server/cmd/utils"
	"github.com/gorilla/mux"
	"gorm.io/gorm"
)

// Broadcaster pushes an announcement to members' devices.
type Broadcaster interface {
	Broadcast(title, body string, data map[string]interface{}, userIDs []string) (int, error)
}

// Publisher fans an event out to live feed subscribers.
type Publisher interface {
	Publish(event string, payload interface{})
}

type AnnouncementHandler struct {
	db        *gorm.DB
	broadcast Broadcaster
	feed      Publisher
}

func NewAnnouncementHandler(db *gorm.DB, broadcast Broadcaster, feed Publisher) *AnnouncementHandler {
	return &AnnouncementHandler{db: db, broadcast: broadcast, feed: feed}
}

func (h *AnnouncementHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/announcements", h.GetAnnouncements).Methods("GET")
	router.HandleFunc("/announcements", utils.AuthMiddleware(h.CreateAnnouncement)).Methods("POST")
	router.HandleFunc("/announcements/{id}", utils.AuthMiddleware(h.UpdateAnnouncement)).Methods("PUT")
	router.HandleFunc("/announcements/{id}", utils.AuthMiddleware(h.DeleteAnnouncement)).Methods("DELETE")
}

// GetAnnouncements lists announcements newest first
func (h *AnnouncementHandler) GetAnnouncements(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	pageSize := 20

	var announcements []models.Announcement
	var total int64

	query := h.db.Model(&models.Announcement{}).Preload("Poster")
	query.Count(&total)

	if err := query.Order("created_at DESC").
		Offset((page - 1) * pageSize).Limit(pageSize).
		Find(&announcements).Error; err != nil {
		http.Error(w, "Error retrieving announcements", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"announcements": announcements,
		"total":         total,
		"page":          page,
		"page_size":     pageSize,
		"total_pages":   (total + int64(pageSize) - 1) / int64(pageSize),
	})
}

// CreateAnnouncement posts an announcement and pushes it to member devices
func (h *AnnouncementHandler) CreateAnnouncement(w http.ResponseWriter, r *http.Request) {
	userID, err := utils.GetUserIDFromContext(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	if err := utils.Authorize(h.db, userID, utils.CapManageAnnouncements); err != nil {
		utils.WriteError(w, err)
		return
	}

	var req struct {
		Message  string `json:"message" validate:"required"`
		Audience string `json:"audience"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := utils.ValidateStruct(&req); err != nil {
		utils.WriteError(w, err)
		return
	}

	announcement := models.Announcement{
		Message:  req.Message,
		Audience: req.Audience,
		PostedBy: userID,
	}
	if announcement.Audience == "" {
		announcement.Audience = "all"
	}

	if err := h.db.Create(&announcement).Error; err != nil {
		http.Error(w, "Error creating announcement", http.StatusInternalServerError)
		return
	}

	// Delivery is best effort and never blocks the response.
	if h.broadcast != nil {
		go func() {
			if _, err := h.broadcast.Broadcast("Club announcement", announcement.Message, map[string]interface{}{
				"announcement_id": announcement.ID,
			}, nil); err != nil {
				log.Printf("Error broadcasting announcement %d: %v", announcement.ID, err)
			}
		}()
	}
	if h.feed != nil {
		h.feed.Publish("announcement_created", map[string]interface{}{
			"id":      announcement.ID,
			"message": announcement.Message,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(announcement)
}

// UpdateAnnouncement edits an announcement's message
func (h *AnnouncementHandler) UpdateAnnouncement(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	announcementID, err := strconv.ParseUint(vars["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid announcement ID", http.StatusBadRequest)
		return
	}

	userID, err := utils.GetUserIDFromContext(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	if err := utils.Authorize(h.db, userID, utils.CapManageAnnouncements); err != nil {
		utils.WriteError(w, err)
		return
	}

	var req struct {
		Message  string `json:"message"`
		Audience string `json:"audience"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	var announcement models.Announcement
	if err := h.db.First(&announcement, announcementID).Error; err != nil {
		utils.WriteError(w, utils.NotFoundError("announcement not found"))
		return
	}

	if req.Message != "" {
		announcement.Message = req.Message
	}
	if req.Audience != "" {
		announcement.Audience = req.Audience
	}

	if err := h.db.Save(&announcement).Error; err != nil {
		http.Error(w, "Error updating announcement", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(announcement)
}

// DeleteAnnouncement removes an announcement by its ID. Identical message
// text elsewhere is untouched; deletion is never keyed by content.
func (h *AnnouncementHandler) DeleteAnnouncement(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	announcementID, err := strconv.ParseUint(vars["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid announcement ID", http.StatusBadRequest)
		return
	}

	userID, err := utils.GetUserIDFromContext(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	if err := utils.Authorize(h.db, userID, utils.CapManageAnnouncements); err != nil {
		utils.WriteError(w, err)
		return
	}

	result := h.db.Delete(&models.Announcement{}, announcementID)
	if result.Error != nil {
		http.Error(w, "Error deleting announcement", http.StatusInternalServerError)
		return
	}
	if result.RowsAffected == 0 {
		utils.WriteError(w, utils.NotFoundError("announcement not found"))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"message": "Announcement deleted successfully",
	})
}

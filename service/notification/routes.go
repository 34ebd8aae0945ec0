package notification

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/cit-coders/clubhub-server/cmd/models"
	"github.com/cit-coders/clubhub-server/cmd/utils"
	"github.com/gorilla/mux"
	expo "github.com/oliveroneill/exponent-server-sdk-golang/sdk"
	"gorm.io/gorm"
)

// NotificationHandler owns the device registry and push delivery. Other
// services use it to announce new content to members' phones.
type NotificationHandler struct {
	db         *gorm.DB
	expoClient *expo.PushClient
}

func NewNotificationHandler(db *gorm.DB) *NotificationHandler {
	return &NotificationHandler{
		db:         db,
		expoClient: expo.NewPushClient(nil),
	}
}

func (h *NotificationHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/devices", utils.AuthMiddleware(h.RegisterDevice)).Methods("POST")
	router.HandleFunc("/devices/{id}", utils.AuthMiddleware(h.DeleteDevice)).Methods("DELETE")
	router.HandleFunc("/notifications/broadcast", utils.AuthMiddleware(h.BroadcastNotification)).Methods("POST")
	router.HandleFunc("/users/{userId}/notifications", h.GetUserNotificationHistory).Methods("GET")
}

// RegisterDevice registers a member device for push notifications
func (h *NotificationHandler) RegisterDevice(w http.ResponseWriter, r *http.Request) {
	var device models.Device
	if err := json.NewDecoder(r.Body).Decode(&device); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if device.UserID == "" || device.Token == "" {
		utils.WriteError(w, utils.ValidationError("userId and token are required"))
		return
	}

	if _, err := expo.NewExponentPushToken(device.Token); err != nil {
		utils.WriteError(w, utils.ValidationError("invalid Expo push token format"))
		return
	}

	// Same (token, user) pair re-registering is an update, not a duplicate.
	var existingDevice models.Device
	result := h.db.Where("token = ? AND user_id = ?", device.Token, device.UserID).First(&existingDevice)
	if result.Error == nil {
		existingDevice.UpdatedAt = time.Now()
		existingDevice.DeviceType = device.DeviceType
		existingDevice.DeviceName = device.DeviceName
		if err := h.db.Save(&existingDevice).Error; err != nil {
			http.Error(w, "Error updating device", http.StatusInternalServerError)
			return
		}
		device = existingDevice
	} else {
		if err := h.db.Create(&device).Error; err != nil {
			http.Error(w, "Error creating device", http.StatusInternalServerError)
			return
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "Device registered successfully",
		"device":  device,
	})
}

// DeleteDevice removes a device token
func (h *NotificationHandler) DeleteDevice(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	deviceID, err := strconv.ParseUint(vars["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid device ID", http.StatusBadRequest)
		return
	}

	result := h.db.Delete(&models.Device{}, deviceID)
	if result.Error != nil {
		http.Error(w, "Error deleting device", http.StatusInternalServerError)
		return
	}
	if result.RowsAffected == 0 {
		utils.WriteError(w, utils.NotFoundError("device not found"))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"message": "Device deleted successfully",
	})
}

// BroadcastNotification pushes to every registered device, or a subset of
// users. Admin/Lead only.
func (h *NotificationHandler) BroadcastNotification(w http.ResponseWriter, r *http.Request) {
	callerID, err := utils.GetUserIDFromContext(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	if err := utils.Authorize(h.db, callerID, utils.CapManageAnnouncements); err != nil {
		utils.WriteError(w, err)
		return
	}

	var req models.BroadcastRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Title == "" || req.Body == "" {
		utils.WriteError(w, utils.ValidationError("title and body are required"))
		return
	}

	sent, err := h.Broadcast(req.Title, req.Body, req.Data, req.UserIDs)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": true,
		"message": fmt.Sprintf("Broadcast sent to %d devices", sent),
	})
}

// Broadcast delivers a push to the given users (or everyone when userIDs is
// empty) and records history per user. Used directly by the announcement
// service.
func (h *NotificationHandler) Broadcast(title, body string, data map[string]interface{}, userIDs []string) (int, error) {
	var devices []models.Device
	query := h.db
	if len(userIDs) > 0 {
		query = query.Where("user_id IN ?", userIDs)
	}
	if err := query.Find(&devices).Error; err != nil {
		return 0, fmt.Errorf("error retrieving devices: %v", err)
	}
	if len(devices) == 0 {
		return 0, nil
	}

	tokens := make([]string, 0, len(devices))
	userSet := make(map[string]bool)
	for _, device := range devices {
		tokens = append(tokens, device.Token)
		userSet[device.UserID] = true
	}

	success, sendErr := h.sendExpoPush(tokens, title, body, data)

	status := "sent"
	if !success || sendErr != nil {
		status = "failed"
	}
	dataJSON, _ := json.Marshal(data)
	for userID := range userSet {
		history := models.NotificationHistory{
			UserID: userID,
			Title:  title,
			Body:   body,
			Data:   string(dataJSON),
			Status: status,
			SentAt: time.Now(),
		}
		if err := h.db.Create(&history).Error; err != nil {
			log.Printf("Error creating notification history for user %s: %v", userID, err)
		}
	}

	if sendErr != nil {
		return 0, sendErr
	}
	return len(tokens), nil
}

// GetUserNotificationHistory lists past notifications for a user
func (h *NotificationHandler) GetUserNotificationHistory(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	userID := vars["userId"]
	if userID == "" {
		http.Error(w, "User ID is required", http.StatusBadRequest)
		return
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	limit := 20

	var count int64
	if err := h.db.Model(&models.NotificationHistory{}).Where("user_id = ?", userID).Count(&count).Error; err != nil {
		http.Error(w, "Error counting notifications", http.StatusInternalServerError)
		return
	}

	var history []models.NotificationHistory
	if err := h.db.Where("user_id = ?", userID).
		Order("sent_at DESC").
		Limit(limit).
		Offset((page - 1) * limit).
		Find(&history).Error; err != nil {
		http.Error(w, "Error retrieving notification history", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"total":   count,
		"page":    page,
		"limit":   limit,
		"history": history,
	})
}

// sendExpoPush pushes one message to a batch of tokens via the Expo SDK
func (h *NotificationHandler) sendExpoPush(tokenStrings []string, title, body string, data map[string]interface{}) (bool, error) {
	var validTokens []expo.ExponentPushToken
	var invalidTokens []string

	for _, tokenString := range tokenStrings {
		pushToken, err := expo.NewExponentPushToken(tokenString)
		if err != nil {
			log.Printf("Invalid push token format %s: %v", tokenString, err)
			invalidTokens = append(invalidTokens, tokenString)
			continue
		}
		validTokens = append(validTokens, pushToken)
	}

	if len(validTokens) == 0 {
		return false, fmt.Errorf("no valid push tokens found")
	}

	var stringData map[string]string
	if data != nil {
		stringData = make(map[string]string)
		for key, value := range data {
			stringData[key] = fmt.Sprintf("%v", value)
		}
	}

	pushMessage := &expo.PushMessage{
		To:       validTokens,
		Body:     body,
		Title:    title,
		Sound:    "default",
		Priority: expo.DefaultPriority,
		Data:     stringData,
	}

	response, err := h.expoClient.Publish(pushMessage)
	if err != nil {
		return false, fmt.Errorf("failed to publish notification: %v", err)
	}

	if validationErr := response.ValidateResponse(); validationErr != nil {
		log.Printf("Push notification validation error: %v", validationErr)
		h.cleanupInvalidTokens(invalidTokens)
		return false, fmt.Errorf("notification validation failed: %v", validationErr)
	}

	if len(invalidTokens) > 0 {
		h.cleanupInvalidTokens(invalidTokens)
	}

	return true, nil
}

func (h *NotificationHandler) cleanupInvalidTokens(tokens []string) {
	for _, token := range tokens {
		if err := h.db.Where("token = ?", token).Delete(&models.Device{}).Error; err != nil {
			log.Printf("Error cleaning up invalid token %s: %v", token, err)
		}
	}
}

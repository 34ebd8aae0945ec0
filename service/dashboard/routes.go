package dashboard

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/cit-coders/clubhub-server/cmd/models"
	"github.com/cit-coders/clubhub-server/cmd/utils"
	"github.com/gorilla/mux"
	"gorm.io/gorm"
)

type DashboardHandler struct {
	db *gorm.DB
}

func NewDashboardHandler(db *gorm.DB) *DashboardHandler {
	return &DashboardHandler{db: db}
}

type DashboardStats struct {
	TotalMembers      int64            `json:"total_members"`
	MembersByRole     map[string]int64 `json:"members_by_role"`
	TotalBlogs        int64            `json:"total_blogs"`
	FeaturedBlogs     int64            `json:"featured_blogs"`
	TotalLikes        int64            `json:"total_likes"`
	OpenReports       int64            `json:"open_reports"`
	OpenSuggestions   int64            `json:"open_suggestions"`
	BlogsThisMonth    int64            `json:"blogs_this_month"`
	AnnouncementCount int64            `json:"announcement_count"`
	UpcomingQuizzes   int64            `json:"upcoming_quizzes"`
}

// RegisterRoutes registers dashboard-related routes with Gorilla Mux
func (h *DashboardHandler) RegisterRoutes(router *mux.Router) {
	dashboardRouter := router.PathPrefix("/dashboard").Subrouter()
	dashboardRouter.HandleFunc("/stats", utils.AuthMiddleware(h.GetDashboardStats)).Methods("GET")
}

func (h *DashboardHandler) GetDashboardStats(w http.ResponseWriter, r *http.Request) {
	userID, err := utils.GetUserIDFromContext(r)
	if err != nil {
		utils.WriteError(w, utils.AuthorizationError("Unauthorized"))
		return
	}
	if err := utils.Authorize(h.db, userID, utils.CapViewDashboard); err != nil {
		utils.WriteError(w, err)
		return
	}

	var stats DashboardStats
	stats.MembersByRole = make(map[string]int64)

	h.db.Model(&models.User{}).Count(&stats.TotalMembers)

	var roleCounts []struct {
		Role  string
		Count int64
	}
	h.db.Model(&models.User{}).
		Select("role, count(*) as count").
		Group("role").
		Scan(&roleCounts)
	for _, rc := range roleCounts {
		stats.MembersByRole[rc.Role] = rc.Count
	}

	h.db.Model(&models.Blog{}).Count(&stats.TotalBlogs)
	h.db.Model(&models.Blog{}).Where("is_featured = ?", true).Count(&stats.FeaturedBlogs)
	h.db.Model(&models.Like{}).Count(&stats.TotalLikes)
	h.db.Model(&models.Report{}).Count(&stats.OpenReports)
	h.db.Model(&models.Suggestion{}).Where("status = ?", "open").Count(&stats.OpenSuggestions)
	h.db.Model(&models.Announcement{}).Count(&stats.AnnouncementCount)

	monthStart := time.Date(time.Now().Year(), time.Now().Month(), 1, 0, 0, 0, 0, time.UTC)
	h.db.Model(&models.Blog{}).Where("created_at >= ?", monthStart).Count(&stats.BlogsThisMonth)
	h.db.Model(&models.Quiz{}).Where("deadline > ?", time.Now()).Count(&stats.UpcomingQuizzes)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(stats)
}

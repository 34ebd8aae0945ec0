package utils

import (
	"github.com/cit-coders/clubhub-server/cmd/models"
	"gorm.io/gorm"
)

// Role is the closed set of club roles. Anything outside this set is
// rejected at registration time.
type Role string

const (
	RoleStudent           Role = "Student"
	RoleAdmin             Role = "Admin"
	RoleLead              Role = "Lead"
	RoleQuizmaster        Role = "Quizmaster"
	RoleNewsMaster        Role = "News-Master"
	RoleSuggestionManager Role = "Suggestion Manager"
	RoleBlogManager       Role = "Blog Manager"
)

// Capability names a privileged action. Handlers check capabilities, never
// role strings, so the role -> permission mapping lives in exactly one place.
type Capability string

const (
	CapManageAnnouncements Capability = "manage_announcements"
	CapManageQuizzes       Capability = "manage_quizzes"
	CapManageNews          Capability = "manage_news"
	CapManageMovies        Capability = "manage_movies"
	CapManageSuggestions   Capability = "manage_suggestions"
	CapModerateBlogs       Capability = "moderate_blogs"
	CapFeatureBlogs        Capability = "feature_blogs"
	CapViewDashboard       Capability = "view_dashboard"
	CapManageRoles         Capability = "manage_roles"
)

var capabilities = map[Role]map[Capability]bool{
	RoleAdmin: {
		CapManageAnnouncements: true,
		CapManageQuizzes:       true,
		CapManageNews:          true,
		CapManageMovies:        true,
		CapManageSuggestions:   true,
		CapModerateBlogs:       true,
		CapFeatureBlogs:        true,
		CapViewDashboard:       true,
		CapManageRoles:         true,
	},
	RoleLead: {
		CapManageAnnouncements: true,
		CapViewDashboard:       true,
	},
	RoleQuizmaster:        {CapManageQuizzes: true},
	RoleNewsMaster:        {CapManageNews: true},
	RoleSuggestionManager: {CapManageSuggestions: true},
	RoleBlogManager: {
		CapModerateBlogs: true,
		CapFeatureBlogs:  true,
	},
	RoleStudent: {},
}

// ValidRole reports whether s is one of the closed role set.
func ValidRole(s string) bool {
	_, ok := capabilities[Role(s)]
	return ok
}

func HasCapability(role Role, cap Capability) bool {
	return capabilities[role][cap]
}

// Authorize is the authoritative server-side check: it loads the caller's
// stored role and verifies the capability. What the client rendered is
// irrelevant here.
func Authorize(db *gorm.DB, userID uint, cap Capability) error {
	var user models.User
	if err := db.Select("role").First(&user, userID).Error; err != nil {
		return AuthorizationError("user not found")
	}
	if !HasCapability(Role(user.Role), cap) {
		return AuthorizationError("role does not permit this action")
	}
	return nil
}

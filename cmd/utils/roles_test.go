package utils

import (
	"testing"

	"github.com/cit-coders/clubhub-server/cmd/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestValidRole(t *testing.T) {
	for _, role := range []string{"Student", "Admin", "Lead", "Quizmaster", "News-Master", "Suggestion Manager", "Blog Manager"} {
		assert.True(t, ValidRole(role), role)
	}
	for _, role := range []string{"", "student", "ADMIN", "Moderator", "Supreme Leader"} {
		assert.False(t, ValidRole(role), role)
	}
}

func TestHasCapability(t *testing.T) {
	tests := []struct {
		role Role
		cap  Capability
		want bool
	}{
		{RoleAdmin, CapManageRoles, true},
		{RoleAdmin, CapModerateBlogs, true},
		{RoleLead, CapManageAnnouncements, true},
		{RoleLead, CapViewDashboard, true},
		{RoleLead, CapManageQuizzes, false},
		{RoleQuizmaster, CapManageQuizzes, true},
		{RoleQuizmaster, CapManageNews, false},
		{RoleNewsMaster, CapManageNews, true},
		{RoleSuggestionManager, CapManageSuggestions, true},
		{RoleBlogManager, CapModerateBlogs, true},
		{RoleBlogManager, CapFeatureBlogs, true},
		{RoleBlogManager, CapManageRoles, false},
		{RoleStudent, CapManageAnnouncements, false},
		{RoleStudent, CapViewDashboard, false},
		{Role("unknown"), CapManageRoles, false},
	}

	for _, tc := range tests {
		assert.Equal(t, tc.want, HasCapability(tc.role, tc.cap), "%s / %s", tc.role, tc.cap)
	}
}

func TestAuthorizeReadsStoredRole(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}))

	admin := models.User{FullName: "A", Email: "a@x.y", USN: "U1", PasswordHash: "x", Role: string(RoleAdmin)}
	student := models.User{FullName: "S", Email: "s@x.y", USN: "U2", PasswordHash: "x", Role: string(RoleStudent)}
	require.NoError(t, db.Create(&admin).Error)
	require.NoError(t, db.Create(&student).Error)

	assert.NoError(t, Authorize(db, admin.ID, CapManageRoles))
	assert.Error(t, Authorize(db, student.ID, CapManageRoles))
	assert.Error(t, Authorize(db, 9999, CapManageRoles))
}

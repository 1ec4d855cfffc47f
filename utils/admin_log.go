package utils

import (
	"floordesign/database"
	"floordesign/logger"
)

// LogAdminActivity records an admin action. Failures are logged, never returned.
func LogAdminActivity(adminID, username, action, details string) {
	if database.DB == nil {
		return
	}
	_, err := database.DB.Exec(
		database.Rebind(database.Driver(), `INSERT INTO admin_activity_logs (admin_id, username, action, details, created_at) VALUES (?, ?, ?, ?, ?)`),
		adminID, username, action, details, FormatDateTimeForDB(NowParis()),
	)
	if err != nil {
		logger.Error("Failed to log admin activity: %v", err)
	}
}

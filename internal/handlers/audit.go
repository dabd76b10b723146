package handlers

import (
	"net/http"

	"studhelp/internal/database"
	"studhelp/internal/models"

	"github.com/gin-gonic/gin"
)

// журнал аудита целиком — только для админа (роут закрыт RequireRole)
func ListAuditLogs(c *gin.Context) {
	var logs []models.AuditLog
	database.DB.
		Preload("User").
		Order("created_at desc").
		Limit(200).
		Find(&logs)

	c.JSON(http.StatusOK, gin.H{"logs": logs})
}

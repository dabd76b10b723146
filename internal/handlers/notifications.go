package handlers

import (
	"net/http"

	"studhelp/internal/database"
	"studhelp/internal/models"

	"github.com/gin-gonic/gin"
)

func ListMyNotifications(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		serverError(c)
		return
	}

	var items []models.Notification
	database.DB.
		Where("recipient_id = ?", user.ID).
		Order("created_at desc").
		Limit(100).
		Find(&items)

	c.JSON(http.StatusOK, gin.H{"notifications": items})
}

func MarkNotificationRead(c *gin.Context) {
	user, _ := currentUser(c)
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var n models.Notification
	if err := database.DB.First(&n, id).Error; err != nil {
		notFound(c, "Уведомление не найдено")
		return
	}
	if n.RecipientID != user.ID {
		forbidden(c, "Это не ваше уведомление")
		return
	}

	n.Read = true
	if err := database.DB.Save(&n).Error; err != nil {
		serverError(c)
		return
	}

	c.JSON(http.StatusOK, n)
}

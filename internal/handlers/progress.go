package handlers

import (
	"fmt"
	"math"
	"net/http"
	"time"

	"studhelp/internal/config"
	"studhelp/internal/database"
	"studhelp/internal/models"

	"github.com/gin-gonic/gin"
)

// Политика согласования трёх путей записи прогресса, задаётся при старте.
// См. config.ProgressPolicy.
var progressPolicy = config.PolicyTeamFirst

func SetProgressPolicy(p config.ProgressPolicy) {
	progressPolicy = p
}

//
// АГРЕГАТОР ПРОГРЕССА
//

// recalcTeamProgress — итог заказа = округлённое среднее по активным
// участникам. Пустая команда итог не трогает (прежнее значение остаётся).
// Возвращает актуальный прогресс заказа.
func recalcTeamProgress(orderID uint) int {
	var members []models.OrderTeamMember
	if err := database.DB.
		Where("order_id = ? AND status = ?", orderID, models.MemberActive).
		Find(&members).Error; err != nil {
		return 0
	}

	var order models.Order
	if err := database.DB.First(&order, orderID).Error; err != nil {
		return 0
	}

	if len(members) == 0 {
		return order.Progress
	}

	sum := 0
	for _, m := range members {
		sum += m.Progress
	}
	total := models.ClampProgress(int(math.Round(float64(sum) / float64(len(members)))))

	_ = database.DB.Model(&models.Order{}).
		Where("id = ?", orderID).
		Update("progress", total).Error

	return total
}

// activeMemberCount — размер активной команды заказа
func activeMemberCount(orderID uint) int64 {
	var n int64
	database.DB.Model(&models.OrderTeamMember{}).
		Where("order_id = ? AND status = ?", orderID, models.MemberActive).
		Count(&n)
	return n
}

type boardSyncForm struct {
	TotalItems     int `json:"total_items"`
	CompletedItems int `json:"completed_items"`
}

// BoardSync — колбэк доски: счётчики карточек превращаются в процент.
// Сырые числа всегда фиксируются заметкой; применяется ли процент к заказу —
// решает политика (при team_first живая команда имеет приоритет).
func BoardSync(c *gin.Context) {
	user, _ := currentUser(c)
	order, ok := loadOrderWithTeam(c)
	if !ok {
		return
	}

	if user.Role != models.RoleAdmin && order.ActiveMember(user.ID) == nil {
		forbidden(c, "Синк доски доступен команде и админу")
		return
	}

	var form boardSyncForm
	if err := c.ShouldBindJSON(&form); err != nil || form.TotalItems < 0 || form.CompletedItems < 0 {
		badRequest(c, "Некорректные данные")
		return
	}
	if form.CompletedItems > form.TotalItems {
		badRequest(c, "Выполненных карточек больше, чем всего")
		return
	}

	pct := 0
	if form.TotalItems > 0 {
		pct = int(math.Round(100 * float64(form.CompletedItems) / float64(form.TotalItems)))
	}
	pct = models.ClampProgress(pct)

	var ws models.Workspace
	if err := database.DB.Where("order_id = ?", order.ID).First(&ws).Error; err == nil {
		now := time.Now()
		ws.TotalItems = form.TotalItems
		ws.CompletedItems = form.CompletedItems
		ws.LastSyncAt = &now
		_ = database.DB.Save(&ws).Error
	}

	note := models.ProgressNote{
		OrderID:  order.ID,
		AuthorID: user.ID,
		Text: fmt.Sprintf("Синк доски: %d из %d карточек, прогресс %d%%",
			form.CompletedItems, form.TotalItems, pct),
	}
	_ = database.DB.Create(&note).Error

	applied := true
	if progressPolicy == config.PolicyTeamFirst && activeMemberCount(order.ID) > 0 {
		applied = false
	}
	if applied {
		_ = database.DB.Model(&models.Order{}).
			Where("id = ?", order.ID).
			Update("progress", pct).Error
		order.Progress = pct
	}

	c.JSON(http.StatusOK, gin.H{
		"progress": order.Progress,
		"applied":  applied,
	})
}

type setProgressForm struct {
	Progress int `json:"progress"`
}

// SetProgress — прямая админская запись прогресса (ручной override).
// При team_first и живой команде отклоняется: итог считается по команде.
func SetProgress(c *gin.Context) {
	user, _ := currentUser(c)
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var form setProgressForm
	if err := c.ShouldBindJSON(&form); err != nil {
		badRequest(c, "Некорректные данные")
		return
	}

	var order models.Order
	if err := database.DB.First(&order, id).Error; err != nil {
		notFound(c, "Заказ не найден")
		return
	}

	if progressPolicy == config.PolicyTeamFirst && activeMemberCount(order.ID) > 0 {
		conflict(c, "Прогресс считается по команде, ручная запись отключена политикой")
		return
	}

	order.Progress = models.ClampProgress(form.Progress)
	if err := database.DB.Save(&order).Error; err != nil {
		serverError(c)
		return
	}

	database.CreateAuditLog(user.ID, "order", order.ID, "progress",
		fmt.Sprintf("Прогресс выставлен вручную: %d%%", order.Progress))

	c.JSON(http.StatusOK, gin.H{"progress": order.Progress})
}

package handlers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"studhelp/internal/database"
	"studhelp/internal/models"
	"studhelp/internal/notify"

	"github.com/gin-gonic/gin"
)

//
// ЗАПРОСЫ КОМАНДЫ К АДМИНУ
//

type teamRequestForm struct {
	Type        string `json:"type"`
	Description string `json:"description"`
}

// Запрос подаёт лид (доп. ресурсы, перенос срока и т.п.)
func SubmitTeamRequest(c *gin.Context) {
	user, _ := currentUser(c)
	order, ok := loadOrderWithTeam(c)
	if !ok {
		return
	}

	if !isLead(user, order) {
		forbidden(c, "Запросы подаёт текущий лид")
		return
	}

	var form teamRequestForm
	if err := c.ShouldBindJSON(&form); err != nil || strings.TrimSpace(form.Type) == "" {
		badRequest(c, "Укажите тип запроса")
		return
	}

	// повторный запрос того же типа, пока висит прошлый — conflict
	var pending int64
	database.DB.Model(&models.TeamRequest{}).
		Where("order_id = ? AND type = ? AND status = ?",
			order.ID, strings.TrimSpace(form.Type), models.RequestPending).
		Count(&pending)
	if pending > 0 {
		conflict(c, "Такой запрос уже ждёт ответа")
		return
	}

	req := models.TeamRequest{
		OrderID:     order.ID,
		RequesterID: user.ID,
		Type:        strings.TrimSpace(form.Type),
		Description: strings.TrimSpace(form.Description),
		Status:      models.RequestPending,
	}
	if err := database.DB.Create(&req).Error; err != nil {
		serverError(c)
		return
	}

	database.CreateAuditLog(user.ID, "request", req.ID, "create",
		fmt.Sprintf("Запрос команды по заказу %d: %s", order.ID, req.Type))
	notify.SendToAdmins("team_request", "Запрос от команды",
		fmt.Sprintf("По работе «%s»: %s", order.Title, req.Type),
		order.ID, "order", orderLink(order.ID), nil)

	c.JSON(http.StatusCreated, req)
}

type respondRequestForm struct {
	Approve  bool   `json:"approve"`
	Response string `json:"response"`
}

// Ответ админа на запрос команды
func RespondTeamRequest(c *gin.Context) {
	user, _ := currentUser(c)
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req models.TeamRequest
	if err := database.DB.First(&req, id).Error; err != nil {
		notFound(c, "Запрос не найден")
		return
	}
	if req.Status != models.RequestPending {
		conflict(c, "По запросу уже дан ответ")
		return
	}

	var form respondRequestForm
	if err := c.ShouldBindJSON(&form); err != nil {
		badRequest(c, "Некорректные данные")
		return
	}

	now := time.Now()
	if form.Approve {
		req.Status = models.RequestApproved
	} else {
		req.Status = models.RequestRejected
	}
	req.AdminResponse = strings.TrimSpace(form.Response)
	req.RespondedAt = &now

	if err := database.DB.Save(&req).Error; err != nil {
		serverError(c)
		return
	}

	database.CreateAuditLog(user.ID, "request", req.ID, "respond",
		fmt.Sprintf("Запрос %s: %s", req.Type, req.Status))
	notify.Send(req.RequesterID, "request_answered", "Ответ на запрос",
		fmt.Sprintf("Запрос «%s»: %s. %s", req.Type, req.Status, req.AdminResponse),
		req.OrderID, "order", orderLink(req.OrderID), nil, nil)

	c.JSON(http.StatusOK, req)
}

func ListTeamRequests(c *gin.Context) {
	user, _ := currentUser(c)
	order, ok := loadOrderWithTeam(c)
	if !ok {
		return
	}
	if !canSeeOrder(user, order) {
		forbidden(c, "Нет доступа к заказу")
		return
	}

	var reqs []models.TeamRequest
	database.DB.Where("order_id = ?", order.ID).Order("created_at desc").Find(&reqs)

	c.JSON(http.StatusOK, gin.H{"requests": reqs})
}

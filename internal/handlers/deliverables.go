package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"studhelp/internal/database"
	"studhelp/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

//
// ФАЙЛЫ РЕЗУЛЬТАТА
//

type uploadForm struct {
	FileName string `json:"file_name"`
	FileURL  string `json:"file_url"`
}

// Промежуточные версии грузят исполнители и админ; финальными файлы
// становятся только при передаче клиенту (DeliverOrder)
func UploadDeliverable(c *gin.Context) {
	user, _ := currentUser(c)
	order, ok := loadOrderWithTeam(c)
	if !ok {
		return
	}

	if user.Role != models.RoleAdmin && order.ActiveMember(user.ID) == nil {
		forbidden(c, "Файлы грузит команда или админ")
		return
	}

	var form uploadForm
	if err := c.ShouldBindJSON(&form); err != nil || strings.TrimSpace(form.FileName) == "" {
		badRequest(c, "У файла должно быть имя")
		return
	}

	var version int64
	database.DB.Model(&models.Deliverable{}).Where("order_id = ?", order.ID).Count(&version)

	d := models.Deliverable{
		OrderID:      order.ID,
		StorageKey:   uuid.NewString(),
		FileName:     strings.TrimSpace(form.FileName),
		FileURL:      form.FileURL,
		UploadedByID: user.ID,
		Version:      int(version) + 1,
	}
	if err := database.DB.Create(&d).Error; err != nil {
		serverError(c)
		return
	}

	database.CreateAuditLog(user.ID, "order", order.ID, "upload",
		fmt.Sprintf("Загружен файл %s (v%d)", d.FileName, d.Version))

	c.JSON(http.StatusCreated, d)
}

func ListDeliverables(c *gin.Context) {
	user, _ := currentUser(c)
	order, ok := loadOrderWithTeam(c)
	if !ok {
		return
	}
	if !canSeeOrder(user, order) {
		forbidden(c, "Нет доступа к заказу")
		return
	}

	dbq := database.DB.Where("order_id = ?", order.ID).Order("version asc")
	// клиент видит только финальные версии
	if user.Role == models.RoleClient {
		dbq = dbq.Where("is_final = ?", true)
	}

	var files []models.Deliverable
	dbq.Find(&files)

	c.JSON(http.StatusOK, gin.H{"deliverables": files})
}

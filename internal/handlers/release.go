package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"studhelp/internal/database"
	"studhelp/internal/models"
	"studhelp/internal/notify"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

//
// БАРЬЕР РЕЛИЗОВ
//
// Каждый назначенный исполнитель независимо отмечает "моя часть готова".
// Заказ уходит в released_to_admin только когда отметились все. Барьер
// считается из БД на каждом релизе (не из памяти процесса): корректность
// обязана переживать рестарты и параллельные запросы, поэтому транзакция
// начинается с блокировки строки заказа (SELECT ... FOR UPDATE) —
// параллельные релизы по одному заказу сериализуются, и счётчик не
// промахивается мимо последнего релиза. Релизы принимаются только из
// статуса working: барьер не утаскивает назад заказ, который админ уже
// провёл дальше.

var (
	errAlreadyReleased = errors.New("already released")
	errNotWorking      = errors.New("order is not in working status")
)

type releaseForm struct {
	Deliverables []string `json:"deliverables"`
	Notes        string   `json:"notes"`
}

func ReleaseOrder(c *gin.Context) {
	user, _ := currentUser(c)
	order, ok := loadOrderWithTeam(c)
	if !ok {
		return
	}

	if order.ActiveMember(user.ID) == nil {
		forbidden(c, "Вы не назначены на этот заказ")
		return
	}

	var form releaseForm
	if err := c.ShouldBindJSON(&form); err != nil {
		badRequest(c, "Некорректные данные")
		return
	}

	var (
		releasedCount int64
		requiredCount int64
		barrierFired  bool
	)

	err := database.DB.Transaction(func(tx *gorm.DB) error {
		var locked models.Order
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&locked, order.ID).Error; err != nil {
			return err
		}
		if locked.Status != models.StatusWorking {
			return errNotWorking
		}

		// идемпотентность: одна запись на (заказ, исполнитель)
		var existing int64
		if err := tx.Model(&models.OrderRelease{}).
			Where("order_id = ? AND worker_id = ?", order.ID, user.ID).
			Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return errAlreadyReleased
		}

		raw, _ := json.Marshal(form.Deliverables)
		rel := models.OrderRelease{
			OrderID:      order.ID,
			WorkerID:     user.ID,
			Deliverables: string(raw),
			Notes:        form.Notes,
		}
		if err := tx.Create(&rel).Error; err != nil {
			// гонка двух релизов упирается в уникальный индекс
			return errAlreadyReleased
		}

		if err := tx.Model(&models.OrderTeamMember{}).
			Where("order_id = ? AND status = ?", order.ID, models.MemberActive).
			Count(&requiredCount).Error; err != nil {
			return err
		}
		if requiredCount < 1 {
			requiredCount = 1
		}

		// релизы с тех пор исключённых участников барьер не закрывают
		if err := tx.Model(&models.OrderRelease{}).
			Joins("JOIN order_team_members ON order_team_members.order_id = order_releases.order_id"+
				" AND order_team_members.worker_id = order_releases.worker_id").
			Where("order_releases.order_id = ? AND order_team_members.status = ?",
				order.ID, models.MemberActive).
			Count(&releasedCount).Error; err != nil {
			return err
		}

		if releasedCount >= requiredCount {
			// условный UPDATE: переход в released_to_admin ровно один раз
			res := tx.Model(&models.Order{}).
				Where("id = ? AND status = ?", order.ID, models.StatusWorking).
				Update("status", models.StatusReleasedToAdmin)
			if res.Error != nil {
				return res.Error
			}
			barrierFired = res.RowsAffected == 1
		}
		return nil
	})

	if errors.Is(err, errAlreadyReleased) {
		conflict(c, "Вы уже отметили готовность по этому заказу")
		return
	}
	if errors.Is(err, errNotWorking) {
		illegalTransition(c, "Релизы принимаются только по заказу в работе")
		return
	}
	if err != nil {
		serverError(c)
		return
	}

	allReleased := releasedCount >= requiredCount

	database.CreateAuditLog(user.ID, "order", order.ID, "release",
		fmt.Sprintf("Релиз исполнителя %d (%d/%d)", user.ID, releasedCount, requiredCount))

	// уведомления вне транзакции: их судьба на результат релиза не влияет
	if barrierFired {
		notify.SendToAdmins("order_released", "Все исполнители готовы",
			fmt.Sprintf("Работа «%s» собрана, можно передавать клиенту", order.Title),
			order.ID, "order", orderLink(order.ID),
			[]models.NotificationAction{{
				ID:     "release_to_client",
				Label:  "Release to Client",
				Kind:   "navigate",
				Target: orderLink(order.ID),
			}})
	} else if !allReleased {
		notifyUnreleased(order, user.ID)
	}

	c.JSON(http.StatusOK, gin.H{
		"released_count": releasedCount,
		"required_count": requiredCount,
		"all_released":   allReleased,
	})
}

// пинаем тех, кто ещё не отметился (кроме самого релизера)
func notifyUnreleased(order *models.Order, releaserID uint) {
	released := map[uint]bool{}
	var rels []models.OrderRelease
	database.DB.Where("order_id = ?", order.ID).Find(&rels)
	for _, r := range rels {
		released[r.WorkerID] = true
	}

	for _, m := range order.Team {
		if m.Status != models.MemberActive || m.WorkerID == releaserID || released[m.WorkerID] {
			continue
		}
		notify.Send(m.WorkerID, "release_pending", "Команда ждёт ваш релиз",
			fmt.Sprintf("По работе «%s» отметьте готовность своей части", order.Title),
			order.ID, "order", orderLink(order.ID), nil, nil)
	}
}

// GetReleaseStatus — срез барьера: кто отметился, когда и с чем
func GetReleaseStatus(c *gin.Context) {
	user, _ := currentUser(c)
	order, ok := loadOrderWithTeam(c)
	if !ok {
		return
	}
	if !canSeeOrder(user, order) {
		forbidden(c, "Нет доступа к заказу")
		return
	}

	var rels []models.OrderRelease
	database.DB.Where("order_id = ?", order.ID).Find(&rels)

	byWorker := map[uint]*models.OrderRelease{}
	for i := range rels {
		byWorker[rels[i].WorkerID] = &rels[i]
	}

	workers := make([]gin.H, 0, len(order.Team))
	var requiredCount, releasedCount int
	for _, m := range order.Team {
		if m.Status != models.MemberActive {
			continue
		}
		requiredCount++

		entry := gin.H{
			"worker_id": m.WorkerID,
			"released":  false,
		}
		if rel, ok := byWorker[m.WorkerID]; ok {
			var files []string
			_ = json.Unmarshal([]byte(rel.Deliverables), &files)
			releasedCount++
			entry["released"] = true
			entry["released_at"] = rel.CreatedAt
			entry["deliverables"] = files
			entry["notes"] = rel.Notes
		}
		workers = append(workers, entry)
	}
	if requiredCount < 1 {
		requiredCount = 1
	}

	c.JSON(http.StatusOK, gin.H{
		"workers":        workers,
		"released_count": releasedCount,
		"required_count": requiredCount,
		"all_released":   releasedCount >= requiredCount,
	})
}

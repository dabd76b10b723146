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
// РОСТЕР КОМАНДЫ
//

func loadOrderWithTeam(c *gin.Context) (*models.Order, bool) {
	id, ok := paramID(c, "id")
	if !ok {
		return nil, false
	}
	var order models.Order
	if err := database.DB.Preload("Team").First(&order, id).Error; err != nil {
		notFound(c, "Заказ не найден")
		return nil, false
	}
	return &order, true
}

func isLead(user models.User, order *models.Order) bool {
	m := order.ActiveMember(user.ID)
	return m != nil && m.Role == models.TeamLead
}

type addMemberForm struct {
	WorkerID         uint   `json:"worker_id"`
	Role             string `json:"role"`
	Responsibilities string `json:"responsibilities"`
}

// Добавление в команду: admin или лид. Один активный вход на исполнителя.
func AddTeamMember(c *gin.Context) {
	user, _ := currentUser(c)
	order, ok := loadOrderWithTeam(c)
	if !ok {
		return
	}

	if user.Role != models.RoleAdmin && !isLead(user, order) {
		forbidden(c, "Состав меняет лид или админ")
		return
	}

	var form addMemberForm
	if err := c.ShouldBindJSON(&form); err != nil || form.WorkerID == 0 {
		badRequest(c, "Некорректные данные")
		return
	}

	role := models.TeamRole(form.Role)
	if role == "" {
		role = models.TeamDeveloper
	}
	if !models.ValidTeamRole(role) {
		badRequest(c, "Неизвестная роль в команде")
		return
	}
	if role == models.TeamLead {
		badRequest(c, "Лид назначается через смену лида")
		return
	}

	if order.ActiveMember(form.WorkerID) != nil {
		conflict(c, "Исполнитель уже в команде")
		return
	}

	var worker models.User
	if err := database.DB.First(&worker, form.WorkerID).Error; err != nil {
		notFound(c, "Пользователь не найден")
		return
	}
	if !worker.IsWorker() || worker.Banned {
		badRequest(c, "Пользователь не может быть исполнителем")
		return
	}

	member := models.OrderTeamMember{
		OrderID:          order.ID,
		WorkerID:         worker.ID,
		Role:             role,
		Responsibilities: strings.TrimSpace(form.Responsibilities),
		Status:           models.MemberActive,
		JoinedAt:         time.Now(),
	}
	if err := database.DB.Create(&member).Error; err != nil {
		serverError(c)
		return
	}

	database.CreateAuditLog(user.ID, "team", order.ID, "member_add",
		fmt.Sprintf("В команду добавлен %s (%s)", worker.Username, role))
	notify.Send(worker.ID, "team_joined", "Вас добавили в команду",
		fmt.Sprintf("Вы участвуете в работе «%s» как %s", order.Title, role),
		order.ID, "order", orderLink(order.ID), nil, nil)
	if leadID := order.LeadWorkerID(); leadID != 0 && leadID != user.ID {
		notify.Send(leadID, "team_changed", "Состав команды изменился",
			fmt.Sprintf("К работе «%s» подключён %s", order.Title, worker.Username),
			order.ID, "order", orderLink(order.ID), nil, nil)
	}

	c.JSON(http.StatusCreated, member)
}

type removeMemberForm struct {
	Reason string `json:"reason"`
}

// Удаление из команды — только soft-delete. Лида удалить нельзя,
// сначала нужно передать лидерство.
func RemoveTeamMember(c *gin.Context) {
	user, _ := currentUser(c)
	order, ok := loadOrderWithTeam(c)
	if !ok {
		return
	}

	if user.Role != models.RoleAdmin && !isLead(user, order) {
		forbidden(c, "Состав меняет лид или админ")
		return
	}

	workerID, ok := paramID(c, "worker_id")
	if !ok {
		return
	}

	member := order.ActiveMember(workerID)
	if member == nil {
		notFound(c, "Исполнитель не найден в команде")
		return
	}
	if member.Role == models.TeamLead {
		forbidden(c, "Сначала передайте лидерство другому участнику")
		return
	}

	var form removeMemberForm
	_ = c.ShouldBindJSON(&form)

	member.Status = models.MemberRemoved
	member.RemovedReason = strings.TrimSpace(form.Reason)
	if err := database.DB.Save(member).Error; err != nil {
		serverError(c)
		return
	}

	recalcTeamProgress(order.ID)

	database.CreateAuditLog(user.ID, "team", order.ID, "member_remove",
		fmt.Sprintf("Из команды исключён исполнитель %d", workerID))
	notify.Send(workerID, "team_removed", "Вас исключили из команды",
		fmt.Sprintf("Вы больше не участвуете в работе «%s». %s", order.Title, member.RemovedReason),
		order.ID, "order", orderLink(order.ID), nil, nil)

	c.JSON(http.StatusOK, member)
}

type updateMemberForm struct {
	Role             *string        `json:"role"`
	Responsibilities *string        `json:"responsibilities"`
	Modules          []moduleUpdate `json:"modules"`
}

// Правка записи ростера: лид или админ. Снять роль лида может только админ.
func UpdateTeamMember(c *gin.Context) {
	user, _ := currentUser(c)
	order, ok := loadOrderWithTeam(c)
	if !ok {
		return
	}

	if user.Role != models.RoleAdmin && !isLead(user, order) {
		forbidden(c, "Запись ростера меняет лид или админ")
		return
	}

	workerID, ok := paramID(c, "worker_id")
	if !ok {
		return
	}
	member := order.ActiveMember(workerID)
	if member == nil {
		notFound(c, "Исполнитель не найден в команде")
		return
	}

	var form updateMemberForm
	if err := c.ShouldBindJSON(&form); err != nil {
		badRequest(c, "Некорректные данные")
		return
	}

	if form.Role != nil {
		newRole := models.TeamRole(*form.Role)
		if !models.ValidTeamRole(newRole) {
			badRequest(c, "Неизвестная роль в команде")
			return
		}
		if member.Role == models.TeamLead && newRole != models.TeamLead && user.Role != models.RoleAdmin {
			forbidden(c, "Снять роль лида может только админ")
			return
		}
		if newRole == models.TeamLead && member.Role != models.TeamLead {
			badRequest(c, "Лид назначается через смену лида")
			return
		}
		member.Role = newRole
	}
	if form.Responsibilities != nil {
		member.Responsibilities = strings.TrimSpace(*form.Responsibilities)
	}

	if err := database.DB.Save(member).Error; err != nil {
		serverError(c)
		return
	}

	applyModuleUpdates(member.ID, form.Modules)

	database.CreateAuditLog(user.ID, "team", order.ID, "member_update",
		fmt.Sprintf("Обновлена запись исполнителя %d", workerID))

	c.JSON(http.StatusOK, member)
}

type changeLeadForm struct {
	WorkerID uint `json:"worker_id"`
}

// Смена лида: старый лид становится senior, новый — lead.
// Лид в команде всегда ровно один.
func ChangeLead(c *gin.Context) {
	user, _ := currentUser(c)
	order, ok := loadOrderWithTeam(c)
	if !ok {
		return
	}

	if user.Role != models.RoleAdmin && !isLead(user, order) {
		forbidden(c, "Лидерство передаёт текущий лид или админ")
		return
	}

	var form changeLeadForm
	if err := c.ShouldBindJSON(&form); err != nil || form.WorkerID == 0 {
		badRequest(c, "Некорректные данные")
		return
	}

	next := order.ActiveMember(form.WorkerID)
	if next == nil {
		badRequest(c, "Новый лид должен быть активным участником команды")
		return
	}
	if next.Role == models.TeamLead {
		conflict(c, "Этот участник уже лид")
		return
	}

	var prevLeadID uint
	for i := range order.Team {
		m := &order.Team[i]
		if m.Status == models.MemberActive && m.Role == models.TeamLead {
			prevLeadID = m.WorkerID
			m.Role = models.TeamSenior
			if err := database.DB.Save(m).Error; err != nil {
				serverError(c)
				return
			}
		}
	}

	next.Role = models.TeamLead
	if err := database.DB.Save(next).Error; err != nil {
		serverError(c)
		return
	}

	database.CreateAuditLog(user.ID, "team", order.ID, "lead_change",
		fmt.Sprintf("Лидерство передано исполнителю %d", next.WorkerID))
	notify.Send(next.WorkerID, "lead_assigned", "Вы теперь лид",
		fmt.Sprintf("Вы ведёте работу «%s»", order.Title),
		order.ID, "order", orderLink(order.ID), nil, nil)
	if prevLeadID != 0 {
		notify.Send(prevLeadID, "lead_changed", "Лидерство передано",
			fmt.Sprintf("По работе «%s» назначен новый лид", order.Title),
			order.ID, "order", orderLink(order.ID), nil, nil)
	}

	c.JSON(http.StatusOK, gin.H{"lead_worker_id": next.WorkerID})
}

//
// ИНДИВИДУАЛЬНЫЙ ПРОГРЕСС И МОДУЛИ
//

type moduleUpdate struct {
	ID       uint   `json:"id"`
	Status   string `json:"status"`
	Progress *int   `json:"progress"`
}

type recordProgressForm struct {
	Progress int            `json:"progress"`
	Note     string         `json:"note"`
	Modules  []moduleUpdate `json:"modules"`
}

// прогресс, на котором пингуем лида
var progressMilestones = map[int]bool{25: true, 50: true, 75: true, 100: true}

// точечные правки модулей участника; чужой или несуществующий
// модуль молча пропускаем
func applyModuleUpdates(memberID uint, updates []moduleUpdate) {
	for _, mu := range updates {
		if mu.ID == 0 {
			continue
		}
		var mod models.WorkModule
		if err := database.DB.
			Where("id = ? AND member_id = ?", mu.ID, memberID).
			First(&mod).Error; err != nil {
			continue
		}
		if mu.Status != "" {
			switch models.ModuleStatus(mu.Status) {
			case models.ModulePending, models.ModuleInProgress, models.ModuleDone:
				mod.Status = models.ModuleStatus(mu.Status)
			}
		}
		if mu.Progress != nil {
			mod.Progress = models.ClampProgress(*mu.Progress)
		}
		_ = database.DB.Save(&mod).Error
	}
}

// Исполнитель отчитывается о своём прогрессе; итог по заказу
// пересчитывается агрегатором из среднего по активной команде
func RecordProgress(c *gin.Context) {
	user, _ := currentUser(c)
	order, ok := loadOrderWithTeam(c)
	if !ok {
		return
	}

	member := order.ActiveMember(user.ID)
	if member == nil {
		forbidden(c, "Вы не назначены на этот заказ")
		return
	}

	var form recordProgressForm
	if err := c.ShouldBindJSON(&form); err != nil {
		badRequest(c, "Некорректные данные")
		return
	}

	member.Progress = models.ClampProgress(form.Progress)
	if err := database.DB.Save(member).Error; err != nil {
		serverError(c)
		return
	}

	if text := strings.TrimSpace(form.Note); text != "" {
		note := models.ProgressNote{OrderID: order.ID, AuthorID: user.ID, Text: text}
		_ = database.DB.Create(&note).Error
	}

	applyModuleUpdates(member.ID, form.Modules)

	total := recalcTeamProgress(order.ID)

	database.CreateAuditLog(user.ID, "team", order.ID, "progress",
		fmt.Sprintf("Прогресс исполнителя %d: %d%%", user.ID, member.Progress))

	// на круглых отметках пингуем лида (если отчитался не он сам)
	if leadID := order.LeadWorkerID(); progressMilestones[member.Progress] && leadID != 0 && leadID != user.ID {
		notify.Send(leadID, "progress_milestone", "Веха прогресса",
			fmt.Sprintf("%s дошёл до %d%% по работе «%s»", user.Username, member.Progress, order.Title),
			order.ID, "order", orderLink(order.ID), nil, nil)
	}

	c.JSON(http.StatusOK, gin.H{
		"member_progress": member.Progress,
		"order_progress":  total,
	})
}

type assignModuleForm struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Закрепление модуля за участником — прерогатива лида
func AssignModule(c *gin.Context) {
	user, _ := currentUser(c)
	order, ok := loadOrderWithTeam(c)
	if !ok {
		return
	}

	if !isLead(user, order) {
		forbidden(c, "Модули раздаёт текущий лид")
		return
	}

	workerID, ok := paramID(c, "worker_id")
	if !ok {
		return
	}
	member := order.ActiveMember(workerID)
	if member == nil {
		notFound(c, "Исполнитель не найден в команде")
		return
	}

	var form assignModuleForm
	if err := c.ShouldBindJSON(&form); err != nil || strings.TrimSpace(form.Title) == "" {
		badRequest(c, "У модуля должно быть название")
		return
	}

	mod := models.WorkModule{
		OrderID:     order.ID,
		MemberID:    member.ID,
		Title:       strings.TrimSpace(form.Title),
		Description: strings.TrimSpace(form.Description),
		Status:      models.ModulePending,
	}
	if err := database.DB.Create(&mod).Error; err != nil {
		serverError(c)
		return
	}

	database.CreateAuditLog(user.ID, "team", order.ID, "module_assign",
		fmt.Sprintf("Модуль «%s» закреплён за исполнителем %d", mod.Title, workerID))
	notify.Send(workerID, "module_assigned", "Вам назначен модуль",
		fmt.Sprintf("По работе «%s»: %s", order.Title, mod.Title),
		order.ID, "order", orderLink(order.ID), nil, nil)

	c.JSON(http.StatusCreated, mod)
}

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
	"github.com/google/uuid"
)

//
// СОЗДАНИЕ И ПРОСМОТР ЗАКАЗОВ
//

type createOrderForm struct {
	Title       string     `json:"title"`
	Subject     string     `json:"subject"`
	WorkType    string     `json:"work_type"`
	Description string     `json:"description"`
	Deadline    *time.Time `json:"deadline"`
}

func CreateOrder(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		serverError(c)
		return
	}

	var form createOrderForm
	if err := c.ShouldBindJSON(&form); err != nil {
		badRequest(c, "Некорректные данные")
		return
	}

	form.Title = strings.TrimSpace(form.Title)
	if len(form.Title) < 3 {
		badRequest(c, "Название работы должно быть не короче 3 символов")
		return
	}

	order := models.Order{
		ClientID:    user.ID,
		Title:       form.Title,
		Subject:     strings.TrimSpace(form.Subject),
		WorkType:    strings.TrimSpace(form.WorkType),
		Description: strings.TrimSpace(form.Description),
		Deadline:    form.Deadline,
		Status:      models.StatusPending,
	}

	if err := database.DB.Create(&order).Error; err != nil {
		serverError(c)
		return
	}

	database.CreateAuditLog(user.ID, "order", order.ID, "create", "Создан заказ: "+order.Title)
	notify.SendToAdmins("order_created", "Новый заказ",
		fmt.Sprintf("Поступил заказ «%s»", order.Title),
		order.ID, "order", orderLink(order.ID), nil)

	c.JSON(http.StatusCreated, orderView(&order))
}

// Список заказов: клиент видит свои, исполнитель — где он в команде, админ — все
func ListOrders(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		serverError(c)
		return
	}

	dbq := database.DB.Preload("Team").Order("created_at desc")

	if statusStr := c.Query("status"); statusStr != "" {
		dbq = dbq.Where("status = ?", statusStr)
	}

	switch user.Role {
	case models.RoleAdmin:
	case models.RoleClient:
		dbq = dbq.Where("client_id = ?", user.ID)
	default:
		dbq = dbq.Where(
			"id IN (?)",
			database.DB.Model(&models.OrderTeamMember{}).
				Select("order_id").
				Where("worker_id = ? AND status = ?", user.ID, models.MemberActive),
		)
	}

	var orders []models.Order
	if err := dbq.Find(&orders).Error; err != nil {
		serverError(c)
		return
	}

	views := make([]gin.H, 0, len(orders))
	for i := range orders {
		views = append(views, orderView(&orders[i]))
	}
	c.JSON(http.StatusOK, gin.H{"orders": views})
}

func GetOrder(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		serverError(c)
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var order models.Order
	if err := database.DB.
		Preload("Team.Worker").
		Preload("Team.Modules").
		Preload("Releases").
		Preload("Deliverables").
		Preload("ProgressNotes").
		Preload("TeamRequests").
		First(&order, id).Error; err != nil {
		notFound(c, "Заказ не найден")
		return
	}

	if !canSeeOrder(user, &order) {
		forbidden(c, "Нет доступа к заказу")
		return
	}

	c.JSON(http.StatusOK, orderView(&order))
}

func canSeeOrder(user models.User, order *models.Order) bool {
	switch user.Role {
	case models.RoleAdmin:
		return true
	case models.RoleClient:
		return order.ClientID == user.ID
	default:
		return order.ActiveMember(user.ID) != nil
	}
}

// orderView добавляет к заказу legacy-представления состава исполнителей:
// старые читатели (дашборды, статистика) ждут их на верхнем уровне
func orderView(o *models.Order) gin.H {
	released := map[uint]bool{}
	for _, r := range o.Releases {
		released[r.WorkerID] = true
	}

	shifts := make([]gin.H, 0, len(o.Team))
	for _, m := range o.Team {
		if m.Status != models.MemberActive {
			continue
		}
		shifts = append(shifts, gin.H{
			"worker_id":   m.WorkerID,
			"assigned_at": m.JoinedAt,
			"progress":    m.Progress,
			"completed":   released[m.WorkerID],
		})
	}

	return gin.H{
		"order":                o,
		"assigned_lead_worker": o.LeadWorkerID(),
		"assigned_worker_ids":  o.AssignedWorkerIDs(),
		"assigned_workers":     shifts,
	}
}

func orderLink(id uint) string {
	return fmt.Sprintf("/orders/%d", id)
}

//
// АДМИНСКИЙ ПУТЬ ЖИЗНЕННОГО ЦИКЛА
//

type quoteForm struct {
	Amount float64 `json:"amount"`
}

func QuoteOrder(c *gin.Context) {
	user, _ := currentUser(c)
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var form quoteForm
	if err := c.ShouldBindJSON(&form); err != nil || form.Amount <= 0 {
		badRequest(c, "Сумма должна быть больше нуля")
		return
	}

	var order models.Order
	if err := database.DB.Preload("Client").First(&order, id).Error; err != nil {
		notFound(c, "Заказ не найден")
		return
	}

	if !order.Status.CanTransitionTo(models.StatusQuoted) {
		illegalTransition(c, "Оценку можно выставить только по новому заказу")
		return
	}

	now := time.Now()
	order.Status = models.StatusQuoted
	order.QuotedAmount = form.Amount
	order.QuotedAt = &now

	if err := database.DB.Save(&order).Error; err != nil {
		serverError(c)
		return
	}

	database.CreateAuditLog(user.ID, "order", order.ID, "status_change",
		fmt.Sprintf("Выставлена оценка %.2f", form.Amount))
	notify.Send(order.ClientID, "order_quoted", "Заказ оценён",
		fmt.Sprintf("Стоимость работы «%s»: %.2f", order.Title, form.Amount),
		order.ID, "order", orderLink(order.ID), nil, nil)
	notify.SendEmail(order.Client.Email, "order_quoted", map[string]string{
		"Title":  order.Title,
		"Amount": fmt.Sprintf("%.2f", form.Amount),
	})

	c.JSON(http.StatusOK, orderView(&order))
}

// клиент подтверждает оценку
func AcceptQuote(c *gin.Context) {
	user, _ := currentUser(c)
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var order models.Order
	if err := database.DB.First(&order, id).Error; err != nil {
		notFound(c, "Заказ не найден")
		return
	}
	if order.ClientID != user.ID {
		forbidden(c, "Это не ваш заказ")
		return
	}
	if !order.Status.CanTransitionTo(models.StatusAccepted) {
		illegalTransition(c, "Подтвердить можно только оценённый заказ")
		return
	}

	order.Status = models.StatusAccepted
	if err := database.DB.Save(&order).Error; err != nil {
		serverError(c)
		return
	}

	database.CreateAuditLog(user.ID, "order", order.ID, "status_change", "Клиент подтвердил оценку")
	notify.SendToAdmins("order_accepted", "Оценка подтверждена",
		fmt.Sprintf("Клиент подтвердил заказ «%s», можно назначать команду", order.Title),
		order.ID, "order", orderLink(order.ID), nil)

	c.JSON(http.StatusOK, orderView(&order))
}

type rejectForm struct {
	Reason string `json:"reason"`
}

func RejectOrder(c *gin.Context) {
	user, _ := currentUser(c)
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var form rejectForm
	_ = c.ShouldBindJSON(&form)

	var order models.Order
	if err := database.DB.First(&order, id).Error; err != nil {
		notFound(c, "Заказ не найден")
		return
	}
	if !order.Status.CanTransitionTo(models.StatusRejected) {
		illegalTransition(c, "Отклонить можно только новый заказ")
		return
	}

	order.Status = models.StatusRejected
	order.RejectReason = strings.TrimSpace(form.Reason)
	if err := database.DB.Save(&order).Error; err != nil {
		serverError(c)
		return
	}

	database.CreateAuditLog(user.ID, "order", order.ID, "status_change", "Заказ отклонён: "+order.RejectReason)
	notify.Send(order.ClientID, "order_rejected", "Заказ отклонён",
		fmt.Sprintf("Заказ «%s» отклонён. %s", order.Title, order.RejectReason),
		order.ID, "order", orderLink(order.ID), nil, nil)

	c.JSON(http.StatusOK, orderView(&order))
}

type assignForm struct {
	WorkerIDs []uint `json:"worker_ids"`
	LeadID    uint   `json:"lead_id"`
}

// Назначение команды: accepted → working. Создаёт ростер, рабочее
// пространство (если его ещё нет) и уведомляет каждого исполнителя.
func AssignWorkers(c *gin.Context) {
	user, _ := currentUser(c)
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var form assignForm
	if err := c.ShouldBindJSON(&form); err != nil || len(form.WorkerIDs) == 0 {
		badRequest(c, "Нужен хотя бы один исполнитель")
		return
	}

	var order models.Order
	if err := database.DB.First(&order, id).Error; err != nil {
		notFound(c, "Заказ не найден")
		return
	}
	if !order.Status.CanTransitionTo(models.StatusWorking) {
		illegalTransition(c, "Назначить команду можно только по подтверждённому заказу")
		return
	}

	// все исполнители должны существовать, быть исполнителями и не в бане
	var workers []models.User
	seen := map[uint]bool{}
	for _, wid := range form.WorkerIDs {
		if seen[wid] {
			continue
		}
		seen[wid] = true

		var w models.User
		if err := database.DB.First(&w, wid).Error; err != nil {
			badRequest(c, fmt.Sprintf("Исполнитель %d не найден", wid))
			return
		}
		if !w.IsWorker() || w.Banned {
			badRequest(c, fmt.Sprintf("Пользователь %s не может быть исполнителем", w.Username))
			return
		}
		workers = append(workers, w)
	}

	leadID := form.LeadID
	if leadID == 0 {
		leadID = workers[0].ID
	}
	if !seen[leadID] {
		badRequest(c, "Лид должен быть в списке исполнителей")
		return
	}

	now := time.Now()
	for _, w := range workers {
		role := models.TeamDeveloper
		if w.ID == leadID {
			role = models.TeamLead
		}
		member := models.OrderTeamMember{
			OrderID:  order.ID,
			WorkerID: w.ID,
			Role:     role,
			Status:   models.MemberActive,
			JoinedAt: now,
		}
		if err := database.DB.Create(&member).Error; err != nil {
			serverError(c)
			return
		}
	}

	ensureWorkspace(&order)

	order.Status = models.StatusWorking
	order.StartedAt = &now
	if err := database.DB.Save(&order).Error; err != nil {
		serverError(c)
		return
	}

	database.CreateAuditLog(user.ID, "order", order.ID, "status_change",
		fmt.Sprintf("Назначена команда из %d исполнителей", len(workers)))
	for _, w := range workers {
		notify.Send(w.ID, "order_assigned", "Вы назначены на заказ",
			fmt.Sprintf("Вы в команде по работе «%s»", order.Title),
			order.ID, "order", orderLink(order.ID), nil, nil)
	}

	database.DB.Preload("Team").First(&order, order.ID)
	c.JSON(http.StatusOK, orderView(&order))
}

// рабочее пространство на заказ ровно одно, создаём если отсутствует
func ensureWorkspace(order *models.Order) {
	var ws models.Workspace
	if err := database.DB.Where("order_id = ?", order.ID).First(&ws).Error; err == nil {
		return
	}
	ws = models.Workspace{
		OrderID: order.ID,
		Key:     uuid.NewString(),
		Name:    "Доска: " + order.Title,
	}
	_ = database.DB.Create(&ws).Error
}

type statusForm struct {
	Status string `json:"status"`
}

// Общий админский переход: review / completed / cancelled.
// Остальные переходы идут через свои эндпоинты с их проверками.
func ChangeOrderStatus(c *gin.Context) {
	user, _ := currentUser(c)
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var form statusForm
	if err := c.ShouldBindJSON(&form); err != nil {
		badRequest(c, "Некорректные данные")
		return
	}

	next := models.OrderStatus(form.Status)
	switch next {
	case models.StatusReview, models.StatusCompleted, models.StatusCancelled:
	default:
		badRequest(c, "Недопустимый статус для этого эндпоинта")
		return
	}

	var order models.Order
	if err := database.DB.First(&order, id).Error; err != nil {
		notFound(c, "Заказ не найден")
		return
	}

	if !order.Status.CanTransitionTo(next) {
		illegalTransition(c,
			fmt.Sprintf("Переход %s → %s невозможен", order.Status, next))
		return
	}

	switch next {
	case models.StatusReview:
		order.Progress = 100
	case models.StatusCompleted:
		now := time.Now()
		order.CompletedAt = &now
	}
	order.Status = next

	if err := database.DB.Save(&order).Error; err != nil {
		serverError(c)
		return
	}

	database.CreateAuditLog(user.ID, "order", order.ID, "status_change",
		"Статус изменён на: "+string(next))
	notify.Send(order.ClientID, "order_status", "Статус заказа изменился",
		fmt.Sprintf("Заказ «%s»: %s", order.Title, next),
		order.ID, "order", orderLink(order.ID), nil, nil)

	c.JSON(http.StatusOK, orderView(&order))
}

// Исполнительский путь: разрешён единственный переход working → review,
// любые другие значения отклоняем — статусы нельзя перескакивать
func WorkerStatusUpdate(c *gin.Context) {
	user, _ := currentUser(c)
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var form statusForm
	if err := c.ShouldBindJSON(&form); err != nil {
		badRequest(c, "Некорректные данные")
		return
	}

	var order models.Order
	if err := database.DB.Preload("Team").First(&order, id).Error; err != nil {
		notFound(c, "Заказ не найден")
		return
	}
	if order.ActiveMember(user.ID) == nil {
		forbidden(c, "Вы не назначены на этот заказ")
		return
	}

	if models.OrderStatus(form.Status) != models.StatusReview {
		badRequest(c, "Исполнитель может перевести заказ только в review")
		return
	}
	if order.Status != models.StatusWorking {
		illegalTransition(c, "Запросить проверку можно только из состояния working")
		return
	}

	order.Status = models.StatusReview
	order.Progress = 100
	if err := database.DB.Save(&order).Error; err != nil {
		serverError(c)
		return
	}

	note := models.ProgressNote{
		OrderID:  order.ID,
		AuthorID: user.ID,
		Text:     "Работа готова, запрошена проверка",
	}
	_ = database.DB.Create(&note).Error

	database.CreateAuditLog(user.ID, "order", order.ID, "status_change", "Исполнитель запросил проверку")
	notify.SendToAdmins("order_review", "Работа готова к проверке",
		fmt.Sprintf("Команда сдала работу «%s»", order.Title),
		order.ID, "order", orderLink(order.ID),
		[]models.NotificationAction{{
			ID:     "review_deliver",
			Label:  "Review & Deliver",
			Kind:   "navigate",
			Target: orderLink(order.ID),
		}})

	c.JSON(http.StatusOK, orderView(&order))
}

type deliverForm struct {
	Files []deliverFile `json:"files"`
}

type deliverFile struct {
	FileName string `json:"file_name"`
	FileURL  string `json:"file_url"`
}

// Передача результата клиенту: review/released_to_admin → delivered.
// Файлы обязательны и помечаются финальными.
func DeliverOrder(c *gin.Context) {
	user, _ := currentUser(c)
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var form deliverForm
	if err := c.ShouldBindJSON(&form); err != nil || len(form.Files) == 0 {
		badRequest(c, "Нужен хотя бы один файл результата")
		return
	}
	for _, f := range form.Files {
		if strings.TrimSpace(f.FileName) == "" {
			badRequest(c, "У файла должно быть имя")
			return
		}
	}

	var order models.Order
	if err := database.DB.Preload("Client").First(&order, id).Error; err != nil {
		notFound(c, "Заказ не найден")
		return
	}
	if !order.Status.CanTransitionTo(models.StatusDelivered) {
		illegalTransition(c, "Передать работу можно только после проверки")
		return
	}

	var version int64
	database.DB.Model(&models.Deliverable{}).Where("order_id = ?", order.ID).Count(&version)

	for i, f := range form.Files {
		d := models.Deliverable{
			OrderID:      order.ID,
			StorageKey:   uuid.NewString(),
			FileName:     strings.TrimSpace(f.FileName),
			FileURL:      f.FileURL,
			UploadedByID: user.ID,
			Version:      int(version) + i + 1,
			IsFinal:      true,
		}
		if err := database.DB.Create(&d).Error; err != nil {
			serverError(c)
			return
		}
	}

	now := time.Now()
	order.Status = models.StatusDelivered
	order.DeliveredAt = &now
	if err := database.DB.Save(&order).Error; err != nil {
		serverError(c)
		return
	}

	database.CreateAuditLog(user.ID, "order", order.ID, "status_change",
		fmt.Sprintf("Работа передана клиенту (%d файлов)", len(form.Files)))
	notify.Send(order.ClientID, "order_delivered", "Работа готова",
		fmt.Sprintf("Работа «%s» передана, заберите файлы", order.Title),
		order.ID, "order", orderLink(order.ID), nil, nil)
	notify.SendEmail(order.Client.Email, "order_delivered", map[string]string{
		"Title": order.Title,
	})

	c.JSON(http.StatusOK, orderView(&order))
}

//
// ИСТОРИЯ ЗАКАЗА
//

func OrderHistory(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		serverError(c)
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var order models.Order
	if err := database.DB.Preload("Team").First(&order, id).Error; err != nil {
		notFound(c, "Заказ не найден")
		return
	}
	if !canSeeOrder(user, &order) {
		forbidden(c, "Нет доступа к заказу")
		return
	}

	var logs []models.AuditLog
	database.DB.Where("entity = ? AND entity_id = ?", "order", order.ID).
		Preload("User").
		Order("created_at asc").
		Find(&logs)

	c.JSON(http.StatusOK, gin.H{"logs": logs})
}

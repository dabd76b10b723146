package models

import (
	"time"

	"gorm.io/gorm"
)

type OrderStatus string

const (
	StatusPending         OrderStatus = "pending"
	StatusQuoted          OrderStatus = "quoted"
	StatusAccepted        OrderStatus = "accepted"
	StatusWorking         OrderStatus = "working"
	StatusReview          OrderStatus = "review"
	StatusReleasedToAdmin OrderStatus = "released_to_admin"
	StatusDelivered       OrderStatus = "delivered"
	StatusCompleted       OrderStatus = "completed"
	StatusRejected        OrderStatus = "rejected"
	StatusCancelled       OrderStatus = "cancelled"
)

// Заказ на учебную работу. Статус двигается только вперёд по графу переходов,
// исключения — rejected (из pending) и cancelled (из любого активного).
type Order struct {
	gorm.Model
	ClientID uint `json:"client_id"`
	Client   User `json:"-"`

	Title       string      `gorm:"size:255;not null" json:"title"`
	Subject     string      `gorm:"size:100" json:"subject"` // дисциплина: матан, БД, ...
	WorkType    string      `gorm:"size:50" json:"work_type"` // курсовая, диплом, лабораторная
	Description string      `gorm:"type:text" json:"description"`
	Status      OrderStatus `gorm:"type:varchar(30);not null" json:"status"`

	// Итоговый прогресс 0..100. Производное значение: пересчитывается
	// агрегатором из прогресса команды либо из синка доски.
	Progress int `gorm:"default:0" json:"progress"`

	QuotedAmount  float64 `gorm:"default:0" json:"quoted_amount"`
	PaymentStatus string  `gorm:"size:20;default:'unpaid'" json:"payment_status"`
	RejectReason  string  `gorm:"type:text" json:"reject_reason,omitempty"`

	Deadline    *time.Time `json:"deadline"`
	QuotedAt    *time.Time `json:"quoted_at"`
	StartedAt   *time.Time `json:"started_at"`
	DeliveredAt *time.Time `json:"delivered_at"`
	CompletedAt *time.Time `json:"completed_at"`

	Team          []OrderTeamMember `json:"team,omitempty"`
	Releases      []OrderRelease    `json:"releases,omitempty"`
	Deliverables  []Deliverable     `json:"deliverables,omitempty"`
	ProgressNotes []ProgressNote    `json:"progress_notes,omitempty"`
	TeamRequests  []TeamRequest     `json:"team_requests,omitempty"`
}

// граф допустимых переходов (released_to_admin выставляет только барьер релизов)
var statusGraph = map[OrderStatus][]OrderStatus{
	StatusPending:         {StatusQuoted, StatusRejected, StatusCancelled},
	StatusQuoted:          {StatusAccepted, StatusCancelled},
	StatusAccepted:        {StatusWorking, StatusCancelled},
	StatusWorking:         {StatusReview, StatusCancelled},
	StatusReview:          {StatusDelivered, StatusCancelled},
	StatusReleasedToAdmin: {StatusDelivered, StatusCancelled},
	StatusDelivered:       {StatusCompleted, StatusCancelled},
}

func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range statusGraph[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Active — заказ ещё в работе (не финальный статус)
func (s OrderStatus) Active() bool {
	switch s {
	case StatusCompleted, StatusRejected, StatusCancelled:
		return false
	}
	return true
}

// ClampProgress — прогресс всегда пишем в пределах [0,100]
func ClampProgress(p int) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

// LeadWorkerID — legacy-представление "основной исполнитель".
// Считается из ростера, отдельно не хранится.
func (o *Order) LeadWorkerID() uint {
	for _, m := range o.Team {
		if m.Status == MemberActive && m.Role == TeamLead {
			return m.WorkerID
		}
	}
	return 0
}

// AssignedWorkerIDs — legacy-представление "список назначенных исполнителей"
func (o *Order) AssignedWorkerIDs() []uint {
	ids := make([]uint, 0, len(o.Team))
	for _, m := range o.Team {
		if m.Status == MemberActive {
			ids = append(ids, m.WorkerID)
		}
	}
	return ids
}

// ActiveMember — активная запись ростера по исполнителю, nil если нет
func (o *Order) ActiveMember(workerID uint) *OrderTeamMember {
	for i := range o.Team {
		if o.Team[i].WorkerID == workerID && o.Team[i].Status == MemberActive {
			return &o.Team[i]
		}
	}
	return nil
}

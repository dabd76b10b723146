package models

import (
	"time"

	"gorm.io/gorm"
)

type TeamRole string

const (
	TeamLead      TeamRole = "lead"
	TeamSenior    TeamRole = "senior"
	TeamDeveloper TeamRole = "developer"
	TeamQA        TeamRole = "qa"
	TeamSupport   TeamRole = "support"
)

func ValidTeamRole(r TeamRole) bool {
	switch r {
	case TeamLead, TeamSenior, TeamDeveloper, TeamQA, TeamSupport:
		return true
	}
	return false
}

type MemberStatus string

const (
	MemberActive  MemberStatus = "active"
	MemberRemoved MemberStatus = "removed"
)

// Запись ростера: один исполнитель в команде заказа.
// Единственный источник правды о составе — legacy-поля считаются отсюда.
// Удаление из команды — только soft-delete (status=removed), историю храним.
type OrderTeamMember struct {
	gorm.Model
	OrderID  uint `gorm:"index" json:"order_id"`
	WorkerID uint `gorm:"index" json:"worker_id"`
	Worker   User `json:"worker,omitempty"`

	Role             TeamRole     `gorm:"type:varchar(20);not null" json:"role"`
	Responsibilities string       `gorm:"type:text" json:"responsibilities"`
	Status           MemberStatus `gorm:"type:varchar(20);not null;default:'active'" json:"status"`

	// индивидуальный прогресс 0..100, входит в среднее по команде
	Progress int `gorm:"default:0" json:"progress"`

	JoinedAt      time.Time `json:"joined_at"`
	RemovedReason string    `gorm:"type:text" json:"removed_reason,omitempty"`

	Modules []WorkModule `gorm:"foreignKey:MemberID" json:"modules,omitempty"`
}

type ModuleStatus string

const (
	ModulePending    ModuleStatus = "pending"
	ModuleInProgress ModuleStatus = "in_progress"
	ModuleDone       ModuleStatus = "done"
)

// Модуль (часть работы), закреплённый лидом за участником
type WorkModule struct {
	gorm.Model
	OrderID  uint `gorm:"index" json:"order_id"`
	MemberID uint `gorm:"index" json:"member_id"`

	Title       string       `gorm:"size:255;not null" json:"title"`
	Description string       `gorm:"type:text" json:"description"`
	Status      ModuleStatus `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
	Progress    int          `gorm:"default:0" json:"progress"`
}

type RequestStatus string

const (
	RequestPending  RequestStatus = "pending"
	RequestApproved RequestStatus = "approved"
	RequestRejected RequestStatus = "rejected"
)

// Запрос лида к админу (доп. ресурсы, перенос срока и т.п.)
type TeamRequest struct {
	gorm.Model
	OrderID     uint `gorm:"index" json:"order_id"`
	RequesterID uint `json:"requester_id"`
	Requester   User `json:"-"`

	Type        string        `gorm:"size:50;not null" json:"type"`
	Description string        `gorm:"type:text" json:"description"`
	Status      RequestStatus `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`

	AdminResponse string     `gorm:"type:text" json:"admin_response,omitempty"`
	RespondedAt   *time.Time `json:"responded_at,omitempty"`
}

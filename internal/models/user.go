package models

import "gorm.io/gorm"

type UserRole string

const (
	RoleClient    UserRole = "client"
	RoleDeveloper UserRole = "developer"
	RoleAdmin     UserRole = "admin"
)

type User struct {
	gorm.Model
	Username     string   `gorm:"uniqueIndex;size:50;not null" json:"username"`
	Email        string   `gorm:"size:255" json:"email"`
	DisplayName  string   `gorm:"size:255" json:"display_name"`
	PasswordHash string   `gorm:"not null" json:"-"`
	Role         UserRole `gorm:"type:varchar(20);not null" json:"role"`

	// заблокированный исполнитель не получает новые заказы
	Banned bool `gorm:"default:false" json:"banned"`
}

// IsWorker — может ли аккаунт выступать исполнителем по заказу.
// Админ управляет заказами, но в состав команды не входит: исполнительские
// маршруты (прогресс, релиз) открыты только роли developer.
func (u *User) IsWorker() bool {
	return u.Role == RoleDeveloper
}

package models

import (
	"time"

	"gorm.io/gorm"
)

// Рабочее пространство (доска) команды. Создаётся автоматически при первом
// назначении исполнителей, на заказ не больше одного. Логики доски в ядре
// нет — храним только счётчики последнего синка для агрегатора прогресса.
type Workspace struct {
	gorm.Model
	OrderID uint   `gorm:"uniqueIndex;not null" json:"order_id"`
	Key     string `gorm:"size:64;uniqueIndex" json:"key"`
	Name    string `gorm:"size:255" json:"name"`

	TotalItems     int        `gorm:"default:0" json:"total_items"`
	CompletedItems int        `gorm:"default:0" json:"completed_items"`
	LastSyncAt     *time.Time `json:"last_sync_at,omitempty"`
}

package models

import "time"

// Запись барьера релизов: исполнитель отметил "моя часть готова".
// Уникальный индекс (order_id, worker_id) — повторный релиз это conflict,
// двойного счёта в барьере быть не может.
type OrderRelease struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"released_at"`

	OrderID  uint `gorm:"uniqueIndex:idx_release_once;not null" json:"order_id"`
	WorkerID uint `gorm:"uniqueIndex:idx_release_once;not null" json:"worker_id"`
	Worker   User `json:"-"`

	// JSON-список имён файлов, переданных при релизе
	Deliverables string `gorm:"type:text" json:"deliverables"`
	Notes        string `gorm:"type:text" json:"notes"`
}

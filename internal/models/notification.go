package models

import "gorm.io/gorm"

// Уведомление пользователю. Доставка best-effort: запись создаётся всегда,
// realtime-пуш и письмо могут не дойти — это не ошибка операции.
type Notification struct {
	gorm.Model
	RecipientID uint `gorm:"index;not null" json:"recipient_id"`

	Type    string `gorm:"size:50;not null" json:"type"`
	Title   string `gorm:"size:255" json:"title"`
	Message string `gorm:"type:text" json:"message"`

	SubjectID   uint   `json:"subject_id"`
	SubjectKind string `gorm:"size:50" json:"subject_kind"` // "order", "request", ...
	DeepLink    string `gorm:"size:512" json:"deep_link"`

	// JSON: произвольные данные и действия для интерфейса (ядро их не трактует)
	Metadata string `gorm:"type:text" json:"metadata,omitempty"`
	Actions  string `gorm:"type:text" json:"actions,omitempty"`

	Read bool `gorm:"default:false" json:"read"`
}

// Кнопка-действие в интерфейсе получателя
type NotificationAction struct {
	ID     string `json:"id"`
	Label  string `json:"label"`
	Kind   string `json:"kind"`
	Target string `json:"target"`
}

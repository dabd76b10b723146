package models

import "gorm.io/gorm"

// Файл результата по заказу. Версионируется по порядку загрузки,
// финальные версии помечаются при передаче клиенту.
type Deliverable struct {
	gorm.Model
	OrderID uint `gorm:"index" json:"order_id"`

	// ключ во внешнем файловом хранилище (само хранилище вне ядра)
	StorageKey string `gorm:"size:64;uniqueIndex" json:"storage_key"`

	FileName string `gorm:"size:255;not null" json:"file_name"`
	FileURL  string `gorm:"size:1024" json:"file_url"`

	UploadedByID uint `json:"uploaded_by_id"`
	UploadedBy   User `json:"-"`

	Version int  `gorm:"default:1" json:"version"`
	IsFinal bool `gorm:"default:false" json:"is_final"`
}

// Текстовая заметка о ходе работы (журнал, не удаляется)
type ProgressNote struct {
	gorm.Model
	OrderID  uint   `gorm:"index" json:"order_id"`
	AuthorID uint   `json:"author_id"`
	Author   User   `json:"-"`
	Text     string `gorm:"type:text;not null" json:"text"`
}

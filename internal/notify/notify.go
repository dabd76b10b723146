package notify

import (
	"encoding/json"
	"log"

	"studhelp/internal/database"
	"studhelp/internal/models"
)

// Send — уведомление одному пользователю: запись в БД + realtime-пуш.
// Fire-and-forget: любая ошибка логируется и не влияет на операцию,
// из которой нас позвали. Без ретраев — доставка at-most-once.
func Send(recipientID uint, typ, title, message string, subjectID uint, subjectKind, deepLink string, metadata map[string]any, actions []models.NotificationAction) {
	if recipientID == 0 {
		return
	}

	n := models.Notification{
		RecipientID: recipientID,
		Type:        typ,
		Title:       title,
		Message:     message,
		SubjectID:   subjectID,
		SubjectKind: subjectKind,
		DeepLink:    deepLink,
	}

	if len(metadata) > 0 {
		if raw, err := json.Marshal(metadata); err == nil {
			n.Metadata = string(raw)
		}
	}
	if len(actions) > 0 {
		if raw, err := json.Marshal(actions); err == nil {
			n.Actions = string(raw)
		}
	}

	if database.DB != nil {
		if err := database.DB.Create(&n).Error; err != nil {
			log.Printf("notify: failed to store notification for user %d: %v", recipientID, err)
		}
	}

	if payload, err := json.Marshal(n); err == nil {
		Connections.Push(recipientID, payload)
	}
}

// SendToAdmins — фан-аут по всем админам, каждая доставка независима
func SendToAdmins(typ, title, message string, subjectID uint, subjectKind, deepLink string, actions []models.NotificationAction) {
	if database.DB == nil {
		return
	}

	var admins []models.User
	if err := database.DB.Where("role = ?", models.RoleAdmin).Find(&admins).Error; err != nil {
		log.Printf("notify: failed to list admins: %v", err)
		return
	}

	for _, a := range admins {
		Send(a.ID, typ, title, message, subjectID, subjectKind, deepLink, nil, actions)
	}
}

package server

import (
	"fmt"
	"net/http"
	"testing"

	"studhelp/internal/config"
	"studhelp/internal/database"
	"studhelp/internal/models"
)

// заказ без команды: оба «внешних» пути записи прогресса применимы
func makeBareOrder(t *testing.T) uint {
	t.Helper()
	order := models.Order{Title: "Перевод статьи", Status: models.StatusPending, ClientID: 1}
	if err := database.DB.Create(&order).Error; err != nil {
		t.Fatalf("create order: %v", err)
	}
	return order.ID
}

func TestBoardSyncWithoutTeamApplies(t *testing.T) {
	r := setupTest(t)
	createUser(t, "admin1", models.RoleAdmin)
	adminCk := login(t, r, "admin1")
	id := makeBareOrder(t)

	path := fmt.Sprintf("/api/orders/%d/board-sync", id)
	w := doJSON(t, r, http.MethodPost, path, `{"total_items":3,"completed_items":1}`, adminCk)
	if w.Code != http.StatusOK {
		t.Fatalf("board sync: %d %s", w.Code, w.Body.String())
	}
	body := decodeBody(t, w)
	if body["applied"] != true || body["progress"].(float64) != 33 {
		t.Fatalf("sync result = %v, want applied 33%%", body)
	}

	// сырые числа зафиксированы заметкой
	var note models.ProgressNote
	if err := database.DB.Where("order_id = ?", id).First(&note).Error; err != nil {
		t.Fatalf("no audit note: %v", err)
	}
	if note.Text != "Синк доски: 1 из 3 карточек, прогресс 33%" {
		t.Fatalf("note = %q", note.Text)
	}
}

func TestBoardSyncZeroTotalIsZero(t *testing.T) {
	r := setupTest(t)
	createUser(t, "admin1", models.RoleAdmin)
	adminCk := login(t, r, "admin1")
	id := makeBareOrder(t)

	path := fmt.Sprintf("/api/orders/%d/board-sync", id)
	w := doJSON(t, r, http.MethodPost, path, `{"total_items":0,"completed_items":0}`, adminCk)
	if w.Code != http.StatusOK {
		t.Fatalf("board sync: %d", w.Code)
	}
	if got := decodeBody(t, w)["progress"].(float64); got != 0 {
		t.Fatalf("progress = %v, want 0 (no division by zero)", got)
	}
}

func TestBoardSyncTeamFirstSkipsWithActiveTeam(t *testing.T) {
	r := setupTest(t)
	f := makeWorkingOrder(t, r, 2)

	// команда отчиталась
	doJSON(t, r, http.MethodPost,
		fmt.Sprintf("/api/orders/%d/my-progress", f.orderID), `{"progress":60}`, f.devCk[0])
	doJSON(t, r, http.MethodPost,
		fmt.Sprintf("/api/orders/%d/my-progress", f.orderID), `{"progress":40}`, f.devCk[1])
	if got := orderProgress(t, f.orderID); got != 50 {
		t.Fatalf("team progress = %d, want 50", got)
	}

	// синк доски при живой команде итог не перетирает
	w := doJSON(t, r, http.MethodPost,
		fmt.Sprintf("/api/orders/%d/board-sync", f.orderID),
		`{"total_items":10,"completed_items":10}`, f.adminCk)
	body := decodeBody(t, w)
	if body["applied"] != false {
		t.Fatalf("applied = %v, want false under team_first", body["applied"])
	}
	if got := orderProgress(t, f.orderID); got != 50 {
		t.Fatalf("progress = %d, want untouched 50", got)
	}
}

func TestBoardSyncLastWriteOverwrites(t *testing.T) {
	r := setupTestWithPolicy(t, config.PolicyLastWrite)
	f := makeWorkingOrder(t, r, 2)

	doJSON(t, r, http.MethodPost,
		fmt.Sprintf("/api/orders/%d/my-progress", f.orderID), `{"progress":60}`, f.devCk[0])
	doJSON(t, r, http.MethodPost,
		fmt.Sprintf("/api/orders/%d/my-progress", f.orderID), `{"progress":40}`, f.devCk[1])

	// историческая политика: последняя запись побеждает
	w := doJSON(t, r, http.MethodPost,
		fmt.Sprintf("/api/orders/%d/board-sync", f.orderID),
		`{"total_items":10,"completed_items":9}`, f.adminCk)
	body := decodeBody(t, w)
	if body["applied"] != true {
		t.Fatalf("applied = %v, want true under last_write", body["applied"])
	}
	if got := orderProgress(t, f.orderID); got != 90 {
		t.Fatalf("progress = %d, want 90", got)
	}
}

func TestAdminSetProgress(t *testing.T) {
	r := setupTest(t)
	createUser(t, "admin1", models.RoleAdmin)
	adminCk := login(t, r, "admin1")
	id := makeBareOrder(t)

	path := fmt.Sprintf("/api/orders/%d/progress", id)

	// клампится на записи
	w := doJSON(t, r, http.MethodPost, path, `{"progress":150}`, adminCk)
	if w.Code != http.StatusOK {
		t.Fatalf("set progress: %d %s", w.Code, w.Body.String())
	}
	if got := orderProgress(t, id); got != 100 {
		t.Fatalf("progress = %d, want clamped 100", got)
	}
}

func TestAdminSetProgressBlockedByTeamFirst(t *testing.T) {
	r := setupTest(t)
	f := makeWorkingOrder(t, r, 1)

	path := fmt.Sprintf("/api/orders/%d/progress", f.orderID)
	w := doJSON(t, r, http.MethodPost, path, `{"progress":10}`, f.adminCk)
	if w.Code != http.StatusConflict {
		t.Fatalf("manual write with team: %d, want 409", w.Code)
	}
}

func TestAdminSetProgressAllowedByLastWrite(t *testing.T) {
	r := setupTestWithPolicy(t, config.PolicyLastWrite)
	f := makeWorkingOrder(t, r, 1)

	path := fmt.Sprintf("/api/orders/%d/progress", f.orderID)
	w := doJSON(t, r, http.MethodPost, path, `{"progress":10}`, f.adminCk)
	if w.Code != http.StatusOK {
		t.Fatalf("manual write: %d %s", w.Code, w.Body.String())
	}
	if got := orderProgress(t, f.orderID); got != 10 {
		t.Fatalf("progress = %d, want 10", got)
	}
}

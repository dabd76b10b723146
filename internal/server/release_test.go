package server

import (
	"fmt"
	"net/http"
	"testing"

	"studhelp/internal/database"
	"studhelp/internal/models"
)

func TestReleaseBarrierTwoWorkers(t *testing.T) {
	r := setupTest(t)
	f := makeWorkingOrder(t, r, 2)

	path := fmt.Sprintf("/api/orders/%d/release", f.orderID)

	// релиз A: барьер ещё не собран
	w := doJSON(t, r, http.MethodPost, path, `{"deliverables":["a.docx"],"notes":"моя часть готова"}`, f.devCk[0])
	if w.Code != http.StatusOK {
		t.Fatalf("release A: %d %s", w.Code, w.Body.String())
	}
	body := decodeBody(t, w)
	if body["all_released"] != false {
		t.Fatalf("after A: all_released = %v, want false", body["all_released"])
	}
	if body["released_count"].(float64) != 1 {
		t.Fatalf("after A: released_count = %v, want 1", body["released_count"])
	}
	if got := orderStatus(t, f.orderID); got != models.StatusWorking {
		t.Fatalf("after A status = %s, want working", got)
	}

	// B получил пинок "команда ждёт"
	var nudges int64
	database.DB.Model(&models.Notification{}).
		Where("type = ? AND recipient_id = ?", "release_pending", f.devs[1].ID).
		Count(&nudges)
	if nudges != 1 {
		t.Fatalf("nudges to B = %d, want 1", nudges)
	}

	// релиз B: барьер собран, заказ у админа
	w = doJSON(t, r, http.MethodPost, path, `{"deliverables":["b.docx"]}`, f.devCk[1])
	if w.Code != http.StatusOK {
		t.Fatalf("release B: %d %s", w.Code, w.Body.String())
	}
	body = decodeBody(t, w)
	if body["all_released"] != true {
		t.Fatalf("after B: all_released = %v, want true", body["all_released"])
	}
	if body["released_count"].(float64) != 2 {
		t.Fatalf("after B: released_count = %v, want 2", body["released_count"])
	}
	if got := orderStatus(t, f.orderID); got != models.StatusReleasedToAdmin {
		t.Fatalf("after B status = %s, want released_to_admin", got)
	}

	// админ уведомлён ровно один раз
	var adminNotes int64
	database.DB.Model(&models.Notification{}).
		Where("type = ? AND recipient_id = ?", "order_released", f.admin.ID).
		Count(&adminNotes)
	if adminNotes != 1 {
		t.Fatalf("admin release notifications = %d, want 1", adminNotes)
	}
}

func TestReleaseIdempotent(t *testing.T) {
	r := setupTest(t)
	f := makeWorkingOrder(t, r, 2)

	path := fmt.Sprintf("/api/orders/%d/release", f.orderID)
	if w := doJSON(t, r, http.MethodPost, path, `{"deliverables":["a.docx"]}`, f.devCk[0]); w.Code != http.StatusOK {
		t.Fatalf("first release: %d", w.Code)
	}

	w := doJSON(t, r, http.MethodPost, path, `{"deliverables":["a2.docx"]}`, f.devCk[0])
	if w.Code != http.StatusConflict {
		t.Fatalf("second release: %d, want 409", w.Code)
	}
	if code := decodeBody(t, w)["code"]; code != "conflict" {
		t.Fatalf("error code = %v, want conflict", code)
	}

	// журнал релизов не вырос
	var n int64
	database.DB.Model(&models.OrderRelease{}).Where("order_id = ?", f.orderID).Count(&n)
	if n != 1 {
		t.Fatalf("release ledger = %d, want 1", n)
	}
}

func TestReleaseBarrierThreeWorkers(t *testing.T) {
	r := setupTest(t)
	f := makeWorkingOrder(t, r, 3)

	path := fmt.Sprintf("/api/orders/%d/release", f.orderID)

	for i := 0; i < 2; i++ {
		w := doJSON(t, r, http.MethodPost, path, `{}`, f.devCk[i])
		if w.Code != http.StatusOK {
			t.Fatalf("release %d: %d", i, w.Code)
		}
		if decodeBody(t, w)["all_released"] != false {
			t.Fatalf("release %d: barrier fired early", i)
		}
		if got := orderStatus(t, f.orderID); got != models.StatusWorking {
			t.Fatalf("release %d: status = %s, want working", i, got)
		}
	}

	w := doJSON(t, r, http.MethodPost, path, `{}`, f.devCk[2])
	body := decodeBody(t, w)
	if body["all_released"] != true || body["released_count"].(float64) != 3 {
		t.Fatalf("third release: %v", body)
	}
	if got := orderStatus(t, f.orderID); got != models.StatusReleasedToAdmin {
		t.Fatalf("status = %s, want released_to_admin", got)
	}
}

func TestReleaseRequiresAssignment(t *testing.T) {
	r := setupTest(t)
	f := makeWorkingOrder(t, r, 1)

	createUser(t, "stranger", models.RoleDeveloper)
	strangerCk := login(t, r, "stranger")

	path := fmt.Sprintf("/api/orders/%d/release", f.orderID)
	w := doJSON(t, r, http.MethodPost, path, `{}`, strangerCk)
	if w.Code != http.StatusForbidden {
		t.Fatalf("stranger release: %d, want 403", w.Code)
	}
}

func TestReleaseRejectedAfterAdminMovedOn(t *testing.T) {
	r := setupTest(t)
	f := makeWorkingOrder(t, r, 2)

	// админ провёл заказ мимо барьера до completed
	doJSON(t, r, http.MethodPost,
		fmt.Sprintf("/api/orders/%d/status", f.orderID), `{"status":"review"}`, f.adminCk)
	doJSON(t, r, http.MethodPost,
		fmt.Sprintf("/api/orders/%d/deliver", f.orderID),
		`{"files":[{"file_name":"итог.docx"}]}`, f.adminCk)
	w := doJSON(t, r, http.MethodPost,
		fmt.Sprintf("/api/orders/%d/status", f.orderID), `{"status":"completed"}`, f.adminCk)
	if w.Code != http.StatusOK {
		t.Fatalf("complete: %d %s", w.Code, w.Body.String())
	}

	// поздние релизы не утаскивают заказ назад в released_to_admin
	path := fmt.Sprintf("/api/orders/%d/release", f.orderID)
	for i := 0; i < 2; i++ {
		w = doJSON(t, r, http.MethodPost, path, `{}`, f.devCk[i])
		if w.Code != http.StatusConflict {
			t.Fatalf("late release %d: %d, want 409", i, w.Code)
		}
		if code := decodeBody(t, w)["code"]; code != "illegal_transition" {
			t.Fatalf("late release %d: code = %v, want illegal_transition", i, code)
		}
	}
	if got := orderStatus(t, f.orderID); got != models.StatusCompleted {
		t.Fatalf("status = %s, want completed", got)
	}

	// и в журнал релизов не попадают
	var n int64
	database.DB.Model(&models.OrderRelease{}).Where("order_id = ?", f.orderID).Count(&n)
	if n != 0 {
		t.Fatalf("release ledger = %d, want 0", n)
	}
}

func TestReleaseOfRemovedMemberDoesNotCloseBarrier(t *testing.T) {
	r := setupTest(t)
	f := makeWorkingOrder(t, r, 2)

	// B отметился и затем исключён из состава
	doJSON(t, r, http.MethodPost,
		fmt.Sprintf("/api/orders/%d/release", f.orderID), `{}`, f.devCk[1])
	doJSON(t, r, http.MethodPost,
		fmt.Sprintf("/api/orders/%d/team/%d/remove", f.orderID, f.devs[1].ID),
		`{"reason":"передали другому"}`, f.adminCk)

	// его релиз больше не в зачёте: лид ещё не отметился
	w := doJSON(t, r, http.MethodGet,
		fmt.Sprintf("/api/orders/%d/release-status", f.orderID), "", f.adminCk)
	body := decodeBody(t, w)
	if body["released_count"].(float64) != 0 || body["required_count"].(float64) != 1 {
		t.Fatalf("counts = %v/%v, want 0/1", body["released_count"], body["required_count"])
	}
	if body["all_released"] != false {
		t.Fatal("all_released must be false until the active roster releases")
	}
	if got := orderStatus(t, f.orderID); got != models.StatusWorking {
		t.Fatalf("status = %s, want working", got)
	}

	// барьер закрывает релиз действующего состава
	w = doJSON(t, r, http.MethodPost,
		fmt.Sprintf("/api/orders/%d/release", f.orderID), `{}`, f.devCk[0])
	body = decodeBody(t, w)
	if body["all_released"] != true || body["released_count"].(float64) != 1 {
		t.Fatalf("lead release: %v", body)
	}
	if got := orderStatus(t, f.orderID); got != models.StatusReleasedToAdmin {
		t.Fatalf("status = %s, want released_to_admin", got)
	}
}

func TestReleaseStatusEndpoint(t *testing.T) {
	r := setupTest(t)
	f := makeWorkingOrder(t, r, 2)

	doJSON(t, r, http.MethodPost, fmt.Sprintf("/api/orders/%d/release", f.orderID),
		`{"deliverables":["intro.docx","ch1.docx"],"notes":"первая половина"}`, f.devCk[0])

	w := doJSON(t, r, http.MethodGet, fmt.Sprintf("/api/orders/%d/release-status", f.orderID), "", f.adminCk)
	if w.Code != http.StatusOK {
		t.Fatalf("release-status: %d", w.Code)
	}
	body := decodeBody(t, w)

	if body["released_count"].(float64) != 1 || body["required_count"].(float64) != 2 {
		t.Fatalf("counts = %v/%v, want 1/2", body["released_count"], body["required_count"])
	}
	if body["all_released"] != false {
		t.Fatal("all_released must be false")
	}

	workers := body["workers"].([]any)
	if len(workers) != 2 {
		t.Fatalf("workers = %d, want 2", len(workers))
	}

	var releasedEntry map[string]any
	for _, raw := range workers {
		entry := raw.(map[string]any)
		if entry["released"] == true {
			releasedEntry = entry
		}
	}
	if releasedEntry == nil {
		t.Fatal("no released entry found")
	}
	files := releasedEntry["deliverables"].([]any)
	if len(files) != 2 || files[0] != "intro.docx" {
		t.Fatalf("deliverables = %v", files)
	}
	if releasedEntry["notes"] != "первая половина" {
		t.Fatalf("notes = %v", releasedEntry["notes"])
	}
}

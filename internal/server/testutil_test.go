package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"studhelp/internal/config"
	"studhelp/internal/database"
	"studhelp/internal/models"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const testPassword = "Passw0rd!"

func setupTest(t *testing.T) *gin.Engine {
	return setupTestWithPolicy(t, config.PolicyTeamFirst)
}

func setupTestWithPolicy(t *testing.T, policy config.ProgressPolicy) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	name := strings.ReplaceAll(t.Name(), "/", "_")
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	database.DB = db

	cfg := &config.Config{
		SessionSecret:  "test-secret",
		ProgressPolicy: policy,
	}
	return NewRouter(cfg)
}

func createUser(t *testing.T, username string, role models.UserRole) models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	u := models.User{
		Username:     username,
		Email:        username + "@test.local",
		PasswordHash: string(hash),
		Role:         role,
	}
	if err := database.DB.Create(&u).Error; err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}
	return u
}

func login(t *testing.T, r *gin.Engine, username string) []*http.Cookie {
	t.Helper()
	body := fmt.Sprintf(`{"username":%q,"password":%q}`, username, testPassword)
	w := doJSON(t, r, http.MethodPost, "/api/login", body, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("login %s: status %d, body %s", username, w.Code, w.Body.String())
	}
	return w.Result().Cookies()
}

func doJSON(t *testing.T, r *gin.Engine, method, path, body string, cookies []*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	out := map[string]any{}
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return out
}

func orderStatus(t *testing.T, orderID uint) models.OrderStatus {
	t.Helper()
	var order models.Order
	if err := database.DB.First(&order, orderID).Error; err != nil {
		t.Fatalf("load order %d: %v", orderID, err)
	}
	return order.Status
}

func orderProgress(t *testing.T, orderID uint) int {
	t.Helper()
	var order models.Order
	if err := database.DB.First(&order, orderID).Error; err != nil {
		t.Fatalf("load order %d: %v", orderID, err)
	}
	return order.Progress
}

type fixture struct {
	client models.User
	admin  models.User
	devs   []models.User

	clientCk []*http.Cookie
	adminCk  []*http.Cookie
	devCk    [][]*http.Cookie

	orderID uint
}

// полный путь до working: заказ → оценка → подтверждение → назначение команды
func makeWorkingOrder(t *testing.T, r *gin.Engine, devCount int) *fixture {
	t.Helper()

	f := &fixture{
		client: createUser(t, "client1", models.RoleClient),
		admin:  createUser(t, "admin1", models.RoleAdmin),
	}
	f.clientCk = login(t, r, "client1")
	f.adminCk = login(t, r, "admin1")

	ids := make([]string, 0, devCount)
	for i := 0; i < devCount; i++ {
		name := fmt.Sprintf("dev%d", i+1)
		dev := createUser(t, name, models.RoleDeveloper)
		f.devs = append(f.devs, dev)
		f.devCk = append(f.devCk, login(t, r, name))
		ids = append(ids, fmt.Sprintf("%d", dev.ID))
	}

	w := doJSON(t, r, http.MethodPost, "/api/orders",
		`{"title":"Курсовая по базам данных","subject":"БД","work_type":"coursework"}`, f.clientCk)
	if w.Code != http.StatusCreated {
		t.Fatalf("create order: %d %s", w.Code, w.Body.String())
	}
	body := decodeBody(t, w)
	order := body["order"].(map[string]any)
	f.orderID = uint(order["ID"].(float64))

	path := fmt.Sprintf("/api/orders/%d/quote", f.orderID)
	if w := doJSON(t, r, http.MethodPost, path, `{"amount":5000}`, f.adminCk); w.Code != http.StatusOK {
		t.Fatalf("quote: %d %s", w.Code, w.Body.String())
	}

	path = fmt.Sprintf("/api/orders/%d/accept", f.orderID)
	if w := doJSON(t, r, http.MethodPost, path, "", f.clientCk); w.Code != http.StatusOK {
		t.Fatalf("accept: %d %s", w.Code, w.Body.String())
	}

	path = fmt.Sprintf("/api/orders/%d/assign", f.orderID)
	assign := fmt.Sprintf(`{"worker_ids":[%s]}`, strings.Join(ids, ","))
	if w := doJSON(t, r, http.MethodPost, path, assign, f.adminCk); w.Code != http.StatusOK {
		t.Fatalf("assign: %d %s", w.Code, w.Body.String())
	}

	if got := orderStatus(t, f.orderID); got != models.StatusWorking {
		t.Fatalf("after assign status = %s, want working", got)
	}
	return f
}

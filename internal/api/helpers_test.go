package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/BartekTra/portfolioCreator-sub000/internal/database"
)

type fakeStorage struct {
	uploaded map[string][]byte
	deleted  []string
	prefixes []string
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{uploaded: map[string][]byte{}}
}

func (s *fakeStorage) UploadFile(_ context.Context, objectKey string, reader io.Reader, _ int64, _ string) error {
	b, _ := io.ReadAll(reader)
	s.uploaded[objectKey] = b
	return nil
}

func (s *fakeStorage) GeneratePresignedURL(_ context.Context, objectKey string, _ time.Duration) (string, error) {
	return "https://example.invalid/" + objectKey, nil
}

func (s *fakeStorage) DeleteObject(_ context.Context, objectKey string) error {
	s.deleted = append(s.deleted, objectKey)
	delete(s.uploaded, objectKey)
	return nil
}

func (s *fakeStorage) DeletePrefix(_ context.Context, prefix string) error {
	s.prefixes = append(s.prefixes, prefix)
	for key := range s.uploaded {
		if strings.HasPrefix(key, prefix) {
			delete(s.uploaded, key)
		}
	}
	return nil
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// asAccount 模拟认证中间件，把账号 ID 注入请求上下文。
func asAccount(accountID uint) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("accountID", accountID)
		c.Next()
	}
}

func createAccount(t *testing.T, db *gorm.DB, email string) database.Account {
	t.Helper()
	account := database.Account{Email: email, PasswordHash: "x", Confirmed: true}
	if err := db.Create(&account).Error; err != nil {
		t.Fatalf("create account: %v", err)
	}
	return account
}

func createProject(t *testing.T, db *gorm.DB, accountID uint, title string) database.Project {
	t.Helper()
	data := fmt.Sprintf(`{"sections":[{"id":1,"type":"title","order":0,"value":%q}]}`, title)
	project := database.Project{
		AccountID:   accountID,
		TemplateKey: "templateA",
		Data:        []byte(data),
	}
	if err := db.Create(&project).Error; err != nil {
		t.Fatalf("create project: %v", err)
	}
	return project
}

func createTitlePage(t *testing.T, db *gorm.DB, accountID uint) database.TitlePage {
	t.Helper()
	page := database.TitlePage{
		AccountID:   accountID,
		TemplateKey: "titleTemplate1",
		Email:       "jan@example.com",
		Bio:         "Full-stack developer",
	}
	if err := db.Create(&page).Error; err != nil {
		t.Fatalf("create title page: %v", err)
	}
	return page
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, body)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

func requireStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("status %d, want %d; body: %s", rec.Code, want, rec.Body.String())
	}
}

func init() {
	gin.SetMode(gin.TestMode)
}

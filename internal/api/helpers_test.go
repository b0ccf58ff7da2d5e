package api

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/minio/minio-go/v7"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"openpersona/internal/auth"
	"openpersona/internal/config"
	"openpersona/internal/database"
	"openpersona/internal/mail"
)

type fakeStorage struct {
	uploaded map[string][]byte
	deleted  []string
	failSign map[string]bool
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{
		uploaded: map[string][]byte{},
		failSign: map[string]bool{},
	}
}

func (s *fakeStorage) UploadFile(_ context.Context, objectName string, reader io.Reader, _ int64, _ string) (*minio.UploadInfo, error) {
	b, _ := io.ReadAll(reader)
	s.uploaded[objectName] = b
	return &minio.UploadInfo{Key: objectName}, nil
}

func (s *fakeStorage) GeneratePresignedURL(_ context.Context, objectKey string, _ time.Duration) (string, error) {
	if s.failSign[objectKey] {
		return "", fmt.Errorf("sign %q failed", objectKey)
	}
	return "https://signed.example/" + objectKey, nil
}

func (s *fakeStorage) DeleteObject(_ context.Context, objectKey string) error {
	s.deleted = append(s.deleted, objectKey)
	delete(s.uploaded, objectKey)
	return nil
}

func (s *fakeStorage) ReadObject(_ context.Context, objectKey string) ([]byte, error) {
	if data, ok := s.uploaded[objectKey]; ok {
		return data, nil
	}
	return nil, fmt.Errorf("object %q not found", objectKey)
}

type fakeGenerator struct {
	response string
	err      error
	prompts  []string
}

func (g *fakeGenerator) GenerateText(_ context.Context, prompt string) (string, error) {
	g.prompts = append(g.prompts, prompt)
	if g.err != nil {
		return "", g.err
	}
	return g.response, nil
}

func testKeyPair(t *testing.T) ([]byte, []byte) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate rsa key: %v", err)
	}
	privPEM := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	})
	pubDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		t.Fatalf("marshal public key: %v", err)
	}
	pubPEM := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER})
	return privPEM, pubPEM
}

type testEnv struct {
	router    *gin.Engine
	db        *gorm.DB
	storage   *fakeStorage
	generator *fakeGenerator
	cfg       *config.Config
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(database.AllModels()...); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if err := db.Create(&database.Template{Slug: "hire-me", Name: "Hire Me", IsActive: true}).Error; err != nil {
		t.Fatalf("seed template: %v", err)
	}

	privPEM, pubPEM := testKeyPair(t)
	authService, err := auth.NewAuthService(privPEM, pubPEM, 15*time.Minute, 24*time.Hour)
	if err != nil {
		t.Fatalf("init auth service: %v", err)
	}

	cfg := &config.Config{}
	cfg.API.PortfolioBase = "https://openpersona.app"
	cfg.Auth.LoginRatePerHr = 100
	cfg.Auth.LoginLockAfter = 5
	cfg.Auth.LoginLockTTL = time.Minute
	cfg.Uploads.MaxBytes = 1 << 20
	cfg.Uploads.MaxPerDay = 100
	cfg.Uploads.MaxPerUser = 5

	// The address is intentionally unreachable; rate limiting degrades open.
	redisClient := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := newFakeStorage()
	generator := &fakeGenerator{response: "{}"}
	mailer := mail.New(config.MailConfig{}, logger)

	router := NewRouter(logger)
	RegisterRoutes(router, db, cfg, authService, redisClient, store, generator, mailer)

	return &testEnv{
		router:    router,
		db:        db,
		storage:   store,
		generator: generator,
		cfg:       cfg,
	}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) doMultipart(t *testing.T, path, token, category, filename string, content []byte) *httptest.ResponseRecorder {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	if err := writer.WriteField("category", category); err != nil {
		t.Fatalf("write category field: %v", err)
	}
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatalf("write file content: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, path, body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return out
}

// registerUser registers through the API and returns the access token.
func (e *testEnv) registerUser(t *testing.T, handle string) string {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/auth/register", "", map[string]any{
		"name":     "Test " + handle,
		"email":    handle + "@example.com",
		"handle":   handle,
		"password": "password123",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register %q: status %d body %s", handle, rec.Code, rec.Body.String())
	}
	body := decodeJSON(t, rec)
	token, _ := body["accessToken"].(string)
	if token == "" {
		t.Fatal("register returned no access token")
	}
	return token
}

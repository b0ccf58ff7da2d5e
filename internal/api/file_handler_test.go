package api

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"openpersona/internal/database"
)

func TestUploadFile(t *testing.T) {
	env := newTestEnv(t)
	token := env.registerUser(t, "uploader")

	rec := env.doMultipart(t, "/api/files", token, "avatar", "me.png", []byte("png-bytes"))
	if rec.Code != http.StatusCreated {
		t.Fatalf("upload: status %d body %s", rec.Code, rec.Body.String())
	}

	body := decodeJSON(t, rec)
	file, _ := body["file"].(map[string]any)
	key, _ := file["objectKey"].(string)
	if !strings.Contains(key, "/avatar/") || !strings.HasSuffix(key, "-me.png") {
		t.Fatalf("unexpected object key %q", key)
	}
	if !bytes.Equal(env.storage.uploaded[key], []byte("png-bytes")) {
		t.Fatal("object content not stored")
	}
	if file["url"] == nil {
		t.Fatal("upload response missing signed url")
	}

	var row database.Upload
	if err := env.db.Where("object_key = ?", key).First(&row).Error; err != nil {
		t.Fatalf("upload row not persisted: %v", err)
	}
	if row.Category != "avatar" {
		t.Fatalf("unexpected category %q", row.Category)
	}
}

func TestUploadFile_Rejections(t *testing.T) {
	env := newTestEnv(t)
	token := env.registerUser(t, "rejects")

	rec := env.doMultipart(t, "/api/files", token, "wallpaper", "x.png", []byte("data"))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad category: expected 400, got %d", rec.Code)
	}

	big := make([]byte, env.cfg.Uploads.MaxBytes+1)
	rec = env.doMultipart(t, "/api/files", token, "avatar", "big.png", big)
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("oversize: expected 413, got %d", rec.Code)
	}

	rec = env.doMultipart(t, "/api/files", "", "avatar", "x.png", []byte("data"))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated: expected 401, got %d", rec.Code)
	}
}

func TestUploadFile_PerUserLimit(t *testing.T) {
	env := newTestEnv(t)
	token := env.registerUser(t, "hoarder")

	for i := 0; i < env.cfg.Uploads.MaxPerUser; i++ {
		rec := env.doMultipart(t, "/api/files", token, "project", fmt.Sprintf("f%d.png", i), []byte("data"))
		if rec.Code != http.StatusCreated {
			t.Fatalf("upload %d: status %d", i, rec.Code)
		}
	}

	rec := env.doMultipart(t, "/api/files", token, "project", "over.png", []byte("data"))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("over limit: expected 403, got %d", rec.Code)
	}
}

func TestListFiles_CategoryFilter(t *testing.T) {
	env := newTestEnv(t)
	token := env.registerUser(t, "lister")

	env.doMultipart(t, "/api/files", token, "avatar", "a.png", []byte("a"))
	env.doMultipart(t, "/api/files", token, "banner", "b.png", []byte("b"))

	rec := env.do(t, http.MethodGet, "/api/files?category=banner", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list: status %d", rec.Code)
	}
	body := decodeJSON(t, rec)
	files, _ := body["files"].([]any)
	if len(files) != 1 {
		t.Fatalf("expected 1 banner file, got %d", len(files))
	}

	rec = env.do(t, http.MethodGet, "/api/files", token, nil)
	body = decodeJSON(t, rec)
	files, _ = body["files"].([]any)
	if len(files) != 2 {
		t.Fatalf("expected 2 files, got %d", len(files))
	}
}

func TestDeleteFile(t *testing.T) {
	env := newTestEnv(t)
	token := env.registerUser(t, "deleter")

	rec := env.doMultipart(t, "/api/files", token, "project", "gone.png", []byte("data"))
	body := decodeJSON(t, rec)
	file, _ := body["file"].(map[string]any)
	id := int(file["id"].(float64))
	key, _ := file["objectKey"].(string)

	rec = env.do(t, http.MethodDelete, fmt.Sprintf("/api/files/%d", id), token, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete: status %d body %s", rec.Code, rec.Body.String())
	}

	if len(env.storage.deleted) != 1 || env.storage.deleted[0] != key {
		t.Fatalf("object not deleted: %v", env.storage.deleted)
	}
	var count int64
	env.db.Model(&database.Upload{}).Where("object_key = ?", key).Count(&count)
	if count != 0 {
		t.Fatal("upload row still present after delete")
	}

	rec = env.do(t, http.MethodDelete, fmt.Sprintf("/api/files/%d", id), token, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("double delete: expected 404, got %d", rec.Code)
	}
}

func TestDeleteFile_OtherUsersFileHidden(t *testing.T) {
	env := newTestEnv(t)
	owner := env.registerUser(t, "owner")
	other := env.registerUser(t, "other")

	rec := env.doMultipart(t, "/api/files", owner, "project", "mine.png", []byte("data"))
	body := decodeJSON(t, rec)
	file, _ := body["file"].(map[string]any)
	id := int(file["id"].(float64))

	rec = env.do(t, http.MethodDelete, fmt.Sprintf("/api/files/%d", id), other, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("cross-user delete: expected 404, got %d", rec.Code)
	}
}

func TestSignedURL(t *testing.T) {
	env := newTestEnv(t)
	token := env.registerUser(t, "signer")

	rec := env.doMultipart(t, "/api/files", token, "avatar", "a.png", []byte("a"))
	body := decodeJSON(t, rec)
	file, _ := body["file"].(map[string]any)
	id := int(file["id"].(float64))

	rec = env.do(t, http.MethodGet, fmt.Sprintf("/api/files/%d/url", id), token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("signed url: status %d", rec.Code)
	}
	body = decodeJSON(t, rec)
	url, _ := body["url"].(string)
	if !strings.HasPrefix(url, "https://signed.example/") {
		t.Fatalf("unexpected url %q", url)
	}
}

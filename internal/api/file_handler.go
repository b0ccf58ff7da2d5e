package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/minio/minio-go/v7"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"openpersona/internal/api/middleware"
	"openpersona/internal/config"
	"openpersona/internal/database"
)

const downloadURLTTL = 300 * time.Second

var uploadCategories = map[string]bool{
	"avatar":    true,
	"banner":    true,
	"project":   true,
	"portfolio": true,
	"resume":    true,
}

// ObjectStore is the object-storage surface the file endpoints depend on.
type ObjectStore interface {
	UploadFile(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) (*minio.UploadInfo, error)
	GeneratePresignedURL(ctx context.Context, objectKey string, duration time.Duration) (string, error)
	DeleteObject(ctx context.Context, objectKey string) error
}

// FileHandler serves upload, listing, signing and deletion of user files.
type FileHandler struct {
	db          *gorm.DB
	store       ObjectStore
	redisClient *redis.Client
	limits      config.UploadConfig
}

// NewFileHandler constructs a FileHandler.
func NewFileHandler(db *gorm.DB, store ObjectStore, redisClient *redis.Client, limits config.UploadConfig) *FileHandler {
	return &FileHandler{db: db, store: store, redisClient: redisClient, limits: limits}
}

type fileResponse struct {
	ID          uint      `json:"id"`
	Category    string    `json:"category"`
	ObjectKey   string    `json:"objectKey"`
	ContentType string    `json:"contentType"`
	Size        int64     `json:"size"`
	URL         *string   `json:"url"`
	CreatedAt   time.Time `json:"createdAt"`
	Error       string    `json:"error,omitempty"`
}

func (h *FileHandler) toFileResponse(ctx context.Context, row *database.Upload) fileResponse {
	resp := fileResponse{
		ID:          row.ID,
		Category:    row.Category,
		ObjectKey:   row.ObjectKey,
		ContentType: row.ContentType,
		Size:        row.Size,
		CreatedAt:   row.CreatedAt,
	}
	url, err := h.store.GeneratePresignedURL(ctx, row.ObjectKey, downloadURLTTL)
	if err != nil {
		resp.Error = "Failed to sign URL"
		return resp
	}
	resp.URL = &url
	return resp
}

// sanitizeFilename keeps the base name safe for an object key.
func sanitizeFilename(name string) string {
	name = filepath.Base(name)
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' || r == '-' || r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}
	out := strings.Trim(b.String(), "-.")
	if out == "" {
		return "file"
	}
	return out
}

// Upload accepts one multipart file under a category, enforcing the size cap
// plus per-day and per-user counts before persisting.
func (h *FileHandler) Upload(c *gin.Context) {
	userID := c.GetUint("userID")
	ctx := c.Request.Context()

	category := strings.ToLower(strings.TrimSpace(c.PostForm("category")))
	if !uploadCategories[category] {
		BadRequest(c, "invalid upload category")
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		BadRequest(c, "file field is required")
		return
	}
	if fileHeader.Size <= 0 {
		BadRequest(c, "file is empty")
		return
	}
	if fileHeader.Size > h.limits.MaxBytes {
		Error(c, http.StatusRequestEntityTooLarge, "file exceeds the size limit")
		return
	}

	var total int64
	if err := h.db.WithContext(ctx).Model(&database.Upload{}).
		Where("user_id = ?", userID).
		Count(&total).Error; err != nil {
		middleware.LoggerFromContext(c).Error("upload count failed", "error", err)
		Internal(c, "upload failed")
		return
	}
	if h.limits.MaxPerUser > 0 && total >= int64(h.limits.MaxPerUser) {
		Forbidden(c, "storage item limit reached")
		return
	}

	dayKey := fmt.Sprintf("uploads:daily:%d:%s", userID, time.Now().UTC().Format("2006-01-02"))
	if count, err := bumpCounter(ctx, h.redisClient, dayKey, 24*time.Hour); err != nil {
		middleware.LoggerFromContext(c).Warn("upload rate counter unavailable", "error", err)
	} else if h.limits.MaxPerDay > 0 && count > int64(h.limits.MaxPerDay) {
		Error(c, http.StatusTooManyRequests, "daily upload limit reached")
		return
	}

	src, err := fileHeader.Open()
	if err != nil {
		middleware.LoggerFromContext(c).Error("open upload failed", "error", err)
		Internal(c, "upload failed")
		return
	}
	defer src.Close()

	objectKey := fmt.Sprintf("users/%d/%s/%d-%s",
		userID, category, time.Now().UnixMilli(), sanitizeFilename(fileHeader.Filename))
	contentType := fileHeader.Header.Get("Content-Type")

	if _, err := h.store.UploadFile(ctx, objectKey, src, fileHeader.Size, contentType); err != nil {
		middleware.LoggerFromContext(c).Error("object upload failed", "error", err)
		Internal(c, "upload failed")
		return
	}

	row := database.Upload{
		UserID:      userID,
		ObjectKey:   objectKey,
		ContentType: contentType,
		Size:        fileHeader.Size,
		Category:    category,
	}
	if err := h.db.WithContext(ctx).Create(&row).Error; err != nil {
		middleware.LoggerFromContext(c).Error("upload persist failed", "error", err)
		_ = h.store.DeleteObject(ctx, objectKey)
		Internal(c, "upload failed")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"file": h.toFileResponse(ctx, &row)})
}

// List returns the caller's files, optionally filtered by category, each
// resolved to a signed URL. A signing failure degrades that item only.
func (h *FileHandler) List(c *gin.Context) {
	userID := c.GetUint("userID")
	ctx := c.Request.Context()

	query := h.db.WithContext(ctx).Where("user_id = ?", userID)
	if category := strings.ToLower(strings.TrimSpace(c.Query("category"))); category != "" {
		if !uploadCategories[category] {
			BadRequest(c, "invalid upload category")
			return
		}
		query = query.Where("category = ?", category)
	}

	var rows []database.Upload
	if err := query.Order("created_at DESC").Find(&rows).Error; err != nil {
		middleware.LoggerFromContext(c).Error("file list failed", "error", err)
		Internal(c, "file list failed")
		return
	}

	files := make([]fileResponse, 0, len(rows))
	for i := range rows {
		files = append(files, h.toFileResponse(ctx, &rows[i]))
	}

	c.JSON(http.StatusOK, gin.H{"files": files})
}

func (h *FileHandler) loadOwnedUpload(c *gin.Context) (*database.Upload, bool) {
	userID := c.GetUint("userID")
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		BadRequest(c, "invalid file id")
		return nil, false
	}

	var row database.Upload
	err = h.db.WithContext(c.Request.Context()).
		Where("id = ? AND user_id = ?", id, userID).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		NotFound(c, "file not found")
		return nil, false
	}
	if err != nil {
		middleware.LoggerFromContext(c).Error("file lookup failed", "error", err)
		Internal(c, "file lookup failed")
		return nil, false
	}
	return &row, true
}

// SignedURL returns a fresh time-limited download link for one file.
func (h *FileHandler) SignedURL(c *gin.Context) {
	row, ok := h.loadOwnedUpload(c)
	if !ok {
		return
	}

	url, err := h.store.GeneratePresignedURL(c.Request.Context(), row.ObjectKey, downloadURLTTL)
	if err != nil {
		middleware.LoggerFromContext(c).Error("sign url failed", "error", err)
		Internal(c, "failed to sign url")
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": url, "expiresIn": int(downloadURLTTL.Seconds())})
}

// Delete removes the object and its metadata row. The object delete is
// idempotent so a retried request converges.
func (h *FileHandler) Delete(c *gin.Context) {
	row, ok := h.loadOwnedUpload(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	if err := h.store.DeleteObject(ctx, row.ObjectKey); err != nil {
		middleware.LoggerFromContext(c).Error("object delete failed", "error", err)
		Internal(c, "file delete failed")
		return
	}
	if err := h.db.WithContext(ctx).Unscoped().Delete(row).Error; err != nil {
		middleware.LoggerFromContext(c).Error("file row delete failed", "error", err)
		Internal(c, "file delete failed")
		return
	}

	c.Status(http.StatusNoContent)
}

package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"finora/internal/app"
	applog "finora/internal/log"
	"finora/internal/middleware"
	"finora/internal/models"
	"finora/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const backupFormat = 1

// BackupHandler writes and restores encrypted snapshots of one user's
// entries and goals.
type BackupHandler struct {
	DB         *gorm.DB
	App        *app.App
	EncryptKey string
	BackupDir  string
	Log        *applog.Logger
}

func NewBackupHandler(db *gorm.DB, a *app.App, encryptKey, backupDir string, logger *applog.Logger) *BackupHandler {
	return &BackupHandler{
		DB:         db,
		App:        a,
		EncryptKey: encryptKey,
		BackupDir:  backupDir,
		Log:        logger.WithComponent(applog.ComponentBackup),
	}
}

// backupData is the plaintext inside a backup file.
type backupData struct {
	Format   int            `json:"format"`
	Username string         `json:"username"`
	Created  time.Time      `json:"created"`
	Entries  []models.Entry `json:"entries"`
	Goals    []models.Goal  `json:"goals"`
}

func backupResp(b *models.Backup) gin.H {
	return gin.H{
		"id":         b.ID,
		"file_name":  b.FileName,
		"size":       b.Size,
		"created_at": b.CreatedAt,
	}
}

// CreateBackup snapshots the caller's data into a new encrypted file.
func (h *BackupHandler) CreateBackup(c *gin.Context) {
	ctx := c.Request.Context()
	s := middleware.CurrentSession(c)

	entries, err := h.App.Entries(ctx, s, app.EntryFilter{})
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	goals, err := h.App.Goals(ctx, s)
	if err != nil {
		respondError(c, h.Log, err)
		return
	}

	raw, err := json.Marshal(&backupData{
		Format:   backupFormat,
		Username: s.Username,
		Created:  time.Now().UTC(),
		Entries:  entries,
		Goals:    goals,
	})
	if err != nil {
		respondError(c, h.Log, fmt.Errorf("encode backup: %w", err))
		return
	}
	enc, err := util.EncryptAES(h.EncryptKey, raw)
	if err != nil {
		respondError(c, h.Log, fmt.Errorf("encrypt backup: %w", err))
		return
	}

	if err := os.MkdirAll(h.BackupDir, 0o700); err != nil {
		respondError(c, h.Log, fmt.Errorf("create backup dir: %w", err))
		return
	}
	fileName := fmt.Sprintf("backup-%s-%s.bin", s.Username, uuid.NewString())
	filePath := filepath.Join(h.BackupDir, fileName)
	if err := os.WriteFile(filePath, enc, 0o600); err != nil {
		respondError(c, h.Log, fmt.Errorf("write backup: %w", err))
		return
	}

	backup := models.Backup{
		Username: s.Username,
		FileName: fileName,
		FilePath: filePath,
		Size:     int64(len(enc)),
	}
	if err := h.DB.WithContext(ctx).Create(&backup).Error; err != nil {
		_ = os.Remove(filePath)
		respondError(c, h.Log, fmt.Errorf("record backup: %w", err))
		return
	}

	h.Log.InfoContext(ctx, "backup created",
		applog.FieldUsername, s.Username,
		applog.FieldBackupID, backup.ID,
		applog.FieldCount, len(entries))
	util.Created(c, util.Response{"backup": backupResp(&backup)})
}

func (h *BackupHandler) ListBackups(c *gin.Context) {
	s := middleware.CurrentSession(c)
	var list []models.Backup
	if err := h.DB.WithContext(c.Request.Context()).
		Where("username = ?", s.Username).
		Order("created_at DESC, id DESC").
		Find(&list).Error; err != nil {
		respondError(c, h.Log, fmt.Errorf("list backups: %w", err))
		return
	}

	items := make([]gin.H, 0, len(list))
	for i := range list {
		items = append(items, backupResp(&list[i]))
	}
	util.Success(c, util.Response{"items": items})
}

// find loads the caller's backup named by the :id parameter, writing the
// error response itself when there is none.
func (h *BackupHandler) find(c *gin.Context) (*models.Backup, bool) {
	s := middleware.CurrentSession(c)
	var backup models.Backup
	err := h.DB.WithContext(c.Request.Context()).
		Where("id = ? AND username = ?", c.Param("id"), s.Username).
		First(&backup).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		util.Error(c, http.StatusNotFound, util.CodeNotFound, "backup not found")
		return nil, false
	}
	if err != nil {
		respondError(c, h.Log, fmt.Errorf("query backup: %w", err))
		return nil, false
	}
	return &backup, true
}

func (h *BackupHandler) DownloadBackup(c *gin.Context) {
	backup, ok := h.find(c)
	if !ok {
		return
	}
	c.FileAttachment(backup.FilePath, backup.FileName)
}

// DeleteBackup removes the backup file and its record. Ledger data is
// not touched.
func (h *BackupHandler) DeleteBackup(c *gin.Context) {
	backup, ok := h.find(c)
	if !ok {
		return
	}
	if err := os.Remove(backup.FilePath); err != nil && !errors.Is(err, os.ErrNotExist) {
		respondError(c, h.Log, fmt.Errorf("remove backup file: %w", err))
		return
	}
	if err := h.DB.WithContext(c.Request.Context()).Delete(backup).Error; err != nil {
		respondError(c, h.Log, fmt.Errorf("delete backup record: %w", err))
		return
	}
	util.Success(c, util.Response{"message": "backup deleted"})
}

// RestoreBackup merges a backup back into the caller's data. Entries and
// goals that are already present are skipped, so restoring twice is safe.
func (h *BackupHandler) RestoreBackup(c *gin.Context) {
	backup, ok := h.find(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	s := middleware.CurrentSession(c)

	enc, err := os.ReadFile(backup.FilePath)
	if err != nil {
		respondError(c, h.Log, fmt.Errorf("read backup: %w", err))
		return
	}
	raw, err := util.DecryptAES(h.EncryptKey, enc)
	if err != nil {
		h.Log.Failure(ctx, "decrypt backup", err, applog.FieldBackupID, backup.ID)
		util.Error(c, http.StatusUnprocessableEntity, util.CodeInvalidParam, "backup cannot be decrypted")
		return
	}

	var data backupData
	if err := json.Unmarshal(raw, &data); err != nil {
		util.Error(c, http.StatusUnprocessableEntity, util.CodeInvalidParam, "backup is corrupt")
		return
	}
	if data.Username != s.Username {
		badRequest(c, "backup belongs to another user")
		return
	}

	res, err := h.App.Import(ctx, s, data.Entries, data.Goals)
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	util.Success(c, util.Response{
		"message":  "backup restored",
		"restored": res,
	})
}

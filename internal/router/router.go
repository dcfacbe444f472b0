package router

import (
	"net/http"

	"finora/internal/app"
	"finora/internal/config"
	"finora/internal/handler"
	applog "finora/internal/log"
	"finora/internal/middleware"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type Deps struct {
	Config   *config.Config
	DB       *gorm.DB
	App      *app.App
	Sessions middleware.SessionResolver
	Logger   *applog.Logger
}

// SetupRouter configures the Gin engine and the JSON API.
func SetupRouter(d Deps) *gin.Engine {
	cfg := d.Config
	if cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
	}
	logger := d.Logger
	if logger == nil {
		logger = applog.Discard()
	}
	httpLog := logger.WithComponent(applog.ComponentHTTP)

	r := gin.New()
	r.Use(middleware.RequestLogger(httpLog), gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")

	// no session required
	authHandler := handler.NewAuthHandler(d.App, httpLog)
	api.POST("/auth/register", authHandler.Register)
	api.POST("/auth/login", authHandler.Login)

	entryHandler := handler.NewEntryHandler(d.App, httpLog)
	api.GET("/categories", entryHandler.Categories)

	protected := api.Group("")
	protected.Use(
		middleware.AuthMiddleware(d.Sessions, httpLog),
		middleware.AuditMiddleware(d.DB, cfg.Security.EncryptionKey, httpLog),
	)

	protected.POST("/auth/logout", authHandler.Logout)

	profileHandler := handler.NewProfileHandler(d.App, httpLog)
	protected.GET("/me", profileHandler.GetMe)
	protected.POST("/profile", profileHandler.UpdateProfile)
	protected.POST("/profile/password", profileHandler.ChangePassword)

	protected.POST("/entries", entryHandler.CreateEntry)
	protected.GET("/entries", entryHandler.ListEntries)

	goalHandler := handler.NewGoalHandler(d.App, httpLog)
	protected.POST("/goals", goalHandler.CreateGoal)
	protected.GET("/goals", goalHandler.ListGoals)

	reportHandler := handler.NewReportHandler(d.App, httpLog)
	protected.GET("/summary", reportHandler.Summary)
	protected.GET("/reports/categories", reportHandler.Categories)
	protected.GET("/reports/trend", reportHandler.Trend)
	protected.GET("/reports/budget", reportHandler.Budget)

	adviceHandler := handler.NewAdviceHandler(d.App, httpLog)
	protected.GET("/recommendation", adviceHandler.Recommendation)
	protected.GET("/market/:symbol", adviceHandler.Quote)

	importExportHandler := handler.NewImportExportHandler(d.App, httpLog)
	protected.GET("/export/csv", importExportHandler.ExportCSV)
	protected.GET("/export/xlsx", importExportHandler.ExportXLSX)
	protected.POST("/import", importExportHandler.Import)

	backupHandler := handler.NewBackupHandler(d.DB, d.App, cfg.Security.EncryptionKey, cfg.Backup.Dir, logger)
	protected.POST("/backups", backupHandler.CreateBackup)
	protected.GET("/backups", backupHandler.ListBackups)
	protected.GET("/backups/:id/download", backupHandler.DownloadBackup)
	protected.POST("/backups/:id/restore", backupHandler.RestoreBackup)
	protected.DELETE("/backups/:id", backupHandler.DeleteBackup)

	logHandler := handler.NewLogHandler(d.DB, cfg.Security.EncryptionKey, httpLog)
	protected.GET("/logs", logHandler.ListLogs)
	protected.GET("/history", logHandler.ListEntryHistory)

	return r
}

package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/mmfieldworks/drillreports_backend/config"
	"github.com/mmfieldworks/drillreports_backend/models"
	"github.com/mmfieldworks/drillreports_backend/syncengine"
)

const defaultPort = "8080"

func main() {
	logger := config.GetLogger()

	config.ConnectDatabaseWithRetry(models.MigrateLocalStore)

	var engine *syncengine.Engine
	submitter, err := syncengine.NewRemoteClient()
	if err != nil {
		// The device is expected to run fully offline; syncing stays
		// unavailable until the endpoint is configured.
		logger.Warn("remote sync endpoint not configured: " + err.Error())
	} else {
		engine = syncengine.NewEngine(submitter, logger)
	}

	router := gin.Default()
	router.Use(cors.New(corsConfig()))
	registerRoutes(router, engine)

	port := os.Getenv("PORT")
	if port == "" {
		port = defaultPort
	}

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: router,
	}

	go func() {
		logger.Info("listening on :" + port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server error: " + err.Error())
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("forced shutdown: " + err.Error())
	}
}

func corsConfig() cors.Config {
	cfg := cors.DefaultConfig()
	cfg.AllowAllOrigins = true
	cfg.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	return cfg
}

func registerRoutes(router *gin.Engine, engine *syncengine.Engine) {
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	reports := router.Group("/reports")
	{
		reports.POST("", SaveReportHandler())
		reports.GET("", ListReportsHandler())
		reports.GET("/:id", GetReportHandler())
		reports.DELETE("/:id", DeleteReportHandler())
		reports.POST("/derive", DeriveTotalsHandler())
	}

	sync := router.Group("/sync")
	{
		sync.POST("/run", SyncRunHandler(engine))
		sync.GET("/status", SyncStatusHandler(engine))
	}

	router.POST("/conflicts/:id/resolve", ResolveConflictHandler())

	router.GET("/export", ExportHandler())
	router.POST("/import", ImportHandler())

	directory := router.Group("/directory")
	{
		directory.GET("/workers", ListDirectoryWorkersHandler())
		directory.POST("/workers", SaveDirectoryWorkerHandler())
		directory.DELETE("/workers/:id", DeleteDirectoryWorkerHandler())
		directory.GET("/rigs", ListDirectoryRigsHandler())
		directory.POST("/rigs", SaveDirectoryRigHandler())
		directory.DELETE("/rigs/:id", DeleteDirectoryRigHandler())
	}
}

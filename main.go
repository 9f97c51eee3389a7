package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"time"

	"supportdesk/internal/api"
	"supportdesk/internal/config"
	"supportdesk/internal/service/agent"
	"supportdesk/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	cfgPath := os.Getenv("SUPPORTDESK_CONFIG")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	dbType := os.Getenv("SUPPORTDESK_DB")
	if dbType == "" {
		dbType = "sqlite3"
	}
	db, err := storage.Open(dbType, cfg)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()
	if err := storage.Migrate(db, dbType); err != nil {
		log.Fatalf("migrate database: %v", err)
	}

	responder, err := agent.NewService(context.Background(), cfg)
	if err != nil {
		log.Fatalf("init support agent: %v", err)
	}

	uploadDir := cfg.BasicConfig.UploadDir
	if err := os.MkdirAll(uploadDir, 0o755); err != nil {
		log.Fatalf("create upload directory: %v", err)
	}
	fileTTL := time.Duration(cfg.BasicConfig.FileTTLHours) * time.Hour
	handlers := api.NewHandler(responder, storage.NewUploadStore(db), uploadDir, fileTTL)

	sweepCtx, sweepCancel := context.WithCancel(context.Background())
	defer sweepCancel()
	handlers.StartSweeper(sweepCtx, time.Duration(cfg.BasicConfig.SweepIntervalMinutes)*time.Minute)

	router := gin.New()
	router.Use(gin.Logger(), gin.CustomRecovery(func(c *gin.Context, _ any) {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error": "an error occurred while processing your request",
		})
	}))
	handlers.RegisterRoutes(router)

	addr := cfg.BasicConfig.ServerAddress
	if addr == "" {
		addr = ":8080"
	}
	if err := router.Run(addr); err != nil {
		log.Fatalf("server stopped: %v", err)
	}
}

package main

import (
	"flag"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"prediction-service/internal/api"
	"prediction-service/internal/config"
	"prediction-service/internal/logging"
	"prediction-service/internal/model"
	"prediction-service/internal/predict"
)

func main() {
	configPath := flag.String("config", strings.TrimSpace(os.Getenv("PREDICTOR_CONFIG")), "optional YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logrus.Fatalf("load config: %v", err)
	}

	out, closeLog, err := logging.Setup(logging.Options{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		File:   cfg.LogFile,
	})
	if err != nil {
		logrus.Fatalf("configure logging: %v", err)
	}
	defer closeLog()
	gin.DefaultWriter = out

	// A missing or broken model is not fatal: /health reports it and the
	// prediction endpoints answer 500 until the process is restarted.
	var service *predict.Service
	bundle, err := model.Load(cfg.ModelPath, cfg.PreprocessingInfoPath)
	if err != nil {
		logrus.WithError(err).Error("model unavailable")
	} else {
		service = predict.NewService(bundle.Scorer, bundle.Schema)
	}

	server, err := api.NewServer(api.Config{
		UploadDir:         cfg.UploadFolder,
		AllowedExtensions: cfg.AllowedExtensions,
		AllowedOrigins:    cfg.AllowedOrigins,
		MaxUploadBytes:    cfg.MaxUploadBytes(),
	}, service)
	if err != nil {
		logrus.Fatalf("create server: %v", err)
	}

	router, err := server.Router()
	if err != nil {
		logrus.Fatalf("configure router: %v", err)
	}

	logrus.WithFields(logrus.Fields{
		"port":         cfg.Port,
		"upload_dir":   cfg.UploadFolder,
		"model_loaded": service != nil,
	}).Info("starting prediction service")
	if err := router.Run(":" + cfg.Port); err != nil {
		logrus.WithError(err).Error("server exited")
		_ = closeLog()
		os.Exit(1)
	}
}

package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"imagegen/common"
	"imagegen/internal/imagegen"
	"imagegen/internal/web"
)

func main() {
	// 加载配置
	config, err := common.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	common.WithFields(map[string]interface{}{
		"provider":   config.GenAIProvider,
		"base_url":   config.GenAIBaseURL,
		"gen_model":  config.GenAIGenModelName,
		"edit_model": config.GenAIEditModelName,
		"api_key":    common.MaskAPIKey(config.GenAIAPIKey),
		"output_dir": config.OutputDir,
		"upload_dir": config.UploadDir,
	}).Info("Web server configuration")

	for _, dir := range []string{config.OutputDir, config.UploadDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.Fatalf("Failed to create directory %s: %v", dir, err)
		}
	}

	service, err := imagegen.NewServiceFromConfig(config)
	if err != nil {
		log.Fatalf("Failed to create image service: %v", err)
	}
	defer service.Close()

	srv := web.NewServer(config, service)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		common.WithError(err).Error("Failed to shut down web server")
	}
}

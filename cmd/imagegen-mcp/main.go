package main

import (
	"log"

	"imagegen/common"
	"imagegen/internal/imagegen"
	"imagegen/internal/tools"

	"github.com/mark3labs/mcp-go/server"
)

func main() {
	// 加载配置
	config, err := common.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 打印配置信息（隐藏敏感信息），stdout 留给 stdio 协议
	common.WithFields(map[string]interface{}{
		"provider":   config.GenAIProvider,
		"base_url":   config.GenAIBaseURL,
		"gen_model":  config.GenAIGenModelName,
		"edit_model": config.GenAIEditModelName,
		"api_key":    common.MaskAPIKey(config.GenAIAPIKey),
	}).Info("MCP server starting")

	service, err := imagegen.NewServiceFromConfig(config)
	if err != nil {
		log.Fatalf("Failed to create image service: %v", err)
	}
	defer service.Close()

	// 创建 MCP 服务器
	s := server.NewMCPServer(
		"imagegen",
		"1.0.0",
		server.WithToolCapabilities(true),
	)

	if err := tools.RegisterImageTools(s, service); err != nil {
		log.Fatalf("Failed to register image tools: %v", err)
	}

	// 启动 stdio 服务器
	if err := server.ServeStdio(s); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// DefaultSecretKey 是 web 进程的默认密钥，生产环境必须通过 SECRET_KEY 覆盖
const DefaultSecretKey = "dev-key-change-in-production"

// Config 应用配置结构
type Config struct {
	// GenAI 提供方: openai 或 gemini
	GenAIProvider string

	GenAIBaseURL string
	GenAIAPIKey  string
	// 分别用于图片生成与图片编辑的模型名称
	GenAIGenModelName  string
	GenAIEditModelName string
	// GenAI 请求超时时间（秒）
	GenAITimeoutSeconds int

	// 本地存储
	OutputDir string
	UploadDir string

	// Web 配置
	ServerAddress string
	ServerPort    string
	SecretKey     string
	MaxUploadMB   int

	// OSS 配置（可选，配置 bucket 后生成的图片会同步上传）
	OSSEndpoint  string
	OSSRegion    string
	OSSAccessKey string
	OSSSecretKey string
	OSSBucket    string

	// 日志配置
	LogLevel  string // 日志级别: debug, info, warn, error
	LogFormat string // 日志格式: json, text
	LogOutput string // 输出位置: stdout, stderr, file
	LogFile   string // 日志文件路径（当 LogOutput 为 file 时）
}

// LoadConfig 从 .env 文件和环境变量加载配置，并初始化日志系统
func LoadConfig() (*Config, error) {
	// 加载 .env 文件（如果存在）
	envErr := godotenv.Load()

	config := &Config{
		GenAIProvider:       strings.ToLower(getEnv("GENAI_PROVIDER", "openai")),
		GenAIBaseURL:        getEnv("GENAI_BASE_URL", ""),
		GenAIGenModelName:   getEnv("GENAI_GEN_MODEL_NAME", ""),
		GenAIEditModelName:  getEnv("GENAI_EDIT_MODEL_NAME", ""),
		GenAITimeoutSeconds: getEnvInt("GENAI_TIMEOUT_SECONDS", 600),
		OutputDir:           getEnv("OUTPUT_DIR", "outputs"),
		UploadDir:           getEnv("UPLOAD_DIR", "uploads"),
		ServerAddress:       getEnv("SERVER_ADDRESS", "0.0.0.0"),
		ServerPort:          getEnv("SERVER_PORT", "8080"),
		SecretKey:           getEnv("SECRET_KEY", DefaultSecretKey),
		MaxUploadMB:         getEnvInt("MAX_UPLOAD_MB", 10),
		// OSS 配置
		OSSEndpoint:  getEnv("OSS_ENDPOINT", ""),
		OSSRegion:    getEnv("OSS_REGION", "us-east-1"),
		OSSAccessKey: getEnv("OSS_ACCESS_KEY", ""),
		OSSSecretKey: getEnv("OSS_SECRET_KEY", ""),
		OSSBucket:    getEnv("OSS_BUCKET", ""),
		// 日志配置；默认 stderr，保证 CLI 输出和 MCP stdio 通道干净
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
		LogOutput: getEnv("LOG_OUTPUT", "stderr"),
		LogFile:   getEnv("LOG_FILE", ""),
	}

	// 根据提供方选择 API Key 与默认模型
	switch config.GenAIProvider {
	case "openai":
		config.GenAIAPIKey = getEnv("GENAI_API_KEY", getEnv("OPENAI_API_KEY", ""))
		if config.GenAIBaseURL == "" {
			config.GenAIBaseURL = "https://api.openai.com"
		}
		if config.GenAIGenModelName == "" {
			config.GenAIGenModelName = "gpt-image-1"
		}
		if config.GenAIEditModelName == "" {
			config.GenAIEditModelName = "gpt-image-1"
		}
	case "gemini":
		config.GenAIAPIKey = getEnv("GENAI_API_KEY", getEnv("GEMINI_API_KEY", ""))
		if config.GenAIGenModelName == "" {
			config.GenAIGenModelName = "gemini-2.5-flash-image"
		}
		if config.GenAIEditModelName == "" {
			config.GenAIEditModelName = config.GenAIGenModelName
		}
	default:
		return nil, fmt.Errorf("unsupported GENAI_PROVIDER: %s", config.GenAIProvider)
	}

	if config.GenAIAPIKey == "" {
		return nil, fmt.Errorf("GENAI_API_KEY (or the provider specific key) is required when GENAI_PROVIDER=%s", config.GenAIProvider)
	}
	if config.MaxUploadMB <= 0 {
		config.MaxUploadMB = 10
	}

	// 初始化日志系统
	logConfig := &LogConfig{
		Level:    config.LogLevel,
		Format:   config.LogFormat,
		Output:   config.LogOutput,
		FilePath: config.LogFile,
	}
	if err := InitLogger(logConfig); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	if envErr != nil {
		// .env 文件不存在时，直接使用环境变量
		GetLogger().Debug(".env file not found, using environment variables")
	}

	return config, nil
}

// getEnv 获取环境变量，如果不存在则返回默认值
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt 获取整型环境变量
func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if i, err := strconv.Atoi(value); err == nil {
		return i
	}
	return defaultValue
}

// GetServerAddr 返回完整的服务器地址
func (c *Config) GetServerAddr() string {
	return fmt.Sprintf("%s:%s", c.ServerAddress, c.ServerPort)
}

// OSSEnabled 是否配置了 OSS 镜像上传
func (c *Config) OSSEnabled() bool {
	return c.OSSBucket != ""
}

// UsesDefaultSecretKey 是否仍在使用不安全的默认密钥
func (c *Config) UsesDefaultSecretKey() bool {
	return c.SecretKey == DefaultSecretKey
}

// MaskAPIKey 隐藏 API Key 的敏感部分
func MaskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "****" + key[len(key)-4:]
}

package web

import (
	"context"
	"embed"
	"fmt"
	"net/http"

	"imagegen/common"
	"imagegen/internal/imagegen"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

//go:embed static/index.html
var staticFS embed.FS

// Server 图片生成 Web 服务
type Server struct {
	echo          *echo.Echo
	cfg           *common.Config
	service       *imagegen.Service
	metrics       *Metrics
	providerLabel string
}

// NewServer 创建 Web 服务并注册路由
func NewServer(cfg *common.Config, service *imagegen.Service) *Server {
	s := &Server{
		echo:          echo.New(),
		cfg:           cfg,
		service:       service,
		metrics:       NewMetrics("imagegen"),
		providerLabel: providerLabel(cfg.GenAIProvider),
	}

	if cfg.UsesDefaultSecretKey() {
		common.Warn("SECRET_KEY is not set, using the insecure default; override it in production")
	}

	e := s.echo
	e.HideBanner = true
	e.HTTPErrorHandler = httpErrorHandler

	// Middleware
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			common.WithFields(map[string]interface{}{
				"method":  v.Method,
				"uri":     v.URI,
				"status":  v.Status,
				"latency": v.Latency.String(),
			}).Info("request")
			return nil
		},
	}))
	e.Use(middleware.Recover())
	e.Use(s.metrics.Middleware())
	e.Use(middleware.BodyLimit(fmt.Sprintf("%dM", cfg.MaxUploadMB)))

	// Routes
	e.GET("/", s.index)
	e.GET("/favicon.ico", favicon)
	e.GET("/healthz", healthz)
	e.GET("/metrics", echo.WrapHandler(s.metrics.Handler()))
	e.POST("/generate", s.generate)
	e.POST("/edit", s.edit)
	e.GET("/download/:filename", s.download)
	e.GET("/preview/:filename", s.preview)

	return s
}

func providerLabel(provider string) string {
	switch provider {
	case "gemini":
		return "Gemini"
	default:
		return "OpenAI"
	}
}

// ServeHTTP 便于测试和嵌入其他 http.Server
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

// Start 监听配置的地址，阻塞直到服务关闭
func (s *Server) Start() error {
	addr := s.cfg.GetServerAddr()
	common.WithField("addr", addr).Info("Web server starting")
	return s.echo.Start(addr)
}

// Shutdown 优雅关闭
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

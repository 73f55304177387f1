package web

import (
	"errors"
	"fmt"
	"net/http"

	"imagegen/common"

	"github.com/labstack/echo/v4"
)

// errorResponse 所有错误统一返回 {"error": "..."}
type errorResponse struct {
	Error string `json:"error"`
}

// classify 将错误映射为 HTTP 状态码、返回给调用方的消息和指标中的类别
func (s *Server) classify(err error) (int, string, string) {
	var paramErr *common.ParamError
	var providerErr *common.ProviderError

	switch {
	case errors.As(err, &paramErr):
		return http.StatusBadRequest, paramErr.Message, "invalid_parameter"
	case errors.As(err, &providerErr):
		return http.StatusInternalServerError, fmt.Sprintf("%s API error: %s", s.providerLabel, providerErr.Message), "provider"
	case errors.Is(err, common.ErrMalformedResponse):
		return http.StatusInternalServerError, fmt.Sprintf("%s API error: %s", s.providerLabel, err.Error()), "malformed_response"
	case errors.Is(err, common.ErrStorage):
		return http.StatusInternalServerError, "Server error: " + err.Error(), "storage"
	default:
		return http.StatusInternalServerError, "Server error: " + err.Error(), "unknown"
	}
}

// respondError 写入错误响应；5xx 记录错误日志
func (s *Server) respondError(c echo.Context, mode string, err error) error {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he
	}

	status, message, kind := s.classify(err)

	entry := common.WithError(err).WithFields(map[string]interface{}{
		"mode":   mode,
		"status": status,
	})
	if status >= http.StatusInternalServerError {
		entry.Error("Request failed")
	} else {
		entry.Info("Rejected invalid request")
	}

	s.metrics.RecordFailure(mode, kind)
	return c.JSON(status, errorResponse{Error: message})
}

// httpErrorHandler 框架层错误（404 路由、413 请求体过大、panic 恢复）同样返回 JSON
func httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := http.StatusInternalServerError
	message := "Server error: " + err.Error()
	var he *echo.HTTPError
	if errors.As(err, &he) {
		status = he.Code
		message = fmt.Sprint(he.Message)
	}
	if status >= http.StatusInternalServerError {
		common.WithError(err).WithField("path", c.Request().URL.Path).Error("Unhandled server error")
	}

	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(status)
		return
	}
	_ = c.JSON(status, errorResponse{Error: message})
}

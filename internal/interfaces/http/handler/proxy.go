package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"story-studio/internal/config"
	"story-studio/internal/interfaces/http/dto"
	"story-studio/pkg/logger"
	"story-studio/pkg/metrics"
)

// ProxyHandler 本地开发代理，去掉前缀后转发到远端 API
type ProxyHandler struct {
	prefix string
	target *url.URL
	proxy  *httputil.ReverseProxy
}

// NewProxyHandler 创建开发代理
func NewProxyHandler(cfg config.ProxyConfig) (*ProxyHandler, error) {
	target, err := url.Parse(strings.TrimSpace(cfg.Target))
	if err != nil {
		return nil, fmt.Errorf("invalid proxy target: %w", err)
	}
	if (target.Scheme != "http" && target.Scheme != "https") || target.Host == "" {
		return nil, fmt.Errorf("invalid proxy target %q", cfg.Target)
	}

	h := &ProxyHandler{
		prefix: "/" + strings.Trim(cfg.Prefix, "/"),
		target: target,
	}
	h.proxy = &httputil.ReverseProxy{
		Rewrite:        h.rewrite,
		ModifyResponse: h.record,
		ErrorHandler:   h.fail,
	}
	return h, nil
}

// Prefix 代理挂载的路径前缀
func (h *ProxyHandler) Prefix() string {
	return h.prefix
}

// Forward 转发请求
// @Summary 开发代理
// @Tags Dev
// @Router /proxy/api/capitolai/{path} [get]
func (h *ProxyHandler) Forward(c *gin.Context) {
	h.proxy.ServeHTTP(c.Writer, c.Request)
}

// rewrite 去掉本地前缀并改写 Host 为目标地址
// 转义路径同样去掉前缀，保留 %2F 等编码段
func (h *ProxyHandler) rewrite(r *httputil.ProxyRequest) {
	r.Out.URL.Path = stripPrefix(r.In.URL.Path, h.prefix)
	r.Out.URL.RawPath = ""
	if raw := r.In.URL.RawPath; raw != "" && strings.HasPrefix(raw, h.prefix) {
		r.Out.URL.RawPath = stripPrefix(raw, h.prefix)
	}
	r.SetURL(h.target)
	r.SetXForwarded()
}

func stripPrefix(path, prefix string) string {
	path = strings.TrimPrefix(path, prefix)
	if path == "" {
		return "/"
	}
	return path
}

func (h *ProxyHandler) record(resp *http.Response) error {
	metrics.ProxyRequestsTotal.WithLabelValues(resp.Request.Method, strconv.Itoa(resp.StatusCode)).Inc()
	return nil
}

func (h *ProxyHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	metrics.ProxyRequestsTotal.WithLabelValues(r.Method, "error").Inc()
	logger.Warn(r.Context(), "proxy request failed", "target", h.target.Host, "path", r.URL.Path, "error", err.Error())

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusBadGateway)
	_ = json.NewEncoder(w).Encode(dto.ErrorResponse{
		Code:    http.StatusBadGateway,
		Message: "upstream unavailable",
	})
}

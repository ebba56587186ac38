package capitol

import (
	"errors"
	"fmt"
	"net/http"
)

// maxErrorBody 错误响应体最多保留的字节数
const maxErrorBody = 4 << 10

// APIError 外部服务返回的非 2xx 响应
type APIError struct {
	Operation  string
	StatusCode int
	Body       string
}

// Error 实现 error 接口
func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("capitol %s: status %d", e.Operation, e.StatusCode)
	}
	return fmt.Sprintf("capitol %s: status %d: %s", e.Operation, e.StatusCode, e.Body)
}

// IsUnauthorized 判断是否为鉴权失败
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden
}

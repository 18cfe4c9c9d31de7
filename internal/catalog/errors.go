package catalog

import (
	"errors"
	"fmt"
	"strings"
)

// HTTPStatusError 表示远端 API 返回了非 2xx 的 HTTP 状态码（TransportError）。
// 分页驱动遇到它会直接中止整次运行。
type HTTPStatusError struct {
	URL        string
	StatusCode int
	RetryAfter string
}

func (e *HTTPStatusError) Error() string {
	if e == nil {
		return "HTTP status error"
	}
	ra := strings.TrimSpace(e.RetryAfter)
	if ra == "" {
		return fmt.Sprintf("HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("HTTP %d retry-after=%s", e.StatusCode, ra)
}

// MalformedResponseError 表示状态码成功，但响应体缺少约定字段（或根本不是 JSON）。
// Field 是缺失字段的路径，例如 "data.Page.pageInfo"。
type MalformedResponseError struct {
	URL   string
	Field string
	Err   error
}

func (e *MalformedResponseError) Error() string {
	if e == nil {
		return "malformed response"
	}
	switch {
	case e.Field != "" && e.Err != nil:
		return fmt.Sprintf("响应缺少字段 %s：%v", e.Field, e.Err)
	case e.Field != "":
		return fmt.Sprintf("响应缺少字段 %s", e.Field)
	case e.Err != nil:
		return fmt.Sprintf("响应格式错误：%v", e.Err)
	default:
		return "响应格式错误"
	}
}

func (e *MalformedResponseError) Unwrap() error { return e.Err }

// IsHTTPStatus 判断 err 链上是否有 *HTTPStatusError，并返回它。
func IsHTTPStatus(err error) (*HTTPStatusError, bool) {
	var e *HTTPStatusError
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsMalformed 判断 err 链上是否有 *MalformedResponseError。
func IsMalformed(err error) bool {
	var e *MalformedResponseError
	return errors.As(err, &e)
}

package catalog

import (
	"context"

	"github.com/John-Robertt/anigallery/internal/domain"
)

// Fetcher 把“远端目录”限制在 catalog 包内部；分页驱动只依赖这个接口。
//
// 约束：
// - FetchPage 不做缓存、不做重试、不做限速（节流由分页驱动统一实现）
// - 非 2xx 必须返回 *HTTPStatusError；2xx 但缺字段必须返回 *MalformedResponseError
// - query 由调用方显式传入（不读取任何包级全局状态）
type Fetcher interface {
	FetchPage(ctx context.Context, page int, query string) (domain.Page, error)
}

// FetcherFunc 让普通函数满足 Fetcher（测试与组合时使用）。
type FetcherFunc func(ctx context.Context, page int, query string) (domain.Page, error)

func (f FetcherFunc) FetchPage(ctx context.Context, page int, query string) (domain.Page, error) {
	return f(ctx, page, query)
}

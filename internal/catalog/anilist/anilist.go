package anilist

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/John-Robertt/anigallery/internal/catalog"
	"github.com/John-Robertt/anigallery/internal/domain"
)

const (
	// DefaultEndpoint 是 AniList 的 GraphQL 入口。
	DefaultEndpoint = "https://graphql.anilist.co"
	// DefaultPerPage 是 AniList 单页允许的最大条数。
	DefaultPerPage = 50
	// SortPopularityDesc 是固定的排序方式。
	SortPopularityDesc = "POPULARITY_DESC"
)

// 响应体上限：单页 50 条记录远小于该值，超出即视为异常响应。
const maxBodyBytes = 16 << 20

var _ catalog.Fetcher = (*Client)(nil)

// Client 实现 AniList GraphQL 的分页抓取。
//
// 约束：
// - 每次调用只发一个 POST，不重试（失败由上层决定是否中止）
// - 变量固定为 {page, perPage, sort:["POPULARITY_DESC"]}
type Client struct {
	// Endpoint 为空时使用 DefaultEndpoint。
	Endpoint string
	// PerPage 为 0 时使用 DefaultPerPage。
	PerPage int
	HTTP    *http.Client
}

// New 构造一个 Client；c 通常来自 httpx.NewAPIClient。
func New(endpoint string, perPage int, c *http.Client) *Client {
	return &Client{Endpoint: endpoint, PerPage: perPage, HTTP: c}
}

func (c *Client) endpoint() string {
	u := strings.TrimSpace(c.Endpoint)
	if u == "" {
		return DefaultEndpoint
	}
	return u
}

func (c *Client) perPage() int {
	if c.PerPage <= 0 {
		return DefaultPerPage
	}
	return c.PerPage
}

type variables struct {
	Page    int      `json:"page"`
	PerPage int      `json:"perPage"`
	Sort    []string `json:"sort"`
}

type request struct {
	Query     string    `json:"query"`
	Variables variables `json:"variables"`
}

type gqlError struct {
	Message string `json:"message"`
	Status  int    `json:"status"`
}

type response struct {
	Data *struct {
		Page *struct {
			PageInfo *domain.PageInfo       `json:"pageInfo"`
			Media    *[]domain.CatalogRecord `json:"media"`
		} `json:"Page"`
	} `json:"data"`
	Errors []gqlError `json:"errors"`
}

// FetchPage 请求第 page 页。
func (c *Client) FetchPage(ctx context.Context, page int, query string) (domain.Page, error) {
	if c.HTTP == nil {
		return domain.Page{}, errors.New("http client 不能为空")
	}
	if page < 1 {
		return domain.Page{}, fmt.Errorf("page 必须 >= 1，实际 %d", page)
	}
	if strings.TrimSpace(query) == "" {
		return domain.Page{}, errors.New("query 不能为空")
	}

	u := c.endpoint()
	body, err := json.Marshal(request{
		Query: query,
		Variables: variables{
			Page:    page,
			PerPage: c.perPage(),
			Sort:    []string{SortPopularityDesc},
		},
	})
	if err != nil {
		return domain.Page{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return domain.Page{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return domain.Page{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// 丢弃剩余 body，保证连接可复用。
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return domain.Page{}, &catalog.HTTPStatusError{
			URL:        u,
			StatusCode: resp.StatusCode,
			RetryAfter: resp.Header.Get("Retry-After"),
		}
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return domain.Page{}, err
	}
	return decodePage(u, raw)
}

// decodePage 把响应体解析为 Page；任何缺失字段都返回 *MalformedResponseError（带字段路径）。
func decodePage(u string, raw []byte) (domain.Page, error) {
	var r response
	if err := json.Unmarshal(raw, &r); err != nil {
		return domain.Page{}, &catalog.MalformedResponseError{URL: u, Err: err}
	}

	if r.Data == nil || r.Data.Page == nil {
		field := "data"
		if r.Data != nil {
			field = "data.Page"
		}
		return domain.Page{}, &catalog.MalformedResponseError{URL: u, Field: field, Err: gqlErrors(r.Errors)}
	}
	p := r.Data.Page
	if p.PageInfo == nil {
		return domain.Page{}, &catalog.MalformedResponseError{URL: u, Field: "data.Page.pageInfo", Err: gqlErrors(r.Errors)}
	}
	if p.Media == nil {
		return domain.Page{}, &catalog.MalformedResponseError{URL: u, Field: "data.Page.media", Err: gqlErrors(r.Errors)}
	}

	return domain.Page{Info: *p.PageInfo, Media: *p.Media}, nil
}

func gqlErrors(errs []gqlError) error {
	if len(errs) == 0 {
		return nil
	}
	msgs := make([]string, 0, len(errs))
	for _, e := range errs {
		m := strings.TrimSpace(e.Message)
		if m == "" {
			continue
		}
		if e.Status != 0 {
			m = fmt.Sprintf("%s (status=%d)", m, e.Status)
		}
		msgs = append(msgs, m)
	}
	if len(msgs) == 0 {
		return nil
	}
	return fmt.Errorf("graphql: %s", strings.Join(msgs, "; "))
}

package run

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/John-Robertt/anigallery/internal/catalog"
	"github.com/John-Robertt/anigallery/internal/categorize"
	"github.com/John-Robertt/anigallery/internal/domain"
	"github.com/John-Robertt/anigallery/internal/sink"
)

// DefaultDelay 是相邻两次请求之间的固定间隔（AniList 限流约 90 次/分钟）。
const DefaultDelay = time.Second

// Options 是一次 fetch 的全部输入；查询与 endpoint 都由调用方显式传入。
type Options struct {
	RunID    string
	Endpoint string

	// Query 是主流程的查询；TrailerQuery 是预告片补充流程的查询。
	Query        string
	TrailerQuery string

	// MaxPages>0 时截断主流程页数；0 表示抓取全部页。
	MaxPages int
	// TrailerPages 是预告片补充流程的页数；0 表示跳过。
	TrailerPages int

	// Delay 是相邻两次请求之间的等待；0 表示不等待。
	Delay time.Duration
	// Sleep 为空时使用可被 ctx 取消的 time.Timer。
	Sleep func(ctx context.Context, d time.Duration) error

	Logger *slog.Logger
}

type driver struct {
	opts    Options
	f       catalog.Fetcher
	obs     Observer
	log     *slog.Logger
	fetched int

	done  int
	units int
	last  int
}

// Execute 执行一次完整的抓取 + 分类 + 持久化，并返回对外稳定的 RunReport。
//
// 失败语义：任何一页失败都会中止整个运行，且不写出任何 artifact。
func Execute(ctx context.Context, opts Options, f catalog.Fetcher, s sink.Sink, obs Observer) domain.RunReport {
	rr := domain.RunReport{
		RunID:     opts.RunID,
		Endpoint:  opts.Endpoint,
		StartedAt: time.Now().UTC(),
	}
	if s != nil {
		rr.Sink = s.String()
	}

	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	log = log.With("run_id", opts.RunID)

	if obs == nil {
		obs = nopObserver{}
	}
	obs.OnStart(opts)

	fail := func(code, msg string) domain.RunReport {
		log.Warn("run failed", "error_code", code, "error", msg)
		rr.Status = domain.StatusFailed
		rr.ErrorCode = code
		rr.ErrorMsg = msg
		rr.FinishedAt = time.Now().UTC()
		rr.Finalize()
		return rr
	}

	if f == nil || s == nil {
		return fail(domain.ErrCodeConfigInvalid, "fetcher 与 sink 不能为空")
	}
	if strings.TrimSpace(opts.Query) == "" {
		return fail(domain.ErrCodeConfigInvalid, "query 不能为空")
	}
	if opts.TrailerPages > 0 && strings.TrimSpace(opts.TrailerQuery) == "" {
		return fail(domain.ErrCodeConfigInvalid, "trailer_pages>0 时 trailer query 不能为空")
	}
	if opts.MaxPages < 0 || opts.TrailerPages < 0 || opts.Delay < 0 {
		return fail(domain.ErrCodeConfigInvalid, "max_pages/trailer_pages/delay 不能为负数")
	}

	d := &driver{opts: opts, f: f, obs: obs, log: log}
	x := categorize.New()

	d.progress("开始抓取")

	first, firstDur, err := d.fetch(ctx, opts.Query, 1)
	if err != nil {
		return fail(classifyFetchError(ctx, err))
	}

	total := first.Info.LastPage
	if total < 1 {
		total = 1
	}
	if opts.MaxPages > 0 && total > opts.MaxPages {
		total = opts.MaxPages
	}
	rr.TotalPages = total
	// +1 是持久化阶段：全部写完才到 100。
	d.units = total + opts.TrailerPages + 1

	x.Accumulate(first.Media)
	rr.PagesFetched = 1
	rr.RecordsSeen += len(first.Media)
	d.obs.OnPage(PageMedia, 1, total, len(first.Media), firstDur)
	d.step(fmt.Sprintf("第 1/%d 页", total))

	for page := 2; page <= total; page++ {
		p, dur, err := d.fetch(ctx, opts.Query, page)
		if err != nil {
			return fail(classifyFetchError(ctx, err))
		}
		d.obs.OnPage(PageMedia, page, total, len(p.Media), dur)
		x.Accumulate(p.Media)
		rr.PagesFetched++
		rr.RecordsSeen += len(p.Media)
		d.step(fmt.Sprintf("第 %d/%d 页", page, total))
	}

	for page := 1; page <= opts.TrailerPages; page++ {
		p, dur, err := d.fetch(ctx, opts.TrailerQuery, page)
		if err != nil {
			return fail(classifyFetchError(ctx, err))
		}
		d.obs.OnPage(PageTrailers, page, opts.TrailerPages, len(p.Media), dur)
		x.AddTrailers(p.Media)
		rr.TrailerPagesFetched++
		d.step(fmt.Sprintf("预告片第 %d/%d 页", page, opts.TrailerPages))
		if !p.Info.HasNextPage {
			break
		}
	}

	log.Debug("accumulated", "records", x.Records(), "trailers", len(x.Trailers))

	for _, a := range x.Artifacts() {
		loc, err := sink.Save(ctx, s, a.Name, a.Value)
		if err != nil {
			if ctx.Err() != nil {
				return fail(domain.ErrCodeCanceled, "已取消")
			}
			return fail(domain.ErrCodeIOFailed, err.Error())
		}
		rr.Artifacts = append(rr.Artifacts, domain.ArtifactResult{
			Name:     a.Name,
			Location: loc,
			Keys:     a.Keys,
			Entries:  a.Count,
		})
		d.obs.OnSaved(a.Name, loc)
	}

	d.done = d.units
	d.progress("完成")

	rr.Status = domain.StatusOK
	rr.FinishedAt = time.Now().UTC()
	rr.Finalize()
	return rr
}

// fetch 负责请求间隔：第一次请求之前不等待，之后每次请求之前等待 Delay。
func (d *driver) fetch(ctx context.Context, query string, page int) (domain.Page, time.Duration, error) {
	if d.fetched > 0 && d.opts.Delay > 0 {
		sleep := d.opts.Sleep
		if sleep == nil {
			sleep = sleepCtx
		}
		if err := sleep(ctx, d.opts.Delay); err != nil {
			return domain.Page{}, 0, err
		}
	}
	if err := ctx.Err(); err != nil {
		return domain.Page{}, 0, err
	}

	started := time.Now()
	p, err := d.f.FetchPage(ctx, page, query)
	d.fetched++
	dur := time.Since(started)
	if err != nil {
		d.log.Debug("page failed", "page", page, "error", err)
		return domain.Page{}, dur, err
	}
	d.log.Debug("page fetched", "page", page, "records", len(p.Media), "dur", dur)
	return p, dur, nil
}

func (d *driver) step(msg string) {
	d.done++
	d.progress(msg)
}

func (d *driver) progress(msg string) {
	pct := 0
	if d.units > 0 {
		pct = d.done * 100 / d.units
	}
	if pct > 100 {
		pct = 100
	}
	if pct < d.last {
		pct = d.last
	}
	d.last = pct
	d.obs.OnProgress(pct, msg)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func classifyFetchError(ctx context.Context, err error) (code, msg string) {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) {
		return domain.ErrCodeCanceled, "已取消"
	}
	if catalog.IsMalformed(err) {
		return domain.ErrCodeMalformedResponse, fmt.Sprintf("目录接口返回了无法识别的数据：%v", err)
	}
	return domain.ErrCodeFetchFailed, humanizeFetchError(err)
}

func humanizeFetchError(err error) string {
	if err == nil {
		return "抓取失败"
	}

	// HTTP 非 2xx：尽量给出可操作提示（限流是最常见问题）。
	if hs, ok := catalog.IsHTTPStatus(err); ok {
		switch {
		case hs.StatusCode == 429:
			if ra := strings.TrimSpace(hs.RetryAfter); ra != "" {
				return fmt.Sprintf("目录接口返回 HTTP 429（触发限流，retry-after=%ss）。建议调大 delay 后重试。", ra)
			}
			return "目录接口返回 HTTP 429（触发限流）。建议调大 delay 后重试。"
		case hs.StatusCode == 403:
			return "目录接口返回 HTTP 403（请求被拒绝）。建议检查 endpoint 或配置 proxy.url。"
		case hs.StatusCode == 404:
			return "目录接口返回 HTTP 404。请检查 endpoint 是否正确。"
		case hs.StatusCode >= 500:
			return fmt.Sprintf("目录接口返回 HTTP %d（服务端错误）。建议稍后重试。", hs.StatusCode)
		default:
			return fmt.Sprintf("目录接口返回 HTTP %d。", hs.StatusCode)
		}
	}

	low := strings.ToLower(err.Error())
	if errors.Is(err, context.DeadlineExceeded) || strings.Contains(low, "timeout") {
		return "目录接口请求超时。建议检查网络/代理，或调大 timeout 后重试。"
	}
	if strings.Contains(low, "tls") || strings.Contains(low, "handshake") || strings.Contains(low, "ssl") {
		return "连接目录接口失败（TLS/SSL）。建议配置 proxy.url 或稍后重试。"
	}

	return fmt.Sprintf("抓取失败：%v", err)
}

type nopObserver struct{}

func (nopObserver) OnStart(Options) {}

func (nopObserver) OnPage(string, int, int, int, time.Duration) {}

func (nopObserver) OnProgress(int, string) {}

func (nopObserver) OnSaved(string, string) {}

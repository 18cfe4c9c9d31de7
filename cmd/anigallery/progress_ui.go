package main

import (
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/John-Robertt/anigallery/internal/app/run"
	"github.com/John-Robertt/anigallery/internal/config"
)

var _ run.Observer = (*progressUI)(nil)

// progressUI 是交互终端的进度输出。
//
// 设计目标：
// - 所有过程信息写到 stderr（或 fallback 到 stdout），不污染 stdout 的 JSON 输出契约
// - 事件驱动：run 层只发事件，CLI 决定如何展示
// - keepalive：长时间没有新页面时也会定期输出一行，降低等待焦虑
type progressUI struct {
	w   io.Writer
	eff config.EffectiveConfig

	mu          sync.Mutex
	startedAt   time.Time
	lastPrinted time.Time

	percent int
	msg     string
	pages   int
	records int

	keepaliveThreshold time.Duration
	tickerInterval     time.Duration

	stopCh        chan struct{}
	tickerStarted bool
}

func newProgressUI(w io.Writer, eff config.EffectiveConfig) *progressUI {
	return &progressUI{
		w:                  w,
		eff:                eff,
		keepaliveThreshold: 6 * time.Second,
		tickerInterval:     2 * time.Second,
	}
}

func (p *progressUI) OnStart(opts run.Options) {
	now := time.Now()

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.startedAt.IsZero() {
		p.startedAt = now
	}

	fmt.Fprintf(p.w, "[%s] anigallery fetch (run %s)\n", now.Format("15:04:05"), shortID(opts.RunID))
	fmt.Fprintln(p.w, "配置（生效）:")
	fmt.Fprintf(p.w, "  path: %s\n", p.eff.Path)
	if p.eff.ConfigFile != "" {
		fmt.Fprintf(p.w, "  config: %s\n", p.eff.ConfigFile)
	}
	fmt.Fprintf(p.w, "  endpoint: %s\n", truncate(opts.Endpoint, 120))
	fmt.Fprintf(p.w, "  max_pages: %s\n", pagesLabel(opts.MaxPages, "全部"))
	fmt.Fprintf(p.w, "  trailer_pages: %s\n", pagesLabel(opts.TrailerPages, "跳过"))
	fmt.Fprintf(p.w, "  delay: %s\n", opts.Delay)
	fmt.Fprintf(p.w, "  proxy: %s\n", formatProxy(p.eff.ProxyURL))
	fmt.Fprintf(p.w, "  description: %s\n", onOff(p.eff.IncludeDescription))
	fmt.Fprintln(p.w, "输出:")
	fmt.Fprintf(p.w, "  sink: %s\n", sinkLabel(p.eff))
	fmt.Fprintln(p.w)

	p.lastPrinted = time.Now()
	if !p.tickerStarted {
		p.startTickerLocked()
	}
}

func (p *progressUI) OnPage(kind string, page, total, records int, dur time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.pages++
	p.records += records

	label := "目录"
	if kind == run.PageTrailers {
		label = "预告片"
	}
	fmt.Fprintf(p.w, "[%d/%d] %s records=%d (%s)\n", page, total, label, records, formatShortDuration(dur))
	p.lastPrinted = time.Now()
}

func (p *progressUI) OnProgress(percent int, msg string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.percent = percent
	p.msg = msg
	// 逐页已有输出，这里只在开始与结束时打印。
	if percent == 0 || percent == 100 {
		fmt.Fprintf(p.w, "进度: %3d%% %s\n", percent, msg)
		p.lastPrinted = time.Now()
	}
	if percent == 100 {
		p.stopTickerLocked()
	}
}

func (p *progressUI) OnSaved(name, location string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	fmt.Fprintf(p.w, "写入: %s -> %s\n", name, location)
	p.lastPrinted = time.Now()
}

// Close 停止 keepalive；失败路径上不会收到 100%，所以 CLI 结束前必须调用。
func (p *progressUI) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopTickerLocked()
}

func (p *progressUI) stopTickerLocked() {
	if p.tickerStarted {
		close(p.stopCh)
		p.tickerStarted = false
	}
}

func (p *progressUI) startTickerLocked() {
	p.stopCh = make(chan struct{})
	p.tickerStarted = true

	interval := p.tickerInterval
	if interval <= 0 {
		interval = 2 * time.Second
	}
	threshold := p.keepaliveThreshold
	if threshold <= 0 {
		threshold = 6 * time.Second
	}

	stopCh := p.stopCh
	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()

		for {
			select {
			case <-t.C:
				p.mu.Lock()
				if time.Since(p.lastPrinted) > threshold {
					fmt.Fprintf(p.w, "进度: %3d%% %s pages=%d records=%d elapsed=%s\n",
						p.percent, p.msg, p.pages, p.records, formatElapsed(time.Since(p.startedAt)),
					)
					p.lastPrinted = time.Now()
				}
				p.mu.Unlock()
			case <-stopCh:
				return
			}
		}
	}()
}

func sinkLabel(eff config.EffectiveConfig) string {
	switch eff.Sink {
	case config.SinkDir:
		return "dir " + eff.OutputDir
	case config.SinkGCS:
		if eff.GCSPrefix == "" {
			return "gcs gs://" + eff.GCSBucket
		}
		return "gcs gs://" + eff.GCSBucket + "/" + eff.GCSPrefix
	case config.SinkRedis:
		return fmt.Sprintf("redis %s db=%d prefix=%s", eff.RedisAddr, eff.RedisDB, eff.RedisPrefix)
	default:
		return eff.Sink
	}
}

func pagesLabel(n int, zero string) string {
	if n == 0 {
		return zero
	}
	return fmt.Sprintf("%d", n)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}

func formatProxy(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "off"
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "on (" + truncate(raw, 120) + ")"
	}
	auth := "off"
	if u.User != nil {
		auth = "on"
	}
	return fmt.Sprintf("on (%s://%s, auth=%s)", u.Scheme, u.Host, auth)
}

func truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	if max <= 0 || len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}

func formatShortDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}

func formatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	sec := int(d.Seconds())
	h := sec / 3600
	m := (sec % 3600) / 60
	s := sec % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

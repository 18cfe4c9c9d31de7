package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/John-Robertt/anigallery/internal/app/run"
	"github.com/John-Robertt/anigallery/internal/catalog/anilist"
	"github.com/John-Robertt/anigallery/internal/config"
	"github.com/John-Robertt/anigallery/internal/domain"
	"github.com/John-Robertt/anigallery/internal/infra/httpx"
)

func main() {
	args := os.Args[1:]
	if len(args) == 0 || isHelp(args[0]) {
		printUsage(os.Stdout)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var code int
	switch args[0] {
	case "fetch":
		code = fetchCmd(ctx, args[1:], os.Stdout, os.Stderr)
	case "stats":
		code = statsCmd(args[1:], os.Stdout, os.Stderr)
	case "categories":
		code = categoriesCmd(args[1:], os.Stdout, os.Stderr)
	case "trailers":
		code = trailersCmd(args[1:], os.Stdout, os.Stderr)
	case "check-videos":
		code = checkVideosCmd(args[1:], os.Stdout, os.Stderr)
	default:
		fmt.Fprintf(os.Stderr, "未知命令：%q\n\n", args[0])
		printUsage(os.Stderr)
		code = 2
	}
	if code != 0 {
		stop()
		os.Exit(code)
	}
}

func fetchCmd(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	for _, a := range args {
		if isHelp(a) {
			printFetchUsage(stdout)
			return 0
		}
	}

	fa, err := parseFetchArgs(args)
	if err != nil {
		fmt.Fprintf(stderr, "参数错误：%v\n\n", err)
		printFetchUsage(stderr)
		return 2
	}

	cwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(stderr, "读取当前目录失败：%v\n", err)
		return 1
	}

	runID := uuid.NewString()
	eff, err := config.LoadEffective(cwd, fa.CLIArgs)
	if err != nil {
		emitReport(stdout, stderr, reportForConfigError(runID, err))
		return 1
	}

	logger := newLogger(stderr, eff.LogLevel)
	logger.Debug("config loaded", "run_id", runID, "config_file", eff.ConfigFile, "sink", eff.Sink, "endpoint", eff.Endpoint)

	client, err := httpx.NewAPIClient(eff.ProxyURL, eff.Timeout)
	if err != nil {
		emitReport(stdout, stderr, reportForConfigError(runID, &config.Error{Code: config.ErrCodeInvalid, Path: eff.ConfigFile, Err: err}))
		return 1
	}

	s, closeSink, err := openSink(ctx, eff)
	if err != nil {
		emitReport(stdout, stderr, reportForConfigError(runID, &config.Error{Code: config.ErrCodeInvalid, Path: eff.ConfigFile, Err: err}))
		return 1
	}
	defer closeSink()

	query := anilist.MediaQuery
	if eff.IncludeDescription {
		query = anilist.MediaQueryWithDescription
	}

	progressW, interactive := pickProgressWriter(stdout, stderr)
	var obs run.Observer
	if interactive {
		ui := newProgressUI(progressW, eff)
		defer ui.Close()
		obs = ui
	}

	rr := run.Execute(ctx, run.Options{
		RunID:        runID,
		Endpoint:     eff.Endpoint,
		Query:        query,
		TrailerQuery: anilist.TrailerQuery,
		MaxPages:     eff.MaxPages,
		TrailerPages: eff.TrailerPages,
		Delay:        eff.Delay,
		Logger:       logger,
	}, anilist.New(eff.Endpoint, eff.PerPage, client), s, obs)

	emitReport(stdout, stderr, rr)
	if rr.Failed() {
		return 1
	}
	return 0
}

// newLogger 返回写到 w 的 JSON 结构化日志（stdout 留给报告）。
func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

func isHelp(s string) bool {
	return s == "-h" || s == "--help" || s == "help"
}

func printUsage(w io.Writer) {
	fmt.Fprint(w, `用法：
  anigallery fetch [path] [--config FILE] [--sink dir|memory|gcs|redis] [--max-pages N] [--trailer-pages N] [--delay DURATION]
  anigallery stats [dir]
  anigallery categories [dir] [--kind genres|formats|years|status [--key V]]
  anigallery trailers [dir] [--random N]
  anigallery check-videos [root] [--apply[=true|false]]

命令：
  fetch         抓取 AniList 目录并写出分类 artifact
  stats         统计已写出的 artifact
  categories    查看分类与分类下的条目
  trailers      列出可播放的 YouTube 预告片
  check-videos  校验本地视频清单（默认 dry-run）

使用 "anigallery <命令> --help" 查看详细说明。
`)
}

func printFetchUsage(w io.Writer) {
	fmt.Fprint(w, `用法：
  anigallery fetch [path] [--config FILE] [--sink dir|memory|gcs|redis] [--max-pages N] [--trailer-pages N] [--delay DURATION]

参数：
  path             工作目录（读取 anigallery.toml/anigallery.json 与 .env；默认当前目录）
  --config         只读取指定的配置文件（必须存在）
  --sink           artifact 写到哪里（默认 dir，即 <path>/public/data）
  --max-pages      主流程最多抓取的页数（0 表示全部）
  --trailer-pages  预告片补充流程的页数（0 表示跳过；默认 10）
  --delay          相邻请求的间隔，Go duration 或毫秒数（默认 1s）
  -h, --help       显示帮助
`)
}

// emitReport 遵循 stdout 契约：非 TTY 时只输出一个 RunReport JSON，摘要走 stderr。
func emitReport(stdout, stderr io.Writer, rr domain.RunReport) {
	if isTTY(stdout) {
		printSummary(stdout, rr)
		if rr.Failed() {
			fmt.Fprintf(stderr, "%s: %s\n", rr.ErrorCode, rr.ErrorMsg)
		}
		return
	}

	enc := json.NewEncoder(stdout)
	_ = enc.Encode(rr)
	printSummary(stderr, rr)
}

func printSummary(w io.Writer, rr domain.RunReport) {
	fmt.Fprintf(w, "完成：status=%s pages=%d/%d trailer_pages=%d records=%d artifacts=%d\n",
		rr.Status, rr.PagesFetched, rr.TotalPages, rr.TrailerPagesFetched, rr.RecordsSeen, rr.Summary.Artifacts,
	)
}

func reportForConfigError(runID string, err error) domain.RunReport {
	now := time.Now().UTC()
	code := config.Code(err)
	if code == "" {
		code = domain.ErrCodeConfigInvalid
	}
	rr := domain.RunReport{
		RunID:      runID,
		StartedAt:  now,
		FinishedAt: now,
		Status:     domain.StatusFailed,
		ErrorCode:  code,
		ErrorMsg:   err.Error(),
	}
	rr.Finalize()
	return rr
}

// emitJSON 是只读子命令的输出：非 TTY 时一行 JSON，TTY 时缩进便于阅读。
func emitJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	if isTTY(w) {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}

func isTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

func pickProgressWriter(stdout, stderr io.Writer) (io.Writer, bool) {
	// 进度输出只在交互终端启用；默认走 stderr（不污染 stdout JSON）。
	if isTTY(stderr) {
		return stderr, true
	}
	// 仅重定向 stderr 时 stdout 仍是 TTY：退化输出到 stdout。
	if isTTY(stdout) {
		return stdout, true
	}
	return nil, false
}

func absFromCwd(p string) (string, error) {
	if filepath.IsAbs(p) {
		return filepath.Clean(p), nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(cwd, p), nil
}

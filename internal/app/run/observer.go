package run

import "time"

// 分页事件的 kind。
const (
	PageMedia    = "media"
	PageTrailers = "trailers"
)

// Observer 用于把“运行进度/分页/产物写入”从核心执行流程中解耦出来。
//
// 约束：
// - run 包只负责发事件，不做任何输出（避免污染 stdout 的 JSON 契约）。
// - 事件总是来自执行 Execute 的那个 goroutine，按发生顺序到达。
type Observer interface {
	// OnStart 在 Execute 开始时调用（应尽量早，保证用户 1 秒内看到输出）。
	OnStart(opts Options)
	// OnPage 在每一页抓取成功后调用；total 为该流程的计划页数。
	OnPage(kind string, page, total, records int, dur time.Duration)
	// OnProgress 报告整体进度（0..100，单调不减）。
	OnProgress(percent int, msg string)
	// OnSaved 在一个 artifact 写入成功后调用。
	OnSaved(name, location string)
}

package domain

import (
	"encoding/json"
	"sort"
	"time"
)

const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

const (
	ErrCodeFetchFailed       = "fetch_failed"
	ErrCodeMalformedResponse = "malformed_response"
	ErrCodeIOFailed          = "io_failed"
	ErrCodeCanceled          = "canceled"
	ErrCodeConfigNotFound    = "config_not_found"
	ErrCodeConfigInvalid     = "config_invalid"
)

// Artifact 名称（也是输出文件名去掉 .json 后缀的部分）。
const (
	ArtifactGenres   = "genres"
	ArtifactFormats  = "formats"
	ArtifactYears    = "years"
	ArtifactStatus   = "status"
	ArtifactTrailers = "trailers"
)

// RunReport 是一次 fetch 的对外稳定输出（stdout JSON）。
type RunReport struct {
	RunID    string `json:"run_id"`
	Endpoint string `json:"endpoint"`
	Sink     string `json:"sink"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	Status    string `json:"status"`
	ErrorCode string `json:"error_code"`
	ErrorMsg  string `json:"error_msg"`

	TotalPages          int `json:"total_pages"`
	PagesFetched        int `json:"pages_fetched"`
	TrailerPagesFetched int `json:"trailer_pages_fetched"`
	RecordsSeen         int `json:"records_seen"`

	Summary   ReportSummary    `json:"summary"`
	Artifacts []ArtifactResult `json:"artifacts"`
}

type ReportSummary struct {
	Artifacts int `json:"artifacts"`
	Keys      int `json:"keys"`
	Entries   int `json:"entries"`
}

// ArtifactResult 描述一个已写出的 artifact。
// 对 trailers（数组）而言 Keys 恒为 0，Entries 为数组长度。
type ArtifactResult struct {
	Name     string `json:"name"`
	Location string `json:"location"`
	Keys     int    `json:"keys"`
	Entries  int    `json:"entries"`
}

// Finalize 做三件事：
// 1) 时间统一为 UTC（确保 JSON 为 RFC3339 且后缀 Z）
// 2) artifacts 按 name 字典序稳定排序
// 3) summary 由 artifacts 计算得出；Status 为空时按 ErrorCode 推断
func (r *RunReport) Finalize() {
	r.StartedAt = r.StartedAt.UTC()
	r.FinishedAt = r.FinishedAt.UTC()

	if r.Artifacts == nil {
		r.Artifacts = []ArtifactResult{}
	}
	sort.SliceStable(r.Artifacts, func(i, j int) bool {
		return r.Artifacts[i].Name < r.Artifacts[j].Name
	})

	var s ReportSummary
	for _, a := range r.Artifacts {
		s.Artifacts++
		s.Keys += a.Keys
		s.Entries += a.Entries
	}
	r.Summary = s

	if r.Status == "" {
		if r.ErrorCode != "" {
			r.Status = StatusFailed
		} else {
			r.Status = StatusOK
		}
	}
}

// Failed 报告本次运行是否失败。
func (r RunReport) Failed() bool { return r.Status == StatusFailed }

// MarshalJSON 仅用于集中约束输出的稳定性（避免未来不小心引入非确定字段）。
func (r RunReport) MarshalJSON() ([]byte, error) {
	type Alias RunReport
	return json.Marshal(Alias(r))
}

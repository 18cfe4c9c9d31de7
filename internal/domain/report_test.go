package domain

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"
)

func TestRunReport_Finalize_SortAndSummaryAndUTC(t *testing.T) {
	r := RunReport{
		RunID:      "r1",
		StartedAt:  time.Date(2026, 2, 9, 10, 0, 0, 0, time.FixedZone("X", 8*3600)),
		FinishedAt: time.Date(2026, 2, 9, 10, 0, 1, 0, time.FixedZone("X", 8*3600)),
		Artifacts: []ArtifactResult{
			{Name: ArtifactYears, Keys: 2, Entries: 3},
			{Name: ArtifactTrailers, Entries: 4},
			{Name: ArtifactGenres, Keys: 5, Entries: 9},
		},
	}

	r.Finalize()

	got := []string{r.Artifacts[0].Name, r.Artifacts[1].Name, r.Artifacts[2].Name}
	want := []string{ArtifactGenres, ArtifactTrailers, ArtifactYears}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("artifacts 排序不符合契约：%v", got)
		}
	}
	if r.Summary.Artifacts != 3 || r.Summary.Keys != 7 || r.Summary.Entries != 16 {
		t.Fatalf("summary 统计不正确：%+v", r.Summary)
	}
	if r.Status != StatusOK {
		t.Fatalf("无 error_code 时应推断为 ok，实际 %q", r.Status)
	}

	b, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("json.Marshal 失败：%v", err)
	}
	if !bytes.Contains(b, []byte("\"started_at\":\"2026-02-09T02:00:00Z\"")) {
		t.Fatalf("started_at 不是 UTC RFC3339：%s", string(b))
	}
}

func TestRunReport_Finalize_FailedAndEmptyArtifacts(t *testing.T) {
	r := RunReport{ErrorCode: ErrCodeFetchFailed, ErrorMsg: "HTTP 500"}
	r.Finalize()

	if !r.Failed() {
		t.Fatalf("有 error_code 时应推断为 failed，实际 %q", r.Status)
	}
	b, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("json.Marshal 失败：%v", err)
	}
	// 空 artifacts 必须输出 []，而不是 null。
	if !bytes.Contains(b, []byte("\"artifacts\":[]")) {
		t.Fatalf("空 artifacts 应序列化为 []：%s", string(b))
	}
}

func TestYouTubeTrailerID(t *testing.T) {
	s := func(v string) *string { return &v }

	cases := []struct {
		name string
		in   *Trailer
		ok   bool
	}{
		{"nil", nil, false},
		{"empty id", &Trailer{ID: s(""), Site: s("youtube")}, false},
		{"nil site", &Trailer{ID: s("x")}, false},
		{"dailymotion", &Trailer{ID: s("x"), Site: s("dailymotion")}, false},
		{"case sensitive", &Trailer{ID: s("x"), Site: s("YouTube")}, false},
		{"ok", &Trailer{ID: s("x"), Site: s("youtube")}, true},
	}
	for _, c := range cases {
		_, ok := YouTubeTrailerID(c.in)
		if ok != c.ok {
			t.Fatalf("%s：期望 ok=%v，实际 %v", c.name, c.ok, ok)
		}
	}
}

package run

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/John-Robertt/anigallery/internal/catalog"
	"github.com/John-Robertt/anigallery/internal/domain"
	"github.com/John-Robertt/anigallery/internal/sink"
)

func ptr[T any](v T) *T { return &v }

type call struct {
	page  int
	query string
}

// fakeCatalog 按 query 返回预置的页；lastPage 决定主流程总页数。
type fakeCatalog struct {
	lastPage     int
	trailerLast  int
	perPage      func(query string, page int) []domain.CatalogRecord
	failOn       map[int]error
	calls        []call
	cancelOnPage int
	cancel       context.CancelFunc
}

func (f *fakeCatalog) FetchPage(ctx context.Context, page int, query string) (domain.Page, error) {
	f.calls = append(f.calls, call{page: page, query: query})
	if f.cancel != nil && page == f.cancelOnPage && query == "media" {
		f.cancel()
		return domain.Page{}, ctx.Err()
	}
	if err, ok := f.failOn[page]; ok && query == "media" {
		return domain.Page{}, err
	}
	last := f.lastPage
	if query == "trailer" {
		last = f.trailerLast
	}
	var media []domain.CatalogRecord
	if f.perPage != nil {
		media = f.perPage(query, page)
	}
	return domain.Page{
		Info:  domain.PageInfo{CurrentPage: page, LastPage: last, HasNextPage: page < last},
		Media: media,
	}, nil
}

type recordObserver struct {
	startCalls int
	percents   []int
	pages      []string
	saved      []string
}

func (o *recordObserver) OnStart(Options) { o.startCalls++ }

func (o *recordObserver) OnPage(kind string, page, total, records int, dur time.Duration) {
	o.pages = append(o.pages, fmt.Sprintf("%s:%d/%d", kind, page, total))
}

func (o *recordObserver) OnProgress(percent int, msg string) {
	o.percents = append(o.percents, percent)
}

func (o *recordObserver) OnSaved(name, location string) { o.saved = append(o.saved, name) }

func quietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func baseOptions() Options {
	return Options{
		RunID:        "run-1",
		Endpoint:     "https://graphql.test",
		Query:        "media",
		TrailerQuery: "trailer",
		Delay:        time.Second,
		Sleep:        func(context.Context, time.Duration) error { return nil },
		Logger:       quietLogger(),
	}
}

func TestExecute_FivePagesSequentialAndMonotoneProgress(t *testing.T) {
	f := &fakeCatalog{
		lastPage: 5,
		perPage: func(q string, page int) []domain.CatalogRecord {
			return []domain.CatalogRecord{{ID: page, Genres: []string{"Action"}, Format: ptr("TV")}}
		},
	}
	var sleeps []time.Duration
	opts := baseOptions()
	opts.Sleep = func(ctx context.Context, d time.Duration) error {
		sleeps = append(sleeps, d)
		return nil
	}
	obs := &recordObserver{}
	mem := sink.NewMemory()

	rr := Execute(context.Background(), opts, f, mem, obs)
	require.Equal(t, domain.StatusOK, rr.Status, "report：%+v", rr)

	require.Len(t, f.calls, 5)
	for i, c := range f.calls {
		require.Equal(t, i+1, c.page)
		require.Equal(t, "media", c.query)
	}
	require.Len(t, sleeps, 4, "相邻两次请求之间各等待一次")

	require.Equal(t, 1, obs.startCalls)
	require.NotEmpty(t, obs.percents)
	require.Equal(t, 0, obs.percents[0])
	require.Equal(t, 100, obs.percents[len(obs.percents)-1])
	for i := 1; i < len(obs.percents); i++ {
		require.GreaterOrEqual(t, obs.percents[i], obs.percents[i-1], "进度必须单调不减：%v", obs.percents)
	}

	require.Equal(t, []string{"media:1/5", "media:2/5", "media:3/5", "media:4/5", "media:5/5"}, obs.pages)
	require.Equal(t, []string{"trailers", "genres", "formats", "years", "status"}, obs.saved)
	require.Equal(t, []string{"trailers.json", "genres.json", "formats.json", "years.json", "status.json"}, mem.Puts())

	require.Equal(t, 5, rr.TotalPages)
	require.Equal(t, 5, rr.PagesFetched)
	require.Equal(t, 5, rr.RecordsSeen)
	require.Equal(t, 5, rr.Summary.Artifacts)

	b, ok := mem.Get("genres.json")
	require.True(t, ok)
	var genres map[string][]domain.ProjectedRecord
	require.NoError(t, json.Unmarshal(b, &genres))
	require.Len(t, genres["Action"], 5)
}

func TestExecute_MaxPagesCapsTotal(t *testing.T) {
	f := &fakeCatalog{lastPage: 40}
	opts := baseOptions()
	opts.MaxPages = 3

	rr := Execute(context.Background(), opts, f, sink.NewMemory(), nil)
	require.Equal(t, domain.StatusOK, rr.Status)
	require.Len(t, f.calls, 3)
	require.Equal(t, 3, rr.TotalPages)
}

func TestExecute_TrailerPassStopsWhenNoNextPage(t *testing.T) {
	f := &fakeCatalog{
		lastPage:    1,
		trailerLast: 2,
		perPage: func(q string, page int) []domain.CatalogRecord {
			if q == "trailer" {
				return []domain.CatalogRecord{
					{ID: 100 + page, Trailer: &domain.Trailer{ID: ptr(fmt.Sprintf("t%d", page)), Site: ptr("youtube")}},
					{ID: 200 + page, Trailer: &domain.Trailer{ID: ptr("dm"), Site: ptr("dailymotion")}},
				}
			}
			return []domain.CatalogRecord{{ID: 1, Trailer: &domain.Trailer{ID: ptr("t1"), Site: ptr("youtube")}}}
		},
	}
	opts := baseOptions()
	opts.TrailerPages = 10
	obs := &recordObserver{}
	mem := sink.NewMemory()

	rr := Execute(context.Background(), opts, f, mem, obs)
	require.Equal(t, domain.StatusOK, rr.Status, "report：%+v", rr)
	require.Equal(t, []call{{1, "media"}, {1, "trailer"}, {2, "trailer"}}, f.calls)
	require.Equal(t, 2, rr.TrailerPagesFetched)
	require.Equal(t, 100, obs.percents[len(obs.percents)-1])

	b, _ := mem.Get("trailers.json")
	var trailers []domain.ProjectedRecord
	require.NoError(t, json.Unmarshal(b, &trailers))
	// 主流程的 t1 先出现，补充流程的 t1 被去重；dailymotion 永不收入。
	require.Len(t, trailers, 2)
	require.Equal(t, 1, trailers[0].ID)
	require.Equal(t, 102, trailers[1].ID)
}

func TestExecute_EmptyCatalog(t *testing.T) {
	f := &fakeCatalog{lastPage: 0}
	mem := sink.NewMemory()

	rr := Execute(context.Background(), baseOptions(), f, mem, nil)
	require.Equal(t, domain.StatusOK, rr.Status)
	require.Equal(t, 1, rr.TotalPages)

	for _, name := range []string{"genres", "formats", "years", "status"} {
		b, ok := mem.Get(name + ".json")
		require.True(t, ok, name)
		require.Equal(t, "{}\n", string(b), name)
	}
	b, _ := mem.Get("trailers.json")
	require.Equal(t, "[]\n", string(b))
}

func TestExecute_FetchFailureAbortsWithoutWrites(t *testing.T) {
	f := &fakeCatalog{
		lastPage: 5,
		failOn:   map[int]error{3: &catalog.HTTPStatusError{URL: "https://graphql.test", StatusCode: 429, RetryAfter: "60"}},
	}
	mem := sink.NewMemory()

	rr := Execute(context.Background(), baseOptions(), f, mem, nil)
	require.Equal(t, domain.StatusFailed, rr.Status)
	require.Equal(t, domain.ErrCodeFetchFailed, rr.ErrorCode)
	require.Contains(t, rr.ErrorMsg, "429")
	require.Contains(t, rr.ErrorMsg, "delay")
	require.Len(t, f.calls, 3)
	require.Equal(t, 2, rr.PagesFetched)
	require.Empty(t, mem.Names(), "失败时不应写出任何 artifact")

	b, err := json.Marshal(rr)
	require.NoError(t, err)
	require.Contains(t, string(b), `"artifacts":[]`)
}

func TestExecute_MalformedResponse(t *testing.T) {
	f := &fakeCatalog{
		lastPage: 2,
		failOn:   map[int]error{1: &catalog.MalformedResponseError{URL: "u", Field: "data.Page"}},
	}
	rr := Execute(context.Background(), baseOptions(), f, sink.NewMemory(), nil)
	require.Equal(t, domain.ErrCodeMalformedResponse, rr.ErrorCode)
}

func TestExecute_CanceledDuringFetch(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f := &fakeCatalog{lastPage: 5, cancelOnPage: 2, cancel: cancel}
	mem := sink.NewMemory()

	rr := Execute(ctx, baseOptions(), f, mem, nil)
	require.Equal(t, domain.ErrCodeCanceled, rr.ErrorCode)
	require.Len(t, f.calls, 2)
	require.Empty(t, mem.Names())
}

func TestExecute_SleepErrorCancels(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	opts := baseOptions()
	opts.Sleep = func(ctx context.Context, d time.Duration) error {
		cancel()
		return ctx.Err()
	}
	f := &fakeCatalog{lastPage: 3}

	rr := Execute(ctx, opts, f, sink.NewMemory(), nil)
	require.Equal(t, domain.ErrCodeCanceled, rr.ErrorCode)
	require.Len(t, f.calls, 1)
}

func TestExecute_ZeroDelaySkipsSleep(t *testing.T) {
	opts := baseOptions()
	opts.Delay = 0
	opts.Sleep = func(context.Context, time.Duration) error {
		return errors.New("不应调用 sleep")
	}
	rr := Execute(context.Background(), opts, &fakeCatalog{lastPage: 3}, sink.NewMemory(), nil)
	require.Equal(t, domain.StatusOK, rr.Status, "report：%+v", rr)
}

func TestExecute_SinkFailureIsIOFailed(t *testing.T) {
	root := t.TempDir()
	// 输出目录被同名文件占用。
	out := filepath.Join(root, "data")
	require.NoError(t, os.WriteFile(out, []byte("x"), 0o644))

	rr := Execute(context.Background(), baseOptions(), &fakeCatalog{lastPage: 1}, sink.NewDir(out), nil)
	require.Equal(t, domain.StatusFailed, rr.Status)
	require.Equal(t, domain.ErrCodeIOFailed, rr.ErrorCode)
	require.Equal(t, "dir:"+out, rr.Sink)
}

func TestExecute_InvalidOptions(t *testing.T) {
	opts := baseOptions()
	opts.Query = ""
	rr := Execute(context.Background(), opts, &fakeCatalog{lastPage: 1}, sink.NewMemory(), nil)
	require.Equal(t, domain.ErrCodeConfigInvalid, rr.ErrorCode)

	rr = Execute(context.Background(), baseOptions(), nil, sink.NewMemory(), nil)
	require.Equal(t, domain.ErrCodeConfigInvalid, rr.ErrorCode)

	opts = baseOptions()
	opts.TrailerPages = 2
	opts.TrailerQuery = ""
	rr = Execute(context.Background(), opts, &fakeCatalog{lastPage: 1}, sink.NewMemory(), nil)
	require.Equal(t, domain.ErrCodeConfigInvalid, rr.ErrorCode)
}

func TestHumanizeFetchError(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{&catalog.HTTPStatusError{StatusCode: 429}, "delay"},
		{&catalog.HTTPStatusError{StatusCode: 503}, "稍后重试"},
		{&catalog.HTTPStatusError{StatusCode: 404}, "endpoint"},
		{fmt.Errorf("wrap: %w", context.DeadlineExceeded), "超时"},
		{errors.New("remote error: tls: handshake failure"), "TLS"},
		{errors.New("boom"), "boom"},
	}
	for _, tc := range cases {
		require.Contains(t, humanizeFetchError(tc.err), tc.want, "err=%v", tc.err)
	}
}

func TestNilObserver_SameResult(t *testing.T) {
	a := Execute(context.Background(), baseOptions(), &fakeCatalog{lastPage: 2}, sink.NewMemory(), nil)
	b := Execute(context.Background(), baseOptions(), &fakeCatalog{lastPage: 2}, sink.NewMemory(), &recordObserver{})

	// 时间字段本身允许有微小差异；对比时归零。
	a.StartedAt, a.FinishedAt = time.Time{}, time.Time{}
	b.StartedAt, b.FinishedAt = time.Time{}, time.Time{}
	require.Equal(t, a, b)
}

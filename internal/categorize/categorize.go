package categorize

import (
	"strconv"

	"github.com/John-Robertt/anigallery/internal/domain"
	"github.com/John-Robertt/anigallery/internal/project"
)

// Index 是一个分类索引：key -> 按到达顺序排列的投影记录。
type Index map[string][]domain.ProjectedRecord

// Indexes 是一次运行的累加器集合。
//
// 约束：
// - 只由驱动分页的那一个 goroutine 使用，不加锁
// - 每次运行新建，运行结束即丢弃
type Indexes struct {
	Genres   Index
	Formats  Index
	Years    Index
	Status   Index
	Trailers []domain.ProjectedRecord

	seenIDs      map[int]struct{}
	seenTrailers map[string]struct{}
}

func New() *Indexes {
	return &Indexes{
		Genres:       Index{},
		Formats:      Index{},
		Years:        Index{},
		Status:       Index{},
		Trailers:     []domain.ProjectedRecord{},
		seenIDs:      map[int]struct{}{},
		seenTrailers: map[string]struct{}{},
	}
}

// Accumulate 把一页记录并入四个分类索引与 trailers 集合。
//
// 同一运行内重复出现的 id 只计一次（按热度分页时，记录可能在相邻页之间漂移）。
func (x *Indexes) Accumulate(records []domain.CatalogRecord) {
	for _, r := range records {
		if _, ok := x.seenIDs[r.ID]; ok {
			continue
		}
		x.seenIDs[r.ID] = struct{}{}

		p := project.Project(r)

		for _, g := range r.Genres {
			x.Genres[g] = append(x.Genres[g], p)
		}
		if r.Format != nil && *r.Format != "" {
			x.Formats[*r.Format] = append(x.Formats[*r.Format], p)
		}
		if r.SeasonYear != nil && *r.SeasonYear != 0 {
			y := strconv.Itoa(*r.SeasonYear)
			x.Years[y] = append(x.Years[y], p)
		}
		if r.Status != nil && *r.Status != "" {
			x.Status[*r.Status] = append(x.Status[*r.Status], p)
		}

		x.addTrailer(r.Trailer, p)
	}
}

// AddTrailers 只对记录应用 trailers 规则（预告片补充流程使用）。
func (x *Indexes) AddTrailers(records []domain.CatalogRecord) {
	for _, r := range records {
		if _, ok := domain.YouTubeTrailerID(r.Trailer); !ok {
			continue
		}
		x.addTrailer(r.Trailer, project.Project(r))
	}
}

// addTrailer：YouTube、id 非空、首次出现才收入。
func (x *Indexes) addTrailer(t *domain.Trailer, p domain.ProjectedRecord) {
	id, ok := domain.YouTubeTrailerID(t)
	if !ok {
		return
	}
	if _, dup := x.seenTrailers[id]; dup {
		return
	}
	x.seenTrailers[id] = struct{}{}
	x.Trailers = append(x.Trailers, p)
}

// Records 返回已并入分类索引的不同 id 数量。
func (x *Indexes) Records() int { return len(x.seenIDs) }

// Artifact 是一个待持久化的命名产物。
type Artifact struct {
	Name  string
	Value any
	Keys  int
	Count int
}

// Artifacts 按持久化顺序返回五个产物：trailers, genres, formats, years, status。
//
// 空索引序列化为 {}，空 trailers 序列化为 []。
func (x *Indexes) Artifacts() []Artifact {
	trailers := x.Trailers
	if trailers == nil {
		trailers = []domain.ProjectedRecord{}
	}
	return []Artifact{
		{Name: domain.ArtifactTrailers, Value: trailers, Keys: 0, Count: len(trailers)},
		indexArtifact(domain.ArtifactGenres, x.Genres),
		indexArtifact(domain.ArtifactFormats, x.Formats),
		indexArtifact(domain.ArtifactYears, x.Years),
		indexArtifact(domain.ArtifactStatus, x.Status),
	}
}

func indexArtifact(name string, idx Index) Artifact {
	if idx == nil {
		idx = Index{}
	}
	n := 0
	for _, v := range idx {
		n += len(v)
	}
	return Artifact{Name: name, Value: idx, Keys: len(idx), Count: n}
}

package gallery

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/rand"
	"path/filepath"
	"sort"

	"github.com/John-Robertt/anigallery/internal/domain"
	"github.com/John-Robertt/anigallery/internal/infra/fsx"
	"github.com/John-Robertt/anigallery/internal/sink"
)

// Kinds 是分类 artifact 的固定展示顺序。
var Kinds = []string{domain.ArtifactGenres, domain.ArtifactFormats, domain.ArtifactYears, domain.ArtifactStatus}

// Gallery 是已写出 artifact 的只读视图（画廊前端消费的同一份数据）。
type Gallery struct {
	indexes  map[string]map[string][]domain.ProjectedRecord
	trailers []domain.ProjectedRecord
}

// Video 是一个可播放的 YouTube 预告片。
type Video struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	AnimeTitle string `json:"anime_title"`
	Thumbnail  string `json:"thumbnail"`
	URL        string `json:"url"`
	EmbedURL   string `json:"embed_url"`
}

// Stats 对应画廊首页的统计卡片。
type Stats struct {
	TotalAnime  int `json:"total_anime"`
	TotalGenres int `json:"total_genres"`
	TotalVideos int `json:"total_videos"`
}

// Load 从 dir 读取五个 artifact；缺失或空文件按空集合处理。
func Load(dir string) (*Gallery, error) {
	g := &Gallery{indexes: map[string]map[string][]domain.ProjectedRecord{}}
	for _, kind := range Kinds {
		idx := map[string][]domain.ProjectedRecord{}
		if err := readArtifact(dir, kind, &idx); err != nil {
			return nil, err
		}
		if idx == nil {
			idx = map[string][]domain.ProjectedRecord{}
		}
		g.indexes[kind] = idx
	}
	var trailers []domain.ProjectedRecord
	if err := readArtifact(dir, domain.ArtifactTrailers, &trailers); err != nil {
		return nil, err
	}
	g.trailers = trailers
	return g, nil
}

func readArtifact(dir, name string, v any) error {
	p := filepath.Join(dir, sink.FileName(name))
	b, ok, err := fsx.ReadFileOptional(p)
	if err != nil {
		return err
	}
	if !ok || len(bytes.TrimSpace(b)) == 0 {
		return nil
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("解析 %s 失败：%w", p, err)
	}
	return nil
}

// Categories 返回非空的分类 kind（固定顺序）。
func (g *Gallery) Categories() []string {
	out := make([]string, 0, len(Kinds))
	for _, k := range Kinds {
		if len(g.indexes[k]) > 0 {
			out = append(out, k)
		}
	}
	return out
}

// Keys 返回 kind 下的全部 key（字典序）；未知 kind 返回空。
func (g *Gallery) Keys(kind string) []string {
	idx := g.indexes[kind]
	out := make([]string, 0, len(idx))
	for k := range idx {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Lookup 返回 kind/key 下的记录；不存在时返回空切片。
func (g *Gallery) Lookup(kind, key string) []domain.ProjectedRecord {
	rs := g.indexes[kind][key]
	if rs == nil {
		return []domain.ProjectedRecord{}
	}
	return rs
}

// Trailers 返回全部可播放的预告片：先取 trailers 集合，再回退扫描四个分类索引，按预告片 ID 去重。
func (g *Gallery) Trailers() []Video {
	seen := map[string]struct{}{}
	out := []Video{}
	add := func(r domain.ProjectedRecord) {
		id, ok := domain.YouTubeTrailerID(r.Trailer)
		if !ok {
			return
		}
		if _, dup := seen[id]; dup {
			return
		}
		seen[id] = struct{}{}
		out = append(out, toVideo(id, r))
	}

	for _, r := range g.trailers {
		add(r)
	}
	for _, kind := range Kinds {
		idx := g.indexes[kind]
		// key 排序后遍历，保证输出稳定。
		keys := make([]string, 0, len(idx))
		for k := range idx {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			for _, r := range idx[k] {
				add(r)
			}
		}
	}
	return out
}

// RandomTrailers 返回最多 n 个随机预告片；n<=0 或超过总数时返回全部（打乱顺序）。
func (g *Gallery) RandomTrailers(n int, rnd *rand.Rand) []Video {
	all := g.Trailers()
	if rnd == nil {
		rnd = rand.New(rand.NewSource(1))
	}
	rnd.Shuffle(len(all), func(i, j int) { all[i], all[j] = all[j], all[i] })
	if n > 0 && n < len(all) {
		all = all[:n]
	}
	return all
}

// Stats 统计动画数（genres 中的不同 id）、类型数与视频数。
func (g *Gallery) Stats() Stats {
	ids := map[int]struct{}{}
	for _, rs := range g.indexes[domain.ArtifactGenres] {
		for _, r := range rs {
			ids[r.ID] = struct{}{}
		}
	}
	return Stats{
		TotalAnime:  len(ids),
		TotalGenres: len(g.indexes[domain.ArtifactGenres]),
		TotalVideos: len(g.Trailers()),
	}
}

func toVideo(id string, r domain.ProjectedRecord) Video {
	v := Video{
		ID:       id,
		Title:    "预告片",
		URL:      "https://www.youtube.com/watch?v=" + id,
		EmbedURL: "https://www.youtube.com/embed/" + id + "?autoplay=1&mute=1&controls=0&loop=1&playlist=" + id,
	}
	if r.Title != nil {
		v.AnimeTitle = deref(r.Title.Romaji)
		if v.AnimeTitle == "" {
			v.AnimeTitle = deref(r.Title.English)
		}
	}
	v.Thumbnail = deref(r.Trailer.Thumbnail)
	if v.Thumbnail == "" && r.CoverImage != nil {
		v.Thumbnail = deref(r.CoverImage.ExtraLarge)
	}
	return v
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

package domain

// Title 是 AniList 提供的三种标题写法；任一字段都可能缺失。
type Title struct {
	Romaji  *string `json:"romaji"`
	English *string `json:"english"`
	Native  *string `json:"native"`
}

// CoverImage 是封面图的四种分辨率 + 主色调。
type CoverImage struct {
	ExtraLarge *string `json:"extraLarge"`
	Large      *string `json:"large"`
	Medium     *string `json:"medium"`
	Color      *string `json:"color"`
}

// Trailer 描述外部托管的预告片（ID 是托管站点上的视频 ID）。
type Trailer struct {
	ID        *string `json:"id"`
	Site      *string `json:"site"`
	Thumbnail *string `json:"thumbnail"`
}

// SiteYouTube 是唯一被收入 trailers 集合的托管站点（大小写敏感）。
const SiteYouTube = "youtube"

// CatalogRecord 是远端目录返回的一条媒体记录。
//
// 约束：可选字段一律用指针表示，JSON null 与缺失都落到 nil，
// 这样投影时才能做到“缺失即缺失”，不引入任何默认值。
type CatalogRecord struct {
	ID           int         `json:"id"`
	Title        *Title      `json:"title"`
	CoverImage   *CoverImage `json:"coverImage"`
	BannerImage  *string     `json:"bannerImage"`
	Genres       []string    `json:"genres"`
	Format       *string     `json:"format"`
	Season       *string     `json:"season"`
	SeasonYear   *int        `json:"seasonYear"`
	Episodes     *int        `json:"episodes"`
	Duration     *int        `json:"duration"`
	Status       *string     `json:"status"`
	AverageScore *int        `json:"averageScore"`
	Popularity   *int        `json:"popularity"`
	Trailer      *Trailer    `json:"trailer"`
	Description  *string     `json:"description,omitempty"`
}

// ProjectedRecord 是写入 artifact 的精简记录（画廊渲染所需的最小字段集）。
//
// 不变量：ID 恒等于来源 CatalogRecord.ID。
type ProjectedRecord struct {
	ID          int         `json:"id"`
	Title       *Title      `json:"title"`
	CoverImage  *CoverImage `json:"coverImage"`
	BannerImage *string     `json:"bannerImage"`
	Trailer     *Trailer    `json:"trailer"`
	Format      *string     `json:"format"`
	Genres      []string    `json:"genres"`
	SeasonYear  *int        `json:"seasonYear"`
	Episodes    *int        `json:"episodes"`
	Description *string     `json:"description,omitempty"`
}

// YouTubeTrailerID 返回可播放的 YouTube 预告片 ID；不满足条件时 ok=false。
//
// 条件：trailer 存在、id 非空、site 恰好等于 "youtube"。
func YouTubeTrailerID(t *Trailer) (id string, ok bool) {
	if t == nil || t.ID == nil || *t.ID == "" {
		return "", false
	}
	if t.Site == nil || *t.Site != SiteYouTube {
		return "", false
	}
	return *t.ID, true
}

// PageInfo 对应 GraphQL Page.pageInfo。
type PageInfo struct {
	Total       int  `json:"total"`
	CurrentPage int  `json:"currentPage"`
	LastPage    int  `json:"lastPage"`
	HasNextPage bool `json:"hasNextPage"`
}

// Page 是一次分页请求的结果。
type Page struct {
	Info  PageInfo        `json:"pageInfo"`
	Media []CatalogRecord `json:"media"`
}

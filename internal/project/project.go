package project

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/John-Robertt/anigallery/internal/domain"
)

// Project 把 CatalogRecord 缩减为画廊渲染需要的字段集。
//
// 约束：
// - 纯函数：不读外部状态，不修改入参
// - 缺失即缺失：nil 保持 nil，不补默认值
// - 指针字段深拷贝：结果与来源不共享内存
func Project(r domain.CatalogRecord) domain.ProjectedRecord {
	out := domain.ProjectedRecord{
		ID:          r.ID,
		Title:       copyTitle(r.Title),
		CoverImage:  copyCover(r.CoverImage),
		BannerImage: copyString(r.BannerImage),
		Trailer:     copyTrailer(r.Trailer),
		Format:      copyString(r.Format),
		Genres:      copyStrings(r.Genres),
		SeasonYear:  copyInt(r.SeasonYear),
		Episodes:    copyInt(r.Episodes),
	}
	if r.Description != nil {
		s := PlainText(*r.Description)
		out.Description = &s
	}
	return out
}

// PlainText 把 AniList description 的 HTML 片段（<br>、<i>、实体等）转成单空格分隔的文本，
// 并对 & < > ' " 重新做实体转义，结果可以直接作为 HTML 文本节点。
//
// 不动点：PlainText(PlainText(s)) == PlainText(s)。
// 解析会把 &lt; 还原成 <，若不重新转义，第二次解析会把它当成标签删掉。
func PlainText(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return html.EscapeString(collapseSpace(s))
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return html.EscapeString(collapseSpace(s))
	}
	// <br> 在 Text() 里不产生任何字符，先换成空格，避免前后两行粘连。
	doc.Find("br").ReplaceWithHtml(" ")
	return html.EscapeString(collapseSpace(doc.Text()))
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func copyString(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func copyInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func copyStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

func copyTitle(t *domain.Title) *domain.Title {
	if t == nil {
		return nil
	}
	return &domain.Title{
		Romaji:  copyString(t.Romaji),
		English: copyString(t.English),
		Native:  copyString(t.Native),
	}
}

func copyCover(c *domain.CoverImage) *domain.CoverImage {
	if c == nil {
		return nil
	}
	return &domain.CoverImage{
		ExtraLarge: copyString(c.ExtraLarge),
		Large:      copyString(c.Large),
		Medium:     copyString(c.Medium),
		Color:      copyString(c.Color),
	}
}

func copyTrailer(t *domain.Trailer) *domain.Trailer {
	if t == nil {
		return nil
	}
	return &domain.Trailer{
		ID:        copyString(t.ID),
		Site:      copyString(t.Site),
		Thumbnail: copyString(t.Thumbnail),
	}
}

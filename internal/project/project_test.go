package project

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/John-Robertt/anigallery/internal/domain"
)

func ptr[T any](v T) *T { return &v }

func fullRecord() domain.CatalogRecord {
	return domain.CatalogRecord{
		ID:           21,
		Title:        &domain.Title{Romaji: ptr("One Piece"), English: ptr("ONE PIECE"), Native: nil},
		CoverImage:   &domain.CoverImage{ExtraLarge: ptr("https://img.test/xl.jpg"), Color: ptr("#e4a15d")},
		BannerImage:  ptr("https://img.test/banner.jpg"),
		Genres:       []string{"Action", "Adventure"},
		Format:       ptr("TV"),
		Season:       ptr("FALL"),
		SeasonYear:   ptr(1999),
		Episodes:     nil,
		Duration:     ptr(24),
		Status:       ptr("RELEASING"),
		AverageScore: ptr(88),
		Popularity:   ptr(500000),
		Trailer:      &domain.Trailer{ID: ptr("abc123"), Site: ptr("youtube"), Thumbnail: ptr("https://i.ytimg.com/vi/abc123/hqdefault.jpg")},
		Description:  ptr("Gol D. Roger<br><br>\nwas known as the <i>Pirate King</i> &amp; more."),
	}
}

// fromProjected 把投影结果还原成一条目录记录（只含投影保留的字段）。
func fromProjected(p domain.ProjectedRecord) domain.CatalogRecord {
	return domain.CatalogRecord{
		ID:          p.ID,
		Title:       p.Title,
		CoverImage:  p.CoverImage,
		BannerImage: p.BannerImage,
		Genres:      p.Genres,
		Format:      p.Format,
		SeasonYear:  p.SeasonYear,
		Episodes:    p.Episodes,
		Trailer:     p.Trailer,
		Description: p.Description,
	}
}

func TestProject_KeepsRenderFieldsOnly(t *testing.T) {
	p := Project(fullRecord())

	require.Equal(t, 21, p.ID)
	require.Equal(t, "One Piece", *p.Title.Romaji)
	require.Nil(t, p.Title.Native)
	require.Equal(t, "TV", *p.Format)
	require.Equal(t, 1999, *p.SeasonYear)
	require.Nil(t, p.Episodes, "缺失字段不应被补默认值")
	require.Equal(t, []string{"Action", "Adventure"}, p.Genres)
	require.Equal(t, "Gol D. Roger was known as the Pirate King &amp; more.", *p.Description)

	b, err := json.Marshal(p)
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal(b, &m))
	for _, dropped := range []string{"season", "duration", "status", "averageScore", "popularity"} {
		require.NotContains(t, m, dropped)
	}
	require.Contains(t, m, "episodes")
	require.Nil(t, m["episodes"])
}

func TestProject_Idempotent(t *testing.T) {
	once := Project(fullRecord())
	twice := Project(fromProjected(once))
	require.Equal(t, once, twice)

	bare := Project(domain.CatalogRecord{ID: 7})
	require.Equal(t, bare, Project(fromProjected(bare)))

	// 描述里的转义尖括号在第二次投影时不能被当成标签删掉。
	for _, desc := range []string{"Tom &lt;Jerry&gt; and friends", "x &amp;lt; y", "a < b & c"} {
		r := domain.CatalogRecord{ID: 8, Description: ptr(desc)}
		once := Project(r)
		twice := Project(fromProjected(once))
		require.Equal(t, once, twice, "描述：%q", desc)
		thrice := Project(fromProjected(twice))
		require.Equal(t, once, thrice, "描述：%q", desc)
	}
}

func TestProject_DoesNotAlias(t *testing.T) {
	src := fullRecord()
	p := Project(src)

	*src.Title.Romaji = "changed"
	src.Genres[0] = "changed"
	*src.Trailer.ID = "changed"

	require.Equal(t, "One Piece", *p.Title.Romaji)
	require.Equal(t, "Action", p.Genres[0])
	require.Equal(t, "abc123", *p.Trailer.ID)
}

func TestProject_OmitsAbsentDescription(t *testing.T) {
	p := Project(domain.CatalogRecord{ID: 1})
	b, err := json.Marshal(p)
	require.NoError(t, err)
	require.NotContains(t, string(b), "description")
	require.Contains(t, string(b), `"trailer":null`)
}

func TestPlainText(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"  plain   text\n here ", "plain text here"},
		{"a<br>b", "a b"},
		{"<b>Bold</b> and <i>italic</i>", "Bold and italic"},
		{"Tom &amp; Jerry &quot;x&quot;", "Tom &amp; Jerry &#34;x&#34;"},
		{"(Source: Wikipedia)<br />\n<br />\nNote", "(Source: Wikipedia) Note"},
		{"Tom &lt;Jerry&gt; and friends", "Tom &lt;Jerry&gt; and friends"},
		{"x &amp;lt; y", "x &amp;lt; y"},
		{"a < b", "a &lt; b"},
		{"it's", "it&#39;s"},
	}
	for _, tc := range cases {
		got := PlainText(tc.in)
		require.Equal(t, tc.want, got, "输入：%q", tc.in)
		require.Equal(t, got, PlainText(got), "输出应是不动点：%q", got)
		require.Equal(t, got, PlainText(PlainText(got)), "输出应是不动点：%q", got)
	}
}

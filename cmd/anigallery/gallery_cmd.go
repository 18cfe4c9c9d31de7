package main

import (
	"fmt"
	"io"
	"math/rand"
	"os"
	"time"

	"github.com/John-Robertt/anigallery/internal/config"
	"github.com/John-Robertt/anigallery/internal/gallery"
	"github.com/John-Robertt/anigallery/internal/localvideo"
)

// loadGallery 读取 dir 下的 artifact；dir 为空时使用配置中的 output_dir。
func loadGallery(dir string) (*gallery.Gallery, error) {
	if dir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		eff, err := config.LoadEffective(cwd, config.CLIArgs{})
		if err != nil {
			return nil, err
		}
		dir = eff.OutputDir
	} else {
		abs, err := absFromCwd(dir)
		if err != nil {
			return nil, err
		}
		dir = abs
	}
	return gallery.Load(dir)
}

func galleryCmd(args []string, stdout, stderr io.Writer, usage string, allowed []string, fn func(*gallery.Gallery, galleryArgs) error) int {
	for _, a := range args {
		if isHelp(a) {
			fmt.Fprint(stdout, usage)
			return 0
		}
	}
	ga, err := parseGalleryArgs(args, allowed...)
	if err != nil {
		fmt.Fprintf(stderr, "参数错误：%v\n\n", err)
		fmt.Fprint(stderr, usage)
		return 2
	}
	g, err := loadGallery(ga.Dir)
	if err != nil {
		fmt.Fprintf(stderr, "读取 artifact 失败：%v\n", err)
		return 1
	}
	if err := fn(g, ga); err != nil {
		fmt.Fprintf(stderr, "输出失败：%v\n", err)
		return 1
	}
	return 0
}

func statsCmd(args []string, stdout, stderr io.Writer) int {
	return galleryCmd(args, stdout, stderr, "用法：\n  anigallery stats [dir]\n", nil,
		func(g *gallery.Gallery, _ galleryArgs) error {
			st := g.Stats()
			if isTTY(stdout) {
				_, err := fmt.Fprintf(stdout, "动漫：%d\n类型：%d\n预告片：%d\n", st.TotalAnime, st.TotalGenres, st.TotalVideos)
				return err
			}
			return emitJSON(stdout, st)
		})
}

type categoryKey struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

type categoryKind struct {
	Kind string        `json:"kind"`
	Keys []categoryKey `json:"keys"`
}

func categoryKeys(g *gallery.Gallery, kind string) []categoryKey {
	keys := g.Keys(kind)
	out := make([]categoryKey, 0, len(keys))
	for _, k := range keys {
		out = append(out, categoryKey{Key: k, Count: len(g.Lookup(kind, k))})
	}
	return out
}

func categoriesCmd(args []string, stdout, stderr io.Writer) int {
	usage := "用法：\n  anigallery categories [dir] [--kind genres|formats|years|status [--key V]]\n"
	return galleryCmd(args, stdout, stderr, usage, []string{"--kind", "--key"},
		func(g *gallery.Gallery, ga galleryArgs) error {
			switch {
			case ga.KeySet:
				return emitJSON(stdout, g.Lookup(ga.Kind, ga.Key))
			case ga.Kind != "":
				keys := categoryKeys(g, ga.Kind)
				if isTTY(stdout) {
					for _, k := range keys {
						fmt.Fprintf(stdout, "%s\t%d\n", k.Key, k.Count)
					}
					return nil
				}
				return emitJSON(stdout, keys)
			default:
				kinds := make([]categoryKind, 0, len(gallery.Kinds))
				for _, kind := range g.Categories() {
					kinds = append(kinds, categoryKind{Kind: kind, Keys: categoryKeys(g, kind)})
				}
				if isTTY(stdout) {
					for _, k := range kinds {
						fmt.Fprintf(stdout, "%s：%d 个分类\n", k.Kind, len(k.Keys))
					}
					return nil
				}
				return emitJSON(stdout, kinds)
			}
		})
}

func trailersCmd(args []string, stdout, stderr io.Writer) int {
	usage := "用法：\n  anigallery trailers [dir] [--random N]\n"
	return galleryCmd(args, stdout, stderr, usage, []string{"--random"},
		func(g *gallery.Gallery, ga galleryArgs) error {
			vs := g.Trailers()
			if ga.Random > 0 {
				vs = g.RandomTrailers(ga.Random, rand.New(rand.NewSource(time.Now().UnixNano())))
			}
			if vs == nil {
				vs = []gallery.Video{}
			}
			if isTTY(stdout) {
				for _, v := range vs {
					fmt.Fprintf(stdout, "%s\t%s\n", v.AnimeTitle, v.URL)
				}
				return nil
			}
			return emitJSON(stdout, vs)
		})
}

func checkVideosCmd(args []string, stdout, stderr io.Writer) int {
	usage := `用法：
  anigallery check-videos [root] [--apply[=true|false]]

参数：
  root        站点根目录（包含 public/；默认当前目录）
  --apply     创建缺失的清单与目录，并从清单中移除失效条目（默认 dry-run）
  -h, --help  显示帮助
`
	for _, a := range args {
		if isHelp(a) {
			fmt.Fprint(stdout, usage)
			return 0
		}
	}
	ca, err := parseCheckArgs(args)
	if err != nil {
		fmt.Fprintf(stderr, "参数错误：%v\n\n", err)
		fmt.Fprint(stderr, usage)
		return 2
	}
	root := ca.Root
	if root == "" {
		root = "."
	}
	root, err = absFromCwd(root)
	if err != nil {
		fmt.Fprintf(stderr, "读取当前目录失败：%v\n", err)
		return 1
	}

	rep, err := localvideo.Check(localvideo.New(root, !ca.Apply))
	if err != nil {
		fmt.Fprintf(stderr, "检查失败：%v\n", err)
		return 1
	}

	if isTTY(stdout) {
		printCheckReport(stdout, rep)
	} else {
		_ = emitJSON(stdout, rep)
		fmt.Fprintf(stderr, "完成：total=%d valid=%d invalid=%d pruned=%t\n", rep.Total, rep.Valid, rep.Invalid, rep.Pruned)
	}

	if rep.Invalid > 0 && !rep.Pruned {
		return 1
	}
	return 0
}

func printCheckReport(w io.Writer, rep localvideo.Report) {
	mode := "dry-run"
	if !rep.DryRun {
		mode = "apply"
	}
	fmt.Fprintf(w, "清单：%s (%s)\n", rep.Manifest, mode)
	switch {
	case rep.Created:
		fmt.Fprintln(w, "  清单不存在，已创建空清单")
	case !rep.Existed:
		fmt.Fprintln(w, "  清单不存在（dry-run 不创建）")
	}
	for _, e := range rep.Entries {
		if e.Valid {
			thumb := ""
			if e.ThumbnailPath != "" && !e.ThumbnailOK {
				thumb = "（缩略图缺失）"
			}
			fmt.Fprintf(w, "  OK   %s %s %.2f MB%s\n", e.Title, e.VideoPath, float64(e.SizeBytes)/1024/1024, thumb)
			continue
		}
		fmt.Fprintf(w, "  FAIL %s %s: %s\n", e.Title, e.VideoPath, e.Reason)
	}
	fmt.Fprintf(w, "有效：%d/%d\n", rep.Valid, rep.Total)
	if rep.Pruned {
		fmt.Fprintf(w, "已从清单中移除 %d 个失效条目\n", rep.Invalid)
	}
	for _, d := range rep.Dirs {
		switch {
		case d.Existed:
			fmt.Fprintf(w, "目录 %s：视频 %d，图片 %d\n", d.Path, d.Videos, d.Images)
		case d.Created:
			fmt.Fprintf(w, "目录 %s：不存在，已创建\n", d.Path)
		default:
			fmt.Fprintf(w, "目录 %s：不存在\n", d.Path)
		}
	}
}

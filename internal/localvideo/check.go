package localvideo

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/John-Robertt/anigallery/internal/infra/imgx"
	"github.com/John-Robertt/anigallery/internal/scan"
)

// 清单中必须存在的两个媒体目录（相对 public/）。
var mediaDirs = []string{"videos", "thumbnails"}

// Entry 是清单条目中本工具关心的字段。
type Entry struct {
	Title         string `json:"title"`
	VideoPath     string `json:"videoPath"`
	ThumbnailPath string `json:"thumbnailPath"`
}

// EntryResult 是单个条目的检查结果。
type EntryResult struct {
	Title         string `json:"title"`
	VideoPath     string `json:"video_path"`
	ThumbnailPath string `json:"thumbnail_path,omitempty"`

	Valid     bool  `json:"valid"`
	SizeBytes int64 `json:"size_bytes"`
	// ThumbnailOK 仅在 thumbnailPath 非空时有意义；缩略图缺失或损坏不影响 Valid。
	ThumbnailOK bool       `json:"thumbnail_ok"`
	Thumbnail   *imgx.Info `json:"thumbnail,omitempty"`
	Reason      string     `json:"reason,omitempty"`
}

// DirResult 是媒体目录的检查结果。
type DirResult struct {
	Name    string `json:"name"`
	Path    string `json:"path"`
	Existed bool   `json:"existed"`
	Created bool   `json:"created"`
	Videos  int    `json:"videos"`
	Images  int    `json:"images"`
}

// Report 是 check-videos 的对外稳定输出。
type Report struct {
	Manifest string `json:"manifest"`
	DryRun   bool   `json:"dry_run"`
	Existed  bool   `json:"existed"`
	Created  bool   `json:"created"`
	Pruned   bool   `json:"pruned"`

	Total   int           `json:"total"`
	Valid   int           `json:"valid"`
	Invalid int           `json:"invalid"`
	Entries []EntryResult `json:"entries"`
	Dirs    []DirResult   `json:"dirs"`
}

// Check 校验清单中每个条目的视频与缩略图是否存在。
//
// apply（Store.ReadOnly=false）时额外执行：
// - 清单不存在：创建 []
// - 存在失效条目：改写清单，只保留有效条目
// - 媒体目录不存在：创建
func Check(s Store) (Report, error) {
	rep := Report{
		Manifest: s.ManifestPath(),
		DryRun:   s.ReadOnly,
		Entries:  []EntryResult{},
		Dirs:     []DirResult{},
	}

	raw, exists, err := s.ReadManifest()
	if err != nil {
		return rep, err
	}
	rep.Existed = exists

	if !exists {
		if !s.ReadOnly {
			if err := s.CreateEmpty(); err != nil && !errors.Is(err, os.ErrExist) {
				return rep, fmt.Errorf("创建 %s 失败：%w", ManifestName, err)
			}
			rep.Created = true
		}
	}

	valid := make([]json.RawMessage, 0, len(raw))
	for _, r := range raw {
		res := checkEntry(s, r)
		rep.Entries = append(rep.Entries, res)
		if res.Valid {
			valid = append(valid, r)
		}
	}
	rep.Total = len(raw)
	rep.Valid = len(valid)
	rep.Invalid = rep.Total - rep.Valid

	if rep.Invalid > 0 && !s.ReadOnly {
		if err := s.WriteManifest(valid); err != nil {
			return rep, fmt.Errorf("改写 %s 失败：%w", ManifestName, err)
		}
		rep.Pruned = true
	}

	for _, name := range mediaDirs {
		d, err := checkDir(s, name)
		if err != nil {
			return rep, err
		}
		rep.Dirs = append(rep.Dirs, d)
	}
	return rep, nil
}

func checkEntry(s Store, r json.RawMessage) EntryResult {
	var e Entry
	if err := json.Unmarshal(r, &e); err != nil {
		return EntryResult{Reason: fmt.Sprintf("条目无法解析：%v", err)}
	}
	res := EntryResult{Title: e.Title, VideoPath: e.VideoPath, ThumbnailPath: e.ThumbnailPath}

	p, err := s.Resolve(e.VideoPath)
	if err != nil {
		res.Reason = err.Error()
		return res
	}
	fi, err := os.Stat(p)
	switch {
	case err != nil:
		res.Reason = "视频文件不存在"
		return res
	case !fi.Mode().IsRegular():
		res.Reason = "视频路径不是文件"
		return res
	}
	res.Valid = true
	res.SizeBytes = fi.Size()

	if e.ThumbnailPath != "" {
		if tp, err := s.Resolve(e.ThumbnailPath); err == nil {
			res.Thumbnail, res.ThumbnailOK = checkThumbnail(tp)
		}
	}
	return res
}

// checkThumbnail 要求缩略图能被解码；没有解码器的格式（如 webp）只要求文件存在。
func checkThumbnail(path string) (*imgx.Info, bool) {
	info, err := imgx.Probe(path)
	switch {
	case err == nil:
		return &info, true
	case errors.Is(err, imgx.ErrUnsupported):
		switch strings.ToLower(filepath.Ext(path)) {
		case ".jpg", ".jpeg", ".png", ".gif":
			return nil, false
		}
		return nil, true
	default:
		return nil, false
	}
}

func checkDir(s Store, name string) (DirResult, error) {
	dir := filepath.Join(s.PublicDir(), name)
	d := DirResult{Name: name, Path: dir}

	fi, err := os.Stat(dir)
	switch {
	case err == nil && fi.IsDir():
		d.Existed = true
		files, err := scan.ScanMedia(dir, nil)
		if err != nil {
			return d, fmt.Errorf("扫描 %s 失败：%w", dir, err)
		}
		c := scan.Count(files)
		d.Videos = c[scan.KindVideo]
		d.Images = c[scan.KindImage]
		return d, nil
	case err == nil:
		return d, fmt.Errorf("%s 不是目录", dir)
	case !errors.Is(err, os.ErrNotExist):
		return d, err
	}

	if !s.ReadOnly {
		if err := s.EnsureDir(name); err != nil {
			return d, fmt.Errorf("创建 %s 失败：%w", dir, err)
		}
		d.Created = true
	}
	return d, nil
}

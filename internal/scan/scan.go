package scan

import (
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
)

// 媒体文件类型。
const (
	KindVideo = "video"
	KindImage = "image"
)

// File 是扫描到的一个媒体文件。
type File struct {
	AbsPath string
	RelPath string
	Kind    string
	Ext     string
	Size    int64
	ModUnix int64
}

// ScanMedia 扫描 root 下的视频与图片文件，并应用目录排除规则。
//
// 规则（硬约束）：
// - 以 '.' 开头的文件与目录一律跳过（原子写入的临时文件、隐藏目录）
// - excludeDirs：均视为相对 root 的路径（若是绝对路径，则按绝对路径处理）
//
// 注意：扫描阶段只做 stat（DirEntry.Info），不读文件内容。
func ScanMedia(root string, excludeDirs []string) ([]File, error) {
	root = filepath.Clean(root)
	excluded := buildExcluded(root, excludeDirs)

	files := make([]File, 0, 64)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}

		// 统一的排除判断：目录用 SkipDir，文件则直接跳过。
		if path != root && (isExcluded(path, excluded) || strings.HasPrefix(d.Name(), ".")) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			return nil
		}

		ext := strings.ToLower(filepath.Ext(d.Name()))
		kind := kindOf(ext)
		if kind == "" {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}

		files = append(files, File{
			AbsPath: path,
			RelPath: rel,
			Kind:    kind,
			Ext:     ext,
			Size:    info.Size(),
			ModUnix: info.ModTime().Unix(),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	// 强制稳定输出，避免不同平台/文件系统行为差异带来的不确定性。
	sort.Slice(files, func(i, j int) bool { return files[i].RelPath < files[j].RelPath })
	return files, nil
}

// Count 按 kind 统计文件数。
func Count(files []File) map[string]int {
	out := map[string]int{}
	for _, f := range files {
		out[f.Kind]++
	}
	return out
}

func kindOf(ext string) string {
	switch ext {
	case ".mp4", ".webm", ".mkv", ".mov", ".m4v":
		return KindVideo
	case ".jpg", ".jpeg", ".png", ".webp", ".gif":
		return KindImage
	default:
		return ""
	}
}

func buildExcluded(root string, excludeDirs []string) []string {
	excluded := make([]string, 0, len(excludeDirs))
	for _, x := range excludeDirs {
		x = strings.TrimSpace(x)
		if x == "" {
			continue
		}
		if filepath.IsAbs(x) {
			excluded = append(excluded, filepath.Clean(x))
			continue
		}
		// x 是相对路径：相对 root。
		excluded = append(excluded, filepath.Clean(filepath.Join(root, x)))
	}

	// 排除列表排序后，isExcluded 的行为更可预测（且便于测试）。
	sort.Strings(excluded)
	return excluded
}

func isExcluded(path string, excluded []string) bool {
	path = filepath.Clean(path)
	for _, base := range excluded {
		if isUnder(path, base) {
			return true
		}
	}
	return false
}

func isUnder(path, base string) bool {
	if path == base {
		return true
	}
	sep := string(filepath.Separator)
	return strings.HasPrefix(path, base+sep)
}

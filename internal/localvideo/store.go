package localvideo

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/John-Robertt/anigallery/internal/infra/fsx"
	"github.com/John-Robertt/anigallery/internal/sink"
)

// ManifestName 是本地视频清单的文件名（位于 <root>/public/data/）。
const ManifestName = "local-videos.json"

// Store 提供 <root>/public/ 下本地视频清单的读写。
//
// 约束：
// - dry-run：只允许读（ReadOnly=true）
// - apply：允许写（ReadOnly=false）
type Store struct {
	Root     string // 站点根目录（包含 public/）
	ReadOnly bool
}

var ErrReadOnly = errors.New("localvideo: read-only")

func New(root string, readOnly bool) Store {
	return Store{
		Root:     filepath.Clean(strings.TrimSpace(root)),
		ReadOnly: readOnly,
	}
}

// PublicDir 返回静态资源根目录 <root>/public。
func (s Store) PublicDir() string { return filepath.Join(s.Root, "public") }

// DataDir 返回清单所在目录 <root>/public/data。
func (s Store) DataDir() string { return filepath.Join(s.PublicDir(), "data") }

// ManifestPath 返回清单的绝对路径。
func (s Store) ManifestPath() string { return filepath.Join(s.DataDir(), ManifestName) }

// ReadManifest 读取清单；不存在时 exists=false。
//
// 每个条目保留原始 JSON，改写清单时不会丢失未知字段。
func (s Store) ReadManifest() (entries []json.RawMessage, exists bool, err error) {
	b, ok, err := fsx.ReadFileOptional(s.ManifestPath())
	if err != nil || !ok {
		return nil, ok, err
	}
	if err := json.Unmarshal(b, &entries); err != nil {
		return nil, true, fmt.Errorf("解析 %s 失败：%w", s.ManifestPath(), err)
	}
	return entries, true, nil
}

// CreateEmpty 创建内容为 [] 的清单；已存在时返回 os.ErrExist。
func (s Store) CreateEmpty() error {
	if s.ReadOnly {
		return ErrReadOnly
	}
	return fsx.WriteFileAtomicNoOverwrite(s.DataDir(), ManifestName, []byte("[]\n"))
}

// WriteManifest 用 entries 整体替换清单。
func (s Store) WriteManifest(entries []json.RawMessage) error {
	if s.ReadOnly {
		return ErrReadOnly
	}
	if entries == nil {
		entries = []json.RawMessage{}
	}
	b, err := sink.Encode(entries)
	if err != nil {
		return err
	}
	return fsx.WriteFileAtomicReplace(s.DataDir(), ManifestName, b)
}

// EnsureDir 确保 <root>/public/<name> 存在。
func (s Store) EnsureDir(name string) error {
	if s.ReadOnly {
		return ErrReadOnly
	}
	return fsx.EnsureDir(filepath.Join(s.PublicDir(), name))
}

// Resolve 把清单里的站点路径（如 /videos/op.mp4）解析为 public 下的绝对路径。
// 越出 public 的路径返回错误。
func (s Store) Resolve(sitePath string) (string, error) {
	p := strings.TrimSpace(sitePath)
	if p == "" {
		return "", errors.New("路径为空")
	}
	p = filepath.Clean(filepath.FromSlash(strings.TrimLeft(p, "/")))
	if p == "." || p == ".." || strings.HasPrefix(p, ".."+string(filepath.Separator)) || filepath.IsAbs(p) {
		return "", fmt.Errorf("路径越出 public：%q", sitePath)
	}
	return filepath.Join(s.PublicDir(), p), nil
}

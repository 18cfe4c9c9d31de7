package sink

import (
	"context"
	"path/filepath"

	"github.com/John-Robertt/anigallery/internal/infra/fsx"
)

// DefaultDir 是相对工作目录的默认输出目录（静态站点从这里读取数据）。
const DefaultDir = "public/data"

// Dir 把 artifact 写成目录下的 JSON 文件（临时文件 + rename 原子替换）。
type Dir struct {
	Path string
}

func NewDir(path string) *Dir { return &Dir{Path: path} }

func (d *Dir) Put(ctx context.Context, name string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return fsx.WriteFileAtomicReplace(d.Path, name, data)
}

func (d *Dir) Location(name string) string { return filepath.Join(d.Path, name) }

func (d *Dir) String() string { return "dir:" + d.Path }
